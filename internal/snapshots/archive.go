package snapshots

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/internal/reconcile"
	"github.com/lectureship/backend/pkg/storage"
)

// DefaultKeep is how many of the newest daily snapshots the archive retains.
const DefaultKeep = 7

// ObjectStore is the subset of storage.S3 the archive needs.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	DeleteObject(ctx context.Context, key string) error
}

// Archive writes dated registration snapshots to S3 and reads them back.
type Archive struct {
	store  ObjectStore
	keep   int
	logger *zap.Logger
}

// NewArchive creates an archive that retains and reads back the keep newest snapshots.
func NewArchive(store ObjectStore, keep int, logger *zap.Logger) *Archive {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Archive{store: store, keep: keep, logger: logger}
}

// Result describes a written snapshot.
type Result struct {
	Key    string `json:"key"`
	Count  int    `json:"count"`
	Pruned int    `json:"pruned"`
}

// Write stores regs as the snapshot for day, replacing an earlier one for the same day.
func (a *Archive) Write(ctx context.Context, day time.Time, regs []models.Registration) (Result, error) {
	if regs == nil {
		regs = []models.Registration{}
	}
	data, err := json.MarshalIndent(regs, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	key := storage.SnapshotKey(day)
	if err := a.store.Put(ctx, key, "application/json", data); err != nil {
		return Result{}, err
	}
	a.logger.Info("snapshot written", zap.String("key", key), zap.Int("count", len(regs)))
	res := Result{Key: key, Count: len(regs)}
	res.Pruned = a.prune(ctx, key)
	return res, nil
}

// prune deletes snapshots older than the keep newest, never the one just
// written. Failures are logged; the snapshot itself is already stored.
func (a *Archive) prune(ctx context.Context, written string) int {
	keys, err := a.store.ListKeys(ctx, storage.FolderSnapshots+"/")
	if err != nil {
		a.logger.Warn("list snapshots for pruning", zap.Error(err))
		return 0
	}
	if len(keys) <= a.keep {
		return 0
	}
	pruned := 0
	for _, key := range keys[a.keep:] {
		if key == written {
			continue
		}
		if err := a.store.DeleteObject(ctx, key); err != nil {
			a.logger.Warn("prune snapshot", zap.String("key", key), zap.Error(err))
			continue
		}
		pruned++
	}
	if pruned > 0 {
		a.logger.Info("old snapshots pruned", zap.Int("count", pruned))
	}
	return pruned
}

// Name identifies the archive to the reconciler.
func (a *Archive) Name() string { return "s3" }

// Collections returns the newest snapshots, newest first. An object that
// cannot be fetched or parsed becomes a failed collection.
func (a *Archive) Collections(ctx context.Context) ([]reconcile.Collection, error) {
	keys, err := a.store.ListKeys(ctx, storage.FolderSnapshots+"/")
	if err != nil {
		return nil, err
	}
	if len(keys) > a.keep {
		keys = keys[:a.keep]
	}
	cols := make([]reconcile.Collection, 0, len(keys))
	for _, key := range keys {
		raw, err := a.store.Get(ctx, key)
		if err != nil {
			cols = append(cols, reconcile.Collection{Name: key, Err: err})
			continue
		}
		cols = append(cols, reconcile.Decode(key, raw))
	}
	return cols, nil
}
