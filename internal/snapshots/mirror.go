// Package snapshots keeps secondary copies of the registration list: a Redis
// mirror (a shared list plus one backup per day) and dated S3 archives. Both
// are read back by the reconciler behind the Postgres primary.
package snapshots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/internal/reconcile"
)

const (
	// SharedKey holds the newest registrations as one JSON array.
	SharedKey = "registrations:shared"
	// BackupKeyPrefix prefixes the per-day backup keys (registrations:backup:2006-01-02).
	BackupKeyPrefix = "registrations:backup:"
	// MaxShared caps the shared list; older entries survive in the daily backups.
	MaxShared = 1000
	// BackupTTL is how long a daily backup key is kept.
	BackupTTL = 90 * 24 * time.Hour

	maxWatchRetries = 5
)

// BackupKey returns the backup key for day.
func BackupKey(day time.Time) string {
	return BackupKeyPrefix + day.UTC().Format("2006-01-02")
}

// Mirror stores registration lists in Redis.
type Mirror struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewMirror creates a Redis mirror.
func NewMirror(client *redis.Client, logger *zap.Logger) *Mirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{client: client, logger: logger, now: time.Now}
}

// Append puts reg at the head of the shared list (capped at MaxShared) and
// writes the same list to today's backup key.
func (m *Mirror) Append(ctx context.Context, reg models.Registration) error {
	backup := BackupKey(m.now())
	return m.update(ctx, SharedKey, func(list []models.Registration) ([]models.Registration, bool) {
		for _, r := range list {
			if r.ID == reg.ID {
				return list, false
			}
		}
		list = append([]models.Registration{reg}, list...)
		if len(list) > MaxShared {
			list = list[:MaxShared]
		}
		return list, true
	}, func(pipe redis.Pipeliner, data []byte) {
		pipe.Set(ctx, backup, data, BackupTTL)
	})
}

// UpdatePaymentStatus rewrites the status of id in the shared list. Daily
// backups are point-in-time copies and are left as written.
func (m *Mirror) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	return m.update(ctx, SharedKey, func(list []models.Registration) ([]models.Registration, bool) {
		changed := false
		for i := range list {
			if list[i].ID == id && list[i].PaymentStatus != status {
				list[i].PaymentStatus = status
				changed = true
			}
		}
		return list, changed
	}, nil)
}

// Remove drops id from the shared list and from every daily backup.
func (m *Mirror) Remove(ctx context.Context, id string) error {
	keys, err := m.backupKeys(ctx)
	if err != nil {
		return err
	}
	drop := func(list []models.Registration) ([]models.Registration, bool) {
		kept := list[:0]
		for _, r := range list {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		return kept, len(kept) != len(list)
	}
	for _, key := range append([]string{SharedKey}, keys...) {
		if err := m.update(ctx, key, drop, nil); err != nil {
			return err
		}
	}
	return nil
}

// Clear deletes the shared list and every daily backup.
func (m *Mirror) Clear(ctx context.Context) error {
	keys, err := m.backupKeys(ctx)
	if err != nil {
		return err
	}
	keys = append(keys, SharedKey)
	if err := m.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear mirror: %w", err)
	}
	return nil
}

// update applies fn to the list at key inside a WATCH transaction, retrying on
// concurrent modification. extra may queue more writes of the new list.
func (m *Mirror) update(ctx context.Context, key string,
	fn func([]models.Registration) ([]models.Registration, bool),
	extra func(redis.Pipeliner, []byte)) error {

	txf := func(tx *redis.Tx) error {
		list, err := m.load(ctx, tx, key)
		if err != nil {
			return err
		}
		next, changed := fn(list)
		if !changed {
			return nil
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		ttl := time.Duration(0)
		if strings.HasPrefix(key, BackupKeyPrefix) {
			ttl = redis.KeepTTL
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			if extra != nil {
				extra(pipe, data)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := m.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("update %s: %w", key, err)
	}
	return fmt.Errorf("update %s: too many concurrent writers", key)
}

// load reads a list for rewriting. A value that does not parse is replaced
// rather than blocking every later write; the reconciler reports it on read.
func (m *Mirror) load(ctx context.Context, tx *redis.Tx, key string) ([]models.Registration, error) {
	raw, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	c := reconcile.Decode(key, raw)
	if c.Err != nil {
		m.logger.Warn("mirror list unreadable, overwriting", zap.String("key", key), zap.Error(c.Err))
		return nil, nil
	}
	return c.Records, nil
}

// backupKeys lists daily backup keys, newest first.
func (m *Mirror) backupKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := m.client.Scan(ctx, 0, BackupKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan backups: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}

// Name identifies the mirror to the reconciler.
func (m *Mirror) Name() string { return "redis" }

// Collections returns the shared list followed by the daily backups, newest
// day first. Unparseable values are returned as failed collections.
func (m *Mirror) Collections(ctx context.Context) ([]reconcile.Collection, error) {
	keys, err := m.backupKeys(ctx)
	if err != nil {
		return nil, err
	}
	keys = append([]string{SharedKey}, keys...)
	values, err := m.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget mirror: %w", err)
	}
	cols := make([]reconcile.Collection, 0, len(keys))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		cols = append(cols, reconcile.Decode(keys[i], []byte(s)))
	}
	return cols, nil
}
