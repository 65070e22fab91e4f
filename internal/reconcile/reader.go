package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/lectureship/backend/internal/models"
)

// Source is a store that yields registration collections. Sources are read in
// the order given to the Reader; on duplicate ids the earlier source wins.
type Source interface {
	Name() string
	Collections(ctx context.Context) ([]Collection, error)
}

// FailureRecorder counts skipped sources (satisfied by metrics.Metrics).
type FailureRecorder interface {
	SourceFailed(source string)
}

// Reader loads every source and reconciles what could be read.
type Reader struct {
	sources  []Source
	failures FailureRecorder
	logger   *zap.Logger
}

// NewReader creates a reader over sources in priority order.
func NewReader(logger *zap.Logger, failures FailureRecorder, sources ...Source) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{sources: sources, failures: failures, logger: logger}
}

// Read returns the reconciled registrations. A source that fails entirely, or a
// collection that cannot be parsed, is logged and skipped; Read never fails.
func (r *Reader) Read(ctx context.Context) []models.Registration {
	var collections [][]models.Registration
	for _, src := range r.sources {
		cols, err := src.Collections(ctx)
		if err != nil {
			r.skip(src.Name(), "", err)
			continue
		}
		for _, c := range cols {
			if c.Err != nil {
				r.skip(src.Name(), c.Name, c.Err)
				continue
			}
			collections = append(collections, c.Records)
		}
	}
	return Reconcile(collections...)
}

func (r *Reader) skip(source, collection string, err error) {
	r.logger.Warn("registration source skipped",
		zap.String("source", source),
		zap.String("collection", collection),
		zap.Error(err),
	)
	if r.failures != nil {
		r.failures.SourceFailed(source)
	}
}
