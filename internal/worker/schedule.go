package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lectureship/backend/pkg/queue"
)

// SnapshotEnqueuer schedules snapshot jobs (satisfied by queue.Queue).
type SnapshotEnqueuer interface {
	EnqueueSnapshot(ctx context.Context, payload queue.SnapshotPayload) (string, error)
}

// ScheduleSnapshots enqueues a snapshot of the current day immediately and
// then once per interval until ctx is done.
func ScheduleSnapshots(ctx context.Context, jobs SnapshotEnqueuer, interval time.Duration, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	enqueue := func() {
		day := time.Now().UTC().Format("2006-01-02")
		id, err := jobs.EnqueueSnapshot(ctx, queue.SnapshotPayload{Day: day, RequestedBy: "scheduler"})
		if err != nil {
			logger.Warn("scheduled snapshot not enqueued", zap.String("day", day), zap.Error(err))
			return
		}
		logger.Info("scheduled snapshot enqueued", zap.String("day", day), zap.String("job_id", id))
	}

	enqueue()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			enqueue()
		}
	}
}
