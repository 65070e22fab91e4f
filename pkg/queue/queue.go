package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lectureship/backend/internal/models"
)

const (
	// QueueEmails is the Redis list key for confirmation and organizer email jobs.
	QueueEmails = "worker:emails"
	// QueueSheets is the Redis list key for spreadsheet row append jobs.
	QueueSheets = "worker:sheets"
	// QueueSnapshots is the Redis list key for S3 snapshot jobs.
	QueueSnapshots = "worker:snapshots"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
	// PollTimeout bounds one blocking pop so shutdown is noticed.
	PollTimeout = 5 * time.Second
)

// Queues lists the work queues in the order a worker polls them.
var Queues = []string{QueueEmails, QueueSheets, QueueSnapshots}

// JobType identifies the job kind.
type JobType string

const (
	JobTypeEmail       JobType = "email"
	JobTypeSheetAppend JobType = "sheet_append"
	JobTypeSnapshot    JobType = "snapshot"
)

// EmailPayload is the payload for email jobs. The registration travels with
// the job so the worker does not depend on which store accepted it.
type EmailPayload struct {
	EmailType    string              `json:"email_type"`
	Registration models.Registration `json:"registration"`
}

// SheetAppendPayload is the payload for spreadsheet append jobs.
type SheetAppendPayload struct {
	Registration models.Registration `json:"registration"`
}

// SnapshotPayload is the payload for S3 snapshot jobs.
type SnapshotPayload struct {
	Day         string `json:"day"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Queue     string          `json:"queue"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	LastError string          `json:"last_error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

func (q *Queue) enqueue(ctx context.Context, key string, jobType JobType, payload any) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Queue:     key,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return nil, fmt.Errorf("rpush: %w", err)
	}
	return job, nil
}

// EnqueueEmail enqueues an email job.
func (q *Queue) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	job, err := q.enqueue(ctx, QueueEmails, JobTypeEmail, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued email job", zap.String("job_id", job.ID), zap.String("email_type", payload.EmailType),
		zap.String("registration_id", payload.Registration.ID))
	return nil
}

// EnqueueSheetAppend enqueues a spreadsheet append job.
func (q *Queue) EnqueueSheetAppend(ctx context.Context, payload SheetAppendPayload) error {
	job, err := q.enqueue(ctx, QueueSheets, JobTypeSheetAppend, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued sheet append job", zap.String("job_id", job.ID), zap.String("registration_id", payload.Registration.ID))
	return nil
}

// EnqueueSnapshot enqueues an S3 snapshot job.
func (q *Queue) EnqueueSnapshot(ctx context.Context, payload SnapshotPayload) (string, error) {
	job, err := q.enqueue(ctx, QueueSnapshots, JobTypeSnapshot, payload)
	if err != nil {
		return "", err
	}
	q.logger.Debug("enqueued snapshot job", zap.String("job_id", job.ID), zap.String("day", payload.Day))
	return job.ID, nil
}

// Dequeue blocks up to PollTimeout for a job on any of keys. It returns a nil
// job when the wait timed out or the entry could not be decoded.
func (q *Queue) Dequeue(ctx context.Context, keys ...string) (*Job, error) {
	if len(keys) == 0 {
		keys = Queues
	}
	result, err := q.client.BLPop(ctx, PollTimeout, keys...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("queue", result[0]), zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	job.Queue = result[0]
	return &job, nil
}

// Retry re-enqueues a job on its own queue with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job, cause error) error {
	job.Attempt++
	if cause != nil {
		job.LastError = cause.Error()
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Int("attempt", job.Attempt))
		return nil
	}
	key := job.Queue
	if key == "" {
		key = QueueEmails
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.String("queue", key), zap.Int("attempt", job.Attempt))
	return nil
}

// Depth reports the length of each work queue and the DLQ.
func (q *Queue) Depth(ctx context.Context) (map[string]int64, error) {
	keys := append(append([]string{}, Queues...), QueueDLQ)
	pipe := q.client.Pipeline()
	cmds := make(map[string]*redis.IntCmd, len(keys))
	for _, k := range keys {
		cmds[k] = pipe.LLen(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("queue depth: %w", err)
	}
	out := make(map[string]int64, len(keys))
	for k, cmd := range cmds {
		out[k] = cmd.Val()
	}
	return out, nil
}
