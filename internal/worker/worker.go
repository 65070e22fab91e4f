package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/internal/registrations"
	"github.com/lectureship/backend/internal/snapshots"
	"github.com/lectureship/backend/pkg/queue"
)

// Job outcomes reported to metrics.
const (
	OutcomeDone    = "done"
	OutcomeRetried = "retried"
	OutcomeSkipped = "skipped"
)

// ErrUnknownJob is returned for a job type no handler exists for.
var ErrUnknownJob = errors.New("unknown job type")

// Jobs is the queue side the processor consumes.
type Jobs interface {
	Dequeue(ctx context.Context, keys ...string) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job, cause error) error
}

// Emailer delivers one registration email.
type Emailer interface {
	Deliver(ctx context.Context, emailType string, reg *models.Registration, attempt int) error
}

// RowAppender appends a registration to the spreadsheet.
type RowAppender interface {
	Append(ctx context.Context, reg *models.Registration) error
}

// Lister returns the reconciled registration list.
type Lister interface {
	List(ctx context.Context, q registrations.Query) ([]models.Registration, error)
}

// SnapshotWriter stores a dated snapshot.
type SnapshotWriter interface {
	Write(ctx context.Context, day time.Time, regs []models.Registration) (snapshots.Result, error)
}

// Recorder counts processed jobs (satisfied by metrics.Metrics).
type Recorder interface {
	JobDone(jobType, outcome string)
}

// Deps are the job handlers. A nil handler makes its jobs complete as skipped.
type Deps struct {
	Emails    Emailer
	Sheets    RowAppender
	Lister    Lister
	Snapshots SnapshotWriter
	Metrics   Recorder
}

// Processor runs email, spreadsheet and snapshot jobs.
type Processor struct {
	jobs    Jobs
	deps    Deps
	backoff time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewProcessor creates a job processor.
func NewProcessor(jobs Jobs, deps Deps, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{jobs: jobs, deps: deps, backoff: queue.RetryBackoff, now: time.Now, logger: logger}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) (string, error) {
	switch job.Type {
	case queue.JobTypeEmail:
		return p.email(ctx, job)
	case queue.JobTypeSheetAppend:
		return p.sheet(ctx, job)
	case queue.JobTypeSnapshot:
		return p.snapshot(ctx, job)
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownJob, job.Type)
}

func (p *Processor) email(ctx context.Context, job *queue.Job) (string, error) {
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	if p.deps.Emails == nil {
		return OutcomeSkipped, nil
	}
	if err := p.deps.Emails.Deliver(ctx, payload.EmailType, &payload.Registration, job.Attempt+1); err != nil {
		return "", err
	}
	return OutcomeDone, nil
}

func (p *Processor) sheet(ctx context.Context, job *queue.Job) (string, error) {
	var payload queue.SheetAppendPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	if p.deps.Sheets == nil {
		return OutcomeSkipped, nil
	}
	if err := p.deps.Sheets.Append(ctx, &payload.Registration); err != nil {
		return "", err
	}
	return OutcomeDone, nil
}

func (p *Processor) snapshot(ctx context.Context, job *queue.Job) (string, error) {
	var payload queue.SnapshotPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	if p.deps.Snapshots == nil || p.deps.Lister == nil {
		return OutcomeSkipped, nil
	}
	day := p.now().UTC()
	if payload.Day != "" {
		d, err := time.Parse("2006-01-02", payload.Day)
		if err != nil {
			return "", fmt.Errorf("snapshot day %q: %w", payload.Day, err)
		}
		day = d
	}
	regs, err := p.deps.Lister.List(ctx, registrations.Query{})
	if err != nil {
		return "", fmt.Errorf("list registrations: %w", err)
	}
	res, err := p.deps.Snapshots.Write(ctx, day, regs)
	if err != nil {
		return "", err
	}
	p.logger.Info("snapshot written", zap.String("key", res.Key), zap.Int("count", res.Count), zap.String("requested_by", payload.RequestedBy))
	return OutcomeDone, nil
}

// Handle processes job and schedules a retry when it fails. Malformed and
// unknown jobs go straight to the retry path so they end in the DLQ.
func (p *Processor) Handle(ctx context.Context, job *queue.Job) error {
	p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	outcome, err := p.Process(ctx, job)
	if err == nil {
		p.done(job, outcome)
		return nil
	}
	p.logger.Error("job failed", zap.String("job_id", job.ID), zap.String("type", string(job.Type)),
		zap.Int("attempt", job.Attempt), zap.Error(err))
	p.done(job, OutcomeRetried)
	if reErr := p.jobs.Retry(ctx, job, err); reErr != nil {
		p.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(reErr))
	}
	return err
}

func (p *Processor) done(job *queue.Job, outcome string) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.JobDone(string(job.Type), outcome)
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context, keys ...string) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, err := p.jobs.Dequeue(ctx, keys...)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}
		if err := p.Handle(ctx, job); err != nil {
			p.sleep(ctx)
		}
	}
}

func (p *Processor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
