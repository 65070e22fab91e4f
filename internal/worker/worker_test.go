package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/internal/registrations"
	"github.com/lectureship/backend/internal/snapshots"
	"github.com/lectureship/backend/pkg/queue"
)

type fakeJobs struct {
	mu      sync.Mutex
	pending []*queue.Job
	retried []*queue.Job
	cancel  context.CancelFunc
}

func (f *fakeJobs) Dequeue(context.Context, ...string) (*queue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		f.cancel()
		return nil, nil
	}
	job := f.pending[0]
	f.pending = f.pending[1:]
	return job, nil
}

func (f *fakeJobs) Retry(_ context.Context, job *queue.Job, cause error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.Attempt++
	job.LastError = cause.Error()
	f.retried = append(f.retried, job)
	return nil
}

type delivery struct {
	emailType string
	regID     string
	attempt   int
}

type fakeEmailer struct {
	sent []delivery
	err  error
}

func (f *fakeEmailer) Deliver(_ context.Context, emailType string, reg *models.Registration, attempt int) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, delivery{emailType, reg.ID, attempt})
	return nil
}

type fakeSheet struct{ rows []string }

func (f *fakeSheet) Append(_ context.Context, reg *models.Registration) error {
	f.rows = append(f.rows, reg.ID)
	return nil
}

type fakeLister []models.Registration

func (f fakeLister) List(context.Context, registrations.Query) ([]models.Registration, error) {
	return f, nil
}

type fakeSnapshots struct {
	day   time.Time
	count int
}

func (f *fakeSnapshots) Write(_ context.Context, day time.Time, regs []models.Registration) (snapshots.Result, error) {
	f.day, f.count = day, len(regs)
	return snapshots.Result{Key: "snapshots/" + day.Format("2006-01-02") + ".json", Count: len(regs)}, nil
}

type outcomes map[string]int

func (o outcomes) JobDone(jobType, outcome string) { o[jobType+"/"+outcome]++ }

func job(t *testing.T, typ queue.JobType, payload any) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &queue.Job{ID: string(typ) + "-1", Type: typ, Payload: raw}
}

func TestProcess_Dispatch(t *testing.T) {
	reg := models.Registration{ID: "reg_1", Email: "ada@example.com"}
	emails, sheet, snaps := &fakeEmailer{}, &fakeSheet{}, &fakeSnapshots{}
	p := NewProcessor(nil, Deps{
		Emails:    emails,
		Sheets:    sheet,
		Lister:    fakeLister{reg, {ID: "reg_2"}},
		Snapshots: snaps,
	}, nil)
	ctx := context.Background()

	outcome, err := p.Process(ctx, job(t, queue.JobTypeEmail, queue.EmailPayload{EmailType: models.EmailTypeConfirmation, Registration: reg}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDone, outcome)
	assert.Equal(t, []delivery{{models.EmailTypeConfirmation, "reg_1", 1}}, emails.sent)

	_, err = p.Process(ctx, job(t, queue.JobTypeSheetAppend, queue.SheetAppendPayload{Registration: reg}))
	require.NoError(t, err)
	assert.Equal(t, []string{"reg_1"}, sheet.rows)

	_, err = p.Process(ctx, job(t, queue.JobTypeSnapshot, queue.SnapshotPayload{Day: "2025-11-03"}))
	require.NoError(t, err)
	assert.Equal(t, "2025-11-03", snaps.day.Format("2006-01-02"))
	assert.Equal(t, 2, snaps.count)
}

func TestProcess_SnapshotDefaultsToToday(t *testing.T) {
	snaps := &fakeSnapshots{}
	p := NewProcessor(nil, Deps{Lister: fakeLister{}, Snapshots: snaps}, nil)
	p.now = func() time.Time { return time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC) }

	_, err := p.Process(context.Background(), job(t, queue.JobTypeSnapshot, queue.SnapshotPayload{}))
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", snaps.day.Format("2006-01-02"))
}

func TestProcess_SkipsUnconfiguredSinks(t *testing.T) {
	p := NewProcessor(nil, Deps{}, nil)
	outcome, err := p.Process(context.Background(), job(t, queue.JobTypeSheetAppend, queue.SheetAppendPayload{}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
}

func TestProcess_Errors(t *testing.T) {
	p := NewProcessor(nil, Deps{Lister: fakeLister{}, Snapshots: &fakeSnapshots{}}, nil)

	_, err := p.Process(context.Background(), &queue.Job{Type: "fax"})
	assert.ErrorIs(t, err, ErrUnknownJob)

	_, err = p.Process(context.Background(), &queue.Job{Type: queue.JobTypeEmail, Payload: []byte(`{`)})
	assert.Error(t, err)

	_, err = p.Process(context.Background(), job(t, queue.JobTypeSnapshot, queue.SnapshotPayload{Day: "March 9"}))
	assert.Error(t, err)
}

func TestRun_RetriesFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reg := models.Registration{ID: "reg_1"}
	jobs := &fakeJobs{cancel: cancel, pending: []*queue.Job{
		job(t, queue.JobTypeSheetAppend, queue.SheetAppendPayload{Registration: reg}),
		job(t, queue.JobTypeEmail, queue.EmailPayload{EmailType: models.EmailTypeNotification, Registration: reg}),
	}}
	sheet, counts := &fakeSheet{}, outcomes{}
	p := NewProcessor(jobs, Deps{
		Emails:  &fakeEmailer{err: errors.New("smtp down")},
		Sheets:  sheet,
		Metrics: counts,
	}, nil)
	p.backoff = time.Millisecond

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.Equal(t, []string{"reg_1"}, sheet.rows)
	require.Len(t, jobs.retried, 1)
	assert.Equal(t, queue.JobTypeEmail, jobs.retried[0].Type)
	assert.Equal(t, 1, jobs.retried[0].Attempt)
	assert.Equal(t, "smtp down", jobs.retried[0].LastError)
	assert.Equal(t, 1, counts["sheet_append/done"])
	assert.Equal(t, 1, counts["email/retried"])
}

type countingEnqueuer struct {
	mu   sync.Mutex
	days []string
}

func (c *countingEnqueuer) EnqueueSnapshot(_ context.Context, p queue.SnapshotPayload) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.days = append(c.days, p.Day)
	return "job", nil
}

func (c *countingEnqueuer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.days)
}

func TestScheduleSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	jobs := &countingEnqueuer{}
	done := make(chan struct{})
	go func() {
		ScheduleSnapshots(ctx, jobs, 10*time.Millisecond, nil)
		close(done)
	}()

	require.Eventually(t, func() bool { return jobs.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), jobs.days[0])
}
