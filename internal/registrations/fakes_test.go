package registrations

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/internal/reconcile"
	"github.com/lectureship/backend/pkg/queue"
)

// memStore is an in-memory Store.
type memStore struct {
	mu         sync.Mutex
	regs       map[string]models.Registration
	tombstones map[string]struct{}
	appendErr  error
}

func newMemStore(regs ...models.Registration) *memStore {
	s := &memStore{regs: map[string]models.Registration{}, tombstones: map[string]struct{}{}}
	for _, r := range regs {
		s.regs[r.ID] = r
	}
	return s
}

func (s *memStore) List(context.Context) ([]models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Registration, 0, len(s.regs))
	for _, r := range s.regs {
		out = append(out, r)
	}
	reconcile.Sort(out)
	return out, nil
}

func (s *memStore) Get(_ context.Context, id string) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *memStore) Append(_ context.Context, reg *models.Registration) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.regs[reg.ID]; !ok {
		s.regs[reg.ID] = *reg
	}
	return nil
}

func (s *memStore) UpdatePaymentStatus(_ context.Context, id string, status models.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[id]
	if !ok {
		return ErrNotFound
	}
	r.PaymentStatus = status
	s.regs[id] = r
	return nil
}

func (s *memStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.regs, id)
	s.tombstones[id] = struct{}{}
	return nil
}

func (s *memStore) RemoveAll(_ context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.regs))
	s.regs = map[string]models.Registration{}
	for _, id := range ids {
		s.tombstones[id] = struct{}{}
	}
	return n, nil
}

func (s *memStore) Import(_ context.Context, regs []models.Registration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range regs {
		delete(s.tombstones, r.ID)
		if _, ok := s.regs[r.ID]; ok {
			continue
		}
		s.regs[r.ID] = r
		n++
	}
	return n, nil
}

func (s *memStore) Tombstones(context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.tombstones))
	for id := range s.tombstones {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *memStore) Name() string { return "memory" }

func (s *memStore) Collections(ctx context.Context) ([]reconcile.Collection, error) {
	list, err := s.List(ctx)
	return []reconcile.Collection{{Name: "registrations", Records: list}}, err
}

// staticSource is a secondary store holding a fixed list.
type staticSource struct {
	regs []models.Registration
}

func (s staticSource) Name() string { return "static" }

func (s staticSource) Collections(context.Context) ([]reconcile.Collection, error) {
	return []reconcile.Collection{{Name: "static", Records: s.regs}}, nil
}

type memMirror struct {
	appended []string
	updated  map[string]models.PaymentStatus
	removed  []string
	cleared  bool
	err      error
}

func newMemMirror() *memMirror { return &memMirror{updated: map[string]models.PaymentStatus{}} }

func (m *memMirror) Append(_ context.Context, reg models.Registration) error {
	if m.err != nil {
		return m.err
	}
	m.appended = append(m.appended, reg.ID)
	return nil
}

func (m *memMirror) UpdatePaymentStatus(_ context.Context, id string, status models.PaymentStatus) error {
	m.updated[id] = status
	return m.err
}

func (m *memMirror) Remove(_ context.Context, id string) error {
	m.removed = append(m.removed, id)
	return m.err
}

func (m *memMirror) Clear(context.Context) error {
	m.cleared = true
	return m.err
}

type memJobs struct {
	emails []queue.EmailPayload
	sheets []queue.SheetAppendPayload
	err    error
}

func (j *memJobs) EnqueueEmail(_ context.Context, p queue.EmailPayload) error {
	if j.err != nil {
		return j.err
	}
	j.emails = append(j.emails, p)
	return nil
}

func (j *memJobs) EnqueueSheetAppend(_ context.Context, p queue.SheetAppendPayload) error {
	if j.err != nil {
		return j.err
	}
	j.sheets = append(j.sheets, p)
	return nil
}

type memEvents struct {
	names []string
}

func (e *memEvents) Publish(_ context.Context, event string, _ any) error {
	e.names = append(e.names, event)
	return nil
}

type memMetrics struct {
	submitted map[string]int
	failed    map[string]int
}

func newMemMetrics() *memMetrics {
	return &memMetrics{submitted: map[string]int{}, failed: map[string]int{}}
}

func (m *memMetrics) RegistrationSubmitted(t string) { m.submitted[t]++ }
func (m *memMetrics) ValidationFailed(code string)   { m.failed[code]++ }

var errDown = errors.New("connection refused")

type harness struct {
	store   *memStore
	mirror  *memMirror
	jobs    *memJobs
	events  *memEvents
	metrics *memMetrics
	svc     *Service
}

func newHarness(secondary ...models.Registration) *harness {
	h := &harness{
		store:   newMemStore(),
		mirror:  newMemMirror(),
		jobs:    &memJobs{},
		events:  &memEvents{},
		metrics: newMemMetrics(),
	}
	reader := reconcile.NewReader(nil, nil, h.store, staticSource{regs: secondary})
	seq := 0
	builder := testBuilder()
	builder.NewID = func() string {
		seq++
		return fmt.Sprintf("reg_%03d", seq)
	}
	h.svc = NewService(builder, h.store, reader, Deps{
		Mirror:  h.mirror,
		Jobs:    h.jobs,
		Events:  h.events,
		Metrics: h.metrics,
	}, nil)
	return h
}
