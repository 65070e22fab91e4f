package registrations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/internal/pricing"
	"github.com/lectureship/backend/internal/reconcile"
	"github.com/lectureship/backend/pkg/queue"
)

// Admin feed event names.
const (
	EventRegistrationCreated   = "registration_created"
	EventPaymentStatusChanged  = "payment_status_changed"
	EventRegistrationDeleted   = "registration_deleted"
	EventRegistrationsCleared  = "registrations_cleared"
	EventRegistrationsImported = "registrations_imported"
)

// Reader yields the reconciled registration list.
type Reader interface {
	Read(ctx context.Context) []models.Registration
}

// Mirror is the secondary copy of the list kept alongside the primary store.
type Mirror interface {
	Append(ctx context.Context, reg models.Registration) error
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Jobs queues follow-up work for the worker.
type Jobs interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
	EnqueueSheetAppend(ctx context.Context, payload queue.SheetAppendPayload) error
}

// Publisher pushes events to connected admins.
type Publisher interface {
	Publish(ctx context.Context, event string, data any) error
}

// Recorder counts submissions and rejections.
type Recorder interface {
	RegistrationSubmitted(registrationType string)
	ValidationFailed(code string)
}

// Service coordinates the builder, the primary store and the secondary sinks.
// Only a failure to record a submission anywhere fails the request; the
// mirror, queue and feed are best effort and logged.
type Service struct {
	builder *Builder
	store   Store
	reader  Reader
	mirror  Mirror
	jobs    Jobs
	events  Publisher
	metrics Recorder
	logger  *zap.Logger
}

// Deps groups the optional collaborators of a Service. Nil fields are skipped.
type Deps struct {
	Mirror  Mirror
	Jobs    Jobs
	Events  Publisher
	Metrics Recorder
}

// NewService creates a registration service.
func NewService(builder *Builder, store Store, reader Reader, deps Deps, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if builder == nil {
		builder = NewBuilder()
	}
	return &Service{
		builder: builder,
		store:   store,
		reader:  reader,
		mirror:  deps.Mirror,
		jobs:    deps.Jobs,
		events:  deps.Events,
		metrics: deps.Metrics,
		logger:  logger,
	}
}

// Quote prices a selection without persisting anything.
func (s *Service) Quote(in Input) (pricing.Breakdown, []pricing.LineItem, error) {
	sel, err := normalizeSelection(in)
	if err != nil {
		s.rejected(err)
		return pricing.Breakdown{}, nil, err
	}
	return pricing.Quote(sel), pricing.LineItems(sel), nil
}

// Submit validates in and records the new registration.
func (s *Service) Submit(ctx context.Context, in Input, source string) (*models.Registration, error) {
	reg, err := s.builder.Build(in, source)
	if err != nil {
		s.rejected(err)
		return nil, err
	}

	primaryErr := s.store.Append(ctx, reg)
	if primaryErr != nil {
		s.logger.Error("primary store append failed", zap.String("registration_id", reg.ID), zap.Error(primaryErr))
	}
	mirrorErr := errors.New("mirror not configured")
	if s.mirror != nil {
		mirrorErr = s.mirror.Append(ctx, *reg)
		if mirrorErr != nil {
			s.logger.Warn("mirror append failed", zap.String("registration_id", reg.ID), zap.Error(mirrorErr))
		}
	}
	if primaryErr != nil && mirrorErr != nil {
		return nil, fmt.Errorf("record registration: %w", primaryErr)
	}

	if s.metrics != nil {
		s.metrics.RegistrationSubmitted(string(reg.RegistrationType))
	}
	s.enqueueFollowUps(ctx, reg)
	s.publish(ctx, EventRegistrationCreated, reg)
	s.logger.Info("registration submitted",
		zap.String("registration_id", reg.ID),
		zap.String("type", string(reg.RegistrationType)),
		zap.Int("total", reg.TotalAmount),
		zap.String("source", source),
	)
	return reg, nil
}

func (s *Service) enqueueFollowUps(ctx context.Context, reg *models.Registration) {
	if s.jobs == nil {
		return
	}
	for _, emailType := range []string{models.EmailTypeConfirmation, models.EmailTypeNotification} {
		if err := s.jobs.EnqueueEmail(ctx, queue.EmailPayload{EmailType: emailType, Registration: *reg}); err != nil {
			s.logger.Warn("enqueue email failed", zap.String("registration_id", reg.ID), zap.String("email_type", emailType), zap.Error(err))
		}
	}
	if err := s.jobs.EnqueueSheetAppend(ctx, queue.SheetAppendPayload{Registration: *reg}); err != nil {
		s.logger.Warn("enqueue sheet append failed", zap.String("registration_id", reg.ID), zap.Error(err))
	}
}

// List returns the reconciled registrations matching q. Deleted ids are
// hidden; when tombstones cannot be read the list is returned unfiltered.
func (s *Service) List(ctx context.Context, q Query) ([]models.Registration, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return Apply(s.view(ctx), q), nil
}

func (s *Service) view(ctx context.Context) []models.Registration {
	all := s.reader.Read(ctx)
	dead, err := s.store.Tombstones(ctx)
	if err != nil {
		s.logger.Warn("tombstones unavailable, deleted records may reappear", zap.Error(err))
		return all
	}
	if len(dead) == 0 {
		return all
	}
	live := all[:0]
	for _, r := range all {
		if _, gone := dead[r.ID]; !gone {
			live = append(live, r)
		}
	}
	return live
}

// Get returns one registration from the reconciled view.
func (s *Service) Get(ctx context.Context, id string) (*models.Registration, error) {
	for _, r := range s.view(ctx) {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

// UpdatePaymentStatus changes the status of exactly one registration. A record
// known only to a secondary store is first copied into the primary store.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.Registration, error) {
	if !status.Valid() {
		return nil, invalid(CodeInvalidSelection, "paymentStatus", "unknown payment status "+string(status))
	}
	reg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.store.UpdatePaymentStatus(ctx, id, status)
	if errors.Is(err, ErrNotFound) {
		promoted := *reg
		promoted.PaymentStatus = status
		if err = s.store.Append(ctx, &promoted); err == nil {
			err = s.store.UpdatePaymentStatus(ctx, id, status)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	if s.mirror != nil {
		if err := s.mirror.UpdatePaymentStatus(ctx, id, status); err != nil {
			s.logger.Warn("mirror status update failed", zap.String("registration_id", id), zap.Error(err))
		}
	}
	previous := reg.PaymentStatus
	reg.PaymentStatus = status
	s.publish(ctx, EventPaymentStatusChanged, fields{"id": id, "from": previous, "to": status})
	s.logger.Info("payment status changed", zap.String("registration_id", id),
		zap.String("from", string(previous)), zap.String("to", string(status)))
	return reg, nil
}

// Remove deletes exactly one registration.
func (s *Service) Remove(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove registration: %w", err)
	}
	if s.mirror != nil {
		if err := s.mirror.Remove(ctx, id); err != nil {
			s.logger.Warn("mirror remove failed", zap.String("registration_id", id), zap.Error(err))
		}
	}
	s.publish(ctx, EventRegistrationDeleted, fields{"id": id})
	s.logger.Info("registration deleted", zap.String("registration_id", id))
	return nil
}

// RemoveAll deletes every registration in the reconciled view and returns how many there were.
func (s *Service) RemoveAll(ctx context.Context) (int, error) {
	all := s.view(ctx)
	ids := make([]string, len(all))
	for i, r := range all {
		ids[i] = r.ID
	}
	if _, err := s.store.RemoveAll(ctx, ids); err != nil {
		return 0, fmt.Errorf("remove all registrations: %w", err)
	}
	if s.mirror != nil {
		if err := s.mirror.Clear(ctx); err != nil {
			s.logger.Warn("mirror clear failed", zap.Error(err))
		}
	}
	s.publish(ctx, EventRegistrationsCleared, fields{"count": len(ids)})
	s.logger.Warn("all registrations cleared", zap.Int("count", len(ids)))
	return len(ids), nil
}

// ImportResult reports what an import did.
type ImportResult struct {
	Received   int `json:"received"`
	Duplicates int `json:"duplicates"`
	Imported   int `json:"imported"`
	Existing   int `json:"existing"`
}

// Import stores previously exported registrations. Every record is checked
// before anything is written; repeated ids in the payload keep the first copy.
func (s *Service) Import(ctx context.Context, regs []models.Registration) (ImportResult, error) {
	res := ImportResult{Received: len(regs)}
	for i := range regs {
		if err := CheckImported(&regs[i]); err != nil {
			s.rejected(err)
			return res, fmt.Errorf("record %d: %w", i, err)
		}
		regs[i].Timestamp = regs[i].Timestamp.UTC()
		if regs[i].Source == "" {
			regs[i].Source = models.SourceImport
		}
		regs[i].PaymentMethod = strings.TrimSpace(regs[i].PaymentMethod)
	}
	unique := reconcile.Reconcile(regs)
	res.Duplicates = len(regs) - len(unique)
	n, err := s.store.Import(ctx, unique)
	if err != nil {
		return res, fmt.Errorf("import registrations: %w", err)
	}
	res.Imported = n
	res.Existing = len(unique) - n
	s.publish(ctx, EventRegistrationsImported, res)
	s.logger.Info("registrations imported", zap.Int("received", res.Received), zap.Int("imported", res.Imported))
	return res, nil
}

// ResendConfirmation queues the attendee confirmation email again.
func (s *Service) ResendConfirmation(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.jobs == nil {
		return nil, errors.New("job queue not configured")
	}
	if err := s.jobs.EnqueueEmail(ctx, queue.EmailPayload{EmailType: models.EmailTypeConfirmation, Registration: *reg}); err != nil {
		return nil, fmt.Errorf("enqueue confirmation: %w", err)
	}
	return reg, nil
}

func (s *Service) publish(ctx context.Context, event string, data any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event, data); err != nil {
		s.logger.Warn("publish event failed", zap.String("event", event), zap.Error(err))
	}
}

func (s *Service) rejected(err error) {
	var ve *ValidationError
	if s.metrics != nil && errors.As(err, &ve) {
		s.metrics.ValidationFailed(ve.Code)
	}
}

type fields = map[string]any
