package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lectureship/backend/internal/models"
)

// LogStore records delivery attempts (satisfied by emaillogs.Repository).
type LogStore interface {
	Create(ctx context.Context, el *models.EmailLog) error
}

// Outcomes counts delivery results (satisfied by metrics.Metrics).
type Outcomes interface {
	EmailSent(emailType, status string)
}

// Sender renders, sends and records registration emails.
type Sender struct {
	renderer *Renderer
	mailer   Mailer
	logs     LogStore
	outcomes Outcomes
	logger   *zap.Logger
	now      func() time.Time
}

// NewSender creates a sender. logs and outcomes may be nil.
func NewSender(renderer *Renderer, mailer Mailer, logs LogStore, outcomes Outcomes, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{renderer: renderer, mailer: mailer, logs: logs, outcomes: outcomes, logger: logger, now: time.Now}
}

// Deliver sends one email of emailType for reg. attempt is recorded with the
// log row. A send failure is returned so the caller can retry.
func (s *Sender) Deliver(ctx context.Context, emailType string, reg *models.Registration, attempt int) error {
	msg, err := s.renderer.Render(emailType, reg)
	if err != nil {
		return err
	}
	if len(msg.To) == 0 || strings.TrimSpace(msg.To[0]) == "" {
		s.logger.Warn("email skipped, no recipient", zap.String("registration_id", reg.ID), zap.String("email_type", emailType))
		return nil
	}

	el := &models.EmailLog{
		RegistrationID: reg.ID,
		EmailType:      emailType,
		RecipientEmail: strings.Join(msg.To, ", "),
		Subject:        msg.Subject,
		Attempt:        attempt,
	}
	id, sendErr := s.mailer.Send(ctx, msg)
	if sendErr != nil {
		el.Status = models.EmailLogStatusFailed
		el.ErrorMessage = sendErr.Error()
	} else {
		sentAt := s.now().UTC()
		el.Status = models.EmailLogStatusSent
		el.SentAt = &sentAt
		el.ProviderID = id
	}
	if s.outcomes != nil {
		s.outcomes.EmailSent(emailType, el.Status)
	}
	if s.logs != nil {
		if err := s.logs.Create(ctx, el); err != nil {
			s.logger.Warn("email log write failed", zap.String("registration_id", reg.ID), zap.Error(err))
		}
	}
	if sendErr != nil {
		return fmt.Errorf("send %s: %w", emailType, sendErr)
	}
	s.logger.Info("email sent", zap.String("registration_id", reg.ID), zap.String("email_type", emailType), zap.String("provider_id", id))
	return nil
}
