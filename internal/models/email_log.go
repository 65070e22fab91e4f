package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailType for registration mail.
const (
	EmailTypeConfirmation = "registration_confirmation"
	EmailTypeNotification = "organizer_notification"
)

// EmailLogStatus for delivery.
const (
	EmailLogStatusSent   = "sent"
	EmailLogStatusFailed = "failed"
)

// EmailLog records a registration email delivery attempt.
type EmailLog struct {
	ID             uuid.UUID  `json:"id"`
	RegistrationID string     `json:"registration_id"`
	EmailType      string     `json:"email_type"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	ProviderID     string     `json:"provider_id,omitempty"`
	Attempt        int        `json:"attempt"`
	CreatedAt      time.Time  `json:"created_at"`
}
