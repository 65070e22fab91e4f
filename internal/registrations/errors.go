package registrations

import (
	"errors"
	"fmt"
)

// Validation error codes reported by the builder.
const (
	CodeInvalidSelection        = "invalid-selection"
	CodeNoPurchasableSelection  = "no-purchasable-selection"
	CodeMissingDaySelection     = "missing-day-selection"
	CodeMissingAttendeeNames    = "missing-attendee-names"
	CodeMissingAttendeeContacts = "missing-attendee-contacts"
	CodeMissingContactField     = "missing-contact-field"
)

// ErrNotFound is returned when a registration id is unknown.
var ErrNotFound = errors.New("registration not found")

// ValidationError names the first validation rule a submission broke.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsValidation reports whether err is a *ValidationError with the given code.
// An empty code matches any validation error.
func IsValidation(err error, code string) bool {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	return code == "" || ve.Code == code
}

func invalid(code, field, msg string) error {
	return &ValidationError{Code: code, Field: field, Message: msg}
}
