package emaillogs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectureship/backend/internal/models"
)

// DefaultLimit caps list queries when no limit is given.
const DefaultLimit = 200

// Filter narrows a log listing. Zero values match everything.
type Filter struct {
	RegistrationID string `form:"registration_id"`
	Status         string `form:"status"`
	EmailType      string `form:"email_type"`
	Limit          int    `form:"limit"`
}

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create records one delivery attempt. ID and CreatedAt are filled in when empty.
func (r *Repository) Create(ctx context.Context, el *models.EmailLog) error {
	if el.ID == uuid.Nil {
		el.ID = uuid.New()
	}
	if el.CreatedAt.IsZero() {
		el.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO email_logs (id, registration_id, email_type, recipient_email, subject, status, sent_at, error_message, provider_id, attempt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.pool.Exec(ctx, q, el.ID, el.RegistrationID, el.EmailType, el.RecipientEmail, el.Subject,
		el.Status, el.SentAt, el.ErrorMessage, el.ProviderID, el.Attempt, el.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert email log: %w", err)
	}
	return nil
}

// List returns email logs matching f, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]*models.EmailLog, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.RegistrationID != "" {
		add("registration_id = $%d", f.RegistrationID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.EmailType != "" {
		add("email_type = $%d", f.EmailType)
	}
	limit := f.Limit
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}
	q := `SELECT id, registration_id, email_type, recipient_email, subject, status, sent_at, error_message, provider_id, attempt, created_at
		FROM email_logs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.EmailLog{}
	for rows.Next() {
		var el models.EmailLog
		if err := rows.Scan(&el.ID, &el.RegistrationID, &el.EmailType, &el.RecipientEmail, &el.Subject, &el.Status,
			&el.SentAt, &el.ErrorMessage, &el.ProviderID, &el.Attempt, &el.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}
