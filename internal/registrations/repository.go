package registrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/internal/reconcile"
)

// Store is the registration repository used by the service and handlers.
type Store interface {
	List(ctx context.Context) ([]models.Registration, error)
	Get(ctx context.Context, id string) (*models.Registration, error)
	Append(ctx context.Context, reg *models.Registration) error
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error
	Remove(ctx context.Context, id string) error
	RemoveAll(ctx context.Context, ids []string) (int64, error)
	Import(ctx context.Context, regs []models.Registration) (int, error)
	Tombstones(ctx context.Context) (map[string]struct{}, error)
}

// Repository is the Postgres registration store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const registrationColumns = `id, registered_at, first_name, last_name, email, phone, address, city, state, zip_code,
	registration_type, quantity, attendee_names, attendee_contacts, special_events, vendor_tables,
	advertisements, day_to_day_dates, additional_notes, payment_method, total_amount, payment_status, source`

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	var regType, status string
	err := row.Scan(&reg.ID, &reg.Timestamp, &reg.FirstName, &reg.LastName, &reg.Email, &reg.Phone,
		&reg.Address, &reg.City, &reg.State, &reg.ZipCode, &regType, &reg.Quantity,
		&reg.AttendeeNames, &reg.AttendeeContacts, &reg.SpecialEvents, &reg.VendorTables,
		&reg.Advertisements, &reg.DayToDayDates, &reg.AdditionalNotes, &reg.PaymentMethod,
		&reg.TotalAmount, &status, &reg.Source)
	if err != nil {
		return nil, err
	}
	reg.RegistrationType = models.RegistrationType(regType)
	reg.PaymentStatus = models.PaymentStatus(status)
	reg.Timestamp = reg.Timestamp.UTC()
	return &reg, nil
}

// List returns all registrations, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Registration, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+registrationColumns+` FROM registrations ORDER BY registered_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *reg)
	}
	return list, rows.Err()
}

// Get returns a registration by id.
func (r *Repository) Get(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := scanRegistration(r.pool.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return reg, err
}

const insertRegistration = `INSERT INTO registrations (` + registrationColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	ON CONFLICT (id) DO NOTHING`

func insertArgs(reg *models.Registration) []any {
	return []any{reg.ID, reg.Timestamp, reg.FirstName, reg.LastName, reg.Email, reg.Phone,
		reg.Address, reg.City, reg.State, reg.ZipCode, string(reg.RegistrationType), reg.Quantity,
		reg.AttendeeNames, reg.AttendeeContacts, nonNil(reg.SpecialEvents), reg.VendorTables,
		nonNil(reg.Advertisements), nonNil(reg.DayToDayDates), reg.AdditionalNotes, reg.PaymentMethod,
		reg.TotalAmount, string(reg.PaymentStatus), reg.Source}
}

// Append inserts a registration. Existing ids are left untouched.
func (r *Repository) Append(ctx context.Context, reg *models.Registration) error {
	_, err := r.pool.Exec(ctx, insertRegistration, insertArgs(reg)...)
	return err
}

// UpdatePaymentStatus changes only the payment status of one registration.
func (r *Repository) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE registrations SET payment_status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes one registration and records a tombstone so copies held by
// the mirror stores are hidden from the reconciled view.
func (r *Repository) Remove(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM registrations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO registration_tombstones (id) VALUES ($1)
		ON CONFLICT (id) DO UPDATE SET deleted_at = NOW()`, id); err != nil {
		return fmt.Errorf("tombstone: %w", err)
	}
	return tx.Commit(ctx)
}

// RemoveAll deletes every registration, tombstones ids (the reconciled view at
// the time of the call) and returns how many rows were removed from the table.
func (r *Repository) RemoveAll(ctx context.Context, ids []string) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM registrations`)
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}
	if len(ids) > 0 {
		if _, err := tx.Exec(ctx, `INSERT INTO registration_tombstones (id)
			SELECT unnest($1::text[]) ON CONFLICT (id) DO UPDATE SET deleted_at = NOW()`, ids); err != nil {
			return 0, fmt.Errorf("tombstone: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Import inserts registrations in one transaction, skipping ids that already
// exist. Imported ids are cleared from the tombstones.
func (r *Repository) Import(ctx context.Context, regs []models.Registration) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	ids := make([]string, len(regs))
	batch := &pgx.Batch{}
	for i := range regs {
		ids[i] = regs[i].ID
		batch.Queue(insertRegistration, insertArgs(&regs[i])...)
	}
	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for range regs {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("insert: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM registration_tombstones WHERE id = ANY($1)`, ids); err != nil {
		return 0, fmt.Errorf("clear tombstones: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// Tombstones returns the ids of deleted registrations.
func (r *Repository) Tombstones(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM registration_tombstones`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// Name identifies the primary store to the reconciler.
func (r *Repository) Name() string { return "postgres" }

// Collections exposes the table as a single reconciler collection.
func (r *Repository) Collections(ctx context.Context) ([]reconcile.Collection, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return []reconcile.Collection{{Name: "registrations", Records: list}}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
