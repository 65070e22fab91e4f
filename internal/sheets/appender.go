// Package sheets appends registrations to a Google spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/lectureship/backend/internal/export"
	"github.com/lectureship/backend/internal/models"
)

// DefaultRange is the sheet range rows are appended to.
const DefaultRange = "Registrations!A1"

// InputRaw stores cell values as given. Attendee text starting with "=" stays
// text and ZIP codes keep their leading zeros.
const InputRaw = "RAW"

// Config selects the spreadsheet and credentials.
type Config struct {
	SpreadsheetID   string
	Range           string
	CredentialsFile string
}

// Values is the slice of the Sheets values API the appender uses.
type Values interface {
	Append(ctx context.Context, spreadsheetID, rng, inputOption string, rows [][]any) error
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	Update(ctx context.Context, spreadsheetID, rng, inputOption string, rows [][]any) error
}

// Appender writes one row per registration.
type Appender struct {
	values Values
	cfg    Config
	logger *zap.Logger
}

// New connects to the Sheets API with a service account credentials file.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Appender, error) {
	svc, err := gsheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile), option.WithScopes(gsheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithValues(apiValues{svc: svc}, cfg, logger), nil
}

// NewWithValues builds an appender over any Values implementation.
func NewWithValues(values Values, cfg Config, logger *zap.Logger) *Appender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Range == "" {
		cfg.Range = DefaultRange
	}
	return &Appender{values: values, cfg: cfg, logger: logger}
}

// EnsureHeader writes the column header to the first row when it is empty.
func (a *Appender) EnsureHeader(ctx context.Context) error {
	rows, err := a.values.Get(ctx, a.cfg.SpreadsheetID, a.headerRange())
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		return nil
	}
	if err := a.values.Update(ctx, a.cfg.SpreadsheetID, a.headerRange(), InputRaw, [][]any{toCells(export.Columns)}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	a.logger.Info("spreadsheet header written", zap.String("spreadsheet_id", a.cfg.SpreadsheetID))
	return nil
}

// Append adds reg as one row.
func (a *Appender) Append(ctx context.Context, reg *models.Registration) error {
	if err := a.values.Append(ctx, a.cfg.SpreadsheetID, a.cfg.Range, InputRaw, [][]any{toCells(export.Row(reg))}); err != nil {
		return fmt.Errorf("append row %s: %w", reg.ID, err)
	}
	return nil
}

func (a *Appender) headerRange() string {
	if sheet, _, ok := strings.Cut(a.cfg.Range, "!"); ok {
		return sheet + "!1:1"
	}
	return "1:1"
}

func toCells(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

type apiValues struct {
	svc *gsheets.Service
}

func (v apiValues) Append(ctx context.Context, id, rng, inputOption string, rows [][]any) error {
	_, err := v.svc.Spreadsheets.Values.Append(id, rng, &gsheets.ValueRange{Values: rows}).
		ValueInputOption(inputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (v apiValues) Get(ctx context.Context, id, rng string) ([][]any, error) {
	resp, err := v.svc.Spreadsheets.Values.Get(id, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (v apiValues) Update(ctx context.Context, id, rng, inputOption string, rows [][]any) error {
	_, err := v.svc.Spreadsheets.Values.Update(id, rng, &gsheets.ValueRange{Values: rows}).
		ValueInputOption(inputOption).
		Context(ctx).
		Do()
	return err
}
