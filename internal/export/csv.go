// Package export renders registration collections as CSV and as a plain-text
// summary report.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lectureship/backend/internal/models"
)

// ErrNothingToExport is returned when an export is requested for an empty collection.
var ErrNothingToExport = errors.New("no registrations to export")

// SetSeparator joins multi-valued fields inside one cell.
const SetSeparator = ", "

// TimestampLayout is the registration date format used in exported rows.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Columns is the header row of the CSV export and the spreadsheet sink.
var Columns = []string{
	"ID",
	"Registration Date",
	"First Name",
	"Last Name",
	"Email",
	"Phone",
	"Address",
	"City",
	"State",
	"ZIP Code",
	"Registration Type",
	"Quantity",
	"Attendee Names",
	"Attendee Contacts",
	"Special Events",
	"Vendor Tables",
	"Advertisements",
	"Day-to-Day Dates",
	"Additional Notes",
	"Total Amount",
	"Payment Status",
}

// Row flattens one registration into cells matching Columns.
func Row(r *models.Registration) []string {
	return []string{
		r.ID,
		r.Timestamp.UTC().Format(TimestampLayout),
		r.FirstName,
		r.LastName,
		r.Email,
		r.Phone,
		r.Address,
		r.City,
		r.State,
		r.ZipCode,
		string(r.RegistrationType),
		strconv.Itoa(r.Quantity),
		r.AttendeeNames,
		r.AttendeeContacts,
		strings.Join(r.SpecialEvents, SetSeparator),
		strconv.Itoa(r.VendorTables),
		strings.Join(r.Advertisements, SetSeparator),
		strings.Join(r.DayToDayDates, SetSeparator),
		r.AdditionalNotes,
		strconv.Itoa(r.TotalAmount),
		string(r.PaymentStatus),
	}
}

// WriteCSV writes a header row and one row per registration, in the order given.
// Quoting follows RFC 4180 so any standard parser reads the cells back unchanged.
func WriteCSV(w io.Writer, regs []models.Registration) error {
	if len(regs) == 0 {
		return ErrNothingToExport
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range regs {
		if err := cw.Write(Row(&regs[i])); err != nil {
			return fmt.Errorf("write row %s: %w", regs[i].ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
