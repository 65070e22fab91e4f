package registrations

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/internal/pricing"
)

// Input is the raw registration form as submitted by an attendee or an admin.
type Input struct {
	FirstName        string   `json:"firstName"`
	LastName         string   `json:"lastName"`
	Email            string   `json:"email"`
	Phone            string   `json:"phone"`
	Address          string   `json:"address"`
	City             string   `json:"city"`
	State            string   `json:"state"`
	ZipCode          string   `json:"zipCode"`
	RegistrationType string   `json:"registrationType"`
	Quantity         int      `json:"quantity"`
	AttendeeNames    string   `json:"attendeeNames"`
	AttendeeContacts string   `json:"attendeeContacts"`
	SpecialEvents    []string `json:"specialEvents"`
	VendorTables     int      `json:"vendorTables"`
	Advertisements   []string `json:"advertisements"`
	DayToDayDates    []string `json:"dayToDayDates"`
	AdditionalNotes  string   `json:"additionalNotes"`
	PaymentMethod    string   `json:"paymentMethod"`
}

// Selection returns the priced part of the input, normalized the same way Build does.
func (in Input) Selection() pricing.Selection {
	sel, _ := normalizeSelection(in)
	return sel
}

// Builder validates form input and produces priced registrations.
type Builder struct {
	Now   func() time.Time
	NewID func() string
}

// NewBuilder returns a builder using the wall clock and random ids.
func NewBuilder() *Builder {
	return &Builder{
		Now:   time.Now,
		NewID: func() string { return "reg_" + uuid.NewString() },
	}
}

// Build validates in and returns a new pending registration. The first broken
// rule is returned as a *ValidationError.
func (b *Builder) Build(in Input, source string) (*models.Registration, error) {
	sel, err := normalizeSelection(in)
	if err != nil {
		return nil, err
	}

	if !pricing.HasPurchasableSelection(sel) {
		return nil, invalid(CodeNoPurchasableSelection, "",
			"select at least one option: registration type, vendor tables, advertisements, or special events")
	}
	if sel.RegistrationType.IsDayBased() && len(sel.DayToDayDates) == 0 {
		return nil, invalid(CodeMissingDaySelection, "dayToDayDates",
			"select at least one day to attend for day-to-day registration")
	}
	multi := multipleAttendees(sel)
	names := strings.TrimSpace(in.AttendeeNames)
	contacts := strings.TrimSpace(in.AttendeeContacts)
	if multi && names == "" {
		return nil, invalid(CodeMissingAttendeeNames, "attendeeNames", "list all attendee names")
	}
	if multi && contacts == "" {
		return nil, invalid(CodeMissingAttendeeContacts, "attendeeContacts", "provide contact information for all attendees")
	}

	contact := map[string]string{
		"firstName": strings.TrimSpace(in.FirstName),
		"lastName":  strings.TrimSpace(in.LastName),
		"email":     strings.TrimSpace(in.Email),
		"phone":     strings.TrimSpace(in.Phone),
	}
	for _, field := range []string{"firstName", "lastName", "email", "phone"} {
		if contact[field] == "" {
			return nil, invalid(CodeMissingContactField, field, field+" is required")
		}
	}

	quote := pricing.Quote(sel)
	now := b.Now().UTC().Truncate(time.Millisecond)
	return &models.Registration{
		ID:               b.NewID(),
		Timestamp:        now,
		FirstName:        contact["firstName"],
		LastName:         contact["lastName"],
		Email:            contact["email"],
		Phone:            contact["phone"],
		Address:          strings.TrimSpace(in.Address),
		City:             strings.TrimSpace(in.City),
		State:            strings.TrimSpace(in.State),
		ZipCode:          strings.TrimSpace(in.ZipCode),
		RegistrationType: sel.RegistrationType,
		Quantity:         sel.Quantity,
		AttendeeNames:    names,
		AttendeeContacts: contacts,
		SpecialEvents:    sel.SpecialEvents,
		VendorTables:     sel.VendorTables,
		Advertisements:   sel.Advertisements,
		DayToDayDates:    sel.DayToDayDates,
		AdditionalNotes:  strings.TrimSpace(in.AdditionalNotes),
		PaymentMethod:    strings.TrimSpace(in.PaymentMethod),
		TotalAmount:      quote.Total,
		PaymentStatus:    models.PaymentStatusPending,
		Source:           source,
	}, nil
}

// CheckImported verifies a previously exported record before it is re-imported.
// Prices are kept as recorded; only identity and enumerations are checked.
func CheckImported(r *models.Registration) error {
	if strings.TrimSpace(r.ID) == "" {
		return invalid(CodeInvalidSelection, "id", "id is required")
	}
	if r.Timestamp.IsZero() {
		return invalid(CodeInvalidSelection, "timestamp", "timestamp is required")
	}
	if r.PaymentStatus == "" {
		r.PaymentStatus = models.PaymentStatusPending
	}
	if !r.PaymentStatus.Valid() {
		return invalid(CodeInvalidSelection, "paymentStatus", "unknown payment status "+string(r.PaymentStatus))
	}
	if !r.RegistrationType.Valid() {
		return invalid(CodeInvalidSelection, "registrationType", "unknown registration type "+string(r.RegistrationType))
	}
	if r.TotalAmount < 0 {
		return invalid(CodeInvalidSelection, "totalAmount", "total amount is negative")
	}
	if r.Quantity < 1 {
		r.Quantity = 1
	}
	return nil
}

func multipleAttendees(sel pricing.Selection) bool {
	return sel.RegistrationType.IsGroup() || (sel.RegistrationType.IsPerPerson() && sel.Quantity > 1)
}

func normalizeSelection(in Input) (pricing.Selection, error) {
	sel := pricing.Selection{
		RegistrationType: models.RegistrationType(strings.TrimSpace(in.RegistrationType)),
		Quantity:         in.Quantity,
		VendorTables:     in.VendorTables,
	}
	if !sel.RegistrationType.Valid() {
		return sel, invalid(CodeInvalidSelection, "registrationType", "unknown registration type "+string(sel.RegistrationType))
	}
	if sel.Quantity < 1 {
		sel.Quantity = 1
	}
	if sel.VendorTables < 0 || sel.VendorTables > models.MaxVendorTables {
		return sel, invalid(CodeInvalidSelection, "vendorTables", "vendor tables must be between 0 and 3")
	}
	if pm := strings.TrimSpace(in.PaymentMethod); pm != "" && !contains(models.PaymentMethods, pm) {
		return sel, invalid(CodeInvalidSelection, "paymentMethod", "unknown payment method "+pm)
	}

	var err error
	if sel.SpecialEvents, err = normalizeSet("specialEvents", in.SpecialEvents, models.SpecialEvents); err != nil {
		return sel, err
	}
	if sel.Advertisements, err = normalizeSet("advertisements", in.Advertisements, models.AdvertisementTiers); err != nil {
		return sel, err
	}
	// Days only mean something for day-to-day registration.
	if sel.RegistrationType.IsDayBased() {
		if sel.DayToDayDates, err = normalizeSet("dayToDayDates", in.DayToDayDates, models.ConferenceDays); err != nil {
			return sel, err
		}
	} else {
		sel.DayToDayDates = []string{}
	}
	return sel, nil
}

// normalizeSet drops duplicates and orders values as in allowed.
func normalizeSet(field string, values, allowed []string) ([]string, error) {
	present := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if !contains(allowed, v) {
			return nil, invalid(CodeInvalidSelection, field, "unknown value "+v)
		}
		present[v] = true
	}
	out := make([]string, 0, len(present))
	for _, v := range allowed {
		if present[v] {
			out = append(out, v)
		}
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
