package models

import (
	"strings"
	"time"
)

// RegistrationType is the base attendance tier. The empty value means add-ons only.
type RegistrationType string

const (
	RegistrationNone              RegistrationType = ""
	RegistrationIndividualEarly   RegistrationType = "individual-early"
	RegistrationIndividualRegular RegistrationType = "individual-regular"
	RegistrationGeorgiaEarly      RegistrationType = "georgia-early"
	RegistrationGeorgiaRegular    RegistrationType = "georgia-regular"
	RegistrationGroup5Early       RegistrationType = "group-5-early"
	RegistrationGroup5Regular     RegistrationType = "group-5-regular"
	RegistrationGroup10Early      RegistrationType = "group-10-early"
	RegistrationGroup10Regular    RegistrationType = "group-10-regular"
	RegistrationDayToDay          RegistrationType = "day-to-day"
)

// RegistrationTypes lists the selectable types in display order.
var RegistrationTypes = []RegistrationType{
	RegistrationIndividualEarly,
	RegistrationIndividualRegular,
	RegistrationGeorgiaEarly,
	RegistrationGeorgiaRegular,
	RegistrationGroup5Early,
	RegistrationGroup5Regular,
	RegistrationGroup10Early,
	RegistrationGroup10Regular,
	RegistrationDayToDay,
}

// IsGroup reports whether t is a fixed-price group tier.
func (t RegistrationType) IsGroup() bool {
	return strings.Contains(string(t), "group-")
}

// IsDayBased reports whether t is priced per selected day.
func (t RegistrationType) IsDayBased() bool {
	return t == RegistrationDayToDay
}

// IsPerPerson reports whether t is priced per attendee (individual and regional tiers).
func (t RegistrationType) IsPerPerson() bool {
	return t != RegistrationNone && !t.IsGroup() && !t.IsDayBased()
}

// Valid reports whether t is empty or a known type.
func (t RegistrationType) Valid() bool {
	if t == RegistrationNone {
		return true
	}
	for _, k := range RegistrationTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Conference days available for day-to-day registration.
const (
	DaySunday    = "sunday-march-9"
	DayMonday    = "monday-march-10"
	DayTuesday   = "tuesday-march-11"
	DayWednesday = "wednesday-march-12"
	DayThursday  = "thursday-march-13"
)

// ConferenceDays lists the day identifiers in calendar order.
var ConferenceDays = []string{DaySunday, DayMonday, DayTuesday, DayWednesday, DayThursday}

// Special events.
const (
	EventMemorialBanquet = "memorial-banquet"
)

// SpecialEvents lists the known special event identifiers.
var SpecialEvents = []string{EventMemorialBanquet}

// Advertisement tiers for the conference program book.
const (
	AdFullPageColor = "full-page-color"
	AdHalfPageColor = "half-page-color"
	AdFullPageBW    = "full-page-bw"
	AdHalfPageBW    = "half-page-bw"
	AdQuarterPageBW = "quarter-page-bw"
)

// AdvertisementTiers lists the advertisement tiers in display order.
var AdvertisementTiers = []string{AdFullPageColor, AdHalfPageColor, AdFullPageBW, AdHalfPageBW, AdQuarterPageBW}

// MaxVendorTables is the largest number of vendor tables one registration may buy.
const MaxVendorTables = 3

// PaymentStatus of a registration. Only admins change it.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusPartial  PaymentStatus = "partial"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentStatuses lists every payment status.
var PaymentStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusPaid, PaymentStatusPartial, PaymentStatusRefunded}

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	for _, k := range PaymentStatuses {
		if k == s {
			return true
		}
	}
	return false
}

// Payment methods an attendee may indicate. The field is optional.
const (
	PaymentMethodSquare = "square"
	PaymentMethodCheck  = "check"
	PaymentMethodCash   = "cash"
	PaymentMethodOther  = "other"
)

// PaymentMethods lists the known payment methods.
var PaymentMethods = []string{PaymentMethodSquare, PaymentMethodCheck, PaymentMethodCash, PaymentMethodOther}

// Where a registration entered the system.
const (
	SourceWeb    = "web"
	SourceAdmin  = "admin"
	SourceImport = "import"
)

// Registration is a priced conference registration. JSON names follow the
// records exported by the legacy browser form so backups import unchanged.
type Registration struct {
	ID               string           `json:"id"`
	Timestamp        time.Time        `json:"timestamp"`
	FirstName        string           `json:"firstName"`
	LastName         string           `json:"lastName"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone"`
	Address          string           `json:"address"`
	City             string           `json:"city"`
	State            string           `json:"state"`
	ZipCode          string           `json:"zipCode"`
	RegistrationType RegistrationType `json:"registrationType"`
	Quantity         int              `json:"quantity"`
	AttendeeNames    string           `json:"attendeeNames"`
	AttendeeContacts string           `json:"attendeeContacts"`
	SpecialEvents    []string         `json:"specialEvents"`
	VendorTables     int              `json:"vendorTables"`
	Advertisements   []string         `json:"advertisements"`
	DayToDayDates    []string         `json:"dayToDayDates"`
	AdditionalNotes  string           `json:"additionalNotes"`
	PaymentMethod    string           `json:"paymentMethod,omitempty"`
	TotalAmount      int              `json:"totalAmount"`
	PaymentStatus    PaymentStatus    `json:"paymentStatus"`
	Source           string           `json:"source,omitempty"`
}

// FullName returns "First Last".
func (r *Registration) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// MailingAddress returns the postal address on one line.
func (r *Registration) MailingAddress() string {
	return strings.TrimSpace(r.Address + ", " + r.City + ", " + r.State + " " + r.ZipCode)
}
