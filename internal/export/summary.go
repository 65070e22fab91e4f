package export

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/internal/pricing"
)

// Summary aggregates a registration collection. It is derived only from the
// records, so the same collection always yields the same Summary.
type Summary struct {
	TotalRegistrations   int            `json:"totalRegistrations"`
	TotalAttendees       int            `json:"totalAttendees"`
	TotalBilled          int            `json:"totalBilled"`
	PaidRevenue          int            `json:"paidRevenue"`
	PendingRevenue       int            `json:"pendingRevenue"`
	ByStatus             map[string]int `json:"byStatus"`
	ByType               map[string]int `json:"byType"`
	AddOnOnly            int            `json:"addOnOnly"`
	SpecialEvents        map[string]int `json:"specialEvents"`
	VendorRegistrations  int            `json:"vendorRegistrations"`
	VendorTables         int            `json:"vendorTables"`
	VendorRevenue        int            `json:"vendorRevenue"`
	Advertisements       map[string]int `json:"advertisements"`
	AdvertisementCount   int            `json:"advertisementCount"`
	AdvertisementRevenue int            `json:"advertisementRevenue"`
}

// Summarize computes the aggregate counts and revenue of regs.
func Summarize(regs []models.Registration) Summary {
	s := Summary{
		TotalRegistrations: len(regs),
		ByStatus:           make(map[string]int, len(models.PaymentStatuses)),
		ByType:             make(map[string]int),
		SpecialEvents:      make(map[string]int),
		Advertisements:     make(map[string]int),
	}
	for _, st := range models.PaymentStatuses {
		s.ByStatus[string(st)] = 0
	}
	for i := range regs {
		r := &regs[i]
		s.TotalBilled += r.TotalAmount
		s.ByStatus[string(r.PaymentStatus)]++
		switch r.PaymentStatus {
		case models.PaymentStatusPaid:
			s.PaidRevenue += r.TotalAmount
		case models.PaymentStatusPending:
			s.PendingRevenue += r.TotalAmount
		}
		if r.RegistrationType == models.RegistrationNone {
			s.AddOnOnly++
		} else {
			s.ByType[string(r.RegistrationType)]++
			s.TotalAttendees += Attendees(r)
		}
		for _, ev := range r.SpecialEvents {
			s.SpecialEvents[ev]++
		}
		if r.VendorTables > 0 {
			s.VendorRegistrations++
			s.VendorTables += r.VendorTables
			s.VendorRevenue += pricing.VendorTablePrice(r.VendorTables)
		}
		for _, ad := range r.Advertisements {
			s.Advertisements[ad]++
			s.AdvertisementCount++
		}
		s.AdvertisementRevenue += pricing.AdvertisementPrice(r.Advertisements)
	}
	return s
}

// Attendees returns how many people a registration admits. Group tiers admit
// their group size whatever quantity was entered.
func Attendees(r *models.Registration) int {
	switch r.RegistrationType {
	case models.RegistrationNone:
		return 0
	case models.RegistrationGroup5Early, models.RegistrationGroup5Regular:
		return 5
	case models.RegistrationGroup10Early, models.RegistrationGroup10Regular:
		return 10
	case models.RegistrationDayToDay:
		return 1
	}
	if r.Quantity < 1 {
		return 1
	}
	return r.Quantity
}

// WriteSummary renders s as plain text under title. Keyed sections are sorted
// so output depends only on s and generatedAt.
func WriteSummary(w io.Writer, title string, generatedAt time.Time, s Summary) error {
	bw := bufio.NewWriter(w)
	line := func(format string, args ...any) {
		fmt.Fprintf(bw, format+"\n", args...)
	}

	line("%s", title)
	line("Generated: %s", generatedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	line("")
	line("OVERVIEW")
	line("Total Registrations: %d", s.TotalRegistrations)
	line("Total Attendees: %d", s.TotalAttendees)
	line("Total Billed: $%d", s.TotalBilled)
	line("Paid Revenue: $%d", s.PaidRevenue)
	line("Pending Revenue: $%d", s.PendingRevenue)
	line("")
	line("PAYMENT STATUS")
	for _, k := range sortedKeys(s.ByStatus) {
		line("%s: %d", k, s.ByStatus[k])
	}
	line("")
	line("REGISTRATION TYPES")
	for _, k := range sortedKeys(s.ByType) {
		line("%s: %d", k, s.ByType[k])
	}
	line("Add-ons only: %d", s.AddOnOnly)
	line("")
	line("SPECIAL EVENTS")
	for _, k := range sortedKeys(s.SpecialEvents) {
		line("%s: %d", k, s.SpecialEvents[k])
	}
	line("")
	line("VENDORS & ADVERTISEMENTS")
	line("Vendor Registrations: %d", s.VendorRegistrations)
	line("Vendor Tables: %d", s.VendorTables)
	line("Vendor Revenue: $%d", s.VendorRevenue)
	line("Advertisements: %d", s.AdvertisementCount)
	for _, k := range sortedKeys(s.Advertisements) {
		line("  %s: %d", k, s.Advertisements[k])
	}
	line("Advertisement Revenue: $%d", s.AdvertisementRevenue)
	return bw.Flush()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
