// Package pricing turns a set of registration selections into a price breakdown.
// All amounts are whole dollars.
package pricing

import (
	"github.com/lectureship/backend/internal/models"
)

// DayToDayRate is charged per selected day for day-to-day registration.
const DayToDayRate = 75

var registrationPrices = map[models.RegistrationType]int{
	models.RegistrationIndividualEarly:   190,
	models.RegistrationIndividualRegular: 210,
	models.RegistrationGeorgiaEarly:      175,
	models.RegistrationGeorgiaRegular:    195,
	models.RegistrationGroup5Early:       925,
	models.RegistrationGroup5Regular:     975,
	models.RegistrationGroup10Early:      1800,
	models.RegistrationGroup10Regular:    1925,
	models.RegistrationDayToDay:          DayToDayRate,
}

// Vendor tables are sold in flat tiers, not per table.
var vendorTablePrices = map[int]int{
	1: 250,
	2: 350,
	3: 450,
}

var advertisementPrices = map[string]int{
	models.AdFullPageColor: 225,
	models.AdHalfPageColor: 175,
	models.AdFullPageBW:    180,
	models.AdHalfPageBW:    125,
	models.AdQuarterPageBW: 80,
}

// Only the banquet is charged; the women's luncheon was dropped from the program.
var specialEventPrices = map[string]int{
	models.EventMemorialBanquet: 75,
}

// Selection is the priced subset of a registration.
type Selection struct {
	RegistrationType models.RegistrationType
	Quantity         int
	DayToDayDates    []string
	VendorTables     int
	Advertisements   []string
	SpecialEvents    []string
}

// SelectionOf extracts the priced fields of a registration.
func SelectionOf(r *models.Registration) Selection {
	return Selection{
		RegistrationType: r.RegistrationType,
		Quantity:         r.Quantity,
		DayToDayDates:    r.DayToDayDates,
		VendorTables:     r.VendorTables,
		Advertisements:   r.Advertisements,
		SpecialEvents:    r.SpecialEvents,
	}
}

// Breakdown is the itemized price of a selection.
type Breakdown struct {
	RegistrationPrice  int  `json:"registrationPrice"`
	VendorPrice        int  `json:"vendorPrice"`
	AdvertisementPrice int  `json:"advertisementPrice"`
	SpecialEventsPrice int  `json:"specialEventsPrice"`
	Total              int  `json:"total"`
	HasSelection       bool `json:"hasSelection"`
}

// Chargeable reports whether anything in the selection costs money.
func (b Breakdown) Chargeable() bool {
	return b.Total > 0
}

// Quote prices a selection. It is pure and never returns a negative amount.
func Quote(sel Selection) Breakdown {
	b := Breakdown{
		RegistrationPrice:  RegistrationPrice(sel.RegistrationType, sel.Quantity, sel.DayToDayDates),
		VendorPrice:        VendorTablePrice(sel.VendorTables),
		AdvertisementPrice: AdvertisementPrice(sel.Advertisements),
		SpecialEventsPrice: SpecialEventsPrice(sel.SpecialEvents),
		HasSelection:       HasPurchasableSelection(sel),
	}
	b.Total = b.RegistrationPrice + b.VendorPrice + b.AdvertisementPrice + b.SpecialEventsPrice
	return b
}

// RegistrationPrice returns the base registration price. Day-to-day is charged
// per distinct day, group tiers are flat, everything else is per person.
func RegistrationPrice(t models.RegistrationType, quantity int, days []string) int {
	base := registrationPrices[t]
	switch {
	case t.IsDayBased():
		return base * len(distinct(days))
	case t.IsGroup():
		return base
	}
	if quantity <= 0 {
		quantity = 1
	}
	return base * quantity
}

// VendorTablePrice returns the flat tier price for n tables; anything outside 1..3 is free.
func VendorTablePrice(n int) int {
	return vendorTablePrices[n]
}

// AdvertisementPrice sums the distinct advertisement tiers. Unknown tiers cost nothing.
func AdvertisementPrice(ads []string) int {
	total := 0
	for _, ad := range distinct(ads) {
		total += advertisementPrices[ad]
	}
	return total
}

// SpecialEventsPrice sums the priced special events in the set.
func SpecialEventsPrice(events []string) int {
	total := 0
	for _, ev := range distinct(events) {
		total += specialEventPrices[ev]
	}
	return total
}

// HasPurchasableSelection reports whether the selection buys at least one thing.
func HasPurchasableSelection(sel Selection) bool {
	return sel.RegistrationType != models.RegistrationNone ||
		sel.VendorTables > 0 ||
		len(sel.Advertisements) > 0 ||
		len(sel.SpecialEvents) > 0
}

func distinct(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
