package pricing

import (
	"fmt"

	"github.com/lectureship/backend/internal/models"
)

// Square checkout links for each purchasable item.
var paymentLinks = map[string]string{
	string(models.RegistrationIndividualEarly):   "https://square.link/u/ieidynuy",
	string(models.RegistrationIndividualRegular): "https://square.link/u/VdIdderF",
	string(models.RegistrationGeorgiaEarly):      "https://square.link/u/2xwzKLOF",
	string(models.RegistrationGeorgiaRegular):    "https://square.link/u/UACAsYNa",
	string(models.RegistrationGroup5Early):       "https://square.link/u/R8ten5jo",
	string(models.RegistrationGroup5Regular):     "https://square.link/u/kBhQ4aaj",
	string(models.RegistrationGroup10Early):      "https://square.link/u/8TgV0WNa",
	string(models.RegistrationGroup10Regular):    "https://square.link/u/c9dLJDyX",
	string(models.RegistrationDayToDay):          "https://square.link/u/day-to-day",
	models.EventMemorialBanquet:                  "https://square.link/u/3EFbURkB",
	"vendor-1-table":                             "https://square.link/u/MuxoTkEI",
	"vendor-2-tables":                            "https://square.link/u/2RFSfiYv",
	"vendor-3-tables":                            "https://square.link/u/VeLw36WE",
	models.AdFullPageColor:                       "https://square.link/u/aDKuberx",
	models.AdHalfPageColor:                       "https://square.link/u/soBLCNwD",
	models.AdFullPageBW:                          "https://square.link/u/oqgDc3Ki",
	models.AdHalfPageBW:                          "https://square.link/u/orWjSbJa",
	models.AdQuarterPageBW:                       "https://square.link/u/B7ON7VnH",
}

var labels = map[string]string{
	string(models.RegistrationIndividualEarly):   "Individual Early Bird",
	string(models.RegistrationIndividualRegular): "Individual Regular",
	string(models.RegistrationGeorgiaEarly):      "Georgia Resident Early Bird",
	string(models.RegistrationGeorgiaRegular):    "Georgia Resident Regular",
	string(models.RegistrationGroup5Early):       "Group 5 People Early Bird",
	string(models.RegistrationGroup5Regular):     "Group 5 People Regular",
	string(models.RegistrationGroup10Early):      "Group 10 People Early Bird",
	string(models.RegistrationGroup10Regular):    "Group 10 People Regular",
	string(models.RegistrationDayToDay):          "Day-to-Day Registration",
	models.EventMemorialBanquet:                  "Memorial Banquet",
	models.AdFullPageColor:                       "Full Page Color Ad",
	models.AdHalfPageColor:                       "Half Page Color Ad",
	models.AdFullPageBW:                          "Full Page Black & White Ad",
	models.AdHalfPageBW:                          "Half Page Black & White Ad",
	models.AdQuarterPageBW:                       "Quarter Page Black & White Ad",
	models.DaySunday:                             "Sunday, March 9",
	models.DayMonday:                             "Monday, March 10",
	models.DayTuesday:                            "Tuesday, March 11",
	models.DayWednesday:                          "Wednesday, March 12",
	models.DayThursday:                           "Thursday, March 13",
}

// Label returns the display name of an item identifier, or the identifier itself.
func Label(id string) string {
	if l, ok := labels[id]; ok {
		return l
	}
	return id
}

// VendorItemID returns the checkout identifier for n vendor tables.
func VendorItemID(n int) string {
	if n == 1 {
		return "vendor-1-table"
	}
	return fmt.Sprintf("vendor-%d-tables", n)
}

// PaymentLink returns the checkout link for an item identifier, if any.
func PaymentLink(id string) string {
	return paymentLinks[id]
}

// LineItem is one line of the checkout summary shown after submission.
type LineItem struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Detail      string `json:"detail,omitempty"`
	Amount      int    `json:"amount"`
	PaymentLink string `json:"paymentLink,omitempty"`
}

// LineItems itemizes a selection in checkout order. Free selections are omitted.
func LineItems(sel Selection) []LineItem {
	var items []LineItem
	if sel.RegistrationType != models.RegistrationNone {
		id := string(sel.RegistrationType)
		amount := RegistrationPrice(sel.RegistrationType, sel.Quantity, sel.DayToDayDates)
		detail := ""
		switch {
		case sel.RegistrationType.IsDayBased():
			detail = fmt.Sprintf("%d day(s) x $%d", len(distinct(sel.DayToDayDates)), DayToDayRate)
		case sel.RegistrationType.IsPerPerson() && sel.Quantity > 1:
			detail = fmt.Sprintf("%d people x $%d", sel.Quantity, registrationPrices[sel.RegistrationType])
		}
		if amount > 0 {
			items = append(items, LineItem{ID: id, Label: Label(id), Detail: detail, Amount: amount, PaymentLink: PaymentLink(id)})
		}
	}
	if price := VendorTablePrice(sel.VendorTables); price > 0 {
		id := VendorItemID(sel.VendorTables)
		items = append(items, LineItem{
			ID:          id,
			Label:       "Vendor Tables",
			Detail:      fmt.Sprintf("%d table(s)", sel.VendorTables),
			Amount:      price,
			PaymentLink: PaymentLink(id),
		})
	}
	for _, ad := range distinct(sel.Advertisements) {
		if price := advertisementPrices[ad]; price > 0 {
			items = append(items, LineItem{ID: ad, Label: Label(ad), Amount: price, PaymentLink: PaymentLink(ad)})
		}
	}
	for _, ev := range distinct(sel.SpecialEvents) {
		if price := specialEventPrices[ev]; price > 0 {
			items = append(items, LineItem{ID: ev, Label: Label(ev), Amount: price, PaymentLink: PaymentLink(ev)})
		}
	}
	return items
}

// CatalogItem is a priced item published to the registration form.
type CatalogItem struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Amount int    `json:"amount"`
	Unit   string `json:"unit,omitempty"`
}

// Catalog is the full price list.
type Catalog struct {
	RegistrationTypes []CatalogItem `json:"registrationTypes"`
	Days              []string      `json:"days"`
	VendorTables      []CatalogItem `json:"vendorTables"`
	Advertisements    []CatalogItem `json:"advertisements"`
	SpecialEvents     []CatalogItem `json:"specialEvents"`
}

// NewCatalog builds the price list from the pricing tables.
func NewCatalog() Catalog {
	var c Catalog
	for _, t := range models.RegistrationTypes {
		item := CatalogItem{ID: string(t), Label: Label(string(t)), Amount: registrationPrices[t]}
		switch {
		case t.IsDayBased():
			item.Unit = "day"
		case t.IsGroup():
			item.Unit = "group"
		default:
			item.Unit = "person"
		}
		c.RegistrationTypes = append(c.RegistrationTypes, item)
	}
	c.Days = append(c.Days, models.ConferenceDays...)
	for n := 1; n <= models.MaxVendorTables; n++ {
		c.VendorTables = append(c.VendorTables, CatalogItem{
			ID:     VendorItemID(n),
			Label:  fmt.Sprintf("%d table(s)", n),
			Amount: vendorTablePrices[n],
		})
	}
	for _, ad := range models.AdvertisementTiers {
		c.Advertisements = append(c.Advertisements, CatalogItem{ID: ad, Label: Label(ad), Amount: advertisementPrices[ad]})
	}
	for _, ev := range models.SpecialEvents {
		c.SpecialEvents = append(c.SpecialEvents, CatalogItem{ID: ev, Label: Label(ev), Amount: specialEventPrices[ev]})
	}
	return c
}
