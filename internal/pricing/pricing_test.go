package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lectureship/backend/internal/models"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name string
		sel  Selection
		want Breakdown
	}{
		{
			name: "individual early for two",
			sel:  Selection{RegistrationType: models.RegistrationIndividualEarly, Quantity: 2},
			want: Breakdown{RegistrationPrice: 380, Total: 380, HasSelection: true},
		},
		{
			name: "group ignores quantity",
			sel:  Selection{RegistrationType: models.RegistrationGroup5Early, Quantity: 5},
			want: Breakdown{RegistrationPrice: 925, Total: 925, HasSelection: true},
		},
		{
			name: "vendor and ad without registration",
			sel:  Selection{VendorTables: 2, Advertisements: []string{models.AdFullPageColor}},
			want: Breakdown{VendorPrice: 350, AdvertisementPrice: 225, Total: 575, HasSelection: true},
		},
		{
			name: "day to day two days",
			sel: Selection{
				RegistrationType: models.RegistrationDayToDay,
				DayToDayDates:    []string{models.DaySunday, models.DayMonday},
			},
			want: Breakdown{RegistrationPrice: 150, Total: 150, HasSelection: true},
		},
		{
			name: "banquet only",
			sel:  Selection{SpecialEvents: []string{models.EventMemorialBanquet}},
			want: Breakdown{SpecialEventsPrice: 75, Total: 75, HasSelection: true},
		},
		{
			name: "unpriced event still counts as a selection",
			sel:  Selection{SpecialEvents: []string{"womens-luncheon"}},
			want: Breakdown{HasSelection: true},
		},
		{
			name: "everything",
			sel: Selection{
				RegistrationType: models.RegistrationGeorgiaRegular,
				Quantity:         1,
				VendorTables:     3,
				Advertisements:   []string{models.AdHalfPageBW, models.AdQuarterPageBW},
				SpecialEvents:    []string{models.EventMemorialBanquet},
			},
			want: Breakdown{
				RegistrationPrice:  195,
				VendorPrice:        450,
				AdvertisementPrice: 205,
				SpecialEventsPrice: 75,
				Total:              925,
				HasSelection:       true,
			},
		},
		{
			name: "nothing selected",
			sel:  Selection{},
			want: Breakdown{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Quote(tt.sel)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.RegistrationPrice+got.VendorPrice+got.AdvertisementPrice+got.SpecialEventsPrice, got.Total)
		})
	}
}

func TestRegistrationPrice_QuantityDefaultsToOne(t *testing.T) {
	assert.Equal(t, 210, RegistrationPrice(models.RegistrationIndividualRegular, 0, nil))
	assert.Equal(t, 210, RegistrationPrice(models.RegistrationIndividualRegular, -3, nil))
	assert.Equal(t, 0, RegistrationPrice(models.RegistrationNone, 4, nil))
}

func TestRegistrationPrice_GroupIsFixed(t *testing.T) {
	for _, typ := range []models.RegistrationType{
		models.RegistrationGroup5Early, models.RegistrationGroup5Regular,
		models.RegistrationGroup10Early, models.RegistrationGroup10Regular,
	} {
		first := RegistrationPrice(typ, 1, nil)
		for q := 2; q <= 12; q++ {
			assert.Equal(t, first, RegistrationPrice(typ, q, nil), "type %s quantity %d", typ, q)
		}
	}
}

func TestRegistrationPrice_DayToDay(t *testing.T) {
	for n := 0; n <= len(models.ConferenceDays); n++ {
		days := models.ConferenceDays[:n]
		assert.Equal(t, DayToDayRate*n, RegistrationPrice(models.RegistrationDayToDay, 3, days))
	}
	assert.Equal(t, 75, RegistrationPrice(models.RegistrationDayToDay, 1, []string{models.DaySunday, models.DaySunday}))
}

func TestVendorTablePrice_IsStepFunction(t *testing.T) {
	assert.Equal(t, 0, VendorTablePrice(0))
	assert.Equal(t, 250, VendorTablePrice(1))
	assert.Equal(t, 350, VendorTablePrice(2))
	assert.Equal(t, 450, VendorTablePrice(3))
	assert.Equal(t, 0, VendorTablePrice(4))
	assert.Equal(t, 0, VendorTablePrice(-1))
	assert.NotEqual(t, 2*VendorTablePrice(1), VendorTablePrice(2))
	assert.NotEqual(t, 3*VendorTablePrice(1), VendorTablePrice(3))
	// per-table cost drops as the tier grows
	assert.Less(t, VendorTablePrice(3)/3, VendorTablePrice(2)/2)
	assert.Less(t, VendorTablePrice(2)/2, VendorTablePrice(1))
}

func TestAdvertisementPrice(t *testing.T) {
	assert.Equal(t, 225+175+180+125+80, AdvertisementPrice(models.AdvertisementTiers))
	assert.Equal(t, 225, AdvertisementPrice([]string{models.AdFullPageColor, models.AdFullPageColor}))
	assert.Equal(t, 0, AdvertisementPrice([]string{"back-cover"}))
}

func TestLineItems(t *testing.T) {
	sel := Selection{
		RegistrationType: models.RegistrationIndividualEarly,
		Quantity:         3,
		VendorTables:     1,
		Advertisements:   []string{models.AdHalfPageColor},
		SpecialEvents:    []string{models.EventMemorialBanquet},
	}
	items := LineItems(sel)
	if assert.Len(t, items, 4) {
		assert.Equal(t, "individual-early", items[0].ID)
		assert.Equal(t, 570, items[0].Amount)
		assert.Equal(t, "3 people x $190", items[0].Detail)
		assert.Equal(t, "vendor-1-table", items[1].ID)
		assert.Equal(t, "https://square.link/u/MuxoTkEI", items[1].PaymentLink)
		assert.Equal(t, models.AdHalfPageColor, items[2].ID)
		assert.Equal(t, models.EventMemorialBanquet, items[3].ID)
	}

	sum := 0
	for _, it := range items {
		sum += it.Amount
	}
	assert.Equal(t, Quote(sel).Total, sum)
}

func TestNewCatalog(t *testing.T) {
	c := NewCatalog()
	assert.Len(t, c.RegistrationTypes, len(models.RegistrationTypes))
	assert.Len(t, c.VendorTables, 3)
	assert.Equal(t, "vendor-2-tables", c.VendorTables[1].ID)
	assert.Equal(t, 350, c.VendorTables[1].Amount)
	assert.Equal(t, models.ConferenceDays, c.Days)
	assert.Equal(t, "day", c.RegistrationTypes[len(c.RegistrationTypes)-1].Unit)
}
