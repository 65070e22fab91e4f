// Package reconcile merges registration collections read from several stores
// into one deduplicated, newest-first view.
package reconcile

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lectureship/backend/internal/models"
)

// Collection is one group of registrations read from a store. A collection
// whose data could not be interpreted carries Err and no records.
type Collection struct {
	Name    string
	Records []models.Registration
	Err     error
}

// SourceParseError reports a collection that could not be decoded.
type SourceParseError struct {
	Source string
	Err    error
}

func (e *SourceParseError) Error() string {
	return fmt.Sprintf("parse source %s: %v", e.Source, e.Err)
}

func (e *SourceParseError) Unwrap() error { return e.Err }

// Reconcile concatenates the collections, keeps the first record seen for each
// id and orders the result by timestamp descending, then id ascending.
func Reconcile(collections ...[]models.Registration) []models.Registration {
	total := 0
	for _, c := range collections {
		total += len(c)
	}
	seen := make(map[string]struct{}, total)
	out := make([]models.Registration, 0, total)
	for _, c := range collections {
		for _, reg := range c {
			if _, dup := seen[reg.ID]; dup {
				continue
			}
			seen[reg.ID] = struct{}{}
			out = append(out, reg)
		}
	}
	Sort(out)
	return out
}

// Sort orders registrations newest first with id as tie-break.
func Sort(regs []models.Registration) {
	sort.SliceStable(regs, func(i, j int) bool {
		if !regs[i].Timestamp.Equal(regs[j].Timestamp) {
			return regs[i].Timestamp.After(regs[j].Timestamp)
		}
		return regs[i].ID < regs[j].ID
	})
}

// Decode parses one serialized collection (a JSON array of registrations).
// Records without an id are dropped since they cannot be deduplicated.
func Decode(name string, raw []byte) Collection {
	var regs []models.Registration
	if err := json.Unmarshal(raw, &regs); err != nil {
		return Collection{Name: name, Err: &SourceParseError{Source: name, Err: err}}
	}
	kept := regs[:0]
	for _, reg := range regs {
		if reg.ID == "" {
			continue
		}
		normalizeDecoded(&reg)
		kept = append(kept, reg)
	}
	return Collection{Name: name, Records: kept}
}

// Browser-era records may omit optional fields.
func normalizeDecoded(reg *models.Registration) {
	if reg.PaymentStatus == "" {
		reg.PaymentStatus = models.PaymentStatusPending
	}
	if reg.Quantity < 1 {
		reg.Quantity = 1
	}
	if reg.SpecialEvents == nil {
		reg.SpecialEvents = []string{}
	}
	if reg.Advertisements == nil {
		reg.Advertisements = []string{}
	}
	if reg.DayToDayDates == nil {
		reg.DayToDayDates = []string{}
	}
	reg.Timestamp = reg.Timestamp.UTC()
}
