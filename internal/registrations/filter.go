package registrations

import (
	"sort"
	"strings"

	"github.com/lectureship/backend/internal/models"
)

// Sort fields accepted by the admin list.
const (
	SortTimestamp        = "timestamp"
	SortFirstName        = "firstName"
	SortLastName         = "lastName"
	SortEmail            = "email"
	SortTotalAmount      = "totalAmount"
	SortRegistrationType = "registrationType"
)

// Query filters and orders the admin registration list. The zero value
// returns everything newest first.
type Query struct {
	Status models.PaymentStatus `form:"status"`
	Search string               `form:"q"`
	Sort   string               `form:"sort"`
	Dir    string               `form:"dir"`
}

type lessFunc func(a, b *models.Registration) int

var sorters = map[string]lessFunc{
	SortTimestamp: func(a, b *models.Registration) int {
		switch {
		case a.Timestamp.Before(b.Timestamp):
			return -1
		case a.Timestamp.After(b.Timestamp):
			return 1
		}
		return 0
	},
	SortFirstName: func(a, b *models.Registration) int { return compareFold(a.FirstName, b.FirstName) },
	SortLastName:  func(a, b *models.Registration) int { return compareFold(a.LastName, b.LastName) },
	SortEmail:     func(a, b *models.Registration) int { return compareFold(a.Email, b.Email) },
	SortTotalAmount: func(a, b *models.Registration) int {
		return a.TotalAmount - b.TotalAmount
	},
	SortRegistrationType: func(a, b *models.Registration) int {
		return strings.Compare(string(a.RegistrationType), string(b.RegistrationType))
	},
}

// Validate reports an unknown status, sort field or direction.
func (q Query) Validate() error {
	if q.Status != "" && !q.Status.Valid() {
		return invalid(CodeInvalidSelection, "status", "unknown payment status "+string(q.Status))
	}
	if q.Sort != "" {
		if _, ok := sorters[q.Sort]; !ok {
			return invalid(CodeInvalidSelection, "sort", "unknown sort field "+q.Sort)
		}
	}
	switch strings.ToLower(q.Dir) {
	case "", "asc", "desc":
	default:
		return invalid(CodeInvalidSelection, "dir", "dir must be asc or desc")
	}
	return nil
}

// Apply returns the registrations matching q in the requested order. The
// input slice is not modified. Search matches first name, last name and
// email case-insensitively.
func Apply(regs []models.Registration, q Query) []models.Registration {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]models.Registration, 0, len(regs))
	for _, r := range regs {
		if q.Status != "" && r.PaymentStatus != q.Status {
			continue
		}
		if needle != "" && !matches(&r, needle) {
			continue
		}
		out = append(out, r)
	}

	field := q.Sort
	if field == "" {
		field = SortTimestamp
	}
	less, ok := sorters[field]
	if !ok {
		less = sorters[SortTimestamp]
	}
	desc := !strings.EqualFold(q.Dir, "asc")
	if q.Dir == "" && field != SortTimestamp {
		desc = false
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := less(&out[i], &out[j])
		if c == 0 {
			return out[i].ID < out[j].ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func matches(r *models.Registration, needle string) bool {
	return strings.Contains(strings.ToLower(r.FirstName), needle) ||
		strings.Contains(strings.ToLower(r.LastName), needle) ||
		strings.Contains(strings.ToLower(r.Email), needle)
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
