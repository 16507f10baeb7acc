package registry

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sakif/owners-club/internal/model"
)

// Status is the admin visibility filter.
type Status string

// The zero Status imposes no constraint.
const (
	StatusAll      Status = ""
	StatusPublic   Status = "public"
	StatusPrivate  Status = "private"
	StatusFeatured Status = "featured"
)

// ParseStatus maps a query value onto a Status. "all" and "" both mean
// StatusAll; anything unknown reports ok == false.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return StatusAll, true
	case "public":
		return StatusPublic, true
	case "private":
		return StatusPrivate, true
	case "featured":
		return StatusFeatured, true
	}
	return StatusAll, false
}

// Criteria is a set of optional equality constraints. A field left at its
// zero value imposes no constraint; the constraints that are set combine
// with AND.
//
// The directory uses Colour, Country and Transmission. The admin console
// uses Colour, Country, Year, Status and Search.
type Criteria struct {
	Colour       string
	Country      string
	Transmission string
	Year         int
	Status       Status
	// Search is a case-insensitive substring match over display name,
	// Instagram handle and country.
	Search string
}

// IsZero reports whether c constrains nothing.
func (c Criteria) IsZero() bool {
	return c == Criteria{}
}

// Matches reports whether o satisfies every set constraint of c.
func (c Criteria) Matches(o model.Owner) bool {
	if c.Colour != "" && o.Colour != c.Colour {
		return false
	}
	if c.Country != "" && o.Country != c.Country {
		return false
	}
	if c.Transmission != "" && o.Transmission != c.Transmission {
		return false
	}
	if c.Year != 0 && o.Year != c.Year {
		return false
	}

	switch c.Status {
	case StatusPublic:
		if !o.PublicProfile {
			return false
		}
	case StatusPrivate:
		if o.PublicProfile {
			return false
		}
	case StatusFeatured:
		if !o.Featured {
			return false
		}
	}

	if q := strings.ToLower(strings.TrimSpace(c.Search)); q != "" {
		if !strings.Contains(strings.ToLower(o.DisplayName), q) &&
			!strings.Contains(strings.ToLower(o.InstagramHandle), q) &&
			!strings.Contains(strings.ToLower(o.Country), q) {
			return false
		}
	}

	return true
}

// Filter returns the records matching c, in their original relative order.
// The result is always a fresh slice, even when c is zero, and each record
// in it is a deep copy.
func Filter(records []model.Owner, c Criteria) []model.Owner {
	return FilterAll(records, c)
}

// FilterAll returns the records matching every criteria in cs. It is the
// conjunction of the individual filters, so applying them one after the
// other in any order gives the same result.
func FilterAll(records []model.Owner, cs ...Criteria) []model.Owner {
	out := make([]model.Owner, 0, len(records))
	for _, o := range records {
		if matchesAll(o, cs) {
			out = append(out, o.Clone())
		}
	}
	return out
}

func matchesAll(o model.Owner, cs []Criteria) bool {
	for _, c := range cs {
		if !c.Matches(o) {
			return false
		}
	}
	return true
}

// Field names a filterable column for DistinctValues.
type Field string

const (
	FieldColour       Field = "colour"
	FieldCountry      Field = "country"
	FieldTransmission Field = "transmission"
	FieldYear         Field = "year"
)

// DirectoryFields are the option lists shown above the public directory.
var DirectoryFields = []Field{FieldColour, FieldCountry, FieldTransmission}

// AdminFields are the option lists shown in the admin console.
var AdminFields = []Field{FieldColour, FieldCountry, FieldYear}

func (f Field) value(o model.Owner) string {
	switch f {
	case FieldColour:
		return o.Colour
	case FieldCountry:
		return o.Country
	case FieldTransmission:
		return o.Transmission
	case FieldYear:
		if o.Year == 0 {
			return ""
		}
		return strconv.Itoa(o.Year)
	}
	return ""
}

// DistinctValues returns the distinct non-empty values of field across
// records, sorted ascending. It is recomputed on every call.
func DistinctValues(records []model.Owner, field Field) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, o := range records {
		v := field.value(o)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
