package registry

import "github.com/sakif/owners-club/internal/model"

// Stats are the summary counts shown on the home page and admin console.
// They describe whatever subset the caller passed in.
type Stats struct {
	Total     int `json:"total"`
	Countries int `json:"countries"`
	Featured  int `json:"featured"`
	Public    int `json:"public"`
}

// Total is the number of records.
func Total(records []model.Owner) int {
	return len(records)
}

// CountryCount is the number of distinct non-empty countries.
func CountryCount(records []model.Owner) int {
	seen := make(map[string]struct{})
	for _, o := range records {
		if o.Country != "" {
			seen[o.Country] = struct{}{}
		}
	}
	return len(seen)
}

// FeaturedCount is the number of featured records.
func FeaturedCount(records []model.Owner) int {
	n := 0
	for _, o := range records {
		if o.Featured {
			n++
		}
	}
	return n
}

// PublicCount is the number of records with a public profile.
func PublicCount(records []model.Owner) int {
	n := 0
	for _, o := range records {
		if o.PublicProfile {
			n++
		}
	}
	return n
}

// Compute bundles all four counts.
func Compute(records []model.Owner) Stats {
	return Stats{
		Total:     Total(records),
		Countries: CountryCount(records),
		Featured:  FeaturedCount(records),
		Public:    PublicCount(records),
	}
}
