// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. They are similar to classes in
// other languages, but without inheritance.
package model

import (
	"fmt"
	"slices"
	"time"
)

// Owner is one registered member and their car.
//
// An Owner is the registry's central record: the directory, the member
// profile page, the home page and the admin console are all views over a
// collection of Owners.
//
// WHY NO POINTERS FOR OPTIONAL FIELDS?
// Optional text is "" and optional lists are empty (never nil once the
// record has been normalized). Consumers can range over PhotoURLs or print
// ModList without nil checks, and the JSON output is stable: [] instead of null.
type Owner struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	DisplayName string `json:"displayName"`
	Username    string `json:"username"` // unique, used as /member/{username}

	Country string `json:"country"`
	// Region is only meaningful when Country == RegionCountry.
	Region string `json:"region"`

	Year         int    `json:"year"`
	Transmission string `json:"transmission"`
	Colour       string `json:"colour"`
	ModList      string `json:"modList"`

	InstagramHandle   string   `json:"instagramHandle"`
	InstagramPostURLs []string `json:"instagramPostUrls"` // at most MaxPostURLs

	PublicProfile bool `json:"publicProfile"`
	Featured      bool `json:"featured"`
	ShowOnMap     bool `json:"showOnMap"`

	PhotoURLs []string `json:"photoUrls"` // at most MaxPhotos
	Badges    []string `json:"badges"`    // unique labels, display order

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Limits on the per-owner lists.
const (
	MaxPhotos   = 3
	MaxPostURLs = 3
)

// RegionCountry is the only country for which Owner.Region is shown.
const RegionCountry = "United Kingdom"

// The fixed option sets offered by the registration form.
var (
	Countries = []string{
		"United Kingdom", "Australia", "Japan", "Germany", "France",
		"Netherlands", "Belgium", "Switzerland", "Austria", "Other",
	}

	Regions = []string{
		"London", "South East", "South West", "East of England", "East Midlands",
		"West Midlands", "Yorkshire and the Humber", "North West", "North East",
		"Scotland", "Wales", "Northern Ireland",
	}

	Years         = []int{2015, 2016}
	Transmissions = []string{"Manual", "Auto"}
	Colours       = []string{"White", "Red", "Black", "Grey", "Silver"}
)

// AvailableBadges is the catalogue admins can attach to an owner.
var AvailableBadges = func() []string {
	badges := []string{"Owner / Creator", "Community Host", "Club Supporter"}
	for i := 1; i <= 20; i++ {
		badges = append(badges, fmt.Sprintf("#%03d", i))
	}
	return badges
}()

// Clone returns a deep copy of o. Slices are copied so the caller can
// modify the result without touching the original. Nil slices stay nil.
func (o Owner) Clone() Owner {
	out := o
	out.InstagramPostURLs = slices.Clone(o.InstagramPostURLs)
	out.PhotoURLs = slices.Clone(o.PhotoURLs)
	out.Badges = slices.Clone(o.Badges)
	return out
}
