package registry

import "github.com/sakif/owners-club/internal/model"

// Viewer identifies who a view is rendered for. The zero Viewer is an
// anonymous visitor.
type Viewer struct {
	UserID  string `json:"userId,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
}

// Authenticated reports whether the viewer is signed in.
func (v Viewer) Authenticated() bool { return v.UserID != "" }

// ViewContext carries the request-scoped state a page needs beyond the
// records themselves. Callers build it per request and pass it in; nothing
// in this package reads it from anywhere else.
type ViewContext struct {
	Settings model.SiteSettings `json:"settings"`
	Viewer   Viewer             `json:"viewer"`
}

// ViewInput is everything Compose needs.
type ViewInput struct {
	// Records is the full collection, already restricted to whatever
	// visibility subset the caller wants stats over.
	Records  []model.Owner
	Criteria Criteria
	// OptionFields selects which filter option lists to compute.
	OptionFields []Field
	// BadgeSession is the admin's open badge edit, if any.
	BadgeSession *BadgeSession
	// Catalogue is the list of badges offered in the editor.
	Catalogue []string
	Context   ViewContext
}

// View is the render-ready result of Compose. All slices are fresh, down to
// the list fields of each record, and may be treated as immutable snapshots.
type View struct {
	Records   []model.Owner       `json:"records"`
	Total     int                 `json:"total"`
	Options   map[string][]string `json:"options"`
	Stats     Stats               `json:"stats"`
	BadgeEdit *BadgeEdit          `json:"badgeEdit,omitempty"`
	Context   ViewContext         `json:"-"`
}

// BadgeEdit is the render-ready state of an open badge session.
type BadgeEdit struct {
	OwnerID  string        `json:"ownerId"`
	Selected []string      `json:"selected"`
	Options  []BadgeOption `json:"options"`
}

// BadgeOption is one entry in the badge editor.
type BadgeOption struct {
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Compose filters the collection, computes the option lists and stats, and
// snapshots the badge session.
//
// Records is the filtered subsequence and Total the size of the unfiltered
// collection ("showing N of Total"). Stats describe the unfiltered
// collection. A nil or closed badge session yields a nil BadgeEdit.
func Compose(in ViewInput) View {
	options := make(map[string][]string, len(in.OptionFields))
	for _, f := range in.OptionFields {
		options[string(f)] = DistinctValues(in.Records, f)
	}

	return View{
		Records:   Filter(in.Records, in.Criteria),
		Total:     Total(in.Records),
		Options:   options,
		Stats:     Compute(in.Records),
		BadgeEdit: NewBadgeEdit(in.BadgeSession, in.Catalogue),
		Context:   in.Context,
	}
}

// NewBadgeEdit snapshots s against the badge catalogue. A nil or closed
// session yields nil.
func NewBadgeEdit(s *BadgeSession, catalogue []string) *BadgeEdit {
	if s == nil || s.Closed() {
		return nil
	}

	selected := s.Badges()
	opts := make([]BadgeOption, 0, len(catalogue)+len(selected))
	listed := make(map[string]bool, len(catalogue))
	for _, label := range catalogue {
		listed[label] = true
		opts = append(opts, BadgeOption{Label: label, Selected: s.Has(label)})
	}
	// Labels outside the catalogue stay visible so they can be removed.
	for _, label := range selected {
		if !listed[label] {
			opts = append(opts, BadgeOption{Label: label, Selected: true})
		}
	}

	return &BadgeEdit{OwnerID: s.OwnerID(), Selected: selected, Options: opts}
}
