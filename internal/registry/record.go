// Package registry is the pure core of the owners club: it turns raw store
// rows into validated owner records and derives every directory, profile and
// admin view from them.
//
// Nothing in this package performs I/O, holds process-wide state or blocks.
// Every function takes its full input and returns a fresh value, so the same
// input always produces the same output and callers may invoke it from any
// number of goroutines.
//
// DATA FLOW:
//
//	store rows ([]RawRow)
//	  → Normalize / NormalizeAll   (the only way a row becomes a model.Owner)
//	  → Filter / DistinctValues    (directory + admin filters)
//	  → Compute                    (stats)
//	  → Compose                    (render-ready View)
package registry

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/owners-club/internal/model"
)

// RawRow is one loosely-typed row as handed over by the store: column name
// to driver value. Values may be missing, NULL, or encoded in any of the
// forms the SQLite driver (or a JSON import) produces. Extra columns are
// ignored.
type RawRow map[string]any

// Column names understood by Normalize.
const (
	ColID                = "id"
	ColUserID            = "user_id"
	ColDisplayName       = "display_name"
	ColUsername          = "username"
	ColCountry           = "country"
	ColRegion            = "region"
	ColYear              = "year"
	ColTransmission      = "transmission"
	ColColour            = "colour"
	ColModList           = "mod_list"
	ColInstagramHandle   = "instagram_handle"
	ColInstagramPostURLs = "instagram_post_urls"
	ColPublicProfile     = "public_profile"
	ColFeatured          = "featured"
	ColShowOnMap         = "show_on_map"
	ColPhotoURLs         = "photo_urls"
	ColBadges            = "badges"
	ColCreatedAt         = "created_at"
	ColUpdatedAt         = "updated_at"
)

// RequiredColumns lists the columns a row must carry, in the order they are
// reported by Result.Missing.
var RequiredColumns = []string{
	ColDisplayName,
	ColUsername,
	ColCountry,
	ColYear,
	ColTransmission,
	ColColour,
}

// Result is the outcome of normalizing one row.
//
// When OK is true, Owner is fully defaulted and Missing is nil.
// When OK is false the row is an incomplete record: Missing names the
// required columns that were absent or blank, and Owner must not be used.
type Result struct {
	Owner   model.Owner
	OK      bool
	Missing []string
	// ID is the row's id column when present, for logging skipped rows.
	ID string
}

// Normalize converts a raw row into an Owner.
//
// Optional text defaults to "", optional lists to an empty slice and
// booleans to false. Photo and post lists keep at most three entries; badge
// labels are de-duplicated keeping the first occurrence. A row missing any
// of RequiredColumns yields OK == false naming those columns.
func Normalize(row RawRow) Result {
	o := model.Owner{
		ID:                text(row[ColID]),
		UserID:            text(row[ColUserID]),
		DisplayName:       strings.TrimSpace(text(row[ColDisplayName])),
		Username:          strings.TrimSpace(text(row[ColUsername])),
		Country:           strings.TrimSpace(text(row[ColCountry])),
		Region:            strings.TrimSpace(text(row[ColRegion])),
		Year:              integer(row[ColYear]),
		Transmission:      strings.TrimSpace(text(row[ColTransmission])),
		Colour:            strings.TrimSpace(text(row[ColColour])),
		ModList:           text(row[ColModList]),
		InstagramHandle:   strings.TrimSpace(text(row[ColInstagramHandle])),
		InstagramPostURLs: truncate(list(row[ColInstagramPostURLs]), model.MaxPostURLs),
		PublicProfile:     boolean(row[ColPublicProfile]),
		Featured:          boolean(row[ColFeatured]),
		ShowOnMap:         boolean(row[ColShowOnMap]),
		PhotoURLs:         truncate(list(row[ColPhotoURLs]), model.MaxPhotos),
		Badges:            dedupe(list(row[ColBadges])),
		CreatedAt:         timestamp(row[ColCreatedAt]),
		UpdatedAt:         timestamp(row[ColUpdatedAt]),
	}

	var missing []string
	for _, col := range RequiredColumns {
		if col == ColYear {
			if o.Year <= 0 {
				missing = append(missing, col)
			}
			continue
		}
		if requiredText(o, col) == "" {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return Result{OK: false, Missing: missing, ID: o.ID}
	}
	return Result{Owner: o, OK: true, ID: o.ID}
}

// NormalizeAll normalizes rows in order. Usable owners keep the input
// order; rows that failed are returned separately so the caller can log and
// skip them.
func NormalizeAll(rows []RawRow) (owners []model.Owner, invalid []Result) {
	owners = make([]model.Owner, 0, len(rows))
	for _, row := range rows {
		res := Normalize(row)
		if !res.OK {
			invalid = append(invalid, res)
			continue
		}
		owners = append(owners, res.Owner)
	}
	return owners, invalid
}

func requiredText(o model.Owner, col string) string {
	switch col {
	case ColDisplayName:
		return o.DisplayName
	case ColUsername:
		return o.Username
	case ColCountry:
		return o.Country
	case ColTransmission:
		return o.Transmission
	case ColColour:
		return o.Colour
	}
	return ""
}

// =========================================================================
// TOLERANT DECODERS
// =========================================================================

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// list accepts []string, []any or JSON array text. Blank entries are
// dropped; anything unparseable is treated as empty.
func list(v any) []string {
	out := []string{}
	switch x := v.(type) {
	case []string:
		for _, s := range x {
			out = appendNonBlank(out, s)
		}
	case []any:
		for _, item := range x {
			if s, ok := item.(string); ok {
				out = appendNonBlank(out, s)
			}
		}
	case string:
		return list(decodeJSONList(x))
	case []byte:
		return list(decodeJSONList(string(x)))
	}
	return out
}

func decodeJSONList(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil
	}
	return items
}

func appendNonBlank(dst []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return dst
	}
	return append(dst, s)
}

func boolean(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case int:
		return x != 0
	case float64:
		return x != 0
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(x))
		return b
	case []byte:
		b, _ := strconv.ParseBool(strings.TrimSpace(string(x)))
		return b
	}
	return false
}

func integer(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	case string:
		return parseInt(x)
	case []byte:
		return parseInt(string(x))
	}
	return 0
}

func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// timeLayouts are tried in order for text timestamps. The second is the
// layout SQLite's CURRENT_TIMESTAMP produces.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05",
}

func timestamp(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x.UTC()
	case int64:
		return time.Unix(x, 0).UTC()
	case float64:
		return time.Unix(int64(x), 0).UTC()
	case string:
		return parseTime(x)
	case []byte:
		return parseTime(string(x))
	}
	return time.Time{}
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func truncate(in []string, n int) []string {
	if len(in) > n {
		return in[:n]
	}
	return in
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
