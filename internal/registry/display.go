package registry

import (
	"regexp"
	"strings"

	"github.com/sakif/owners-club/internal/model"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	spaceRuns    = regexp.MustCompile(`\s+`)
	dashRuns     = regexp.MustCompile(`-+`)

	instagramPost = regexp.MustCompile(`instagram\.com/p/([A-Za-z0-9_-]+)`)
)

// Slugify turns a title into a URL path segment: lower-case, characters
// outside [a-z0-9 -] dropped, whitespace runs become "-", repeated dashes
// collapse and leading/trailing dashes are trimmed.
//
//	Slugify("Hello, World!  Part 2") == "hello-world-part-2"
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = nonSlugChars.ReplaceAllString(s, "")
	s = spaceRuns.ReplaceAllString(strings.TrimSpace(s), "-")
	s = dashRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// DisplayImage picks the card image for an owner: the first photo, else the
// media URL of the first Instagram post, else "".
func DisplayImage(o model.Owner) string {
	if len(o.PhotoURLs) > 0 {
		return o.PhotoURLs[0]
	}
	if len(o.InstagramPostURLs) > 0 {
		if m := instagramPost.FindStringSubmatch(o.InstagramPostURLs[0]); m != nil {
			return "https://www.instagram.com/p/" + m[1] + "/media/?size=m"
		}
	}
	return ""
}

// Location is "Country • Region" for the region-bearing country when a
// region is set, and just the country otherwise.
func Location(o model.Owner) string {
	if o.Country == model.RegionCountry && o.Region != "" {
		return o.Country + " • " + o.Region
	}
	return o.Country
}

// Recent returns the first n records. Records arrive newest first.
func Recent(records []model.Owner, n int) []model.Owner {
	if n > len(records) {
		n = len(records)
	}
	if n < 0 {
		n = 0
	}
	out := make([]model.Owner, n)
	for i, o := range records[:n] {
		out[i] = o.Clone()
	}
	return out
}

// Featured returns the first n featured records.
func Featured(records []model.Owner, n int) []model.Owner {
	if n < 0 {
		n = 0
	}
	out := make([]model.Owner, 0, n)
	for _, o := range records {
		if len(out) >= n {
			break
		}
		if o.Featured {
			out = append(out, o.Clone())
		}
	}
	return out
}
