package model

// SiteSettings is the editable site content, keyed by setting name
// (e.g. "homepage_tagline"). Missing keys read as "".
type SiteSettings map[string]string

// Get returns the value for key, or "" when the key is unset.
func (s SiteSettings) Get(key string) string {
	return s[key]
}

// Clone returns an independent copy of s.
func (s SiteSettings) Clone() SiteSettings {
	out := make(SiteSettings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Setting keys editable from the admin console.
const (
	SettingSiteTitle       = "site_title"
	SettingTagline         = "homepage_tagline"
	SettingIntro           = "homepage_intro"
	SettingHeroCTA         = "hero_cta"
	SettingLogoURL         = "site_logo_url"
	SettingFaviconURL      = "favicon_url"
	SettingMetaDescription = "meta_description"
	SettingMainHeading     = "homepage_main_heading"
	SettingSubHeading      = "homepage_sub_heading"
	SettingFooterText      = "footer_text"
)

// SettingKeys lists every accepted setting key.
var SettingKeys = []string{
	SettingSiteTitle,
	SettingTagline,
	SettingIntro,
	SettingHeroCTA,
	SettingLogoURL,
	SettingFaviconURL,
	SettingMetaDescription,
	SettingMainHeading,
	SettingSubHeading,
	SettingFooterText,
}

// IsSettingKey reports whether key is one of SettingKeys.
func IsSettingKey(key string) bool {
	for _, k := range SettingKeys {
		if k == key {
			return true
		}
	}
	return false
}
