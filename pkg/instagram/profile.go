// Package instagram validates profile URLs and extracts public profile
// statistics from rendered profile pages.
package instagram

import "regexp"

// FieldUnavailable is reported for any profile field that could not be
// extracted.
const FieldUnavailable = "N/A"

// profileURLPattern accepts canonical profile URLs only: the www host
// and exactly one path segment. Post, reel, and bare-host URLs are
// rejected.
var profileURLPattern = regexp.MustCompile(`^https://www\.instagram\.com/[^/]+/?$`)

// Profile holds the public statistics scraped from a profile page.
// Fields that could not be extracted hold FieldUnavailable.
type Profile struct {
	URL       string
	Followers string
	Following string
	Posts     string
	Bio       string
}

// NewProfile returns a Profile for url with every statistic marked
// unavailable.
func NewProfile(url string) Profile {
	return Profile{
		URL:       url,
		Followers: FieldUnavailable,
		Following: FieldUnavailable,
		Posts:     FieldUnavailable,
		Bio:       FieldUnavailable,
	}
}

// IsProfileURL reports whether url is a canonical Instagram profile
// URL.
func IsProfileURL(url string) bool {
	return profileURLPattern.MatchString(url)
}
