// Package serp turns a search-engine results page into a resolved URL:
// it collects candidate links in priority order, picks one (optionally
// biased toward preferred domains), and either extracts its URL or
// opens it in the browser.
package serp

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Tier identifies which collection pass produced a candidate
type Tier int

const (
	// TierHeading marks anchors found through result heading elements
	TierHeading Tier = iota
	// TierResultLink marks anchors carrying the engine's result-link marker
	TierResultLink
	// TierGeneric marks plain external anchors collected as a last resort
	TierGeneric
)

func (t Tier) String() string {
	switch t {
	case TierHeading:
		return "heading"
	case TierResultLink:
		return "result_link"
	case TierGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// Candidate is a discovered anchor element paired with its resolved
// absolute URL. Href keeps the anchor's attribute exactly as it appears
// in the page, which may be relative or an engine redirect; clicking
// has to match that raw value, not the resolved URL. Node identifies
// the underlying DOM element; two anchors sharing a URL are still
// distinct candidates.
type Candidate struct {
	URL  string
	Href string
	Tier Tier
	Node *html.Node
}

// NewCandidate builds a node-less candidate. Mainly useful in tests and
// for callers that only care about URLs.
func NewCandidate(rawURL string, tier Tier) Candidate {
	return Candidate{URL: rawURL, Href: rawURL, Tier: tier}
}

// ClickHref is the selector value for clicking this candidate's anchor
// on the live page.
func (c *Candidate) ClickHref() string {
	if c.Href != "" {
		return c.Href
	}
	return c.URL
}

// resolveHref turns an anchor's href into an absolute URL string.
// Relative and protocol-relative hrefs are resolved against base.
// Returns "" when the href is unusable.
func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// unwrapRedirect resolves the engine's own redirect links (DuckDuckGo's
// "/l/?uddg=<target>") to their target URL. Non-redirect URLs pass
// through unchanged.
func unwrapRedirect(rawURL, engineHost string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if engineHost == "" || !strings.Contains(u.Host, engineHost) {
		return rawURL
	}
	if target := u.Query().Get("uddg"); target != "" {
		if tu, err := url.Parse(target); err == nil && (tu.Scheme == "http" || tu.Scheme == "https") {
			return target
		}
	}
	return rawURL
}

// isEngineURL reports whether the URL points back at the search engine
// itself.
func isEngineURL(rawURL, engineHost string) bool {
	if engineHost == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(u.Host), strings.ToLower(engineHost))
}
