package serp

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// resultLinkSelector matches the engine's explicit result links.
// DuckDuckGo's HTML endpoint uses the result__a class; the JS layout
// marks result titles with a data-testid.
const resultLinkSelector = `a.result__a, a[data-testid="result-title-a"]`

// Collector gathers candidate links from a parsed results page.
// Collection runs three tiers in priority order and concatenates them,
// deduplicating by element identity: the same anchor never appears
// twice, but two anchors sharing a URL both survive.
type Collector struct {
	// EngineHost is the search engine's own host, excluded from the
	// generic tier and used to unwrap the engine's redirect links.
	EngineHost string
	// BaseURL resolves relative hrefs. Optional.
	BaseURL *url.URL
}

// NewCollector creates a collector for the given engine.
func NewCollector(engineHost string, baseURL string) *Collector {
	c := &Collector{EngineHost: engineHost}
	if baseURL != "" {
		if u, err := url.Parse(baseURL); err == nil {
			c.BaseURL = u
		}
	}
	return c
}

// tierFunc produces one tier's candidates from a parsed page
type tierFunc func(doc *goquery.Document) []Candidate

// Collect returns all candidates, highest-priority first, deduplicated
// by element identity. An empty page yields an empty slice, never an
// error.
func (c *Collector) Collect(doc *goquery.Document) []Candidate {
	tiers := []tierFunc{
		c.headingCandidates,
		c.resultLinkCandidates,
		c.genericCandidates,
	}

	seen := make(map[*html.Node]bool)
	var out []Candidate
	for _, tier := range tiers {
		for _, cand := range tier(doc) {
			if cand.Node != nil {
				if seen[cand.Node] {
					continue
				}
				seen[cand.Node] = true
			}
			out = append(out, cand)
		}
	}
	return out
}

// headingCandidates finds anchors through result heading elements: for
// each h3, the nearest anchor ancestor wins, else the first descendant
// anchor.
func (c *Collector) headingCandidates(doc *goquery.Document) []Candidate {
	var out []Candidate
	doc.Find("h3").Each(func(_ int, h *goquery.Selection) {
		a := h.Closest("a")
		if a.Length() == 0 {
			a = h.Find("a").First()
		}
		if cand, ok := c.candidateFromAnchor(a, TierHeading); ok {
			out = append(out, cand)
		}
	})
	return out
}

// resultLinkCandidates finds anchors carrying the engine's result-link
// marker.
func (c *Collector) resultLinkCandidates(doc *goquery.Document) []Candidate {
	var out []Candidate
	doc.Find(resultLinkSelector).Each(func(_ int, a *goquery.Selection) {
		if cand, ok := c.candidateFromAnchor(a, TierResultLink); ok {
			out = append(out, cand)
		}
	})
	return out
}

// genericCandidates falls back to every external anchor on the page,
// skipping links back into the engine itself.
func (c *Collector) genericCandidates(doc *goquery.Document) []Candidate {
	var out []Candidate
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		cand, ok := c.candidateFromAnchor(a, TierGeneric)
		if !ok {
			return
		}
		if isEngineURL(cand.URL, c.EngineHost) {
			return
		}
		out = append(out, cand)
	})
	return out
}

// candidateFromAnchor validates one anchor element. Anything that fails
// to yield an absolute http(s) URL is silently skipped; a single bad
// element never aborts its tier.
func (c *Collector) candidateFromAnchor(a *goquery.Selection, tier Tier) (Candidate, bool) {
	if a == nil || a.Length() == 0 {
		return Candidate{}, false
	}

	href, exists := a.Attr("href")
	if !exists {
		return Candidate{}, false
	}

	resolved := resolveHref(c.BaseURL, href)
	if resolved == "" {
		return Candidate{}, false
	}
	resolved = unwrapRedirect(resolved, c.EngineHost)
	if !strings.HasPrefix(resolved, "http") {
		return Candidate{}, false
	}

	return Candidate{
		URL:  resolved,
		Href: href,
		Tier: tier,
		Node: a.Nodes[0],
	}, true
}

// ResultWaitSelectors are the markers whose appearance means the
// results page has rendered. Callers wait a bounded time for any of
// them and proceed to collection regardless of the outcome.
func ResultWaitSelectors() []string {
	return []string{"h3", "a.result__a", `a[data-testid="result-title-a"]`}
}
