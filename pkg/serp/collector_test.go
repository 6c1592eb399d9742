package serp

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func urls(candidates []Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.URL)
	}
	return out
}

func TestCollectHeadingAncestorAnchors(t *testing.T) {
	doc := parseDoc(t, `
		<html><body>
			<a href="https://a.example/"><h3>Result A</h3></a>
			<a href="https://b.example/"><div><h3>Result B</h3></div></a>
			<a href="https://c.example/"><h3>Result C</h3></a>
		</body></html>`)

	c := NewCollector("duckduckgo.com", "https://duckduckgo.com/")
	got := c.Collect(doc)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"https://a.example/", "https://b.example/", "https://c.example/"}, urls(got))
	for _, cand := range got {
		assert.Equal(t, TierHeading, cand.Tier)
	}
}

func TestCollectHeadingDescendantAnchorFallback(t *testing.T) {
	doc := parseDoc(t, `
		<html><body>
			<h3><a href="https://inner.example/">Inner link</a></h3>
			<h3>No anchor anywhere</h3>
		</body></html>`)

	c := NewCollector("duckduckgo.com", "https://duckduckgo.com/")
	got := c.Collect(doc)

	require.Len(t, got, 1)
	assert.Equal(t, "https://inner.example/", got[0].URL)
}

func TestCollectResultLinkTier(t *testing.T) {
	doc := parseDoc(t, `
		<html><body>
			<a class="result__a" href="https://classic.example/">classic layout</a>
			<a data-testid="result-title-a" href="https://modern.example/">modern layout</a>
			<a class="result__a" href="javascript:void(0)">bad scheme</a>
		</body></html>`)

	c := NewCollector("duckduckgo.com", "https://duckduckgo.com/")
	got := c.Collect(doc)

	require.Len(t, got, 2)
	assert.Equal(t, TierResultLink, got[0].Tier)
	assert.Equal(t, []string{"https://classic.example/", "https://modern.example/"}, urls(got))
}

func TestCollectGenericTierExcludesEngineLinks(t *testing.T) {
	doc := parseDoc(t, `
		<html><body>
			<a href="https://external.example/page">external</a>
			<a href="https://duckduckgo.com/settings">internal</a>
			<a href="/relative/path">relative internal</a>
			<a href="mailto:someone@example.com">mail</a>
		</body></html>`)

	c := NewCollector("duckduckgo.com", "https://duckduckgo.com/")
	got := c.Collect(doc)

	require.Len(t, got, 1)
	assert.Equal(t, "https://external.example/page", got[0].URL)
	assert.Equal(t, TierGeneric, got[0].Tier)
}

func TestCollectDeduplicatesByElementIdentity(t *testing.T) {
	// The heading anchor also carries the result-link class and an
	// href, so it matches all three tiers; it must appear once. The
	// second anchor shares its URL but is a different element, so it
	// stays.
	doc := parseDoc(t, `
		<html><body>
			<a class="result__a" href="https://dup.example/"><h3>Title</h3></a>
			<a href="https://dup.example/">same URL, different element</a>
		</body></html>`)

	c := NewCollector("duckduckgo.com", "https://duckduckgo.com/")
	got := c.Collect(doc)

	require.Len(t, got, 2)
	assert.Equal(t, "https://dup.example/", got[0].URL)
	assert.Equal(t, TierHeading, got[0].Tier)
	assert.Equal(t, "https://dup.example/", got[1].URL)
	assert.Equal(t, TierGeneric, got[1].Tier)
	assert.NotSame(t, got[0].Node, got[1].Node)
}

func TestCollectUnwrapsEngineRedirects(t *testing.T) {
	doc := parseDoc(t, `
		<html><body>
			<a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.instagram.com%2Fnasa%2F&rut=abc">NASA</a>
		</body></html>`)

	c := NewCollector("duckduckgo.com", "https://duckduckgo.com/")
	got := c.Collect(doc)

	require.Len(t, got, 1)
	assert.Equal(t, "https://www.instagram.com/nasa/", got[0].URL)
	// The raw attribute survives for clicking the anchor on the live page.
	assert.Equal(t, "//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.instagram.com%2Fnasa%2F&rut=abc", got[0].Href)
}

func TestCollectEmptyPage(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>nothing to see</p></body></html>`)

	c := NewCollector("duckduckgo.com", "https://duckduckgo.com/")
	assert.Empty(t, c.Collect(doc))
}

func TestCollectTierOrdering(t *testing.T) {
	// Generic-only anchors must come after heading and result-link
	// candidates regardless of document order.
	doc := parseDoc(t, `
		<html><body>
			<a href="https://generic.example/">plain anchor first in document</a>
			<a class="result__a" href="https://marked.example/">marked</a>
			<a href="https://heading.example/"><h3>Heading</h3></a>
		</body></html>`)

	c := NewCollector("duckduckgo.com", "https://duckduckgo.com/")
	got := c.Collect(doc)

	require.Len(t, got, 3)
	assert.Equal(t, []string{
		"https://heading.example/",
		"https://marked.example/",
		"https://generic.example/",
	}, urls(got))
}
