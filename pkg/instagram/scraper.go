package instagram

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"serpgrab/pkg/logger"
)

// statKeywords are the labels anchoring each statistic on the profile
// page.
var statKeywords = []string{"followers", "following", "posts"}

// ScrapeProfile extracts public statistics from the rendered HTML of a
// profile page. Extraction is best effort: any statistic that cannot
// be located is reported as FieldUnavailable, never as an error.
func ScrapeProfile(url string, doc *goquery.Document) Profile {
	p := NewProfile(url)
	log := logger.GetLogger()

	if bio := extractBio(doc); bio != "" {
		p.Bio = bio
	}

	root := doc.Get(0)
	for _, keyword := range statKeywords {
		value := extractStat(root, keyword)
		if value == "" {
			log.DebugWithFields("profile statistic not found", map[string]interface{}{
				"url":     url,
				"keyword": keyword,
			})
			continue
		}
		switch keyword {
		case "followers":
			p.Followers = value
		case "following":
			p.Following = value
		case "posts":
			p.Posts = value
		}
	}
	return p
}

// extractBio reads the page's meta description, falling back to the
// Open Graph description.
func extractBio(doc *goquery.Document) string {
	for _, sel := range []string{
		`meta[name="description"]`,
		`meta[property="og:description"]`,
	} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if content = strings.TrimSpace(content); content != "" {
				return content
			}
		}
	}
	return ""
}

// extractStat finds the first text node containing keyword, reads the
// full text of its structural parent, and strips the keyword from it.
// What remains is the adjacent count, e.g. "1,234" next to
// "followers".
func extractStat(root *html.Node, keyword string) string {
	node := findTextNode(root, keyword)
	if node == nil || node.Parent == nil {
		return ""
	}

	text := nodeText(node.Parent)
	if idx := strings.Index(strings.ToLower(text), keyword); idx >= 0 {
		text = text[:idx] + text[idx+len(keyword):]
	}
	return strings.TrimSpace(text)
}

// findTextNode walks the tree depth first and returns the first text
// node whose content contains keyword, case-insensitively.
func findTextNode(n *html.Node, keyword string) *html.Node {
	if n.Type == html.TextNode && strings.Contains(strings.ToLower(n.Data), keyword) {
		return n
	}
	// Script and style bodies are text nodes too; the statistics live
	// in rendered markup, not embedded JSON blobs.
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTextNode(c, keyword); found != nil {
			return found
		}
	}
	return nil
}

// nodeText concatenates every text node under n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
