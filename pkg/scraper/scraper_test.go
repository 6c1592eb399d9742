package scraper

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serpgrab/pkg/checkpoint"
	"serpgrab/pkg/config"
	errs "serpgrab/pkg/errors"
)

// fakeBrowser serves canned HTML per URL without a real Chrome
type fakeBrowser struct {
	mu        sync.Mutex
	pages     map[string]string
	current   string
	navigated []string
	resets    int
}

func newFakeBrowser(pages map[string]string) *fakeBrowser {
	return &fakeBrowser{pages: pages}
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pages[url]; !ok {
		return errs.Newf(errs.ErrorTypePageLoad, "navigate", "no such page: %s", url)
	}
	b.navigated = append(b.navigated, url)
	b.current = url
	return nil
}

func (b *fakeBrowser) HTML(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pages[b.current], nil
}

func (b *fakeBrowser) CurrentURL(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, nil
}

func (b *fakeBrowser) TabCount(ctx context.Context) (int, error) { return 1, nil }

func (b *fakeBrowser) SwitchToNewestTab(ctx context.Context) error { return nil }

func (b *fakeBrowser) ClickLink(ctx context.Context, href string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = href
	return nil
}

func (b *fakeBrowser) WaitForAny(ctx context.Context, selectors []string, timeout time.Duration) error {
	return nil
}

func (b *fakeBrowser) ResetTabs(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resets++
	return nil
}

func resultPage(links ...string) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for _, l := range links {
		sb.WriteString(`<h3><a href="` + l + `">result</a></h3>`)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Output.ResultsFile = filepath.Join(dir, "results.tsv")
	cfg.Output.ReportFile = filepath.Join(dir, "report.csv")
	cfg.Search.PreferredDomains = []string{"instagram.com"}
	cfg.RateLimit.RequestsPerMinute = 600
	return cfg
}

func writeQueries(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queries.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644))
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestRunWritesOneRowPerQuery(t *testing.T) {
	cfg := testConfig(t)
	browser := newFakeBrowser(map[string]string{
		"https://duckduckgo.com/?q=nasa":  resultPage("https://www.instagram.com/nasa/"),
		"https://duckduckgo.com/?q=empty": "<html><body><p>no results</p></body></html>",
	})

	s := New(cfg, browser)
	input := writeQueries(t, "nasa", "empty")
	require.NoError(t, s.Run(context.Background(), input, RunOptions{}))

	lines := readLines(t, cfg.Output.ResultsFile)
	require.Len(t, lines, 2)
	assert.Equal(t, "nasa\thttps://www.instagram.com/nasa/", lines[0])
	assert.Equal(t, "empty\tERROR: no suitable link found", lines[1])
}

func TestRunSkipsBlankQueryLines(t *testing.T) {
	cfg := testConfig(t)
	browser := newFakeBrowser(map[string]string{
		"https://duckduckgo.com/?q=nasa": resultPage("https://www.instagram.com/nasa/"),
	})

	s := New(cfg, browser)
	input := writeQueries(t, "nasa", "", "   ", "")
	require.NoError(t, s.Run(context.Background(), input, RunOptions{}))

	lines := readLines(t, cfg.Output.ResultsFile)
	assert.Len(t, lines, 1)
}

func TestRunPrefersConfiguredDomain(t *testing.T) {
	cfg := testConfig(t)
	browser := newFakeBrowser(map[string]string{
		"https://duckduckgo.com/?q=nasa": resultPage(
			"https://en.wikipedia.org/wiki/NASA",
			"https://www.instagram.com/nasa/",
		),
	})

	s := New(cfg, browser)
	input := writeQueries(t, "nasa")
	require.NoError(t, s.Run(context.Background(), input, RunOptions{}))

	lines := readLines(t, cfg.Output.ResultsFile)
	assert.Equal(t, "nasa\thttps://www.instagram.com/nasa/", lines[0])
}

func TestRunClickModeFollowsLink(t *testing.T) {
	cfg := testConfig(t)
	cfg.Search.Click = true
	cfg.Search.SettleTimeout = time.Second

	browser := newFakeBrowser(map[string]string{
		"https://duckduckgo.com/?q=nasa": resultPage("https://www.instagram.com/nasa/"),
	})

	s := New(cfg, browser)
	input := writeQueries(t, "nasa")
	require.NoError(t, s.Run(context.Background(), input, RunOptions{}))

	lines := readLines(t, cfg.Output.ResultsFile)
	assert.Equal(t, "nasa\thttps://www.instagram.com/nasa/", lines[0])
}

func TestRunSentinelForUnreachableSearchPage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Retry.MaxAttempts = 1

	browser := newFakeBrowser(map[string]string{})
	s := New(cfg, browser)
	input := writeQueries(t, "nasa")
	require.NoError(t, s.Run(context.Background(), input, RunOptions{}))

	lines := readLines(t, cfg.Output.ResultsFile)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "nasa\tERROR: could not load search page:"), lines[0])
}

func TestRunResetsTabsBetweenQueries(t *testing.T) {
	cfg := testConfig(t)
	browser := newFakeBrowser(map[string]string{
		"https://duckduckgo.com/?q=a": resultPage("https://a.example/"),
		"https://duckduckgo.com/?q=b": resultPage("https://b.example/"),
	})

	s := New(cfg, browser)
	input := writeQueries(t, "a", "b")
	require.NoError(t, s.Run(context.Background(), input, RunOptions{}))
	assert.Equal(t, 2, browser.resets)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	cfg := testConfig(t)
	browser := newFakeBrowser(map[string]string{
		"https://duckduckgo.com/?q=nasa": resultPage("https://www.instagram.com/nasa/"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(cfg, browser)
	input := writeQueries(t, "nasa")
	err := s.Run(ctx, input, RunOptions{})
	require.Error(t, err)
	assert.Empty(t, browser.navigated)
}

func TestRunResumeSkipsCompletedQueries(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg := testConfig(t)
	input := writeQueries(t, "nasa", "spacex")

	mgr, err := checkpoint.NewManager(input)
	require.NoError(t, err)
	cp, err := mgr.Create(input, 2)
	require.NoError(t, err)
	require.NoError(t, mgr.MarkCompleted(cp, "nasa", "https://www.instagram.com/nasa/"))

	browser := newFakeBrowser(map[string]string{
		"https://duckduckgo.com/?q=spacex": resultPage("https://www.instagram.com/spacex/"),
	})

	s := New(cfg, browser)
	require.NoError(t, s.Run(context.Background(), input, RunOptions{Resume: true}))

	// Only the unfinished query hits the browser.
	require.Len(t, browser.navigated, 1)
	assert.Contains(t, browser.navigated[0], "q=spacex")
}

func TestRunResumeWithoutPriorCheckpoint(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg := testConfig(t)
	input := writeQueries(t, "nasa")

	browser := newFakeBrowser(map[string]string{
		"https://duckduckgo.com/?q=nasa": resultPage("https://www.instagram.com/nasa/"),
	})

	// A fresh checkpoint is created on the fly when none exists yet.
	s := New(cfg, browser)
	require.NoError(t, s.Run(context.Background(), input, RunOptions{Resume: true}))

	rows := readLines(t, cfg.Output.ResultsFile)
	require.Len(t, rows, 1)
	assert.Equal(t, "nasa\thttps://www.instagram.com/nasa/", rows[0])
}

func TestRunProfilesWritesReportRow(t *testing.T) {
	cfg := testConfig(t)
	browser := newFakeBrowser(map[string]string{
		"https://duckduckgo.com/?q=nasa": resultPage("https://www.instagram.com/nasa/"),
		"https://www.instagram.com/nasa/": `<html><head>
			<meta name="description" content="NASA explores the universe.">
		</head><body>
			<span><span>97.1M</span> followers</span>
			<span><span>81</span> following</span>
			<span><span>5412</span> posts</span>
		</body></html>`,
	})

	s := New(cfg, browser)
	input := writeQueries(t, "nasa")
	require.NoError(t, s.RunProfiles(context.Background(), input, RunOptions{}))

	lines := readLines(t, cfg.Output.ReportFile)
	require.Len(t, lines, 2)
	assert.Equal(t, "Query,Profile URL,Followers,Following,Posts,Bio", lines[0])
	assert.Equal(t, "nasa,https://www.instagram.com/nasa/,97.1M,81,5412,NASA explores the universe.", lines[1])
}

func TestRunProfilesRejectsNonProfileResult(t *testing.T) {
	cfg := testConfig(t)
	browser := newFakeBrowser(map[string]string{
		"https://duckduckgo.com/?q=nasa": resultPage("https://www.instagram.com/nasa/p/abc123/"),
	})

	s := New(cfg, browser)
	input := writeQueries(t, "nasa")
	require.NoError(t, s.RunProfiles(context.Background(), input, RunOptions{}))

	lines := readLines(t, cfg.Output.ReportFile)
	require.Len(t, lines, 2)
	// The resolved URL is recorded but no statistics are scraped.
	assert.Contains(t, lines[1], "https://www.instagram.com/nasa/p/abc123/")
	assert.Contains(t, lines[1], "N/A")
}
