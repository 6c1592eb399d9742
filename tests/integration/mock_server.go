package integration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockSearchServer simulates a DuckDuckGo-style results page per query.
type MockSearchServer struct {
	server *httptest.Server

	mu      sync.Mutex
	pages   map[string]string // query → results page HTML
	watched map[string]int    // path → hit count
}

// NewMockSearchServer starts a server answering /?q=<query> with the
// registered page and /dest/<name> with a simple landing page.
func NewMockSearchServer() *MockSearchServer {
	s := &MockSearchServer{
		pages:   make(map[string]string),
		watched: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.watched[r.URL.Path]++
		page, ok := s.pages[r.URL.Query().Get("q")]
		s.mu.Unlock()

		if r.URL.Path != "/" || !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page)
	})
	mux.HandleFunc("/dest/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.watched[r.URL.Path]++
		s.mu.Unlock()

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><body><h1>landing %s</h1></body></html>", r.URL.Path)
	})

	s.server = httptest.NewServer(mux)
	return s
}

// SetResultsPage registers the HTML served for a query.
func (s *MockSearchServer) SetResultsPage(query, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[query] = html
}

// Hits reports how many times a path was requested.
func (s *MockSearchServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watched[path]
}

// URL returns the server's base URL with a trailing slash.
func (s *MockSearchServer) URL() string {
	return s.server.URL + "/"
}

// Host returns the server's host:port.
func (s *MockSearchServer) Host() string {
	u, _ := url.Parse(s.server.URL)
	return u.Host
}

// Close shuts the server down.
func (s *MockSearchServer) Close() {
	s.server.Close()
}

// httpBrowser satisfies the scraper's browser surface with plain HTTP
// fetches, standing in for a Chrome session.
type httpBrowser struct {
	client *http.Client

	mu      sync.Mutex
	current string
	body    string
	resets  int
}

func newHTTPBrowser() *httpBrowser {
	return &httpBrowser{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *httpBrowser) fetch(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.current = rawURL
	b.body = string(body)
	b.mu.Unlock()
	return nil
}

func (b *httpBrowser) Navigate(ctx context.Context, url string) error {
	return b.fetch(ctx, url)
}

func (b *httpBrowser) HTML(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.body, nil
}

func (b *httpBrowser) CurrentURL(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, nil
}

func (b *httpBrowser) TabCount(ctx context.Context) (int, error) { return 1, nil }

func (b *httpBrowser) SwitchToNewestTab(ctx context.Context) error { return nil }

func (b *httpBrowser) ClickLink(ctx context.Context, href string) error {
	return b.fetch(ctx, href)
}

func (b *httpBrowser) WaitForAny(ctx context.Context, selectors []string, timeout time.Duration) error {
	return nil
}

func (b *httpBrowser) ResetTabs(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resets++
	return nil
}
