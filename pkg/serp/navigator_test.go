package serp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "serpgrab/pkg/errors"
)

// fakePage simulates the browser surface the resolver drives
type fakePage struct {
	mu         sync.Mutex
	currentURL string
	tabs       int
	newTabURL  string
	clickErr   error
	clicked    []string
	navigated  []string

	// afterClick mutates state when the click lands, simulating what
	// the page does in response
	afterClick func(p *fakePage)
}

func (p *fakePage) CurrentURL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentURL, nil
}

func (p *fakePage) TabCount(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tabs, nil
}

func (p *fakePage) SwitchToNewestTab(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.newTabURL != "" {
		p.currentURL = p.newTabURL
	}
	return nil
}

func (p *fakePage) ClickLink(ctx context.Context, href string) error {
	p.mu.Lock()
	p.clicked = append(p.clicked, href)
	clickErr := p.clickErr
	after := p.afterClick
	p.mu.Unlock()

	if clickErr != nil {
		return clickErr
	}
	if after != nil {
		p.mu.Lock()
		after(p)
		p.mu.Unlock()
	}
	return nil
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, url)
	p.currentURL = url
	return nil
}

func TestExtractURLReturnsSelectedHref(t *testing.T) {
	got, err := ExtractURL(threeCandidates(), []string{"b.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://b.com/profile", got)

	// Extraction mutates nothing: running it again gives the same URL.
	again, err := ExtractURL(threeCandidates(), []string{"b.com"})
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestExtractURLNoCandidatesSentinel(t *testing.T) {
	_, err := ExtractURL(nil, nil)
	require.Error(t, err)

	var typed *errs.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, errs.ErrorTypeNoCandidates, typed.Type)
	assert.Equal(t, "ERROR: no suitable link found", typed.Sentinel())
}

func TestOpenClicksRawAnchorHref(t *testing.T) {
	page := &fakePage{
		currentURL: "https://duckduckgo.com/?q=nasa",
		tabs:       1,
		afterClick: func(p *fakePage) { p.currentURL = "https://www.instagram.com/nasa/" },
	}

	// The live anchor still carries the engine's redirect href; the
	// click has to match that attribute, not the unwrapped target.
	cand := Candidate{
		URL:  "https://www.instagram.com/nasa/",
		Href: "//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.instagram.com%2Fnasa%2F",
		Tier: TierResultLink,
	}

	r := NewResolver(page, time.Second)
	got := r.Open(context.Background(), &cand)

	assert.Equal(t, "https://www.instagram.com/nasa/", got)
	require.Len(t, page.clicked, 1)
	assert.Equal(t, cand.Href, page.clicked[0])
	assert.Empty(t, page.navigated)
}

func TestOpenDetectsURLChange(t *testing.T) {
	page := &fakePage{
		currentURL: "https://duckduckgo.com/?q=nasa",
		tabs:       1,
		afterClick: func(p *fakePage) { p.currentURL = "https://www.instagram.com/nasa/" },
	}

	r := NewResolver(page, time.Second)
	cand := NewCandidate("https://www.instagram.com/nasa/", TierHeading)
	got := r.Open(context.Background(), &cand)

	assert.Equal(t, "https://www.instagram.com/nasa/", got)
}

func TestOpenSwitchesToNewTab(t *testing.T) {
	page := &fakePage{
		currentURL: "https://duckduckgo.com/?q=nasa",
		tabs:       1,
		newTabURL:  "https://www.instagram.com/nasa/",
		afterClick: func(p *fakePage) { p.tabs = 2 },
	}

	r := NewResolver(page, time.Second)
	cand := NewCandidate("https://www.instagram.com/nasa/", TierHeading)
	got := r.Open(context.Background(), &cand)

	assert.Equal(t, "https://www.instagram.com/nasa/", got)
}

func TestOpenFallsBackToDirectNavigationOnClickFailure(t *testing.T) {
	page := &fakePage{
		currentURL: "https://duckduckgo.com/?q=nasa",
		tabs:       1,
		clickErr:   errors.New("element not interactable"),
	}

	r := NewResolver(page, time.Second)
	cand := NewCandidate("https://www.instagram.com/nasa/", TierHeading)
	got := r.Open(context.Background(), &cand)

	assert.Equal(t, []string{"https://www.instagram.com/nasa/"}, page.navigated)
	assert.Equal(t, "https://www.instagram.com/nasa/", got)
}

func TestOpenTimeoutReturnsCurrentURL(t *testing.T) {
	// Click succeeds but nothing changes: a no-op navigation reports
	// the unchanged URL rather than an error.
	page := &fakePage{
		currentURL: "https://duckduckgo.com/?q=nasa",
		tabs:       1,
	}

	r := NewResolver(page, 300*time.Millisecond)
	cand := NewCandidate("https://www.instagram.com/nasa/", TierHeading)
	got := r.Open(context.Background(), &cand)

	assert.Equal(t, "https://duckduckgo.com/?q=nasa", got)
}

func TestOpenReturnsPromptlyOnCancellation(t *testing.T) {
	page := &fakePage{
		currentURL: "https://duckduckgo.com/?q=nasa",
		tabs:       1,
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := NewResolver(page, time.Hour)
	cand := NewCandidate("https://www.instagram.com/nasa/", TierHeading)

	done := make(chan string, 1)
	go func() {
		done <- r.Open(ctx, &cand)
	}()
	cancel()

	select {
	case got := <-done:
		assert.Equal(t, "https://duckduckgo.com/?q=nasa", got)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Open did not return promptly after cancellation")
	}
}
