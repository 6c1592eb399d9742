package serp

import (
	"context"
	"time"

	errs "serpgrab/pkg/errors"
	"serpgrab/pkg/logger"
)

// settlePoll is how often the resolver re-checks for a navigation
// outcome; it doubles as the cancellation checkpoint interval.
const settlePoll = 100 * time.Millisecond

// Page is the minimal browser surface the resolver needs
type Page interface {
	// CurrentURL returns the active tab's URL
	CurrentURL(ctx context.Context) (string, error)
	// TabCount returns the number of open tabs
	TabCount(ctx context.Context) (int, error)
	// SwitchToNewestTab makes the most recently opened tab active
	SwitchToNewestTab(ctx context.Context) error
	// ClickLink clicks the first anchor whose href attribute equals the given value
	ClickLink(ctx context.Context, href string) error
	// Navigate loads a URL directly in the active tab
	Navigate(ctx context.Context, url string) error
}

// Resolver turns a selected candidate into a final URL, either by
// reading its href (extract mode) or by opening it and watching what
// the browser does (navigate mode).
type Resolver struct {
	page          Page
	settleTimeout time.Duration
	log           logger.Logger
}

// NewResolver creates a resolver over the given page
func NewResolver(page Page, settleTimeout time.Duration) *Resolver {
	return &Resolver{
		page:          page,
		settleTimeout: settleTimeout,
		log:           logger.GetLogger(),
	}
}

// ExtractURL resolves a candidate without touching the page. Re-running
// it against an unchanged page yields the same URL.
func ExtractURL(candidates []Candidate, preferredDomains []string) (string, error) {
	c := Select(candidates, preferredDomains)
	if c == nil {
		return "", errs.New(errs.ErrorTypeNoCandidates, "select", "no suitable link found")
	}
	return c.URL, nil
}

// Open clicks the candidate and waits for the navigation to settle:
// either a new tab appears (the resolver attaches to it) or the current
// URL changes. On timeout it returns whatever URL is current. Element
// failures degrade to a direct page load; nothing here propagates an
// error to the caller.
func (r *Resolver) Open(ctx context.Context, c *Candidate) string {
	beforeURL, _ := r.page.CurrentURL(ctx)
	beforeTabs, _ := r.page.TabCount(ctx)

	if err := r.page.ClickLink(ctx, c.ClickHref()); err != nil {
		r.log.WithError(err).Debug("click failed, loading target directly")
		if err := r.page.Navigate(ctx, c.URL); err != nil {
			r.log.WithError(err).Warn("direct navigation failed")
		}
	}

	deadline := time.Now().Add(r.settleTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return r.bestKnownURL(ctx, beforeURL)
		case <-time.After(settlePoll):
		}

		if tabs, err := r.page.TabCount(ctx); err == nil && tabs > beforeTabs {
			if err := r.page.SwitchToNewestTab(ctx); err != nil {
				r.log.WithError(err).Debug("failed to switch to new tab")
			}
			return r.bestKnownURL(ctx, beforeURL)
		}

		if u, err := r.page.CurrentURL(ctx); err == nil && u != "" && u != beforeURL && u != "about:blank" {
			return u
		}
	}

	// No observable change within the timeout; a no-op navigation is
	// reported as the unchanged URL.
	return r.bestKnownURL(ctx, beforeURL)
}

func (r *Resolver) bestKnownURL(ctx context.Context, fallback string) string {
	if u, err := r.page.CurrentURL(ctx); err == nil && u != "" {
		return u
	}
	return fallback
}
