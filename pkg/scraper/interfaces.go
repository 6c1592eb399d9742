package scraper

import (
	"context"
	"time"

	"serpgrab/pkg/serp"
)

// Browser is the browser-session surface the scraper drives. The
// session is created and closed by the caller; the scraper only
// borrows it, so teardown has a single owner.
type Browser interface {
	serp.Page

	// HTML returns a snapshot of the active tab's rendered document
	HTML(ctx context.Context) (string, error)

	// WaitForAny blocks until one of the selectors matches or the
	// timeout elapses
	WaitForAny(ctx context.Context, selectors []string, timeout time.Duration) error

	// ResetTabs closes every tab except the first and refocuses it
	ResetTabs(ctx context.Context) error
}
