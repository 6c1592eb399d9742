// Package browser wraps a chromedp-driven Chrome session behind the
// small surface the rest of the application needs: navigation, HTML
// snapshots, tab management, and link clicks.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"serpgrab/pkg/config"
	errs "serpgrab/pkg/errors"
	"serpgrab/pkg/logger"
)

const pollInterval = 100 * time.Millisecond

// Session owns an allocated Chrome process and the chromedp context
// pointing at its active tab. All methods are safe for use from a
// single goroutine; Close may be called from another.
type Session struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu        sync.Mutex
	tabCtx    context.Context
	tabCancel context.CancelFunc
	firstTab  target.ID
	knownTabs map[target.ID]bool
	closed    bool

	pageLoadTimeout time.Duration
	log             logger.Logger
}

// NewSession launches Chrome and opens the initial tab. The returned
// session must be closed with Close to reap the browser process.
func NewSession(ctx context.Context, cfg config.BrowserConfig) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Force the browser process to start now so a missing Chrome
	// binary surfaces here instead of on the first Navigate.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, &errs.Error{
			Type:    errs.ErrorTypeBrowser,
			Stage:   "launch",
			Message: fmt.Sprintf("starting chrome: %v", err),
		}
	}

	firstTab := chromedp.FromContext(tabCtx).Target.TargetID
	s := &Session{
		allocCtx:        allocCtx,
		allocCancel:     allocCancel,
		tabCtx:          tabCtx,
		tabCancel:       tabCancel,
		firstTab:        firstTab,
		knownTabs:       map[target.ID]bool{firstTab: true},
		pageLoadTimeout: cfg.PageLoadTimeout,
		log:             logger.GetLogger(),
	}
	return s, nil
}

// Navigate loads url in the active tab, bounded by the configured
// page-load timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	tabCtx := s.active()
	if tabCtx == nil {
		return sessionClosedErr("navigate")
	}

	runCtx, cancel := s.bounded(ctx, tabCtx)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypePageLoad,
			Stage:   "navigate",
			Message: fmt.Sprintf("loading %s: %v", url, err),
		}
	}
	return nil
}

// HTML returns a snapshot of the active tab's rendered document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	tabCtx := s.active()
	if tabCtx == nil {
		return "", sessionClosedErr("snapshot")
	}

	runCtx, cancel := s.bounded(ctx, tabCtx)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return "", &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Stage:   "snapshot",
			Message: fmt.Sprintf("capturing page html: %v", err),
		}
	}
	return html, nil
}

// CurrentURL reports the active tab's location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	tabCtx := s.active()
	if tabCtx == nil {
		return "", sessionClosedErr("location")
	}

	var url string
	if err := chromedp.Run(tabCtx, chromedp.Location(&url)); err != nil {
		return "", &errs.Error{
			Type:    errs.ErrorTypeBrowser,
			Stage:   "location",
			Message: fmt.Sprintf("reading location: %v", err),
		}
	}
	return url, nil
}

// TabCount reports how many page targets the browser currently has.
func (s *Session) TabCount(ctx context.Context) (int, error) {
	tabCtx := s.active()
	if tabCtx == nil {
		return 0, sessionClosedErr("targets")
	}

	targets, err := chromedp.Targets(tabCtx)
	if err != nil {
		return 0, &errs.Error{
			Type:    errs.ErrorTypeBrowser,
			Stage:   "targets",
			Message: fmt.Sprintf("listing targets: %v", err),
		}
	}
	return countPages(targets), nil
}

// SwitchToNewestTab points the session at the most recently opened
// page target. Subsequent calls operate on that tab.
func (s *Session) SwitchToNewestTab(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sessionClosedErr("switch")
	}

	targets, err := chromedp.Targets(s.tabCtx)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeBrowser,
			Stage:   "switch",
			Message: fmt.Sprintf("listing targets: %v", err),
		}
	}

	newest := pickNewTab(targets, s.knownTabs, s.firstTab)
	if newest == nil {
		return &errs.Error{
			Type:    errs.ErrorTypeBrowser,
			Stage:   "switch",
			Message: "no page targets available",
		}
	}

	newCtx, newCancel := chromedp.NewContext(s.allocCtx, chromedp.WithTargetID(newest.TargetID))
	if err := chromedp.Run(newCtx); err != nil {
		newCancel()
		return &errs.Error{
			Type:    errs.ErrorTypeBrowser,
			Stage:   "switch",
			Message: fmt.Sprintf("attaching to tab: %v", err),
		}
	}

	s.tabCancel()
	s.tabCtx = newCtx
	s.tabCancel = newCancel
	s.log.DebugWithFields("switched to newest tab", map[string]interface{}{
		"target_id": string(newest.TargetID),
	})
	return nil
}

// ResetTabs closes every page target except the original tab and
// reattaches the session to it. Called between queries so stray
// result tabs do not accumulate.
func (s *Session) ResetTabs(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sessionClosedErr("reset")
	}

	targets, err := chromedp.Targets(s.tabCtx)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeBrowser,
			Stage:   "reset",
			Message: fmt.Sprintf("listing targets: %v", err),
		}
	}

	for _, t := range targets {
		if t.Type != "page" || t.TargetID == s.firstTab {
			continue
		}
		extraCtx, extraCancel := chromedp.NewContext(s.allocCtx, chromedp.WithTargetID(t.TargetID))
		if err := chromedp.Cancel(extraCtx); err != nil {
			s.log.WarnWithFields("failed to close extra tab", map[string]interface{}{
				"target_id": string(t.TargetID),
				"error":     err.Error(),
			})
		}
		extraCancel()
	}

	if chromedp.FromContext(s.tabCtx).Target.TargetID != s.firstTab {
		newCtx, newCancel := chromedp.NewContext(s.allocCtx, chromedp.WithTargetID(s.firstTab))
		if err := chromedp.Run(newCtx); err != nil {
			newCancel()
			return &errs.Error{
				Type:    errs.ErrorTypeBrowser,
				Stage:   "reset",
				Message: fmt.Sprintf("reattaching to first tab: %v", err),
			}
		}
		s.tabCancel()
		s.tabCtx = newCtx
		s.tabCancel = newCancel
	}
	s.knownTabs = map[target.ID]bool{s.firstTab: true}
	return nil
}

// ClickLink clicks the first anchor whose href attribute equals href.
// The page-target set is snapshotted first so a tab the click opens can
// be told apart from the tabs that were already there.
func (s *Session) ClickLink(ctx context.Context, href string) error {
	tabCtx := s.active()
	if tabCtx == nil {
		return sessionClosedErr("click")
	}
	s.snapshotTabs(tabCtx)

	runCtx, cancel := s.bounded(ctx, tabCtx)
	defer cancel()

	sel := fmt.Sprintf("a[href=%q]", href)
	if err := chromedp.Run(runCtx, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeNavigation,
			Stage:   "click",
			Message: fmt.Sprintf("clicking %s: %v", href, err),
		}
	}
	return nil
}

// WaitForAny polls until at least one of the selectors matches an
// element or the timeout elapses. Timing out is not an error; the
// caller inspects whatever the page holds either way.
func (s *Session) WaitForAny(ctx context.Context, selectors []string, timeout time.Duration) error {
	tabCtx := s.active()
	if tabCtx == nil {
		return sessionClosedErr("wait")
	}

	deadline := time.Now().Add(timeout)
	for {
		var found bool
		for _, sel := range selectors {
			var n int
			err := chromedp.Run(tabCtx, chromedp.Evaluate(
				fmt.Sprintf("document.querySelectorAll(%q).length", sel), &n,
			))
			if err == nil && n > 0 {
				found = true
				break
			}
		}
		if found || time.Now().After(deadline) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Run executes chromedp actions against the active tab. Domain flows
// with page interactions beyond this wrapper's surface use it.
func (s *Session) Run(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx := s.active()
	if tabCtx == nil {
		return sessionClosedErr("run")
	}

	runCtx, cancel := s.bounded(ctx, tabCtx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Close tears down the tab and the browser process. Safe to call more
// than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.tabCancel()
	s.allocCancel()
}

func (s *Session) active() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.tabCtx
}

// bounded derives a run context honoring both the caller's context and
// the page-load timeout.
func (s *Session) bounded(ctx context.Context, tabCtx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(tabCtx, s.pageLoadTimeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// snapshotTabs records the current set of page targets. Best effort;
// pickNewTab degrades to a positional choice when the set is stale.
func (s *Session) snapshotTabs(tabCtx context.Context) {
	targets, err := chromedp.Targets(tabCtx)
	if err != nil {
		return
	}
	known := make(map[target.ID]bool, len(targets))
	for _, t := range targets {
		if t.Type == "page" {
			known[t.TargetID] = true
		}
	}
	s.mu.Lock()
	s.knownTabs = known
	s.mu.Unlock()
}

// pickNewTab chooses the page target to attach to after a navigation:
// the one absent from the pre-action snapshot, else the last listed
// target that is not the original tab.
func pickNewTab(targets []*target.Info, known map[target.ID]bool, first target.ID) *target.Info {
	var fallback *target.Info
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if !known[t.TargetID] {
			return t
		}
		if fallback == nil || t.TargetID != first {
			fallback = t
		}
	}
	return fallback
}

func countPages(targets []*target.Info) int {
	n := 0
	for _, t := range targets {
		if t.Type == "page" {
			n++
		}
	}
	return n
}

func sessionClosedErr(stage string) error {
	return &errs.Error{
		Type:    errs.ErrorTypeBrowser,
		Stage:   stage,
		Message: "browser session is closed",
	}
}
