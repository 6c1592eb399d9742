package instagram

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"serpgrab/pkg/config"
	errs "serpgrab/pkg/errors"
	"serpgrab/pkg/logger"
)

const loginURL = "https://www.instagram.com/accounts/login/"

// BrowserRunner is the slice of the browser session the login flow
// needs.
type BrowserRunner interface {
	Navigate(ctx context.Context, url string) error
	Run(ctx context.Context, actions ...chromedp.Action) error
}

// Login signs the browser session into Instagram with the configured
// account. Logged-in sessions see full profile statistics; anonymous
// sessions hit login walls after a few profile views.
//
// When no credentials are configured Login is a no-op.
func Login(ctx context.Context, b BrowserRunner, cfg config.InstagramConfig) error {
	if cfg.Username == "" || cfg.Password == "" {
		logger.GetLogger().Debug("no instagram credentials configured, scraping anonymously")
		return nil
	}

	log := logger.GetLogger().WithField("username", cfg.Username)
	log.Info("logging in to instagram")

	if err := b.Navigate(ctx, loginURL); err != nil {
		return err
	}

	err := b.Run(ctx,
		chromedp.WaitVisible(`input[name="username"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="username"]`, cfg.Username, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="password"]`, cfg.Password, chromedp.ByQuery),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		// The login form stays in the DOM briefly after submit; give
		// the redirect time to land before the first profile visit.
		chromedp.Sleep(3*time.Second),
	)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeNavigation,
			Stage:   "login",
			Message: fmt.Sprintf("instagram login failed: %v", err),
		}
	}

	log.Info("instagram login submitted")
	return nil
}
