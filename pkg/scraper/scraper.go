package scraper

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"serpgrab/pkg/checkpoint"
	"serpgrab/pkg/config"
	errs "serpgrab/pkg/errors"
	"serpgrab/pkg/instagram"
	"serpgrab/pkg/logger"
	"serpgrab/pkg/queries"
	"serpgrab/pkg/ratelimit"
	"serpgrab/pkg/report"
	"serpgrab/pkg/retry"
	"serpgrab/pkg/serp"
	"serpgrab/pkg/ui"
)

// Scraper orchestrates the per-query search and resolution flow
type Scraper struct {
	browser   Browser
	collector *serp.Collector
	resolver  *serp.Resolver
	limiter   ratelimit.Limiter
	config    *config.Config
	logger    logger.Logger
}

// RunOptions control checkpoint behavior for a run
type RunOptions struct {
	Resume       bool
	ForceRestart bool
}

// New creates a Scraper driving the given browser session
func New(cfg *config.Config, b Browser) *Scraper {
	rpm := cfg.RateLimit.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}

	return &Scraper{
		browser:   b,
		collector: serp.NewCollector(cfg.Search.EngineHost, cfg.Search.BaseURL),
		resolver:  serp.NewResolver(b, cfg.Search.SettleTimeout),
		limiter:   ratelimit.NewTokenBucket(rpm, time.Minute),
		config:    cfg,
		logger:    logger.GetLogger(),
	}
}

// Run resolves every query in inputFile and appends one tab-separated
// line per query to the results file. A query that cannot be resolved
// produces a sentinel line, never a missing one.
func (s *Scraper) Run(ctx context.Context, inputFile string, opts RunOptions) error {
	qs, err := queries.ReadFile(inputFile)
	if err != nil {
		return err
	}

	log := s.logger.WithField("input", inputFile)
	log.InfoWithFields("starting run", map[string]interface{}{
		"queries": len(qs),
		"click":   s.config.Search.Click,
	})

	results, err := report.NewTSVLog(s.config.Output.ResultsFile)
	if err != nil {
		return err
	}
	defer results.Close()

	mgr, cp, err := s.prepareCheckpoint(inputFile, len(qs), opts)
	if err != nil {
		return err
	}

	tracker := ui.NewStatusTracker(len(qs))
	for _, query := range qs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cp != nil && cp.IsCompleted(query) {
			tracker.MarkSkipped()
			continue
		}

		record := s.resolveToRecord(ctx, query, tracker)
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := results.Append(query, record); err != nil {
			return err
		}
		if cp != nil {
			if err := mgr.MarkCompleted(cp, query, record); err != nil {
				log.WithError(err).Warn("failed to update checkpoint")
			}
		}
		tracker.PrintProgress()

		if err := s.betweenQueries(ctx); err != nil {
			return err
		}
	}

	tracker.PrintSummary()
	if cp != nil && tracker.Done() >= len(qs) {
		if err := mgr.Delete(); err != nil {
			log.WithError(err).Debug("failed to remove finished checkpoint")
		}
	}
	return nil
}

// RunProfiles resolves every query, expects the winning URL to be an
// Instagram profile, and appends the scraped statistics to the CSV
// report. Queries whose result is not a profile URL still get a row
// with unavailable fields.
func (s *Scraper) RunProfiles(ctx context.Context, inputFile string, opts RunOptions) error {
	qs, err := queries.ReadFile(inputFile)
	if err != nil {
		return err
	}

	log := s.logger.WithField("input", inputFile)
	log.InfoWithFields("starting profile run", map[string]interface{}{
		"queries": len(qs),
	})

	reportFile, err := report.NewCSVReport(s.config.Output.ReportFile)
	if err != nil {
		return err
	}
	defer reportFile.Close()

	mgr, cp, err := s.prepareCheckpoint(inputFile, len(qs), opts)
	if err != nil {
		return err
	}

	tracker := ui.NewStatusTracker(len(qs))
	for _, query := range qs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cp != nil && cp.IsCompleted(query) {
			tracker.MarkSkipped()
			continue
		}

		rec := s.scrapeProfileRecord(ctx, query, tracker)
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := reportFile.Append(rec); err != nil {
			return err
		}
		if cp != nil {
			if err := mgr.MarkCompleted(cp, query, rec.ProfileURL); err != nil {
				log.WithError(err).Warn("failed to update checkpoint")
			}
		}
		tracker.PrintProgress()

		if err := s.betweenQueries(ctx); err != nil {
			return err
		}
	}

	tracker.PrintSummary()
	if cp != nil && tracker.Done() >= len(qs) {
		if err := mgr.Delete(); err != nil {
			log.WithError(err).Debug("failed to remove finished checkpoint")
		}
	}
	return nil
}

// resolveToRecord turns one query into the string written to the
// results file, rendering failures as sentinel markers.
func (s *Scraper) resolveToRecord(ctx context.Context, query string, tracker *ui.StatusTracker) string {
	result, err := s.ResolveQuery(ctx, query)
	if err == nil {
		tracker.MarkResolved()
		return result
	}

	tracker.MarkFailed()
	s.logger.WarnWithFields("query failed", map[string]interface{}{
		"query": query,
		"error": err.Error(),
	})

	var typed *errs.Error
	if !errors.As(err, &typed) {
		typed = errs.New(errs.ErrorTypeUnknown, "resolve", err.Error())
	}
	return typed.Sentinel()
}

// scrapeProfileRecord resolves one query and scrapes the resulting
// profile page. Every failure mode degrades to unavailable fields.
func (s *Scraper) scrapeProfileRecord(ctx context.Context, query string, tracker *ui.StatusTracker) report.ProfileRecord {
	rec := report.NewProfileRecord(query)

	result, err := s.ResolveQuery(ctx, query)
	if err != nil {
		tracker.MarkFailed()
		s.logger.WarnWithFields("query failed", map[string]interface{}{
			"query": query,
			"error": err.Error(),
		})
		return rec
	}

	rec.ProfileURL = result
	if !instagram.IsProfileURL(result) {
		tracker.MarkFailed()
		s.logger.WarnWithFields("result is not a profile url", map[string]interface{}{
			"query": query,
			"url":   result,
		})
		return rec
	}

	if err := s.browser.Navigate(ctx, result); err != nil {
		tracker.MarkFailed()
		s.logger.WithError(err).Warn("failed to open profile page")
		return rec
	}

	html, err := s.browser.HTML(ctx)
	if err != nil {
		tracker.MarkFailed()
		s.logger.WithError(err).Warn("failed to snapshot profile page")
		return rec
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		tracker.MarkFailed()
		s.logger.WithError(err).Warn("failed to parse profile page")
		return rec
	}

	profile := instagram.ScrapeProfile(result, doc)
	rec.Followers = profile.Followers
	rec.Following = profile.Following
	rec.Posts = profile.Posts
	rec.Bio = profile.Bio

	tracker.MarkResolved()
	return rec
}

// ResolveQuery performs the search for one query and returns the
// winning result URL.
func (s *Scraper) ResolveQuery(ctx context.Context, query string) (string, error) {
	searchURL, err := s.searchURL(query)
	if err != nil {
		return "", err
	}

	if err := retry.Do(func() error {
		return s.browser.Navigate(ctx, searchURL)
	}, s.retryConfig(ctx)); err != nil {
		return "", err
	}

	// A timeout here is not fatal; whatever rendered gets inspected.
	if err := s.browser.WaitForAny(ctx, serp.ResultWaitSelectors(), s.config.Search.ResultWait); err != nil {
		return "", err
	}

	html, err := s.browser.HTML(ctx)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", errs.Newf(errs.ErrorTypeParsing, "collect", "parsing result page: %v", err)
	}

	candidates := s.collector.Collect(doc)
	prefs := s.config.Search.PreferredDomains

	if !s.config.Search.Click {
		return serp.ExtractURL(candidates, prefs)
	}

	chosen := serp.Select(candidates, prefs)
	if chosen == nil {
		return "", errs.New(errs.ErrorTypeNoCandidates, "select", "no candidate links on result page")
	}
	return s.resolver.Open(ctx, chosen), nil
}

// betweenQueries resets tab state and paces the next query.
func (s *Scraper) betweenQueries(ctx context.Context) error {
	if err := s.browser.ResetTabs(ctx); err != nil {
		s.logger.WithError(err).Debug("failed to reset tabs")
	}
	return s.limiter.WaitContext(ctx)
}

func (s *Scraper) searchURL(query string) (string, error) {
	u, err := url.Parse(s.config.Search.BaseURL)
	if err != nil {
		return "", errs.Newf(errs.ErrorTypeUnknown, "search", "invalid base url %q: %v", s.config.Search.BaseURL, err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Scraper) retryConfig(ctx context.Context) *retry.Config {
	cfg := retry.DefaultConfig()
	cfg.Context = ctx
	cfg.Logger = s.logger
	if s.config.Retry.MaxAttempts > 0 {
		cfg.MaxAttempts = s.config.Retry.MaxAttempts
	}
	if s.config.Retry.BaseDelay > 0 {
		cfg.Backoff = &retry.ExponentialBackoff{
			BaseDelay:    s.config.Retry.BaseDelay,
			MaxDelay:     s.config.Retry.MaxDelay,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		}
	}
	return cfg
}

// prepareCheckpoint loads or creates the checkpoint for this input
// file. Checkpointing is skipped entirely unless requested.
func (s *Scraper) prepareCheckpoint(inputFile string, total int, opts RunOptions) (*checkpoint.Manager, *checkpoint.Checkpoint, error) {
	if !opts.Resume && !opts.ForceRestart {
		return nil, nil, nil
	}

	mgr, err := checkpoint.NewManager(inputFile)
	if err != nil {
		return nil, nil, err
	}

	if opts.ForceRestart {
		if err := mgr.Delete(); err != nil {
			s.logger.WithError(err).Debug("no checkpoint to remove")
		}
		cp, err := mgr.Create(inputFile, total)
		return mgr, cp, err
	}

	cp, err := mgr.Load()
	if err != nil || cp == nil {
		cp, err = mgr.Create(inputFile, total)
		if err != nil {
			return nil, nil, err
		}
		return mgr, cp, nil
	}

	s.logger.InfoWithFields("resuming from checkpoint", map[string]interface{}{
		"completed": cp.TotalCompleted,
		"total":     cp.TotalQueries,
	})
	return mgr, cp, nil
}
