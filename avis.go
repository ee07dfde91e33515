// Package avis turns a public review page into a short pros/cons judgment:
// a request-scoped headless browser session collects the review text, and
// a generative model condenses it into a visit/no-visit recommendation.
package avis

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/avis/internal/browser"
	"github.com/hazyhaar/avis/internal/extract"
	"github.com/hazyhaar/avis/internal/requestlog"
	"github.com/hazyhaar/avis/internal/summarize"
)

// Generator produces a summary from a composed prompt.
type Generator interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Service runs the scrape-and-summarize pipeline. Each call owns its own
// browser session; nothing is shared or mutated across requests.
type Service struct {
	cfg    *Config
	gen    Generator
	logger *slog.Logger
	log    *requestlog.Store
	client *http.Client

	// fetchReviews is the acquisition stage; swappable in tests.
	fetchReviews func(ctx context.Context, url string) ([]string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithRequestLog records one entry per pipeline run.
func WithRequestLog(store *requestlog.Store) Option {
	return func(s *Service) { s.log = store }
}

// WithHTTPClient sets the client used by the static-first fetch.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

// New creates the pipeline service.
func New(gen Generator, cfg *Config, logger *slog.Logger, opts ...Option) *Service {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		cfg:    cfg,
		gen:    gen,
		logger: logger,
		client: &http.Client{Timeout: cfg.FetchTimeout},
	}
	s.fetchReviews = s.collect
	for _, o := range opts {
		o(s)
	}
	return s
}

// ScrapeAndSummarize extracts the reviews behind url and returns the
// model's pros/cons summary. Fatal errors (navigation, extraction,
// generation) surface with their message; no partial or fabricated
// summary is ever produced.
func (s *Service) ScrapeAndSummarize(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", ErrMissingURL
	}

	start := time.Now()
	reviews, err := s.fetchReviews(ctx, url)
	if err != nil {
		s.record(ctx, url, 0, start, err)
		return "", err
	}

	// An empty collection still goes through generation: the model answers
	// from the bare instruction header.
	prompt := summarize.BuildPrompt(reviews)
	summary, err := s.gen.Summarize(ctx, prompt)
	if err != nil {
		s.record(ctx, url, len(reviews), start, err)
		return "", err
	}

	s.logger.Info("avis: summarized",
		"url", url, "reviews", len(reviews), "elapsed", time.Since(start))
	s.record(ctx, url, len(reviews), start, nil)
	return summary, nil
}

// collect acquires the page and extracts review text, optionally trying a
// static fetch before paying the browser launch cost. The session is
// released on every exit path.
func (s *Service) collect(ctx context.Context, url string) ([]string, error) {
	if s.cfg.StaticFirst {
		if reviews, ok := s.collectStatic(ctx, url); ok {
			return reviews, nil
		}
	}

	sess, err := browser.Open(ctx, s.cfg.Browser, url)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	x := extract.New(s.cfg.Extract, extract.WithLogger(s.logger))
	return x.Extract(ctx, extract.FromRod(sess.Page()))
}

// collectStatic fetches the raw HTML and extracts reviews without a
// browser. ok=false means the caller must escalate to a live session.
func (s *Service) collectStatic(ctx context.Context, url string) ([]string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("avis: static fetch failed", "url", url, "error", err)
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, false
	}

	html, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, false
	}
	if extract.NeedsBrowser(html) {
		return nil, false
	}
	reviews, err := extract.Static(html, s.cfg.Extract)
	if err != nil || len(reviews) == 0 {
		return nil, false
	}
	s.logger.Debug("avis: static path sufficient", "url", url, "reviews", len(reviews))
	return reviews, true
}

// record logs the run. A failing log store never fails the request.
func (s *Service) record(ctx context.Context, url string, count int, start time.Time, runErr error) {
	if s.log == nil {
		return
	}
	e := requestlog.Entry{
		URL:         url,
		Status:      "ok",
		ReviewCount: count,
		DurationMs:  time.Since(start).Milliseconds(),
	}
	if runErr != nil {
		e.Status = "failed"
		e.Error = runErr.Error()
	}
	if err := s.log.Record(ctx, e); err != nil {
		s.logger.Warn("avis: request log", "error", err)
	}
}
