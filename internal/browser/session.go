// Package browser owns the headless rendering context for a single
// summarization request: launch, stealth page, navigation, marker wait,
// and guaranteed release of the Chrome process.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// ErrNavigation is returned when the page cannot be loaded or the expected
// review content never appears within the timeout. Fatal to the request:
// no partial extraction happens after it.
var ErrNavigation = errors.New("browser: navigation failed")

// Config configures a browser session.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string `yaml:"remote"`

	// MarkerSelector is the element whose presence signals that the review
	// widget has finished its initial load.
	MarkerSelector string `yaml:"marker_selector"`

	// ViewportWidth and ViewportHeight. A tall narrow viewport maximises
	// the vertically stacked review content rendered on first paint.
	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`

	NavTimeout    time.Duration `yaml:"nav_timeout"`
	MarkerTimeout time.Duration `yaml:"marker_timeout"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 800
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 3200
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.MarkerTimeout <= 0 {
		c.MarkerTimeout = 45 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session is a request-scoped headless Chrome instance with one open page.
// Sessions are never pooled or reused: each request pays the full launch
// cost and stays isolated from every other request.
type Session struct {
	page    *rod.Page
	browser *rod.Browser
	stop    func() // terminates launched Chrome and removes its temp dir
	logger  *slog.Logger
	closed  bool
}

// Open launches Chrome, navigates to pageURL, and waits for the marker
// element. On failure everything already acquired is released before the
// error is returned, so callers only need to Close a non-nil Session.
func Open(ctx context.Context, cfg Config, pageURL string) (*Session, error) {
	cfg.defaults()
	s := &Session{logger: cfg.Logger}

	wsURL := cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("%w: launch: %v", ErrNavigation, err)
		}
		s.stop = func() {
			// Cleanup blocks until the Chrome process has exited, and the
			// CDP close alone cannot guarantee that once the request
			// context is cancelled. Kill the process first.
			l.Kill()
			l.Cleanup()
		}
		wsURL = u
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		s.release()
		return nil, fmt.Errorf("%w: connect: %v", ErrNavigation, err)
	}
	s.browser = b

	page, err := stealth.Page(b)
	if err != nil {
		s.release()
		return nil, fmt.Errorf("%w: create page: %v", ErrNavigation, err)
	}
	s.page = page

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		s.release()
		return nil, fmt.Errorf("%w: viewport: %v", ErrNavigation, err)
	}

	navCtx, cancelNav := context.WithTimeout(ctx, cfg.NavTimeout)
	defer cancelNav()
	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		s.release()
		return nil, fmt.Errorf("%w: navigate %s: %v", ErrNavigation, pageURL, err)
	}
	// Load timeout alone is not fatal: the marker wait below decides.
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	if cfg.MarkerSelector != "" {
		markerCtx, cancelMarker := context.WithTimeout(ctx, cfg.MarkerTimeout)
		defer cancelMarker()
		if _, err := page.Context(markerCtx).Element(cfg.MarkerSelector); err != nil {
			s.release()
			return nil, fmt.Errorf("%w: marker %q never appeared on %s: %v",
				ErrNavigation, cfg.MarkerSelector, pageURL, err)
		}
	}

	cfg.Logger.Debug("browser: page ready", "url", pageURL)
	return s, nil
}

// Page returns the navigated page.
func (s *Session) Page() *rod.Page { return s.page }

// Close releases the page, the browser connection, and the launched Chrome
// process. Idempotent; the pipeline defers it so release happens on every
// exit path, including after extraction or generation errors.
func (s *Session) Close() {
	if s == nil || s.closed {
		return
	}
	s.closed = true
	s.release()
}

func (s *Session) release() {
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			s.logger.Debug("browser: page close", "error", err)
		}
		s.page = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.logger.Debug("browser: browser close", "error", err)
		}
		s.browser = nil
	}
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}
