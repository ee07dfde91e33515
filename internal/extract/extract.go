// Package extract locates review containers on a rendered page, expands
// truncated text behind "show more" controls best-effort, and collects the
// review strings in document order.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Page is the subset of a rendered page the extractor needs.
type Page interface {
	// Elements returns all elements matching selector, in document order.
	// It never waits for elements to appear.
	Elements(selector string) ([]Element, error)

	// ScrollBottom scrolls the page to its current bottom.
	ScrollBottom() error
}

// Element is a DOM node the extractor can inspect and drive.
type Element interface {
	// Find returns the first matching descendant, or ok=false when absent.
	// It never waits.
	Find(selector string) (el Element, ok bool, err error)

	Click() error

	// WaitStable blocks until the element stops changing, bounded by d.
	WaitStable(d time.Duration) error

	Text() (string, error)
}

// Config configures the extractor. Selectors are site-specific and come
// from the service configuration.
type Config struct {
	// ContainerSelector matches one element per review.
	ContainerSelector string `yaml:"container_selector"`

	// MoreSelector matches the "show more" control inside a container.
	MoreSelector string `yaml:"more_selector"`

	// TextSelector matches the review body inside a container. When absent
	// from a container, the container's own text is used.
	TextSelector string `yaml:"text_selector"`

	// ExpandWait bounds the wait for expanded text to render after a
	// "show more" click.
	ExpandWait time.Duration `yaml:"expand_wait"`

	// MaxScrolls > 0 enables a bounded scroll loop that reveals lazily
	// loaded reviews before extraction. Zero keeps only the containers
	// present once the page marker appeared.
	MaxScrolls int `yaml:"max_scrolls"`

	// ScrollSettle is how long to wait after each scroll for new
	// containers to render.
	ScrollSettle time.Duration `yaml:"scroll_settle"`
}

func (c *Config) defaults() {
	if c.ExpandWait <= 0 {
		c.ExpandWait = 5 * time.Second
	}
	if c.ScrollSettle <= 0 {
		c.ScrollSettle = 2 * time.Second
	}
}

var errNoControl = errors.New("no expand control")

// Extractor walks review containers and collects their text.
type Extractor struct {
	cfg    Config
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(x *Extractor) { x.logger = l }
}

// New creates an Extractor.
func New(cfg Config, opts ...Option) *Extractor {
	cfg.defaults()
	x := &Extractor{cfg: cfg, logger: slog.Default()}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Extract returns the review texts in document order, one entry per
// container; an unreadable container keeps its slot as an empty string.
// Zero containers is an empty result, not an error. A failed expansion on
// one container never affects any other container.
func (x *Extractor) Extract(ctx context.Context, p Page) ([]string, error) {
	els, err := x.locate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("extract: locate containers: %w", err)
	}

	reviews := make([]string, 0, len(els))
	for i, el := range els {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		if err := x.expand(el); err != nil {
			// Best effort: a missing or stuck "show more" control leaves
			// the truncated text in place and moves on.
			x.logger.Debug("extract: expansion skipped", "index", i, "reason", err)
		}
		text, err := x.readText(el)
		if err != nil {
			// The entry still occupies its slot so positions line up with
			// the containers on the page.
			x.logger.Warn("extract: unreadable container", "index", i, "error", err)
		}
		reviews = append(reviews, strings.TrimSpace(text))
	}
	return reviews, nil
}

// locate returns the review containers, running the optional scroll loop
// first. The loop stops early when the container count is stable across
// two successive scrolls.
func (x *Extractor) locate(ctx context.Context, p Page) ([]Element, error) {
	els, err := p.Elements(x.cfg.ContainerSelector)
	if err != nil {
		return nil, err
	}
	if x.cfg.MaxScrolls <= 0 {
		return els, nil
	}

	prev := len(els)
	for i := 0; i < x.cfg.MaxScrolls; i++ {
		if err := p.ScrollBottom(); err != nil {
			x.logger.Debug("extract: scroll failed", "error", err)
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(x.cfg.ScrollSettle):
		}
		els, err = p.Elements(x.cfg.ContainerSelector)
		if err != nil {
			return nil, err
		}
		if len(els) == prev {
			break
		}
		prev = len(els)
	}
	return els, nil
}

func (x *Extractor) expand(el Element) error {
	if x.cfg.MoreSelector == "" {
		return errNoControl
	}
	more, ok, err := el.Find(x.cfg.MoreSelector)
	if err != nil {
		return fmt.Errorf("find control: %w", err)
	}
	if !ok {
		return errNoControl
	}
	if err := more.Click(); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	if err := el.WaitStable(x.cfg.ExpandWait); err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	return nil
}

func (x *Extractor) readText(el Element) (string, error) {
	if x.cfg.TextSelector != "" {
		if body, ok, err := el.Find(x.cfg.TextSelector); err == nil && ok {
			return body.Text()
		}
	}
	return el.Text()
}
