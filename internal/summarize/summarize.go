// Package summarize composes review prompts and invokes the Gemini text
// generation API with fixed decoding parameters.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
)

// ErrGeneration is returned when the generation call fails, times out, or
// returns no usable candidate. Fatal to the request and never retried: a
// transient provider failure surfaces directly to the caller.
var ErrGeneration = errors.New("summarize: generation failed")

// Config carries the immutable per-call generation parameters.
type Config struct {
	// Model is the catalog model name, resolved once at startup by PickModel.
	Model string

	// Temperature stays at 0 so repeated runs over the same reviews are as
	// close to deterministic as the provider allows.
	Temperature float32

	MaxOutputTokens int32

	Timeout time.Duration
}

func (c *Config) defaults() {
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = 300
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
}

// Generator invokes the generation API with a fixed model and config.
type Generator struct {
	client *genai.Client
	cfg    Config
	logger *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// New creates a Generator bound to an already selected model.
func New(client *genai.Client, cfg Config, opts ...Option) *Generator {
	cfg.defaults()
	g := &Generator{client: client, cfg: cfg, logger: slog.Default()}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Summarize sends the prompt and returns the model's text unmodified.
func (g *Generator) Summarize(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	model := g.client.GenerativeModel(g.cfg.Model)
	model.SetTemperature(g.cfg.Temperature)
	model.SetMaxOutputTokens(g.cfg.MaxOutputTokens)

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	text := candidateText(resp)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrGeneration)
	}
	g.logger.Debug("summarize: generated",
		"model", g.cfg.Model, "prompt_len", len(prompt), "elapsed", time.Since(start))
	return text, nil
}

// candidateText concatenates the text parts of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
