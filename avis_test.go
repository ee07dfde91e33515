package avis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/avis/internal/browser"
	"github.com/hazyhaar/avis/internal/requestlog"
	"github.com/hazyhaar/avis/internal/summarize"
)

// fakeGen records the prompt it received and returns a canned summary.
type fakeGen struct {
	prompt string
	calls  int
	err    error
}

func (g *fakeGen) Summarize(_ context.Context, prompt string) (string, error) {
	g.calls++
	g.prompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return "Pros: everything. Cons: nothing. Visit.", nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScrapeAndSummarize_MissingURL(t *testing.T) {
	gen := &fakeGen{}
	svc := New(gen, nil, discard())

	_, err := svc.ScrapeAndSummarize(context.Background(), "")
	if !errors.Is(err, ErrMissingURL) {
		t.Fatalf("got %v, want ErrMissingURL", err)
	}
	if gen.calls != 0 {
		t.Error("generator must not run without a URL")
	}
}

func TestScrapeAndSummarize_HappyPath(t *testing.T) {
	gen := &fakeGen{}
	svc := New(gen, nil, discard())
	svc.fetchReviews = func(context.Context, string) ([]string, error) {
		return []string{"loved it", "hated it"}, nil
	}

	summary, err := svc.ScrapeAndSummarize(context.Background(), "https://example.com/place")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary == "" {
		t.Error("expected a summary")
	}
	if !strings.Contains(gen.prompt, "loved it") || !strings.Contains(gen.prompt, "hated it") {
		t.Errorf("prompt must contain the reviews: %q", gen.prompt)
	}
	if strings.Index(gen.prompt, "loved it") > strings.Index(gen.prompt, "hated it") {
		t.Error("reviews must appear in collection order")
	}
}

func TestScrapeAndSummarize_NavigationErrorPropagates(t *testing.T) {
	gen := &fakeGen{}
	svc := New(gen, nil, discard())
	svc.fetchReviews = func(context.Context, string) ([]string, error) {
		return nil, fmt.Errorf("%w: marker never appeared", browser.ErrNavigation)
	}

	summary, err := svc.ScrapeAndSummarize(context.Background(), "https://example.com/place")
	if !errors.Is(err, browser.ErrNavigation) {
		t.Fatalf("got %v, want ErrNavigation", err)
	}
	if summary != "" {
		t.Error("no summary on a fatal navigation error")
	}
	if gen.calls != 0 {
		t.Error("no prompt is composed after a navigation failure")
	}
}

func TestScrapeAndSummarize_GenerationErrorPropagates(t *testing.T) {
	gen := &fakeGen{err: fmt.Errorf("%w: empty response", summarize.ErrGeneration)}
	svc := New(gen, nil, discard())
	svc.fetchReviews = func(context.Context, string) ([]string, error) {
		return []string{"one review"}, nil
	}

	summary, err := svc.ScrapeAndSummarize(context.Background(), "https://example.com/place")
	if !errors.Is(err, summarize.ErrGeneration) {
		t.Fatalf("got %v, want ErrGeneration", err)
	}
	if summary != "" {
		t.Error("no partial summary on generation failure")
	}
	if gen.calls != 1 {
		t.Errorf("generation is single-attempt, got %d calls", gen.calls)
	}
}

func TestScrapeAndSummarize_EmptyCollectionStillSummarizes(t *testing.T) {
	gen := &fakeGen{}
	svc := New(gen, nil, discard())
	svc.fetchReviews = func(context.Context, string) ([]string, error) {
		return []string{}, nil
	}

	if _, err := svc.ScrapeAndSummarize(context.Background(), "https://example.com/place"); err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if gen.calls != 1 {
		t.Fatal("generator must still be invoked for an empty collection")
	}
	if gen.prompt != summarize.BuildPrompt(nil) {
		t.Errorf("expected the bare instruction header, got %q", gen.prompt)
	}
}

func TestScrapeAndSummarize_RecordsRuns(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "requests.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	store := requestlog.NewStore(db)
	if err := store.Init(); err != nil {
		t.Fatalf("init store: %v", err)
	}

	gen := &fakeGen{}
	svc := New(gen, nil, discard(), WithRequestLog(store))
	svc.fetchReviews = func(context.Context, string) ([]string, error) {
		return []string{"fine"}, nil
	}
	if _, err := svc.ScrapeAndSummarize(context.Background(), "https://example.com/ok"); err != nil {
		t.Fatalf("summarize: %v", err)
	}

	svc.fetchReviews = func(context.Context, string) ([]string, error) {
		return nil, fmt.Errorf("%w: unreachable", browser.ErrNavigation)
	}
	if _, err := svc.ScrapeAndSummarize(context.Background(), "https://example.com/down"); err == nil {
		t.Fatal("expected a navigation error")
	}

	entries, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	var ok, failed bool
	for _, e := range entries {
		switch e.Status {
		case "ok":
			ok = e.ReviewCount == 1
		case "failed":
			failed = strings.Contains(e.Error, "navigation")
		}
	}
	if !ok || !failed {
		t.Errorf("expected one ok and one failed entry, got %+v", entries)
	}
}
