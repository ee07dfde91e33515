// Command avis serves the scrape-and-summarize API: a review page URL goes
// in, a pros/cons summary with a visit/no-visit recommendation comes out.
package main

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/avis"
	"github.com/hazyhaar/avis/internal/requestlog"
	"github.com/hazyhaar/avis/internal/summarize"
	"github.com/hazyhaar/avis/shield"
)

//go:embed static
var staticFS embed.FS

func main() {
	port := env("PORT", "8080")
	logLevel := env("LOG_LEVEL", "info")
	configPath := env("CONFIG_FILE", "")
	logDBPath := env("REQUEST_LOG_DB", "db/requests.db")

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		slog.Error("GOOGLE_API_KEY or GEMINI_API_KEY is required")
		os.Exit(1)
	}

	cfg := &avis.Config{}
	if configPath != "" {
		var err error
		cfg, err = avis.LoadConfig(configPath)
		if err != nil {
			slog.Error("load config", "path", configPath, "error", err)
			os.Exit(1)
		}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		slog.Error("genai client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	// Model selection happens exactly once, here. The chosen model is
	// immutable for the process lifetime and injected into the generator.
	modelName := env("MODEL", "")
	if modelName == "" {
		modelName, err = summarize.PickModel(ctx, client)
		if err != nil {
			slog.Error("pick model", "error", err)
			os.Exit(1)
		}
	}
	slog.Info("model selected", "model", modelName)

	gen := summarize.New(client, summarize.Config{
		Model:           modelName,
		Temperature:     0,
		MaxOutputTokens: 300,
	}, summarize.WithLogger(logger))

	// Request log DB.
	if dir := filepath.Dir(logDBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("request log dir", "error", err)
			os.Exit(1)
		}
	}
	db, err := sql.Open("sqlite", logDBPath)
	if err != nil {
		slog.Error("request log db", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := requestlog.NewStore(db)
	if err := store.Init(); err != nil {
		slog.Error("request log init", "error", err)
		os.Exit(1)
	}

	svc := avis.New(gen, cfg, logger, avis.WithRequestLog(store))

	// Router.
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack() {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Post("/api/summarize", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		summary, err := svc.ScrapeAndSummarize(r.Context(), req.URL)
		switch {
		case errors.Is(err, avis.ErrMissingURL):
			writeJSON(w, 422, map[string]string{"error": "URL is required"})
		case err != nil:
			shield.GetLogger(r.Context()).Error("summarize failed", "error", err)
			writeError(w, 500, err)
		default:
			writeJSON(w, 200, map[string]string{"summary": summary})
		}
	})

	r.Get("/api/requests", func(w http.ResponseWriter, r *http.Request) {
		entries, err := store.Recent(r.Context(), queryInt(r, "limit", 50))
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, entries)
	})

	// SPA: index and static assets.
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		f, err := staticFS.Open("static/index.html")
		if err != nil {
			http.Error(w, "not found", 404)
			return
		}
		defer f.Close()
		io.Copy(w, f)
	})
	r.Handle("/static/*", http.FileServer(http.FS(staticFS)))

	// HTTP server. The write timeout covers the full pipeline: browser
	// launch, marker wait, per-review expansion waits, and generation.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      180 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// --- Helpers ---

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
