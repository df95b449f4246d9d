package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ajay-manwani/news-extraction/internal/config"
	"github.com/ajay-manwani/news-extraction/internal/logger"
	"github.com/ajay-manwani/news-extraction/internal/metrics"
	"github.com/ajay-manwani/news-extraction/internal/models"
	"github.com/ajay-manwani/news-extraction/internal/pipeline"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadService()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	services, err := pipeline.FromConfig(cfg, log)
	if err != nil {
		log.Error("wire pipeline", slog.Any("err", err))
		os.Exit(1)
	}
	defer services.Close()

	srv := &server{log: log, cfg: cfg, services: services}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/process-news", srv.handleProcess)
	r.Get("/status", srv.handleStatus)
	r.Get("/health", srv.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	r.Handle("/podcasts/*", http.StripPrefix("/podcasts/", http.FileServer(http.Dir(services.Store.Dir()))))

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// a trigger request stays open for the whole run
		WriteTimeout: cfg.RunDeadline + time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

type server struct {
	log      *slog.Logger
	cfg      *config.Service
	services *pipeline.Services

	// one run at a time; a second trigger gets 409 instead of queueing
	runMu sync.Mutex
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var trigger pipeline.Trigger
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&trigger); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid trigger body: " + err.Error()})
			return
		}
	}

	if !s.runMu.TryLock() {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "a run is already in progress"})
		return
	}
	defer s.runMu.Unlock()

	run := s.services.Runner.Run(r.Context(), trigger)

	status := http.StatusOK
	if run.Status == models.RunFailed {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, run)
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out := map[string]any{
		"summary_models":   s.cfg.SummaryModels,
		"dedupe_window":    s.cfg.DedupeWindow.String(),
		"run_deadline":     s.cfg.RunDeadline.String(),
		"retention_window": s.cfg.RetentionMaxAge.String(),
		"sources":          len(s.services.Sources),
	}

	providers := []string{}
	if s.cfg.GoogleTTSKey != "" {
		providers = append(providers, "google")
	}
	if s.cfg.OpenAIKey != "" {
		providers = append(providers, "openai")
	}
	out["tts_providers"] = providers

	if err := s.services.Catalog.Health(ctx); err != nil {
		out["elasticsearch"] = "unreachable: " + err.Error()
	} else {
		out["elasticsearch"] = "ok"
	}

	if s.services.Redis != nil {
		if err := s.services.Redis.Ping(ctx); err != nil {
			out["redis"] = "unreachable: " + err.Error()
		} else {
			out["redis"] = "ok"
		}
	} else {
		out["redis"] = "not configured"
	}

	if count, size, err := s.services.Store.Stats(); err == nil {
		out["storage"] = map[string]any{"objects": count, "bytes": size}
	}

	if last, err := s.services.Catalog.LastRun(ctx); err == nil && last != nil {
		out["last_run"] = last
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.services.Catalog.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// nothing better to do
	}
}
