package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ajay-manwani/news-extraction/internal/config"
	"github.com/ajay-manwani/news-extraction/internal/logger"
	"github.com/ajay-manwani/news-extraction/internal/models"
	"github.com/ajay-manwani/news-extraction/internal/pipeline"
)

type runStarter interface {
	Run(ctx context.Context, trigger pipeline.Trigger) *models.PipelineRun
}

func main() {
	log := logger.New("worker")
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	log.Info("worker started",
		slog.Duration("interval", cfg.RunInterval),
		slog.Duration("deadline", cfg.RunDeadline),
	)

	runLoop(ctx, services.Runner, cfg.RunInterval, log)
	log.Info("worker stopped")
}

// runLoop executes one run immediately, then one per interval tick, until
// the context ends.
func runLoop(ctx context.Context, runner runStarter, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce(ctx, runner, log)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce(ctx, runner, log)
		}
	}
}

func runOnce(ctx context.Context, runner runStarter, log *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	run := runner.Run(ctx, pipeline.Trigger{})
	if run.Status == models.RunFailed {
		log.Warn("scheduled run failed (will retry on next interval)", slog.String("run", run.ID), slog.String("error", run.Error))
	}
}
