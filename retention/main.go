package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ajay-manwani/news-extraction/internal/catalog"
	"github.com/ajay-manwani/news-extraction/internal/config"
	"github.com/ajay-manwani/news-extraction/internal/logger"
	"github.com/ajay-manwani/news-extraction/internal/storage"
)

func main() {
	log := logger.New("retention")
	cfg, err := config.LoadRetention()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	store, err := storage.NewFileStore(cfg.AudioDir, "")
	if err != nil {
		log.Error("open audio store", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Retry Elasticsearch connection with backoff
	var catalogClient *catalog.Client
	maxRetries := 10
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		catalogClient, err = catalog.New(cfg.ElasticsearchAddr, cfg.ArtifactIndex, cfg.RunIndex, log)
		if err != nil {
			log.Warn("failed to create catalog client, retrying",
				slog.Any("err", err),
				slog.Int("attempt", i+1),
				slog.Int("max_retries", maxRetries),
			)
		} else {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if pingErr := catalogClient.Health(pingCtx); pingErr == nil {
				cancel()
				break
			} else {
				log.Warn("elasticsearch ping failed, retrying",
					slog.Any("err", pingErr),
					slog.Int("attempt", i+1),
					slog.Int("max_retries", maxRetries),
					slog.Duration("retry_in", retryDelay),
				)
			}
			cancel()
		}

		select {
		case <-time.After(retryDelay):
			// Continue to next attempt
		case <-ctx.Done():
			log.Info("shutdown signal received during startup")
			os.Exit(0)
		}
		retryDelay *= 2 // Exponential backoff
		if retryDelay > 30*time.Second {
			retryDelay = 30 * time.Second
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if catalogClient == nil || catalogClient.Health(pingCtx) != nil {
		log.Error("failed to connect to elasticsearch after retries")
		os.Exit(1)
	}

	log.Info("connected to elasticsearch")

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info("retention job running",
		slog.Duration("interval", cfg.Interval),
		slog.Duration("max_age", cfg.MaxAge),
	)

	// Run immediately on start, then on every tick
	runOnce(ctx, log, store, catalogClient, cfg)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		case <-ticker.C:
			runOnce(ctx, log, store, catalogClient, cfg)
		}
	}
}

// runOnce sweeps expired audio objects, then the matching catalog
// documents. Both sides are idempotent, so a crash between the two is
// repaired by the next pass.
func runOnce(ctx context.Context, log *slog.Logger, store *storage.FileStore, catalogClient *catalog.Client, cfg *config.Retention) {
	subCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	removed, err := storage.Sweep(store, cfg.MaxAge, time.Now(), log)
	if err != nil {
		log.Warn("audio sweep failed (will retry on next interval)", slog.Any("err", err))
	}

	deleted, err := catalogClient.DeleteArtifactsOlderThan(subCtx, cfg.MaxAge, cfg.BatchSize)
	if err != nil {
		log.Warn("catalog sweep failed (will retry on next interval)", slog.Any("err", err))
		return
	}

	if removed > 0 || deleted > 0 {
		log.Info("retention run completed", slog.Int("objects_removed", removed), slog.Int64("documents_deleted", deleted))
	} else {
		log.Debug("retention run completed, nothing expired")
	}
}
