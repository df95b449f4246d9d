package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/ajay-manwani/news-extraction/internal/catalog"
	"github.com/ajay-manwani/news-extraction/internal/config"
	"github.com/ajay-manwani/news-extraction/internal/dedupe"
	"github.com/ajay-manwani/news-extraction/internal/delivery"
	"github.com/ajay-manwani/news-extraction/internal/feeds"
	"github.com/ajay-manwani/news-extraction/internal/storage"
	"github.com/ajay-manwani/news-extraction/internal/summarize"
	"github.com/ajay-manwani/news-extraction/internal/synthesis"
)

// Services bundles the wired pipeline with the handles the binaries need
// directly: the store for static serving and sweeps, the catalog and redis
// index for status reporting.
type Services struct {
	Runner  *Runner
	Store   *storage.FileStore
	Catalog *catalog.Client
	Redis   *dedupe.Redis
	Events  *delivery.Events
	Sources []config.Source
}

// FromConfig assembles the full pipeline from service configuration.
// Optional integrations (Redis, Kafka, Telegram) are wired only when
// configured.
func FromConfig(cfg *config.Service, log *slog.Logger) (*Services, error) {
	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}

	svc := &Services{Sources: sources}

	var index dedupe.Index
	if cfg.RedisAddr != "" {
		svc.Redis = dedupe.NewRedis(cfg.RedisAddr, cfg.DedupeWindow)
		index = svc.Redis
	} else {
		index = dedupe.NewMemory(cfg.DedupeCapacity, cfg.DedupeWindow)
		log.Warn("no REDIS_ADDR configured, dedupe state will not survive restarts")
	}

	fetcher := feeds.NewFetcher(sources, index, cfg.FetchTimeout, cfg.FetchWorkers, cfg.MinBodyChars, log)

	chat := summarize.NewClient(cfg.OpenRouterURL, cfg.OpenRouterKey, cfg.SummaryTimeout)
	engine := summarize.NewEngine(chat, cfg.SummaryModels, cfg.SummaryMaxChars, cfg.SummaryRetries, cfg.SummaryWorkers, log)

	var providers []synthesis.Provider
	if cfg.GoogleTTSKey != "" {
		providers = append(providers, synthesis.NewGoogle(cfg.GoogleTTSKey, cfg.GoogleTTSVoice, "", cfg.TTSTimeout))
	}
	if cfg.OpenAIKey != "" {
		providers = append(providers, synthesis.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIVoice, "", cfg.TTSTimeout))
	}
	synth := synthesis.NewEngine(providers, cfg.TTSRetries, log)

	svc.Store, err = storage.NewFileStore(cfg.AudioDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, err
	}

	svc.Catalog, err = catalog.New(cfg.ElasticsearchAddr, cfg.ArtifactIndex, cfg.RunIndex, log)
	if err != nil {
		return nil, err
	}

	var notifier Notifier
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		notifier = delivery.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, "", cfg.FetchTimeout, log)
	} else {
		log.Warn("telegram not configured, runs will not be delivered")
	}

	var publisher Publisher
	if len(cfg.KafkaBrokers) > 0 {
		svc.Events = delivery.NewEvents(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		publisher = svc.Events
	}

	svc.Runner = NewRunner(fetcher, engine, synth, svc.Store, svc.Catalog, notifier, publisher, Options{
		MaxArticles:     cfg.MaxArticles,
		GeneratePodcast: cfg.GeneratePodcast,
		ChunkChars:      cfg.TTSChunkChars,
		Deadline:        cfg.RunDeadline,
	}, log)

	return svc, nil
}

// Close releases the optional connections.
func (s *Services) Close() {
	if s.Events != nil {
		_ = s.Events.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
}
