package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Common contains settings shared by every service.
type Common struct {
	ElasticsearchAddr string
	ArtifactIndex     string
	RunIndex          string
	AudioDir          string
}

// Service holds configuration for the pipeline, used by the api and
// worker binaries.
type Service struct {
	Common

	SourcesPath  string
	MaxArticles  int
	FetchTimeout time.Duration
	FetchWorkers int
	MinBodyChars int

	DedupeWindow   time.Duration
	DedupeCapacity int
	RedisAddr      string

	OpenRouterKey   string
	OpenRouterURL   string
	SummaryModels   []string
	SummaryMaxChars int
	SummaryTimeout  time.Duration
	SummaryWorkers  int
	SummaryRetries  int

	GoogleTTSKey   string
	GoogleTTSVoice string
	OpenAIKey      string
	OpenAIVoice    string
	TTSChunkChars  int
	TTSTimeout     time.Duration
	TTSRetries     int

	PublicBaseURL  string
	TelegramToken  string
	TelegramChatID string
	KafkaBrokers   []string
	KafkaTopic     string

	RunDeadline     time.Duration
	GeneratePodcast bool
	RunInterval     time.Duration
	BindAddr        string
	RetentionMaxAge time.Duration
}

// Retention configures the artifact cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

// Source describes one configured feed endpoint. Declaration order matters:
// it breaks ties between articles that share a published timestamp.
type Source struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	MaxArticles int    `yaml:"max_articles"`
	Disabled    bool   `yaml:"disabled"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadService builds a Service config from environment variables.
func LoadService() (*Service, error) {
	c := &Service{
		Common:       loadCommon(),
		SourcesPath:  getEnv("SOURCES_CONFIG", "config/sources.yaml"),
		MaxArticles:  getInt("PIPELINE_MAX_ARTICLES", 20),
		FetchTimeout: getDuration("FETCH_TIMEOUT", "15s"),
		FetchWorkers: getInt("FETCH_WORKERS", 4),
		MinBodyChars: getInt("FETCH_MIN_BODY_CHARS", 80),

		DedupeWindow:   getDuration("DEDUPE_WINDOW", "72h"),
		DedupeCapacity: getInt("DEDUPE_CAPACITY", 10000),
		RedisAddr:      getEnv("REDIS_ADDR", ""),

		OpenRouterKey:   getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterURL:   getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		SummaryModels:   splitAndTrim(getEnv("SUMMARY_MODELS", "x-ai/grok-4-fast:free,openai/gpt-3.5-turbo")),
		SummaryMaxChars: getInt("SUMMARY_MAX_CHARS", 600),
		SummaryTimeout:  getDuration("SUMMARY_TIMEOUT", "30s"),
		SummaryWorkers:  getInt("SUMMARY_WORKERS", 3),
		SummaryRetries:  getInt("SUMMARY_RETRIES", 2),

		GoogleTTSKey:   getEnv("GOOGLE_TTS_API_KEY", ""),
		GoogleTTSVoice: getEnv("GOOGLE_TTS_VOICE", "en-US-Standard-F"),
		OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIVoice:    getEnv("OPENAI_TTS_VOICE", "alloy"),
		TTSChunkChars:  getInt("TTS_CHUNK_CHARS", 4500),
		TTSTimeout:     getDuration("TTS_TIMEOUT", "90s"),
		TTSRetries:     getInt("TTS_RETRIES", 2),

		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080/podcasts"),
		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "podcast_runs"),

		RunDeadline:     getDuration("RUN_DEADLINE", "8m"),
		GeneratePodcast: getBool("GENERATE_PODCAST", true),
		RunInterval:     getDuration("RUN_INTERVAL", "24h"),
		BindAddr:        getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		RetentionMaxAge: getDuration("RETENTION_MAX_AGE", "168h"),
	}

	if c.MaxArticles <= 0 {
		return nil, fmt.Errorf("PIPELINE_MAX_ARTICLES must be positive")
	}
	if c.FetchWorkers <= 0 {
		return nil, fmt.Errorf("FETCH_WORKERS must be positive")
	}
	if c.SummaryWorkers <= 0 {
		return nil, fmt.Errorf("SUMMARY_WORKERS must be positive")
	}
	if len(c.SummaryModels) == 0 {
		return nil, fmt.Errorf("SUMMARY_MODELS must list at least one model")
	}
	if c.TTSChunkChars <= 0 {
		return nil, fmt.Errorf("TTS_CHUNK_CHARS must be positive")
	}
	if c.DedupeWindow <= 0 {
		return nil, fmt.Errorf("DEDUPE_WINDOW must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("DEDUPE_CAPACITY must be positive")
	}
	if c.RunDeadline <= 0 {
		return nil, fmt.Errorf("RUN_DEADLINE must be positive")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:    loadCommon(),
		Interval:  getDuration("RETENTION_INTERVAL", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "168h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}

	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_INTERVAL must be positive")
	}

	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	// the sweep must never be able to reach an artifact a run could
	// still be writing
	if deadline := getDuration("RUN_DEADLINE", "8m"); c.MaxAge < deadline {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be at least the run deadline %s", deadline)
	}

	return c, nil
}

// LoadSources reads the ordered feed list from the YAML file at path.
// A missing file falls back to the built-in defaults.
func LoadSources(path string) ([]Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultSources(), nil
		}
		return nil, fmt.Errorf("read sources file %s: %w", path, err)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}

	out := make([]Source, 0, len(f.Sources))
	for _, s := range f.Sources {
		if s.Disabled {
			continue
		}
		if s.Name == "" || s.URL == "" {
			return nil, fmt.Errorf("sources file %s: every source needs a name and a url", path)
		}
		if s.MaxArticles <= 0 {
			s.MaxArticles = 50
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("sources file %s: no enabled sources", path)
	}
	return out, nil
}

func defaultSources() []Source {
	return []Source{
		{Name: "economic_times", URL: "https://economictimes.indiatimes.com/rssfeedsdefault.cms", MaxArticles: 50},
		{Name: "times_of_india", URL: "https://timesofindia.indiatimes.com/rssfeedstopstories.cms", MaxArticles: 50},
		{Name: "techcrunch", URL: "http://feeds.feedburner.com/TechCrunch/", MaxArticles: 50},
	}
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr: getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ArtifactIndex:     getEnv("ELASTICSEARCH_ARTIFACT_INDEX", "podcasts"),
		RunIndex:          getEnv("ELASTICSEARCH_RUN_INDEX", "pipeline_runs"),
		AudioDir:          getEnv("AUDIO_DIR", "podcasts"),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
