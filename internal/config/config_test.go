package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ajay-manwani/news-extraction/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoadServiceDefaults(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "")
	t.Setenv("SUMMARY_MODELS", "")
	t.Setenv("PIPELINE_MAX_ARTICLES", "")
	t.Setenv("RUN_DEADLINE", "")

	cfg, err := config.LoadService()
	require.NoError(t, err)

	require.Equal(t, "http://elasticsearch:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "podcasts", cfg.ArtifactIndex)
	require.Equal(t, "pipeline_runs", cfg.RunIndex)
	require.Equal(t, 20, cfg.MaxArticles)
	require.Equal(t, []string{"x-ai/grok-4-fast:free", "openai/gpt-3.5-turbo"}, cfg.SummaryModels)
	require.Equal(t, 8*time.Minute, cfg.RunDeadline)
	require.True(t, cfg.GeneratePodcast)
}

func TestLoadServiceOverrides(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://localhost:9999")
	t.Setenv("ELASTICSEARCH_ARTIFACT_INDEX", "casts")
	t.Setenv("PIPELINE_MAX_ARTICLES", "5")
	t.Setenv("FETCH_WORKERS", "2")
	t.Setenv("SUMMARY_MODELS", "model-a, model-b")
	t.Setenv("SUMMARY_WORKERS", "7")
	t.Setenv("TTS_CHUNK_CHARS", "1200")
	t.Setenv("DEDUPE_WINDOW", "48h")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("KAFKA_BROKERS", "broker-a:29092,broker-b:29093")
	t.Setenv("RUN_DEADLINE", "3m")
	t.Setenv("GENERATE_PODCAST", "false")

	cfg, err := config.LoadService()
	require.NoError(t, err)

	require.Equal(t, "http://localhost:9999", cfg.ElasticsearchAddr)
	require.Equal(t, "casts", cfg.ArtifactIndex)
	require.Equal(t, 5, cfg.MaxArticles)
	require.Equal(t, 2, cfg.FetchWorkers)
	require.Equal(t, []string{"model-a", "model-b"}, cfg.SummaryModels)
	require.Equal(t, 7, cfg.SummaryWorkers)
	require.Equal(t, 1200, cfg.TTSChunkChars)
	require.Equal(t, 48*time.Hour, cfg.DedupeWindow)
	require.Equal(t, "redis:6379", cfg.RedisAddr)
	require.Len(t, cfg.KafkaBrokers, 2)
	require.Equal(t, "broker-a:29092", cfg.KafkaBrokers[0])
	require.Equal(t, 3*time.Minute, cfg.RunDeadline)
	require.False(t, cfg.GeneratePodcast)
}

func TestLoadServiceRejectsBadValues(t *testing.T) {
	t.Setenv("PIPELINE_MAX_ARTICLES", "-1")

	_, err := config.LoadService()
	require.Error(t, err)
	require.Contains(t, err.Error(), "PIPELINE_MAX_ARTICLES")
}

func TestLoadRetention(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://ret-es:9200")
	t.Setenv("RETENTION_INTERVAL", "12h")
	t.Setenv("RETENTION_MAX_AGE", "36h")
	t.Setenv("RETENTION_BATCH_SIZE", "123")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)

	require.Equal(t, 12*time.Hour, cfg.Interval)
	require.Equal(t, 36*time.Hour, cfg.MaxAge)
	require.Equal(t, 123, cfg.BatchSize)
	require.Equal(t, "http://ret-es:9200", cfg.ElasticsearchAddr)
}

func TestLoadRetentionRejectsAgeBelowDeadline(t *testing.T) {
	t.Setenv("RETENTION_MAX_AGE", "2m")
	t.Setenv("RUN_DEADLINE", "8m")

	_, err := config.LoadRetention()
	require.Error(t, err)
	require.Contains(t, err.Error(), "RETENTION_MAX_AGE")
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	data := `sources:
  - name: alpha
    url: https://alpha.example/rss
    max_articles: 10
  - name: beta
    url: https://beta.example/rss
    disabled: true
  - name: gamma
    url: https://gamma.example/rss
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	sources, err := config.LoadSources(path)
	require.NoError(t, err)

	require.Len(t, sources, 2)
	require.Equal(t, "alpha", sources[0].Name)
	require.Equal(t, 10, sources[0].MaxArticles)
	require.Equal(t, "gamma", sources[1].Name)
	require.Equal(t, 50, sources[1].MaxArticles)
}

func TestLoadSourcesMissingFileUsesDefaults(t *testing.T) {
	sources, err := config.LoadSources(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, sources)
	for _, s := range sources {
		require.NotEmpty(t, s.Name)
		require.NotEmpty(t, s.URL)
	}
}

func TestLoadSourcesRejectsNameless(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources:\n  - url: https://x.example/rss\n"), 0o644))

	_, err := config.LoadSources(path)
	require.Error(t, err)
}
