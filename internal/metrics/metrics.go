package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsTotal counts finished pipeline runs by terminal status.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_runs_total",
		Help: "Finished pipeline runs by terminal status.",
	}, []string{"status"})

	// ArticlesFetched counts articles selected by the aggregator.
	ArticlesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_articles_fetched_total",
		Help: "Articles selected for processing.",
	})

	// SummariesTotal counts summarization outcomes by model and status.
	SummariesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_summaries_total",
		Help: "Summarization outcomes by model and status.",
	}, []string{"model", "status"})

	// ChunksSynthesized counts synthesized audio chunks by provider.
	ChunksSynthesized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_tts_chunks_total",
		Help: "Synthesized audio chunks by provider.",
	}, []string{"provider"})

	// RunDuration observes wall-clock run time in seconds.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_run_duration_seconds",
		Help:    "Wall-clock duration of pipeline runs.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
