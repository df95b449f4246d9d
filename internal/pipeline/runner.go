package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ajay-manwani/news-extraction/internal/feeds"
	"github.com/ajay-manwani/news-extraction/internal/metrics"
	"github.com/ajay-manwani/news-extraction/internal/models"
	"github.com/ajay-manwani/news-extraction/internal/storage"
	"github.com/ajay-manwani/news-extraction/internal/synthesis"
)

// Aggregator selects fresh articles from the configured feeds.
type Aggregator interface {
	Fetch(ctx context.Context, maxArticles int) (*feeds.Report, error)
}

// Summarizer produces one result per article, input order preserved.
type Summarizer interface {
	Summarize(ctx context.Context, articles []models.Article) []models.SummaryResult
}

// Synthesizer renders a chunked script into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, chunks []models.ScriptChunk) (*synthesis.Result, error)
}

// Store persists the final audio object.
type Store interface {
	Put(name string, data []byte) (string, error)
}

// Catalog records artifacts and run reports.
type Catalog interface {
	IndexArtifact(ctx context.Context, artifact models.PodcastArtifact) error
	IndexRun(ctx context.Context, run models.PipelineRun) error
}

// Notifier delivers the finished run to subscribers.
type Notifier interface {
	SendRun(ctx context.Context, run models.PipelineRun) error
}

// Publisher emits run completion events.
type Publisher interface {
	PublishRunCompleted(ctx context.Context, run models.PipelineRun) error
}

// Options configure the runner's defaults; Trigger overrides them per run.
type Options struct {
	MaxArticles     int
	GeneratePodcast bool
	ChunkChars      int
	Deadline        time.Duration
}

// Trigger is one run request. Nil fields fall back to the defaults.
type Trigger struct {
	MaxArticles     *int  `json:"max_articles"`
	GeneratePodcast *bool `json:"generate_podcast"`
}

// Runner drives one pipeline execution end to end: fetch, summarize,
// synthesize, store, deliver. Catalog, notifier, and publisher may be nil;
// those stages are then skipped.
type Runner struct {
	agg       Aggregator
	sum       Summarizer
	synth     Synthesizer
	store     Store
	catalog   Catalog
	notifier  Notifier
	publisher Publisher
	opts      Options
	log       *slog.Logger
}

// NewRunner wires a runner.
func NewRunner(agg Aggregator, sum Summarizer, synth Synthesizer, store Store, catalog Catalog, notifier Notifier, publisher Publisher, opts Options, log *slog.Logger) *Runner {
	return &Runner{
		agg:       agg,
		sum:       sum,
		synth:     synth,
		store:     store,
		catalog:   catalog,
		notifier:  notifier,
		publisher: publisher,
		opts:      opts,
		log:       log,
	}
}

// Run executes one pipeline pass and always returns a complete report,
// even when the run fails. Individual article or source failures never
// abort the run; only stage-level failures do.
func (r *Runner) Run(ctx context.Context, trigger Trigger) *models.PipelineRun {
	started := time.Now().UTC()
	run := &models.PipelineRun{
		ID:              uuid.NewString(),
		StartedAt:       started,
		MaxArticles:     r.opts.MaxArticles,
		GeneratePodcast: r.opts.GeneratePodcast,
	}
	if trigger.MaxArticles != nil && *trigger.MaxArticles > 0 {
		run.MaxArticles = *trigger.MaxArticles
	}
	if trigger.GeneratePodcast != nil {
		run.GeneratePodcast = *trigger.GeneratePodcast
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Deadline)
	defer cancel()

	log := r.log.With("run", run.ID)
	log.Info("run started", "max_articles", run.MaxArticles, "generate_podcast", run.GeneratePodcast)

	r.execute(ctx, run, log)

	run.SkippedTotal = len(run.Skipped)
	run.FinishedAt = time.Now().UTC()
	metrics.RunsTotal.WithLabelValues(string(run.Status)).Inc()
	metrics.RunDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())

	r.finish(run, log)

	log.Info("run finished",
		"status", run.Status,
		"fetched", run.Fetched,
		"summarized", run.Summarized,
		"skipped", run.SkippedTotal,
		"artifact", run.ArtifactURL,
		"duration", run.FinishedAt.Sub(run.StartedAt))
	return run
}

func (r *Runner) execute(ctx context.Context, run *models.PipelineRun, log *slog.Logger) {
	log.Info("stage change", "state", models.StateFetching)
	report, err := r.agg.Fetch(ctx, run.MaxArticles)
	if err != nil {
		r.fail(run, "fetch articles: "+err.Error())
		return
	}
	run.Fetched = len(report.Articles)
	run.DedupeSkips = report.DedupeSkips
	run.SourceErrors = report.SourceErrors
	metrics.ArticlesFetched.Add(float64(run.Fetched))

	if run.Fetched == 0 {
		// nothing new is a legitimate outcome, not a failure
		run.Status = models.RunSuccess
		if len(run.SourceErrors) > 0 {
			run.Status = models.RunPartial
		}
		return
	}

	log.Info("stage change", "state", models.StateSummarizing)
	results := r.sum.Summarize(ctx, report.Articles)
	accepted := make([]models.SummaryResult, 0, len(results))
	for _, res := range results {
		metrics.SummariesTotal.WithLabelValues(res.Model, string(res.Status)).Inc()
		if res.Status == models.SummaryAccepted {
			accepted = append(accepted, res)
			continue
		}
		run.Skipped = append(run.Skipped, models.SkippedArticle{ArticleID: res.ArticleID, Reason: res.Reason})
	}
	run.Summarized = len(accepted)

	if !run.GeneratePodcast {
		run.Status = deriveStatus(run)
		return
	}
	if run.Summarized == 0 {
		r.fail(run, "no article could be summarized")
		return
	}

	log.Info("stage change", "state", models.StateSynthesizing)
	script := synthesis.Build(accepted, run.StartedAt)
	chunks := script.Chunks(r.opts.ChunkChars)

	audio, err := r.synth.Synthesize(ctx, chunks)
	if err != nil {
		// missing audio degrades the run, it does not void the summaries
		switch {
		case errors.Is(err, synthesis.ErrExhausted):
			run.Error = err.Error()
			run.Status = models.RunPartial
		case errors.Is(err, context.DeadlineExceeded):
			run.Truncated = true
			run.Error = "run deadline reached before any audio was produced"
			run.Status = models.RunPartial
		default:
			r.fail(run, "synthesize script: "+err.Error())
		}
		return
	}
	for _, seg := range audio.Segments {
		metrics.ChunksSynthesized.WithLabelValues(seg.Provider).Inc()
	}
	run.DegradedSynth = audio.Degraded
	run.Truncated = audio.Truncated
	run.AudioDuration = audio.Duration

	log.Info("stage change", "state", models.StateStoring)
	objectName := storage.ObjectName(run.ID, run.StartedAt)
	url, err := r.store.Put(objectName, audio.Audio)
	if err != nil {
		r.fail(run, "store artifact: "+err.Error())
		return
	}

	artifact := models.PodcastArtifact{
		ID:         uuid.NewString(),
		ObjectName: objectName,
		URL:        url,
		CreatedAt:  time.Now().UTC(),
		Duration:   audio.Duration,
		SizeBytes:  int64(len(audio.Audio)),
		ArticleIDs: audio.ArticleIDs,
		Degraded:   audio.Degraded,
		Truncated:  audio.Truncated,
	}
	run.ArtifactID = artifact.ID
	run.ArtifactURL = url

	if r.catalog != nil {
		if err := r.catalog.IndexArtifact(ctx, artifact); err != nil {
			log.Warn("artifact catalog write failed", "error", err)
		}
	}

	run.Status = deriveStatus(run)
}

// finish handles best-effort post-run work: delivery, event publishing,
// and the run report itself. None of it can change a run's success into
// a failure.
func (r *Runner) finish(run *models.PipelineRun, log *slog.Logger) {
	// the run deadline no longer applies here
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if r.notifier != nil {
		if err := r.notifier.SendRun(ctx, *run); err != nil {
			log.Warn("delivery failed", "error", err)
			run.DeliveryError = err.Error()
			if run.Status == models.RunSuccess {
				run.Status = models.RunPartial
			}
		}
	}
	if r.publisher != nil {
		if err := r.publisher.PublishRunCompleted(ctx, *run); err != nil {
			log.Warn("run event publish failed", "error", err)
		}
	}
	if r.catalog != nil {
		if err := r.catalog.IndexRun(ctx, *run); err != nil {
			log.Warn("run catalog write failed", "error", err)
		}
	}
}

func (r *Runner) fail(run *models.PipelineRun, reason string) {
	run.Status = models.RunFailed
	run.Error = reason
}

// deriveStatus classifies a run that produced its expected output. Any
// recorded degradation downgrades success to partial.
func deriveStatus(run *models.PipelineRun) models.RunStatus {
	if len(run.Skipped) > 0 || len(run.SourceErrors) > 0 || run.DegradedSynth || run.Truncated {
		return models.RunPartial
	}
	return models.RunSuccess
}
