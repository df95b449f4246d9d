package models

import "time"

// Article is a single feed entry after fetching and cleaning. Articles are
// immutable once emitted by the aggregator.
type Article struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// SummaryStatus marks the outcome of summarizing one article.
type SummaryStatus string

const (
	SummaryAccepted SummaryStatus = "accepted"
	SummaryFailed   SummaryStatus = "failed"
)

// SummaryResult is the per-article output of the summarization engine.
type SummaryResult struct {
	ArticleID string        `json:"article_id"`
	Title     string        `json:"title"`
	Text      string        `json:"text"`
	Model     string        `json:"model"`
	Status    SummaryStatus `json:"status"`
	Attempts  int           `json:"attempts"`
	Reason    string        `json:"reason,omitempty"`
}

// ScriptChunk is a provider-size-bounded slice of the podcast script.
// Concatenating chunk texts in index order reproduces the script exactly.
type ScriptChunk struct {
	Index      int      `json:"index"`
	Text       string   `json:"text"`
	ArticleIDs []string `json:"article_ids"`
}

// AudioSegment holds the synthesized audio for one chunk.
type AudioSegment struct {
	ChunkIndex int           `json:"chunk_index"`
	Provider   string        `json:"provider"`
	Data       []byte        `json:"-"`
	Duration   time.Duration `json:"duration"`
}

// PodcastArtifact is the final persisted audio object for one run.
type PodcastArtifact struct {
	ID         string        `json:"id"`
	ObjectName string        `json:"object_name"`
	URL        string        `json:"url"`
	CreatedAt  time.Time     `json:"created_at"`
	Duration   time.Duration `json:"duration"`
	SizeBytes  int64         `json:"size_bytes"`
	ArticleIDs []string      `json:"article_ids"`
	Degraded   bool          `json:"degraded"`
	Truncated  bool          `json:"truncated"`
}

// RunState is the orchestrator's position inside a run.
type RunState string

const (
	StateFetching     RunState = "fetching"
	StateSummarizing  RunState = "summarizing"
	StateSynthesizing RunState = "synthesizing"
	StateStoring      RunState = "storing"
	StateDone         RunState = "done"
	StateFailed       RunState = "failed"
)

// RunStatus is the terminal outcome of a run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// SkippedArticle records why one article was excluded from the output.
type SkippedArticle struct {
	ArticleID string `json:"article_id"`
	Reason    string `json:"reason"`
}

// SourceError records a feed source that could not be fetched.
type SourceError struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// PipelineRun is the structured report for one pipeline execution. It is
// created at trigger time and immutable after completion.
type PipelineRun struct {
	ID              string           `json:"id"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      time.Time        `json:"finished_at"`
	MaxArticles     int              `json:"max_articles"`
	GeneratePodcast bool             `json:"generate_podcast"`
	Fetched         int              `json:"fetched"`
	Summarized      int              `json:"summarized"`
	DedupeSkips     int              `json:"dedupe_skips"`
	SkippedTotal    int              `json:"skipped"`
	Skipped         []SkippedArticle `json:"skipped_articles,omitempty"`
	SourceErrors    []SourceError    `json:"source_errors,omitempty"`
	ArtifactURL     string           `json:"artifact_url,omitempty"`
	ArtifactID      string           `json:"artifact_id,omitempty"`
	AudioDuration   time.Duration    `json:"audio_duration,omitempty"`
	DegradedSynth   bool             `json:"degraded_synthesis"`
	Truncated       bool             `json:"deadline_truncated"`
	DeliveryError   string           `json:"delivery_error,omitempty"`
	Error           string           `json:"error,omitempty"`
	Status          RunStatus        `json:"status"`
}
