package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ajay-manwani/news-extraction/internal/models"
	"github.com/ajay-manwani/news-extraction/internal/text"
)

const systemPrompt = "You are a podcast scriptwriter. Rewrite the article below as a short, " +
	"engaging spoken segment for a daily news podcast. Use plain conversational " +
	"language, no headings, no bullet points, no URLs. Two to four sentences."

// Completer is the slice of Client the engine needs.
type Completer interface {
	Complete(ctx context.Context, model, system, user string) (string, error)
}

// Engine summarizes articles through an ordered chain of model candidates.
// The first model is preferred; later ones are fallbacks per article.
type Engine struct {
	client   Completer
	models   []string
	maxChars int
	retries  int
	workers  int
	log      *slog.Logger
}

// NewEngine builds an engine. retries is the extra attempts per model after
// the first, spent only on transient failures.
func NewEngine(client Completer, modelChain []string, maxChars, retries, workers int, log *slog.Logger) *Engine {
	if workers <= 0 {
		workers = 1
	}
	if retries < 0 {
		retries = 0
	}
	return &Engine{
		client:   client,
		models:   modelChain,
		maxChars: maxChars,
		retries:  retries,
		workers:  workers,
		log:      log,
	}
}

// Summarize produces one result per article, in the same order as the
// input. A result is always returned for every article; failures surface
// as SummaryFailed with a reason, never as an error.
func (e *Engine) Summarize(ctx context.Context, articles []models.Article) []models.SummaryResult {
	results := make([]models.SummaryResult, len(articles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, a := range articles {
		i, a := i, a
		g.Go(func() error {
			results[i] = e.summarizeOne(gctx, a)
			return nil
		})
	}
	// worker funcs never return an error; failures land in the results
	_ = g.Wait()

	return results
}

func (e *Engine) summarizeOne(ctx context.Context, a models.Article) models.SummaryResult {
	res := models.SummaryResult{ArticleID: a.ID, Title: a.Title}
	user := fmt.Sprintf("Title: %s\n\n%s", a.Title, a.Body)

	var lastErr error
	for _, model := range e.models {
		for attempt := 0; attempt <= e.retries; attempt++ {
			if attempt > 0 {
				if !sleepBackoff(ctx, attempt) {
					break
				}
			}
			res.Attempts++

			out, err := e.client.Complete(ctx, model, systemPrompt, user)
			if err == nil {
				res.Text = text.TruncateAtSentence(out, e.maxChars)
				res.Model = model
				res.Status = models.SummaryAccepted
				return res
			}

			lastErr = err
			if ctx.Err() != nil {
				res.Status = models.SummaryFailed
				res.Reason = ctx.Err().Error()
				return res
			}
			if !IsTransient(err) {
				e.log.Warn("model rejected article", "model", model, "article", a.ID, "error", err)
				break
			}
			e.log.Warn("summary attempt failed", "model", model, "article", a.ID, "attempt", res.Attempts, "error", err)
		}
	}

	res.Status = models.SummaryFailed
	if lastErr != nil {
		res.Reason = lastErr.Error()
	} else {
		res.Reason = "no model candidates configured"
	}
	return res
}

// sleepBackoff waits an exponentially growing, jittered interval. Returns
// false when the context ended first.
func sleepBackoff(ctx context.Context, attempt int) bool {
	base := 500 * time.Millisecond << (attempt - 1)
	if base > 8*time.Second {
		base = 8 * time.Second
	}
	delay := base/2 + time.Duration(rand.Int63n(int64(base/2)+1))

	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}
