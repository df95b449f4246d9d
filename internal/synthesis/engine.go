package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/ajay-manwani/news-extraction/internal/models"
	"github.com/ajay-manwani/news-extraction/internal/text"
)

// ErrExhausted means every provider failed before the first chunk of the
// remaining script could be synthesized. No partial artifact is produced in
// that case; a podcast missing arbitrary middle chunks would silently drop
// stories.
var ErrExhausted = errors.New("all synthesis providers exhausted")

// Result is the synthesized audio for a script.
type Result struct {
	Audio      []byte
	Segments   []models.AudioSegment
	Duration   time.Duration
	Provider   string
	ArticleIDs []string
	Degraded   bool
	Truncated  bool
}

// Engine synthesizes a chunked script through an ordered provider chain.
// Fallback is sticky: once a chunk forces a switch, the rest of the run
// stays on the fallback so the voice only changes once.
type Engine struct {
	providers []Provider
	retries   int
	log       *slog.Logger
}

// NewEngine builds an engine over the provider chain, primary first.
func NewEngine(providers []Provider, retries int, log *slog.Logger) *Engine {
	if retries < 0 {
		retries = 0
	}
	return &Engine{providers: providers, retries: retries, log: log}
}

// Synthesize renders the chunks sequentially, in index order. When the
// context deadline expires mid-script, the completed prefix is returned
// with Truncated set. Provider exhaustion before any chunk completes
// returns ErrExhausted.
func (e *Engine) Synthesize(ctx context.Context, chunks []models.ScriptChunk) (*Result, error) {
	if len(e.providers) == 0 {
		return nil, fmt.Errorf("no synthesis providers configured")
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("empty script")
	}

	res := &Result{Provider: e.providers[0].Name()}
	active := 0

	var spoken string
	for _, chunk := range chunks {
		data, provider, err := e.synthesizeChunk(ctx, chunk, &active)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && len(res.Segments) > 0 {
				e.log.Warn("deadline hit mid-script, keeping completed prefix",
					"chunks_done", len(res.Segments), "chunks_total", len(chunks))
				res.Truncated = true
				break
			}
			return nil, err
		}

		res.Segments = append(res.Segments, models.AudioSegment{
			ChunkIndex: chunk.Index,
			Provider:   provider,
			Data:       data,
			Duration:   text.EstimateSpokenDuration(chunk.Text),
		})
		res.Audio = append(res.Audio, data...)
		res.ArticleIDs = appendUnique(res.ArticleIDs, chunk.ArticleIDs)
		spoken += chunk.Text
	}

	res.Provider = e.providers[active].Name()
	res.Degraded = active > 0
	res.Duration = text.EstimateSpokenDuration(spoken)
	return res, nil
}

// synthesizeChunk tries the active provider with the retry budget, then
// advances down the chain. active persists across chunks.
func (e *Engine) synthesizeChunk(ctx context.Context, chunk models.ScriptChunk, active *int) ([]byte, string, error) {
	var lastErr error
	for ; *active < len(e.providers); *active++ {
		p := e.providers[*active]
		for attempt := 0; attempt <= e.retries; attempt++ {
			if attempt > 0 {
				if !sleepBackoff(ctx, attempt) {
					return nil, "", ctx.Err()
				}
			}

			data, err := p.Synthesize(ctx, chunk.Text)
			if err == nil {
				return data, p.Name(), nil
			}
			lastErr = err
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			e.log.Warn("chunk synthesis failed",
				"provider", p.Name(), "chunk", chunk.Index, "attempt", attempt+1, "error", err)
			if !IsTransient(err) {
				break
			}
		}
	}
	return nil, "", fmt.Errorf("%w: chunk %d: %v", ErrExhausted, chunk.Index, lastErr)
}

func appendUnique(dst []string, add []string) []string {
	for _, id := range add {
		found := false
		for _, have := range dst {
			if have == id {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, id)
		}
	}
	return dst
}

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
