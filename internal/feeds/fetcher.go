package feeds

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/ajay-manwani/news-extraction/internal/config"
	"github.com/ajay-manwani/news-extraction/internal/dedupe"
	"github.com/ajay-manwani/news-extraction/internal/models"
	"github.com/ajay-manwani/news-extraction/internal/text"
)

// Report is the outcome of one aggregation pass. Articles are ordered
// newest first and already deduplicated.
type Report struct {
	Articles     []models.Article
	DedupeSkips  int
	SourceErrors []models.SourceError
}

// Fetcher pulls the configured feeds, cleans the entries, and selects
// fresh articles against the dedupe index.
type Fetcher struct {
	sources []config.Source
	index   dedupe.Index
	client  *http.Client
	timeout time.Duration
	workers int
	minBody int
	log     *slog.Logger
}

// NewFetcher wires a fetcher over the given sources and dedupe index.
func NewFetcher(sources []config.Source, index dedupe.Index, timeout time.Duration, workers, minBody int, log *slog.Logger) *Fetcher {
	if workers <= 0 {
		workers = 1
	}
	return &Fetcher{
		sources: sources,
		index:   index,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		workers: workers,
		minBody: minBody,
		log:     log,
	}
}

// Fetch gathers candidates from every source concurrently, orders them
// newest first, and returns at most maxArticles unseen articles. Selected
// articles are marked in the index before the report is returned. A source
// that fails is reported, never fatal.
func (f *Fetcher) Fetch(ctx context.Context, maxArticles int) (*Report, error) {
	var (
		mu         sync.Mutex
		candidates []models.Article
		sourceErrs []models.SourceError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for _, src := range f.sources {
		src := src
		g.Go(func() error {
			articles, err := f.fetchSource(gctx, src)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				f.log.Warn("source fetch failed", "source", src.Name, "error", err)
				sourceErrs = append(sourceErrs, models.SourceError{Source: src.Name, Reason: err.Error()})
				return nil
			}
			candidates = append(candidates, articles...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.order(candidates)

	report := &Report{SourceErrors: sourceErrs}
	picked := make(map[string]struct{}, maxArticles)
	for _, a := range candidates {
		if len(report.Articles) >= maxArticles {
			break
		}
		// the same story syndicated by several sources keeps its first
		// occurrence in the ordered list
		if _, ok := picked[a.ID]; ok {
			continue
		}
		seen, err := f.index.Seen(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		if seen {
			report.DedupeSkips++
			continue
		}
		picked[a.ID] = struct{}{}
		report.Articles = append(report.Articles, a)
	}

	for _, a := range report.Articles {
		if err := f.index.Mark(ctx, a.ID); err != nil {
			return nil, err
		}
	}

	f.log.Info("feed aggregation complete",
		"candidates", len(candidates),
		"selected", len(report.Articles),
		"dedupe_skips", report.DedupeSkips,
		"source_errors", len(sourceErrs))

	return report, nil
}

func (f *Fetcher) fetchSource(ctx context.Context, src config.Source) ([]models.Article, error) {
	sctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.Client = f.client

	feed, err := parser.ParseURLWithContext(src.URL, sctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	limit := src.MaxArticles
	if limit <= 0 || limit > len(feed.Items) {
		limit = len(feed.Items)
	}

	articles := make([]models.Article, 0, limit)
	for _, item := range feed.Items[:limit] {
		if item == nil || item.Title == "" {
			continue
		}
		published := now
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed.UTC()
		}

		body := item.Content
		if body == "" {
			body = item.Description
		}
		body = text.StripHTML(body)
		if len(body) < f.minBody && item.Link != "" {
			if full, err := ExtractBody(sctx, f.client, item.Link); err == nil && len(full) > len(body) {
				body = full
			}
		}
		if len(body) < f.minBody {
			continue
		}

		articles = append(articles, models.Article{
			ID:          text.ArticleID(item.Link, src.Name, item.Title, published),
			Source:      src.Name,
			Title:       text.StripHTML(item.Title),
			Body:        body,
			URL:         item.Link,
			PublishedAt: published,
			FetchedAt:   now,
		})
	}
	return articles, nil
}

// order sorts newest first. Equal timestamps fall back to the source
// declaration order, then to feed position, so repeated runs over the same
// input pick the same articles.
func (f *Fetcher) order(articles []models.Article) {
	rank := make(map[string]int, len(f.sources))
	for i, s := range f.sources {
		rank[s.Name] = i
	}
	sort.SliceStable(articles, func(i, j int) bool {
		if !articles[i].PublishedAt.Equal(articles[j].PublishedAt) {
			return articles[i].PublishedAt.After(articles[j].PublishedAt)
		}
		return rank[articles[i].Source] < rank[articles[j].Source]
	})
}
