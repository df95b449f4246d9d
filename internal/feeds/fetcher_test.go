package feeds_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ajay-manwani/news-extraction/internal/config"
	"github.com/ajay-manwani/news-extraction/internal/dedupe"
	"github.com/ajay-manwani/news-extraction/internal/feeds"
)

type rssItem struct {
	title, link, desc string
	published         time.Time
}

func rssFeed(items ...rssItem) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>`)
	for _, it := range items {
		fmt.Fprintf(&sb, "<item><title>%s</title><link>%s</link><description>%s</description><pubDate>%s</pubDate></item>",
			it.title, it.link, it.desc, it.published.Format(time.RFC1123Z))
	}
	sb.WriteString(`</channel></rss>`)
	return sb.String()
}

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const longDesc = "A fairly long description with several sentences of substance. It easily clears the minimum body length used in these tests."

func TestFetchOrdersNewestFirstAndMarksSeen(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	older := feedServer(t, rssFeed(
		rssItem{title: "old story", link: "https://a.example/old", desc: longDesc, published: base.Add(-2 * time.Hour)},
	))
	newer := feedServer(t, rssFeed(
		rssItem{title: "fresh story", link: "https://b.example/fresh", desc: longDesc, published: base},
	))

	sources := []config.Source{
		{Name: "older", URL: older.URL, MaxArticles: 10},
		{Name: "newer", URL: newer.URL, MaxArticles: 10},
	}
	idx := dedupe.NewMemory(100, time.Hour)
	f := feeds.NewFetcher(sources, idx, 5*time.Second, 2, 20, testLogger())

	report, err := f.Fetch(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, report.Articles, 2)
	require.Equal(t, "fresh story", report.Articles[0].Title)
	require.Equal(t, "old story", report.Articles[1].Title)
	require.Empty(t, report.SourceErrors)

	for _, a := range report.Articles {
		seen, err := idx.Seen(context.Background(), a.ID)
		require.NoError(t, err)
		require.True(t, seen)
	}
}

func TestFetchSkipsSeenAndReportsFailedSource(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	good := feedServer(t, rssFeed(
		rssItem{title: "story one", link: "https://a.example/one", desc: longDesc, published: base},
		rssItem{title: "story two", link: "https://a.example/two", desc: longDesc, published: base.Add(-time.Hour)},
	))
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)

	sources := []config.Source{
		{Name: "good", URL: good.URL, MaxArticles: 10},
		{Name: "broken", URL: broken.URL, MaxArticles: 10},
	}
	idx := dedupe.NewMemory(100, time.Hour)
	f := feeds.NewFetcher(sources, idx, 5*time.Second, 2, 20, testLogger())

	first, err := f.Fetch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, first.Articles, 2)
	require.Len(t, first.SourceErrors, 1)
	require.Equal(t, "broken", first.SourceErrors[0].Source)

	second, err := f.Fetch(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, second.Articles)
	require.Equal(t, 2, second.DedupeSkips)
}

func TestFetchDeduplicatesWithinRun(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	shared := rssItem{title: "syndicated", link: "https://wire.example/story", desc: longDesc, published: base}

	one := feedServer(t, rssFeed(shared))
	two := feedServer(t, rssFeed(shared))

	sources := []config.Source{
		{Name: "one", URL: one.URL, MaxArticles: 10},
		{Name: "two", URL: two.URL, MaxArticles: 10},
	}
	f := feeds.NewFetcher(sources, dedupe.NewMemory(100, time.Hour), 5*time.Second, 2, 20, testLogger())

	report, err := f.Fetch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, report.Articles, 1)
	require.Equal(t, "one", report.Articles[0].Source)
}

func TestFetchHonorsMaxArticles(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	items := make([]rssItem, 5)
	for i := range items {
		items[i] = rssItem{
			title:     fmt.Sprintf("story %d", i),
			link:      fmt.Sprintf("https://a.example/%d", i),
			desc:      longDesc,
			published: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	srv := feedServer(t, rssFeed(items...))

	f := feeds.NewFetcher(
		[]config.Source{{Name: "only", URL: srv.URL, MaxArticles: 10}},
		dedupe.NewMemory(100, time.Hour), 5*time.Second, 1, 20, testLogger(),
	)

	report, err := f.Fetch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, report.Articles, 2)
	require.Equal(t, "story 0", report.Articles[0].Title)
	require.Equal(t, "story 1", report.Articles[1].Title)
}

func TestFetchDropsThinBodies(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	srv := feedServer(t, rssFeed(
		rssItem{title: "thin", link: "", desc: "too short", published: base},
		rssItem{title: "thick", link: "https://a.example/thick", desc: longDesc, published: base},
	))

	f := feeds.NewFetcher(
		[]config.Source{{Name: "only", URL: srv.URL, MaxArticles: 10}},
		dedupe.NewMemory(100, time.Hour), 5*time.Second, 1, 20, testLogger(),
	)

	report, err := f.Fetch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, report.Articles, 1)
	require.Equal(t, "thick", report.Articles[0].Title)
}

func TestExtractBodyPullsParagraphs(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<html><body><script>junk()</script><article><p>First paragraph.</p><p>Second paragraph.</p></article></body></html>`)
	}))
	t.Cleanup(page.Close)

	body, err := feeds.ExtractBody(context.Background(), page.Client(), page.URL)
	require.NoError(t, err)
	require.Contains(t, body, "First paragraph.")
	require.Contains(t, body, "Second paragraph.")
	require.NotContains(t, body, "junk")
}
