package summarize_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ajay-manwani/news-extraction/internal/models"
	"github.com/ajay-manwani/news-extraction/internal/summarize"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubCompleter struct {
	mu    sync.Mutex
	calls []string
	fn    func(model, user string) (string, error)
}

func (s *stubCompleter) Complete(_ context.Context, model, _, user string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, model)
	s.mu.Unlock()
	return s.fn(model, user)
}

func articles(n int) []models.Article {
	out := make([]models.Article, n)
	for i := range out {
		out[i] = models.Article{
			ID:    fmt.Sprintf("art-%d", i),
			Title: fmt.Sprintf("Title %d", i),
			Body:  "Body text.",
		}
	}
	return out
}

func TestSummarizePreservesInputOrder(t *testing.T) {
	stub := &stubCompleter{fn: func(_, user string) (string, error) {
		return "Summary of " + user[:len("Title: Title 0")], nil
	}}
	e := summarize.NewEngine(stub, []string{"primary"}, 600, 0, 3, testLogger())

	results := e.Summarize(context.Background(), articles(5))
	require.Len(t, results, 5)
	for i, r := range results {
		require.Equal(t, fmt.Sprintf("art-%d", i), r.ArticleID)
		require.Equal(t, models.SummaryAccepted, r.Status)
		require.Equal(t, "primary", r.Model)
	}
}

func TestSummarizeFallsBackPerArticle(t *testing.T) {
	stub := &stubCompleter{}
	stub.fn = func(model, user string) (string, error) {
		// the primary model rejects one specific article outright
		if model == "primary" && strings.Contains(user, "Title 2") {
			return "", &net400{}
		}
		return "A fine summary.", nil
	}
	e := summarize.NewEngine(stub, []string{"primary", "secondary"}, 600, 0, 1, testLogger())

	results := e.Summarize(context.Background(), articles(4))
	require.Len(t, results, 4)
	for i, r := range results {
		require.Equal(t, models.SummaryAccepted, r.Status)
		if i == 2 {
			require.Equal(t, "secondary", r.Model)
			require.Equal(t, 2, r.Attempts)
		} else {
			require.Equal(t, "primary", r.Model)
			require.Equal(t, 1, r.Attempts)
		}
	}
}

// net400 mimics a terminal upstream rejection.
type net400 struct{}

func (*net400) Error() string { return "status 400" }

func TestSummarizeMarksFailedWhenAllCandidatesExhausted(t *testing.T) {
	stub := &stubCompleter{fn: func(_, _ string) (string, error) {
		return "", &net400{}
	}}
	e := summarize.NewEngine(stub, []string{"primary", "secondary"}, 600, 2, 1, testLogger())

	results := e.Summarize(context.Background(), articles(1))
	require.Len(t, results, 1)
	require.Equal(t, models.SummaryFailed, results[0].Status)
	require.Contains(t, results[0].Reason, "status 400")
	// terminal errors skip the retry budget, one attempt per model
	require.Equal(t, 2, results[0].Attempts)
}

func TestSummarizeTruncatesAtSentence(t *testing.T) {
	long := strings.Repeat("This is a sentence. ", 50)
	stub := &stubCompleter{fn: func(_, _ string) (string, error) {
		return long, nil
	}}
	e := summarize.NewEngine(stub, []string{"primary"}, 100, 0, 1, testLogger())

	results := e.Summarize(context.Background(), articles(1))
	require.Equal(t, models.SummaryAccepted, results[0].Status)
	require.LessOrEqual(t, len(results[0].Text), 100)
	require.True(t, strings.HasSuffix(results[0].Text, "."))
}

func TestClientAgainstFakeUpstream(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "test-model", req["model"])

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "  the summary  "}},
			},
		})
	}))
	t.Cleanup(srv.Close)

	c := summarize.NewClient(srv.URL+"/v1", "secret-key", 5*time.Second)
	out, err := c.Complete(context.Background(), "test-model", "sys", "user")
	require.NoError(t, err)
	require.Equal(t, "the summary", out)
	require.Equal(t, "Bearer secret-key", gotAuth)
}

func TestClientClassifiesRateLimitAsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"slow down"}}`)
	}))
	t.Cleanup(srv.Close)

	c := summarize.NewClient(srv.URL, "k", 5*time.Second)
	_, err := c.Complete(context.Background(), "m", "s", "u")
	require.Error(t, err)
	require.True(t, summarize.IsTransient(err))
}

func TestClientClassifiesBadRequestAsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	c := summarize.NewClient(srv.URL, "k", 5*time.Second)
	_, err := c.Complete(context.Background(), "m", "s", "u")
	require.Error(t, err)
	require.False(t, summarize.IsTransient(err))
}
