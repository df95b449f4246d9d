package delivery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ajay-manwani/news-extraction/internal/models"
)

const telegramBase = "https://api.telegram.org"

// Telegram pushes finished runs to a chat. Delivery is best-effort: the
// artifact already exists in storage, so a failed send only surfaces in
// the run report.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	httpc   *http.Client
	log     *slog.Logger
}

// NewTelegram builds a notifier. baseURL overrides the Bot API host for
// tests.
func NewTelegram(token, chatID, baseURL string, timeout time.Duration, log *slog.Logger) *Telegram {
	if baseURL == "" {
		baseURL = telegramBase
	}
	return &Telegram{
		token:   token,
		chatID:  chatID,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		log:     log,
	}
}

// SendRun delivers the run outcome: the podcast audio with a digest caption
// when an artifact exists, a plain text digest otherwise.
func (t *Telegram) SendRun(ctx context.Context, run models.PipelineRun) error {
	digest := runDigest(run)

	if run.ArtifactURL != "" {
		return t.call(ctx, "sendAudio", url.Values{
			"chat_id": {t.chatID},
			"audio":   {run.ArtifactURL},
			"caption": {digest},
			"title":   {"Daily News Podcast"},
		})
	}
	return t.call(ctx, "sendMessage", url.Values{
		"chat_id": {t.chatID},
		"text":    {digest},
	})
}

func (t *Telegram) call(ctx context.Context, method string, form url.Values) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram %s: status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func runDigest(run models.PipelineRun) string {
	var sb strings.Builder
	if run.ArtifactURL != "" {
		fmt.Fprintf(&sb, "Your news podcast is ready: %d stories", run.Summarized)
		if run.AudioDuration > 0 {
			fmt.Fprintf(&sb, ", about %s", run.AudioDuration.Round(time.Second))
		}
		sb.WriteString(".")
		if run.Truncated {
			sb.WriteString(" Cut short at the deadline.")
		}
	} else if run.Fetched == 0 {
		sb.WriteString("No new stories since the last run.")
	} else {
		fmt.Fprintf(&sb, "Run finished without audio: %d fetched, %d summarized.", run.Fetched, run.Summarized)
	}
	return sb.String()
}
