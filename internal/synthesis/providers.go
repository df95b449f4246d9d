package synthesis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Provider converts one chunk of text into encoded audio. Implementations
// must return MP3 frames so segments can be concatenated directly.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// ttsError carries the upstream HTTP status for retry classification.
type ttsError struct {
	provider string
	status   int
	message  string
}

func (e *ttsError) Error() string {
	return fmt.Sprintf("%s synthesis: status %d: %s", e.provider, e.status, e.message)
}

// IsTransient reports whether a synthesis failure is retryable on the same
// provider: rate limits, upstream outages, network errors.
func IsTransient(err error) bool {
	var te *ttsError
	if errors.As(err, &te) {
		return te.status == http.StatusTooManyRequests || te.status >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

const googleTTSBase = "https://texttospeech.googleapis.com"

// Google calls the Cloud Text-to-Speech REST API with an API key.
type Google struct {
	apiKey  string
	voice   string
	baseURL string
	httpc   *http.Client
}

// NewGoogle builds the primary provider. baseURL overrides the production
// endpoint, used by tests.
func NewGoogle(apiKey, voice, baseURL string, timeout time.Duration) *Google {
	if baseURL == "" {
		baseURL = googleTTSBase
	}
	return &Google{
		apiKey:  apiKey,
		voice:   voice,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

func (g *Google) Name() string { return "google" }

func (g *Google) Synthesize(ctx context.Context, input string) ([]byte, error) {
	lang := "en-US"
	if i := strings.LastIndex(g.voice, "-"); i > 5 {
		lang = g.voice[:5]
	}
	body, err := json.Marshal(map[string]any{
		"input":       map[string]string{"text": input},
		"voice":       map[string]string{"languageCode": lang, "name": g.voice},
		"audioConfig": map[string]string{"audioEncoding": "MP3"},
	})
	if err != nil {
		return nil, err
	}

	url := g.baseURL + "/v1/text:synthesize?key=" + g.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ttsError{provider: g.Name(), status: resp.StatusCode, message: snippet(raw)}
	}

	var parsed struct {
		AudioContent string `json:"audioContent"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode synthesis response: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(parsed.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("google synthesis: empty audio")
	}
	return audio, nil
}

const openAIBase = "https://api.openai.com"

// OpenAI calls the /v1/audio/speech endpoint, the fallback provider.
type OpenAI struct {
	apiKey  string
	voice   string
	baseURL string
	httpc   *http.Client
}

// NewOpenAI builds the fallback provider.
func NewOpenAI(apiKey, voice, baseURL string, timeout time.Duration) *OpenAI {
	if baseURL == "" {
		baseURL = openAIBase
	}
	return &OpenAI{
		apiKey:  apiKey,
		voice:   voice,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Synthesize(ctx context.Context, input string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{
		"model":           "tts-1",
		"voice":           o.voice,
		"input":           input,
		"response_format": "mp3",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ttsError{provider: o.Name(), status: resp.StatusCode, message: snippet(raw)}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("openai synthesis: empty audio")
	}
	return raw, nil
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
