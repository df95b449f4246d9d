package synthesis_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ajay-manwani/news-extraction/internal/synthesis"
)

func TestGoogleProviderDecodesAudio(t *testing.T) {
	audio := []byte("mp3-bytes-here")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/text:synthesize", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req struct {
			Input struct {
				Text string `json:"text"`
			} `json:"input"`
			Voice struct {
				LanguageCode string `json:"languageCode"`
				Name         string `json:"name"`
			} `json:"voice"`
			AudioConfig struct {
				AudioEncoding string `json:"audioEncoding"`
			} `json:"audioConfig"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "hello there", req.Input.Text)
		require.Equal(t, "en-US", req.Voice.LanguageCode)
		require.Equal(t, "en-US-Standard-F", req.Voice.Name)
		require.Equal(t, "MP3", req.AudioConfig.AudioEncoding)

		json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString(audio),
		})
	}))
	t.Cleanup(srv.Close)

	g := synthesis.NewGoogle("test-key", "en-US-Standard-F", srv.URL, 5*time.Second)
	got, err := g.Synthesize(context.Background(), "hello there")
	require.NoError(t, err)
	require.Equal(t, audio, got)
}

func TestGoogleProviderClassifiesOutageAsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	g := synthesis.NewGoogle("k", "en-US-Standard-F", srv.URL, 5*time.Second)
	_, err := g.Synthesize(context.Background(), "x")
	require.Error(t, err)
	require.True(t, synthesis.IsTransient(err))
}

func TestOpenAIProviderReturnsRawAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/audio/speech", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "tts-1", req["model"])
		require.Equal(t, "alloy", req["voice"])
		require.Equal(t, "mp3", req["response_format"])

		io.WriteString(w, "raw-mp3")
	}))
	t.Cleanup(srv.Close)

	o := synthesis.NewOpenAI("sk-test", "alloy", srv.URL, 5*time.Second)
	got, err := o.Synthesize(context.Background(), "read this")
	require.NoError(t, err)
	require.Equal(t, []byte("raw-mp3"), got)
}

func TestOpenAIProviderUnauthorizedIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	o := synthesis.NewOpenAI("bad", "alloy", srv.URL, 5*time.Second)
	_, err := o.Synthesize(context.Background(), "x")
	require.Error(t, err)
	require.False(t, synthesis.IsTransient(err))
}
