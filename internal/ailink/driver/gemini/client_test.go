package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picolens/picolens/internal/ailink/driver"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()
	return client
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.Complete(context.Background(), &driver.Request{Prompt: "hi"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestClientRequiresPrompt(t *testing.T) {
	client := NewClient("", "key")
	_, err := client.Complete(context.Background(), &driver.Request{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "prompt")
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient("  ", " key ")
	assert.Equal(t, DefaultBaseURL, client.BaseURL)
	assert.Equal(t, "key", client.APIKey)
	assert.Equal(t, "gemini", client.Name())
}

func TestClientSendsRequestAndParsesResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.Empty(t, r.URL.Query().Get("key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		contents := payload["contents"].([]any)
		require.Len(t, contents, 1)
		parts := contents[0].(map[string]any)["parts"].([]any)
		require.Equal(t, "summarize this", parts[0].(map[string]any)["text"])

		config := payload["generationConfig"].(map[string]any)
		require.InDelta(t, 0.7, config["temperature"], 0.0001)
		require.EqualValues(t, 1024, config["maxOutputTokens"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"PICO summary"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":2,"totalTokenCount":6}}`))
	})

	resp, err := client.Complete(context.Background(), &driver.Request{
		Model:       "gemini-test",
		Prompt:      "summarize this",
		Temperature: driver.Float64(0.7),
		MaxTokens:   driver.Int(1024),
	})
	require.NoError(t, err)
	assert.Equal(t, "PICO summary", resp.Text)
	assert.Equal(t, "STOP", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 6, resp.Usage.TotalTokens)
}

func TestClientUsesDefaultModel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/"+DefaultModel+":generateContent", r.URL.Path)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	})

	resp, err := client.Complete(context.Background(), &driver.Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
}

func TestClientProviderErrorWithMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`))
	})

	_, err := client.Complete(context.Background(), &driver.Request{Prompt: "x"})
	require.Error(t, err)

	var providerErr *driver.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, http.StatusServiceUnavailable, providerErr.StatusCode)
	assert.Equal(t, "overloaded", providerErr.Message)
	assert.Equal(t, "gemini", providerErr.Provider)
	assert.Contains(t, string(providerErr.RawResponse), "UNAVAILABLE")
}

func TestClientProviderErrorWithoutMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := client.Complete(context.Background(), &driver.Request{Prompt: "x"})

	var providerErr *driver.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Empty(t, providerErr.Message)
	assert.Equal(t, "Failed to analyze document: Bad Gateway", providerErr.DisplayMessage())
}

func TestClientInvalidResponse(t *testing.T) {
	bodies := map[string]string{
		"no candidates": `{}`,
		"empty list":    `{"candidates":[]}`,
		"no content":    `{"candidates":[{"finishReason":"SAFETY"}]}`,
		"no parts":      `{"candidates":[{"content":{"parts":[]}}]}`,
		"empty text":    `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`,
		"not json":      `not json`,
		"wrong shape":   `{"candidates":"nope"}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			_, err := client.Complete(context.Background(), &driver.Request{Prompt: "x"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, driver.ErrInvalidResponse), err.Error())
		})
	}
}

func TestClientTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	client.Timeout = 50 * time.Millisecond

	_, err := client.Complete(context.Background(), &driver.Request{Prompt: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), err.Error())
}
