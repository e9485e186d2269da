package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperlens/internal/config"
)

func openAIServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClient_Call(t *testing.T) {
	srv := openAIServer(t, http.StatusOK,
		`{"choices":[{"message":{"role":"assistant","content":"hello there"}}]}`)

	c := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "m"})
	text, err := c.Call(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
}

func TestOpenAIClient_NonOKStatus(t *testing.T) {
	srv := openAIServer(t, http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`)

	c := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "m"})
	_, err := c.Call(context.Background(), "hi")
	assert.Error(t, err)
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	srv := openAIServer(t, http.StatusOK, `{"choices":[]}`)

	c := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "m"})
	_, err := c.Call(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIClient_MissingKey(t *testing.T) {
	c := NewOpenAIClient(OpenAIConfig{Model: "m"})
	_, err := c.Call(context.Background(), "hi")
	assert.Error(t, err)
}

func TestNewCallerFromConfig_ProviderSelection(t *testing.T) {
	cases := []struct {
		provider string
		wantName string
	}{
		{"openai", "openai"},
		{"qianfan", "qianfan"},
		{"anthropic", "anthropic"},
		{"ollama", "ollama"},
	}
	for _, tc := range cases {
		cfg := config.DefaultConfig()
		cfg.AI.Provider = tc.provider

		caller, err := NewCallerFromConfig(cfg, nil)
		require.NoError(t, err, tc.provider)
		assert.Equal(t, tc.wantName, caller.client.Name())
	}

	cfg := config.DefaultConfig()
	cfg.AI.Provider = "bogus"
	_, err := NewCallerFromConfig(cfg, nil)
	assert.Error(t, err)
}
