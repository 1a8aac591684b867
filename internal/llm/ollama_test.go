package llm

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/httpclient"
)

const testOllamaURL = "http://ollama.test"

func newMockOllama(t *testing.T) (*httpmock.MockTransport, *httpclient.Client) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	hc := httpclient.New(&httpclient.Config{BaseURL: testOllamaURL, Transport: mt})
	t.Cleanup(hc.Close)
	return mt, hc
}

func TestOllamaGenerate(t *testing.T) {
	t.Parallel()

	mt, hc := newMockOllama(t)
	var got ollamaChatRequest
	mt.RegisterResponder(http.MethodPost, testOllamaURL+"/api/chat",
		func(req *http.Request) (*http.Response, error) {
			if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
				return nil, err
			}
			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
				"message": map[string]string{"role": "assistant", "content": "[Verse 1]\nline"},
			})
		})

	c := NewOllama(hc, "llama3.1")
	out, err := c.Generate(t.Context(),
		[]Message{System("be the artist"), User("write"), Assistant("ok"), User("again")},
		Options{Temperature: 0.85, MaxTokens: 500})
	require.NoError(t, err)

	assert.Equal(t, "[Verse 1]\nline", out)
	assert.Equal(t, "ollama:llama3.1", c.Name())
	assert.Equal(t, "llama3.1", got.Model)
	assert.False(t, got.Stream)
	assert.InDelta(t, 0.85, got.Options.Temperature, 1e-9)
	assert.Equal(t, 500, got.Options.NumPredict)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "assistant", got.Messages[2].Role)
}

func TestOllamaErrors(t *testing.T) {
	t.Parallel()

	t.Run("rate limited status", func(t *testing.T) {
		t.Parallel()
		mt, hc := newMockOllama(t)
		mt.RegisterResponder(http.MethodPost, testOllamaURL+"/api/chat",
			httpmock.NewStringResponder(http.StatusTooManyRequests, "slow down"))

		_, err := NewOllama(hc, "m").Generate(t.Context(), []Message{User("x")}, Options{})
		require.Error(t, err)
		assert.True(t, IsRateLimited(err))
		assert.True(t, errors.IsCategory(err, errors.CategoryRateLimit))
	})

	t.Run("error field", func(t *testing.T) {
		t.Parallel()
		mt, hc := newMockOllama(t)
		mt.RegisterResponder(http.MethodPost, testOllamaURL+"/api/chat",
			httpmock.NewStringResponder(http.StatusOK, `{"error":"model not found"}`))

		_, err := NewOllama(hc, "m").Generate(t.Context(), []Message{User("x")}, Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model not found")
		assert.True(t, errors.IsCategory(err, errors.CategoryProvider))
	})

	t.Run("empty content", func(t *testing.T) {
		t.Parallel()
		mt, hc := newMockOllama(t)
		mt.RegisterResponder(http.MethodPost, testOllamaURL+"/api/chat",
			httpmock.NewStringResponder(http.StatusOK, `{"message":{"role":"assistant","content":"  "}}`))

		_, err := NewOllama(hc, "m").Generate(t.Context(), []Message{User("x")}, Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty response")
	})
}

func TestOllamaAvailable(t *testing.T) {
	t.Parallel()

	mt, hc := newMockOllama(t)
	mt.RegisterResponder(http.MethodGet, testOllamaURL+"/api/tags",
		httpmock.NewStringResponder(http.StatusOK, `{"models":[{"name":"llama3.1:latest"},{"name":"qwen2"}]}`))

	assert.True(t, NewOllama(hc, "llama3.1").Available(t.Context()))
	assert.True(t, NewOllama(hc, "qwen2").Available(t.Context()))
	assert.False(t, NewOllama(hc, "mistral").Available(t.Context()))

	down := httpclient.New(&httpclient.Config{BaseURL: testOllamaURL, Transport: httpmock.NewMockTransport()})
	assert.False(t, NewOllama(down, "llama3.1").Available(t.Context()))
}

func TestNew(t *testing.T) {
	t.Parallel()

	settings := func() *conf.LLMSettings {
		return &conf.LLMSettings{
			Providers: []conf.ProviderConfig{
				{Name: "gemini", Type: conf.ProviderGemini, Models: []string{"gemini-2.0-flash"}},
				{Name: "local", Type: conf.ProviderOllama, Models: []string{"llama3.1", "qwen2"}, BaseURL: testOllamaURL},
			},
			MaxRetries:     2,
			RetryBaseDelay: time.Millisecond,
			Timeout:        time.Second,
		}
	}

	t.Run("skips gemini without key", func(t *testing.T) {
		t.Parallel()
		mt, hc := newMockOllama(t)
		mt.RegisterResponder(http.MethodPost, testOllamaURL+"/api/chat",
			httpmock.NewStringResponder(http.StatusOK, `{"message":{"role":"assistant","content":"hello"}}`))

		chain, err := New(t.Context(), settings(), Deps{HTTP: hc})
		require.NoError(t, err)
		assert.Equal(t, []string{"ollama:llama3.1", "ollama:qwen2"}, chain.Providers())

		out, err := chain.Generate(t.Context(), []Message{User("hi")}, Options{})
		require.NoError(t, err)
		assert.Equal(t, "hello", out)
		assert.Equal(t, 1, mt.GetTotalCallCount())
	})

	t.Run("rate limited model falls through to next", func(t *testing.T) {
		t.Parallel()
		mt, hc := newMockOllama(t)
		busy := httpmock.NewStringResponder(http.StatusTooManyRequests, "busy")
		mt.RegisterResponder(http.MethodPost, testOllamaURL+"/api/chat",
			busy.Then(busy).Then(httpmock.NewStringResponder(http.StatusOK, `{"message":{"content":"second"}}`)))

		chain, err := New(t.Context(), settings(), Deps{HTTP: hc})
		require.NoError(t, err)

		out, err := chain.Generate(t.Context(), []Message{User("hi")}, Options{})
		require.NoError(t, err)
		assert.Equal(t, "second", out)
		assert.Equal(t, 3, mt.GetTotalCallCount())
	})

	t.Run("no usable providers", func(t *testing.T) {
		t.Parallel()
		s := settings()
		s.Providers = s.Providers[:1]

		_, err := New(t.Context(), s, Deps{})
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
		assert.Contains(t, errors.HintOf(err), "GEMINI_API_KEY")
	})
}
