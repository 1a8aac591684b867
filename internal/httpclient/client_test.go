package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	client := New(&Config{BaseURL: "http://ollama.test:11434/", Transport: mt})
	t.Cleanup(client.Close)
	return client, mt
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil config", func(t *testing.T) {
		t.Parallel()
		client := New(nil)
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, defaultUserAgent, client.userAgent)
		assert.Empty(t, client.BaseURL())
	})

	t.Run("custom config", func(t *testing.T) {
		t.Parallel()
		client := New(&Config{DefaultTimeout: 5 * time.Second, UserAgent: "test/1.0", BaseURL: "http://x/"})
		assert.Equal(t, 5*time.Second, client.defaultTimeout)
		assert.Equal(t, "test/1.0", client.userAgent)
		assert.Equal(t, "http://x", client.BaseURL())
	})
}

func TestResolve(t *testing.T) {
	t.Parallel()

	client := New(&Config{BaseURL: "http://host:1/"})
	assert.Equal(t, "http://host:1/api/chat", client.resolve("/api/chat"))
	assert.Equal(t, "http://host:1/api/tags", client.resolve("api/tags"))
	assert.Equal(t, "https://other/x", client.resolve("https://other/x"))
	assert.Equal(t, "/x", New(nil).resolve("/x"))
}

func TestPostJSON(t *testing.T) {
	t.Parallel()

	client, mt := newMockClient(t)
	mt.RegisterResponder(http.MethodPost, "http://ollama.test:11434/api/chat",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			assert.Equal(t, defaultUserAgent, req.Header.Get("User-Agent"))
			var in map[string]string
			if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
			}
			return httpmock.NewJsonResponse(http.StatusOK, map[string]string{"echo": in["msg"]})
		})

	var out struct {
		Echo string `json:"echo"`
	}
	require.NoError(t, client.PostJSON(t.Context(), "/api/chat", map[string]string{"msg": "hi"}, &out))
	assert.Equal(t, "hi", out.Echo)
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestGetJSONStatusError(t *testing.T) {
	t.Parallel()

	client, mt := newMockClient(t)
	mt.RegisterResponder(http.MethodGet, "http://ollama.test:11434/api/tags",
		func(*http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(http.StatusTooManyRequests, "slow down\n")
			resp.Header.Set("Retry-After", "3")
			return resp, nil
		})

	err := client.GetJSON(t.Context(), "/api/tags", &struct{}{})
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Equal(t, "slow down", se.Body)
	assert.Equal(t, 3*time.Second, se.RetryAfter)
	assert.True(t, se.RateLimited())
	assert.Equal(t, "unexpected status 429: slow down", se.Error())
}

func TestGetJSONDecodeError(t *testing.T) {
	t.Parallel()

	client, mt := newMockClient(t)
	mt.RegisterResponder(http.MethodGet, "http://ollama.test:11434/bad",
		httpmock.NewStringResponder(http.StatusOK, "{not json"))

	var out map[string]any
	require.Error(t, client.GetJSON(t.Context(), "/bad", &out))
}

func TestPostJSONNilOut(t *testing.T) {
	t.Parallel()

	client, mt := newMockClient(t)
	mt.RegisterResponder(http.MethodPost, "http://ollama.test:11434/api/pull",
		httpmock.NewStringResponder(http.StatusOK, `{"status":"ok"}`))
	require.NoError(t, client.PostJSON(t.Context(), "/api/pull", map[string]string{}, nil))
}

func TestDoHooks(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	client := New(&Config{BaseURL: server.URL})
	t.Cleanup(client.Close)

	var before, after int
	client.SetBeforeRequestHook(func(*http.Request) { before++ })
	client.SetAfterResponseHook(func(_ *http.Request, resp *http.Response, err error) {
		after++
		assert.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	require.NoError(t, client.PostJSON(t.Context(), "/", struct{}{}, nil))
	assert.Equal(t, 1, before)
	assert.Equal(t, 1, after)
}

func TestDoContextCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	client := New(&Config{BaseURL: server.URL})
	t.Cleanup(client.Close)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err := client.GetJSON(ctx, "/", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoDefaultTimeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	client := New(&Config{BaseURL: server.URL, DefaultTimeout: 50 * time.Millisecond})
	t.Cleanup(client.Close)

	err := client.GetJSON(t.Context(), "/", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
