package llm

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/httpclient"
)

// fakeClient returns scripted results in order and repeats the last one.
type fakeClient struct {
	name    string
	mu      sync.Mutex
	results []fakeResult
	calls   int
	seen    [][]Message
}

type fakeResult struct {
	text string
	err  error
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Generate(_ context.Context, messages []Message, _ Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, messages)
	r := f.results[min(f.calls, len(f.results)-1)]
	f.calls++
	return r.text, r.err
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestIsRateLimited(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrRateLimited, true},
		{"wrapped sentinel", fmt.Errorf("call: %w", ErrRateLimited), true},
		{"status 429", &httpclient.StatusError{Code: http.StatusTooManyRequests}, true},
		{"status 500", &httpclient.StatusError{Code: http.StatusInternalServerError, Body: "boom"}, false},
		{"genai value", genai.APIError{Code: 429, Message: "quota"}, true},
		{"genai pointer", &genai.APIError{Code: 429, Message: "quota"}, true},
		{"genai other", genai.APIError{Code: 400, Message: "bad request"}, false},
		{"resource exhausted text", errors.NewStd("RESOURCE_EXHAUSTED: quota exceeded"), true},
		{"rate limit text", errors.NewStd("Rate limit reached"), true},
		{"category", errors.Newf("slow down").Category(errors.CategoryRateLimit).Build(), true},
		{"plain", errors.NewStd("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRateLimited(tt.err))
		})
	}
}

func TestProviderErrorCategory(t *testing.T) {
	t.Parallel()

	err := providerError(&httpclient.StatusError{Code: 429}, "ollama:x")
	assert.True(t, errors.IsCategory(err, errors.CategoryRateLimit))

	var se *httpclient.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 429, se.Code)

	err = providerError(errors.NewStd("boom"), "ollama:x")
	assert.True(t, errors.IsCategory(err, errors.CategoryProvider))
}

func TestWrapOrder(t *testing.T) {
	t.Parallel()

	var order []string
	tag := func(name string) Middleware {
		return func(next Client) Client {
			return clientFunc{name: next.Name(), fn: func(ctx context.Context, m []Message, o Options) (string, error) {
				order = append(order, name)
				return next.Generate(ctx, m, o)
			}}
		}
	}
	inner := &fakeClient{name: "inner", results: []fakeResult{{text: "ok"}}}

	c := Wrap(inner, tag("a"), tag("b"))
	out, err := c.Generate(t.Context(), []Message{User("hi")}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, "inner", c.Name())
}

func TestRetry(t *testing.T) {
	t.Parallel()

	t.Run("retries rate limits then succeeds", func(t *testing.T) {
		t.Parallel()
		inner := &fakeClient{name: "m", results: []fakeResult{{err: ErrRateLimited}, {text: "done"}}}
		out, err := Retry(2, time.Millisecond)(inner).Generate(t.Context(), nil, Options{})
		require.NoError(t, err)
		assert.Equal(t, "done", out)
		assert.Equal(t, 2, inner.callCount())
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		t.Parallel()
		inner := &fakeClient{name: "m", results: []fakeResult{{err: ErrRateLimited}}}
		_, err := Retry(3, time.Millisecond)(inner).Generate(t.Context(), nil, Options{})
		require.ErrorIs(t, err, ErrRateLimited)
		assert.Equal(t, 3, inner.callCount())
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		t.Parallel()
		inner := &fakeClient{name: "m", results: []fakeResult{{err: errors.NewStd("bad model")}}}
		_, err := Retry(3, time.Millisecond)(inner).Generate(t.Context(), nil, Options{})
		require.Error(t, err)
		assert.Equal(t, 1, inner.callCount())
	})

	t.Run("cancellation interrupts the wait", func(t *testing.T) {
		t.Parallel()
		inner := &fakeClient{name: "m", results: []fakeResult{{err: ErrRateLimited}}}
		ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := Retry(2, time.Hour)(inner).Generate(ctx, nil, Options{})
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 5*time.Second)
	})
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	inner := &fakeClient{name: "m", results: []fakeResult{{text: "ok"}}}
	assert.Same(t, Client(inner), RateLimit(0, 0)(inner), "disabled limiter returns the client unchanged")

	limited := RateLimit(1000, 1)(inner)
	for range 3 {
		_, err := limited.Generate(t.Context(), nil, Options{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, inner.callCount())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := RateLimit(0.001, 1)(inner).Generate(ctx, nil, Options{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
}

type recordingRecorder struct {
	mu     sync.Mutex
	ops    []string
	errs   []string
	timing int
}

func (r *recordingRecorder) RecordOperation(op, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op+"/"+status)
}

func (r *recordingRecorder) RecordDuration(string, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timing++
}

func (r *recordingRecorder) RecordError(op, errType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, op+"/"+errType)
}

func TestWithMetrics(t *testing.T) {
	t.Parallel()

	rec := &recordingRecorder{}
	inner := &fakeClient{name: "m", results: []fakeResult{
		{text: "ok"},
		{err: ErrRateLimited},
		{err: errors.NewStd("boom")},
	}}
	c := WithMetrics(rec)(inner)
	for range 3 {
		_, _ = c.Generate(t.Context(), nil, Options{})
	}

	assert.Equal(t, []string{"m/success", "m/rate_limited", "m/error"}, rec.ops)
	assert.Equal(t, []string{"m/rate_limit", "m/provider"}, rec.errs)
	assert.Equal(t, 3, rec.timing)
}

func TestFallback(t *testing.T) {
	t.Parallel()

	t.Run("first success wins", func(t *testing.T) {
		t.Parallel()
		a := &fakeClient{name: "a", results: []fakeResult{{err: errors.NewStd("down")}}}
		b := &fakeClient{name: "b", results: []fakeResult{{text: "from b"}}}
		c := &fakeClient{name: "c", results: []fakeResult{{text: "from c"}}}

		out, err := Fallback([]Client{a, b, c}).Generate(t.Context(), []Message{User("q")}, Options{})
		require.NoError(t, err)
		assert.Equal(t, "from b", out)
		assert.Equal(t, 0, c.callCount())
	})

	t.Run("exhaustion aggregates errors", func(t *testing.T) {
		t.Parallel()
		a := &fakeClient{name: "a", results: []fakeResult{{err: errors.NewStd("first down")}}}
		b := &fakeClient{name: "b", results: []fakeResult{{err: ErrRateLimited}}}
		exhausted := 0

		_, err := Fallback([]Client{a, b}, OnExhausted(func() { exhausted++ })).
			Generate(t.Context(), nil, Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "all LLM providers failed")
		assert.Contains(t, err.Error(), "a: first down")
		assert.Contains(t, err.Error(), "b: rate limited")
		assert.Equal(t, exhaustedHint, errors.HintOf(err))
		assert.Equal(t, 1, exhausted)
	})

	t.Run("cancellation stops the chain", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(t.Context())
		a := &fakeClient{name: "a", results: []fakeResult{{err: context.Canceled}}}
		b := &fakeClient{name: "b", results: []fakeResult{{text: "late"}}}
		cancel()

		_, err := Fallback([]Client{a, b}).Generate(ctx, nil, Options{})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, b.callCount())
	})

	t.Run("empty chain", func(t *testing.T) {
		t.Parallel()
		_, err := Fallback(nil).Generate(t.Context(), nil, Options{})
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	})

	t.Run("name lists providers", func(t *testing.T) {
		t.Parallel()
		f := Fallback([]Client{&fakeClient{name: "x"}, &fakeClient{name: "y"}})
		assert.Equal(t, "fallback(x,y)", f.Name())
		assert.Equal(t, []string{"x", "y"}, f.Providers())
	})
}
