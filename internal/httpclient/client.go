// Package httpclient provides a context-aware JSON HTTP client for the model
// servers lyricgraph talks to, with per-request timeouts, connection pooling
// and observability hooks.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tphakala/lyricgraph/internal/errors"
)

const (
	// DefaultTimeout is applied when the request context carries no deadline.
	DefaultTimeout = 120 * time.Second

	defaultMaxIdleConnsPerHost = 4
	defaultIdleConnTimeout     = 90 * time.Second
	defaultDialTimeout         = 10 * time.Second
	defaultDialKeepAlive       = 30 * time.Second
	defaultUserAgent           = "lyricgraph"

	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 2048
)

// Client wraps http.Client with base URL resolution, JSON helpers and hooks.
// It is safe for concurrent use.
type Client struct {
	client         *http.Client
	baseURL        string
	defaultTimeout time.Duration
	userAgent      string

	hookMu        sync.RWMutex
	beforeRequest func(*http.Request)
	afterResponse func(*http.Request, *http.Response, error)
}

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is prepended to relative request paths.
	BaseURL string

	// DefaultTimeout is used when the request context has no deadline.
	DefaultTimeout time.Duration

	// UserAgent is added to every request.
	UserAgent string

	// MaxIdleConnsPerHost controls the per-host connection pool.
	MaxIdleConnsPerHost int

	// Transport overrides the pooled transport, e.g. with a mock in tests.
	Transport http.RoundTripper
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:      DefaultTimeout,
		UserAgent:           defaultUserAgent,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
	}
}

// New creates a client. A nil cfg uses DefaultConfig; zero fields get defaults.
func New(cfg *Config) *Client {
	c := DefaultConfig()
	if cfg != nil {
		c.BaseURL = cfg.BaseURL
		c.Transport = cfg.Transport
		if cfg.DefaultTimeout > 0 {
			c.DefaultTimeout = cfg.DefaultTimeout
		}
		if cfg.UserAgent != "" {
			c.UserAgent = cfg.UserAgent
		}
		if cfg.MaxIdleConnsPerHost > 0 {
			c.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
		}
	}

	transport := c.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   defaultDialTimeout,
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			ForceAttemptHTTP2:   true,
			MaxIdleConnsPerHost: c.MaxIdleConnsPerHost,
			IdleConnTimeout:     defaultIdleConnTimeout,
		}
	}

	return &Client{
		client:         &http.Client{Transport: transport},
		baseURL:        strings.TrimRight(c.BaseURL, "/"),
		defaultTimeout: c.DefaultTimeout,
		userAgent:      c.UserAgent,
	}
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) resolve(path string) string {
	if c.baseURL == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Do executes req. When ctx has no deadline the default timeout applies; the
// returned cancel func must be called after the body has been consumed.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, context.CancelFunc, error) {
	cancel := context.CancelFunc(func() {})
	if _, ok := ctx.Deadline(); !ok && c.defaultTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
	}
	req = req.WithContext(ctx)

	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.hookMu.RLock()
	before, after := c.beforeRequest, c.afterResponse
	c.hookMu.RUnlock()

	if before != nil {
		before(req)
	}
	resp, err := c.client.Do(req)
	if after != nil {
		after(req, resp, err)
	}
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return resp, cancel, nil
}

// GetJSON performs a GET and decodes a 2xx JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path), http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create GET request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.doJSON(ctx, req, out)
}

// PostJSON marshals in, POSTs it and decodes a 2xx JSON response into out.
// out may be nil.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create POST request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.doJSON(ctx, req, out)
}

func (c *Client) doJSON(ctx context.Context, req *http.Request, out any) error {
	start := time.Now()
	resp, cancel, err := c.Do(ctx, req)
	if err != nil {
		return errors.New(err).
			Component("httpclient").
			Category(errors.CategoryNetwork).
			Context("url", req.URL.Redacted()).
			Timing("http_request", time.Since(start)).
			Build()
	}
	defer cancel()
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Code:       resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.New(err).
			Component("httpclient").
			Category(errors.CategoryFileParsing).
			Context("url", req.URL.Redacted()).
			Build()
	}
	return nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// RateLimited reports whether the server asked the caller to slow down.
func (e *StatusError) RateLimited() bool {
	return e.Code == http.StatusTooManyRequests
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// SetBeforeRequestHook sets a function called before each request.
func (c *Client) SetBeforeRequestHook(fn func(*http.Request)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.beforeRequest = fn
}

// SetAfterResponseHook sets a function called after each request.
func (c *Client) SetAfterResponseHook(fn func(*http.Request, *http.Response, error)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.afterResponse = fn
}

// Close closes idle pooled connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
