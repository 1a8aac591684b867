// Package llm provides the language model collaborator: provider clients,
// cross-cutting middleware and ordered multi-provider fallback.
package llm

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/httpclient"
	"github.com/tphakala/lyricgraph/internal/logger"
)

// Role distinguishes message authors.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant returns an assistant message.
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Options controls sampling for one request.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Client generates text from an ordered conversation.
type Client interface {
	Name() string
	Generate(ctx context.Context, messages []Message, opts Options) (string, error)
}

// Middleware decorates a Client with a cross-cutting concern.
type Middleware func(Client) Client

// Wrap applies middlewares so that Wrap(c, A, B) yields A(B(c)).
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// ErrRateLimited marks provider errors that signal rate limiting.
var ErrRateLimited = errors.NewStd("rate limited")

// IsRateLimited reports whether err is a rate limit signal from any provider.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.IsCategory(err, errors.CategoryRateLimit) {
		return true
	}

	var se *httpclient.StatusError
	if errors.As(err, &se) && se.RateLimited() {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "rate limit")
}

// providerError wraps a provider failure, tagging rate limits so the retry
// middleware can recognize them.
func providerError(err error, provider string) error {
	category := errors.CategoryProvider
	if IsRateLimited(err) {
		category = errors.CategoryRateLimit
	}
	return errors.New(err).
		Component("llm").
		Category(category).
		Context("provider", provider).
		Build()
}

// GetLogger returns the llm module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("llm")
}
