package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/logger"
)

// exhaustedHint is attached to the error returned when every provider failed.
const exhaustedHint = "Add more free API keys, or wait a few minutes for rate limits to reset"

// FallbackClient tries an ordered list of clients and returns the first
// successful response.
type FallbackClient struct {
	clients     []Client
	onExhausted func()
}

// FallbackOption configures a FallbackClient.
type FallbackOption func(*FallbackClient)

// OnExhausted registers a callback run when every client failed.
func OnExhausted(fn func()) FallbackOption {
	return func(f *FallbackClient) { f.onExhausted = fn }
}

// Fallback returns a client trying clients in order.
func Fallback(clients []Client, opts ...FallbackOption) *FallbackClient {
	f := &FallbackClient{clients: clients}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name lists the chained providers.
func (f *FallbackClient) Name() string {
	return "fallback(" + strings.Join(f.Providers(), ",") + ")"
}

// Providers returns the chained provider names in order.
func (f *FallbackClient) Providers() []string {
	names := make([]string, len(f.clients))
	for i, c := range f.clients {
		names[i] = c.Name()
	}
	return names
}

// Generate returns the first successful response. Cancellation stops the chain.
func (f *FallbackClient) Generate(ctx context.Context, messages []Message, opts Options) (string, error) {
	if len(f.clients) == 0 {
		return "", errors.Newf("no LLM providers configured").
			Component("llm").
			Category(errors.CategoryConfiguration).
			Hint("add GEMINI_API_KEY to .env or start a local Ollama server").
			Build()
	}

	log := GetLogger()
	var errs []error
	for i, c := range f.clients {
		text, err := c.Generate(ctx, messages, opts)
		if err == nil {
			if i > 0 {
				log.Info("llm fallback succeeded",
					logger.String("provider", c.Name()),
					logger.Int("failed_providers", i))
			}
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", errors.New(ctxErr).
				Component("llm").
				Category(errors.CategoryCancellation).
				Context("provider", c.Name()).
				Build()
		}
		log.Warn("llm provider failed, trying next",
			logger.String("provider", c.Name()),
			logger.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
	}

	if f.onExhausted != nil {
		f.onExhausted()
	}
	return "", errors.New(fmt.Errorf("all LLM providers failed: %w", errors.Join(errs...))).
		Component("llm").
		Category(errors.CategoryProvider).
		Context("providers", len(f.clients)).
		Hint(exhaustedHint).
		Build()
}
