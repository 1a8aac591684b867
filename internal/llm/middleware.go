package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/logger"
	"github.com/tphakala/lyricgraph/internal/observability/metrics"
)

// clientFunc adapts a function to the Client interface while keeping the
// wrapped client's name.
type clientFunc struct {
	name string
	fn   func(ctx context.Context, messages []Message, opts Options) (string, error)
}

func (c clientFunc) Name() string { return c.name }

func (c clientFunc) Generate(ctx context.Context, messages []Message, opts Options) (string, error) {
	return c.fn(ctx, messages, opts)
}

// RateLimit throttles calls to rps requests per second. A non-positive rps
// disables limiting.
func RateLimit(rps float64, burst int) Middleware {
	if rps <= 0 {
		return func(next Client) Client { return next }
	}
	return Limit(rate.NewLimiter(rate.Limit(rps), max(burst, 1)))
}

// Limit waits on limiter before every call. Sharing one limiter across
// clients makes them share the budget.
func Limit(limiter *rate.Limiter) Middleware {
	return func(next Client) Client {
		return clientFunc{name: next.Name(), fn: func(ctx context.Context, messages []Message, opts Options) (string, error) {
			if err := limiter.Wait(ctx); err != nil {
				return "", errors.New(err).
					Component("llm").
					Category(errors.CategoryCancellation).
					Context("provider", next.Name()).
					Build()
			}
			return next.Generate(ctx, messages, opts)
		}}
	}
}

// Retry makes up to maxAttempts calls. Only rate limited failures are retried,
// after waiting (attempt+1) * base. Other failures return immediately so the
// fallback chain can move on.
func Retry(maxAttempts int, base time.Duration) Middleware {
	return func(next Client) Client {
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		return clientFunc{name: next.Name(), fn: func(ctx context.Context, messages []Message, opts Options) (string, error) {
			var lastErr error
			for attempt := range maxAttempts {
				text, err := next.Generate(ctx, messages, opts)
				if err == nil {
					return text, nil
				}
				lastErr = err
				if !IsRateLimited(err) || attempt == maxAttempts-1 {
					break
				}

				wait := time.Duration(attempt+1) * base
				GetLogger().Warn("rate limited, waiting before retry",
					logger.String("provider", next.Name()),
					logger.Int("attempt", attempt+1),
					logger.Duration("wait", wait))

				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					return "", ctx.Err()
				case <-timer.C:
				}
			}
			return "", lastErr
		}}
	}
}

// WithLogging logs every call with its duration and outcome.
func WithLogging(log logger.Logger) Middleware {
	return func(next Client) Client {
		return clientFunc{name: next.Name(), fn: func(ctx context.Context, messages []Message, opts Options) (string, error) {
			start := time.Now()
			text, err := next.Generate(ctx, messages, opts)
			fields := []logger.Field{
				logger.String("provider", next.Name()),
				logger.Int("messages", len(messages)),
				logger.Duration("duration", time.Since(start)),
			}
			if err != nil {
				log.Warn("llm call failed", append(fields, logger.Error(err))...)
				return "", err
			}
			log.Debug("llm call completed", append(fields, logger.Int("response_chars", len(text)))...)
			return text, nil
		}}
	}
}

// WithMetrics records call counts, durations and error types.
func WithMetrics(rec metrics.Recorder) Middleware {
	return func(next Client) Client {
		if rec == nil {
			return next
		}
		return clientFunc{name: next.Name(), fn: func(ctx context.Context, messages []Message, opts Options) (string, error) {
			start := time.Now()
			text, err := next.Generate(ctx, messages, opts)
			rec.RecordDuration(next.Name(), time.Since(start).Seconds())
			switch {
			case err == nil:
				rec.RecordOperation(next.Name(), metrics.StatusSuccess)
			case IsRateLimited(err):
				rec.RecordOperation(next.Name(), metrics.StatusRateLimited)
				rec.RecordError(next.Name(), "rate_limit")
			default:
				rec.RecordOperation(next.Name(), metrics.StatusError)
				rec.RecordError(next.Name(), "provider")
			}
			return text, err
		}}
	}
}
