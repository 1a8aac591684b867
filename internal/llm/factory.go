package llm

import (
	"context"

	"google.golang.org/genai"

	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/httpclient"
	"github.com/tphakala/lyricgraph/internal/logger"
	"github.com/tphakala/lyricgraph/internal/observability/metrics"
)

// Deps carries optional collaborators for New.
type Deps struct {
	// Metrics records per provider calls. Nil disables recording.
	Metrics *metrics.LLMMetrics
	// HTTP replaces the Ollama client, e.g. with one on a mock transport.
	HTTP *httpclient.Client
}

// New builds the ordered fallback chain described by settings. Each model of
// each provider becomes one chain entry wrapped with logging, metrics, retry
// and rate limiting. Providers without credentials are skipped.
func New(ctx context.Context, settings *conf.LLMSettings, deps Deps) (*FallbackClient, error) {
	log := GetLogger()

	var rec metrics.Recorder
	if deps.Metrics != nil {
		rec = deps.Metrics
	}

	var clients []Client
	for i := range settings.Providers {
		p := &settings.Providers[i]

		var base []Client
		switch p.Type {
		case conf.ProviderGemini:
			if p.APIKey == "" {
				log.Debug("skipping gemini provider without api key", logger.String("provider", p.Name))
				continue
			}
			cli, err := NewGenAIClient(ctx, p.APIKey)
			if err != nil {
				return nil, err
			}
			base = geminiModels(cli, p.Models, settings.MaxTokens)

		case conf.ProviderOllama:
			hc := deps.HTTP
			if hc == nil {
				hc = httpclient.New(&httpclient.Config{
					BaseURL:        p.BaseURL,
					DefaultTimeout: settings.Timeout,
				})
			}
			for _, model := range p.Models {
				base = append(base, NewOllama(hc, model))
			}

		default:
			log.Warn("skipping provider of unknown type",
				logger.String("provider", p.Name),
				logger.String("type", p.Type))
			continue
		}

		// Models of one provider share its rate budget.
		limit := RateLimit(settings.RateLimit, settings.Burst)
		for _, c := range base {
			clients = append(clients, Wrap(c,
				WithLogging(log),
				WithMetrics(rec),
				Retry(settings.MaxRetries, settings.RetryBaseDelay),
				limit,
			))
		}
	}

	if len(clients) == 0 {
		return nil, errors.Newf("no LLM providers available").
			Component("llm").
			Category(errors.CategoryConfiguration).
			Hint("add GEMINI_API_KEY to .env or configure an ollama provider in config.yaml").
			Build()
	}

	var opts []FallbackOption
	if deps.Metrics != nil {
		opts = append(opts, OnExhausted(deps.Metrics.RecordFallbackExhausted))
	}
	chain := Fallback(clients, opts...)
	log.Info("llm providers configured", logger.Any("providers", chain.Providers()))
	return chain, nil
}

func geminiModels(cli *genai.Client, models []string, maxTokens int) []Client {
	out := make([]Client, 0, len(models))
	for _, m := range models {
		out = append(out, NewGemini(cli, m, maxTokens))
	}
	return out
}
