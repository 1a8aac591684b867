// Package embedding provides the text to vector collaborator used for
// semantic search: a Gemini embedder, a deterministic offline hashing
// embedder and a TTL cache in front of either.
package embedding

import (
	"context"

	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/logger"
)

// DefaultDimensions is the vector width used when none is configured.
const DefaultDimensions = 384

// Embedder turns text into fixed width vectors. Implementations must be
// deterministic for a given text and model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

// GetLogger returns the embedding module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("embedding")
}

// New returns the configured embedder wrapped in a query cache. A gemini
// provider without an API key falls back to the hashing embedder.
func New(ctx context.Context, settings *conf.EmbeddingSettings) (Embedder, error) {
	dims := settings.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}

	var base Embedder
	switch settings.Provider {
	case conf.ProviderGemini:
		if settings.APIKey == "" {
			GetLogger().Warn("gemini embedding provider has no api key, using hashing embedder",
				logger.Int("dimensions", dims))
			base = NewHashing(dims)
			break
		}
		g, err := NewGemini(ctx, settings.APIKey, settings.Model, dims)
		if err != nil {
			return nil, err
		}
		base = g
	case conf.ProviderHashing, "":
		base = NewHashing(dims)
	default:
		return nil, errors.Newf("unknown embedding provider %q", settings.Provider).
			Component("embedding").
			Category(errors.CategoryConfiguration).
			Hint("set embedding.provider to gemini or hashing").
			Build()
	}

	GetLogger().Info("embedder configured",
		logger.String("embedder", base.Name()),
		logger.Int("dimensions", base.Dimensions()))
	return NewCached(base, settings.CacheTTL), nil
}

func embedError(err error, embedder string, batch int) error {
	return errors.New(err).
		Component("embedding").
		Category(errors.CategoryEmbedding).
		Context("embedder", embedder).
		Context("batch_size", batch).
		Build()
}
