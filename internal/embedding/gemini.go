package embedding

import (
	"context"

	"google.golang.org/genai"

	"github.com/tphakala/lyricgraph/internal/errors"
)

const (
	// geminiMaxBatch is the largest number of texts sent in one request.
	geminiMaxBatch = 100

	defaultGeminiModel = "text-embedding-004"
)

// GeminiEmbedder embeds text with a Gemini embedding model.
type GeminiEmbedder struct {
	cli   *genai.Client
	model string
	dims  int
}

// NewGemini creates a Gemini embedder for model.
func NewGemini(ctx context.Context, apiKey, model string, dims int) (*GeminiEmbedder, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.New(err).
			Component("embedding").
			Category(errors.CategoryConfiguration).
			Hint("check the embedding API key (embedding.apikey or GEMINI_API_KEY)").
			Build()
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiEmbedder{cli: cli, model: model, dims: dims}, nil
}

// Name returns the provider and model label.
func (g *GeminiEmbedder) Name() string { return "gemini:" + g.model }

// Dimensions returns the requested output width.
func (g *GeminiEmbedder) Dimensions() int { return g.dims }

// Embed embeds a single text.
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in requests of at most 100 texts.
func (g *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	cfg := &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(g.dims)), //nolint:gosec // bounded by config validation
	}
	for from := 0; from < len(texts); from += geminiMaxBatch {
		chunk := texts[from:min(from+geminiMaxBatch, len(texts))]
		contents := make([]*genai.Content, len(chunk))
		for i, t := range chunk {
			contents[i] = genai.NewContentFromText(t, genai.RoleUser)
		}

		resp, err := g.cli.Models.EmbedContent(ctx, g.model, contents, cfg)
		if err != nil {
			return nil, embedError(err, g.Name(), len(chunk))
		}
		if len(resp.Embeddings) != len(chunk) {
			return nil, embedError(errors.Newf("got %d embeddings for %d texts", len(resp.Embeddings), len(chunk)).Build(),
				g.Name(), len(chunk))
		}
		for _, e := range resp.Embeddings {
			out = append(out, e.Values)
		}
	}
	return out, nil
}
