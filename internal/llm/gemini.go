package llm

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/tphakala/lyricgraph/internal/errors"
)

// GeminiClient calls one Gemini model. Several clients may share one genai.Client.
type GeminiClient struct {
	cli       *genai.Client
	model     string
	maxTokens int
}

// NewGenAIClient creates the shared Gemini API client.
func NewGenAIClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.New(err).
			Component("llm").
			Category(errors.CategoryConfiguration).
			Hint("check the Gemini API key (llm.providers[].apikey or GEMINI_API_KEY)").
			Build()
	}
	return cli, nil
}

// NewGemini returns a client for model on cli.
func NewGemini(cli *genai.Client, model string, maxTokens int) *GeminiClient {
	return &GeminiClient{cli: cli, model: model, maxTokens: maxTokens}
}

// Name returns the provider and model label.
func (g *GeminiClient) Name() string { return "gemini:" + g.model }

// Generate sends system messages as the system instruction and the rest as
// user and model turns.
func (g *GeminiClient) Generate(ctx context.Context, messages []Message, opts Options) (string, error) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens) //nolint:gosec // bounded by config validation
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", providerError(err, g.Name())
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", providerError(errors.NewStd("empty response"), g.Name())
	}
	return text, nil
}
