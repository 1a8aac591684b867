package llm

import (
	"context"
	"slices"
	"strings"

	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/httpclient"
	"github.com/tphakala/lyricgraph/internal/logger"
)

// DefaultOllamaURL is the local Ollama server address.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaClient calls a model served by a local Ollama server.
type OllamaClient struct {
	http  *httpclient.Client
	model string
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error,omitempty"`
}

type ollamaModel struct {
	Name string `json:"name"`
}

type ollamaTagsResponse struct {
	Models []ollamaModel `json:"models"`
}

// NewOllama returns a client for model on the server behind hc.
func NewOllama(hc *httpclient.Client, model string) *OllamaClient {
	return &OllamaClient{http: hc, model: model}
}

// Name returns the provider and model label.
func (o *OllamaClient) Name() string { return "ollama:" + o.model }

// Generate runs a non-streaming chat completion.
func (o *OllamaClient) Generate(ctx context.Context, messages []Message, opts Options) (string, error) {
	req := ollamaChatRequest{
		Model:    o.model,
		Messages: make([]ollamaMessage, 0, len(messages)),
		Options:  ollamaOptions{Temperature: opts.Temperature, NumPredict: opts.MaxTokens},
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}

	var resp ollamaChatResponse
	if err := o.http.PostJSON(ctx, "/api/chat", req, &resp); err != nil {
		return "", providerError(err, o.Name())
	}
	if resp.Error != "" {
		return "", providerError(errors.NewStd(resp.Error), o.Name())
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		return "", providerError(errors.NewStd("empty response"), o.Name())
	}
	return resp.Message.Content, nil
}

// Available reports whether the server is reachable and serves the model.
func (o *OllamaClient) Available(ctx context.Context) bool {
	var tags ollamaTagsResponse
	if err := o.http.GetJSON(ctx, "/api/tags", &tags); err != nil {
		GetLogger().Debug("ollama not reachable",
			logger.String("model", o.model),
			logger.Error(err))
		return false
	}
	return slices.ContainsFunc(tags.Models, func(m ollamaModel) bool {
		return m.Name == o.model || strings.TrimSuffix(m.Name, ":latest") == o.model
	})
}
