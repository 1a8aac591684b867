// Package generation orchestrates graph-powered song generation, artist chat
// and the one-time setup that builds an artist's graph.
package generation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/lyricgraph/internal/analysis"
	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/datastore"
	"github.com/tphakala/lyricgraph/internal/embedding"
	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/lexicon"
	"github.com/tphakala/lyricgraph/internal/llm"
	"github.com/tphakala/lyricgraph/internal/logger"
	"github.com/tphakala/lyricgraph/internal/observability/metrics"
	"github.com/tphakala/lyricgraph/internal/prompt"
	"github.com/tphakala/lyricgraph/internal/retrieval"
	"github.com/tphakala/lyricgraph/internal/validation"
)

// Reference limits and preview length.
const (
	SongReferences     = 5
	ChatReferences     = 3
	referencePreview   = 200
	defaultMaxHistory  = 10
	defaultTemperature = 0.85
	defaultChatTemp    = 0.7
)

// Stores gives access to per-artist graph stores.
type Stores interface {
	retrieval.Stores
	Reset(ctx context.Context, artist string) (datastore.Interface, error)
}

// Deps carries the collaborators of a Service.
type Deps struct {
	Stores   Stores
	Embedder embedding.Embedder
	LLM      llm.Client
	Lexicon  *lexicon.Lexicon

	RetrievalMetrics  *metrics.RetrievalMetrics
	ValidationMetrics *metrics.ValidationMetrics
}

// Service generates songs and chat replies in an artist's voice.
type Service struct {
	settings  *conf.Settings
	stores    Stores
	embedder  embedding.Embedder
	client    llm.Client
	lex       *lexicon.Lexicon
	pipeline  *retrieval.Pipeline
	validator *validation.Validator
	valMetric *metrics.ValidationMetrics
	log       logger.Logger
}

// New builds a service. Stores and Embedder are required. Without an LLM
// client setup still runs, with keyword metaphor extraction, while Generate
// and Chat fail.
func New(settings *conf.Settings, deps Deps) (*Service, error) {
	if deps.Stores == nil || deps.Embedder == nil {
		return nil, errors.Newf("generation service needs stores and an embedder").
			Component("generation").
			Category(errors.CategoryConfiguration).
			Build()
	}
	lex := deps.Lexicon
	if lex == nil {
		lex = lexicon.Default()
	}

	opts := []retrieval.Option{
		retrieval.WithProcessedDir(settings.ProcessedDir()),
		retrieval.WithStageTimeout(settings.Retrieval.StageTimeout),
	}
	if deps.RetrievalMetrics != nil {
		opts = append(opts, retrieval.WithMetrics(deps.RetrievalMetrics))
	}

	return &Service{
		settings:  settings,
		stores:    deps.Stores,
		embedder:  deps.Embedder,
		client:    deps.LLM,
		lex:       lex,
		pipeline:  retrieval.NewPipeline(deps.Stores, deps.Embedder, opts...),
		validator: validation.New(lex),
		valMetric: deps.ValidationMetrics,
		log:       logger.Global().Module("generation"),
	}, nil
}

// Reference is a catalog section shown alongside a result.
type Reference struct {
	NodeID      string  `json:"node_id"`
	Text        string  `json:"text"`
	SongTitle   string  `json:"song_title"`
	SectionType string  `json:"section_type"`
	Mood        string  `json:"mood,omitempty"`
	Score       float64 `json:"score"`
}

// Summary is the validation breakdown of a generated song.
type Summary struct {
	OverallScore      float64                   `json:"overall_score"`
	Passed            bool                      `json:"passed"`
	Attempts          int                       `json:"attempts"`
	VocabularyScore   float64                   `json:"vocabulary_score"`
	OriginalityScore  float64                   `json:"originality_score"`
	RhymeScore        float64                   `json:"rhyme_score"`
	EmotionalArcScore float64                   `json:"emotional_arc_score"`
	StructureScore    float64                   `json:"structure_score"`
	Recommendation    validation.Recommendation `json:"recommendation"`
	FlaggedLines      []validation.FlaggedLine  `json:"flagged_lines"`
}

// Song is the result of Generate.
type Song struct {
	RequestID    string      `json:"request_id"`
	Song         string      `json:"song"`
	Artist       string      `json:"artist"`
	Topic        string      `json:"topic"`
	References   []Reference `json:"references"`
	Validation   Summary     `json:"validation"`
	GraphPowered bool        `json:"graph_powered"`
}

// Reply is the result of Chat.
type Reply struct {
	RequestID    string      `json:"request_id"`
	Response     string      `json:"response"`
	References   []Reference `json:"references"`
	GraphPowered bool        `json:"graph_powered"`
}

// withRequestID reuses the caller's trace id as the request id, minting one
// when the context carries none.
func withRequestID(ctx context.Context) (context.Context, string) {
	if id := logger.TraceIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return logger.WithTraceID(ctx, id), id
}

// Generate writes a song about topic in the artist's voice. Without a graph
// the song is generated from an empty retrieval result. Validation never
// fails the call; the best attempt is returned.
func (s *Service) Generate(ctx context.Context, artist, topic string) (*Song, error) {
	cfg, err := s.artist(artist)
	if err != nil {
		return nil, err
	}
	if err := s.requireLLM(); err != nil {
		return nil, err
	}
	ctx, requestID := withRequestID(ctx)
	log := s.log.WithContext(ctx).With(logger.String("artist", artist))
	start := time.Now()

	req := retrieval.AnalyzeRequest(topic, s.lex)
	res := s.pipeline.Execute(ctx, artist, req)

	system := prompt.System(cfg.Name, res)
	user := prompt.Generation(topic, cfg.Name, &req, res)
	exp := s.expectations(ctx, artist, res)

	opts := llm.Options{
		Temperature: orFloat(s.settings.Generation.Temperature, defaultTemperature),
		MaxTokens:   s.settings.LLM.MaxTokens,
	}
	loop := validation.NewLoop(s.validator,
		validation.WithMaxAttempts(s.settings.Generation.MaxAttempts),
		validation.WithMetrics(s.valMetric))

	outcome, err := loop.Run(ctx, exp, func(ctx context.Context, kind validation.PromptKind, prev *validation.Attempt) (string, error) {
		content := user
		switch kind {
		case validation.PromptRepair:
			content = prompt.Repair(prev.Output, &prev.Report, cfg.Name)
		case validation.PromptEnhanced:
			content = prompt.Enhanced(&prev.Report, cfg.Name, topic)
		}
		return s.client.Generate(ctx, []llm.Message{llm.System(system), llm.User(content)}, opts)
	})
	if err != nil {
		log.Error("song generation failed", logger.Error(err))
		return nil, err
	}

	best := outcome.Best
	log.Info("song generated",
		logger.String("topic", topic),
		logger.Bool("graph_powered", res.GraphPowered),
		logger.Int("attempts", len(outcome.Attempts)),
		logger.Float64("score", best.Report.OverallScore),
		logger.String("final_state", string(outcome.Final)),
		logger.Duration("duration", time.Since(start)))

	return &Song{
		RequestID:    requestID,
		Song:         best.Output,
		Artist:       artist,
		Topic:        topic,
		References:   references(res.ThematicSections, SongReferences),
		Validation:   summarize(&best.Report, len(outcome.Attempts)),
		GraphPowered: res.GraphPowered,
	}, nil
}

// Chat answers message as the artist's persona. history holds earlier user
// and assistant turns, oldest first; only the most recent ones are sent.
func (s *Service) Chat(ctx context.Context, artist, message string, history []llm.Message) (*Reply, error) {
	cfg, err := s.artist(artist)
	if err != nil {
		return nil, err
	}
	if err := s.requireLLM(); err != nil {
		return nil, err
	}
	ctx, requestID := withRequestID(ctx)

	req := retrieval.AnalyzeRequest(message, s.lex)
	res := s.pipeline.Execute(ctx, artist, req)

	messages := []llm.Message{llm.System(prompt.System(cfg.Name, res))}
	messages = append(messages, s.trimHistory(history)...)
	messages = append(messages, llm.User(prompt.Chat(message, cfg.Name)))

	reply, err := s.client.Generate(ctx, messages, llm.Options{
		Temperature: orFloat(s.settings.Generation.ChatTemperature, defaultChatTemp),
		MaxTokens:   s.settings.LLM.MaxTokens,
	})
	if err != nil {
		s.log.WithContext(ctx).Error("chat failed", logger.String("artist", artist), logger.Error(err))
		return nil, err
	}
	return &Reply{
		RequestID:    requestID,
		Response:     reply,
		References:   references(res.ThematicSections, ChatReferences),
		GraphPowered: res.GraphPowered,
	}, nil
}

// Retrieve runs the retrieval pipeline alone, for inspection.
func (s *Service) Retrieve(ctx context.Context, artist, topic string) (*retrieval.RequestAnalysis, *retrieval.Result, error) {
	if _, err := s.artist(artist); err != nil {
		return nil, nil, err
	}
	req := retrieval.AnalyzeRequest(topic, s.lex)
	return &req, s.pipeline.Execute(ctx, artist, req), nil
}

// Embedder returns the embedder used for queries.
func (s *Service) Embedder() embedding.Embedder {
	return s.embedder
}

// Stores returns the graph store registry.
func (s *Service) Stores() Stores {
	return s.stores
}

func (s *Service) artist(slug string) (conf.ArtistConfig, error) {
	cfg, err := s.settings.Artist(slug)
	if err != nil {
		return cfg, errors.New(err).
			Component("generation").
			Category(errors.CategoryNotFound).
			Artist(slug).
			Hint("add the artist under artists in config.yaml").
			Build()
	}
	return cfg, nil
}

func (s *Service) requireLLM() error {
	if s.client != nil {
		return nil
	}
	return errors.Newf("no LLM providers available").
		Component("generation").
		Category(errors.CategoryConfiguration).
		Hint("add GEMINI_API_KEY to .env or configure an ollama provider in config.yaml").
		Build()
}

// expectations collects what generated songs are validated against.
func (s *Service) expectations(ctx context.Context, artist string, res *retrieval.Result) *validation.Expectations {
	exp := &validation.Expectations{
		VocabularySet:  res.Fingerprint.VocabularySet,
		AntiVocabulary: res.Fingerprint.AntiVocabulary,
		Catalog:        validation.NewCatalog(s.existingLines(ctx, artist, res.GraphPowered)),
	}
	if len(res.Structures) > 0 {
		exp.Structure = res.Structures[0].Pattern
	}
	return exp
}

// existingLines reads the artist's catalog lines from the graph data file,
// falling back to the graph. Without either the originality check is skipped.
func (s *Service) existingLines(ctx context.Context, artist string, graphPowered bool) []string {
	log := s.log.WithContext(ctx).With(logger.String("artist", artist))

	data, err := analysis.ReadGraphData(s.settings.ProcessedDir(), artist)
	if err == nil {
		var lines []string
		for i := range data.Songs {
			for _, l := range data.Songs[i].Lines() {
				if text := strings.TrimSpace(l.Text); text != "" {
					lines = append(lines, text)
				}
			}
		}
		return lines
	}
	if !errors.IsMissingData(err) {
		log.Warn("failed to read graph data, using graph lines", logger.Error(err))
	}
	if !graphPowered {
		return nil
	}

	store, err := s.stores.Get(ctx, artist)
	if err != nil {
		log.Warn("failed to open graph for catalog lines", logger.Error(err))
		return nil
	}
	lines, err := store.ArtistLines(ctx)
	if err != nil {
		log.Warn("failed to load catalog lines", logger.Error(err))
		return nil
	}
	return lines
}

func (s *Service) trimHistory(history []llm.Message) []llm.Message {
	limit := s.settings.Generation.MaxHistory
	if limit <= 0 {
		limit = defaultMaxHistory
	}
	// one exchange is a user and an assistant message
	if n := 2 * limit; len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		if m.Role == llm.RoleSystem || strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

func references(sections []retrieval.Section, limit int) []Reference {
	refs := make([]Reference, 0, min(len(sections), limit))
	for _, sec := range sections[:min(len(sections), limit)] {
		text := []rune(sec.Text)
		if len(text) > referencePreview {
			text = text[:referencePreview]
		}
		refs = append(refs, Reference{
			NodeID:      sec.NodeID,
			Text:        string(text),
			SongTitle:   prompt.SongTitle(sec.NodeID),
			SectionType: sec.SectionType,
			Mood:        sec.Mood,
			Score:       sec.Score,
		})
	}
	return refs
}

func summarize(r *validation.Report, attempts int) Summary {
	flagged := r.FlaggedLines
	if flagged == nil {
		flagged = []validation.FlaggedLine{}
	}
	return Summary{
		OverallScore:      r.OverallScore,
		Passed:            r.Passed,
		Attempts:          attempts,
		VocabularyScore:   r.VocabularyScore,
		OriginalityScore:  r.OriginalityScore,
		RhymeScore:        r.RhymeScore,
		EmotionalArcScore: r.EmotionalArcScore,
		StructureScore:    r.StructureScore,
		Recommendation:    r.Recommendation,
		FlaggedLines:      flagged,
	}
}

func orFloat(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
