package retrieval

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/lyricgraph/internal/datastore"
	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/logger"
	"github.com/tphakala/lyricgraph/internal/observability/metrics"
	"github.com/tphakala/lyricgraph/internal/search"
)

// Pipeline statuses recorded in metrics.
const (
	statusSuccess  = metrics.StatusSuccess
	statusDegraded = "degraded"
	statusNoGraph  = "no_graph"
)

// Stores resolves artist graph stores. Implemented by *datastore.Registry.
type Stores interface {
	GraphExists(ctx context.Context, artist string) (bool, error)
	Get(ctx context.Context, artist string) (datastore.Interface, error)
}

// Pipeline runs the retrieval stages against an artist's graph. It holds no
// per-request state and is safe for concurrent use.
type Pipeline struct {
	stores       Stores
	embedder     search.QueryEmbedder
	processedDir string
	stageTimeout time.Duration
	metrics      *metrics.RetrievalMetrics
	log          logger.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProcessedDir sets the directory holding the analysis artifacts the
// vocabulary and rhyme stages read the fingerprint from.
func WithProcessedDir(dir string) Option {
	return func(p *Pipeline) { p.processedDir = dir }
}

// WithStageTimeout bounds each stage. Zero disables the bound.
func WithStageTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.stageTimeout = d }
}

// WithMetrics records stage outcomes and durations.
func WithMetrics(m *metrics.RetrievalMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates a pipeline. A nil embedder limits stage 1 to keyword search.
func NewPipeline(stores Stores, embedder search.QueryEmbedder, opts ...Option) *Pipeline {
	p := &Pipeline{
		stores:   stores,
		embedder: embedder,
		log:      logger.Global().Module("retrieval"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// stage is one independent unit of the pipeline. It sets only its own
// result fields.
type stage struct {
	name string
	run  func(ctx context.Context, in *stageInput, res *Result) error
}

// stageInput is shared read-only by all stages of one run.
type stageInput struct {
	artist string
	store  datastore.Reader
	req    *RequestAnalysis
}

func (p *Pipeline) stages() []stage {
	return []stage{
		{"stage1_thematic", p.thematicSections},
		{"stage2_vocabulary", p.vocabulary},
		{"stage3_rhyme", p.rhymeSchemes},
		{"stage4_arcs", p.emotionalArcs},
		{"stage5_metaphors", p.metaphors},
		{"stage6_cultural", p.culturalReferences},
		{"stage7_structures", p.structures},
		{"fingerprint", p.fingerprint},
	}
}

// Execute runs every stage concurrently and waits for all of them. It never
// fails: without a graph it returns an empty result, and a failing stage
// only leaves its own fields empty.
func (p *Pipeline) Execute(ctx context.Context, artist string, req RequestAnalysis) *Result {
	start := time.Now()
	res := NewResult(artist)
	log := p.log.With(logger.String("artist", artist))

	store, ok := p.openGraph(ctx, artist, log)
	if !ok {
		p.recordPipeline(statusNoGraph, start)
		return res
	}
	res.GraphPowered = true

	in := &stageInput{artist: artist, store: store, req: &req}
	stages := p.stages()
	failed := make([]bool, len(stages))

	// Each stage fills a private result that is merged under mu.
	var mu sync.Mutex
	var g errgroup.Group
	for i, st := range stages {
		g.Go(func() error {
			if err := p.runStage(ctx, st, in, res, &mu); err != nil {
				failed[i] = true
				log.Warn("retrieval stage failed",
					logger.String("stage", st.name),
					logger.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, st := range stages {
		if failed[i] {
			res.FailedStages = append(res.FailedStages, st.name)
		}
	}
	res.fill(artist)

	status := statusSuccess
	if len(res.FailedStages) > 0 {
		status = statusDegraded
	}
	p.recordPipeline(status, start)
	log.Debug("retrieval pipeline complete",
		logger.String("status", status),
		logger.Int("sections", len(res.ThematicSections)),
		logger.Int("phrases", len(res.SignaturePhrases)),
		logger.Int("failed_stages", len(res.FailedStages)),
		logger.Duration("duration", time.Since(start)))
	return res
}

// openGraph returns the artist's store when an ingested graph exists.
func (p *Pipeline) openGraph(ctx context.Context, artist string, log logger.Logger) (datastore.Reader, bool) {
	exists, err := p.stores.GraphExists(ctx, artist)
	if err != nil {
		log.Warn("failed to check graph, falling back to flat retrieval", logger.Error(err))
		return nil, false
	}
	if !exists {
		log.Info("no graph for artist, returning empty retrieval")
		return nil, false
	}
	store, err := p.stores.Get(ctx, artist)
	if err != nil {
		log.Warn("failed to open graph, falling back to flat retrieval", logger.Error(err))
		return nil, false
	}
	return store, true
}

// runStage runs one stage with its own timeout and turns a panic into an error.
func (p *Pipeline) runStage(ctx context.Context, st stage, in *stageInput, res *Result, mu *sync.Mutex) (err error) {
	start := time.Now()
	if p.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.stageTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("stage panicked: %v", r).
				Component("retrieval").
				Category(errors.CategoryStage).
				Context("stage", st.name).
				Build()
		}
		p.recordStage(st.name, start, err)
	}()

	partial := &Result{}
	if err := st.run(ctx, in, partial); err != nil {
		return errors.New(err).
			Component("retrieval").
			Category(errors.CategoryStage).
			Context("stage", st.name).
			Build()
	}

	mu.Lock()
	defer mu.Unlock()
	merge(res, partial)
	return nil
}

// merge copies the fields a stage set into res.
func merge(res, partial *Result) {
	if partial.ThematicSections != nil {
		res.ThematicSections = partial.ThematicSections
	}
	if partial.VocabularyClusters != nil {
		res.VocabularyClusters = partial.VocabularyClusters
	}
	if partial.SignaturePhrases != nil {
		res.SignaturePhrases = partial.SignaturePhrases
	}
	if partial.AntiVocabulary != nil {
		res.AntiVocabulary = partial.AntiVocabulary
	}
	if partial.RhymeSchemes != nil {
		res.RhymeSchemes = partial.RhymeSchemes
	}
	if partial.TopRhymePairs != nil {
		res.TopRhymePairs = partial.TopRhymePairs
	}
	if partial.CommonArcs != nil {
		res.CommonArcs = partial.CommonArcs
	}
	if partial.MoodTransitions != nil {
		res.MoodTransitions = partial.MoodTransitions
	}
	if partial.Metaphors != nil {
		res.Metaphors = partial.Metaphors
	}
	if partial.CulturalReferences != nil {
		res.CulturalReferences = partial.CulturalReferences
	}
	if partial.Structures != nil {
		res.Structures = partial.Structures
	}
	if partial.AvgLinesPerSection != nil {
		res.AvgLinesPerSection = partial.AvgLinesPerSection
	}
	if partial.Fingerprint.ID != "" {
		res.Fingerprint = partial.Fingerprint
	}
}

func (p *Pipeline) recordStage(name string, start time.Time, err error) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordDuration(name, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordOperation(name, metrics.StatusError)
		p.metrics.RecordError(name, errorType(err))
		return
	}
	p.metrics.RecordOperation(name, metrics.StatusSuccess)
}

func (p *Pipeline) recordPipeline(status string, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordPipeline(status, time.Since(start).Seconds())
}

// errorType labels a stage failure for metrics.
func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}

// StageNames lists the stages in execution order.
func StageNames() []string {
	stages := (&Pipeline{}).stages()
	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = st.name
	}
	return names
}
