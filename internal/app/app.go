// Package app assembles the lyricgraph components from settings: logging,
// telemetry, metrics, graph stores, the embedder, the LLM chain and the
// generation service.
package app

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/tphakala/lyricgraph/internal/buildinfo"
	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/datastore"
	"github.com/tphakala/lyricgraph/internal/embedding"
	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/generation"
	"github.com/tphakala/lyricgraph/internal/lexicon"
	"github.com/tphakala/lyricgraph/internal/llm"
	"github.com/tphakala/lyricgraph/internal/logger"
	"github.com/tphakala/lyricgraph/internal/observability"
	"github.com/tphakala/lyricgraph/internal/observability/metrics"
	"github.com/tphakala/lyricgraph/internal/telemetry"
)

const telemetryFlushTimeout = 2 * time.Second

// Context holds the state shared by every command.
type Context struct {
	Settings *conf.Settings
	Build    *buildinfo.Context
}

// NewContext returns a command context for settings.
func NewContext(settings *conf.Settings, build *buildinfo.Context) *Context {
	build.Apply(settings)
	return &Context{Settings: settings, Build: build}
}

// App is a fully wired instance.
type App struct {
	Settings *conf.Settings
	Metrics  *observability.Metrics
	Registry *datastore.Registry
	Embedder embedding.Embedder
	Service  *generation.Service

	central   *logger.CentralLogger
	telemetry bool
}

// InitLogging installs the central logger configured by settings.
func InitLogging(settings *conf.Settings) (*logger.CentralLogger, error) {
	if settings.Debug && settings.Logging.DefaultLevel == "" {
		settings.Logging.DefaultLevel = "debug"
	}
	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return nil, err
	}
	logger.SetGlobal(cl)
	return cl, nil
}

// New wires every component. A missing LLM configuration is not fatal:
// analysis and search work without one, generation reports the problem.
func New(ctx context.Context, c *Context) (*App, error) {
	settings := c.Settings
	a := &App{Settings: settings}

	central, err := InitLogging(settings)
	if err != nil {
		return nil, err
	}
	a.central = central
	log := logger.Global().Module("app")

	if a.telemetry, err = telemetry.InitSentry(settings); err != nil {
		log.Warn("error reporting disabled", logger.Error(err))
	}

	if a.Metrics, err = observability.NewMetrics(); err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}
	errors.AddErrorHook(countError(a.Metrics.Errors))

	lex, err := lexicon.Load(settings.Analysis.LexiconPath)
	if err != nil {
		return nil, err
	}

	a.Registry, err = datastore.NewRegistry(settings,
		datastore.WithLexicon(lex),
		datastore.WithMetrics(a.Metrics.Ingestion))
	if err != nil {
		return nil, err
	}

	if a.Embedder, err = embedding.New(ctx, &settings.Embedding); err != nil {
		a.Close()
		return nil, err
	}

	var client llm.Client
	chain, err := llm.New(ctx, &settings.LLM, llm.Deps{Metrics: a.Metrics.LLM})
	switch {
	case err == nil:
		client = chain
	case errors.IsCategory(err, errors.CategoryConfiguration):
		log.Warn("no LLM configured, generation and chat are unavailable",
			logger.String("hint", errors.HintOf(err)))
	default:
		a.Close()
		return nil, err
	}

	a.Service, err = generation.New(settings, generation.Deps{
		Stores:            a.Registry,
		Embedder:          a.Embedder,
		LLM:               client,
		Lexicon:           lex,
		RetrievalMetrics:  a.Metrics.Retrieval,
		ValidationMetrics: a.Metrics.Validation,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	log.Info("lyricgraph initialized",
		logger.String("version", settings.Version),
		logger.String("graph_backend", settings.Graph.Backend),
		logger.String("embedder", a.Embedder.Name()),
		logger.Bool("llm", client != nil),
		logger.Int("artists", len(settings.Artists)))
	return a, nil
}

// countError feeds every built error into the error counter.
func countError(m *metrics.ErrorMetrics) errors.ErrorHook {
	return func(ee *errors.EnhancedError) {
		m.RecordError(ee.GetComponent(), string(ee.Category))
	}
}

// Close releases stores, flushes telemetry and closes log files.
func (a *App) Close() {
	if a.Registry != nil {
		a.Registry.Close()
	}
	if a.Metrics != nil {
		errors.ClearErrorHooks()
	}
	if a.telemetry {
		telemetry.Flush(telemetryFlushTimeout)
	}
	if a.central != nil {
		_ = a.central.Flush()
		_ = a.central.Close()
	}
}

// Run opens an App for the duration of fn.
func (c *Context) Run(ctx context.Context, fn func(ctx context.Context, a *App) error) error {
	a, err := New(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// PrintJSON writes v to w as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
