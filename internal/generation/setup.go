package generation

import (
	"context"
	"time"

	"github.com/tphakala/lyricgraph/internal/analysis"
	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/datastore"
	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/logger"
	"github.com/tphakala/lyricgraph/internal/lyrics"
)

// SetupReport counts what one setup run produced.
type SetupReport struct {
	Artist            string                `json:"artist"`
	Analysis          analysis.Stats        `json:"analysis"`
	RhymePairs        int                   `json:"rhyme_pairs"`
	Themes            int                   `json:"themes"`
	Metaphors         int                   `json:"metaphors"`
	EmotionalArcs     int                   `json:"emotional_arcs"`
	Clusters          int                   `json:"clusters"`
	Ingestion         datastore.IngestStats `json:"ingestion"`
	AdvancedIngestion datastore.IngestStats `json:"advanced_ingestion"`
	Embeddings        datastore.IngestStats `json:"embeddings"`
	Duration          time.Duration         `json:"duration"`
}

// Analyze runs structural, advanced and cluster analysis for artist and
// writes the three artifact files.
func (s *Service) Analyze(ctx context.Context, artist string) (*analysis.GraphData, *analysis.Advanced, analysis.Clusters, error) {
	if _, err := s.artist(artist); err != nil {
		return nil, nil, nil, err
	}
	raw, err := lyrics.LoadRawSongs(s.settings.RawDir(), artist)
	if err != nil {
		return nil, nil, nil, err
	}
	analyzer, err := analysis.NewAnalyzer(&s.settings.Analysis, s.lex, s.client)
	if err != nil {
		return nil, nil, nil, err
	}

	dir := s.settings.ProcessedDir()
	data := analyzer.Analyze(artist, raw)
	if len(data.Songs) == 0 {
		return nil, nil, nil, errors.Newf("no songs with lyrics found for %s", artist).
			Component("generation").
			Category(errors.CategoryMissingData).
			Artist(artist).
			Hint("check the raw lyrics file or re-run the scraper").
			Build()
	}
	if err := analysis.WriteGraphData(dir, data); err != nil {
		return nil, nil, nil, err
	}

	adv := analyzer.Advanced(ctx, data)
	if err := analysis.WriteAdvanced(dir, artist, adv); err != nil {
		return nil, nil, nil, err
	}

	clusters := analyzer.Cluster(data, adv)
	if err := analysis.WriteClusters(dir, artist, clusters); err != nil {
		return nil, nil, nil, err
	}
	return data, adv, clusters, nil
}

// Ingest loads previously written artifacts into a fresh graph store and
// embeds its nodes.
func (s *Service) Ingest(ctx context.Context, artist string) (*SetupReport, error) {
	cfg, err := s.artist(artist)
	if err != nil {
		return nil, err
	}
	dir := s.settings.ProcessedDir()
	data, err := analysis.ReadGraphData(dir, artist)
	if err != nil {
		return nil, err
	}
	adv, err := analysis.ReadAdvanced(dir, artist)
	if err != nil {
		return nil, err
	}
	clusters, err := analysis.ReadClusters(dir, artist)
	if err != nil && !errors.IsMissingData(err) {
		return nil, err
	}

	report := newSetupReport(artist, data, adv, clusters)
	if err := s.load(ctx, cfg, data, adv, clusters, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Setup runs the whole one-time pipeline: analysis, artifact files, graph
// ingestion, embeddings and the vector index. The artist's store is
// recreated, so a rerun replaces the previous graph.
func (s *Service) Setup(ctx context.Context, artist string) (*SetupReport, error) {
	start := time.Now()
	data, adv, clusters, err := s.Analyze(ctx, artist)
	if err != nil {
		return nil, err
	}
	cfg, err := s.artist(artist)
	if err != nil {
		return nil, err
	}

	report := newSetupReport(artist, data, adv, clusters)
	if err := s.load(ctx, cfg, data, adv, clusters, report); err != nil {
		return nil, err
	}
	report.Duration = time.Since(start)

	s.log.Info("artist setup complete",
		logger.String("artist", artist),
		logger.Int("songs", report.Analysis.TotalSongs),
		logger.Int("nodes_and_edges", report.Ingestion.Total()+report.AdvancedIngestion.Total()),
		logger.Int("embeddings", report.Embeddings.Total()),
		logger.Duration("duration", report.Duration))
	return report, nil
}

// load writes analysis results into a recreated store and builds its
// vector index once all embeddings are stored.
func (s *Service) load(ctx context.Context, cfg conf.ArtistConfig, data *analysis.GraphData, adv *analysis.Advanced, clusters analysis.Clusters, report *SetupReport) error {
	store, err := s.stores.Reset(ctx, data.ArtistSlug)
	if err != nil {
		return err
	}

	if report.Ingestion, err = store.IngestGraph(ctx, data, cfg); err != nil {
		return err
	}
	if report.AdvancedIngestion, err = store.IngestAdvanced(ctx, data, adv, clusters); err != nil {
		return err
	}
	if report.Embeddings, err = store.LoadEmbeddings(ctx, s.embedder, data); err != nil {
		return err
	}
	return store.BuildVectorIndex(ctx)
}

func newSetupReport(artist string, data *analysis.GraphData, adv *analysis.Advanced, clusters analysis.Clusters) *SetupReport {
	return &SetupReport{
		Artist:        artist,
		Analysis:      data.Stats,
		RhymePairs:    len(data.RhymePairs),
		Themes:        len(adv.Themes),
		Metaphors:     len(adv.Metaphors),
		EmotionalArcs: len(adv.EmotionalArcs),
		Clusters:      len(clusters),
	}
}
