package analysis

import (
	"context"
	"time"

	"github.com/tphakala/lyricgraph/internal/cluster"
	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/lexicon"
	"github.com/tphakala/lyricgraph/internal/llm"
	"github.com/tphakala/lyricgraph/internal/logger"
	"github.com/tphakala/lyricgraph/internal/lyrics"
)

// Analyzer runs the one-time analysis of an artist's catalogue.
type Analyzer struct {
	lex       *lexicon.Lexicon
	settings  conf.AnalysisSettings
	metaphors *MetaphorExtractor
	clusterer cluster.Strategy
}

// NewAnalyzer builds an analyzer. client may be nil, in which case metaphors
// come from the keyword table.
func NewAnalyzer(settings *conf.AnalysisSettings, lex *lexicon.Lexicon, client llm.Client) (*Analyzer, error) {
	if lex == nil {
		lex = lexicon.Default()
	}
	strategy, err := cluster.NewStrategy(settings.ClusterStrategy, lex)
	if err != nil {
		return nil, err
	}
	if !settings.UseLLMMetaphors {
		client = nil
	}
	return &Analyzer{
		lex:      lex,
		settings: *settings,
		metaphors: &MetaphorExtractor{
			Client:      client,
			Lexicon:     lex,
			BatchSize:   settings.MetaphorBatchSize,
			MaxSections: settings.MetaphorMaxSections,
		},
		clusterer: strategy,
	}, nil
}

// Analyze decomposes the raw songs and extracts the structural features.
func (a *Analyzer) Analyze(artist string, raw []lyrics.RawSong) *GraphData {
	start := time.Now()
	songs := lyrics.NewDecomposer(artist, a.lex).DecomposeAll(raw)

	data := &GraphData{
		ArtistSlug:         artist,
		Songs:              nonNil(songs),
		Phrases:            nonNil(ExtractPhrases(songs, artist, orDefault(a.settings.PhraseMinFrequency, DefaultPhraseMinFrequency), a.lex)),
		CulturalReferences: ExtractCulturalReferences(songs, artist, a.lex),
		MeterPatterns:      nonNil(ExtractMeterPatterns(songs, artist, orDefault(a.settings.MeterMinFrequency, DefaultMeterMinFrequency))),
		Structures:         ExtractStructures(songs, artist),
		RhymePairs:         ExtractRhymePairs(songs, artist),
	}
	data.Stats = computeStats(data)

	GetLogger().Info("structural analysis complete",
		logger.String("artist", artist),
		logger.Int("songs", data.Stats.TotalSongs),
		logger.Int("sections", data.Stats.TotalSections),
		logger.Int("lines", data.Stats.TotalLines),
		logger.Int("phrases", data.Stats.TotalPhrases),
		logger.Int("rhyme_pairs", len(data.RhymePairs)),
		logger.Duration("duration", time.Since(start)))
	return data
}

// Advanced computes themes, metaphors, arcs, mood transitions and the style
// fingerprint.
func (a *Analyzer) Advanced(ctx context.Context, data *GraphData) *Advanced {
	start := time.Now()
	artist := data.ArtistSlug
	songThemes := SongThemes(data.Songs, a.lex)

	metaphors := a.metaphors.Extract(ctx, data.Songs, artist)
	if metaphors == nil {
		metaphors = []Metaphor{}
	}
	fp := ComputeFingerprint(data.Songs, artist, orDefault(a.settings.VocabularySize, DefaultVocabularySize), a.lex)
	fp.SetMetaphorDensity(len(metaphors), data.Stats.TotalWords)

	adv := &Advanced{
		Themes:          ExtractThemes(data.Songs, artist, songThemes),
		Metaphors:       metaphors,
		EmotionalArcs:   nonNil(ComputeEmotionalArcs(data.Songs, a.lex)),
		MoodTransitions: ComputeMoodTransitions(data.Songs, artist),
		Fingerprint:     fp,
		SongThemes:      songThemes,
	}

	GetLogger().Info("advanced analysis complete",
		logger.String("artist", artist),
		logger.Int("themes", len(adv.Themes)),
		logger.Int("metaphors", len(adv.Metaphors)),
		logger.Int("arcs", len(adv.EmotionalArcs)),
		logger.Int("mood_transitions", len(adv.MoodTransitions)),
		logger.Float64("metaphor_density", fp.MetaphorDensity),
		logger.Duration("duration", time.Since(start)))
	return adv
}

// Cluster groups songs with the configured strategy.
func (a *Analyzer) Cluster(data *GraphData, adv *Advanced) Clusters {
	clusters := a.clusterer.Cluster(data.ArtistSlug, data.Songs, adv.SongThemes)
	if clusters == nil {
		clusters = Clusters{}
	}
	GetLogger().Info("clustering complete",
		logger.String("artist", data.ArtistSlug),
		logger.String("strategy", a.clusterer.Name()),
		logger.Int("clusters", len(clusters)))
	return clusters
}

func computeStats(data *GraphData) Stats {
	st := Stats{
		TotalSongs:         len(data.Songs),
		TotalPhrases:       len(data.Phrases),
		TotalCulturalRefs:  len(data.CulturalReferences),
		TotalMeterPatterns: len(data.MeterPatterns),
	}
	for i := range data.Songs {
		st.TotalSections += data.Songs[i].SectionCount
		st.TotalLines += data.Songs[i].LineCount
		st.TotalWords += data.Songs[i].WordCount
	}
	return st
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
