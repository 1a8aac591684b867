package retrieval

import (
	"context"
	"math"

	"github.com/tphakala/lyricgraph/internal/analysis"
	"github.com/tphakala/lyricgraph/internal/datastore"
	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/search"
)

// Stage limits.
const (
	ThematicSectionLimit   = 10
	SignaturePhraseLimit   = 30
	SignaturePhraseMinFreq = 3
	VocabularyClusterSize  = 100
	RhymePairLimit         = 20
	RhymeSchemeLimit       = 5
	ArcLimit               = 20
	MoodTransitionLimit    = 10
	MetaphorLimit          = 15
	CulturalRefLimit       = 15
	StructureLimit         = 5
)

// thematicSections runs hybrid search over sections with the raw topic.
func (p *Pipeline) thematicSections(ctx context.Context, in *stageInput, res *Result) error {
	hits, err := search.New(in.store, p.embedder).Hybrid(ctx, in.req.Topic, datastore.NodeSection, ThematicSectionLimit)
	if err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.RecordSearchResults(string(datastore.NodeSection), "fused", len(hits))
	}
	sections := make([]Section, len(hits))
	for i, h := range hits {
		sections[i] = Section{
			NodeID:      h.NodeID,
			Text:        h.Text,
			SectionType: metaString(h.Metadata, "section_type"),
			Mood:        metaString(h.Metadata, "mood"),
			LineCount:   metaInt(h.Metadata, "line_count"),
			Score:       h.Score,
			Source:      h.Source,
		}
	}
	res.ThematicSections = sections
	return nil
}

// vocabulary loads signature phrases from the graph and the vocabulary sets
// from the fingerprint.
func (p *Pipeline) vocabulary(ctx context.Context, in *stageInput, res *Result) error {
	phrases, err := in.store.TopPhrases(ctx, SignaturePhraseMinFreq, SignaturePhraseLimit)
	if err != nil {
		return err
	}
	texts := make([]string, len(phrases))
	for i := range phrases {
		texts[i] = phrases[i].Text
	}

	fp, err := p.storedFingerprint(ctx, in)
	if err != nil {
		return err
	}
	res.SignaturePhrases = texts
	if fp != nil {
		res.VocabularyClusters = head(fp.VocabularySet, VocabularyClusterSize)
		res.AntiVocabulary = append([]string{}, fp.AntiVocabulary...)
	}
	return nil
}

// rhymeSchemes loads frequent rhyme pairs and the preferred rhyme schemes.
func (p *Pipeline) rhymeSchemes(ctx context.Context, in *stageInput, res *Result) error {
	rows, err := in.store.TopRhymePairs(ctx, RhymePairLimit)
	if err != nil {
		return err
	}
	pairs := make([]RhymePair, len(rows))
	for i := range rows {
		pairs[i] = RhymePair{
			WordA:     rows[i].WordA,
			WordB:     rows[i].WordB,
			RhymeType: rows[i].RhymeType,
			Frequency: rows[i].Frequency,
		}
	}

	fp, err := p.storedFingerprint(ctx, in)
	if err != nil {
		return err
	}
	res.TopRhymePairs = pairs
	if fp != nil {
		res.RhymeSchemes = head(fp.TopRhymeTypes, RhymeSchemeLimit)
	}
	return nil
}

// emotionalArcs loads song arcs and the most frequent mood transitions.
func (p *Pipeline) emotionalArcs(ctx context.Context, in *stageInput, res *Result) error {
	rows, err := in.store.EmotionalArcs(ctx, ArcLimit)
	if err != nil {
		return err
	}
	transitions, err := in.store.MoodTransitions(ctx, MoodTransitionLimit)
	if err != nil {
		return err
	}
	arcs := make([]Arc, len(rows))
	for i := range rows {
		arcs[i] = Arc{
			SongID:       rows[i].SongID,
			ArcType:      rows[i].ArcType,
			Description:  rows[i].Description,
			MoodSequence: []string(rows[i].MoodSequence),
		}
	}
	res.CommonArcs = arcs
	res.MoodTransitions = transitions
	return nil
}

func (p *Pipeline) metaphors(ctx context.Context, in *stageInput, res *Result) error {
	rows, err := in.store.TopMetaphors(ctx, MetaphorLimit)
	if err != nil {
		return err
	}
	out := make([]Metaphor, len(rows))
	for i := range rows {
		out[i] = Metaphor{
			SourceText:   rows[i].SourceText,
			SourceDomain: rows[i].SourceDomain,
			TargetDomain: rows[i].TargetDomain,
			Frequency:    rows[i].Frequency,
		}
	}
	res.Metaphors = out
	return nil
}

func (p *Pipeline) culturalReferences(ctx context.Context, in *stageInput, res *Result) error {
	rows, err := in.store.TopCulturalReferences(ctx, CulturalRefLimit)
	if err != nil {
		return err
	}
	out := make([]CulturalReference, len(rows))
	for i := range rows {
		out[i] = CulturalReference{
			Reference: rows[i].ReferenceText,
			Category:  rows[i].Category,
			Context:   rows[i].CulturalContext,
			Frequency: rows[i].Frequency,
		}
	}
	res.CulturalReferences = out
	return nil
}

// structures loads structure templates and the mean lines per section type,
// rounded to one decimal.
func (p *Pipeline) structures(ctx context.Context, in *stageInput, res *Result) error {
	rows, err := in.store.TopStructures(ctx, StructureLimit)
	if err != nil {
		return err
	}
	avg, err := in.store.SectionAverageLines(ctx)
	if err != nil {
		return err
	}
	out := make([]Structure, len(rows))
	for i := range rows {
		out[i] = Structure{
			Pattern:      rows[i].Pattern,
			SectionTypes: append([]string{}, rows[i].SectionTypes...),
			Frequency:    rows[i].Frequency,
			Description:  rows[i].Description,
		}
	}
	rounded := make(map[string]float64, len(avg))
	for k, v := range avg {
		rounded[k] = math.Round(v*10) / 10
	}
	res.Structures = out
	res.AvgLinesPerSection = rounded
	return nil
}

// fingerprint loads the artist's stored fingerprint. A graph without one
// keeps the empty fingerprint.
func (p *Pipeline) fingerprint(ctx context.Context, in *stageInput, res *Result) error {
	row, err := in.store.Fingerprint(ctx)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return err
	}
	res.Fingerprint = row.Analysis()
	return nil
}

// storedFingerprint returns the fingerprint of the advanced analysis file,
// falling back to the graph when the file is absent. It returns nil when
// neither has one.
func (p *Pipeline) storedFingerprint(ctx context.Context, in *stageInput) (*analysis.Fingerprint, error) {
	if p.processedDir != "" {
		adv, err := analysis.ReadAdvanced(p.processedDir, in.artist)
		switch {
		case err == nil:
			return &adv.Fingerprint, nil
		case !errors.IsMissingData(err):
			return nil, err
		}
	}
	row, err := in.store.Fingerprint(ctx)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	fp := row.Analysis()
	return &fp, nil
}

func head(s []string, n int) []string {
	if len(s) > n {
		s = s[:n]
	}
	return append([]string{}, s...)
}

func metaString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func metaInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
