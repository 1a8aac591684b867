// Package retrieval turns a song request into the graph derived context a
// generation prompt is assembled from.
package retrieval

import (
	"strings"
	"unicode/utf8"

	"github.com/tphakala/lyricgraph/internal/analysis"
	"github.com/tphakala/lyricgraph/internal/datastore"
	"github.com/tphakala/lyricgraph/internal/lexicon"
)

// Request defaults.
const (
	StructureFullSong = "full_song"
	LanguageAuto      = "auto"
)

// minKeywordRunes excludes short words from thematic keywords.
const minKeywordRunes = 4

// RequestAnalysis is the structured form of a user's song request.
type RequestAnalysis struct {
	Topic              string   `json:"topic"`
	MoodSignals        []string `json:"mood_signals"`
	StructuralRequest  string   `json:"structural_request"`
	LanguagePreference string   `json:"language_preference"`
	ThematicKeywords   []string `json:"thematic_keywords"`
}

// AnalyzeRequest classifies the topic's mood signals by keyword lookup and
// extracts its thematic keywords. A topic without mood signals is neutral.
func AnalyzeRequest(topic string, lex *lexicon.Lexicon) RequestAnalysis {
	if lex == nil {
		lex = lexicon.Default()
	}
	lower := strings.ToLower(topic)

	moods := []string{}
	for _, signal := range lex.MoodSignals {
		if lexicon.CountMatches(lower, signal.Keywords) > 0 {
			moods = append(moods, signal.Name)
		}
	}
	if len(moods) == 0 {
		moods = append(moods, lexicon.NeutralMood)
	}

	keywords := []string{}
	for _, w := range strings.Fields(lower) {
		if utf8.RuneCountInString(w) >= minKeywordRunes {
			keywords = append(keywords, w)
		}
	}

	return RequestAnalysis{
		Topic:              topic,
		MoodSignals:        moods,
		StructuralRequest:  StructureFullSong,
		LanguagePreference: LanguageAuto,
		ThematicKeywords:   keywords,
	}
}

// Section is a stage 1 hit: a section similar to the request topic.
type Section struct {
	NodeID      string  `json:"node_id"`
	Text        string  `json:"text"`
	SectionType string  `json:"section_type"`
	Mood        string  `json:"mood"`
	LineCount   int     `json:"line_count"`
	Score       float64 `json:"score"`
	Source      string  `json:"source"`
}

// RhymePair is a frequent rhyme of the artist.
type RhymePair struct {
	WordA     string `json:"word_a"`
	WordB     string `json:"word_b"`
	RhymeType string `json:"rhyme_type"`
	Frequency int    `json:"frequency"`
}

// Arc is an emotional arc of one of the artist's songs.
type Arc struct {
	SongID       string   `json:"song_id"`
	ArcType      string   `json:"arc_type"`
	Description  string   `json:"description"`
	MoodSequence []string `json:"mood_sequence"`
}

// Metaphor is a frequent source to target domain mapping.
type Metaphor struct {
	SourceText   string `json:"source_text"`
	SourceDomain string `json:"source_domain"`
	TargetDomain string `json:"target_domain"`
	Frequency    int    `json:"frequency"`
}

// CulturalReference is a frequent culturally loaded term.
type CulturalReference struct {
	Reference string `json:"reference"`
	Category  string `json:"category"`
	Context   string `json:"context"`
	Frequency int    `json:"frequency"`
}

// Structure is a frequent section type sequence.
type Structure struct {
	Pattern      string   `json:"pattern"`
	SectionTypes []string `json:"section_types"`
	Frequency    int      `json:"frequency"`
	Description  string   `json:"description"`
}

// Result aggregates the seven retrieval stages and the artist fingerprint.
// Every collection is non-nil; a failed stage leaves its fields empty.
type Result struct {
	// Stage 1
	ThematicSections []Section `json:"thematic_sections"`
	// Stage 2
	VocabularyClusters []string `json:"vocabulary_clusters"`
	SignaturePhrases   []string `json:"signature_phrases"`
	AntiVocabulary     []string `json:"anti_vocabulary"`
	// Stage 3
	RhymeSchemes  []string    `json:"rhyme_schemes"`
	TopRhymePairs []RhymePair `json:"top_rhyme_pairs"`
	// Stage 4
	CommonArcs      []Arc                      `json:"common_arcs"`
	MoodTransitions []datastore.MoodTransition `json:"mood_transitions"`
	// Stage 5
	Metaphors []Metaphor `json:"metaphors"`
	// Stage 6
	CulturalReferences []CulturalReference `json:"cultural_references"`
	// Stage 7
	Structures         []Structure        `json:"structures"`
	AvgLinesPerSection map[string]float64 `json:"avg_lines_per_section"`

	Fingerprint analysis.Fingerprint `json:"fingerprint"`

	// GraphPowered is false when the artist has no graph.
	GraphPowered bool `json:"graph_powered"`
	// FailedStages names the stages that failed, in stage order.
	FailedStages []string `json:"failed_stages"`
}

// NewResult returns an empty result for artist.
func NewResult(artist string) *Result {
	return &Result{
		ThematicSections:   []Section{},
		VocabularyClusters: []string{},
		SignaturePhrases:   []string{},
		AntiVocabulary:     []string{},
		RhymeSchemes:       []string{},
		TopRhymePairs:      []RhymePair{},
		CommonArcs:         []Arc{},
		MoodTransitions:    []datastore.MoodTransition{},
		Metaphors:          []Metaphor{},
		CulturalReferences: []CulturalReference{},
		Structures:         []Structure{},
		AvgLinesPerSection: map[string]float64{},
		Fingerprint:        analysis.EmptyFingerprint(artist),
		FailedStages:       []string{},
	}
}

// HasFingerprint reports whether a stored fingerprint was loaded.
func (r *Result) HasFingerprint() bool {
	return len(r.Fingerprint.VocabularySet) > 0 || r.Fingerprint.AvgLineLength > 0
}

// fill replaces nil collections left by stages with empty ones.
func (r *Result) fill(artist string) {
	empty := NewResult(artist)
	r.ThematicSections = orEmpty(r.ThematicSections, empty.ThematicSections)
	r.VocabularyClusters = orEmpty(r.VocabularyClusters, empty.VocabularyClusters)
	r.SignaturePhrases = orEmpty(r.SignaturePhrases, empty.SignaturePhrases)
	r.AntiVocabulary = orEmpty(r.AntiVocabulary, empty.AntiVocabulary)
	r.RhymeSchemes = orEmpty(r.RhymeSchemes, empty.RhymeSchemes)
	r.TopRhymePairs = orEmpty(r.TopRhymePairs, empty.TopRhymePairs)
	r.CommonArcs = orEmpty(r.CommonArcs, empty.CommonArcs)
	r.MoodTransitions = orEmpty(r.MoodTransitions, empty.MoodTransitions)
	r.Metaphors = orEmpty(r.Metaphors, empty.Metaphors)
	r.CulturalReferences = orEmpty(r.CulturalReferences, empty.CulturalReferences)
	r.Structures = orEmpty(r.Structures, empty.Structures)
	r.FailedStages = orEmpty(r.FailedStages, empty.FailedStages)
	if r.AvgLinesPerSection == nil {
		r.AvgLinesPerSection = empty.AvgLinesPerSection
	}
	fp := &r.Fingerprint
	fp.TopRhymeTypes = orEmpty(fp.TopRhymeTypes, empty.Fingerprint.TopRhymeTypes)
	fp.PreferredStructures = orEmpty(fp.PreferredStructures, empty.Fingerprint.PreferredStructures)
	fp.VocabularySet = orEmpty(fp.VocabularySet, empty.Fingerprint.VocabularySet)
	fp.AntiVocabulary = orEmpty(fp.AntiVocabulary, empty.Fingerprint.AntiVocabulary)
}

func orEmpty[T any](s, empty []T) []T {
	if s == nil {
		return empty
	}
	return s
}
