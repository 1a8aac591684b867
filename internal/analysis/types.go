// Package analysis extracts artist-level linguistic features from decomposed
// songs: recurring phrases, cultural references, meter patterns, structures,
// themes, metaphors, emotional arcs and the style fingerprint.
package analysis

import (
	"github.com/tphakala/lyricgraph/internal/cluster"
	"github.com/tphakala/lyricgraph/internal/lyrics"
	"github.com/tphakala/lyricgraph/internal/phonetics"
)

// Phrase is a recurring n-gram of an artist.
type Phrase struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Romanized   string `json:"romanized"`
	Language    string `json:"language"`
	Frequency   int    `json:"frequency"`
	ArtistID    string `json:"artist_id"`
	IsSignature bool   `json:"is_signature"`
}

// CulturalReference is a lexicon term found in an artist's lyrics.
type CulturalReference struct {
	ID              string `json:"id"`
	ReferenceText   string `json:"reference_text"`
	Category        string `json:"category"`
	CulturalContext string `json:"cultural_context"`
	ArtistID        string `json:"artist_id"`
	Frequency       int    `json:"frequency"`
}

// MeterPattern is a recurring per-line syllable count pattern, e.g. "5-7-5-7".
type MeterPattern struct {
	ID          string `json:"id"`
	Pattern     string `json:"pattern"`
	SectionType string `json:"section_type"`
	ArtistID    string `json:"artist_id"`
	Frequency   int    `json:"frequency"`
	Description string `json:"description"`
}

// StructureTemplate is a recurring section type sequence, e.g. "verse-chorus-verse-chorus".
type StructureTemplate struct {
	ID           string   `json:"id"`
	Pattern      string   `json:"pattern"`
	SectionTypes []string `json:"section_types"`
	ArtistID     string   `json:"artist_id"`
	Frequency    int      `json:"frequency"`
}

// Stats summarizes a structural analysis run.
type Stats struct {
	TotalSongs         int `json:"total_songs"`
	TotalSections      int `json:"total_sections"`
	TotalLines         int `json:"total_lines"`
	TotalWords         int `json:"total_words"`
	TotalPhrases       int `json:"total_phrases"`
	TotalCulturalRefs  int `json:"total_cultural_refs"`
	TotalMeterPatterns int `json:"total_meter_patterns"`
}

// GraphData is the structural analysis of one artist.
type GraphData struct {
	ArtistSlug         string              `json:"artist_slug"`
	Songs              []lyrics.Song       `json:"songs"`
	Phrases            []Phrase            `json:"phrases"`
	CulturalReferences []CulturalReference `json:"cultural_references"`
	MeterPatterns      []MeterPattern      `json:"meter_patterns"`
	Structures         []StructureTemplate `json:"structures"`
	RhymePairs         []phonetics.Pair    `json:"rhyme_pairs"`
	Stats              Stats               `json:"stats"`
}

// Theme is a lexicon theme with the number of songs that express it.
type Theme struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ArtistID    string `json:"artist_id"`
	SongCount   int    `json:"song_count"`
}

// Metaphor maps a source domain onto a target domain.
type Metaphor struct {
	ID           string `json:"id"`
	SourceText   string `json:"source_text"`
	SourceDomain string `json:"source_domain"`
	TargetDomain string `json:"target_domain"`
	ArtistID     string `json:"artist_id"`
	Frequency    int    `json:"frequency"`
}

// Arc shapes.
const (
	ArcGentleRise       = "gentle_rise"
	ArcCrescendoCrash   = "crescendo_crash"
	ArcSteadyMelancholy = "steady_melancholy"
	ArcOscillating      = "oscillating"
	ArcSlowBuild        = "slow_build"
)

// EmotionalArc is the per-section mood trajectory of a song.
type EmotionalArc struct {
	ID                string    `json:"id"`
	SongID            string    `json:"song_id"`
	ArcType           string    `json:"arc_type"`
	MoodSequence      []string  `json:"mood_sequence"`
	IntensitySequence []float64 `json:"intensity_sequence"`
	Description       string    `json:"description"`
}

// MoodTransition counts consecutive section moods within songs.
type MoodTransition struct {
	From      string `json:"from"`
	To        string `json:"to"`
	ArtistID  string `json:"artist_id"`
	Frequency int    `json:"frequency"`
}

// Fingerprint is the statistical style summary of an artist.
type Fingerprint struct {
	ID                  string   `json:"id"`
	ArtistID            string   `json:"artist_id"`
	AvgLineLength       float64  `json:"avg_line_length"`
	AvgSectionLength    float64  `json:"avg_section_length"`
	VocabularyRichness  float64  `json:"vocabulary_richness"`
	CodeSwitchFrequency float64  `json:"code_switch_frequency"`
	MetaphorDensity     float64  `json:"metaphor_density"`
	RepetitionIndex     float64  `json:"repetition_index"`
	AvgMoodValence      float64  `json:"avg_mood_valence"`
	AvgMoodArousal      float64  `json:"avg_mood_arousal"`
	TopRhymeTypes       []string `json:"top_rhyme_types"`
	PreferredStructures []string `json:"preferred_structures"`
	VocabularySet       []string `json:"vocabulary_set"`
	AntiVocabulary      []string `json:"anti_vocabulary"`
}

// Advanced is the thematic analysis of one artist.
type Advanced struct {
	Themes          []Theme          `json:"themes"`
	Metaphors       []Metaphor       `json:"metaphors"`
	EmotionalArcs   []EmotionalArc   `json:"emotional_arcs"`
	MoodTransitions []MoodTransition `json:"mood_transitions"`
	Fingerprint     Fingerprint      `json:"fingerprint"`
	// SongThemes maps song ids to the theme keys they express.
	SongThemes map[string][]string `json:"song_themes"`
}

// Clusters is the clustering artifact of one artist.
type Clusters = []cluster.ThematicCluster
