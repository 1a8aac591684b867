package datastore

import (
	"gorm.io/datatypes"
)

// NodeType names the node tables that carry embeddings and text search.
type NodeType string

// Searchable node types.
const (
	NodeSong    NodeType = "song"
	NodeSection NodeType = "section"
	NodeLine    NodeType = "line"
)

// ParseNodeType maps a user supplied name onto a NodeType. Unknown names map to sections.
func ParseNodeType(s string) NodeType {
	switch NodeType(s) {
	case NodeSong, NodeLine:
		return NodeType(s)
	default:
		return NodeSection
	}
}

// Artist is the root node of an artist graph.
type Artist struct {
	ID              string `gorm:"primaryKey;type:varchar(191)"`
	Name            string `gorm:"type:varchar(255)"`
	Slug            string `gorm:"type:varchar(191)"`
	Language        string `gorm:"type:varchar(50)"`
	MusicalStyle    string `gorm:"type:text"`
	VocalStyle      string `gorm:"type:text"`
	VocabularyLevel string `gorm:"type:varchar(100)"`
	SongCount       int
	TotalLineCount  int
}

// TableName returns the table name for GORM.
func (Artist) TableName() string { return "artists" }

// Album groups songs released together.
type Album struct {
	ID          string `gorm:"primaryKey;type:varchar(191)"`
	Name        string `gorm:"type:varchar(255)"`
	ReleaseDate string `gorm:"type:varchar(20)"`
	ArtistID    string `gorm:"type:varchar(191);index"`
	SongCount   int
}

// TableName returns the table name for GORM.
func (Album) TableName() string { return "albums" }

// Song is one decomposed song.
type Song struct {
	ID           string `gorm:"primaryKey;type:varchar(191)"`
	Title        string `gorm:"type:varchar(255)"`
	ArtistID     string `gorm:"type:varchar(191);index"`
	AlbumID      string `gorm:"type:varchar(191)"`
	Year         *int
	Language     string `gorm:"type:varchar(20)"`
	Mood         string `gorm:"type:varchar(50)"`
	FullLyrics   string `gorm:"type:text"`
	URL          string `gorm:"type:varchar(500)"`
	LineCount    int
	SectionCount int
	WordCount    int
}

// TableName returns the table name for GORM.
func (Song) TableName() string { return "songs" }

// Section is a structural unit of a song.
type Section struct {
	ID           string `gorm:"primaryKey;type:varchar(191)"`
	SongID       string `gorm:"type:varchar(191);index"`
	ArtistID     string `gorm:"type:varchar(191);index:idx_sections_artist_type,priority:1"`
	SectionType  string `gorm:"type:varchar(30);index:idx_sections_artist_type,priority:2"`
	SectionIndex int
	Text         string `gorm:"type:text"`
	LineCount    int
	WordCount    int
	Language     string `gorm:"type:varchar(20)"`
	Mood         string `gorm:"type:varchar(50)"`
}

// TableName returns the table name for GORM.
func (Section) TableName() string { return "sections" }

// Line is one lyric line.
type Line struct {
	ID              string `gorm:"primaryKey;type:varchar(191)"`
	SectionID       string `gorm:"type:varchar(191);index"`
	SongID          string `gorm:"type:varchar(191);index"`
	ArtistID        string `gorm:"type:varchar(191);index"`
	LineIndex       int
	GlobalLineIndex int
	Text            string `gorm:"type:text"`
	Romanized       string `gorm:"type:text"`
	WordCount       int
	SyllableCount   int
	Language        string `gorm:"type:varchar(20)"`
	HasCodeSwitch   bool
	EndWord         string `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM.
func (Line) TableName() string { return "lyric_lines" }

// Phrase is a recurring n-gram.
type Phrase struct {
	ID          string `gorm:"primaryKey;type:varchar(191)"`
	Text        string `gorm:"type:varchar(500)"`
	Romanized   string `gorm:"type:varchar(500)"`
	Language    string `gorm:"type:varchar(20)"`
	Frequency   int    `gorm:"index"`
	ArtistID    string `gorm:"type:varchar(191);index"`
	IsSignature bool
}

// TableName returns the table name for GORM.
func (Phrase) TableName() string { return "phrases" }

// Metaphor maps a source domain onto a target domain.
type Metaphor struct {
	ID           string `gorm:"primaryKey;type:varchar(191)"`
	SourceText   string `gorm:"type:text"`
	SourceDomain string `gorm:"type:varchar(100)"`
	TargetDomain string `gorm:"type:varchar(100)"`
	ArtistID     string `gorm:"type:varchar(191);index"`
	Frequency    int
}

// TableName returns the table name for GORM.
func (Metaphor) TableName() string { return "metaphors" }

// CulturalReference is a lexicon term used by the artist.
type CulturalReference struct {
	ID              string `gorm:"primaryKey;type:varchar(191)"`
	ReferenceText   string `gorm:"type:varchar(255)"`
	Category        string `gorm:"type:varchar(100)"`
	CulturalContext string `gorm:"type:text"`
	ArtistID        string `gorm:"type:varchar(191);index"`
	Frequency       int
}

// TableName returns the table name for GORM.
func (CulturalReference) TableName() string { return "cultural_references" }

// RhymePair is an unordered pair of rhyming end words.
type RhymePair struct {
	ID        string `gorm:"primaryKey;type:varchar(191)"`
	WordA     string `gorm:"type:varchar(100)"`
	WordB     string `gorm:"type:varchar(100)"`
	RhymeType string `gorm:"type:varchar(30)"`
	Language  string `gorm:"type:varchar(20)"`
	Frequency int
	ArtistID  string `gorm:"type:varchar(191);index"`
}

// TableName returns the table name for GORM.
func (RhymePair) TableName() string { return "rhyme_pairs" }

// Theme is a lexicon theme with its song count.
type Theme struct {
	ID          string `gorm:"primaryKey;type:varchar(191)"`
	Name        string `gorm:"type:varchar(100)"`
	Description string `gorm:"type:text"`
	ArtistID    string `gorm:"type:varchar(191);index"`
	SongCount   int
}

// TableName returns the table name for GORM.
func (Theme) TableName() string { return "themes" }

// Mood is one of the fixed lexicon moods.
type Mood struct {
	ID          string `gorm:"primaryKey;type:varchar(50)"`
	Name        string `gorm:"type:varchar(50)"`
	Valence     float64
	Arousal     float64
	Description string `gorm:"type:text"`
}

// TableName returns the table name for GORM.
func (Mood) TableName() string { return "moods" }

// MeterPattern is a recurring syllable pattern.
type MeterPattern struct {
	ID          string `gorm:"primaryKey;type:varchar(191)"`
	Pattern     string `gorm:"type:varchar(255)"`
	SectionType string `gorm:"type:varchar(30)"`
	ArtistID    string `gorm:"type:varchar(191);index"`
	Frequency   int
	Description string `gorm:"type:text"`
}

// TableName returns the table name for GORM.
func (MeterPattern) TableName() string { return "meter_patterns" }

// StructureTemplate is a recurring section type sequence.
type StructureTemplate struct {
	ID           string                      `gorm:"primaryKey;type:varchar(191)"`
	Pattern      string                      `gorm:"type:varchar(500)"`
	SectionTypes datatypes.JSONSlice[string] `gorm:"type:json"`
	ArtistID     string                      `gorm:"type:varchar(191);index"`
	Frequency    int
	Description  string `gorm:"type:text"`
}

// TableName returns the table name for GORM.
func (StructureTemplate) TableName() string { return "structure_templates" }

// ThematicCluster is a group of thematically similar songs.
type ThematicCluster struct {
	ID             string `gorm:"primaryKey;type:varchar(191)"`
	Label          string `gorm:"type:varchar(255)"`
	HeuristicLabel string `gorm:"type:varchar(255)"`
	Description    string `gorm:"type:text"`
	EnrichedBy     string `gorm:"type:varchar(50)"`
	Cohesion       float64
	SongCount      int
	ArtistID       string                      `gorm:"type:varchar(191);index"`
	Keywords       datatypes.JSONSlice[string] `gorm:"type:json"`
}

// TableName returns the table name for GORM.
func (ThematicCluster) TableName() string { return "thematic_clusters" }

// EmotionalArc is the per-section mood trajectory of a song.
type EmotionalArc struct {
	ID                string                       `gorm:"primaryKey;type:varchar(191)"`
	SongID            string                       `gorm:"type:varchar(191);index"`
	ArtistID          string                       `gorm:"type:varchar(191);index"`
	ArcType           string                       `gorm:"type:varchar(30)"`
	MoodSequence      datatypes.JSONSlice[string]  `gorm:"type:json"`
	IntensitySequence datatypes.JSONSlice[float64] `gorm:"type:json"`
	Description       string                       `gorm:"type:text"`
}

// TableName returns the table name for GORM.
func (EmotionalArc) TableName() string { return "emotional_arcs" }

// StyleFingerprint is the statistical style summary of an artist.
type StyleFingerprint struct {
	ID                  string `gorm:"primaryKey;type:varchar(191)"`
	ArtistID            string `gorm:"type:varchar(191);uniqueIndex"`
	AvgLineLength       float64
	AvgSectionLength    float64
	VocabularyRichness  float64
	CodeSwitchFrequency float64
	MetaphorDensity     float64
	RepetitionIndex     float64
	AvgMoodValence      float64
	AvgMoodArousal      float64
	TopRhymeTypes       datatypes.JSONSlice[string] `gorm:"type:json"`
	PreferredStructures datatypes.JSONSlice[string] `gorm:"type:json"`
	VocabularySet       datatypes.JSONSlice[string] `gorm:"type:json"`
	AntiVocabulary      datatypes.JSONSlice[string] `gorm:"type:json"`
}

// TableName returns the table name for GORM.
func (StyleFingerprint) TableName() string { return "style_fingerprints" }

// LyricEmbedding maps a node id to its embedding vector.
type LyricEmbedding struct {
	NodeID   string                       `gorm:"primaryKey;type:varchar(191)"`
	NodeType NodeType                     `gorm:"type:varchar(20);not null"`
	ArtistID string                       `gorm:"type:varchar(191);not null"`
	Vector   datatypes.JSONSlice[float32] `gorm:"type:json"`
}

// TableName returns the table name for GORM.
func (LyricEmbedding) TableName() string { return "lyric_embeddings" }

// Relationship types.
const (
	RelWrittenBy        = "WRITTEN_BY"
	RelBelongsTo        = "BELONGS_TO"
	RelContainsSection  = "CONTAINS_SECTION"
	RelContainsLine     = "CONTAINS_LINE"
	RelSectionFollows   = "SECTION_FOLLOWS"
	RelLineFollows      = "LINE_FOLLOWS"
	RelUsesPhrase       = "USES_PHRASE"
	RelContainsMetaphor = "CONTAINS_METAPHOR"
	RelLineReferences   = "LINE_REFERENCES_CULTURE"
	RelSongReferences   = "SONG_REFERENCES_CULTURE"
	RelHasTheme         = "HAS_THEME"
	RelSectionMood      = "SECTION_EXPRESSES_MOOD"
	RelSongMood         = "SONG_EXPRESSES_MOOD"
	RelRhymesWith       = "RHYMES_WITH"
	RelMemberOfCluster  = "MEMBER_OF_CLUSTER"
	RelMoodTransitions  = "MOOD_TRANSITIONS_TO"
	RelUsesStructure    = "USES_STRUCTURE"
	RelHasArc           = "HAS_ARC"
	RelHasFingerprint   = "HAS_FINGERPRINT"
	RelHasMeter         = "HAS_METER"
)

// Edge is a typed, directed relationship between two nodes. Weight carries
// strength, intensity or frequency; Position carries a position, gap or track
// number; Label carries a rhyme type.
type Edge struct {
	ID       uint   `gorm:"primaryKey"`
	Rel      string `gorm:"type:varchar(40);not null;index:idx_edges_rel_from,priority:1;index:idx_edges_rel_to,priority:1"`
	FromID   string `gorm:"type:varchar(191);not null;index:idx_edges_rel_from,priority:2"`
	ToID     string `gorm:"type:varchar(191);not null;index:idx_edges_rel_to,priority:2"`
	ArtistID string `gorm:"type:varchar(191);index"`
	Weight   float64
	Position int
	Label    string `gorm:"type:varchar(50)"`
}

// TableName returns the table name for GORM.
func (Edge) TableName() string { return "edges" }

// tableModels lists every table in migration order.
func tableModels() []struct {
	model any
	name  string
} {
	return []struct {
		model any
		name  string
	}{
		{&Artist{}, "artists"},
		{&Album{}, "albums"},
		{&Song{}, "songs"},
		{&Section{}, "sections"},
		{&Line{}, "lyric_lines"},
		{&Phrase{}, "phrases"},
		{&Metaphor{}, "metaphors"},
		{&CulturalReference{}, "cultural_references"},
		{&RhymePair{}, "rhyme_pairs"},
		{&Theme{}, "themes"},
		{&Mood{}, "moods"},
		{&MeterPattern{}, "meter_patterns"},
		{&StructureTemplate{}, "structure_templates"},
		{&ThematicCluster{}, "thematic_clusters"},
		{&EmotionalArc{}, "emotional_arcs"},
		{&StyleFingerprint{}, "style_fingerprints"},
		{&LyricEmbedding{}, "lyric_embeddings"},
		{&Edge{}, "edges"},
	}
}
