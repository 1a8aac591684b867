// interfaces.go: this code defines the interface for the graph store operations
package datastore

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/tphakala/lyricgraph/internal/analysis"
	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/lexicon"
	"github.com/tphakala/lyricgraph/internal/observability/metrics"
)

// Interface abstracts the backend of one artist's property graph.
type Interface interface {
	Open() error
	Close() error
	Artist() string

	EnsureSchema(ctx context.Context) error
	Drop(ctx context.Context) error
	HasArtist(ctx context.Context) (bool, error)
	Stats(ctx context.Context) (*StoreStats, error)

	IngestGraph(ctx context.Context, data *analysis.GraphData, artist conf.ArtistConfig) (IngestStats, error)
	IngestAdvanced(ctx context.Context, data *analysis.GraphData, adv *analysis.Advanced, clusters analysis.Clusters) (IngestStats, error)
	LoadEmbeddings(ctx context.Context, embedder BatchEmbedder, data *analysis.GraphData) (IngestStats, error)
	StoreEmbeddings(ctx context.Context, nodeType NodeType, ids []string, vectors [][]float32) error
	BuildVectorIndex(ctx context.Context) error

	Reader
}

// Reader holds the read-only queries used at request time.
type Reader interface {
	SongCount(ctx context.Context) (int64, error)
	TopPhrases(ctx context.Context, minFrequency, limit int) ([]Phrase, error)
	TopRhymePairs(ctx context.Context, limit int) ([]RhymePair, error)
	EmotionalArcs(ctx context.Context, limit int) ([]EmotionalArc, error)
	MoodTransitions(ctx context.Context, limit int) ([]MoodTransition, error)
	TopMetaphors(ctx context.Context, limit int) ([]Metaphor, error)
	TopCulturalReferences(ctx context.Context, limit int) ([]CulturalReference, error)
	TopStructures(ctx context.Context, limit int) ([]StructureTemplate, error)
	SectionAverageLines(ctx context.Context) (map[string]float64, error)
	Fingerprint(ctx context.Context) (*StyleFingerprint, error)
	ArtistLines(ctx context.Context) ([]string, error)
	Songs(ctx context.Context) ([]Song, error)
	Themes(ctx context.Context) ([]Theme, error)
	Clusters(ctx context.Context) ([]ClusterWithSongs, error)
	Overview(ctx context.Context) (*Overview, error)

	KeywordCandidates(ctx context.Context, nodeType NodeType, tokens []string) ([]TextNode, error)
	NearestNodes(ctx context.Context, nodeType NodeType, query []float32, k int) ([]ScoredNode, error)
}

// BatchEmbedder turns texts into vectors. Implemented by the embedding package.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Limits caps the number of rows written for the densest node and edge sets.
// Zero or negative values disable a cap.
type Limits struct {
	Phrases       int
	PhraseLinks   int
	MeterPatterns int
	Structures    int
	RhymePairs    int
}

// LimitsFromSettings copies the configured ingestion caps.
func LimitsFromSettings(g *conf.GraphSettings) Limits {
	return Limits{
		Phrases:       g.Limits.Phrases,
		PhraseLinks:   g.Limits.PhraseLinks,
		MeterPatterns: g.Limits.MeterPatterns,
		Structures:    g.Limits.Structures,
		RhymePairs:    g.Limits.RhymePairs,
	}
}

// DataStore implements Interface on a GORM database. Backends embed it and
// provide Open and Close.
type DataStore struct {
	DB       *gorm.DB
	ArtistID string
	Limits   Limits
	Lexicon  *lexicon.Lexicon
	Metrics  *metrics.IngestionMetrics

	// writeMu keeps a single mutation in flight.
	writeMu sync.Mutex

	vectorMu    sync.RWMutex
	vectors     *VectorIndex
	indexBuilt  bool
	dbIndexDone bool
}

// Option configures a store created by New.
type Option func(*DataStore)

// WithLexicon sets the lexicon used for mood nodes and theme strengths.
func WithLexicon(lex *lexicon.Lexicon) Option {
	return func(ds *DataStore) { ds.Lexicon = lex }
}

// WithMetrics records written rows and embedding batches.
func WithMetrics(m *metrics.IngestionMetrics) Option {
	return func(ds *DataStore) { ds.Metrics = m }
}

// WithLimits overrides the ingestion caps taken from settings.
func WithLimits(l Limits) Option {
	return func(ds *DataStore) { ds.Limits = l }
}

// New creates the store of one artist for the configured backend. The store
// must be opened before use.
func New(settings *conf.Settings, artist string, opts ...Option) Interface {
	switch settings.Graph.Backend {
	case conf.BackendMySQL:
		store := &MySQLStore{Settings: settings}
		store.configure(settings, artist, opts)
		return store
	default:
		store := &SQLiteStore{
			Path:               SQLitePath(settings.GraphDir(), artist),
			SlowQueryThreshold: settings.Graph.SlowQueryThreshold,
		}
		store.configure(settings, artist, opts)
		return store
	}
}

func (ds *DataStore) configure(settings *conf.Settings, artist string, opts []Option) {
	ds.ArtistID = artist
	ds.Limits = LimitsFromSettings(&settings.Graph)
	for _, opt := range opts {
		opt(ds)
	}
	if ds.Lexicon == nil {
		ds.Lexicon = lexicon.Default()
	}
}

// Artist returns the artist slug the store belongs to.
func (ds *DataStore) Artist() string {
	return ds.ArtistID
}

// HasArtist reports whether the artist node has been ingested.
func (ds *DataStore) HasArtist(ctx context.Context) (bool, error) {
	if ds.DB == nil {
		return false, errNotOpen()
	}
	if !ds.DB.Migrator().HasTable(&Artist{}) {
		return false, nil
	}
	var n int64
	if err := ds.DB.WithContext(ctx).Model(&Artist{}).Where("id = ?", ds.ArtistID).Count(&n).Error; err != nil {
		return false, dbError(err, "has_artist", "artist", ds.ArtistID)
	}
	return n > 0, nil
}

// closeDB closes the underlying sql.DB.
func (ds *DataStore) closeDB() error {
	if ds.DB == nil {
		return errNotOpen()
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close", "artist", ds.ArtistID)
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", "artist", ds.ArtistID)
	}
	ds.DB = nil
	return nil
}
