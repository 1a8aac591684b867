package datastore

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/logger"
)

// VectorIndex holds unit-length embeddings per node type for cosine search.
// It is immutable once built.
type VectorIndex struct {
	dims   int
	byType map[NodeType]*vectorSet
}

type vectorSet struct {
	ids  []string
	vecs [][]float32
}

// Hit is one vector search result.
type Hit struct {
	ID    string
	Score float64
}

// NewVectorIndex builds an index from embedding rows. Rows whose width differs
// from the first row are skipped.
func NewVectorIndex(rows []LyricEmbedding) *VectorIndex {
	vi := &VectorIndex{byType: make(map[NodeType]*vectorSet)}
	for i := range rows {
		vec := normalize(rows[i].Vector)
		if vec == nil {
			continue
		}
		if vi.dims == 0 {
			vi.dims = len(vec)
		}
		if len(vec) != vi.dims {
			continue
		}
		set := vi.byType[rows[i].NodeType]
		if set == nil {
			set = &vectorSet{}
			vi.byType[rows[i].NodeType] = set
		}
		set.ids = append(set.ids, rows[i].NodeID)
		set.vecs = append(set.vecs, vec)
	}
	return vi
}

// Dimensions returns the vector width, 0 for an empty index.
func (vi *VectorIndex) Dimensions() int { return vi.dims }

// Len returns the number of vectors of nodeType.
func (vi *VectorIndex) Len(nodeType NodeType) int {
	if set := vi.byType[nodeType]; set != nil {
		return len(set.ids)
	}
	return 0
}

// Search returns the k nodes of nodeType most similar to query by cosine
// similarity. Ties keep load order.
func (vi *VectorIndex) Search(nodeType NodeType, query []float32, k int) ([]Hit, error) {
	set := vi.byType[nodeType]
	if set == nil || k <= 0 {
		return nil, nil
	}
	if len(query) != vi.dims {
		return nil, errors.Newf("query vector has %d dimensions, index has %d", len(query), vi.dims).
			Component("datastore").
			Category(errors.CategoryEmbedding).
			Build()
	}
	q := normalize(query)
	if q == nil {
		return nil, nil
	}

	hits := make([]Hit, len(set.ids))
	for i, v := range set.vecs {
		hits[i] = Hit{ID: set.ids[i], Score: dot(q, v)}
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// BuildVectorIndex creates the embedding lookup index and loads the in-memory
// vector index. Call it once after all embeddings are stored; later calls are no-ops.
func (ds *DataStore) BuildVectorIndex(ctx context.Context) error {
	if ds.DB == nil {
		return errNotOpen()
	}
	ds.vectorMu.Lock()
	defer ds.vectorMu.Unlock()
	if ds.indexBuilt {
		return nil
	}

	start := time.Now()
	if !ds.dbIndexDone {
		if err := ds.ensureEmbeddingIndex(ctx); err != nil {
			ds.recordPhase("vector_index", start, err)
			return err
		}
		ds.dbIndexDone = true
	}
	vi, err := ds.loadVectors(ctx)
	if err != nil {
		ds.recordPhase("vector_index", start, err)
		return err
	}
	ds.vectors = vi
	ds.indexBuilt = true
	ds.recordPhase("vector_index", start, nil)

	GetLogger().Info("vector index built",
		logger.String("artist", ds.ArtistID),
		logger.Int("songs", vi.Len(NodeSong)),
		logger.Int("sections", vi.Len(NodeSection)),
		logger.Int("lines", vi.Len(NodeLine)),
		logger.Int("dimensions", vi.Dimensions()),
		logger.Duration("duration", time.Since(start)))
	return nil
}

// vectorIndex returns the loaded index, loading it on first use by a reader.
func (ds *DataStore) vectorIndex(ctx context.Context) (*VectorIndex, error) {
	ds.vectorMu.RLock()
	vi := ds.vectors
	ds.vectorMu.RUnlock()
	if vi != nil {
		return vi, nil
	}

	ds.vectorMu.Lock()
	defer ds.vectorMu.Unlock()
	if ds.vectors != nil {
		return ds.vectors, nil
	}
	vi, err := ds.loadVectors(ctx)
	if err != nil {
		return nil, err
	}
	ds.vectors = vi
	return vi, nil
}

func (ds *DataStore) loadVectors(ctx context.Context) (*VectorIndex, error) {
	var rows []LyricEmbedding
	if err := ds.DB.WithContext(ctx).
		Where("artist_id = ?", ds.ArtistID).
		Order("node_type, node_id").
		Find(&rows).Error; err != nil {
		return nil, queryError(err, "load_embeddings", "artist", ds.ArtistID)
	}
	return NewVectorIndex(rows), nil
}
