package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lyricgraph/internal/errors"
)

func TestVectorIndexSearch(t *testing.T) {
	t.Parallel()

	vi := NewVectorIndex([]LyricEmbedding{
		{NodeID: "a", NodeType: NodeLine, Vector: []float32{1, 0}},
		{NodeID: "b", NodeType: NodeLine, Vector: []float32{1, 1}},
		{NodeID: "c", NodeType: NodeLine, Vector: []float32{0, 2}},
		{NodeID: "zero", NodeType: NodeLine, Vector: []float32{0, 0}},
		{NodeID: "wide", NodeType: NodeLine, Vector: []float32{1, 0, 0}},
		{NodeID: "s", NodeType: NodeSong, Vector: []float32{1, 0}},
	})
	assert.Equal(t, 2, vi.Dimensions())
	assert.Equal(t, 3, vi.Len(NodeLine), "zero and mismatched vectors are skipped")
	assert.Equal(t, 1, vi.Len(NodeSong))
	assert.Zero(t, vi.Len(NodeSection))

	hits, err := vi.Search(NodeLine, []float32{2, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "b", hits[1].ID)
	assert.InDelta(t, 0.7071, hits[1].Score, 1e-3)

	hits, err = vi.Search(NodeSection, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = vi.Search(NodeLine, []float32{1, 0, 0}, 5)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryEmbedding))
}

func TestLoadEmbeddingsAndNearestNodes(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ingestTestGraph(t, store)
	ctx := t.Context()

	embedder := &fakeEmbedder{}
	stats, err := store.LoadEmbeddings(ctx, embedder, testGraph())
	require.NoError(t, err)
	assert.Equal(t, 2, stats["embeddings_song"])
	assert.Equal(t, 4, stats["embeddings_section"])
	assert.Equal(t, 9, stats["embeddings_line"])
	assert.Equal(t, 3, embedder.calls, "one batch per node type")

	require.NoError(t, store.BuildVectorIndex(ctx))
	require.NoError(t, store.BuildVectorIndex(ctx), "second build is a no-op")

	lines, err := store.NearestNodes(ctx, NodeLine, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "baarish mein tera pyaar", lines[0].Text)
	assert.Greater(t, lines[0].Score, lines[1].Score)

	songs, err := store.NearestNodes(ctx, NodeSong, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, "Road Song", songs[0].Text)
	assert.Equal(t, "melancholic", songs[0].Metadata["mood"])
}

func TestLoadEmbeddingsFailure(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ingestTestGraph(t, store)

	_, err := store.LoadEmbeddings(t.Context(), &fakeEmbedder{failing: true}, testGraph())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryEmbedding))
}

func TestStoreEmbeddingsRejectsMismatch(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	err := store.StoreEmbeddings(t.Context(), NodeLine, []string{"a", "b"}, [][]float32{{1}})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryEmbedding))
}

func TestStoreEmbeddingsReplacesVectors(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ingestTestGraph(t, store)
	ctx := t.Context()

	id := rainSong + ":sec:0:line:0"
	require.NoError(t, store.StoreEmbeddings(ctx, NodeLine, []string{id}, [][]float32{{1, 0}}))
	require.NoError(t, store.StoreEmbeddings(ctx, NodeLine, []string{id}, [][]float32{{0, 1}}))

	nodes, err := store.NearestNodes(ctx, NodeLine, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.InDelta(t, 1.0, nodes[0].Score, 1e-6)
}

func TestEmbeddingDocuments(t *testing.T) {
	t.Parallel()
	data := testGraph()
	data.Songs[0].Sections[0].Lines[1].WordCount = 2

	docs := EmbeddingDocuments(data)
	assert.Len(t, docs[NodeSong], 2)
	assert.Len(t, docs[NodeSection], 4)
	assert.Len(t, docs[NodeLine], 8, "lines under three words are skipped")
	assert.Contains(t, docs[NodeSong][0].Text, "Song: Rain Song. Mood: romantic.")
	assert.Contains(t, docs[NodeSection][1].Text, "Section (chorus) from Rain Song:")
}
