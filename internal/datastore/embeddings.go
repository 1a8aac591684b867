package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/lyricgraph/internal/analysis"
	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/logger"
	"github.com/tphakala/lyricgraph/internal/observability/metrics"
)

// Embedding batch sizes per node type.
const (
	songBatchSize    = 100
	sectionBatchSize = 100
	lineBatchSize    = 200

	// minLineWords excludes short lines from embedding.
	minLineWords = 3

	songEmbedChars    = 300
	sectionEmbedChars = 500
)

// EmbeddingDoc is one text to embed for a node.
type EmbeddingDoc struct {
	NodeType NodeType
	ID       string
	Text     string
}

// EmbeddingDocuments builds the texts embedded for songs, sections and lines
// with at least three words, grouped by node type in that order.
func EmbeddingDocuments(data *analysis.GraphData) map[NodeType][]EmbeddingDoc {
	docs := make(map[NodeType][]EmbeddingDoc, 3)
	for i := range data.Songs {
		song := &data.Songs[i]
		docs[NodeSong] = append(docs[NodeSong], EmbeddingDoc{
			NodeType: NodeSong,
			ID:       song.ID,
			Text:     fmt.Sprintf("Song: %s. Mood: %s.\n%s", song.Title, song.Mood, truncate(song.FullLyricsClean, songEmbedChars)),
		})
		for j := range song.Sections {
			sec := &song.Sections[j]
			docs[NodeSection] = append(docs[NodeSection], EmbeddingDoc{
				NodeType: NodeSection,
				ID:       sec.ID,
				Text:     fmt.Sprintf("Section (%s) from %s:\n%s", sec.SectionType, song.Title, truncate(sec.Text, sectionEmbedChars)),
			})
			for k := range sec.Lines {
				if sec.Lines[k].WordCount < minLineWords {
					continue
				}
				docs[NodeLine] = append(docs[NodeLine], EmbeddingDoc{
					NodeType: NodeLine,
					ID:       sec.Lines[k].ID,
					Text:     sec.Lines[k].Text,
				})
			}
		}
	}
	return docs
}

// LoadEmbeddings embeds every song, section and eligible line in batches and
// stores the vectors. The vector index is not rebuilt; call BuildVectorIndex.
func (ds *DataStore) LoadEmbeddings(ctx context.Context, embedder BatchEmbedder, data *analysis.GraphData) (IngestStats, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}
	start := time.Now()
	docs := EmbeddingDocuments(data)
	stats := IngestStats{}

	plan := []struct {
		nodeType NodeType
		size     int
	}{
		{NodeSong, songBatchSize},
		{NodeSection, sectionBatchSize},
		{NodeLine, lineBatchSize},
	}
	for _, p := range plan {
		n, err := ds.embedNodes(ctx, embedder, docs[p.nodeType], p.nodeType, p.size)
		stats["embeddings_"+string(p.nodeType)] = n
		if err != nil {
			ds.recordPhase("embeddings", start, err)
			return stats, err
		}
	}
	ds.recordPhase("embeddings", start, nil)

	GetLogger().Info("embeddings loaded",
		logger.String("artist", ds.ArtistID),
		logger.Int("songs", stats["embeddings_song"]),
		logger.Int("sections", stats["embeddings_section"]),
		logger.Int("lines", stats["embeddings_line"]),
		logger.Duration("duration", time.Since(start)))
	return stats, nil
}

func (ds *DataStore) embedNodes(ctx context.Context, embedder BatchEmbedder, docs []EmbeddingDoc, nodeType NodeType, size int) (int, error) {
	stored := 0
	for from := 0; from < len(docs); from += size {
		to := min(from+size, len(docs))
		chunk := docs[from:to]

		texts := make([]string, len(chunk))
		ids := make([]string, len(chunk))
		for i := range chunk {
			texts[i] = chunk[i].Text
			ids[i] = chunk[i].ID
		}

		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			ds.recordBatch(nodeType, metrics.StatusError)
			return stored, errors.New(err).
				Component("datastore").
				Category(errors.CategoryEmbedding).
				Context("node_type", string(nodeType)).
				Context("batch_start", from).
				Context("batch_size", len(chunk)).
				Build()
		}
		if err := ds.StoreEmbeddings(ctx, nodeType, ids, vectors); err != nil {
			ds.recordBatch(nodeType, metrics.StatusError)
			return stored, err
		}
		ds.recordBatch(nodeType, metrics.StatusSuccess)
		stored += len(chunk)

		GetLogger().Debug("embedding batch stored",
			logger.String("node_type", string(nodeType)),
			logger.Int("progress", to),
			logger.Int("total", len(docs)))
	}
	return stored, nil
}

// StoreEmbeddings writes vectors for node ids, replacing existing ones. The
// in-memory vector index is invalidated.
func (ds *DataStore) StoreEmbeddings(ctx context.Context, nodeType NodeType, ids []string, vectors [][]float32) error {
	if ds.DB == nil {
		return errNotOpen()
	}
	if len(ids) != len(vectors) {
		return errors.Newf("embedding count mismatch: %d ids, %d vectors", len(ids), len(vectors)).
			Component("datastore").
			Category(errors.CategoryEmbedding).
			Context("node_type", string(nodeType)).
			Build()
	}
	if len(ids) == 0 {
		return nil
	}

	rows := make([]LyricEmbedding, len(ids))
	for i := range ids {
		rows[i] = LyricEmbedding{
			NodeID:   ids[i],
			NodeType: nodeType,
			ArtistID: ds.ArtistID,
			Vector:   vectors[i],
		}
	}

	ds.writeMu.Lock()
	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "node_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"node_type", "artist_id", "vector"}),
		}).CreateInBatches(rows, insertBatchSize).Error
	})
	ds.writeMu.Unlock()
	if err != nil {
		return ingestError(err, "lyric_embeddings", "node_type", string(nodeType), "rows", len(rows))
	}

	ds.vectorMu.Lock()
	ds.vectors = nil
	ds.indexBuilt = false
	ds.vectorMu.Unlock()
	return nil
}

func (ds *DataStore) recordBatch(nodeType NodeType, status string) {
	if ds.Metrics != nil {
		ds.Metrics.RecordEmbeddingBatch(string(nodeType), status)
	}
}
