package datastore

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tphakala/lyricgraph/internal/analysis"
)

// keywordCandidateLimit caps rows scanned by one keyword search.
const keywordCandidateLimit = 1000

// MoodTransition is a weighted mood to mood edge.
type MoodTransition struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Frequency int    `json:"frequency"`
}

// ClusterWithSongs is a thematic cluster with its member song ids.
type ClusterWithSongs struct {
	ThematicCluster
	SongIDs []string `json:"song_ids"`
}

// Overview summarizes an ingested artist graph.
type Overview struct {
	Artist       *Artist           `json:"artist"`
	Fingerprint  *StyleFingerprint `json:"fingerprint,omitempty"`
	SongCount    int64             `json:"song_count"`
	SectionCount int64             `json:"section_count"`
	LineCount    int64             `json:"line_count"`
}

// TextNode is a searchable node with its display text and metadata.
// MatchText is the text keyword search is applied to.
type TextNode struct {
	ID        string         `json:"node_id"`
	NodeType  NodeType       `json:"node_type"`
	Text      string         `json:"text"`
	MatchText string         `json:"-"`
	Metadata  map[string]any `json:"metadata"`
}

// ScoredNode is a TextNode with a similarity score.
type ScoredNode struct {
	TextNode
	Score float64 `json:"score"`
}

func (ds *DataStore) db(ctx context.Context) (*gorm.DB, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}
	return ds.DB.WithContext(ctx), nil
}

// SongCount returns the number of ingested songs.
func (ds *DataStore) SongCount(ctx context.Context) (int64, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.Model(&Song{}).Where("artist_id = ?", ds.ArtistID).Count(&n).Error; err != nil {
		return 0, queryError(err, "song_count", "artist", ds.ArtistID)
	}
	return n, nil
}

// TopPhrases returns phrases used at least minFrequency times, most frequent first.
func (ds *DataStore) TopPhrases(ctx context.Context, minFrequency, limit int) ([]Phrase, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	var rows []Phrase
	if err := db.Where("artist_id = ? AND frequency >= ?", ds.ArtistID, minFrequency).
		Order("frequency DESC, id").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, queryError(err, "top_phrases", "artist", ds.ArtistID)
	}
	return rows, nil
}

// TopRhymePairs returns the most frequent rhyme pairs.
func (ds *DataStore) TopRhymePairs(ctx context.Context, limit int) ([]RhymePair, error) {
	return topByFrequency[RhymePair](ctx, ds, "top_rhyme_pairs", limit)
}

// TopMetaphors returns the most frequent metaphors.
func (ds *DataStore) TopMetaphors(ctx context.Context, limit int) ([]Metaphor, error) {
	return topByFrequency[Metaphor](ctx, ds, "top_metaphors", limit)
}

// TopCulturalReferences returns the most frequent cultural references.
func (ds *DataStore) TopCulturalReferences(ctx context.Context, limit int) ([]CulturalReference, error) {
	return topByFrequency[CulturalReference](ctx, ds, "top_cultural_references", limit)
}

// TopStructures returns the most frequent structure templates.
func (ds *DataStore) TopStructures(ctx context.Context, limit int) ([]StructureTemplate, error) {
	return topByFrequency[StructureTemplate](ctx, ds, "top_structures", limit)
}

func topByFrequency[T any](ctx context.Context, ds *DataStore, query string, limit int) ([]T, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	var rows []T
	if err := db.Where("artist_id = ?", ds.ArtistID).
		Order("frequency DESC, id").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, queryError(err, query, "artist", ds.ArtistID)
	}
	return rows, nil
}

// EmotionalArcs returns arcs of the artist's songs in song order.
func (ds *DataStore) EmotionalArcs(ctx context.Context, limit int) ([]EmotionalArc, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	var rows []EmotionalArc
	if err := db.Where("artist_id = ?", ds.ArtistID).
		Order("song_id").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, queryError(err, "emotional_arcs", "artist", ds.ArtistID)
	}
	return rows, nil
}

// MoodTransitions returns the most frequent mood transitions.
func (ds *DataStore) MoodTransitions(ctx context.Context, limit int) ([]MoodTransition, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	var edges []Edge
	if err := db.Where("rel = ? AND artist_id = ?", RelMoodTransitions, ds.ArtistID).
		Order("weight DESC, from_id, to_id").
		Limit(limit).
		Find(&edges).Error; err != nil {
		return nil, queryError(err, "mood_transitions", "artist", ds.ArtistID)
	}
	out := make([]MoodTransition, len(edges))
	for i := range edges {
		out[i] = MoodTransition{From: edges[i].FromID, To: edges[i].ToID, Frequency: int(edges[i].Weight)}
	}
	return out, nil
}

// SectionAverageLines returns the average line count per section type.
func (ds *DataStore) SectionAverageLines(ctx context.Context) (map[string]float64, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		SectionType string
		AvgLines    float64
	}
	if err := db.Model(&Section{}).
		Select("section_type, AVG(line_count) AS avg_lines").
		Where("artist_id = ?", ds.ArtistID).
		Group("section_type").
		Scan(&rows).Error; err != nil {
		return nil, queryError(err, "section_average_lines", "artist", ds.ArtistID)
	}
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.SectionType] = r.AvgLines
	}
	return out, nil
}

// Fingerprint returns the artist's style fingerprint.
func (ds *DataStore) Fingerprint(ctx context.Context) (*StyleFingerprint, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	var fps []StyleFingerprint
	if err := db.Where("artist_id = ?", ds.ArtistID).Limit(1).Find(&fps).Error; err != nil {
		return nil, queryError(err, "fingerprint", "artist", ds.ArtistID)
	}
	if len(fps) == 0 {
		return nil, notFoundError("style fingerprint", ds.ArtistID)
	}
	return &fps[0], nil
}

// Analysis converts the stored row back into the analysis record.
func (f *StyleFingerprint) Analysis() analysis.Fingerprint {
	return analysis.Fingerprint{
		ID:                  f.ID,
		ArtistID:            f.ArtistID,
		AvgLineLength:       f.AvgLineLength,
		AvgSectionLength:    f.AvgSectionLength,
		VocabularyRichness:  f.VocabularyRichness,
		CodeSwitchFrequency: f.CodeSwitchFrequency,
		MetaphorDensity:     f.MetaphorDensity,
		RepetitionIndex:     f.RepetitionIndex,
		AvgMoodValence:      f.AvgMoodValence,
		AvgMoodArousal:      f.AvgMoodArousal,
		TopRhymeTypes:       nonNilStrings(f.TopRhymeTypes),
		PreferredStructures: nonNilStrings(f.PreferredStructures),
		VocabularySet:       nonNilStrings(f.VocabularySet),
		AntiVocabulary:      nonNilStrings(f.AntiVocabulary),
	}
}

// ArtistLines returns the text of every line of the artist.
func (ds *DataStore) ArtistLines(ctx context.Context) ([]string, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	var texts []string
	if err := db.Model(&Line{}).
		Where("artist_id = ?", ds.ArtistID).
		Order("song_id, global_line_index").
		Pluck("text", &texts).Error; err != nil {
		return nil, queryError(err, "artist_lines", "artist", ds.ArtistID)
	}
	return texts, nil
}

// Songs returns the artist's songs ordered by title.
func (ds *DataStore) Songs(ctx context.Context) ([]Song, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	var rows []Song
	if err := db.Where("artist_id = ?", ds.ArtistID).Order("title, id").Find(&rows).Error; err != nil {
		return nil, queryError(err, "songs", "artist", ds.ArtistID)
	}
	return rows, nil
}

// Themes returns the artist's themes, most common first.
func (ds *DataStore) Themes(ctx context.Context) ([]Theme, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	var rows []Theme
	if err := db.Where("artist_id = ?", ds.ArtistID).Order("song_count DESC, id").Find(&rows).Error; err != nil {
		return nil, queryError(err, "themes", "artist", ds.ArtistID)
	}
	return rows, nil
}

// Clusters returns the artist's thematic clusters, largest first, with member songs.
func (ds *DataStore) Clusters(ctx context.Context) ([]ClusterWithSongs, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	var rows []ThematicCluster
	if err := db.Where("artist_id = ?", ds.ArtistID).Order("song_count DESC, id").Find(&rows).Error; err != nil {
		return nil, queryError(err, "clusters", "artist", ds.ArtistID)
	}
	var edges []Edge
	if err := db.Where("rel = ? AND artist_id = ?", RelMemberOfCluster, ds.ArtistID).
		Order("id").
		Find(&edges).Error; err != nil {
		return nil, queryError(err, "cluster_members", "artist", ds.ArtistID)
	}
	members := make(map[string][]string, len(rows))
	for _, e := range edges {
		members[e.ToID] = append(members[e.ToID], e.FromID)
	}

	out := make([]ClusterWithSongs, len(rows))
	for i := range rows {
		songs := members[rows[i].ID]
		if songs == nil {
			songs = []string{}
		}
		out[i] = ClusterWithSongs{ThematicCluster: rows[i], SongIDs: songs}
	}
	return out, nil
}

// Overview returns the artist node with node counts and the fingerprint if present.
func (ds *DataStore) Overview(ctx context.Context) (*Overview, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	var artists []Artist
	if err := db.Where("id = ?", ds.ArtistID).Limit(1).Find(&artists).Error; err != nil {
		return nil, queryError(err, "overview", "artist", ds.ArtistID)
	}
	if len(artists) == 0 {
		return nil, notFoundError("artist", ds.ArtistID)
	}
	ov := &Overview{Artist: &artists[0]}

	counts := []struct {
		model any
		dst   *int64
	}{
		{&Song{}, &ov.SongCount},
		{&Section{}, &ov.SectionCount},
		{&Line{}, &ov.LineCount},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where("artist_id = ?", ds.ArtistID).Count(c.dst).Error; err != nil {
			return nil, queryError(err, "overview_counts", "artist", ds.ArtistID)
		}
	}

	if fp, err := ds.Fingerprint(ctx); err == nil {
		ov.Fingerprint = fp
	}
	return ov, nil
}

// KeywordCandidates returns nodes of nodeType whose match text contains any
// of the lowercase tokens. Scoring is left to the caller.
func (ds *DataStore) KeywordCandidates(ctx context.Context, nodeType NodeType, tokens []string) ([]TextNode, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	column := "text"
	if nodeType == NodeSong {
		column = "full_lyrics"
	}
	conds := make([]string, len(tokens))
	args := make([]any, 0, len(tokens)+1)
	args = append(args, ds.ArtistID)
	for i, tok := range tokens {
		conds[i] = "LOWER(" + column + ") LIKE ? ESCAPE '!'"
		args = append(args, "%"+escapeLike(strings.ToLower(tok))+"%")
	}
	where := "artist_id = ? AND (" + strings.Join(conds, " OR ") + ")"

	q := db.Where(where, args...).Order("id").Limit(keywordCandidateLimit)
	nodes, err := ds.findTextNodes(q, nodeType)
	if err != nil {
		return nil, queryError(err, "keyword_candidates", "node_type", string(nodeType))
	}
	return nodes, nil
}

// NearestNodes returns the k nodes of nodeType closest to the query vector.
func (ds *DataStore) NearestNodes(ctx context.Context, nodeType NodeType, query []float32, k int) ([]ScoredNode, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	vi, err := ds.vectorIndex(ctx)
	if err != nil {
		return nil, err
	}
	hits, err := vi.Search(nodeType, query, k)
	if err != nil || len(hits) == 0 {
		return nil, err
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	nodes, err := ds.findTextNodes(db.Where("id IN ?", ids), nodeType)
	if err != nil {
		return nil, queryError(err, "nearest_nodes", "node_type", string(nodeType))
	}
	byID := make(map[string]TextNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	out := make([]ScoredNode, 0, len(hits))
	for _, h := range hits {
		n, ok := byID[h.ID]
		if !ok {
			continue
		}
		out = append(out, ScoredNode{TextNode: n, Score: h.Score})
	}
	return out, nil
}

// findTextNodes runs q against the table of nodeType and converts the rows.
func (ds *DataStore) findTextNodes(q *gorm.DB, nodeType NodeType) ([]TextNode, error) {
	switch nodeType {
	case NodeSong:
		var rows []Song
		if err := q.Find(&rows).Error; err != nil {
			return nil, err
		}
		out := make([]TextNode, len(rows))
		for i := range rows {
			out[i] = TextNode{
				ID:        rows[i].ID,
				NodeType:  NodeSong,
				Text:      rows[i].Title,
				MatchText: rows[i].FullLyrics,
				Metadata:  map[string]any{"mood": rows[i].Mood, "language": rows[i].Language},
			}
		}
		return out, nil
	case NodeLine:
		var rows []Line
		if err := q.Find(&rows).Error; err != nil {
			return nil, err
		}
		out := make([]TextNode, len(rows))
		for i := range rows {
			out[i] = TextNode{
				ID:        rows[i].ID,
				NodeType:  NodeLine,
				Text:      rows[i].Text,
				MatchText: rows[i].Text,
				Metadata:  map[string]any{"language": rows[i].Language, "end_word": rows[i].EndWord},
			}
		}
		return out, nil
	default:
		var rows []Section
		if err := q.Find(&rows).Error; err != nil {
			return nil, err
		}
		out := make([]TextNode, len(rows))
		for i := range rows {
			out[i] = TextNode{
				ID:        rows[i].ID,
				NodeType:  NodeSection,
				Text:      rows[i].Text,
				MatchText: rows[i].Text,
				Metadata: map[string]any{
					"mood":         rows[i].Mood,
					"section_type": rows[i].SectionType,
					"line_count":   rows[i].LineCount,
				},
			}
		}
		return out, nil
	}
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
