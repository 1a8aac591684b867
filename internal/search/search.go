// Package search implements hybrid keyword and semantic search over graph
// nodes, merged with Reciprocal Rank Fusion.
package search

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tphakala/lyricgraph/internal/datastore"
	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/logger"
)

// RRFK is the rank constant of Reciprocal Rank Fusion.
const RRFK = 60

// minTokenRunes excludes short words from keyword search.
const minTokenRunes = 3

// Result sources.
const (
	SourceBoth     = "both"
	SourceSemantic = "semantic"
	SourceKeyword  = "keyword"
)

// Result is one fused search hit.
type Result struct {
	NodeID   string             `json:"node_id"`
	NodeType datastore.NodeType `json:"node_type"`
	Text     string             `json:"text"`
	Score    float64            `json:"score"`
	Source   string             `json:"source"`
	Metadata map[string]any     `json:"metadata"`
}

// Ranked is a hit of a single search list with its list specific score.
type Ranked struct {
	datastore.TextNode
	Score float64
}

// QueryEmbedder embeds search queries.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs searches against one artist store.
type Searcher struct {
	store    datastore.Reader
	embedder QueryEmbedder
	log      logger.Logger
}

// New returns a searcher over store. A nil embedder disables semantic search.
func New(store datastore.Reader, embedder QueryEmbedder) *Searcher {
	return &Searcher{
		store:    store,
		embedder: embedder,
		log:      logger.Global().Module("search"),
	}
}

// Hybrid runs semantic and keyword search for 2×limit candidates each and
// fuses them. A failing list is logged and treated as empty; Hybrid fails
// only when both lists fail.
func (s *Searcher) Hybrid(ctx context.Context, query string, nodeType datastore.NodeType, limit int) ([]Result, error) {
	if limit <= 0 {
		return []Result{}, nil
	}
	k := 2 * limit

	semantic, semErr := s.Semantic(ctx, query, nodeType, k)
	if semErr != nil {
		s.log.Warn("semantic search failed",
			logger.String("node_type", string(nodeType)),
			logger.Error(semErr))
	}
	keyword, kwErr := s.Keyword(ctx, query, nodeType, k)
	if kwErr != nil {
		s.log.Warn("keyword search failed",
			logger.String("node_type", string(nodeType)),
			logger.Error(kwErr))
	}
	if semErr != nil && kwErr != nil {
		return nil, errors.New(errors.Join(semErr, kwErr)).
			Component("search").
			Category(errors.CategoryQuery).
			Context("node_type", string(nodeType)).
			Build()
	}

	results := Fuse(semantic, keyword, limit)
	s.log.Debug("hybrid search complete",
		logger.String("node_type", string(nodeType)),
		logger.Int("semantic", len(semantic)),
		logger.Int("keyword", len(keyword)),
		logger.Int("results", len(results)))
	return results, nil
}

// Semantic ranks nodes of nodeType by cosine similarity to the embedded query.
func (s *Searcher) Semantic(ctx context.Context, query string, nodeType datastore.NodeType, k int) ([]Ranked, error) {
	if s.embedder == nil {
		return nil, nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	nodes, err := s.store.NearestNodes(ctx, nodeType, vec, k)
	if err != nil {
		return nil, err
	}
	out := make([]Ranked, len(nodes))
	for i, n := range nodes {
		out[i] = Ranked{TextNode: n.TextNode, Score: n.Score}
	}
	return out, nil
}

// Keyword scores nodes of nodeType by the fraction of query tokens their text
// contains and returns the k best. Ties keep store order.
func (s *Searcher) Keyword(ctx context.Context, query string, nodeType datastore.NodeType, k int) ([]Ranked, error) {
	tokens := Tokens(query)
	if len(tokens) == 0 {
		return nil, nil
	}
	candidates, err := s.store.KeywordCandidates(ctx, nodeType, tokens)
	if err != nil {
		return nil, err
	}

	out := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		lower := strings.ToLower(c.MatchText)
		matched := 0
		for _, tok := range tokens {
			if strings.Contains(lower, tok) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		out = append(out, Ranked{TextNode: c, Score: float64(matched) / float64(len(tokens))})
	}
	slices.SortStableFunc(out, func(a, b Ranked) int { return cmp.Compare(b.Score, a.Score) })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Tokens returns the lowercase query words longer than two characters, with
// surrounding punctuation removed.
func Tokens(query string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.TrimFunc(w, unicode.IsPunct)
		if utf8.RuneCountInString(w) >= minTokenRunes {
			out = append(out, w)
		}
	}
	return out
}

// Fuse merges ranked lists with Reciprocal Rank Fusion. Each hit earns
// 1/(RRFK+rank+1) per list it appears in; the result is ordered by summed
// score, ties by first appearance, and truncated to limit.
func Fuse(semantic, keyword []Ranked, limit int) []Result {
	var order []string
	byID := make(map[string]*Result)
	seen := make(map[string]map[string]bool)
	add := func(list []Ranked, source string) {
		for rank, hit := range list {
			r, ok := byID[hit.ID]
			if !ok {
				r = &Result{
					NodeID:   hit.ID,
					NodeType: hit.NodeType,
					Text:     hit.Text,
					Metadata: hit.Metadata,
				}
				byID[hit.ID] = r
				seen[hit.ID] = make(map[string]bool, 2)
				order = append(order, hit.ID)
			}
			if seen[hit.ID][source] {
				continue
			}
			seen[hit.ID][source] = true
			r.Score += 1.0 / float64(RRFK+rank+1)
		}
	}
	add(semantic, SourceSemantic)
	add(keyword, SourceKeyword)

	out := make([]Result, 0, len(order))
	for _, id := range order {
		r := byID[id]
		switch {
		case seen[id][SourceSemantic] && seen[id][SourceKeyword]:
			r.Source = SourceBoth
		case seen[id][SourceSemantic]:
			r.Source = SourceSemantic
		default:
			r.Source = SourceKeyword
		}
		if r.Metadata == nil {
			r.Metadata = map[string]any{}
		}
		out = append(out, *r)
	}
	slices.SortStableFunc(out, func(a, b Result) int { return cmp.Compare(b.Score, a.Score) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
