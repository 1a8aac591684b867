package cluster

import (
	"github.com/tphakala/lyricgraph/internal/lexicon"
	"github.com/tphakala/lyricgraph/internal/logger"
	"github.com/tphakala/lyricgraph/internal/lyrics"
)

// maxPropagationRounds bounds label propagation on graphs that oscillate.
const maxPropagationRounds = 50

// GraphPartition detects communities in the song graph whose edge weights
// are the number of themes two songs share. Propagation visits songs in
// catalogue order and breaks ties toward the lowest label, so the result is
// deterministic.
type GraphPartition struct {
	lex      *lexicon.Lexicon
	fallback *Cooccurrence
}

// NewGraphPartition returns the graph strategy.
func NewGraphPartition(lex *lexicon.Lexicon) *GraphPartition {
	return &GraphPartition{lex: lex, fallback: NewCooccurrence(lex)}
}

// Name returns the strategy name.
func (g *GraphPartition) Name() string { return "graph" }

// Cluster partitions the songs. A graph without edges falls back to
// first-theme grouping.
func (g *GraphPartition) Cluster(artist string, songs []lyrics.Song, songThemes map[string][]string) []ThematicCluster {
	if len(songs) < MinSongs {
		return nil
	}

	n := len(songs)
	weights := make([]map[int]int, n)
	edges := 0
	for i := range n {
		for j := i + 1; j < n; j++ {
			w := sharedThemes(songThemes[songs[i].ID], songThemes[songs[j].ID])
			if w == 0 {
				continue
			}
			if weights[i] == nil {
				weights[i] = make(map[int]int)
			}
			if weights[j] == nil {
				weights[j] = make(map[int]int)
			}
			weights[i][j] = w
			weights[j][i] = w
			edges++
		}
	}
	if edges == 0 {
		GetLogger().Debug("song graph has no edges, grouping by first theme",
			logger.String("artist", artist))
		return g.fallback.Cluster(artist, songs, songThemes)
	}

	labels := propagate(weights)

	// Communities in order of their first member.
	var order []int
	members := make(map[int][]int)
	for i, l := range labels {
		if _, ok := members[l]; !ok {
			order = append(order, l)
		}
		members[l] = append(members[l], i)
	}

	var clusters []ThematicCluster
	for idx, l := range order {
		nodes := members[l]
		if len(nodes) < MinClusterSize {
			continue
		}
		ids := make([]string, len(nodes))
		for k, node := range nodes {
			ids[k] = songs[node].ID
		}
		clusters = append(clusters, build(g.lex, artist, idx, ids, songThemes, cohesion(nodes, weights)))
	}
	return clusters
}

// propagate runs weighted label propagation and returns one label per node.
func propagate(weights []map[int]int) []int {
	labels := make([]int, len(weights))
	for i := range labels {
		labels[i] = i
	}

	for range maxPropagationRounds {
		changed := false
		for i, neighbours := range weights {
			if len(neighbours) == 0 {
				continue
			}
			score := make(map[int]int)
			for j, w := range neighbours {
				score[labels[j]] += w
			}
			best, bestScore := labels[i], score[labels[i]]
			for l, s := range score {
				if s > bestScore || (s == bestScore && l < best) {
					best, bestScore = l, s
				}
			}
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return labels
}

// cohesion is the share of member pairs connected by an edge.
func cohesion(nodes []int, weights []map[int]int) float64 {
	n := len(nodes)
	if n < 2 {
		return 0
	}
	internal := 0
	for a := range n {
		for b := a + 1; b < n; b++ {
			if _, ok := weights[nodes[a]][nodes[b]]; ok {
				internal++
			}
		}
	}
	return float64(internal) / float64(n*(n-1)/2)
}

func sharedThemes(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, th := range a {
		set[th] = struct{}{}
	}
	shared := 0
	for _, th := range b {
		if _, ok := set[th]; ok {
			shared++
		}
	}
	return shared
}
