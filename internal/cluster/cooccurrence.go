package cluster

import (
	"github.com/tphakala/lyricgraph/internal/lexicon"
	"github.com/tphakala/lyricgraph/internal/lyrics"
)

// Cooccurrence groups songs by their first theme. Songs without themes share
// one group.
type Cooccurrence struct {
	lex *lexicon.Lexicon
}

// NewCooccurrence returns the grouping strategy.
func NewCooccurrence(lex *lexicon.Lexicon) *Cooccurrence {
	return &Cooccurrence{lex: lex}
}

// Name returns the strategy name.
func (c *Cooccurrence) Name() string { return "cooccurrence" }

// Cluster groups the songs. Every cluster has a fixed cohesion of 0.5.
func (c *Cooccurrence) Cluster(artist string, songs []lyrics.Song, songThemes map[string][]string) []ThematicCluster {
	if len(songs) < MinSongs {
		return nil
	}

	var order []string
	groups := make(map[string][]string)
	for i := range songs {
		key := uncategorized
		if themes := songThemes[songs[i].ID]; len(themes) > 0 {
			key = themes[0]
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], songs[i].ID)
	}

	var clusters []ThematicCluster
	for idx, key := range order {
		ids := groups[key]
		if len(ids) < MinClusterSize {
			continue
		}
		clusters = append(clusters, build(c.lex, artist, idx, ids, songThemes, fallbackCohesion))
	}
	return clusters
}
