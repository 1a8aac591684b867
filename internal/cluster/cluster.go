// Package cluster groups an artist's songs into thematic clusters. Two
// strategies are available and one is selected from configuration: a
// community detection pass over the shared-theme song graph, and a plain
// grouping by each song's first theme.
package cluster

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/lexicon"
	"github.com/tphakala/lyricgraph/internal/logger"
	"github.com/tphakala/lyricgraph/internal/lyrics"
)

const (
	// MinSongs is the smallest catalogue that gets clustered.
	MinSongs = 3
	// MinClusterSize drops smaller groups.
	MinClusterSize = 2

	labelThemes      = 2
	keywordsPerTheme = 5
	maxKeywords      = 10

	fallbackLabel    = "Miscellaneous"
	uncategorized    = "_uncategorized"
	fallbackCohesion = 0.5
	enrichedBy       = "heuristic"
)

// ThematicCluster is a group of songs sharing themes.
type ThematicCluster struct {
	ID             string   `json:"id"`
	Label          string   `json:"label"`
	HeuristicLabel string   `json:"heuristic_label"`
	Description    string   `json:"description"`
	EnrichedBy     string   `json:"enriched_by"`
	Cohesion       float64  `json:"cohesion"`
	SongCount      int      `json:"song_count"`
	ArtistID       string   `json:"artist_id"`
	SongIDs        []string `json:"song_ids"`
	Keywords       []string `json:"keywords"`
}

// Strategy clusters songs given each song's theme keys.
type Strategy interface {
	Name() string
	Cluster(artist string, songs []lyrics.Song, songThemes map[string][]string) []ThematicCluster
}

// NewStrategy returns the strategy configured by name.
func NewStrategy(name string, lex *lexicon.Lexicon) (Strategy, error) {
	if lex == nil {
		lex = lexicon.Default()
	}
	switch name {
	case conf.ClusterGraphPartition, "":
		return NewGraphPartition(lex), nil
	case conf.ClusterCooccurrence:
		return NewCooccurrence(lex), nil
	default:
		return nil, errors.Newf("unknown cluster strategy %q", name).
			Component("cluster").
			Category(errors.CategoryConfiguration).
			Hint("set analysis.clusterstrategy to graph or cooccurrence").
			Build()
	}
}

// GetLogger returns the cluster module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("cluster")
}

// build fills a cluster record from its member songs.
func build(lex *lexicon.Lexicon, artist string, idx int, members []string, songThemes map[string][]string, cohesion float64) ThematicCluster {
	top := topThemes(members, songThemes, labelThemes)

	label := fallbackLabel
	if len(top) > 0 {
		names := make([]string, len(top))
		for i, th := range top {
			names[i] = lexicon.DisplayName(th)
		}
		label = strings.Join(names, " & ")
	}

	keywords := []string{}
	for _, th := range top {
		kws := lex.Theme(th)
		keywords = append(keywords, kws[:min(keywordsPerTheme, len(kws))]...)
	}
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}

	return ThematicCluster{
		ID:             fmt.Sprintf("%s:cluster:%d", artist, idx),
		Label:          label,
		HeuristicLabel: label,
		Description:    "Songs centered on " + strings.ToLower(label),
		EnrichedBy:     enrichedBy,
		Cohesion:       cohesion,
		SongCount:      len(members),
		ArtistID:       artist,
		SongIDs:        slices.Clone(members),
		Keywords:       keywords,
	}
}

// topThemes returns the n most frequent themes across members. Ties keep the
// order in which themes were first seen.
func topThemes(members []string, songThemes map[string][]string, n int) []string {
	var order []string
	counts := make(map[string]int)
	for _, id := range members {
		for _, th := range songThemes[id] {
			if _, seen := counts[th]; !seen {
				order = append(order, th)
			}
			counts[th]++
		}
	}
	slices.SortStableFunc(order, func(a, b string) int { return counts[b] - counts[a] })
	return order[:min(n, len(order))]
}
