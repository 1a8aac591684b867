package datastore

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/lyricgraph/internal/analysis"
	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/lexicon"
	"github.com/tphakala/lyricgraph/internal/logger"
)

// themeEdgeMinScore is the number of theme keywords a song must contain for
// a HAS_THEME edge.
const themeEdgeMinScore = 2

// IngestAdvanced writes themes, metaphors, emotional arcs, mood transitions,
// the style fingerprint and thematic clusters on top of an ingested graph.
func (ds *DataStore) IngestAdvanced(ctx context.Context, data *analysis.GraphData, adv *analysis.Advanced, clusters analysis.Clusters) (IngestStats, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}
	if adv == nil {
		return nil, errors.MissingData("advanced analysis", "run the analyze command first")
	}
	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	start := time.Now()
	stats := IngestStats{}
	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b := &batch{tx: tx, stats: stats}
		steps := []func() error{
			func() error { return ds.ingestThemes(b, data, adv.Themes) },
			func() error { return ds.ingestMetaphors(b, data, adv.Metaphors) },
			func() error { return ds.ingestArcs(b, adv.EmotionalArcs) },
			func() error { return ds.ingestMoodTransitions(b, adv.MoodTransitions) },
			func() error { return ds.ingestFingerprint(b, &adv.Fingerprint) },
			func() error { return ds.ingestClusters(b, clusters) },
		}
		for _, step := range steps {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := step(); err != nil {
				return err
			}
		}
		return b.flushEdges()
	})
	ds.recordPhase("advanced", start, err)
	if err != nil {
		return nil, err
	}
	ds.recordRows(stats)

	GetLogger().Info("advanced ingestion complete",
		logger.String("artist", ds.ArtistID),
		logger.Int("themes", stats["themes"]),
		logger.Int("metaphors", stats["metaphors"]),
		logger.Int("arcs", stats["emotional_arcs"]),
		logger.Int("clusters", stats["thematic_clusters"]),
		logger.Duration("duration", time.Since(start)))
	return stats, nil
}

// ingestThemes links every song to each theme whose keywords it contains at
// least twice, with strength min(matches/10, 1).
func (ds *DataStore) ingestThemes(b *batch, data *analysis.GraphData, themes []analysis.Theme) error {
	rows := make([]Theme, len(themes))
	for i := range themes {
		rows[i] = Theme{
			ID:          themes[i].ID,
			Name:        themes[i].Name,
			Description: themes[i].Description,
			ArtistID:    ds.ArtistID,
			SongCount:   themes[i].SongCount,
		}
	}
	if err := insertRows(b, "themes", rows); err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	for i := range data.Songs {
		lower := strings.ToLower(data.Songs[i].FullLyricsClean)
		for j := range themes {
			score := lexicon.CountMatches(lower, ds.Lexicon.Theme(themes[j].Key))
			if score < themeEdgeMinScore {
				continue
			}
			b.edge(Edge{
				Rel:      RelHasTheme,
				FromID:   data.Songs[i].ID,
				ToID:     themes[j].ID,
				ArtistID: ds.ArtistID,
				Weight:   math.Min(float64(score)/10, 1),
			})
		}
	}
	return nil
}

// ingestMetaphors links songs to the metaphors whose source text, or whose
// domain trigger keywords, occur in their lyrics.
func (ds *DataStore) ingestMetaphors(b *batch, data *analysis.GraphData, metaphors []analysis.Metaphor) error {
	rows := make([]Metaphor, len(metaphors))
	for i := range metaphors {
		rows[i] = Metaphor{
			ID:           metaphors[i].ID,
			SourceText:   metaphors[i].SourceText,
			SourceDomain: metaphors[i].SourceDomain,
			TargetDomain: metaphors[i].TargetDomain,
			ArtistID:     ds.ArtistID,
			Frequency:    metaphors[i].Frequency,
		}
	}
	if err := insertRows(b, "metaphors", rows); err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	domainKeywords := make(map[[2]string][]string, len(ds.Lexicon.MetaphorDomains))
	for _, d := range ds.Lexicon.MetaphorDomains {
		domainKeywords[[2]string{d.Source, d.Target}] = d.Keywords
	}

	for i := range data.Songs {
		lower := strings.ToLower(data.Songs[i].FullLyricsClean)
		for j := range metaphors {
			m := &metaphors[j]
			matched := m.SourceText != "" && strings.Contains(lower, strings.ToLower(m.SourceText))
			if !matched {
				kws := domainKeywords[[2]string{m.SourceDomain, m.TargetDomain}]
				matched = len(kws) > 0 && lexicon.CountMatches(lower, kws) > 0
			}
			if matched {
				b.edge(Edge{Rel: RelContainsMetaphor, FromID: data.Songs[i].ID, ToID: m.ID, ArtistID: ds.ArtistID})
			}
		}
	}
	return nil
}

func (ds *DataStore) ingestArcs(b *batch, arcs []analysis.EmotionalArc) error {
	rows := make([]EmotionalArc, len(arcs))
	for i := range arcs {
		rows[i] = EmotionalArc{
			ID:                arcs[i].ID,
			SongID:            arcs[i].SongID,
			ArtistID:          ds.ArtistID,
			ArcType:           arcs[i].ArcType,
			MoodSequence:      arcs[i].MoodSequence,
			IntensitySequence: arcs[i].IntensitySequence,
			Description:       arcs[i].Description,
		}
		b.edge(Edge{Rel: RelHasArc, FromID: arcs[i].SongID, ToID: arcs[i].ID, ArtistID: ds.ArtistID})
	}
	return insertRows(b, "emotional_arcs", rows)
}

func (ds *DataStore) ingestMoodTransitions(b *batch, transitions []analysis.MoodTransition) error {
	for _, t := range transitions {
		if !ds.hasMood(t.From) || !ds.hasMood(t.To) {
			continue
		}
		b.edge(Edge{
			Rel:      RelMoodTransitions,
			FromID:   t.From,
			ToID:     t.To,
			ArtistID: ds.ArtistID,
			Weight:   float64(t.Frequency),
		})
	}
	return nil
}

func (ds *DataStore) ingestFingerprint(b *batch, fp *analysis.Fingerprint) error {
	id := fp.ID
	if id == "" {
		id = analysis.FingerprintID(ds.ArtistID)
	}
	row := StyleFingerprint{
		ID:                  id,
		ArtistID:            ds.ArtistID,
		AvgLineLength:       fp.AvgLineLength,
		AvgSectionLength:    fp.AvgSectionLength,
		VocabularyRichness:  fp.VocabularyRichness,
		CodeSwitchFrequency: fp.CodeSwitchFrequency,
		MetaphorDensity:     fp.MetaphorDensity,
		RepetitionIndex:     fp.RepetitionIndex,
		AvgMoodValence:      fp.AvgMoodValence,
		AvgMoodArousal:      fp.AvgMoodArousal,
		TopRhymeTypes:       nonNilStrings(fp.TopRhymeTypes),
		PreferredStructures: nonNilStrings(fp.PreferredStructures),
		VocabularySet:       nonNilStrings(fp.VocabularySet),
		AntiVocabulary:      nonNilStrings(fp.AntiVocabulary),
	}
	b.edge(Edge{Rel: RelHasFingerprint, FromID: ds.ArtistID, ToID: id, ArtistID: ds.ArtistID})
	return insertRows(b, "style_fingerprints", []StyleFingerprint{row})
}

func (ds *DataStore) ingestClusters(b *batch, clusters analysis.Clusters) error {
	rows := make([]ThematicCluster, len(clusters))
	for i := range clusters {
		c := &clusters[i]
		id := c.ID
		if id == "" {
			id = fmt.Sprintf("%s:cluster:%d", ds.ArtistID, i)
		}
		rows[i] = ThematicCluster{
			ID:             id,
			Label:          c.Label,
			HeuristicLabel: c.HeuristicLabel,
			Description:    c.Description,
			EnrichedBy:     c.EnrichedBy,
			Cohesion:       c.Cohesion,
			SongCount:      c.SongCount,
			ArtistID:       ds.ArtistID,
			Keywords:       nonNilStrings(c.Keywords),
		}
		for _, songID := range c.SongIDs {
			b.edge(Edge{Rel: RelMemberOfCluster, FromID: songID, ToID: id, ArtistID: ds.ArtistID})
		}
	}
	return insertRows(b, "thematic_clusters", rows)
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
