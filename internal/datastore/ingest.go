package datastore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/lyricgraph/internal/analysis"
	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/logger"
	"github.com/tphakala/lyricgraph/internal/lyrics"
	"github.com/tphakala/lyricgraph/internal/observability/metrics"
)

const (
	insertBatchSize = 100

	// moodEdgeIntensity is the intensity of every EXPRESSES_MOOD edge.
	moodEdgeIntensity = 0.7

	maxSongLyrics   = 5000
	maxSectionText  = 3000
	maxLineText     = 1000
	maxAlbumIDRunes = 50
	maxStructureKey = 60
)

// IngestStats counts written nodes and edges by name.
type IngestStats map[string]int

// Add merges other into s.
func (s IngestStats) Add(other IngestStats) {
	for k, v := range other {
		s[k] += v
	}
}

// Total returns the sum of all counts.
func (s IngestStats) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}

// Keys returns the names with non-zero counts in sorted order.
func (s IngestStats) Keys() []string {
	keys := slices.Collect(maps.Keys(s))
	keys = slices.DeleteFunc(keys, func(k string) bool { return s[k] == 0 })
	slices.Sort(keys)
	return keys
}

// batch accumulates rows per table inside one ingestion.
type batch struct {
	tx    *gorm.DB
	stats IngestStats
	edges []Edge
}

func insertRows[T any](b *batch, table string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	if err := b.tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, insertBatchSize).Error; err != nil {
		return ingestError(err, table, "rows", len(rows))
	}
	b.stats[table] += len(rows)
	return nil
}

func (b *batch) edge(e Edge) {
	b.edges = append(b.edges, e)
	b.stats["rel_"+strings.ToLower(e.Rel)]++
}

func (b *batch) flushEdges() error {
	if len(b.edges) == 0 {
		return nil
	}
	if err := b.tx.CreateInBatches(b.edges, insertBatchSize).Error; err != nil {
		return ingestError(err, "edges", "rows", len(b.edges))
	}
	b.edges = nil
	return nil
}

// AlbumID returns the id of an album node.
func AlbumID(artist, album string) string {
	key := strings.ReplaceAll(strings.ToLower(album), " ", "_")
	return fmt.Sprintf("%s:album:%s", artist, truncate(key, maxAlbumIDRunes))
}

// IngestGraph writes the structural analysis of the artist: artist, album,
// mood, song, section and line nodes with their containment and sequencing
// edges, then phrases, cultural references, meter patterns, structure
// templates and rhyme pairs. Caps come from Limits. Duplicate node ids are
// skipped; edges are not deduplicated.
func (ds *DataStore) IngestGraph(ctx context.Context, data *analysis.GraphData, artist conf.ArtistConfig) (IngestStats, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}
	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	start := time.Now()
	stats := IngestStats{}
	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b := &batch{tx: tx, stats: stats}
		steps := []func(*batch, *analysis.GraphData) error{
			func(b *batch, d *analysis.GraphData) error { return ds.ingestArtist(b, d, artist) },
			ds.ingestMoods,
			ds.ingestSongs,
			ds.ingestPhrases,
			ds.ingestCulturalReferences,
			ds.ingestMeterPatterns,
			ds.ingestStructures,
			ds.ingestRhymePairs,
		}
		for _, step := range steps {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := step(b, data); err != nil {
				return err
			}
		}
		return b.flushEdges()
	})
	ds.recordPhase("structural", start, err)
	if err != nil {
		return nil, err
	}
	ds.recordRows(stats)

	GetLogger().Info("graph ingestion complete",
		logger.String("artist", ds.ArtistID),
		logger.Int("songs", stats["songs"]),
		logger.Int("sections", stats["sections"]),
		logger.Int("lines", stats["lyric_lines"]),
		logger.Int("rows", stats.Total()),
		logger.Duration("duration", time.Since(start)))
	return stats, nil
}

func (ds *DataStore) ingestArtist(b *batch, data *analysis.GraphData, cfg conf.ArtistConfig) error {
	name := cfg.Name
	if name == "" {
		name = ds.ArtistID
	}
	return insertRows(b, "artists", []Artist{{
		ID:              ds.ArtistID,
		Name:            name,
		Slug:            ds.ArtistID,
		Language:        cfg.Language,
		MusicalStyle:    cfg.MusicalStyle,
		VocalStyle:      cfg.VocalStyle,
		VocabularyLevel: cfg.Vocabulary,
		SongCount:       data.Stats.TotalSongs,
		TotalLineCount:  data.Stats.TotalLines,
	}})
}

func (ds *DataStore) ingestMoods(b *batch, _ *analysis.GraphData) error {
	moods := make([]Mood, 0, len(ds.Lexicon.Moods))
	for _, m := range ds.Lexicon.Moods {
		moods = append(moods, Mood{
			ID:          m.Name,
			Name:        m.Name,
			Valence:     m.Valence,
			Arousal:     m.Arousal,
			Description: m.Description,
		})
	}
	return insertRows(b, "moods", moods)
}

func (ds *DataStore) hasMood(name string) bool {
	_, ok := ds.Lexicon.Mood(name)
	return ok
}

func (ds *DataStore) ingestSongs(b *batch, data *analysis.GraphData) error {
	artistID := ds.ArtistID
	albumIndex := make(map[string]int)
	var (
		albums   []Album
		songs    []Song
		sections []Section
		lines    []Line
	)

	for i := range data.Songs {
		song := &data.Songs[i]

		albumID := ""
		if song.Album != "" {
			albumID = AlbumID(artistID, song.Album)
			idx, ok := albumIndex[albumID]
			if !ok {
				idx = len(albums)
				albumIndex[albumID] = idx
				albums = append(albums, Album{ID: albumID, Name: song.Album, ArtistID: artistID})
			}
			albums[idx].SongCount++
		}

		songs = append(songs, Song{
			ID:           song.ID,
			Title:        song.Title,
			ArtistID:     artistID,
			AlbumID:      albumID,
			Year:         song.Year,
			Language:     song.Language,
			Mood:         song.Mood,
			FullLyrics:   truncate(song.FullLyricsClean, maxSongLyrics),
			URL:          song.URL,
			LineCount:    song.LineCount,
			SectionCount: song.SectionCount,
			WordCount:    song.WordCount,
		})
		b.edge(Edge{Rel: RelWrittenBy, FromID: song.ID, ToID: artistID, ArtistID: artistID})
		if albumID != "" {
			b.edge(Edge{Rel: RelBelongsTo, FromID: song.ID, ToID: albumID, ArtistID: artistID})
		}
		if ds.hasMood(song.Mood) {
			b.edge(Edge{Rel: RelSongMood, FromID: song.ID, ToID: song.Mood, ArtistID: artistID, Weight: moodEdgeIntensity})
		}

		for j := range song.Sections {
			sec := &song.Sections[j]
			sections = append(sections, Section{
				ID:           sec.ID,
				SongID:       song.ID,
				ArtistID:     artistID,
				SectionType:  sec.SectionType,
				SectionIndex: sec.SectionIndex,
				Text:         truncate(sec.Text, maxSectionText),
				LineCount:    sec.LineCount,
				WordCount:    sec.WordCount,
				Language:     sec.Language,
				Mood:         sec.Mood,
			})
			b.edge(Edge{Rel: RelContainsSection, FromID: song.ID, ToID: sec.ID, ArtistID: artistID, Position: sec.SectionIndex})
			if j > 0 {
				b.edge(Edge{Rel: RelSectionFollows, FromID: song.Sections[j-1].ID, ToID: sec.ID, ArtistID: artistID})
			}
			if ds.hasMood(sec.Mood) {
				b.edge(Edge{Rel: RelSectionMood, FromID: sec.ID, ToID: sec.Mood, ArtistID: artistID, Weight: moodEdgeIntensity})
			}

			for k := range sec.Lines {
				line := &sec.Lines[k]
				lines = append(lines, Line{
					ID:              line.ID,
					SectionID:       sec.ID,
					SongID:          song.ID,
					ArtistID:        artistID,
					LineIndex:       line.LineIndex,
					GlobalLineIndex: line.GlobalLineIndex,
					Text:            truncate(line.Text, maxLineText),
					Romanized:       line.Romanized,
					WordCount:       line.WordCount,
					SyllableCount:   line.SyllableCount,
					Language:        line.Language,
					HasCodeSwitch:   line.HasCodeSwitch,
					EndWord:         line.EndWord,
				})
				b.edge(Edge{Rel: RelContainsLine, FromID: sec.ID, ToID: line.ID, ArtistID: artistID, Position: line.LineIndex})
				if k > 0 {
					b.edge(Edge{Rel: RelLineFollows, FromID: sec.Lines[k-1].ID, ToID: line.ID, ArtistID: artistID})
				}
			}
		}
	}

	if err := insertRows(b, "albums", albums); err != nil {
		return err
	}
	if err := insertRows(b, "songs", songs); err != nil {
		return err
	}
	if err := insertRows(b, "sections", sections); err != nil {
		return err
	}
	return insertRows(b, "lyric_lines", lines)
}

// ingestPhrases writes the most frequent phrases and links each line to at
// most PhraseLinks of them, in phrase rank order.
func (ds *DataStore) ingestPhrases(b *batch, data *analysis.GraphData) error {
	phrases := capped(data.Phrases, ds.Limits.Phrases)
	rows := make([]Phrase, len(phrases))
	for i := range phrases {
		p := &phrases[i]
		rows[i] = Phrase{
			ID:          p.ID,
			Text:        p.Text,
			Romanized:   p.Romanized,
			Language:    p.Language,
			Frequency:   p.Frequency,
			ArtistID:    ds.ArtistID,
			IsSignature: p.IsSignature,
		}
	}
	if err := insertRows(b, "phrases", rows); err != nil {
		return err
	}

	linksPerLine := ds.Limits.PhraseLinks
	forEachLine(data.Songs, func(_ *lyrics.Song, _ *lyrics.Section, line *lyrics.Line) {
		lower := strings.ToLower(line.Text)
		linked := 0
		for i := range phrases {
			if linksPerLine > 0 && linked >= linksPerLine {
				return
			}
			pos := strings.Index(lower, strings.ToLower(phrases[i].Text))
			if pos < 0 {
				continue
			}
			b.edge(Edge{
				Rel:      RelUsesPhrase,
				FromID:   line.ID,
				ToID:     phrases[i].ID,
				ArtistID: ds.ArtistID,
				Position: len([]rune(lower[:pos])),
			})
			linked++
		}
	})
	return nil
}

func (ds *DataStore) ingestCulturalReferences(b *batch, data *analysis.GraphData) error {
	refs := data.CulturalReferences
	rows := make([]CulturalReference, len(refs))
	for i := range refs {
		rows[i] = CulturalReference{
			ID:              refs[i].ID,
			ReferenceText:   refs[i].ReferenceText,
			Category:        refs[i].Category,
			CulturalContext: refs[i].CulturalContext,
			ArtistID:        ds.ArtistID,
			Frequency:       refs[i].Frequency,
		}
	}
	if err := insertRows(b, "cultural_references", rows); err != nil {
		return err
	}

	for i := range data.Songs {
		song := &data.Songs[i]
		lower := strings.ToLower(song.FullLyricsClean)
		for j := range refs {
			term := strings.ToLower(refs[j].ReferenceText)
			if !strings.Contains(lower, term) {
				continue
			}
			b.edge(Edge{Rel: RelSongReferences, FromID: song.ID, ToID: refs[j].ID, ArtistID: ds.ArtistID})
			for _, line := range song.Lines() {
				if strings.Contains(strings.ToLower(line.Text), term) {
					b.edge(Edge{Rel: RelLineReferences, FromID: line.ID, ToID: refs[j].ID, ArtistID: ds.ArtistID})
				}
			}
		}
	}
	return nil
}

// meterKey identifies a section's syllable pattern within its section type.
func meterKey(pattern, sectionType string) string {
	return pattern + "|" + sectionType
}

func sectionMeter(sec *lyrics.Section) string {
	parts := make([]string, len(sec.Lines))
	for i := range sec.Lines {
		parts[i] = strconv.Itoa(sec.Lines[i].SyllableCount)
	}
	return strings.Join(parts, "-")
}

func (ds *DataStore) ingestMeterPatterns(b *batch, data *analysis.GraphData) error {
	patterns := capped(data.MeterPatterns, ds.Limits.MeterPatterns)
	rows := make([]MeterPattern, len(patterns))
	byKey := make(map[string]string, len(patterns))
	for i := range patterns {
		p := &patterns[i]
		rows[i] = MeterPattern{
			ID:          p.ID,
			Pattern:     p.Pattern,
			SectionType: p.SectionType,
			ArtistID:    ds.ArtistID,
			Frequency:   p.Frequency,
			Description: p.Description,
		}
		byKey[meterKey(p.Pattern, p.SectionType)] = p.ID
	}
	if err := insertRows(b, "meter_patterns", rows); err != nil {
		return err
	}

	for i := range data.Songs {
		for j := range data.Songs[i].Sections {
			sec := &data.Songs[i].Sections[j]
			if sec.LineCount < 2 {
				continue
			}
			if id, ok := byKey[meterKey(sectionMeter(sec), sec.SectionType)]; ok {
				b.edge(Edge{Rel: RelHasMeter, FromID: sec.ID, ToID: id, ArtistID: ds.ArtistID})
			}
		}
	}
	return nil
}

// StructureID returns the id of the structure template node for pattern.
func StructureID(artist, pattern string) string {
	return fmt.Sprintf("%s:structure:%s", artist, strings.ReplaceAll(truncate(pattern, maxStructureKey), "-", "_"))
}

func (ds *DataStore) ingestStructures(b *batch, data *analysis.GraphData) error {
	structures := capped(data.Structures, ds.Limits.Structures)
	rows := make([]StructureTemplate, len(structures))
	kept := make(map[string]string, len(structures))
	for i := range structures {
		s := &structures[i]
		id := StructureID(ds.ArtistID, s.Pattern)
		rows[i] = StructureTemplate{
			ID:           id,
			Pattern:      s.Pattern,
			SectionTypes: s.SectionTypes,
			ArtistID:     ds.ArtistID,
			Frequency:    s.Frequency,
			Description:  "Song structure: " + s.Pattern,
		}
		kept[s.Pattern] = id
	}
	if err := insertRows(b, "structure_templates", rows); err != nil {
		return err
	}

	for i := range data.Songs {
		pattern := strings.Join(data.Songs[i].SectionTypes(), "-")
		if id, ok := kept[pattern]; ok {
			b.edge(Edge{Rel: RelUsesStructure, FromID: data.Songs[i].ID, ToID: id, ArtistID: ds.ArtistID})
		}
	}
	return nil
}

// ingestRhymePairs writes the most frequent rhyme pairs and links the line
// pairs (adjacent and alternating) whose end words form one of them.
func (ds *DataStore) ingestRhymePairs(b *batch, data *analysis.GraphData) error {
	pairs := capped(data.RhymePairs, ds.Limits.RhymePairs)
	rows := make([]RhymePair, len(pairs))
	kept := make(map[[2]string]*RhymePair, len(pairs))
	for i := range pairs {
		p := &pairs[i]
		rows[i] = RhymePair{
			ID:        p.ID,
			WordA:     p.WordA,
			WordB:     p.WordB,
			RhymeType: string(p.RhymeType),
			Language:  p.Language,
			Frequency: p.Frequency,
			ArtistID:  ds.ArtistID,
		}
		kept[pairKey(p.WordA, p.WordB)] = &rows[i]
	}
	if err := insertRows(b, "rhyme_pairs", rows); err != nil {
		return err
	}

	for i := range data.Songs {
		for j := range data.Songs[i].Sections {
			lines := data.Songs[i].Sections[j].Lines
			for k := range lines {
				for _, step := range []int{1, 2} {
					if k+step >= len(lines) {
						continue
					}
					rp, ok := kept[pairKey(lines[k].EndWord, lines[k+step].EndWord)]
					if !ok {
						continue
					}
					b.edge(Edge{
						Rel:      RelRhymesWith,
						FromID:   lines[k].ID,
						ToID:     lines[k+step].ID,
						ArtistID: ds.ArtistID,
						Position: step,
						Label:    rp.RhymeType,
					})
				}
			}
		}
	}
	return nil
}

func pairKey(a, b string) [2]string {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

func forEachLine(songs []lyrics.Song, fn func(*lyrics.Song, *lyrics.Section, *lyrics.Line)) {
	for i := range songs {
		for j := range songs[i].Sections {
			for k := range songs[i].Sections[j].Lines {
				fn(&songs[i], &songs[i].Sections[j], &songs[i].Sections[j].Lines[k])
			}
		}
	}
}

// capped returns at most n leading items; n <= 0 disables the cap.
func capped[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (ds *DataStore) recordPhase(phase string, start time.Time, err error) {
	if ds.Metrics == nil {
		return
	}
	ds.Metrics.RecordDuration(phase, time.Since(start).Seconds())
	if err != nil {
		ds.Metrics.RecordOperation(phase, metrics.StatusError)
		ds.Metrics.RecordError(phase, "database")
		return
	}
	ds.Metrics.RecordOperation(phase, metrics.StatusSuccess)
}

func (ds *DataStore) recordRows(stats IngestStats) {
	if ds.Metrics == nil {
		return
	}
	for table, n := range stats {
		ds.Metrics.RecordRows(table, n)
	}
}
