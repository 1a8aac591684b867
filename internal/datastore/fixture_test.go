package datastore

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lyricgraph/internal/analysis"
	"github.com/tphakala/lyricgraph/internal/cluster"
	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/lyrics"
	"github.com/tphakala/lyricgraph/internal/phonetics"
)

const testArtist = "test-artist"

var testLimits = Limits{Phrases: 200, PhraseLinks: 1, MeterPatterns: 50, Structures: 10, RhymePairs: 100}

// newTestStore opens an in-memory SQLite store with its schema created.
func newTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	store := &SQLiteStore{Path: "file:" + uuid.NewString() + "?mode=memory&cache=shared"}
	store.configure(&conf.Settings{}, testArtist, append([]Option{WithLimits(testLimits)}, opts...))

	require.NoError(t, store.Open(), "Failed to open database")
	t.Cleanup(func() {
		assert.NoError(t, store.Close(), "Failed to close datastore")
	})
	require.NoError(t, store.EnsureSchema(t.Context()))
	return store
}

// section builds a section whose lines use two syllables per word.
func section(songID, sectionType string, index int, mood string, texts ...string) lyrics.Section {
	id := fmt.Sprintf("%s:sec:%d", songID, index)
	sec := lyrics.Section{
		ID:           id,
		SongID:       songID,
		SectionType:  sectionType,
		SectionIndex: index,
		Text:         strings.Join(texts, "\n"),
		LineCount:    len(texts),
		Language:     "hinglish",
		Mood:         mood,
	}
	for i, text := range texts {
		words := strings.Fields(text)
		sec.Lines = append(sec.Lines, lyrics.Line{
			ID:            fmt.Sprintf("%s:line:%d", id, i),
			SectionID:     id,
			SongID:        songID,
			LineIndex:     i,
			Text:          text,
			WordCount:     len(words),
			SyllableCount: 2 * len(words),
			Language:      "hinglish",
			EndWord:       words[len(words)-1],
		})
		sec.WordCount += len(words)
	}
	return sec
}

func song(id, title, album, mood string, sections ...lyrics.Section) lyrics.Song {
	s := lyrics.Song{
		ID:           id,
		Title:        title,
		ArtistID:     testArtist,
		Album:        album,
		Language:     "hinglish",
		Mood:         mood,
		SectionCount: len(sections),
		Sections:     sections,
	}
	var texts []string
	global := 0
	for i := range s.Sections {
		texts = append(texts, s.Sections[i].Text)
		for j := range s.Sections[i].Lines {
			s.Sections[i].Lines[j].GlobalLineIndex = global
			global++
		}
		s.LineCount += s.Sections[i].LineCount
		s.WordCount += s.Sections[i].WordCount
	}
	s.FullLyrics = strings.Join(texts, "\n\n")
	s.FullLyricsClean = s.FullLyrics
	return s
}

const (
	rainSong = testArtist + ":song:rain"
	roadSong = testArtist + ":song:road"
)

// testGraph returns two songs sharing a chorus.
func testGraph() *analysis.GraphData {
	songs := []lyrics.Song{
		song(rainSong, "Rain Song", "First Light", "romantic",
			section(rainSong, "verse", 0, "romantic",
				"baarish mein tera pyaar",
				"dil mein hai yaar",
				"love is in the air tonight"),
			section(rainSong, "chorus", 1, "romantic",
				"tere saath chalna hai",
				"roshni mein dhalna hai")),
		song(roadSong, "Road Song", "", "melancholic",
			section(roadSong, "verse", 0, "melancholic",
				"safar mein akela hoon main",
				"dard ka raasta lamba"),
			section(roadSong, "chorus", 1, "melancholic",
				"tere saath chalna hai",
				"roshni mein dhalna hai")),
	}
	return &analysis.GraphData{
		ArtistSlug: testArtist,
		Songs:      songs,
		Phrases: []analysis.Phrase{
			{ID: testArtist + ":phrase:0", Text: "tere saath chalna", Language: "hindi", Frequency: 2, ArtistID: testArtist},
			{ID: testArtist + ":phrase:1", Text: "roshni mein", Language: "hindi", Frequency: 2, ArtistID: testArtist},
		},
		CulturalReferences: []analysis.CulturalReference{
			{ID: testArtist + ":culture:baarish", ReferenceText: "Baarish", Category: "nature", ArtistID: testArtist, Frequency: 1},
		},
		MeterPatterns: []analysis.MeterPattern{
			{ID: testArtist + ":meter:0", Pattern: "8-8", SectionType: "chorus", ArtistID: testArtist, Frequency: 2},
		},
		Structures: []analysis.StructureTemplate{
			{Pattern: "verse-chorus", SectionTypes: []string{"verse", "chorus"}, ArtistID: testArtist, Frequency: 2},
		},
		RhymePairs: []phonetics.Pair{
			{ID: testArtist + ":rhyme:0", WordA: "pyaar", WordB: "yaar", RhymeType: phonetics.Perfect, Language: "hindi", Frequency: 1, ArtistID: testArtist},
		},
		Stats: analysis.Stats{TotalSongs: 2, TotalSections: 4, TotalLines: 9},
	}
}

func testAdvanced() (*analysis.Advanced, analysis.Clusters) {
	adv := &analysis.Advanced{
		Themes: []analysis.Theme{
			{ID: testArtist + ":theme:love_and_romance", Key: "love_and_romance", Name: "Love And Romance", ArtistID: testArtist, SongCount: 2},
		},
		Metaphors: []analysis.Metaphor{
			{ID: testArtist + ":metaphor:0", SourceText: "baarish mein", SourceDomain: "rain/weather", TargetDomain: "longing/sadness", ArtistID: testArtist, Frequency: 1},
			{ID: testArtist + ":metaphor:1", SourceDomain: "journey/travel", TargetDomain: "love/life", ArtistID: testArtist, Frequency: 1},
		},
		EmotionalArcs: []analysis.EmotionalArc{
			{ID: rainSong + ":arc", SongID: rainSong, ArcType: analysis.ArcGentleRise, MoodSequence: []string{"romantic", "hopeful"}, IntensitySequence: []float64{0.4, 0.7}},
		},
		MoodTransitions: []analysis.MoodTransition{
			{From: "romantic", To: "hopeful", ArtistID: testArtist, Frequency: 3},
			{From: "melancholic", To: "not_a_mood", ArtistID: testArtist, Frequency: 1},
		},
		Fingerprint: analysis.Fingerprint{
			ArtistID:      testArtist,
			AvgLineLength: 4.3,
			VocabularySet: []string{"pyaar", "safar"},
		},
	}
	clusters := analysis.Clusters{
		cluster.ThematicCluster{
			ID:        testArtist + ":cluster:0",
			Label:     "Love And Romance",
			Cohesion:  0.8,
			SongCount: 2,
			ArtistID:  testArtist,
			SongIDs:   []string{rainSong, roadSong},
			Keywords:  []string{"love_and_romance"},
		},
	}
	return adv, clusters
}

// fakeEmbedder maps texts onto three axes: "baarish", "safar" and a constant.
type fakeEmbedder struct {
	calls   int
	failing bool
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.failing {
		return nil, fmt.Errorf("embedding service unavailable")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		out[i] = []float32{
			float32(strings.Count(lower, "baarish")),
			float32(strings.Count(lower, "safar")),
			1,
		}
	}
	return out, nil
}

func ingestTestGraph(t *testing.T, store *SQLiteStore) {
	t.Helper()
	_, err := store.IngestGraph(t.Context(), testGraph(), conf.ArtistConfig{Name: "Test Artist", Language: "hinglish"})
	require.NoError(t, err)
}
