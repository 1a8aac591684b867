package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/lexicon"
	"github.com/tphakala/lyricgraph/internal/llm"
	"github.com/tphakala/lyricgraph/internal/lyrics"
)

// scriptedLLM answers calls with scripted responses in order.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   [][]llm.Message
	opts      []llm.Options
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) Generate(_ context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.prompts)
	s.prompts = append(s.prompts, messages)
	s.opts = append(s.opts, opts)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "NONE", nil
}

func manySections(n int) []lyrics.Song {
	song := lyrics.Song{ID: "artist:song", Title: "Song"}
	for i := range n {
		song.Sections = append(song.Sections, lyrics.Section{
			SectionType: "verse",
			Text:        fmt.Sprintf("line %d", i),
		})
	}
	song.Sections = append(song.Sections, lyrics.Section{SectionType: "chorus", Text: "   "})
	return []lyrics.Song{song}
}

func TestParseMetaphors(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{
		"Here are the metaphors:",
		"METAPHOR: dil ka musafir | travel/journey | love/emotion",
		"  METAPHOR:  baarish mein bheega |rain/weather| longing/sadness  ",
		"METAPHOR: missing a field | only two",
		"METAPHOR: a | b | c | d",
		"NONE",
	}, "\n")

	got := ParseMetaphors(text)
	require.Len(t, got, 2)
	assert.Equal(t, ParsedMetaphor{"dil ka musafir", "travel/journey", "love/emotion"}, got[0])
	assert.Equal(t, ParsedMetaphor{"baarish mein bheega", "rain/weather", "longing/sadness"}, got[1])
	assert.Empty(t, ParseMetaphors("NONE"))
}

func TestMetaphorExtractorWithLLM(t *testing.T) {
	t.Parallel()

	client := &scriptedLLM{
		responses: []string{
			"METAPHOR: dil ka musafir | travel/journey | love/emotion\nMETAPHOR: baarish | rain/weather | longing/sadness",
			"",
			"METAPHOR: safar | travel/journey | love/emotion",
		},
		errs: []error{nil, errors.NewStd("quota exceeded"), nil},
	}
	ex := &MetaphorExtractor{Client: client, BatchSize: 5}

	metaphors := ex.Extract(t.Context(), manySections(12), testArtist)
	require.Len(t, client.prompts, 3, "12 sections in batches of 5, the blank one skipped")
	require.Len(t, metaphors, 2)

	assert.Equal(t, Metaphor{
		ID:           "artist:metaphor:0",
		SourceText:   "dil ka musafir",
		SourceDomain: "travel/journey",
		TargetDomain: "love/emotion",
		ArtistID:     testArtist,
		Frequency:    2,
	}, metaphors[0])
	assert.Equal(t, "artist:metaphor:1", metaphors[1].ID)
	assert.Equal(t, 1, metaphors[1].Frequency)

	first := client.prompts[0]
	require.Len(t, first, 2)
	assert.Equal(t, llm.RoleSystem, first[0].Role)
	assert.Contains(t, first[0].Content, "METAPHOR: <source text> | <source domain> | <target domain>")
	assert.True(t, strings.HasPrefix(first[1].Content, "[Song - verse]\nline 0\n\n[Song - verse]\nline 1"))
	assert.Zero(t, client.opts[0].Temperature)
}

func TestMetaphorExtractorCapsSections(t *testing.T) {
	t.Parallel()

	client := &scriptedLLM{}
	ex := &MetaphorExtractor{Client: client, BatchSize: 10, MaxSections: 4}
	metaphors := ex.Extract(t.Context(), manySections(30), testArtist)

	assert.Empty(t, metaphors)
	require.Len(t, client.prompts, 1)
	assert.Equal(t, 4, strings.Count(client.prompts[0][1].Content, "[Song - verse]"))
}

func TestMetaphorExtractorTruncatesSectionText(t *testing.T) {
	t.Parallel()

	client := &scriptedLLM{}
	songs := []lyrics.Song{{Title: "Long", Sections: []lyrics.Section{
		{SectionType: "verse", Text: strings.Repeat("a", 800)},
	}}}
	(&MetaphorExtractor{Client: client}).Extract(t.Context(), songs, testArtist)

	require.Len(t, client.prompts, 1)
	assert.Equal(t, "[Long - verse]\n"+strings.Repeat("a", 500), client.prompts[0][1].Content)
}

func TestKeywordMetaphors(t *testing.T) {
	t.Parallel()

	songs := []lyrics.Song{
		{ID: "a", FullLyricsClean: "Baarish mein bheega, dil ka musafir, baarish phir"},
		{ID: "b", FullLyricsClean: "dil ka musafir, lamba raasta"},
		{ID: "c", FullLyricsClean: "kuch nahi"},
	}
	metaphors := KeywordMetaphors(songs, testArtist, lexicon.Default())
	require.Len(t, metaphors, 2)

	assert.Equal(t, Metaphor{
		ID:           "artist:metaphor:journey_love",
		SourceText:   "journey/travel as love/life",
		SourceDomain: "journey/travel",
		TargetDomain: "love/life",
		ArtistID:     testArtist,
		Frequency:    2,
	}, metaphors[0])
	assert.Equal(t, "artist:metaphor:rain_longing", metaphors[1].ID)
	assert.Equal(t, 1, metaphors[1].Frequency, "a song counts once per domain pair")
}

func TestMetaphorExtractorWithoutClientUsesKeywords(t *testing.T) {
	t.Parallel()

	songs := []lyrics.Song{{ID: "a", FullLyricsClean: "raasta"}}
	got := (&MetaphorExtractor{}).Extract(t.Context(), songs, testArtist)
	require.Len(t, got, 1)
	assert.Equal(t, "journey/travel", got[0].SourceDomain)
}
