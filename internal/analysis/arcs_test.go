package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lyricgraph/internal/lexicon"
	"github.com/tphakala/lyricgraph/internal/lyrics"
)

func TestClassifyArc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		intensities []float64
		want        string
	}{
		{"single section", []float64{0.3}, ArcSteadyMelancholy},
		{"flat", []float64{0.3, 0.35, 0.3}, ArcSteadyMelancholy},
		{"late peak then drop", []float64{0.2, 0.3, 0.9, 0.3}, ArcCrescendoCrash},
		{"mostly rising", []float64{0.1, 0.3, 0.5}, ArcGentleRise},
		{"two rising sections", []float64{0.1, 0.5}, ArcSlowBuild},
		{"ends higher", []float64{0.1, 0.6, 0.2, 0.5, 0.4}, ArcSlowBuild},
		{"zig zag", []float64{0.5, 0.1, 0.6, 0.2, 0.5}, ArcOscillating},
		{"early peak", []float64{0.2, 0.9, 0.3}, ArcSteadyMelancholy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClassifyArc(tt.intensities))
		})
	}
}

func TestComputeEmotionalArcs(t *testing.T) {
	t.Parallel()

	songs := []lyrics.Song{
		sectionSong("s1",
			section("verse", "melancholic", 1),
			section("chorus", "romantic", 1),
			section("bridge", "hopeful", 1)),
		sectionSong("s2", section("verse", "romantic", 1)),
	}

	arcs := ComputeEmotionalArcs(songs, lexicon.Default())
	require.Len(t, arcs, 1, "songs with one section have no arc")

	arc := arcs[0]
	assert.Equal(t, "s1:arc", arc.ID)
	assert.Equal(t, "s1", arc.SongID)
	assert.Equal(t, []string{"melancholic", "romantic", "hopeful"}, arc.MoodSequence)
	assert.InDeltaSlice(t, []float64{0.2, 0.5, 0.6}, arc.IntensitySequence, 1e-9)
	assert.Equal(t, ArcGentleRise, arc.ArcType)
	assert.Equal(t, "gentle_rise: melancholic -> romantic -> hopeful", arc.Description)
}

func TestComputeMoodTransitions(t *testing.T) {
	t.Parallel()

	songs := []lyrics.Song{
		sectionSong("s1",
			section("verse", "melancholic", 1),
			section("chorus", "romantic", 1),
			section("bridge", "hopeful", 1)),
		sectionSong("s2",
			section("verse", "melancholic", 1),
			section("chorus", "romantic", 1),
			section("chorus", "romantic", 1)),
	}

	transitions := ComputeMoodTransitions(songs, testArtist)
	require.Len(t, transitions, 2)
	assert.Equal(t, MoodTransition{From: "melancholic", To: "romantic", ArtistID: testArtist, Frequency: 2}, transitions[0])
	assert.Equal(t, MoodTransition{From: "romantic", To: "hopeful", ArtistID: testArtist, Frequency: 1}, transitions[1])
}

func TestComputeFingerprint(t *testing.T) {
	t.Parallel()

	lex := lexicon.Default()
	sec := lyrics.Section{
		SectionType: "verse",
		Mood:        "romantic",
		LineCount:   2,
		Lines: []lyrics.Line{
			{Text: "dil dil", WordCount: 2, EndWord: "dil"},
			{Text: "hawa baby", WordCount: 2, EndWord: "baby", HasCodeSwitch: true},
		},
	}
	songs := []lyrics.Song{sectionSong("s1", sec)}

	fp := ComputeFingerprint(songs, testArtist, DefaultVocabularySize, lex)
	assert.Equal(t, "artist:fingerprint", fp.ID)
	assert.InDelta(t, 2.0, fp.AvgLineLength, 1e-9)
	assert.InDelta(t, 2.0, fp.AvgSectionLength, 1e-9)
	assert.InDelta(t, 0.75, fp.VocabularyRichness, 1e-9)
	assert.InDelta(t, 0.5, fp.CodeSwitchFrequency, 1e-9)
	assert.InDelta(t, 0.0, fp.RepetitionIndex, 1e-9)
	assert.InDelta(t, 0.7, fp.AvgMoodValence, 1e-9)
	assert.InDelta(t, 0.5, fp.AvgMoodArousal, 1e-9)
	assert.Len(t, fp.TopRhymeTypes, 1)
	assert.Equal(t, []string{"verse"}, fp.PreferredStructures)
	assert.Equal(t, []string{"dil", "hawa", "baby"}, fp.VocabularySet)
	assert.NotContains(t, fp.AntiVocabulary, "baby")
	assert.Len(t, fp.AntiVocabulary, len(lex.Filler)-1)
	assert.Zero(t, fp.MetaphorDensity)
}

func TestComputeFingerprintEmpty(t *testing.T) {
	t.Parallel()

	fp := ComputeFingerprint(nil, testArtist, DefaultVocabularySize, lexicon.Default())
	assert.Equal(t, EmptyFingerprint(testArtist), fp)
	assert.NotNil(t, fp.VocabularySet)
	assert.NotNil(t, fp.AntiVocabulary)
}

func TestRepetitionIndex(t *testing.T) {
	t.Parallel()

	sec := lyrics.Section{
		SectionType: "chorus",
		Mood:        "neutral",
		LineCount:   3,
		Lines: []lyrics.Line{
			{Text: "Same line", WordCount: 2},
			{Text: "same line", WordCount: 2},
			{Text: "other", WordCount: 1},
		},
	}
	fp := ComputeFingerprint([]lyrics.Song{sectionSong("s", sec)}, testArtist, 1, lexicon.Default())
	assert.InDelta(t, 0.5, fp.RepetitionIndex, 1e-9, "one of two distinct lines repeats")
	assert.Equal(t, []string{"same"}, fp.VocabularySet)
}

func TestSetMetaphorDensity(t *testing.T) {
	t.Parallel()

	var fp Fingerprint
	fp.SetMetaphorDensity(3, 50)
	assert.InDelta(t, 3.0, fp.MetaphorDensity, 1e-9, "short catalogues divide by one")

	fp.SetMetaphorDensity(5, 1000)
	assert.InDelta(t, 0.5, fp.MetaphorDensity, 1e-9)
}
