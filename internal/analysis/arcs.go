package analysis

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tphakala/lyricgraph/internal/lexicon"
	"github.com/tphakala/lyricgraph/internal/lyrics"
)

// Arc classification thresholds. They are heuristics carried over unchanged
// and kept adjustable.
var (
	// ArcFlatRange is the intensity range below which an arc counts as flat.
	ArcFlatRange = 0.15
	// ArcPeakPosition is the earliest relative peak position of a crescendo.
	ArcPeakPosition = 0.5
	// ArcCrashDrop is the minimum fall from the peak to the final section.
	ArcCrashDrop = 0.1
	// ArcRiseShare is the share of non-decreasing steps of a gentle rise.
	ArcRiseShare = 0.6
	// ArcBuildGain is the minimum final over initial intensity of a slow build.
	ArcBuildGain = 0.15
	// ArcReversals is the number of direction changes of an oscillating arc.
	ArcReversals = 2
)

// ClassifyArc classifies the shape of an intensity sequence.
func ClassifyArc(intensities []float64) string {
	n := len(intensities)
	if n < 2 {
		return ArcSteadyMelancholy
	}

	hi, lo := slices.Max(intensities), slices.Min(intensities)
	if hi-lo < ArcFlatRange {
		return ArcSteadyMelancholy
	}

	peak := slices.Index(intensities, hi)
	if float64(peak) >= float64(n)*ArcPeakPosition && peak < n-1 &&
		intensities[n-1] < intensities[peak]-ArcCrashDrop {
		return ArcCrescendoCrash
	}

	// The rise share is taken over sections, not steps, so a two section
	// rise is a slow build rather than a gentle rise.
	rising := 0
	for i := 1; i < n; i++ {
		if intensities[i] >= intensities[i-1] {
			rising++
		}
	}
	if float64(rising) >= float64(n)*ArcRiseShare {
		return ArcGentleRise
	}

	if intensities[n-1] > intensities[0]+ArcBuildGain {
		return ArcSlowBuild
	}

	reversals := 0
	for i := 2; i < n; i++ {
		if (intensities[i]-intensities[i-1])*(intensities[i-1]-intensities[i-2]) < 0 {
			reversals++
		}
	}
	if reversals >= ArcReversals {
		return ArcOscillating
	}
	return ArcSteadyMelancholy
}

// ComputeEmotionalArcs builds the arc of every song with at least two sections.
func ComputeEmotionalArcs(songs []lyrics.Song, lex *lexicon.Lexicon) []EmotionalArc {
	var arcs []EmotionalArc
	for i := range songs {
		song := &songs[i]
		if len(song.Sections) < 2 {
			continue
		}
		moods := make([]string, len(song.Sections))
		intensity := make([]float64, len(song.Sections))
		for j := range song.Sections {
			moods[j] = song.Sections[j].Mood
			_, intensity[j] = lex.ValenceArousal(moods[j])
		}
		arcType := ClassifyArc(intensity)
		arcs = append(arcs, EmotionalArc{
			ID:                song.ID + ":arc",
			SongID:            song.ID,
			ArcType:           arcType,
			MoodSequence:      moods,
			IntensitySequence: intensity,
			Description:       fmt.Sprintf("%s: %s", arcType, strings.Join(moods, " -> ")),
		})
	}
	return arcs
}

// ComputeMoodTransitions counts consecutive section mood pairs within songs.
// Repeated moods are not transitions.
func ComputeMoodTransitions(songs []lyrics.Song, artist string) []MoodTransition {
	type pair struct{ from, to string }
	counts := newTally[pair]()
	for i := range songs {
		secs := songs[i].Sections
		for j := 1; j < len(secs); j++ {
			if secs[j-1].Mood != secs[j].Mood {
				counts.add(pair{secs[j-1].Mood, secs[j].Mood}, 1)
			}
		}
	}

	out := make([]MoodTransition, 0, counts.len())
	for _, c := range counts.mostCommon(0) {
		out = append(out, MoodTransition{
			From:      c.key.from,
			To:        c.key.to,
			ArtistID:  artist,
			Frequency: c.count,
		})
	}
	return out
}
