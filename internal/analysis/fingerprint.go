package analysis

import (
	"strings"

	"github.com/tphakala/lyricgraph/internal/lexicon"
	"github.com/tphakala/lyricgraph/internal/lyrics"
	"github.com/tphakala/lyricgraph/internal/phonetics"
)

// DefaultVocabularySize is the size of the fingerprint vocabulary set.
const DefaultVocabularySize = 500

const topFingerprintLabels = 5

// FingerprintID returns the fingerprint node id of an artist.
func FingerprintID(artist string) string {
	return artist + ":fingerprint"
}

// EmptyFingerprint returns a zero fingerprint with empty, non-nil lists.
func EmptyFingerprint(artist string) Fingerprint {
	return Fingerprint{
		ID:                  FingerprintID(artist),
		ArtistID:            artist,
		TopRhymeTypes:       []string{},
		PreferredStructures: []string{},
		VocabularySet:       []string{},
		AntiVocabulary:      []string{},
	}
}

// ComputeFingerprint aggregates style statistics over every song. The
// metaphor density is left at zero; see SetMetaphorDensity.
func ComputeFingerprint(songs []lyrics.Song, artist string, vocabularySize int, lex *lexicon.Lexicon) Fingerprint {
	fp := EmptyFingerprint(artist)
	if len(songs) == 0 {
		return fp
	}

	var (
		lineWords, sectionLines int
		lines, sections         int
		codeSwitch              int
		valence, arousal        float64
	)
	words := newTally[string]()
	tokens := 0
	distinctLines := newTally[string]()
	schemes := newTally[string]()
	structures := newTally[string]()

	for i := range songs {
		song := &songs[i]
		for j := range song.Sections {
			sec := &song.Sections[j]
			sections++
			sectionLines += len(sec.Lines)
			v, a := lex.ValenceArousal(sec.Mood)
			valence += v
			arousal += a
			schemes.add(phonetics.DetectScheme(sec.EndWords()), 1)

			for k := range sec.Lines {
				line := &sec.Lines[k]
				lines++
				lineWords += line.WordCount
				if line.HasCodeSwitch {
					codeSwitch++
				}
				for _, w := range strings.Fields(strings.ToLower(line.Text)) {
					words.add(w, 1)
					tokens++
				}
				if t := strings.ToLower(strings.TrimSpace(line.Text)); t != "" {
					distinctLines.add(t, 1)
				}
			}
		}
		structures.add(strings.Join(song.SectionTypes(), "-"), 1)
	}

	repeated := 0
	for _, c := range distinctLines.mostCommon(0) {
		if c.count > 1 {
			repeated++
		}
	}

	fp.AvgLineLength = ratio(lineWords, lines)
	fp.AvgSectionLength = ratio(sectionLines, sections)
	fp.VocabularyRichness = ratio(words.len(), tokens)
	fp.CodeSwitchFrequency = ratio(codeSwitch, lines)
	fp.RepetitionIndex = ratio(repeated, distinctLines.len())
	fp.AvgMoodValence = valence / float64(max(sections, 1))
	fp.AvgMoodArousal = arousal / float64(max(sections, 1))
	fp.TopRhymeTypes = keys(schemes.mostCommon(topFingerprintLabels))
	fp.PreferredStructures = keys(structures.mostCommon(topFingerprintLabels))
	fp.VocabularySet = keys(words.mostCommon(vocabularySize))
	fp.AntiVocabulary = AntiVocabulary(words.counts, lex)
	return fp
}

// AntiVocabulary returns the lexicon filler words the artist never uses.
func AntiVocabulary[V any](used map[string]V, lex *lexicon.Lexicon) []string {
	anti := []string{}
	for _, w := range lex.Filler {
		if _, ok := used[strings.ToLower(w)]; !ok {
			anti = append(anti, w)
		}
	}
	return anti
}

// SetMetaphorDensity sets metaphors per hundred words.
func (fp *Fingerprint) SetMetaphorDensity(metaphors, totalWords int) {
	fp.MetaphorDensity = float64(metaphors) / max(float64(totalWords)/100, 1)
}

func ratio(n, d int) float64 {
	return float64(n) / float64(max(d, 1))
}

func keys[K comparable](cs []counted[K]) []K {
	out := make([]K, len(cs))
	for i, c := range cs {
		out[i] = c.key
	}
	return out
}
