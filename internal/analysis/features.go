package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tphakala/lyricgraph/internal/lexicon"
	"github.com/tphakala/lyricgraph/internal/lyrics"
	"github.com/tphakala/lyricgraph/internal/phonetics"
)

// N-gram bounds for phrase extraction.
const (
	MinNgram = 2
	MaxNgram = 5
)

// Default frequency thresholds.
const (
	DefaultPhraseMinFrequency = 3
	DefaultMeterMinFrequency  = 2
)

const (
	phraseIDRunes = 50
	meterIDRunes  = 30
)

// ExtractPhrases counts 2 to 5 word n-grams over every line and returns those
// seen at least minFrequency times, skipping phrases made only of stop words.
func ExtractPhrases(songs []lyrics.Song, artist string, minFrequency int, lex *lexicon.Lexicon) []Phrase {
	ngrams := newTally[string]()
	for i := range songs {
		for _, line := range songs[i].Lines() {
			words := strings.Fields(strings.ToLower(line.Text))
			for n := MinNgram; n <= min(MaxNgram, len(words)); n++ {
				for j := 0; j+n <= len(words); j++ {
					ngrams.add(strings.Join(words[j:j+n], " "), 1)
				}
			}
		}
	}

	var phrases []Phrase
	for _, c := range ngrams.mostCommon(0) {
		if c.count < minFrequency {
			break
		}
		if isStopWordPhrase(c.key, lex) {
			continue
		}
		phrases = append(phrases, Phrase{
			ID:        fmt.Sprintf("%s:phrase:%s", artist, lyrics.Slugify(truncateRunes(c.key, phraseIDRunes))),
			Text:      c.key,
			Language:  lyrics.DetectLanguage(c.key),
			Frequency: c.count,
			ArtistID:  artist,
		})
	}
	return phrases
}

func isStopWordPhrase(text string, lex *lexicon.Lexicon) bool {
	for _, w := range strings.Fields(text) {
		if !lex.IsStopWord(w) {
			return false
		}
	}
	return true
}

// ExtractCulturalReferences counts every occurrence of each lexicon term in
// the clean lyrics of every song.
func ExtractCulturalReferences(songs []lyrics.Song, artist string, lex *lexicon.Lexicon) []CulturalReference {
	type key struct{ term, category string }
	counts := newTally[key]()
	contexts := make(map[key]string)

	for i := range songs {
		lower := strings.ToLower(songs[i].FullLyricsClean)
		for _, cat := range lex.Cultural {
			for _, term := range cat.Terms {
				if n := strings.Count(lower, strings.ToLower(term.Term)); n > 0 {
					k := key{term.Term, cat.Category}
					counts.add(k, n)
					contexts[k] = term.Context
				}
			}
		}
	}

	refs := make([]CulturalReference, 0, counts.len())
	for _, c := range counts.mostCommon(0) {
		refs = append(refs, CulturalReference{
			ID:              fmt.Sprintf("%s:cultural:%s", artist, lyrics.Slugify(c.key.term)),
			ReferenceText:   c.key.term,
			Category:        c.key.category,
			CulturalContext: contexts[c.key],
			ArtistID:        artist,
			Frequency:       c.count,
		})
	}
	return refs
}

// ExtractMeterPatterns counts syllable patterns of sections with at least two
// lines, keyed by pattern and section type.
func ExtractMeterPatterns(songs []lyrics.Song, artist string, minFrequency int) []MeterPattern {
	type key struct{ pattern, sectionType string }
	counts := newTally[key]()

	for i := range songs {
		for j := range songs[i].Sections {
			sec := &songs[i].Sections[j]
			if sec.LineCount < 2 {
				continue
			}
			parts := make([]string, len(sec.Lines))
			for k := range sec.Lines {
				parts[k] = strconv.Itoa(sec.Lines[k].SyllableCount)
			}
			counts.add(key{strings.Join(parts, "-"), sec.SectionType}, 1)
		}
	}

	var patterns []MeterPattern
	for _, c := range counts.mostCommon(0) {
		if c.count < minFrequency {
			break
		}
		patterns = append(patterns, MeterPattern{
			ID: fmt.Sprintf("%s:meter:%s_%s", artist,
				lyrics.Slugify(truncateRunes(c.key.pattern, meterIDRunes)), c.key.sectionType),
			Pattern:     c.key.pattern,
			SectionType: c.key.sectionType,
			ArtistID:    artist,
			Frequency:   c.count,
			Description: fmt.Sprintf("%s with syllable pattern %s", c.key.sectionType, c.key.pattern),
		})
	}
	return patterns
}

// ExtractStructures ranks the section type sequences of songs by frequency.
func ExtractStructures(songs []lyrics.Song, artist string) []StructureTemplate {
	counts := newTally[string]()
	types := make(map[string][]string)
	for i := range songs {
		seq := songs[i].SectionTypes()
		pattern := strings.Join(seq, "-")
		counts.add(pattern, 1)
		types[pattern] = seq
	}

	structures := make([]StructureTemplate, 0, counts.len())
	for i, c := range counts.mostCommon(0) {
		structures = append(structures, StructureTemplate{
			ID:           fmt.Sprintf("%s:structure:%d", artist, i),
			Pattern:      c.key,
			SectionTypes: types[c.key],
			ArtistID:     artist,
			Frequency:    c.count,
		})
	}
	return structures
}

// ExtractRhymePairs classifies end-word rhymes across every section.
func ExtractRhymePairs(songs []lyrics.Song, artist string) []phonetics.Pair {
	var sections [][]string
	for i := range songs {
		for j := range songs[i].Sections {
			sections = append(sections, songs[i].Sections[j].EndWords())
		}
	}
	return phonetics.ExtractPairs(artist, sections)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
