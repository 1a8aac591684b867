// Package lexicon holds the keyword tables behind the mood, theme, cultural
// reference and metaphor heuristics. The tables are data: the built-in set is
// embedded from lexicon.yaml and may be replaced by a file on disk.
package lexicon

import (
	_ "embed"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/lyricgraph/internal/errors"
)

//go:embed lexicon.yaml
var builtin []byte

// NeutralMood is returned when no mood keyword matches.
const NeutralMood = "neutral"

// Default valence and arousal for moods missing from the table.
const (
	DefaultValence = 0.0
	DefaultArousal = 0.3
)

// Mood is one entry of the mood table.
type Mood struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Valence     float64  `yaml:"valence"`
	Arousal     float64  `yaml:"arousal"`
	Keywords    []string `yaml:"keywords"`
	Adjacent    []string `yaml:"adjacent"`
}

// Category is a named keyword list, used for themes and request mood signals.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// CulturalTerm is a culturally loaded keyword with its context description.
type CulturalTerm struct {
	Term    string `yaml:"term"`
	Context string `yaml:"context"`
}

// CulturalCategory groups cultural terms.
type CulturalCategory struct {
	Category string         `yaml:"category"`
	Terms    []CulturalTerm `yaml:"terms"`
}

// MetaphorDomain maps trigger keywords to a source and target domain.
type MetaphorDomain struct {
	Source   string   `yaml:"source"`
	Target   string   `yaml:"target"`
	Keywords []string `yaml:"keywords"`
}

// Lexicon is the full set of keyword tables. It is read-only after Load.
type Lexicon struct {
	Moods           []Mood             `yaml:"moods"`
	MoodSignals     []Category         `yaml:"mood_signals"`
	Themes          []Category         `yaml:"themes"`
	Cultural        []CulturalCategory `yaml:"cultural"`
	MetaphorDomains []MetaphorDomain   `yaml:"metaphor_domains"`
	StopWords       []string           `yaml:"stop_words"`
	Filler          []string           `yaml:"filler"`

	moodIndex map[string]int
	stopSet   map[string]struct{}
}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
)

// Default returns the built-in lexicon. It panics if the embedded file is
// malformed, which the package tests rule out.
func Default() *Lexicon {
	defaultOnce.Do(func() {
		lex, err := Parse(builtin)
		if err != nil {
			panic(err)
		}
		defaultLex = lex
	})
	return defaultLex
}

// Load returns the lexicon at path, or the built-in one when path is empty.
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("lexicon").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Hint("check analysis.lexiconpath or leave it empty to use the built-in lexicon").
			Build()
	}
	return Parse(data)
}

// Parse decodes and validates lexicon YAML.
func Parse(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, errors.New(err).
			Component("lexicon").
			Category(errors.CategoryFileParsing).
			Build()
	}
	if len(lex.Moods) == 0 || len(lex.Themes) == 0 {
		return nil, errors.Newf("lexicon must define moods and themes").
			Component("lexicon").
			Category(errors.CategoryValidation).
			Build()
	}

	lex.moodIndex = make(map[string]int, len(lex.Moods))
	for i, m := range lex.Moods {
		lex.moodIndex[m.Name] = i
	}
	lex.stopSet = make(map[string]struct{}, len(lex.StopWords))
	for _, w := range lex.StopWords {
		lex.stopSet[strings.ToLower(w)] = struct{}{}
	}
	return &lex, nil
}

// Mood looks up a mood by name.
func (l *Lexicon) Mood(name string) (Mood, bool) {
	i, ok := l.moodIndex[name]
	if !ok {
		return Mood{}, false
	}
	return l.Moods[i], true
}

// ValenceArousal returns the valence and arousal of a mood, with defaults for unknown moods.
func (l *Lexicon) ValenceArousal(name string) (valence, arousal float64) {
	if m, ok := l.Mood(name); ok {
		return m.Valence, m.Arousal
	}
	return DefaultValence, DefaultArousal
}

// Adjacent reports whether expected is listed as adjacent to detected.
func (l *Lexicon) Adjacent(detected, expected string) bool {
	m, ok := l.Mood(detected)
	if !ok {
		return false
	}
	for _, a := range m.Adjacent {
		if a == expected {
			return true
		}
	}
	return false
}

// EstimateMood scores every keyword-bearing mood by the number of its keywords
// found in text and returns the first best one, or NeutralMood.
func (l *Lexicon) EstimateMood(text string) string {
	lower := strings.ToLower(text)
	best, bestScore := NeutralMood, 0
	for _, m := range l.Moods {
		score := CountMatches(lower, m.Keywords)
		if score > bestScore {
			best, bestScore = m.Name, score
		}
	}
	return best
}

// MatchThemes returns the names of themes with at least minMatches keywords in text, in table order.
func (l *Lexicon) MatchThemes(text string, minMatches int) []string {
	lower := strings.ToLower(text)
	var matched []string
	for _, th := range l.Themes {
		if CountMatches(lower, th.Keywords) >= minMatches {
			matched = append(matched, th.Name)
		}
	}
	return matched
}

// Theme returns the keyword list of a theme.
func (l *Lexicon) Theme(name string) []string {
	for _, th := range l.Themes {
		if th.Name == name {
			return th.Keywords
		}
	}
	return nil
}

// IsStopWord reports whether w is a stop word. w must already be lowercase.
func (l *Lexicon) IsStopWord(w string) bool {
	_, ok := l.stopSet[w]
	return ok
}

// CountMatches counts keywords occurring as substrings of lower.
func CountMatches(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

var titleCaser = cases.Title(language.English)

// DisplayName turns a snake_case table key into a title, e.g.
// "love_and_romance" becomes "Love And Romance".
func DisplayName(key string) string {
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}
