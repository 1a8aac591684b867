package validation

import (
	"fmt"
	"strings"

	"github.com/tphakala/lyricgraph/internal/lexicon"
	"github.com/tphakala/lyricgraph/internal/phonetics"
)

// Recommendation is the validator's decision for one attempt.
type Recommendation string

const (
	Accept            Recommendation = "accept"
	RegeneratePartial Recommendation = "regenerate_partial"
	RegenerateFull    Recommendation = "regenerate_full"
)

// Check weights of the aggregate score.
const (
	WeightVocabulary   = 0.25
	WeightOriginality  = 0.30
	WeightRhyme        = 0.15
	WeightEmotionalArc = 0.15
	WeightStructure    = 0.15
)

// Decision thresholds.
const (
	AcceptScore         = 0.8
	RepairScore         = 0.6
	MaxRepairableLines  = 2
	NGramSize           = 4
	NGramOverlapLimit   = 0.6
	SectionRhymeRatio   = 0.2
	AntiVocabularyScale = 2.0
)

// Scores used when the artist has nothing to compare against.
const (
	unknownVocabularyScore = 0.8
	noRhymeSectionsScore   = 0.5
	noArcScore             = 0.7
	noStructureScore       = 0.7
	partialBasicsScore     = 0.5
)

// Check names, also used as metric labels.
const (
	CheckVocabulary   = "vocabulary"
	CheckOriginality  = "originality"
	CheckRhyme        = "rhyme"
	CheckEmotionalArc = "emotional_arc"
	CheckStructure    = "structure"
)

// checkThresholds name a check as weak in regeneration prompts.
var checkThresholds = []struct {
	name  string
	limit float64
}{
	{CheckVocabulary, 0.7},
	{CheckOriginality, 0.8},
	{CheckRhyme, 0.5},
	{CheckEmotionalArc, 0.6},
	{CheckStructure, 0.6},
}

// FlaggedLine is a generated line that copies or closely paraphrases the catalog.
type FlaggedLine struct {
	LineIndex int     `json:"line_index"`
	LineText  string  `json:"line_text"`
	Reason    string  `json:"reason"`
	Score     float64 `json:"score"`
}

// Details carries counts gathered while validating.
type Details struct {
	TotalLines          int `json:"total_lines"`
	TotalSections       int `json:"total_sections"`
	AntiVocabViolations int `json:"anti_vocab_violations"`
}

// Report is the outcome of validating one generated song.
type Report struct {
	Passed            bool           `json:"passed"`
	OverallScore      float64        `json:"overall_score"`
	VocabularyScore   float64        `json:"vocabulary_score"`
	OriginalityScore  float64        `json:"originality_score"`
	RhymeScore        float64        `json:"rhyme_score"`
	EmotionalArcScore float64        `json:"emotional_arc_score"`
	StructureScore    float64        `json:"structure_score"`
	FlaggedLines      []FlaggedLine  `json:"flagged_lines"`
	Recommendation    Recommendation `json:"recommendation"`
	Details           Details        `json:"details"`
}

// Checks returns the per-check scores keyed by check name.
func (r *Report) Checks() map[string]float64 {
	return map[string]float64{
		CheckVocabulary:   r.VocabularyScore,
		CheckOriginality:  r.OriginalityScore,
		CheckRhyme:        r.RhymeScore,
		CheckEmotionalArc: r.EmotionalArcScore,
		CheckStructure:    r.StructureScore,
	}
}

// WeakChecks returns the checks scoring below their threshold, in check order.
func (r *Report) WeakChecks() []string {
	scores := r.Checks()
	var weak []string
	for _, t := range checkThresholds {
		if scores[t.name] < t.limit {
			weak = append(weak, t.name)
		}
	}
	return weak
}

// Expectations is what generated output is compared against.
type Expectations struct {
	VocabularySet  []string
	AntiVocabulary []string
	// Structure is a dash-joined section type pattern such as "verse-chorus-verse".
	Structure string
	MoodArc   []string
	Catalog   *Catalog
}

// Catalog indexes an artist's existing lines for originality checks.
type Catalog struct {
	lines  []string
	exact  map[string]struct{}
	ngrams []map[string]struct{}
}

// NewCatalog lowercases and indexes lines. Blank lines are ignored.
func NewCatalog(lines []string) *Catalog {
	c := &Catalog{exact: make(map[string]struct{}, len(lines))}
	for _, l := range lines {
		norm := strings.ToLower(strings.TrimSpace(l))
		if norm == "" {
			continue
		}
		c.lines = append(c.lines, norm)
		c.exact[norm] = struct{}{}
		c.ngrams = append(c.ngrams, charNGrams(norm, NGramSize))
	}
	return c
}

// Len returns the number of indexed lines.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.lines)
}

// Validator scores generated lyrics.
type Validator struct {
	lex *lexicon.Lexicon
}

// New returns a validator using lex for mood estimation, or the built-in
// lexicon when lex is nil.
func New(lex *lexicon.Lexicon) *Validator {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Validator{lex: lex}
}

// Validate scores output against exp and recommends the next step.
func (v *Validator) Validate(output string, exp *Expectations) Report {
	if exp == nil {
		exp = &Expectations{}
	}
	sections := ParseOutput(output)
	lines := allLines(sections)

	vocab, violations := vocabularyScore(lines, exp.VocabularySet, exp.AntiVocabulary)
	orig, flagged := originalityScore(lines, exp.Catalog)
	rhyme := rhymeScore(sections)
	arc := v.arcScore(sections, exp.MoodArc)
	structure := structureScore(sections, exp.Structure)

	overall := vocab*WeightVocabulary +
		orig*WeightOriginality +
		rhyme*WeightRhyme +
		arc*WeightEmotionalArc +
		structure*WeightStructure

	rec := Recommend(overall, len(flagged))
	return Report{
		Passed:            rec == Accept,
		OverallScore:      overall,
		VocabularyScore:   vocab,
		OriginalityScore:  orig,
		RhymeScore:        rhyme,
		EmotionalArcScore: arc,
		StructureScore:    structure,
		FlaggedLines:      flagged,
		Recommendation:    rec,
		Details: Details{
			TotalLines:          len(lines),
			TotalSections:       len(sections),
			AntiVocabViolations: violations,
		},
	}
}

// Recommend applies the decision policy to an aggregate score and the number
// of flagged lines.
func Recommend(overall float64, flagged int) Recommendation {
	switch {
	case overall >= AcceptScore && flagged == 0:
		return Accept
	case overall >= RepairScore && flagged <= MaxRepairableLines:
		return RegeneratePartial
	default:
		return RegenerateFull
	}
}

// vocabularyScore is the in-vocabulary token fraction minus twice the
// anti-vocabulary fraction, clamped to [0,1].
func vocabularyScore(lines, vocab, anti []string) (score float64, violations int) {
	if len(vocab) == 0 {
		return unknownVocabularyScore, 0
	}
	vocabSet := lowerSet(vocab)
	antiSet := lowerSet(anti)

	var total, inVocab int
	for _, l := range lines {
		for _, w := range scoringWords(l) {
			w = strings.ToLower(w)
			total++
			if _, ok := vocabSet[w]; ok {
				inVocab++
			}
			if _, ok := antiSet[w]; ok {
				violations++
			}
		}
	}
	if total == 0 {
		return 0, violations
	}
	score = float64(inVocab)/float64(total) - AntiVocabularyScale*float64(violations)/float64(total)
	return clamp01(score), violations
}

// originalityScore flags lines copying the catalog exactly or sharing more
// than NGramOverlapLimit of their character n-grams with one catalog line.
func originalityScore(lines []string, catalog *Catalog) (float64, []FlaggedLine) {
	flagged := []FlaggedLine{}
	if catalog.Len() == 0 || len(lines) == 0 {
		return 1.0, flagged
	}
	for i, line := range lines {
		norm := strings.ToLower(strings.TrimSpace(line))
		if norm == "" {
			continue
		}
		if _, ok := catalog.exact[norm]; ok {
			flagged = append(flagged, FlaggedLine{
				LineIndex: i,
				LineText:  line,
				Reason:    "Exact copy of existing line",
				Score:     1,
			})
			continue
		}
		grams := charNGrams(norm, NGramSize)
		if len(grams) == 0 {
			continue
		}
		for j, existing := range catalog.ngrams {
			overlap := float64(intersectionSize(grams, existing)) / float64(len(grams))
			if overlap > NGramOverlapLimit {
				flagged = append(flagged, FlaggedLine{
					LineIndex: i,
					LineText:  line,
					Reason:    fmt.Sprintf("High n-gram overlap (%.0f%%) with: %s", overlap*100, truncateRunes(catalog.lines[j], 80)),
					Score:     overlap,
				})
				break
			}
		}
	}
	return 1 - float64(len(flagged))/float64(len(lines)), flagged
}

// rhymeScore is the fraction of sections with two or more lines whose
// adjacent and alternate end-word pairs rhyme often enough.
func rhymeScore(sections []Section) float64 {
	var qualifying, passing int
	for i := range sections {
		if len(sections[i].Lines) < 2 {
			continue
		}
		var ends []string
		for _, l := range sections[i].Lines {
			if words := scoringWords(l); len(words) > 0 {
				ends = append(ends, strings.ToLower(words[len(words)-1]))
			}
		}
		if len(ends) < 2 {
			continue
		}
		qualifying++

		var pairs, rhyming int
		for j := range len(ends) - 1 {
			pairs++
			if phonetics.Classify(ends[j], ends[j+1]) != phonetics.None {
				rhyming++
			}
			if j+2 < len(ends) {
				pairs++
				if phonetics.Classify(ends[j], ends[j+2]) != phonetics.None {
					rhyming++
				}
			}
		}
		if float64(rhyming)/float64(pairs) > SectionRhymeRatio {
			passing++
		}
	}
	if qualifying == 0 {
		return noRhymeSectionsScore
	}
	return float64(passing) / float64(qualifying)
}

// arcScore compares the estimated mood of each section with the expected arc.
func (v *Validator) arcScore(sections []Section, expected []string) float64 {
	if len(expected) == 0 || len(sections) == 0 {
		return noArcScore
	}
	detected := make([]string, len(sections))
	for i := range sections {
		detected[i] = v.lex.EstimateMood(sections[i].Text())
	}
	n := min(len(detected), len(expected))
	if n == 0 {
		return 0
	}
	var total float64
	for i := range n {
		switch {
		case detected[i] == expected[i]:
			total += 1
		case v.lex.Adjacent(detected[i], expected[i]):
			total += 0.5
		}
	}
	return total / float64(n)
}

// structureScore combines section count closeness, positional type matches
// and the presence of verse and chorus sections.
func structureScore(sections []Section, expected string) float64 {
	if expected == "" || len(sections) == 0 {
		return noStructureScore
	}
	want := strings.Split(expected, "-")
	got := make([]string, len(sections))
	for i := range sections {
		got[i] = sections[i].Type
	}

	length := 1 - float64(absInt(len(got)-len(want)))/float64(max(len(want), 1))
	length = max(length, 0)

	// Missing trailing sections count against the type match.
	var matches int
	for i := range min(len(got), len(want)) {
		if got[i] == want[i] {
			matches++
		}
	}
	typeMatch := float64(matches) / float64(max(len(want), 1))

	var hasVerse, hasChorus bool
	for _, t := range got {
		switch t {
		case "verse", "mukhda":
			hasVerse = true
		case "chorus", "hook":
			hasChorus = true
		}
	}
	basics := partialBasicsScore
	if hasVerse && hasChorus {
		basics = 1
	}

	return 0.3*length + 0.4*typeMatch + 0.3*basics
}

// charNGrams returns the set of rune n-grams of s, empty when s is shorter than n.
func charNGrams(s string, n int) map[string]struct{} {
	runes := []rune(s)
	grams := make(map[string]struct{})
	for i := 0; i+n <= len(runes); i++ {
		grams[string(runes[i:i+n])] = struct{}{}
	}
	return grams
}

func intersectionSize(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func lowerSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
