// Package prompt assembles LLM prompts from retrieval results and validation
// reports.
package prompt

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tphakala/lyricgraph/internal/retrieval"
	"github.com/tphakala/lyricgraph/internal/validation"
)

// Sample sizes of the system prompt.
const (
	structureSample     = 3
	vocabularySample    = 30
	antiVocabSample     = 20
	signatureSample     = 10
	rhymePatternSample  = 5
	rhymePairSample     = 8
	arcSample           = 3
	metaphorSample      = 8
	culturalSample      = 10
	codeSwitchThreshold = 0.05
)

// Generation prompt limits.
const (
	maxReferenceSections = 4
	minBeforeDiversity   = 2
	referencePreviewLen  = 400
	defaultSectionLines  = 4
	defaultStructure     = "verse-chorus-verse-chorus"
	defaultArc           = "gentle_rise"
)

// System builds the persona prompt of an artist from its retrieval result.
// Sections without data are emitted as bare headings.
func System(artist string, res *retrieval.Result) string {
	var parts []string
	add := func(format string, args ...any) {
		parts = append(parts, fmt.Sprintf(format, args...))
	}

	add("You are %s's creative consciousness. You do not imitate; you ARE the creative process that produces %s's music.\n", artist, artist)

	add("## YOUR CREATIVE DNA\n")
	add("### Structural Instincts")
	if len(res.Structures) > 0 {
		patterns := make([]string, 0, structureSample)
		for _, s := range res.Structures[:min(len(res.Structures), structureSample)] {
			patterns = append(patterns, s.Pattern)
		}
		add("You build songs as: %s", strings.Join(patterns, ", "))
	}
	if len(res.AvgLinesPerSection) > 0 {
		sizes := make([]string, 0, len(res.AvgLinesPerSection))
		for _, k := range slices.Sorted(maps.Keys(res.AvgLinesPerSection)) {
			sizes = append(sizes, fmt.Sprintf("%s: ~%s lines", k, formatFloat(res.AvgLinesPerSection[k])))
		}
		add("Section sizes: %s", strings.Join(sizes, ", "))
	}
	if fp := res.Fingerprint; res.HasFingerprint() {
		if fp.AvgLineLength > 0 {
			add("Your average line length: %.1f words", fp.AvgLineLength)
		}
		if fp.CodeSwitchFrequency > codeSwitchThreshold {
			add("You code-switch (mix Hindi/English) in ~%.0f%% of lines", fp.CodeSwitchFrequency*100)
		}
	}

	add("\n### Language Rules")
	if len(res.VocabularyClusters) > 0 {
		add("Your vocabulary space includes: %s", strings.Join(first(res.VocabularyClusters, vocabularySample), ", "))
	}
	if len(res.AntiVocabulary) > 0 {
		add("NEVER use these words: %s", strings.Join(first(res.AntiVocabulary, antiVocabSample), ", "))
	}
	if len(res.SignaturePhrases) > 0 {
		add("Your signature expressions: %s", strings.Join(first(res.SignaturePhrases, signatureSample), "; "))
	}

	add("\n### Rhyme DNA")
	if len(res.RhymeSchemes) > 0 {
		add("Preferred rhyme patterns: %s", strings.Join(first(res.RhymeSchemes, rhymePatternSample), ", "))
	}
	if len(res.TopRhymePairs) > 0 {
		pairs := make([]string, 0, rhymePairSample)
		for _, p := range res.TopRhymePairs[:min(len(res.TopRhymePairs), rhymePairSample)] {
			pairs = append(pairs, p.WordA+"/"+p.WordB)
		}
		add("Common rhyming pairs: %s", strings.Join(pairs, ", "))
	}

	add("\n### Emotional Architecture")
	if arcs := countArcs(res.CommonArcs); len(arcs) > 0 {
		top := make([]string, 0, arcSample)
		for _, a := range arcs[:min(len(arcs), arcSample)] {
			top = append(top, fmt.Sprintf("%s (%dx)", a.arcType, a.count))
		}
		add("Typical emotional arcs: %s", strings.Join(top, ", "))
	}

	add("\n### Metaphor Palette")
	if len(res.Metaphors) > 0 {
		domains := make([]string, 0, metaphorSample)
		for _, m := range res.Metaphors[:min(len(res.Metaphors), metaphorSample)] {
			domains = append(domains, m.SourceDomain+" → "+m.TargetDomain)
		}
		add("Your signature metaphor domains: %s", strings.Join(domains, "; "))
	}
	if len(res.CulturalReferences) > 0 {
		refs := make([]string, 0, culturalSample)
		for _, r := range res.CulturalReferences[:min(len(res.CulturalReferences), culturalSample)] {
			refs = append(refs, fmt.Sprintf("%s (%s)", r.Reference, r.Category))
		}
		add("Cultural anchors you draw from: %s", strings.Join(refs, ", "))
	}

	add("\n## ABSOLUTE RULES")
	add("1. Every line must pass this test: \"Would %s actually write this?\"", artist)
	add("2. NEVER use generic filler phrases or cliche Bollywood lines")
	add("3. NEVER copy or closely paraphrase any of the reference lyrics shown to you")
	add("4. Match %s's EXACT emotional register: if they whisper, you whisper; if they build, you crescendo", artist)
	add("5. Maintain linguistic authenticity: use the RIGHT mix of Hindi/English/Urdu for this artist")

	add("\n## CHAT RULES")
	add("- When asked to write a song: produce complete lyrics with section labels")
	add("- When asked about your creative process: respond as %s would", artist)
	add("- Always stay in character as %s's creative persona", artist)
	add("- Be warm, genuine, and passionate about music")

	return strings.Join(parts, "\n")
}

// Generation builds the song request prompt: reference sections of varied
// types followed by the task and its targets.
func Generation(topic, artist string, req *retrieval.RequestAnalysis, res *retrieval.Result) string {
	var parts []string
	add := func(format string, args ...any) {
		parts = append(parts, fmt.Sprintf(format, args...))
	}

	if len(res.ThematicSections) > 0 {
		add("## REFERENCE LYRICS (absorb the STYLE, never copy the WORDS)\n")
		for _, sec := range referenceSections(res.ThematicSections) {
			typ := sec.SectionType
			if typ == "" {
				typ = "section"
			}
			add("### Example %s (from \"%s\"):", humanize(typ), SongTitle(sec.NodeID))
			add("%s", truncate(sec.Text, referencePreviewLen))
			add("[Structure: %d lines, mood: %s]\n", sec.LineCount, sec.Mood)
		}
	}

	add("## YOUR TASK\n")
	add("Write an original song about \"%s\" in the voice of %s.\n", topic, artist)

	if len(res.Structures) > 0 {
		pattern := res.Structures[0].Pattern
		if pattern == "" {
			pattern = defaultStructure
		}
		add("Structure: %s", pattern)
	}
	if len(res.CommonArcs) > 0 && req != nil && len(req.MoodSignals) > 0 {
		arc := defaultArc
		if arcs := countArcs(res.CommonArcs); len(arcs) > 0 {
			arc = arcs[0].arcType
		}
		add("Emotional arc: Start with %s, evolve naturally (typical pattern: %s)", req.MoodSignals[0], arc)
	}
	if len(res.AvgLinesPerSection) > 0 {
		add("Target: ~%s lines per verse, ~%s lines per chorus",
			formatFloat(linesOr(res.AvgLinesPerSection, "verse")),
			formatFloat(linesOr(res.AvgLinesPerSection, "chorus")))
	}

	add("\nRequirements:")
	add("- Include proper section labels [Verse 1], [Chorus], [Bridge], etc.")
	add("- Include [emotional/delivery directions] in brackets: [softly], [building], [whispered]")
	add("- If lyrics are in Hindi/Urdu: provide BOTH Devanagari script AND romanized transliteration")
	add("- The song should feel like a genuine unreleased track, not an AI approximation")
	add("- Approximate length: 200-300 words (3-4 minutes when sung)")

	return strings.Join(parts, "\n")
}

// Chat wraps a user message for chat mode.
func Chat(message, artist string) string {
	return fmt.Sprintf("The user is chatting with you as %s's creative persona. Respond naturally and in character.\n\nUser: %s", artist, message)
}

// Repair asks for a rewrite of output that fixes only the flagged lines.
func Repair(output string, report *validation.Report, artist string) string {
	issues := make([]string, len(report.FlaggedLines))
	for i, fl := range report.FlaggedLines {
		issues[i] = fmt.Sprintf("- Line %d: %q: %s", fl.LineIndex+1, fl.LineText, fl.Reason)
	}

	var b strings.Builder
	b.WriteString("The following song was generated but has some issues that need fixing:\n\n")
	b.WriteString(output)
	b.WriteString("\n\n## ISSUES TO FIX\n")
	b.WriteString(strings.Join(issues, "\n"))
	b.WriteString("\n\n## INSTRUCTIONS\n")
	b.WriteString("Rewrite the ENTIRE song, keeping the good parts but fixing the flagged lines.\n")
	b.WriteString("- Replace any lines that are too similar to existing lyrics with completely original ones\n")
	b.WriteString("- Maintain the same structure, mood progression, and style\n")
	fmt.Fprintf(&b, "- Keep everything in %s's authentic voice\n", artist)
	b.WriteString("- Do NOT change lines that were not flagged unless necessary for flow")
	return b.String()
}

// weakCheckIssues describes each check named by Report.WeakChecks.
var weakCheckIssues = map[string]string{
	validation.CheckVocabulary:   "vocabulary doesn't match the artist's register",
	validation.CheckOriginality:  "some lines are too similar to existing lyrics",
	validation.CheckRhyme:        "rhyme scheme is inconsistent or missing",
	validation.CheckEmotionalArc: "emotional progression doesn't feel natural",
	validation.CheckStructure:    "song structure is wrong",
}

// Enhanced asks for a new song, naming the checks the rejected attempt failed.
// The rejected output itself is not repeated.
func Enhanced(report *validation.Report, artist, topic string) string {
	var issues []string
	for _, check := range report.WeakChecks() {
		issues = append(issues, weakCheckIssues[check])
	}
	reason := "general quality is too low"
	if len(issues) > 0 {
		reason = strings.Join(issues, "; ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a completely NEW original song about %q in the voice of %s.\n\n", topic, artist)
	fmt.Fprintf(&b, "IMPORTANT: A previous attempt was rejected because: %s.\n\n", reason)
	b.WriteString("This time, pay EXTRA attention to:\n")
	fmt.Fprintf(&b, "- Use ONLY words and expressions that %s would actually use\n", artist)
	b.WriteString("- Create completely original lines; do NOT recycle any phrases from known songs\n")
	b.WriteString("- Follow a clear rhyme pattern within each section\n")
	b.WriteString("- Build a natural emotional arc across the song\n")
	b.WriteString("- Include proper section labels [Verse 1], [Chorus], [Bridge], etc.\n")
	b.WriteString("- Include [emotional/delivery directions] in brackets\n")
	b.WriteString("- If Hindi/Urdu: provide both Devanagari and romanized transliteration\n\n")
	fmt.Fprintf(&b, "Make this feel like an authentic unreleased %s track.", artist)
	return b.String()
}

// SongTitle derives a display title from a section node id of the form
// artist:song_slug:section.
func SongTitle(nodeID string) string {
	parts := strings.Split(nodeID, ":")
	if len(parts) < 2 || parts[1] == "" {
		return "Unknown"
	}
	return humanize(parts[1])
}

// referenceSections picks up to maxReferenceSections sections in rank order,
// skipping repeated section types once minBeforeDiversity are shown.
func referenceSections(sections []retrieval.Section) []retrieval.Section {
	seen := make(map[string]bool)
	var picked []retrieval.Section
	for _, sec := range sections {
		if len(picked) >= maxReferenceSections {
			break
		}
		if seen[sec.SectionType] && len(picked) >= minBeforeDiversity {
			continue
		}
		seen[sec.SectionType] = true
		picked = append(picked, sec)
	}
	return picked
}

type arcCount struct {
	arcType string
	count   int
}

// countArcs counts arc types, most frequent first, ties in first-seen order.
func countArcs(arcs []retrieval.Arc) []arcCount {
	var counts []arcCount
	index := make(map[string]int)
	for _, a := range arcs {
		if i, ok := index[a.ArcType]; ok {
			counts[i].count++
			continue
		}
		index[a.ArcType] = len(counts)
		counts = append(counts, arcCount{arcType: a.ArcType, count: 1})
	}
	slices.SortStableFunc(counts, func(a, b arcCount) int {
		return b.count - a.count
	})
	return counts
}

func linesOr(avg map[string]float64, typ string) float64 {
	if v, ok := avg[typ]; ok {
		return v
	}
	return defaultSectionLines
}

// humanize title-cases an underscore separated identifier. Casers keep
// state, so each call gets its own.
func humanize(id string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(id, "_", " "))
}

func first(s []string, n int) []string {
	return s[:min(len(s), n)]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
