// Package validation scores generated lyrics against an artist's style and
// drives the accept, repair or regenerate loop around generation.
package validation

import (
	"regexp"
	"strings"
)

var (
	outputHeader = regexp.MustCompile(`^\[([^\]]+)\]$`)
	direction    = regexp.MustCompile(`\[.*?\]`)
	scoringWord  = regexp.MustCompile(`[\x{0900}-\x{097F}]+|[a-zA-Z]+`)
)

// leadingSectionType is the type of lines before the first header.
const leadingSectionType = "intro"

// Section is one parsed section of generated output. Lines have delivery
// directions removed; the original text is kept by the caller.
type Section struct {
	Type  string
	Lines []string
}

// Text joins the section's lines.
func (s *Section) Text() string {
	return strings.Join(s.Lines, "\n")
}

// ParseOutput splits generated lyrics on bracketed header lines. Sections
// without lines are dropped.
func ParseOutput(text string) []Section {
	var sections []Section
	current := Section{Type: leadingSectionType}
	flush := func() {
		if len(current.Lines) > 0 {
			sections = append(sections, current)
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := outputHeader.FindStringSubmatch(line); m != nil {
			flush()
			current = Section{Type: classifyHeader(m[1])}
			continue
		}
		if strings.HasPrefix(line, "[") {
			continue
		}
		if clean := strings.TrimSpace(direction.ReplaceAllString(line, "")); clean != "" {
			current.Lines = append(current.Lines, clean)
		}
	}
	flush()
	return sections
}

// classifyHeader maps header text to a section type by substring, verse by default.
func classifyHeader(header string) string {
	h := strings.ToLower(header)
	switch {
	case strings.Contains(h, "chorus") && strings.Contains(h, "pre"):
		return "pre_chorus"
	case strings.Contains(h, "chorus"), strings.Contains(h, "hook"):
		return "chorus"
	case strings.Contains(h, "bridge"):
		return "bridge"
	case strings.Contains(h, "outro"):
		return "outro"
	case strings.Contains(h, "intro"):
		return "intro"
	case strings.Contains(h, "pre"):
		return "pre_chorus"
	default:
		return "verse"
	}
}

// scoringWords returns the Devanagari and Latin words of line.
func scoringWords(line string) []string {
	return scoringWord.FindAllString(line, -1)
}

func allLines(sections []Section) []string {
	var lines []string
	for i := range sections {
		lines = append(lines, sections[i].Lines...)
	}
	return lines
}
