package lyrics

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tphakala/lyricgraph/internal/lexicon"
)

// Section types.
const (
	TypeVerse      = "verse"
	TypeChorus     = "chorus"
	TypeBridge     = "bridge"
	TypePreChorus  = "pre_chorus"
	TypePostChorus = "post_chorus"
	TypeOutro      = "outro"
	TypeIntro      = "intro"
	TypeInterlude  = "interlude"
	TypeMukhda     = "mukhda"
	TypeAntara     = "antara"
	TypeGeneric    = "section"
)

// headerVocabulary maps header words to section types. Entries are matched as
// substrings in order, so compound headers come before the words they contain.
var headerVocabulary = []struct {
	pattern string
	typ     string
}{
	{"pre-chorus", TypePreChorus},
	{"pre chorus", TypePreChorus},
	{"prechorus", TypePreChorus},
	{"post-chorus", TypePostChorus},
	{"post chorus", TypePostChorus},
	{"verse", TypeVerse},
	{"chorus", TypeChorus},
	{"bridge", TypeBridge},
	{"hook", TypeChorus},
	{"refrain", TypeChorus},
	{"outro", TypeOutro},
	{"intro", TypeIntro},
	{"interlude", TypeInterlude},
	{"mukhda", TypeMukhda},
	{"mukhra", TypeMukhda},
	{"antara", TypeAntara},
	{"sthayi", TypeMukhda},
	{"sanchari", TypeBridge},
	{"abhog", TypeOutro},
}

var (
	headerLine     = regexp.MustCompile(`(?m)^\[([^\]]+)\]$`)
	trailingNumber = regexp.MustCompile(`(\d+)\s*$`)
	bracketed      = regexp.MustCompile(`\[.*?\]`)
	blankRuns      = regexp.MustCompile(`\n{3,}`)
)

// ParseHeader normalizes a section header such as "Verse 2" into its section
// type and number. The number is 0 when the header carries none.
func ParseHeader(header string) (sectionType string, number int) {
	text := strings.ToLower(strings.TrimSpace(header))
	if m := trailingNumber.FindStringSubmatchIndex(text); m != nil {
		number, _ = strconv.Atoi(text[m[2]:m[3]])
		text = strings.TrimSpace(text[:m[0]])
	}
	for _, v := range headerVocabulary {
		if strings.Contains(text, v.pattern) {
			return v.typ, number
		}
	}
	return TypeGeneric, number
}

// CleanLyrics removes bracketed headers and collapses blank line runs.
func CleanLyrics(lyrics string) string {
	clean := bracketed.ReplaceAllString(lyrics, "")
	clean = blankRuns.ReplaceAllString(clean, "\n\n")
	return strings.TrimSpace(clean)
}

// Decomposer turns raw songs into decomposed songs for one artist.
type Decomposer struct {
	Artist  string
	Lexicon *lexicon.Lexicon
}

// NewDecomposer returns a decomposer using lex for mood estimation.
func NewDecomposer(artist string, lex *lexicon.Lexicon) *Decomposer {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Decomposer{Artist: artist, Lexicon: lex}
}

type headerBlock struct {
	header string
	body   string
}

// splitHeaders returns the text before the first header and every header
// with the text that follows it.
func splitHeaders(lyrics string) (lead string, blocks []headerBlock) {
	matches := headerLine.FindAllStringSubmatchIndex(lyrics, -1)
	if len(matches) == 0 {
		return lyrics, nil
	}
	lead = lyrics[:matches[0][0]]
	for i, m := range matches {
		end := len(lyrics)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		blocks = append(blocks, headerBlock{
			header: lyrics[m[2]:m[3]],
			body:   lyrics[m[1]:end],
		})
	}
	return lead, blocks
}

// Decompose splits raw into sections and lines. Text before the first header
// becomes an implicit verse; lyrics without usable headers become one verse.
// Sections without lines are dropped.
func (d *Decomposer) Decompose(raw *RawSong) Song {
	songID := fmt.Sprintf("%s:%s", d.Artist, Slugify(raw.Title))
	lyrics := raw.Lyrics

	var (
		sections []Section
		global   int
		counters = make(map[string]int)
		used     = make(map[string]bool)
	)
	add := func(typ string, num int, text string) {
		used[fmt.Sprintf("%s_%d", typ, num)] = true
		sec, next := d.buildSection(songID, typ, num, len(sections), text, global)
		global = next
		if sec.LineCount > 0 {
			sections = append(sections, sec)
		}
	}

	lead, blocks := splitHeaders(lyrics)
	if strings.TrimSpace(lead) != "" {
		counters[TypeVerse]++
		add(TypeVerse, counters[TypeVerse], lead)
	}
	for _, b := range blocks {
		typ, num := ParseHeader(b.header)
		// Section ids must stay unique within the song, so a number that is
		// already taken continues the running counter instead.
		if num == 0 || used[fmt.Sprintf("%s_%d", typ, num)] {
			counters[typ]++
			num = counters[typ]
		} else {
			counters[typ] = max(counters[typ], num)
		}
		add(typ, num, b.body)
	}

	if len(sections) == 0 {
		global = 0
		add(TypeVerse, 1, lyrics)
	}

	clean := CleanLyrics(lyrics)
	song := Song{
		ID:              songID,
		Title:           raw.Title,
		ArtistID:        d.Artist,
		Album:           string(raw.Album),
		Year:            raw.Year,
		Language:        DetectLanguage(clean),
		Mood:            d.Lexicon.EstimateMood(clean),
		FullLyrics:      lyrics,
		FullLyricsClean: clean,
		URL:             raw.URL,
		SectionCount:    len(sections),
		Sections:        sections,
	}
	for i := range sections {
		song.LineCount += sections[i].LineCount
		song.WordCount += sections[i].WordCount
	}
	return song
}

func (d *Decomposer) buildSection(songID, typ string, num, index int, text string, globalStart int) (Section, int) {
	sectionID := fmt.Sprintf("%s:%s_%d", songID, typ, num)

	var lines []Line
	global := globalStart
	for _, raw := range strings.Split(strings.TrimSpace(text), "\n") {
		t := strings.TrimSpace(raw)
		if t == "" {
			continue
		}
		lines = append(lines, Line{
			ID:              fmt.Sprintf("%s:line_%d", sectionID, len(lines)),
			SectionID:       sectionID,
			SongID:          songID,
			LineIndex:       len(lines),
			GlobalLineIndex: global,
			Text:            t,
			WordCount:       len(strings.Fields(t)),
			SyllableCount:   EstimateSyllables(t),
			Language:        DetectLanguage(t),
			HasCodeSwitch:   HasCodeSwitch(t),
			EndWord:         EndWord(t),
		})
		global++
	}

	texts := make([]string, len(lines))
	words := 0
	for i := range lines {
		texts[i] = lines[i].Text
		words += lines[i].WordCount
	}
	sec := Section{
		ID:           sectionID,
		SongID:       songID,
		SectionType:  typ,
		SectionIndex: index,
		Text:         strings.Join(texts, "\n"),
		LineCount:    len(lines),
		WordCount:    words,
		Language:     LangUnknown,
		Mood:         lexicon.NeutralMood,
		Lines:        lines,
	}
	if sec.Text != "" {
		sec.Language = DetectLanguage(sec.Text)
		sec.Mood = d.Lexicon.EstimateMood(sec.Text)
	}
	return sec, global
}

// DecomposeAll decomposes every raw song and keeps those with at least one section.
func (d *Decomposer) DecomposeAll(raws []RawSong) []Song {
	songs := make([]Song, 0, len(raws))
	for i := range raws {
		song := d.Decompose(&raws[i])
		if song.SectionCount > 0 {
			songs = append(songs, song)
		}
	}
	return songs
}
