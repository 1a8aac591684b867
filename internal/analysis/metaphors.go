package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/tphakala/lyricgraph/internal/lexicon"
	"github.com/tphakala/lyricgraph/internal/llm"
	"github.com/tphakala/lyricgraph/internal/logger"
	"github.com/tphakala/lyricgraph/internal/lyrics"
)

// Metaphor extraction limits.
const (
	DefaultMetaphorBatchSize   = 10
	DefaultMetaphorMaxSections = 100

	metaphorSectionChars = 500
	metaphorPrefix       = "METAPHOR:"
)

const metaphorSystemPrompt = "You are a literary analyst specializing in Hindi/English song lyrics. " +
	"Identify metaphors in the following lyrics. For each metaphor, output EXACTLY " +
	"one line in this format:\n" +
	"METAPHOR: <source text> | <source domain> | <target domain>\n\n" +
	"Example:\n" +
	"METAPHOR: dil ka musafir | travel/journey | love/emotion\n" +
	"METAPHOR: baarish mein bheega | rain/weather | longing/sadness\n\n" +
	"Only list clear metaphors, not literal descriptions. " +
	"If no metaphors found, output: NONE"

// MetaphorExtractor finds metaphors with an LLM and falls back to the
// lexicon's keyword table when no client is configured.
type MetaphorExtractor struct {
	Client      llm.Client // nil selects keyword matching
	Lexicon     *lexicon.Lexicon
	BatchSize   int
	MaxSections int
}

// ParsedMetaphor is one line of model output.
type ParsedMetaphor struct {
	SourceText   string
	SourceDomain string
	TargetDomain string
}

// Extract returns the artist's metaphors. A failed batch is logged and
// skipped; the model never makes extraction fail as a whole.
func (m *MetaphorExtractor) Extract(ctx context.Context, songs []lyrics.Song, artist string) []Metaphor {
	lex := m.Lexicon
	if lex == nil {
		lex = lexicon.Default()
	}
	if m.Client == nil {
		return KeywordMetaphors(songs, artist, lex)
	}

	batchSize := m.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultMetaphorBatchSize
	}
	maxSections := m.MaxSections
	if maxSections <= 0 {
		maxSections = DefaultMetaphorMaxSections
	}

	var blocks []string
	for i := range songs {
		for j := range songs[i].Sections {
			sec := &songs[i].Sections[j]
			if strings.TrimSpace(sec.Text) == "" {
				continue
			}
			blocks = append(blocks, fmt.Sprintf("[%s - %s]\n%s",
				songs[i].Title, sec.SectionType, truncateRunes(sec.Text, metaphorSectionChars)))
		}
	}
	blocks = blocks[:min(len(blocks), maxSections)]

	log := GetLogger()
	type domainPair struct{ source, target string }
	var out []Metaphor
	index := make(map[domainPair]int)

	for start := 0; start < len(blocks); start += batchSize {
		batch := blocks[start:min(start+batchSize, len(blocks))]
		resp, err := m.Client.Generate(ctx, []llm.Message{
			llm.System(metaphorSystemPrompt),
			llm.User(strings.Join(batch, "\n\n")),
		}, llm.Options{Temperature: 0})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Warn("metaphor extraction batch failed",
				logger.String("artist", artist),
				logger.Int("batch_start", start),
				logger.Error(err))
			continue
		}

		for _, pm := range ParseMetaphors(resp) {
			key := domainPair{pm.SourceDomain, pm.TargetDomain}
			if i, ok := index[key]; ok {
				out[i].Frequency++
				continue
			}
			index[key] = len(out)
			out = append(out, Metaphor{
				ID:           fmt.Sprintf("%s:metaphor:%d", artist, len(out)),
				SourceText:   pm.SourceText,
				SourceDomain: pm.SourceDomain,
				TargetDomain: pm.TargetDomain,
				ArtistID:     artist,
				Frequency:    1,
			})
		}
	}

	log.Debug("extracted metaphors with llm",
		logger.String("artist", artist),
		logger.Int("sections", len(blocks)),
		logger.Int("metaphors", len(out)))
	return out
}

// ParseMetaphors reads "METAPHOR: text | source | target" lines and ignores
// everything else, including lines with the wrong number of fields.
func ParseMetaphors(text string) []ParsedMetaphor {
	var out []ParsedMetaphor
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, metaphorPrefix)
		if !ok {
			continue
		}
		parts := strings.Split(strings.TrimSpace(rest), "|")
		if len(parts) != 3 {
			continue
		}
		out = append(out, ParsedMetaphor{
			SourceText:   strings.TrimSpace(parts[0]),
			SourceDomain: strings.TrimSpace(parts[1]),
			TargetDomain: strings.TrimSpace(parts[2]),
		})
	}
	return out
}

// KeywordMetaphors counts, per lexicon domain pair, the songs containing any
// of its keywords. A song counts at most once per pair.
func KeywordMetaphors(songs []lyrics.Song, artist string, lex *lexicon.Lexicon) []Metaphor {
	counts := newTally[int]()
	for i := range songs {
		lower := strings.ToLower(songs[i].FullLyricsClean)
		for d, domain := range lex.MetaphorDomains {
			if lexicon.CountMatches(lower, domain.Keywords) > 0 {
				counts.add(d, 1)
			}
		}
	}

	out := make([]Metaphor, 0, counts.len())
	for _, c := range counts.mostCommon(0) {
		domain := lex.MetaphorDomains[c.key]
		out = append(out, Metaphor{
			ID:           fmt.Sprintf("%s:metaphor:%s_%s", artist, domainHead(domain.Source), domainHead(domain.Target)),
			SourceText:   domain.Source + " as " + domain.Target,
			SourceDomain: domain.Source,
			TargetDomain: domain.Target,
			ArtistID:     artist,
			Frequency:    c.count,
		})
	}
	return out
}

func domainHead(domain string) string {
	head, _, _ := strings.Cut(domain, "/")
	return head
}
