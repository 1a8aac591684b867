package lyrics

import (
	"regexp"
	"strings"
)

// Language tags.
const (
	LangHindi    = "hindi"
	LangEnglish  = "english"
	LangHinglish = "hinglish"
	LangUnknown  = "unknown"
)

const (
	hindiRatioThreshold   = 0.7
	englishRatioThreshold = 0.1
)

var (
	devanagariChar      = regexp.MustCompile(`[\x{0900}-\x{097F}]`)
	devanagariVowel     = regexp.MustCompile(`[\x{0904}-\x{0914}\x{093E}-\x{094C}\x{0962}\x{0963}]`)
	devanagariConsonant = regexp.MustCompile(`[\x{0915}-\x{0939}]`)
	latinWord           = regexp.MustCompile(`[a-zA-Z]+`)
	latinVowelGroup     = regexp.MustCompile(`[aeiouy]+`)
	scriptSegment       = regexp.MustCompile(`[\x{0900}-\x{097F}]+|[a-zA-Z]+`)
	slugStrip           = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s-]`)
	slugSeparators      = regexp.MustCompile(`[\s-]+`)
)

// DetectLanguage tags text as hindi, english or hinglish from the ratio of
// Devanagari characters to Devanagari characters plus Latin words.
func DetectLanguage(text string) string {
	dev := len(devanagariChar.FindAllStringIndex(text, -1))
	lat := len(latinWord.FindAllStringIndex(text, -1))
	total := dev + lat
	if total == 0 {
		return LangUnknown
	}

	ratio := float64(dev) / float64(total)
	switch {
	case ratio > hindiRatioThreshold:
		return LangHindi
	case ratio < englishRatioThreshold:
		return LangEnglish
	default:
		return LangHinglish
	}
}

// EstimateSyllables estimates the syllable count of mixed Devanagari and
// Latin text.
func EstimateSyllables(text string) int {
	vowels := len(devanagariVowel.FindAllStringIndex(text, -1))
	consonants := len(devanagariConsonant.FindAllStringIndex(text, -1))
	hindi := max(vowels, consonants/2)

	latin := 0
	for _, w := range latinWord.FindAllString(text, -1) {
		w = strings.ToLower(w)
		n := len(latinVowelGroup.FindAllStringIndex(w, -1))
		if strings.HasSuffix(w, "e") && n > 1 {
			n--
		}
		latin += max(n, 1)
	}
	return hindi + latin
}

// HasCodeSwitch reports whether text mixes Devanagari and Latin segments.
func HasCodeSwitch(text string) bool {
	segments := scriptSegment.FindAllString(text, -1)
	if len(segments) < 2 {
		return false
	}
	var hindi, english bool
	for _, s := range segments {
		if latinWord.MatchString(s) {
			english = true
		} else {
			hindi = true
		}
	}
	return hindi && english
}

// EndWord returns the last Devanagari or Latin token of text, lowercased.
func EndWord(text string) string {
	segments := scriptSegment.FindAllString(strings.TrimSpace(text), -1)
	if len(segments) == 0 {
		return ""
	}
	return strings.ToLower(segments[len(segments)-1])
}

// Slugify converts a name into an identifier fragment: lowercase, punctuation
// removed and runs of spaces or hyphens replaced by underscores.
func Slugify(name string) string {
	slug := strings.TrimSpace(strings.ToLower(name))
	slug = slugStrip.ReplaceAllString(slug, "")
	return slugSeparators.ReplaceAllString(slug, "_")
}
