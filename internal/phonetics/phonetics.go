// Package phonetics classifies rhymes between Hindi (Devanagari or romanized)
// and English words and detects per-section rhyme schemes.
package phonetics

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// RhymeType is the strength of a rhyme between two words.
type RhymeType string

// Rhyme types, strongest first. None means the words do not rhyme.
const (
	None          RhymeType = ""
	Perfect       RhymeType = "perfect"
	Slant         RhymeType = "slant"
	Assonance     RhymeType = "assonance"
	CrossLanguage RhymeType = "cross_language"
)

// SchemeFree is the scheme label for sections without a repeating rhyme letter.
const SchemeFree = "FREE"

// Script-level language tags for rhyme pairs.
const (
	LangHindi    = "hindi"
	LangEnglish  = "english"
	LangHinglish = "hinglish"
)

const suffixLength = 3

// Devanagari vowel signs and their approximate Latin sounds.
var vowelSigns = map[rune]string{
	'\u093E': "aa", // ा
	'\u093F': "i",  // ि
	'\u0940': "ee", // ी
	'\u0941': "u",  // ु
	'\u0942': "oo", // ू
	'\u0947': "e",  // े
	'\u0948': "ai", // ै
	'\u094B': "o",  // ो
	'\u094C': "au", // ौ
}

var (
	latinWord   = regexp.MustCompile(`^[a-zA-Z]+$`)
	vowelGroups = regexp.MustCompile(`[aeiou]+`)
	canonical   = []string{"AABB", "ABAB", "ABBA", "ABCB"}
)

// IsDevanagari reports whether word contains any Devanagari character.
func IsDevanagari(word string) bool {
	for _, r := range word {
		if r >= 0x0900 && r <= 0x097F {
			return true
		}
	}
	return false
}

// IsLatin reports whether word consists only of ASCII letters.
func IsLatin(word string) bool {
	return latinWord.MatchString(word)
}

func isDevanagariConsonant(r rune) bool {
	return r >= 0x0915 && r <= 0x0939
}

// Suffix returns the phonetic suffix used for rhyme comparison. Devanagari
// suffixes have vowel signs replaced by Latin sounds and bare consonants
// carry an implicit "a". Latin and romanized words use their lowercase tail.
func Suffix(word string) string {
	word = strings.TrimSpace(word)
	if word == "" {
		return ""
	}
	if !IsDevanagari(word) {
		return lastRunes(strings.ToLower(word), suffixLength)
	}

	var b strings.Builder
	for _, r := range lastRunes(word, suffixLength) {
		switch {
		case vowelSigns[r] != "":
			b.WriteString(vowelSigns[r])
		case isDevanagariConsonant(r):
			b.WriteByte('a')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Classify returns the rhyme type between a and b, or None. Identical words
// never rhyme. A Devanagari word and a Latin word can only form a
// cross-language rhyme, decided on the last two suffix characters.
func Classify(a, b string) RhymeType {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" || a == b {
		return None
	}

	aDev, bDev := IsDevanagari(a), IsDevanagari(b)
	aLat, bLat := IsLatin(a), IsLatin(b)
	sa, sb := Suffix(a), Suffix(b)

	if (aDev && bLat) || (aLat && bDev) {
		if sa != "" && sb != "" && lastRunes(sa, 2) == lastRunes(sb, 2) {
			return CrossLanguage
		}
		return None
	}

	if sa == "" || sb == "" {
		return None
	}

	la, lb := runeLen(sa), runeLen(sb)
	if la >= 3 && lb >= 3 && lastRunes(sa, 3) == lastRunes(sb, 3) {
		return Perfect
	}
	if la >= 2 && lb >= 2 && lastRunes(sa, 2) == lastRunes(sb, 2) {
		return Slant
	}

	va := vowelGroups.FindAllString(sa, -1)
	vb := vowelGroups.FindAllString(sb, -1)
	if len(va) > 0 && len(vb) > 0 && va[len(va)-1] == vb[len(vb)-1] {
		return Assonance
	}
	return None
}

// DetectScheme assigns each end word the letter of its first rhyming
// predecessor, or the next unused letter, and labels the resulting pattern.
func DetectScheme(endWords []string) string {
	if len(endWords) < 2 {
		return SchemeFree
	}

	words := make([]string, len(endWords))
	for i, w := range endWords {
		words[i] = strings.ToLower(strings.TrimSpace(w))
	}

	scheme := make([]rune, len(words))
	next := 'A'
	for i, w := range words {
		assigned := false
		for j := range i {
			if Classify(w, words[j]) != None {
				scheme[i] = scheme[j]
				assigned = true
				break
			}
		}
		if !assigned {
			scheme[i] = next
			next++
		}
	}

	pattern := string(scheme)
	if len(scheme) >= 4 {
		if first := string(scheme[:4]); slices.Contains(canonical, first) {
			return first
		}
	}

	seen := make(map[rune]bool, len(scheme))
	for _, r := range scheme {
		if seen[r] {
			return pattern
		}
		seen[r] = true
	}
	return SchemeFree
}

// Pair is a deduplicated rhyme pair found in an artist's catalog.
type Pair struct {
	ID        string    `json:"id"`
	WordA     string    `json:"word_a"`
	WordB     string    `json:"word_b"`
	RhymeType RhymeType `json:"rhyme_type"`
	Language  string    `json:"language"`
	Frequency int       `json:"frequency"`
	ArtistID  string    `json:"artist_id"`
}

// ExtractPairs scans the end words of every section for adjacent (i, i+1)
// and alternating (i, i+2) rhymes. Pairs are unordered, counted across the
// catalog and returned most frequent first, ties in discovery order.
func ExtractPairs(artist string, sections [][]string) []Pair {
	type entry struct {
		a, b  string
		typ   RhymeType
		count int
	}
	var order []*entry
	index := make(map[[2]string]*entry)

	record := func(wa, wb string) {
		typ := Classify(wa, wb)
		if typ == None {
			return
		}
		key := [2]string{strings.ToLower(wa), strings.ToLower(wb)}
		if key[1] < key[0] {
			key[0], key[1] = key[1], key[0]
		}
		e, ok := index[key]
		if !ok {
			// The type is fixed at first detection.
			e = &entry{a: key[0], b: key[1], typ: typ}
			index[key] = e
			order = append(order, e)
		}
		e.count++
	}

	for _, words := range sections {
		if len(words) < 2 {
			continue
		}
		trimmed := make([]string, len(words))
		for i, w := range words {
			trimmed[i] = strings.TrimSpace(w)
		}
		for i := 0; i+1 < len(trimmed); i++ {
			record(trimmed[i], trimmed[i+1])
		}
		for i := 0; i+2 < len(trimmed); i++ {
			record(trimmed[i], trimmed[i+2])
		}
	}

	slices.SortStableFunc(order, func(x, y *entry) int {
		return cmp.Compare(y.count, x.count)
	})

	pairs := make([]Pair, 0, len(order))
	for _, e := range order {
		pairs = append(pairs, Pair{
			ID:        fmt.Sprintf("%s:rhyme:%s_%s", artist, e.a, e.b),
			WordA:     e.a,
			WordB:     e.b,
			RhymeType: e.typ,
			Language:  pairLanguage(e.a, e.b),
			Frequency: e.count,
			ArtistID:  artist,
		})
	}
	return pairs
}

func pairLanguage(a, b string) string {
	switch {
	case IsDevanagari(a) || IsDevanagari(b):
		return LangHindi
	case IsLatin(a) && IsLatin(b):
		return LangEnglish
	default:
		return LangHinglish
	}
}

func lastRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func runeLen(s string) int {
	return len([]rune(s))
}
