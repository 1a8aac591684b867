package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// trigramWeight scales character trigram features relative to whole words.
const trigramWeight = 0.5

// HashingEmbedder maps words and character trigrams onto a fixed number of
// signed buckets. It needs no model and is stable across runs.
type HashingEmbedder struct {
	dims int
}

// NewHashing returns a hashing embedder producing dims wide vectors.
func NewHashing(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashingEmbedder{dims: dims}
}

// Name returns the embedder label.
func (h *HashingEmbedder) Name() string { return "hashing:" + strconv.Itoa(h.dims) }

// Dimensions returns the vector width.
func (h *HashingEmbedder) Dimensions() int { return h.dims }

// Embed returns the unit length feature vector of text. Text without letters
// or digits yields the zero vector.
func (h *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, h.dims)
	for _, tok := range Tokenize(text) {
		h.add(vec, "w:"+tok, 1)
		runes := []rune(tok)
		for i := 0; i+3 <= len(runes); i++ {
			h.add(vec, "t:"+string(runes[i:i+3]), trigramWeight)
		}
	}

	var sum float64
	for _, x := range vec {
		sum += x * x
	}
	out := make([]float32, h.dims)
	if sum == 0 {
		return out, nil
	}
	norm := math.Sqrt(sum)
	for i, x := range vec {
		out[i] = float32(x / norm)
	}
	return out, nil
}

// EmbedBatch embeds every text in order.
func (h *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := h.Embed(ctx, t)
		if err != nil {
			return nil, embedError(err, h.Name(), len(texts))
		}
		out[i] = v
	}
	return out, nil
}

func (h *HashingEmbedder) add(vec []float64, feature string, weight float64) {
	hf := fnv.New64a()
	_, _ = hf.Write([]byte(feature))
	sum := hf.Sum64()
	idx := int(sum % uint64(h.dims)) //nolint:gosec // dims is positive
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// Tokenize lowercases NFC normalized text and splits it on anything that is
// not a letter, mark or digit.
func Tokenize(text string) []string {
	text = strings.ToLower(norm.NFC.String(text))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsMark(r) && !unicode.IsDigit(r)
	})
}
