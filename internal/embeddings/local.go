package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Local is an in-process embedding provider. It projects token hashes into a
// fixed-dimension space and L2-normalizes the result, so cosine similarity
// behaves: identical texts map to identical vectors and texts sharing tokens
// land closer than unrelated ones. It needs no model runtime and is fully
// deterministic.
type Local struct {
	dimension int
}

// NewLocal creates a local provider with the given dimension.
func NewLocal(dimension int) *Local {
	if dimension <= 0 {
		dimension = 384
	}
	return &Local{dimension: dimension}
}

// Name returns the provider name.
func (l *Local) Name() string { return "local-hash" }

// Dimension returns the embedding dimension.
func (l *Local) Dimension() int { return l.dimension }

// Embed generates the embedding for text.
func (l *Local) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, l.dimension)

	for _, token := range tokenize(text) {
		// One FNV-1a hash per token: its value modulo the dimension picks
		// the bucket and bit 32 picks the sign. Tokens are words plus
		// adjacent-word bigrams, so reordered texts land apart.
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()

		bucket := int(sum % uint64(l.dimension))
		sign := float32(1)
		if (sum>>32)&1 == 1 {
			sign = -1
		}
		vec[bucket] += sign
	}

	normalize(vec)
	return vec, nil
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make([]string, 0, len(fields)*2)
	prev := ""
	for _, field := range fields {
		tokens = append(tokens, field)
		if prev != "" {
			tokens = append(tokens, prev+" "+field)
		}
		prev = field
	}
	return tokens
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		// Zero-input texts still need a valid unit vector.
		vec[0] = 1
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
