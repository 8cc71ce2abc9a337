// ABOUTME: Deterministic offline embedder using feature hashing over word tokens
// ABOUTME: Needs no network or API key; suited to tests, demos and air-gapped use
package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/harper/docchat/internal/models"
)

// DefaultHashDimension is the vector size used when none is configured
const DefaultHashDimension = 256

var hashStopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "did": {}, "do": {}, "does": {},
	"for": {}, "her": {}, "his": {}, "in": {}, "is": {}, "it": {}, "of": {},
	"on": {}, "she": {}, "he": {}, "the": {}, "to": {}, "was": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "who": {}, "with": {},
}

// HashEmbedder maps text to vectors by hashing each token into a bucket
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates an embedder producing vectors of the given size
func NewHashEmbedder(dimension int) (*HashEmbedder, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("hash embedder dimension must be positive, got %d", dimension)
	}
	return &HashEmbedder{dimension: dimension}, nil
}

// Space identifies the hash space; different dimensions are different spaces
func (h *HashEmbedder) Space(ctx context.Context) (models.EmbeddingSpace, error) {
	return models.EmbeddingSpace{Model: fmt.Sprintf("hash/fnv-%d", h.dimension), Dimension: h.dimension}, nil
}

// Embed returns the unit-length hashed vector for text
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.vector(text), nil
}

// EmbedMany embeds each text in order
func (h *HashEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, h.dimension)
	for _, tok := range hashTokens(text) {
		f := fnv.New32a()
		_, _ = f.Write([]byte(tok))
		sum := f.Sum32()
		bucket := int(sum % uint32(h.dimension))
		if sum&(1<<31) != 0 {
			v[bucket]--
		} else {
			v[bucket]++
		}
	}
	return models.Normalize(v)
}

func hashTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if _, stop := hashStopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
