// ABOUTME: EmbeddingSpace pins the model and dimension an index was built with
// ABOUTME: Vector helpers shared by index backends and local embedders
package models

import (
	"fmt"
	"math"
)

// EmbeddingSpace identifies the vector space of an index.
// Vectors from different spaces are never comparable.
type EmbeddingSpace struct {
	Model     string `json:"model" yaml:"model"`
	Dimension int    `json:"dimension" yaml:"dimension"`
}

// Validate checks that the space is fully specified.
func (s EmbeddingSpace) Validate() error {
	if s.Model == "" {
		return fmt.Errorf("embedding model cannot be empty")
	}
	if s.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", s.Dimension)
	}
	return nil
}

func (s EmbeddingSpace) String() string {
	return fmt.Sprintf("%s/%d", s.Model, s.Dimension)
}

// ValidateVector checks a vector against the space's dimension.
func (s EmbeddingSpace) ValidateVector(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("embedding vector cannot be empty")
	}
	if len(v) != s.Dimension {
		return fmt.Errorf("dimension mismatch: expected %d, got %d", s.Dimension, len(v))
	}
	return nil
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize scales v to unit length in place and returns it.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
