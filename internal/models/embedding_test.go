// ABOUTME: Tests for EmbeddingSpace validation and vector helpers
// ABOUTME: Verifies dimension checks, cosine similarity and normalization
package models

import (
	"math"
	"strings"
	"testing"
)

func TestEmbeddingSpace_ValidateVector(t *testing.T) {
	space := EmbeddingSpace{Model: "text-embedding-3-small", Dimension: 4}

	tests := []struct {
		name        string
		vector      []float32
		wantErr     bool
		errContains string
	}{
		{name: "match", vector: []float32{0.1, 0.2, 0.3, 0.4}},
		{name: "empty", vector: []float32{}, wantErr: true, errContains: "cannot be empty"},
		{name: "nil", vector: nil, wantErr: true, errContains: "cannot be empty"},
		{name: "too short", vector: []float32{0.1, 0.2}, wantErr: true, errContains: "dimension mismatch"},
		{name: "too long", vector: make([]float32, 6), wantErr: true, errContains: "dimension mismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := space.ValidateVector(tt.vector)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateVector() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("ValidateVector() error = %q, want to contain %q", err, tt.errContains)
			}
		})
	}
}

func TestEmbeddingSpace_Validate(t *testing.T) {
	if err := (EmbeddingSpace{Model: "m", Dimension: 3}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := (EmbeddingSpace{Dimension: 3}).Validate(); err == nil {
		t.Error("Validate() accepted an empty model")
	}
	if err := (EmbeddingSpace{Model: "m"}).Validate(); err == nil {
		t.Error("Validate() accepted a zero dimension")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 0}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("Normalize() = %v, want [0.6 0.8]", v)
	}
	zero := Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("Normalize(zero) = %v", zero)
	}
}
