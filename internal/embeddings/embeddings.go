// Package embeddings provides the text-to-vector function backing semantic
// context search.
package embeddings

import (
	"context"
	"fmt"
	"math"
)

// Provider defines the interface for embedding providers.
type Provider interface {
	// Embed generates an embedding for a single text. Deterministic for a
	// given input.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name returns the provider name.
	Name() string

	// Dimension returns the embedding dimension.
	Dimension() int
}

// Validate checks a provider result for programming errors: wrong dimension
// or non-finite components.
func Validate(vec []float32, want int) error {
	if len(vec) != want {
		return fmt.Errorf("embedding dimension %d, want %d", len(vec), want)
	}
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("embedding component %d is not finite", i)
		}
	}
	return nil
}
