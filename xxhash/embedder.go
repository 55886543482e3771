// Package xxhash provides a deterministic, offline embedder that hashes
// lexical features into a fixed number of dimensions.
//
// It needs no model or network access, so it backs local runs and tests.
// Similarity reflects shared terms (words, and character bigrams for
// Japanese and Chinese text), not meaning.
package xxhash

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/docindex"
)

// DefaultDimensions is the vector size used when none is configured.
const DefaultDimensions = 384

// Ensure Embedder implements docindex.Embedder at compile time.
var _ docindex.Embedder = (*Embedder)(nil)

// Embedder is a feature-hashing embedder.
type Embedder struct {
	dim int
}

// NewEmbedder creates an Embedder producing vectors of dim dimensions.
func NewEmbedder(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &Embedder{dim: dim}
}

// Dimensions returns the vector size.
func (e *Embedder) Dimensions() int { return e.dim }

// Model identifies the hashing scheme and size.
func (e *Embedder) Model() string { return fmt.Sprintf("xxhash-%d", e.dim) }

// Embed returns one unit vector per text. Texts without any terms map to
// the zero vector.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

func (e *Embedder) embed(text string) []float32 {
	v := make([]float32, e.dim)
	for _, term := range docindex.Terms(text) {
		h := xxhash.Sum64String(term)
		idx := h % uint64(e.dim)
		if h&(1<<63) != 0 {
			v[idx]--
		} else {
			v[idx]++
		}
	}
	docindex.NormalizeVector(v)
	return v
}
