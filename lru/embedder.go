// Package lru provides an in-memory cache in front of a docindex.Embedder.
package lru

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/fwojciec/docindex"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the number of vectors kept when no size is given.
const DefaultSize = 1024

// Ensure CachedEmbedder implements docindex.Embedder at compile time.
var _ docindex.Embedder = (*CachedEmbedder)(nil)

// CachedEmbedder memoizes vectors by model and text. Only cache misses
// reach the wrapped embedder, in one batch per call.
type CachedEmbedder struct {
	embedder docindex.Embedder
	cache    *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps e with an LRU cache of size entries.
func NewCachedEmbedder(e docindex.Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, docindex.Errorf(docindex.EINVALID, "create embedding cache: %v", err)
	}
	return &CachedEmbedder{embedder: e, cache: cache}, nil
}

func (c *CachedEmbedder) Dimensions() int { return c.embedder.Dimensions() }

func (c *CachedEmbedder) Model() string { return c.embedder.Model() }

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len() int { return c.cache.Len() }

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	model := c.embedder.Model()
	out := make([][]float32, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if vec, ok := c.cache.Get(cacheKey(model, text)); ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.embedder.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, docindex.Errorf(docindex.EINTERNAL, "embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, vec := range vecs {
		out[missIdx[j]] = vec
		c.cache.Add(cacheKey(model, missTexts[j]), vec)
	}
	return out, nil
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text + "\x00" + model))
	return hex.EncodeToString(sum[:])
}
