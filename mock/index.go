package mock

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/fwojciec/docindex"
)

var _ docindex.IndexStore = (*IndexStore)(nil)

// IndexStore is a mock implementation of docindex.IndexStore.
type IndexStore struct {
	NewStateFn  func(dim int, model string) *docindex.IndexState
	LoadStateFn func(ctx context.Context) (*docindex.IndexState, error)
	SaveStateFn func(ctx context.Context, s *docindex.IndexState) error
}

func (s *IndexStore) NewState(dim int, model string) *docindex.IndexState {
	if s.NewStateFn == nil {
		return docindex.NewIndexState(NewVectorIndex(dim), model)
	}
	return s.NewStateFn(dim, model)
}

func (s *IndexStore) LoadState(ctx context.Context) (*docindex.IndexState, error) {
	return s.LoadStateFn(ctx)
}

func (s *IndexStore) SaveState(ctx context.Context, state *docindex.IndexState) error {
	return s.SaveStateFn(ctx, state)
}

var _ docindex.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an exact in-memory docindex.VectorIndex for tests.
type VectorIndex struct {
	mu      sync.RWMutex
	dim     int
	vectors map[int64][]float32
}

// NewVectorIndex returns an empty index of dim dimensions.
func NewVectorIndex(dim int) *VectorIndex {
	return &VectorIndex{dim: dim, vectors: make(map[int64][]float32)}
}

func (v *VectorIndex) Dim() int { return v.dim }

func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.vectors)
}

func (v *VectorIndex) Add(id int64, vec []float32) error {
	if len(vec) != v.dim {
		return docindex.Errorf(docindex.EDIMENSION, "vector has %d dimensions, index has %d", len(vec), v.dim)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.vectors[id] = append([]float32(nil), vec...)
	return nil
}

func (v *VectorIndex) Remove(id int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.vectors[id]
	delete(v.vectors, id)
	return ok
}

func (v *VectorIndex) Search(query []float32, k int) ([]docindex.VectorHit, error) {
	if len(query) != v.dim {
		return nil, docindex.Errorf(docindex.EDIMENSION, "query has %d dimensions, index has %d", len(query), v.dim)
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	hits := make([]docindex.VectorHit, 0, len(v.vectors))
	for id, vec := range v.vectors {
		hits = append(hits, docindex.VectorHit{ID: id, Score: docindex.Dot(query, vec)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (v *VectorIndex) Vector(id int64) ([]float32, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	vec, ok := v.vectors[id]
	return vec, ok
}

var _ docindex.VectorCodec = (*VectorCodec)(nil)

// VectorCodec is a mock implementation of docindex.VectorCodec.
type VectorCodec struct {
	NewIndexFn    func(dim int) docindex.VectorIndex
	EncodeIndexFn func(w io.Writer, idx docindex.VectorIndex) error
	DecodeIndexFn func(r io.Reader) (docindex.VectorIndex, error)
}

func (c *VectorCodec) NewIndex(dim int) docindex.VectorIndex {
	return c.NewIndexFn(dim)
}

func (c *VectorCodec) EncodeIndex(w io.Writer, idx docindex.VectorIndex) error {
	return c.EncodeIndexFn(w, idx)
}

func (c *VectorCodec) DecodeIndex(r io.Reader) (docindex.VectorIndex, error) {
	return c.DecodeIndexFn(r)
}
