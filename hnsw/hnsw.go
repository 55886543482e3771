// Package hnsw provides the vector index on top of github.com/coder/hnsw.
//
// Vectors are expected to be unit length; scores are inner products.
// Deletions are lazy: the graph keeps removed nodes until the next
// compaction, which runs before a key is re-added and before export.
// Deleting nodes from the graph directly is avoided because removing the
// last node breaks the graph.
package hnsw

import (
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/fwojciec/docindex"
)

// Graph parameters.
const (
	DefaultM        = 16
	DefaultEfSearch = 64
	defaultMl       = 0.25
)

// Ensure Index implements docindex.VectorIndex at compile time.
var _ docindex.VectorIndex = (*Index)(nil)

// Index is an HNSW vector index keyed by int64 vector ids.
// It is safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	dim      int
	m        int
	efSearch int
	graph    *hnsw.Graph[int64]
	vectors  map[int64][]float32
	orphans  map[int64]struct{}
}

// NewIndex creates an empty index of dim dimensions.
func NewIndex(dim, m, efSearch int) *Index {
	if m <= 0 {
		m = DefaultM
	}
	if efSearch <= 0 {
		efSearch = DefaultEfSearch
	}
	return &Index{
		dim:      dim,
		m:        m,
		efSearch: efSearch,
		graph:    newGraph(m, efSearch),
		vectors:  make(map[int64][]float32),
		orphans:  make(map[int64]struct{}),
	}
}

func newGraph(m, efSearch int) *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.Distance = hnsw.CosineDistance
	g.M = m
	g.EfSearch = efSearch
	g.Ml = defaultMl
	return g
}

// Dim returns the vector dimension.
func (x *Index) Dim() int { return x.dim }

// Len returns the number of live vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Add inserts vec under id, replacing any previous vector for id.
func (x *Index) Add(id int64, vec []float32) error {
	if len(vec) != x.dim {
		return docindex.Errorf(docindex.EDIMENSION, "vector has %d dimensions, index has %d", len(vec), x.dim)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	_, live := x.vectors[id]
	_, orphan := x.orphans[id]
	if live || orphan {
		delete(x.vectors, id)
		x.compact()
	}

	v := append([]float32(nil), vec...)
	x.vectors[id] = v
	x.graph.Add(hnsw.MakeNode(id, v))
	return nil
}

// Remove deletes id. The graph node is dropped at the next compaction.
func (x *Index) Remove(id int64) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.vectors[id]; !ok {
		return false
	}
	delete(x.vectors, id)
	x.orphans[id] = struct{}{}
	return true
}

// Search returns up to k live vectors nearest to query, by descending
// inner product.
func (x *Index) Search(query []float32, k int) ([]docindex.VectorHit, error) {
	if len(query) != x.dim {
		return nil, docindex.Errorf(docindex.EDIMENSION, "query has %d dimensions, index has %d", len(query), x.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.vectors) == 0 || x.graph.Len() == 0 {
		return []docindex.VectorHit{}, nil
	}

	nodes := x.graph.Search(query, k+len(x.orphans))
	hits := make([]docindex.VectorHit, 0, len(nodes))
	for _, node := range nodes {
		vec, ok := x.vectors[node.Key]
		if !ok {
			continue
		}
		hits = append(hits, docindex.VectorHit{ID: node.Key, Score: docindex.Dot(query, vec)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
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

// Vector returns the stored vector for id.
func (x *Index) Vector(id int64) ([]float32, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	v, ok := x.vectors[id]
	return v, ok
}

// Compact rebuilds the graph from live vectors.
func (x *Index) Compact() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.compact()
}

// compact rebuilds the graph in ascending id order. Caller holds mu.
func (x *Index) compact() {
	g := newGraph(x.m, x.efSearch)
	for _, id := range x.ids() {
		g.Add(hnsw.MakeNode(id, x.vectors[id]))
	}
	x.graph = g
	x.orphans = make(map[int64]struct{})
}

// ids returns live ids in ascending order. Caller holds mu.
func (x *Index) ids() []int64 {
	ids := make([]int64, 0, len(x.vectors))
	for id := range x.vectors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
