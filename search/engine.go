// Package search answers queries against the committed index snapshot.
package search

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fwojciec/docindex"
)

// Ensure Engine implements docindex.Searcher at compile time.
var _ docindex.Searcher = (*Engine)(nil)

// Engine is the query engine. It searches an immutable snapshot of the
// committed index, its chunk records and an optional lexical index.
// Reload replaces the snapshot atomically; searches already running keep
// the snapshot they started with.
type Engine struct {
	Store    docindex.IndexStore
	Corpus   docindex.CorpusService
	Embedder docindex.Embedder

	// Lexical builds the lexical index for hybrid queries. Without it,
	// hybrid queries are answered by vector search alone.
	Lexical docindex.LexicalBuilder

	Config docindex.SearchConfig
	Logger *slog.Logger

	snap atomic.Pointer[snapshot]
}

// snapshot is everything one query reads.
type snapshot struct {
	state    *docindex.IndexState
	records  map[string]*docindex.ChunkRecord
	lexical  docindex.LexicalIndex
	loadedAt time.Time
}

// Load reads the committed snapshot. It reports ENOTFOUND when nothing has
// been committed, EUNREADABLE when the snapshot is corrupt and EDIMENSION
// when the embedder does not match the index.
func (e *Engine) Load(ctx context.Context) error {
	snap, err := e.build(ctx)
	if err != nil {
		return err
	}
	e.swap(snap)
	return nil
}

// Reload builds a fresh snapshot and swaps it in. On failure the current
// snapshot stays in effect.
func (e *Engine) Reload(ctx context.Context) error {
	snap, err := e.build(ctx)
	if err != nil {
		e.logger().Warn("reload failed, keeping current snapshot", "code", docindex.ErrorCode(err), "err", err)
		return err
	}
	e.swap(snap)
	e.logger().Info("reloaded index", "vectors", snap.state.Index.Len())
	return nil
}

// Ready reports whether a snapshot is loaded.
func (e *Engine) Ready() bool {
	return e.snap.Load() != nil
}

// Len returns the number of vectors in the loaded snapshot.
func (e *Engine) Len() int {
	snap := e.snap.Load()
	if snap == nil {
		return 0
	}
	return snap.state.Index.Len()
}

// Close releases the loaded snapshot.
func (e *Engine) Close() error {
	snap := e.snap.Swap(nil)
	if snap == nil || snap.lexical == nil {
		return nil
	}
	return snap.lexical.Close()
}

func (e *Engine) swap(snap *snapshot) {
	// The previous lexical index is left to the garbage collector since
	// searches may still hold it.
	e.snap.Store(snap)
}

func (e *Engine) build(ctx context.Context) (*snapshot, error) {
	state, err := e.Store.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	if dim := e.Embedder.Dimensions(); state.Index.Dim() != dim {
		return nil, docindex.Errorf(docindex.EDIMENSION,
			"index has %d dimensions, query embedder produces %d", state.Index.Dim(), dim)
	}
	if model := e.Embedder.Model(); state.Meta.Model != "" && state.Meta.Model != model {
		return nil, docindex.Errorf(docindex.EDIMENSION,
			"index was built with model %q, query embedder is %q", state.Meta.Model, model)
	}
	// Snapshots are shared by concurrent searches and only read from here on.
	state.BuildLookup()

	all, err := e.Corpus.FindChunks(ctx, docindex.ChunkFilter{})
	if err != nil {
		return nil, err
	}
	records := make(map[string]*docindex.ChunkRecord, len(state.IDs))
	indexed := make([]*docindex.ChunkRecord, 0, len(state.IDs))
	for _, r := range all {
		if _, ok := state.IDs[r.ID]; ok {
			records[r.ID] = r
			indexed = append(indexed, r)
		}
	}
	if n := len(state.IDs) - len(records); n > 0 {
		e.logger().Warn("indexed chunks missing from corpus", "missing", n)
	}

	snap := &snapshot{state: state, records: records, loadedAt: time.Now()}
	if e.Lexical != nil {
		snap.lexical, err = e.Lexical.BuildLexical(ctx, indexed)
		if err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// Search returns up to opts.K results scoring at least opts.MinScore, best
// first. It never fails: any internal error is logged and yields no
// results.
func (e *Engine) Search(ctx context.Context, query string, opts docindex.SearchOptions) []*docindex.SearchResult {
	results, err := e.search(ctx, query, opts)
	if err != nil {
		e.logger().Warn("search failed", "query", query, "code", docindex.ErrorCode(err), "err", err)
		return []*docindex.SearchResult{}
	}
	return results
}

func (e *Engine) search(ctx context.Context, query string, opts docindex.SearchOptions) ([]*docindex.SearchResult, error) {
	snap := e.snap.Load()
	if snap == nil {
		return nil, docindex.Errorf(docindex.ENOTFOUND, "index not loaded")
	}
	if opts.K <= 0 {
		opts.K = e.Config.K
	}
	if opts.K <= 0 {
		opts.K = 5
	}

	qv, err := e.embedQuery(ctx, query, snap.state.Index.Dim())
	if err != nil {
		return nil, err
	}

	if opts.Hybrid && snap.lexical != nil {
		results, ok, err := e.hybrid(ctx, snap, query, qv, opts)
		if err != nil || ok {
			return results, err
		}
	}
	return e.vector(snap, qv, opts)
}

func (e *Engine) embedQuery(ctx context.Context, query string, dim int) ([]float32, error) {
	vecs, err := e.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, docindex.Errorf(docindex.EINTERNAL, "embedder returned %d vectors for one query", len(vecs))
	}
	if len(vecs[0]) != dim {
		return nil, docindex.Errorf(docindex.EDIMENSION, "query vector has %d dimensions, index has %d", len(vecs[0]), dim)
	}
	qv := append([]float32(nil), vecs[0]...)
	docindex.NormalizeVector(qv)
	return qv, nil
}

// vector answers a query by nearest-neighbour search alone.
func (e *Engine) vector(snap *snapshot, qv []float32, opts docindex.SearchOptions) ([]*docindex.SearchResult, error) {
	hits, err := snap.state.Index.Search(qv, opts.K)
	if err != nil {
		return nil, err
	}
	results := make([]*docindex.SearchResult, 0, len(hits))
	for _, h := range hits {
		if h.Score < opts.MinScore {
			continue
		}
		chunkID, ok := snap.state.ChunkID(h.ID)
		if !ok {
			continue
		}
		if r := e.result(snap, chunkID, h.Score); r != nil {
			results = append(results, r)
		}
	}
	return results, nil
}

// hybrid blends lexical and vector scores over the top lexical candidates.
// It reports false when the lexical index has no candidates, in which case
// the caller falls back to vector search.
func (e *Engine) hybrid(ctx context.Context, snap *snapshot, query string, qv []float32, opts docindex.SearchOptions) ([]*docindex.SearchResult, bool, error) {
	pool := max(e.Config.CandidatePool, opts.K)
	hits, err := snap.lexical.Search(ctx, query, pool)
	if err != nil {
		return nil, false, err
	}

	cands := make([]*candidate, 0, len(hits))
	for _, h := range hits {
		vid, ok := snap.state.IDs[h.ChunkID]
		if !ok {
			continue
		}
		vec, ok := snap.state.Index.Vector(vid)
		if !ok {
			continue
		}
		cands = append(cands, &candidate{
			chunkID: h.ChunkID,
			lexical: h.Score,
			vector:  float64(docindex.Dot(qv, vec)),
		})
	}
	if len(cands) == 0 {
		return nil, false, nil
	}

	lw, vw := e.Config.LexicalWeight, e.Config.VectorWeight
	if lw+vw <= 0 {
		lw, vw = DefaultLexicalWeight, DefaultVectorWeight
	}
	blend(cands, float64(lw), float64(vw))

	results := make([]*docindex.SearchResult, 0, opts.K)
	for _, c := range cands {
		if len(results) == opts.K {
			break
		}
		score := float32(c.score)
		if score < opts.MinScore {
			continue
		}
		if r := e.result(snap, c.chunkID, score); r != nil {
			results = append(results, r)
		}
	}
	return results, true, nil
}

func (e *Engine) result(snap *snapshot, chunkID string, score float32) *docindex.SearchResult {
	r, ok := snap.records[chunkID]
	if !ok {
		return nil
	}
	n := e.Config.SnippetChars
	if n <= 0 {
		n = DefaultSnippetChars
	}
	return &docindex.SearchResult{
		Score:   score,
		Title:   r.Title,
		Source:  r.Source(),
		Snippet: Snippet(r.Text, n),
		ChunkID: chunkID,
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}
