// Package indexer keeps the vector index in step with the chunk corpus.
package indexer

import (
	"context"
	"log/slog"
	"slices"

	"github.com/fwojciec/docindex"
)

// DefaultBatchSize is the number of texts sent to the embedder per call.
const DefaultBatchSize = 64

// Indexer diffs the corpus against the committed snapshot, embeds what was
// added, removes what is gone and commits a new snapshot.
type Indexer struct {
	Store    docindex.IndexStore
	Corpus   docindex.CorpusService
	Embedder docindex.Embedder

	// Manifests is optional. When set, corpus documents that no manifest
	// entry references are reported as inconsistent and left out of the
	// index.
	Manifests docindex.ManifestStore

	BatchSize int
	Logger    *slog.Logger
}

// Result holds the outcome of an indexing pass.
type Result struct {
	Documents    int
	Added        int
	Removed      int
	Purged       int
	Inconsistent int
	Total        int
	Committed    bool
}

// Run performs one indexing pass. With rebuild set it starts from an empty
// index instead of the committed snapshot.
//
// Nothing is committed unless the whole pass succeeds, and nothing is
// committed when the pass changed nothing.
func (x *Indexer) Run(ctx context.Context, rebuild bool) (*Result, error) {
	state, fresh, err := x.state(ctx, rebuild)
	if err != nil {
		return nil, err
	}

	docs, err := x.Corpus.Documents(ctx)
	if err != nil {
		return nil, err
	}

	docs, inconsistent, err := x.live(ctx, docs)
	if err != nil {
		return nil, err
	}

	result := &Result{Documents: len(docs), Inconsistent: inconsistent}
	current := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current[doc.ID] = true
		added, removed, err := x.apply(ctx, state, doc)
		if err != nil {
			return nil, err
		}
		result.Added += added
		result.Removed += removed
	}

	for _, docID := range sortedKeys(state.Docs) {
		if current[docID] {
			continue
		}
		result.Removed += purge(state, docID)
		result.Purged++
		x.logger().Info("purged document", "doc_id", docID)
	}

	if err := state.Check(); err != nil {
		return nil, err
	}
	result.Total = state.Index.Len()

	if !fresh && result.Added == 0 && result.Removed == 0 && result.Purged == 0 {
		x.logger().Info("index unchanged", "vectors", result.Total)
		return result, nil
	}
	if err := x.Store.SaveState(ctx, state); err != nil {
		return nil, err
	}
	result.Committed = true
	x.logger().Info("index committed",
		"vectors", result.Total,
		"added", result.Added,
		"removed", result.Removed,
		"purged", result.Purged,
	)
	return result, nil
}

// state returns the state to mutate and whether it is new.
func (x *Indexer) state(ctx context.Context, rebuild bool) (*docindex.IndexState, bool, error) {
	dim, model := x.Embedder.Dimensions(), x.Embedder.Model()
	if rebuild {
		return x.Store.NewState(dim, model), true, nil
	}

	state, err := x.Store.LoadState(ctx)
	if docindex.ErrorCode(err) == docindex.ENOTFOUND {
		return x.Store.NewState(dim, model), true, nil
	} else if err != nil {
		return nil, false, err
	}

	if state.Index.Dim() != dim {
		return nil, false, docindex.Errorf(docindex.EDIMENSION,
			"index has %d dimensions, embedder produces %d; rerun with --rebuild", state.Index.Dim(), dim)
	}
	if state.Meta.Model != "" && state.Meta.Model != model {
		return nil, false, docindex.Errorf(docindex.EDIMENSION,
			"index was built with model %q, embedder is %q; rerun with --rebuild", state.Meta.Model, model)
	}
	return state, false, nil
}

// live drops documents that no manifest entry references.
func (x *Indexer) live(ctx context.Context, docs []*docindex.Document) ([]*docindex.Document, int, error) {
	if x.Manifests == nil {
		return docs, 0, nil
	}
	m, ok, err := x.Manifests.LoadManifest(ctx)
	if err != nil {
		return nil, 0, err
	} else if !ok {
		return docs, 0, nil
	}

	var inconsistent int
	kept := docs[:0:0]
	for _, doc := range docs {
		if m.HasDocID(doc.ID) {
			kept = append(kept, doc)
			continue
		}
		inconsistent++
		err := docindex.Errorf(docindex.EINCONSISTENT, "document %s (%s) has no live manifest entry", doc.ID, doc.URL)
		x.logger().Warn("skipping document", "doc_id", doc.ID, "url", doc.URL, "code", docindex.ErrorCode(err), "err", err)
	}
	return kept, inconsistent, nil
}

// apply brings the vectors of doc in line with its current chunks.
func (x *Indexer) apply(ctx context.Context, state *docindex.IndexState, doc *docindex.Document) (added, removed int, err error) {
	next := doc.ChunkIDs()
	prev := state.Docs[doc.ID]

	for _, chunkID := range prev {
		if slices.Contains(next, chunkID) {
			continue
		}
		if vid, ok := state.Release(chunkID); ok {
			state.Index.Remove(vid)
			removed++
		}
	}

	var pending []*docindex.Chunk
	for _, c := range doc.Chunks {
		if _, ok := state.IDs[c.ID]; ok {
			continue
		}
		pending = append(pending, c)
	}

	size := x.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	for start := 0; start < len(pending); start += size {
		batch := pending[start:min(start+size, len(pending))]
		if err := x.embed(ctx, state, batch); err != nil {
			return 0, 0, err
		}
		added += len(batch)
	}

	if len(next) == 0 {
		delete(state.Docs, doc.ID)
	} else {
		state.Docs[doc.ID] = next
	}
	return added, removed, nil
}

func (x *Indexer) embed(ctx context.Context, state *docindex.IndexState, batch []*docindex.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}
	vecs, err := x.Embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(vecs) != len(batch) {
		return docindex.Errorf(docindex.EINTERNAL, "embedder returned %d vectors for %d texts", len(vecs), len(batch))
	}

	dim := state.Index.Dim()
	for i, c := range batch {
		vec := vecs[i]
		if len(vec) != dim {
			return docindex.Errorf(docindex.EDIMENSION, "embedder returned %d dimensions, index has %d", len(vec), dim)
		}
		docindex.NormalizeVector(vec)
		if err := state.Index.Add(state.Assign(c.ID), vec); err != nil {
			return err
		}
	}
	return nil
}

// purge removes every vector of docID and returns how many were removed.
func purge(state *docindex.IndexState, docID string) int {
	var n int
	for _, chunkID := range state.Docs[docID] {
		if vid, ok := state.Release(chunkID); ok {
			state.Index.Remove(vid)
			n++
		}
	}
	delete(state.Docs, docID)
	return n
}

func sortedKeys(m docindex.DocChunkMap) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (x *Indexer) logger() *slog.Logger {
	if x.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return x.Logger
}
