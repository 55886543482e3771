package mock

import (
	"context"

	"github.com/fwojciec/docindex"
)

var _ docindex.Searcher = (*Searcher)(nil)

// Searcher is a mock implementation of docindex.Searcher.
type Searcher struct {
	SearchFn func(ctx context.Context, query string, opts docindex.SearchOptions) []*docindex.SearchResult
}

func (s *Searcher) Search(ctx context.Context, query string, opts docindex.SearchOptions) []*docindex.SearchResult {
	return s.SearchFn(ctx, query, opts)
}

var _ docindex.LexicalIndex = (*LexicalIndex)(nil)

// LexicalIndex is a mock implementation of docindex.LexicalIndex.
type LexicalIndex struct {
	SearchFn func(ctx context.Context, query string, n int) ([]docindex.LexicalHit, error)
	LenFn    func() int
	CloseFn  func() error
}

func (l *LexicalIndex) Search(ctx context.Context, query string, n int) ([]docindex.LexicalHit, error) {
	return l.SearchFn(ctx, query, n)
}

func (l *LexicalIndex) Len() int {
	if l.LenFn == nil {
		return 0
	}
	return l.LenFn()
}

func (l *LexicalIndex) Close() error {
	if l.CloseFn == nil {
		return nil
	}
	return l.CloseFn()
}

var _ docindex.LexicalBuilder = (*LexicalBuilder)(nil)

// LexicalBuilder is a mock implementation of docindex.LexicalBuilder.
type LexicalBuilder struct {
	BuildLexicalFn func(ctx context.Context, records []*docindex.ChunkRecord) (docindex.LexicalIndex, error)
}

func (b *LexicalBuilder) BuildLexical(ctx context.Context, records []*docindex.ChunkRecord) (docindex.LexicalIndex, error) {
	return b.BuildLexicalFn(ctx, records)
}
