package docindex

import "context"

// SearchOptions configures one query.
type SearchOptions struct {
	// K is the maximum number of results.
	K int `json:"k"`

	// MinScore drops results scoring below it.
	MinScore float32 `json:"min_score"`

	// Hybrid blends lexical and vector scores.
	Hybrid bool `json:"hybrid"`
}

// SearchResult represents a search match.
type SearchResult struct {
	Score   float32 `json:"score"`
	Title   string  `json:"title"`
	Source  string  `json:"source"`
	Snippet string  `json:"snippet"`
	ChunkID string  `json:"chunk_id"`
}

// Searcher answers queries against the committed index. Searchers fail
// closed: any internal failure yields an empty result rather than an error.
type Searcher interface {
	Search(ctx context.Context, query string, opts SearchOptions) []*SearchResult
}

// LexicalHit is one lexical match in engine rank order.
type LexicalHit struct {
	ChunkID string
	Score   float64
}

// LexicalIndex is a term-based index over chunk records.
type LexicalIndex interface {
	// Search returns up to n hits in rank order.
	Search(ctx context.Context, query string, n int) ([]LexicalHit, error)

	// Len returns the number of indexed records.
	Len() int

	Close() error
}

// LexicalBuilder builds a lexical index over records.
type LexicalBuilder interface {
	BuildLexical(ctx context.Context, records []*ChunkRecord) (LexicalIndex, error)
}
