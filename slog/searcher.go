package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docindex"
)

// Ensure LoggingSearcher implements docindex.Searcher.
var _ docindex.Searcher = (*LoggingSearcher)(nil)

// LoggingSearcher wraps a Searcher with query logging.
type LoggingSearcher struct {
	next   docindex.Searcher
	logger *slog.Logger
}

// NewLoggingSearcher creates a new LoggingSearcher.
func NewLoggingSearcher(next docindex.Searcher, logger *slog.Logger) *LoggingSearcher {
	return &LoggingSearcher{next: next, logger: logger}
}

// Search delegates to the wrapped searcher and logs the query.
func (s *LoggingSearcher) Search(ctx context.Context, query string, opts docindex.SearchOptions) (results []*docindex.SearchResult) {
	defer func(begin time.Time) {
		var top float32
		if len(results) > 0 {
			top = results[0].Score
		}
		s.logger.Info("search",
			"query", query,
			"k", opts.K,
			"min_score", opts.MinScore,
			"hybrid", opts.Hybrid,
			"count", len(results),
			"top_score", top,
			"duration", time.Since(begin),
		)
	}(time.Now())
	return s.next.Search(ctx, query, opts)
}
