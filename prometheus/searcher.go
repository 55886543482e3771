package prometheus

import (
	"context"
	"time"

	"github.com/fwojciec/docindex"
)

// Ensure Searcher implements docindex.Searcher at compile time.
var _ docindex.Searcher = (*Searcher)(nil)

// Searcher wraps a Searcher with latency and result metrics.
type Searcher struct {
	next    docindex.Searcher
	metrics *Metrics
}

// NewSearcher creates a new Searcher.
func NewSearcher(next docindex.Searcher, metrics *Metrics) *Searcher {
	return &Searcher{next: next, metrics: metrics}
}

// Search delegates to the wrapped searcher and records the query.
func (s *Searcher) Search(ctx context.Context, query string, opts docindex.SearchOptions) []*docindex.SearchResult {
	begin := time.Now()
	results := s.next.Search(ctx, query, opts)
	s.metrics.SearchLatency.Observe(time.Since(begin).Seconds())
	s.metrics.SearchResults.Observe(float64(len(results)))
	if len(results) == 0 {
		s.metrics.SearchesTotal.WithLabelValues("zero_result").Inc()
	} else {
		s.metrics.SearchesTotal.WithLabelValues("hit").Inc()
	}
	return results
}
