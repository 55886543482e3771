// Package prometheus records pipeline metrics with
// github.com/prometheus/client_golang and writes them in the text
// exposition format for the node exporter's textfile collector.
package prometheus

import (
	"github.com/fwojciec/docindex/crawl"
	"github.com/fwojciec/docindex/indexer"
	"github.com/fwojciec/docindex/parse"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	FetchesTotal      *prometheus.CounterVec
	ParsedTotal       *prometheus.CounterVec
	ChunksTotal       prometheus.Counter
	IndexChangesTotal *prometheus.CounterVec
	IndexCommitsTotal prometheus.Counter
	IndexVectors      prometheus.Gauge
	SearchesTotal     *prometheus.CounterVec
	SearchLatency     prometheus.Histogram
	SearchResults     prometheus.Histogram
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		FetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docindex_fetches_total",
				Help: "URLs processed by the fetcher by terminal state.",
			},
			[]string{"state"},
		),
		ParsedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docindex_parse_documents_total",
				Help: "Documents handled by the parser by outcome (parsed, failed, deleted).",
			},
			[]string{"outcome"},
		),
		ChunksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docindex_parse_chunks_total",
				Help: "Chunk records written by the parser.",
			},
		),
		IndexChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docindex_index_vectors_changed_total",
				Help: "Vectors added to or removed from the index.",
			},
			[]string{"op"},
		),
		IndexCommitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docindex_index_commits_total",
				Help: "Index snapshots committed.",
			},
		),
		IndexVectors: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docindex_index_vectors",
				Help: "Vectors in the most recently built index.",
			},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docindex_searches_total",
				Help: "Search queries by result type (hit, zero_result).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docindex_search_latency_seconds",
				Help:    "Search latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		SearchResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docindex_search_results",
				Help:    "Results returned per search query.",
				Buckets: []float64{0, 1, 3, 5, 10, 25},
			},
		),
	}
	m.Registry.MustRegister(
		m.FetchesTotal,
		m.ParsedTotal,
		m.ChunksTotal,
		m.IndexChangesTotal,
		m.IndexCommitsTotal,
		m.IndexVectors,
		m.SearchesTotal,
		m.SearchLatency,
		m.SearchResults,
	)
	return m
}

// CrawlProgress counts each URL reaching a terminal state. It has the
// crawl.ProgressFunc signature.
func (m *Metrics) CrawlProgress(event crawl.ProgressEvent) {
	switch event.Type {
	case crawl.ProgressCompleted, crawl.ProgressFailed:
		m.FetchesTotal.WithLabelValues(string(event.State)).Inc()
	}
}

// ObserveParse records the outcome of a parse pass.
func (m *Metrics) ObserveParse(r *parse.Result) {
	m.ParsedTotal.WithLabelValues("parsed").Add(float64(r.Parsed))
	m.ParsedTotal.WithLabelValues("failed").Add(float64(r.Failed))
	m.ParsedTotal.WithLabelValues("deleted").Add(float64(r.Deleted))
	m.ChunksTotal.Add(float64(r.Chunks))
}

// ObserveIndex records the outcome of an indexing pass.
func (m *Metrics) ObserveIndex(r *indexer.Result) {
	m.IndexChangesTotal.WithLabelValues("added").Add(float64(r.Added))
	m.IndexChangesTotal.WithLabelValues("removed").Add(float64(r.Removed))
	m.IndexVectors.Set(float64(r.Total))
	if r.Committed {
		m.IndexCommitsTotal.Inc()
	}
}

// WriteToTextfile writes every metric to path atomically.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
