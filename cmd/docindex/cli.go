package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/crawl"
	"github.com/fwojciec/docindex/indexer"
	"github.com/fwojciec/docindex/parse"
	"github.com/fwojciec/docindex/prometheus"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	Config  *docindex.Config
	Logger  *slog.Logger
	Metrics *prometheus.Metrics

	Crawler  *crawl.Crawler
	Parser   *parse.Parser
	Indexer  *indexer.Indexer
	Index    docindex.IndexStore
	Corpus   docindex.CorpusService
	Engine   Engine
	Searcher docindex.Searcher

	// WatchDir is watched for new index snapshots during interactive
	// search. Empty disables reloading.
	WatchDir string
}

// Engine loads and reloads the snapshot a Searcher answers from.
type Engine interface {
	Load(ctx context.Context) error
	Reload(ctx context.Context) error
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config      string `short:"c" help:"Path to a YAML config file" type:"path"`
	DataDir     string `help:"Data directory (overrides config)" type:"path"`
	LogLevel    string `help:"Log level: debug, info, warn or error"`
	LogFormat   string `help:"Log format: text or json"`
	MetricsFile string `help:"Write Prometheus metrics to this textfile on exit" type:"path"`

	Fetch  FetchCmd  `cmd:"" help:"Fetch seed URLs into the raw store"`
	Parse  ParseCmd  `cmd:"" help:"Extract and chunk fetched documents"`
	Embed  EmbedCmd  `cmd:"" help:"Embed new chunks and commit the vector index"`
	Run    RunCmd    `cmd:"" help:"Fetch, parse and embed in one go"`
	Search SearchCmd `cmd:"" help:"Query the index"`
	Audit  AuditCmd  `cmd:"" help:"Check the index against the chunk corpus"`
}

// FetchCmd is the "fetch" subcommand.
type FetchCmd struct {
	Seeds        string `help:"Seed list (JSON)" type:"path"`
	MaxPerDomain int    `help:"Per-domain URL budget for this run"`
	IgnoreRobots bool   `help:"Do not consult robots.txt"`
	Discover     bool   `help:"Follow links one hop from HTML seeds"`
	Concurrency  int    `short:"j" help:"Concurrent fetch limit"`
}

// ParseCmd is the "parse" subcommand.
type ParseCmd struct{}

// EmbedCmd is the "embed" subcommand.
type EmbedCmd struct {
	Rebuild bool `help:"Discard the committed index and embed everything"`
}

// RunCmd is the "run" subcommand.
type RunCmd struct {
	FetchCmd `embed:""`
	Rebuild  bool `help:"Discard the committed index and embed everything"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query    string   `arg:"" optional:"" help:"Query text; omit to read queries from stdin"`
	K        int      `short:"k" help:"Number of results"`
	MinScore *float32 `help:"Drop results scoring below this"`
	Model    string   `help:"Embedding model: static, gemini or gemini:<name>"`
	Hybrid   bool     `help:"Blend lexical and vector scores"`
	JSON     bool     `name:"json" help:"Print results as JSON"`
}

// AuditCmd is the "audit" subcommand.
type AuditCmd struct {
	JSON bool `name:"json" help:"Print the report as JSON"`
}
