package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/bleve"
	"github.com/fwojciec/docindex/crawl"
	"github.com/fwojciec/docindex/flock"
	"github.com/fwojciec/docindex/fs"
	"github.com/fwojciec/docindex/gemini"
	"github.com/fwojciec/docindex/goquery"
	"github.com/fwojciec/docindex/hnsw"
	dihttp "github.com/fwojciec/docindex/http"
	"github.com/fwojciec/docindex/indexer"
	"github.com/fwojciec/docindex/lru"
	"github.com/fwojciec/docindex/parse"
	"github.com/fwojciec/docindex/pdf"
	"github.com/fwojciec/docindex/prometheus"
	"github.com/fwojciec/docindex/search"
	dislog "github.com/fwojciec/docindex/slog"
	"github.com/fwojciec/docindex/sqlite"
	"github.com/fwojciec/docindex/trafilatura"
	"github.com/fwojciec/docindex/xxhash"
	"github.com/fwojciec/docindex/yaml"
	"google.golang.org/genai"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Getenv reads configuration overrides and the Gemini API key.
	Getenv func(string) string

	// Stdin feeds interactive search.
	Stdin io.Reader

	Config  *docindex.Config
	DB      *sqlite.DB
	Lock    *flock.Lock
	Engine  *search.Engine
	Metrics *prometheus.Metrics
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		Getenv: os.Getenv,
		Stdin:  os.Stdin,
	}
}

// Close releases the index snapshot, the database and the writer lock.
func (m *Main) Close() error {
	var errs []error
	if m.Engine != nil {
		errs = append(errs, m.Engine.Close())
	}
	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}
	if m.Lock != nil {
		errs = append(errs, m.Lock.Release())
	}
	return errors.Join(errs...)
}

// Run executes the CLI with the given arguments. Errors are printed to
// stderr before they are returned.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Stdin:  m.Stdin,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("docindex"),
		kong.Description("Incremental document indexing and search."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'docindex --help' to see available commands")
	}

	if cmd := args[0]; cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return err
	}
	defer m.Close()

	err = m.wire(ctx, cli, strings.Fields(kongCtx.Command())[0], deps)
	if err == nil {
		err = kongCtx.Run(deps)
	}
	if m.Config != nil && m.Config.Metrics != "" && m.Metrics != nil {
		if werr := m.Metrics.WriteToTextfile(m.Config.Metrics); werr != nil {
			fmt.Fprintf(stderr, "warning: writing metrics: %s\n", werr)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}
	return nil
}

// wire builds the services the named command needs.
func (m *Main) wire(ctx context.Context, cli *CLI, cmd string, deps *Dependencies) error {
	cfg, err := m.loadConfig(cli)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, deps.Stderr)
	if err != nil {
		return err
	}
	m.Config = cfg
	m.Metrics = prometheus.New()
	deps.Config = cfg
	deps.Logger = logger
	deps.Metrics = m.Metrics

	switch cmd {
	case "fetch", "parse", "embed", "run":
		lock, err := flock.Acquire(cfg.LockPath())
		if err != nil {
			return err
		}
		m.Lock = lock
	}

	manifests := fs.NewManifestStore(cfg.ManifestPath())
	raw := fs.NewRawStore(cfg.RawDir())
	store := fs.NewIndexStore(cfg.DBDir(), hnsw.NewCodec())
	deps.Index = store

	switch cmd {
	case "fetch":
		applyFetchFlags(cfg, &cli.Fetch)
		deps.Crawler = newCrawler(cfg, manifests, raw, logger)
		return nil
	case "run":
		applyFetchFlags(cfg, &cli.Run.FetchCmd)
		deps.Crawler = newCrawler(cfg, manifests, raw, logger)
	}

	if err := os.MkdirAll(cfg.DBDir(), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", cfg.DBDir(), err)
	}
	m.DB = sqlite.NewDB(cfg.CorpusPath())
	if err := m.DB.Open(); err != nil {
		return fmt.Errorf("failed to open database at %q: %w", cfg.CorpusPath(), err)
	}
	corpus := sqlite.NewCorpusService(m.DB)
	deps.Corpus = corpus

	if cmd == "parse" || cmd == "run" {
		deps.Parser = &parse.Parser{
			Manifests:    manifests,
			Raw:          raw,
			Corpus:       corpus,
			Extractors:   dislog.LoggingExtractors(newExtractors(cfg.Parse), logger),
			ChunkSize:    cfg.Parse.ChunkSize,
			ChunkOverlap: cfg.Parse.ChunkOverlap,
			Logger:       logger,
		}
	}

	if cmd == "embed" || cmd == "run" {
		embedder, err := m.newEmbedder(ctx, cfg.Embed, false)
		if err != nil {
			return err
		}
		deps.Indexer = &indexer.Indexer{
			Store:     store,
			Corpus:    corpus,
			Embedder:  dislog.NewLoggingEmbedder(embedder, logger),
			Manifests: manifests,
			BatchSize: cfg.Embed.BatchSize,
			Logger:    logger,
		}
	}

	if cmd == "search" {
		if cli.Search.Model != "" {
			if err := applyModel(&cfg.Embed, cli.Search.Model); err != nil {
				return err
			}
		}
		embedder, err := m.newEmbedder(ctx, cfg.Embed, true)
		if err != nil {
			return err
		}
		cached, err := lru.NewCachedEmbedder(dislog.NewLoggingEmbedder(embedder, logger), cfg.Embed.CacheSize)
		if err != nil {
			return err
		}
		m.Engine = &search.Engine{
			Store:    store,
			Corpus:   corpus,
			Embedder: cached,
			Config:   cfg.Search,
			Logger:   logger,
		}
		if cli.Search.Hybrid || cfg.Search.Hybrid {
			m.Engine.Lexical = bleve.Builder{}
		}
		deps.Engine = m.Engine
		deps.Searcher = dislog.NewLoggingSearcher(prometheus.NewSearcher(m.Engine, m.Metrics), logger)
		if cli.Search.Query == "" {
			deps.WatchDir = cfg.DBDir()
		}
	}
	return nil
}

// loadConfig reads the config file and environment, then applies the
// global flags.
func (m *Main) loadConfig(cli *CLI) (*docindex.Config, error) {
	cfg, err := yaml.LoadConfig(cli.Config, m.Getenv)
	if err != nil {
		return nil, err
	}
	if cli.DataDir != "" {
		cfg.DataDir = cli.DataDir
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Log.Format = cli.LogFormat
	}
	if cli.MetricsFile != "" {
		cfg.Metrics = cli.MetricsFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFetchFlags(cfg *docindex.Config, c *FetchCmd) {
	if c.MaxPerDomain > 0 {
		cfg.Crawl.MaxPerDomain = c.MaxPerDomain
	}
	if c.Concurrency > 0 {
		cfg.Crawl.Concurrency = c.Concurrency
	}
	if c.IgnoreRobots {
		cfg.Crawl.IgnoreRobots = true
	}
	if c.Discover {
		cfg.Crawl.Discover = true
	}
}

// applyModel parses a --model value: static, gemini or gemini:<name>.
func applyModel(cfg *docindex.EmbedConfig, model string) error {
	provider, name, _ := strings.Cut(model, ":")
	switch provider {
	case docindex.ProviderStatic:
		cfg.Provider = docindex.ProviderStatic
		cfg.Model = ""
	case docindex.ProviderGemini:
		cfg.Provider = docindex.ProviderGemini
		cfg.Model = name
	default:
		return docindex.Errorf(docindex.EINVALID, "unknown model %q; use static, gemini or gemini:<name>", model)
	}
	return nil
}

func newLogger(cfg docindex.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, docindex.Errorf(docindex.EINVALID, "unknown log level %q", cfg.Level)
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func newCrawler(cfg *docindex.Config, manifests docindex.ManifestStore, raw docindex.RawStore, logger *slog.Logger) *crawl.Crawler {
	fetcher := dihttp.NewFetcher(
		dihttp.WithTimeout(cfg.Crawl.Timeout),
		dihttp.WithUserAgent(cfg.Crawl.UserAgent),
		dihttp.WithMaxBodyBytes(cfg.Crawl.MaxBodyBytes),
	)
	c := &crawl.Crawler{
		Fetcher:      dislog.NewLoggingFetcher(fetcher, logger),
		Manifests:    manifests,
		Raw:          raw,
		RateLimiter:  crawl.NewDomainLimiter(cfg.Crawl.MinDelay),
		Logger:       logger,
		Concurrency:  cfg.Crawl.Concurrency,
		MaxPerDomain: cfg.Crawl.MaxPerDomain,
		RetryDelays:  cfg.Crawl.RetryDelays,
	}
	if !cfg.Crawl.IgnoreRobots {
		c.Robots = dihttp.NewRobotsService(nil, cfg.Crawl.UserAgent)
	}
	if cfg.Crawl.Discover {
		c.Discoverer = &crawl.Discoverer{Raw: raw, Links: goquery.NewLinkExtractor()}
	}
	return c
}

func newExtractors(cfg docindex.ParseConfig) docindex.Extractors {
	var html docindex.Extractor = goquery.NewExtractor()
	if cfg.HTMLExtractor == docindex.HTMLExtractorTrafilatura {
		html = trafilatura.NewExtractor()
	}
	return docindex.Extractors{
		docindex.ContentTypeHTML: html,
		docindex.ContentTypePDF:  pdf.NewExtractor(),
	}
}

// newEmbedder returns the configured embedder. Gemini embedders embed
// queries with the query task type when queries is set.
func (m *Main) newEmbedder(ctx context.Context, cfg docindex.EmbedConfig, queries bool) (docindex.Embedder, error) {
	if cfg.Provider != docindex.ProviderGemini {
		return xxhash.NewEmbedder(cfg.Dimensions), nil
	}

	apiKey := m.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, docindex.Errorf(docindex.EINVALID, "GEMINI_API_KEY not set. Get a key at https://aistudio.google.com/apikey")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
	}
	e := gemini.NewEmbedder(client, cfg.Model, cfg.Dimensions)
	if queries {
		return e.ForQueries(), nil
	}
	return e, nil
}
