package docindex

import (
	"path/filepath"
	"strings"
	"time"
)

// Config is the pipeline configuration.
type Config struct {
	DataDir string       `yaml:"data_dir"`
	Seeds   string       `yaml:"seeds"`
	Crawl   CrawlConfig  `yaml:"crawl"`
	Parse   ParseConfig  `yaml:"parse"`
	Embed   EmbedConfig  `yaml:"embed"`
	Search  SearchConfig `yaml:"search"`
	Log     LogConfig    `yaml:"log"`
	Metrics string       `yaml:"metrics_file"`
}

// CrawlConfig controls the fetcher.
type CrawlConfig struct {
	UserAgent    string          `yaml:"user_agent"`
	Timeout      time.Duration   `yaml:"timeout"`
	RetryDelays  []time.Duration `yaml:"retry_delays"`
	Concurrency  int             `yaml:"concurrency"`
	MaxPerDomain int             `yaml:"max_per_domain"`
	MinDelay     time.Duration   `yaml:"min_delay"`
	MaxBodyBytes int64           `yaml:"max_body_bytes"`
	IgnoreRobots bool            `yaml:"ignore_robots"`
	Discover     bool            `yaml:"discover"`
}

// ParseConfig controls extraction and chunking.
type ParseConfig struct {
	ChunkSize     int    `yaml:"chunk_size"`
	ChunkOverlap  int    `yaml:"chunk_overlap"`
	HTMLExtractor string `yaml:"html_extractor"`
}

// EmbedConfig selects the embedder.
type EmbedConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	CacheSize  int    `yaml:"cache_size"`
}

// SearchConfig holds query defaults and the hybrid blending policy.
type SearchConfig struct {
	K             int     `yaml:"k"`
	MinScore      float32 `yaml:"min_score"`
	Hybrid        bool    `yaml:"hybrid"`
	LexicalWeight float32 `yaml:"lexical_weight"`
	VectorWeight  float32 `yaml:"vector_weight"`
	CandidatePool int     `yaml:"candidate_pool"`
	SnippetChars  int     `yaml:"snippet_chars"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Embedding providers.
const (
	ProviderStatic = "static"
	ProviderGemini = "gemini"
)

// HTML extractor modes.
const (
	HTMLExtractorDOM         = "dom"
	HTMLExtractorTrafilatura = "trafilatura"
)

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "data",
		Seeds:   "seeds.json",
		Crawl: CrawlConfig{
			UserAgent:    "docindex/1.0 (+https://github.com/fwojciec/docindex)",
			Timeout:      30 * time.Second,
			RetryDelays:  []time.Duration{500 * time.Millisecond, time.Second},
			Concurrency:  4,
			MaxPerDomain: 50,
			MinDelay:     time.Second,
			MaxBodyBytes: 64 << 20,
		},
		Parse: ParseConfig{
			ChunkSize:     DefaultChunkSize,
			ChunkOverlap:  DefaultChunkOverlap,
			HTMLExtractor: HTMLExtractorDOM,
		},
		Embed: EmbedConfig{
			Provider:   ProviderStatic,
			Dimensions: 384,
			BatchSize:  64,
			CacheSize:  1024,
		},
		Search: SearchConfig{
			K:             5,
			MinScore:      0.2,
			LexicalWeight: 0.55,
			VectorWeight:  0.45,
			CandidatePool: 50,
			SnippetChars:  160,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate returns an error if the configuration is unusable.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return Errorf(EINVALID, "data_dir required")
	}
	if c.Parse.ChunkSize <= 0 {
		return Errorf(EINVALID, "chunk_size must be positive")
	}
	if c.Parse.ChunkOverlap < 0 || c.Parse.ChunkOverlap >= c.Parse.ChunkSize {
		return Errorf(EINVALID, "chunk_overlap must be in [0, chunk_size)")
	}
	switch c.Parse.HTMLExtractor {
	case HTMLExtractorDOM, HTMLExtractorTrafilatura:
	default:
		return Errorf(EINVALID, "unknown html_extractor %q", c.Parse.HTMLExtractor)
	}
	switch c.Embed.Provider {
	case ProviderStatic, ProviderGemini:
	default:
		return Errorf(EINVALID, "unknown embed provider %q", c.Embed.Provider)
	}
	if c.Embed.Dimensions <= 0 {
		return Errorf(EINVALID, "embed dimensions must be positive")
	}
	if c.Search.LexicalWeight < 0 || c.Search.VectorWeight < 0 || c.Search.LexicalWeight+c.Search.VectorWeight == 0 {
		return Errorf(EINVALID, "hybrid weights must be non-negative and not both zero")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return Errorf(EINVALID, "unknown log format %q", c.Log.Format)
	}
	return nil
}

// Data directory layout.

// RawDir is where fetched bodies are stored.
func (c *Config) RawDir() string { return filepath.Join(c.DataDir, "raw") }

// ManifestPath is the manifest file.
func (c *Config) ManifestPath() string { return filepath.Join(c.DataDir, "meta", "manifest.json") }

// DBDir holds the corpus database and index snapshots.
func (c *Config) DBDir() string { return filepath.Join(c.DataDir, "db") }

// CorpusPath is the SQLite chunk corpus.
func (c *Config) CorpusPath() string { return filepath.Join(c.DBDir(), "corpus.db") }

// LockPath is the writer lock file.
func (c *Config) LockPath() string { return filepath.Join(c.DataDir, ".lock") }
