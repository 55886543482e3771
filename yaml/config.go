// Package yaml loads the pipeline configuration from YAML files and the
// environment.
package yaml

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fwojciec/docindex"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOCINDEX_"

// LoadConfig returns the default configuration overlaid with the YAML file
// at path, when path is non-empty, and then with DOCINDEX_* variables read
// through getenv. Keys missing from the file keep their defaults. The
// result is validated.
func LoadConfig(path string, getenv func(string) string) (*docindex.Config, error) {
	cfg := docindex.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, docindex.Errorf(docindex.ENOTFOUND, "config file %s not found", path)
		} else if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, docindex.Errorf(docindex.EINVALID, "parsing config file %s: %v", path, err)
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies DOCINDEX_* overrides.
func applyEnv(cfg *docindex.Config, getenv func(string) string) error {
	strs := map[string]*string{
		"DATA_DIR":       &cfg.DataDir,
		"SEEDS":          &cfg.Seeds,
		"METRICS_FILE":   &cfg.Metrics,
		"USER_AGENT":     &cfg.Crawl.UserAgent,
		"HTML_EXTRACTOR": &cfg.Parse.HTMLExtractor,
		"EMBED_PROVIDER": &cfg.Embed.Provider,
		"EMBED_MODEL":    &cfg.Embed.Model,
		"LOG_LEVEL":      &cfg.Log.Level,
		"LOG_FORMAT":     &cfg.Log.Format,
	}
	for key, dst := range strs {
		if v := getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"CONCURRENCY":      &cfg.Crawl.Concurrency,
		"MAX_PER_DOMAIN":   &cfg.Crawl.MaxPerDomain,
		"CHUNK_SIZE":       &cfg.Parse.ChunkSize,
		"CHUNK_OVERLAP":    &cfg.Parse.ChunkOverlap,
		"EMBED_DIMENSIONS": &cfg.Embed.Dimensions,
		"SEARCH_K":         &cfg.Search.K,
	}
	for key, dst := range ints {
		v := getenv(EnvPrefix + key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return docindex.Errorf(docindex.EINVALID, "%s%s: %q is not an integer", EnvPrefix, key, v)
		}
		*dst = n
	}

	floats := map[string]*float32{
		"MIN_SCORE":      &cfg.Search.MinScore,
		"LEXICAL_WEIGHT": &cfg.Search.LexicalWeight,
		"VECTOR_WEIGHT":  &cfg.Search.VectorWeight,
	}
	for key, dst := range floats {
		v := getenv(EnvPrefix + key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return docindex.Errorf(docindex.EINVALID, "%s%s: %q is not a number", EnvPrefix, key, v)
		}
		*dst = float32(f)
	}

	if v := getenv(EnvPrefix + "MIN_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return docindex.Errorf(docindex.EINVALID, "%sMIN_DELAY: %v", EnvPrefix, err)
		}
		cfg.Crawl.MinDelay = d
	}
	if v := getenv(EnvPrefix + "IGNORE_ROBOTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return docindex.Errorf(docindex.EINVALID, "%sIGNORE_ROBOTS: %q is not a boolean", EnvPrefix, v)
		}
		cfg.Crawl.IgnoreRobots = b
	}
	return nil
}
