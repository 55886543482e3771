package docindex_test

import (
	"testing"

	"github.com/fwojciec/docindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, docindex.DefaultConfig().Validate())
	})

	t.Run("defaults carry the blending policy", func(t *testing.T) {
		t.Parallel()
		cfg := docindex.DefaultConfig()
		assert.InDelta(t, 0.55, cfg.Search.LexicalWeight, 1e-6)
		assert.InDelta(t, 0.45, cfg.Search.VectorWeight, 1e-6)
		assert.Equal(t, 50, cfg.Search.CandidatePool)
		assert.Equal(t, 900, cfg.Parse.ChunkSize)
		assert.Equal(t, 150, cfg.Parse.ChunkOverlap)
	})

	tests := []struct {
		name   string
		mutate func(*docindex.Config)
	}{
		{"empty data dir", func(c *docindex.Config) { c.DataDir = "" }},
		{"overlap not below size", func(c *docindex.Config) { c.Parse.ChunkOverlap = c.Parse.ChunkSize }},
		{"unknown extractor", func(c *docindex.Config) { c.Parse.HTMLExtractor = "regex" }},
		{"unknown provider", func(c *docindex.Config) { c.Embed.Provider = "openai" }},
		{"zero weights", func(c *docindex.Config) { c.Search.LexicalWeight, c.Search.VectorWeight = 0, 0 }},
		{"unknown log format", func(c *docindex.Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := docindex.DefaultConfig()
			tt.mutate(cfg)
			assert.Equal(t, docindex.EINVALID, docindex.ErrorCode(cfg.Validate()))
		})
	}
}
