package slog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/mock"
	dislog "github.com/fwojciec/docindex/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("logs type, sizes and duration", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Extractor{
			ExtractFn: func(raw []byte) (*docindex.ExtractResult, error) {
				return &docindex.ExtractResult{Title: "T", Text: "申請書"}, nil
			},
		}

		ex := dislog.NewLoggingExtractor(inner, docindex.ContentTypeHTML, debugLogger(&buf))
		result, err := ex.Extract([]byte("<p>申請書</p>"))

		require.NoError(t, err)
		assert.Equal(t, "T", result.Title)
		output := buf.String()
		assert.Contains(t, output, "msg=extract")
		assert.Contains(t, output, "type=html")
		assert.Contains(t, output, "chars=3")
		assert.Contains(t, output, "duration=")
	})

	t.Run("wraps a whole extractor set", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Extractor{
			ExtractFn: func(raw []byte) (*docindex.ExtractResult, error) {
				return nil, docindex.Errorf(docindex.EPARSE, "no text layer")
			},
		}

		set := dislog.LoggingExtractors(docindex.Extractors{docindex.ContentTypePDF: inner}, debugLogger(&buf))
		ex, err := set.For(docindex.ContentTypePDF)
		require.NoError(t, err)
		_, err = ex.Extract([]byte("%PDF"))

		assert.Equal(t, docindex.EPARSE, docindex.ErrorCode(err))
		assert.Contains(t, buf.String(), "type=pdf")
		assert.Contains(t, buf.String(), "no text layer")
	})
}

func TestLoggingEmbedder(t *testing.T) {
	t.Parallel()

	t.Run("logs batch size and delegates", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Embedder{
			EmbedFn: func(ctx context.Context, texts []string) ([][]float32, error) {
				return [][]float32{{1, 0}, {0, 1}}, nil
			},
			DimensionsFn: func() int { return 2 },
			ModelFn:      func() string { return "test-model" },
		}

		e := dislog.NewLoggingEmbedder(inner, debugLogger(&buf))
		vecs, err := e.Embed(context.Background(), []string{"a", "b"})

		require.NoError(t, err)
		assert.Len(t, vecs, 2)
		assert.Equal(t, 2, e.Dimensions())
		assert.Equal(t, "test-model", e.Model())
		output := buf.String()
		assert.Contains(t, output, "msg=embed")
		assert.Contains(t, output, "model=test-model")
		assert.Contains(t, output, "count=2")
	})

	t.Run("logs error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Embedder{
			EmbedFn: func(ctx context.Context, texts []string) ([][]float32, error) {
				return nil, errors.New("quota exceeded")
			},
			DimensionsFn: func() int { return 2 },
		}

		_, err := dislog.NewLoggingEmbedder(inner, debugLogger(&buf)).Embed(context.Background(), []string{"a"})

		require.Error(t, err)
		assert.Contains(t, buf.String(), "err=\"quota exceeded\"")
	})
}

func TestLoggingSearcher_Search(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	inner := &mock.Searcher{
		SearchFn: func(ctx context.Context, query string, opts docindex.SearchOptions) []*docindex.SearchResult {
			return []*docindex.SearchResult{{Score: 0.75, ChunkID: "c1"}}
		},
	}

	s := dislog.NewLoggingSearcher(inner, slog.New(slog.NewTextHandler(&buf, nil)))
	results := s.Search(context.Background(), "pension", docindex.SearchOptions{K: 3, MinScore: 0.2, Hybrid: true})

	require.Len(t, results, 1)
	output := buf.String()
	assert.Contains(t, output, "msg=search")
	assert.Contains(t, output, "query=pension")
	assert.Contains(t, output, "k=3")
	assert.Contains(t, output, "hybrid=true")
	assert.Contains(t, output, "count=1")
	assert.Contains(t, output, "top_score=0.75")
}
