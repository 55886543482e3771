package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fwojciec/docindex"
	main "github.com/fwojciec/docindex/cmd/docindex"
	"github.com/fwojciec/docindex/crawl"
	"github.com/fwojciec/docindex/indexer"
	"github.com/fwojciec/docindex/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// engine is a stub main.Engine.
type engine struct {
	LoadFn   func(ctx context.Context) error
	ReloadFn func(ctx context.Context) error
}

func (e *engine) Load(ctx context.Context) error {
	if e.LoadFn == nil {
		return nil
	}
	return e.LoadFn(ctx)
}

func (e *engine) Reload(ctx context.Context) error {
	if e.ReloadFn == nil {
		return nil
	}
	return e.ReloadFn(ctx)
}

var sampleResults = []*docindex.SearchResult{
	{Score: 0.91, Title: "Zebra Field Guide", Source: "https://example.com/zebra", Snippet: "Zebra migration patterns", ChunkID: "c1"},
	{Score: 0.42, Title: "Kernel Notes", Source: "/data/raw/kernel.pdf", ChunkID: "c2"},
}

func TestSearchCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("prints ranked results", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: stdout,
			Stderr: &bytes.Buffer{},
			Config: docindex.DefaultConfig(),
			Engine: &engine{},
			Searcher: &mock.Searcher{
				SearchFn: func(_ context.Context, _ string, _ docindex.SearchOptions) []*docindex.SearchResult {
					return sampleResults
				},
			},
		}

		err := (&main.SearchCmd{Query: "zebra"}).Run(deps)

		require.NoError(t, err)
		out := stdout.String()
		assert.Contains(t, out, "1. [0.910] Zebra Field Guide")
		assert.Contains(t, out, "https://example.com/zebra")
		assert.Contains(t, out, "2. [0.420] Kernel Notes")
		assert.Contains(t, out, "/data/raw/kernel.pdf")
	})

	t.Run("prints JSON", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: stdout,
			Stderr: &bytes.Buffer{},
			Engine: &engine{},
			Searcher: &mock.Searcher{
				SearchFn: func(_ context.Context, _ string, _ docindex.SearchOptions) []*docindex.SearchResult {
					return sampleResults
				},
			},
		}

		err := (&main.SearchCmd{Query: "zebra", JSON: true}).Run(deps)

		require.NoError(t, err)
		var got []*docindex.SearchResult
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
		assert.Equal(t, sampleResults, got)
	})

	t.Run("reports no results", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: stdout,
			Stderr: &bytes.Buffer{},
			Engine: &engine{},
			Searcher: &mock.Searcher{
				SearchFn: func(_ context.Context, _ string, _ docindex.SearchOptions) []*docindex.SearchResult {
					return []*docindex.SearchResult{}
				},
			},
		}

		err := (&main.SearchCmd{Query: "nothing"}).Run(deps)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "No results.")
	})

	t.Run("flags override configured options", func(t *testing.T) {
		t.Parallel()

		cfg := docindex.DefaultConfig()
		cfg.Search.K = 5
		cfg.Search.MinScore = 0.2

		var got docindex.SearchOptions
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: &bytes.Buffer{},
			Stderr: &bytes.Buffer{},
			Config: cfg,
			Engine: &engine{},
			Searcher: &mock.Searcher{
				SearchFn: func(_ context.Context, _ string, opts docindex.SearchOptions) []*docindex.SearchResult {
					got = opts
					return nil
				},
			},
		}

		minScore := float32(0.75)
		err := (&main.SearchCmd{Query: "q", K: 2, MinScore: &minScore, Hybrid: true}).Run(deps)

		require.NoError(t, err)
		assert.Equal(t, docindex.SearchOptions{K: 2, MinScore: 0.75, Hybrid: true}, got)
	})

	t.Run("uses configured options without flags", func(t *testing.T) {
		t.Parallel()

		cfg := docindex.DefaultConfig()
		cfg.Search.K = 7
		cfg.Search.MinScore = 0.3

		var got docindex.SearchOptions
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: &bytes.Buffer{},
			Stderr: &bytes.Buffer{},
			Config: cfg,
			Engine: &engine{},
			Searcher: &mock.Searcher{
				SearchFn: func(_ context.Context, _ string, opts docindex.SearchOptions) []*docindex.SearchResult {
					got = opts
					return nil
				},
			},
		}

		err := (&main.SearchCmd{Query: "q"}).Run(deps)

		require.NoError(t, err)
		assert.Equal(t, docindex.SearchOptions{K: 7, MinScore: 0.3}, got)
	})

	t.Run("missing index prints a hint", func(t *testing.T) {
		t.Parallel()

		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: &bytes.Buffer{},
			Stderr: stderr,
			Engine: &engine{
				LoadFn: func(_ context.Context) error {
					return docindex.Errorf(docindex.ENOTFOUND, "no index committed")
				},
			},
		}

		err := (&main.SearchCmd{Query: "q"}).Run(deps)

		require.Error(t, err)
		assert.Equal(t, docindex.ENOTFOUND, docindex.ErrorCode(err))
		assert.Contains(t, stderr.String(), "docindex embed")
	})

	t.Run("interactive mode answers each line until quit", func(t *testing.T) {
		t.Parallel()

		var queries []string
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: &bytes.Buffer{},
			Stderr: &bytes.Buffer{},
			Stdin:  strings.NewReader("first\n\n  second  \nexit\nthird\n"),
			Engine: &engine{},
			Searcher: &mock.Searcher{
				SearchFn: func(_ context.Context, query string, _ docindex.SearchOptions) []*docindex.SearchResult {
					queries = append(queries, query)
					return nil
				},
			},
		}

		err := (&main.SearchCmd{}).Run(deps)

		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, queries)
	})
}

func TestAuditCmd_Run(t *testing.T) {
	t.Parallel()

	newState := func() *docindex.IndexState {
		state := docindex.NewIndexState(mock.NewVectorIndex(2), "static")
		_ = state.Index.Add(state.Assign("c1"), []float32{1, 0})
		state.Docs["d1"] = []string{"c1"}
		return state
	}

	newDeps := func(stdout *bytes.Buffer, records int) *main.Dependencies {
		return &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: stdout,
			Stderr: &bytes.Buffer{},
			Index: &mock.IndexStore{
				LoadStateFn: func(_ context.Context) (*docindex.IndexState, error) {
					return newState(), nil
				},
			},
			Corpus: &mock.CorpusService{
				CountChunksFn: func(_ context.Context) (int, error) {
					return records, nil
				},
			},
		}
	}

	t.Run("reports a consistent index", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}
		err := (&main.AuditCmd{}).Run(newDeps(stdout, 1))

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "doc map:")
		assert.Contains(t, stdout.String(), "OK")
	})

	t.Run("fails on mismatch", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}
		err := (&main.AuditCmd{}).Run(newDeps(stdout, 3))

		require.Error(t, err)
		assert.Equal(t, docindex.ECONFLICT, docindex.ErrorCode(err))
		assert.Contains(t, stdout.String(), "MISMATCH")
	})

	t.Run("prints JSON", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}
		err := (&main.AuditCmd{JSON: true}).Run(newDeps(stdout, 1))

		require.NoError(t, err)
		var report docindex.AuditReport
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
		assert.Equal(t, docindex.AuditReport{
			VectorCount:      1,
			ChunkRecordCount: 1,
			IDMapCount:       1,
			DocMapCount:      1,
			Match:            true,
		}, report)
	})
}

func TestEmbedCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("commits a fresh empty index", func(t *testing.T) {
		t.Parallel()

		var saved *docindex.IndexState
		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: stdout,
			Stderr: &bytes.Buffer{},
			Indexer: &indexer.Indexer{
				Store: &mock.IndexStore{
					LoadStateFn: func(_ context.Context) (*docindex.IndexState, error) {
						return nil, docindex.Errorf(docindex.ENOTFOUND, "no index committed")
					},
					SaveStateFn: func(_ context.Context, s *docindex.IndexState) error {
						saved = s
						return nil
					},
				},
				Corpus: &mock.CorpusService{
					DocumentsFn: func(_ context.Context) ([]*docindex.Document, error) {
						return nil, nil
					},
				},
				Embedder: &mock.Embedder{
					DimensionsFn: func() int { return 4 },
				},
			},
		}

		err := (&main.EmbedCmd{}).Run(deps)

		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Equal(t, 4, saved.Meta.Dim)
		assert.Contains(t, stdout.String(), "Indexed 0 documents")
		assert.NotContains(t, stdout.String(), "No changes")
	})

	t.Run("returns indexer errors", func(t *testing.T) {
		t.Parallel()

		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: &bytes.Buffer{},
			Stderr: &bytes.Buffer{},
			Indexer: &indexer.Indexer{
				Store: &mock.IndexStore{
					LoadStateFn: func(_ context.Context) (*docindex.IndexState, error) {
						return nil, docindex.Errorf(docindex.EUNREADABLE, "index snapshot unreadable")
					},
				},
				Embedder: &mock.Embedder{
					DimensionsFn: func() int { return 4 },
				},
			},
		}

		err := (&main.EmbedCmd{}).Run(deps)

		assert.Equal(t, docindex.EUNREADABLE, docindex.ErrorCode(err))
	})
}

func TestFetchCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("missing seed file", func(t *testing.T) {
		t.Parallel()

		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: &bytes.Buffer{},
			Stderr: &bytes.Buffer{},
		}

		err := (&main.FetchCmd{Seeds: filepath.Join(t.TempDir(), "missing.json")}).Run(deps)

		assert.Equal(t, docindex.ENOTFOUND, docindex.ErrorCode(err))
	})

	t.Run("no seed file configured", func(t *testing.T) {
		t.Parallel()

		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: &bytes.Buffer{},
			Stderr: &bytes.Buffer{},
		}

		err := (&main.FetchCmd{}).Run(deps)

		assert.Equal(t, docindex.EINVALID, docindex.ErrorCode(err))
	})

	t.Run("prints progress and summary", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "seeds.json")
		require.NoError(t, os.WriteFile(path, []byte(`[
			{"url": "https://example.com/ok", "type": "html"},
			{"url": "https://example.com/gone", "type": "html"}
		]`), 0644))

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: stdout,
			Stderr: &bytes.Buffer{},
			Crawler: &crawl.Crawler{
				Fetcher: &mock.Fetcher{
					FetchFn: func(_ context.Context, req *docindex.FetchRequest) (*docindex.FetchResponse, error) {
						if strings.HasSuffix(req.URL, "/gone") {
							return nil, &docindex.HTTPError{StatusCode: 404, URL: req.URL}
						}
						return &docindex.FetchResponse{StatusCode: 200, MediaType: "text/html", Body: []byte("<p>ok</p>")}, nil
					},
				},
				Manifests: &mock.ManifestStore{
					LoadManifestFn: func(_ context.Context) (docindex.Manifest, bool, error) {
						return nil, false, nil
					},
					SaveManifestFn: func(_ context.Context, _ docindex.Manifest) error {
						return nil
					},
				},
				Raw: &mock.RawStore{
					SaveRawFn: func(_ context.Context, rawURL, ext string, _ []byte) (string, error) {
						return "raw/" + ext, nil
					},
				},
				Concurrency: 1,
			},
		}

		err := (&main.FetchCmd{Seeds: path}).Run(deps)

		require.NoError(t, err)
		out := stdout.String()
		assert.Contains(t, out, "Fetching 2 seeds")
		assert.Contains(t, out, "1 changed")
		assert.Contains(t, out, "1 failed")
		assert.Contains(t, out, "https://example.com/gone")
	})
}
