package search_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/bleve"
	"github.com/fwojciec/docindex/fs"
	"github.com/fwojciec/docindex/hnsw"
	"github.com/fwojciec/docindex/mock"
	"github.com/fwojciec/docindex/search"
	"github.com/fwojciec/docindex/xxhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indexed builds a committed state and the corpus records behind it.
func indexed(t *testing.T, e docindex.Embedder, records ...*docindex.ChunkRecord) *docindex.IndexState {
	t.Helper()

	state := docindex.NewIndexState(mock.NewVectorIndex(e.Dimensions()), e.Model())
	for _, r := range records {
		vecs, err := e.Embed(context.Background(), []string{r.Text})
		require.NoError(t, err)
		docindex.NormalizeVector(vecs[0])
		require.NoError(t, state.Index.Add(state.Assign(r.ID), vecs[0]))
		state.Docs[r.DocID] = append(state.Docs[r.DocID], r.ID)
	}
	return state
}

// committed saves records through an on-disk index store and returns it.
func committed(t *testing.T, e docindex.Embedder, model string, records ...*docindex.ChunkRecord) *fs.IndexStore {
	t.Helper()

	store := fs.NewIndexStore(t.TempDir(), hnsw.NewCodec())
	state := store.NewState(e.Dimensions(), model)
	for _, r := range records {
		vecs, err := e.Embed(context.Background(), []string{r.Text})
		require.NoError(t, err)
		docindex.NormalizeVector(vecs[0])
		require.NoError(t, state.Index.Add(state.Assign(r.ID), vecs[0]))
		state.Docs[r.DocID] = append(state.Docs[r.DocID], r.ID)
	}
	require.NoError(t, store.SaveState(context.Background(), state))
	return store
}

func newEngine(t *testing.T, e docindex.Embedder, records ...*docindex.ChunkRecord) *search.Engine {
	t.Helper()

	state := indexed(t, e, records...)
	engine := &search.Engine{
		Store: &mock.IndexStore{
			LoadStateFn: func(_ context.Context) (*docindex.IndexState, error) {
				return state, nil
			},
		},
		Corpus: &mock.CorpusService{
			FindChunksFn: func(_ context.Context, _ docindex.ChunkFilter) ([]*docindex.ChunkRecord, error) {
				return records, nil
			},
		},
		Embedder: e,
		Config:   docindex.DefaultConfig().Search,
	}
	require.NoError(t, engine.Load(context.Background()))
	return engine
}

func record(id, title, text string) *docindex.ChunkRecord {
	return &docindex.ChunkRecord{
		ID:        id,
		DocID:     "doc-" + id,
		SourceURL: "https://example.com/" + id,
		Title:     title,
		Text:      text,
	}
}

// vectors is an embedder with fixed vectors per text.
func vectors(dim int, byText map[string][]float32) *mock.Embedder {
	return &mock.Embedder{
		EmbedFn: func(_ context.Context, texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i, text := range texts {
				out[i] = append([]float32(nil), byText[text]...)
			}
			return out, nil
		},
		DimensionsFn: func() int { return dim },
	}
}

func TestEngine_Search(t *testing.T) {
	t.Parallel()

	corpus := []*docindex.ChunkRecord{
		record("c1", "在留手続", "申請書の提出方法"),
		record("c2", "税金", "確定申告の期限と納付について"),
		record("c3", "Pension", "National pension contributions and exemptions"),
	}

	t.Run("exact phrase ranks first", func(t *testing.T) {
		t.Parallel()

		engine := newEngine(t, xxhash.NewEmbedder(384), corpus...)

		results := engine.Search(context.Background(), "申請書の提出方法", docindex.SearchOptions{K: 3, MinScore: 0.2})

		require.NotEmpty(t, results)
		assert.Equal(t, "c1", results[0].ChunkID)
		assert.GreaterOrEqual(t, results[0].Score, float32(0.2))
		assert.Equal(t, "在留手続", results[0].Title)
		assert.Equal(t, "https://example.com/c1", results[0].Source)
		assert.Equal(t, "申請書の提出方法", results[0].Snippet)
	})

	t.Run("unrelated query is filtered by min score", func(t *testing.T) {
		t.Parallel()

		engine := newEngine(t, xxhash.NewEmbedder(384), corpus...)

		results := engine.Search(context.Background(), "完全に無関係な文字列", docindex.SearchOptions{K: 3, MinScore: 0.8})

		assert.Empty(t, results)
		assert.NotNil(t, results)
	})

	t.Run("returns at most k results in descending score", func(t *testing.T) {
		t.Parallel()

		engine := newEngine(t, xxhash.NewEmbedder(384), corpus...)

		results := engine.Search(context.Background(), "申請 pension", docindex.SearchOptions{K: 2, MinScore: -1})

		require.Len(t, results, 2)
		assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	})

	t.Run("embedding failure yields no results", func(t *testing.T) {
		t.Parallel()

		engine := newEngine(t, xxhash.NewEmbedder(16), corpus...)
		engine.Embedder = &mock.Embedder{
			EmbedFn: func(_ context.Context, _ []string) ([][]float32, error) {
				return nil, errors.New("backend unavailable")
			},
			DimensionsFn: func() int { return 16 },
		}

		results := engine.Search(context.Background(), "pension", docindex.SearchOptions{K: 3})

		assert.Empty(t, results)
		assert.NotNil(t, results)
	})

	t.Run("not loaded yields no results", func(t *testing.T) {
		t.Parallel()

		engine := &search.Engine{Embedder: xxhash.NewEmbedder(16)}

		assert.False(t, engine.Ready())
		assert.Empty(t, engine.Search(context.Background(), "pension", docindex.SearchOptions{K: 3}))
	})
}

func TestEngine_ConcurrentSearch(t *testing.T) {
	t.Parallel()

	// Given: a snapshot of 200 chunks loaded from disk
	e := xxhash.NewEmbedder(64)
	records := make([]*docindex.ChunkRecord, 200)
	for i := range records {
		records[i] = record(fmt.Sprintf("c%03d", i), "", fmt.Sprintf("chunk %d about topic %d", i, i%7))
	}
	engine := &search.Engine{
		Store: committed(t, e, e.Model(), records...),
		Corpus: &mock.CorpusService{
			FindChunksFn: func(_ context.Context, _ docindex.ChunkFilter) ([]*docindex.ChunkRecord, error) {
				return records, nil
			},
		},
		Embedder: e,
		Config:   docindex.DefaultConfig().Search,
	}
	require.NoError(t, engine.Load(context.Background()))

	// When: many readers search it at once
	var wg sync.WaitGroup
	counts := make([]int, 16)
	for i := range counts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counts[i] = len(engine.Search(context.Background(), fmt.Sprintf("topic %d", i%7), docindex.SearchOptions{K: 5}))
		}()
	}
	wg.Wait()

	// Then: every reader gets results
	for i, n := range counts {
		assert.Positive(t, n, "reader %d", i)
	}
}

func TestEngine_Hybrid(t *testing.T) {
	t.Parallel()

	records := []*docindex.ChunkRecord{
		record("c1", "", "one"),
		record("c2", "", "two"),
		record("c3", "", "three"),
	}
	embedder := vectors(2, map[string][]float32{
		"one":   {1, 0},
		"two":   {0, 1},
		"three": {1, 0},
		"query": {1, 0},
	})

	lexical := func(hits ...docindex.LexicalHit) *mock.LexicalBuilder {
		return &mock.LexicalBuilder{
			BuildLexicalFn: func(_ context.Context, _ []*docindex.ChunkRecord) (docindex.LexicalIndex, error) {
				return &mock.LexicalIndex{
					SearchFn: func(_ context.Context, _ string, _ int) ([]docindex.LexicalHit, error) {
						return hits, nil
					},
				}, nil
			},
		}
	}

	t.Run("blends normalized scores and keeps lexical order on ties", func(t *testing.T) {
		t.Parallel()

		engine := newEngine(t, embedder, records...)
		engine.Lexical = lexical(
			docindex.LexicalHit{ChunkID: "c2", Score: 3},
			docindex.LexicalHit{ChunkID: "c3", Score: 2},
			docindex.LexicalHit{ChunkID: "c1", Score: 2},
		)
		require.NoError(t, engine.Reload(context.Background()))

		results := engine.Search(context.Background(), "query", docindex.SearchOptions{K: 3, Hybrid: true})

		require.Len(t, results, 3)
		assert.Equal(t, []string{"c2", "c3", "c1"}, chunkIDs(results))
		assert.InDelta(t, 0.55, results[0].Score, 1e-6)
		assert.InDelta(t, 0.45, results[1].Score, 1e-6)
		assert.InDelta(t, 0.45, results[2].Score, 1e-6)
	})

	t.Run("weights are configurable", func(t *testing.T) {
		t.Parallel()

		engine := newEngine(t, embedder, records...)
		engine.Config.LexicalWeight = 0.2
		engine.Config.VectorWeight = 0.8
		engine.Lexical = lexical(
			docindex.LexicalHit{ChunkID: "c2", Score: 3},
			docindex.LexicalHit{ChunkID: "c1", Score: 2},
		)
		require.NoError(t, engine.Reload(context.Background()))

		results := engine.Search(context.Background(), "query", docindex.SearchOptions{K: 3, Hybrid: true})

		assert.Equal(t, []string{"c1", "c2"}, chunkIDs(results))
	})

	t.Run("min score and k apply after blending", func(t *testing.T) {
		t.Parallel()

		engine := newEngine(t, embedder, records...)
		engine.Lexical = lexical(
			docindex.LexicalHit{ChunkID: "c2", Score: 3},
			docindex.LexicalHit{ChunkID: "c3", Score: 2},
			docindex.LexicalHit{ChunkID: "c1", Score: 2},
		)
		require.NoError(t, engine.Reload(context.Background()))

		results := engine.Search(context.Background(), "query", docindex.SearchOptions{K: 3, MinScore: 0.5, Hybrid: true})
		assert.Equal(t, []string{"c2"}, chunkIDs(results))

		results = engine.Search(context.Background(), "query", docindex.SearchOptions{K: 2, Hybrid: true})
		assert.Equal(t, []string{"c2", "c3"}, chunkIDs(results))
	})

	t.Run("falls back to vector search without lexical hits", func(t *testing.T) {
		t.Parallel()

		engine := newEngine(t, embedder, records...)
		engine.Lexical = lexical()
		require.NoError(t, engine.Reload(context.Background()))

		results := engine.Search(context.Background(), "query", docindex.SearchOptions{K: 1, Hybrid: true})

		require.Len(t, results, 1)
		assert.Contains(t, []string{"c1", "c3"}, results[0].ChunkID)
		assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	})

	t.Run("bleve lexical index end to end", func(t *testing.T) {
		t.Parallel()

		engine := newEngine(t, xxhash.NewEmbedder(128),
			record("c1", "Tax", "income tax return filing"),
			record("c2", "Pension", "national pension contributions"),
		)
		engine.Lexical = bleve.Builder{}
		require.NoError(t, engine.Reload(context.Background()))
		t.Cleanup(func() { engine.Close() })

		results := engine.Search(context.Background(), "pension", docindex.SearchOptions{K: 2, Hybrid: true})

		require.NotEmpty(t, results)
		assert.Equal(t, "c2", results[0].ChunkID)
	})
}

func TestEngine_Load(t *testing.T) {
	t.Parallel()

	t.Run("nothing committed", func(t *testing.T) {
		t.Parallel()

		engine := &search.Engine{
			Store: &mock.IndexStore{
				LoadStateFn: func(_ context.Context) (*docindex.IndexState, error) {
					return nil, docindex.Errorf(docindex.ENOTFOUND, "no index has been committed")
				},
			},
			Embedder: xxhash.NewEmbedder(16),
		}

		err := engine.Load(context.Background())

		assert.Equal(t, docindex.ENOTFOUND, docindex.ErrorCode(err))
		assert.False(t, engine.Ready())
	})

	t.Run("unreadable snapshot", func(t *testing.T) {
		t.Parallel()

		engine := &search.Engine{
			Store: &mock.IndexStore{
				LoadStateFn: func(_ context.Context) (*docindex.IndexState, error) {
					return nil, docindex.Errorf(docindex.EUNREADABLE, "index generation gen-000001 is unreadable")
				},
			},
			Embedder: xxhash.NewEmbedder(16),
		}

		err := engine.Load(context.Background())

		assert.Equal(t, docindex.EUNREADABLE, docindex.ErrorCode(err))
	})

	t.Run("query embedder must match the index", func(t *testing.T) {
		t.Parallel()

		state := indexed(t, xxhash.NewEmbedder(16), record("c1", "", "alpha"))
		engine := &search.Engine{
			Store: &mock.IndexStore{
				LoadStateFn: func(_ context.Context) (*docindex.IndexState, error) {
					return state, nil
				},
			},
			Embedder: xxhash.NewEmbedder(32),
		}

		err := engine.Load(context.Background())

		assert.Equal(t, docindex.EDIMENSION, docindex.ErrorCode(err))
	})

	t.Run("query embedder model must match the index", func(t *testing.T) {
		t.Parallel()

		// Given: an index built by another model with the same dimensions
		e := xxhash.NewEmbedder(64)
		engine := &search.Engine{
			Store:    committed(t, e, "gemini-embedding-001/64", record("c1", "", "alpha")),
			Embedder: e,
		}

		// When
		err := engine.Load(context.Background())

		// Then
		assert.Equal(t, docindex.EDIMENSION, docindex.ErrorCode(err))
		assert.False(t, engine.Ready())
	})
}

func TestEngine_Reload(t *testing.T) {
	t.Parallel()

	t.Run("swaps in the new snapshot", func(t *testing.T) {
		t.Parallel()

		e := xxhash.NewEmbedder(384)
		first := []*docindex.ChunkRecord{record("c1", "", "alpha bravo")}
		second := []*docindex.ChunkRecord{record("c1", "", "alpha bravo"), record("c2", "", "charlie delta")}
		states := []*docindex.IndexState{indexed(t, e, first...), indexed(t, e, second...)}
		corpora := [][]*docindex.ChunkRecord{first, second}
		gen := 0

		engine := &search.Engine{
			Store: &mock.IndexStore{
				LoadStateFn: func(_ context.Context) (*docindex.IndexState, error) {
					return states[gen], nil
				},
			},
			Corpus: &mock.CorpusService{
				FindChunksFn: func(_ context.Context, _ docindex.ChunkFilter) ([]*docindex.ChunkRecord, error) {
					return corpora[gen], nil
				},
			},
			Embedder: e,
		}
		require.NoError(t, engine.Load(context.Background()))
		assert.Empty(t, engine.Search(context.Background(), "charlie delta", docindex.SearchOptions{K: 1, MinScore: 0.9}))

		gen = 1
		require.NoError(t, engine.Reload(context.Background()))

		results := engine.Search(context.Background(), "charlie delta", docindex.SearchOptions{K: 1, MinScore: 0.9})
		require.Len(t, results, 1)
		assert.Equal(t, "c2", results[0].ChunkID)
		assert.Equal(t, 2, engine.Len())
	})

	t.Run("failure keeps the current snapshot", func(t *testing.T) {
		t.Parallel()

		engine := newEngine(t, xxhash.NewEmbedder(64), record("c1", "", "alpha bravo"))
		engine.Store = &mock.IndexStore{
			LoadStateFn: func(_ context.Context) (*docindex.IndexState, error) {
				return nil, docindex.Errorf(docindex.EUNREADABLE, "corrupt")
			},
		}

		err := engine.Reload(context.Background())

		assert.Equal(t, docindex.EUNREADABLE, docindex.ErrorCode(err))
		assert.Len(t, engine.Search(context.Background(), "alpha bravo", docindex.SearchOptions{K: 1}), 1)
	})
}

func TestSnippet(t *testing.T) {
	t.Parallel()

	t.Run("flattens line breaks", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "first line second line", search.Snippet("first line\nsecond\n\nline", 160))
	})

	t.Run("truncates to n runes", func(t *testing.T) {
		t.Parallel()
		got := search.Snippet(strings.Repeat("申", 200), 160)
		assert.Equal(t, 160, utf8.RuneCountInString(got))
	})

	t.Run("short text is unchanged", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "short", search.Snippet("short", 160))
	})
}

func chunkIDs(results []*docindex.SearchResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ChunkID
	}
	return ids
}
