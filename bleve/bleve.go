// Package bleve provides the lexical index used by hybrid search, on top of
// an in-memory github.com/blevesearch/bleve/v2 index.
//
// Text is analyzed with docindex.Tokenize: words for alphabetic scripts and
// overlapping character bigrams for Japanese and Chinese, so queries match
// without a language-specific segmenter.
package bleve

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/fwojciec/docindex"
)

const (
	// TokenizerName is the registered name of the bigram tokenizer.
	TokenizerName = "docindex_bigram"

	// AnalyzerName is the analyzer used for every field.
	AnalyzerName = "docindex"
)

// Indexed fields.
const (
	fieldTitle = "title"
	fieldText  = "text"
)

func init() {
	_ = registry.RegisterTokenizer(TokenizerName, func(map[string]any, *registry.Cache) (analysis.Tokenizer, error) {
		return tokenizer{}, nil
	})
}

// Ensure types implement the docindex interfaces at compile time.
var (
	_ docindex.LexicalIndex   = (*Index)(nil)
	_ docindex.LexicalBuilder = (*Builder)(nil)
)

// Builder builds in-memory lexical indexes.
type Builder struct{}

// BuildLexical indexes the title and text of every record under its chunk
// id.
func (Builder) BuildLexical(ctx context.Context, records []*docindex.ChunkRecord) (docindex.LexicalIndex, error) {
	return NewIndex(ctx, records)
}

// Index is an in-memory lexical index over chunk records.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	n      int
	closed bool
}

// document is the indexed form of a chunk record.
type document struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// NewIndex builds an index over records.
func NewIndex(ctx context.Context, records []*docindex.ChunkRecord) (*Index, error) {
	m, err := newMapping()
	if err != nil {
		return nil, err
	}
	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("creating lexical index: %w", err)
	}

	batch := idx.NewBatch()
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			idx.Close()
			return nil, err
		}
		if err := batch.Index(r.ID, document{Title: r.Title, Text: r.Text}); err != nil {
			idx.Close()
			return nil, fmt.Errorf("indexing chunk %s: %w", r.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		idx.Close()
		return nil, fmt.Errorf("indexing chunks: %w", err)
	}

	return &Index{index: idx, n: len(records)}, nil
}

func newMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	if err := m.AddCustomAnalyzer(AnalyzerName, map[string]any{
		"type":      custom.Name,
		"tokenizer": TokenizerName,
	}); err != nil {
		return nil, fmt.Errorf("adding analyzer: %w", err)
	}
	m.DefaultAnalyzer = AnalyzerName

	doc := bleve.NewDocumentMapping()
	for _, name := range []string{fieldTitle, fieldText} {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = AnalyzerName
		f.Store = false
		doc.AddFieldMappingsAt(name, f)
	}
	m.DefaultMapping = doc
	return m, nil
}

// Search returns up to n chunk ids matching any term of q, best first.
func (x *Index) Search(ctx context.Context, q string, n int) ([]docindex.LexicalHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil, docindex.Errorf(docindex.EINTERNAL, "lexical index is closed")
	}
	if strings.TrimSpace(q) == "" || n <= 0 {
		return nil, nil
	}

	title := bleve.NewMatchQuery(q)
	title.SetField(fieldTitle)
	text := bleve.NewMatchQuery(q)
	text.SetField(fieldText)
	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery([]query.Query{title, text}...), n, 0, false)

	result, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	hits := make([]docindex.LexicalHit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, docindex.LexicalHit{ChunkID: h.ID, Score: h.Score})
	}
	return hits, nil
}

// Len returns the number of indexed records.
func (x *Index) Len() int {
	return x.n
}

// Close releases the index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return nil
	}
	x.closed = true
	return x.index.Close()
}

// tokenizer adapts docindex.Tokenize to bleve's analysis chain.
type tokenizer struct{}

func (tokenizer) Tokenize(input []byte) analysis.TokenStream {
	tokens := docindex.Tokenize(string(input))
	if len(tokens) == 0 {
		return nil
	}

	// Token offsets are in runes of the lowercased text; bleve wants bytes.
	lower := []rune(strings.ToLower(string(input)))
	offsets := make([]int, len(lower)+1)
	for i, r := range lower {
		offsets[i+1] = offsets[i] + len(string(r))
	}

	stream := make(analysis.TokenStream, len(tokens))
	for i, t := range tokens {
		typ := analysis.AlphaNumeric
		if isIdeographic(t.Term) {
			typ = analysis.Ideographic
		}
		stream[i] = &analysis.Token{
			Term:     []byte(t.Term),
			Start:    offsets[t.Start],
			End:      offsets[t.End],
			Position: i + 1,
			Type:     typ,
		}
	}
	return stream
}

func isIdeographic(term string) bool {
	for _, r := range term {
		if r < 0x3000 {
			return false
		}
	}
	return true
}
