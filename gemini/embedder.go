// Package gemini provides an embedder backed by the Gemini embedding API.
package gemini

import (
	"context"
	"fmt"

	"github.com/fwojciec/docindex"
	"google.golang.org/genai"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "gemini-embedding-001"

// maxBatch is the largest number of texts sent in one request.
const maxBatch = 100

// Task types understood by the embedding API.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// Ensure Embedder implements docindex.Embedder at compile time.
var _ docindex.Embedder = (*Embedder)(nil)

// Embedder implements docindex.Embedder using Gemini embeddings.
type Embedder struct {
	client   *genai.Client
	model    string
	dim      int
	taskType string
}

// NewEmbedder creates an Embedder for documents. Use ForQueries for the
// query-side embedder.
func NewEmbedder(client *genai.Client, model string, dim int) *Embedder {
	if model == "" {
		model = DefaultModel
	}
	return &Embedder{
		client:   client,
		model:    model,
		dim:      dim,
		taskType: TaskRetrievalDocument,
	}
}

// ForQueries returns a copy that embeds search queries.
func (e *Embedder) ForQueries() *Embedder {
	other := *e
	other.taskType = TaskRetrievalQuery
	return &other
}

// Dimensions returns the requested output dimensionality.
func (e *Embedder) Dimensions() int { return e.dim }

// Model identifies the model and output size; both must match for
// vectors to be comparable.
func (e *Embedder) Model() string { return fmt.Sprintf("%s/%d", e.model, e.dim) }

// Embed returns one vector per text, batching requests.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	config := BuildEmbedConfig(e.taskType, e.dim)

	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))

		result, err := e.client.Models.EmbedContent(ctx, e.model, BuildContents(texts[start:end]), config)
		if err != nil {
			return nil, err
		}
		if result == nil || len(result.Embeddings) != end-start {
			return nil, docindex.Errorf(docindex.EINTERNAL, "gemini returned %d embeddings for %d texts", embeddingCount(result), end-start)
		}
		for _, emb := range result.Embeddings {
			if emb == nil || len(emb.Values) != e.dim {
				return nil, docindex.Errorf(docindex.EDIMENSION, "gemini returned a vector of %d dimensions, expected %d", valueCount(emb), e.dim)
			}
			vectors = append(vectors, emb.Values)
		}
	}
	return vectors, nil
}

// BuildEmbedConfig returns the EmbedContentConfig for a request.
func BuildEmbedConfig(taskType string, dim int) *genai.EmbedContentConfig {
	d := int32(dim)
	return &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &d,
	}
}

// BuildContents wraps each text as one user content.
func BuildContents(texts []string) []*genai.Content {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	return contents
}

func embeddingCount(r *genai.EmbedContentResponse) int {
	if r == nil {
		return 0
	}
	return len(r.Embeddings)
}

func valueCount(e *genai.ContentEmbedding) int {
	if e == nil {
		return 0
	}
	return len(e.Values)
}
