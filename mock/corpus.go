package mock

import (
	"context"

	"github.com/fwojciec/docindex"
)

var _ docindex.CorpusService = (*CorpusService)(nil)

// CorpusService is a mock implementation of docindex.CorpusService.
type CorpusService struct {
	ReplaceDocumentFn func(ctx context.Context, oldDocID string, doc *docindex.Document, records []*docindex.ChunkRecord) error
	DeleteDocumentFn  func(ctx context.Context, docID string) error
	FindChunkByIDFn   func(ctx context.Context, id string) (*docindex.ChunkRecord, error)
	FindChunksFn      func(ctx context.Context, filter docindex.ChunkFilter) ([]*docindex.ChunkRecord, error)
	DocumentsFn       func(ctx context.Context) ([]*docindex.Document, error)
	CountChunksFn     func(ctx context.Context) (int, error)
}

func (s *CorpusService) ReplaceDocument(ctx context.Context, oldDocID string, doc *docindex.Document, records []*docindex.ChunkRecord) error {
	return s.ReplaceDocumentFn(ctx, oldDocID, doc, records)
}

func (s *CorpusService) DeleteDocument(ctx context.Context, docID string) error {
	return s.DeleteDocumentFn(ctx, docID)
}

func (s *CorpusService) FindChunkByID(ctx context.Context, id string) (*docindex.ChunkRecord, error) {
	return s.FindChunkByIDFn(ctx, id)
}

func (s *CorpusService) FindChunks(ctx context.Context, filter docindex.ChunkFilter) ([]*docindex.ChunkRecord, error) {
	return s.FindChunksFn(ctx, filter)
}

func (s *CorpusService) Documents(ctx context.Context) ([]*docindex.Document, error) {
	return s.DocumentsFn(ctx)
}

func (s *CorpusService) CountChunks(ctx context.Context) (int, error) {
	return s.CountChunksFn(ctx)
}
