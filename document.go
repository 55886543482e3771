package docindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Document is the parsed, chunked form of one fetched URL at one content
// version.
type Document struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	ContentHash string   `json:"contentHash"`
	Title       string   `json:"title"`
	Chunks      []*Chunk `json:"chunks"`
}

// DocID derives the document id. It changes if and only if the content hash
// changes for the same URL.
func DocID(url, contentHash string) string {
	sum := sha256.Sum256([]byte(url + "|" + contentHash))
	return hex.EncodeToString(sum[:])
}

// NewDocument builds a document from already-split chunk texts.
func NewDocument(url, contentHash, title string, texts []string) *Document {
	doc := &Document{
		ID:          DocID(url, contentHash),
		URL:         url,
		ContentHash: contentHash,
		Title:       title,
		Chunks:      make([]*Chunk, len(texts)),
	}
	for i, text := range texts {
		doc.Chunks[i] = &Chunk{
			Index: i,
			ID:    ChunkID(doc.ID, i, text),
			Text:  text,
		}
	}
	return doc
}

// ChunkIDs returns the chunk ids in chunk order.
func (d *Document) ChunkIDs() []string {
	ids := make([]string, len(d.Chunks))
	for i, c := range d.Chunks {
		ids[i] = c.ID
	}
	return ids
}

// Validate returns an error if the document contains invalid fields.
func (d *Document) Validate() error {
	if d.ID == "" {
		return Errorf(EINVALID, "document ID required")
	}
	if d.URL == "" {
		return Errorf(EINVALID, "document URL required")
	}
	return nil
}

// ChunkRecord is one row of the chunk corpus.
type ChunkRecord struct {
	ID         string    `json:"id"`
	DocID      string    `json:"doc_id"`
	Index      int       `json:"chunk_index"`
	SourcePath string    `json:"source_path"`
	SourceURL  string    `json:"source_url"`
	Title      string    `json:"title"`
	Ext        string    `json:"ext"`
	Chars      int       `json:"chars"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// Source returns the source URL, falling back to the stored path.
func (r *ChunkRecord) Source() string {
	if r.SourceURL != "" {
		return r.SourceURL
	}
	return r.SourcePath
}

// CorpusService stores the chunk corpus: exactly one version of every live
// document, as chunk records.
type CorpusService interface {
	// ReplaceDocument removes the rows of oldDocID and of doc.ID and inserts
	// records in one transaction. oldDocID may be empty.
	ReplaceDocument(ctx context.Context, oldDocID string, doc *Document, records []*ChunkRecord) error

	// DeleteDocument removes every row of docID.
	DeleteDocument(ctx context.Context, docID string) error

	// FindChunkByID retrieves a chunk record by ID.
	// Returns ENOTFOUND if the chunk does not exist.
	FindChunkByID(ctx context.Context, id string) (*ChunkRecord, error)

	// FindChunks retrieves chunk records matching the filter, ordered by
	// doc id and chunk index.
	FindChunks(ctx context.Context, filter ChunkFilter) ([]*ChunkRecord, error)

	// Documents reassembles every stored document, ordered by id.
	Documents(ctx context.Context) ([]*Document, error)

	// CountChunks returns the number of chunk records.
	CountChunks(ctx context.Context) (int, error)
}
