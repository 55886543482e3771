package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/docindex"
)

// Compile-time interface verification.
var _ docindex.CorpusService = (*CorpusService)(nil)

// CorpusService implements docindex.CorpusService using SQLite.
type CorpusService struct {
	db *DB

	// Now returns the creation time stamped on inserted records that
	// carry none.
	Now func() time.Time
}

// NewCorpusService creates a new CorpusService.
func NewCorpusService(db *DB) *CorpusService {
	return &CorpusService{db: db, Now: time.Now}
}

const chunkColumns = "id, doc_id, chunk_index, source_path, source_url, title, ext, chars, text, created_at"

// ReplaceDocument swaps the stored version of a document in one
// transaction: the rows of oldDocID and doc.ID are removed and records
// inserted.
func (s *CorpusService) ReplaceDocument(ctx context.Context, oldDocID string, doc *docindex.Document, records []*docindex.ChunkRecord) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	for _, r := range records {
		if r.DocID != doc.ID {
			return docindex.Errorf(docindex.EINVALID, "chunk %s belongs to document %s, not %s", r.ID, r.DocID, doc.ID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if oldDocID != "" && oldDocID != doc.ID {
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", oldDocID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", doc.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, url, content_hash, title)
		VALUES (?, ?, ?, ?)
	`, doc.ID, doc.URL, doc.ContentHash, doc.Title); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO chunks ("+chunkColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := s.Now().UTC()
	for _, r := range records {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.DocID, r.Index, r.SourcePath, r.SourceURL,
			r.Title, r.Ext, r.Chars, r.Text, r.CreatedAt.Format(time.RFC3339)); err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				return docindex.Errorf(docindex.ECONFLICT, "duplicate chunk id %s", r.ID)
			}
			return err
		}
	}

	return tx.Commit()
}

// DeleteDocument permanently removes a document and its chunks.
func (s *CorpusService) DeleteDocument(ctx context.Context, docID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", docID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return docindex.Errorf(docindex.ENOTFOUND, "document not found")
	}

	return nil
}

// FindChunkByID retrieves a chunk record by ID.
func (s *CorpusService) FindChunkByID(ctx context.Context, id string) (*docindex.ChunkRecord, error) {
	records, err := s.FindChunks(ctx, docindex.ChunkFilter{ID: &id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, docindex.Errorf(docindex.ENOTFOUND, "chunk not found")
	}
	return records[0], nil
}

// FindChunks retrieves chunk records matching the filter.
func (s *CorpusService) FindChunks(ctx context.Context, filter docindex.ChunkFilter) ([]*docindex.ChunkRecord, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + chunkColumns + " FROM chunks WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return nil, nil
		}
		query.WriteString(" AND id IN (?" + strings.Repeat(", ?", len(filter.IDs)-1) + ")")
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if filter.DocID != nil {
		query.WriteString(" AND doc_id = ?")
		args = append(args, *filter.DocID)
	}
	if filter.SourceURL != nil {
		query.WriteString(" AND source_url = ?")
		args = append(args, *filter.SourceURL)
	}

	query.WriteString(" ORDER BY doc_id ASC, chunk_index ASC")
	if filter.Limit > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query.WriteString(" OFFSET ?")
			args = append(args, filter.Offset)
		}
	} else if filter.Offset > 0 {
		// SQLite only accepts OFFSET after a LIMIT; -1 means unbounded.
		query.WriteString(" LIMIT -1 OFFSET ?")
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*docindex.ChunkRecord
	for rows.Next() {
		r, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// Documents reassembles every stored document with its chunks in order.
func (s *CorpusService) Documents(ctx context.Context) ([]*docindex.Document, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, url, content_hash, title FROM documents ORDER BY id ASC")
	if err != nil {
		return nil, err
	}

	var docs []*docindex.Document
	byID := make(map[string]*docindex.Document)
	for rows.Next() {
		doc := &docindex.Document{}
		if err := rows.Scan(&doc.ID, &doc.URL, &doc.ContentHash, &doc.Title); err != nil {
			rows.Close()
			return nil, err
		}
		docs = append(docs, doc)
		byID[doc.ID] = doc
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	chunkRows, err := s.db.QueryContext(ctx, "SELECT id, doc_id, chunk_index, text FROM chunks ORDER BY doc_id ASC, chunk_index ASC")
	if err != nil {
		return nil, err
	}
	defer chunkRows.Close()

	for chunkRows.Next() {
		var docID string
		c := &docindex.Chunk{}
		if err := chunkRows.Scan(&c.ID, &docID, &c.Index, &c.Text); err != nil {
			return nil, err
		}
		if doc, ok := byID[docID]; ok {
			doc.Chunks = append(doc.Chunks, c)
		}
	}

	return docs, chunkRows.Err()
}

// CountChunks returns the number of chunk records.
func (s *CorpusService) CountChunks(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n)
	return n, err
}

func scanChunk(rows *sql.Rows) (*docindex.ChunkRecord, error) {
	var r docindex.ChunkRecord
	var createdAt string

	if err := rows.Scan(&r.ID, &r.DocID, &r.Index, &r.SourcePath, &r.SourceURL,
		&r.Title, &r.Ext, &r.Chars, &r.Text, &createdAt); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: bad created_at %q: %w", r.ID, createdAt, err)
	}
	r.CreatedAt = t
	return &r, nil
}
