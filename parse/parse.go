// Package parse turns fetched raw bodies into chunked documents in the
// chunk corpus.
package parse

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/docindex"
)

// Parser runs a parse pass over the manifest entries flagged parse_needed.
type Parser struct {
	Manifests  docindex.ManifestStore
	Raw        docindex.RawStore
	Corpus     docindex.CorpusService
	Extractors docindex.Extractors

	ChunkSize    int
	ChunkOverlap int

	Logger *slog.Logger

	// Now stamps new chunk records. Defaults to time.Now.
	Now func() time.Time
}

// Result holds the outcome of a parse pass.
type Result struct {
	Parsed  int
	Failed  int
	Chunks  int
	Deleted int
}

// source is one raw body to parse.
type source struct {
	url         string
	path        string
	contentType docindex.ContentType
	contentHash string
	title       string
	oldDocID    string
}

// Parse processes every entry with ParseNeeded set. A failing entry is
// logged and keeps ParseNeeded so the next pass retries it. After the pass,
// corpus documents no longer referenced by the manifest are deleted. The
// manifest is saved once at the end, also when ctx is cancelled, in which
// case the context error is returned with the partial result.
//
// Without a manifest every stored raw body is parsed under a file:// URL.
func (p *Parser) Parse(ctx context.Context) (*Result, error) {
	m, ok, err := p.Manifests.LoadManifest(ctx)
	if err != nil {
		return nil, err
	}

	docs, err := p.Corpus.Documents(ctx)
	if err != nil {
		return nil, err
	}
	byURL := make(map[string]string, len(docs))
	for _, d := range docs {
		byURL[d.URL] = d.ID
	}

	if !ok {
		return p.parseRaw(ctx, byURL)
	}

	result := &Result{}
	for _, entry := range m.Pending() {
		if ctx.Err() != nil {
			break
		}
		oldDocID := entry.DocID
		if oldDocID == "" {
			oldDocID = byURL[entry.URL]
		}
		doc, err := p.parseOne(ctx, source{
			url:         entry.URL,
			path:        entry.Path,
			contentType: entry.ContentType,
			contentHash: entry.ContentHash,
			title:       entry.Title,
			oldDocID:    oldDocID,
		})
		if err != nil {
			result.Failed++
			p.logger().Warn("parse failed", "url", entry.URL, "code", docindex.ErrorCode(err), "err", err)
			continue
		}
		entry.DocID = doc.ID
		entry.ParseNeeded = false
		byURL[doc.URL] = doc.ID
		result.Parsed++
		result.Chunks += len(doc.Chunks)
	}

	if ctx.Err() == nil {
		for _, d := range docs {
			if !stale(m, d) {
				continue
			}
			err := p.Corpus.DeleteDocument(ctx, d.ID)
			if docindex.ErrorCode(err) == docindex.ENOTFOUND {
				continue
			} else if err != nil {
				return result, err
			}
			p.logger().Info("deleted document", "url", d.URL, "doc_id", d.ID)
			result.Deleted++
		}
	}

	if err := p.Manifests.SaveManifest(context.WithoutCancel(ctx), m); err != nil {
		return result, err
	}
	return result, ctx.Err()
}

// stale reports whether the corpus document d no longer belongs to a live
// manifest entry: its URL is gone, or the entry points at another version.
func stale(m docindex.Manifest, d *docindex.Document) bool {
	entry, ok := m[d.URL]
	if !ok {
		return true
	}
	return entry.DocID != "" && entry.DocID != d.ID
}

// parseRaw parses every stored body when no manifest exists.
func (p *Parser) parseRaw(ctx context.Context, byURL map[string]string) (*Result, error) {
	names, err := p.Raw.ListRaw(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, name := range names {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		url := "file://" + name
		doc, err := p.parseOne(ctx, source{
			url:         url,
			path:        name,
			contentType: docindex.InferContentType(name, ""),
			oldDocID:    byURL[url],
		})
		if err != nil {
			result.Failed++
			p.logger().Warn("parse failed", "path", name, "code", docindex.ErrorCode(err), "err", err)
			continue
		}
		result.Parsed++
		result.Chunks += len(doc.Chunks)
	}
	return result, nil
}

// parseOne extracts, normalizes and chunks one body and replaces the
// corpus rows of its previous version.
func (p *Parser) parseOne(ctx context.Context, src source) (*docindex.Document, error) {
	raw, err := p.Raw.ReadRaw(ctx, src.path)
	if err != nil {
		return nil, err
	}

	ex, err := p.Extractors.For(src.contentType)
	if err != nil {
		return nil, err
	}
	extracted, err := ex.Extract(raw)
	if err != nil {
		if docindex.ErrorCode(err) == docindex.EPARSE {
			return nil, err
		}
		return nil, docindex.Errorf(docindex.EPARSE, "extract %s: %v", src.url, err)
	}

	text := docindex.NormalizeText(extracted.Text)
	if text == "" {
		return nil, docindex.Errorf(docindex.EPARSE, "no text extracted from %s", src.url)
	}

	hash := src.contentHash
	if hash == "" {
		sum := sha256.Sum256(raw)
		hash = hex.EncodeToString(sum[:])
	}

	title := strings.TrimSpace(extracted.Title)
	if title == "" {
		title = src.title
	}
	if title == "" {
		title = strings.TrimSuffix(path.Base(src.path), path.Ext(src.path))
	}

	doc := docindex.NewDocument(src.url, hash, title, docindex.SplitText(text, p.ChunkSize, p.ChunkOverlap))
	if err := p.Corpus.ReplaceDocument(ctx, src.oldDocID, doc, p.records(doc, src)); err != nil {
		return nil, err
	}

	p.logger().Info("parsed", "url", src.url, "doc_id", doc.ID, "chunks", len(doc.Chunks))
	return doc, nil
}

func (p *Parser) records(doc *docindex.Document, src source) []*docindex.ChunkRecord {
	now := p.now().UTC()
	sourceURL := src.url
	if strings.HasPrefix(sourceURL, "file://") {
		sourceURL = ""
	}
	records := make([]*docindex.ChunkRecord, len(doc.Chunks))
	for i, c := range doc.Chunks {
		records[i] = &docindex.ChunkRecord{
			ID:         c.ID,
			DocID:      doc.ID,
			Index:      c.Index,
			SourcePath: src.path,
			SourceURL:  sourceURL,
			Title:      doc.Title,
			Ext:        strings.ToLower(path.Ext(src.path)),
			Chars:      utf8.RuneCountInString(c.Text),
			Text:       c.Text,
			CreatedAt:  now,
		}
	}
	return records
}

func (p *Parser) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}

func (p *Parser) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}
