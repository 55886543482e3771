// Package pdf extracts the text layer of PDF documents using ledongthuc/pdf.
package pdf

import (
	"bytes"
	"io"
	"strings"
	"unicode"

	"github.com/fwojciec/docindex"
	"github.com/ledongthuc/pdf"
)

// MinTextChars is the number of non-space characters below which the
// plain text layer is considered empty and rows are reconstructed instead.
const MinTextChars = 50

// Ensure Extractor implements docindex.Extractor at compile time.
var _ docindex.Extractor = (*Extractor)(nil)

// Extractor extracts text from PDF documents.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the document title from the info dictionary and the text
// layer. When the plain text layer is nearly empty the text is rebuilt page
// by page from positioned rows, which recovers text some producers lay out
// as individually placed glyphs.
func (e *Extractor) Extract(raw []byte) (res *docindex.ExtractResult, err error) {
	if len(raw) == 0 {
		return nil, docindex.Errorf(docindex.EPARSE, "empty PDF input")
	}

	// The PDF reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, docindex.Errorf(docindex.EPARSE, "malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, docindex.Errorf(docindex.EPARSE, "open PDF: %v", err)
	}

	text, err := plainText(r)
	if err != nil || countNonSpace(text) < MinTextChars {
		if rows := rowText(r); countNonSpace(rows) > countNonSpace(text) {
			text = rows
		}
	}
	if text == "" && err != nil {
		return nil, docindex.Errorf(docindex.EPARSE, "read PDF text: %v", err)
	}

	return &docindex.ExtractResult{
		Title: strings.TrimSpace(r.Trailer().Key("Info").Key("Title").Text()),
		Text:  text,
	}, nil
}

func plainText(r *pdf.Reader) (string, error) {
	tr, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, tr); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// rowText joins each page's text rows, pages separated by a blank line.
// Pages that fail to decode are skipped.
func rowText(r *pdf.Reader) string {
	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var b strings.Builder
			for _, word := range row.Content {
				b.WriteString(word.S)
			}
			if line := strings.TrimSpace(b.String()); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			pages = append(pages, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(pages, "\n\n")
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
