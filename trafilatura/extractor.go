// Package trafilatura extracts the main content of HTML pages using
// go-trafilatura, leaving out navigation and other boilerplate.
package trafilatura

import (
	"bytes"
	"strings"

	"github.com/fwojciec/docindex"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Ensure Extractor implements docindex.Extractor at compile time.
var _ docindex.Extractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura to extract main content from HTML.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract processes raw HTML and returns the main content as text.
func (e *Extractor) Extract(raw []byte) (*docindex.ExtractResult, error) {
	if len(raw) == 0 {
		return nil, docindex.Errorf(docindex.EPARSE, "empty HTML input")
	}

	opts := trafilatura.Options{
		EnableFallback: true,
	}

	result, err := trafilatura.Extract(bytes.NewReader(raw), opts)
	if err != nil {
		return nil, docindex.Errorf(docindex.EPARSE, "extract main content: %v", err)
	}

	text := result.ContentText
	if text == "" && result.ContentNode != nil {
		text = nodeText(result.ContentNode)
	}

	return &docindex.ExtractResult{
		Title: result.Metadata.Title,
		Text:  text,
	}, nil
}

// nodeText concatenates the text nodes under n, one line per paragraph.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && (n.Data == "p" || n.Data == "li" || strings.HasPrefix(n.Data, "h")) {
			b.WriteByte('\n')
		}
	}
	walk(n)
	return b.String()
}
