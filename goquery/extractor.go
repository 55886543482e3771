// Package goquery extracts text and links from HTML documents using goquery.
package goquery

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docindex"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Ensure Extractor implements docindex.Extractor at compile time.
var _ docindex.Extractor = (*Extractor)(nil)

// dropSelector matches elements whose content is never visible text.
const dropSelector = "script, style, noscript, iframe, template, svg"

// blockElements start and end a line in the extracted text.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "details": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"summary": true, "table": true, "td": true, "th": true, "tr": true,
	"ul": true, "caption": true,
}

// Extractor returns the visible text of a whole HTML page.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract decodes raw to UTF-8, drops non-visible elements and returns the
// page title and body text with block boundaries as line breaks.
func (e *Extractor) Extract(raw []byte) (*docindex.ExtractResult, error) {
	if len(raw) == 0 {
		return nil, docindex.Errorf(docindex.EPARSE, "empty HTML input")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decode(raw)))
	if err != nil {
		return nil, docindex.Errorf(docindex.EPARSE, "failed to parse HTML: %v", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find(dropSelector).Remove()

	var b strings.Builder
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	for _, n := range root.Nodes {
		writeText(&b, n)
	}

	return &docindex.ExtractResult{
		Title: title,
		Text:  b.String(),
	}, nil
}

// decode converts raw to UTF-8 using the encoding declared or sniffed from
// the document. UTF-8 input is returned unchanged.
func decode(raw []byte) []byte {
	enc, name, _ := charset.DetermineEncoding(raw, "")
	if name == "utf-8" || enc == nil {
		return raw
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return raw
	}
	return out
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if n.Data == "br" {
			b.WriteByte('\n')
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}
