package mock

import "github.com/fwojciec/docindex"

var _ docindex.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of docindex.Extractor.
type Extractor struct {
	ExtractFn func(raw []byte) (*docindex.ExtractResult, error)
}

func (e *Extractor) Extract(raw []byte) (*docindex.ExtractResult, error) {
	return e.ExtractFn(raw)
}

var _ docindex.LinkExtractor = (*LinkExtractor)(nil)

// LinkExtractor is a mock implementation of docindex.LinkExtractor.
type LinkExtractor struct {
	ExtractLinksFn func(html []byte, baseURL string) ([]string, error)
}

func (e *LinkExtractor) ExtractLinks(html []byte, baseURL string) ([]string, error) {
	return e.ExtractLinksFn(html, baseURL)
}
