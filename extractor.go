package docindex

// ExtractResult holds the text extracted from a raw document.
type ExtractResult struct {
	// Title is the document title, empty when the format carries none.
	Title string

	// Text is the visible text with block boundaries as line breaks.
	// It is not yet normalized.
	Text string
}

// Extractor turns raw document bytes into text.
type Extractor interface {
	// Extract returns the title and text of raw. Malformed or
	// unsupported content returns an EPARSE error.
	Extract(raw []byte) (*ExtractResult, error)
}

// Extractors selects an Extractor by content type.
type Extractors map[ContentType]Extractor

// For returns the extractor registered for t.
func (e Extractors) For(t ContentType) (Extractor, error) {
	ex, ok := e[t]
	if !ok || ex == nil {
		return nil, Errorf(EPARSE, "no extractor for content type %q", t)
	}
	return ex, nil
}

// LinkExtractor finds outgoing links in an HTML page.
type LinkExtractor interface {
	// ExtractLinks returns absolute, fragment-free links from html
	// resolved against baseURL, in document order without duplicates.
	ExtractLinks(html []byte, baseURL string) ([]string, error)
}
