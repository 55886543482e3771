package docindex

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"
	"path"
	"strings"
)

// ContentType tags a seed with the extractor that handles it.
type ContentType string

// Supported content types.
const (
	ContentTypeHTML ContentType = "html"
	ContentTypePDF  ContentType = "pdf"
)

// Ext returns the default file extension for stored raw bodies.
func (t ContentType) Ext() string {
	if t == ContentTypePDF {
		return ".pdf"
	}
	return ".html"
}

// Seed is a document the pipeline is asked to track.
type Seed struct {
	URL         string      `json:"url"`
	Type        ContentType `json:"type"`
	Title       string      `json:"title,omitempty"`
	Lang        string      `json:"lang,omitempty"`
	PublishedAt string      `json:"published_at,omitempty"`
}

// Validate returns an error if the seed contains invalid fields.
func (s *Seed) Validate() error {
	if s.URL == "" {
		return Errorf(EINVALID, "seed url required")
	}
	u, err := url.Parse(s.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Errorf(EINVALID, "seed url %q must be an absolute http(s) URL", s.URL)
	}
	switch s.Type {
	case ContentTypeHTML, ContentTypePDF:
	default:
		return Errorf(EINVALID, "seed %q has unsupported type %q", s.URL, s.Type)
	}
	return nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseSeeds decodes a JSON array of seeds. A leading UTF-8 byte order mark
// is tolerated. URLs are normalized with NormalizeURL, an empty type is
// inferred from the URL extension, and duplicate URLs keep their first
// occurrence.
func ParseSeeds(r io.Reader) ([]*Seed, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	var raw []*Seed
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, Errorf(EINVALID, "invalid seed list: %v", err)
	}

	seen := make(map[string]bool, len(raw))
	seeds := make([]*Seed, 0, len(raw))
	for _, s := range raw {
		if s == nil {
			continue
		}
		normalized, err := NormalizeURL(strings.TrimSpace(s.URL))
		if err != nil {
			return nil, err
		}
		s.URL = normalized
		if s.Type == "" {
			s.Type = InferContentType(s.URL, "")
		}
		s.Type = ContentType(strings.ToLower(string(s.Type)))
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		seeds = append(seeds, s)
	}
	return seeds, nil
}

// NormalizeURL drops the query string and fragment so that one document is
// tracked under exactly one key.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", Errorf(EINVALID, "invalid url %q: %v", rawURL, err)
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String(), nil
}

// Domain returns the host portion of a URL, or "" if it cannot be parsed.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// InferContentType guesses the content type from the URL extension and,
// when given, the response media type.
func InferContentType(rawURL, mediaType string) ContentType {
	if strings.Contains(strings.ToLower(mediaType), "application/pdf") {
		return ContentTypePDF
	}
	if u, err := url.Parse(rawURL); err == nil {
		if strings.EqualFold(path.Ext(u.Path), ".pdf") {
			return ContentTypePDF
		}
	}
	return ContentTypeHTML
}
