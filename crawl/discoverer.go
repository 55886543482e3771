package crawl

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/fwojciec/docindex"
)

// Frontier sizing for one-hop discovery.
const (
	frontierExpectedURLs      = 10000
	frontierFalsePositiveRate = 0.01
)

// discoverableExt lists the URL path extensions discovery follows. An empty
// extension covers directory-style URLs.
var discoverableExt = map[string]bool{
	".html": true,
	".htm":  true,
	".pdf":  true,
	"":      true,
}

// Discoverer expands HTML seeds by one hop: it reads each seed's stored
// body and returns the same-domain HTML and PDF links found in it.
type Discoverer struct {
	Raw   docindex.RawStore
	Links docindex.LinkExtractor
}

// Discover returns new seeds linked from the HTML seeds whose bodies are
// stored under the entries of m. Seeds themselves are never returned.
// Results are in URL order.
func (d *Discoverer) Discover(ctx context.Context, seeds []*docindex.Seed, m docindex.Manifest) ([]*docindex.Seed, error) {
	frontier := NewFrontier(frontierExpectedURLs, frontierFalsePositiveRate)
	for _, s := range seeds {
		frontier.MarkSeen(s.URL)
	}

	for _, s := range seeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.Type != docindex.ContentTypeHTML {
			continue
		}
		entry, ok := m[s.URL]
		if !ok || entry.Path == "" {
			continue
		}
		body, err := d.Raw.ReadRaw(ctx, entry.Path)
		if err != nil {
			continue
		}
		links, err := d.Links.ExtractLinks(body, s.URL)
		if err != nil {
			continue
		}

		domain := docindex.Domain(s.URL)
		for _, link := range links {
			normalized, err := docindex.NormalizeURL(link)
			if err != nil {
				continue
			}
			if docindex.Domain(normalized) != domain || !Discoverable(normalized) {
				continue
			}
			frontier.Push(normalized)
		}
	}

	var found []*docindex.Seed
	for {
		next, ok := frontier.Pop()
		if !ok {
			break
		}
		found = append(found, &docindex.Seed{
			URL:  next,
			Type: docindex.InferContentType(next, ""),
		})
	}
	return found, nil
}

// Discoverable reports whether discovery follows links to rawURL.
func Discoverable(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return discoverableExt[strings.ToLower(path.Ext(u.Path))]
}
