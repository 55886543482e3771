package docindex

import (
	"context"
	"sort"
	"time"
)

// ManifestEntry records the fetch state of one URL.
type ManifestEntry struct {
	URL          string      `json:"url"`
	Path         string      `json:"path"`
	ContentHash  string      `json:"content_hash"`
	ContentType  ContentType `json:"content_type"`
	LastModified string      `json:"last_modified,omitempty"`
	ETag         string      `json:"etag,omitempty"`
	Title        string      `json:"title,omitempty"`

	// UpdatedAt is the time the stored content last changed.
	UpdatedAt time.Time `json:"updated_at"`

	// ParseNeeded is set by the fetcher when the content changed and
	// cleared by the parser once the chunk corpus reflects it.
	ParseNeeded bool `json:"parse_needed"`

	// DocID is the document id the corpus currently holds for this URL.
	DocID string `json:"doc_id,omitempty"`
}

// Clone returns a copy of the entry.
func (e *ManifestEntry) Clone() *ManifestEntry {
	other := *e
	return &other
}

// Manifest maps URL to its entry.
type Manifest map[string]*ManifestEntry

// Clone returns a deep copy, used as the snapshot a pass operates on.
func (m Manifest) Clone() Manifest {
	other := make(Manifest, len(m))
	for k, v := range m {
		other[k] = v.Clone()
	}
	return other
}

// URLs returns the manifest keys in sorted order.
func (m Manifest) URLs() []string {
	urls := make([]string, 0, len(m))
	for u := range m {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Pending returns the entries with ParseNeeded set, sorted by URL.
func (m Manifest) Pending() []*ManifestEntry {
	var entries []*ManifestEntry
	for _, u := range m.URLs() {
		if e := m[u]; e.ParseNeeded {
			entries = append(entries, e)
		}
	}
	return entries
}

// HasDocID reports whether any entry currently points at docID.
func (m Manifest) HasDocID(docID string) bool {
	for _, e := range m {
		if e.DocID == docID {
			return true
		}
	}
	return false
}

// ManifestStore loads and persists the manifest. SaveManifest replaces the
// stored manifest atomically.
type ManifestStore interface {
	// LoadManifest returns the stored manifest. The bool result is false
	// when no manifest has been written yet.
	LoadManifest(ctx context.Context) (Manifest, bool, error)

	SaveManifest(ctx context.Context, m Manifest) error
}

// RawStore persists fetched bodies.
type RawStore interface {
	// SaveRaw writes body for rawURL atomically and returns its path
	// relative to the store root.
	SaveRaw(ctx context.Context, rawURL, ext string, body []byte) (string, error)

	// ReadRaw returns the stored body at path.
	ReadRaw(ctx context.Context, path string) ([]byte, error)

	// ExistsRaw reports whether path is present.
	ExistsRaw(ctx context.Context, path string) bool

	// ListRaw returns the paths of every stored body, sorted.
	ListRaw(ctx context.Context) ([]string, error)
}
