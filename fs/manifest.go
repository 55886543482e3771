package fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/fwojciec/docindex"
)

// Ensure ManifestStore implements docindex.ManifestStore at compile time.
var _ docindex.ManifestStore = (*ManifestStore)(nil)

// ManifestStore keeps the manifest as one JSON object keyed by URL.
// Keys are written in sorted order, so an unchanged manifest is rewritten
// byte for byte.
type ManifestStore struct {
	path string
}

// NewManifestStore creates a ManifestStore backed by the file at path.
func NewManifestStore(path string) *ManifestStore {
	return &ManifestStore{path: path}
}

// LoadManifest reads the manifest. The bool result is false if the file
// does not exist yet.
func (s *ManifestStore) LoadManifest(ctx context.Context) (docindex.Manifest, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return docindex.Manifest{}, false, nil
	} else if err != nil {
		return nil, false, err
	}

	m := docindex.Manifest{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false, docindex.Errorf(docindex.EINVALID, "manifest %s is corrupt: %v", s.path, err)
	}
	for u, e := range m {
		if e == nil {
			delete(m, u)
			continue
		}
		if e.URL == "" {
			e.URL = u
		}
	}
	return m, true, nil
}

// SaveManifest replaces the manifest atomically.
func (s *ManifestStore) SaveManifest(ctx context.Context, m docindex.Manifest) error {
	if m == nil {
		m = docindex.Manifest{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(s.path, append(data, '\n'), 0644)
}
