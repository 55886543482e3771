package fs

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fwojciec/docindex"
)

// Ensure RawStore implements docindex.RawStore at compile time.
var _ docindex.RawStore = (*RawStore)(nil)

// RawStore keeps fetched bodies in a flat directory.
type RawStore struct {
	dir string
}

// NewRawStore creates a RawStore rooted at dir.
func NewRawStore(dir string) *RawStore {
	return &RawStore{dir: dir}
}

// Dir returns the store root.
func (s *RawStore) Dir() string {
	return s.dir
}

// RawName returns the file name for rawURL: the first 20 hex characters of
// sha1(rawURL) followed by ext.
func RawName(rawURL, ext string) string {
	sum := sha1.Sum([]byte(rawURL))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return hex.EncodeToString(sum[:])[:20] + strings.ToLower(ext)
}

// SaveRaw writes body atomically and returns its name relative to the root.
func (s *RawStore) SaveRaw(ctx context.Context, rawURL, ext string, body []byte) (string, error) {
	name := RawName(rawURL, ext)
	if err := WriteFileAtomic(filepath.Join(s.dir, name), body, 0644); err != nil {
		return "", err
	}
	return name, nil
}

// ReadRaw returns the body stored under name.
func (s *RawStore) ReadRaw(ctx context.Context, name string) ([]byte, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, docindex.Errorf(docindex.ENOTFOUND, "raw file %q not found", name)
	}
	return data, err
}

// ExistsRaw reports whether name is stored.
func (s *RawStore) ExistsRaw(ctx context.Context, name string) bool {
	path, err := s.resolve(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// ListRaw returns the names of all stored bodies, sorted. Temporary files
// from interrupted writes are skipped.
func (s *RawStore) ListRaw(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// resolve keeps lookups inside the store root.
func (s *RawStore) resolve(name string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", docindex.Errorf(docindex.EINVALID, "invalid raw file name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}
