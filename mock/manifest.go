package mock

import (
	"context"

	"github.com/fwojciec/docindex"
)

var _ docindex.ManifestStore = (*ManifestStore)(nil)

// ManifestStore is a mock implementation of docindex.ManifestStore.
type ManifestStore struct {
	LoadManifestFn func(ctx context.Context) (docindex.Manifest, bool, error)
	SaveManifestFn func(ctx context.Context, m docindex.Manifest) error
}

func (s *ManifestStore) LoadManifest(ctx context.Context) (docindex.Manifest, bool, error) {
	return s.LoadManifestFn(ctx)
}

func (s *ManifestStore) SaveManifest(ctx context.Context, m docindex.Manifest) error {
	return s.SaveManifestFn(ctx, m)
}

var _ docindex.RawStore = (*RawStore)(nil)

// RawStore is a mock implementation of docindex.RawStore.
type RawStore struct {
	SaveRawFn   func(ctx context.Context, rawURL, ext string, body []byte) (string, error)
	ReadRawFn   func(ctx context.Context, path string) ([]byte, error)
	ExistsRawFn func(ctx context.Context, path string) bool
	ListRawFn   func(ctx context.Context) ([]string, error)
}

func (s *RawStore) SaveRaw(ctx context.Context, rawURL, ext string, body []byte) (string, error) {
	return s.SaveRawFn(ctx, rawURL, ext, body)
}

func (s *RawStore) ReadRaw(ctx context.Context, path string) ([]byte, error) {
	return s.ReadRawFn(ctx, path)
}

func (s *RawStore) ExistsRaw(ctx context.Context, path string) bool {
	return s.ExistsRawFn(ctx, path)
}

func (s *RawStore) ListRaw(ctx context.Context) ([]string, error) {
	return s.ListRawFn(ctx)
}
