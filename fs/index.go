package fs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/docindex"
	"github.com/google/uuid"
)

// Snapshot file names.
const (
	CurrentFile   = "CURRENT"
	IndexFile     = "index.hnsw"
	IndexMetaFile = "index.meta.json"
	IDMapFile     = "id_map.json"
	DocMapFile    = "doc_map.json"

	generationPrefix = "gen-"
	stagingPrefix    = ".staging-"
)

// Ensure IndexStore implements docindex.IndexStore at compile time.
var _ docindex.IndexStore = (*IndexStore)(nil)

// IndexStore commits index snapshots as generation directories.
//
// A snapshot is written to a staging directory, renamed to gen-NNNNNN, and
// published by atomically replacing the CURRENT file with the generation
// name. Readers resolve CURRENT once and read a complete generation, so a
// crash at any point leaves the previous snapshot in effect.
type IndexStore struct {
	dir   string
	codec docindex.VectorCodec

	// Keep is the number of generations retained, including the current
	// one. Older generations are removed after a commit.
	Keep int

	// Now returns the commit timestamp. Defaults to time.Now.
	Now func() time.Time

	mu sync.Mutex
}

// NewIndexStore creates an IndexStore in dir using codec for the vector
// index file.
func NewIndexStore(dir string, codec docindex.VectorCodec) *IndexStore {
	return &IndexStore{
		dir:   dir,
		codec: codec,
		Keep:  2,
		Now:   time.Now,
	}
}

// Dir returns the snapshot directory.
func (s *IndexStore) Dir() string {
	return s.dir
}

// NewState returns an empty state with a fresh vector index.
func (s *IndexStore) NewState(dim int, model string) *docindex.IndexState {
	return docindex.NewIndexState(s.codec.NewIndex(dim), model)
}

// Current returns the name of the committed generation, or "" if nothing
// has been committed.
func (s *IndexStore) Current() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, CurrentFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	} else if err != nil {
		return "", err
	}
	name := strings.TrimSpace(string(data))
	if !strings.HasPrefix(name, generationPrefix) || filepath.Base(name) != name {
		return "", docindex.Errorf(docindex.EUNREADABLE, "CURRENT names invalid generation %q", name)
	}
	return name, nil
}

// LoadState reads the committed snapshot.
func (s *IndexStore) LoadState(ctx context.Context) (*docindex.IndexState, error) {
	name, err := s.Current()
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, docindex.Errorf(docindex.ENOTFOUND, "no index has been committed in %s", s.dir)
	}
	genDir := filepath.Join(s.dir, name)

	var meta docindex.IndexMeta
	if err := readJSON(filepath.Join(genDir, IndexMetaFile), &meta); err != nil {
		return nil, unreadable(name, err)
	}

	idx, err := s.decodeIndex(filepath.Join(genDir, IndexFile))
	if err != nil {
		return nil, unreadable(name, err)
	}
	if idx.Len() != meta.NTotal || idx.Dim() != meta.Dim {
		return nil, docindex.Errorf(docindex.EUNREADABLE,
			"index %s holds %d vectors of dim %d, sidecar says %d of dim %d",
			name, idx.Len(), idx.Dim(), meta.NTotal, meta.Dim)
	}

	ids := docindex.IDMap{}
	if err := readJSON(filepath.Join(genDir, IDMapFile), &ids); err != nil {
		return nil, unreadable(name, err)
	}
	docs := docindex.DocChunkMap{}
	if err := readJSON(filepath.Join(genDir, DocMapFile), &docs); err != nil {
		return nil, unreadable(name, err)
	}

	if ids == nil {
		ids = docindex.IDMap{}
	}
	if docs == nil {
		docs = docindex.DocChunkMap{}
	}

	state := &docindex.IndexState{
		Index: idx,
		IDs:   ids,
		Docs:  docs,
		Meta:  meta,
	}
	state.BuildLookup()
	return state, nil
}

func (s *IndexStore) decodeIndex(path string) (docindex.VectorIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.codec.DecodeIndex(bufio.NewReader(f))
}

// SaveState commits state as a new generation and makes it current.
// state.Meta is updated with the committed count, dimension and time.
func (s *IndexStore) SaveState(ctx context.Context, state *docindex.IndexState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	stage := &stagingDir{path: filepath.Join(s.dir, stagingPrefix+uuid.New().String())}
	if err := os.Mkdir(stage.path, 0755); err != nil {
		return err
	}

	meta := state.Meta
	meta.NTotal = state.Index.Len()
	meta.Dim = state.Index.Dim()
	meta.Timestamp = s.Now().UTC()

	if err := stage.write(IndexFile, func(f *os.File) error {
		w := bufio.NewWriter(f)
		if err := s.codec.EncodeIndex(w, state.Index); err != nil {
			return err
		}
		return w.Flush()
	}); err != nil {
		stage.Abort()
		return fmt.Errorf("writing index: %w", err)
	}
	for file, v := range map[string]any{
		IDMapFile:     state.IDs,
		DocMapFile:    state.Docs,
		IndexMetaFile: meta,
	} {
		if err := stage.writeJSON(file, v); err != nil {
			stage.Abort()
			return fmt.Errorf("writing %s: %w", file, err)
		}
	}

	if err := ctx.Err(); err != nil {
		stage.Abort()
		return err
	}

	next, err := s.nextGeneration()
	if err != nil {
		stage.Abort()
		return err
	}
	if err := stage.Commit(filepath.Join(s.dir, next)); err != nil {
		stage.Abort()
		return err
	}
	if err := WriteFileAtomic(filepath.Join(s.dir, CurrentFile), []byte(next+"\n"), 0644); err != nil {
		return err
	}
	state.Meta = meta

	return s.prune(next)
}

// generations returns committed generation names in ascending order.
func (s *IndexStore) generations() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), generationPrefix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *IndexStore) nextGeneration() (string, error) {
	names, err := s.generations()
	if err != nil {
		return "", err
	}
	var last int
	if len(names) > 0 {
		last, _ = strconv.Atoi(strings.TrimPrefix(names[len(names)-1], generationPrefix))
	}
	return fmt.Sprintf("%s%06d", generationPrefix, last+1), nil
}

// prune removes generations beyond Keep and leftover staging directories.
func (s *IndexStore) prune(current string) error {
	names, err := s.generations()
	if err != nil {
		return err
	}
	keep := max(s.Keep, 1)
	for i, name := range names {
		if name == current || i >= len(names)-keep {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.dir, name)); err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), stagingPrefix) {
			_ = os.RemoveAll(filepath.Join(s.dir, e.Name()))
		}
	}
	return nil
}

// stagingDir collects the files of one generation before they are made
// visible with Commit.
type stagingDir struct {
	path string
}

func (d *stagingDir) write(name string, fn func(f *os.File) error) error {
	f, err := os.Create(filepath.Join(d.path, name))
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (d *stagingDir) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return d.write(name, func(f *os.File) error {
		_, err := f.Write(append(data, '\n'))
		return err
	})
}

// Commit renames the staging directory to final.
func (d *stagingDir) Commit(final string) error {
	if err := syncDir(d.path); err != nil {
		return err
	}
	if err := os.Rename(d.path, final); err != nil {
		return err
	}
	return syncDir(filepath.Dir(final))
}

// Abort removes the staging directory.
func (d *stagingDir) Abort() error {
	return os.RemoveAll(d.path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func unreadable(generation string, err error) error {
	return docindex.Errorf(docindex.EUNREADABLE, "index generation %s is unreadable: %v", generation, err)
}
