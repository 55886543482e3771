package docindex

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"io"
	"math"
	"strconv"
	"time"
)

// Embedder maps texts to dense vectors.
type Embedder interface {
	// Embed returns one vector per text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the length of every returned vector.
	Dimensions() int

	// Model identifies the embedding model. Vectors from different models
	// never share an index.
	Model() string
}

// VectorHit is one nearest-neighbour match. Score is the inner product of
// the unit-normalized query and stored vector.
type VectorHit struct {
	ID    int64
	Score float32
}

// VectorIndex is an approximate nearest neighbour index over unit vectors
// addressed by int64 ids.
type VectorIndex interface {
	Dim() int
	Len() int

	// Add inserts vec under id. Returns EDIMENSION if len(vec) != Dim().
	Add(id int64, vec []float32) error

	// Remove deletes id and reports whether it was present.
	Remove(id int64) bool

	// Search returns up to k hits ordered by descending score.
	Search(query []float32, k int) ([]VectorHit, error)

	// Vector returns the stored vector for id.
	Vector(id int64) ([]float32, bool)
}

// VectorCodec creates and serializes vector indexes.
type VectorCodec interface {
	NewIndex(dim int) VectorIndex
	EncodeIndex(w io.Writer, idx VectorIndex) error
	DecodeIndex(r io.Reader) (VectorIndex, error)
}

// VectorID derives the int64 vector id of a chunk: the first eight bytes of
// sha1(chunkID) read as a big-endian signed integer.
func VectorID(chunkID string) int64 {
	sum := sha1.Sum([]byte(chunkID))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// NormalizeVector scales v in place to unit L2 norm. Zero vectors are left
// untouched.
func NormalizeVector(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

// Dot returns the inner product of a and b over their common length.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range min(len(a), len(b)) {
		sum += a[i] * b[i]
	}
	return sum
}

// IDMap maps chunk id to vector id.
type IDMap map[string]int64

// DocChunkMap maps doc id to the chunk ids currently indexed for it, in
// chunk order.
type DocChunkMap map[string][]string

// IndexMeta is the sidecar written next to a committed index.
type IndexMeta struct {
	NTotal    int       `json:"ntotal"`
	Dim       int       `json:"dim"`
	Model     string    `json:"model,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// IndexState is the unit the indexer mutates and the store commits: the
// vector index plus the two id maps that describe it.
type IndexState struct {
	Index VectorIndex
	IDs   IDMap
	Docs  DocChunkMap
	Meta  IndexMeta

	byVector map[int64]string
}

// NewIndexState returns an empty state around idx.
func NewIndexState(idx VectorIndex, model string) *IndexState {
	return &IndexState{
		Index:    idx,
		IDs:      make(IDMap),
		Docs:     make(DocChunkMap),
		Meta:     IndexMeta{Dim: idx.Dim(), Model: model},
		byVector: make(map[int64]string),
	}
}

// BuildLookup builds the vector id to chunk id lookup behind ChunkID. A
// loaded state must be built before it is shared with concurrent readers;
// afterwards ChunkID only reads.
func (s *IndexState) BuildLookup() {
	s.byVector = make(map[int64]string, len(s.IDs))
	for chunkID, vid := range s.IDs {
		s.byVector[vid] = chunkID
	}
}

func (s *IndexState) reverse() map[int64]string {
	if s.byVector == nil {
		s.BuildLookup()
	}
	return s.byVector
}

// ChunkID returns the chunk id stored under vector id vid.
func (s *IndexState) ChunkID(vid int64) (string, bool) {
	chunkID, ok := s.reverse()[vid]
	return chunkID, ok
}

// Assign returns the vector id for chunkID, allocating one if needed.
// A hash collision with a different chunk is resolved by probing
// VectorID(chunkID + "#n") for increasing n; existing ids never move.
func (s *IndexState) Assign(chunkID string) int64 {
	if vid, ok := s.IDs[chunkID]; ok {
		return vid
	}
	rev := s.reverse()
	vid := VectorID(chunkID)
	for n := 1; ; n++ {
		if _, taken := rev[vid]; !taken {
			break
		}
		vid = VectorID(chunkID + "#" + strconv.Itoa(n))
	}
	s.IDs[chunkID] = vid
	rev[vid] = chunkID
	return vid
}

// Release forgets chunkID and returns the vector id it held.
func (s *IndexState) Release(chunkID string) (int64, bool) {
	vid, ok := s.IDs[chunkID]
	if !ok {
		return 0, false
	}
	delete(s.IDs, chunkID)
	delete(s.reverse(), vid)
	return vid, true
}

// ChunkCount returns the total number of chunk ids across all documents.
func (s *IndexState) ChunkCount() int {
	var n int
	for _, ids := range s.Docs {
		n += len(ids)
	}
	return n
}

// Check verifies that the index, the IdMap and the DocChunkMap describe the
// same set of vectors.
func (s *IndexState) Check() error {
	ntotal, ids, chunks := s.Index.Len(), len(s.IDs), s.ChunkCount()
	if ntotal != ids || ids != chunks {
		return Errorf(EINTERNAL, "index out of sync: %d vectors, %d id map entries, %d doc map chunks", ntotal, ids, chunks)
	}
	return nil
}

// IndexStore loads and commits index snapshots.
type IndexStore interface {
	// NewState returns an empty state for vectors of dim dimensions.
	NewState(dim int, model string) *IndexState

	// LoadState reads the committed snapshot. Returns ENOTFOUND when
	// nothing has been committed and EUNREADABLE when the snapshot cannot
	// be decoded.
	LoadState(ctx context.Context) (*IndexState, error)

	// SaveState commits s as the new snapshot atomically. Readers see
	// either the previous snapshot or s, never a mixture.
	SaveState(ctx context.Context, s *IndexState) error
}

// AuditReport compares the committed index with the chunk corpus.
type AuditReport struct {
	VectorCount      int  `json:"vector_count"`
	ChunkRecordCount int  `json:"chunk_record_count"`
	IDMapCount       int  `json:"id_map_count"`
	DocMapCount      int  `json:"doc_map_count"`
	Match            bool `json:"match"`
}
