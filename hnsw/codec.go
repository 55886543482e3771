package hnsw

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fwojciec/docindex"
	"github.com/klauspost/compress/zstd"
)

// File layout, zstd-compressed:
//
//	magic "DXH1" | dim uint32 | count uint32 | count × (id int64, dim × float32) | graph export
var magic = [4]byte{'D', 'X', 'H', '1'}

// Ensure Codec implements docindex.VectorCodec at compile time.
var _ docindex.VectorCodec = (*Codec)(nil)

// Codec creates and serializes Index values.
type Codec struct {
	M        int
	EfSearch int
}

// NewCodec returns a Codec with default graph parameters.
func NewCodec() *Codec {
	return &Codec{M: DefaultM, EfSearch: DefaultEfSearch}
}

// NewIndex returns an empty Index.
func (c *Codec) NewIndex(dim int) docindex.VectorIndex {
	return NewIndex(dim, c.M, c.EfSearch)
}

// EncodeIndex compacts idx and writes it to w.
func (c *Codec) EncodeIndex(w io.Writer, idx docindex.VectorIndex) error {
	x, ok := idx.(*Index)
	if !ok {
		return docindex.Errorf(docindex.EINVALID, "cannot encode %T", idx)
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if len(x.orphans) > 0 {
		x.compact()
	}

	bw := bufio.NewWriter(zw)
	if err := x.writeTo(bw); err != nil {
		zw.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// writeTo writes the header, vectors and graph. Caller holds mu.
func (x *Index) writeTo(w io.Writer) error {
	ids := x.ids()
	header := struct {
		Magic [4]byte
		Dim   uint32
		Count uint32
	}{magic, uint32(x.dim), uint32(len(ids))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	for _, id := range ids {
		if err := binary.Write(w, binary.LittleEndian, id); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, x.vectors[id]); err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return x.graph.Export(w)
}

// DecodeIndex reads an index written by EncodeIndex.
func (c *Codec) DecodeIndex(r io.Reader) (docindex.VectorIndex, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	// Graph import needs an io.ByteReader, so everything goes through br.
	br := bufio.NewReader(zr)

	var header struct {
		Magic [4]byte
		Dim   uint32
		Count uint32
	}
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if header.Magic != magic {
		return nil, fmt.Errorf("not an index file")
	}

	x := NewIndex(int(header.Dim), c.M, c.EfSearch)
	for i := uint32(0); i < header.Count; i++ {
		var id int64
		if err := binary.Read(br, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("reading vector %d: %w", i, err)
		}
		vec := make([]float32, header.Dim)
		if err := binary.Read(br, binary.LittleEndian, vec); err != nil {
			return nil, fmt.Errorf("reading vector %d: %w", i, err)
		}
		x.vectors[id] = vec
	}

	if header.Count > 0 {
		if err := x.graph.Import(br); err != nil {
			return nil, fmt.Errorf("importing graph: %w", err)
		}
		if x.graph.Len() != len(x.vectors) {
			return nil, fmt.Errorf("graph holds %d nodes, expected %d", x.graph.Len(), len(x.vectors))
		}
	}
	return x, nil
}
