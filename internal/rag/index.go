// internal/rag/index.go
package rag

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

// indexMagic identifies the on-disk flat index format.
var indexMagic = [8]byte{'C', 'H', 'E', 'M', 'A', 'I', 'D', 'X'}

// Index is a read-only flat inner-product index over unit-normalized
// document embeddings. It is loaded once and safe for concurrent reads.
type Index struct {
	dim  int
	vecs []float32
}

// Hit is a single nearest-neighbor result: the row position in the index
// and its inner-product similarity against the query.
type Hit struct {
	Pos   int
	Score float64
}

// NewIndex builds an in-memory index from row vectors. All rows must share
// the same dimension.
func NewIndex(rows [][]float32) (*Index, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("index: no vectors")
	}
	dim := len(rows[0])
	if dim == 0 {
		return nil, fmt.Errorf("index: zero-dimension vectors")
	}
	vecs := make([]float32, 0, len(rows)*dim)
	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("index: row %d has dimension %d, want %d", i, len(row), dim)
		}
		vecs = append(vecs, row...)
	}
	return &Index{dim: dim, vecs: vecs}, nil
}

// Len returns the number of indexed vectors.
func (ix *Index) Len() int {
	return len(ix.vecs) / ix.dim
}

// Dimension returns the vector dimension.
func (ix *Index) Dimension() int {
	return ix.dim
}

// Search returns the topK most similar rows by inner product, ordered by
// descending score.
func (ix *Index) Search(query []float32, topK int) []Hit {
	if topK <= 0 || len(query) != ix.dim {
		return nil
	}
	count := ix.Len()
	hits := make([]Hit, 0, count)
	for pos := 0; pos < count; pos++ {
		row := ix.vecs[pos*ix.dim : (pos+1)*ix.dim]
		var dot float64
		for i := range row {
			dot += float64(row[i]) * float64(query[i])
		}
		hits = append(hits, Hit{Pos: pos, Score: dot})
	}
	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK]
}

// WriteIndex persists the index to path in the flat binary format:
// magic, uint32 dimension, uint32 row count, then row-major float32 values,
// all little-endian.
func WriteIndex(path string, ix *Index) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if _, err := w.Write(indexMagic[:]); err != nil {
		return fmt.Errorf("write index header: %w", err)
	}
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], uint32(ix.dim))
	binary.LittleEndian.PutUint32(header[4:8], uint32(ix.Len()))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write index header: %w", err)
	}

	row := make([]byte, 4)
	for _, v := range ix.vecs {
		binary.LittleEndian.PutUint32(row, math.Float32bits(v))
		if _, err := w.Write(row); err != nil {
			return fmt.Errorf("write index vectors: %w", err)
		}
	}
	return w.Flush()
}

// LoadIndex reads an index previously written by WriteIndex.
func LoadIndex(path string) (*Index, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	r := bufio.NewReader(file)
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read index header: %w", err)
	}
	if magic != indexMagic {
		return nil, fmt.Errorf("index file %s: unrecognized format", path)
	}

	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read index header: %w", err)
	}
	dim := int(binary.LittleEndian.Uint32(header[0:4]))
	count := int(binary.LittleEndian.Uint32(header[4:8]))
	if dim <= 0 || count <= 0 {
		return nil, fmt.Errorf("index file %s: empty index", path)
	}

	raw := make([]byte, 4*dim*count)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read index vectors: %w", err)
	}
	vecs := make([]float32, dim*count)
	for i := range vecs {
		vecs[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4 : i*4+4]))
	}
	return &Index{dim: dim, vecs: vecs}, nil
}

