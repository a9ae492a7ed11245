// Package vector provides a flat vector index with exact nearest-neighbor search.
package vector

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrDimensionMismatch is returned when a vector does not match the index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// ErrIndexCorrupt is returned when a persisted index cannot be read back.
var ErrIndexCorrupt = errors.New("vector index corrupt")

// flatMagic identifies a persisted FlatIndex file.
const flatMagic = uint32(0x464d4958) // "FMIX"

// Result is a single nearest-neighbor hit. Position is the insertion position
// of the matched vector; Distance is squared Euclidean distance to the query.
type Result struct {
	Position int
	Distance float64
}

// FlatIndex stores vectors in insertion order and answers exact nearest-neighbor
// queries by squared Euclidean distance. The position of a vector is its sole
// identity; callers keep their own position-aligned record list.
type FlatIndex struct {
	dimensions int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty index bound to the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	return &FlatIndex{
		dimensions: dimensions,
		vectors:    make([][]float32, 0),
	}, nil
}

// Dimensions returns the dimension the index is bound to.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Size returns the number of stored vectors.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Add appends vectors in order. Every vector must match the bound dimension;
// on mismatch nothing is appended and ErrDimensionMismatch is returned.
func (f *FlatIndex) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dimensions {
			return fmt.Errorf("add vector %d: got %d, expected %d: %w", i, len(v), f.dimensions, ErrDimensionMismatch)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range vectors {
		vec := make([]float32, f.dimensions)
		copy(vec, v)
		f.vectors = append(f.vectors, vec)
	}
	return nil
}

// Search returns up to k results ordered by ascending squared Euclidean
// distance. Ties are broken by lower insertion position so results are
// deterministic. An empty index or k <= 0 yields no results.
func (f *FlatIndex) Search(query []float32, k int) ([]Result, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query: got %d, expected %d: %w", len(query), f.dimensions, ErrDimensionMismatch)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}
	results := make([]Result, len(f.vectors))
	for i, vec := range f.vectors {
		results[i] = Result{Position: i, Distance: SquaredL2(query, vec)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Position < results[j].Position
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Save persists the index to path. The file is written to a temporary sibling
// and renamed into place so a failed write never leaves a partial snapshot.
// Format: magic (4), dimensions (4), count (4), then count*dimensions float32,
// all little-endian.
func (f *FlatIndex) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := f.writeTo(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

func (f *FlatIndex) writeTo(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, flatMagic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(f.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(f.vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, vec := range f.vectors {
		if _, err := w.Write(float32SliceToBytes(vec)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// LoadFlatIndex reads an index persisted by Save. A missing file returns
// os.ErrNotExist (wrapped); an unreadable or truncated file returns
// ErrIndexCorrupt (wrapped).
func LoadFlatIndex(path string) (*FlatIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	var magic, dim, count uint32
	if err := binary.Read(file, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", ErrIndexCorrupt)
	}
	if magic != flatMagic {
		return nil, fmt.Errorf("bad magic %#x: %w", magic, ErrIndexCorrupt)
	}
	if err := binary.Read(file, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", ErrIndexCorrupt)
	}
	if dim == 0 {
		return nil, fmt.Errorf("zero dimensions: %w", ErrIndexCorrupt)
	}
	if err := binary.Read(file, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read count: %w", ErrIndexCorrupt)
	}
	idx := &FlatIndex{
		dimensions: int(dim),
		vectors:    make([][]float32, 0, count),
	}
	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(file, buf); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, ErrIndexCorrupt)
		}
		idx.vectors = append(idx.vectors, bytesToFloat32Slice(buf))
	}
	return idx, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
