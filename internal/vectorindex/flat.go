package vectorindex

import (
	"sort"
	"sync"

	"github.com/standardbeagle/codegraph/internal/cgerrors"
	"github.com/standardbeagle/codegraph/internal/types"
)

// Flat is a brute-force exact index: every Search scans the full vector
// set. No ecosystem package does plain linear exact search as a library
// primitive worth a dependency, so this is a direct ~100 line
// implementation (see DESIGN.md) — the spec's correctness baseline that
// approximate index types are checked against.
type Flat struct {
	mu      sync.RWMutex
	dim     int
	next    types.EmbeddingHandle
	vectors map[types.EmbeddingHandle][]float32
}

// NewFlat builds an empty Flat index for vectors of the given dimension.
func NewFlat(dim int) *Flat {
	return &Flat{dim: dim, vectors: make(map[types.EmbeddingHandle][]float32)}
}

func (f *Flat) Train(vectors [][]float32) error { return nil }
func (f *Flat) Trained() bool                   { return true }
func (f *Flat) Dim() int                        { return f.dim }

func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

func (f *Flat) Add(vectors [][]float32) ([]types.EmbeddingHandle, error) {
	if err := checkDim(f.dim, vectors); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	handles := make([]types.EmbeddingHandle, len(vectors))
	for i, v := range vectors {
		h := f.next
		f.next++
		cp := make([]float32, len(v))
		copy(cp, v)
		f.vectors[h] = cp
		handles[i] = h
	}
	return handles, nil
}

func (f *Flat) Remove(handle types.EmbeddingHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.vectors, handle)
	return nil
}

func (f *Flat) Search(query []float32, k int) ([]Result, error) {
	if len(query) != f.dim {
		return nil, cgerrors.NewVectorError("flat", errDimMismatch{expected: f.dim, got: len(query)})
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	results := make([]Result, 0, len(f.vectors))
	for h, v := range f.vectors {
		results = append(results, Result{Handle: h, Distance: innerProductDistance(query, v)})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Handle < results[j].Handle
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (f *Flat) RangeSearch(query []float32, radius float32) ([]Result, error) {
	all, err := f.Search(query, f.Len())
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if r.Distance <= radius {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *Flat) BatchSearch(queries [][]float32, k int) ([][]Result, error) {
	out := make([][]Result, len(queries))
	for i, q := range queries {
		r, err := f.Search(q, k)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
