package vectorindex

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/standardbeagle/codegraph/internal/cgerrors"
	"github.com/standardbeagle/codegraph/internal/types"
)

// LSH is a reduced-fidelity index using random-hyperplane locality
// sensitive hashing: each vector is reduced to an NBits signature (the
// sign of its dot product against NBits random hyperplanes), and a search
// only rescans vectors sharing the query's signature bucket. Hand-rolled
// (see DESIGN.md) — no pack example carries a Go LSH library.
type LSH struct {
	mu     sync.RWMutex
	dim    int
	nbits  int
	planes [][]float32
	rng    *rand.Rand

	buckets map[uint64][]lshEntry
}

type lshEntry struct {
	handle types.EmbeddingHandle
	vector []float32
}

// NewLSH builds an untrained LSH index; the random hyperplanes are chosen
// in Train.
func NewLSH(dim int, params Params) *LSH {
	nbits := params.NBits
	if nbits <= 0 {
		nbits = 16
	}
	if nbits > 63 {
		nbits = 63
	}
	return &LSH{dim: dim, nbits: nbits, rng: rand.New(rand.NewSource(1)), buckets: make(map[uint64][]lshEntry)}
}

func (l *LSH) Dim() int { return l.dim }

func (l *LSH) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := 0
	for _, b := range l.buckets {
		total += len(b)
	}
	return total
}

func (l *LSH) Trained() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.planes != nil
}

// Train draws NBits random hyperplanes; vectors is unused beyond dimension
// validation since LSH's planes do not depend on the data distribution.
func (l *LSH) Train(vectors [][]float32) error {
	if err := checkDim(l.dim, vectors); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	planes := make([][]float32, l.nbits)
	for i := range planes {
		plane := make([]float32, l.dim)
		for d := range plane {
			plane[d] = float32(l.rng.NormFloat64())
		}
		planes[i] = plane
	}
	l.planes = planes
	return nil
}

func (l *LSH) signature(v []float32) uint64 {
	var sig uint64
	for i, plane := range l.planes {
		var dot float32
		for d := range v {
			dot += v[d] * plane[d]
		}
		if dot >= 0 {
			sig |= 1 << uint(i)
		}
	}
	return sig
}

func (l *LSH) Add(vectors [][]float32) ([]types.EmbeddingHandle, error) {
	if err := checkDim(l.dim, vectors); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.planes == nil {
		return nil, cgerrors.NewVectorError("lsh", errUntrainedIndex{})
	}

	var next types.EmbeddingHandle
	for _, b := range l.buckets {
		for _, e := range b {
			if e.handle >= next {
				next = e.handle + 1
			}
		}
	}

	handles := make([]types.EmbeddingHandle, len(vectors))
	for i, v := range vectors {
		h := next
		next++
		cp := make([]float32, len(v))
		copy(cp, v)
		sig := l.signature(v)
		l.buckets[sig] = append(l.buckets[sig], lshEntry{handle: h, vector: cp})
		handles[i] = h
	}
	return handles, nil
}

func (l *LSH) Remove(handle types.EmbeddingHandle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for sig, bucket := range l.buckets {
		for i, e := range bucket {
			if e.handle == handle {
				l.buckets[sig] = append(bucket[:i], bucket[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (l *LSH) Search(query []float32, k int) ([]Result, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.planes == nil {
		return nil, cgerrors.NewVectorError("lsh", errUntrainedIndex{})
	}
	if len(query) != l.dim {
		return nil, cgerrors.NewVectorError("lsh", errDimMismatch{expected: l.dim, got: len(query)})
	}

	sig := l.signature(query)
	bucket := l.buckets[sig]
	results := make([]Result, 0, len(bucket))
	for _, e := range bucket {
		results = append(results, Result{Handle: e.handle, Distance: innerProductDistance(query, e.vector)})
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

func (l *LSH) RangeSearch(query []float32, radius float32) ([]Result, error) {
	all, err := l.Search(query, l.Len())
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

func (l *LSH) BatchSearch(queries [][]float32, k int) ([][]Result, error) {
	out := make([][]Result, len(queries))
	for i, q := range queries {
		r, err := l.Search(q, k)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
