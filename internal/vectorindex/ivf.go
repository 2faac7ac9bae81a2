package vectorindex

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/standardbeagle/codegraph/internal/cgerrors"
	"github.com/standardbeagle/codegraph/internal/types"
)

// IVF is a reduced-fidelity inverted-file index: vectors are assigned to
// the nearest of NList k-means centroids, and a search only scans the
// NProbe closest lists rather than the whole set. No pack example carries
// a dedicated Go IVF library, so this is hand-rolled (see DESIGN.md) —
// not the spec's default path, but a faster approximate alternative to
// Flat for callers who accept reduced recall.
type IVF struct {
	mu        sync.RWMutex
	dim       int
	nlist     int
	nprobe    int
	trained   bool
	centroids [][]float32
	lists     [][]ivfEntry
	rng       *rand.Rand
}

type ivfEntry struct {
	handle types.EmbeddingHandle
	vector []float32
}

// NewIVF builds an untrained IVF index; Train must run before Add/Search.
func NewIVF(dim int, params Params) *IVF {
	nlist := params.NList
	if nlist <= 0 {
		nlist = 1
	}
	nprobe := params.NProbe
	if nprobe <= 0 || nprobe > nlist {
		nprobe = nlist
	}
	return &IVF{dim: dim, nlist: nlist, nprobe: nprobe, rng: rand.New(rand.NewSource(1))}
}

func (idx *IVF) Dim() int { return idx.dim }

func (idx *IVF) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	total := 0
	for _, l := range idx.lists {
		total += len(l)
	}
	return total
}

func (idx *IVF) Trained() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.trained
}

// Train runs a fixed-iteration k-means pass over vectors to place the
// NList centroids, seeded deterministically so results are reproducible.
func (idx *IVF) Train(vectors [][]float32) error {
	if err := checkDim(idx.dim, vectors); err != nil {
		return err
	}
	if len(vectors) == 0 {
		return cgerrors.NewVectorError("ivf", errTrainingSetEmpty{})
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	n := idx.nlist
	if n > len(vectors) {
		n = len(vectors)
	}
	centroids := make([][]float32, n)
	perm := idx.rng.Perm(len(vectors))
	for i := 0; i < n; i++ {
		cp := make([]float32, idx.dim)
		copy(cp, vectors[perm[i]])
		centroids[i] = cp
	}

	const iterations = 8
	for iter := 0; iter < iterations; iter++ {
		sums := make([][]float64, n)
		counts := make([]int, n)
		for i := range sums {
			sums[i] = make([]float64, idx.dim)
		}
		for _, v := range vectors {
			c := nearestCentroid(centroids, v)
			counts[c]++
			for d := range v {
				sums[c][d] += float64(v[d])
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for d := range centroids[c] {
				centroids[c][d] = float32(sums[c][d] / float64(counts[c]))
			}
		}
	}

	idx.centroids = centroids
	idx.lists = make([][]ivfEntry, n)
	idx.trained = true
	return nil
}

func nearestCentroid(centroids [][]float32, v []float32) int {
	best, bestDist := 0, float32(math.MaxFloat32)
	for i, c := range centroids {
		d := euclideanDistSq(v, c)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func euclideanDistSq(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

func (idx *IVF) Add(vectors [][]float32) ([]types.EmbeddingHandle, error) {
	if err := checkDim(idx.dim, vectors); err != nil {
		return nil, err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.trained {
		return nil, cgerrors.NewVectorError("ivf", errUntrainedIndex{})
	}

	var next types.EmbeddingHandle
	for _, l := range idx.lists {
		for _, e := range l {
			if e.handle >= next {
				next = e.handle + 1
			}
		}
	}

	handles := make([]types.EmbeddingHandle, len(vectors))
	for i, v := range vectors {
		h := next
		next++
		c := nearestCentroid(idx.centroids, v)
		cp := make([]float32, len(v))
		copy(cp, v)
		idx.lists[c] = append(idx.lists[c], ivfEntry{handle: h, vector: cp})
		handles[i] = h
	}
	return handles, nil
}

func (idx *IVF) Remove(handle types.EmbeddingHandle) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for li, list := range idx.lists {
		for i, e := range list {
			if e.handle == handle {
				idx.lists[li] = append(list[:i], list[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (idx *IVF) Search(query []float32, k int) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if !idx.trained {
		return nil, cgerrors.NewVectorError("ivf", errUntrainedIndex{})
	}
	if len(query) != idx.dim {
		return nil, cgerrors.NewVectorError("ivf", errDimMismatch{expected: idx.dim, got: len(query)})
	}

	type centroidDist struct {
		idx  int
		dist float32
	}
	cds := make([]centroidDist, len(idx.centroids))
	for i, c := range idx.centroids {
		cds[i] = centroidDist{idx: i, dist: euclideanDistSq(query, c)}
	}
	sort.Slice(cds, func(i, j int) bool { return cds[i].dist < cds[j].dist })

	probe := idx.nprobe
	if probe > len(cds) {
		probe = len(cds)
	}

	var results []Result
	for i := 0; i < probe; i++ {
		for _, e := range idx.lists[cds[i].idx] {
			results = append(results, Result{Handle: e.handle, Distance: innerProductDistance(query, e.vector)})
		}
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

func (idx *IVF) RangeSearch(query []float32, radius float32) ([]Result, error) {
	all, err := idx.Search(query, idx.Len())
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

func (idx *IVF) BatchSearch(queries [][]float32, k int) ([][]Result, error) {
	out := make([][]Result, len(queries))
	for i, q := range queries {
		r, err := idx.Search(q, k)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

type errTrainingSetEmpty struct{}

func (errTrainingSetEmpty) Error() string { return "training set is empty" }

type errUntrainedIndex struct{}

func (errUntrainedIndex) Error() string { return "index requires training before use" }
