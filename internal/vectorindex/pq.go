package vectorindex

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/standardbeagle/codegraph/internal/cgerrors"
	"github.com/standardbeagle/codegraph/internal/types"
)

// PQ is a reduced-fidelity product-quantization index: the vector is split
// into PQSubvectors equal-length pieces, each piece is quantized against
// its own k-means codebook of 2^PQNBits centroids, and a stored vector
// becomes one byte code per subvector. Distance is approximated by
// precomputed subvector-to-centroid distances (asymmetric distance
// computation), trading recall for an 8x-plus memory reduction over Flat.
// Hand-rolled (see DESIGN.md) — no pack example carries a Go PQ library.
type PQ struct {
	mu           sync.RWMutex
	dim          int
	subvectors   int
	subDim       int
	codebookSize int
	codebooks    [][][]float32 // [subvector][code] -> centroid
	trained      bool
	rng          *rand.Rand

	handles []types.EmbeddingHandle
	codes   [][]byte
}

// NewPQ builds an untrained PQ index. dim must be evenly divisible by
// params.PQSubvectors; if not, the remainder is folded into the last
// subvector.
func NewPQ(dim int, params Params) *PQ {
	sub := params.PQSubvectors
	if sub <= 0 {
		sub = 8
	}
	if sub > dim {
		sub = dim
	}
	nbits := params.PQNBits
	if nbits <= 0 {
		nbits = 8
	}
	codebookSize := 1 << uint(nbits)
	return &PQ{dim: dim, subvectors: sub, subDim: dim / sub, codebookSize: codebookSize, rng: rand.New(rand.NewSource(1))}
}

func (p *PQ) Dim() int { return p.dim }

func (p *PQ) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.handles)
}

func (p *PQ) Trained() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.trained
}

func (p *PQ) subvector(v []float32, i int) []float32 {
	start := i * p.subDim
	end := start + p.subDim
	if i == p.subvectors-1 {
		end = len(v)
	}
	return v[start:end]
}

// Train runs k-means independently per subvector to build each codebook.
func (p *PQ) Train(vectors [][]float32) error {
	if err := checkDim(p.dim, vectors); err != nil {
		return err
	}
	if len(vectors) == 0 {
		return cgerrors.NewVectorError("pq", errTrainingSetEmpty{})
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	codebooks := make([][][]float32, p.subvectors)
	for sv := 0; sv < p.subvectors; sv++ {
		pieces := make([][]float32, len(vectors))
		for i, v := range vectors {
			pieces[i] = p.subvector(v, sv)
		}
		codebooks[sv] = kmeans(pieces, p.codebookSize, p.rng)
	}

	p.codebooks = codebooks
	p.trained = true
	return nil
}

func kmeans(pieces [][]float32, k int, rng *rand.Rand) [][]float32 {
	if k > len(pieces) {
		k = len(pieces)
	}
	dim := len(pieces[0])
	centroids := make([][]float32, k)
	perm := rng.Perm(len(pieces))
	for i := 0; i < k; i++ {
		cp := make([]float32, dim)
		copy(cp, pieces[perm[i]])
		centroids[i] = cp
	}

	const iterations = 6
	for iter := 0; iter < iterations; iter++ {
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dim)
		}
		for _, piece := range pieces {
			c := nearestCentroid(centroids, piece)
			counts[c]++
			for d := range piece {
				sums[c][d] += float64(piece[d])
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
	return centroids
}

func (p *PQ) encode(v []float32) []byte {
	code := make([]byte, p.subvectors)
	for sv := 0; sv < p.subvectors; sv++ {
		piece := p.subvector(v, sv)
		code[sv] = byte(nearestCentroid(p.codebooks[sv], piece))
	}
	return code
}

func (p *PQ) Add(vectors [][]float32) ([]types.EmbeddingHandle, error) {
	if err := checkDim(p.dim, vectors); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.trained {
		return nil, cgerrors.NewVectorError("pq", errUntrainedIndex{})
	}

	var next types.EmbeddingHandle
	for _, h := range p.handles {
		if h >= next {
			next = h + 1
		}
	}

	handles := make([]types.EmbeddingHandle, len(vectors))
	for i, v := range vectors {
		h := next
		next++
		p.handles = append(p.handles, h)
		p.codes = append(p.codes, p.encode(v))
		handles[i] = h
	}
	return handles, nil
}

func (p *PQ) Remove(handle types.EmbeddingHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, h := range p.handles {
		if h == handle {
			p.handles = append(p.handles[:i], p.handles[i+1:]...)
			p.codes = append(p.codes[:i], p.codes[i+1:]...)
			return nil
		}
	}
	return nil
}

// Search computes an asymmetric distance table (query subvector against
// every codebook centroid) once, then sums table lookups per stored code —
// the standard PQ search shortcut that avoids reconstructing vectors.
func (p *PQ) Search(query []float32, k int) ([]Result, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.trained {
		return nil, cgerrors.NewVectorError("pq", errUntrainedIndex{})
	}
	if len(query) != p.dim {
		return nil, cgerrors.NewVectorError("pq", errDimMismatch{expected: p.dim, got: len(query)})
	}

	table := make([][]float32, p.subvectors)
	for sv := 0; sv < p.subvectors; sv++ {
		piece := p.subvector(query, sv)
		table[sv] = make([]float32, len(p.codebooks[sv]))
		for c, centroid := range p.codebooks[sv] {
			table[sv][c] = innerProductDistance(piece, centroid)
		}
	}

	results := make([]Result, len(p.handles))
	for i, h := range p.handles {
		var dist float32
		for sv, code := range p.codes[i] {
			dist += table[sv][code]
		}
		results[i] = Result{Handle: h, Distance: dist}
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

func (p *PQ) RangeSearch(query []float32, radius float32) ([]Result, error) {
	all, err := p.Search(query, p.Len())
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

func (p *PQ) BatchSearch(queries [][]float32, k int) ([][]Result, error) {
	out := make([][]Result, len(queries))
	for i, q := range queries {
		r, err := p.Search(q, k)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
