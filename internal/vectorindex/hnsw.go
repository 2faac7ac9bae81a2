package vectorindex

import (
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/standardbeagle/codegraph/internal/cgerrors"
	"github.com/standardbeagle/codegraph/internal/types"
)

// HNSW wraps coder/hnsw's Graph[int64], whose integer-keyed node type
// already models the spec's id_map: i64 -> NodeId exactly, so handles are
// the graph's own keys rather than a separate mapping layer.
type HNSW struct {
	mu     sync.RWMutex
	dim    int
	params Params
	graph  *hnsw.Graph[int64]
	next   int64
	count  int
}

// NewHNSW builds an HNSW index over vectors of dim dimensions.
func NewHNSW(dim int, params Params) *HNSW {
	g := hnsw.NewGraph[int64]()
	if params.M > 0 {
		g.M = params.M
	}
	if params.EfConstruction > 0 {
		g.Ml = 1 / float64(params.EfConstruction)
	}
	if params.EfSearch > 0 {
		g.EfSearch = params.EfSearch
	}
	g.Distance = hnsw.CosineDistance
	return &HNSW{dim: dim, params: params, graph: g}
}

func (h *HNSW) Train(vectors [][]float32) error { return nil }
func (h *HNSW) Trained() bool                   { return true }
func (h *HNSW) Dim() int                        { return h.dim }

func (h *HNSW) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *HNSW) Add(vectors [][]float32) ([]types.EmbeddingHandle, error) {
	if err := checkDim(h.dim, vectors); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	handles := make([]types.EmbeddingHandle, len(vectors))
	nodes := make([]hnsw.Node[int64], len(vectors))
	for i, v := range vectors {
		key := h.next
		h.next++
		nodes[i] = hnsw.MakeNode(key, hnsw.Vector(v))
		handles[i] = types.EmbeddingHandle(key)
	}
	h.graph.Add(nodes...)
	h.count += len(vectors)
	return handles, nil
}

func (h *HNSW) Remove(handle types.EmbeddingHandle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.graph.Delete(int64(handle)) {
		h.count--
	}
	return nil
}

func (h *HNSW) Search(query []float32, k int) ([]Result, error) {
	if len(query) != h.dim {
		return nil, cgerrors.NewVectorError("hnsw", errDimMismatch{expected: h.dim, got: len(query)})
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	neighbors := h.graph.Search(hnsw.Vector(query), k)
	results := make([]Result, len(neighbors))
	for i, n := range neighbors {
		results[i] = Result{
			Handle:   types.EmbeddingHandle(n.Key),
			Distance: innerProductDistance(query, n.Value),
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Handle < results[j].Handle
	})
	return results, nil
}

func (h *HNSW) RangeSearch(query []float32, radius float32) ([]Result, error) {
	all, err := h.Search(query, h.Len())
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

func (h *HNSW) BatchSearch(queries [][]float32, k int) ([][]Result, error) {
	out := make([][]Result, len(queries))
	for i, q := range queries {
		r, err := h.Search(q, k)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
