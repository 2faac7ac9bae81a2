// Package vectorindex implements the ANN index types named in spec §4.7:
// Flat (exact baseline), HNSW (the default, wrapping github.com/coder/hnsw
// directly), and reduced-fidelity IVF/PQ/LSH variants hand-rolled over the
// same Index interface. No pack example wraps an ANN library, so HNSW's
// wrapper is grounded on coder/hnsw's own published Graph[K] API rather
// than a teacher file — see DESIGN.md.
package vectorindex

import (
	"math"

	"github.com/standardbeagle/codegraph/internal/cgerrors"
	"github.com/standardbeagle/codegraph/internal/types"
)

// Type selects an ANN index family. Immutable once an index instance is
// created, per spec.
type Type string

const (
	TypeFlat Type = "flat"
	TypeIVF  Type = "ivf"
	TypeHNSW Type = "hnsw"
	TypeLSH  Type = "lsh"
	TypePQ   Type = "pq"
)

// Params carries the union of every index type's tunables; only the
// fields relevant to the selected Type are consulted.
type Params struct {
	// HNSW
	M              int
	EfConstruction int
	EfSearch       int
	// IVF
	NList  int
	NProbe int
	// LSH
	NBits int
	// PQ
	PQSubvectors int
	PQNBits      int
}

// DefaultHNSWParams is the spec §4.7 default: {m=16, ef_construction=200, ef_search=50}.
func DefaultHNSWParams() Params {
	return Params{M: 16, EfConstruction: 200, EfSearch: 50}
}

// Result is one hit from Search/RangeSearch.
type Result struct {
	Handle   types.EmbeddingHandle
	Distance float32
}

// Index is the operation set spec §4.7 names, common to every index type.
type Index interface {
	// Train prepares the index from a representative sample, required iff
	// the index type needs training and is not yet trained.
	Train(vectors [][]float32) error
	Trained() bool

	// Add inserts vectors, returning the handle assigned to each in order.
	Add(vectors [][]float32) ([]types.EmbeddingHandle, error)
	Remove(handle types.EmbeddingHandle) error

	Search(query []float32, k int) ([]Result, error)
	RangeSearch(query []float32, radius float32) ([]Result, error)
	BatchSearch(queries [][]float32, k int) ([][]Result, error)

	Dim() int
	Len() int
}

// innerProductDistance converts inner product to a "lower is better"
// distance by negating it, matching spec's inner-product default metric
// while keeping Result.Distance's "smaller is closer" convention uniform
// across every index type.
func innerProductDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return -sum
}

// Normalize returns a copy of v scaled to unit L2 length. Every index type
// assumes its stored and query vectors share this convention, which makes
// innerProductDistance double as a negated cosine similarity rather than a
// raw, magnitude-sensitive dot product.
func Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// CosineFromDistance recovers a [-1,1] cosine similarity from a Result's
// Distance field, valid when both query and stored vectors are
// unit-normalized so innerProductDistance equals the negated cosine.
func CosineFromDistance(d float32) float32 {
	return -d
}

func checkDim(dim int, vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != dim {
			return cgerrors.NewVectorError("index", errDimMismatch{expected: dim, got: len(v)})
		}
	}
	return nil
}

type errDimMismatch struct {
	expected, got int
}

func (e errDimMismatch) Error() string {
	return "vector dimension mismatch"
}
