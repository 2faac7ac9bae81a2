// Package retrieve implements the hybrid retriever (spec §4.8): it blends
// an approximate-nearest-neighbor pass over node embeddings with a fuzzy
// lexical pass over node names, enriches the surviving candidates with
// their immediate graph neighborhood, and optionally hands the ranked list
// to a caller-supplied reranker before returning it.
//
// This generalizes the file-category boost/penalty scoring in
// standardbeagle-lci's search engine (additive scores keyed off file
// extension and reference counts) into a fixed two-component blend over
// graph nodes rather than grep matches.
package retrieve

import "github.com/standardbeagle/codegraph/internal/types"

// Candidate is one node under consideration before the final blend,
// carrying whichever of the two component scores were actually computed
// for it (a node found only via ANN has no text score yet, and vice versa).
type Candidate struct {
	Node      types.CodeNode
	AnnScore  float64 // cosine similarity in [0,1], 0 if not an ANN hit
	TextScore float64 // fuzzy lexical similarity in [0,1], 0 if not a lexical hit
}

// Neighbor is a single 1-hop graph neighbor attached during enrichment.
type Neighbor struct {
	NodeId types.NodeId
	Name   string
	Kind   types.EdgeKind
}

// Result is one ranked, enriched hit returned by Search.
type Result struct {
	Node         types.CodeNode
	Score        float64
	AnnScore     float64
	TextScore    float64
	Dependencies []Neighbor // out-edges of kind Calls/Imports/Uses
	Dependents   []Neighbor // in-edges of the same kinds
	Snippet      string     // first 100 bytes of Node.Content
}

// Options controls one Search call. The zero value is not valid on its own;
// use DefaultOptions and override fields as needed.
type Options struct {
	// Threshold filters out candidates whose blended score falls below it.
	// Zero means no filtering.
	Threshold float64
	// Enrich attaches dependency/dependent neighbors and a content snippet
	// to each surviving result. Defaults to on per spec §4.8 step 6.
	Enrich bool
	// EnrichN bounds how many dependencies and how many dependents are
	// attached per result. Defaults to 5.
	EnrichN int
	// Reranker, if set, receives the top 2k candidates and may reorder
	// them; enrichment is computed after reranking so its output is
	// preserved regardless of reorder.
	Reranker Reranker
	// MaxChunkTokens bounds how the query text is chunked before
	// embedding, mirroring the ingest-side embedding pipeline's budget.
	MaxChunkTokens int
}

// DefaultOptions returns the spec-default configuration: no threshold,
// enrichment on with N=5, no reranker.
func DefaultOptions() Options {
	return Options{Enrich: true, EnrichN: 5, MaxChunkTokens: 512}
}

// Reranker is the narrow hook spec §4.8 step 7 names: given the query and
// a slice of candidates, return them in the caller's preferred order.
// Implementations must return every candidate they were given, only
// reordered; Search treats a short or long return slice as a Provider
// error rather than guessing which entries were dropped or invented.
type Reranker interface {
	Rerank(query string, candidates []Candidate) ([]Candidate, error)
}
