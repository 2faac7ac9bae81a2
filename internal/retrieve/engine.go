package retrieve

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/standardbeagle/codegraph/internal/cgerrors"
	"github.com/standardbeagle/codegraph/internal/embedding"
	"github.com/standardbeagle/codegraph/internal/metrics"
	"github.com/standardbeagle/codegraph/internal/store"
	"github.com/standardbeagle/codegraph/internal/types"
	"github.com/standardbeagle/codegraph/internal/vectorindex"
)

// dependencyKinds are the edge kinds spec §4.8 step 6 names for
// dependency/dependent enrichment: Calls, Imports, Uses.
var dependencyKinds = map[types.EdgeKind]bool{
	types.EdgeKindCalls:   true,
	types.EdgeKindImports: true,
	types.EdgeKindUses:    true,
}

const snippetBytes = 100

// Engine answers hybrid queries over a store's nodes, an ANN index over
// their embeddings, and an embedding pipeline to vectorize the query text
// itself. It owns none of the three; the caller wires them together (spec
// §9: no component holds a back-reference to another).
type Engine struct {
	store    *store.Store
	index    vectorindex.Index
	idmap    *vectorindex.IDMap
	pipeline *embedding.Pipeline
	cache    *vectorindex.ResultCache
	metrics  *metrics.Registry
}

// NewEngine wires the four collaborators a search call needs. cache and
// reg may be nil; a nil cache disables result caching entirely, matching
// spec §4.7's "disabled by default" stance.
func NewEngine(s *store.Store, idx vectorindex.Index, idmap *vectorindex.IDMap, pipeline *embedding.Pipeline, cache *vectorindex.ResultCache, reg *metrics.Registry) *Engine {
	return &Engine{store: s, index: idx, idmap: idmap, pipeline: pipeline, cache: cache, metrics: reg}
}

// Search implements spec §4.8's algorithm: embed the query, gather ANN and
// lexical candidate pools, blend their scores 0.7/0.3, apply an optional
// threshold, optionally rerank the top 2k, truncate to k, and enrich.
func (e *Engine) Search(ctx context.Context, query string, k int, opts Options) ([]Result, error) {
	if k <= 0 {
		return nil, cgerrors.NewValidationError("k", fmt.Sprint(k), "must be positive")
	}
	start := time.Now()

	kPrime := int(math.Ceil(1.5 * float64(k)))
	if kPrime < k {
		kPrime = k
	}

	queryVec, err := e.pipeline.EmbedQuery(ctx, query, opts.MaxChunkTokens)
	if err != nil {
		return nil, err
	}
	queryVec = vectorindex.Normalize(queryVec)

	var cached []vectorindex.Result
	fingerprint := ""
	if e.cache != nil {
		fingerprint = vectorindex.Fingerprint(queryVec, kPrime)
		if hit, ok := e.cache.Get(fingerprint); ok {
			cached = hit
		}
	}

	var annHits []vectorindex.Result
	if cached != nil {
		annHits = cached
	} else {
		annHits, err = e.index.Search(queryVec, kPrime)
		if err != nil {
			return nil, err
		}
		if e.cache != nil {
			e.cache.Put(fingerprint, annHits)
		}
	}
	if e.metrics != nil {
		e.metrics.VectorSearches.Inc()
		if e.metrics.SearchLatencyUs != nil {
			e.metrics.SearchLatencyUs.Observe(float64(time.Since(start).Microseconds()))
		}
		if time.Since(start) < time.Millisecond {
			e.metrics.SubMsSearches.Inc()
		}
	}

	candidates := make(map[types.NodeId]*Candidate)
	for _, hit := range annHits {
		id, ok := e.idmap.NodeID(hit.Handle)
		if !ok {
			continue
		}
		node, found, err := e.store.GetNode(id)
		if err != nil {
			return nil, err
		}
		if !found || node.Tombstoned {
			continue
		}
		sim := float64(vectorindex.CosineFromDistance(hit.Distance))
		annScore := (sim + 1) / 2
		candidates[id] = &Candidate{Node: node, AnnScore: annScore}
	}

	queryTokens := tokenizeQuery(query)
	lexical, err := e.lexicalCandidates(queryTokens, kPrime)
	if err != nil {
		return nil, err
	}
	for id, score := range lexical {
		if c, ok := candidates[id]; ok {
			c.TextScore = score
			continue
		}
		node, found, err := e.store.GetNode(id)
		if err != nil {
			return nil, err
		}
		if !found || node.Tombstoned {
			continue
		}
		candidates[id] = &Candidate{Node: node, TextScore: score}
	}

	blended := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		blended = append(blended, *c)
	}
	sortBlended(blended)

	if opts.Threshold > 0 {
		filtered := blended[:0]
		for _, c := range blended {
			if blendedScore(c) >= opts.Threshold {
				filtered = append(filtered, c)
			}
		}
		blended = filtered
	}

	if opts.Reranker != nil {
		window := 2 * k
		if window > len(blended) {
			window = len(blended)
		}
		reranked, err := opts.Reranker.Rerank(query, blended[:window])
		if err != nil {
			return nil, cgerrors.NewProviderError("reranker", 0, err)
		}
		if len(reranked) != window {
			return nil, cgerrors.NewProviderError("reranker", 0, errRerankerShapeMismatch{})
		}
		blended = append(reranked, blended[window:]...)
	}

	if len(blended) > k {
		blended = blended[:k]
	}

	results := make([]Result, len(blended))
	for i, c := range blended {
		r := Result{Node: c.Node, Score: blendedScore(c), AnnScore: c.AnnScore, TextScore: c.TextScore}
		if opts.Enrich {
			n := opts.EnrichN
			if n <= 0 {
				n = 5
			}
			if err := e.enrich(&r, n); err != nil {
				return nil, err
			}
		}
		results[i] = r
	}
	return results, nil
}

// lexicalCandidates scans every stored node's name, scoring it against
// queryTokens, and keeps the top kPrime by score. A full scan is the only
// option since the store's name index is keyed for exact lookups, not
// similarity ranking (see DESIGN.md).
func (e *Engine) lexicalCandidates(queryTokens []string, kPrime int) (map[types.NodeId]float64, error) {
	type scored struct {
		id    types.NodeId
		score float64
	}
	var all []scored
	err := e.store.ForEachNode(func(n types.CodeNode) error {
		if n.Tombstoned {
			return nil
		}
		s := lexicalScore(queryTokens, n.Name)
		if s > 0 {
			all = append(all, scored{id: n.ID, score: s})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].score > all[j].score })
	if len(all) > kPrime {
		all = all[:kPrime]
	}
	out := make(map[types.NodeId]float64, len(all))
	for _, s := range all {
		out[s.id] = s.score
	}
	return out, nil
}

func blendedScore(c Candidate) float64 {
	return 0.7*c.AnnScore + 0.3*c.TextScore
}

// sortBlended orders by blended score descending, ties breaking on
// lexical score descending, then on NodeId, per spec §4.8 step 4.
func sortBlended(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		si, sj := blendedScore(candidates[i]), blendedScore(candidates[j])
		if si != sj {
			return si > sj
		}
		if candidates[i].TextScore != candidates[j].TextScore {
			return candidates[i].TextScore > candidates[j].TextScore
		}
		return bytes.Compare(candidates[i].Node.ID[:], candidates[j].Node.ID[:]) < 0
	})
}

// enrich attaches up to n dependencies, n dependents, and a content
// snippet to r, per spec §4.8 step 6.
func (e *Engine) enrich(r *Result, n int) error {
	out, err := e.store.GetEdgesFrom(r.Node.ID)
	if err != nil {
		return err
	}
	for _, edge := range out {
		if !dependencyKinds[edge.Kind] || !edge.To.Resolved() {
			continue
		}
		if len(r.Dependencies) >= n {
			break
		}
		target, found, err := e.store.GetNode(edge.To.NodeID())
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		r.Dependencies = append(r.Dependencies, Neighbor{NodeId: target.ID, Name: target.Name, Kind: edge.Kind})
	}

	in, err := e.store.GetEdgesTo(r.Node.ID)
	if err != nil {
		return err
	}
	for _, edge := range in {
		if !dependencyKinds[edge.Kind] {
			continue
		}
		if len(r.Dependents) >= n {
			break
		}
		source, found, err := e.store.GetNode(edge.From)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		r.Dependents = append(r.Dependents, Neighbor{NodeId: source.ID, Name: source.Name, Kind: edge.Kind})
	}

	content := r.Node.Content
	if len(content) > snippetBytes {
		content = content[:snippetBytes]
	}
	r.Snippet = content
	return nil
}

type errRerankerShapeMismatch struct{}

func (errRerankerShapeMismatch) Error() string {
	return "reranker returned a different number of candidates than it was given"
}
