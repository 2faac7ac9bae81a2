// Package engine wires C1-C8 into the single public surface spec §1
// describes: ingest a workspace into the graph store and vector index,
// then answer hybrid queries against it. No component here holds a
// back-reference to another (spec §9) — Engine is the only thing that
// knows about all of them at once.
package engine

import (
	"context"
	"path/filepath"
	"time"

	"github.com/standardbeagle/codegraph/internal/config"
	"github.com/standardbeagle/codegraph/internal/embedding"
	"github.com/standardbeagle/codegraph/internal/metrics"
	"github.com/standardbeagle/codegraph/internal/orchestrator"
	"github.com/standardbeagle/codegraph/internal/retrieve"
	"github.com/standardbeagle/codegraph/internal/store"
	"github.com/standardbeagle/codegraph/internal/types"
	"github.com/standardbeagle/codegraph/internal/vectorindex"
)

// Engine owns the per-instance state an ingest/search workload needs:
// the orchestrator that turns source files into nodes and edges, the
// store those land in, the embedding pipeline and vector index that
// give them a searchable vector representation, and the retriever that
// blends the two into ranked results.
type Engine struct {
	cfg      *config.Config
	orch     *orchestrator.Orchestrator
	store    *store.Store
	pipeline *embedding.Pipeline
	index    vectorindex.Index
	idmap    *vectorindex.IDMap
	cache    *vectorindex.ResultCache
	retrieve *retrieve.Engine
	metrics  *metrics.Registry
}

// Open validates cfg, opens (or creates) the graph store at dbPath, and
// builds a fresh in-memory vector index and id map of the configured
// type. provider is the caller's embedding backend (spec §1: concrete
// providers are an external collaborator, never shipped in the core).
func Open(cfg *config.Config, dbPath string, provider embedding.Provider) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg := metrics.NewRegistry()

	s, err := store.Open(dbPath, reg)
	if err != nil {
		return nil, err
	}

	orch, err := orchestrator.New(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	orch.Metrics = reg

	tok, err := embedding.NewTokenizer()
	if err != nil {
		s.Close()
		return nil, err
	}
	pipeline := embedding.NewPipeline(provider, tok, embedding.DefaultRetryConfig(3))

	idxParams := toIndexParams(cfg.VectorIndexParams)
	index, err := vectorindex.New(toIndexType(cfg.VectorIndexType), cfg.EmbeddingDim, idxParams)
	if err != nil {
		s.Close()
		return nil, err
	}
	idmap := vectorindex.NewIDMap()

	retrieveEngine := retrieve.NewEngine(s, index, idmap, pipeline, nil, reg)

	return &Engine{
		cfg:      cfg,
		orch:     orch,
		store:    s,
		pipeline: pipeline,
		index:    index,
		idmap:    idmap,
		retrieve: retrieveEngine,
		metrics:  reg,
	}, nil
}

// Close releases the store's file handle. The in-memory index is not
// persisted automatically; call Persist first if it should survive.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Metrics exposes the registry every component reports into.
func (e *Engine) Metrics() *metrics.Registry { return e.metrics }

// EnableResultCache turns on the quantized-fingerprint search cache,
// disabled by default per spec §4.7.
func (e *Engine) EnableResultCache(maxEntries int, ttl time.Duration) error {
	cache, err := vectorindex.NewResultCache(maxEntries, ttl)
	if err != nil {
		return err
	}
	e.cache = cache
	e.retrieve = retrieve.NewEngine(e.store, e.index, e.idmap, e.pipeline, cache, e.metrics)
	return nil
}

// Ingest walks the configured workspace, extracts nodes and edges via the
// orchestrator, persists them to the store, and embeds + indexes every
// node in the result. Files served from the orchestrator's semantic cache
// contribute their cached nodes too, so those nodes are embedded and added
// to the index again; the id map then points each node at its newest handle.
func (e *Engine) Ingest(ctx context.Context) (*orchestrator.IngestResult, error) {
	result, err := e.orch.Ingest(ctx)
	if err != nil && result == nil {
		return nil, err
	}

	if _, batchErr := e.store.BulkInsertNodes(result.Nodes); batchErr != nil {
		return result, batchErr
	}
	if _, batchErr := e.store.BulkInsertEdges(result.Edges); batchErr != nil {
		return result, batchErr
	}
	if flushErr := e.store.FlushBatchWrites(); flushErr != nil {
		return result, flushErr
	}

	if embedErr := e.embedAndIndex(ctx, result.Nodes); embedErr != nil {
		return result, embedErr
	}

	if e.metrics != nil {
		e.metrics.NodesCount.Set(float64(len(result.Nodes)))
		e.metrics.EdgesCount.Set(float64(len(result.Edges)))
		e.metrics.VectorCount.Set(float64(e.index.Len()))
	}
	return result, err
}

// embedAndIndex embeds every node's content, adds the resulting vectors to
// the vector index, records the handle assignment in the id map, and
// writes each node's embedding_ref back to the store so later lookups can
// go node -> handle as well as handle -> node.
func (e *Engine) embedAndIndex(ctx context.Context, nodes []types.CodeNode) error {
	if len(nodes) == 0 {
		return nil
	}
	vectors, err := e.pipeline.Embed(ctx, nodes, e.cfg.MaxChunkTokens)
	if err != nil {
		return err
	}

	ordered := make([]types.CodeNode, 0, len(vectors))
	raw := make([][]float32, 0, len(vectors))
	for _, n := range nodes {
		v, ok := vectors[n.ID]
		if !ok {
			continue
		}
		ordered = append(ordered, n)
		raw = append(raw, vectorindex.Normalize(v))
	}
	if len(ordered) == 0 {
		return nil
	}

	if !e.index.Trained() {
		if err := e.index.Train(raw); err != nil {
			return err
		}
	}
	handles, err := e.index.Add(raw)
	if err != nil {
		return err
	}
	for i, n := range ordered {
		e.idmap.Put(handles[i], n.ID)
		n.EmbeddingRef = handles[i]
		if err := e.store.AddNode(n); err != nil {
			return err
		}
	}
	return nil
}

// Search answers a hybrid query (spec §4.8) against the current store and
// vector index.
func (e *Engine) Search(ctx context.Context, query string, k int, opts retrieve.Options) ([]retrieve.Result, error) {
	return e.retrieve.Search(ctx, query, k, opts)
}

// Persist writes the vector index and its id map to dir, alongside the
// graph store's own snapshot mechanism (store.BackupSnapshot covers the
// nodes/edges side separately, since the two have independent lifecycles).
// Only a Flat index can be persisted; for any other index type it returns
// the VectorError from vectorindex.Persist and writes neither file.
func (e *Engine) Persist(dir string) error {
	if err := vectorindex.Persist(dir, toIndexType(e.cfg.VectorIndexType), e.index, toIndexParams(e.cfg.VectorIndexParams)); err != nil {
		return err
	}
	return vectorindex.PersistIDMap(dir, e.idmap)
}

// BackupSnapshot delegates to the store's bbolt-native hot backup and
// additionally persists the vector index alongside it under the same
// directory, so one directory captures both halves of spec §6's
// snapshots/{timestamp}/ layout. With an index type other than Flat the
// store snapshot is still written, and the call then returns Persist's
// error.
func (e *Engine) BackupSnapshot(dir string) (string, error) {
	manifestPath, err := e.store.BackupSnapshot(dir)
	if err != nil {
		return "", err
	}
	if err := e.Persist(filepath.Join(dir, "vectors")); err != nil {
		return "", err
	}
	return manifestPath, nil
}

func toIndexType(t config.VectorIndexType) vectorindex.Type {
	switch t {
	case config.VectorIndexFlat:
		return vectorindex.TypeFlat
	case config.VectorIndexIVF:
		return vectorindex.TypeIVF
	case config.VectorIndexLSH:
		return vectorindex.TypeLSH
	case config.VectorIndexPQ:
		return vectorindex.TypePQ
	default:
		return vectorindex.TypeHNSW
	}
}

func toIndexParams(p config.VectorIndexParams) vectorindex.Params {
	return vectorindex.Params{
		M:              p.M,
		EfConstruction: p.EfConstruction,
		EfSearch:       p.EfSearch,
		NList:          p.NList,
		NProbe:         p.NProbe,
		NBits:          p.NBits,
		PQSubvectors:   p.PQM,
		PQNBits:        p.PQNBits,
	}
}
