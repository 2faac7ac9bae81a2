package retrieve

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codegraph/internal/embedding"
	"github.com/standardbeagle/codegraph/internal/store"
	"github.com/standardbeagle/codegraph/internal/types"
	"github.com/standardbeagle/codegraph/internal/vectorindex"
)

// fakeProvider returns a pre-wired vector for known input strings and a
// neutral zero vector otherwise, so a test controls exactly what the
// query embeds to without depending on a real embedding service.
type fakeProvider struct {
	dim     int
	vectors map[string][]float32
}

func (f *fakeProvider) Generate(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}

func (f *fakeProvider) Dimension() int                     { return f.dim }
func (f *fakeProvider) MaxBatchSize() int                  { return 8 }
func (f *fakeProvider) IsAvailable(_ context.Context) bool { return true }

type reverseReranker struct{ called bool }

func (r *reverseReranker) Rerank(_ string, candidates []Candidate) ([]Candidate, error) {
	r.called = true
	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		out[len(candidates)-1-i] = c
	}
	return out, nil
}

func newTestEngine(t *testing.T, vectors map[string][]float32) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "db.bolt"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	idx := vectorindex.NewFlat(4)
	idmap := vectorindex.NewIDMap()
	provider := &fakeProvider{dim: 4, vectors: vectors}
	pipeline := embedding.NewPipeline(provider, nil, embedding.DefaultRetryConfig(1))

	return NewEngine(s, idx, idmap, pipeline, nil, nil), s
}

func addNodeWithEmbedding(t *testing.T, e *Engine, name string, vec []float32) types.CodeNode {
	t.Helper()
	node := types.CodeNode{ID: types.NewNodeId(), Name: name, Kind: types.NodeKindFunction, Content: name + " body"}
	require.NoError(t, e.store.AddNode(node))

	handles, err := e.index.Add([][]float32{vectorindex.Normalize(vec)})
	require.NoError(t, err)
	e.idmap.Put(handles[0], node.ID)
	return node
}

func TestEngine_SearchRanksAnnMatchFirst(t *testing.T) {
	e, _ := newTestEngine(t, map[string][]float32{
		"authenticate user": {1, 0, 0, 0},
	})
	authNode := addNodeWithEmbedding(t, e, "AuthenticateUser", []float32{1, 0, 0, 0})
	addNodeWithEmbedding(t, e, "ParseConfig", []float32{0, 1, 0, 0})

	results, err := e.Search(context.Background(), "authenticate user", 2, DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, authNode.ID, results[0].Node.ID)
}

func TestEngine_ThresholdFiltersLowScoringCandidates(t *testing.T) {
	e, _ := newTestEngine(t, map[string][]float32{
		"authenticate user": {1, 0, 0, 0},
	})
	authNode := addNodeWithEmbedding(t, e, "AuthenticateUser", []float32{1, 0, 0, 0})
	addNodeWithEmbedding(t, e, "ParseConfig", []float32{0, 1, 0, 0})

	opts := DefaultOptions()
	opts.Threshold = 0.999
	results, err := e.Search(context.Background(), "authenticate user", 2, opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, authNode.ID, results[0].Node.ID)
}

func TestEngine_EnrichmentAttachesDependenciesAndDependents(t *testing.T) {
	e, s := newTestEngine(t, map[string][]float32{
		"authenticate user": {1, 0, 0, 0},
	})
	authNode := addNodeWithEmbedding(t, e, "AuthenticateUser", []float32{1, 0, 0, 0})
	helperNode := addNodeWithEmbedding(t, e, "HashPassword", []float32{0, 1, 0, 0})

	_, err := s.AddEdge(types.EdgeRelationship{From: authNode.ID, To: types.ResolvedRef(helperNode.ID), Kind: types.EdgeKindCalls})
	require.NoError(t, err)

	results, err := e.Search(context.Background(), "authenticate user", 1, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Dependencies, 1)
	require.Equal(t, helperNode.ID, results[0].Dependencies[0].NodeId)
	require.Equal(t, "AuthenticateUser body", results[0].Snippet)
}

func TestEngine_RerankerReordersTopWindow(t *testing.T) {
	e, _ := newTestEngine(t, map[string][]float32{
		"authenticate user": {1, 0, 0, 0},
	})
	authNode := addNodeWithEmbedding(t, e, "AuthenticateUser", []float32{1, 0, 0, 0})
	otherNode := addNodeWithEmbedding(t, e, "ParseConfig", []float32{0, 1, 0, 0})

	reranker := &reverseReranker{}
	opts := DefaultOptions()
	opts.Reranker = reranker
	results, err := e.Search(context.Background(), "authenticate user", 2, opts)
	require.NoError(t, err)
	require.True(t, reranker.called)
	require.Len(t, results, 2)
	require.Equal(t, otherNode.ID, results[0].Node.ID)
	require.Equal(t, authNode.ID, results[1].Node.ID)
}

func TestTokenizeQuery_SplitsCamelAndSnakeCase(t *testing.T) {
	tokens := tokenizeQuery("getUserAuth find_session")
	require.Contains(t, tokens, "get")
	require.Contains(t, tokens, "user")
	require.Contains(t, tokens, "auth")
	require.Contains(t, tokens, "find")
	require.Contains(t, tokens, "session")
}
