package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codegraph/internal/types"
)

type fakeProvider struct {
	dim          int
	maxBatch     int
	failTimes    int
	calls        int
	dimOverride  []int
	dimCallIndex int
}

func (f *fakeProvider) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.failTimes > 0 {
		f.failTimes--
		return nil, errors.New("transient failure")
	}
	dim := f.dim
	if f.dimOverride != nil && f.dimCallIndex < len(f.dimOverride) {
		dim = f.dimOverride[f.dimCallIndex]
	}
	f.dimCallIndex++

	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = make([]float32, dim)
		for j := range vecs[i] {
			vecs[i][j] = 1.0
		}
	}
	return vecs, nil
}

func (f *fakeProvider) Dimension() int         { return f.dim }
func (f *fakeProvider) MaxBatchSize() int      { return f.maxBatch }
func (f *fakeProvider) IsAvailable(context.Context) bool { return true }

func TestPipeline_EmbedSingleNode(t *testing.T) {
	p := NewPipeline(&fakeProvider{dim: 4, maxBatch: 2}, nil, DefaultRetryConfig(3))
	nodes := []types.CodeNode{{ID: types.NewNodeId(), Content: "hello world"}}

	results, err := p.Embed(context.Background(), nodes, 1000)
	require.NoError(t, err)
	require.Contains(t, results, nodes[0].ID)
	assert.Len(t, results[nodes[0].ID], 4)
}

func TestPipeline_RetriesTransientFailures(t *testing.T) {
	fake := &fakeProvider{dim: 4, maxBatch: 2, failTimes: 2}
	p := NewPipeline(fake, nil, RetryConfig{InitialInterval: 0, Multiplier: 1, MaxRetries: 5})
	nodes := []types.CodeNode{{ID: types.NewNodeId(), Content: "hello"}}

	results, err := p.Embed(context.Background(), nodes, 1000)
	require.NoError(t, err)
	assert.Contains(t, results, nodes[0].ID)
	assert.GreaterOrEqual(t, fake.calls, 3)
}

func TestPipeline_DimensionDriftIsFatal(t *testing.T) {
	fake := &fakeProvider{dim: 4, maxBatch: 2, dimOverride: []int{4, 8}}
	p := NewPipeline(fake, nil, DefaultRetryConfig(1))

	nodeA := types.CodeNode{ID: types.NewNodeId(), Content: "first"}
	_, err := p.Embed(context.Background(), []types.CodeNode{nodeA}, 1000)
	require.NoError(t, err)

	nodeB := types.CodeNode{ID: types.NewNodeId(), Content: "second"}
	_, err = p.Embed(context.Background(), []types.CodeNode{nodeB}, 1000)
	require.Error(t, err)
}

func TestPipeline_ChunksOversizedContentAndAverages(t *testing.T) {
	tok, err := NewTokenizer()
	require.NoError(t, err)

	fake := &fakeProvider{dim: 2, maxBatch: 4}
	p := NewPipeline(fake, tok, DefaultRetryConfig(1))

	long := ""
	for i := 0; i < 2000; i++ {
		long += "word "
	}
	nodes := []types.CodeNode{{ID: types.NewNodeId(), Content: long}}

	results, err := p.Embed(context.Background(), nodes, 50)
	require.NoError(t, err)
	require.Contains(t, results, nodes[0].ID)
	assert.Greater(t, fake.calls, 1)
}

func TestTokenizer_ChunkRespectsTokenBudget(t *testing.T) {
	tok, err := NewTokenizer()
	require.NoError(t, err)

	text := "package main\n\nfunc Foo() {}\n\nfunc Bar() {}\n"
	chunks := tok.Chunk(text, 3)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, tok.CountTokens(c), 3)
	}
}
