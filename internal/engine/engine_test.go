package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codegraph/internal/config"
	"github.com/standardbeagle/codegraph/internal/retrieve"
)

// fakeProvider maps node/query text to one of two fixed directions based
// on whether it mentions "Foo" or "Bar", just enough signal for a search
// test to assert on ranking without a real embedding service.
type fakeProvider struct{ dim int }

func (f *fakeProvider) Generate(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dim)
		switch {
		case strings.Contains(t, "Foo"):
			v[0] = 1
		case strings.Contains(t, "Bar"):
			v[1] = 1
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeProvider) Dimension() int                     { return f.dim }
func (f *fakeProvider) MaxBatchSize() int                  { return 8 }
func (f *fakeProvider) IsAvailable(_ context.Context) bool { return true }

func writeWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	src := "package main\n\nfunc Foo() {\n\tBar()\n}\n\nfunc Bar() {}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(src), 0o644))
	return dir
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.WorkspaceRoot = writeWorkspace(t)
	cfg.LanguagesEnabled = []string{"go"}
	cfg.EmbeddingDim = 4
	cfg.VectorIndexType = config.VectorIndexFlat

	e, err := Open(cfg, filepath.Join(t.TempDir(), "db.bolt"), &fakeProvider{dim: 4})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestEngine_IngestExtractsNodesAndEdges(t *testing.T) {
	e := newTestEngine(t)
	result, err := e.Ingest(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesProcessed)
	require.GreaterOrEqual(t, len(result.Nodes), 2)
	require.GreaterOrEqual(t, len(result.Edges), 1)
}

func TestEngine_SearchFindsMatchingNodeAfterIngest(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Ingest(context.Background())
	require.NoError(t, err)

	results, err := e.Search(context.Background(), "Foo", 1, retrieve.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Foo", results[0].Node.Name)
}
