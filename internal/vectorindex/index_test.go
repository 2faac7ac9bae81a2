package vectorindex

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corruptBin(t *testing.T, dir string) {
	t.Helper()
	path := filepath.Join(dir, "index.bin")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[0] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))
}

func randomVectors(n, dim int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dim)
		for d := range v {
			v[d] = rng.Float32()
		}
		out[i] = v
	}
	return out
}

func TestFlat_AddAndSearchFindsNearest(t *testing.T) {
	idx := NewFlat(4)
	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0.9, 0.1, 0, 0},
	}
	handles, err := idx.Add(vectors)
	require.NoError(t, err)
	require.Len(t, handles, 3)

	results, err := idx.Search([]float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, handles[0], results[0].Handle)
}

func TestFlat_DimensionMismatchFails(t *testing.T) {
	idx := NewFlat(4)
	_, err := idx.Add([][]float32{{1, 2, 3}})
	assert.Error(t, err)
}

func TestFlat_RemoveExcludesFromSearch(t *testing.T) {
	idx := NewFlat(2)
	handles, err := idx.Add([][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	require.NoError(t, idx.Remove(handles[0]))

	results, err := idx.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, handles[1], results[0].Handle)
}

func TestIVF_SearchRequiresTraining(t *testing.T) {
	idx := NewIVF(4, Params{NList: 2, NProbe: 1})
	_, err := idx.Add([][]float32{{1, 0, 0, 0}})
	assert.Error(t, err)

	_, err = idx.Search([]float32{1, 0, 0, 0}, 1)
	assert.Error(t, err)
}

func TestIVF_TrainedIndexApproximatesFlat(t *testing.T) {
	vectors := randomVectors(200, 8, 42)
	for i := range vectors {
		vectors[i] = Normalize(vectors[i])
	}
	idx := NewIVF(8, Params{NList: 8, NProbe: 8})
	require.NoError(t, idx.Train(vectors))

	handles, err := idx.Add(vectors)
	require.NoError(t, err)
	require.Len(t, handles, len(vectors))

	flat := NewFlat(8)
	flatHandles, err := flat.Add(vectors)
	require.NoError(t, err)

	query := vectors[0]
	ivfResults, err := idx.Search(query, 5)
	require.NoError(t, err)
	flatResults, err := flat.Search(query, 5)
	require.NoError(t, err)

	// Probing every list makes IVF search exhaustive, so it must agree
	// with Flat's top result (the query vector itself).
	require.NotEmpty(t, flatResults)
	require.NotEmpty(t, ivfResults)
	assert.Equal(t, flatHandles[0], flatResults[0].Handle)
	assert.Equal(t, handles[0], ivfResults[0].Handle)
}

func TestLSH_UntrainedAddFails(t *testing.T) {
	idx := NewLSH(4, Params{NBits: 8})
	_, err := idx.Add([][]float32{{1, 0, 0, 0}})
	assert.Error(t, err)
}

func TestLSH_TrainedIndexAddsAndSearches(t *testing.T) {
	vectors := randomVectors(50, 8, 7)
	idx := NewLSH(8, Params{NBits: 4})
	require.NoError(t, idx.Train(vectors))

	_, err := idx.Add(vectors)
	require.NoError(t, err)

	results, err := idx.Search(vectors[0], 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
}

func TestPQ_TrainedIndexRoundTrips(t *testing.T) {
	vectors := randomVectors(64, 8, 3)
	idx := NewPQ(8, Params{PQSubvectors: 4, PQNBits: 4})
	require.NoError(t, idx.Train(vectors))

	handles, err := idx.Add(vectors)
	require.NoError(t, err)
	require.Len(t, handles, len(vectors))

	results, err := idx.Search(vectors[0], 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
}

func TestPersistAndLoad_FlatRoundTrips(t *testing.T) {
	idx := NewFlat(4)
	_, err := idx.Add([][]float32{{1, 2, 3, 4}, {5, 6, 7, 8}})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, Persist(dir, TypeFlat, idx, Params{}))

	loaded, meta, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, TypeFlat, meta.Type)
	assert.Equal(t, 2, loaded.Len())
}

func TestLoad_RejectsChecksumMismatch(t *testing.T) {
	idx := NewFlat(4)
	_, err := idx.Add([][]float32{{1, 2, 3, 4}})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, Persist(dir, TypeFlat, idx, Params{}))

	corruptBin(t, dir)

	_, _, err = Load(dir)
	assert.Error(t, err)
}

func TestResultCache_ZeroTTLEntryIsAlreadyExpired(t *testing.T) {
	cache, err := NewResultCache(10, 0)
	require.NoError(t, err)

	fp := Fingerprint([]float32{1, 2, 3}, 5)
	cache.Put(fp, []Result{{Handle: 1, Distance: 0.5}})

	_, ok := cache.Get(fp)
	assert.False(t, ok) // ttl 0 means already expired
}

func TestResultCache_DifferentKIsDifferentKey(t *testing.T) {
	cache, err := NewResultCache(10, 0)
	require.NoError(t, err)
	a := Fingerprint([]float32{1, 2, 3}, 5)
	b := Fingerprint([]float32{1, 2, 3}, 10)
	assert.NotEqual(t, a, b)
}
