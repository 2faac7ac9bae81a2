package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, VectorIndexHNSW, cfg.VectorIndexType)
	assert.Equal(t, 16, cfg.VectorIndexParams.M)
}

func TestDefaultPoolSizes_SmallHost(t *testing.T) {
	sizes := defaultPoolSizes(2)
	for _, lang := range []string{"go", "rust", "python", "typescript", "javascript", "other"} {
		assert.Equal(t, 1, sizes[lang])
	}
}

func TestDefaultPoolSizes_LargeHost(t *testing.T) {
	sizes := defaultPoolSizes(24)
	assert.GreaterOrEqual(t, sizes["go"], 1)
	assert.GreaterOrEqual(t, sizes["other"], 1)
}

func TestValidate_RejectsEmptyWorkspaceRoot(t *testing.T) {
	cfg := Default()
	cfg.WorkspaceRoot = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workspace_root")
}

func TestValidate_RejectsUnknownVectorIndexType(t *testing.T) {
	cfg := Default()
	cfg.VectorIndexType = "quantum"
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsZeroPoolSize(t *testing.T) {
	cfg := Default()
	cfg.PoolSizesByLanguage = map[string]int{"go": 0}
	require.Error(t, cfg.Validate())
}

func TestParseKDL_OverridesDefaults(t *testing.T) {
	src := `
workspace_root "/repo"
languages_enabled "go" "rust"
embedding_provider "openai-compatible"
embedding_dim 1536
max_chunk_tokens 1500
vector_index_type "flat"
cache_max_entries 200
vector_index_params {
    m 32
    ef_search 100
}
pool_sizes_by_language {
    go 4
    rust 2
}
`
	cfg, err := parseKDL(src)
	require.NoError(t, err)
	assert.Equal(t, "/repo", cfg.WorkspaceRoot)
	assert.Equal(t, []string{"go", "rust"}, cfg.LanguagesEnabled)
	assert.Equal(t, "openai-compatible", cfg.EmbeddingProvider)
	assert.Equal(t, 1536, cfg.EmbeddingDim)
	assert.Equal(t, 1500, cfg.MaxChunkTokens)
	assert.Equal(t, VectorIndexFlat, cfg.VectorIndexType)
	assert.Equal(t, 200, cfg.CacheMaxEntries)
	assert.Equal(t, 32, cfg.VectorIndexParams.M)
	assert.Equal(t, 100, cfg.VectorIndexParams.EfSearch)
	assert.Equal(t, 4, cfg.PoolSizesByLanguage["go"])
}

func TestParseKDL_RejectsUnknownKey(t *testing.T) {
	_, err := parseKDL(`not_a_real_key "x"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not_a_real_key")
}

func TestParseTOML_OverridesDefaults(t *testing.T) {
	src := []byte(`
workspace_root = "/repo"
embedding_dim = 768
max_chunk_tokens = 1000
cache_max_entries = 300

[vector_index_params]
m = 24
ef_search = 80
`)
	cfg, err := parseTOML(src)
	require.NoError(t, err)
	assert.Equal(t, "/repo", cfg.WorkspaceRoot)
	assert.Equal(t, 768, cfg.EmbeddingDim)
	assert.Equal(t, 1000, cfg.MaxChunkTokens)
	assert.Equal(t, 300, cfg.CacheMaxEntries)
	assert.Equal(t, 24, cfg.VectorIndexParams.M)
	assert.Equal(t, 80, cfg.VectorIndexParams.EfSearch)
}

func TestParseTOML_RejectsUnknownKey(t *testing.T) {
	_, err := parseTOML([]byte(`not_a_real_key = "x"`))
	require.Error(t, err)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"10MB", 10 * 1024 * 1024},
		{"500KB", 500 * 1024},
		{"1GB", 1024 * 1024 * 1024},
		{"128B", 128},
		{"64", 64},
	}
	for _, tc := range tests {
		got, err := parseSize(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}
