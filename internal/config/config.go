// Package config defines CodeGraph's typed configuration surface (spec §6).
// There is no CLI flag parsing in the core — callers build a Config
// directly or load one from a KDL/TOML file — and unknown keys in either
// file format are rejected rather than silently ignored.
package config

import (
	"fmt"
	"runtime"

	"github.com/standardbeagle/codegraph/internal/cgerrors"
)

// VectorIndexType selects the ANN index family (spec §4.7).
type VectorIndexType string

const (
	VectorIndexFlat VectorIndexType = "flat"
	VectorIndexIVF  VectorIndexType = "ivf"
	VectorIndexHNSW VectorIndexType = "hnsw"
	VectorIndexLSH  VectorIndexType = "lsh"
	VectorIndexPQ   VectorIndexType = "pq"
)

// VectorIndexParams carries the union of every index type's tunables;
// only the fields relevant to Type are consulted.
type VectorIndexParams struct {
	// HNSW
	M            int
	EfConstruction int
	EfSearch     int
	// IVF
	NList  int
	NProbe int
	// LSH
	NBits int
	// PQ
	PQM     int
	PQNBits int
}

// DefaultHNSWParams returns the spec §4.7 default: {m=16, ef_construction=200, ef_search=50}.
func DefaultHNSWParams() VectorIndexParams {
	return VectorIndexParams{M: 16, EfConstruction: 200, EfSearch: 50}
}

// Config is the typed configuration surface consumed by the orchestrator,
// embedding pipeline, vector index, and graph store.
type Config struct {
	WorkspaceRoot string

	IncludeGlobs []string
	ExcludeGlobs []string

	LanguagesEnabled []string

	EmbeddingProvider string
	EmbeddingModel    string
	EmbeddingDim      int
	MaxChunkTokens    int

	VectorIndexType   VectorIndexType
	VectorIndexParams VectorIndexParams

	CacheMaxEntries int

	PoolSizesByLanguage map[string]int

	// MaxPendingWriteBatch is parsed from the configuration file (default
	// 1024), but no component reads it: the store has no buffered
	// write-batch queue, and producers are never blocked by this value.
	MaxPendingWriteBatch int
}

// Default returns a Config with every field populated per spec defaults,
// scaled to the host's CPU count for pool sizing.
func Default() *Config {
	cpus := runtime.NumCPU()
	return &Config{
		WorkspaceRoot: ".",
		// Empty means "no filter": the orchestrator's discovery walk
		// (internal/orchestrator.Discover) already prunes .git/node_modules/
		// vendor/target/__pycache__/.venv directories outright, and
		// single-segment glob matching (path/filepath.Match, not doublestar)
		// is what include_globs/exclude_globs get evaluated against — see
		// DESIGN.md for why "**" recursive globs aren't supported here.
		IncludeGlobs:         nil,
		ExcludeGlobs:         nil,
		LanguagesEnabled:     []string{"go", "rust", "python", "typescript", "javascript"},
		EmbeddingProvider:    "",
		EmbeddingModel:       "",
		EmbeddingDim:         0,
		MaxChunkTokens:       2000,
		VectorIndexType:      VectorIndexHNSW,
		VectorIndexParams:    DefaultHNSWParams(),
		CacheMaxEntries:      400,
		PoolSizesByLanguage:  defaultPoolSizes(cpus),
		MaxPendingWriteBatch: 1024,
	}
}

// defaultPoolSizes implements the "static core assignment table that scales
// to the host's CPU count" from spec §4.4: large hosts get dedicated
// permits per major language, small hosts get at least 1 permit per pool.
func defaultPoolSizes(cpus int) map[string]int {
	if cpus < 4 {
		return map[string]int{
			"go": 1, "rust": 1, "python": 1, "typescript": 1, "javascript": 1, "other": 1,
		}
	}

	major := []string{"go", "rust", "python", "typescript", "javascript"}
	perLanguage := cpus / (len(major) + 1) // +1 reserves a share for the minority-language pool
	if perLanguage < 1 {
		perLanguage = 1
	}

	sizes := make(map[string]int, len(major)+1)
	for _, lang := range major {
		sizes[lang] = perLanguage
	}
	sizes["other"] = perLanguage
	return sizes
}

// Validate checks the constraints spec §6/§7 place on a Config, returning a
// *cgerrors.ValidationError describing the first violation found.
func (c *Config) Validate() error {
	if c.WorkspaceRoot == "" {
		return cgerrors.NewValidationError("workspace_root", "", "must not be empty")
	}
	if c.MaxChunkTokens <= 0 {
		return cgerrors.NewValidationError("max_chunk_tokens", fmt.Sprint(c.MaxChunkTokens), "must be positive")
	}
	if c.CacheMaxEntries <= 0 {
		return cgerrors.NewValidationError("cache_max_entries", fmt.Sprint(c.CacheMaxEntries), "must be positive")
	}
	switch c.VectorIndexType {
	case VectorIndexFlat, VectorIndexIVF, VectorIndexHNSW, VectorIndexLSH, VectorIndexPQ:
	default:
		return cgerrors.NewValidationError("vector_index_type", string(c.VectorIndexType), "unknown index type")
	}
	for lang, n := range c.PoolSizesByLanguage {
		if n < 1 {
			return cgerrors.NewValidationError("pool_sizes_by_language", fmt.Sprintf("%s=%d", lang, n), "must be at least 1")
		}
	}
	return nil
}

// knownTopLevelKeys is consulted by both file-format loaders to reject
// unknown configuration keys (spec §6: "Unknown keys are rejected").
var knownTopLevelKeys = map[string]bool{
	"workspace_root":          true,
	"include_globs":           true,
	"exclude_globs":           true,
	"languages_enabled":       true,
	"embedding_provider":      true,
	"embedding_model":         true,
	"embedding_dim":           true,
	"max_chunk_tokens":        true,
	"vector_index_type":       true,
	"vector_index_params":     true,
	"cache_max_entries":       true,
	"pool_sizes_by_language":  true,
	"max_pending_write_batch": true,
}
