package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/codegraph/internal/cgerrors"
)

// tomlDoc mirrors Config's field set using TOML tags; it exists separately
// from Config so go-toml/v2's DisallowUnknownFields can reject unrecognized
// keys without Config itself carrying toml struct tags alongside its KDL
// loading path.
type tomlDoc struct {
	WorkspaceRoot string `toml:"workspace_root"`

	IncludeGlobs []string `toml:"include_globs"`
	ExcludeGlobs []string `toml:"exclude_globs"`

	LanguagesEnabled []string `toml:"languages_enabled"`

	EmbeddingProvider string `toml:"embedding_provider"`
	EmbeddingModel    string `toml:"embedding_model"`
	EmbeddingDim      int    `toml:"embedding_dim"`
	MaxChunkTokens    int    `toml:"max_chunk_tokens"`

	VectorIndexType   string            `toml:"vector_index_type"`
	VectorIndexParams tomlIndexParams   `toml:"vector_index_params"`
	CacheMaxEntries   int               `toml:"cache_max_entries"`
	PoolSizesByLang   map[string]int    `toml:"pool_sizes_by_language"`
	MaxPendingWrite   int               `toml:"max_pending_write_batch"`
}

type tomlIndexParams struct {
	M              int `toml:"m"`
	EfConstruction int `toml:"ef_construction"`
	EfSearch       int `toml:"ef_search"`
	NList          int `toml:"n_list"`
	NProbe         int `toml:"n_probe"`
	NBits          int `toml:"n_bits"`
	PQM            int `toml:"pq_m"`
	PQNBits        int `toml:"pq_n_bits"`
}

// LoadTOML loads a .codegraph.toml file from projectRoot as an alternate to
// the KDL format, falling back to Default() if the file does not exist.
func LoadTOML(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, ".codegraph.toml")
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		cfg.WorkspaceRoot = projectRoot
		return cfg, nil
	}
	if err != nil {
		return nil, cgerrors.NewIoError("read", path, err)
	}

	cfg, err := parseTOML(content)
	if err != nil {
		return nil, err
	}
	if cfg.WorkspaceRoot == "" {
		abs, absErr := filepath.Abs(projectRoot)
		if absErr == nil {
			cfg.WorkspaceRoot = abs
		} else {
			cfg.WorkspaceRoot = projectRoot
		}
	}
	return cfg, cfg.Validate()
}

func parseTOML(content []byte) (*Config, error) {
	def := Default()

	var doc tomlDoc
	dec := toml.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, cgerrors.NewParseError(".codegraph.toml", 0, 0, err)
	}

	cfg := def
	if doc.WorkspaceRoot != "" {
		cfg.WorkspaceRoot = doc.WorkspaceRoot
	}
	if len(doc.IncludeGlobs) > 0 {
		cfg.IncludeGlobs = doc.IncludeGlobs
	}
	if len(doc.ExcludeGlobs) > 0 {
		cfg.ExcludeGlobs = doc.ExcludeGlobs
	}
	if len(doc.LanguagesEnabled) > 0 {
		cfg.LanguagesEnabled = doc.LanguagesEnabled
	}
	if doc.EmbeddingProvider != "" {
		cfg.EmbeddingProvider = doc.EmbeddingProvider
	}
	if doc.EmbeddingModel != "" {
		cfg.EmbeddingModel = doc.EmbeddingModel
	}
	if doc.EmbeddingDim != 0 {
		cfg.EmbeddingDim = doc.EmbeddingDim
	}
	if doc.MaxChunkTokens != 0 {
		cfg.MaxChunkTokens = doc.MaxChunkTokens
	}
	if doc.VectorIndexType != "" {
		cfg.VectorIndexType = VectorIndexType(doc.VectorIndexType)
	}
	if doc.VectorIndexParams != (tomlIndexParams{}) {
		cfg.VectorIndexParams = VectorIndexParams{
			M:              doc.VectorIndexParams.M,
			EfConstruction: doc.VectorIndexParams.EfConstruction,
			EfSearch:       doc.VectorIndexParams.EfSearch,
			NList:          doc.VectorIndexParams.NList,
			NProbe:         doc.VectorIndexParams.NProbe,
			NBits:          doc.VectorIndexParams.NBits,
			PQM:            doc.VectorIndexParams.PQM,
			PQNBits:        doc.VectorIndexParams.PQNBits,
		}
	}
	if doc.CacheMaxEntries != 0 {
		cfg.CacheMaxEntries = doc.CacheMaxEntries
	}
	if len(doc.PoolSizesByLang) > 0 {
		cfg.PoolSizesByLanguage = doc.PoolSizesByLang
	}
	if doc.MaxPendingWrite != 0 {
		cfg.MaxPendingWriteBatch = doc.MaxPendingWrite
	}

	return cfg, nil
}
