package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/codegraph/internal/cgerrors"
)

// LoadKDL loads a .codegraph.kdl file from projectRoot, falling back to
// Default() if the file does not exist.
func LoadKDL(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, ".codegraph.kdl")
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		cfg.WorkspaceRoot = projectRoot
		return cfg, nil
	}
	if err != nil {
		return nil, cgerrors.NewIoError("read", path, err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}
	if cfg.WorkspaceRoot == "" || cfg.WorkspaceRoot == "." {
		abs, absErr := filepath.Abs(projectRoot)
		if absErr == nil {
			cfg.WorkspaceRoot = abs
		} else {
			cfg.WorkspaceRoot = projectRoot
		}
	} else if !filepath.IsAbs(cfg.WorkspaceRoot) {
		cfg.WorkspaceRoot = filepath.Clean(filepath.Join(projectRoot, cfg.WorkspaceRoot))
	}
	return cfg, cfg.Validate()
}

func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, cgerrors.NewParseError(".codegraph.kdl", 0, 0, err)
	}

	for _, n := range doc.Nodes {
		name := nodeName(n)
		if !knownTopLevelKeys[name] {
			return nil, cgerrors.NewValidationError(name, "", "unknown configuration key")
		}
		switch name {
		case "workspace_root":
			if s, ok := firstStringArg(n); ok {
				cfg.WorkspaceRoot = s
			}
		case "include_globs":
			cfg.IncludeGlobs = collectStringArgs(n)
		case "exclude_globs":
			cfg.ExcludeGlobs = collectStringArgs(n)
		case "languages_enabled":
			cfg.LanguagesEnabled = collectStringArgs(n)
		case "embedding_provider":
			if s, ok := firstStringArg(n); ok {
				cfg.EmbeddingProvider = s
			}
		case "embedding_model":
			if s, ok := firstStringArg(n); ok {
				cfg.EmbeddingModel = s
			}
		case "embedding_dim":
			if v, ok := firstIntArg(n); ok {
				cfg.EmbeddingDim = v
			}
		case "max_chunk_tokens":
			if v, ok := firstIntArg(n); ok {
				cfg.MaxChunkTokens = v
			}
		case "cache_max_entries":
			if v, ok := firstIntArg(n); ok {
				cfg.CacheMaxEntries = v
			}
		case "max_pending_write_batch":
			if v, ok := firstIntArg(n); ok {
				cfg.MaxPendingWriteBatch = v
			}
		case "vector_index_type":
			if s, ok := firstStringArg(n); ok {
				cfg.VectorIndexType = VectorIndexType(s)
			}
		case "vector_index_params":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "m":
					if v, ok := firstIntArg(cn); ok {
						cfg.VectorIndexParams.M = v
					}
				case "ef_construction":
					if v, ok := firstIntArg(cn); ok {
						cfg.VectorIndexParams.EfConstruction = v
					}
				case "ef_search":
					if v, ok := firstIntArg(cn); ok {
						cfg.VectorIndexParams.EfSearch = v
					}
				case "n_list":
					if v, ok := firstIntArg(cn); ok {
						cfg.VectorIndexParams.NList = v
					}
				case "n_probe":
					if v, ok := firstIntArg(cn); ok {
						cfg.VectorIndexParams.NProbe = v
					}
				case "n_bits":
					if v, ok := firstIntArg(cn); ok {
						cfg.VectorIndexParams.NBits = v
					}
				case "pq_m":
					if v, ok := firstIntArg(cn); ok {
						cfg.VectorIndexParams.PQM = v
					}
				case "pq_n_bits":
					if v, ok := firstIntArg(cn); ok {
						cfg.VectorIndexParams.PQNBits = v
					}
				default:
					return nil, cgerrors.NewValidationError("vector_index_params."+nodeName(cn), "", "unknown configuration key")
				}
			}
		case "pool_sizes_by_language":
			pools := map[string]int{}
			for _, cn := range n.Children {
				if v, ok := firstIntArg(cn); ok {
					pools[nodeName(cn)] = v
				}
			}
			if len(pools) > 0 {
				cfg.PoolSizesByLanguage = pools
			}
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// parseSize handles size strings like "10MB", "500KB", "1GB" (binary
// multiples). No configuration key is currently parsed through it.
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		multiplier = 1
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return num * multiplier, nil
}
