package orchestrator

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/standardbeagle/codegraph/internal/types"
)

// languageByExtension maps a file extension to the Language the extractor
// registry understands. Extensions outside this table are skipped during
// discovery — the spec scopes extraction to the five languages
// internal/extract implements, unlike the teacher's broader
// SourceFileExtensions table (constants.go) which also indexes config and
// doc files for its grep/search surface.
var languageByExtension = map[string]types.Language{
	".go":  types.LanguageGo,
	".rs":  types.LanguageRust,
	".py":  types.LanguagePython,
	".ts":  types.LanguageTypeScript,
	".tsx": types.LanguageTypeScript,
	".js":  types.LanguageJavaScript,
	".jsx": types.LanguageJavaScript,
}

// FileTask is one unit of discovery output: a path paired with the
// language its extension resolved to and the FileID handed to the
// extractors for it (the tree and semantic caches are keyed by path).
type FileTask struct {
	ID       types.FileID
	Path     string
	Language types.Language
}

// Discover walks root, returning every file whose extension resolves to an
// enabled language and that survives includeGlobs/excludeGlobs filtering.
// Glob matching uses path/filepath.Match per path segment, matching the
// teacher's matchesGlobPattern for single-segment patterns; see DESIGN.md
// for why doublestar's recursive "**" was not carried forward.
func Discover(root string, includeGlobs, excludeGlobs, languagesEnabled []string) ([]FileTask, error) {
	enabled := make(map[types.Language]bool, len(languagesEnabled))
	for _, l := range languagesEnabled {
		enabled[types.Language(l)] = true
	}

	var tasks []FileTask
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		lang, ok := languageByExtension[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}
		if len(enabled) > 0 && !enabled[lang] {
			return nil
		}
		if len(includeGlobs) > 0 && !matchesAny(includeGlobs, rel) {
			return nil
		}
		if len(excludeGlobs) > 0 && matchesAny(excludeGlobs, rel) {
			return nil
		}

		tasks = append(tasks, FileTask{ID: types.FileID(len(tasks) + 1), Path: path, Language: lang})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func shouldSkipDir(name string) bool {
	switch name {
	case ".git", "node_modules", "vendor", "target", "__pycache__", ".venv":
		return true
	default:
		return false
	}
}

// matchesAny reports whether path matches any pattern in patterns. Callers
// decide what an empty pattern list means for their direction (include:
// everything matches; exclude: nothing matches).
func matchesAny(patterns []string, path string) bool {
	base := filepath.Base(path)
	for _, p := range patterns {
		if matched, _ := filepath.Match(p, path); matched {
			return true
		}
		if matched, _ := filepath.Match(p, base); matched {
			return true
		}
		for _, seg := range strings.Split(path, "/") {
			if matched, _ := filepath.Match(p, seg); matched {
				return true
			}
		}
	}
	return false
}
