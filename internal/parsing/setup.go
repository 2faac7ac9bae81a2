package parsing

import (
	"fmt"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/standardbeagle/codegraph/internal/types"
)

// ParserSet lazily builds and holds one *sitter.Parser per language, the
// same per-language registration shape the teacher's parser package uses
// (one parser per extension, built on first use and reused after), narrowed
// to the five languages this module extracts.
//
// A tree-sitter Parser is not safe for concurrent Parse calls, so each
// language's parser is guarded by its own mutex rather than one shared lock
// across languages — two goroutines parsing Go and Rust files don't
// contend, matching the orchestrator's one-worker-pool-per-language model.
type ParserSet struct {
	mu      sync.Mutex
	parsers map[types.Language]*languageParser
}

type languageParser struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewParserSet builds an empty set; parsers are constructed lazily on first
// use via Parse.
func NewParserSet() *ParserSet {
	return &ParserSet{parsers: make(map[types.Language]*languageParser)}
}

func languageBinding(lang types.Language) (*sitter.Language, error) {
	switch lang {
	case types.LanguageGo:
		return sitter.NewLanguage(tree_sitter_go.Language()), nil
	case types.LanguageRust:
		return sitter.NewLanguage(tree_sitter_rust.Language()), nil
	case types.LanguagePython:
		return sitter.NewLanguage(tree_sitter_python.Language()), nil
	case types.LanguageTypeScript:
		return sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()), nil
	case types.LanguageJavaScript:
		return sitter.NewLanguage(tree_sitter_javascript.Language()), nil
	default:
		return nil, fmt.Errorf("parsing: no grammar registered for language %q", lang)
	}
}

func (s *ParserSet) entry(lang types.Language) (*languageParser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lp, ok := s.parsers[lang]; ok {
		return lp, nil
	}
	binding, err := languageBinding(lang)
	if err != nil {
		return nil, err
	}
	p := sitter.NewParser()
	if err := p.SetLanguage(binding); err != nil {
		return nil, fmt.Errorf("parsing: set language %q: %w", lang, err)
	}
	lp := &languageParser{parser: p}
	s.parsers[lang] = lp
	return lp, nil
}

// Parse runs a full or edit-aware incremental parse for lang. oldTree may
// be nil for a first encounter; when non-nil it must already have had Edit
// applied for every byte range that changed, so the parser can reuse
// unaffected subtrees.
func (s *ParserSet) Parse(lang types.Language, content []byte, oldTree *sitter.Tree) (*sitter.Tree, error) {
	lp, err := s.entry(lang)
	if err != nil {
		return nil, err
	}
	lp.mu.Lock()
	defer lp.mu.Unlock()

	tree := lp.parser.Parse(content, oldTree)
	if tree == nil {
		return nil, fmt.Errorf("parsing: parser returned no tree for language %q", lang)
	}
	return tree, nil
}
