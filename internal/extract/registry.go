package extract

import "github.com/standardbeagle/codegraph/internal/types"

// Registry maps a Language to the extractor that handles it, mirroring the
// teacher's ExtractorRegistry but keyed on the typed Language enum instead
// of a bare language-name string.
type Registry struct {
	byLanguage map[types.Language]LanguageExtractor
}

// NewRegistry builds a Registry pre-populated with every extractor this
// package implements (Go, Rust, Python, TypeScript, JavaScript).
func NewRegistry() *Registry {
	r := &Registry{byLanguage: make(map[types.Language]LanguageExtractor)}
	r.Register(NewGoExtractor())
	r.Register(NewRustExtractor())
	r.Register(NewPythonExtractor())
	r.Register(NewTypeScriptExtractor())
	r.Register(NewJavaScriptExtractor())
	return r
}

// Register adds or replaces the extractor for its declared language.
func (r *Registry) Register(e LanguageExtractor) {
	r.byLanguage[e.Language()] = e
}

// Get returns the extractor registered for lang, or nil if none is.
func (r *Registry) Get(lang types.Language) LanguageExtractor {
	return r.byLanguage[lang]
}

// Languages returns every language this registry has an extractor for.
func (r *Registry) Languages() []types.Language {
	out := make([]types.Language, 0, len(r.byLanguage))
	for lang := range r.byLanguage {
		out = append(out, lang)
	}
	return out
}
