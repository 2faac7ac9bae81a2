package retrieve

import (
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/codegraph/internal/extract"
)

// tokenizeQuery splits free text into identifier-like fragments: first on
// whitespace/punctuation, then each fragment through the same camelCase
// and snake_case splitter the extractors use for display names, so a
// query like "getUserAuth" and a query like "get user auth" produce the
// same fragment set.
func tokenizeQuery(query string) []string {
	var fields []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			fields = append(fields, string(cur))
			cur = nil
		}
	}
	for _, r := range query {
		if r == ' ' || r == '\t' || r == '\n' || r == '.' || r == '/' || r == ':' {
			flush()
			continue
		}
		cur = append(cur, r)
	}
	flush()

	tokens := make([]string, 0, len(fields)*2)
	for _, f := range fields {
		for _, w := range extract.CamelAndSnakeWords(f) {
			if w != "" {
				tokens = append(tokens, strings.ToLower(w))
			}
		}
	}
	if len(tokens) == 0 {
		return []string{strings.ToLower(query)}
	}
	return tokens
}

// lexicalScore rates how well name matches the query's tokenized
// fragments: name is split the same way, and the score is the best
// Jaro-Winkler similarity over every (query token, name token) pair,
// following standardbeagle-lci's FuzzyMatcher.jaroWinkler call shape
// (internal/semantic/fuzzy_matcher.go in the pack).
func lexicalScore(queryTokens []string, name string) float64 {
	nameTokens := extract.CamelAndSnakeWords(name)
	if len(nameTokens) == 0 {
		nameTokens = []string{name}
	}

	var best float64
	for _, qt := range queryTokens {
		for _, nt := range nameTokens {
			score, err := edlib.StringsSimilarity(qt, strings.ToLower(nt), edlib.JaroWinkler)
			if err != nil {
				continue
			}
			if float64(score) > best {
				best = float64(score)
			}
		}
	}
	return best
}
