// Package extract implements the per-language declaration/call-site/import
// walk (a single pass per file) that turns a tree-sitter parse tree into
// CodeNode/EdgeRelationship pairs.
package extract

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/codegraph/internal/types"
)

// Result is what a single call to Extract produces for one file.
type Result struct {
	Nodes []types.CodeNode
	Edges []types.EdgeRelationship
}

// LanguageExtractor walks one parsed file and emits its declarations, call
// edges, and import edges. Implementations hold no state across calls.
type LanguageExtractor interface {
	Language() types.Language
	Extract(fileID types.FileID, path string, content []byte, tree *sitter.Tree) (*Result, error)
}

// GetNodeText returns the source slice a node spans, or "" for a nil node
// or an out-of-range span (can happen on a stale tree over edited content).
func GetNodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > uint(len(content)) || end > uint(len(content)) || start > end {
		return ""
	}
	return string(content[start:end])
}

// GetNodeLocation converts a node's tree-sitter position (0-based) into the
// spec's 1-based Location.
func GetNodeLocation(node *sitter.Node, path string) types.Location {
	if node == nil {
		return types.Location{File: path}
	}
	start := node.StartPosition()
	end := node.EndPosition()
	return types.Location{
		File:      path,
		Line:      int(start.Row) + 1,
		Column:    int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndColumn: int(end.Column) + 1,
	}
}

// GetNodeSpan returns the byte span a node covers.
func GetNodeSpan(node *sitter.Node) *types.Span {
	if node == nil {
		return nil
	}
	return &types.Span{StartByte: node.StartByte(), EndByte: node.EndByte()}
}

// FindChildByType returns the first direct child of the given kind.
func FindChildByType(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

// FindChildrenByType returns every direct child of the given kind.
func FindChildrenByType(node *sitter.Node, kind string) []*sitter.Node {
	if node == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			out = append(out, child)
		}
	}
	return out
}

// Walk visits node and every descendant depth-first in pre-order, stopping
// a branch early when visit returns false for that node.
func Walk(node *sitter.Node, visit func(node *sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		Walk(node.Child(i), visit)
	}
}

// Complexity counts the branching constructs in kinds across node's
// subtree and adds the base complexity of 1, per the fixed language-specific
// branching-construct sets (if/while/for/match/switch/case/catch/&&/||).
func Complexity(node *sitter.Node, kinds map[string]bool) int {
	count := 1
	Walk(node, func(n *sitter.Node) bool {
		if kinds[n.Kind()] {
			count++
		}
		return true
	})
	return count
}

// CamelAndSnakeWords splits an identifier on underscores and camelCase
// boundaries, used by the retriever's fuzzy tokenizer and by extractors that
// need a display-friendly name fragment list.
func CamelAndSnakeWords(identifier string) []string {
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = nil
		}
	}
	runes := []rune(identifier)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-':
			flush()
		case r >= 'A' && r <= 'Z' && i > 0 && !(runes[i-1] >= 'A' && runes[i-1] <= 'Z'):
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()
	return words
}
