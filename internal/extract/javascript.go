package extract

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/codegraph/internal/types"
)

var jsComplexityKinds = map[string]bool{
	"if_statement":      true,
	"for_statement":      true,
	"for_in_statement":    true,
	"while_statement":     true,
	"switch_case":         true,
	"catch_clause":        true,
	"&&":                  true,
	"||":                  true,
}

// JSExtractor handles both JavaScript and TypeScript: the two grammars
// share the node kinds this extractor visits (interface/type-alias/enum
// declarations are TS-only and simply never match against a JS tree).
type JSExtractor struct {
	lang types.Language
}

func NewJavaScriptExtractor() *JSExtractor { return &JSExtractor{lang: types.LanguageJavaScript} }
func NewTypeScriptExtractor() *JSExtractor { return &JSExtractor{lang: types.LanguageTypeScript} }

func (e *JSExtractor) Language() types.Language { return e.lang }

func (e *JSExtractor) Extract(fileID types.FileID, path string, content []byte, tree *sitter.Tree) (*Result, error) {
	res := &Result{}
	root := tree.RootNode()
	if root == nil {
		return res, nil
	}
	e.walk(root, content, path, "", res)
	return res, nil
}

func (e *JSExtractor) walk(node *sitter.Node, content []byte, path, enclosing string, res *Result) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "function_declaration", "generator_function_declaration":
			e.extractFunction(child, content, path, enclosing, res)
		case "class_declaration":
			e.extractClass(child, content, path, enclosing, res)
		case "interface_declaration":
			e.extractTypeDecl(child, content, path, enclosing, types.NodeKindInterface, res)
		case "type_alias_declaration":
			e.extractTypeDecl(child, content, path, enclosing, types.NodeKindType, res)
		case "enum_declaration":
			e.extractTypeDecl(child, content, path, enclosing, types.NodeKindEnum, res)
		case "import_statement":
			e.extractImport(child, content, path, res)
		case "export_statement":
			e.walk(child, content, path, enclosing, res)
		}
	}
}

func (e *JSExtractor) extractFunction(node *sitter.Node, content []byte, path, enclosing string, res *Result) {
	nameNode := node.ChildByFieldName("name")
	name := GetNodeText(nameNode, content)
	if name == "" {
		return
	}

	id := types.NewNodeId()
	complexity := float64(Complexity(node, jsComplexityKinds))
	n := types.CodeNode{
		ID:            id,
		Name:          name,
		Kind:          types.NodeKindFunction,
		Language:      e.lang,
		Location:      GetNodeLocation(node, path),
		Content:       GetNodeText(node, content),
		Span:          GetNodeSpan(node),
		Complexity:    &complexity,
		EnclosingPath: enclosing,
		Metadata:      map[string]string{},
	}
	if isExported(node) {
		n.Metadata["exported"] = "true"
	}
	if name == "main" {
		n.Metadata["entry_point"] = "true"
	}
	res.Nodes = append(res.Nodes, n)

	e.extractCalls(node, content, id, res)
}

func (e *JSExtractor) extractClass(node *sitter.Node, content []byte, path, enclosing string, res *Result) {
	nameNode := node.ChildByFieldName("name")
	name := GetNodeText(nameNode, content)
	if name == "" {
		return
	}

	n := types.CodeNode{
		ID:            types.NewNodeId(),
		Name:          name,
		Kind:          types.NodeKindClass,
		Language:      e.lang,
		Location:      GetNodeLocation(node, path),
		Content:       GetNodeText(node, content),
		Span:          GetNodeSpan(node),
		EnclosingPath: enclosing,
		Metadata:      map[string]string{},
	}
	if isExported(node) {
		n.Metadata["exported"] = "true"
	}
	res.Nodes = append(res.Nodes, n)

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		member := body.Child(i)
		if member == nil || member.Kind() != "method_definition" {
			continue
		}
		e.extractMethod(member, content, path, name, res)
	}
}

func (e *JSExtractor) extractMethod(node *sitter.Node, content []byte, path, className string, res *Result) {
	nameNode := node.ChildByFieldName("name")
	name := GetNodeText(nameNode, content)
	if name == "" {
		return
	}

	id := types.NewNodeId()
	complexity := float64(Complexity(node, jsComplexityKinds))
	n := types.CodeNode{
		ID:            id,
		Name:          name,
		Kind:          types.NodeKindMethod,
		Language:      e.lang,
		Location:      GetNodeLocation(node, path),
		Content:       GetNodeText(node, content),
		Span:          GetNodeSpan(node),
		Complexity:    &complexity,
		EnclosingPath: className,
		Metadata:      map[string]string{"receiver": className},
	}
	if !strings.HasPrefix(name, "#") {
		n.Metadata["exported"] = "true"
	}
	res.Nodes = append(res.Nodes, n)

	e.extractCalls(node, content, id, res)
}

func (e *JSExtractor) extractTypeDecl(node *sitter.Node, content []byte, path, enclosing string, kind types.NodeKind, res *Result) {
	nameNode := node.ChildByFieldName("name")
	name := GetNodeText(nameNode, content)
	if name == "" {
		return
	}
	n := types.CodeNode{
		ID:            types.NewNodeId(),
		Name:          name,
		Kind:          kind,
		Language:      e.lang,
		Location:      GetNodeLocation(node, path),
		Content:       GetNodeText(node, content),
		Span:          GetNodeSpan(node),
		EnclosingPath: enclosing,
		Metadata:      map[string]string{},
	}
	if isExported(node) {
		n.Metadata["exported"] = "true"
	}
	res.Nodes = append(res.Nodes, n)
}

func (e *JSExtractor) extractImport(node *sitter.Node, content []byte, path string, res *Result) {
	var source string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == "string" {
			source = strings.Trim(GetNodeText(child, content), `"'`)
		}
	}
	if source == "" {
		return
	}

	id := types.NewNodeId()
	n := types.CodeNode{
		ID:       id,
		Name:     source,
		Kind:     types.NodeKindImport,
		Language: e.lang,
		Location: GetNodeLocation(node, path),
		Metadata: map[string]string{},
	}
	if !strings.HasPrefix(source, ".") && !strings.HasPrefix(source, "/") {
		n.Metadata["external"] = "true"
	}
	res.Nodes = append(res.Nodes, n)

	res.Edges = append(res.Edges, types.EdgeRelationship{
		From: id,
		To:   types.SymbolicRef(source),
		Kind: types.EdgeKindImports,
		Span: GetNodeSpan(node),
	})
}

func (e *JSExtractor) extractCalls(node *sitter.Node, content []byte, from types.NodeId, res *Result) {
	Walk(node, func(n *sitter.Node) bool {
		if n.Kind() != "call_expression" {
			return true
		}
		fn := n.ChildByFieldName("function")
		name := jsCalleeName(fn, content)
		if name == "" {
			return true
		}
		res.Edges = append(res.Edges, types.EdgeRelationship{
			From: from,
			To:   types.SymbolicRef(name),
			Kind: types.EdgeKindCalls,
			Span: GetNodeSpan(n),
		})
		return true
	})
}

func jsCalleeName(fn *sitter.Node, content []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return GetNodeText(fn, content)
	case "member_expression":
		prop := fn.ChildByFieldName("property")
		return GetNodeText(prop, content)
	default:
		return ""
	}
}

func isExported(node *sitter.Node) bool {
	parent := node.Parent()
	return parent != nil && parent.Kind() == "export_statement"
}
