package extract

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/codegraph/internal/types"
)

// rustComplexityKinds and the rest of this file's declaration walk follow
// the same per-declaration, single-pass shape as the teacher's Go extractor,
// retargeted at tree-sitter-rust's grammar (function_item/struct_item/
// enum_item/trait_item/impl_item/use_declaration) instead of regex scanning.
var rustComplexityKinds = map[string]bool{
	"if_expression":      true,
	"if_let_expression":  true,
	"while_expression":   true,
	"while_let_expression": true,
	"loop_expression":    true,
	"for_expression":     true,
	"match_arm":          true,
	"&&":                 true,
	"||":                 true,
}

type RustExtractor struct{}

func NewRustExtractor() *RustExtractor { return &RustExtractor{} }

func (e *RustExtractor) Language() types.Language { return types.LanguageRust }

func (e *RustExtractor) Extract(fileID types.FileID, path string, content []byte, tree *sitter.Tree) (*Result, error) {
	res := &Result{}
	root := tree.RootNode()
	if root == nil {
		return res, nil
	}
	e.walkItems(root, content, path, "", res)
	return res, nil
}

func (e *RustExtractor) walkItems(node *sitter.Node, content []byte, path, enclosing string, res *Result) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "function_item":
			e.extractFunction(child, content, path, enclosing, res)
		case "struct_item":
			e.extractTypeItem(child, content, path, enclosing, types.NodeKindStruct, res)
		case "enum_item":
			e.extractTypeItem(child, content, path, enclosing, types.NodeKindEnum, res)
		case "trait_item":
			e.extractTypeItem(child, content, path, enclosing, types.NodeKindTrait, res)
		case "impl_item":
			e.extractImpl(child, content, path, enclosing, res)
		case "mod_item":
			e.extractMod(child, content, path, enclosing, res)
		case "use_declaration":
			e.extractUse(child, content, path, res)
		}
	}
}

func (e *RustExtractor) isPub(node *sitter.Node) bool {
	return FindChildByType(node, "visibility_modifier") != nil
}

func (e *RustExtractor) extractFunction(node *sitter.Node, content []byte, path, enclosing string, res *Result) {
	nameNode := FindChildByType(node, "identifier")
	name := GetNodeText(nameNode, content)
	if name == "" {
		return
	}

	id := types.NewNodeId()
	complexity := float64(Complexity(node, rustComplexityKinds))
	n := types.CodeNode{
		ID:            id,
		Name:          name,
		Kind:          types.NodeKindFunction,
		Language:      types.LanguageRust,
		Location:      GetNodeLocation(node, path),
		Content:       GetNodeText(node, content),
		Span:          GetNodeSpan(node),
		Complexity:    &complexity,
		EnclosingPath: enclosing,
		Metadata:      map[string]string{},
	}
	if e.isPub(node) {
		n.Metadata["exported"] = "true"
	}
	if name == "main" && enclosing == "" {
		n.Metadata["entry_point"] = "true"
	}
	res.Nodes = append(res.Nodes, n)

	e.extractCalls(node, content, id, res)
}

func (e *RustExtractor) extractTypeItem(node *sitter.Node, content []byte, path, enclosing string, kind types.NodeKind, res *Result) {
	nameNode := FindChildByType(node, "type_identifier")
	name := GetNodeText(nameNode, content)
	if name == "" {
		return
	}

	n := types.CodeNode{
		ID:            types.NewNodeId(),
		Name:          name,
		Kind:          kind,
		Language:      types.LanguageRust,
		Location:      GetNodeLocation(node, path),
		Content:       GetNodeText(node, content),
		Span:          GetNodeSpan(node),
		EnclosingPath: enclosing,
		Metadata:      map[string]string{},
	}
	if e.isPub(node) {
		n.Metadata["exported"] = "true"
	}
	res.Nodes = append(res.Nodes, n)
}

// extractImpl descends into an impl block's associated functions, treating
// the implementing type's name as the enclosing path, mirroring how the Go
// extractor treats a method's receiver type.
func (e *RustExtractor) extractImpl(node *sitter.Node, content []byte, path, enclosing string, res *Result) {
	typeNode := node.ChildByFieldName("type")
	implType := GetNodeText(typeNode, content)
	if implType == "" {
		// fall back: last type_identifier child
		if t := FindChildByType(node, "type_identifier"); t != nil {
			implType = GetNodeText(t, content)
		}
	}
	body := FindChildByType(node, "declaration_list")
	if body == nil {
		return
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		fn := body.Child(i)
		if fn == nil || fn.Kind() != "function_item" {
			continue
		}
		nameNode := FindChildByType(fn, "identifier")
		name := GetNodeText(nameNode, content)
		if name == "" {
			continue
		}
		id := types.NewNodeId()
		complexity := float64(Complexity(fn, rustComplexityKinds))
		n := types.CodeNode{
			ID:            id,
			Name:          name,
			Kind:          types.NodeKindMethod,
			Language:      types.LanguageRust,
			Location:      GetNodeLocation(fn, path),
			Content:       GetNodeText(fn, content),
			Span:          GetNodeSpan(fn),
			Complexity:    &complexity,
			EnclosingPath: joinPath(enclosing, implType),
			Metadata:      map[string]string{"receiver": implType},
		}
		if e.isPub(fn) {
			n.Metadata["exported"] = "true"
		}
		res.Nodes = append(res.Nodes, n)
		e.extractCalls(fn, content, id, res)
	}
}

func (e *RustExtractor) extractMod(node *sitter.Node, content []byte, path, enclosing string, res *Result) {
	nameNode := FindChildByType(node, "identifier")
	name := GetNodeText(nameNode, content)
	if name == "" {
		return
	}
	n := types.CodeNode{
		ID:            types.NewNodeId(),
		Name:          name,
		Kind:          types.NodeKindModule,
		Language:      types.LanguageRust,
		Location:      GetNodeLocation(node, path),
		EnclosingPath: enclosing,
		Metadata:      map[string]string{},
	}
	if e.isPub(node) {
		n.Metadata["exported"] = "true"
	}
	res.Nodes = append(res.Nodes, n)

	if body := FindChildByType(node, "declaration_list"); body != nil {
		e.walkItems(body, content, path, joinPath(enclosing, name), res)
	}
}

func (e *RustExtractor) extractUse(node *sitter.Node, content []byte, path string, res *Result) {
	text := GetNodeText(node, content)
	text = strings.TrimPrefix(text, "pub ")
	text = strings.TrimPrefix(text, "use ")
	text = strings.TrimSuffix(strings.TrimSpace(text), ";")
	if text == "" {
		return
	}

	id := types.NewNodeId()
	n := types.CodeNode{
		ID:       id,
		Name:     text,
		Kind:     types.NodeKindImport,
		Language: types.LanguageRust,
		Location: GetNodeLocation(node, path),
		Metadata: map[string]string{},
	}
	if strings.HasPrefix(text, "std::") || strings.HasPrefix(text, "core::") || strings.HasPrefix(text, "alloc::") {
		n.Metadata["stdlib"] = "true"
	}
	res.Nodes = append(res.Nodes, n)

	res.Edges = append(res.Edges, types.EdgeRelationship{
		From: id,
		To:   types.SymbolicRef(text),
		Kind: types.EdgeKindImports,
		Span: GetNodeSpan(node),
	})
}

func (e *RustExtractor) extractCalls(node *sitter.Node, content []byte, from types.NodeId, res *Result) {
	Walk(node, func(n *sitter.Node) bool {
		if n.Kind() != "call_expression" {
			return true
		}
		fn := n.ChildByFieldName("function")
		name := rustCalleeName(fn, content)
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

func rustCalleeName(fn *sitter.Node, content []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return GetNodeText(fn, content)
	case "field_expression":
		field := fn.ChildByFieldName("field")
		return GetNodeText(field, content)
	case "scoped_identifier":
		name := fn.ChildByFieldName("name")
		return GetNodeText(name, content)
	default:
		return ""
	}
}
