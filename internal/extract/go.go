package extract

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/codegraph/internal/types"
)

var goComplexityKinds = map[string]bool{
	"if_statement":     true,
	"for_statement":     true,
	"expression_switch_statement": true,
	"type_switch_statement":       true,
	"expression_case":             true,
	"type_case":                   true,
	"communication_case":          true,
	"&&": true,
	"||": true,
}

var goStdlibPrefixes = []string{
	"fmt", "os", "io", "net", "strings", "strconv", "sync", "time", "context",
	"errors", "bytes", "bufio", "encoding", "crypto", "math", "sort", "regexp",
	"reflect", "runtime", "testing", "unicode", "path", "log", "flag",
}

// GoExtractor extracts CodeGraph nodes/edges from a Go parse tree.
type GoExtractor struct{}

func NewGoExtractor() *GoExtractor { return &GoExtractor{} }

func (e *GoExtractor) Language() types.Language { return types.LanguageGo }

func (e *GoExtractor) Extract(fileID types.FileID, path string, content []byte, tree *sitter.Tree) (*Result, error) {
	res := &Result{}
	root := tree.RootNode()
	if root == nil {
		return res, nil
	}

	packageName := e.packageName(root, content)

	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "function_declaration":
			e.extractFunction(child, content, path, packageName, res)
		case "method_declaration":
			e.extractMethod(child, content, path, packageName, res)
		case "type_declaration":
			e.extractTypeDeclaration(child, content, path, packageName, res)
		case "import_declaration":
			e.extractImportDeclaration(child, content, path, res)
		}
	}

	return res, nil
}

func (e *GoExtractor) packageName(root *sitter.Node, content []byte) string {
	clause := FindChildByType(root, "package_clause")
	if clause == nil {
		return ""
	}
	ident := FindChildByType(clause, "package_identifier")
	return GetNodeText(ident, content)
}

func (e *GoExtractor) extractFunction(node *sitter.Node, content []byte, path, pkg string, res *Result) {
	nameNode := FindChildByType(node, "identifier")
	name := GetNodeText(nameNode, content)
	if name == "" {
		return
	}

	id := types.NewNodeId()
	complexity := float64(Complexity(node, goComplexityKinds))
	n := types.CodeNode{
		ID:            id,
		Name:          name,
		Kind:          types.NodeKindFunction,
		Language:      types.LanguageGo,
		Location:      GetNodeLocation(node, path),
		Content:       GetNodeText(node, content),
		Span:          GetNodeSpan(node),
		Complexity:    &complexity,
		EnclosingPath: pkg,
		Metadata:      map[string]string{},
	}
	if name[0] >= 'A' && name[0] <= 'Z' {
		n.Metadata["exported"] = "true"
	}
	if name == "main" && pkg == "main" {
		n.Metadata["entry_point"] = "true"
	}
	res.Nodes = append(res.Nodes, n)

	e.extractCalls(node, content, id, res)
}

func (e *GoExtractor) extractMethod(node *sitter.Node, content []byte, path, pkg string, res *Result) {
	nameNode := FindChildByType(node, "field_identifier")
	name := GetNodeText(nameNode, content)
	if name == "" {
		return
	}
	receiver := e.methodReceiver(node, content)

	id := types.NewNodeId()
	complexity := float64(Complexity(node, goComplexityKinds))
	n := types.CodeNode{
		ID:            id,
		Name:          name,
		Kind:          types.NodeKindMethod,
		Language:      types.LanguageGo,
		Location:      GetNodeLocation(node, path),
		Content:       GetNodeText(node, content),
		Span:          GetNodeSpan(node),
		Complexity:    &complexity,
		EnclosingPath: joinPath(pkg, receiver),
		Metadata:      map[string]string{"receiver": receiver},
	}
	if name[0] >= 'A' && name[0] <= 'Z' {
		n.Metadata["exported"] = "true"
	}
	res.Nodes = append(res.Nodes, n)

	e.extractCalls(node, content, id, res)
}

func (e *GoExtractor) methodReceiver(node *sitter.Node, content []byte) string {
	params := FindChildByType(node, "parameter_list")
	if params == nil {
		return ""
	}
	param := FindChildByType(params, "parameter_declaration")
	if param == nil {
		return ""
	}
	for i := uint(0); i < param.ChildCount(); i++ {
		child := param.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "pointer_type":
			if t := FindChildByType(child, "type_identifier"); t != nil {
				return GetNodeText(t, content)
			}
		case "type_identifier":
			return GetNodeText(child, content)
		}
	}
	return ""
}

func (e *GoExtractor) extractTypeDeclaration(node *sitter.Node, content []byte, path, pkg string, res *Result) {
	for i := uint(0); i < node.ChildCount(); i++ {
		spec := node.Child(i)
		if spec == nil || spec.Kind() != "type_spec" {
			continue
		}
		nameNode := FindChildByType(spec, "type_identifier")
		name := GetNodeText(nameNode, content)
		if name == "" {
			continue
		}

		kind := types.NodeKindType
		if FindChildByType(spec, "struct_type") != nil {
			kind = types.NodeKindStruct
		} else if FindChildByType(spec, "interface_type") != nil {
			kind = types.NodeKindInterface
		}

		id := types.NewNodeId()
		n := types.CodeNode{
			ID:            id,
			Name:          name,
			Kind:          kind,
			Language:      types.LanguageGo,
			Location:      GetNodeLocation(spec, path),
			Content:       GetNodeText(spec, content),
			Span:          GetNodeSpan(spec),
			EnclosingPath: pkg,
			Metadata:      map[string]string{},
		}
		if name[0] >= 'A' && name[0] <= 'Z' {
			n.Metadata["exported"] = "true"
		}
		res.Nodes = append(res.Nodes, n)
	}
}

func (e *GoExtractor) extractImportDeclaration(node *sitter.Node, content []byte, path string, res *Result) {
	specs := FindChildrenByType(node, "import_spec")
	if list := FindChildByType(node, "import_spec_list"); list != nil {
		specs = append(specs, FindChildrenByType(list, "import_spec")...)
	}

	for _, spec := range specs {
		var importPath, alias string
		for i := uint(0); i < spec.ChildCount(); i++ {
			child := spec.Child(i)
			if child == nil {
				continue
			}
			switch child.Kind() {
			case "interpreted_string_literal", "raw_string_literal":
				importPath = strings.Trim(GetNodeText(child, content), `"`+"`")
			case "package_identifier", "blank_identifier":
				alias = GetNodeText(child, content)
			case "dot":
				alias = "."
			}
		}
		if importPath == "" {
			continue
		}

		id := types.NewNodeId()
		n := types.CodeNode{
			ID:            id,
			Name:          importPath,
			Kind:          types.NodeKindImport,
			Language:      types.LanguageGo,
			Location:      GetNodeLocation(spec, path),
			Metadata:      map[string]string{"alias": alias},
		}
		if isGoStdlib(importPath) {
			n.Metadata["stdlib"] = "true"
		}
		res.Nodes = append(res.Nodes, n)

		res.Edges = append(res.Edges, types.EdgeRelationship{
			From: id,
			To:   types.SymbolicRef(importPath),
			Kind: types.EdgeKindImports,
			Span: GetNodeSpan(spec),
		})
	}
}

func (e *GoExtractor) extractCalls(node *sitter.Node, content []byte, from types.NodeId, res *Result) {
	Walk(node, func(n *sitter.Node) bool {
		if n.Kind() != "call_expression" {
			return true
		}
		fn := n.Child(0)
		name := calleeName(fn, content)
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

func calleeName(fn *sitter.Node, content []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return GetNodeText(fn, content)
	case "selector_expression":
		field := FindChildByType(fn, "field_identifier")
		return GetNodeText(field, content)
	default:
		return ""
	}
}

func isGoStdlib(importPath string) bool {
	if strings.Contains(importPath, ".") {
		return false
	}
	root := strings.SplitN(importPath, "/", 2)[0]
	for _, prefix := range goStdlibPrefixes {
		if root == prefix {
			return true
		}
	}
	return false
}

func joinPath(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ".")
}
