package extract

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/codegraph/internal/types"
)

var pythonComplexityKinds = map[string]bool{
	"if_statement":      true,
	"elif_clause":       true,
	"while_statement":   true,
	"for_statement":     true,
	"except_clause":     true,
	"boolean_operator":  true,
}

var pythonStdlibModules = map[string]bool{
	"os": true, "sys": true, "re": true, "json": true, "math": true,
	"collections": true, "itertools": true, "functools": true, "typing": true,
	"asyncio": true, "logging": true, "subprocess": true, "pathlib": true,
	"datetime": true, "time": true, "io": true, "abc": true, "enum": true,
}

type PythonExtractor struct{}

func NewPythonExtractor() *PythonExtractor { return &PythonExtractor{} }

func (e *PythonExtractor) Language() types.Language { return types.LanguagePython }

func (e *PythonExtractor) Extract(fileID types.FileID, path string, content []byte, tree *sitter.Tree) (*Result, error) {
	res := &Result{}
	root := tree.RootNode()
	if root == nil {
		return res, nil
	}
	e.walkBlock(root, content, path, "", res)
	return res, nil
}

func (e *PythonExtractor) walkBlock(node *sitter.Node, content []byte, path, enclosing string, res *Result) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "function_definition":
			e.extractFunction(child, content, path, enclosing, res)
		case "class_definition":
			e.extractClass(child, content, path, enclosing, res)
		case "import_statement", "import_from_statement":
			e.extractImport(child, content, path, res)
		}
	}
}

func (e *PythonExtractor) extractFunction(node *sitter.Node, content []byte, path, enclosing string, res *Result) {
	nameNode := node.ChildByFieldName("name")
	name := GetNodeText(nameNode, content)
	if name == "" {
		return
	}

	kind := types.NodeKindFunction
	if enclosing != "" {
		kind = types.NodeKindMethod
	}

	id := types.NewNodeId()
	complexity := float64(Complexity(node, pythonComplexityKinds))
	n := types.CodeNode{
		ID:            id,
		Name:          name,
		Kind:          kind,
		Language:      types.LanguagePython,
		Location:      GetNodeLocation(node, path),
		Content:       GetNodeText(node, content),
		Span:          GetNodeSpan(node),
		Complexity:    &complexity,
		EnclosingPath: enclosing,
		Metadata:      map[string]string{"receiver": enclosing},
	}
	if !strings.HasPrefix(name, "_") {
		n.Metadata["exported"] = "true"
	}
	if name == "main" {
		n.Metadata["entry_point"] = "true"
	}
	res.Nodes = append(res.Nodes, n)

	e.extractCalls(node, content, id, res)

	// Python nests closures/functions inside a function body; descend so
	// they still surface as their own nodes, enclosed under this function.
	if body := node.ChildByFieldName("body"); body != nil {
		e.walkBlock(body, content, path, joinPath(enclosing, name), res)
	}
}

func (e *PythonExtractor) extractClass(node *sitter.Node, content []byte, path, enclosing string, res *Result) {
	nameNode := node.ChildByFieldName("name")
	name := GetNodeText(nameNode, content)
	if name == "" {
		return
	}

	n := types.CodeNode{
		ID:            types.NewNodeId(),
		Name:          name,
		Kind:          types.NodeKindClass,
		Language:      types.LanguagePython,
		Location:      GetNodeLocation(node, path),
		Content:       GetNodeText(node, content),
		Span:          GetNodeSpan(node),
		EnclosingPath: enclosing,
		Metadata:      map[string]string{},
	}
	if !strings.HasPrefix(name, "_") {
		n.Metadata["exported"] = "true"
	}
	res.Nodes = append(res.Nodes, n)

	if body := node.ChildByFieldName("body"); body != nil {
		e.walkBlock(body, content, path, joinPath(enclosing, name), res)
	}
}

func (e *PythonExtractor) extractImport(node *sitter.Node, content []byte, path string, res *Result) {
	var modules []string
	switch node.Kind() {
	case "import_statement":
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil && (child.Kind() == "dotted_name" || child.Kind() == "aliased_import") {
				modules = append(modules, GetNodeText(child, content))
			}
		}
	case "import_from_statement":
		if mod := node.ChildByFieldName("module_name"); mod != nil {
			modules = append(modules, GetNodeText(mod, content))
		}
	}

	for _, mod := range modules {
		alias := ""
		if idx := strings.Index(mod, " as "); idx != -1 {
			alias = strings.TrimSpace(mod[idx+4:])
			mod = strings.TrimSpace(mod[:idx])
		}

		id := types.NewNodeId()
		n := types.CodeNode{
			ID:       id,
			Name:     mod,
			Kind:     types.NodeKindImport,
			Language: types.LanguagePython,
			Location: GetNodeLocation(node, path),
			Metadata: map[string]string{"alias": alias},
		}
		root := strings.SplitN(mod, ".", 2)[0]
		if pythonStdlibModules[root] {
			n.Metadata["stdlib"] = "true"
		}
		res.Nodes = append(res.Nodes, n)

		res.Edges = append(res.Edges, types.EdgeRelationship{
			From: id,
			To:   types.SymbolicRef(mod),
			Kind: types.EdgeKindImports,
			Span: GetNodeSpan(node),
		})
	}
}

func (e *PythonExtractor) extractCalls(node *sitter.Node, content []byte, from types.NodeId, res *Result) {
	Walk(node, func(n *sitter.Node) bool {
		if n.Kind() != "call" {
			return true
		}
		fn := n.ChildByFieldName("function")
		name := pythonCalleeName(fn, content)
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

func pythonCalleeName(fn *sitter.Node, content []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return GetNodeText(fn, content)
	case "attribute":
		attr := fn.ChildByFieldName("attribute")
		return GetNodeText(attr, content)
	default:
		return ""
	}
}
