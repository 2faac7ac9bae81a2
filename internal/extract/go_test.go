package extract

import (
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codegraph/internal/types"
)

const goSample = `package main

import (
	"fmt"
	"strings"
)

type Greeter struct {
	Name string
}

func (g *Greeter) Greet() string {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Sprintf("hello, stranger")
	}
	return fmt.Sprintf("hello, %s", g.Name)
}

func main() {
	g := &Greeter{Name: "world"}
	fmt.Println(g.Greet())
}
`

func parseGo(t *testing.T, src string) *sitter.Tree {
	t.Helper()
	parser := sitter.NewParser()
	require.NoError(t, parser.SetLanguage(sitter.NewLanguage(tree_sitter_go.Language())))
	tree := parser.Parse([]byte(src), nil)
	require.NotNil(t, tree)
	return tree
}

func TestGoExtractor_Extract(t *testing.T) {
	tree := parseGo(t, goSample)
	defer tree.Close()

	ex := NewGoExtractor()
	res, err := ex.Extract(types.FileID(1), "main.go", []byte(goSample), tree)
	require.NoError(t, err)

	var names []string
	for _, n := range res.Nodes {
		names = append(names, n.Name)
	}
	assert.Contains(t, names, "Greeter")
	assert.Contains(t, names, "Greet")
	assert.Contains(t, names, "main")
	assert.Contains(t, names, "fmt")
	assert.Contains(t, names, "strings")

	var mainNode *types.CodeNode
	var greetNode *types.CodeNode
	for i := range res.Nodes {
		switch {
		case res.Nodes[i].Name == "main" && res.Nodes[i].Kind == types.NodeKindFunction:
			mainNode = &res.Nodes[i]
		case res.Nodes[i].Name == "Greet":
			greetNode = &res.Nodes[i]
		}
	}
	require.NotNil(t, mainNode)
	require.NotNil(t, greetNode)
	assert.Equal(t, "true", mainNode.Metadata["entry_point"])
	assert.Equal(t, "Greeter", greetNode.Metadata["receiver"])
	assert.Equal(t, "true", greetNode.Metadata["exported"])
	require.NotNil(t, greetNode.Complexity)
	assert.GreaterOrEqual(t, *greetNode.Complexity, float64(2))

	var callEdges, importEdges int
	for _, e := range res.Edges {
		switch e.Kind {
		case types.EdgeKindCalls:
			callEdges++
		case types.EdgeKindImports:
			importEdges++
		}
	}
	assert.Greater(t, callEdges, 0)
	assert.Equal(t, 2, importEdges)
}

func TestGoExtractor_StdlibImportTagged(t *testing.T) {
	tree := parseGo(t, goSample)
	defer tree.Close()

	ex := NewGoExtractor()
	res, err := ex.Extract(types.FileID(1), "main.go", []byte(goSample), tree)
	require.NoError(t, err)

	for _, n := range res.Nodes {
		if n.Kind == types.NodeKindImport && n.Name == "fmt" {
			assert.Equal(t, "true", n.Metadata["stdlib"])
		}
	}
}

func TestGoExtractor_EmptyFileProducesNoNodes(t *testing.T) {
	src := "package main\n"
	tree := parseGo(t, src)
	defer tree.Close()

	ex := NewGoExtractor()
	res, err := ex.Extract(types.FileID(1), "empty.go", []byte(src), tree)
	require.NoError(t, err)
	assert.Empty(t, res.Nodes)
	assert.Empty(t, res.Edges)
}
