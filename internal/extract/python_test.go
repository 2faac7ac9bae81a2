package extract

import (
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codegraph/internal/types"
)

const pythonSample = `import os
from collections import OrderedDict

class Greeter:
    def __init__(self, name):
        self.name = name

    def greet(self):
        if not self.name:
            return "hello, stranger"
        return "hello, " + self.name


def main():
    g = Greeter("world")
    print(g.greet())
`

func parsePython(t *testing.T, src string) *sitter.Tree {
	t.Helper()
	parser := sitter.NewParser()
	require.NoError(t, parser.SetLanguage(sitter.NewLanguage(tree_sitter_python.Language())))
	tree := parser.Parse([]byte(src), nil)
	require.NotNil(t, tree)
	return tree
}

func TestPythonExtractor_Extract(t *testing.T) {
	tree := parsePython(t, pythonSample)
	defer tree.Close()

	ex := NewPythonExtractor()
	res, err := ex.Extract(types.FileID(1), "main.py", []byte(pythonSample), tree)
	require.NoError(t, err)

	var names []string
	for _, n := range res.Nodes {
		names = append(names, n.Name)
	}
	assert.Contains(t, names, "Greeter")
	assert.Contains(t, names, "greet")
	assert.Contains(t, names, "main")
	assert.Contains(t, names, "os")
	assert.Contains(t, names, "collections")

	var greetNode, osNode *types.CodeNode
	for i := range res.Nodes {
		switch {
		case res.Nodes[i].Name == "greet":
			greetNode = &res.Nodes[i]
		case res.Nodes[i].Name == "os":
			osNode = &res.Nodes[i]
		}
	}
	require.NotNil(t, greetNode)
	require.NotNil(t, osNode)
	assert.Equal(t, types.NodeKindMethod, greetNode.Kind)
	assert.Equal(t, "Greeter", greetNode.EnclosingPath)
	assert.Equal(t, "true", osNode.Metadata["stdlib"])
}

func TestPythonExtractor_PrivateNameNotExported(t *testing.T) {
	src := "def _helper():\n    return 1\n"
	tree := parsePython(t, src)
	defer tree.Close()

	ex := NewPythonExtractor()
	res, err := ex.Extract(types.FileID(1), "m.py", []byte(src), tree)
	require.NoError(t, err)
	require.Len(t, res.Nodes, 1)
	assert.Empty(t, res.Nodes[0].Metadata["exported"])
}
