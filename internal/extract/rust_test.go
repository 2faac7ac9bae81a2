package extract

import (
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codegraph/internal/types"
)

const rustSample = `use std::collections::HashMap;

pub struct Greeter {
    name: String,
}

impl Greeter {
    pub fn greet(&self) -> String {
        if self.name.is_empty() {
            return format!("hello, stranger");
        }
        format!("hello, {}", self.name)
    }
}

fn main() {
    let g = Greeter { name: String::from("world") };
    println!("{}", g.greet());
}
`

func parseRust(t *testing.T, src string) *sitter.Tree {
	t.Helper()
	parser := sitter.NewParser()
	require.NoError(t, parser.SetLanguage(sitter.NewLanguage(tree_sitter_rust.Language())))
	tree := parser.Parse([]byte(src), nil)
	require.NotNil(t, tree)
	return tree
}

func TestRustExtractor_Extract(t *testing.T) {
	tree := parseRust(t, rustSample)
	defer tree.Close()

	ex := NewRustExtractor()
	res, err := ex.Extract(types.FileID(1), "main.rs", []byte(rustSample), tree)
	require.NoError(t, err)

	var names []string
	for _, n := range res.Nodes {
		names = append(names, n.Name)
	}
	assert.Contains(t, names, "Greeter")
	assert.Contains(t, names, "greet")
	assert.Contains(t, names, "main")
	assert.Contains(t, names, "std::collections::HashMap")

	var greetNode, useNode *types.CodeNode
	for i := range res.Nodes {
		switch {
		case res.Nodes[i].Name == "greet":
			greetNode = &res.Nodes[i]
		case res.Nodes[i].Kind == types.NodeKindImport:
			useNode = &res.Nodes[i]
		}
	}
	require.NotNil(t, greetNode)
	require.NotNil(t, useNode)
	assert.Equal(t, "Greeter", greetNode.Metadata["receiver"])
	assert.Equal(t, "true", greetNode.Metadata["exported"])
	assert.Equal(t, "true", useNode.Metadata["stdlib"])

	var importEdges int
	for _, e := range res.Edges {
		if e.Kind == types.EdgeKindImports {
			importEdges++
		}
	}
	assert.Equal(t, 1, importEdges)
}

func TestRustExtractor_Module(t *testing.T) {
	src := `mod inner {
    pub fn helper() -> i32 { 1 }
}
`
	tree := parseRust(t, src)
	defer tree.Close()

	ex := NewRustExtractor()
	res, err := ex.Extract(types.FileID(1), "lib.rs", []byte(src), tree)
	require.NoError(t, err)

	var helper *types.CodeNode
	for i := range res.Nodes {
		if res.Nodes[i].Name == "helper" {
			helper = &res.Nodes[i]
		}
	}
	require.NotNil(t, helper)
	assert.Equal(t, "inner", helper.EnclosingPath)
}
