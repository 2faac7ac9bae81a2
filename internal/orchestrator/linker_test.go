package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codegraph/internal/types"
)

func TestLink_ResolvesQualifiedName(t *testing.T) {
	callee := types.CodeNode{ID: types.NewNodeId(), Name: "Helper", EnclosingPath: "pkg", Kind: types.NodeKindFunction}
	nodes := []types.CodeNode{callee}
	edges := []types.EdgeRelationship{
		{From: types.NewNodeId(), To: types.SymbolicRef("pkg.Helper"), Kind: types.EdgeKindCalls},
	}

	Link(nodes, edges)

	require.True(t, edges[0].To.Resolved())
	assert.Equal(t, callee.ID, edges[0].ToID)
}

func TestLink_ResolvesUniqueShortName(t *testing.T) {
	callee := types.CodeNode{ID: types.NewNodeId(), Name: "Helper", EnclosingPath: "pkg", Kind: types.NodeKindFunction}
	nodes := []types.CodeNode{callee}
	edges := []types.EdgeRelationship{
		{From: types.NewNodeId(), To: types.SymbolicRef("Helper"), Kind: types.EdgeKindCalls},
	}

	Link(nodes, edges)

	require.True(t, edges[0].To.Resolved())
	assert.Equal(t, callee.ID, edges[0].ToID)
}

func TestLink_AmbiguousShortNameIsUnresolved(t *testing.T) {
	a := types.CodeNode{ID: types.NewNodeId(), Name: "Helper", EnclosingPath: "pkg1", Kind: types.NodeKindFunction}
	b := types.CodeNode{ID: types.NewNodeId(), Name: "Helper", EnclosingPath: "pkg2", Kind: types.NodeKindFunction}
	nodes := []types.CodeNode{a, b}
	edges := []types.EdgeRelationship{
		{From: types.NewNodeId(), To: types.SymbolicRef("Helper"), Kind: types.EdgeKindCalls},
	}

	Link(nodes, edges)

	assert.False(t, edges[0].To.Resolved())
	assert.Equal(t, "ambiguous", edges[0].Metadata["reason"])
}

func TestLink_NotFoundIsUnresolved(t *testing.T) {
	edges := []types.EdgeRelationship{
		{From: types.NewNodeId(), To: types.SymbolicRef("nothing.Here"), Kind: types.EdgeKindCalls},
	}

	Link(nil, edges)

	assert.False(t, edges[0].To.Resolved())
	assert.Equal(t, "not_found", edges[0].Metadata["reason"])
}
