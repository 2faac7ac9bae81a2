package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeId_Unique(t *testing.T) {
	a := NewNodeId()
	b := NewNodeId()
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsZero())
}

func TestLocation_Validate(t *testing.T) {
	tests := []struct {
		name    string
		loc     Location
		wantErr bool
	}{
		{"valid", Location{File: "a.go", Line: 1, EndLine: 5}, false},
		{"missing file", Location{Line: 1}, true},
		{"end before start", Location{File: "a.go", Line: 10, EndLine: 2}, true},
		{"no end line is fine", Location{File: "a.go", Line: 10}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.loc.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCodeNode_Validate(t *testing.T) {
	n := &CodeNode{Location: Location{File: "a.go", Line: 1}}
	require.Error(t, n.Validate(), "zero id must fail validation")

	n.ID = NewNodeId()
	require.NoError(t, n.Validate())
}

func TestCodeNode_IdentityKey(t *testing.T) {
	a := &CodeNode{EnclosingPath: "pkg/foo", Kind: NodeKindFunction, Name: "Bar"}
	b := &CodeNode{EnclosingPath: "pkg/foo", Kind: NodeKindFunction, Name: "Bar"}
	c := &CodeNode{EnclosingPath: "pkg/foo", Kind: NodeKindMethod, Name: "Bar"}

	assert.Equal(t, a.IdentityKey(), b.IdentityKey())
	assert.NotEqual(t, a.IdentityKey(), c.IdentityKey())
}

func TestNodeRef(t *testing.T) {
	id := NewNodeId()
	resolved := ResolvedRef(id)
	assert.True(t, resolved.Resolved())
	assert.Equal(t, id, resolved.NodeID())

	symbolic := SymbolicRef("bar")
	assert.False(t, symbolic.Resolved())
	assert.Equal(t, "bar", symbolic.Symbol())
}

func TestEdgeRelationship_Unresolved(t *testing.T) {
	e := &EdgeRelationship{To: SymbolicRef("bar")}
	assert.False(t, e.IsUnresolved())

	e.Unresolved("ambiguous")
	assert.True(t, e.IsUnresolved())
	assert.Equal(t, "ambiguous", e.Metadata["reason"])
}

func TestEdgeRelationship_ResolvedNeverUnresolved(t *testing.T) {
	e := &EdgeRelationship{To: ResolvedRef(NewNodeId())}
	e.Unresolved("should not matter")
	assert.False(t, e.IsUnresolved())
}

func TestEmbedding_Validate(t *testing.T) {
	e := &Embedding{Dim: 3, Vector: []float32{1, 2, 3}}
	require.NoError(t, e.Validate())

	e.Vector = []float32{1, 2}
	require.Error(t, e.Validate())
}

func TestNodeKind_String(t *testing.T) {
	assert.Equal(t, "function", NodeKindFunction.String())
	assert.Equal(t, "unknown", NodeKind(255).String())
}

func TestEdgeKind_String(t *testing.T) {
	assert.Equal(t, "calls", EdgeKindCalls.String())
	assert.Equal(t, "unknown", EdgeKind(255).String())
}
