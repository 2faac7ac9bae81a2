package parsing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codegraph/internal/extract"
	"github.com/standardbeagle/codegraph/internal/types"
)

func nodeNames(result *extract.Result) []string {
	var names []string
	for _, n := range result.Nodes {
		if !n.Tombstoned {
			names = append(names, n.Name)
		}
	}
	return names
}

func findNode(result *extract.Result, name string) *types.CodeNode {
	for i := range result.Nodes {
		if result.Nodes[i].Name == name {
			return &result.Nodes[i]
		}
	}
	return nil
}

func TestDriver_FirstEncounterIsUnseen(t *testing.T) {
	d := NewDriver(extract.NewRegistry())
	src := []byte("package main\n\nfunc Foo() {}\n")

	result, summary, err := d.Process(1, "a.go", types.LanguageGo, src)
	require.NoError(t, err)
	assert.Equal(t, StateUnseen, summary.State)
	assert.Contains(t, nodeNames(result), "Foo")
}

func TestDriver_UnchangedContentHitsCache(t *testing.T) {
	d := NewDriver(extract.NewRegistry())
	src := []byte("package main\n\nfunc Foo() {}\n")

	_, _, err := d.Process(1, "a.go", types.LanguageGo, src)
	require.NoError(t, err)

	_, summary, err := d.Process(1, "a.go", types.LanguageGo, src)
	require.NoError(t, err)
	assert.Equal(t, StateUnchanged, summary.State)
}

func TestDriver_CosmeticEditIsNoopForStore(t *testing.T) {
	d := NewDriver(extract.NewRegistry())
	original := []byte("package main\n\nfunc Foo() {}\n")
	first, _, err := d.Process(1, "a.go", types.LanguageGo, original)
	require.NoError(t, err)
	fooID := findNode(first, "Foo").ID

	cosmetic := []byte("package main\n\n// a comment\nfunc Foo() {}\n")
	second, summary, err := d.Process(1, "a.go", types.LanguageGo, cosmetic)
	require.NoError(t, err)
	assert.Equal(t, StateChanged, summary.State)
	assert.True(t, summary.CosmeticOnly())
	assert.Equal(t, fooID, findNode(second, "Foo").ID)
}

func TestDriver_AdditionPreservesExistingIDAndAddsNew(t *testing.T) {
	d := NewDriver(extract.NewRegistry())
	original := []byte("package main\n\nfunc Foo() {}\n")
	first, _, err := d.Process(1, "a.go", types.LanguageGo, original)
	require.NoError(t, err)
	fooID := findNode(first, "Foo").ID

	withAddition := []byte("package main\n\nfunc Foo() {}\n\nfunc Bar() {}\n")
	second, summary, err := d.Process(1, "a.go", types.LanguageGo, withAddition)
	require.NoError(t, err)
	assert.Equal(t, StateChanged, summary.State)
	assert.False(t, summary.CosmeticOnly())

	assert.Equal(t, fooID, findNode(second, "Foo").ID)
	assert.NotNil(t, findNode(second, "Bar"))
	assert.NotEqual(t, types.NodeId{}, findNode(second, "Bar").ID)
}

func TestDriver_DeletionTombstonesNode(t *testing.T) {
	d := NewDriver(extract.NewRegistry())
	original := []byte("package main\n\nfunc Foo() {}\n\nfunc Bar() {}\n")
	_, _, err := d.Process(1, "a.go", types.LanguageGo, original)
	require.NoError(t, err)

	withoutBar := []byte("package main\n\nfunc Foo() {}\n")
	second, summary, err := d.Process(1, "a.go", types.LanguageGo, withoutBar)
	require.NoError(t, err)
	assert.Equal(t, StateChanged, summary.State)

	var barTombstoned bool
	for _, n := range second.Nodes {
		if n.Name == "Bar" && n.Tombstoned {
			barTombstoned = true
		}
	}
	assert.True(t, barTombstoned)
}

func TestDriver_DependencyEditReplacesImportNode(t *testing.T) {
	d := NewDriver(extract.NewRegistry())
	original := []byte("package main\n\nimport \"fmt\"\n\nfunc Foo() { fmt.Println(\"x\") }\n")
	_, _, err := d.Process(1, "a.go", types.LanguageGo, original)
	require.NoError(t, err)

	changed := []byte("package main\n\nimport \"strings\"\n\nfunc Foo() { strings.ToUpper(\"x\") }\n")
	result, summary, err := d.Process(1, "a.go", types.LanguageGo, changed)
	require.NoError(t, err)
	assert.Equal(t, StateChanged, summary.State)
	assert.Contains(t, nodeNames(result), "strings")
}

func TestComputeEdit_SingleDeclarationAppend(t *testing.T) {
	old := []byte("package main\n\nfunc Foo() {}\n")
	next := []byte("package main\n\nfunc Foo() {}\n\nfunc Bar() {}\n")
	edit := computeEdit(old, next)
	assert.Equal(t, uint(len(old)), edit.StartByte)
	assert.Equal(t, uint(len(old)), edit.OldEndByte)
	assert.Equal(t, uint(len(next)), edit.NewEndByte)
}
