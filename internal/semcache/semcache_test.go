package semcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codegraph/internal/extract"
	"github.com/standardbeagle/codegraph/internal/types"
)

func TestSemanticHash_IgnoresWhitespaceAndComments(t *testing.T) {
	a := []byte("package main\n\nfunc Foo() {}\n")
	b := []byte("package main\n\n// a comment\nfunc   Foo() {}\n\n\n")
	assert.Equal(t, SemanticHash(types.LanguageGo, a), SemanticHash(types.LanguageGo, b))
}

func TestSemanticHash_ChangesOnDeclarationEdit(t *testing.T) {
	a := []byte("package main\n\nfunc Foo() {}\n")
	b := []byte("package main\n\nfunc Bar() {}\n")
	assert.NotEqual(t, SemanticHash(types.LanguageGo, a), SemanticHash(types.LanguageGo, b))
}

func TestCache_PutGetRoundTrip(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	content := []byte("package main\n\nfunc Foo() {}\n")
	result := &extract.Result{Nodes: []types.CodeNode{{Name: "Foo"}}}

	_, ok := c.Get("a.go", types.LanguageGo, content)
	assert.False(t, ok)

	c.Put("a.go", types.LanguageGo, content, result)
	got, ok := c.Get("a.go", types.LanguageGo, content)
	require.True(t, ok)
	assert.Equal(t, "Foo", got.Nodes[0].Name)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
	assert.Equal(t, 1, stats.Entries)
}

func TestCache_CosmeticEditHitsSameEntry(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	original := []byte("package main\n\nfunc Foo() {}\n")
	c.Put("a.go", types.LanguageGo, original, &extract.Result{Nodes: []types.CodeNode{{Name: "Foo"}}})

	cosmetic := []byte("package main\n\n// comment added\nfunc Foo() {}\n")
	got, ok := c.Get("a.go", types.LanguageGo, cosmetic)
	require.True(t, ok)
	assert.Equal(t, "Foo", got.Nodes[0].Name)
}

func TestCache_Eviction(t *testing.T) {
	c, err := New(1)
	require.NoError(t, err)

	c.Put("a.go", types.LanguageGo, []byte("package main\nfunc A() {}\n"), &extract.Result{})
	c.Put("b.go", types.LanguageGo, []byte("package main\nfunc B() {}\n"), &extract.Result{})

	_, ok := c.Get("a.go", types.LanguageGo, []byte("package main\nfunc A() {}\n"))
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
}

func TestCache_Clear(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)
	c.Put("a.go", types.LanguageGo, []byte("package main\nfunc A() {}\n"), &extract.Result{})
	c.Clear()
	stats := c.Stats()
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, int64(0), stats.Hits)
}
