package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codegraph/internal/types"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscover_FiltersByExtensionAndSkipsVendorDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "lib.rs", "fn main() {}\n")
	writeFile(t, dir, "README.md", "# hi\n")
	writeFile(t, dir, "vendor/dep.go", "package dep\n")
	writeFile(t, dir, "node_modules/pkg/index.js", "module.exports = {}\n")

	tasks, err := Discover(dir, nil, nil, nil)
	require.NoError(t, err)

	var paths []string
	for _, ta := range tasks {
		rel, _ := filepath.Rel(dir, ta.Path)
		paths = append(paths, filepath.ToSlash(rel))
	}
	assert.Contains(t, paths, "main.go")
	assert.Contains(t, paths, "lib.rs")
	assert.NotContains(t, paths, "README.md")
	assert.NotContains(t, paths, "vendor/dep.go")
	assert.NotContains(t, paths, "node_modules/pkg/index.js")
}

func TestDiscover_RespectsLanguagesEnabled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "lib.rs", "fn main() {}\n")

	tasks, err := Discover(dir, nil, nil, []string{"go"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, types.LanguageGo, tasks[0].Language)
}

func TestDiscover_ExcludeGlobSkipsMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "main_test.go", "package main\n")

	tasks, err := Discover(dir, nil, []string{"*_test.go"}, nil)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "main.go", filepath.Base(tasks[0].Path))
}
