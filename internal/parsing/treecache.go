package parsing

import (
	"sync"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/codegraph/internal/extract"
	"github.com/standardbeagle/codegraph/internal/types"
)

// TreeCacheEntry is the differential driver's per-file state: the last tree
// it parsed, the content that produced it, and the extraction result that
// tree yielded. The driver holds exactly one entry per file, generalized
// from the teacher's flat parser/query cache (parser.go's per-extension
// maps) into this per-file record so a reparse can be fed the prior tree.
type TreeCacheEntry struct {
	Path        string
	Language    types.Language
	Tree        *sitter.Tree
	Content     []byte
	ContentHash string
	Result      *extract.Result
	UpdatedAt   time.Time
}

// treeCache holds one TreeCacheEntry per file path, guarded by a single
// mutex: entries are small and lookups are not a contended hot path
// compared to the parse work they gate.
type treeCache struct {
	mu      sync.Mutex
	entries map[string]*TreeCacheEntry
}

func newTreeCache() *treeCache {
	return &treeCache{entries: make(map[string]*TreeCacheEntry)}
}

func (c *treeCache) get(path string) (*TreeCacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[path]
	return e, ok
}

func (c *treeCache) put(e *TreeCacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.entries[e.Path]; ok && prev.Tree != nil && prev.Tree != e.Tree {
		prev.Tree.Close()
	}
	c.entries[e.Path] = e
}

func (c *treeCache) delete(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.entries[path]; ok {
		if prev.Tree != nil {
			prev.Tree.Close()
		}
		delete(c.entries, path)
	}
}

func (c *treeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
