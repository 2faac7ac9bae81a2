// Package semcache implements the semantic cache (C1): a bounded,
// content-hash-keyed cache of extraction results that survives cosmetic
// edits (whitespace, comments) by hashing only a declaration-level
// projection of each file's source.
package semcache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/standardbeagle/codegraph/internal/extract"
	"github.com/standardbeagle/codegraph/internal/types"
)

// Entry is what Cache stores per semantic hash: the extraction result plus
// the bookkeeping needed to report stats.
type Entry struct {
	Result    *extract.Result
	Hash      string
	CreatedAt time.Time
}

// Stats mirrors the spec's stats() contract.
type Stats struct {
	Hits        int64
	Misses      int64
	HitRate     float64
	AvgLookupNs int64
	Entries     int
	MaxEntries  int
}

// Cache is the bounded LRU semantic cache, keyed by "path\x1flanguage\x1fhash".
type Cache struct {
	mu    sync.Mutex
	lru   *lru.Cache[string, *Entry]
	limit int

	hits, misses   atomic.Int64
	lookupNsTotal  atomic.Int64
	lookupNsCount  atomic.Int64
}

// New builds a Cache bounded to maxEntries.
func New(maxEntries int) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = 400
	}
	l, err := lru.New[string, *Entry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l, limit: maxEntries}, nil
}

// Get looks up the cached extraction result for content under lang, keyed
// by the content's semantic hash. Returns (nil, false) on a miss; never
// returns an error — a hashing or lookup failure degrades to a miss.
func (c *Cache) Get(path string, lang types.Language, content []byte) (*extract.Result, bool) {
	start := time.Now()
	defer c.recordLookup(start)

	hash := SemanticHash(lang, content)
	key := cacheKey(path, lang, hash)

	c.mu.Lock()
	entry, ok := c.lru.Get(key)
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return entry.Result, true
}

// Put stores result keyed by content's current semantic hash, evicting the
// LRU entry if the cache is at capacity.
func (c *Cache) Put(path string, lang types.Language, content []byte, result *extract.Result) {
	hash := SemanticHash(lang, content)
	key := cacheKey(path, lang, hash)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, &Entry{Result: result, Hash: hash, CreatedAt: time.Now()})
}

// Clear empties the cache and resets hit/miss counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.lru.Purge()
	c.mu.Unlock()
	c.hits.Store(0)
	c.misses.Store(0)
	c.lookupNsTotal.Store(0)
	c.lookupNsCount.Store(0)
}

// Stats reports the spec's {hits, misses, hit_rate, avg_lookup_ns, entries,
// max_entries} tuple.
func (c *Cache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	var avgNs int64
	if n := c.lookupNsCount.Load(); n > 0 {
		avgNs = c.lookupNsTotal.Load() / n
	}

	c.mu.Lock()
	entries := c.lru.Len()
	c.mu.Unlock()

	return Stats{
		Hits:        hits,
		Misses:      misses,
		HitRate:     hitRate,
		AvgLookupNs: avgNs,
		Entries:     entries,
		MaxEntries:  c.limit,
	}
}

func (c *Cache) recordLookup(start time.Time) {
	c.lookupNsTotal.Add(time.Since(start).Nanoseconds())
	c.lookupNsCount.Add(1)
}

func cacheKey(path string, lang types.Language, hash string) string {
	return path + "\x1f" + string(lang) + "\x1f" + hash
}

// retainedPrefixes is the per-language line-prefix projection table from
// spec §6: only lines beginning with one of these prefixes contribute to
// the semantic hash, each reduced to its first two tokens, so
// whitespace/comment-only edits never change it.
var retainedPrefixes = map[types.Language][]string{
	types.LanguageRust:       {"fn", "pub fn", "struct", "trait", "impl", "use", "mod"},
	types.LanguageGo:         {"func", "type", "import", "package"},
	types.LanguageTypeScript: {"function", "class", "interface", "import", "export"},
	types.LanguageJavaScript: {"function", "class", "interface", "import", "export"},
	types.LanguagePython:     {"def", "class", "import", "from"},
}

// SemanticHash computes the spec §4.1/§6 semantic hash: the language's
// declaration-line projection, joined with a unit separator (a non-source
// byte) and hashed with SHA-256.
func SemanticHash(lang types.Language, content []byte) string {
	projection := project(lang, content)
	sum := sha256.Sum256([]byte(projection))
	return hex.EncodeToString(sum[:])
}

func project(lang types.Language, content []byte) string {
	lines := strings.Split(string(content), "\n")
	prefixes, known := retainedPrefixes[lang]

	var kept []string
	if !known {
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			kept = append(kept, firstTwoTokens(trimmed))
			if len(kept) == 100 {
				break
			}
		}
		return strings.Join(kept, "\x1f")
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if matchesPrefix(trimmed, prefixes) {
			kept = append(kept, firstTwoTokens(trimmed))
		}
	}
	return strings.Join(kept, "\x1f")
}

// firstTwoTokens keeps only the first two whitespace-delimited tokens of a
// qualifying line (spec's retained-prefix projection), so internal
// whitespace later in the line never perturbs the semantic hash.
func firstTwoTokens(line string) string {
	fields := strings.Fields(line)
	if len(fields) > 2 {
		fields = fields[:2]
	}
	return strings.Join(fields, " ")
}

// DeclarationLines returns the retained declaration-line projection for
// content under lang, split back into individual lines. The differential
// driver (internal/parsing) uses this to classify a changed byte range
// without keeping its own copy of the per-language prefix table.
func DeclarationLines(lang types.Language, content []byte) []string {
	projected := project(lang, content)
	if projected == "" {
		return nil
	}
	return strings.Split(projected, "\x1f")
}

func matchesPrefix(line string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if line == prefix || strings.HasPrefix(line, prefix+" ") || strings.HasPrefix(line, prefix+"(") {
			return true
		}
	}
	return false
}
