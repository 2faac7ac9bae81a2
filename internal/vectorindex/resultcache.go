package vectorindex

import (
	"fmt"
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ResultCache returns previously computed search results for a quantized
// query fingerprint within a TTL, following the same golang-lru/v2 idiom
// internal/semcache uses for its own LRU. Disabled by default per spec
// §4.7 — correctness-sensitive callers must opt in.
type ResultCache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, cachedResult]
	ttl   time.Duration
}

type cachedResult struct {
	results   []Result
	expiresAt time.Time
	hits      int
}

// NewResultCache builds a disabled-by-default-aware cache; callers create
// one explicitly to opt in, rather than a package-level singleton existing
// for every index regardless of configuration.
func NewResultCache(maxEntries int, ttl time.Duration) (*ResultCache, error) {
	c, err := lru.New[string, cachedResult](maxEntries)
	if err != nil {
		return nil, err
	}
	return &ResultCache{cache: c, ttl: ttl}, nil
}

// Fingerprint quantizes query to 3 decimal places per coordinate and salts
// with k, per spec §4.7's cache key definition.
func Fingerprint(query []float32, k int) string {
	b := make([]byte, 0, len(query)*8+4)
	for _, x := range query {
		q := math.Round(float64(x)*1000) / 1000
		b = append(b, []byte(fmt.Sprintf("%.3f,", q))...)
	}
	return fmt.Sprintf("%s|k=%d", b, k)
}

// Get returns a cached result set for fingerprint if present and not
// expired, bumping its access count.
func (c *ResultCache) Get(fingerprint string) ([]Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache.Get(fingerprint)
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.cache.Remove(fingerprint)
		return nil, false
	}
	entry.hits++
	c.cache.Add(fingerprint, entry)
	return entry.results, true
}

// Put stores results under fingerprint with the cache's configured TTL.
func (c *ResultCache) Put(fingerprint string, results []Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(fingerprint, cachedResult{results: results, expiresAt: time.Now().Add(c.ttl)})
}

// Len reports the current entry count, eviction-adjusted.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}
