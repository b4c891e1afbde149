package match

import (
	"fmt"
	"time"

	"loglens/metrics"

	"github.com/dlclark/regexp2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// approxCompiledPatternBytes is the assumed memory footprint of one compiled
// pattern, used to turn the byte-denominated cache budget into an entry
// count.
const approxCompiledPatternBytes = 4096

// PatternCache is a shared LRU of compiled regexp2 patterns. Compilation
// dominates reload cost, and rule sets reuse patterns across snapshots, so
// the cache is keyed by pattern source, flags, and timeout and survives
// rule-set swaps. It is safe for concurrent use.
type PatternCache struct {
	cache *lru.Cache[string, *regexp2.Regexp]
}

// NewPatternCache sizes the cache from a byte budget. A zero or negative
// budget still yields a small cache; callers that want no caching pass a
// nil *PatternCache instead.
func NewPatternCache(byteBudget int64) (*PatternCache, error) {
	entries := int(byteBudget / approxCompiledPatternBytes)
	if entries < 64 {
		entries = 64
	}
	cache, err := lru.New[string, *regexp2.Regexp](entries)
	if err != nil {
		return nil, fmt.Errorf("failed to create pattern cache: %w", err)
	}
	return &PatternCache{cache: cache}, nil
}

func cacheKey(pattern, flags string, timeout time.Duration) string {
	return fmt.Sprintf("%s\x00%s\x00%d", pattern, flags, timeout.Milliseconds())
}

// Get returns the cached compiled pattern, if any.
func (c *PatternCache) Get(pattern, flags string, timeout time.Duration) (*regexp2.Regexp, bool) {
	if c == nil {
		return nil, false
	}
	re, ok := c.cache.Get(cacheKey(pattern, flags, timeout))
	if ok {
		metrics.PatternCacheHits.Inc()
	} else {
		metrics.PatternCacheMisses.Inc()
	}
	return re, ok
}

// Add stores a compiled pattern.
func (c *PatternCache) Add(pattern, flags string, timeout time.Duration, re *regexp2.Regexp) {
	if c == nil {
		return
	}
	c.cache.Add(cacheKey(pattern, flags, timeout), re)
}

// Len returns the number of cached patterns.
func (c *PatternCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
