// SPDX-License-Identifier: Apache-2.0

package query

import (
	"sync/atomic"

	synclib "github.com/xataio/pgbind/internal/sync"
)

// ParseCache memoises parsed queries by query text and encoding. Entries are
// never evicted: the cache grows with the number of distinct query texts the
// process issues, which is bounded by the queries written in the code using
// it. A ParseCache is safe for concurrent use.
type ParseCache struct {
	entries *synclib.Map[cacheKey, *ParsedQuery]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

type cacheKey struct {
	query    string
	encoding string
}

type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

var defaultParseCache = NewParseCache()

// DefaultParseCache returns the process wide cache used by sessions created
// without WithParseCache.
func DefaultParseCache() *ParseCache {
	return defaultParseCache
}

func NewParseCache() *ParseCache {
	return &ParseCache{
		entries: synclib.NewMap[cacheKey, *ParsedQuery](),
	}
}

// Parse returns the parsed version of the query, computing it on first use.
// Queries failing to parse are not cached.
func (c *ParseCache) Parse(query []byte, codec *Codec) (*ParsedQuery, error) {
	key := cacheKey{query: string(query), encoding: codec.Name()}
	if pq, found := c.entries.Get(key); found {
		c.hits.Add(1)
		return pq, nil
	}

	c.misses.Add(1)
	pq, err := parseQuery(query, codec)
	if err != nil {
		return nil, err
	}

	// another goroutine might have parsed the same query meanwhile, keep the
	// first value stored so all callers share it
	pq, _ = c.entries.GetOrSet(key, pq)
	return pq, nil
}

func (c *ParseCache) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.entries.Len(),
	}
}
