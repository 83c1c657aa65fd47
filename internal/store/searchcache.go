package store

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"groovebot/internal/player"
)

// SearchCache memoizes search results per normalized query. Entries expire so
// freshly uploaded videos eventually become searchable.
type SearchCache struct {
	cache *expirable.LRU[string, []player.Track]
}

// NewSearchCache creates a cache holding up to size queries for ttl each.
func NewSearchCache(size int, ttl time.Duration) *SearchCache {
	return &SearchCache{
		cache: expirable.NewLRU[string, []player.Track](size, nil, ttl),
	}
}

// Get returns the cached results for the query.
func (sc *SearchCache) Get(query string) ([]player.Track, bool) {
	return sc.cache.Get(cacheKey(query))
}

// Put stores results for the query. Empty result sets are not cached so a
// transient upstream hiccup does not stick for the full TTL.
func (sc *SearchCache) Put(query string, tracks []player.Track) {
	if len(tracks) == 0 {
		return
	}
	sc.cache.Add(cacheKey(query), tracks)
}

// Len returns the number of cached queries.
func (sc *SearchCache) Len() int {
	return sc.cache.Len()
}

// Purge drops every cached query.
func (sc *SearchCache) Purge() {
	sc.cache.Purge()
}

func cacheKey(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}
