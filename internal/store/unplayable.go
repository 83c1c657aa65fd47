// Package store provides in-memory caches backing track resolution: a
// Bloom-filter-fronted store of sources known to be unplayable and a TTL'd
// cache of search results.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// UnplayableStore is a thread-safe set of source URLs that recently failed
// resolution. The Bloom filter answers the common "never seen" case without
// touching the map; the LRU bounds memory by evicting the oldest entries.
type UnplayableStore struct {
	sources                map[string]struct{}
	bloom                  *bloom.BloomFilter
	lru                    *lru.Cache[string, struct{}]
	mutex                  sync.RWMutex
	maxSources             int
	bloomFalsePositiveRate float64
}

// NewUnplayableStore creates a store with the specified capacity and Bloom
// false positive rate.
func NewUnplayableStore(maxSources int, bloomFalsePositiveRate float64) *UnplayableStore {
	lruCache, _ := lru.New[string, struct{}](maxSources)

	if maxSources < 0 || maxSources > int(^uint(0)>>1) {
		panic("maxSources value out of range for uint conversion")
	}
	bloomFilter := bloom.NewWithEstimates(uint(maxSources), bloomFalsePositiveRate)

	return &UnplayableStore{
		sources:                make(map[string]struct{}),
		bloom:                  bloomFilter,
		lru:                    lruCache,
		maxSources:             maxSources,
		bloomFalsePositiveRate: bloomFalsePositiveRate,
	}
}

// Has checks if a source URL is marked unplayable.
func (us *UnplayableStore) Has(sourceURL string) bool {
	us.mutex.RLock()
	defer us.mutex.RUnlock()

	if !us.bloom.TestString(sourceURL) {
		return false
	}

	_, exists := us.sources[sourceURL]
	return exists
}

// Mark records a source URL as unplayable.
func (us *UnplayableStore) Mark(sourceURL string) {
	us.mutex.Lock()
	defer us.mutex.Unlock()

	if _, exists := us.sources[sourceURL]; exists {
		return
	}

	us.sources[sourceURL] = struct{}{}
	us.bloom.AddString(sourceURL)
	us.lru.Add(sourceURL, struct{}{})

	if len(us.sources) > us.maxSources {
		us.evictOldest()
	}
}

// Unmark removes a source URL, typically after it resolved successfully
// again.
func (us *UnplayableStore) Unmark(sourceURL string) {
	us.mutex.Lock()
	defer us.mutex.Unlock()

	if _, exists := us.sources[sourceURL]; !exists {
		return
	}

	delete(us.sources, sourceURL)
	us.lru.Remove(sourceURL)
	// The bloom filter does not support removal; a stale positive only costs
	// one extra map lookup.
}

// Size returns the number of sources currently marked.
func (us *UnplayableStore) Size() int {
	us.mutex.RLock()
	defer us.mutex.RUnlock()
	return len(us.sources)
}

// Clear removes every marked source.
func (us *UnplayableStore) Clear() {
	us.mutex.Lock()
	defer us.mutex.Unlock()

	us.sources = make(map[string]struct{})
	if us.maxSources < 0 || us.maxSources > int(^uint(0)>>1) {
		panic("maxSources value out of range for uint conversion")
	}
	us.bloom = bloom.NewWithEstimates(uint(us.maxSources), us.bloomFalsePositiveRate)
	us.lru.Purge()
}

func (us *UnplayableStore) evictOldest() {
	if us.lru.Len() == 0 {
		return
	}

	oldestKey, _, ok := us.lru.GetOldest()
	if !ok {
		return
	}

	delete(us.sources, oldestKey)
	us.lru.Remove(oldestKey)
}
