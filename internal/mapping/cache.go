package mapping

import (
	"sync"

	"github.com/dchest/siphash"
)

// cacheShardCount spreads each descriptor cache's entries across several
// independently-locked shards, so concurrent remap workers reading/writing
// different descriptors rarely contend on the same mutex (spec §4.5/§5:
// "descriptor caches are safe for concurrent read/write with their own
// internal synchronization").
const cacheShardCount = 32

// sipKey0/sipKey1 are fixed, arbitrary: shard assignment only needs to be
// stable within a process, not cryptographically unpredictable.
const (
	sipKey0 uint64 = 0x9ae16a3b2f90404f
	sipKey1 uint64 = 0xc2b2ae3d27d4eb4f
)

// cacheEntry records whether a descriptor needed rewriting at all, so a
// "no change" answer is itself cached and need not be recomputed (spec §9:
// "Entries carry the 'no rewrite needed' answer as well as the rewritten
// form").
type cacheEntry struct {
	value   string
	changed bool
}

// descriptorCache is a bounded, FIFO-evicting, sharded string->cacheEntry
// cache. It stands in for the original's soft-reference Guava cache: exact
// eviction policy is unspecified by the spec ("soft-evictable... cache
// entries may evict under memory pressure; correctness must not depend on
// hit rate"), so FIFO-per-shard satisfies the same contract without
// needing a true LRU.
type descriptorCache struct {
	shards           [cacheShardCount]cacheShard
	capacityPerShard int
}

type cacheShard struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	order   []string
}

func newDescriptorCache(totalCapacity int) *descriptorCache {
	perShard := totalCapacity / cacheShardCount
	if perShard < 1 {
		perShard = 1
	}
	c := &descriptorCache{capacityPerShard: perShard}
	for i := range c.shards {
		c.shards[i].entries = make(map[string]cacheEntry)
	}
	return c
}

func (c *descriptorCache) shardFor(key string) *cacheShard {
	h := siphash.Hash(sipKey0, sipKey1, []byte(key))
	return &c.shards[h%uint64(cacheShardCount)]
}

func (c *descriptorCache) get(key string) (cacheEntry, bool) {
	shard := c.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	e, ok := shard.entries[key]
	return e, ok
}

func (c *descriptorCache) put(key string, entry cacheEntry) {
	shard := c.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if _, exists := shard.entries[key]; !exists {
		if len(shard.order) >= c.capacityPerShard {
			evict := shard.order[0]
			shard.order = shard.order[1:]
			delete(shard.entries, evict)
		}
		shard.order = append(shard.order, key)
	}
	shard.entries[key] = entry
}
