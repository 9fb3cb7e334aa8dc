// Package cache holds the selective original→synthetic mapping cache.
// Only low-cardinality data types are cached; high-cardinality types pass
// straight through to the generator, which is pure and therefore needs no
// memory to stay consistent.
package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

type Stats struct {
	Hits        int64 `json:"Hits"`
	Misses      int64 `json:"Misses"`
	Passthrough int64 `json:"Passthrough"`
	Entries     int   `json:"Entries"`
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]map[string]string // dataType → original → synthetic
	size    int
	maxSize int
	warned  bool

	// policy is fixed at construction; GetOrCreate never consults anything
	// mutable to decide whether a type is cached.
	policy map[string]bool

	group singleflight.Group

	hits        atomic.Int64
	misses      atomic.Int64
	passthrough atomic.Int64
}

// New builds a cache bounded to maxSize total entries across all types.
// policy maps data type name → cached.
func New(maxSize int, policy map[string]bool) *Cache {
	return &Cache{
		entries: map[string]map[string]string{},
		maxSize: maxSize,
		policy:  policy,
	}
}

// Cached reports the policy decision for a data type.
func (c *Cache) Cached(dataType string) bool {
	return c.policy[dataType]
}

// GetOrCreate returns the cached synthetic for (dataType, original), or
// computes, stores and returns it. For never-cached types it always calls
// compute and touches no storage. Concurrent calls for the same key share
// one compute invocation.
func (c *Cache) GetOrCreate(dataType, original string, compute func() (string, error)) (string, error) {
	if !c.policy[dataType] {
		c.passthrough.Add(1)
		return compute()
	}

	c.mu.Lock()
	if v, ok := c.entries[dataType][original]; ok {
		c.mu.Unlock()
		c.hits.Add(1)
		return v, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(dataType+"\x00"+original, func() (any, error) {
		// another flight may have inserted while this one queued
		c.mu.Lock()
		if v, ok := c.entries[dataType][original]; ok {
			c.mu.Unlock()
			c.hits.Add(1)
			return v, nil
		}
		c.mu.Unlock()

		c.misses.Add(1)
		out, err := compute()
		if err != nil {
			return "", err
		}
		c.insert(dataType, original, out)
		return out, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// insert stores a value unless the bound is reached. Evicting would break
// determinism for rows seen later in the run, so a full cache degrades to
// pass-through for new keys instead; existing entries stay authoritative.
func (c *Cache) insert(dataType, original, synthetic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxSize > 0 && c.size >= c.maxSize {
		if !c.warned {
			c.warned = true
			slog.Warn("mapping cache is full; new values will be recomputed on every row",
				"maxCacheSize", c.maxSize)
		}
		return
	}
	m := c.entries[dataType]
	if m == nil {
		m = map[string]string{}
		c.entries[dataType] = m
	}
	if _, ok := m[original]; !ok {
		m[original] = synthetic
		c.size++
	}
}

// Snapshot copies one type's entries; nil if the type has none.
func (c *Cache) Snapshot(dataType string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := c.entries[dataType]
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	entries := c.size
	c.mu.Unlock()
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Passthrough: c.passthrough.Load(),
		Entries:     entries,
	}
}
