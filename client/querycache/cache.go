// Package querycache keeps the results of API queries on the client side.
//
// Entries are invalidated by key prefix. An invalidated entry keeps its value, marked stale,
// until the next fetch replaces it, so views can keep showing it meanwhile.
package querycache

import (
	"sort"
	"strings"
	"sync"
)

type entry struct {
	value interface{}
	stale bool
}

// Cache is safe for concurrent use. The zero value is not usable, use New.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	gen     uint64
}

func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Get returns the value under key, whether it exists and whether it is stale.
func (c *Cache) Get(key string) (value interface{}, ok, stale bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.value, ok, e.stale
}

// Set stores a fresh value under key.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	c.entries[key] = entry{value: value}
	c.mu.Unlock()
}

// Generation changes on every Clear. Fetchers capture it before a request and store the
// response with SetIfGeneration, so that responses of a previous user never land in the cache.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// SetIfGeneration stores value only if the cache was not cleared since gen was read.
func (c *Cache) SetIfGeneration(key string, value interface{}, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.entries[key] = entry{value: value}
	return true
}

// Snapshot is the state of one key at a point in time, absence included.
type Snapshot struct {
	key     string
	value   interface{}
	present bool
	stale   bool
	gen     uint64
}

func (s Snapshot) Key() string        { return s.key }
func (s Snapshot) Value() interface{} { return s.value }
func (s Snapshot) Present() bool      { return s.present }

// Snapshot captures the current state of key.
func (c *Cache) Snapshot(key string) Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot(key)
}

func (c *Cache) snapshot(key string) Snapshot {
	e, ok := c.entries[key]
	return Snapshot{key: key, value: e.value, present: ok, stale: e.stale, gen: c.gen}
}

// Swap replaces the value under key by fn(previous value) and returns the previous state.
// fn is not called, and nothing changes, when key is absent.
func (c *Cache) Swap(key string, fn func(prev interface{}) interface{}) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.snapshot(key)
	if snap.present {
		c.entries[key] = entry{value: fn(snap.value)}
	}
	return snap
}

// Restore puts key back in the exact state captured by s: removed if it was absent.
// Snapshots taken before a Clear are not restored; Restore reports whether s was.
func (c *Cache) Restore(s Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != s.gen {
		return false
	}
	if !s.present {
		delete(c.entries, s.key)
		return true
	}
	c.entries[s.key] = entry{value: s.value, stale: s.stale}
	return true
}

// Invalidate marks every entry whose key starts with prefix as stale and returns how many were.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if strings.HasPrefix(k, prefix) {
			e.stale = true
			c.entries[k] = e
			n++
		}
	}
	return n
}

// MarkStale marks the entry under key, and only that one, as stale.
func (c *Cache) MarkStale(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if ok {
		e.stale = true
		c.entries[key] = e
	}
	return ok
}

func (c *Cache) Remove(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops every entry. It is called on every auth transition.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.gen++
	c.mu.Unlock()
}

// Keys returns the cached keys, sorted.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Load returns the value under key as a T. ok is false when key is absent or holds another type.
func Load[T any](c *Cache, key string) (value T, ok, stale bool) {
	v, found, stale := c.Get(key)
	if !found {
		return value, false, false
	}
	value, ok = v.(T)
	return value, ok, stale
}
