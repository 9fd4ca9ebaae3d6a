// Package cache provides the write-back object cache shared by the index
// node layer and the record layer.
//
// Entries are keyed by their file address. Dirty entries stay in memory
// until Flush writes them through the Flusher; Trim only ever evicts clean
// entries, so the limit is a soft target rather than a hard bound.
package cache

import (
	"errors"
	"sort"
)

// Cache errors.
var (
	ErrNotCached = errors.New("entry not cached")
	ErrNoLoader  = errors.New("cache has no loader")
)

// Loader reads the object stored at addr.
type Loader[V any] func(addr uint64) (V, error)

// Flusher writes a dirty object back to addr.
type Flusher[V any] func(addr uint64, v V) error

type entry[V any] struct {
	value V
	dirty bool
}

// Cache is an LRU write-back cache. It is not safe for concurrent use;
// callers serialize access.
type Cache[V any] struct {
	limit   int
	entries map[uint64]*entry[V]
	lru     *lruList
	load    Loader[V]
	flush   Flusher[V]
	dirty   int

	hits      uint64
	misses    uint64
	evictions uint64
	flushed   uint64
}

// New creates a cache holding about limit clean entries. A limit of zero or
// less disables trimming.
func New[V any](limit int, load Loader[V], flush Flusher[V]) *Cache[V] {
	return &Cache[V]{
		limit:   limit,
		entries: make(map[uint64]*entry[V]),
		lru:     newLRUList(),
		load:    load,
		flush:   flush,
	}
}

// Get returns the object at addr, loading it on a miss.
func (c *Cache[V]) Get(addr uint64) (V, error) {
	if e, ok := c.entries[addr]; ok {
		c.hits++
		c.lru.Access(addr)
		return e.value, nil
	}

	c.misses++
	if c.load == nil {
		var zero V
		return zero, ErrNoLoader
	}

	v, err := c.load(addr)
	if err != nil {
		var zero V
		return zero, err
	}

	c.entries[addr] = &entry[V]{value: v}
	c.lru.Access(addr)
	return v, nil
}

// Peek returns the cached object without loading or touching LRU order.
func (c *Cache[V]) Peek(addr uint64) (V, bool) {
	if e, ok := c.entries[addr]; ok {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Put stores v at addr. A dirty Put is never lost to eviction.
func (c *Cache[V]) Put(addr uint64, v V, dirty bool) {
	if e, ok := c.entries[addr]; ok {
		e.value = v
		if dirty && !e.dirty {
			e.dirty = true
			c.dirty++
		}
		c.lru.Access(addr)
		return
	}

	c.entries[addr] = &entry[V]{value: v, dirty: dirty}
	if dirty {
		c.dirty++
	}
	c.lru.Access(addr)
}

// MarkDirty flags a cached entry for write-back.
func (c *Cache[V]) MarkDirty(addr uint64) error {
	e, ok := c.entries[addr]
	if !ok {
		return ErrNotCached
	}
	if !e.dirty {
		e.dirty = true
		c.dirty++
	}
	c.lru.Access(addr)
	return nil
}

// IsDirty reports whether addr is cached and dirty.
func (c *Cache[V]) IsDirty(addr uint64) bool {
	e, ok := c.entries[addr]
	return ok && e.dirty
}

// Discard drops addr without writing it back.
func (c *Cache[V]) Discard(addr uint64) {
	e, ok := c.entries[addr]
	if !ok {
		return
	}
	if e.dirty {
		c.dirty--
	}
	delete(c.entries, addr)
	c.lru.Remove(addr)
}

// Flush writes every dirty entry in ascending address order and returns the
// number written. Entries stay cached and become clean.
func (c *Cache[V]) Flush() (int, error) {
	if c.dirty == 0 {
		return 0, nil
	}

	addrs := make([]uint64, 0, c.dirty)
	for addr, e := range c.entries {
		if e.dirty {
			addrs = append(addrs, addr)
		}
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	written := 0
	for _, addr := range addrs {
		e := c.entries[addr]
		if c.flush != nil {
			if err := c.flush(addr, e.value); err != nil {
				return written, err
			}
		}
		e.dirty = false
		c.dirty--
		c.flushed++
		written++
	}

	return written, nil
}

// Trim evicts clean entries, least recently used first, until the cache is
// within its limit or only dirty entries remain.
func (c *Cache[V]) Trim() int {
	if c.limit <= 0 || len(c.entries) <= c.limit {
		return 0
	}

	evicted := 0
	for _, addr := range c.lru.LRUOrder() {
		if len(c.entries) <= c.limit {
			break
		}
		if c.entries[addr].dirty {
			continue
		}
		delete(c.entries, addr)
		c.lru.Remove(addr)
		evicted++
	}

	c.evictions += uint64(evicted)
	return evicted
}

// EvictAll drops every clean entry. Dirty entries are kept.
func (c *Cache[V]) EvictAll() int {
	evicted := 0
	for addr, e := range c.entries {
		if e.dirty {
			continue
		}
		delete(c.entries, addr)
		c.lru.Remove(addr)
		evicted++
	}
	c.evictions += uint64(evicted)
	return evicted
}

// Reset drops everything, dirty entries included.
func (c *Cache[V]) Reset() {
	c.entries = make(map[uint64]*entry[V])
	c.lru.Clear()
	c.dirty = 0
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	return len(c.entries)
}

// DirtyCount returns the number of dirty entries.
func (c *Cache[V]) DirtyCount() int {
	return c.dirty
}

// Limit returns the configured soft limit.
func (c *Cache[V]) Limit() int {
	return c.limit
}

// Stats holds cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Flushed   uint64
	Size      int
	Dirty     int
	Limit     int
}

// Stats returns current counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Flushed:   c.flushed,
		Size:      len(c.entries),
		Dirty:     c.dirty,
		Limit:     c.limit,
	}
}
