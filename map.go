// Package shadowmap provides in-memory concurrent collections built around
// a read-optimized map: writes are serialized by a mutex over an
// authoritative store, while reads go to a separately published shadow
// store and never block.
package shadowmap

import (
	"sync"
)

type (
	// Map is a concurrent map optimized for workloads where a key is
	// written once and read many times, as in caches that only grow, or
	// where concurrent writers touch disjoint keys. Reads (Get, Len,
	// Range) take no lock at all; all writes go through a single mutex.
	//
	// The map trades memory for read throughput: every entry is stored
	// twice, once in the authoritative store that writers own and once as
	// a shallow copy in a lock-free shadow store that readers use.
	// Overwriting an existing key updates only the authoritative store,
	// so readers keep seeing the value from the first insert until the
	// key is removed and inserted again. This staleness is deliberate;
	// use ShardedMap for balanced read/write workloads that need
	// read-your-writes on overwrite.
	//
	// The zero Map is empty and ready for use. A Map must not be copied
	// after first use.
	Map[K comparable, V any] struct {
		mu     sync.Mutex
		dirty  map[K]*V
		shadow shadowStore[K, V]
	}
)

// New creates an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{dirty: make(map[K]*V)}
}

// NewWithCapacity creates an empty Map with room for n entries.
func NewWithCapacity[K comparable, V any](n int) *Map[K, V] {
	m := &Map[K, V]{dirty: make(map[K]*V, n)}
	m.shadow.init(n)
	return m
}

// FromMap creates a Map holding every entry of src, as if each had been
// inserted as a new key.
func FromMap[K comparable, V any](src map[K]V) *Map[K, V] {
	m := NewWithCapacity[K, V](len(src))
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range src {
		m.storeNew(k, v)
	}
	return m
}

// storeNew inserts a key known to be absent. Caller holds mu.
func (m *Map[K, V]) storeNew(key K, value V) {
	if m.dirty == nil {
		m.dirty = make(map[K]*V)
	}
	p := &value
	m.dirty[key] = p
	// The shadow gets its own shallow copy of the value, so later
	// in-place mutation of the authoritative copy is invisible to the
	// unlocked read path.
	alias := value
	m.shadow.put(key, &alias)
}

// Set inserts or replaces the value for key and reports the previous value
// if one was present. A first insert of a key publishes the value to the
// lock-free read path; replacing an existing key updates the authoritative
// store only, leaving readers on the previously published value until the
// key is removed and inserted again.
func (m *Map[K, V]) Set(key K, value V) (prev V, replaced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.dirty[key]; ok {
		prev = *p
		*p = value
		return prev, true
	}
	m.storeNew(key, value)
	return prev, false
}

// Remove deletes key and returns the authoritative value that was stored.
// The shadow copy is unpublished in the same critical section.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.dirty[key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(m.dirty, key)
	m.shadow.delete(key)
	return *p, true
}

// Get returns the value published for key. It takes no lock. The result
// may lag a concurrent Set of an existing key; see the Map documentation.
func (m *Map[K, V]) Get(key K) (V, bool) {
	if p, ok := m.shadow.get(key); ok {
		return *p, true
	}
	var zero V
	return zero, false
}

// Has reports whether key is published, without locking.
func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.shadow.get(key)
	return ok
}

// Len returns the number of published entries, without locking. During a
// concurrent first insert it can miss the entry being published; it never
// counts a key that was not inserted.
func (m *Map[K, V]) Len() int {
	return int(m.shadow.count.Load())
}

// IsEmpty reports whether the map holds no published entries.
func (m *Map[K, V]) IsEmpty() bool {
	return m.Len() == 0
}

// Clear removes every entry from both stores.
func (m *Map[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty = make(map[K]*V)
	m.shadow.clear()
}

// ShrinkToFit rebuilds both stores at their current size, releasing
// backing capacity left over from earlier growth.
func (m *Map[K, V]) ShrinkToFit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	dirty := make(map[K]*V, len(m.dirty))
	for k, p := range m.dirty {
		dirty[k] = p
	}
	m.dirty = dirty
	m.shadow.shrink()
}
