package shadowmap

import "iter"

// RefMut is an exclusive handle on one authoritative value. It holds the
// map's write lock from GetMut until Unlock, so every other lock-acquiring
// operation blocks while it is live. Calling a lock-acquiring method of
// the same Map before Unlock deadlocks.
//
// Mutations through a RefMut touch only the authoritative store; the
// lock-free read path keeps serving the value published when the key was
// first inserted.
type RefMut[K comparable, V any] struct {
	m   *Map[K, V]
	key K
	val *V
}

// GetMut locks the map and returns an exclusive handle on the value for
// key. If the key is absent the lock is released immediately and ok is
// false. On success the caller must call Unlock on the returned handle.
func (m *Map[K, V]) GetMut(key K) (r *RefMut[K, V], ok bool) {
	m.mu.Lock()
	p, ok := m.dirty[key]
	if !ok {
		m.mu.Unlock()
		return nil, false
	}
	return &RefMut[K, V]{m: m, key: key, val: p}, true
}

// Key returns the key the handle was obtained for.
func (r *RefMut[K, V]) Key() K {
	return r.key
}

// Value returns a pointer to the authoritative value. The pointer is valid
// until Unlock.
func (r *RefMut[K, V]) Value() *V {
	return r.val
}

// Set replaces the authoritative value.
func (r *RefMut[K, V]) Set(v V) {
	*r.val = v
}

// Unlock releases the map's write lock. The handle must not be used after.
func (r *RefMut[K, V]) Unlock() {
	r.m.mu.Unlock()
}

// RangeMut calls fn with each key and a pointer to its authoritative
// value, holding the write lock for the whole iteration. fn returning
// false stops the iteration. fn must not call lock-acquiring methods of
// the same Map.
func (m *Map[K, V]) RangeMut(fn func(key K, val *V) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, p := range m.dirty {
		if !fn(k, p) {
			return
		}
	}
}

// AllMut returns an iterator over keys and pointers to authoritative
// values. The write lock is held from the first yielded pair until the
// loop ends. The usage contract of RangeMut applies.
func (m *Map[K, V]) AllMut() iter.Seq2[K, *V] {
	return func(yield func(K, *V) bool) {
		m.mu.Lock()
		defer m.mu.Unlock()
		for k, p := range m.dirty {
			if !yield(k, p) {
				return
			}
		}
	}
}
