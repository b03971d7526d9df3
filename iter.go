package shadowmap

import "iter"

// Range calls fn for each published entry without locking. It is not a
// snapshot: entries published or unpublished while the iteration runs may
// or may not be visited. fn returning false stops the iteration.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	m.shadow.rangeEntries(func(k K, p *V) bool {
		return fn(k, *p)
	})
}

// All returns a lock-free iterator over the published entries. Each call
// produces an independent single-use sequence with Range semantics.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		m.shadow.rangeEntries(func(k K, p *V) bool {
			return yield(k, *p)
		})
	}
}

// Keys returns a lock-free iterator over the published keys.
func (m *Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		m.shadow.rangeEntries(func(k K, _ *V) bool {
			return yield(k)
		})
	}
}

// Values returns a lock-free iterator over the published values.
func (m *Map[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		m.shadow.rangeEntries(func(_ K, p *V) bool {
			return yield(*p)
		})
	}
}

// ToMap copies the published entries into a plain map.
func (m *Map[K, V]) ToMap() map[K]V {
	out := make(map[K]V, m.Len())
	m.Range(func(k K, v V) bool {
		out[k] = v
		return true
	})
	return out
}
