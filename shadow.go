package shadowmap

import (
	"hash/maphash"
	"sync/atomic"
)

const (
	minBucketCount = 16 // power of 2
	// average chain length that triggers a table grow
	maxLoadFactor = 2
)

// shadowEntry is an immutable node in a shadow bucket chain. Once a node is
// published through a bucket pointer it is never written again; removal and
// resize build fresh nodes instead.
type shadowEntry[K comparable, V any] struct {
	hash uint64
	key  K
	val  *V
	next *shadowEntry[K, V]
}

type shadowTable[K comparable, V any] struct {
	buckets []atomic.Pointer[shadowEntry[K, V]]
	mask    uint64
}

// shadowStore is the lock-free-readable side of a Map. All mutation happens
// on a single goroutine at a time (the caller holds the Map mutex), so the
// writer side needs no CAS loops: plain builds followed by atomic publishes
// are enough. Readers only ever perform atomic loads of the table pointer
// and of bucket heads, and then walk chains that can no longer change.
type shadowStore[K comparable, V any] struct {
	table atomic.Pointer[shadowTable[K, V]]
	seed  maphash.Seed
	count atomic.Int64
}

func newShadowTable[K comparable, V any](buckets int) *shadowTable[K, V] {
	if buckets < minBucketCount {
		buckets = minBucketCount
	}
	// round up to a power of 2
	n := minBucketCount
	for n < buckets {
		n <<= 1
	}
	return &shadowTable[K, V]{
		buckets: make([]atomic.Pointer[shadowEntry[K, V]], n),
		mask:    uint64(n - 1),
	}
}

// init prepares the seed and first table. Caller holds the Map mutex. The
// seed is written before the table pointer is published, so a reader that
// observes a non-nil table also observes the seed.
func (s *shadowStore[K, V]) init(capacity int) *shadowTable[K, V] {
	if t := s.table.Load(); t != nil {
		return t
	}
	s.seed = maphash.MakeSeed()
	t := newShadowTable[K, V](capacity / maxLoadFactor)
	s.table.Store(t)
	return t
}

// get looks the key up without any locking.
func (s *shadowStore[K, V]) get(key K) (*V, bool) {
	t := s.table.Load()
	if t == nil {
		return nil, false
	}
	h := maphash.Comparable(s.seed, key)
	for e := t.buckets[h&t.mask].Load(); e != nil; e = e.next {
		if e.hash == h && e.key == key {
			return e.val, true
		}
	}
	return nil, false
}

// put publishes a new key. Caller holds the Map mutex and has verified the
// key is not already present.
func (s *shadowStore[K, V]) put(key K, val *V) {
	t := s.init(minBucketCount * maxLoadFactor)
	n := s.count.Load()
	if n+1 > int64(len(t.buckets))*maxLoadFactor {
		t = s.rehash(t, len(t.buckets)*2)
	}
	h := maphash.Comparable(s.seed, key)
	b := &t.buckets[h&t.mask]
	b.Store(&shadowEntry[K, V]{hash: h, key: key, val: val, next: b.Load()})
	s.count.Add(1)
}

// delete unpublishes a key. Caller holds the Map mutex. The chain prefix up
// to the removed node is copied so that readers holding the old head keep a
// fully valid chain.
func (s *shadowStore[K, V]) delete(key K) bool {
	t := s.table.Load()
	if t == nil {
		return false
	}
	h := maphash.Comparable(s.seed, key)
	b := &t.buckets[h&t.mask]
	head := b.Load()
	found := false
	for e := head; e != nil; e = e.next {
		if e.hash == h && e.key == key {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	var newHead *shadowEntry[K, V]
	var tail **shadowEntry[K, V] = &newHead
	for e := head; e != nil; e = e.next {
		if e.hash == h && e.key == key {
			*tail = e.next
			break
		}
		cp := &shadowEntry[K, V]{hash: e.hash, key: e.key, val: e.val}
		*tail = cp
		tail = &cp.next
	}
	b.Store(newHead)
	s.count.Add(-1)
	return true
}

// rehash moves every entry into a table with the given bucket count and
// publishes it. The old table is left untouched for concurrent readers.
func (s *shadowStore[K, V]) rehash(old *shadowTable[K, V], buckets int) *shadowTable[K, V] {
	t := newShadowTable[K, V](buckets)
	for i := range old.buckets {
		for e := old.buckets[i].Load(); e != nil; e = e.next {
			b := &t.buckets[e.hash&t.mask]
			b.Store(&shadowEntry[K, V]{hash: e.hash, key: e.key, val: e.val, next: b.Load()})
		}
	}
	s.table.Store(t)
	return t
}

// clear publishes an empty minimum-size table. Caller holds the Map mutex.
func (s *shadowStore[K, V]) clear() {
	if s.table.Load() == nil {
		return
	}
	s.table.Store(newShadowTable[K, V](minBucketCount))
	s.count.Store(0)
}

// shrink rebuilds the table at the smallest size fitting the current count.
// Caller holds the Map mutex.
func (s *shadowStore[K, V]) shrink() {
	t := s.table.Load()
	if t == nil {
		return
	}
	s.rehash(t, int(s.count.Load())/maxLoadFactor)
}

// rangeEntries walks the current table without locking. Entries published
// or unpublished concurrently may or may not be seen.
func (s *shadowStore[K, V]) rangeEntries(fn func(key K, val *V) bool) {
	t := s.table.Load()
	if t == nil {
		return
	}
	for i := range t.buckets {
		for e := t.buckets[i].Load(); e != nil; e = e.next {
			if !fn(e.key, e.val) {
				return
			}
		}
	}
}
