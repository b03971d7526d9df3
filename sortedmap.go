package shadowmap

import (
	"sync"

	"github.com/gansidui/skiplist"
	art "github.com/plar/go-adaptive-radix-tree"
)

// sortedNode lives in both halves of a SortedMap index: the skiplist keeps
// nodes in key order, the radix tree maps each key to its node.
type sortedNode[V any] struct {
	key string
	val V
}

func (n *sortedNode[V]) Less(other interface{}) bool {
	return n.key < other.(*sortedNode[V]).key
}

// SortedMap is a string-keyed map with iteration in key order. A skiplist
// carries the ordering and rank queries, an adaptive radix tree carries
// point lookups; both are guarded by one RWMutex.
type SortedMap[V any] struct {
	mu   sync.RWMutex
	skl  *skiplist.SkipList
	tree art.Tree
}

// NewSortedMap creates an empty SortedMap.
func NewSortedMap[V any]() *SortedMap[V] {
	return &SortedMap[V]{
		skl:  skiplist.New(),
		tree: art.New(),
	}
}

// Put inserts or replaces the value for key and reports the previous
// value if one was present.
func (sm *SortedMap[V]) Put(key string, value V) (prev V, replaced bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if old, ok := sm.tree.Search(art.Key(key)); ok {
		node := old.(*sortedNode[V])
		prev = node.val
		node.val = value
		return prev, true
	}
	node := &sortedNode[V]{key: key, val: value}
	sm.tree.Insert(art.Key(key), node)
	sm.skl.Insert(node)
	return prev, false
}

// Get returns the value stored for key.
func (sm *SortedMap[V]) Get(key string) (V, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if v, ok := sm.tree.Search(art.Key(key)); ok {
		return v.(*sortedNode[V]).val, true
	}
	var zero V
	return zero, false
}

// Remove deletes key and returns the value that was stored.
func (sm *SortedMap[V]) Remove(key string) (V, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	v, ok := sm.tree.Delete(art.Key(key))
	if !ok {
		var zero V
		return zero, false
	}
	node := v.(*sortedNode[V])
	sm.skl.Delete(node)
	return node.val, true
}

// Len returns the number of entries.
func (sm *SortedMap[V]) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.skl.Len()
}

// Min returns the smallest key and its value.
func (sm *SortedMap[V]) Min() (key string, value V, ok bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if sm.skl.Len() == 0 {
		return "", value, false
	}
	node := sm.skl.GetElementByRank(1).Value.(*sortedNode[V])
	return node.key, node.val, true
}

// Max returns the largest key and its value.
func (sm *SortedMap[V]) Max() (key string, value V, ok bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if sm.skl.Len() == 0 {
		return "", value, false
	}
	node := sm.skl.GetElementByRank(sm.skl.Len()).Value.(*sortedNode[V])
	return node.key, node.val, true
}

// Rank returns the 0-based position of key in key order.
func (sm *SortedMap[V]) Rank(key string) (int, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if _, ok := sm.tree.Search(art.Key(key)); !ok {
		return -1, false
	}
	return sm.skl.GetRank(&sortedNode[V]{key: key}) - 1, true
}

// Range calls fn for every entry in ascending key order, holding the read
// lock for the whole iteration. fn returning false stops the iteration.
func (sm *SortedMap[V]) Range(fn func(key string, value V) bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if sm.skl.Len() == 0 {
		return
	}
	for e := sm.skl.GetElementByRank(1); e != nil; e = e.Next() {
		node := e.Value.(*sortedNode[V])
		if !fn(node.key, node.val) {
			return
		}
	}
}

// RangeFrom is Range starting at the first key >= from.
func (sm *SortedMap[V]) RangeFrom(from string, fn func(key string, value V) bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if sm.skl.Len() == 0 {
		return
	}
	for e := sm.skl.GetElementByRank(1); e != nil; e = e.Next() {
		node := e.Value.(*sortedNode[V])
		if node.key < from {
			continue
		}
		if !fn(node.key, node.val) {
			return
		}
	}
}

// Keys returns every key in ascending order.
func (sm *SortedMap[V]) Keys() []string {
	keys := make([]string, 0, sm.Len())
	sm.Range(func(key string, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}
