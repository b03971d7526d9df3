package shadowmap

import (
	"sync"

	art "github.com/plar/go-adaptive-radix-tree"

	"shadowmap/util"
)

// PrefixMap is a byte-keyed map on an adaptive radix tree, with ordered
// iteration and prefix scans. One RWMutex guards the tree.
type PrefixMap[V any] struct {
	mu   sync.RWMutex
	tree art.Tree
}

// NewPrefixMap creates an empty PrefixMap.
func NewPrefixMap[V any]() *PrefixMap[V] {
	return &PrefixMap[V]{tree: art.New()}
}

// Put inserts or replaces the value for key and reports the previous
// value if one was present.
func (pm *PrefixMap[V]) Put(key []byte, value V) (prev V, replaced bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	old, updated := pm.tree.Insert(key, value)
	if updated {
		prev = old.(V)
	}
	return prev, updated
}

// Get returns the value stored for key.
func (pm *PrefixMap[V]) Get(key []byte) (V, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	if v, ok := pm.tree.Search(key); ok {
		return v.(V), true
	}
	var zero V
	return zero, false
}

// GetString is Get for a string key without copying it.
func (pm *PrefixMap[V]) GetString(key string) (V, bool) {
	return pm.Get(util.StringToByte(key))
}

// PutString is Put for a string key without copying it.
func (pm *PrefixMap[V]) PutString(key string, value V) (V, bool) {
	return pm.Put(util.StringToByte(key), value)
}

// Delete removes key and returns the value that was stored.
func (pm *PrefixMap[V]) Delete(key []byte) (V, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	v, deleted := pm.tree.Delete(key)
	if !deleted {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Len returns the number of entries.
func (pm *PrefixMap[V]) Len() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.tree.Size()
}

// PrefixScan returns keys that start with the given prefix.
// Count refers to the maximum number of retrieved keys. No limitation if
// count is smaller than 0.
func (pm *PrefixMap[V]) PrefixScan(prefix []byte, count int) (keys [][]byte) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	cb := func(node art.Node) bool {
		if node.Kind() != art.Leaf {
			return true
		}
		if count == 0 {
			return false
		}
		keys = append(keys, node.Key())
		if count > 0 {
			count--
		}
		return true
	}
	if len(prefix) == 0 {
		pm.tree.ForEach(cb)
	} else {
		pm.tree.ForEachPrefix(prefix, cb)
	}
	return
}

// RangePrefix calls fn for every entry whose key starts with prefix, in
// key order. An empty prefix visits every entry. fn returning false stops
// the iteration.
func (pm *PrefixMap[V]) RangePrefix(prefix []byte, fn func(key []byte, value V) bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	cb := func(node art.Node) bool {
		if node.Kind() != art.Leaf {
			return true
		}
		return fn(node.Key(), node.Value().(V))
	}
	if len(prefix) == 0 {
		pm.tree.ForEach(cb)
	} else {
		pm.tree.ForEachPrefix(prefix, cb)
	}
}

// Range calls fn for every entry in key order.
func (pm *PrefixMap[V]) Range(fn func(key []byte, value V) bool) {
	pm.RangePrefix(nil, fn)
}
