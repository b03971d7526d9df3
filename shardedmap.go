package shadowmap

import (
	"sync"

	"github.com/spaolacci/murmur3"

	"shadowmap/util"
)

const DefaultShardCount = 32

// Shard is one slice of a ShardedMap, a plain map under its own RWMutex.
type Shard[K comparable, V any] struct {
	simpleMap map[K]V
	sync.RWMutex
}

// Get gets the value under a given key.
func (s *Shard[K, V]) Get(key K) (V, bool) {
	val, ok := s.simpleMap[key]
	return val, ok
}

// Set sets the key and value under a specific Shard.
func (s *Shard[K, V]) Set(key K, value V) {
	s.simpleMap[key] = value
}

// Has returns if the shard contains a specific key.
func (s *Shard[K, V]) Has(key K) bool {
	_, ok := s.simpleMap[key]
	return ok
}

// Remove deletes an element from the shard.
func (s *Shard[K, V]) Remove(key K) {
	delete(s.simpleMap, key)
}

// Pop deletes an element from the shard and returns it.
func (s *Shard[K, V]) Pop(key K) (V, bool) {
	val, exist := s.simpleMap[key]
	delete(s.simpleMap, key)
	return val, exist
}

// ShardedMap is a lock-striped concurrent map. Unlike Map it has no
// lock-free read path and no staleness: reads take the shard's read lock
// and always observe the latest write. Use it when reads and writes are
// balanced.
type ShardedMap[K comparable, V any] struct {
	shards     []*Shard[K, V]
	sharding   func(key K) uint32
	shardCount uint32
}

// NewShardedMap returns a ShardedMap with string keys, sharded by murmur3.
func NewShardedMap[V any](shardCount int) *ShardedMap[string, V] {
	// murmur32 only supports string keys
	return NewShardedMapWithSharding[string, V](shardCount, murmur32)
}

// NewShardedMapWithSharding creates a ShardedMap with a caller-provided
// sharding function for arbitrary comparable keys.
func NewShardedMapWithSharding[K comparable, V any](shardCount int, sharding func(key K) uint32) *ShardedMap[K, V] {
	// suggest powers of 2
	if shardCount < DefaultShardCount {
		shardCount = DefaultShardCount
	}
	sm := &ShardedMap[K, V]{
		sharding:   sharding,
		shards:     make([]*Shard[K, V], shardCount),
		shardCount: uint32(shardCount),
	}
	for i := 0; i < shardCount; i++ {
		sm.shards[i] = &Shard[K, V]{simpleMap: make(map[K]V)}
	}
	return sm
}

func murmur32(key string) uint32 {
	return murmur3.Sum32(util.StringToByte(key))
}

// GetShard returns the Shard under the given key.
func (sm *ShardedMap[K, V]) GetShard(key K) *Shard[K, V] {
	return sm.shards[uint(sm.sharding(key))%uint(sm.shardCount)]
}

// GetShardByReading returns the Shard under the given key after RLocking.
// Remember to unlock the shard!
func (sm *ShardedMap[K, V]) GetShardByReading(key K) *Shard[K, V] {
	shard := sm.GetShard(key)
	shard.RLock()
	// remember to RUnlock
	return shard
}

// GetShardByWriting returns the Shard under the given key after Locking.
// Remember to unlock the shard!
func (sm *ShardedMap[K, V]) GetShardByWriting(key K) *Shard[K, V] {
	shard := sm.GetShard(key)
	shard.Lock()
	// remember to Unlock
	return shard
}

// Get gets the value under a given key.
func (sm *ShardedMap[K, V]) Get(key K) (V, bool) {
	shard := sm.GetShard(key)
	shard.RLock()
	defer shard.RUnlock()
	return shard.Get(key)
}

// Set sets the key and value under a specific Shard.
func (sm *ShardedMap[K, V]) Set(key K, value V) {
	shard := sm.GetShard(key)
	shard.Lock()
	defer shard.Unlock()
	shard.Set(key, value)
}

// Has returns if the map contains a specific key.
func (sm *ShardedMap[K, V]) Has(key K) bool {
	shard := sm.GetShard(key)
	shard.RLock()
	defer shard.RUnlock()
	return shard.Has(key)
}

// Remove deletes an element from the map.
func (sm *ShardedMap[K, V]) Remove(key K) {
	shard := sm.GetShard(key)
	shard.Lock()
	defer shard.Unlock()
	shard.Remove(key)
}

// Pop deletes an element from the map and returns it.
func (sm *ShardedMap[K, V]) Pop(key K) (V, bool) {
	shard := sm.GetShard(key)
	shard.Lock()
	defer shard.Unlock()
	return shard.Pop(key)
}

// Len returns the number of keys across all shards.
func (sm *ShardedMap[K, V]) Len() int {
	cnt := 0
	for _, s := range sm.shards {
		s.RLock()
		cnt += len(s.simpleMap)
		s.RUnlock()
	}
	return cnt
}

// Clear removes all keys, one shard at a time.
func (sm *ShardedMap[K, V]) Clear() {
	for _, s := range sm.shards {
		s.Lock()
		s.simpleMap = make(map[K]V)
		s.Unlock()
	}
}

// Range calls fn for every entry, locking one shard at a time. fn
// returning false stops the iteration. Entries written to other shards
// while the iteration runs may or may not be visited.
func (sm *ShardedMap[K, V]) Range(fn func(key K, value V) bool) {
	for _, s := range sm.shards {
		s.RLock()
		for k, v := range s.simpleMap {
			if !fn(k, v) {
				s.RUnlock()
				return
			}
		}
		s.RUnlock()
	}
}
