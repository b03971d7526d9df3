package shadowmap

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap_Empty(t *testing.T) {
	m := New[int, int]()
	assert.Equal(t, 0, m.Len())
	assert.True(t, m.IsEmpty())
}

func TestMap_ZeroValue(t *testing.T) {
	var m Map[string, int]
	_, ok := m.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())

	m.Set("a", 1)
	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestMap_SetGet(t *testing.T) {
	m := New[string, string]()
	m.Set("/", "1")
	m.Set("/js", "2")
	m.Set("/fn", "3")

	tests := []struct {
		name      string
		key       string
		valueWant string
		flagWant  bool
	}{
		{name: "root", key: "/", valueWant: "1", flagWant: true},
		{name: "js", key: "/js", valueWant: "2", flagWant: true},
		{name: "fn", key: "/fn", valueWant: "3", flagWant: true},
		{name: "missing", key: "/missing", valueWant: "", flagWant: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valueGot, flagGot := m.Get(tt.key)
			assert.Equal(t, tt.valueWant, valueGot)
			assert.Equal(t, tt.flagWant, flagGot)
			assert.Equal(t, tt.flagWant, m.Has(tt.key))
		})
	}
}

func TestMap_SetReturnsPrevious(t *testing.T) {
	m := New[int, int]()
	_, replaced := m.Set(1, 2)
	assert.False(t, replaced)

	prev, replaced := m.Set(1, 3)
	assert.True(t, replaced)
	assert.Equal(t, 2, prev)
}

// Overwriting a key updates only the authoritative store, so the unlocked
// read path keeps serving the first published value until the key cycles
// through a remove and a fresh insert.
func TestMap_OverwriteStaleRead(t *testing.T) {
	m := New[string, int]()
	m.Set("k", 1)
	m.Set("k", 2)

	v, ok := m.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	removed, ok := m.Remove("k")
	assert.True(t, ok)
	assert.Equal(t, 2, removed)

	m.Set("k", 3)
	v, ok = m.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestMap_Remove(t *testing.T) {
	m := New[int, int]()
	m.Set(1, 2)

	v, ok := m.Remove(1)
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = m.Get(1)
	assert.False(t, ok)
	assert.True(t, m.IsEmpty())

	_, ok = m.Remove(1)
	assert.False(t, ok)
}

func TestMap_RemoveDecrementsLen(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 100; i++ {
		m.Set(i, i)
	}
	assert.Equal(t, 100, m.Len())
	for i := 0; i < 100; i += 2 {
		_, ok := m.Remove(i)
		assert.True(t, ok)
	}
	assert.Equal(t, 50, m.Len())
}

func TestMap_LenDistinctKeys(t *testing.T) {
	m := New[int, string]()
	for i := 0; i < 1000; i++ {
		m.Set(i, "v")
	}
	// overwrites must not change the count
	for i := 0; i < 1000; i++ {
		m.Set(i, "w")
	}
	assert.Equal(t, 1000, m.Len())
}

type resource struct {
	closed *atomic.Int32
}

func (r resource) Close() {
	r.closed.Add(1)
}

// Removing a key hands the authoritative value to the caller; the shadow
// copy shares the same underlying resource but nothing ever releases
// through it, so the caller's single Close is the only release.
func TestMap_RemoveReleasesOnce(t *testing.T) {
	var closed atomic.Int32
	m := New[int, resource]()
	m.Set(1, resource{closed: &closed})

	got, ok := m.Get(1)
	assert.True(t, ok)
	assert.Same(t, &closed, got.closed)

	removed, ok := m.Remove(1)
	assert.True(t, ok)
	removed.Close()
	assert.Equal(t, int32(1), closed.Load())

	_, ok = m.Get(1)
	assert.False(t, ok)
}

func TestMap_Clear(t *testing.T) {
	m := New[int, string]()
	for i := 0; i < 1000; i++ {
		m.Set(i, "v")
	}
	m.Clear()
	assert.Equal(t, 0, m.Len())
	_, ok := m.Get(500)
	assert.False(t, ok)

	// the map stays usable after a clear
	m.Set(7, "again")
	v, ok := m.Get(7)
	assert.True(t, ok)
	assert.Equal(t, "again", v)
}

func TestMap_FromMap(t *testing.T) {
	src := map[string]int{"a": 1, "b": 2, "c": 3}
	m := FromMap(src)
	assert.Equal(t, 3, m.Len())
	for k, want := range src {
		got, ok := m.Get(k)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestMap_RangeComplete(t *testing.T) {
	m := New[int, int]()
	want := map[int]int{}
	for i := 0; i < 500; i++ {
		m.Set(i, i*i)
		want[i] = i * i
	}
	got := map[int]int{}
	m.Range(func(k, v int) bool {
		_, dup := got[k]
		assert.False(t, dup)
		got[k] = v
		return true
	})
	assert.Equal(t, want, got)
}

func TestMap_AllKeysValues(t *testing.T) {
	m := New[int, string]()
	m.Set(1, "a")
	m.Set(2, "b")

	got := map[int]string{}
	for k, v := range m.All() {
		got[k] = v
	}
	assert.Equal(t, map[int]string{1: "a", 2: "b"}, got)

	var keys []int
	for k := range m.Keys() {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []int{1, 2}, keys)

	var values []string
	for v := range m.Values() {
		values = append(values, v)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, values)
}

func TestMap_RangeStop(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 100; i++ {
		m.Set(i, i)
	}
	seen := 0
	m.Range(func(int, int) bool {
		seen++
		return seen < 10
	})
	assert.Equal(t, 10, seen)
}

func TestMap_ConcurrentDisjointWriters(t *testing.T) {
	const (
		writers = 8
		perW    = 2000
	)
	m := New[int, int]()
	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perW; i++ {
				k := w*perW + i
				m.Set(k, k)
				if v, ok := m.Get(k); ok {
					assert.Equal(t, k, v)
				}
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, writers*perW, m.Len())
	for k := 0; k < writers*perW; k++ {
		v, ok := m.Get(k)
		assert.True(t, ok)
		assert.Equal(t, k, v)
	}
}

func TestMap_ConcurrentReadersDuringWrites(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 1000; i++ {
		m.Set(i, i)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for i := 0; i < 1000; i++ {
					if v, ok := m.Get(i); ok {
						assert.Equal(t, i, v)
					}
				}
				n := m.Len()
				assert.LessOrEqual(t, n, 2000)
				m.Range(func(k, v int) bool {
					assert.Equal(t, k, v)
					return true
				})
			}
		}()
	}

	for i := 1000; i < 2000; i++ {
		m.Set(i, i)
	}
	for i := 0; i < 500; i++ {
		m.Remove(i)
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, 1500, m.Len())
}

func TestMap_ConcurrentInsertRemoveSameKeys(t *testing.T) {
	m := New[int, int]()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5000; i++ {
				m.Remove(i % 64)
				m.Set(i%64, i)
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, m.Len(), 64)
}

func TestMap_MillionKeyCycle(t *testing.T) {
	if testing.Short() {
		t.Skip("long test")
	}
	const n = 1_000_000
	m := New[int, string]()
	for i := 0; i < n; i++ {
		m.Set(i, "safdfasdfasdfasdfasdfasdfsadf")
	}
	assert.Equal(t, n, m.Len())

	m.Clear()
	m.ShrinkToFit()
	assert.Equal(t, 0, m.Len())

	for i := 0; i < n; i++ {
		m.Set(i, "safdfasdfasdfasdfasdfasdfsadf")
	}
	assert.Equal(t, n, m.Len())
	v, ok := m.Get(n - 1)
	assert.True(t, ok)
	assert.Equal(t, "safdfasdfasdfasdfasdfasdfsadf", v)
}
