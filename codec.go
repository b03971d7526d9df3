package shadowmap

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MarshalJSON encodes the published entries as a JSON object. Key types
// must be supported by encoding/json as map keys (strings, integers, or
// encoding.TextMarshaler).
func (m *Map[K, V]) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.ToMap())
}

// UnmarshalJSON decodes a JSON object and replaces the map's contents
// with it, publishing every decoded key as a first insert.
func (m *Map[K, V]) UnmarshalJSON(data []byte) error {
	var plain map[K]V
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty = make(map[K]*V, len(plain))
	m.shadow.clear()
	for k, v := range plain {
		m.storeNew(k, v)
	}
	return nil
}

// String renders the published entries as "{k: v, k: v}". Ordering
// follows the shadow store's iteration order.
func (m *Map[K, V]) String() string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	m.Range(func(k K, v V) bool {
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%v: %v", k, v)
		return true
	})
	b.WriteByte('}')
	return b.String()
}
