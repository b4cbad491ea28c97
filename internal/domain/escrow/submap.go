package escrow

// subMap is the contract's persisted associative store. Ordering is never
// semantically relied upon; iteration exists only for aggregate queries.
type subMap[K comparable, V any] struct {
	items map[K]V
}

func newSubMap[K comparable, V any]() *subMap[K, V] {
	return &subMap[K, V]{items: make(map[K]V)}
}

func (m *subMap[K, V]) Get(k K) (V, bool) {
	v, ok := m.items[k]
	return v, ok
}

func (m *subMap[K, V]) Set(k K, v V) {
	m.items[k] = v
}

func (m *subMap[K, V]) Contains(k K) bool {
	_, ok := m.items[k]
	return ok
}

func (m *subMap[K, V]) Len() int {
	return len(m.items)
}

// Range calls fn for each entry until fn returns false.
func (m *subMap[K, V]) Range(fn func(K, V) bool) {
	for k, v := range m.items {
		if !fn(k, v) {
			return
		}
	}
}
