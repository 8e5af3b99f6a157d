// Package counting provides the multi-key counters used by the aggregation
// pipelines: a one-dimensional Map and a two-dimensional Table.
//
// Keys are reported in first-insertion order so that records derived from a
// counter are emitted deterministically.
package counting

// Map counts occurrences per key. Absent keys read as zero.
// The zero value is ready to use. A Map is not safe for concurrent use.
type Map[K comparable] struct {
	counts map[K]int
	keys   []K
}

// NewMap creates an empty Map.
func NewMap[K comparable]() *Map[K] {
	return &Map[K]{counts: make(map[K]int)}
}

// Increment adds one to the count of key.
func (m *Map[K]) Increment(key K) {
	m.Add(key, 1)
}

// Add adds n to the count of key. The key is recorded even when n is zero,
// since callers feed it values parsed from finding payloads.
func (m *Map[K]) Add(key K, n int) {
	if m.counts == nil {
		m.counts = make(map[K]int)
	}
	if _, ok := m.counts[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.counts[key] += n
}

// Get returns the count of key, or zero if it was never recorded.
func (m *Map[K]) Get(key K) int {
	return m.counts[key]
}

// Has reports whether key was ever recorded.
func (m *Map[K]) Has(key K) bool {
	_, ok := m.counts[key]
	return ok
}

// Keys returns the recorded keys in first-insertion order.
func (m *Map[K]) Keys() []K {
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// Sum returns the total of all counts.
func (m *Map[K]) Sum() int {
	total := 0
	for _, n := range m.counts {
		total += n
	}
	return total
}

// Len returns the number of recorded keys.
func (m *Map[K]) Len() int {
	return len(m.keys)
}

// IsEmpty reports whether no key was recorded.
func (m *Map[K]) IsEmpty() bool {
	return len(m.keys) == 0
}
