package store

import (
	"context"
	"sync"
)

// Tee writes every record to its sinks in order. The first sink to fail stops
// the record, so later sinks only see records every earlier sink accepted.
type Tee []Sink

// Insert writes rec to each sink until one fails.
func (t Tee) Insert(ctx context.Context, rec Record) error {
	for _, s := range t {
		if err := s.Insert(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// MemorySink keeps records in insertion order, applying the same duplicate
// rules as the SQL store. It is safe for concurrent use.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
	seen    map[string]struct{}
	// Err, when set, is returned from every Insert and nothing is stored.
	Err error
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{seen: make(map[string]struct{})}
}

// Insert stores rec unless it duplicates an earlier record's natural key.
func (m *MemorySink) Insert(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.seen == nil {
		m.seen = make(map[string]struct{})
	}
	if key, ok := uniqueKey(rec); ok {
		if _, dup := m.seen[key]; dup {
			return nil
		}
		m.seen[key] = struct{}{}
	}
	m.records = append(m.records, rec)
	return nil
}

// Records returns every stored record.
func (m *MemorySink) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Table returns the stored records of one table.
func (m *MemorySink) Table(name string) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		if r.Table() == name {
			out = append(out, r)
		}
	}
	return out
}
