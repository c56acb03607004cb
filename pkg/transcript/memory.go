package transcript

import (
	"context"
	"iter"
	"sort"
	"sync"
)

// Memory is an in-memory Store. It is safe for concurrent use and
// intended primarily for testing.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]Record)}
}

func (m *Memory) Append(_ context.Context, sessionID string, rec Record) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Seq = uint64(len(m.data[sessionID]))
	m.data[sessionID] = append(m.data[sessionID], rec)
	return rec.Seq, nil
}

func (m *Memory) List(_ context.Context, sessionID string) iter.Seq2[Record, error] {
	m.mu.RLock()
	recs := append([]Record(nil), m.data[sessionID]...)
	m.mu.RUnlock()
	return func(yield func(Record, error) bool) {
		for _, rec := range recs {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (m *Memory) Sessions(_ context.Context) iter.Seq2[string, error] {
	m.mu.RLock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return func(yield func(string, error) bool) {
		for _, id := range ids {
			if !yield(id, nil) {
				return
			}
		}
	}
}

func (m *Memory) Purge(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.data, sessionID)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
