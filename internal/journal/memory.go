package journal

import (
	"context"
	"sync"
)

// DefaultCapacity 是内存日志默认保留的记录数。
const DefaultCapacity = 256

// MemoryStore 是固定容量的环形缓冲区，超出容量时覆盖最旧的记录。
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	next    int
	full    bool
}

// NewMemoryStore 创建内存日志。
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{records: make([]Record, capacity)}
}

// Append 追加一条记录。
func (m *MemoryStore) Append(_ context.Context, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[m.next] = record
	m.next = (m.next + 1) % len(m.records)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent 返回最近的若干条记录，按写入时间倒序排列。
func (m *MemoryStore) Recent(_ context.Context, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	size := m.next
	if m.full {
		size = len(m.records)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]Record, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.records)) % len(m.records)
		out = append(out, m.records[idx])
	}
	return out, nil
}

// Len 返回当前保存的记录数。
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.full {
		return len(m.records)
	}
	return m.next
}

// Close 实现 Store。
func (m *MemoryStore) Close() error { return nil }
