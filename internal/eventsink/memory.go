package eventsink

import (
	"context"
	"sync"
)

// MemorySink 在内存中保留已转发的事件，用于测试与无外部依赖的部署。
type MemorySink struct {
	mu        sync.Mutex
	envelopes []Envelope
	closed    bool
}

// NewMemorySink 创建内存转发目标。
func NewMemorySink() *MemorySink { return &MemorySink{} }

// Publish 实现 Sink。
func (m *MemorySink) Publish(_ context.Context, env Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.envelopes = append(m.envelopes, env)
	return nil
}

// Envelopes 返回已接收事件的副本。
func (m *MemorySink) Envelopes() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Envelope(nil), m.envelopes...)
}

// Close 实现 Sink。
func (m *MemorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
