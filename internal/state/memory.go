package state

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore 进程内快照存储（CLI 与测试）
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Snapshot
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Snapshot)}
}

func (m *MemoryStore) Load(_ context.Context, port string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.items[port]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	s.Gains = append([]int(nil), s.Gains...)
	return s, nil
}

func (m *MemoryStore) Save(_ context.Context, s Snapshot) error {
	s.Gains = append([]int(nil), s.Gains...)
	m.mu.Lock()
	m.items[s.Port] = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Ports(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.items))
	for p := range m.items {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
