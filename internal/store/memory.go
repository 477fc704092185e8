package store

import (
	"context"
	"strings"
	"sync"
)

// Memory is an in-process Backend. State lives as long as the value.
type Memory struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemory returns an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

func (m *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = value
	return nil
}

func (m *Memory) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]string)
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.items)
}

// Namespaced is a Backend that prefixes every key of a shared Memory.
// Clear only drops keys under the prefix.
type Namespaced struct {
	mem    *Memory
	prefix string
}

// Namespace returns a view of m scoped to prefix.
func (m *Memory) Namespace(prefix string) *Namespaced {
	return &Namespaced{mem: m, prefix: prefix}
}

func (n *Namespaced) GetItem(ctx context.Context, key string) (string, bool, error) {
	return n.mem.GetItem(ctx, n.prefix+key)
}

func (n *Namespaced) SetItem(ctx context.Context, key, value string) error {
	return n.mem.SetItem(ctx, n.prefix+key, value)
}

func (n *Namespaced) RemoveItem(ctx context.Context, key string) error {
	return n.mem.RemoveItem(ctx, n.prefix+key)
}

func (n *Namespaced) Clear(_ context.Context) error {
	n.mem.mu.Lock()
	defer n.mem.mu.Unlock()

	for k := range n.mem.items {
		if strings.HasPrefix(k, n.prefix) {
			delete(n.mem.items, k)
		}
	}
	return nil
}
