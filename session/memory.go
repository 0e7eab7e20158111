package session

import (
	"context"
	"sync"
)

// MemoryBackend keeps entries in process memory.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string][]byte)}
}

func (b *MemoryBackend) Load(_ context.Context) (map[string][]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string][]byte, len(b.entries))
	for k, v := range b.entries {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (b *MemoryBackend) Save(_ context.Context, entries map[string][]byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for k, v := range entries {
		b.entries[k] = append([]byte(nil), v...)
	}
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, k := range keys {
		delete(b.entries, k)
	}
	return nil
}
