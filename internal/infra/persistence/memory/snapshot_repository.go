// Package memory implements an in-process snapshot store.
package memory

import (
	"context"
	"sync"

	domcart "example.com/shoecart/internal/domain/cart"
)

type SnapshotRepository struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{data: make(map[string][]byte)}
}

func (r *SnapshotRepository) Load(ctx context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.data[key]
	if !ok {
		return nil, domcart.ErrSnapshotNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (r *SnapshotRepository) Save(ctx context.Context, key string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = buf
	return nil
}
