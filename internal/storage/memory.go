package storage

import (
	"context"
	"sync"

	"github.com/sherifkozman/red-council/internal/types"
)

// MemStore is an in-memory Store used in tests and as the degraded fallback
// when no durable backend is configured.
type MemStore struct {
	mu    sync.RWMutex
	slots map[string][]byte

	// FailWrites forces SetItem/RemoveItem to fail, for exercising the
	// best-effort persistence path in tests.
	FailWrites bool
	// FailReads forces GetItem to fail.
	FailReads bool
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{slots: make(map[string][]byte)}
}

func (s *MemStore) GetItem(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.FailReads {
		return nil, types.NewError(types.STORAGE_READ_FAILED, "read failure injected")
	}

	value, ok := s.slots[key]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, nil
}

func (s *MemStore) SetItem(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return types.NewError(types.STORAGE_WRITE_FAILED, "write failure injected")
	}

	cp := make([]byte, len(value))
	copy(cp, value)
	s.slots[key] = cp
	return nil
}

func (s *MemStore) RemoveItem(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return types.NewError(types.STORAGE_WRITE_FAILED, "write failure injected")
	}

	delete(s.slots, key)
	return nil
}

func (s *MemStore) Close() error {
	return nil
}

// Len returns the number of stored slots.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

var _ Store = (*MemStore)(nil)
