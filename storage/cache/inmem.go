package cache

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/darasa/core/payment"
)

// MemoryStore is an in-process idempotency store, used when no Redis address is configured.
type MemoryStore struct {
	mu      sync.Mutex
	claims  map[string]time.Time // key: expiry
	nowFunc func() time.Time
}

var _ payment.IdempotencyStore = (*MemoryStore)(nil) // interface compliance check

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{claims: make(map[string]time.Time), nowFunc: time.Now}
}

func (s *MemoryStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	if exp, ok := s.claims[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.claims[key] = now.Add(ttl)
	return true, nil
}

func (s *MemoryStore) Extend(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	s.claims[key] = s.nowFunc().Add(ttl)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.claims, key)
	s.mu.Unlock()
	return nil
}
