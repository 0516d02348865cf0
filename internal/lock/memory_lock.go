package lock

import (
	"errors"
	"sync"
	"time"

	"paper-quant-bot-go/internal/ident"
)

// memoryStore is an in-process lease store, used in tests and single-binary runs.
type memoryStore struct {
	mu      sync.Mutex
	current *Lease
}

// NewMemoryStore returns an in-memory lease store.
func NewMemoryStore() Store {
	return &memoryStore{}
}

func (s *memoryStore) Acquire(owner string, ttl time.Duration) (*Lease, error) {
	if ttl <= 0 {
		return nil, errors.New("lease TTL must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && time.Since(s.current.AcquiredAt) < s.current.TTL {
		return nil, ErrHeld
	}

	lease := &Lease{
		ID:         ident.New("L"),
		Owner:      owner,
		AcquiredAt: time.Now(),
		TTL:        ttl,
	}
	s.current = lease
	return lease, nil
}

func (s *memoryStore) Release(lease *Lease) error {
	if lease == nil {
		return errors.New("cannot release a nil lease")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.ID == lease.ID {
		s.current = nil
	}
	return nil
}
