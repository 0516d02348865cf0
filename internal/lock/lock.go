package lock

import (
	"errors"
	"time"
)

// ErrHeld is returned by Acquire when another owner currently holds the lease.
// Callers should treat this as "skip this cycle", not as a failure.
var ErrHeld = errors.New("lease is held by another owner")

// Lease is a time-bounded exclusive claim on the trading cycle.
// If the holder crashes, the lease expires after its TTL and the
// next Acquire succeeds without manual cleanup.
type Lease struct {
	ID         string        `json:"id"`
	Owner      string        `json:"owner"`
	AcquiredAt time.Time     `json:"acquired_at"`
	TTL        time.Duration `json:"ttl"`
}

// Store abstracts the lease storage backend.
type Store interface {
	// Acquire claims the lease for the given owner. Returns ErrHeld
	// if a live lease belonging to someone else exists.
	Acquire(owner string, ttl time.Duration) (*Lease, error)

	// Release frees the lease identified by its ID. Releasing an
	// already-expired lease is not an error.
	Release(lease *Lease) error
}
