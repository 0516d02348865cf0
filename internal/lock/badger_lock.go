package lock

import (
	"encoding/json"
	"errors"
	"time"

	"paper-quant-bot-go/internal/ident"

	"github.com/dgraph-io/badger/v3"
)

// leaseKey is the single well-known key the cycle lease lives under.
const leaseKey = "lease:trading_cycle"

// badgerStore stores the lease in BadgerDB and leans on Badger's
// native entry TTL: an expired lease simply stops being visible,
// so Acquire self-heals after a crashed holder.
type badgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an already-open BadgerDB as a lease store.
// The same DB that holds the bot registry can be reused.
func NewBadgerStore(db *badger.DB) Store {
	return &badgerStore{db: db}
}

func (s *badgerStore) Acquire(owner string, ttl time.Duration) (*Lease, error) {
	if ttl <= 0 {
		return nil, errors.New("lease TTL must be positive")
	}

	lease := &Lease{
		ID:         ident.New("L"),
		Owner:      owner,
		AcquiredAt: time.Now(),
		TTL:        ttl,
	}
	data, err := json.Marshal(lease)
	if err != nil {
		return nil, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(leaseKey))
		if err == nil {
			return ErrHeld // A live (non-expired) lease exists.
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		entry := badger.NewEntry([]byte(leaseKey), data).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return nil, err
	}
	return lease, nil
}

func (s *badgerStore) Release(lease *Lease) error {
	if lease == nil {
		return errors.New("cannot release a nil lease")
	}

	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(leaseKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // Already expired; nothing to do.
		}
		if err != nil {
			return err
		}

		var stored Lease
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		}); err != nil {
			return err
		}
		if stored.ID != lease.ID {
			// Our lease expired and someone else acquired a new one.
			// Never delete a lease we do not own.
			return nil
		}
		return txn.Delete([]byte(leaseKey))
	})
}
