package persistence

import (
	"encoding/json"
	"errors"
	"fmt"

	"paper-quant-bot-go/internal/models"

	"github.com/dgraph-io/badger/v3"
)

// botKeyPrefix namespaces bot records so the same DB can hold other keys (e.g. the lease lock).
const botKeyPrefix = "bot:"

// badgerRepository is the BadgerDB implementation of the BotRepository.
type badgerRepository struct {
	db *badger.DB
}

// OpenDB opens the BadgerDB that backs both the bot registry and the lease lock.
// Disables Badger's own logging to keep our app's logs clean;
// errors will still be returned from DB operations.
func OpenDB(dbPath string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil
	return badger.Open(opts)
}

// NewBadgerRepository creates and returns a new repository instance connected to a BadgerDB database.
func NewBadgerRepository(dbPath string) (BotRepository, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}
	return &badgerRepository{db: db}, nil
}

// NewBadgerRepositoryFromDB wraps an already-open BadgerDB.
// The caller owns the DB lifecycle; Close on the repository closes it.
func NewBadgerRepositoryFromDB(db *badger.DB) BotRepository {
	return &badgerRepository{db: db}
}

// NewInMemoryRepository returns a repository backed by an in-memory BadgerDB, for tests.
func NewInMemoryRepository() (BotRepository, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerRepository{db: db}, nil
}

// SaveBot atomically saves the full record of a single bot.
// It marshals the record into JSON and saves it under its prefixed ID.
func (r *badgerRepository) SaveBot(bot *models.BotRecord) error {
	if bot.ID == "" {
		return errors.New("bot record has no ID")
	}
	data, err := json.Marshal(bot)
	if err != nil {
		return fmt.Errorf("marshal bot %s: %w", bot.ID, err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(botKeyPrefix+bot.ID), data)
	})
}

// LoadBot loads one bot by ID.
// If the key is not found, it returns (nil, nil) to indicate no record is present.
func (r *badgerRepository) LoadBot(id string) (*models.BotRecord, error) {
	var bot models.BotRecord

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(botKeyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) == 0 {
				return errors.New("bot record is empty in database")
			}
			return json.Unmarshal(val, &bot)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil // The expected "no record found" case.
	}
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

// ListActiveBots scans the bot prefix and returns every record whose status is ACTIVE.
func (r *badgerRepository) ListActiveBots() ([]*models.BotRecord, error) {
	var bots []*models.BotRecord

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(botKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var bot models.BotRecord
				if err := json.Unmarshal(val, &bot); err != nil {
					return fmt.Errorf("unmarshal bot %s: %w", it.Item().Key(), err)
				}
				if bot.Status == models.BotActive {
					bots = append(bots, &bot)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bots, nil
}

// Close gracefully closes the connection to the database.
func (r *badgerRepository) Close() error {
	return r.db.Close()
}
