package persistence

import "paper-quant-bot-go/internal/models"

// BotRepository defines the interface for the bot registry.
// It abstracts the underlying storage mechanism (e.g., BadgerDB, in-memory)
// from the rest of the application.
type BotRepository interface {
	// SaveBot atomically saves the full record of a single bot.
	SaveBot(bot *models.BotRecord) error

	// LoadBot loads one bot by ID.
	// If no record is found, it should return (nil, nil).
	LoadBot(id string) (*models.BotRecord, error)

	// ListActiveBots returns every bot whose status is ACTIVE.
	ListActiveBots() ([]*models.BotRecord, error)

	// Close gracefully closes the connection to the database.
	Close() error
}
