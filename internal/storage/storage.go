package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"paper-quant-bot-go/internal/models"
	"paper-quant-bot-go/internal/portfolio"

	_ "github.com/mattn/go-sqlite3" // Import the sqlite3 driver
)

// InitDB initializes the database connection and creates necessary tables.
func InitDB(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err = createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary database tables if they don't exist.
func createTables(db *sql.DB) error {
	// Trades table is the append-only fill log. Rows are never updated
	// after insertion; it doubles as the audit trail for live runs.
	createTradesTableSQL := `
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		bot_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		price REAL NOT NULL,
		quantity REAL NOT NULL,
		pnl REAL NOT NULL,
		fee REAL NOT NULL,
		reason TEXT NOT NULL,
		hold_time_sec INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);`

	if _, err := db.Exec(createTradesTableSQL); err != nil {
		return err
	}

	// Portfolios table keeps one cash+positions snapshot per user.
	createPortfoliosTableSQL := `
	CREATE TABLE IF NOT EXISTS portfolios (
		user_id TEXT PRIMARY KEY,
		cash REAL NOT NULL,
		positions TEXT NOT NULL,
		last_update_time INTEGER NOT NULL
	);`

	if _, err := db.Exec(createPortfoliosTableSQL); err != nil {
		return err
	}

	return nil
}

// InsertTrade appends one fill to the trade log.
func InsertTrade(db *sql.DB, botID, symbol string, trade *models.TradeRecord) error {
	query := `
	INSERT INTO trades (id, bot_id, symbol, side, price, quantity, pnl, fee, reason, hold_time_sec, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.Exec(query,
		trade.ID, botID, symbol, string(trade.Side),
		trade.Price, trade.Quantity, trade.Pnl, trade.Fee, trade.Reason,
		int64(trade.HoldTime.Seconds()), trade.Time.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade %s: %w", trade.ID, err)
	}
	return nil
}

// ListTrades returns the trade log for one bot, oldest first.
func ListTrades(db *sql.DB, botID string) ([]models.TradeRecord, error) {
	query := `
	SELECT id, side, price, quantity, pnl, fee, reason, hold_time_sec, created_at
	FROM trades WHERE bot_id = ? ORDER BY created_at ASC`

	rows, err := db.Query(query, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.TradeRecord
	for rows.Next() {
		var t models.TradeRecord
		var side string
		var holdSec, createdAt int64
		if err := rows.Scan(&t.ID, &side, &t.Price, &t.Quantity, &t.Pnl, &t.Fee, &t.Reason, &holdSec, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}
		t.Side = models.Side(side)
		t.HoldTime = time.Duration(holdSec) * time.Second
		t.Time = time.Unix(createdAt, 0)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// SavePortfolio creates or updates the single snapshot row for a user.
func SavePortfolio(db *sql.DB, userID string, p *portfolio.Portfolio) error {
	positions, err := json.Marshal(p.Positions)
	if err != nil {
		return fmt.Errorf("failed to marshal positions for user %s: %w", userID, err)
	}

	query := `
	INSERT INTO portfolios (user_id, cash, positions, last_update_time)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		cash = excluded.cash,
		positions = excluded.positions,
		last_update_time = excluded.last_update_time;`

	_, err = db.Exec(query, userID, p.Cash, string(positions), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save portfolio for user %s: %w", userID, err)
	}
	return nil
}

// LoadPortfolio retrieves a user's portfolio snapshot.
// It returns (nil, nil) if no snapshot exists yet.
func LoadPortfolio(db *sql.DB, userID string) (*portfolio.Portfolio, error) {
	query := `SELECT cash, positions FROM portfolios WHERE user_id = ?;`
	row := db.QueryRow(query, userID)

	var cash float64
	var positionsJSON string
	err := row.Scan(&cash, &positionsJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No snapshot yet, not an application error.
		}
		return nil, err
	}

	p := portfolio.New(cash)
	if err := json.Unmarshal([]byte(positionsJSON), &p.Positions); err != nil {
		return nil, fmt.Errorf("failed to parse positions for user %s: %w", userID, err)
	}
	return p, nil
}
