package storage

import (
	"database/sql"
	"testing"
	"time"

	"paper-quant-bot-go/internal/models"
	"paper-quant-bot-go/internal/portfolio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndListTrades(t *testing.T) {
	db := testDB(t)

	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	first := models.TradeRecord{
		ID: "T-1", Side: models.Buy, Price: 50000, Quantity: 0.01,
		Fee: 0.5, Reason: "dca_round", Time: base,
	}
	second := models.TradeRecord{
		ID: "T-2", Side: models.Sell, Price: 51000, Quantity: 0.01,
		Pnl: 9.5, Fee: 0.51, Reason: "take_profit",
		HoldTime: 2 * time.Hour, Time: base.Add(2 * time.Hour),
	}
	require.NoError(t, InsertTrade(db, "bot-1", "BTCUSDT", &first))
	require.NoError(t, InsertTrade(db, "bot-1", "BTCUSDT", &second))

	trades, err := ListTrades(db, "bot-1")
	require.NoError(t, err)
	require.Len(t, trades, 2)

	// Oldest first.
	assert.Equal(t, "T-1", trades[0].ID)
	assert.Equal(t, models.Buy, trades[0].Side)
	assert.Equal(t, "T-2", trades[1].ID)
	assert.InDelta(t, 9.5, trades[1].Pnl, 1e-9)
	assert.Equal(t, 2*time.Hour, trades[1].HoldTime)
	assert.Equal(t, second.Time.Unix(), trades[1].Time.Unix())
}

func TestListTradesFiltersByBot(t *testing.T) {
	db := testDB(t)

	mine := models.TradeRecord{ID: "T-1", Side: models.Buy, Price: 100, Quantity: 1, Time: time.Now()}
	other := models.TradeRecord{ID: "T-2", Side: models.Buy, Price: 100, Quantity: 1, Time: time.Now()}
	require.NoError(t, InsertTrade(db, "bot-a", "ETHUSDT", &mine))
	require.NoError(t, InsertTrade(db, "bot-b", "ETHUSDT", &other))

	trades, err := ListTrades(db, "bot-a")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "T-1", trades[0].ID)
}

func TestInsertTradeRejectsDuplicateID(t *testing.T) {
	db := testDB(t)

	trade := models.TradeRecord{ID: "T-1", Side: models.Buy, Price: 100, Quantity: 1, Time: time.Now()}
	require.NoError(t, InsertTrade(db, "bot-1", "BTCUSDT", &trade))
	assert.Error(t, InsertTrade(db, "bot-1", "BTCUSDT", &trade), "the trade log is append-only with unique IDs")
}

func TestSaveAndLoadPortfolio(t *testing.T) {
	db := testDB(t)

	p := portfolio.New(10000)
	p.Positions["BTCUSDT"] = &models.Position{Symbol: "BTCUSDT", Quantity: 0.02, AvgEntryPrice: 48000}
	p.Cash = 9040
	require.NoError(t, SavePortfolio(db, "user-1", p))

	loaded, err := LoadPortfolio(db, "user-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.InDelta(t, 9040, loaded.Cash, 1e-9)
	pos := loaded.Position("BTCUSDT")
	require.NotNil(t, pos)
	assert.InDelta(t, 0.02, pos.Quantity, 1e-12)
	assert.InDelta(t, 48000, pos.AvgEntryPrice, 1e-9)
}

func TestSavePortfolioUpserts(t *testing.T) {
	db := testDB(t)

	p := portfolio.New(10000)
	require.NoError(t, SavePortfolio(db, "user-1", p))

	p.Cash = 8000
	p.Positions["ETHUSDT"] = &models.Position{Symbol: "ETHUSDT", Quantity: 1, AvgEntryPrice: 2000}
	require.NoError(t, SavePortfolio(db, "user-1", p))

	loaded, err := LoadPortfolio(db, "user-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.InDelta(t, 8000, loaded.Cash, 1e-9)
	assert.Len(t, loaded.Positions, 1)
}

func TestLoadPortfolioMissingUser(t *testing.T) {
	db := testDB(t)

	loaded, err := LoadPortfolio(db, "nobody")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
