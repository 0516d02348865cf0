package risk

import (
	"testing"
	"time"

	"paper-quant-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrailingStopBoundaryIsInclusive(t *testing.T) {
	// HWM 54000, ATR 1000, multiplier 2 -> stop at 52000.
	stop := TrailingStop(54000, 1000, 2)
	assert.InDelta(t, 52000, stop, 1e-9)

	assert.True(t, TrailingStopTriggered(52000, stop), "price exactly at stop must trigger")
	assert.True(t, TrailingStopTriggered(51999, stop))
	assert.False(t, TrailingStopTriggered(52001, stop))
}

func TestKellyClampedToQuarter(t *testing.T) {
	// Very favorable odds would suggest far more than 25%.
	f := Kelly(0.9, 300, 100)
	assert.Equal(t, KellyCap, f)

	// Negative edge clamps to zero.
	assert.Equal(t, 0.0, Kelly(0.2, 100, 100))

	// Degenerate inputs never size a position.
	assert.Equal(t, 0.0, Kelly(0.5, 0, 100))
	assert.Equal(t, 0.0, Kelly(0.5, 100, 0))
}

func TestPositionSizeFromRiskDistance(t *testing.T) {
	// 10000 equity, 1% risk, 100 distance -> 1 unit.
	assert.InDelta(t, 1.0, PositionSize(10000, 1, 50000, 49900), 1e-9)
	assert.Equal(t, 0.0, PositionSize(10000, 1, 50000, 50000))
	assert.Equal(t, 0.0, PositionSize(0, 1, 50000, 49900))
}

func TestHistoricalVaRIsNonNegative(t *testing.T) {
	returns := []float64{-0.05, -0.02, 0.01, 0.03, -0.01, 0.02, 0.04, -0.03, 0.0, 0.01}
	v := HistoricalVaR(returns, 0.95, 10000)
	assert.GreaterOrEqual(t, v, 0.0)
	assert.InDelta(t, 500, v, 1e-9) // worst sample is -5%

	// All-positive returns have no loss tail.
	assert.Equal(t, 0.0, HistoricalVaR([]float64{0.01, 0.02, 0.03}, 0.95, 10000))
	assert.Equal(t, 0.0, HistoricalVaR(nil, 0.95, 10000))
}

func TestTieredTakeProfitsDirectionAware(t *testing.T) {
	long := TieredTakeProfits(100, 10, true)
	require.Len(t, long, 3)
	assert.InDelta(t, 110, long[0].Price, 1e-9)
	assert.InDelta(t, 120, long[1].Price, 1e-9)
	assert.InDelta(t, 130, long[2].Price, 1e-9)

	short := TieredTakeProfits(100, 10, false)
	require.Len(t, short, 3)
	assert.InDelta(t, 90, short[0].Price, 1e-9)

	// Fractions sum to a full exit.
	total := 0.0
	for _, lvl := range long {
		total += lvl.Fraction
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	assert.Nil(t, TieredTakeProfits(0, 10, true))
}

func TestVolScaledSizeInverseToATR(t *testing.T) {
	// Doubled volatility halves the size.
	assert.InDelta(t, 50, VolScaledSize(100, 2, 1), 1e-9)
	// Unknown volatility leaves the base size untouched.
	assert.InDelta(t, 100, VolScaledSize(100, 0, 1), 1e-9)
}

func TestStatsFromTradesIgnoresBuys(t *testing.T) {
	now := time.Now()
	trades := []models.TradeRecord{
		{Side: models.Buy, Time: now, Pnl: 0},
		{Side: models.Sell, Time: now, Pnl: 30},
		{Side: models.Sell, Time: now, Pnl: -10},
		{Side: models.Sell, Time: now, Pnl: 50},
	}
	winRate, avgWin, avgLoss := StatsFromTrades(trades)
	assert.InDelta(t, 2.0/3.0, winRate, 1e-9)
	assert.InDelta(t, 40, avgWin, 1e-9)
	assert.InDelta(t, 10, avgLoss, 1e-9)
}
