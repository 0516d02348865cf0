package montecarlo

import (
	"math"
	"testing"

	"paper-quant-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunProducesExactlyNSamples(t *testing.T) {
	pnls := []float64{120, -80, 45, -30, 200, -150, 60}
	result, err := Run(pnls, 10000, 500, 0.95)
	require.NoError(t, err)

	assert.Equal(t, 500, result.Simulations)
	assert.Len(t, result.Distribution, 500)
	assert.False(t, math.IsNaN(result.MedianReturn))
	assert.False(t, math.IsInf(result.MedianReturn, 0))
	assert.GreaterOrEqual(t, result.ProfitProbability, 0.0)
	assert.LessOrEqual(t, result.ProfitProbability, 1.0)
	assert.LessOrEqual(t, result.PercentileLow, result.PercentileHigh)
}

func TestRunRejectsDegenerateInputs(t *testing.T) {
	_, err := Run(nil, 10000, 500, 0.95)
	assert.Error(t, err, "empty trade list cannot be resampled")

	_, err = Run([]float64{10}, 10000, 0, 0.95)
	assert.Error(t, err)

	_, err = Run([]float64{10}, 0, 500, 0.95)
	assert.Error(t, err)
}

func TestRunDefaultsConfidence(t *testing.T) {
	result, err := Run([]float64{50, -20}, 1000, 100, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.95, result.Confidence, 1e-9)
}

func TestBankruptcyPathsFloorAtZero(t *testing.T) {
	// Losses larger than capital force every path to ruin.
	result, err := Run([]float64{-5000}, 1000, 50, 0.95)
	require.NoError(t, err)
	for _, ret := range result.Distribution {
		assert.GreaterOrEqual(t, ret, -100.0, "equity can not go below zero")
	}
	assert.Equal(t, 0.0, result.ProfitProbability)
}

func TestPnlsFromTradesKeepsOnlyClosedExits(t *testing.T) {
	trades := []models.TradeRecord{
		{Side: models.Buy, Pnl: 0},
		{Side: models.Sell, Pnl: 30},
		{Side: models.Sell, Pnl: -12},
	}
	pnls := PnlsFromTrades(trades)
	assert.Equal(t, []float64{30, -12}, pnls)
}
