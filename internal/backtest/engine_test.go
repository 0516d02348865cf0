package backtest

import (
	"math"
	"testing"
	"time"

	"paper-quant-bot-go/internal/models"
	"paper-quant-bot-go/internal/portfolio"
	"paper-quant-bot-go/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(name models.StrategyType) *models.Config {
	cfg := &models.Config{
		Symbol:            "BTCUSDT",
		InitialInvestment: 10000,
		TakerFeeRate:      0.001,
		SlippageRate:      0.0005,
		MaxSlippageRate:   0.01,
		StrategyName:      name,
	}
	cfg.Strategy.Normalize()
	return cfg
}

func factoryFor(cfg *models.Config) Factory {
	return func() (strategy.Strategy, error) {
		return strategy.New(cfg.StrategyName, &cfg.Strategy)
	}
}

// barsFromCloses builds hourly bars with a small intrabar range around each close.
func barsFromCloses(closes []float64) []models.Bar {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c * 1.002,
			Low:       c * 0.998,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

// flatRiseFlat: 100 flat bars, 50 bars rising 1% each, then flat to 300 bars.
func flatRiseFlat() []models.Bar {
	closes := make([]float64, 300)
	price := 100.0
	for i := range closes {
		if i >= 100 && i < 150 {
			price *= 1.01
		}
		closes[i] = price
	}
	return barsFromCloses(closes)
}

func TestRunRequiresBars(t *testing.T) {
	cfg := testConfig(models.StrategyDCA)
	_, err := Run(cfg, nil, factoryFor(cfg))
	assert.Error(t, err)
}

func TestMomentumCapturesTheRise(t *testing.T) {
	cfg := testConfig(models.StrategyMomentum)
	result, err := Run(cfg, flatRiseFlat(), factoryFor(cfg))
	require.NoError(t, err)

	// The flat-then-rise series must produce at least one profitable closed exit.
	var profitExit *models.TradeRecord
	for i := range result.Trades {
		tr := &result.Trades[i]
		if tr.Side == models.Sell && tr.Reason == "take_profit" {
			profitExit = tr
			break
		}
	}
	require.NotNil(t, profitExit, "expected a take_profit exit during the rise")
	assert.Greater(t, profitExit.Pnl, 0.0)
	// The partial exit fires near the configured threshold, not far past it.
	assert.Greater(t, profitExit.PnlPercent(), 2.0)
	assert.Less(t, profitExit.PnlPercent(), 10.0)

	assert.Greater(t, result.Metrics.FinalBalance, 0.0)
}

func TestEquityCurveNeverGoesNegative(t *testing.T) {
	cfg := testConfig(models.StrategyDCA)
	result, err := Run(cfg, flatRiseFlat(), factoryFor(cfg))
	require.NoError(t, err)

	require.NotEmpty(t, result.EquityCurve)
	for _, p := range result.EquityCurve {
		assert.GreaterOrEqual(t, p.Value, 0.0)
		assert.False(t, math.IsNaN(p.Value))
	}
	assert.GreaterOrEqual(t, result.Metrics.MaxDrawdownPct, 0.0)
}

func TestOpenPositionForceClosedAtSeriesEnd(t *testing.T) {
	// DCA keeps buying on a flat series, so a position is guaranteed open at the end.
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100
	}
	cfg := testConfig(models.StrategyDCA)
	result, err := Run(cfg, barsFromCloses(closes), factoryFor(cfg))
	require.NoError(t, err)

	require.NotEmpty(t, result.Trades)
	last := result.Trades[len(result.Trades)-1]
	assert.Equal(t, models.Sell, last.Side)
	assert.Equal(t, "end_of_series", last.Reason)
}

func TestWalkForwardSplitsBySampleRatio(t *testing.T) {
	cfg := testConfig(models.StrategyDCA)
	cfg.WalkForwardRatio = 0.7
	bars := flatRiseFlat()
	result, err := Run(cfg, bars, factoryFor(cfg))
	require.NoError(t, err)

	require.NotNil(t, result.InSampleMetrics)
	require.NotNil(t, result.OutOfSampleMetrics)
	// Both segments start from the same initial capital: independent passes.
	assert.Equal(t, cfg.InitialInvestment, result.InSampleMetrics.InitialBalance)
	assert.Equal(t, cfg.InitialInvestment, result.OutOfSampleMetrics.InitialBalance)

	// In-sample gets floor(ratio*N) bars, out-of-sample the rest.
	split := SplitIndex(cfg.WalkForwardRatio, len(bars))
	assert.Equal(t, 210, split)
	assert.Equal(t, len(bars), split+(len(bars)-split))
}

func TestSplitIndexFloorsTheProduct(t *testing.T) {
	assert.Equal(t, 210, SplitIndex(0.7, 300))
	assert.Equal(t, 210, SplitIndex(0.7, 301)) // 210.7 floors to 210
	assert.Equal(t, 0, SplitIndex(0.3, 2))     // 0.6 floors to 0
	assert.Equal(t, 74, SplitIndex(0.75, 99))  // 74.25 floors to 74
}

func TestWalkForwardSkippedWhenRatioUnset(t *testing.T) {
	cfg := testConfig(models.StrategyDCA)
	result, err := Run(cfg, flatRiseFlat(), factoryFor(cfg))
	require.NoError(t, err)
	assert.Nil(t, result.InSampleMetrics)
	assert.Nil(t, result.OutOfSampleMetrics)
}

func TestComputeMetricsDrawdownAndProfitFactor(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	day := func(i int, v float64) models.EquityPoint {
		return models.EquityPoint{Date: base.AddDate(0, 0, i), Value: v}
	}

	// Monotone rising curve has zero drawdown.
	monotone := []models.EquityPoint{day(0, 100), day(1, 110), day(2, 120), day(3, 130)}
	m := ComputeMetrics(100, nil, monotone)
	assert.Equal(t, 0.0, m.MaxDrawdownPct)

	// 100 -> 120 -> 90 -> 110: drawdown is 25% off the 120 peak.
	dipping := []models.EquityPoint{day(0, 100), day(1, 120), day(2, 90), day(3, 110)}
	m = ComputeMetrics(100, nil, dipping)
	assert.InDelta(t, 25.0, m.MaxDrawdownPct, 1e-9)

	// No losing trade: profit factor takes the finite sentinel, never infinity.
	trades := []models.TradeRecord{
		{Side: models.Sell, Pnl: 50, Time: base},
		{Side: models.Sell, Pnl: 30, Time: base},
	}
	m = ComputeMetrics(100, trades, monotone)
	assert.Equal(t, 9999.0, m.ProfitFactor)
	assert.False(t, math.IsInf(m.ProfitFactor, 1))
	assert.Equal(t, 100.0, m.WinRate)
}

func TestDynamicSlippageScalesAndCaps(t *testing.T) {
	cfg := testConfig(models.StrategyDCA)

	baseSlip := dynamicSlippage(cfg, 1, 100, 0, 0)
	assert.InDelta(t, cfg.SlippageRate, baseSlip, 1e-12)

	// Bigger order against thin volume costs more.
	bigOrder := dynamicSlippage(cfg, 500, 100, 1000, 0)
	assert.Greater(t, bigOrder, baseSlip)

	// Violent market (high ATR) costs more.
	violent := dynamicSlippage(cfg, 1, 100, 1000, 5)
	assert.Greater(t, violent, baseSlip)

	// And everything caps at the configured maximum.
	extreme := dynamicSlippage(cfg, 1e9, 100, 1, 1000)
	assert.InDelta(t, cfg.MaxSlippageRate, extreme, 1e-12)
}

func TestMakerSignalsPayMakerFee(t *testing.T) {
	cfg := testConfig(models.StrategyGrid)
	cfg.TakerFeeRate = 0.001
	cfg.MakerFeeRate = 0.0002
	cfg.SlippageRate = 0

	port := portfolio.New(10000)
	snap := &models.IndicatorSnapshot{Price: 100}
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var entry time.Time

	maker := &models.TradeSignal{Side: models.Buy, Quantity: 1, Cost: 100, Maker: true, Reason: "grid_buy_L1"}
	rec, ok := applySignal(cfg, port, "BTCUSDT", maker, snap, ts, &entry)
	require.True(t, ok)
	assert.InDelta(t, 100*cfg.MakerFeeRate, rec.Fee, 1e-12)

	taker := &models.TradeSignal{Side: models.Buy, Quantity: 1, Cost: 100, Reason: "momentum_entry"}
	rec, ok = applySignal(cfg, port, "BTCUSDT", taker, snap, ts, &entry)
	require.True(t, ok)
	assert.InDelta(t, 100*cfg.TakerFeeRate, rec.Fee, 1e-12)

	// With no maker rate configured, resting orders fall back to the taker rate.
	cfg.MakerFeeRate = 0
	rec, ok = applySignal(cfg, port, "BTCUSDT", maker, snap, ts, &entry)
	require.True(t, ok)
	assert.InDelta(t, 100*cfg.TakerFeeRate, rec.Fee, 1e-12)
}
