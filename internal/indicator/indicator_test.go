package indicator

import (
	"math"
	"testing"
	"time"

	"paper-quant-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRSIStaysWithinBounds(t *testing.T) {
	closes := []float64{100, 102, 99, 104, 101, 98, 105, 103, 100, 107, 96, 108, 102, 99, 110, 95}
	rsi := RSI(closes, 14)
	assert.GreaterOrEqual(t, rsi, 0.0)
	assert.LessOrEqual(t, rsi, 100.0)
}

func TestRSINeutralOnShortOrFlatHistory(t *testing.T) {
	// Not enough bars for the period.
	assert.Equal(t, 50.0, RSI([]float64{100, 101, 102}, 14))

	// Perfectly flat series has neither gains nor losses.
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 100
	}
	assert.Equal(t, 50.0, RSI(flat, 14))
}

func TestRSIHitsCeilingOnMonotoneRise(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	assert.Equal(t, 100.0, RSI(closes, 14))
}

func TestBollingerBandOrdering(t *testing.T) {
	closes := []float64{100, 103, 98, 105, 101, 97, 104, 102, 99, 106, 95, 107, 100, 103, 98, 105, 101, 97, 104, 102}
	bb := Bollinger(closes, 20, 2.0)
	assert.Greater(t, bb.Upper, bb.Middle)
	assert.Greater(t, bb.Middle, bb.Lower)
}

func TestBollingerDegenerateWindowCollapses(t *testing.T) {
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 50
	}
	bb := Bollinger(flat, 20, 2.0)
	assert.Equal(t, bb.Upper, bb.Middle)
	assert.Equal(t, bb.Middle, bb.Lower)
}

func TestEMASeedsWithSimpleAverage(t *testing.T) {
	values := []float64{10, 20, 30}
	series := EMASeries(values, 3)
	require.Len(t, series, 3)
	// Inside the seed window each point is the running simple average.
	assert.InDelta(t, 10, series[0], 1e-9)
	assert.InDelta(t, 15, series[1], 1e-9)
	assert.InDelta(t, 20, series[2], 1e-9)
}

func TestTrendScoreBuckets(t *testing.T) {
	flat := make([]float64, 40)
	for i := range flat {
		flat[i] = 100
	}
	assert.Equal(t, 0.0, TrendScore(flat))

	// Steep rise pushes the 20-EMA up more than 3% over 5 bars.
	rising := make([]float64, 40)
	for i := range rising {
		rising[i] = 100 * math.Pow(1.05, float64(i))
	}
	assert.Equal(t, 1.0, TrendScore(rising))

	// Steep fall mirrors to -1.
	falling := make([]float64, 40)
	for i := range falling {
		falling[i] = 100 * math.Pow(0.95, float64(i))
	}
	assert.Equal(t, -1.0, TrendScore(falling))
}

func TestZScoreZeroOnFlatWindow(t *testing.T) {
	flat := make([]float64, 25)
	for i := range flat {
		flat[i] = 42
	}
	assert.Equal(t, 0.0, ZScore(flat, 20))
}

func TestZScoreSignFollowsDeviation(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100
	}
	closes[len(closes)-1] = 110
	assert.Greater(t, ZScore(closes, 20), 0.0)

	closes[len(closes)-1] = 90
	assert.Less(t, ZScore(closes, 20), 0.0)
}

func TestSnapshotOnEmptyInput(t *testing.T) {
	snap := Snapshot(nil)
	require.NotNil(t, snap)
	assert.Equal(t, 50.0, snap.RSI)
}

func TestSnapshotPopulatesAllFields(t *testing.T) {
	bars := make([]models.Bar, 60)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		price := 100 + 5*math.Sin(float64(i)/4)
		bars[i] = models.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price * 1.01,
			Low:       price * 0.99,
			Close:     price,
			Volume:    1000,
		}
	}
	snap := Snapshot(bars)
	assert.Equal(t, bars[59].Close, snap.Price)
	assert.Greater(t, snap.ATR, 0.0)
	assert.Greater(t, snap.AvgVolume, 0.0)
	assert.Greater(t, snap.Bollinger.Upper, snap.Bollinger.Lower)
	// The tight band sits inside the wide band.
	assert.Less(t, snap.BollingerT.Upper, snap.Bollinger.Upper)
	assert.Greater(t, snap.BollingerT.Lower, snap.Bollinger.Lower)
}
