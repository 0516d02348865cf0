package regime

import (
	"math"
	"testing"
	"time"

	"paper-quant-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func barsFromCloses(closes []float64) []models.Bar {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      c, High: c, Low: c, Close: c,
			Volume: 100,
		}
	}
	return bars
}

func TestShortWindowFallsBackToRanging(t *testing.T) {
	c := New(0)
	result := c.Detect(barsFromCloses([]float64{100, 101, 102}))
	assert.Equal(t, models.RegimeRanging, result.Regime)
	assert.Equal(t, 0.0, result.Confidence)
	assert.NotEmpty(t, result.RecommendedStrategies)
}

func TestSteadyRiseIsBullLowVol(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 * math.Pow(1.003, float64(i)) // gentle steady climb
	}
	c := New(2.5)
	result := c.Detect(barsFromCloses(closes))
	assert.Equal(t, models.RegimeBullLowVol, result.Regime)
	assert.Greater(t, result.Confidence, 0.0)
	assert.Contains(t, result.RecommendedStrategies, models.StrategyMomentum)
}

func TestVolatileCrashIsBearHighVol(t *testing.T) {
	closes := make([]float64, 40)
	price := 100.0
	for i := range closes {
		// Sawtooth decline: big down moves with partial bounces.
		if i%2 == 0 {
			price *= 0.92
		} else {
			price *= 1.03
		}
		closes[i] = price
	}
	c := New(2.5)
	c.SetSentiment(20) // fearful market
	result := c.Detect(barsFromCloses(closes))
	assert.Equal(t, models.RegimeBearHighVol, result.Regime)
}

func TestConfidenceStaysBounded(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 * math.Pow(1.1, float64(i)) // extreme move
	}
	c := New(2.5)
	result := c.Detect(barsFromCloses(closes))
	assert.LessOrEqual(t, result.Confidence, 1.0)
	assert.GreaterOrEqual(t, result.Confidence, 0.0)
}

func TestHistoryAndTransitionProbabilities(t *testing.T) {
	c := New(2.5)

	rising := make([]float64, 40)
	falling := make([]float64, 40)
	for i := range rising {
		rising[i] = 100 * math.Pow(1.003, float64(i))
		falling[i] = 100 * math.Pow(0.997, float64(i))
	}

	c.Detect(barsFromCloses(rising))
	c.Detect(barsFromCloses(rising))
	c.Detect(barsFromCloses(falling))

	require.Len(t, c.History(), 3)

	probs := c.TransitionProbabilities()
	row, ok := probs[models.RegimeBullLowVol]
	require.True(t, ok)

	// Each source regime's outgoing probabilities sum to one.
	total := 0.0
	for _, p := range row {
		total += p
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestTransitionProbabilitiesEmptyWithoutHistory(t *testing.T) {
	c := New(2.5)
	assert.Empty(t, c.TransitionProbabilities())
}
