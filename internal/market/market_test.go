package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"paper-quant-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// tierSource is a scripted PriceSource tier that records what it was asked for.
type tierSource struct {
	prices    map[string]float64
	err       error
	bars      map[string][]models.Bar
	requested [][]string
}

func (s *tierSource) GetCurrentPrices(_ context.Context, symbols []string) (map[string]float64, error) {
	s.requested = append(s.requested, symbols)
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if p, ok := s.prices[sym]; ok {
			out[sym] = p
		}
	}
	return out, nil
}

func (s *tierSource) GetHistory(_ context.Context, symbol string, _ int) ([]models.Bar, error) {
	bars, ok := s.bars[symbol]
	if !ok {
		return nil, ErrNoHistory
	}
	return bars, nil
}

func TestChainFillsMissingSymbolsFromLowerTiers(t *testing.T) {
	primary := &tierSource{prices: map[string]float64{"BTCUSDT": 50000}}
	fallback := &tierSource{prices: map[string]float64{"BTCUSDT": 49000, "ETHUSDT": 3000}}
	chain := NewChainSource(zap.NewNop(), []string{"primary", "fallback"}, primary, fallback)

	prices, err := chain.GetCurrentPrices(context.Background(), []string{"BTCUSDT", "ETHUSDT"})
	require.NoError(t, err)
	assert.InDelta(t, 50000, prices["BTCUSDT"], 1e-9, "primary's price wins")
	assert.InDelta(t, 3000, prices["ETHUSDT"], 1e-9)

	// The fallback was only asked for the symbol the primary could not price.
	require.Len(t, fallback.requested, 1)
	assert.Equal(t, []string{"ETHUSDT"}, fallback.requested[0])
}

func TestChainReturnsPartialMapForUnpriceableSymbol(t *testing.T) {
	primary := &tierSource{err: errors.New("rest down")}
	fallback := &tierSource{prices: map[string]float64{"BTCUSDT": 50000}}
	chain := NewChainSource(zap.NewNop(), []string{"primary", "fallback"}, primary, fallback)

	prices, err := chain.GetCurrentPrices(context.Background(), []string{"BTCUSDT", "ETHUSDT"})
	require.NoError(t, err, "one unpriceable symbol must not fail the batch")
	assert.InDelta(t, 50000, prices["BTCUSDT"], 1e-9)
	_, ok := prices["ETHUSDT"]
	assert.False(t, ok)
}

func TestChainFailsOnlyWhenNoSymbolGetsAPrice(t *testing.T) {
	down := &tierSource{err: errors.New("rest down")}
	empty := &tierSource{}
	chain := NewChainSource(zap.NewNop(), []string{"down", "empty"}, down, empty)

	_, err := chain.GetCurrentPrices(context.Background(), []string{"BTCUSDT"})
	assert.Error(t, err)
}

func TestChainHistorySkipsSourcesWithoutKlines(t *testing.T) {
	bars := []models.Bar{{Timestamp: time.Now(), Close: 100}}
	noHistory := &tierSource{}
	withHistory := &tierSource{bars: map[string][]models.Bar{"BTCUSDT": bars}}
	chain := NewChainSource(zap.NewNop(), []string{"a", "b"}, noHistory, withHistory)

	got, err := chain.GetHistory(context.Background(), "BTCUSDT", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = chain.GetHistory(context.Background(), "ETHUSDT", 10)
	assert.Error(t, err)
}

func TestStaticSourceReturnsOnlyConfiguredSymbols(t *testing.T) {
	src := NewStaticSource(map[string]float64{"BTCUSDT": 50000, "BAD": -1})

	prices, err := src.GetCurrentPrices(context.Background(), []string{"BTCUSDT", "ETHUSDT", "BAD"})
	require.NoError(t, err)
	assert.Len(t, prices, 1)
	assert.InDelta(t, 50000, prices["BTCUSDT"], 1e-9)
}

func TestWSCacheSkipsMissingAndStaleEntries(t *testing.T) {
	c := NewWSCache("", zap.NewNop())
	c.prices["BTCUSDT"] = 50000
	c.updatedAt["BTCUSDT"] = time.Now()
	c.prices["ETHUSDT"] = 3000
	c.updatedAt["ETHUSDT"] = time.Now().Add(-maxCacheAge - time.Minute)

	prices, err := c.GetCurrentPrices(context.Background(), []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"})
	require.NoError(t, err)
	assert.Len(t, prices, 1)
	assert.InDelta(t, 50000, prices["BTCUSDT"], 1e-9)
}

func TestWSCacheStopIsIdempotent(t *testing.T) {
	c := NewWSCache("", zap.NewNop())
	c.Stop()
	c.Stop()

	select {
	case <-c.stopChan:
	default:
		t.Fatal("stop channel should be closed")
	}
}
