package market

import (
	"context"

	"paper-quant-bot-go/internal/models"
)

// StaticSource 是兜底数据源：返回配置里写死的价格。
// 只在所有真实数据源都不可用时被降级链选中。
type StaticSource struct {
	prices map[string]float64
}

// NewStaticSource 用配置中的固定价格表创建兜底源
func NewStaticSource(prices map[string]float64) *StaticSource {
	return &StaticSource{prices: prices}
}

func (s *StaticSource) GetCurrentPrices(_ context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if price, ok := s.prices[sym]; ok && price > 0 {
			out[sym] = price
		}
	}
	return out, nil
}

// GetHistory 兜底源不提供K线历史
func (s *StaticSource) GetHistory(context.Context, string, int) ([]models.Bar, error) {
	return nil, ErrNoHistory
}
