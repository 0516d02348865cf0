package market

import (
	"context"
	"errors"
	"fmt"

	"paper-quant-bot-go/internal/models"

	"go.uber.org/zap"
)

// ErrNoHistory 表示该数据源不提供K线历史
var ErrNoHistory = errors.New("price source does not provide kline history")

// PriceSource 行情数据源。实时价格与K线历史分开获取：
// 不是每个降级数据源都能给出历史。
type PriceSource interface {
	// GetCurrentPrices 批量获取最新成交价，key 为交易对。
	// 按交易对尽力而为：给不出价的交易对从返回里缺席，不算错误；
	// 返回 error 表示数据源本身不可用
	GetCurrentPrices(ctx context.Context, symbols []string) (map[string]float64, error)

	// GetHistory 获取最近 limit 根小时K线，时间升序
	GetHistory(ctx context.Context, symbol string, limit int) ([]models.Bar, error)
}

// ChainSource 按顺序尝试多个数据源，前面的失败后降级到后面的。
// 降级本身不是错误，但会被记录下来。
type ChainSource struct {
	sources []PriceSource
	names   []string
	logger  *zap.Logger
}

// NewChainSource 组装降级链；sources 与 names 一一对应
func NewChainSource(logger *zap.Logger, names []string, sources ...PriceSource) *ChainSource {
	return &ChainSource{sources: sources, names: names, logger: logger}
}

// GetCurrentPrices 逐级补齐：每一级只负责上一级还没报出价的交易对。
// 个别交易对所有级都报不出价时从结果里缺席，由调用方跳过对应机器人；
// 只有一个价都拿不到时才整体报错。
func (c *ChainSource) GetCurrentPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	missing := symbols
	for i, src := range c.sources {
		if len(missing) == 0 {
			break
		}
		prices, err := src.GetCurrentPrices(ctx, missing)
		if err != nil {
			c.logger.Warn("行情源不可用，降级到下一级",
				zap.String("source", c.name(i)),
				zap.Error(err))
			continue
		}
		var left []string
		for _, sym := range missing {
			if p, ok := prices[sym]; ok && p > 0 {
				out[sym] = p
			} else {
				left = append(left, sym)
			}
		}
		if i > 0 && len(left) < len(missing) {
			c.logger.Warn("部分行情由降级源提供", zap.String("source", c.name(i)))
		}
		missing = left
	}
	if len(out) == 0 && len(symbols) > 0 {
		return nil, fmt.Errorf("all price sources failed for %v", missing)
	}
	if len(missing) > 0 {
		c.logger.Warn("部分交易对无法定价，本轮跳过", zap.Strings("symbols", missing))
	}
	return out, nil
}

func (c *ChainSource) GetHistory(ctx context.Context, symbol string, limit int) ([]models.Bar, error) {
	var lastErr error
	for _, src := range c.sources {
		bars, err := src.GetHistory(ctx, symbol, limit)
		if err == nil {
			return bars, nil
		}
		if !errors.Is(err, ErrNoHistory) {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = ErrNoHistory
	}
	return nil, fmt.Errorf("no history for %s: %w", symbol, lastErr)
}

func (c *ChainSource) name(i int) string {
	if i < len(c.names) {
		return c.names[i]
	}
	return fmt.Sprintf("source_%d", i)
}
