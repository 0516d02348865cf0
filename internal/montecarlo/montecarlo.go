package montecarlo

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"paper-quant-bot-go/internal/models"
)

// Run 蒙特卡洛重采样：对已平仓交易的盈亏列表做 N 次有放回重采样 (每次
// 采样到原列表等长)，累积出合成权益曲线并记录最终收益率，得到结果分布。
// 非空交易列表保证恰好产出 N 个分布值和有限的中位数。
func Run(tradePnls []float64, initialCapital float64, simulations int, confidence float64) (*models.MonteCarloResult, error) {
	if len(tradePnls) == 0 {
		return nil, fmt.Errorf("蒙特卡洛需要非空的交易盈亏列表")
	}
	if simulations <= 0 {
		return nil, fmt.Errorf("模拟次数必须为正数, 当前 %d", simulations)
	}
	if initialCapital <= 0 {
		return nil, fmt.Errorf("初始资金必须为正数, 当前 %.2f", initialCapital)
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}

	rng := rand.New(rand.NewSource(int64(simulations)*7919 + int64(len(tradePnls))))
	distribution := make([]float64, simulations)
	profitable := 0

	for i := 0; i < simulations; i++ {
		equity := initialCapital
		for j := 0; j < len(tradePnls); j++ {
			equity += tradePnls[rng.Intn(len(tradePnls))]
			if equity <= 0 {
				equity = 0 // 破产路径，不允许负权益
				break
			}
		}
		ret := (equity - initialCapital) / initialCapital * 100
		distribution[i] = ret
		if ret > 0 {
			profitable++
		}
	}

	sorted := make([]float64, simulations)
	copy(sorted, distribution)
	sort.Float64s(sorted)

	alpha := (1 - confidence) / 2
	return &models.MonteCarloResult{
		Simulations:       simulations,
		MedianReturn:      percentile(sorted, 0.5),
		ProfitProbability: float64(profitable) / float64(simulations),
		Distribution:      distribution,
		Confidence:        confidence,
		PercentileLow:     percentile(sorted, alpha),
		PercentileHigh:    percentile(sorted, 1-alpha),
	}, nil
}

// percentile 已排序样本的分位数，索引向下取整并钳制在边界内
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Floor(p * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// PnlsFromTrades 从交易日志中抽出已平仓卖出交易的盈亏序列
func PnlsFromTrades(trades []models.TradeRecord) []float64 {
	pnls := make([]float64, 0, len(trades))
	for i := range trades {
		if trades[i].Side == models.Sell {
			pnls = append(pnls, trades[i].Pnl)
		}
	}
	return pnls
}
