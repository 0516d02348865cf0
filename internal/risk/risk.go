package risk

import (
	"math"
	"sort"

	"paper-quant-bot-go/internal/models"
)

// KellyCap Kelly系数的上限 (四分之一Kelly，约束方差)
const KellyCap = 0.25

// PositionSize 固定比例风险仓位：riskAmount = equity × riskPct/100，
// 仓位 = riskAmount / |entryPrice - stopPrice|。入参非法时返回 0。
func PositionSize(equity, riskPct, entryPrice, stopPrice float64) float64 {
	if equity <= 0 || riskPct <= 0 {
		return 0
	}
	dist := math.Abs(entryPrice - stopPrice)
	if dist == 0 || math.IsNaN(dist) || math.IsInf(dist, 0) {
		return 0
	}
	return equity * riskPct / 100 / dist
}

// ATRStop ATR倍数止损价：多头 entry - atr×mult，空头 entry + atr×mult
func ATRStop(entryPrice, atr, multiplier float64, long bool) float64 {
	if long {
		return entryPrice - atr*multiplier
	}
	return entryPrice + atr*multiplier
}

// Kelly 凯利公式 f* = winRate - (1-winRate)/(avgWin/avgLoss)，
// 结果钳制到 [0, 0.25]
func Kelly(winRate, avgWin, avgLoss float64) float64 {
	if avgLoss <= 0 || avgWin <= 0 || winRate <= 0 {
		return 0
	}
	ratio := avgWin / avgLoss
	f := winRate - (1-winRate)/ratio
	if f < 0 {
		return 0
	}
	if f > KellyCap {
		return KellyCap
	}
	return f
}

// HistoricalVaR 历史法VaR：给定收益率样本在 confidence 水平下的损失阈值，
// 按资金规模缩放。返回非负损失额；样本为空时返回 0。
func HistoricalVaR(returns []float64, confidence, capital float64) float64 {
	if len(returns) == 0 || capital <= 0 {
		return 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)
	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	loss := -sorted[idx] * capital
	if loss < 0 {
		return 0
	}
	return loss
}

// VolScaledSize 波动率缩放仓位：与当前ATR相对参考ATR的比值成反比
func VolScaledSize(baseSize, atr, refATR float64) float64 {
	if baseSize <= 0 {
		return 0
	}
	if atr <= 0 || refATR <= 0 {
		return baseSize
	}
	return baseSize * refATR / atr
}

// TrailingStop 多头跟踪止损价 = 入场以来最高价 - atr×multiplier
func TrailingStop(highSinceEntry, atr, multiplier float64) float64 {
	return highSinceEntry - atr*multiplier
}

// TrailingStopTriggered 判断跟踪止损是否触发。
// 边界为闭区间：currentPrice == stopPrice 时触发。
func TrailingStopTriggered(currentPrice, stopPrice float64) bool {
	return currentPrice <= stopPrice
}

// TakeProfitLevel 分层止盈中的一个档位
type TakeProfitLevel struct {
	Price    float64 // 触发价
	Fraction float64 // 触发时平仓的比例
}

// TieredTakeProfits 按递增的R倍数返回方向感知的分层止盈档位。
// 多头档位在入场价上方，空头在下方；rUnit 是1R对应的价格距离。
func TieredTakeProfits(entryPrice, rUnit float64, long bool) []TakeProfitLevel {
	if entryPrice <= 0 || rUnit <= 0 {
		return nil
	}
	multiples := []float64{1, 2, 3}
	fractions := []float64{0.4, 0.3, 0.3}
	levels := make([]TakeProfitLevel, 0, len(multiples))
	for i, r := range multiples {
		price := entryPrice + r*rUnit
		if !long {
			price = entryPrice - r*rUnit
		}
		levels = append(levels, TakeProfitLevel{Price: price, Fraction: fractions[i]})
	}
	return levels
}

// StatsFromTrades 从已平仓交易中提取胜率和平均盈亏，供Kelly/仓位计算使用
func StatsFromTrades(trades []models.TradeRecord) (winRate, avgWin, avgLoss float64) {
	var wins, losses int
	var grossWin, grossLoss float64
	for i := range trades {
		if trades[i].Side != models.Sell {
			continue
		}
		if trades[i].Pnl > 0 {
			wins++
			grossWin += trades[i].Pnl
		} else if trades[i].Pnl < 0 {
			losses++
			grossLoss += -trades[i].Pnl
		}
	}
	total := wins + losses
	if total == 0 {
		return 0, 0, 0
	}
	winRate = float64(wins) / float64(total)
	if wins > 0 {
		avgWin = grossWin / float64(wins)
	}
	if losses > 0 {
		avgLoss = grossLoss / float64(losses)
	}
	return winRate, avgWin, avgLoss
}
