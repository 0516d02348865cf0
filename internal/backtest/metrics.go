package backtest

import (
	"math"
	"sort"
	"time"

	"paper-quant-bot-go/internal/models"
)

// profitFactorCap grossLoss 为 0 时 profitFactor 取的有限哨兵值 (不是无穷大)
const profitFactorCap = 9999

// ComputeMetrics 对已平仓的卖出交易和权益曲线一次性计算全部性能指标
func ComputeMetrics(initialCapital float64, trades []models.TradeRecord, curve []models.EquityPoint) *models.Metrics {
	m := &models.Metrics{InitialBalance: initialCapital}
	if len(curve) > 0 {
		m.FinalBalance = curve[len(curve)-1].Value
	} else {
		m.FinalBalance = initialCapital
	}

	var grossProfit, grossLoss float64
	var totalHold time.Duration
	for i := range trades {
		t := &trades[i]
		m.TotalFees += t.Fee
		if t.Side != models.Sell {
			continue
		}
		m.TotalTrades++
		m.TotalPnl += t.Pnl
		totalHold += t.HoldTime
		if t.Pnl > 0 {
			m.WinningTrades++
			grossProfit += t.Pnl
		} else {
			m.LosingTrades++
			grossLoss += -t.Pnl
		}
	}

	if initialCapital > 0 {
		m.TotalReturnPct = m.TotalPnl / initialCapital * 100
	}
	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
		m.Expectancy = m.TotalPnl / float64(m.TotalTrades)
		m.AvgHoldTime = totalHold / time.Duration(m.TotalTrades)
	}
	if m.WinningTrades > 0 {
		m.AvgWin = grossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = grossLoss / float64(m.LosingTrades)
	}
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	} else if grossProfit > 0 {
		m.ProfitFactor = profitFactorCap
	}

	m.MaxDrawdownPct = maxDrawdown(curve) * 100

	daily := dailyReturns(curve)
	mean, std := meanStd(daily)
	if std > 0 {
		m.SharpeRatio = mean / std * math.Sqrt(365)
	}
	if down := downsideDev(daily); down > 0 {
		m.SortinoRatio = mean / down * math.Sqrt(365)
	}
	if m.MaxDrawdownPct > 0 && len(curve) > 1 {
		days := curve[len(curve)-1].Date.Sub(curve[0].Date).Hours() / 24
		if days >= 1 {
			annualized := m.TotalReturnPct * 365 / days
			m.CalmarRatio = annualized / m.MaxDrawdownPct
		}
	}
	return m
}

// maxDrawdown 权益曲线的最大回撤比例，恒 >= 0；
// 单调不减的曲线回撤为 0
func maxDrawdown(curve []models.EquityPoint) float64 {
	if len(curve) < 2 {
		return 0
	}
	peak := curve[0].Value
	maxDD := 0.0
	for _, p := range curve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p.Value) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// dailyReturns 把权益曲线按自然日折叠成日收益率序列
func dailyReturns(curve []models.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	byDay := make(map[string]float64)
	days := make([]string, 0)
	for _, p := range curve {
		key := p.Date.Format("2006-01-02")
		if _, ok := byDay[key]; !ok {
			days = append(days, key)
		}
		byDay[key] = p.Value // 每日收盘权益覆盖前值
	}
	sort.Strings(days)
	returns := make([]float64, 0, len(days))
	for i := 1; i < len(days); i++ {
		prev := byDay[days[i-1]]
		if prev == 0 {
			continue
		}
		returns = append(returns, (byDay[days[i]]-prev)/prev)
	}
	return returns
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}

// downsideDev 仅对负收益计算的下行标准差 (Sortino 的分母)
func downsideDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		if v < 0 {
			sum += v * v
		}
	}
	return math.Sqrt(sum / float64(len(values)))
}
