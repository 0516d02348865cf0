package indicator

import (
	"math"

	"paper-quant-bot-go/internal/models"
)

// 本包内的所有函数都是无状态的纯数值计算。
// 约定：历史长度不足时返回领域中性的默认值 (RSI 返回 50 等) 而不是报错；
// 所有分母都做零保护。

// SMA 简单移动平均，取 values 尾部 period 个样本
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) == 0 {
		return 0
	}
	if len(values) < period {
		period = len(values)
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMASeries 计算整条指数移动平均序列。
// 前 period 个样本用简单平均做种子，之后按 k = 2/(period+1) 平滑。
// 返回序列与输入等长，种子完成前的位置填充截至该点的简单平均。
func EMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || period <= 0 {
		return out
	}
	k := 2.0 / (float64(period) + 1.0)
	sum := 0.0
	for i, v := range values {
		if i < period {
			sum += v
			out[i] = sum / float64(i+1)
			continue
		}
		out[i] = v*k + out[i-1]*(1-k)
	}
	return out
}

// EMA 返回序列最后一点的指数移动平均
func EMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	s := EMASeries(values, period)
	return s[len(s)-1]
}

// RSI 相对强弱指数 (Wilder 平滑)，值域 [0,100]。
// 历史短于 period+1 时返回中性值 50。
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}
	sumGain, sumLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			sumGain += delta
		} else {
			sumLoss += -delta
		}
	}
	avgGain := sumGain / float64(period)
	avgLoss := sumLoss / float64(period)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50 // 完全横盘
	case avgLoss == 0:
		return 100
	default:
		rs := avgGain / avgLoss
		return 100 - 100/(1+rs)
	}
}

// MACD 返回 MACD 线 (EMA12-EMA26)、信号线 (MACD 的 EMA9) 和柱值
func MACD(closes []float64) (line, signal, hist float64) {
	if len(closes) == 0 {
		return 0, 0, 0
	}
	fast := EMASeries(closes, 12)
	slow := EMASeries(closes, 26)
	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = fast[i] - slow[i]
	}
	sig := EMASeries(macd, 9)
	n := len(closes) - 1
	return macd[n], sig[n], macd[n] - sig[n]
}

// StdDev 总体标准差
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}

// Bollinger 布林带。非退化窗口 (std > 0) 下保证 upper > middle > lower。
func Bollinger(closes []float64, period int, sigma float64) models.BollingerBand {
	if len(closes) == 0 || period <= 0 {
		return models.BollingerBand{}
	}
	window := closes
	if len(closes) > period {
		window = closes[len(closes)-period:]
	}
	mid := SMA(window, period)
	std := StdDev(window)
	return models.BollingerBand{
		Upper:  mid + sigma*std,
		Middle: mid,
		Lower:  mid - sigma*std,
	}
}

// ATR 平均真实波幅 (Wilder 平滑)。历史不足时退化为已有真实波幅的简单平均。
func ATR(highs, lows, closes []float64, period int) float64 {
	n := len(closes)
	if n < 2 || period <= 0 || len(highs) != n || len(lows) != n {
		return 0
	}
	trs := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		tr := highs[i] - lows[i]
		if hc := math.Abs(highs[i] - closes[i-1]); hc > tr {
			tr = hc
		}
		if lc := math.Abs(lows[i] - closes[i-1]); lc > tr {
			tr = lc
		}
		trs = append(trs, tr)
	}
	if len(trs) < period {
		return SMA(trs, len(trs))
	}
	atr := SMA(trs[:period], period)
	for i := period; i < len(trs); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
	}
	return atr
}

// ZScore 当前价相对滚动窗口均值的标准差倍数；std 为 0 时返回 0
func ZScore(closes []float64, period int) float64 {
	if len(closes) == 0 || period <= 0 {
		return 0
	}
	window := closes
	if len(closes) > period {
		window = closes[len(closes)-period:]
	}
	mean := SMA(window, period)
	std := StdDev(window)
	if std == 0 {
		return 0
	}
	return (closes[len(closes)-1] - mean) / std
}

// TrendScore 把20周期EMA在最近5根K线上的涨跌幅离散为 {-1,-0.5,0,0.5,1}。
// 阈值 ±1% / ±3%。几乎所有策略都用这个标量控制风险偏好。
func TrendScore(closes []float64) float64 {
	const lookback = 5
	if len(closes) < lookback+1 {
		return 0
	}
	ema := EMASeries(closes, 20)
	n := len(ema) - 1
	prev := ema[n-lookback]
	if prev == 0 {
		return 0
	}
	changePct := (ema[n] - prev) / prev * 100
	switch {
	case changePct > 3:
		return 1
	case changePct > 1:
		return 0.5
	case changePct < -3:
		return -1
	case changePct < -1:
		return -0.5
	default:
		return 0
	}
}

// PctChange 最近 lookback 根K线的涨跌幅 (%)；历史不足或基准为0时返回 0
func PctChange(closes []float64, lookback int) float64 {
	if lookback <= 0 || len(closes) < lookback+1 {
		return 0
	}
	base := closes[len(closes)-1-lookback]
	if base == 0 {
		return 0
	}
	return (closes[len(closes)-1] - base) / base * 100
}
