package indicator

import "paper-quant-bot-go/internal/models"

// MinWarmup 指标预热所需的最少K线数 (受26周期EMA约束)
const MinWarmup = 26

// Snapshot 从一段按时间升序的K线前缀计算出完整的指标快照。
// 快照是派生数据，调用方不应修改。
func Snapshot(bars []models.Bar) *models.IndicatorSnapshot {
	n := len(bars)
	if n == 0 {
		return &models.IndicatorSnapshot{RSI: 50, RSIFast: 50}
	}

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		volumes[i] = b.Volume
	}

	line, signal, hist := MACD(closes)

	return &models.IndicatorSnapshot{
		Price:      closes[n-1],
		RSI:        RSI(closes, 14),
		RSIFast:    RSI(closes, 7),
		EMA9:       EMA(closes, 9),
		EMA21:      EMA(closes, 21),
		MACDLine:   line,
		MACDSignal: signal,
		MACDHist:   hist,
		Bollinger:  Bollinger(closes, 20, 2.0),
		BollingerT: Bollinger(closes, 20, 1.0),
		ATR:        ATR(highs, lows, closes, 14),
		ZScore:     ZScore(closes, 20),
		TrendScore: TrendScore(closes),
		Change1h:   PctChange(closes, 1),
		Change24h:  PctChange(closes, 24),
		AvgVolume:  SMA(volumes, 20),
	}
}
