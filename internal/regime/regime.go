package regime

import (
	"math"

	"paper-quant-bot-go/internal/indicator"
	"paper-quant-bot-go/internal/models"
)

const (
	// minBars 少于该窗口时不猜测，直接返回 RANGING / 置信度 0
	minBars = 14
	// defaultVolThresholdPct 高波动判定的默认阈值 (日收益率标准差, %)
	defaultVolThresholdPct = 2.5
	// maxHistory 滚动分类历史的保留条数
	maxHistory = 500
)

// Classifier 市场状态分类器：用7/30根K线的涨跌幅和日收益率波动把市场
// 归入 牛/熊 × 高/低波动 四个桶，并维护滚动分类历史以推导经验转移概率。
type Classifier struct {
	volThresholdPct float64
	sentiment       float64 // 外部情绪分 [0,100]，默认中性 50
	history         []models.RegimeClassification
}

// New 创建分类器；volThresholdPct <= 0 时使用默认阈值
func New(volThresholdPct float64) *Classifier {
	if volThresholdPct <= 0 {
		volThresholdPct = defaultVolThresholdPct
	}
	return &Classifier{volThresholdPct: volThresholdPct, sentiment: 50}
}

// SetSentiment 注入外部情绪分 (如恐惧贪婪指数)，参与牛熊判定
func (c *Classifier) SetSentiment(score float64) {
	c.sentiment = score
}

// Detect 对一段K线窗口做一次状态判定并记入滚动历史
func (c *Classifier) Detect(bars []models.Bar) models.RegimeClassification {
	var result models.RegimeClassification
	if len(bars) > 0 {
		result.Time = bars[len(bars)-1].Timestamp
	}

	if len(bars) < minBars {
		result.Regime = models.RegimeRanging
		result.Confidence = 0
		result.RecommendedStrategies = recommend(models.RegimeRanging)
		c.append(result)
		return result
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	change7 := indicator.PctChange(closes, 7)
	lookback30 := 30
	if len(closes) <= lookback30 {
		lookback30 = len(closes) - 1
	}
	change30 := indicator.PctChange(closes, lookback30)
	volatility := dailyVolatilityPct(closes)

	isBull := change30 > 0 && (change7 > -5 || c.sentiment > 45)
	isHighVol := volatility > c.volThresholdPct

	switch {
	case isBull && isHighVol:
		result.Regime = models.RegimeBullHighVol
	case isBull:
		result.Regime = models.RegimeBullLowVol
	case isHighVol:
		result.Regime = models.RegimeBearHighVol
	default:
		result.Regime = models.RegimeBearLowVol
	}

	// 置信度 = 趋势强度与波动率偏离阈值程度的有界混合
	trendStrength := math.Min(math.Abs(change30)/10, 1)
	volDistance := math.Min(math.Abs(volatility-c.volThresholdPct)/c.volThresholdPct, 1)
	result.Confidence = math.Min(0.6*trendStrength+0.4*volDistance, 1)
	result.RecommendedStrategies = recommend(result.Regime)

	c.append(result)
	return result
}

// History 返回滚动分类历史的副本
func (c *Classifier) History() []models.RegimeClassification {
	out := make([]models.RegimeClassification, len(c.history))
	copy(out, c.history)
	return out
}

// TransitionProbabilities 从相邻的历史分类对统计经验转移概率。
// 每个出现过的源状态的出边概率之和为 1。
func (c *Classifier) TransitionProbabilities() map[models.Regime]map[models.Regime]float64 {
	counts := make(map[models.Regime]map[models.Regime]int)
	totals := make(map[models.Regime]int)
	for i := 1; i < len(c.history); i++ {
		from := c.history[i-1].Regime
		to := c.history[i].Regime
		if counts[from] == nil {
			counts[from] = make(map[models.Regime]int)
		}
		counts[from][to]++
		totals[from]++
	}
	probs := make(map[models.Regime]map[models.Regime]float64, len(counts))
	for from, row := range counts {
		probs[from] = make(map[models.Regime]float64, len(row))
		for to, n := range row {
			probs[from][to] = float64(n) / float64(totals[from])
		}
	}
	return probs
}

func (c *Classifier) append(r models.RegimeClassification) {
	c.history = append(c.history, r)
	if len(c.history) > maxHistory {
		c.history = c.history[len(c.history)-maxHistory:]
	}
}

// dailyVolatilityPct 相邻K线收益率的总体标准差 (%)
func dailyVolatilityPct(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	return indicator.StdDev(returns) * 100
}

// recommend 每个市场状态推荐的策略组合
func recommend(r models.Regime) []models.StrategyType {
	switch r {
	case models.RegimeBullLowVol:
		return []models.StrategyType{models.StrategyMomentum, models.StrategyTrailing, models.StrategyDCA}
	case models.RegimeBullHighVol:
		return []models.StrategyType{models.StrategyTrailing, models.StrategyGrid, models.StrategyScalping}
	case models.RegimeBearLowVol:
		return []models.StrategyType{models.StrategyDCA, models.StrategyMeanReversion, models.StrategyStatArb}
	case models.RegimeBearHighVol:
		return []models.StrategyType{models.StrategyScalping, models.StrategyStatArb, models.StrategyFundingArb}
	default:
		return []models.StrategyType{models.StrategyGrid, models.StrategyMeanReversion, models.StrategyScalping}
	}
}
