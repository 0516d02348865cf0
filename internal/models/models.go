package models

import (
	"math"
	"time"
)

// Side 定义了交易方向的类型
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Bar 定义了一根K线 (OHLCV)，按时间戳升序排列，引擎不会对输入重新排序
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// BollingerBand 布林带的三条轨道，非退化窗口下恒有 Upper > Middle > Lower
type BollingerBand struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// IndicatorSnapshot 是从截至第i根K线的历史前缀计算出的只读指标快照。
// 每一步重新计算，计算后不再修改。
type IndicatorSnapshot struct {
	Price      float64       `json:"price"`
	RSI        float64       `json:"rsi"`      // 14周期
	RSIFast    float64       `json:"rsi_fast"` // 7周期
	EMA9       float64       `json:"ema9"`
	EMA21      float64       `json:"ema21"`
	MACDLine   float64       `json:"macd_line"`
	MACDSignal float64       `json:"macd_signal"`
	MACDHist   float64       `json:"macd_hist"`
	Bollinger  BollingerBand `json:"bollinger"`       // (20, 2.0)
	BollingerT BollingerBand `json:"bollinger_tight"` // (20, 1.0)，短线策略使用
	ATR        float64       `json:"atr"`
	ZScore     float64       `json:"z_score"`
	TrendScore float64       `json:"trend_score"` // 离散趋势分 {-1,-0.5,0,0.5,1}
	Change1h   float64       `json:"change_1h"`   // 最近1根K线的涨跌幅 (%)
	Change24h  float64       `json:"change_24h"`  // 最近24根K线的涨跌幅 (%)
	AvgVolume  float64       `json:"avg_volume"`  // 20周期平均成交量，用于动态滑点
}

// Position 定义了单个持仓，由 Portfolio 独占管理。
// 不变量: Quantity >= 0；数量接近0的仓位会被移除而不是保留零行。
type Position struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
}

// TradeSignal 是策略决策的纯输出，本身不带任何副作用；nil 表示 HOLD
type TradeSignal struct {
	Side     Side    `json:"side"`
	Quantity float64 `json:"quantity"`
	Cost     float64 `json:"cost"`            // 名义价值 (USDT)
	Maker    bool    `json:"maker,omitempty"` // 以挂单方式成交，按挂单费率计费
	Reason   string  `json:"reason"`
}

// TradeRecord 是不可变的成交日志条目，追加后不再修改
type TradeRecord struct {
	ID       string        `json:"id"`
	Time     time.Time     `json:"time"`
	Side     Side          `json:"side"`
	Price    float64       `json:"price"`
	Quantity float64       `json:"quantity"`
	Pnl      float64       `json:"pnl"`
	Fee      float64       `json:"fee"`
	Reason   string        `json:"reason"`
	HoldTime time.Duration `json:"hold_time,omitempty"` // 仅卖出记录
}

// PnlPercent 返回本笔卖出相对开仓成本的收益率 (%)
func (t *TradeRecord) PnlPercent() float64 {
	cost := t.Price*t.Quantity - t.Pnl
	if cost <= 0 {
		return 0
	}
	return t.Pnl / cost * 100
}

// EquityPoint 权益曲线上的一个点
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Metrics 存储一次回测运行计算出的所有性能指标
type Metrics struct {
	InitialBalance float64       `json:"initial_balance"`
	FinalBalance   float64       `json:"final_balance"`
	TotalPnl       float64       `json:"total_pnl"`
	TotalReturnPct float64       `json:"total_return_pct"`
	MaxDrawdownPct float64       `json:"max_drawdown_pct"`
	SharpeRatio    float64       `json:"sharpe_ratio"`
	SortinoRatio   float64       `json:"sortino_ratio"`
	CalmarRatio    float64       `json:"calmar_ratio"`
	TotalTrades    int           `json:"total_trades"`
	WinningTrades  int           `json:"winning_trades"`
	LosingTrades   int           `json:"losing_trades"`
	WinRate        float64       `json:"win_rate"`
	ProfitFactor   float64       `json:"profit_factor"`
	Expectancy     float64       `json:"expectancy"`
	AvgWin         float64       `json:"avg_win"`
	AvgLoss        float64       `json:"avg_loss"`
	AvgHoldTime    time.Duration `json:"avg_hold_time"`
	TotalFees      float64       `json:"total_fees"`
}

// BacktestResult 一次回测的完整结果，创建后不再修改
type BacktestResult struct {
	Metrics            *Metrics      `json:"metrics"`
	EquityCurve        []EquityPoint `json:"equity_curve"`
	Trades             []TradeRecord `json:"trades"`
	InSampleMetrics    *Metrics      `json:"in_sample_metrics,omitempty"`
	OutOfSampleMetrics *Metrics      `json:"out_of_sample_metrics,omitempty"`
}

// MonteCarloResult 蒙特卡洛重采样的结果分布
type MonteCarloResult struct {
	Simulations       int       `json:"simulations"`
	MedianReturn      float64   `json:"median_return"`
	ProfitProbability float64   `json:"profit_probability"`
	Distribution      []float64 `json:"distribution"`
	Confidence        float64   `json:"confidence"`
	PercentileLow     float64   `json:"percentile_low"`
	PercentileHigh    float64   `json:"percentile_high"`
}

// Regime 市场状态桶 (牛/熊 × 高/低波动)，数据不足时为 RANGING
type Regime string

const (
	RegimeBullHighVol Regime = "BULL_HIGH_VOL"
	RegimeBullLowVol  Regime = "BULL_LOW_VOL"
	RegimeBearHighVol Regime = "BEAR_HIGH_VOL"
	RegimeBearLowVol  Regime = "BEAR_LOW_VOL"
	RegimeRanging     Regime = "RANGING"
)

// RegimeClassification 一次市场状态判定
type RegimeClassification struct {
	Regime                Regime         `json:"regime"`
	Confidence            float64        `json:"confidence"`
	RecommendedStrategies []StrategyType `json:"recommended_strategies"`
	Time                  time.Time      `json:"time"`
}

// IsFinitePositive 检查数值是否为有限正数，所有下单路径共用的防御
func IsFinitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
