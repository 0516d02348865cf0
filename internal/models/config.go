package models

import "fmt"

// Config 结构体定义了引擎的所有配置参数
type Config struct {
	Symbol            string   `json:"symbol"`             // 回测/单机模式的交易对，如 "BTCUSDT"
	Symbols           []string `json:"symbols,omitempty"`  // 实盘循环关注的全部交易对
	InitialInvestment float64  `json:"initial_investment"` // 初始资金 (USDT)

	// 回测引擎特定配置
	TakerFeeRate     float64 `json:"taker_fee_rate"`     // 吃单手续费率
	MakerFeeRate     float64 `json:"maker_fee_rate"`     // 挂单手续费率
	SlippageRate     float64 `json:"slippage_rate"`      // 基础滑点率
	MaxSlippageRate  float64 `json:"max_slippage_rate"`  // 动态滑点上限
	WarmupBars       int     `json:"warmup_bars"`        // 指标预热所需的最少K线数
	WalkForwardRatio float64 `json:"walk_forward_ratio"` // 样本内/样本外切分比例，0 表示不启用

	// 蒙特卡洛配置
	MonteCarloRuns       int     `json:"monte_carlo_runs"`
	MonteCarloConfidence float64 `json:"monte_carlo_confidence"`

	// 市场状态分类器配置
	RegimeVolThresholdPct float64 `json:"regime_vol_threshold_pct"` // 高波动判定阈值 (%)

	// 持久化与实盘循环配置
	DBPath           string             `json:"db_path"`            // BadgerDB 路径 (机器人注册表+锁)
	TradeDBPath      string             `json:"trade_db_path"`      // SQLite 路径 (成交日志+组合)
	LockTTLSec       int                `json:"lock_ttl_sec"`       // 租约TTL，需短于调度周期
	CycleIntervalSec int                `json:"cycle_interval_sec"` // 实盘循环调度周期
	StaticPrices     map[string]float64 `json:"static_prices"`      // 最后一级降级价格表

	Strategy     StrategyConfig `json:"strategy"`      // 回测模式使用的策略配置
	StrategyName StrategyType   `json:"strategy_name"` // 回测模式使用的策略
	LogConfig    LogConfig      `json:"log"`           // 日志配置
}

// FeeRate 返回成交应使用的手续费率：挂单成交且配置了挂单费率时
// 用挂单费率，否则按吃单费率计费
func (c *Config) FeeRate(maker bool) float64 {
	if maker && c.MakerFeeRate > 0 {
		return c.MakerFeeRate
	}
	return c.TakerFeeRate
}

// LogConfig 定义了日志相关的配置
type LogConfig struct {
	Level      string `json:"level"`       // 日志级别, e.g., "debug", "info", "warn", "error"
	Output     string `json:"output"`      // 输出模式: "console", "file", "both"
	File       string `json:"file"`        // 日志文件路径
	MaxSize    int    `json:"max_size"`    // 单个日志文件的最大大小 (MB)
	MaxBackups int    `json:"max_backups"` // 保留的旧日志文件最大数量
	MaxAge     int    `json:"max_age"`     // 旧日志文件的最大保留天数
	Compress   bool   `json:"compress"`    // 是否压缩旧日志文件
}

// WeightedStrategy 组合策略中的一个子策略及其投票权重
type WeightedStrategy struct {
	Type   StrategyType `json:"type"`
	Weight float64      `json:"weight"`
}

// StrategyConfig 所有策略共用的配置结构。创建后在机器人生命周期内不变。
type StrategyConfig struct {
	BaseOrderSize       float64 `json:"base_order_size"`       // 基础下单名义价值 (USDT)
	MinNotional         float64 `json:"min_notional"`          // 最小下单名义价值，低于该值拒绝下单
	TakeProfitPct       float64 `json:"take_profit_pct"`       // 止盈阈值 (比例，如 0.04)
	StopLossPct         float64 `json:"stop_loss_pct"`         // 止损阈值 (比例，如 0.02)
	PartialExitFraction float64 `json:"partial_exit_fraction"` // 部分止盈的平仓比例
	TrendGate           float64 `json:"trend_gate"`            // 进场所需的最低趋势分
	MinTradeIntervalSec int     `json:"min_trade_interval_sec"`

	// DCA
	DCAIntervalBars int `json:"dca_interval_bars"`

	// GRID
	GridSpacing      float64 `json:"grid_spacing"`       // 网格间距比例
	GridCooldownBars int     `json:"grid_cooldown_bars"` // 止损后的冷却K线数

	// TRAILING
	TrailATRMultiplier float64 `json:"trail_atr_multiplier"`

	// MARTINGALE
	MaxMultiplier float64 `json:"max_multiplier"`
	MaxLossStreak int     `json:"max_loss_streak"`

	// SCALPING
	ScalpMinGapBars int `json:"scalp_min_gap_bars"`

	// STAT_ARB
	EntryZScore float64 `json:"entry_z_score"`
	ExitZScore  float64 `json:"exit_z_score"`

	// FUNDING_ARB
	FundingRatePct      float64 `json:"funding_rate_pct"`
	FundingIntervalBars int     `json:"funding_interval_bars"`

	// RL_AGENT
	RLWeights []float64 `json:"rl_weights,omitempty"`

	// ENSEMBLE
	SubStrategies []WeightedStrategy `json:"sub_strategies,omitempty"`
	BuyThreshold  float64            `json:"buy_threshold"`
	SellThreshold float64            `json:"sell_threshold"`
}

// Normalize 为未设置的字段填入默认值
func (c *StrategyConfig) Normalize() {
	if c.BaseOrderSize <= 0 {
		c.BaseOrderSize = 100
	}
	if c.MinNotional <= 0 {
		c.MinNotional = 20
	}
	if c.TakeProfitPct <= 0 {
		c.TakeProfitPct = 0.04
	}
	if c.StopLossPct <= 0 {
		c.StopLossPct = 0.02
	}
	if c.PartialExitFraction <= 0 || c.PartialExitFraction > 1 {
		c.PartialExitFraction = 0.5
	}
	if c.TrendGate == 0 {
		c.TrendGate = -0.3
	}
	if c.DCAIntervalBars <= 0 {
		c.DCAIntervalBars = 24
	}
	if c.GridSpacing <= 0 {
		c.GridSpacing = 0.02
	}
	if c.GridCooldownBars <= 0 {
		c.GridCooldownBars = 10
	}
	if c.TrailATRMultiplier <= 0 {
		c.TrailATRMultiplier = 2
	}
	if c.MaxMultiplier <= 0 {
		c.MaxMultiplier = 3
	}
	if c.MaxLossStreak <= 0 {
		c.MaxLossStreak = 3
	}
	if c.ScalpMinGapBars <= 0 {
		c.ScalpMinGapBars = 3
	}
	if c.EntryZScore == 0 {
		c.EntryZScore = 2
	}
	if c.ExitZScore == 0 {
		c.ExitZScore = 0.5
	}
	if c.FundingRatePct == 0 {
		c.FundingRatePct = 0.01
	}
	if c.FundingIntervalBars <= 0 {
		c.FundingIntervalBars = 8
	}
	if c.BuyThreshold <= 0 {
		c.BuyThreshold = 0.3
	}
	if c.SellThreshold <= 0 {
		c.SellThreshold = 0.3
	}
}

// Validate 在机器人创建时校验配置；配置错误是致命的，必须在任何模拟运行前暴露给调用方
func (c *StrategyConfig) Validate(typ StrategyType) error {
	switch typ {
	case StrategyEnsemble:
		if len(c.SubStrategies) < 2 {
			return fmt.Errorf("ENSEMBLE 至少需要2个子策略, 当前 %d 个", len(c.SubStrategies))
		}
		for _, sub := range c.SubStrategies {
			if sub.Type == StrategyEnsemble {
				return fmt.Errorf("ENSEMBLE 不允许嵌套自身")
			}
			if sub.Weight <= 0 {
				return fmt.Errorf("子策略 %s 的权重必须为正数", sub.Type)
			}
		}
	case StrategyMartingale:
		if c.MaxMultiplier > 3 {
			return fmt.Errorf("马丁格尔倍数上限不能超过 3x, 当前 %.1f", c.MaxMultiplier)
		}
	}
	return nil
}
