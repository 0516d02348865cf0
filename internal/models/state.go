package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// StrategyType 枚举了所有可用的策略变体，集合是封闭的
type StrategyType string

const (
	StrategyDCA           StrategyType = "DCA"
	StrategyGrid          StrategyType = "GRID"
	StrategyMomentum      StrategyType = "MOMENTUM"
	StrategyMeanReversion StrategyType = "MEAN_REVERSION"
	StrategyTrailing      StrategyType = "TRAILING"
	StrategyMartingale    StrategyType = "MARTINGALE"
	StrategyScalping      StrategyType = "SCALPING"
	StrategyStatArb       StrategyType = "STAT_ARB"
	StrategyFundingArb    StrategyType = "FUNDING_ARB"
	StrategyRLAgent       StrategyType = "RL_AGENT"
	StrategyEnsemble      StrategyType = "ENSEMBLE"
)

// AllStrategyTypes 返回封闭变体集合，顺序固定
func AllStrategyTypes() []StrategyType {
	return []StrategyType{
		StrategyDCA, StrategyGrid, StrategyMomentum, StrategyMeanReversion,
		StrategyTrailing, StrategyMartingale, StrategyScalping,
		StrategyStatArb, StrategyFundingArb, StrategyRLAgent, StrategyEnsemble,
	}
}

// DCAState 定投策略的周期状态
type DCAState struct {
	LastBuyTime time.Time `json:"last_buy_time"`
	RoundsDone  int       `json:"rounds_done"`
}

// GridState 网格策略状态：最近触发的网格档位与止损后的冷却计数
type GridState struct {
	LastLevel    int     `json:"last_level"`
	AnchorPrice  float64 `json:"anchor_price"`
	CooldownBars int     `json:"cooldown_bars"`
}

// MomentumState 动量策略状态：上一根K线的MACD柱值
type MomentumState struct {
	PrevHist   float64 `json:"prev_hist"`
	HasPrev    bool    `json:"has_prev"`
	EntryPrice float64 `json:"entry_price"`
}

// TrailingState 跟踪止损策略状态：入场以来的最高价水位
type TrailingState struct {
	HighWaterMark float64 `json:"high_water_mark"`
	EntryPrice    float64 `json:"entry_price"`
}

// MartingaleState 马丁格尔状态。
// 倍数上限 3x；盈利一次或连亏3次后重置为 1x (连亏熔断，防止无限加倍)。
type MartingaleState struct {
	Multiplier float64 `json:"multiplier"`
	LossStreak int     `json:"loss_streak"`
	EntryPrice float64 `json:"entry_price"`
}

// ScalpingState 剥头皮策略状态：进场限频计数与最近进场信息
type ScalpingState struct {
	LastEntryTime time.Time `json:"last_entry_time"`
	EntryPrice    float64   `json:"entry_price"`
	CooldownBars  int       `json:"cooldown_bars"`
}

// StatArbState 统计套利策略状态：进场时的Z值
type StatArbState struct {
	EntryZScore float64 `json:"entry_z_score"`
	EntryPrice  float64 `json:"entry_price"`
}

// FundingArbState 资金费率套利状态：当前模拟费率周期计数与累计费率收入
type FundingArbState struct {
	FundingCycles     int     `json:"funding_cycles"`
	AccruedFundingPct float64 `json:"accrued_funding_pct"`
	EntryPrice        float64 `json:"entry_price"`
}

// RLAgentState 加权打分代理的状态：各特征权重 (原始实现中由训练得到，
// 这里按指数加权的近期表现在线微调)
type RLAgentState struct {
	Weights    []float64 `json:"weights"`
	LastScore  float64   `json:"last_score"`
	EntryPrice float64   `json:"entry_price"`
}

// EnsembleState 组合策略状态：按子策略类型保存各自的独立状态
type EnsembleState struct {
	SubStates map[StrategyType]*StrategyState `json:"sub_states"`
}

// StrategyState 是带标签的状态联合体：Type 指明变体，对应的指针字段非nil。
// 按策略标签反序列化，绝不按字段探测。每次决策调用整体替换而非合并。
type StrategyState struct {
	Type       StrategyType     `json:"type"`
	DCA        *DCAState        `json:"dca,omitempty"`
	Grid       *GridState       `json:"grid,omitempty"`
	Momentum   *MomentumState   `json:"momentum,omitempty"`
	Trailing   *TrailingState   `json:"trailing,omitempty"`
	Martingale *MartingaleState `json:"martingale,omitempty"`
	Scalping   *ScalpingState   `json:"scalping,omitempty"`
	StatArb    *StatArbState    `json:"stat_arb,omitempty"`
	FundingArb *FundingArbState `json:"funding_arb,omitempty"`
	RLAgent    *RLAgentState    `json:"rl_agent,omitempty"`
	Ensemble   *EnsembleState   `json:"ensemble,omitempty"`
}

// NewStrategyState 按标签创建首次调用前的空状态
func NewStrategyState(typ StrategyType) StrategyState {
	s := StrategyState{Type: typ}
	switch typ {
	case StrategyDCA:
		s.DCA = &DCAState{}
	case StrategyGrid:
		s.Grid = &GridState{}
	case StrategyMomentum:
		s.Momentum = &MomentumState{}
	case StrategyTrailing:
		s.Trailing = &TrailingState{}
	case StrategyMartingale:
		s.Martingale = &MartingaleState{Multiplier: 1}
	case StrategyScalping:
		s.Scalping = &ScalpingState{}
	case StrategyStatArb:
		s.StatArb = &StatArbState{}
	case StrategyFundingArb:
		s.FundingArb = &FundingArbState{}
	case StrategyRLAgent:
		s.RLAgent = &RLAgentState{}
	case StrategyEnsemble:
		s.Ensemble = &EnsembleState{SubStates: make(map[StrategyType]*StrategyState)}
	}
	return s
}

// DecodeStrategyState 按标签反序列化持久化的策略状态。
// 标签与数据不一致时返回错误，而不是退回字段探测。
func DecodeStrategyState(data []byte, expected StrategyType) (StrategyState, error) {
	var s StrategyState
	if len(data) == 0 {
		return NewStrategyState(expected), nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return StrategyState{}, fmt.Errorf("解析策略状态失败: %w", err)
	}
	if s.Type == "" {
		return NewStrategyState(expected), nil
	}
	if s.Type != expected {
		return StrategyState{}, fmt.Errorf("策略状态标签不匹配: 期望 %s, 实际 %s", expected, s.Type)
	}
	return s, nil
}

// BotStatus 机器人运行状态
type BotStatus string

const (
	BotActive BotStatus = "ACTIVE"
	BotPaused BotStatus = "PAUSED"
)

// BotRecord 定义了需要持久化的单个机器人的全部数据。
// Config 在生命周期内不变；State 随每次决策被整体替换。
type BotRecord struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	Strategy       StrategyType   `json:"strategy"`
	Symbol         string         `json:"symbol"`
	Status         BotStatus      `json:"status"`
	Config         StrategyConfig `json:"config"`
	State          StrategyState  `json:"state"`
	LastTradeTime  time.Time      `json:"last_trade_time"`
	CreatedAt      time.Time      `json:"created_at"`
	LastUpdateTime time.Time      `json:"last_update_time"`
}
