package strategy

import (
	"math"

	"paper-quant-bot-go/internal/models"
)

// StatArb 统计套利策略：Z值偏离超过进场阈值时做均值回归进场，
// 偏离收敛到离场阈值内平仓。偏离越极端下注越大。
type StatArb struct {
	cfg *models.StrategyConfig
}

func (s *StatArb) Type() models.StrategyType { return models.StrategyStatArb }

func (s *StatArb) Decide(in Input) (*models.TradeSignal, models.StrategyState) {
	state := models.NewStrategyState(models.StrategyStatArb)
	if in.State.StatArb != nil {
		*state.StatArb = *in.State.StatArb
	}
	z := in.Indicators.ZScore

	if in.Position != nil {
		if sig := checkExit(s.cfg, in.Position, in.Price); sig != nil {
			return sig, state
		}
		// 偏离收敛：回归完成，全部平仓
		if math.Abs(z) <= s.cfg.ExitZScore {
			state.StatArb.EntryZScore = 0
			return sellSignal(s.cfg, in.Position, in.Price, 1, "statarb_converged"), state
		}
		return nil, state
	}

	// 仅做多侧：价格显著低于滚动均值
	if z > -s.cfg.EntryZScore {
		return nil, state
	}
	if in.Indicators.TrendScore < s.cfg.TrendGate {
		return nil, state
	}
	notional := s.cfg.BaseOrderSize
	if z <= -s.cfg.EntryZScore*1.5 {
		notional *= 1.5
	}
	sig := buySignal(s.cfg, in.Cash, in.Price, notional, "statarb_entry")
	if sig != nil {
		state.StatArb.EntryZScore = z
		state.StatArb.EntryPrice = in.Price
	}
	return sig, state
}
