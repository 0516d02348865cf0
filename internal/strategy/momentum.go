package strategy

import "paper-quant-bot-go/internal/models"

// Momentum 动量策略：MACD柱由负转正且趋势分达标时进场，
// 柱值掉头转负或触发止盈/止损时离场。状态携带上一根K线的柱值。
type Momentum struct {
	cfg *models.StrategyConfig
}

func (s *Momentum) Type() models.StrategyType { return models.StrategyMomentum }

func (s *Momentum) Decide(in Input) (*models.TradeSignal, models.StrategyState) {
	state := models.NewStrategyState(models.StrategyMomentum)
	if in.State.Momentum != nil {
		*state.Momentum = *in.State.Momentum
	}
	m := state.Momentum
	hist := in.Indicators.MACDHist
	prevHist, hadPrev := m.PrevHist, m.HasPrev
	m.PrevHist = hist
	m.HasPrev = true

	if in.Position != nil {
		if sig := checkExit(s.cfg, in.Position, in.Price); sig != nil {
			return sig, state
		}
		// 动量衰竭：柱值由正转负，全平
		if hadPrev && prevHist > 0 && hist <= 0 {
			return sellSignal(s.cfg, in.Position, in.Price, 1, "momentum_faded"), state
		}
		return nil, state
	}

	// 进场：柱值由非正转正 (动量启动)，且趋势分高于门槛
	if !hadPrev || prevHist > 0 || hist <= 0 {
		return nil, state
	}
	if in.Indicators.TrendScore < s.cfg.TrendGate {
		return nil, state
	}

	notional := s.cfg.BaseOrderSize
	// 趋势越强下注越大
	if in.Indicators.TrendScore >= 0.5 {
		notional *= 1.5
	}
	sig := buySignal(s.cfg, in.Cash, in.Price, notional, "momentum_entry")
	if sig != nil {
		m.EntryPrice = in.Price
	}
	return sig, state
}
