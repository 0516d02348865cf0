package strategy

import "paper-quant-bot-go/internal/models"

// DCA 定投策略：每隔固定K线数买入一份基础仓位。
// 深度超卖时加大买入，趋势强烈走弱时跳过本轮；浮盈足够大时部分落袋。
type DCA struct {
	cfg *models.StrategyConfig
}

func (s *DCA) Type() models.StrategyType { return models.StrategyDCA }

func (s *DCA) Decide(in Input) (*models.TradeSignal, models.StrategyState) {
	state := models.NewStrategyState(models.StrategyDCA)
	if in.State.DCA != nil {
		*state.DCA = *in.State.DCA
	}
	state.DCA.RoundsDone++

	// 大幅浮盈时锁定一部分收益，保留上行敞口
	if pct := pnlPct(in.Position, in.Price); pct >= s.cfg.TakeProfitPct*2 {
		if sig := sellSignal(s.cfg, in.Position, in.Price, s.cfg.PartialExitFraction, "dca_take_profit"); sig != nil {
			return sig, state
		}
	}

	if state.DCA.RoundsDone < s.cfg.DCAIntervalBars && !state.DCA.LastBuyTime.IsZero() {
		return nil, state
	}
	// 趋势强烈走弱时跳过本轮定投
	if in.Indicators.TrendScore < s.cfg.TrendGate {
		return nil, state
	}

	notional := s.cfg.BaseOrderSize
	if tier := oversoldTier(in.Indicators.RSI); tier > 1 {
		notional *= tier
	}
	sig := buySignal(s.cfg, in.Cash, in.Price, notional, "dca_buy")
	if sig != nil {
		state.DCA.LastBuyTime = in.Time
		state.DCA.RoundsDone = 0
	}
	return sig, state
}
