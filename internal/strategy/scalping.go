package strategy

import "paper-quant-bot-go/internal/models"

// Scalping 剥头皮策略：用快速RSI和收紧的布林带捕捉短促回调，
// 止盈/止损阈值都减半，进场之间有最小间隔K线数限制。
type Scalping struct {
	cfg *models.StrategyConfig
}

func (s *Scalping) Type() models.StrategyType { return models.StrategyScalping }

func (s *Scalping) Decide(in Input) (*models.TradeSignal, models.StrategyState) {
	state := models.NewStrategyState(models.StrategyScalping)
	if in.State.Scalping != nil {
		*state.Scalping = *in.State.Scalping
	}
	sc := state.Scalping
	if sc.CooldownBars > 0 {
		sc.CooldownBars--
	}

	if in.Position != nil {
		pct := pnlPct(in.Position, in.Price)
		// 短线交易：比常规阈值更快地锁定微小收益
		if pct >= s.cfg.TakeProfitPct/2 {
			return sellSignal(s.cfg, in.Position, in.Price, 1, "scalp_take_profit"), state
		}
		if pct <= -s.cfg.StopLossPct/2 {
			return sellSignal(s.cfg, in.Position, in.Price, 1, "scalp_stop_loss"), state
		}
		return nil, state
	}

	if sc.CooldownBars > 0 {
		return nil, state
	}
	ind := in.Indicators
	if ind.TrendScore < s.cfg.TrendGate {
		return nil, state
	}
	if ind.RSIFast >= 30 || in.Price >= ind.BollingerT.Lower {
		return nil, state
	}
	sig := buySignal(s.cfg, in.Cash, in.Price, s.cfg.BaseOrderSize, "scalp_entry")
	if sig != nil {
		sc.LastEntryTime = in.Time
		sc.EntryPrice = in.Price
		sc.CooldownBars = s.cfg.ScalpMinGapBars
	}
	return sig, state
}
