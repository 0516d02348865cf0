package strategy

import "paper-quant-bot-go/internal/models"

// Martingale 马丁格尔策略：超卖时进场，止损后把下次下单倍数加倍。
// 倍数上限 3x；盈利一次重置为 1x，连亏达到上限次数同样重置 (熔断，
// 防止无限加倍耗尽资金)。
type Martingale struct {
	cfg *models.StrategyConfig
}

func (s *Martingale) Type() models.StrategyType { return models.StrategyMartingale }

func (s *Martingale) Decide(in Input) (*models.TradeSignal, models.StrategyState) {
	state := models.NewStrategyState(models.StrategyMartingale)
	if in.State.Martingale != nil {
		*state.Martingale = *in.State.Martingale
	}
	m := state.Martingale
	if m.Multiplier < 1 {
		m.Multiplier = 1
	}

	if in.Position != nil {
		pct := pnlPct(in.Position, in.Price)
		if pct >= s.cfg.TakeProfitPct {
			// 盈利离场：倍数和连亏计数一起重置
			m.Multiplier = 1
			m.LossStreak = 0
			return sellSignal(s.cfg, in.Position, in.Price, 1, "martingale_take_profit"), state
		}
		if pct <= -s.cfg.StopLossPct {
			m.LossStreak++
			if m.LossStreak >= s.cfg.MaxLossStreak {
				// 连亏熔断：放弃加倍，回到基础仓位
				m.Multiplier = 1
				m.LossStreak = 0
			} else {
				m.Multiplier *= 2
				if m.Multiplier > s.cfg.MaxMultiplier {
					m.Multiplier = s.cfg.MaxMultiplier
				}
			}
			return sellSignal(s.cfg, in.Position, in.Price, 1, "martingale_stop_loss"), state
		}
		return nil, state
	}

	if in.Indicators.TrendScore < s.cfg.TrendGate {
		return nil, state
	}
	if oversoldTier(in.Indicators.RSI) == 0 {
		return nil, state
	}
	sig := buySignal(s.cfg, in.Cash, in.Price, s.cfg.BaseOrderSize*m.Multiplier, "martingale_entry")
	if sig != nil {
		m.EntryPrice = in.Price
	}
	return sig, state
}
