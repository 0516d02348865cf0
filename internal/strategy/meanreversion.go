package strategy

import "paper-quant-bot-go/internal/models"

// MeanReversion 均值回归策略：价格跌破布林下轨且RSI超卖时买入，
// 买入规模随超卖程度分层；回到中轨或RSI过热时部分减仓。
type MeanReversion struct {
	cfg *models.StrategyConfig
}

func (s *MeanReversion) Type() models.StrategyType { return models.StrategyMeanReversion }

func (s *MeanReversion) Decide(in Input) (*models.TradeSignal, models.StrategyState) {
	state := models.NewStrategyState(models.StrategyMeanReversion)
	ind := in.Indicators

	if in.Position != nil {
		if sig := checkExit(s.cfg, in.Position, in.Price); sig != nil {
			return sig, state
		}
		// 回归完成：价格回到中轨上方或RSI过热，减仓锁定
		if in.Price >= ind.Bollinger.Middle || ind.RSI > 70 {
			if pnlPct(in.Position, in.Price) > 0 {
				return sellSignal(s.cfg, in.Position, in.Price, s.cfg.PartialExitFraction, "reversion_done"), state
			}
		}
		return nil, state
	}

	if ind.TrendScore < s.cfg.TrendGate {
		return nil, state
	}
	tier := oversoldTier(ind.RSI)
	if tier == 0 || in.Price >= ind.Bollinger.Lower {
		return nil, state
	}
	sig := buySignal(s.cfg, in.Cash, in.Price, s.cfg.BaseOrderSize*tier, "mean_reversion_buy")
	return sig, state
}
