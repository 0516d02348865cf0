package strategy

import (
	"paper-quant-bot-go/internal/models"
	"paper-quant-bot-go/internal/risk"
)

// Trailing 跟踪止损策略：强趋势确认后进场，状态携带入场以来的最高价水位，
// 价格回落到 水位 - ATR×倍数 时全平。止损边界为闭区间 (价格等于止损价即触发)。
type Trailing struct {
	cfg *models.StrategyConfig
}

func (s *Trailing) Type() models.StrategyType { return models.StrategyTrailing }

func (s *Trailing) Decide(in Input) (*models.TradeSignal, models.StrategyState) {
	state := models.NewStrategyState(models.StrategyTrailing)
	if in.State.Trailing != nil {
		*state.Trailing = *in.State.Trailing
	}
	t := state.Trailing

	if in.Position != nil {
		if in.Price > t.HighWaterMark {
			t.HighWaterMark = in.Price
		}
		stop := risk.TrailingStop(t.HighWaterMark, in.Indicators.ATR, s.cfg.TrailATRMultiplier)
		if risk.TrailingStopTriggered(in.Price, stop) {
			t.HighWaterMark = 0
			t.EntryPrice = 0
			return sellSignal(s.cfg, in.Position, in.Price, 1, "trailing_stop"), state
		}
		return nil, state
	}

	// 进场：明确的上升趋势且动量为正，避免追入过热区
	ind := in.Indicators
	if ind.TrendScore < 0.5 || ind.MACDHist <= 0 || ind.RSI > 75 {
		return nil, state
	}
	sig := buySignal(s.cfg, in.Cash, in.Price, s.cfg.BaseOrderSize, "trailing_entry")
	if sig != nil {
		t.HighWaterMark = in.Price
		t.EntryPrice = in.Price
	}
	return sig, state
}
