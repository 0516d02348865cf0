package strategy

import "paper-quant-bot-go/internal/models"

// FundingArb 资金费率套利的现货侧模拟：在低波动、趋势中性的市况下持有
// 小仓位收取周期性资金费 (按配置的费率和间隔模拟)，趋势明显走弱或
// 收满一轮周期后离场。波动放大会抵消费率收益，因此高波动时不进场。
type FundingArb struct {
	cfg *models.StrategyConfig
}

func (s *FundingArb) Type() models.StrategyType { return models.StrategyFundingArb }

// fundingMaxCycles 收满该轮数后落袋离场
const fundingMaxCycles = 6

func (s *FundingArb) Decide(in Input) (*models.TradeSignal, models.StrategyState) {
	state := models.NewStrategyState(models.StrategyFundingArb)
	if in.State.FundingArb != nil {
		*state.FundingArb = *in.State.FundingArb
	}
	f := state.FundingArb
	ind := in.Indicators

	// 相对价格的波动率，用于判断市况是否足够平静
	volRatio := 0.0
	if in.Price > 0 {
		volRatio = ind.ATR / in.Price
	}

	if in.Position != nil {
		if sig := checkExit(s.cfg, in.Position, in.Price); sig != nil {
			f.FundingCycles = 0
			f.AccruedFundingPct = 0
			return sig, state
		}
		f.FundingCycles++
		// 每收满一个费率间隔，按配置的费率记入一次模拟资金费
		if f.FundingCycles%s.cfg.FundingIntervalBars == 0 {
			f.AccruedFundingPct += s.cfg.FundingRatePct
		}
		// 趋势破坏：市价立即离场
		if ind.TrendScore <= -0.5 {
			f.FundingCycles = 0
			f.AccruedFundingPct = 0
			return sellSignal(s.cfg, in.Position, in.Price, 1, "funding_trend_break"), state
		}
		// 累计费率收满目标后挂单落袋离场
		if f.AccruedFundingPct >= s.cfg.FundingRatePct*fundingMaxCycles {
			f.FundingCycles = 0
			f.AccruedFundingPct = 0
			return asMaker(sellSignal(s.cfg, in.Position, in.Price, 1, "funding_cycle_done")), state
		}
		return nil, state
	}

	// 进场条件：趋势中性偏多、波动温和
	if ind.TrendScore < s.cfg.TrendGate || ind.TrendScore > 0.5 {
		return nil, state
	}
	if volRatio > 0.03 {
		return nil, state
	}
	sig := asMaker(buySignal(s.cfg, in.Cash, in.Price, s.cfg.BaseOrderSize, "funding_entry"))
	if sig != nil {
		f.EntryPrice = in.Price
		f.FundingCycles = 0
		f.AccruedFundingPct = 0
	}
	return sig, state
}
