package strategy

import (
	"fmt"

	"paper-quant-bot-go/internal/models"
)

// weightedSub 组合中的一个子策略及其投票权重
type weightedSub struct {
	strategy Strategy
	weight   float64
}

// Ensemble 元策略：把同一根K线同时喂给所有子策略，按权重汇总买卖投票。
// normalizedBuy = (Σ买入权重)/(Σ总权重) × 子策略数，达到阈值则买入；
// 下单规模由 (a)同意的子策略占比 与 (b)评分超出阈值的幅度 混合出的置信度
// 缩放。卖出同理按共识缩放平仓比例。两边都不过线时不交易。
type Ensemble struct {
	cfg  *models.StrategyConfig
	subs []weightedSub
}

func (s *Ensemble) Type() models.StrategyType { return models.StrategyEnsemble }

func (s *Ensemble) Decide(in Input) (*models.TradeSignal, models.StrategyState) {
	state := models.NewStrategyState(models.StrategyEnsemble)
	if in.State.Ensemble != nil && in.State.Ensemble.SubStates != nil {
		for k, v := range in.State.Ensemble.SubStates {
			state.Ensemble.SubStates[k] = v
		}
	}

	var totalWeight, buyWeight, sellWeight float64
	var buyVotes, sellVotes int
	count := len(s.subs)

	for _, sub := range s.subs {
		typ := sub.strategy.Type()
		subState, ok := state.Ensemble.SubStates[typ]
		if !ok || subState == nil {
			st := models.NewStrategyState(typ)
			subState = &st
		}
		subIn := in
		subIn.State = *subState

		sig, newState := sub.strategy.Decide(subIn)
		state.Ensemble.SubStates[typ] = &newState

		totalWeight += sub.weight
		if sig == nil {
			continue
		}
		switch sig.Side {
		case models.Buy:
			buyWeight += sub.weight
			buyVotes++
		case models.Sell:
			sellWeight += sub.weight
			sellVotes++
		}
	}
	if totalWeight <= 0 || count == 0 {
		return nil, state
	}

	normalizedBuy := buyWeight / totalWeight * float64(count)
	normalizedSell := sellWeight / totalWeight * float64(count)

	buyCrossed := normalizedBuy >= s.cfg.BuyThreshold
	sellCrossed := normalizedSell >= s.cfg.SellThreshold

	// 两边都不过线 (或同时过线形成对冲平局) 时不交易
	if buyCrossed == sellCrossed {
		return nil, state
	}

	if buyCrossed {
		conf := blendConfidence(float64(buyVotes)/float64(count), normalizedBuy, s.cfg.BuyThreshold)
		notional := s.cfg.BaseOrderSize * (0.5 + 1.5*conf)
		reason := fmt.Sprintf("ensemble_buy_%d/%d", buyVotes, count)
		return buySignal(s.cfg, in.Cash, in.Price, notional, reason), state
	}

	if in.Position == nil {
		return nil, state
	}
	conf := blendConfidence(float64(sellVotes)/float64(count), normalizedSell, s.cfg.SellThreshold)
	// 共识越强平仓比例越大，最少平掉配置的部分离场比例
	fraction := s.cfg.PartialExitFraction + (1-s.cfg.PartialExitFraction)*conf
	reason := fmt.Sprintf("ensemble_sell_%d/%d", sellVotes, count)
	return sellSignal(s.cfg, in.Position, in.Price, fraction, reason), state
}

// blendConfidence 置信度 = 同意占比与阈值超额幅度各占一半，返回 [0,1]
func blendConfidence(agreeFrac, score, threshold float64) float64 {
	overshoot := 0.0
	if threshold > 0 {
		overshoot = clamp((score-threshold)/threshold, 0, 1)
	}
	return clamp(0.5*agreeFrac+0.5*overshoot, 0, 1)
}
