package strategy

import (
	"math"

	"paper-quant-bot-go/internal/models"
)

// RLAgent 加权打分代理：把一组归一化特征与权重做内积得到 [-1,1] 区间的
// 评分，评分越高越倾向买入，越低越倾向卖出。权重随离场盈亏做指数平滑的
// 在线微调 (原始实现中由离线训练得到)。
type RLAgent struct {
	cfg *models.StrategyConfig
}

func (s *RLAgent) Type() models.StrategyType { return models.StrategyRLAgent }

const (
	rlBuyThreshold  = 0.3
	rlSellThreshold = -0.3
	rlLearnRate     = 0.1
)

// rlFeatures 5个归一化特征：动量、趋势、MACD方向、均值偏离、日内涨跌
func rlFeatures(ind *models.IndicatorSnapshot) []float64 {
	macdDir := 0.0
	if ind.MACDHist > 0 {
		macdDir = 1
	} else if ind.MACDHist < 0 {
		macdDir = -1
	}
	return []float64{
		(50 - ind.RSI) / 50,          // 超卖为正
		ind.TrendScore,               // 已离散化
		macdDir,                      //
		clamp(-ind.ZScore/3, -1, 1),  // 低于均值为正
		clamp(ind.Change24h/10, -1, 1),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (s *RLAgent) Decide(in Input) (*models.TradeSignal, models.StrategyState) {
	state := models.NewStrategyState(models.StrategyRLAgent)
	if in.State.RLAgent != nil {
		*state.RLAgent = *in.State.RLAgent
	}
	r := state.RLAgent

	feats := rlFeatures(in.Indicators)
	if len(r.Weights) != len(feats) {
		if len(s.cfg.RLWeights) == len(feats) {
			r.Weights = append([]float64(nil), s.cfg.RLWeights...)
		} else {
			r.Weights = []float64{0.3, 0.3, 0.2, 0.1, 0.1}
		}
	}

	score := 0.0
	for i, f := range feats {
		score += r.Weights[i] * f
	}
	score = clamp(score, -1, 1)
	r.LastScore = score

	if in.Position != nil {
		if sig := checkExit(s.cfg, in.Position, in.Price); sig != nil {
			s.learn(r, feats, pnlPct(in.Position, in.Price))
			return sig, state
		}
		if score <= rlSellThreshold {
			s.learn(r, feats, pnlPct(in.Position, in.Price))
			fraction := s.cfg.PartialExitFraction
			if score <= rlSellThreshold*2 {
				fraction = 1
			}
			return sellSignal(s.cfg, in.Position, in.Price, fraction, "rl_sell"), state
		}
		return nil, state
	}

	if score < rlBuyThreshold || in.Indicators.TrendScore < s.cfg.TrendGate {
		return nil, state
	}
	// 评分越高下注越大，上限 2x
	notional := s.cfg.BaseOrderSize * (1 + clamp((score-rlBuyThreshold)/(1-rlBuyThreshold), 0, 1))
	sig := buySignal(s.cfg, in.Cash, in.Price, notional, "rl_buy")
	if sig != nil {
		r.EntryPrice = in.Price
	}
	return sig, state
}

// learn 按离场盈亏方向微调权重：与盈利方向一致的特征权重被放大
func (s *RLAgent) learn(r *models.RLAgentState, feats []float64, realizedPct float64) {
	if realizedPct == 0 {
		return
	}
	direction := 1.0
	if realizedPct < 0 {
		direction = -1
	}
	total := 0.0
	for i := range r.Weights {
		r.Weights[i] += rlLearnRate * direction * feats[i]
		total += math.Abs(r.Weights[i])
	}
	if total == 0 {
		return
	}
	for i := range r.Weights {
		r.Weights[i] /= total
	}
}
