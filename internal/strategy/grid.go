package strategy

import (
	"fmt"
	"math"

	"paper-quant-bot-go/internal/models"
)

// Grid 网格策略：以锚定价为基准，价格每下跌一个网格间距买入一档，
// 回升到上方档位时卖出。触发止损后进入冷却期，冷却结束前不再进场。
type Grid struct {
	cfg *models.StrategyConfig
}

func (s *Grid) Type() models.StrategyType { return models.StrategyGrid }

// maxGridDepth 锚定价下方允许的最大档位数，击穿后视为趋势破位并止损
const maxGridDepth = 8

func (s *Grid) Decide(in Input) (*models.TradeSignal, models.StrategyState) {
	state := models.NewStrategyState(models.StrategyGrid)
	if in.State.Grid != nil {
		*state.Grid = *in.State.Grid
	}
	g := state.Grid

	if g.AnchorPrice <= 0 {
		g.AnchorPrice = in.Price
		g.LastLevel = 0
	}
	if g.CooldownBars > 0 {
		g.CooldownBars--
		return nil, state
	}

	step := g.AnchorPrice * s.cfg.GridSpacing
	if step <= 0 {
		return nil, state
	}
	// 价格每低于锚定价一个间距，档位加一；高于锚定价时为负
	level := int(math.Floor((g.AnchorPrice - in.Price) / step))

	// 击穿网格下沿：全平、重置锚点并进入冷却
	if level > maxGridDepth && in.Position != nil {
		sig := sellSignal(s.cfg, in.Position, in.Price, 1, "grid_stop_loss")
		g.AnchorPrice = in.Price
		g.LastLevel = 0
		g.CooldownBars = s.cfg.GridCooldownBars
		return sig, state
	}

	if level > g.LastLevel && level <= maxGridDepth {
		// 下跌穿越新档位：买入，深度档位叠加超卖倍数
		notional := s.cfg.BaseOrderSize
		if tier := oversoldTier(in.Indicators.RSI); tier > 1 {
			notional *= tier
		}
		sig := asMaker(buySignal(s.cfg, in.Cash, in.Price, notional, fmt.Sprintf("grid_buy_L%d", level)))
		if sig != nil {
			g.LastLevel = level
		}
		return sig, state
	}

	if level < g.LastLevel && in.Position != nil {
		// 回升穿越档位：卖出一格锁定差价
		qtyPerLevel := s.cfg.BaseOrderSize / in.Price
		fraction := qtyPerLevel / in.Position.Quantity
		if fraction > 1 {
			fraction = 1
		}
		sig := asMaker(sellSignal(s.cfg, in.Position, in.Price, fraction, fmt.Sprintf("grid_sell_L%d", level)))
		if sig != nil {
			g.LastLevel = level
		}
		return sig, state
	}
	return nil, state
}
