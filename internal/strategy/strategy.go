package strategy

import (
	"time"

	"paper-quant-bot-go/internal/models"
)

// Input 是一次策略决策的全部输入。决策函数是纯函数：
// 不修改输入，输出信号与整体替换的新状态。
type Input struct {
	Time       time.Time
	Price      float64
	Indicators *models.IndicatorSnapshot
	Position   *models.Position // nil 表示空仓
	Cash       float64
	Config     *models.StrategyConfig
	State      models.StrategyState
}

// Strategy 是所有策略变体共用的唯一契约。
// 回测器和实盘循环复用同一套实现，二者之间没有第二份引擎拷贝。
type Strategy interface {
	Type() models.StrategyType
	Decide(in Input) (*models.TradeSignal, models.StrategyState)
}

// pnlPct 当前持仓相对开仓均价的收益率；空仓或均价非法时返回 0
func pnlPct(pos *models.Position, price float64) float64 {
	if pos == nil || pos.AvgEntryPrice <= 0 {
		return 0
	}
	return (price - pos.AvgEntryPrice) / pos.AvgEntryPrice
}

// oversoldTier 按超卖程度分层的下单倍数：
// RSI<25 → 2x, RSI<32 → 1.5x, RSI<40 → 1x, 否则 0 (不进场)
func oversoldTier(rsi float64) float64 {
	switch {
	case rsi < 25:
		return 2
	case rsi < 32:
		return 1.5
	case rsi < 40:
		return 1
	default:
		return 0
	}
}

// buySignal 构造买入信号并执行共用的拒绝策略：
// 名义价值低于最小值、现金不足、数量/价格非有限或非正时返回 nil
func buySignal(cfg *models.StrategyConfig, cash, price, notional float64, reason string) *models.TradeSignal {
	if !models.IsFinitePositive(price) || !models.IsFinitePositive(notional) {
		return nil
	}
	if notional < cfg.MinNotional || notional > cash {
		return nil
	}
	qty := notional / price
	if !models.IsFinitePositive(qty) {
		return nil
	}
	return &models.TradeSignal{Side: models.Buy, Quantity: qty, Cost: notional, Reason: reason}
}

// sellSignal 构造卖出信号。fraction 是希望平掉的持仓比例；
// 如果部分平仓的名义价值低于最小值，则升级为全平，全平仍不足时放弃。
func sellSignal(cfg *models.StrategyConfig, pos *models.Position, price, fraction float64, reason string) *models.TradeSignal {
	if pos == nil || !models.IsFinitePositive(price) || fraction <= 0 {
		return nil
	}
	qty := pos.Quantity * fraction
	if fraction > 1 {
		qty = pos.Quantity
	}
	if qty*price < cfg.MinNotional {
		qty = pos.Quantity
		if qty*price < cfg.MinNotional {
			return nil
		}
	}
	if !models.IsFinitePositive(qty) {
		return nil
	}
	return &models.TradeSignal{Side: models.Sell, Quantity: qty, Cost: qty * price, Reason: reason}
}

// asMaker 把信号标记为挂单成交。网格档位单和资金费套利的进出场
// 都是提前挂在固定价位的限价单，按挂单费率计费。
func asMaker(sig *models.TradeSignal) *models.TradeSignal {
	if sig != nil {
		sig.Maker = true
	}
	return sig
}

// checkExit 共用的止盈/止损检查。
// 止盈采用部分平仓锁定收益，止损全平。止盈阈值的绝对幅度大于止损 (非对称风险收益)。
func checkExit(cfg *models.StrategyConfig, pos *models.Position, price float64) *models.TradeSignal {
	if pos == nil {
		return nil
	}
	pct := pnlPct(pos, price)
	if pct >= cfg.TakeProfitPct {
		return sellSignal(cfg, pos, price, cfg.PartialExitFraction, "take_profit")
	}
	if pct <= -cfg.StopLossPct {
		return sellSignal(cfg, pos, price, 1, "stop_loss")
	}
	return nil
}
