package portfolio

import (
	"math"

	"paper-quant-bot-go/internal/models"
)

// DustThreshold 低于该数量的仓位被视为已清空并移除
const DustThreshold = 1e-6

// Portfolio 维护现金与持仓的簿记。
// 不变量: Cash >= 0 恒成立；总权益 = 现金 + Σ(数量×现价)。
// 所有违反不变量的调用都被拒绝，状态保持不变 (调用方看到的是"无操作"而非异常)。
type Portfolio struct {
	Cash      float64                     `json:"cash"`
	Positions map[string]*models.Position `json:"positions"`
}

// New 创建一个只有现金的新组合
func New(cash float64) *Portfolio {
	if cash < 0 || math.IsNaN(cash) || math.IsInf(cash, 0) {
		cash = 0
	}
	return &Portfolio{
		Cash:      cash,
		Positions: make(map[string]*models.Position),
	}
}

// Fill 一次成交在组合上的实际效果
type Fill struct {
	ExecutedQty float64 // SELL 时可能被钳制到持仓量
	RealizedPnl float64 // 仅 SELL 产生
}

// ApplyFill 把一笔成交应用到组合上。
// 守卫: quantity/price 非正、notional 为负或任一数值非有限时整体拒绝；
// BUY 现金不足拒绝；SELL 数量钳制到 min(请求量, 持仓量)，超卖在结构上不可能发生。
// 返回 (fill, true) 表示状态已变更；(Fill{}, false) 表示无操作。
func (p *Portfolio) ApplyFill(side models.Side, symbol string, quantity, price, notional float64) (Fill, bool) {
	if !models.IsFinitePositive(quantity) || !models.IsFinitePositive(price) {
		return Fill{}, false
	}
	if notional < 0 || math.IsNaN(notional) || math.IsInf(notional, 0) {
		return Fill{}, false
	}

	switch side {
	case models.Buy:
		if notional > p.Cash {
			return Fill{}, false // 现金不足，保持原状
		}
		p.Cash -= notional
		pos, ok := p.Positions[symbol]
		if !ok {
			pos = &models.Position{Symbol: symbol}
			p.Positions[symbol] = pos
		}
		newQty := pos.Quantity + quantity
		// 加权平均开仓价
		pos.AvgEntryPrice = (pos.AvgEntryPrice*pos.Quantity + price*quantity) / newQty
		pos.Quantity = newQty
		return Fill{ExecutedQty: quantity}, true

	case models.Sell:
		pos, ok := p.Positions[symbol]
		if !ok || pos.Quantity <= DustThreshold {
			return Fill{}, false
		}
		executed := quantity
		if executed > pos.Quantity {
			executed = pos.Quantity
		}
		proceeds := executed * price
		pnl := (price - pos.AvgEntryPrice) * executed
		p.Cash += proceeds
		pos.Quantity -= executed
		if pos.Quantity <= DustThreshold {
			delete(p.Positions, symbol) // 不保留零行
		}
		return Fill{ExecutedQty: executed, RealizedPnl: pnl}, true
	}
	return Fill{}, false
}

// Equity 返回按给定现价计算的总权益。缺价的持仓按开仓均价估值。
func (p *Portfolio) Equity(prices map[string]float64) float64 {
	equity := p.Cash
	for sym, pos := range p.Positions {
		price, ok := prices[sym]
		if !ok || price <= 0 {
			price = pos.AvgEntryPrice
		}
		equity += pos.Quantity * price
	}
	return equity
}

// UpdateUnrealized 用当前价格刷新所有持仓的未实现盈亏
func (p *Portfolio) UpdateUnrealized(prices map[string]float64) {
	for sym, pos := range p.Positions {
		if price, ok := prices[sym]; ok && price > 0 {
			pos.UnrealizedPnl = (price - pos.AvgEntryPrice) * pos.Quantity
		}
	}
}

// Position 返回指定交易对的持仓，不存在时返回 nil
func (p *Portfolio) Position(symbol string) *models.Position {
	return p.Positions[symbol]
}
