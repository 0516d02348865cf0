package backtest

import (
	"fmt"
	"math"
	"time"

	"paper-quant-bot-go/internal/ident"
	"paper-quant-bot-go/internal/indicator"
	"paper-quant-bot-go/internal/models"
	"paper-quant-bot-go/internal/portfolio"
	"paper-quant-bot-go/internal/strategy"
)

// Factory 为每个回测通道创建一个全新的策略实例。
// Walk-forward 的两个通道使用相同的策略配置但各自独立的状态。
type Factory func() (strategy.Strategy, error)

// Run 对一段按时间升序的K线重放策略，返回完整的回测结果。
// 状态机: WARMUP -> STEPPING -> FINALIZED。配置了 WalkForwardRatio 时
// 在整段回测之外再按切分比例执行样本内/样本外两个独立通道。
func Run(cfg *models.Config, bars []models.Bar, factory Factory) (*models.BacktestResult, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("回测需要至少一根K线")
	}
	strat, err := factory()
	if err != nil {
		return nil, err
	}

	trades, curve, err := runPass(cfg, bars, strat)
	if err != nil {
		return nil, err
	}
	result := &models.BacktestResult{
		Metrics:     ComputeMetrics(cfg.InitialInvestment, trades, curve),
		EquityCurve: curve,
		Trades:      trades,
	}

	// Walk-forward：两段的K线数之和等于总数
	if cfg.WalkForwardRatio > 0 && cfg.WalkForwardRatio < 1 {
		split := SplitIndex(cfg.WalkForwardRatio, len(bars))
		if split > 0 && split < len(bars) {
			inStrat, err := factory()
			if err != nil {
				return nil, err
			}
			inTrades, inCurve, err := runPass(cfg, bars[:split], inStrat)
			if err != nil {
				return nil, err
			}
			outStrat, err := factory()
			if err != nil {
				return nil, err
			}
			outTrades, outCurve, err := runPass(cfg, bars[split:], outStrat)
			if err != nil {
				return nil, err
			}
			result.InSampleMetrics = ComputeMetrics(cfg.InitialInvestment, inTrades, inCurve)
			result.OutOfSampleMetrics = ComputeMetrics(cfg.InitialInvestment, outTrades, outCurve)
		}
	}
	return result, nil
}

// SplitIndex 返回 walk-forward 的切分点：样本内K线数 = floor(ratio × n)，
// 样本外为其余 n - floor(ratio × n) 根
func SplitIndex(ratio float64, n int) int {
	return int(math.Floor(ratio * float64(n)))
}

// runPass 单个回测通道：顺序重放K线，驱动组合并记录成交与权益曲线
func runPass(cfg *models.Config, bars []models.Bar, strat strategy.Strategy) ([]models.TradeRecord, []models.EquityPoint, error) {
	warmup := cfg.WarmupBars
	if warmup <= 0 {
		warmup = indicator.MinWarmup
	}

	port := portfolio.New(cfg.InitialInvestment)
	state := models.NewStrategyState(strat.Type())
	symbol := cfg.Symbol
	if symbol == "" {
		symbol = "UNKNOWN"
	}

	trades := make([]models.TradeRecord, 0, 64)
	curve := make([]models.EquityPoint, 0, len(bars))
	var entryTime time.Time

	for i := range bars {
		bar := bars[i]
		price := bar.Close
		prices := map[string]float64{symbol: price}

		// WARMUP: 指标预热完成前不做决策，只记录权益点
		if i+1 < warmup {
			curve = append(curve, models.EquityPoint{Date: bar.Timestamp, Value: port.Equity(prices)})
			continue
		}

		// STEPPING: 快照 -> 决策 -> 应用
		snap := indicator.Snapshot(bars[:i+1])
		sig, newState := strat.Decide(strategy.Input{
			Time:       bar.Timestamp,
			Price:      price,
			Indicators: snap,
			Position:   port.Position(symbol),
			Cash:       port.Cash,
			Config:     &cfg.Strategy,
			State:      state,
		})
		state = newState

		if sig != nil {
			if rec, ok := applySignal(cfg, port, symbol, sig, snap, bar.Timestamp, &entryTime); ok {
				trades = append(trades, rec)
			}
		}
		curve = append(curve, models.EquityPoint{Date: bar.Timestamp, Value: port.Equity(prices)})
	}

	// FINALIZED: 残余持仓按最后一根K线的收盘价强制平仓，
	// 保证每次运行都产出完全实现的交易日志
	last := bars[len(bars)-1]
	if pos := port.Position(symbol); pos != nil {
		sig := &models.TradeSignal{Side: models.Sell, Quantity: pos.Quantity, Cost: pos.Quantity * last.Close, Reason: "end_of_series"}
		if rec, ok := closeFill(cfg, port, symbol, sig, last.Close, last.Timestamp, entryTime); ok {
			trades = append(trades, rec)
			curve[len(curve)-1].Value = port.Equity(map[string]float64{symbol: last.Close})
		}
	}
	return trades, curve, nil
}

// dynamicSlippage 动态滑点：基础滑点随订单量相对平均成交量、
// 以及ATR相对价格放大。更大的订单或更薄/更颠簸的市场成本更高。
func dynamicSlippage(cfg *models.Config, qty, price, avgVolume, atr float64) float64 {
	slip := cfg.SlippageRate
	if avgVolume > 0 {
		slip += cfg.SlippageRate * (qty / avgVolume)
	}
	if price > 0 {
		slip += cfg.SlippageRate * (atr / price) * 10
	}
	if cfg.MaxSlippageRate > 0 && slip > cfg.MaxSlippageRate {
		slip = cfg.MaxSlippageRate
	}
	return slip
}

// applySignal 把信号转换为成交：先扣滑点和手续费，再更新组合
func applySignal(cfg *models.Config, port *portfolio.Portfolio, symbol string, sig *models.TradeSignal, snap *models.IndicatorSnapshot, ts time.Time, entryTime *time.Time) (models.TradeRecord, bool) {
	slip := dynamicSlippage(cfg, sig.Quantity, snap.Price, snap.AvgVolume, snap.ATR)

	switch sig.Side {
	case models.Buy:
		fillPrice := snap.Price * (1 + slip)
		notional := fillPrice * sig.Quantity
		fee := notional * cfg.FeeRate(sig.Maker)
		hadPosition := port.Position(symbol) != nil
		fill, ok := port.ApplyFill(models.Buy, symbol, sig.Quantity, fillPrice, notional+fee)
		if !ok {
			return models.TradeRecord{}, false
		}
		if !hadPosition {
			*entryTime = ts
		}
		return models.TradeRecord{
			ID:       ident.New("T"),
			Time:     ts,
			Side:     models.Buy,
			Price:    fillPrice,
			Quantity: fill.ExecutedQty,
			Fee:      fee,
			Reason:   sig.Reason,
		}, true

	case models.Sell:
		fillPrice := snap.Price * (1 - slip)
		return closeFill(cfg, port, symbol, sig, fillPrice, ts, *entryTime)
	}
	return models.TradeRecord{}, false
}

// closeFill 执行卖出成交并生成已实现盈亏的交易记录
func closeFill(cfg *models.Config, port *portfolio.Portfolio, symbol string, sig *models.TradeSignal, fillPrice float64, ts time.Time, entryTime time.Time) (models.TradeRecord, bool) {
	fill, ok := port.ApplyFill(models.Sell, symbol, sig.Quantity, fillPrice, 0)
	if !ok {
		return models.TradeRecord{}, false
	}
	fee := fill.ExecutedQty * fillPrice * cfg.FeeRate(sig.Maker)
	if fee > port.Cash {
		fee = port.Cash
	}
	port.Cash -= fee

	var hold time.Duration
	if !entryTime.IsZero() {
		hold = ts.Sub(entryTime)
	}
	return models.TradeRecord{
		ID:       ident.New("T"),
		Time:     ts,
		Side:     models.Sell,
		Price:    fillPrice,
		Quantity: fill.ExecutedQty,
		Pnl:      fill.RealizedPnl - fee,
		Fee:      fee,
		Reason:   sig.Reason,
		HoldTime: hold,
	}, true
}
