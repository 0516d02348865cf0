package reporter

import (
	"fmt"
	"io"
	"time"

	"paper-quant-bot-go/internal/models"

	"github.com/jedib0t/go-pretty/v6/table"
)

// PrintBacktestReport 把一次回测的完整结果渲染成表格报告。
// 启用了 walk-forward 时额外输出样本内/样本外的对照表。
func PrintBacktestReport(w io.Writer, symbol string, result *models.BacktestResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("回测结果报告 - %s", symbol))
	t.AppendRows(metricsRows(result.Metrics))
	t.Render()

	if result.InSampleMetrics != nil && result.OutOfSampleMetrics != nil {
		wf := table.NewWriter()
		wf.SetOutputMirror(w)
		wf.SetTitle("Walk-Forward 验证")
		wf.AppendHeader(table.Row{"指标", "样本内", "样本外"})
		wf.AppendRows(walkForwardRows(result.InSampleMetrics, result.OutOfSampleMetrics))
		wf.Render()
	}
}

func metricsRows(m *models.Metrics) []table.Row {
	return []table.Row{
		{"初始资金", fmt.Sprintf("%.2f USDT", m.InitialBalance)},
		{"最终资金", fmt.Sprintf("%.2f USDT", m.FinalBalance)},
		{"总盈亏", fmt.Sprintf("%.2f USDT", m.TotalPnl)},
		{"收益率", fmt.Sprintf("%.2f%%", m.TotalReturnPct)},
		{"最大回撤", fmt.Sprintf("%.2f%%", m.MaxDrawdownPct)},
		{"夏普比率", fmt.Sprintf("%.2f", m.SharpeRatio)},
		{"索提诺比率", fmt.Sprintf("%.2f", m.SortinoRatio)},
		{"卡玛比率", fmt.Sprintf("%.2f", m.CalmarRatio)},
		{"总交易次数", m.TotalTrades},
		{"盈利/亏损次数", fmt.Sprintf("%d / %d", m.WinningTrades, m.LosingTrades)},
		{"胜率", fmt.Sprintf("%.2f%%", m.WinRate)},
		{"盈亏因子", fmt.Sprintf("%.2f", m.ProfitFactor)},
		{"期望值", fmt.Sprintf("%.2f USDT", m.Expectancy)},
		{"平均盈利/亏损", fmt.Sprintf("%.2f / %.2f USDT", m.AvgWin, m.AvgLoss)},
		{"平均持仓时间", m.AvgHoldTime.Round(time.Minute)},
		{"总手续费", fmt.Sprintf("%.2f USDT", m.TotalFees)},
	}
}

func walkForwardRows(in, out *models.Metrics) []table.Row {
	return []table.Row{
		{"收益率", fmt.Sprintf("%.2f%%", in.TotalReturnPct), fmt.Sprintf("%.2f%%", out.TotalReturnPct)},
		{"最大回撤", fmt.Sprintf("%.2f%%", in.MaxDrawdownPct), fmt.Sprintf("%.2f%%", out.MaxDrawdownPct)},
		{"夏普比率", fmt.Sprintf("%.2f", in.SharpeRatio), fmt.Sprintf("%.2f", out.SharpeRatio)},
		{"胜率", fmt.Sprintf("%.2f%%", in.WinRate), fmt.Sprintf("%.2f%%", out.WinRate)},
		{"总交易次数", in.TotalTrades, out.TotalTrades},
	}
}

// PrintMonteCarloReport 渲染蒙特卡洛重采样的分布区间
func PrintMonteCarloReport(w io.Writer, result *models.MonteCarloResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("蒙特卡洛重采样")
	t.AppendRows([]table.Row{
		{"模拟次数", result.Simulations},
		{"中位数收益率", fmt.Sprintf("%.2f%%", result.MedianReturn)},
		{"盈利概率", fmt.Sprintf("%.2f%%", result.ProfitProbability*100)},
		{"置信水平", fmt.Sprintf("%.0f%%", result.Confidence*100)},
		{"区间下界", fmt.Sprintf("%.2f%%", result.PercentileLow)},
		{"区间上界", fmt.Sprintf("%.2f%%", result.PercentileHigh)},
	})
	t.Render()
}

// PrintRegimeReport 渲染市场状态判定结果
func PrintRegimeReport(w io.Writer, symbol string, rc models.RegimeClassification) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("市场状态 - %s", symbol))
	strategies := ""
	for i, s := range rc.RecommendedStrategies {
		if i > 0 {
			strategies += ", "
		}
		strategies += string(s)
	}
	t.AppendRows([]table.Row{
		{"状态", string(rc.Regime)},
		{"置信度", fmt.Sprintf("%.2f", rc.Confidence)},
		{"推荐策略", strategies},
	})
	t.Render()
}
