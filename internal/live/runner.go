package live

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"paper-quant-bot-go/internal/ident"
	"paper-quant-bot-go/internal/indicator"
	"paper-quant-bot-go/internal/lock"
	"paper-quant-bot-go/internal/market"
	"paper-quant-bot-go/internal/models"
	"paper-quant-bot-go/internal/persistence"
	"paper-quant-bot-go/internal/portfolio"
	"paper-quant-bot-go/internal/storage"
	"paper-quant-bot-go/internal/strategy"

	"go.uber.org/zap"
)

// historyBars 每个交易对拉取的小时K线数量，多于指标预热需求
const historyBars = 200

// Runner 驱动实盘纸面交易循环。每个调度周期执行一轮
// 取行情 -> 决策 -> 记账 -> 持久化 的流水线，周期之间靠租约锁互斥：
// 同一时刻最多只有一个实例在跑，持有者崩溃后租约到期自动恢复。
type Runner struct {
	cfg     *models.Config
	repo    persistence.BotRepository
	locks   lock.Store
	prices  market.PriceSource
	tradeDB *sql.DB
	logger  *zap.Logger
	owner   string
}

// NewRunner 组装实盘循环
func NewRunner(cfg *models.Config, repo persistence.BotRepository, locks lock.Store, prices market.PriceSource, tradeDB *sql.DB, logger *zap.Logger) *Runner {
	hostname, _ := os.Hostname()
	return &Runner{
		cfg:     cfg,
		repo:    repo,
		locks:   locks,
		prices:  prices,
		tradeDB: tradeDB,
		logger:  logger,
		owner:   fmt.Sprintf("%s-%d", hostname, os.Getpid()),
	}
}

// Run 按调度周期循环执行 RunCycle，直到 ctx 被取消。
// 启动后立即执行第一轮，不等第一个tick。
func (r *Runner) Run(ctx context.Context) error {
	interval := time.Duration(r.cfg.CycleIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if actions, err := r.RunCycle(ctx); err != nil {
			r.logger.Error("本轮交易循环失败", zap.Error(err))
		} else if len(actions) > 0 {
			r.logger.Info("本轮交易循环完成", zap.Strings("actions", actions))
		}

		select {
		case <-ctx.Done():
			r.logger.Info("实盘循环收到退出信号")
			return nil
		case <-ticker.C:
		}
	}
}

// RunCycle 执行一轮完整的交易循环，返回本轮产生的动作摘要。
// 拿不到租约 (其他实例正在跑) 不算错误，直接跳过本轮。
// 单个机器人的失败只影响它自己，不中断整批处理。
func (r *Runner) RunCycle(ctx context.Context) ([]string, error) {
	ttl := time.Duration(r.cfg.LockTTLSec) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	lease, err := r.locks.Acquire(r.owner, ttl)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			r.logger.Info("租约被其他实例持有，跳过本轮")
			return nil, nil
		}
		return nil, fmt.Errorf("获取租约失败: %w", err)
	}
	defer func() {
		if err := r.locks.Release(lease); err != nil {
			r.logger.Warn("释放租约失败", zap.Error(err))
		}
	}()

	bots, err := r.repo.ListActiveBots()
	if err != nil {
		return nil, fmt.Errorf("读取机器人注册表失败: %w", err)
	}
	if len(bots) == 0 {
		return nil, nil
	}

	symbols := distinctSymbols(bots)
	prices, err := r.prices.GetCurrentPrices(ctx, symbols)
	if err != nil {
		// 任何机器人都还没被处理，整轮安全放弃
		return nil, fmt.Errorf("获取行情失败: %w", err)
	}

	// 拉不到历史的交易对跳过，不拖累其他交易对上的机器人
	histories := make(map[string][]models.Bar, len(symbols))
	for _, sym := range symbols {
		bars, err := r.prices.GetHistory(ctx, sym, historyBars)
		if err != nil {
			r.logger.Warn("获取K线历史失败，跳过该交易对", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		histories[sym] = bars
	}

	portfolios := make(map[string]*portfolio.Portfolio)
	var actions []string

	for _, bot := range bots {
		action, err := r.runBot(bot, prices, histories, portfolios)
		if err != nil {
			r.logger.Error("机器人处理失败",
				zap.String("bot_id", bot.ID),
				zap.String("strategy", string(bot.Strategy)),
				zap.Error(err))
			continue
		}
		if action != "" {
			actions = append(actions, action)
		}
	}

	// 机器人全部处理完后，按用户落盘组合快照
	for userID, port := range portfolios {
		port.UpdateUnrealized(prices)
		if err := storage.SavePortfolio(r.tradeDB, userID, port); err != nil {
			r.logger.Error("保存组合快照失败", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return actions, nil
}

// runBot 处理单个机器人：补水状态、决策、记账、持久化。
// panic 被就地吸收，换成错误返回。
func (r *Runner) runBot(bot *models.BotRecord, prices map[string]float64, histories map[string][]models.Bar, portfolios map[string]*portfolio.Portfolio) (action string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("bot %s panicked: %v", bot.ID, rec)
		}
	}()

	price, ok := prices[bot.Symbol]
	if !ok || price <= 0 {
		return "", fmt.Errorf("no price for %s", bot.Symbol)
	}
	bars, ok := histories[bot.Symbol]
	if !ok || len(bars) == 0 {
		return "", fmt.Errorf("no history for %s", bot.Symbol)
	}

	// 每个机器人之间强制最小交易间隔
	minInterval := time.Duration(bot.Config.MinTradeIntervalSec) * time.Second
	if minInterval > 0 && !bot.LastTradeTime.IsZero() && time.Since(bot.LastTradeTime) < minInterval {
		return "", nil
	}

	// 补水: 持久化的状态标签必须与机器人的策略一致
	if bot.State.Type == "" {
		bot.State = models.NewStrategyState(bot.Strategy)
	} else if bot.State.Type != bot.Strategy {
		return "", fmt.Errorf("state tag %s does not match bot strategy %s", bot.State.Type, bot.Strategy)
	}

	port, err := r.userPortfolio(bot.UserID, portfolios)
	if err != nil {
		return "", err
	}

	strat, err := strategy.New(bot.Strategy, &bot.Config)
	if err != nil {
		return "", err
	}

	// 指标用已收盘K线计算，决策价用最新行情
	snap := indicator.Snapshot(bars)
	snap.Price = price

	now := time.Now()
	sig, newState := strat.Decide(strategy.Input{
		Time:       now,
		Price:      price,
		Indicators: snap,
		Position:   port.Position(bot.Symbol),
		Cash:       port.Cash,
		Config:     &bot.Config,
		State:      bot.State,
	})
	bot.State = newState
	bot.LastUpdateTime = now

	if sig != nil {
		if rec, ok := r.applySignal(port, bot.Symbol, sig, snap, now); ok {
			if err := storage.InsertTrade(r.tradeDB, bot.ID, bot.Symbol, &rec); err != nil {
				return "", fmt.Errorf("记录成交失败: %w", err)
			}
			bot.LastTradeTime = now
			action = fmt.Sprintf("%s %s %s qty=%.6f price=%.2f (%s)",
				bot.ID, rec.Side, bot.Symbol, rec.Quantity, rec.Price, rec.Reason)
		}
	}

	if err := r.repo.SaveBot(bot); err != nil {
		return "", fmt.Errorf("保存机器人状态失败: %w", err)
	}
	return action, nil
}

// applySignal 把信号转换为纸面成交：扣滑点与手续费后更新组合
func (r *Runner) applySignal(port *portfolio.Portfolio, symbol string, sig *models.TradeSignal, snap *models.IndicatorSnapshot, ts time.Time) (models.TradeRecord, bool) {
	slip := r.cfg.SlippageRate
	if r.cfg.MaxSlippageRate > 0 && slip > r.cfg.MaxSlippageRate {
		slip = r.cfg.MaxSlippageRate
	}

	switch sig.Side {
	case models.Buy:
		fillPrice := snap.Price * (1 + slip)
		notional := fillPrice * sig.Quantity
		fee := notional * r.cfg.FeeRate(sig.Maker)
		fill, ok := port.ApplyFill(models.Buy, symbol, sig.Quantity, fillPrice, notional+fee)
		if !ok {
			return models.TradeRecord{}, false
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
		fill, ok := port.ApplyFill(models.Sell, symbol, sig.Quantity, fillPrice, 0)
		if !ok {
			return models.TradeRecord{}, false
		}
		fee := fill.ExecutedQty * fillPrice * r.cfg.FeeRate(sig.Maker)
		if fee > port.Cash {
			fee = port.Cash
		}
		port.Cash -= fee
		return models.TradeRecord{
			ID:       ident.New("T"),
			Time:     ts,
			Side:     models.Sell,
			Price:    fillPrice,
			Quantity: fill.ExecutedQty,
			Pnl:      fill.RealizedPnl - fee,
			Fee:      fee,
			Reason:   sig.Reason,
		}, true
	}
	return models.TradeRecord{}, false
}

// userPortfolio 按用户加载组合，一轮内只加载一次；没有快照时用初始资金起步
func (r *Runner) userPortfolio(userID string, portfolios map[string]*portfolio.Portfolio) (*portfolio.Portfolio, error) {
	if port, ok := portfolios[userID]; ok {
		return port, nil
	}
	port, err := storage.LoadPortfolio(r.tradeDB, userID)
	if err != nil {
		return nil, fmt.Errorf("加载用户组合失败: %w", err)
	}
	if port == nil {
		port = portfolio.New(r.cfg.InitialInvestment)
	}
	portfolios[userID] = port
	return port, nil
}

func distinctSymbols(bots []*models.BotRecord) []string {
	seen := make(map[string]bool, len(bots))
	var symbols []string
	for _, b := range bots {
		if b.Symbol != "" && !seen[b.Symbol] {
			seen[b.Symbol] = true
			symbols = append(symbols, b.Symbol)
		}
	}
	return symbols
}
