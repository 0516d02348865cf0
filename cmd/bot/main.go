package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"paper-quant-bot-go/internal/backtest"
	"paper-quant-bot-go/internal/config"
	"paper-quant-bot-go/internal/downloader"
	"paper-quant-bot-go/internal/live"
	"paper-quant-bot-go/internal/lock"
	"paper-quant-bot-go/internal/logger"
	"paper-quant-bot-go/internal/market"
	"paper-quant-bot-go/internal/models"
	"paper-quant-bot-go/internal/montecarlo"
	"paper-quant-bot-go/internal/persistence"
	"paper-quant-bot-go/internal/regime"
	"paper-quant-bot-go/internal/reporter"
	"paper-quant-bot-go/internal/storage"
	"paper-quant-bot-go/internal/strategy"
)

// extractSymbolFromPath 从数据文件路径中提取交易对名称
// 例如: "data/BNBUSDT-2025-03-15-2025-06-15.csv" -> "BNBUSDT"
func extractSymbolFromPath(path string) string {
	name := strings.TrimSuffix(path, ".csv")
	parts := strings.Split(name, "/")
	fileName := parts[len(parts)-1]

	symbolParts := strings.Split(fileName, "-")
	if len(symbolParts) > 0 {
		return symbolParts[0]
	}
	return ""
}

func main() {
	// --- 命令行参数定义 ---
	configPath := flag.String("config", "config.json", "path to the config file")
	mode := flag.String("mode", "backtest", "running mode: backtest, montecarlo, regime or live")
	dataPath := flag.String("data", "", "path to historical data file")
	symbol := flag.String("symbol", "", "symbol to download data for (e.g., BTCUSDT)")
	startDate := flag.String("start", "", "start date for data download (YYYY-MM-DD)")
	endDate := flag.String("end", "", "end date for data download (YYYY-MM-DD)")
	flag.Parse()

	// 在配置加载前先用默认配置初始化日志，保证加载过程本身可记录
	logger.InitLogger(models.LogConfig{Level: "info", Output: "console"})

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.S().Fatalf("无法加载配置文件: %v", err)
	}

	// --- 使用文件中的配置重新初始化日志 ---
	logger.InitLogger(cfg.LogConfig)
	defer logger.S().Sync()

	// --- 根据模式执行 ---
	switch *mode {
	case "backtest":
		bars := loadHistory(cfg, *symbol, *startDate, *endDate, *dataPath)
		result := runBacktest(cfg, bars)
		reporter.PrintBacktestReport(os.Stdout, cfg.Symbol, result)
	case "montecarlo":
		bars := loadHistory(cfg, *symbol, *startDate, *endDate, *dataPath)
		result := runBacktest(cfg, bars)
		reporter.PrintBacktestReport(os.Stdout, cfg.Symbol, result)
		runMonteCarlo(cfg, result)
	case "regime":
		bars := loadHistory(cfg, *symbol, *startDate, *endDate, *dataPath)
		classifier := regime.New(cfg.RegimeVolThresholdPct)
		rc := classifier.Detect(bars)
		reporter.PrintRegimeReport(os.Stdout, cfg.Symbol, rc)
	case "live":
		runLiveMode(cfg)
	default:
		logger.S().Fatalf("未知的运行模式: %s。请选择 'backtest'、'montecarlo'、'regime' 或 'live'。", *mode)
	}
}

// loadHistory 准备历史K线：指定了 symbol/start/end 时先下载 (带缓存)，
// 否则直接读取 --data 指定的文件。
func loadHistory(cfg *models.Config, symbol, startDate, endDate, dataPath string) []models.Bar {
	shouldDownload := symbol != "" && startDate != "" && endDate != ""

	if shouldDownload {
		startTime, err1 := time.Parse("2006-01-02", startDate)
		endTime, err2 := time.Parse("2006-01-02", endDate)
		if err1 != nil || err2 != nil {
			logger.S().Fatalf("日期格式错误，请使用 YYYY-MM-DD 格式。start: %v, end: %v", err1, err2)
		}

		d := downloader.NewKlineDownloader()
		fileName := fmt.Sprintf("data/%s-%s-%s.csv", symbol, startDate, endDate)
		if err := d.DownloadKlines(symbol, "1h", fileName, startTime, endTime); err != nil {
			logger.S().Fatalf("下载数据失败: %v", err)
		}
		dataPath = fileName
	}

	if dataPath == "" {
		logger.S().Fatal("需要通过 --data 或 --symbol/start/end 参数指定数据源")
	}

	// 从数据路径中提取交易对，覆盖配置中的值
	if s := extractSymbolFromPath(dataPath); s != "" {
		cfg.Symbol = s
	}

	bars, err := downloader.LoadBars(dataPath)
	if err != nil {
		logger.S().Fatalf("加载历史数据失败: %v", err)
	}
	logger.S().Infof("已加载 %d 根K线: %s", len(bars), dataPath)
	return bars
}

// runBacktest 用配置指定的策略对历史K线执行一次完整回测
func runBacktest(cfg *models.Config, bars []models.Bar) *models.BacktestResult {
	if cfg.StrategyName == "" {
		logger.S().Fatal("回测需要在配置中指定 strategy_name")
	}

	factory := func() (strategy.Strategy, error) {
		return strategy.New(cfg.StrategyName, &cfg.Strategy)
	}

	logger.S().Infof("开始回测: %s / %s", cfg.Symbol, cfg.StrategyName)
	result, err := backtest.Run(cfg, bars, factory)
	if err != nil {
		logger.S().Fatalf("回测失败: %v", err)
	}
	logger.S().Info("回测结束。")
	return result
}

// runMonteCarlo 对回测的成交盈亏做蒙特卡洛重采样
func runMonteCarlo(cfg *models.Config, result *models.BacktestResult) {
	pnls := montecarlo.PnlsFromTrades(result.Trades)
	runs := cfg.MonteCarloRuns
	if runs <= 0 {
		runs = 500
	}

	mc, err := montecarlo.Run(pnls, cfg.InitialInvestment, runs, cfg.MonteCarloConfidence)
	if err != nil {
		logger.S().Fatalf("蒙特卡洛重采样失败: %v", err)
	}
	reporter.PrintMonteCarloReport(os.Stdout, mc)
}

// runLiveMode 启动实盘纸面交易循环
func runLiveMode(cfg *models.Config) {
	logger.S().Info("--- 启动实盘纸面交易模式 ---")

	if len(cfg.Symbols) == 0 && cfg.Symbol != "" {
		cfg.Symbols = []string{cfg.Symbol}
	}

	// 机器人注册表和租约锁共用同一个 BadgerDB
	db, err := persistence.OpenDB(cfg.DBPath)
	if err != nil {
		logger.S().Fatalf("打开 BadgerDB 失败: %v", err)
	}
	defer db.Close()
	repo := persistence.NewBadgerRepositoryFromDB(db)
	locks := lock.NewBadgerStore(db)

	tradeDB, err := storage.InitDB(cfg.TradeDBPath)
	if err != nil {
		logger.S().Fatalf("初始化交易数据库失败: %v", err)
	}
	defer tradeDB.Close()

	// 行情降级链: REST主源 -> WebSocket缓存 -> 配置兜底价
	wsCache := market.NewWSCache("", logger.L())
	wsCache.Start(cfg.Symbols)
	defer wsCache.Stop()
	prices := market.NewChainSource(logger.L(),
		[]string{"binance_rest", "ws_cache", "static"},
		market.NewBinanceSource(), wsCache, market.NewStaticSource(cfg.StaticPrices))

	runner := live.NewRunner(cfg, repo, locks, prices, tradeDB, logger.L())

	// 等待中断信号以实现优雅退出
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx); err != nil {
		logger.S().Fatalf("实盘循环异常退出: %v", err)
	}
	logger.S().Info("实盘循环已停止。")
}
