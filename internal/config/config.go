package config

import (
	"encoding/json"
	"fmt"
	"os"

	"paper-quant-bot-go/internal/models"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envOverrides 允许用环境变量覆盖部署相关的配置项 (前缀 BOT_)。
// 策略参数只能走配置文件，环境变量不碰它们。
type envOverrides struct {
	Symbol            string  `envconfig:"SYMBOL"`
	InitialInvestment float64 `envconfig:"INITIAL_INVESTMENT"`
	DBPath            string  `envconfig:"DB_PATH"`
	TradeDBPath       string  `envconfig:"TRADE_DB_PATH"`
	LockTTLSec        int     `envconfig:"LOCK_TTL_SEC"`
	CycleIntervalSec  int     `envconfig:"CYCLE_INTERVAL_SEC"`
	LogLevel          string  `envconfig:"LOG_LEVEL"`
}

// LoadConfig 从指定路径加载JSON配置文件并解析到Config结构体中。
// .env 文件 (如果存在) 会先被载入，随后用 BOT_ 前缀的环境变量覆盖部署项。
func LoadConfig(path string) (*models.Config, error) {
	// .env 缺失不是错误，生产环境通常直接注入环境变量
	_ = godotenv.Load()

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := &models.Config{}
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}

	var env envOverrides
	if err := envconfig.Process("BOT", &env); err != nil {
		return nil, fmt.Errorf("解析环境变量覆盖失败: %w", err)
	}
	applyOverrides(config, &env)

	if err := validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

func applyOverrides(cfg *models.Config, env *envOverrides) {
	if env.Symbol != "" {
		cfg.Symbol = env.Symbol
	}
	if env.InitialInvestment > 0 {
		cfg.InitialInvestment = env.InitialInvestment
	}
	if env.DBPath != "" {
		cfg.DBPath = env.DBPath
	}
	if env.TradeDBPath != "" {
		cfg.TradeDBPath = env.TradeDBPath
	}
	if env.LockTTLSec > 0 {
		cfg.LockTTLSec = env.LockTTLSec
	}
	if env.CycleIntervalSec > 0 {
		cfg.CycleIntervalSec = env.CycleIntervalSec
	}
	if env.LogLevel != "" {
		cfg.LogConfig.Level = env.LogLevel
	}
}

func validate(cfg *models.Config) error {
	if cfg.InitialInvestment <= 0 {
		return fmt.Errorf("initial_investment 必须为正数, 当前 %.2f", cfg.InitialInvestment)
	}
	if cfg.WalkForwardRatio < 0 || cfg.WalkForwardRatio >= 1 {
		if cfg.WalkForwardRatio != 0 {
			return fmt.Errorf("walk_forward_ratio 必须在 (0,1) 区间内, 当前 %.2f", cfg.WalkForwardRatio)
		}
	}
	// 租约必须在下一个调度周期开始前过期，否则崩溃的实例会把锁带进坟墓
	if cfg.LockTTLSec > 0 && cfg.CycleIntervalSec > 0 && cfg.LockTTLSec >= cfg.CycleIntervalSec {
		return fmt.Errorf("lock_ttl_sec (%d) 必须短于 cycle_interval_sec (%d)", cfg.LockTTLSec, cfg.CycleIntervalSec)
	}
	return nil
}
