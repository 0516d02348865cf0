package strategy

import (
	"fmt"

	"paper-quant-bot-go/internal/models"
)

// New 按类型创建策略实例。配置在这里做规范化和校验：
// 配置错误 (如 ENSEMBLE 子策略不足) 在任何模拟运行前就暴露给调用方。
// 新增策略意味着新增一个变体，而不是在多份引擎拷贝里撒 case。
func New(typ models.StrategyType, cfg *models.StrategyConfig) (Strategy, error) {
	if cfg == nil {
		cfg = &models.StrategyConfig{}
	}
	cfg.Normalize()
	if err := cfg.Validate(typ); err != nil {
		return nil, err
	}

	switch typ {
	case models.StrategyDCA:
		return &DCA{cfg: cfg}, nil
	case models.StrategyGrid:
		return &Grid{cfg: cfg}, nil
	case models.StrategyMomentum:
		return &Momentum{cfg: cfg}, nil
	case models.StrategyMeanReversion:
		return &MeanReversion{cfg: cfg}, nil
	case models.StrategyTrailing:
		return &Trailing{cfg: cfg}, nil
	case models.StrategyMartingale:
		return &Martingale{cfg: cfg}, nil
	case models.StrategyScalping:
		return &Scalping{cfg: cfg}, nil
	case models.StrategyStatArb:
		return &StatArb{cfg: cfg}, nil
	case models.StrategyFundingArb:
		return &FundingArb{cfg: cfg}, nil
	case models.StrategyRLAgent:
		return &RLAgent{cfg: cfg}, nil
	case models.StrategyEnsemble:
		subs := make([]weightedSub, 0, len(cfg.SubStrategies))
		for _, ws := range cfg.SubStrategies {
			sub, err := New(ws.Type, cfg)
			if err != nil {
				return nil, fmt.Errorf("构建子策略 %s 失败: %w", ws.Type, err)
			}
			subs = append(subs, weightedSub{strategy: sub, weight: ws.Weight})
		}
		return &Ensemble{cfg: cfg, subs: subs}, nil
	default:
		return nil, fmt.Errorf("未知的策略类型: %s", typ)
	}
}
