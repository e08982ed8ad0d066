package service

import (
	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/logger"
	"github.com/shopspring/decimal"
)

// Tier 佣金等级（名称 + 直推分成比例）
type Tier struct {
	Name string
	Rate decimal.Decimal // 百分比
}

// tierBracket 等级区间（闭区间，最后一档开放上限）
type tierBracket struct {
	MinOrders int64
	MaxOrders int64 // -1 表示无上限
	Name      string
	Rate      int64
}

// 等级表：区间连续且覆盖 [0, +∞)
var tierBrackets = []tierBracket{
	{0, 20, constants.TierStarter, 10},
	{21, 50, constants.TierBronze, 15},
	{51, 100, constants.TierSilver, 20},
	{101, 150, constants.TierGold, 25},
	{151, 180, constants.TierPlatinum, 30},
	{181, 200, constants.TierDiamond, 35},
	{201, -1, constants.TierCrown, 40},
}

// lowestTier 最低等级（免费会员和兜底场景统一使用）
func lowestTier() Tier {
	bracket := tierBrackets[0]
	return Tier{Name: bracket.Name, Rate: decimal.NewFromInt(bracket.Rate)}
}

// ClassifyTier 按达标订单数与付费状态计算佣金等级。
// 免费会员始终停留在最低等级；付费会员按付费后的订单数匹配区间。
func ClassifyTier(qualifyingOrders int64, isPaid bool) Tier {
	if !isPaid {
		return lowestTier()
	}
	for _, bracket := range tierBrackets {
		if qualifyingOrders < bracket.MinOrders {
			continue
		}
		if bracket.MaxOrders >= 0 && qualifyingOrders > bracket.MaxOrders {
			continue
		}
		return Tier{Name: bracket.Name, Rate: decimal.NewFromInt(bracket.Rate)}
	}
	// 区间表覆盖全部非负整数，负数订单计数才会走到这里
	logger.Warnw("affiliate_tier_fallback",
		"qualifying_orders", qualifyingOrders,
		"is_paid", isPaid,
	)
	return lowestTier()
}
