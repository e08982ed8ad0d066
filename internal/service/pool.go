package service

import (
	"github.com/affiliate-next/internal/models"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// PoolResult 分润池计算结果
type PoolResult struct {
	Pool            models.Money // 分润池总额
	SkippedProducts []uint       // 未能解析成本配置而被排除的商品ID
}

// ComputePool 按订单项计算分润池。
// 每项贡献 = 单价 × 数量 × 分润比例 / 100；商品未配置比例时使用默认值，
// 商品缺失时该项贡献 0 并记录，不中断整单计算。
func ComputePool(order *models.Order, productsByID map[uint]models.Product, defaultPoolPercent decimal.Decimal) PoolResult {
	result := PoolResult{}
	if order == nil || len(order.Items) == 0 {
		return result
	}

	pool := decimal.Zero
	for _, item := range order.Items {
		product, ok := productsByID[item.ProductID]
		if !ok {
			result.SkippedProducts = append(result.SkippedProducts, item.ProductID)
			continue
		}

		percent := product.AffiliatePoolPercent.Decimal
		if percent.LessThanOrEqual(decimal.Zero) {
			percent = defaultPoolPercent
		}

		contribution := item.UnitPrice.Decimal.
			Mul(decimal.NewFromInt(int64(item.Quantity))).
			Mul(percent).
			Div(oneHundred)
		if contribution.IsNegative() {
			continue
		}
		pool = pool.Add(contribution)
	}

	result.Pool = models.NewMoneyFromDecimal(pool)
	return result
}
