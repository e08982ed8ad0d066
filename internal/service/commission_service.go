package service

import (
	"fmt"
	"strings"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/logger"
	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 分佣无操作原因
const (
	DistributionReasonDistributed      = "distributed"
	DistributionReasonDisabled         = "disabled"
	DistributionReasonAlreadyProcessed = "already_processed"
	DistributionReasonNoCoupon         = "no_coupon"
	DistributionReasonNoAffiliate      = "no_affiliate"
	DistributionReasonNotEligible      = "not_eligible"
	DistributionReasonEmptyPool        = "empty_pool"
)

// RecipientShare 单个收益方的分成
type RecipientShare struct {
	AffiliateID uint         `json:"affiliate_id"`
	Level       string       `json:"level"`
	Amount      models.Money `json:"amount"`
}

// DistributionResult 分佣结果。
// Processed 为 false 时 Reason 说明为何没有产生分佣，属预期结果而非错误。
type DistributionResult struct {
	Processed  bool             `json:"processed"`
	Reason     string           `json:"reason"`
	Pool       models.Money     `json:"pool"`
	Recipients []RecipientShare `json:"recipients"`
}

// CommissionService 分佣业务服务
type CommissionService struct {
	affiliateRepo repository.AffiliateRepository
	txnRepo       repository.TransactionRepository
	orderRepo     repository.OrderRepository
	productRepo   repository.ProductRepository
	settingSvc    *SettingService
}

// NewCommissionService 创建分佣服务
func NewCommissionService(
	affiliateRepo repository.AffiliateRepository,
	txnRepo repository.TransactionRepository,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	settingSvc *SettingService,
) *CommissionService {
	return &CommissionService{
		affiliateRepo: affiliateRepo,
		txnRepo:       txnRepo,
		orderRepo:     orderRepo,
		productRepo:   productRepo,
		settingSvc:    settingSvc,
	}
}

// DistributeOrder 对已确认支付的订单执行分佣。
// 幂等：同一订单重复触发只产生一次流水，后续调用返回 already_processed。
func (s *CommissionService) DistributeOrder(orderID uint) (*DistributionResult, error) {
	if s == nil || s.affiliateRepo == nil || s.txnRepo == nil || s.orderRepo == nil {
		return nil, ErrServiceUnavailable
	}

	setting, err := s.settingSvc.GetAffiliateSetting()
	if err != nil {
		return nil, err
	}
	if !setting.Enabled {
		return &DistributionResult{Reason: DistributionReasonDisabled}, nil
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	processed, err := s.txnRepo.ExistsForOrder(order.ID)
	if err != nil {
		return nil, err
	}
	if processed {
		return &DistributionResult{Reason: DistributionReasonAlreadyProcessed}, nil
	}

	couponCode := strings.ToUpper(strings.TrimSpace(order.CouponCode))
	if couponCode == "" {
		return &DistributionResult{Reason: DistributionReasonNoCoupon}, nil
	}

	direct, err := s.affiliateRepo.GetByCouponCode(couponCode)
	if err != nil {
		return nil, err
	}
	if direct == nil {
		return &DistributionResult{Reason: DistributionReasonNoAffiliate}, nil
	}
	if direct.Status != constants.AffiliateStatusApproved || !direct.IsActive {
		return &DistributionResult{Reason: DistributionReasonNotEligible}, nil
	}

	poolResult, err := s.computeOrderPool(order, setting)
	if err != nil {
		return nil, err
	}
	if len(poolResult.SkippedProducts) > 0 {
		logger.Warnw("commission_pool_items_skipped",
			"order_id", order.ID,
			"product_ids", poolResult.SkippedProducts,
		)
	}
	if poolResult.Pool.LessThanOrEqual(decimal.Zero) {
		return &DistributionResult{Reason: DistributionReasonEmptyPool}, nil
	}
	pool := poolResult.Pool

	shares, err := s.resolveShares(direct, pool, setting)
	if err != nil {
		return nil, err
	}

	result := &DistributionResult{
		Processed:  true,
		Reason:     DistributionReasonDistributed,
		Pool:       pool,
		Recipients: shares,
	}

	err = s.affiliateRepo.Transaction(func(tx *gorm.DB) error {
		txnRepo := s.txnRepo.WithTx(tx)
		affiliateRepo := s.affiliateRepo.WithTx(tx)

		// 事务内复查，防止并发触发重复分佣
		processed, err := txnRepo.ExistsForOrder(order.ID)
		if err != nil {
			return err
		}
		if processed {
			result.Processed = false
			result.Reason = DistributionReasonAlreadyProcessed
			result.Recipients = nil
			return nil
		}

		for _, share := range shares {
			orderID := order.ID
			txn := &models.AffiliateTransaction{
				AffiliateID:     share.AffiliateID,
				FromAffiliateID: direct.ID,
				OrderID:         &orderID,
				Amount:          share.Amount,
				Type:            share.Level,
				Status:          constants.TransactionStatusPending,
				Description:     fmt.Sprintf("订单 %s %s 分成", order.OrderNo, share.Level),
			}
			if err := txnRepo.Create(txn); err != nil {
				if isUniqueViolation(err) {
					result.Processed = false
					result.Reason = DistributionReasonAlreadyProcessed
					result.Recipients = nil
					return nil
				}
				return err
			}

			deltas := map[string]models.Money{
				"total_earnings":  share.Amount,
				"pending_balance": share.Amount,
			}
			deltas[earningsColumnForLevel(share.Level)] = share.Amount
			if err := affiliateRepo.ApplyEarningsDelta(share.AffiliateID, deltas); err != nil {
				return err
			}
		}

		if err := affiliateRepo.IncrementOrderStats(direct.ID, 1, order.TotalAmount); err != nil {
			return err
		}

		// 订单计数变化后重算等级
		qualifying := direct.TotalOrders + 1
		if direct.IsPaid {
			qualifying = direct.OrdersSincePaid + 1
		}
		newTier := ClassifyTier(qualifying, direct.IsPaid)
		if newTier.Name != direct.CurrentTier {
			if err := affiliateRepo.UpdateFields(direct.ID, map[string]interface{}{
				"current_tier": newTier.Name,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Processed {
		logger.Infow("commission_distributed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"direct_affiliate_id", direct.ID,
			"pool", pool.String(),
			"recipients", len(result.Recipients),
		)
	}
	return result, nil
}

// SettleOrder 订单签收后将该订单的待结算流水转为可提现。
// 幂等：流水已结算时再次调用不产生任何变更。
func (s *CommissionService) SettleOrder(orderID uint) error {
	if s == nil || s.affiliateRepo == nil || s.txnRepo == nil {
		return ErrServiceUnavailable
	}
	if orderID == 0 {
		return ErrInvalidParam
	}

	return s.affiliateRepo.Transaction(func(tx *gorm.DB) error {
		txnRepo := s.txnRepo.WithTx(tx)
		affiliateRepo := s.affiliateRepo.WithTx(tx)

		pending, err := txnRepo.ListByOrderForUpdate(orderID, []string{constants.TransactionStatusPending})
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(pending))
		totals := make(map[uint]decimal.Decimal, len(pending))
		for _, txn := range pending {
			ids = append(ids, txn.ID)
			totals[txn.AffiliateID] = totals[txn.AffiliateID].Add(txn.Amount.Decimal)
		}
		if err := txnRepo.BatchUpdateStatus(ids, constants.TransactionStatusSettled); err != nil {
			return err
		}

		for affiliateID, amount := range totals {
			if err := affiliateRepo.ApplyEarningsDelta(affiliateID, map[string]models.Money{
				"pending_balance":   models.NewMoneyFromDecimal(amount.Neg()),
				"available_balance": models.NewMoneyFromDecimal(amount),
			}); err != nil {
				return err
			}
		}

		logger.Infow("commission_settled",
			"order_id", orderID,
			"transactions", len(pending),
		)
		return nil
	})
}

// ListTransactions 查询佣金流水列表
func (s *CommissionService) ListTransactions(filter repository.TransactionListFilter) ([]models.AffiliateTransaction, int64, error) {
	if s == nil || s.txnRepo == nil {
		return nil, 0, ErrServiceUnavailable
	}
	return s.txnRepo.List(filter)
}

// computeOrderPool 读取订单项对应的商品成本配置并计算分润池
func (s *CommissionService) computeOrderPool(order *models.Order, setting AffiliateSetting) (PoolResult, error) {
	productIDs := make([]uint, 0, len(order.Items))
	seen := make(map[uint]bool, len(order.Items))
	for _, item := range order.Items {
		if seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true
		productIDs = append(productIDs, item.ProductID)
	}

	products, err := s.productRepo.ListByIDs(productIDs)
	if err != nil {
		return PoolResult{}, err
	}
	productsByID := make(map[uint]models.Product, len(products))
	for _, product := range products {
		productsByID[product.ID] = product
	}

	return ComputePool(order, productsByID, decimal.NewFromFloat(setting.DefaultPoolPercent)), nil
}

// resolveShares 计算直推与三级上线的分成。
// 链路在缺失上级处截断，缺失层级的份额不再分配。
func (s *CommissionService) resolveShares(direct *models.Affiliate, pool models.Money, setting AffiliateSetting) ([]RecipientShare, error) {
	qualifying := direct.TotalOrders
	if direct.IsPaid {
		qualifying = direct.OrdersSincePaid
	}
	tier := ClassifyTier(qualifying, direct.IsPaid)

	shares := []RecipientShare{{
		AffiliateID: direct.ID,
		Level:       constants.TransactionTypeDirect,
		Amount:      shareOfPool(pool, tier.Rate),
	}}

	levelPercents := []struct {
		level   string
		percent float64
	}{
		{constants.TransactionTypeLevel1, setting.Level1Percent},
		{constants.TransactionTypeLevel2, setting.Level2Percent},
		{constants.TransactionTypeLevel3, setting.Level3Percent},
	}

	visited := map[uint]bool{direct.ID: true}
	current := direct
	for _, lvl := range levelPercents {
		if current.ParentID == nil || *current.ParentID == 0 {
			break
		}
		parent, err := s.affiliateRepo.GetByID(*current.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || visited[parent.ID] {
			break
		}
		visited[parent.ID] = true

		if lvl.percent > 0 {
			shares = append(shares, RecipientShare{
				AffiliateID: parent.ID,
				Level:       lvl.level,
				Amount:      shareOfPool(pool, decimal.NewFromFloat(lvl.percent)),
			})
		}
		current = parent
	}
	return shares, nil
}

// shareOfPool 计算池子的百分比份额
func shareOfPool(pool models.Money, percent decimal.Decimal) models.Money {
	return models.NewMoneyFromDecimal(pool.Decimal.Mul(percent).Div(oneHundred))
}

// earningsColumnForLevel 分成层级对应的收益列
func earningsColumnForLevel(level string) string {
	switch level {
	case constants.TransactionTypeLevel1:
		return "level1_earnings"
	case constants.TransactionTypeLevel2:
		return "level2_earnings"
	case constants.TransactionTypeLevel3:
		return "level3_earnings"
	default:
		return "direct_earnings"
	}
}
