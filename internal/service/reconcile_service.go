package service

import (
	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/logger"
	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReconcileService 余额对账服务。
// 从流水与订单记录出发全量重算会员的派生字段，可重复执行，
// 既是定时修复工具也是人工排障入口。
type ReconcileService struct {
	affiliateRepo repository.AffiliateRepository
	txnRepo       repository.TransactionRepository
	orderRepo     repository.OrderRepository
	payoutRepo    repository.PayoutRepository
}

// NewReconcileService 创建对账服务
func NewReconcileService(
	affiliateRepo repository.AffiliateRepository,
	txnRepo repository.TransactionRepository,
	orderRepo repository.OrderRepository,
	payoutRepo repository.PayoutRepository,
) *ReconcileService {
	return &ReconcileService{
		affiliateRepo: affiliateRepo,
		txnRepo:       txnRepo,
		orderRepo:     orderRepo,
		payoutRepo:    payoutRepo,
	}
}

// ReconcileAffiliate 全量重算单个会员的统计、收益、等级与余额。
// 幂等：数据不变时连续执行两次结果一致。
func (s *ReconcileService) ReconcileAffiliate(affiliateID uint) error {
	if s == nil || s.affiliateRepo == nil || s.txnRepo == nil || s.orderRepo == nil {
		return ErrServiceUnavailable
	}
	if affiliateID == 0 {
		return ErrInvalidParam
	}

	return s.affiliateRepo.Transaction(func(tx *gorm.DB) error {
		return s.reconcileWithTx(tx, affiliateID)
	})
}

// reconcileWithTx 在既有事务内完成单个会员的重算，
// 供移除手术等需要与其他写操作同事务提交的调用方复用。
func (s *ReconcileService) reconcileWithTx(tx *gorm.DB, affiliateID uint) error {
	if s == nil || s.affiliateRepo == nil || s.txnRepo == nil || s.orderRepo == nil {
		return ErrServiceUnavailable
	}
	if affiliateID == 0 {
		return ErrInvalidParam
	}

	affiliateRepo := s.affiliateRepo.WithTx(tx)
	txnRepo := s.txnRepo.WithTx(tx)
	orderRepo := s.orderRepo.WithTx(tx)

	affiliate, err := affiliateRepo.GetByIDForUpdate(affiliateID)
	if err != nil {
		return err
	}
	if affiliate == nil {
		return ErrNotFound
	}

	// 订单统计：按优惠码归属，排除已取消
	totalOrders, totalSales, err := orderRepo.CountAndSumByCouponCode(affiliate.CouponCode)
	if err != nil {
		return err
	}
	ordersSincePaid := int64(0)
	if affiliate.IsPaid && affiliate.PaidAt != nil {
		ordersSincePaid, err = orderRepo.CountByCouponCodeSince(affiliate.CouponCode, *affiliate.PaidAt)
		if err != nil {
			return err
		}
	}

	// 先把已签收订单名下残留的待结算流水修复为已结算
	repaired, err := txnRepo.MarkSettledForDeliveredOrders(affiliateID)
	if err != nil {
		return err
	}
	if repaired > 0 {
		logger.Warnw("reconcile_stale_transactions_repaired",
			"affiliate_id", affiliateID,
			"count", repaired,
		)
	}

	// 收益分桶：按流水类型汇总，总收益为四个分量之和
	sumsByType, err := txnRepo.SumByAffiliateAndType(affiliateID, nil)
	if err != nil {
		return err
	}
	direct := sumsByType[constants.TransactionTypeDirect]
	level1 := sumsByType[constants.TransactionTypeLevel1]
	level2 := sumsByType[constants.TransactionTypeLevel2]
	level3 := sumsByType[constants.TransactionTypeLevel3]
	totalEarnings := models.NewMoneyFromDecimal(direct.Decimal.
		Add(level1.Decimal).
		Add(level2.Decimal).
		Add(level3.Decimal))

	// 余额分账：按关联订单是否签收划分已结算与待结算
	settledTotal, pendingBalance, err := txnRepo.SumByAffiliateAndDelivery(affiliateID)
	if err != nil {
		return err
	}
	pendingPayouts := models.Money{}
	if s.payoutRepo != nil {
		pendingPayouts, err = s.payoutRepo.WithTx(tx).SumPendingByAffiliate(affiliateID)
		if err != nil {
			return err
		}
	}
	available := settledTotal.Decimal.
		Sub(affiliate.PaidBalance.Decimal).
		Sub(pendingPayouts.Decimal)
	if available.IsNegative() {
		available = decimal.Zero
	}

	qualifying := totalOrders
	if affiliate.IsPaid {
		qualifying = ordersSincePaid
	}
	tier := ClassifyTier(qualifying, affiliate.IsPaid)

	return affiliateRepo.UpdateFields(affiliateID, map[string]interface{}{
		"total_orders":       totalOrders,
		"orders_since_paid":  ordersSincePaid,
		"total_sales_amount": totalSales,
		"direct_earnings":    direct,
		"level1_earnings":    level1,
		"level2_earnings":    level2,
		"level3_earnings":    level3,
		"total_earnings":     totalEarnings,
		"pending_balance":    pendingBalance,
		"available_balance":  models.NewMoneyFromDecimal(available),
		"current_tier":       tier.Name,
	})
}

// ReconcileAll 对全部已批准会员执行对账（后台巡检任务入口）
func (s *ReconcileService) ReconcileAll() (int, error) {
	if s == nil || s.affiliateRepo == nil {
		return 0, ErrServiceUnavailable
	}

	page := 1
	const pageSize = 200
	reconciled := 0
	for {
		list, _, err := s.affiliateRepo.List(repository.AffiliateListFilter{
			Page:     page,
			PageSize: pageSize,
			Status:   constants.AffiliateStatusApproved,
		})
		if err != nil {
			return reconciled, err
		}
		if len(list) == 0 {
			return reconciled, nil
		}
		for _, affiliate := range list {
			if err := s.ReconcileAffiliate(affiliate.ID); err != nil {
				logger.Errorw("reconcile_affiliate_failed",
					"affiliate_id", affiliate.ID,
					"error", err,
				)
				continue
			}
			reconciled++
		}
		if len(list) < pageSize {
			return reconciled, nil
		}
		page++
	}
}
