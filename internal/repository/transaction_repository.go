package repository

import (
	"strings"
	"time"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransactionRepository 佣金流水数据访问接口
type TransactionRepository interface {
	WithTx(tx *gorm.DB) TransactionRepository

	Create(txn *models.AffiliateTransaction) error
	ExistsForOrder(orderID uint) (bool, error)
	ExistsBonus(affiliateID, fromAffiliateID uint) (bool, error)
	ListByOrderForUpdate(orderID uint, statuses []string) ([]models.AffiliateTransaction, error)
	BatchUpdateStatus(ids []uint, status string) error
	SumByAffiliateAndStatus(affiliateID uint) (map[string]models.Money, error)
	SumByAffiliateAndType(affiliateID uint, statuses []string) (map[string]models.Money, error)
	SumByAffiliateAndDelivery(affiliateID uint) (settled models.Money, pending models.Money, err error)
	MarkSettledForDeliveredOrders(affiliateID uint) (int64, error)
	ListCounterpartyIDs(affiliateID uint) ([]uint, error)
	DeleteByParticipant(affiliateID uint) error
	List(filter TransactionListFilter) ([]models.AffiliateTransaction, int64, error)
}

// GormTransactionRepository GORM 佣金流水仓储
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository 创建佣金流水仓储
func NewTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTransactionRepository) WithTx(tx *gorm.DB) TransactionRepository {
	if tx == nil {
		return r
	}
	return &GormTransactionRepository{db: tx}
}

// Create 创建佣金流水
func (r *GormTransactionRepository) Create(txn *models.AffiliateTransaction) error {
	if txn == nil {
		return nil
	}
	return r.db.Create(txn).Error
}

// ExistsForOrder 判断订单是否已产生过佣金流水
func (r *GormTransactionRepository) ExistsForOrder(orderID uint) (bool, error) {
	if orderID == 0 {
		return false, nil
	}
	var total int64
	if err := r.db.Model(&models.AffiliateTransaction{}).
		Where("order_id = ?", orderID).
		Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}

// ExistsBonus 判断是否已为同一对推荐关系发放过奖励
func (r *GormTransactionRepository) ExistsBonus(affiliateID, fromAffiliateID uint) (bool, error) {
	if affiliateID == 0 || fromAffiliateID == 0 {
		return false, nil
	}
	var total int64
	if err := r.db.Model(&models.AffiliateTransaction{}).
		Where("affiliate_id = ? AND from_affiliate_id = ? AND type = ?",
			affiliateID, fromAffiliateID, constants.TransactionTypeBonus).
		Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}

// ListByOrderForUpdate 按订单获取佣金流水并加行锁
func (r *GormTransactionRepository) ListByOrderForUpdate(orderID uint, statuses []string) ([]models.AffiliateTransaction, error) {
	if orderID == 0 {
		return nil, nil
	}
	query := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var list []models.AffiliateTransaction
	if err := query.Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// BatchUpdateStatus 批量更新佣金流水状态
func (r *GormTransactionRepository) BatchUpdateStatus(ids []uint, status string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.AffiliateTransaction{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

// SumByAffiliateAndStatus 按状态汇总某推广员的佣金流水
func (r *GormTransactionRepository) SumByAffiliateAndStatus(affiliateID uint) (map[string]models.Money, error) {
	if affiliateID == 0 {
		return map[string]models.Money{}, nil
	}
	type row struct {
		Status string
		Total  decimal.Decimal
	}
	var rows []row
	if err := r.db.Model(&models.AffiliateTransaction{}).
		Select("status, COALESCE(SUM(amount), 0) AS total").
		Where("affiliate_id = ?", affiliateID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	sums := make(map[string]models.Money, len(rows))
	for _, item := range rows {
		sums[item.Status] = models.NewMoneyFromDecimal(item.Total)
	}
	return sums, nil
}

// SumByAffiliateAndType 按类型汇总某推广员的佣金流水
func (r *GormTransactionRepository) SumByAffiliateAndType(affiliateID uint, statuses []string) (map[string]models.Money, error) {
	if affiliateID == 0 {
		return map[string]models.Money{}, nil
	}
	type row struct {
		Type  string
		Total decimal.Decimal
	}
	query := r.db.Model(&models.AffiliateTransaction{}).
		Select("type, COALESCE(SUM(amount), 0) AS total").
		Where("affiliate_id = ?", affiliateID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var rows []row
	if err := query.Group("type").Scan(&rows).Error; err != nil {
		return nil, err
	}
	sums := make(map[string]models.Money, len(rows))
	for _, item := range rows {
		sums[item.Type] = models.NewMoneyFromDecimal(item.Total)
	}
	return sums, nil
}

// SumByAffiliateAndDelivery 按关联订单的签收状态划分汇总。
// 已签收订单产生的流水与无订单关联的奖励计入已结算桶，其余计入待结算桶。
func (r *GormTransactionRepository) SumByAffiliateAndDelivery(affiliateID uint) (models.Money, models.Money, error) {
	if affiliateID == 0 {
		return models.Money{}, models.Money{}, nil
	}
	type row struct {
		Bucket string
		Total  decimal.Decimal
	}
	var rows []row
	if err := r.db.Model(&models.AffiliateTransaction{}).
		Select("CASE WHEN affiliate_transactions.order_id IS NULL OR orders.status = ? THEN 'settled' ELSE 'pending' END AS bucket, COALESCE(SUM(affiliate_transactions.amount), 0) AS total",
			constants.OrderStatusDelivered).
		Joins("LEFT JOIN orders ON orders.id = affiliate_transactions.order_id").
		Where("affiliate_transactions.affiliate_id = ?", affiliateID).
		Group("bucket").
		Scan(&rows).Error; err != nil {
		return models.Money{}, models.Money{}, err
	}
	var settled, pending models.Money
	for _, item := range rows {
		switch item.Bucket {
		case "settled":
			settled = models.NewMoneyFromDecimal(item.Total)
		case "pending":
			pending = models.NewMoneyFromDecimal(item.Total)
		}
	}
	return settled, pending, nil
}

// MarkSettledForDeliveredOrders 将已签收订单名下仍为待结算的流水修复为已结算
func (r *GormTransactionRepository) MarkSettledForDeliveredOrders(affiliateID uint) (int64, error) {
	if affiliateID == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.AffiliateTransaction{}).
		Where("affiliate_id = ? AND status = ?", affiliateID, constants.TransactionStatusPending).
		Where("order_id IN (?)", r.db.Model(&models.Order{}).
			Select("id").
			Where("status = ?", constants.OrderStatusDelivered)).
		Updates(map[string]interface{}{
			"status":     constants.TransactionStatusSettled,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListCounterpartyIDs 列出以某推广员为来源方的流水中去重后的收益方。
// 用于删除来源流水前确定哪些成员的统计需要重算。
func (r *GormTransactionRepository) ListCounterpartyIDs(affiliateID uint) ([]uint, error) {
	if affiliateID == 0 {
		return nil, nil
	}
	var ids []uint
	if err := r.db.Model(&models.AffiliateTransaction{}).
		Distinct("affiliate_id").
		Where("from_affiliate_id = ? AND affiliate_id <> ?", affiliateID, affiliateID).
		Pluck("affiliate_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteByParticipant 删除某推广员作为收益方或来源方的全部佣金流水
func (r *GormTransactionRepository) DeleteByParticipant(affiliateID uint) error {
	if affiliateID == 0 {
		return nil
	}
	return r.db.Unscoped().
		Where("affiliate_id = ? OR from_affiliate_id = ?", affiliateID, affiliateID).
		Delete(&models.AffiliateTransaction{}).Error
}

// List 查询佣金流水列表
func (r *GormTransactionRepository) List(filter TransactionListFilter) ([]models.AffiliateTransaction, int64, error) {
	query := r.db.Model(&models.AffiliateTransaction{})

	if filter.AffiliateID > 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if filter.OrderID > 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if txType := strings.TrimSpace(filter.Type); txType != "" {
		query = query.Where("type = ?", txType)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []models.AffiliateTransaction
	if err := applyPagination(query.Order("created_at DESC"), filter.Page, filter.PageSize).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
