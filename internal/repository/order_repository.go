package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) OrderRepository

	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	UpdateStatus(id uint, status string, updates map[string]interface{}) error
	CountAndSumByCouponCode(code string) (int64, models.Money, error)
	CountByCouponCodeSince(code string, since time.Time) (int64, error)
	List(filter OrderListFilter) ([]models.Order, int64, error)
}

// GormOrderRepository GORM 订单仓储
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Transaction 执行事务
func (r *GormOrderRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Create 创建订单
func (r *GormOrderRepository) Create(order *models.Order) error {
	if order == nil {
		return nil
	}
	return r.db.Create(order).Error
}

// GetByID 按ID获取订单（含订单项）
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate 按ID获取订单并加行锁
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderNo 按订单号获取订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Preload("Items").
		Where("order_no = ?", orderNo).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// UpdateStatus 更新订单状态及附带字段
func (r *GormOrderRepository) UpdateStatus(id uint, status string, updates map[string]interface{}) error {
	if id == 0 {
		return nil
	}
	merged := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	for k, v := range updates {
		merged[k] = v
	}
	return r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Updates(merged).Error
}

// CountAndSumByCouponCode 统计某优惠码名下的有效订单数与销售额（排除已取消）
func (r *GormOrderRepository) CountAndSumByCouponCode(code string) (int64, models.Money, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return 0, models.Money{}, nil
	}
	type row struct {
		Total int64
		Sum   decimal.Decimal
	}
	var result row
	if err := r.db.Model(&models.Order{}).
		Select("COUNT(*) AS total, COALESCE(SUM(total_amount), 0) AS sum").
		Where("coupon_code = ? AND status <> ?", code, constants.OrderStatusCanceled).
		Scan(&result).Error; err != nil {
		return 0, models.Money{}, err
	}
	return result.Total, models.NewMoneyFromDecimal(result.Sum), nil
}

// CountByCouponCodeSince 统计某优惠码在指定时间之后的有效订单数（排除已取消）
func (r *GormOrderRepository) CountByCouponCodeSince(code string, since time.Time) (int64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.Order{}).
		Where("coupon_code = ? AND status <> ? AND created_at >= ?", code, constants.OrderStatusCanceled, since).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// List 查询订单列表
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})

	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if orderNo := strings.TrimSpace(filter.OrderNo); orderNo != "" {
		query = query.Where("order_no = ?", orderNo)
	}
	if code := strings.ToUpper(strings.TrimSpace(filter.CouponCode)); code != "" {
		query = query.Where("coupon_code = ?", code)
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

	var list []models.Order
	if err := applyPagination(query.Order("created_at DESC"), filter.Page, filter.PageSize).
		Preload("Items").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
