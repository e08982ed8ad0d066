package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AffiliateRepository 推广员数据访问接口
type AffiliateRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AffiliateRepository

	GetByID(id uint) (*models.Affiliate, error)
	GetByIDForUpdate(id uint) (*models.Affiliate, error)
	GetByEmail(email string) (*models.Affiliate, error)
	GetByCouponCode(code string) (*models.Affiliate, error)
	Create(affiliate *models.Affiliate) error
	UpdateFields(id uint, updates map[string]interface{}) error
	ApplyEarningsDelta(id uint, deltas map[string]models.Money) error
	IncrementOrderStats(id uint, orders int64, sales models.Money) error

	ListChildren(parentID uint) ([]models.Affiliate, error)
	GetChildAt(parentID uint, position string) (*models.Affiliate, error)
	ListByReferrer(referrerID uint) ([]models.Affiliate, error)
	GetRoot() (*models.Affiliate, error)
	ListRoots() ([]models.Affiliate, error)
	ClearReferrer(referrerID uint) error
	Reparent(childID uint, parentID *uint, position string) error
	DeleteHard(id uint) error

	List(filter AffiliateListFilter) ([]models.Affiliate, int64, error)
	CountByStatus(status string) (int64, error)
}

// GormAffiliateRepository GORM 推广员仓储
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广员仓储
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) AffiliateRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAffiliateRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按ID获取推广员
func (r *GormAffiliateRepository) GetByID(id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.First(&affiliate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByIDForUpdate 按ID获取推广员并加行锁
func (r *GormAffiliateRepository) GetByIDForUpdate(id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&affiliate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByEmail 按邮箱获取推广员
func (r *GormAffiliateRepository) GetByEmail(email string) (*models.Affiliate, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Where("email = ?", email).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByCouponCode 按优惠码获取推广员（不区分大小写）
func (r *GormAffiliateRepository) GetByCouponCode(code string) (*models.Affiliate, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Where("coupon_code = ?", code).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// Create 创建推广员
func (r *GormAffiliateRepository) Create(affiliate *models.Affiliate) error {
	if affiliate == nil {
		return nil
	}
	return r.db.Create(affiliate).Error
}

// UpdateFields 按字段更新推广员
func (r *GormAffiliateRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ApplyEarningsDelta 原子累加收益与余额字段
func (r *GormAffiliateRepository) ApplyEarningsDelta(id uint, deltas map[string]models.Money) error {
	if id == 0 || len(deltas) == 0 {
		return nil
	}
	updates := make(map[string]interface{}, len(deltas)+1)
	for column, delta := range deltas {
		if delta.IsZero() {
			continue
		}
		updates[column] = gorm.Expr(column+" + ?", delta)
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// IncrementOrderStats 原子累加订单数与销售额统计
func (r *GormAffiliateRepository) IncrementOrderStats(id uint, orders int64, sales models.Money) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_orders":       gorm.Expr("total_orders + ?", orders),
			"orders_since_paid":  gorm.Expr("orders_since_paid + ?", orders),
			"total_sales_amount": gorm.Expr("total_sales_amount + ?", sales),
			"updated_at":         time.Now(),
		}).Error
}

// ListChildren 列出直接下级（按位置排序：左、右）
func (r *GormAffiliateRepository) ListChildren(parentID uint) ([]models.Affiliate, error) {
	if parentID == 0 {
		return nil, nil
	}
	var children []models.Affiliate
	if err := r.db.Where("parent_id = ?", parentID).
		Order("position ASC").
		Find(&children).Error; err != nil {
		return nil, err
	}
	return children, nil
}

// GetChildAt 获取指定槽位上的下级
func (r *GormAffiliateRepository) GetChildAt(parentID uint, position string) (*models.Affiliate, error) {
	if parentID == 0 {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Where("parent_id = ? AND position = ?", parentID, position).
		First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// ListByReferrer 列出某推广员直接推荐的成员
func (r *GormAffiliateRepository) ListByReferrer(referrerID uint) ([]models.Affiliate, error) {
	if referrerID == 0 {
		return nil, nil
	}
	var list []models.Affiliate
	if err := r.db.Where("referrer_id = ?", referrerID).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// GetRoot 获取树根（最早批准且无上级的推广员）
func (r *GormAffiliateRepository) GetRoot() (*models.Affiliate, error) {
	var affiliate models.Affiliate
	if err := r.db.Where("parent_id IS NULL AND status = ?", constants.AffiliateStatusApproved).
		Order("id ASC").
		First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// ListRoots 列出全部无上级的已批准推广员
func (r *GormAffiliateRepository) ListRoots() ([]models.Affiliate, error) {
	var list []models.Affiliate
	if err := r.db.Where("parent_id IS NULL AND status = ?", constants.AffiliateStatusApproved).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ClearReferrer 清除推荐关系（成员被移除时调用）
func (r *GormAffiliateRepository) ClearReferrer(referrerID uint) error {
	if referrerID == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("referrer_id = ?", referrerID).
		Updates(map[string]interface{}{
			"referrer_id": nil,
			"updated_at":  time.Now(),
		}).Error
}

// Reparent 调整树上挂载位置，parentID 为 nil 时提升为根
func (r *GormAffiliateRepository) Reparent(childID uint, parentID *uint, position string) error {
	if childID == 0 {
		return nil
	}
	updates := map[string]interface{}{
		"parent_id":  nil,
		"position":   "",
		"updated_at": time.Now(),
	}
	if parentID != nil {
		updates["parent_id"] = *parentID
		updates["position"] = position
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", childID).
		Updates(updates).Error
}

// DeleteHard 物理删除推广员
func (r *GormAffiliateRepository) DeleteHard(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Unscoped().Delete(&models.Affiliate{}, id).Error
}

// List 查询推广员列表
func (r *GormAffiliateRepository) List(filter AffiliateListFilter) ([]models.Affiliate, int64, error) {
	query := r.db.Model(&models.Affiliate{})

	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if tier := strings.TrimSpace(filter.Tier); tier != "" {
		query = query.Where("current_tier = ?", tier)
	}
	if filter.IsPaid != nil {
		query = query.Where("is_paid = ?", *filter.IsPaid)
	}
	if filter.ReferrerID > 0 {
		query = query.Where("referrer_id = ?", filter.ReferrerID)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("name LIKE ? OR email LIKE ? OR coupon_code LIKE ?", like, like, strings.ToUpper(like))
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

	var list []models.Affiliate
	if err := applyPagination(query.Order("created_at DESC"), filter.Page, filter.PageSize).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// CountByStatus 按状态统计推广员数量
func (r *GormAffiliateRepository) CountByStatus(status string) (int64, error) {
	var total int64
	query := r.db.Model(&models.Affiliate{})
	if status = strings.TrimSpace(status); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
