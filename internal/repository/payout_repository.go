package repository

import (
	"errors"
	"strings"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PayoutRepository 提现申请数据访问接口
type PayoutRepository interface {
	WithTx(tx *gorm.DB) PayoutRepository

	Create(req *models.PayoutRequest) error
	Update(req *models.PayoutRequest) error
	GetByID(id uint) (*models.PayoutRequest, error)
	GetByIDForUpdate(id uint) (*models.PayoutRequest, error)
	HasPendingByAffiliate(affiliateID uint) (bool, error)
	SumPendingByAffiliate(affiliateID uint) (models.Money, error)
	DeleteByAffiliate(affiliateID uint) error
	List(filter PayoutListFilter) ([]models.PayoutRequest, int64, error)
}

// GormPayoutRepository GORM 提现申请仓储
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository 创建提现申请仓储
func NewPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPayoutRepository) WithTx(tx *gorm.DB) PayoutRepository {
	if tx == nil {
		return r
	}
	return &GormPayoutRepository{db: tx}
}

// Create 创建提现申请
func (r *GormPayoutRepository) Create(req *models.PayoutRequest) error {
	if req == nil {
		return nil
	}
	return r.db.Create(req).Error
}

// Update 更新提现申请
func (r *GormPayoutRepository) Update(req *models.PayoutRequest) error {
	if req == nil || req.ID == 0 {
		return nil
	}
	return r.db.Save(req).Error
}

// GetByID 按ID获取提现申请
func (r *GormPayoutRepository) GetByID(id uint) (*models.PayoutRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var req models.PayoutRequest
	if err := r.db.First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// GetByIDForUpdate 按ID获取提现申请并加行锁
func (r *GormPayoutRepository) GetByIDForUpdate(id uint) (*models.PayoutRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var req models.PayoutRequest
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// HasPendingByAffiliate 判断推广员是否存在待审核的提现申请
func (r *GormPayoutRepository) HasPendingByAffiliate(affiliateID uint) (bool, error) {
	if affiliateID == 0 {
		return false, nil
	}
	var total int64
	if err := r.db.Model(&models.PayoutRequest{}).
		Where("affiliate_id = ? AND status = ?", affiliateID, constants.PayoutStatusPending).
		Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}

// SumPendingByAffiliate 汇总推广员待审核提现申请的金额
func (r *GormPayoutRepository) SumPendingByAffiliate(affiliateID uint) (models.Money, error) {
	if affiliateID == 0 {
		return models.Money{}, nil
	}
	var total decimal.Decimal
	if err := r.db.Model(&models.PayoutRequest{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("affiliate_id = ? AND status = ?", affiliateID, constants.PayoutStatusPending).
		Scan(&total).Error; err != nil {
		return models.Money{}, err
	}
	return models.NewMoneyFromDecimal(total), nil
}

// DeleteByAffiliate 物理删除推广员名下全部提现申请
func (r *GormPayoutRepository) DeleteByAffiliate(affiliateID uint) error {
	if affiliateID == 0 {
		return nil
	}
	return r.db.Unscoped().
		Where("affiliate_id = ?", affiliateID).
		Delete(&models.PayoutRequest{}).Error
}

// List 查询提现申请列表
func (r *GormPayoutRepository) List(filter PayoutListFilter) ([]models.PayoutRequest, int64, error) {
	query := r.db.Model(&models.PayoutRequest{})

	if filter.AffiliateID > 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
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

	var list []models.PayoutRequest
	if err := applyPagination(query.Order("created_at DESC"), filter.Page, filter.PageSize).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
