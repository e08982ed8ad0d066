package service

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/logger"
	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	couponCodeLength      = 8
	couponCodeMaxAttempts = 5
	placementMaxAttempts  = 3
)

// PlacementLocker 排位互斥锁。
// 并发审批会竞争同一个空槽，审批路径先抢锁再解析排位；
// 锁不可用时依靠 (parent_id, position) 唯一索引加重试兜底。
type PlacementLocker interface {
	AcquirePlacementLock(ttl time.Duration) (func(), error)
}

// ApplyAffiliateInput 入盟申请参数
type ApplyAffiliateInput struct {
	Name         string
	Phone        string
	Email        string
	Password     string
	ReferrerCode string // 邀请人的优惠码，可为空
}

// AffiliateService 联盟会员业务服务
type AffiliateService struct {
	affiliateRepo repository.AffiliateRepository
	txnRepo       repository.TransactionRepository
	payoutRepo    repository.PayoutRepository
	placement     *PlacementResolver
	settingSvc    *SettingService
	reconcileSvc  *ReconcileService
	locker        PlacementLocker
}

// NewAffiliateService 创建联盟会员服务
func NewAffiliateService(
	affiliateRepo repository.AffiliateRepository,
	txnRepo repository.TransactionRepository,
	payoutRepo repository.PayoutRepository,
	settingSvc *SettingService,
	reconcileSvc *ReconcileService,
	locker PlacementLocker,
) *AffiliateService {
	return &AffiliateService{
		affiliateRepo: affiliateRepo,
		txnRepo:       txnRepo,
		payoutRepo:    payoutRepo,
		placement:     NewPlacementResolver(affiliateRepo),
		settingSvc:    settingSvc,
		reconcileSvc:  reconcileSvc,
		locker:        locker,
	}
}

// Apply 提交入盟申请，生成待审核记录
func (s *AffiliateService) Apply(input ApplyAffiliateInput) (*models.Affiliate, error) {
	if s == nil || s.affiliateRepo == nil {
		return nil, ErrServiceUnavailable
	}

	name := strings.TrimSpace(input.Name)
	phone := strings.TrimSpace(input.Phone)
	if name == "" || phone == "" {
		return nil, ErrInvalidParam
	}
	email := strings.TrimSpace(strings.ToLower(input.Email))

	if email != "" {
		existing, err := s.affiliateRepo.GetByEmail(email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrDuplicateEmail
		}
	}

	var referrerID *uint
	if code := strings.TrimSpace(input.ReferrerCode); code != "" {
		referrer, err := s.affiliateRepo.GetByCouponCode(code)
		if err != nil {
			return nil, err
		}
		if referrer != nil && referrer.Status == constants.AffiliateStatusApproved {
			id := referrer.ID
			referrerID = &id
		}
	}

	affiliate := &models.Affiliate{
		Name:        name,
		Phone:       phone,
		Email:       email,
		ReferrerID:  referrerID,
		Status:      constants.AffiliateStatusPending,
		CurrentTier: constants.TierStarter,
	}
	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		affiliate.PasswordHash = string(hash)
	}

	if err := s.affiliateRepo.Create(affiliate); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicatePhone
		}
		return nil, err
	}

	logger.Infow("affiliate_applied",
		"affiliate_id", affiliate.ID,
		"referrer_id", referrerID,
	)
	return affiliate, nil
}

// Approve 审核通过：发放优惠码并挂载到树上。
// 排位解析与写入在同一事务内完成，槽位冲突时重新解析重试。
func (s *AffiliateService) Approve(id uint) (*models.Affiliate, error) {
	if s == nil || s.affiliateRepo == nil {
		return nil, ErrServiceUnavailable
	}

	affiliate, err := s.affiliateRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	if affiliate.Status != constants.AffiliateStatusPending &&
		affiliate.Status != constants.AffiliateStatusPendingPayment {
		return nil, ErrAffiliateNotPending
	}

	couponCode, err := s.issueCouponCode()
	if err != nil {
		return nil, err
	}

	if s.locker != nil {
		release, err := s.locker.AcquirePlacementLock(5 * time.Second)
		if err == nil {
			defer release()
		} else {
			logger.Warnw("affiliate_placement_lock_unavailable", "error", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < placementMaxAttempts; attempt++ {
		placement, err := s.placement.Resolve(affiliate.ReferrerID, affiliate.ID)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":       constants.AffiliateStatusApproved,
			"is_active":    true,
			"coupon_code":  couponCode,
			"approved_at":  now,
			"current_tier": constants.TierStarter,
		}
		if placement != nil {
			if placement.ParentID == affiliate.ID {
				return nil, ErrSelfParent
			}
			updates["parent_id"] = placement.ParentID
			updates["position"] = placement.Position
		}

		err = s.affiliateRepo.Transaction(func(tx *gorm.DB) error {
			return s.affiliateRepo.WithTx(tx).UpdateFields(affiliate.ID, updates)
		})
		if err == nil {
			logger.Infow("affiliate_approved",
				"affiliate_id", affiliate.ID,
				"coupon_code", couponCode,
				"placement", placement,
			)
			return s.affiliateRepo.GetByID(affiliate.ID)
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// Reject 驳回入盟申请
func (s *AffiliateService) Reject(id uint, note string) error {
	if s == nil || s.affiliateRepo == nil {
		return ErrServiceUnavailable
	}
	affiliate, err := s.affiliateRepo.GetByID(id)
	if err != nil {
		return err
	}
	if affiliate == nil {
		return ErrNotFound
	}
	if affiliate.Status != constants.AffiliateStatusPending &&
		affiliate.Status != constants.AffiliateStatusPendingPayment {
		return ErrAffiliateNotPending
	}
	return s.affiliateRepo.UpdateFields(id, map[string]interface{}{
		"status":    constants.AffiliateStatusRejected,
		"is_active": false,
	})
}

// UpgradeToPaid 升级为付费会员。
// 等级进阶计数清零；邀请人按配置领取一次性推荐奖励，同一对关系只发一次。
func (s *AffiliateService) UpgradeToPaid(id uint) (*models.Affiliate, error) {
	if s == nil || s.affiliateRepo == nil || s.txnRepo == nil {
		return nil, ErrServiceUnavailable
	}

	setting, err := s.settingSvc.GetAffiliateSetting()
	if err != nil {
		return nil, err
	}

	err = s.affiliateRepo.Transaction(func(tx *gorm.DB) error {
		affiliateRepo := s.affiliateRepo.WithTx(tx)
		txnRepo := s.txnRepo.WithTx(tx)

		affiliate, err := affiliateRepo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if affiliate == nil {
			return ErrNotFound
		}
		if affiliate.Status != constants.AffiliateStatusApproved {
			return ErrAffiliateNotActive
		}
		if affiliate.IsPaid {
			return ErrAlreadyPaidTier
		}

		now := time.Now()
		if err := affiliateRepo.UpdateFields(id, map[string]interface{}{
			"is_paid":           true,
			"paid_at":           now,
			"orders_since_paid": 0,
			"current_tier":      constants.TierStarter,
		}); err != nil {
			return err
		}

		if affiliate.ReferrerID == nil || setting.ReferralBonusAmount <= 0 {
			return nil
		}
		referrer, err := affiliateRepo.GetByID(*affiliate.ReferrerID)
		if err != nil {
			return err
		}
		if referrer == nil || referrer.Status != constants.AffiliateStatusApproved {
			return nil
		}

		granted, err := txnRepo.ExistsBonus(referrer.ID, affiliate.ID)
		if err != nil {
			return err
		}
		if granted {
			return nil
		}

		bonus := models.NewMoneyFromDecimal(decimal.NewFromFloat(setting.ReferralBonusAmount))
		if err := txnRepo.Create(&models.AffiliateTransaction{
			AffiliateID:     referrer.ID,
			FromAffiliateID: affiliate.ID,
			Amount:          bonus,
			Type:            constants.TransactionTypeBonus,
			Status:          constants.TransactionStatusSettled,
			Description:     "推荐付费升级奖励",
		}); err != nil {
			return err
		}
		if err := affiliateRepo.ApplyEarningsDelta(referrer.ID, map[string]models.Money{
			"available_balance": bonus,
		}); err != nil {
			return err
		}
		logger.Infow("affiliate_referral_bonus_granted",
			"referrer_id", referrer.ID,
			"upgraded_id", affiliate.ID,
			"amount", bonus.String(),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.affiliateRepo.GetByID(id)
}

// Remove 移除会员并做树结构手术。
// 整个操作在一个事务内完成：清账、重算受影响成员、清引用、子树上卷、删除记录。
func (s *AffiliateService) Remove(id uint) error {
	if s == nil || s.affiliateRepo == nil || s.txnRepo == nil || s.payoutRepo == nil {
		return ErrServiceUnavailable
	}

	return s.affiliateRepo.Transaction(func(tx *gorm.DB) error {
		affiliateRepo := s.affiliateRepo.WithTx(tx)
		txnRepo := s.txnRepo.WithTx(tx)
		payoutRepo := s.payoutRepo.WithTx(tx)

		affiliate, err := affiliateRepo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if affiliate == nil {
			return ErrNotFound
		}

		// 清账会抹掉其他成员名下源自被移除者的流水，先记下这些收益方
		counterparties, err := txnRepo.ListCounterpartyIDs(id)
		if err != nil {
			return err
		}

		if err := txnRepo.DeleteByParticipant(id); err != nil {
			return err
		}
		if err := payoutRepo.DeleteByAffiliate(id); err != nil {
			return err
		}
		if err := affiliateRepo.ClearReferrer(id); err != nil {
			return err
		}

		children, err := affiliateRepo.ListChildren(id)
		if err != nil {
			return err
		}

		// 先释放被移除节点的槽位，再做子树上卷
		if err := affiliateRepo.DeleteHard(id); err != nil {
			return err
		}

		if len(children) > 0 {
			// 第一个子节点继承被移除节点的位置（根节点被移除则接任根）
			first := children[0]
			if err := affiliateRepo.Reparent(first.ID, affiliate.ParentID, affiliate.Position); err != nil {
				return err
			}

			// 余下子节点回到原父节点下按排位规则重新挂载；
			// 根节点被移除时原父不存在，从继任根开始扫描
			startID := affiliate.ParentID
			if startID == nil {
				startID = &first.ID
			}
			resolver := NewPlacementResolver(affiliateRepo)
			for _, child := range children[1:] {
				placement, err := resolver.Resolve(startID, child.ID)
				if err != nil {
					return err
				}
				if placement == nil {
					if err := affiliateRepo.Reparent(child.ID, nil, ""); err != nil {
						return err
					}
					continue
				}
				if err := affiliateRepo.Reparent(child.ID, &placement.ParentID, placement.Position); err != nil {
					return err
				}
			}
		}

		// 删掉的流水曾撑起上级的收益与余额，同事务内重算还原
		if s.reconcileSvc == nil && len(counterparties) > 0 {
			logger.Warnw("affiliate_remove_reconcile_skipped",
				"affiliate_id", id,
				"counterparties", len(counterparties),
			)
		} else {
			for _, counterpartyID := range counterparties {
				if err := s.reconcileSvc.reconcileWithTx(tx, counterpartyID); err != nil {
					return err
				}
			}
		}

		logger.Infow("affiliate_removed",
			"affiliate_id", id,
			"rolled_up_children", len(children),
			"reconciled_counterparties", len(counterparties),
		)
		return nil
	})
}

// GetByID 获取会员详情
func (s *AffiliateService) GetByID(id uint) (*models.Affiliate, error) {
	if s == nil || s.affiliateRepo == nil {
		return nil, ErrServiceUnavailable
	}
	affiliate, err := s.affiliateRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	return affiliate, nil
}

// List 查询会员列表
func (s *AffiliateService) List(filter repository.AffiliateListFilter) ([]models.Affiliate, int64, error) {
	if s == nil || s.affiliateRepo == nil {
		return nil, 0, ErrServiceUnavailable
	}
	return s.affiliateRepo.List(filter)
}

// issueCouponCode 生成未被占用的优惠码
func (s *AffiliateService) issueCouponCode() (string, error) {
	for attempt := 0; attempt < couponCodeMaxAttempts; attempt++ {
		code, err := generateCouponCode()
		if err != nil {
			return "", err
		}
		existing, err := s.affiliateRepo.GetByCouponCode(code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", ErrServiceUnavailable
}

// generateCouponCode 生成随机优惠码（去除易混淆字符）
func generateCouponCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var builder strings.Builder
	builder.Grow(couponCodeLength)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < couponCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}

// isUniqueViolation 判断是否唯一约束冲突
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
