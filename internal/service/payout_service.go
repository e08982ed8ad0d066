package service

import (
	"strings"
	"time"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/logger"
	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PayoutService 提现业务服务
type PayoutService struct {
	affiliateRepo repository.AffiliateRepository
	payoutRepo    repository.PayoutRepository
	settingSvc    *SettingService
}

// NewPayoutService 创建提现服务
func NewPayoutService(
	affiliateRepo repository.AffiliateRepository,
	payoutRepo repository.PayoutRepository,
	settingSvc *SettingService,
) *PayoutService {
	return &PayoutService{
		affiliateRepo: affiliateRepo,
		payoutRepo:    payoutRepo,
		settingSvc:    settingSvc,
	}
}

// Apply 发起提现申请。
// 申请金额立即从可提现余额中冻结，驳回时原路退回。
func (s *PayoutService) Apply(affiliateID uint, amount models.Money, upiID string) (*models.PayoutRequest, error) {
	if s == nil || s.affiliateRepo == nil || s.payoutRepo == nil {
		return nil, ErrServiceUnavailable
	}
	upiID = strings.TrimSpace(upiID)
	if affiliateID == 0 || upiID == "" || amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidParam
	}

	setting, err := s.settingSvc.GetAffiliateSetting()
	if err != nil {
		return nil, err
	}
	if amount.LessThan(decimal.NewFromFloat(setting.MinPayoutAmount)) {
		return nil, ErrPayoutBelowMinimum
	}

	var request *models.PayoutRequest
	err = s.affiliateRepo.Transaction(func(tx *gorm.DB) error {
		affiliateRepo := s.affiliateRepo.WithTx(tx)
		payoutRepo := s.payoutRepo.WithTx(tx)

		affiliate, err := affiliateRepo.GetByIDForUpdate(affiliateID)
		if err != nil {
			return err
		}
		if affiliate == nil {
			return ErrNotFound
		}
		if affiliate.Status != constants.AffiliateStatusApproved || !affiliate.IsActive {
			return ErrAffiliateNotActive
		}

		inflight, err := payoutRepo.HasPendingByAffiliate(affiliateID)
		if err != nil {
			return err
		}
		if inflight {
			return ErrPayoutInFlight
		}

		if affiliate.AvailableBalance.LessThan(amount.Decimal) {
			return ErrInsufficientBalance
		}

		// 冻结：申请即扣减可提现余额
		if err := affiliateRepo.ApplyEarningsDelta(affiliateID, map[string]models.Money{
			"available_balance": models.NewMoneyFromDecimal(amount.Decimal.Neg()),
		}); err != nil {
			return err
		}

		request = &models.PayoutRequest{
			AffiliateID: affiliateID,
			Amount:      amount,
			UpiID:       upiID,
			Status:      constants.PayoutStatusPending,
		}
		return payoutRepo.Create(request)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("payout_requested",
		"affiliate_id", affiliateID,
		"payout_id", request.ID,
		"amount", amount.String(),
	)
	return request, nil
}

// Review 审核提现申请。
// 通过：冻结金额计入已提现累计；驳回：冻结金额退回可提现余额。
func (s *PayoutService) Review(requestID uint, action string, adminID uint, note string) (*models.PayoutRequest, error) {
	if s == nil || s.affiliateRepo == nil || s.payoutRepo == nil {
		return nil, ErrServiceUnavailable
	}
	if action != constants.PayoutActionApprove && action != constants.PayoutActionReject {
		return nil, ErrInvalidParam
	}

	var request *models.PayoutRequest
	err := s.affiliateRepo.Transaction(func(tx *gorm.DB) error {
		affiliateRepo := s.affiliateRepo.WithTx(tx)
		payoutRepo := s.payoutRepo.WithTx(tx)

		req, err := payoutRepo.GetByIDForUpdate(requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return ErrNotFound
		}
		if req.Status != constants.PayoutStatusPending {
			return ErrPayoutNotPending
		}

		now := time.Now()
		req.AdminNote = strings.TrimSpace(note)
		req.ProcessedAt = &now
		if adminID != 0 {
			req.ProcessedBy = &adminID
		}

		switch action {
		case constants.PayoutActionApprove:
			req.Status = constants.PayoutStatusApproved
			if err := affiliateRepo.ApplyEarningsDelta(req.AffiliateID, map[string]models.Money{
				"paid_balance": req.Amount,
			}); err != nil {
				return err
			}
		case constants.PayoutActionReject:
			req.Status = constants.PayoutStatusRejected
			if err := affiliateRepo.ApplyEarningsDelta(req.AffiliateID, map[string]models.Money{
				"available_balance": req.Amount,
			}); err != nil {
				return err
			}
		}

		if err := payoutRepo.Update(req); err != nil {
			return err
		}
		request = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("payout_reviewed",
		"payout_id", request.ID,
		"action", action,
		"admin_id", adminID,
	)
	return request, nil
}

// GetByID 获取提现申请详情
func (s *PayoutService) GetByID(id uint) (*models.PayoutRequest, error) {
	if s == nil || s.payoutRepo == nil {
		return nil, ErrServiceUnavailable
	}
	req, err := s.payoutRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}
	return req, nil
}

// List 查询提现申请列表
func (s *PayoutService) List(filter repository.PayoutListFilter) ([]models.PayoutRequest, int64, error) {
	if s == nil || s.payoutRepo == nil {
		return nil, 0, ErrServiceUnavailable
	}
	return s.payoutRepo.List(filter)
}
