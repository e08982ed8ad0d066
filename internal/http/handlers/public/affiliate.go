package public

import (
	"errors"
	"strings"

	"github.com/affiliate-next/internal/http/response"
	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AffiliateApplyRequest 入盟申请请求
type AffiliateApplyRequest struct {
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	Email        string `json:"email"`
	Password     string `json:"password" binding:"required"`
	ReferrerCode string `json:"referrer_code"`
}

// ApplyAffiliate 提交入盟申请
func (h *Handler) ApplyAffiliate(c *gin.Context) {
	if h.AffiliateService == nil {
		respondError(c, response.CodeInternal, "save failed", nil)
		return
	}
	var req AffiliateApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	row, err := h.AffiliateService.Apply(service.ApplyAffiliateInput{
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Password:     req.Password,
		ReferrerCode: req.ReferrerCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidParam):
			respondError(c, response.CodeBadRequest, "bad request", nil)
		case errors.Is(err, service.ErrDuplicatePhone):
			respondError(c, response.CodeConflict, "phone already registered", nil)
		case errors.Is(err, service.ErrDuplicateEmail):
			respondError(c, response.CodeConflict, "email already registered", nil)
		default:
			respondError(c, response.CodeInternal, "save failed", err)
		}
		return
	}
	requestLog(c).Infow("affiliate_application_received",
		"affiliate_id", row.ID,
		"referrer_code", strings.TrimSpace(req.ReferrerCode),
	)
	response.Success(c, row)
}

// PayoutApplyRequest 提现申请请求
type PayoutApplyRequest struct {
	AffiliateID uint         `json:"affiliate_id" binding:"required"`
	Amount      models.Money `json:"amount" binding:"required"`
	UpiID       string       `json:"upi_id" binding:"required"`
}

// ApplyPayout 发起提现申请，金额即时冻结
func (h *Handler) ApplyPayout(c *gin.Context) {
	if h.PayoutService == nil {
		respondError(c, response.CodeInternal, "save failed", nil)
		return
	}
	var req PayoutApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	row, err := h.PayoutService.Apply(req.AffiliateID, req.Amount, req.UpiID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidParam):
			respondError(c, response.CodeBadRequest, "bad request", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
		case errors.Is(err, service.ErrAffiliateNotActive):
			respondError(c, response.CodeBadRequest, "affiliate is not approved", nil)
		case errors.Is(err, service.ErrPayoutBelowMinimum):
			respondError(c, response.CodeBadRequest, "amount below minimum payout", nil)
		case errors.Is(err, service.ErrPayoutInFlight):
			respondError(c, response.CodeConflict, "a payout request is already pending", nil)
		case errors.Is(err, service.ErrInsufficientBalance):
			respondError(c, response.CodeBadRequest, "insufficient available balance", nil)
		default:
			respondError(c, response.CodeInternal, "save failed", err)
		}
		return
	}
	response.Success(c, row)
}
