package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/http/response"
	"github.com/affiliate-next/internal/repository"
	"github.com/affiliate-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ReviewPayoutRequest 提现审核请求
type ReviewPayoutRequest struct {
	Action string `json:"action" binding:"required"` // approve / reject
	Note   string `json:"note"`
}

// ListPayouts 管理端提现申请列表
func (h *Handler) ListPayouts(c *gin.Context) {
	if h.PayoutService == nil {
		respondError(c, response.CodeInternal, "payout fetch failed", nil)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	affiliateID, _ := strconv.ParseUint(strings.TrimSpace(c.Query("affiliate_id")), 10, 64)

	rows, total, err := h.PayoutService.List(repository.PayoutListFilter{
		Page:        page,
		PageSize:    pageSize,
		AffiliateID: uint(affiliateID),
		Status:      strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "payout fetch failed", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// GetPayout 管理端提现申请详情
func (h *Handler) GetPayout(c *gin.Context) {
	if h.PayoutService == nil {
		respondError(c, response.CodeInternal, "payout fetch failed", nil)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	row, err := h.PayoutService.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "payout not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "payout fetch failed", err)
		return
	}
	response.Success(c, row)
}

// ReviewPayout 审核提现申请，通过入账、驳回退款
func (h *Handler) ReviewPayout(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	if h.PayoutService == nil {
		respondError(c, response.CodeInternal, "save failed", nil)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	var req ReviewPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	action := strings.TrimSpace(req.Action)
	if action != constants.PayoutActionApprove && action != constants.PayoutActionReject {
		respondError(c, response.CodeBadRequest, "unknown review action", nil)
		return
	}

	row, err := h.PayoutService.Review(uint(id), action, adminID, strings.TrimSpace(req.Note))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "payout not found", nil)
		case errors.Is(err, service.ErrPayoutNotPending):
			respondError(c, response.CodeBadRequest, "payout is not pending review", nil)
		default:
			respondError(c, response.CodeInternal, "save failed", err)
		}
		return
	}
	requestLog(c).Infow("admin_payout_reviewed",
		"payout_id", row.ID,
		"action", action,
		"admin_id", adminID,
	)
	response.Success(c, row)
}
