package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/affiliate-next/internal/http/response"
	"github.com/affiliate-next/internal/repository"
	"github.com/affiliate-next/internal/service"

	"github.com/gin-gonic/gin"
)

// RejectAffiliateRequest 驳回申请请求
type RejectAffiliateRequest struct {
	Note string `json:"note"`
}

// ListAffiliates 管理端会员列表
func (h *Handler) ListAffiliates(c *gin.Context) {
	if h.AffiliateService == nil {
		respondError(c, response.CodeInternal, "affiliate fetch failed", nil)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.AffiliateListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		Keyword:  strings.TrimSpace(c.Query("keyword")),
		Tier:     strings.TrimSpace(c.Query("tier")),
	}
	if raw := strings.TrimSpace(c.Query("is_paid")); raw != "" {
		if isPaid, err := strconv.ParseBool(raw); err == nil {
			filter.IsPaid = &isPaid
		}
	}
	if referrerID, _ := strconv.ParseUint(strings.TrimSpace(c.Query("referrer_id")), 10, 64); referrerID > 0 {
		filter.ReferrerID = uint(referrerID)
	}

	rows, total, err := h.AffiliateService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "affiliate fetch failed", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// GetAffiliate 管理端会员详情
func (h *Handler) GetAffiliate(c *gin.Context) {
	if h.AffiliateService == nil {
		respondError(c, response.CodeInternal, "affiliate fetch failed", nil)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	row, err := h.AffiliateService.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "affiliate fetch failed", err)
		return
	}
	response.Success(c, row)
}

// ApproveAffiliate 审核通过并完成树上排位
func (h *Handler) ApproveAffiliate(c *gin.Context) {
	if h.AffiliateService == nil {
		respondError(c, response.CodeInternal, "save failed", nil)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	row, err := h.AffiliateService.Approve(uint(id))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
		case errors.Is(err, service.ErrAffiliateNotPending):
			respondError(c, response.CodeBadRequest, "affiliate is not pending review", nil)
		default:
			respondError(c, response.CodeInternal, "save failed", err)
		}
		return
	}
	response.Success(c, row)
}

// RejectAffiliate 驳回入盟申请
func (h *Handler) RejectAffiliate(c *gin.Context) {
	if h.AffiliateService == nil {
		respondError(c, response.CodeInternal, "save failed", nil)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	// 备注可选，空请求体按无备注处理
	var req RejectAffiliateRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.AffiliateService.Reject(uint(id), strings.TrimSpace(req.Note)); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
		case errors.Is(err, service.ErrAffiliateNotPending):
			respondError(c, response.CodeBadRequest, "affiliate is not pending review", nil)
		default:
			respondError(c, response.CodeInternal, "save failed", err)
		}
		return
	}
	response.Success(c, nil)
}

// UpgradeAffiliate 标记会员完成付费升级
func (h *Handler) UpgradeAffiliate(c *gin.Context) {
	if h.AffiliateService == nil {
		respondError(c, response.CodeInternal, "save failed", nil)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	row, err := h.AffiliateService.UpgradeToPaid(uint(id))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
		case errors.Is(err, service.ErrAffiliateNotActive):
			respondError(c, response.CodeBadRequest, "affiliate is not approved", nil)
		case errors.Is(err, service.ErrAlreadyPaidTier):
			respondError(c, response.CodeBadRequest, "affiliate is already a paid member", nil)
		default:
			respondError(c, response.CodeInternal, "save failed", err)
		}
		return
	}
	response.Success(c, row)
}

// RemoveAffiliate 删除会员并回补二叉树
func (h *Handler) RemoveAffiliate(c *gin.Context) {
	if h.AffiliateService == nil {
		respondError(c, response.CodeInternal, "save failed", nil)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	if err := h.AffiliateService.Remove(uint(id)); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
		default:
			respondError(c, response.CodeInternal, "save failed", err)
		}
		return
	}
	requestLog(c).Infow("admin_affiliate_removed", "affiliate_id", id)
	response.Success(c, nil)
}

// ReconcileAffiliate 触发单个会员对账
func (h *Handler) ReconcileAffiliate(c *gin.Context) {
	if h.ReconcileService == nil {
		respondError(c, response.CodeInternal, "reconcile failed", nil)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	if err := h.ReconcileService.ReconcileAffiliate(uint(id)); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
		default:
			respondError(c, response.CodeInternal, "reconcile failed", err)
		}
		return
	}
	response.Success(c, nil)
}

// ReconcileAllAffiliates 触发全量对账。
// 队列可用时异步执行，否则同步跑完再返回。
func (h *Handler) ReconcileAllAffiliates(c *gin.Context) {
	if h.QueueClient.Enabled() {
		if err := h.QueueClient.EnqueueBalanceReconcile(0); err == nil {
			response.SuccessWithMsg(c, "reconcile scheduled", nil)
			return
		}
	}
	if h.ReconcileService == nil {
		respondError(c, response.CodeInternal, "reconcile failed", nil)
		return
	}
	count, err := h.ReconcileService.ReconcileAll()
	if err != nil {
		respondError(c, response.CodeInternal, "reconcile failed", err)
		return
	}
	response.Success(c, gin.H{"reconciled": count})
}

// ListAffiliateTransactions 管理端佣金流水列表
func (h *Handler) ListAffiliateTransactions(c *gin.Context) {
	if h.CommissionService == nil {
		respondError(c, response.CodeInternal, "transaction fetch failed", nil)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	affiliateID, _ := strconv.ParseUint(strings.TrimSpace(c.Query("affiliate_id")), 10, 64)
	orderID, _ := strconv.ParseUint(strings.TrimSpace(c.Query("order_id")), 10, 64)

	rows, total, err := h.CommissionService.ListTransactions(repository.TransactionListFilter{
		Page:        page,
		PageSize:    pageSize,
		AffiliateID: uint(affiliateID),
		OrderID:     uint(orderID),
		Type:        strings.TrimSpace(c.Query("type")),
		Status:      strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "transaction fetch failed", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}
