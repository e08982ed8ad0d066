package admin

import (
	"errors"

	"github.com/affiliate-next/internal/http/response"
	"github.com/affiliate-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAffiliateSetting 获取联盟分佣配置
func (h *Handler) GetAffiliateSetting(c *gin.Context) {
	if h.SettingService == nil {
		respondError(c, response.CodeInternal, "setting fetch failed", nil)
		return
	}
	setting, err := h.SettingService.GetAffiliateSetting()
	if err != nil {
		respondError(c, response.CodeInternal, "setting fetch failed", err)
		return
	}
	response.Success(c, setting)
}

// UpdateAffiliateSetting 更新联盟分佣配置
func (h *Handler) UpdateAffiliateSetting(c *gin.Context) {
	if h.SettingService == nil {
		respondError(c, response.CodeInternal, "save failed", nil)
		return
	}
	var req service.AffiliateSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	setting, err := h.SettingService.UpdateAffiliateSetting(req)
	if err != nil {
		if errors.Is(err, service.ErrAffiliateConfigInvalid) {
			respondError(c, response.CodeBadRequest, "invalid affiliate config", nil)
			return
		}
		respondError(c, response.CodeInternal, "save failed", err)
		return
	}
	response.Success(c, setting)
}
