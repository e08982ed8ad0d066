package public

import "github.com/affiliate-next/internal/provider"

// Handler 前台/公开接口处理器入口
// 说明：该处理器用于入盟申请与外围订单系统的事件回调。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
