package public

import (
	"errors"
	"strings"

	"github.com/affiliate-next/internal/http/response"
	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderItemPayload 订单项载荷
type OrderItemPayload struct {
	ProductID uint         `json:"product_id" binding:"required"`
	Quantity  int          `json:"quantity" binding:"required"`
	UnitPrice models.Money `json:"unit_price"`
}

// OrderIngestRequest 外围订单系统的下单事件
type OrderIngestRequest struct {
	OrderNo     string             `json:"order_no" binding:"required"`
	CouponCode  string             `json:"coupon_code"`
	TotalAmount models.Money       `json:"total_amount"`
	Items       []OrderItemPayload `json:"items"`
}

// OrderStatusEventRequest 外围订单系统的状态事件
type OrderStatusEventRequest struct {
	Status string `json:"status" binding:"required"`
}

// IngestOrder 接收下单事件。
// 同一订单号重复投递返回既有记录，不产生副作用。
func (h *Handler) IngestOrder(c *gin.Context) {
	if h.OrderService == nil {
		respondError(c, response.CodeInternal, "save failed", nil)
		return
	}
	var req OrderIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == 0 || item.Quantity <= 0 {
			respondError(c, response.CodeBadRequest, "bad request", nil)
			return
		}
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	row, err := h.OrderService.Create(service.CreateOrderInput{
		OrderNo:     req.OrderNo,
		CouponCode:  req.CouponCode,
		TotalAmount: req.TotalAmount,
		Items:       items,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidParam) {
			respondError(c, response.CodeBadRequest, "bad request", nil)
			return
		}
		respondError(c, response.CodeInternal, "save failed", err)
		return
	}
	response.Success(c, row)
}

// UpdateOrderStatus 接收状态事件并推进订单生命周期
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	if h.OrderService == nil {
		respondError(c, response.CodeInternal, "save failed", nil)
		return
	}
	orderNo := strings.TrimSpace(c.Param("order_no"))
	if orderNo == "" {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	var req OrderStatusEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	order, err := h.OrderService.GetByOrderNo(orderNo)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "order not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}

	row, err := h.OrderService.UpdateStatus(order.ID, strings.TrimSpace(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrInvalidTransition):
			respondError(c, response.CodeBadRequest, "illegal status transition", nil)
		case errors.Is(err, service.ErrInvalidParam):
			respondError(c, response.CodeBadRequest, "bad request", nil)
		default:
			respondError(c, response.CodeInternal, "save failed", err)
		}
		return
	}
	requestLog(c).Infow("order_status_event_applied",
		"order_no", orderNo,
		"status", row.Status,
	)
	response.Success(c, row)
}
