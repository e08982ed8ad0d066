package service

import (
	"strings"
	"time"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/logger"
	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/repository"
	"gorm.io/gorm"
)

// TaskEnqueuer 异步任务投递接口。
// 队列不可用时订单服务回退为同步执行副作用。
type TaskEnqueuer interface {
	EnqueueCommissionDistribute(orderID uint) error
	EnqueueBalanceSettle(orderID uint) error
}

// CreateOrderInput 订单接入参数（由外围下单系统投递）
type CreateOrderInput struct {
	OrderNo     string
	CouponCode  string
	TotalAmount models.Money
	Items       []models.OrderItem
}

// OrderService 订单生命周期服务
type OrderService struct {
	orderRepo     repository.OrderRepository
	commissionSvc *CommissionService
	enqueuer      TaskEnqueuer
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, commissionSvc *CommissionService, enqueuer TaskEnqueuer) *OrderService {
	return &OrderService{
		orderRepo:     orderRepo,
		commissionSvc: commissionSvc,
		enqueuer:      enqueuer,
	}
}

// Create 接入新订单，初始状态待核验
func (s *OrderService) Create(input CreateOrderInput) (*models.Order, error) {
	if s == nil || s.orderRepo == nil {
		return nil, ErrServiceUnavailable
	}
	orderNo := strings.TrimSpace(input.OrderNo)
	if orderNo == "" {
		return nil, ErrInvalidParam
	}
	existing, err := s.orderRepo.GetByOrderNo(orderNo)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	order := &models.Order{
		OrderNo:     orderNo,
		CouponCode:  strings.ToUpper(strings.TrimSpace(input.CouponCode)),
		Status:      constants.OrderStatusPendingVerification,
		TotalAmount: input.TotalAmount,
		Items:       input.Items,
	}
	if err := s.orderRepo.Create(order); err != nil {
		if isUniqueViolation(err) {
			return s.orderRepo.GetByOrderNo(orderNo)
		}
		return nil, err
	}
	return order, nil
}

// UpdateStatus 推进订单状态并派发分佣副作用。
// 支付确认触发分佣，签收触发结算；取消永不触发分佣。
func (s *OrderService) UpdateStatus(orderID uint, newStatus string) (*models.Order, error) {
	if s == nil || s.orderRepo == nil {
		return nil, ErrServiceUnavailable
	}

	var order *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)

		current, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrOrderNotFound
		}
		if current.Status == newStatus {
			order = current
			return nil
		}
		if !canTransition(current.Status, newStatus) {
			return ErrInvalidTransition
		}

		now := time.Now()
		updates := map[string]interface{}{}
		switch newStatus {
		case constants.OrderStatusPaymentConfirmed:
			updates["paid_at"] = now
		case constants.OrderStatusDelivered:
			updates["delivered_at"] = now
		case constants.OrderStatusCanceled:
			updates["canceled_at"] = now
		}
		if err := orderRepo.UpdateStatus(orderID, newStatus, updates); err != nil {
			return err
		}

		current.Status = newStatus
		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatchSideEffects(order, newStatus)
	return order, nil
}

// dispatchSideEffects 状态迁移后的副作用派发
func (s *OrderService) dispatchSideEffects(order *models.Order, newStatus string) {
	switch newStatus {
	case constants.OrderStatusPaymentConfirmed:
		if s.enqueuer != nil {
			err := s.enqueuer.EnqueueCommissionDistribute(order.ID)
			if err == nil {
				return
			}
			logger.Warnw("order_distribute_enqueue_failed",
				"order_id", order.ID,
				"error", err,
			)
		}
		if s.commissionSvc != nil {
			if _, err := s.commissionSvc.DistributeOrder(order.ID); err != nil {
				logger.Errorw("order_distribute_failed",
					"order_id", order.ID,
					"error", err,
				)
			}
		}
	case constants.OrderStatusDelivered:
		if s.enqueuer != nil {
			err := s.enqueuer.EnqueueBalanceSettle(order.ID)
			if err == nil {
				return
			}
			logger.Warnw("order_settle_enqueue_failed",
				"order_id", order.ID,
				"error", err,
			)
		}
		if s.commissionSvc != nil {
			if err := s.commissionSvc.SettleOrder(order.ID); err != nil {
				logger.Errorw("order_settle_failed",
					"order_id", order.ID,
					"error", err,
				)
			}
		}
	case constants.OrderStatusCanceled:
		// 已分佣订单被取消不做回冲，留待人工对账处理
		logger.Warnw("order_canceled_after_ingest",
			"order_id", order.ID,
			"order_no", order.OrderNo,
		)
	}
}

// GetByOrderNo 按订单号获取订单
func (s *OrderService) GetByOrderNo(orderNo string) (*models.Order, error) {
	if s == nil || s.orderRepo == nil {
		return nil, ErrServiceUnavailable
	}
	order, err := s.orderRepo.GetByOrderNo(orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// List 查询订单列表
func (s *OrderService) List(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if s == nil || s.orderRepo == nil {
		return nil, 0, ErrServiceUnavailable
	}
	return s.orderRepo.List(filter)
}
