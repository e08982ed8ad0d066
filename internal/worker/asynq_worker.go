package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/affiliate-next/internal/logger"
	"github.com/affiliate-next/internal/provider"
	"github.com/affiliate-next/internal/queue"
	"github.com/affiliate-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCommissionDistribute, c.handleCommissionDistribute)
	mux.HandleFunc(queue.TaskBalanceSettle, c.handleBalanceSettle)
	mux.HandleFunc(queue.TaskBalanceReconcile, c.handleBalanceReconcile)
}

func (c *Consumer) handleCommissionDistribute(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_commission_distribute_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CommissionDistributePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_commission_distribute_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_commission_distribute_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.CommissionService == nil {
		logger.Warnw("worker_commission_distribute_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	result, err := c.CommissionService.DistributeOrder(payload.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_commission_distribute_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		default:
			logger.Warnw("worker_commission_distribute_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	if result != nil && !result.Processed {
		logger.Debugw("worker_commission_distribute_noop",
			"order_id", payload.OrderID,
			"reason", result.Reason,
		)
	}
	return nil
}

func (c *Consumer) handleBalanceSettle(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_balance_settle_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.BalanceSettlePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_balance_settle_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_balance_settle_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.CommissionService == nil {
		logger.Warnw("worker_balance_settle_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.CommissionService.SettleOrder(payload.OrderID); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_balance_settle_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		default:
			logger.Warnw("worker_balance_settle_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handleBalanceReconcile(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_balance_reconcile_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.BalanceReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_balance_reconcile_unmarshal_failed", "error", err)
		return err
	}
	if c.ReconcileService == nil {
		logger.Warnw("worker_balance_reconcile_skip_service_nil", "affiliate_id", payload.AffiliateID)
		return nil
	}
	if payload.AffiliateID != 0 {
		if err := c.ReconcileService.ReconcileAffiliate(payload.AffiliateID); err != nil {
			switch {
			case errors.Is(err, service.ErrNotFound):
				logger.Debugw("worker_balance_reconcile_skip_affiliate_not_found", "affiliate_id", payload.AffiliateID)
				return nil
			default:
				logger.Warnw("worker_balance_reconcile_failed", "affiliate_id", payload.AffiliateID, "error", err)
				return err
			}
		}
		return nil
	}
	count, err := c.ReconcileService.ReconcileAll()
	if err != nil {
		logger.Warnw("worker_balance_reconcile_all_failed", "reconciled", count, "error", err)
		return err
	}
	logger.Infow("worker_balance_reconcile_all_done", "reconciled", count)
	return nil
}
