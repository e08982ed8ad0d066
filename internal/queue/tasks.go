package queue

import (
	"encoding/json"

	"github.com/affiliate-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCommissionDistribute 佣金分配任务
	TaskCommissionDistribute = constants.TaskCommissionDistribute
	// TaskBalanceSettle 余额结算任务
	TaskBalanceSettle = constants.TaskBalanceSettle
	// TaskBalanceReconcile 余额对账任务
	TaskBalanceReconcile = constants.TaskBalanceReconcile
)

// CommissionDistributePayload 佣金分配任务载荷
type CommissionDistributePayload struct {
	OrderID uint `json:"order_id"`
}

// BalanceSettlePayload 余额结算任务载荷
type BalanceSettlePayload struct {
	OrderID uint `json:"order_id"`
}

// BalanceReconcilePayload 余额对账任务载荷
type BalanceReconcilePayload struct {
	AffiliateID uint `json:"affiliate_id"` // 0 表示全量对账
}

// NewCommissionDistributeTask 创建佣金分配任务
func NewCommissionDistributeTask(payload CommissionDistributePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionDistribute, body), nil
}

// NewBalanceSettleTask 创建余额结算任务
func NewBalanceSettleTask(payload BalanceSettlePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBalanceSettle, body), nil
}

// NewBalanceReconcileTask 创建余额对账任务
func NewBalanceReconcileTask(payload BalanceReconcilePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBalanceReconcile, body), nil
}
