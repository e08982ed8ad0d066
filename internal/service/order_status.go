package service

import "github.com/affiliate-next/internal/constants"

// allowedTransitions 订单状态机。
// 分佣、结算等副作用由状态迁移处理器派发，不在各处散落字符串比较。
var allowedTransitions = map[string][]string{
	constants.OrderStatusPendingVerification: {
		constants.OrderStatusPaymentConfirmed,
		constants.OrderStatusCanceled,
	},
	constants.OrderStatusPaymentConfirmed: {
		constants.OrderStatusShipping,
		constants.OrderStatusDelivered,
		constants.OrderStatusCanceled,
	},
	constants.OrderStatusShipping: {
		constants.OrderStatusDelivered,
		constants.OrderStatusCanceled,
	},
	constants.OrderStatusDelivered: {},
	constants.OrderStatusCanceled:  {},
}

// canTransition 判断订单状态迁移是否合法
func canTransition(from, to string) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
