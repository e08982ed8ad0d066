package constants

// 订单状态常量
const (
	OrderStatusPendingVerification = "pending_verification"
	OrderStatusPaymentConfirmed    = "payment_confirmed"
	OrderStatusShipping            = "shipping"
	OrderStatusDelivered           = "delivered"
	OrderStatusCanceled            = "canceled"
)

// 联盟会员状态常量
const (
	AffiliateStatusPending        = "pending"
	AffiliateStatusPendingPayment = "pending_payment"
	AffiliateStatusApproved       = "approved"
	AffiliateStatusRejected       = "rejected"
)

// 二叉树排位常量
const (
	TreePositionLeft  = "left"
	TreePositionRight = "right"
)

// 佣金流水类型常量
const (
	TransactionTypeDirect = "direct"
	TransactionTypeLevel1 = "level1"
	TransactionTypeLevel2 = "level2"
	TransactionTypeLevel3 = "level3"
	TransactionTypeBonus  = "bonus"
)

// 佣金流水状态常量
const (
	TransactionStatusPending = "pending"
	TransactionStatusSettled = "settled"
)

// 提现申请状态常量
const (
	PayoutStatusPending  = "pending"
	PayoutStatusApproved = "approved"
	PayoutStatusRejected = "rejected"
)

// 提现审核动作常量
const (
	PayoutActionApprove = "approve"
	PayoutActionReject  = "reject"
)

// 佣金等级名称常量（按达标订单数从低到高）
const (
	TierStarter  = "starter"
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
	TierDiamond  = "diamond"
	TierCrown    = "crown"
)

// 设置键常量
const (
	SettingKeySiteConfig      = "site_config"
	SettingKeyAffiliateConfig = "affiliate_config"
)

// 队列与任务常量
const (
	QueueDefault = "default"

	TaskCommissionDistribute = "affiliate:distribute"
	TaskBalanceSettle        = "affiliate:settle"
	TaskBalanceReconcile     = "affiliate:reconcile"
)
