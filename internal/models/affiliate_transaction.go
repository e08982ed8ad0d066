package models

import (
	"time"
)

// AffiliateTransaction 佣金流水表（只增不改的账本记录）
// (order_id, affiliate_id) 全表唯一：同一订单对同一会员最多产生一条流水，
// 重复分佣在数据库层面被拒绝。
type AffiliateTransaction struct {
	ID              uint   `gorm:"primarykey" json:"id"`                                                              // 主键
	AffiliateID     uint   `gorm:"not null;index;uniqueIndex:idx_affiliate_txn_order" json:"affiliate_id"`            // 收益方会员ID
	FromAffiliateID uint   `gorm:"not null;index" json:"from_affiliate_id"`                                           // 触发方会员ID（订单归属人）
	OrderID         *uint  `gorm:"index;uniqueIndex:idx_affiliate_txn_order" json:"order_id,omitempty"`               // 关联订单ID（推荐奖励为空）
	Amount          Money  `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`                               // 金额
	Type            string `gorm:"type:varchar(20);not null;index" json:"type"`                                       // 类型（direct/level1/level2/level3/bonus）
	Status          string `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`                   // 状态
	Description     string `gorm:"type:varchar(255)" json:"description"`                                              // 说明

	CreatedAt time.Time `gorm:"index" json:"created_at"` // 创建时间
	UpdatedAt time.Time `json:"updated_at"`              // 更新时间

	Affiliate     Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"`          // 收益方
	FromAffiliate Affiliate `gorm:"foreignKey:FromAffiliateID" json:"from_affiliate,omitempty"` // 触发方
	Order         *Order    `gorm:"foreignKey:OrderID" json:"order,omitempty"`                  // 关联订单
}

// TableName 指定表名
func (AffiliateTransaction) TableName() string {
	return "affiliate_transactions"
}
