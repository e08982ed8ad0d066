package models

import (
	"time"

	"gorm.io/gorm"
)

// Affiliate 联盟会员表
// 结构说明：ReferrerID 仅记录邀请关系；ParentID/Position 是二叉树结构链路，
// (parent_id, position) 全表唯一，保证同一槽位不会被两个子节点占用。
type Affiliate struct {
	ID           uint   `gorm:"primarykey" json:"id"`                                                   // 主键
	Name         string `gorm:"type:varchar(100);not null" json:"name"`                                 // 姓名
	Phone        string `gorm:"type:varchar(20);not null;uniqueIndex" json:"phone"`                     // 手机号
	Email        string `gorm:"type:varchar(200)" json:"email,omitempty"`                               // 邮箱
	CouponCode   string `gorm:"type:varchar(32);uniqueIndex" json:"coupon_code"`                        // 专属优惠码（大写存储，匹配不区分大小写）
	PasswordHash string `gorm:"type:varchar(200)" json:"-"`                                             // 登录凭证哈希
	ReferrerID   *uint  `gorm:"index" json:"referrer_id,omitempty"`                                     // 邀请人ID（仅信息性关联）
	ParentID     *uint  `gorm:"index;uniqueIndex:idx_affiliate_slot" json:"parent_id,omitempty"`        // 树上父节点ID
	Position     string `gorm:"type:varchar(10);uniqueIndex:idx_affiliate_slot" json:"position"`        // 槽位（left/right）
	Status       string `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`        // 审核状态
	IsActive     bool   `gorm:"default:false;index" json:"is_active"`                                   // 是否激活
	IsPaid       bool   `gorm:"default:false;index" json:"is_paid"`                                     // 是否付费会员

	TotalOrders      int64 `gorm:"not null;default:0" json:"total_orders"`      // 累计订单数
	OrdersSincePaid  int64 `gorm:"not null;default:0" json:"orders_since_paid"` // 付费升级后的订单数（等级进阶计数）
	TotalSalesAmount Money `gorm:"type:decimal(20,2);not null;default:0" json:"total_sales_amount"` // 累计销售额

	DirectEarnings Money `gorm:"type:decimal(20,2);not null;default:0" json:"direct_earnings"` // 直推佣金
	Level1Earnings Money `gorm:"type:decimal(20,2);not null;default:0" json:"level1_earnings"` // 一级佣金
	Level2Earnings Money `gorm:"type:decimal(20,2);not null;default:0" json:"level2_earnings"` // 二级佣金
	Level3Earnings Money `gorm:"type:decimal(20,2);not null;default:0" json:"level3_earnings"` // 三级佣金
	TotalEarnings  Money `gorm:"type:decimal(20,2);not null;default:0" json:"total_earnings"`  // 总佣金（各分量之和）

	PendingBalance   Money `gorm:"type:decimal(20,2);not null;default:0" json:"pending_balance"`   // 待结算余额
	AvailableBalance Money `gorm:"type:decimal(20,2);not null;default:0" json:"available_balance"` // 可提现余额
	PaidBalance      Money `gorm:"type:decimal(20,2);not null;default:0" json:"paid_balance"`      // 已提现累计

	CurrentTier string     `gorm:"type:varchar(20);not null;default:'starter';index" json:"current_tier"` // 当前佣金等级
	PaidAt      *time.Time `gorm:"index" json:"paid_at,omitempty"`                                        // 付费升级时间
	ApprovedAt  *time.Time `gorm:"index" json:"approved_at,omitempty"`                                    // 审核通过时间

	CreatedAt time.Time      `gorm:"index" json:"created_at"` // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"` // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`          // 软删除时间
}

// TableName 指定表名
func (Affiliate) TableName() string {
	return "affiliates"
}
