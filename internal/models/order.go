package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表（对佣金引擎只读，生命周期由外围系统推进）
type Order struct {
	ID          uint       `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNo     string     `gorm:"uniqueIndex;not null" json:"order_no"`                      // 订单编号
	CouponCode  string     `gorm:"type:varchar(32);index" json:"coupon_code,omitempty"`       // 下单使用的优惠码（大写存储）
	Status      string     `gorm:"index;not null" json:"status"`                              // 订单状态
	TotalAmount Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 实付金额
	PaidAt      *time.Time `gorm:"index" json:"paid_at,omitempty"`                            // 支付确认时间
	DeliveredAt *time.Time `gorm:"index" json:"delivered_at,omitempty"`                       // 签收时间
	CanceledAt  *time.Time `gorm:"index" json:"canceled_at,omitempty"`                        // 取消时间

	CreatedAt time.Time      `gorm:"index" json:"created_at"` // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`              // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`          // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
