package models

import (
	"time"

	"gorm.io/gorm"
)

// PayoutRequest 提现申请表
type PayoutRequest struct {
	ID          uint       `gorm:"primarykey" json:"id"`                                            // 主键
	AffiliateID uint       `gorm:"not null;index" json:"affiliate_id"`                              // 申请人会员ID
	Amount      Money      `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`             // 申请金额
	UpiID       string     `gorm:"type:varchar(100);not null" json:"upi_id"`                        // 收款账号
	Status      string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"` // 状态（pending/approved/rejected）
	AdminNote   string     `gorm:"type:varchar(255)" json:"admin_note"`                             // 审核备注
	ProcessedBy *uint      `gorm:"index" json:"processed_by,omitempty"`                             // 审核管理员ID
	ProcessedAt *time.Time `gorm:"index" json:"processed_at,omitempty"`                             // 审核时间

	CreatedAt time.Time      `gorm:"index" json:"created_at"` // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`              // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`          // 软删除时间

	Affiliate Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 申请人
}

// TableName 指定表名
func (PayoutRequest) TableName() string {
	return "payout_requests"
}
