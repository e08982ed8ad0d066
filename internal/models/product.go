package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表（佣金引擎只消费成本配置字段）
type Product struct {
	ID                   uint   `gorm:"primarykey" json:"id"`                                               // 主键
	Slug                 string `gorm:"uniqueIndex;not null" json:"slug"`                                   // 唯一标识
	Name                 string `gorm:"type:varchar(200);not null" json:"name"`                             // 商品名称
	PriceAmount          Money  `gorm:"type:decimal(20,2);not null;default:0" json:"price_amount"`          // 售价
	ProductCost          Money  `gorm:"type:decimal(20,2);not null;default:0" json:"product_cost"`          // 进货成本
	PackagingCost        Money  `gorm:"type:decimal(20,2);not null;default:0" json:"packaging_cost"`        // 包装成本
	OtherCharges         Money  `gorm:"type:decimal(20,2);not null;default:0" json:"other_charges"`         // 其他费用
	AffiliatePoolPercent Money  `gorm:"type:decimal(10,2);not null;default:0" json:"affiliate_pool_percent"` // 分润池比例（百分比，0 表示使用默认值）
	IsActive             bool   `gorm:"default:true;index" json:"is_active"`                                // 是否上架

	CreatedAt time.Time      `gorm:"index" json:"created_at"` // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`              // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`          // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
