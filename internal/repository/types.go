package repository

import "time"

// AffiliateListFilter 查询推广员列表的过滤条件
type AffiliateListFilter struct {
	Page        int
	PageSize    int
	Status      string
	Keyword     string // 姓名 / 邮箱 / 优惠码模糊匹配
	Tier        string
	IsPaid      *bool
	ReferrerID  uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// TransactionListFilter 查询佣金流水列表的过滤条件
type TransactionListFilter struct {
	Page        int
	PageSize    int
	AffiliateID uint
	OrderID     uint
	Type        string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PayoutListFilter 查询提现申请列表的过滤条件
type PayoutListFilter struct {
	Page        int
	PageSize    int
	AffiliateID uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	Status      string
	OrderNo     string
	CouponCode  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
