package service

import (
	"testing"

	"github.com/affiliate-next/internal/models"
	"github.com/shopspring/decimal"
)

func moneyFromInt(t *testing.T, value int64) models.Money {
	t.Helper()
	return models.NewMoneyFromDecimal(decimal.NewFromInt(value))
}

func TestComputePoolPerItemPercent(t *testing.T) {
	order := &models.Order{
		Items: []models.OrderItem{
			{ProductID: 1, Quantity: 2, UnitPrice: moneyFromInt(t, 100)}, // 100 × 2 × 50% = 100
			{ProductID: 2, Quantity: 1, UnitPrice: moneyFromInt(t, 200)}, // 200 × 1 × 60%（默认） = 120
		},
	}
	products := map[uint]models.Product{
		1: {ID: 1, AffiliatePoolPercent: models.NewMoneyFromDecimal(decimal.NewFromInt(50))},
		2: {ID: 2}, // 未配置比例，走默认 60
	}

	result := ComputePool(order, products, decimal.NewFromInt(60))
	if got := result.Pool.String(); got != "220.00" {
		t.Errorf("pool = %s, want 220.00", got)
	}
	if len(result.SkippedProducts) != 0 {
		t.Errorf("skipped = %v, want empty", result.SkippedProducts)
	}
}

func TestComputePoolMissingProductContributesZero(t *testing.T) {
	order := &models.Order{
		Items: []models.OrderItem{
			{ProductID: 1, Quantity: 1, UnitPrice: moneyFromInt(t, 100)},
			{ProductID: 99, Quantity: 3, UnitPrice: moneyFromInt(t, 500)},
		},
	}
	products := map[uint]models.Product{
		1: {ID: 1, AffiliatePoolPercent: models.NewMoneyFromDecimal(decimal.NewFromInt(60))},
	}

	result := ComputePool(order, products, decimal.NewFromInt(60))
	if got := result.Pool.String(); got != "60.00" {
		t.Errorf("pool = %s, want 60.00", got)
	}
	if len(result.SkippedProducts) != 1 || result.SkippedProducts[0] != 99 {
		t.Errorf("skipped = %v, want [99]", result.SkippedProducts)
	}
}

func TestComputePoolEmptyOrder(t *testing.T) {
	result := ComputePool(nil, nil, decimal.NewFromInt(60))
	if !result.Pool.IsZero() {
		t.Errorf("pool = %s, want 0", result.Pool.String())
	}
	result = ComputePool(&models.Order{}, nil, decimal.NewFromInt(60))
	if !result.Pool.IsZero() {
		t.Errorf("pool = %s, want 0", result.Pool.String())
	}
}
