package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type mockSettingRepo struct {
	store map[string]models.JSON
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{store: map[string]models.JSON{}}
}

func (m *mockSettingRepo) GetByKey(key string) (*models.Setting, error) {
	value, ok := m.store[key]
	if !ok {
		return nil, nil
	}
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func (m *mockSettingRepo) Upsert(key string, value models.JSON) (*models.Setting, error) {
	m.store[key] = value
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func openServiceTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Affiliate{},
		&models.AffiliateTransaction{},
		&models.PayoutRequest{},
		&models.Order{},
		&models.OrderItem{},
		&models.Product{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func newTestSettingService(t *testing.T, setting AffiliateSetting) *SettingService {
	t.Helper()

	settingSvc := NewSettingService(newMockSettingRepo())
	if _, err := settingSvc.UpdateAffiliateSetting(setting); err != nil {
		t.Fatalf("init affiliate setting failed: %v", err)
	}
	return settingSvc
}

func testMoney(t *testing.T, value string) models.Money {
	t.Helper()

	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q failed: %v", value, err)
	}
	return models.NewMoneyFromDecimal(d)
}

func createTestAffiliate(t *testing.T, db *gorm.DB, code string, parentID *uint, position string) *models.Affiliate {
	t.Helper()

	now := time.Now()
	affiliate := &models.Affiliate{
		Name:        "affiliate-" + code,
		Phone:       fmt.Sprintf("9%09d", time.Now().UnixNano()%1000000000),
		CouponCode:  code,
		ParentID:    parentID,
		Position:    position,
		Status:      constants.AffiliateStatusApproved,
		IsActive:    true,
		CurrentTier: constants.TierStarter,
		ApprovedAt:  &now,
	}
	if err := db.Create(affiliate).Error; err != nil {
		t.Fatalf("create affiliate %s failed: %v", code, err)
	}
	return affiliate
}

func createTestProduct(t *testing.T, db *gorm.DB, slug string, price string, poolPercent string) *models.Product {
	t.Helper()

	product := &models.Product{
		Slug:                 slug,
		Name:                 "product-" + slug,
		PriceAmount:          testMoney(t, price),
		AffiliatePoolPercent: testMoney(t, poolPercent),
		IsActive:             true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product %s failed: %v", slug, err)
	}
	return product
}

func createTestOrder(t *testing.T, db *gorm.DB, orderNo, couponCode, status string, items []models.OrderItem) *models.Order {
	t.Helper()

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalPrice.Decimal)
	}
	order := &models.Order{
		OrderNo:     orderNo,
		CouponCode:  couponCode,
		Status:      status,
		TotalAmount: models.NewMoneyFromDecimal(total),
		Items:       items,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order %s failed: %v", orderNo, err)
	}
	return order
}

func reloadAffiliate(t *testing.T, db *gorm.DB, id uint) *models.Affiliate {
	t.Helper()

	var affiliate models.Affiliate
	if err := db.First(&affiliate, id).Error; err != nil {
		t.Fatalf("reload affiliate %d failed: %v", id, err)
	}
	return &affiliate
}
