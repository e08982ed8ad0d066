package service

import (
	"testing"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/repository"
	"gorm.io/gorm"
)

func setupCommissionServiceTest(t *testing.T) (*CommissionService, *gorm.DB) {
	t.Helper()

	db := openServiceTestDB(t, "commission_service")
	settingSvc := newTestSettingService(t, AffiliateDefaultSetting())
	svc := NewCommissionService(
		repository.NewAffiliateRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		settingSvc,
	)
	return svc, db
}

// 三层树：root ← mid ← direct，direct 为付费铂金档（30%）
func buildCommissionTestTree(t *testing.T, db *gorm.DB) (direct, mid, root *models.Affiliate) {
	t.Helper()

	root = createTestAffiliate(t, db, "ROOT0001", nil, "")
	mid = createTestAffiliate(t, db, "MID00001", &root.ID, constants.TreePositionLeft)
	direct = createTestAffiliate(t, db, "DIRECT01", &mid.ID, constants.TreePositionLeft)

	if err := db.Model(direct).Updates(map[string]interface{}{
		"is_paid":           true,
		"orders_since_paid": 160,
		"current_tier":      constants.TierPlatinum,
	}).Error; err != nil {
		t.Fatalf("mark direct paid failed: %v", err)
	}
	return reloadAffiliate(t, db, direct.ID), mid, root
}

func TestDistributeOrderThreeLevelSplit(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	direct, mid, root := buildCommissionTestTree(t, db)

	product := createTestProduct(t, db, "widget", "1000", "100")
	order := createTestOrder(t, db, "ORD-1000", direct.CouponCode, constants.OrderStatusPaymentConfirmed, []models.OrderItem{
		{ProductID: product.ID, Quantity: 1, UnitPrice: testMoney(t, "1000"), TotalPrice: testMoney(t, "1000")},
	})

	result, err := svc.DistributeOrder(order.ID)
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if !result.Processed {
		t.Fatalf("expected processed, got reason %s", result.Reason)
	}
	if got := result.Pool.String(); got != "1000.00" {
		t.Errorf("pool = %s, want 1000.00", got)
	}
	if len(result.Recipients) != 3 {
		t.Fatalf("recipients = %d, want 3", len(result.Recipients))
	}

	wantShares := map[uint]string{
		direct.ID: "300.00", // 铂金档 30%
		mid.ID:    "200.00", // 一级 20%
		root.ID:   "180.00", // 二级 18%
	}
	for _, share := range result.Recipients {
		if want := wantShares[share.AffiliateID]; share.Amount.String() != want {
			t.Errorf("affiliate %d share = %s, want %s", share.AffiliateID, share.Amount.String(), want)
		}
	}

	// 分配总额不得超过池子：300+200+180=680，三级无上线份额作废
	if got := reloadAffiliate(t, db, direct.ID); got.DirectEarnings.String() != "300.00" ||
		got.PendingBalance.String() != "300.00" ||
		got.TotalEarnings.String() != "300.00" {
		t.Errorf("direct earnings/pending = %s/%s, want 300.00/300.00",
			got.DirectEarnings.String(), got.PendingBalance.String())
	}
	if got := reloadAffiliate(t, db, mid.ID); got.Level1Earnings.String() != "200.00" {
		t.Errorf("mid level1 earnings = %s, want 200.00", got.Level1Earnings.String())
	}
	if got := reloadAffiliate(t, db, root.ID); got.Level2Earnings.String() != "180.00" {
		t.Errorf("root level2 earnings = %s, want 180.00", got.Level2Earnings.String())
	}

	// 直推会员统计随单递增
	refreshed := reloadAffiliate(t, db, direct.ID)
	if refreshed.TotalOrders != 1 {
		t.Errorf("direct total orders = %d, want 1", refreshed.TotalOrders)
	}
	if refreshed.OrdersSincePaid != 161 {
		t.Errorf("direct orders since paid = %d, want 161", refreshed.OrdersSincePaid)
	}
	if refreshed.TotalSalesAmount.String() != "1000.00" {
		t.Errorf("direct sales = %s, want 1000.00", refreshed.TotalSalesAmount.String())
	}
}

func TestDistributeOrderIdempotent(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	direct, _, _ := buildCommissionTestTree(t, db)

	product := createTestProduct(t, db, "widget", "500", "60")
	order := createTestOrder(t, db, "ORD-REPEAT", direct.CouponCode, constants.OrderStatusPaymentConfirmed, []models.OrderItem{
		{ProductID: product.ID, Quantity: 2, UnitPrice: testMoney(t, "500"), TotalPrice: testMoney(t, "1000")},
	})

	first, err := svc.DistributeOrder(order.ID)
	if err != nil {
		t.Fatalf("first distribute failed: %v", err)
	}
	if !first.Processed {
		t.Fatalf("first distribute not processed: %s", first.Reason)
	}

	var countAfterFirst int64
	if err := db.Model(&models.AffiliateTransaction{}).Count(&countAfterFirst).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}

	second, err := svc.DistributeOrder(order.ID)
	if err != nil {
		t.Fatalf("second distribute failed: %v", err)
	}
	if second.Processed || second.Reason != DistributionReasonAlreadyProcessed {
		t.Fatalf("second distribute = %+v, want already_processed no-op", second)
	}

	var countAfterSecond int64
	if err := db.Model(&models.AffiliateTransaction{}).Count(&countAfterSecond).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	if countAfterFirst != countAfterSecond {
		t.Errorf("transaction count changed %d -> %d on repeat distribute", countAfterFirst, countAfterSecond)
	}

	refreshed := reloadAffiliate(t, db, direct.ID)
	if refreshed.TotalOrders != 1 {
		t.Errorf("total orders = %d after repeat distribute, want 1", refreshed.TotalOrders)
	}
}

func TestDistributeOrderNoOpReasons(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	direct, _, _ := buildCommissionTestTree(t, db)
	product := createTestProduct(t, db, "widget", "100", "60")

	t.Run("no coupon", func(t *testing.T) {
		order := createTestOrder(t, db, "ORD-NOCODE", "", constants.OrderStatusPaymentConfirmed, []models.OrderItem{
			{ProductID: product.ID, Quantity: 1, UnitPrice: testMoney(t, "100"), TotalPrice: testMoney(t, "100")},
		})
		result, err := svc.DistributeOrder(order.ID)
		if err != nil {
			t.Fatalf("distribute failed: %v", err)
		}
		if result.Processed || result.Reason != DistributionReasonNoCoupon {
			t.Errorf("result = %+v, want no_coupon", result)
		}
	})

	t.Run("unknown coupon", func(t *testing.T) {
		order := createTestOrder(t, db, "ORD-UNKNOWN", "NOSUCH99", constants.OrderStatusPaymentConfirmed, []models.OrderItem{
			{ProductID: product.ID, Quantity: 1, UnitPrice: testMoney(t, "100"), TotalPrice: testMoney(t, "100")},
		})
		result, err := svc.DistributeOrder(order.ID)
		if err != nil {
			t.Fatalf("distribute failed: %v", err)
		}
		if result.Processed || result.Reason != DistributionReasonNoAffiliate {
			t.Errorf("result = %+v, want no_affiliate", result)
		}
	})

	t.Run("affiliate not eligible", func(t *testing.T) {
		suspended := createTestAffiliate(t, db, "SUSPEND1", nil, "")
		if err := db.Model(suspended).Update("is_active", false).Error; err != nil {
			t.Fatalf("suspend affiliate failed: %v", err)
		}
		order := createTestOrder(t, db, "ORD-SUSP", suspended.CouponCode, constants.OrderStatusPaymentConfirmed, []models.OrderItem{
			{ProductID: product.ID, Quantity: 1, UnitPrice: testMoney(t, "100"), TotalPrice: testMoney(t, "100")},
		})
		result, err := svc.DistributeOrder(order.ID)
		if err != nil {
			t.Fatalf("distribute failed: %v", err)
		}
		if result.Processed || result.Reason != DistributionReasonNotEligible {
			t.Errorf("result = %+v, want not_eligible", result)
		}
	})

	t.Run("empty pool on unresolvable product", func(t *testing.T) {
		order := createTestOrder(t, db, "ORD-NOPROD", direct.CouponCode, constants.OrderStatusPaymentConfirmed, []models.OrderItem{
			{ProductID: 424242, Quantity: 1, UnitPrice: testMoney(t, "100"), TotalPrice: testMoney(t, "100")},
		})
		result, err := svc.DistributeOrder(order.ID)
		if err != nil {
			t.Fatalf("distribute failed: %v", err)
		}
		if result.Processed || result.Reason != DistributionReasonEmptyPool {
			t.Errorf("result = %+v, want empty_pool", result)
		}
	})
}

func TestDistributeOrderCouponMatchIsCaseInsensitive(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	direct, _, _ := buildCommissionTestTree(t, db)
	product := createTestProduct(t, db, "widget", "100", "60")

	order := createTestOrder(t, db, "ORD-CASE", " direct01 ", constants.OrderStatusPaymentConfirmed, []models.OrderItem{
		{ProductID: product.ID, Quantity: 1, UnitPrice: testMoney(t, "100"), TotalPrice: testMoney(t, "100")},
	})

	result, err := svc.DistributeOrder(order.ID)
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if !result.Processed {
		t.Fatalf("lowercase coupon did not match, reason %s", result.Reason)
	}
	if result.Recipients[0].AffiliateID != direct.ID {
		t.Errorf("matched affiliate %d, want %d", result.Recipients[0].AffiliateID, direct.ID)
	}
}

func TestDistributeOrderDisabledSetting(t *testing.T) {
	db := openServiceTestDB(t, "commission_disabled")
	setting := AffiliateDefaultSetting()
	setting.Enabled = false
	svc := NewCommissionService(
		repository.NewAffiliateRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		newTestSettingService(t, setting),
	)

	order := createTestOrder(t, db, "ORD-OFF", "ANY00001", constants.OrderStatusPaymentConfirmed, nil)
	result, err := svc.DistributeOrder(order.ID)
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if result.Processed || result.Reason != DistributionReasonDisabled {
		t.Errorf("result = %+v, want disabled", result)
	}
}

func TestSettleOrderMovesPendingToAvailable(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	direct, mid, _ := buildCommissionTestTree(t, db)

	product := createTestProduct(t, db, "widget", "1000", "100")
	order := createTestOrder(t, db, "ORD-SETTLE", direct.CouponCode, constants.OrderStatusPaymentConfirmed, []models.OrderItem{
		{ProductID: product.ID, Quantity: 1, UnitPrice: testMoney(t, "1000"), TotalPrice: testMoney(t, "1000")},
	})

	if _, err := svc.DistributeOrder(order.ID); err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if err := svc.SettleOrder(order.ID); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	refreshed := reloadAffiliate(t, db, direct.ID)
	if refreshed.PendingBalance.String() != "0.00" {
		t.Errorf("direct pending = %s after settle, want 0.00", refreshed.PendingBalance.String())
	}
	if refreshed.AvailableBalance.String() != "300.00" {
		t.Errorf("direct available = %s after settle, want 300.00", refreshed.AvailableBalance.String())
	}
	if got := reloadAffiliate(t, db, mid.ID); got.AvailableBalance.String() != "200.00" {
		t.Errorf("mid available = %s after settle, want 200.00", got.AvailableBalance.String())
	}

	// 再次结算不产生任何变更
	if err := svc.SettleOrder(order.ID); err != nil {
		t.Fatalf("repeat settle failed: %v", err)
	}
	if got := reloadAffiliate(t, db, direct.ID); got.AvailableBalance.String() != "300.00" {
		t.Errorf("direct available = %s after repeat settle, want 300.00", got.AvailableBalance.String())
	}
}
