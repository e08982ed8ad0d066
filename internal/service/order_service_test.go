package service

import (
	"testing"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/repository"
	"gorm.io/gorm"
)

func setupOrderServiceTest(t *testing.T) (*OrderService, *gorm.DB) {
	t.Helper()

	db := openServiceTestDB(t, "order_service")
	commissionSvc := NewCommissionService(
		repository.NewAffiliateRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		newTestSettingService(t, AffiliateDefaultSetting()),
	)
	return NewOrderService(repository.NewOrderRepository(db), commissionSvc, nil), db
}

func TestCreateOrderNormalizesCouponAndDeduplicates(t *testing.T) {
	svc, _ := setupOrderServiceTest(t)

	order, err := svc.Create(CreateOrderInput{
		OrderNo:     "ORD-NEW1",
		CouponCode:  " code123 ",
		TotalAmount: testMoney(t, "100"),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if order.CouponCode != "CODE123" {
		t.Errorf("coupon = %q, want CODE123", order.CouponCode)
	}
	if order.Status != constants.OrderStatusPendingVerification {
		t.Errorf("status = %s, want pending_verification", order.Status)
	}

	// 同单号重复投递返回已有订单
	again, err := svc.Create(CreateOrderInput{OrderNo: "ORD-NEW1"})
	if err != nil {
		t.Fatalf("repeat create failed: %v", err)
	}
	if again.ID != order.ID {
		t.Errorf("repeat create returned order %d, want %d", again.ID, order.ID)
	}
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order := createTestOrder(t, db, "ORD-ILLEGAL", "", constants.OrderStatusDelivered, nil)

	if _, err := svc.UpdateStatus(order.ID, constants.OrderStatusCanceled); err != ErrInvalidTransition {
		t.Errorf("delivered->canceled = %v, want ErrInvalidTransition", err)
	}
}

func TestPaymentConfirmedTriggersDistribution(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	affiliate := createTestAffiliate(t, db, "ORDSVC01", nil, "")
	product := createTestProduct(t, db, "widget", "100", "60")
	order := createTestOrder(t, db, "ORD-FLOW", affiliate.CouponCode, constants.OrderStatusPendingVerification, []models.OrderItem{
		{ProductID: product.ID, Quantity: 1, UnitPrice: testMoney(t, "100"), TotalPrice: testMoney(t, "100")},
	})

	updated, err := svc.UpdateStatus(order.ID, constants.OrderStatusPaymentConfirmed)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if updated.Status != constants.OrderStatusPaymentConfirmed {
		t.Errorf("status = %s, want payment_confirmed", updated.Status)
	}

	var txns int64
	if err := db.Model(&models.AffiliateTransaction{}).
		Where("order_id = ?", order.ID).Count(&txns).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	if txns == 0 {
		t.Error("no commission transactions after payment confirmation")
	}
	// 池 = 100×60% = 60，直推免费档 10% → 6
	if got := reloadAffiliate(t, db, affiliate.ID); got.PendingBalance.String() != "6.00" {
		t.Errorf("pending = %s, want 6.00", got.PendingBalance.String())
	}
}

func TestDeliveredTriggersSettlement(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	affiliate := createTestAffiliate(t, db, "ORDSVC02", nil, "")
	product := createTestProduct(t, db, "widget", "200", "60")
	order := createTestOrder(t, db, "ORD-DELIVER", affiliate.CouponCode, constants.OrderStatusPendingVerification, []models.OrderItem{
		{ProductID: product.ID, Quantity: 1, UnitPrice: testMoney(t, "200"), TotalPrice: testMoney(t, "200")},
	})

	if _, err := svc.UpdateStatus(order.ID, constants.OrderStatusPaymentConfirmed); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if _, err := svc.UpdateStatus(order.ID, constants.OrderStatusShipping); err != nil {
		t.Fatalf("ship failed: %v", err)
	}
	if _, err := svc.UpdateStatus(order.ID, constants.OrderStatusDelivered); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}

	refreshed := reloadAffiliate(t, db, affiliate.ID)
	if refreshed.PendingBalance.String() != "0.00" {
		t.Errorf("pending = %s after delivery, want 0.00", refreshed.PendingBalance.String())
	}
	// 池 = 200×60% = 120，直推 10% → 12
	if refreshed.AvailableBalance.String() != "12.00" {
		t.Errorf("available = %s after delivery, want 12.00", refreshed.AvailableBalance.String())
	}
}

func TestCancelNeverDistributes(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	affiliate := createTestAffiliate(t, db, "ORDSVC03", nil, "")
	order := createTestOrder(t, db, "ORD-CANCEL", affiliate.CouponCode, constants.OrderStatusPendingVerification, nil)

	if _, err := svc.UpdateStatus(order.ID, constants.OrderStatusCanceled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	var txns int64
	if err := db.Model(&models.AffiliateTransaction{}).Count(&txns).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	if txns != 0 {
		t.Errorf("transactions = %d after cancel, want 0", txns)
	}
}
