package service

import (
	"testing"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/repository"
	"gorm.io/gorm"
)

func setupPayoutServiceTest(t *testing.T) (*PayoutService, *gorm.DB) {
	t.Helper()

	db := openServiceTestDB(t, "payout_service")
	svc := NewPayoutService(
		repository.NewAffiliateRepository(db),
		repository.NewPayoutRepository(db),
		newTestSettingService(t, AffiliateDefaultSetting()),
	)
	return svc, db
}

func TestApplyPayoutFreezesAvailableBalance(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	affiliate := createTestAffiliate(t, db, "PAYOUT01", nil, "")
	if err := db.Model(affiliate).Update("available_balance", testMoney(t, "800")).Error; err != nil {
		t.Fatalf("seed balance failed: %v", err)
	}

	request, err := svc.Apply(affiliate.ID, testMoney(t, "300"), "member@upi")
	if err != nil {
		t.Fatalf("apply payout failed: %v", err)
	}
	if request.Status != constants.PayoutStatusPending {
		t.Errorf("status = %s, want pending", request.Status)
	}
	if got := reloadAffiliate(t, db, affiliate.ID); got.AvailableBalance.String() != "500.00" {
		t.Errorf("available = %s after freeze, want 500.00", got.AvailableBalance.String())
	}
}

func TestApplyPayoutValidations(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	affiliate := createTestAffiliate(t, db, "PAYOUT02", nil, "")
	if err := db.Model(affiliate).Update("available_balance", testMoney(t, "200")).Error; err != nil {
		t.Fatalf("seed balance failed: %v", err)
	}

	// 低于最低提现金额（默认 100）
	if _, err := svc.Apply(affiliate.ID, testMoney(t, "50"), "member@upi"); err != ErrPayoutBelowMinimum {
		t.Errorf("below-minimum apply = %v, want ErrPayoutBelowMinimum", err)
	}

	// 余额不足
	if _, err := svc.Apply(affiliate.ID, testMoney(t, "500"), "member@upi"); err != ErrInsufficientBalance {
		t.Errorf("over-balance apply = %v, want ErrInsufficientBalance", err)
	}

	// 已有在途申请时不允许再次申请
	if _, err := svc.Apply(affiliate.ID, testMoney(t, "150"), "member@upi"); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	if _, err := svc.Apply(affiliate.ID, testMoney(t, "100"), "member@upi"); err != ErrPayoutInFlight {
		t.Errorf("second apply = %v, want ErrPayoutInFlight", err)
	}
}

func TestReviewPayoutApprove(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	affiliate := createTestAffiliate(t, db, "PAYOUT03", nil, "")
	if err := db.Model(affiliate).Update("available_balance", testMoney(t, "400")).Error; err != nil {
		t.Fatalf("seed balance failed: %v", err)
	}

	request, err := svc.Apply(affiliate.ID, testMoney(t, "400"), "member@upi")
	if err != nil {
		t.Fatalf("apply payout failed: %v", err)
	}

	reviewed, err := svc.Review(request.ID, constants.PayoutActionApprove, 7, "已转账")
	if err != nil {
		t.Fatalf("review failed: %v", err)
	}
	if reviewed.Status != constants.PayoutStatusApproved {
		t.Errorf("status = %s, want approved", reviewed.Status)
	}
	if reviewed.ProcessedBy == nil || *reviewed.ProcessedBy != 7 || reviewed.ProcessedAt == nil {
		t.Errorf("processed_by/at = %+v/%+v, want 7/non-nil", reviewed.ProcessedBy, reviewed.ProcessedAt)
	}

	refreshed := reloadAffiliate(t, db, affiliate.ID)
	if refreshed.AvailableBalance.String() != "0.00" {
		t.Errorf("available = %s, want 0.00", refreshed.AvailableBalance.String())
	}
	if refreshed.PaidBalance.String() != "400.00" {
		t.Errorf("paid = %s, want 400.00", refreshed.PaidBalance.String())
	}

	// 终态不可重复审核
	if _, err := svc.Review(request.ID, constants.PayoutActionApprove, 7, ""); err != ErrPayoutNotPending {
		t.Errorf("repeat review = %v, want ErrPayoutNotPending", err)
	}
}

func TestReviewPayoutRejectRefunds(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	affiliate := createTestAffiliate(t, db, "PAYOUT04", nil, "")
	if err := db.Model(affiliate).Update("available_balance", testMoney(t, "250")).Error; err != nil {
		t.Fatalf("seed balance failed: %v", err)
	}

	request, err := svc.Apply(affiliate.ID, testMoney(t, "250"), "member@upi")
	if err != nil {
		t.Fatalf("apply payout failed: %v", err)
	}
	if got := reloadAffiliate(t, db, affiliate.ID); got.AvailableBalance.String() != "0.00" {
		t.Fatalf("available = %s after freeze, want 0.00", got.AvailableBalance.String())
	}

	reviewed, err := svc.Review(request.ID, constants.PayoutActionReject, 7, "账号信息有误")
	if err != nil {
		t.Fatalf("review failed: %v", err)
	}
	if reviewed.Status != constants.PayoutStatusRejected {
		t.Errorf("status = %s, want rejected", reviewed.Status)
	}

	refreshed := reloadAffiliate(t, db, affiliate.ID)
	if refreshed.AvailableBalance.String() != "250.00" {
		t.Errorf("available = %s after refund, want 250.00", refreshed.AvailableBalance.String())
	}
	if refreshed.PaidBalance.String() != "0.00" {
		t.Errorf("paid = %s, want 0.00", refreshed.PaidBalance.String())
	}
}
