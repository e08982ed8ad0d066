package service

import (
	"testing"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/repository"
	"gorm.io/gorm"
)

func setupAffiliateServiceTest(t *testing.T) (*AffiliateService, *gorm.DB) {
	t.Helper()

	db := openServiceTestDB(t, "affiliate_service")
	affiliateRepo := repository.NewAffiliateRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	reconcileSvc := NewReconcileService(affiliateRepo, txnRepo, repository.NewOrderRepository(db), payoutRepo)
	svc := NewAffiliateService(
		affiliateRepo,
		txnRepo,
		payoutRepo,
		newTestSettingService(t, AffiliateDefaultSetting()),
		reconcileSvc,
		nil,
	)
	return svc, db
}

func TestApplyResolvesReferrerByCouponCode(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	referrer := createTestAffiliate(t, db, "REF00001", nil, "")

	applied, err := svc.Apply(ApplyAffiliateInput{
		Name:         "新申请人",
		Phone:        "9000000001",
		ReferrerCode: "ref00001", // 小写也能匹配
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if applied.Status != constants.AffiliateStatusPending {
		t.Errorf("status = %s, want pending", applied.Status)
	}
	if applied.ReferrerID == nil || *applied.ReferrerID != referrer.ID {
		t.Errorf("referrer = %+v, want %d", applied.ReferrerID, referrer.ID)
	}
}

func TestApproveIssuesCouponAndPlacesInTree(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	referrer := createTestAffiliate(t, db, "REF00001", nil, "")

	applied, err := svc.Apply(ApplyAffiliateInput{
		Name:         "待审核",
		Phone:        "9000000002",
		ReferrerCode: referrer.CouponCode,
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	approved, err := svc.Approve(applied.ID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != constants.AffiliateStatusApproved || !approved.IsActive {
		t.Errorf("status/active = %s/%v, want approved/true", approved.Status, approved.IsActive)
	}
	if len(approved.CouponCode) != couponCodeLength {
		t.Errorf("coupon code = %q, want %d chars", approved.CouponCode, couponCodeLength)
	}
	if approved.ParentID == nil || *approved.ParentID != referrer.ID {
		t.Errorf("parent = %+v, want %d", approved.ParentID, referrer.ID)
	}
	if approved.Position != constants.TreePositionLeft {
		t.Errorf("position = %s, want left", approved.Position)
	}
}

func TestApproveFirstAffiliateBecomesRoot(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)

	applied, err := svc.Apply(ApplyAffiliateInput{Name: "首位成员", Phone: "9000000003"})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	approved, err := svc.Approve(applied.ID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.ParentID != nil {
		t.Errorf("parent = %+v, want nil for first member", approved.ParentID)
	}
}

func TestApproveRejectsNonPending(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	approved := createTestAffiliate(t, db, "DONE0001", nil, "")

	if _, err := svc.Approve(approved.ID); err != ErrAffiliateNotPending {
		t.Errorf("approve on approved member = %v, want ErrAffiliateNotPending", err)
	}
}

func TestUpgradeToPaidGrantsBonusOnce(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	referrer := createTestAffiliate(t, db, "REF00001", nil, "")
	member := createTestAffiliate(t, db, "MEMBER01", &referrer.ID, constants.TreePositionLeft)
	if err := db.Model(member).Update("referrer_id", referrer.ID).Error; err != nil {
		t.Fatalf("set referrer failed: %v", err)
	}

	upgraded, err := svc.UpgradeToPaid(member.ID)
	if err != nil {
		t.Fatalf("upgrade failed: %v", err)
	}
	if !upgraded.IsPaid || upgraded.PaidAt == nil {
		t.Errorf("is_paid/paid_at = %v/%v, want true/non-nil", upgraded.IsPaid, upgraded.PaidAt)
	}
	if upgraded.OrdersSincePaid != 0 {
		t.Errorf("orders since paid = %d, want reset to 0", upgraded.OrdersSincePaid)
	}

	// 推荐人立刻拿到一次性奖励（500，直接进入可提现余额）
	refreshed := reloadAffiliate(t, db, referrer.ID)
	if refreshed.AvailableBalance.String() != "500.00" {
		t.Errorf("referrer available = %s, want 500.00", refreshed.AvailableBalance.String())
	}
	if refreshed.TotalEarnings.String() != "0.00" {
		t.Errorf("referrer total earnings = %s, want 0.00 (bonus excluded from buckets)", refreshed.TotalEarnings.String())
	}

	// 重复升级被拒绝，奖励不会再发
	if _, err := svc.UpgradeToPaid(member.ID); err != ErrAlreadyPaidTier {
		t.Errorf("repeat upgrade = %v, want ErrAlreadyPaidTier", err)
	}
	var bonusCount int64
	if err := db.Model(&models.AffiliateTransaction{}).
		Where("type = ?", constants.TransactionTypeBonus).
		Count(&bonusCount).Error; err != nil {
		t.Fatalf("count bonus failed: %v", err)
	}
	if bonusCount != 1 {
		t.Errorf("bonus transactions = %d, want 1", bonusCount)
	}
}

func TestRemoveRollsUpChildrenAndPurgesLedger(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)

	// root ← victim(left)；victim 有两个子节点
	root := createTestAffiliate(t, db, "ROOT0001", nil, "")
	victim := createTestAffiliate(t, db, "VICTIM01", &root.ID, constants.TreePositionLeft)
	childA := createTestAffiliate(t, db, "CHILDA01", &victim.ID, constants.TreePositionLeft)
	childB := createTestAffiliate(t, db, "CHILDB01", &victim.ID, constants.TreePositionRight)
	referred := createTestAffiliate(t, db, "REFED001", &root.ID, constants.TreePositionRight)
	if err := db.Model(referred).Update("referrer_id", victim.ID).Error; err != nil {
		t.Fatalf("set referrer failed: %v", err)
	}

	// victim 名下与 victim 作为来源的流水、victim 的提现申请
	orderID := uint(1)
	seedTxn := func(affiliateID, fromID uint, orderRef *uint) {
		if err := db.Create(&models.AffiliateTransaction{
			AffiliateID:     affiliateID,
			FromAffiliateID: fromID,
			OrderID:         orderRef,
			Amount:          testMoney(t, "10"),
			Type:            constants.TransactionTypeDirect,
			Status:          constants.TransactionStatusPending,
		}).Error; err != nil {
			t.Fatalf("seed transaction failed: %v", err)
		}
	}
	seedTxn(victim.ID, victim.ID, &orderID)
	orderID2 := uint(2)
	seedTxn(root.ID, victim.ID, &orderID2)
	// root 的统计由上面这条流水撑起，移除后应一并归零
	if err := db.Model(root).Updates(map[string]interface{}{
		"direct_earnings": testMoney(t, "10"),
		"total_earnings":  testMoney(t, "10"),
		"pending_balance": testMoney(t, "10"),
	}).Error; err != nil {
		t.Fatalf("seed root aggregates failed: %v", err)
	}
	if err := db.Create(&models.PayoutRequest{
		AffiliateID: victim.ID,
		Amount:      testMoney(t, "50"),
		UpiID:       "victim@upi",
		Status:      constants.PayoutStatusPending,
	}).Error; err != nil {
		t.Fatalf("seed payout failed: %v", err)
	}

	if err := svc.Remove(victim.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	// 会员记录物理删除
	var count int64
	if err := db.Model(&models.Affiliate{}).Where("id = ?", victim.ID).Count(&count).Error; err != nil {
		t.Fatalf("count victim failed: %v", err)
	}
	if count != 0 {
		t.Errorf("victim still present after remove")
	}

	// 第一个子节点继承 victim 的槽位
	movedA := reloadAffiliate(t, db, childA.ID)
	if movedA.ParentID == nil || *movedA.ParentID != root.ID || movedA.Position != constants.TreePositionLeft {
		t.Errorf("childA parent/position = %+v/%s, want %d/left", movedA.ParentID, movedA.Position, root.ID)
	}

	// 原父节点两个槽位均已占用（childA 继位、referred 在右），
	// 第二个子节点继续向下扫描落到 childA 名下
	movedB := reloadAffiliate(t, db, childB.ID)
	if movedB.ParentID == nil || *movedB.ParentID != childA.ID {
		t.Errorf("childB parent = %+v, want %d", movedB.ParentID, childA.ID)
	}

	// 推荐关系只清引用，不动成员
	if got := reloadAffiliate(t, db, referred.ID); got.ReferrerID != nil {
		t.Errorf("referred referrer = %+v, want nil", got.ReferrerID)
	}

	// victim 参与的流水（收益方或来源方）全部删除
	var remainingTxns int64
	if err := db.Model(&models.AffiliateTransaction{}).
		Where("affiliate_id = ? OR from_affiliate_id = ?", victim.ID, victim.ID).
		Count(&remainingTxns).Error; err != nil {
		t.Fatalf("count victim txns failed: %v", err)
	}
	if remainingTxns != 0 {
		t.Errorf("victim-linked transactions = %d, want 0", remainingTxns)
	}

	// 提现申请删除
	var payouts int64
	if err := db.Model(&models.PayoutRequest{}).
		Where("affiliate_id = ?", victim.ID).Count(&payouts).Error; err != nil {
		t.Fatalf("count payouts failed: %v", err)
	}
	if payouts != 0 {
		t.Errorf("victim payouts = %d, want 0", payouts)
	}

	// root 的收益与余额在同一事务内随流水删除而重算归零
	refreshedRoot := reloadAffiliate(t, db, root.ID)
	if refreshedRoot.TotalEarnings.String() != "0.00" {
		t.Errorf("root total earnings = %s, want 0.00", refreshedRoot.TotalEarnings.String())
	}
	if refreshedRoot.DirectEarnings.String() != "0.00" {
		t.Errorf("root direct earnings = %s, want 0.00", refreshedRoot.DirectEarnings.String())
	}
	if refreshedRoot.PendingBalance.String() != "0.00" {
		t.Errorf("root pending balance = %s, want 0.00", refreshedRoot.PendingBalance.String())
	}
}

func TestRemoveReparentsBothChildrenToFormerParent(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)

	// parent 只有 victim 一个子节点，右槽空闲
	parent := createTestAffiliate(t, db, "PARENT01", nil, "")
	victim := createTestAffiliate(t, db, "VICTIM01", &parent.ID, constants.TreePositionLeft)
	childA := createTestAffiliate(t, db, "CHILDA01", &victim.ID, constants.TreePositionLeft)
	childB := createTestAffiliate(t, db, "CHILDB01", &victim.ID, constants.TreePositionRight)

	if err := svc.Remove(victim.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	// 两个子节点都直接回到原父节点名下：childA 继承左槽，childB 落到空闲的右槽
	movedA := reloadAffiliate(t, db, childA.ID)
	if movedA.ParentID == nil || *movedA.ParentID != parent.ID || movedA.Position != constants.TreePositionLeft {
		t.Errorf("childA parent/position = %+v/%s, want %d/left", movedA.ParentID, movedA.Position, parent.ID)
	}
	movedB := reloadAffiliate(t, db, childB.ID)
	if movedB.ParentID == nil || *movedB.ParentID != parent.ID || movedB.Position != constants.TreePositionRight {
		t.Errorf("childB parent/position = %+v/%s, want %d/right", movedB.ParentID, movedB.Position, parent.ID)
	}
}

func TestRemoveRootPromotesFirstChild(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)

	root := createTestAffiliate(t, db, "ROOT0001", nil, "")
	childA := createTestAffiliate(t, db, "CHILDA01", &root.ID, constants.TreePositionLeft)
	childB := createTestAffiliate(t, db, "CHILDB01", &root.ID, constants.TreePositionRight)

	if err := svc.Remove(root.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	// 第一个子节点接任根，第二个从继任根开始重新排位
	promoted := reloadAffiliate(t, db, childA.ID)
	if promoted.ParentID != nil {
		t.Errorf("promoted child parent = %+v, want nil", promoted.ParentID)
	}
	movedB := reloadAffiliate(t, db, childB.ID)
	if movedB.ParentID == nil || *movedB.ParentID != childA.ID || movedB.Position != constants.TreePositionLeft {
		t.Errorf("childB parent/position = %+v/%s, want %d/left", movedB.ParentID, movedB.Position, childA.ID)
	}
}
