package service

import (
	"testing"

	"github.com/affiliate-next/internal/models"
)

func TestNormalizeAffiliateSettingClampsPercent(t *testing.T) {
	setting := NormalizeAffiliateSetting(AffiliateSetting{
		DefaultPoolPercent:  150,
		Level1Percent:       -5,
		Level2Percent:       18.456,
		Level3Percent:       12,
		ReferralBonusAmount: -10,
		MinPayoutAmount:     99.999,
	})

	if setting.DefaultPoolPercent != 100 {
		t.Errorf("DefaultPoolPercent = %v, want 100", setting.DefaultPoolPercent)
	}
	if setting.Level1Percent != 0 {
		t.Errorf("Level1Percent = %v, want 0", setting.Level1Percent)
	}
	if setting.Level2Percent != 18.46 {
		t.Errorf("Level2Percent = %v, want 18.46", setting.Level2Percent)
	}
	if setting.ReferralBonusAmount != 0 {
		t.Errorf("ReferralBonusAmount = %v, want 0", setting.ReferralBonusAmount)
	}
	if setting.MinPayoutAmount != 100 {
		t.Errorf("MinPayoutAmount = %v, want 100", setting.MinPayoutAmount)
	}
}

func TestValidateAffiliateSettingDefaultsPass(t *testing.T) {
	if err := ValidateAffiliateSetting(AffiliateDefaultSetting()); err != nil {
		t.Fatalf("default setting invalid: %v", err)
	}
}

func TestAffiliateSettingFromJSONFallback(t *testing.T) {
	fallback := AffiliateDefaultSetting()

	// 空配置整体回退默认
	got := affiliateSettingFromJSON(models.JSON{}, fallback)
	if got != fallback {
		t.Errorf("empty json = %+v, want fallback %+v", got, fallback)
	}

	// 部分字段覆盖，其余保留默认并归一化
	got = affiliateSettingFromJSON(models.JSON{
		"enabled":              false,
		"default_pool_percent": "55",
		"level2_percent":       float64(200),
	}, fallback)
	if got.Enabled {
		t.Error("Enabled = true, want false")
	}
	if got.DefaultPoolPercent != 55 {
		t.Errorf("DefaultPoolPercent = %v, want 55", got.DefaultPoolPercent)
	}
	if got.Level2Percent != 100 {
		t.Errorf("Level2Percent = %v, want clamped 100", got.Level2Percent)
	}
	if got.Level1Percent != fallback.Level1Percent {
		t.Errorf("Level1Percent = %v, want fallback %v", got.Level1Percent, fallback.Level1Percent)
	}
}

func TestUpdateAffiliateSettingNilService(t *testing.T) {
	var svc *SettingService
	got, err := svc.GetAffiliateSetting()
	if err != nil {
		t.Fatalf("nil service GetAffiliateSetting: %v", err)
	}
	if got != AffiliateDefaultSetting() {
		t.Errorf("nil service setting = %+v, want defaults", got)
	}
}

func TestAffiliateSettingToMapRoundTrip(t *testing.T) {
	raw := normalizeAffiliateSettingMap(map[string]interface{}{
		"enabled":               true,
		"default_pool_percent":  float64(62.5),
		"level1_percent":        float64(25),
		"referral_bonus_amount": float64(300),
	})

	setting := affiliateSettingFromJSON(raw, AffiliateDefaultSetting())
	if !setting.Enabled {
		t.Error("Enabled = false, want true")
	}
	if setting.DefaultPoolPercent != 62.5 {
		t.Errorf("DefaultPoolPercent = %v, want 62.5", setting.DefaultPoolPercent)
	}
	if setting.Level1Percent != 25 {
		t.Errorf("Level1Percent = %v, want 25", setting.Level1Percent)
	}
	if err := ValidateAffiliateSetting(setting); err != nil {
		t.Errorf("round-trip setting invalid: %v", err)
	}
}
