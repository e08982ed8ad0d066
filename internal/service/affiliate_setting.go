package service

import (
	"errors"
	"fmt"
	"math"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/models"
)

// ErrAffiliateConfigInvalid 联盟配置非法
var ErrAffiliateConfigInvalid = errors.New("affiliate config invalid")

const (
	affiliatePercentMin         = 0
	affiliatePercentMax         = 100
	affiliateBonusAmountMin     = 0
	affiliateMinPayoutAmountMin = 0
)

// AffiliateSetting 联盟分佣配置
type AffiliateSetting struct {
	Enabled             bool    `json:"enabled"`               // 分佣开关
	DefaultPoolPercent  float64 `json:"default_pool_percent"`  // 商品未配置时的默认分润池比例
	Level1Percent       float64 `json:"level1_percent"`        // 一级分成比例
	Level2Percent       float64 `json:"level2_percent"`        // 二级分成比例
	Level3Percent       float64 `json:"level3_percent"`        // 三级分成比例
	ReferralBonusAmount float64 `json:"referral_bonus_amount"` // 推荐付费升级的一次性奖励
	MinPayoutAmount     float64 `json:"min_payout_amount"`     // 最低提现金额
}

// AffiliateDefaultSetting 默认联盟分佣配置
func AffiliateDefaultSetting() AffiliateSetting {
	return NormalizeAffiliateSetting(AffiliateSetting{
		Enabled:             true,
		DefaultPoolPercent:  60,
		Level1Percent:       20,
		Level2Percent:       18,
		Level3Percent:       12,
		ReferralBonusAmount: 500,
		MinPayoutAmount:     100,
	})
}

// NormalizeAffiliateSetting 归一化联盟分佣配置
func NormalizeAffiliateSetting(setting AffiliateSetting) AffiliateSetting {
	setting.DefaultPoolPercent = clampAffiliatePercent(setting.DefaultPoolPercent)
	setting.Level1Percent = clampAffiliatePercent(setting.Level1Percent)
	setting.Level2Percent = clampAffiliatePercent(setting.Level2Percent)
	setting.Level3Percent = clampAffiliatePercent(setting.Level3Percent)

	setting.ReferralBonusAmount = roundAffiliateDecimal(setting.ReferralBonusAmount)
	if setting.ReferralBonusAmount < affiliateBonusAmountMin {
		setting.ReferralBonusAmount = affiliateBonusAmountMin
	}

	setting.MinPayoutAmount = roundAffiliateDecimal(setting.MinPayoutAmount)
	if setting.MinPayoutAmount < affiliateMinPayoutAmountMin {
		setting.MinPayoutAmount = affiliateMinPayoutAmountMin
	}
	return setting
}

// ValidateAffiliateSetting 校验联盟分佣配置
func ValidateAffiliateSetting(setting AffiliateSetting) error {
	normalized := NormalizeAffiliateSetting(setting)
	for _, percent := range []float64{
		normalized.DefaultPoolPercent,
		normalized.Level1Percent,
		normalized.Level2Percent,
		normalized.Level3Percent,
	} {
		if percent < affiliatePercentMin || percent > affiliatePercentMax {
			return fmt.Errorf("%w: 比例必须在 0-100 之间", ErrAffiliateConfigInvalid)
		}
	}
	if normalized.ReferralBonusAmount < affiliateBonusAmountMin {
		return fmt.Errorf("%w: 推荐奖励不能小于 0", ErrAffiliateConfigInvalid)
	}
	if normalized.MinPayoutAmount < affiliateMinPayoutAmountMin {
		return fmt.Errorf("%w: 最低提现金额不能小于 0", ErrAffiliateConfigInvalid)
	}
	return nil
}

// AffiliateSettingToMap 将联盟分佣配置转换为 settings 存储结构
func AffiliateSettingToMap(setting AffiliateSetting) map[string]interface{} {
	normalized := NormalizeAffiliateSetting(setting)
	return map[string]interface{}{
		"enabled":               normalized.Enabled,
		"default_pool_percent":  normalized.DefaultPoolPercent,
		"level1_percent":        normalized.Level1Percent,
		"level2_percent":        normalized.Level2Percent,
		"level3_percent":        normalized.Level3Percent,
		"referral_bonus_amount": normalized.ReferralBonusAmount,
		"min_payout_amount":     normalized.MinPayoutAmount,
	}
}

func affiliateSettingFromJSON(raw models.JSON, fallback AffiliateSetting) AffiliateSetting {
	result := fallback

	if enabledRaw, ok := raw["enabled"]; ok {
		result.Enabled = parseSettingBool(enabledRaw)
	}
	if poolRaw, ok := raw["default_pool_percent"]; ok {
		if parsed, err := parseSettingFloat(poolRaw); err == nil {
			result.DefaultPoolPercent = parsed
		}
	}
	if level1Raw, ok := raw["level1_percent"]; ok {
		if parsed, err := parseSettingFloat(level1Raw); err == nil {
			result.Level1Percent = parsed
		}
	}
	if level2Raw, ok := raw["level2_percent"]; ok {
		if parsed, err := parseSettingFloat(level2Raw); err == nil {
			result.Level2Percent = parsed
		}
	}
	if level3Raw, ok := raw["level3_percent"]; ok {
		if parsed, err := parseSettingFloat(level3Raw); err == nil {
			result.Level3Percent = parsed
		}
	}
	if bonusRaw, ok := raw["referral_bonus_amount"]; ok {
		if parsed, err := parseSettingFloat(bonusRaw); err == nil {
			result.ReferralBonusAmount = parsed
		}
	}
	if minPayoutRaw, ok := raw["min_payout_amount"]; ok {
		if parsed, err := parseSettingFloat(minPayoutRaw); err == nil {
			result.MinPayoutAmount = parsed
		}
	}

	return NormalizeAffiliateSetting(result)
}

func normalizeAffiliateSettingMap(value map[string]interface{}) models.JSON {
	setting := affiliateSettingFromJSON(models.JSON(value), AffiliateDefaultSetting())
	return models.JSON(AffiliateSettingToMap(setting))
}

// GetAffiliateSetting 获取联盟分佣设置（优先 settings，空时回退默认）
func (s *SettingService) GetAffiliateSetting() (AffiliateSetting, error) {
	fallback := AffiliateDefaultSetting()
	if s == nil {
		return fallback, nil
	}

	value, err := s.GetByKey(constants.SettingKeyAffiliateConfig)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return affiliateSettingFromJSON(value, fallback), nil
}

// UpdateAffiliateSetting 更新联盟分佣设置
func (s *SettingService) UpdateAffiliateSetting(setting AffiliateSetting) (AffiliateSetting, error) {
	normalized := NormalizeAffiliateSetting(setting)
	if err := ValidateAffiliateSetting(normalized); err != nil {
		return AffiliateDefaultSetting(), err
	}
	if _, err := s.Update(constants.SettingKeyAffiliateConfig, AffiliateSettingToMap(normalized)); err != nil {
		return AffiliateDefaultSetting(), err
	}
	return normalized, nil
}

func clampAffiliatePercent(value float64) float64 {
	value = roundAffiliateDecimal(value)
	if value < affiliatePercentMin {
		return affiliatePercentMin
	}
	if value > affiliatePercentMax {
		return affiliatePercentMax
	}
	return value
}

func roundAffiliateDecimal(value float64) float64 {
	return math.Round(value*100) / 100
}
