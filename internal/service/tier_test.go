package service

import (
	"testing"

	"github.com/affiliate-next/internal/constants"
)

func TestClassifyTierPaidBrackets(t *testing.T) {
	cases := []struct {
		orders   int64
		wantName string
		wantRate string
	}{
		{0, constants.TierStarter, "10"},
		{20, constants.TierStarter, "10"},
		{21, constants.TierBronze, "15"},
		{50, constants.TierBronze, "15"},
		{51, constants.TierSilver, "20"},
		{100, constants.TierSilver, "20"},
		{101, constants.TierGold, "25"},
		{150, constants.TierGold, "25"},
		{151, constants.TierPlatinum, "30"},
		{180, constants.TierPlatinum, "30"},
		{181, constants.TierDiamond, "35"},
		{200, constants.TierDiamond, "35"},
		{201, constants.TierCrown, "40"},
		{5000, constants.TierCrown, "40"},
	}

	for _, tc := range cases {
		tier := ClassifyTier(tc.orders, true)
		if tier.Name != tc.wantName {
			t.Errorf("orders=%d: name = %s, want %s", tc.orders, tier.Name, tc.wantName)
		}
		if tier.Rate.String() != tc.wantRate {
			t.Errorf("orders=%d: rate = %s, want %s", tc.orders, tier.Rate.String(), tc.wantRate)
		}
	}
}

func TestClassifyTierFreeAlwaysLowest(t *testing.T) {
	for _, orders := range []int64{0, 20, 21, 500} {
		tier := ClassifyTier(orders, false)
		if tier.Name != constants.TierStarter {
			t.Errorf("orders=%d: free affiliate got tier %s, want %s", orders, tier.Name, constants.TierStarter)
		}
	}
}

func TestClassifyTierNegativeCountFallsBack(t *testing.T) {
	tier := ClassifyTier(-1, true)
	if tier.Name != constants.TierStarter {
		t.Errorf("negative count got tier %s, want %s", tier.Name, constants.TierStarter)
	}
}
