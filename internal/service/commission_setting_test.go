package service

import (
	"errors"
	"testing"

	"github.com/affiliate-next/internal/config"
	"github.com/affiliate-next/internal/models"
)

func TestCommissionDefaultSettingIsValid(t *testing.T) {
	setting := CommissionDefaultSetting()
	if err := ValidateCommissionSetting(setting); err != nil {
		t.Fatalf("default setting should be valid: %v", err)
	}
	if setting.Mode() != "flat" || setting.Calculation != "percentage" {
		t.Fatalf("unexpected default mode: %s/%s", setting.Mode(), setting.Calculation)
	}
}

func TestValidateCommissionSettingRejects(t *testing.T) {
	cases := map[string]func(*CommissionSetting){
		"minimum above maximum": func(s *CommissionSetting) { s.Minimum = dec("200"); s.Maximum = dec("100") },
		"rate above 100":        func(s *CommissionSetting) { s.Rate = dec("101") },
		"negative minimum":      func(s *CommissionSetting) { s.Minimum = dec("-1") },
		"negative maximum":      func(s *CommissionSetting) { s.Maximum = dec("-1") },
		"unknown calculation":   func(s *CommissionSetting) { s.Calculation = "fixed" },
		"bonus threshold zero": func(s *CommissionSetting) {
			s.VolumeBonuses = []models.VolumeBonusRule{{Threshold: dec("0"), Bonus: dec("1")}}
		},
		"bonus above 100": func(s *CommissionSetting) {
			s.VolumeBonuses = []models.VolumeBonusRule{{Threshold: dec("10"), Bonus: dec("150")}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			setting := CommissionDefaultSetting()
			mutate(&setting)
			err := ValidateCommissionSetting(setting)
			if !errors.Is(err, ErrCommissionConfigInvalid) || !errors.Is(err, ErrValidation) {
				t.Fatalf("want config error got %v", err)
			}
		})
	}
}

func TestValidateCommissionSettingAllowsMinimumWithoutMaximum(t *testing.T) {
	setting := CommissionDefaultSetting()
	setting.Minimum = dec("500")
	setting.Maximum = dec("0")
	if err := ValidateCommissionSetting(setting); err != nil {
		t.Fatalf("minimum without maximum should be valid: %v", err)
	}
}

func TestCommissionSettingFromConfig(t *testing.T) {
	bonus := 2.5
	setting := CommissionSettingFromConfig(config.CommissionConfig{
		MultiTier:   true,
		Calculation: " Percentage ",
		Rate:        12.5,
		Minimum:     1,
		Maximum:     250,
		Tiers: []config.CommissionTierConfig{
			{Level: 1, Rate: 10, Name: "Bronze"},
			{Level: 2, Rate: 15, Name: "Silver", Bonus: &bonus},
		},
		VolumeBonuses: []config.VolumeBonusRuleConfig{{Threshold: 1000, Bonus: 2}},
	})
	if err := ValidateCommissionSetting(setting); err != nil {
		t.Fatalf("converted setting should be valid: %v", err)
	}
	if setting.Calculation != "percentage" || setting.Mode() != "multi_tier" {
		t.Fatalf("unexpected mode: %s/%s", setting.Calculation, setting.Mode())
	}
	if !setting.Rate.Equal(dec("12.5")) || !setting.Maximum.Equal(dec("250")) {
		t.Fatalf("unexpected amounts: rate=%s max=%s", setting.Rate, setting.Maximum)
	}
	if setting.Tiers[0].Bonus != nil || setting.Tiers[1].Bonus == nil || !setting.Tiers[1].Bonus.Equal(dec("2.5")) {
		t.Fatalf("unexpected tier bonuses: %+v", setting.Tiers)
	}
	if len(setting.VolumeBonuses) != 1 || !setting.VolumeBonuses[0].Threshold.Equal(dec("1000")) {
		t.Fatalf("unexpected volume bonuses: %+v", setting.VolumeBonuses)
	}
}
