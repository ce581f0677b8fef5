package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("load defaults failed: %v", err)
	}
	if cfg.Commission.MultiTier {
		t.Fatalf("multi tier should be disabled by default")
	}
	if cfg.Commission.Rate != 10 || cfg.Commission.Maximum != 100 || cfg.Commission.Minimum != 0 {
		t.Fatalf("unexpected commission defaults: %+v", cfg.Commission)
	}
	if len(cfg.Commission.Tiers) != 3 || cfg.Commission.Tiers[2].Name != "Gold" {
		t.Fatalf("unexpected default tiers: %+v", cfg.Commission.Tiers)
	}
	if len(cfg.Commission.VolumeBonuses) != 3 || cfg.Commission.VolumeBonuses[2].Threshold != 10000 {
		t.Fatalf("unexpected default volume bonuses: %+v", cfg.Commission.VolumeBonuses)
	}
	if cfg.Commission.Ledger.Driver != "memory" {
		t.Fatalf("ledger driver want memory got %s", cfg.Commission.Ledger.Driver)
	}
	if roles := cfg.Authz.OperatorRoles["ops"]; len(roles) != 1 || roles[0] != "commission_admin" {
		t.Fatalf("default operator roles unexpected: %+v", cfg.Authz.OperatorRoles)
	}
}

func TestLoadFileOverridesFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `
server:
  mode: release
commission:
  multi_tier: true
  rate: 12.5
  minimum: 5
  maximum: 0
  tiers:
    - level: 1
      rate: 11
      name: Starter
    - level: 2
      rate: 22
      name: Pro
      bonus: 3
  volume_bonuses:
    - threshold: 500
      bonus: 1
  ledger:
    driver: database
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Server.Mode != "release" {
		t.Fatalf("server mode want release got %s", cfg.Server.Mode)
	}
	if !cfg.Commission.MultiTier || cfg.Commission.Rate != 12.5 || cfg.Commission.Minimum != 5 || cfg.Commission.Maximum != 0 {
		t.Fatalf("unexpected commission config: %+v", cfg.Commission)
	}
	if len(cfg.Commission.Tiers) != 2 {
		t.Fatalf("tiers want 2 got %d", len(cfg.Commission.Tiers))
	}
	if cfg.Commission.Tiers[0].Bonus != nil {
		t.Fatalf("tier without bonus should keep nil bonus")
	}
	if cfg.Commission.Tiers[1].Bonus == nil || *cfg.Commission.Tiers[1].Bonus != 3 {
		t.Fatalf("tier bonus want 3 got %+v", cfg.Commission.Tiers[1].Bonus)
	}
	if len(cfg.Commission.VolumeBonuses) != 1 || cfg.Commission.VolumeBonuses[0].Bonus != 1 {
		t.Fatalf("unexpected volume bonuses: %+v", cfg.Commission.VolumeBonuses)
	}
	if cfg.Commission.Ledger.Driver != "database" {
		t.Fatalf("ledger driver want database got %s", cfg.Commission.Ledger.Driver)
	}
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("COMMISSION_RATE", "7")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Commission.Rate != 7 {
		t.Fatalf("env rate want 7 got %v", cfg.Commission.Rate)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("env port want 9090 got %s", cfg.Server.Port)
	}
}
