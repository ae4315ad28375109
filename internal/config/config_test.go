package config

import (
	"path/filepath"
	"testing"
)

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Anonymize.MinBallots != 10 {
		t.Errorf("expected MinBallots=10, got %d", cfg.Anonymize.MinBallots)
	}
	if cfg.Anonymize.StyleColumn != 6 {
		t.Errorf("expected StyleColumn=6, got %d", cfg.Anonymize.StyleColumn)
	}
	if cfg.Anonymize.HeaderLength != 8 {
		t.Errorf("expected HeaderLength=8, got %d", cfg.Anonymize.HeaderLength)
	}
	if cfg.Anonymize.Policy != PolicySingle {
		t.Errorf("expected Policy=single, got %s", cfg.Anonymize.Policy)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("CVRANON_MIN_BALLOTS", "")
	t.Setenv("CVRANON_POLICY", "")
	t.Setenv("CVRANON_LEDGER", "")

	path := filepath.Join(t.TempDir(), "cvranon.yaml")

	cfg := DefaultConfig()
	cfg.Anonymize.MinBallots = 25
	cfg.Anonymize.Policy = PolicySimilarity
	cfg.Ledger.Enabled = true

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Anonymize.MinBallots != 25 {
		t.Errorf("expected MinBallots=25, got %d", loaded.Anonymize.MinBallots)
	}
	if loaded.Anonymize.Policy != PolicySimilarity {
		t.Errorf("expected Policy=similarity, got %s", loaded.Anonymize.Policy)
	}
	if !loaded.Ledger.Enabled {
		t.Error("expected ledger to be enabled")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("CVRANON_MIN_BALLOTS", "")
	t.Setenv("CVRANON_POLICY", "")
	t.Setenv("CVRANON_LEDGER", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Anonymize.MinBallots != 10 {
		t.Errorf("expected defaults, got MinBallots=%d", cfg.Anonymize.MinBallots)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CVRANON_MIN_BALLOTS", "15")
	t.Setenv("CVRANON_POLICY", "similarity")
	t.Setenv("CVRANON_LEDGER", "/tmp/runs.db")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.Anonymize.MinBallots != 15 {
		t.Errorf("expected MinBallots=15, got %d", cfg.Anonymize.MinBallots)
	}
	if cfg.Anonymize.Policy != PolicySimilarity {
		t.Errorf("expected Policy=similarity, got %s", cfg.Anonymize.Policy)
	}
	if !cfg.Ledger.Enabled || cfg.Ledger.Path != "/tmp/runs.db" {
		t.Errorf("expected ledger override, got %+v", cfg.Ledger)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero threshold", func(c *Config) { c.Anonymize.MinBallots = 0 }, true},
		{"negative threshold", func(c *Config) { c.Anonymize.MinBallots = -3 }, true},
		{"style column outside header", func(c *Config) { c.Anonymize.StyleColumn = 8 }, true},
		{"unknown policy", func(c *Config) { c.Anonymize.Policy = "random" }, true},
		{"ledger without path", func(c *Config) { c.Ledger.Enabled = true; c.Ledger.Path = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	if lc.IsCategoryEnabled("planner") {
		t.Error("categories must be disabled when debug_mode is off")
	}

	lc.DebugMode = true
	if !lc.IsCategoryEnabled("planner") {
		t.Error("all categories enabled by default in debug mode")
	}

	lc.Categories = map[string]bool{"planner": false}
	if lc.IsCategoryEnabled("planner") {
		t.Error("explicitly disabled category reported enabled")
	}
	if !lc.IsCategoryEnabled("balance") {
		t.Error("unlisted category should default to enabled")
	}
}
