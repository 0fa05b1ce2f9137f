package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RECON_CONFIG", "")
	t.Setenv("TARGET_ACCOUNT", "")
	t.Setenv("BATCH_WORKERS", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TargetAccount != "1105" {
		t.Errorf("TargetAccount = %q, want 1105", cfg.TargetAccount)
	}
	if cfg.BatchWorkers != 12 {
		t.Errorf("BatchWorkers = %d, want 12", cfg.BatchWorkers)
	}
	if got := cfg.Tolerance().String(); got != "0.01" {
		t.Errorf("Tolerance() = %s, want 0.01", got)
	}
	if len(cfg.IgnorePatterns()) != 1 || !cfg.IgnorePatterns()[0].MatchString("Page 3 of 9") {
		t.Errorf("IgnorePatterns() = %v, want the page footer pattern", cfg.LayoutIgnore)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	t.Setenv("TARGET_ACCOUNT", "1105")
	t.Setenv("DATABASE_DRIVER", "")
	path := filepath.Join(t.TempDir(), "recon.yaml")
	data := []byte("target_account: \"2200\"\nreconcile_tolerance: \"0.05\"\nlayout_ignore_patterns:\n  - '^Confidential$'\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TargetAccount != "2200" {
		t.Errorf("TargetAccount = %q, want 2200 from file", cfg.TargetAccount)
	}
	if cfg.ReconcileTolerance != "0.05" {
		t.Errorf("ReconcileTolerance = %q, want 0.05", cfg.ReconcileTolerance)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Errorf("DatabaseDriver = %q, want env default sqlite", cfg.DatabaseDriver)
	}
	if len(cfg.LayoutIgnore) != 1 || cfg.LayoutIgnore[0] != "^Confidential$" {
		t.Errorf("LayoutIgnore = %v", cfg.LayoutIgnore)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad tolerance", func(c *Config) { c.ReconcileTolerance = "abc" }},
		{"negative tolerance", func(c *Config) { c.ReconcileTolerance = "-1" }},
		{"unknown driver", func(c *Config) { c.DatabaseDriver = "mysql" }},
		{"no workers", func(c *Config) { c.BatchWorkers = 0 }},
		{"bad pattern", func(c *Config) { c.LayoutIgnore = []string{"("} }},
		{"empty account", func(c *Config) { c.TargetAccount = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				TargetAccount:      "1105",
				ReconcileTolerance: "0.01",
				DatabaseDriver:     "sqlite",
				BatchWorkers:       1,
			}
			tt.mutate(c)
			if err := c.validate(); err == nil {
				t.Error("validate() = nil, want error")
			}
		})
	}
}
