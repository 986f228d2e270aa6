package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"boxscout/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.Matcher.NameWeight != 0.40 {
		t.Fatalf("expected default name weight, got %v", cfg.Matcher.NameWeight)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boxscout.toml")
	content := `
[paths]
data_dir = "` + dir + `"

[matcher]
min_candidate_score = 0.60
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatal("expected config file to be found")
	}
	if cfg.Matcher.MinCandidateScore != 0.60 {
		t.Fatalf("expected override, got %v", cfg.Matcher.MinCandidateScore)
	}
	// Untouched sections keep defaults.
	if cfg.Matcher.AutoConsolidateScore != 0.95 {
		t.Fatalf("expected default auto-consolidate score, got %v", cfg.Matcher.AutoConsolidateScore)
	}
}

func TestValidateRejectsBadWeights(t *testing.T) {
	cfg := config.Default()
	cfg.Matcher.NameWeight = 0.50
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected weight-sum validation error")
	}

	cfg = config.Default()
	cfg.Potential.ProfileWeights.Momentum = 0.50
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected profile weight-sum validation error")
	}
}

func TestValidateRejectsUnorderedTierCutpoints(t *testing.T) {
	cfg := config.Default()
	cfg.Potential.ProfileTiers.Medium = 0.90
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected profile tier ordering error")
	}

	cfg = config.Default()
	cfg.Potential.CareerTiers.High = cfg.Potential.CareerTiers.Elite
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected career tier ordering error")
	}
}

func TestValidateRejectsInvertedTiers(t *testing.T) {
	cfg := config.Default()
	cfg.Matcher.HighThreshold = 0.90
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected tier ordering validation error")
	}
}

func TestLevelAssignNormalizedToUpper(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boxscout.toml")
	content := `
[levels.assign]
"liga femenina" = 1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Levels.Assign["LIGA FEMENINA"] != 1 {
		t.Fatalf("expected uppercased level key, got %#v", cfg.Levels.Assign)
	}
}
