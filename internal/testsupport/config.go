package testsupport

import (
	"path/filepath"
	"testing"

	"boxscout/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.IngestDir = filepath.Join(base, "ingest")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithEligibility overrides the potential eligibility gate.
func WithEligibility(minGames int, minTotal, minAvg float64) ConfigOption {
	return func(c *config.Config) {
		c.Potential.Eligibility.MinGames = minGames
		c.Potential.Eligibility.MinTotalMinutes = minTotal
		c.Potential.Eligibility.MinAvgMinutes = minAvg
	}
}
