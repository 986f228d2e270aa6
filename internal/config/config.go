package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	IngestDir string `toml:"ingest_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Matcher contains the identity-matching policy constants. All weights and
// thresholds are empirically chosen defaults, not derived values; they are
// kept here so operators can override them without rebuilding.
type Matcher struct {
	NameWeight     float64 `toml:"name_weight"`
	AgeWeight      float64 `toml:"age_weight"`
	TeamWeight     float64 `toml:"team_weight"`
	TimelineWeight float64 `toml:"timeline_weight"`

	// MinCandidateScore is the floor below which pairs are discarded
	// rather than stored.
	MinCandidateScore float64 `toml:"min_candidate_score"`
	// AutoConsolidateScore is the fully-automatic fast-path bar. Stricter
	// than the human-review floor.
	AutoConsolidateScore float64 `toml:"auto_consolidate_score"`

	VeryHighThreshold float64 `toml:"very_high_threshold"`
	HighThreshold     float64 `toml:"high_threshold"`
	MediumThreshold   float64 `toml:"medium_threshold"`

	// MaxSeasonGap bounds the blocking window: profiles further apart in
	// seasons are never paired.
	MaxSeasonGap int `toml:"max_season_gap"`
}

// Normalization contains z-score context settings.
type Normalization struct {
	// MinMinutes excludes garbage-time stat lines from context baselines.
	MinMinutes float64 `toml:"min_minutes"`
	// SmallSampleWarn is the context size below which a warning is logged.
	SmallSampleWarn int `toml:"small_sample_warn"`
}

// Metrics contains derived-metric settings.
type Metrics struct {
	ShortWindow      int     `toml:"short_window"`
	LongWindow       int     `toml:"long_window"`
	TrendMinGames    int     `toml:"trend_min_games"`
	StabilityDamping float64 `toml:"stability_damping"`
}

// Eligibility contains the minimum-sample gate for potential scoring.
type Eligibility struct {
	MinGames        int     `toml:"min_games"`
	MinTotalMinutes float64 `toml:"min_total_minutes"`
	MinAvgMinutes   float64 `toml:"min_avg_minutes"`
}

// ProfileWeights are the profile-level potential component weights. They
// must sum to 1.0.
type ProfileWeights struct {
	Age         float64 `toml:"age"`
	Performance float64 `toml:"performance"`
	Production  float64 `toml:"production"`
	Consistency float64 `toml:"consistency"`
	Advanced    float64 `toml:"advanced"`
	Momentum    float64 `toml:"momentum"`
}

// CareerWeights are the career-level unified score component weights. They
// must sum to 1.0; the level-jump bonus is applied on top.
type CareerWeights struct {
	Recent      float64 `toml:"recent"`
	Trajectory  float64 `toml:"trajectory"`
	CareerAvg   float64 `toml:"career_avg"`
	Age         float64 `toml:"age"`
	Consistency float64 `toml:"consistency"`
	Confidence  float64 `toml:"confidence"`
}

// ProfileTiers are the profile-score cutpoints, each the inclusive lower
// bound of its band. Scores below Low fall into the very_low band. They
// must be strictly decreasing.
type ProfileTiers struct {
	Elite    float64 `toml:"elite"`
	VeryHigh float64 `toml:"very_high"`
	High     float64 `toml:"high"`
	Medium   float64 `toml:"medium"`
	Low      float64 `toml:"low"`
}

// CareerTiers are the career-score cutpoints. Scores below Medium fall
// into the low band. They must be strictly decreasing.
type CareerTiers struct {
	Elite    float64 `toml:"elite"`
	VeryHigh float64 `toml:"very_high"`
	High     float64 `toml:"high"`
	Medium   float64 `toml:"medium"`
}

// Potential contains scoring policy for both profile and career scores.
type Potential struct {
	Eligibility    Eligibility    `toml:"eligibility"`
	ProfileWeights ProfileWeights `toml:"profile_weights"`
	CareerWeights  CareerWeights  `toml:"career_weights"`
	ProfileTiers   ProfileTiers   `toml:"profile_tiers"`
	CareerTiers    CareerTiers    `toml:"career_tiers"`

	// RecentSeasons is the window for career recent-performance.
	RecentSeasons int `toml:"recent_seasons"`
	// ReferenceYear anchors recency weighting and inactivity penalties.
	// Zero means "derive from the newest season in the data".
	ReferenceYear int `toml:"reference_year"`
}

// LevelOverride reassigns a competition's level from a given season
// onward. Supports competitions that changed tier mid-history.
type LevelOverride struct {
	Competition string `toml:"competition"`
	FromSeason  string `toml:"from_season"`
	Level       int    `toml:"level"`
}

// Levels maps competition names to numeric levels (1 = highest). Pairs not
// assigned here fall back to DefaultLevel.
type Levels struct {
	DefaultLevel int             `toml:"default_level"`
	Assign       map[string]int  `toml:"assign"`
	Overrides    []LevelOverride `toml:"overrides"`
}

// Config encapsulates all configuration values for boxscout.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Logging: log format and level
//   - Matcher: identity-matching weights and thresholds
//   - Normalization: z-score context settings
//   - Metrics: rolling windows and stability damping
//   - Potential: eligibility gate and scoring weights
//   - Levels: competition level assignments
type Config struct {
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
	Matcher       Matcher       `toml:"matcher"`
	Normalization Normalization `toml:"normalization"`
	Metrics       Metrics       `toml:"metrics"`
	Potential     Potential     `toml:"potential"`
	Levels        Levels        `toml:"levels"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/boxscout/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("boxscout.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the configured directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location under the data dir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "boxscout.db")
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}
