package config

import (
	"errors"
	"fmt"
	"math"
)

const weightSumTolerance = 1e-6

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMatcher(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	if err := c.validatePotential(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateMatcher() error {
	m := c.Matcher
	sum := m.NameWeight + m.AgeWeight + m.TeamWeight + m.TimelineWeight
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("matcher weights must sum to 1.0, got %.4f", sum)
	}
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"matcher.min_candidate_score", m.MinCandidateScore},
		{"matcher.auto_consolidate_score", m.AutoConsolidateScore},
		{"matcher.very_high_threshold", m.VeryHighThreshold},
		{"matcher.high_threshold", m.HighThreshold},
		{"matcher.medium_threshold", m.MediumThreshold},
	} {
		if v.value < 0 || v.value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", v.name)
		}
	}
	if !(m.VeryHighThreshold > m.HighThreshold && m.HighThreshold > m.MediumThreshold) {
		return errors.New("matcher tier thresholds must be strictly decreasing")
	}
	if m.AutoConsolidateScore < m.HighThreshold {
		return errors.New("matcher.auto_consolidate_score must not be below the review threshold")
	}
	if m.MaxSeasonGap < 1 {
		return errors.New("matcher.max_season_gap must be at least 1")
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.ShortWindow < 1 || c.Metrics.LongWindow < c.Metrics.ShortWindow {
		return errors.New("metrics windows must satisfy 1 <= short_window <= long_window")
	}
	if c.Metrics.TrendMinGames < 3 {
		return errors.New("metrics.trend_min_games must be at least 3")
	}
	if c.Metrics.StabilityDamping <= 0 {
		return errors.New("metrics.stability_damping must be positive")
	}
	return nil
}

func (c *Config) validatePotential() error {
	p := c.Potential
	if p.Eligibility.MinGames < 1 {
		return errors.New("potential.eligibility.min_games must be at least 1")
	}
	pw := p.ProfileWeights
	profileSum := pw.Age + pw.Performance + pw.Production + pw.Consistency + pw.Advanced + pw.Momentum
	if math.Abs(profileSum-1.0) > weightSumTolerance {
		return fmt.Errorf("potential profile weights must sum to 1.0, got %.4f", profileSum)
	}
	cw := p.CareerWeights
	careerSum := cw.Recent + cw.Trajectory + cw.CareerAvg + cw.Age + cw.Consistency + cw.Confidence
	if math.Abs(careerSum-1.0) > weightSumTolerance {
		return fmt.Errorf("potential career weights must sum to 1.0, got %.4f", careerSum)
	}
	pt := p.ProfileTiers
	if !(pt.Elite > pt.VeryHigh && pt.VeryHigh > pt.High && pt.High > pt.Medium && pt.Medium > pt.Low && pt.Low > 0) {
		return errors.New("potential.profile_tiers cutpoints must be strictly decreasing and positive")
	}
	ct := p.CareerTiers
	if !(ct.Elite > ct.VeryHigh && ct.VeryHigh > ct.High && ct.High > ct.Medium && ct.Medium > 0) {
		return errors.New("potential.career_tiers cutpoints must be strictly decreasing and positive")
	}
	if p.RecentSeasons < 1 {
		return errors.New("potential.recent_seasons must be at least 1")
	}
	return nil
}
