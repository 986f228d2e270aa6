package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"boxscout/internal/services"
)

// SaveProfileMetrics replaces the derived metric row for one profile.
// Metrics are recomputed wholesale, so the write is a plain upsert of every
// column.
func (s *Store) SaveProfileMetrics(ctx context.Context, m *ProfileMetrics) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO profile_metrics (
            profile_id, season,
            points_per_36, rebounds_per_36, assists_per_36, steals_per_36, blocks_per_36,
            avg_true_shooting_pct, avg_offensive_rating, avg_player_efficiency, avg_usage_rate,
            rolling5_points, rolling10_points, trend_slope, momentum,
            coefficient_of_variation, stability_index,
            points_share, minutes_share, eff_vs_team,
            z_points, z_offensive_rating, z_player_efficiency,
            percentile_oer, performance_tier, low_variance_ctx, computed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (profile_id) DO UPDATE SET
            season = excluded.season,
            points_per_36 = excluded.points_per_36,
            rebounds_per_36 = excluded.rebounds_per_36,
            assists_per_36 = excluded.assists_per_36,
            steals_per_36 = excluded.steals_per_36,
            blocks_per_36 = excluded.blocks_per_36,
            avg_true_shooting_pct = excluded.avg_true_shooting_pct,
            avg_offensive_rating = excluded.avg_offensive_rating,
            avg_player_efficiency = excluded.avg_player_efficiency,
            avg_usage_rate = excluded.avg_usage_rate,
            rolling5_points = excluded.rolling5_points,
            rolling10_points = excluded.rolling10_points,
            trend_slope = excluded.trend_slope,
            momentum = excluded.momentum,
            coefficient_of_variation = excluded.coefficient_of_variation,
            stability_index = excluded.stability_index,
            points_share = excluded.points_share,
            minutes_share = excluded.minutes_share,
            eff_vs_team = excluded.eff_vs_team,
            z_points = excluded.z_points,
            z_offensive_rating = excluded.z_offensive_rating,
            z_player_efficiency = excluded.z_player_efficiency,
            percentile_oer = excluded.percentile_oer,
            performance_tier = excluded.performance_tier,
            low_variance_ctx = excluded.low_variance_ctx,
            computed_at = excluded.computed_at`,
		m.ProfileID, m.Season,
		nullableFloat(m.PointsPer36), nullableFloat(m.ReboundsPer36), nullableFloat(m.AssistsPer36),
		nullableFloat(m.StealsPer36), nullableFloat(m.BlocksPer36),
		nullableFloat(m.AvgTrueShootingPct), nullableFloat(m.AvgOffensiveRating),
		nullableFloat(m.AvgPlayerEfficiency), nullableFloat(m.AvgUsageRate),
		nullableFloat(m.Rolling5Points), nullableFloat(m.Rolling10Points),
		nullableFloat(m.TrendSlope), nullableFloat(m.Momentum),
		nullableFloat(m.CoefficientOfVariation), nullableFloat(m.StabilityIndex),
		nullableFloat(m.PointsShare), nullableFloat(m.MinutesShare), nullableFloat(m.EffVsTeam),
		nullableFloat(m.ZPoints), nullableFloat(m.ZOffensiveRating), nullableFloat(m.ZPlayerEfficiency),
		nullableFloat(m.PercentileOER), nullableStringPtr(m.PerformanceTier), boolToInt(m.LowVarianceCtx),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save profile metrics %d: %w", m.ProfileID, err)
	}
	return nil
}

// GetProfileMetrics fetches the derived metrics for one profile.
func (s *Store) GetProfileMetrics(ctx context.Context, profileID int64) (*ProfileMetrics, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT profile_id, season,
               points_per_36, rebounds_per_36, assists_per_36, steals_per_36, blocks_per_36,
               avg_true_shooting_pct, avg_offensive_rating, avg_player_efficiency, avg_usage_rate,
               rolling5_points, rolling10_points, trend_slope, momentum,
               coefficient_of_variation, stability_index,
               points_share, minutes_share, eff_vs_team,
               z_points, z_offensive_rating, z_player_efficiency,
               percentile_oer, performance_tier, low_variance_ctx, computed_at
        FROM profile_metrics WHERE profile_id = ?`, profileID)

	var m ProfileMetrics
	var pts36, reb36, ast36, stl36, blk36 sql.NullFloat64
	var ts, oer, per, usg sql.NullFloat64
	var r5, r10, trend, momentum sql.NullFloat64
	var cv, stability sql.NullFloat64
	var ptsShare, minShare, effTeam sql.NullFloat64
	var zPts, zOER, zPER, pctOER sql.NullFloat64
	var tier sql.NullString
	var lowVar int
	var computedAt string

	err := row.Scan(&m.ProfileID, &m.Season,
		&pts36, &reb36, &ast36, &stl36, &blk36,
		&ts, &oer, &per, &usg,
		&r5, &r10, &trend, &momentum,
		&cv, &stability,
		&ptsShare, &minShare, &effTeam,
		&zPts, &zOER, &zPER,
		&pctOER, &tier, &lowVar, &computedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get_profile_metrics",
			fmt.Sprintf("profile %d", profileID), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile metrics: %w", err)
	}

	m.PointsPer36 = floatPtr(pts36)
	m.ReboundsPer36 = floatPtr(reb36)
	m.AssistsPer36 = floatPtr(ast36)
	m.StealsPer36 = floatPtr(stl36)
	m.BlocksPer36 = floatPtr(blk36)
	m.AvgTrueShootingPct = floatPtr(ts)
	m.AvgOffensiveRating = floatPtr(oer)
	m.AvgPlayerEfficiency = floatPtr(per)
	m.AvgUsageRate = floatPtr(usg)
	m.Rolling5Points = floatPtr(r5)
	m.Rolling10Points = floatPtr(r10)
	m.TrendSlope = floatPtr(trend)
	m.Momentum = floatPtr(momentum)
	m.CoefficientOfVariation = floatPtr(cv)
	m.StabilityIndex = floatPtr(stability)
	m.PointsShare = floatPtr(ptsShare)
	m.MinutesShare = floatPtr(minShare)
	m.EffVsTeam = floatPtr(effTeam)
	m.ZPoints = floatPtr(zPts)
	m.ZOffensiveRating = floatPtr(zOER)
	m.ZPlayerEfficiency = floatPtr(zPER)
	m.PercentileOER = floatPtr(pctOER)
	if tier.Valid {
		m.PerformanceTier = &tier.String
	}
	m.LowVarianceCtx = lowVar != 0
	m.ComputedAt, _ = time.Parse(time.RFC3339Nano, computedAt)
	return &m, nil
}

func nullableStringPtr(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
