package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"boxscout/internal/services"
)

// SaveProfilePotential replaces the potential score row for one profile.
func (s *Store) SaveProfilePotential(ctx context.Context, p *ProfilePotential) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO profile_potential (
            profile_id, eligible, ineligible_reason,
            age_score, performance_score, consistency_score, advanced_score,
            momentum_score, production_score, composite, confidence, tier,
            young_talent, consistent_player, computed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (profile_id) DO UPDATE SET
            eligible = excluded.eligible,
            ineligible_reason = excluded.ineligible_reason,
            age_score = excluded.age_score,
            performance_score = excluded.performance_score,
            consistency_score = excluded.consistency_score,
            advanced_score = excluded.advanced_score,
            momentum_score = excluded.momentum_score,
            production_score = excluded.production_score,
            composite = excluded.composite,
            confidence = excluded.confidence,
            tier = excluded.tier,
            young_talent = excluded.young_talent,
            consistent_player = excluded.consistent_player,
            computed_at = excluded.computed_at`,
		p.ProfileID, boolToInt(p.Eligible), nullableStringPtr(p.IneligibleReason),
		nullableFloat(p.AgeScore), nullableFloat(p.PerformanceScore), nullableFloat(p.ConsistencyScore),
		nullableFloat(p.AdvancedScore), nullableFloat(p.MomentumScore), nullableFloat(p.ProductionScore),
		nullableFloat(p.Composite), nullableFloat(p.Confidence), nullableStringPtr(p.Tier),
		boolToInt(p.YoungTalent), boolToInt(p.ConsistentPlayer),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save profile potential %d: %w", p.ProfileID, err)
	}
	return nil
}

// GetProfilePotential fetches the potential row for one profile.
func (s *Store) GetProfilePotential(ctx context.Context, profileID int64) (*ProfilePotential, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT profile_id, eligible, ineligible_reason,
               age_score, performance_score, consistency_score, advanced_score,
               momentum_score, production_score, composite, confidence, tier,
               young_talent, consistent_player, computed_at
        FROM profile_potential WHERE profile_id = ?`, profileID)

	p, err := scanProfilePotential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get_profile_potential",
			fmt.Sprintf("profile %d", profileID), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile potential: %w", err)
	}
	return p, nil
}

// ListProfilePotential returns all profile potential rows, highest composite
// first with ineligible rows last.
func (s *Store) ListProfilePotential(ctx context.Context, limit int) ([]*ProfilePotential, error) {
	query := `
        SELECT profile_id, eligible, ineligible_reason,
               age_score, performance_score, consistency_score, advanced_score,
               momentum_score, production_score, composite, confidence, tier,
               young_talent, consistent_player, computed_at
        FROM profile_potential
        ORDER BY eligible DESC, composite DESC NULLS LAST, profile_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list profile potential: %w", err)
	}
	defer rows.Close()

	var out []*ProfilePotential
	for rows.Next() {
		p, err := scanProfilePotential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile potential: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile potential: %w", err)
	}
	return out, nil
}

func scanProfilePotential(row interface{ Scan(...any) error }) (*ProfilePotential, error) {
	var p ProfilePotential
	var eligible, young, consistent int
	var reason, tier sql.NullString
	var age, perf, cons, adv, mom, prod, composite, confidence sql.NullFloat64
	var computedAt string

	if err := row.Scan(&p.ProfileID, &eligible, &reason,
		&age, &perf, &cons, &adv, &mom, &prod, &composite, &confidence, &tier,
		&young, &consistent, &computedAt); err != nil {
		return nil, err
	}
	p.Eligible = eligible != 0
	if reason.Valid {
		p.IneligibleReason = &reason.String
	}
	p.AgeScore = floatPtr(age)
	p.PerformanceScore = floatPtr(perf)
	p.ConsistencyScore = floatPtr(cons)
	p.AdvancedScore = floatPtr(adv)
	p.MomentumScore = floatPtr(mom)
	p.ProductionScore = floatPtr(prod)
	p.Composite = floatPtr(composite)
	p.Confidence = floatPtr(confidence)
	if tier.Valid {
		p.Tier = &tier.String
	}
	p.YoungTalent = young != 0
	p.ConsistentPlayer = consistent != 0
	p.ComputedAt, _ = time.Parse(time.RFC3339Nano, computedAt)
	return &p, nil
}

// SaveCareerPotential replaces the career score for one identity.
func (s *Store) SaveCareerPotential(ctx context.Context, c *CareerPotential) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO career_potential (
            identity_id, seasons_counted, total_games,
            recent_score, trajectory_score, career_avg_score, age_score,
            consistency, confidence, level_jump_bonus, unified, tier,
            rising_star, established_talent, peak_performer, consistent_performer,
            computed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (identity_id) DO UPDATE SET
            seasons_counted = excluded.seasons_counted,
            total_games = excluded.total_games,
            recent_score = excluded.recent_score,
            trajectory_score = excluded.trajectory_score,
            career_avg_score = excluded.career_avg_score,
            age_score = excluded.age_score,
            consistency = excluded.consistency,
            confidence = excluded.confidence,
            level_jump_bonus = excluded.level_jump_bonus,
            unified = excluded.unified,
            tier = excluded.tier,
            rising_star = excluded.rising_star,
            established_talent = excluded.established_talent,
            peak_performer = excluded.peak_performer,
            consistent_performer = excluded.consistent_performer,
            computed_at = excluded.computed_at`,
		c.IdentityID, c.SeasonsCounted, c.TotalGames,
		nullableFloat(c.RecentScore), nullableFloat(c.TrajectoryScore), nullableFloat(c.CareerAvgScore),
		nullableFloat(c.AgeScore), nullableFloat(c.Consistency), nullableFloat(c.Confidence),
		nullableFloat(c.LevelJumpBonus), nullableFloat(c.Unified), nullableStringPtr(c.Tier),
		boolToInt(c.RisingStar), boolToInt(c.EstablishedTalent), boolToInt(c.PeakPerformer),
		boolToInt(c.ConsistentPerformer), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save career potential %d: %w", c.IdentityID, err)
	}
	return nil
}

const careerPotentialColumns = `identity_id, seasons_counted, total_games,
    recent_score, trajectory_score, career_avg_score, age_score,
    consistency, confidence, level_jump_bonus, unified, tier,
    rising_star, established_talent, peak_performer, consistent_performer,
    computed_at`

// GetCareerPotential fetches the career score for one identity.
func (s *Store) GetCareerPotential(ctx context.Context, identityID int64) (*CareerPotential, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+careerPotentialColumns+` FROM career_potential WHERE identity_id = ?`, identityID)

	c, err := scanCareerPotential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get_career_potential",
			fmt.Sprintf("identity %d", identityID), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get career potential: %w", err)
	}
	return c, nil
}

// ListCareerPotential returns career scores, highest unified score first.
func (s *Store) ListCareerPotential(ctx context.Context, limit int) ([]*CareerPotential, error) {
	query := `SELECT ` + careerPotentialColumns + ` FROM career_potential
        ORDER BY unified DESC NULLS LAST, identity_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list career potential: %w", err)
	}
	defer rows.Close()

	var out []*CareerPotential
	for rows.Next() {
		c, err := scanCareerPotential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan career potential: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate career potential: %w", err)
	}
	return out, nil
}

func scanCareerPotential(row interface{ Scan(...any) error }) (*CareerPotential, error) {
	var c CareerPotential
	var recent, traj, avg, age, cons, conf, bonus, unified sql.NullFloat64
	var tier sql.NullString
	var rising, established, peak, consistent int
	var computedAt string

	if err := row.Scan(&c.IdentityID, &c.SeasonsCounted, &c.TotalGames,
		&recent, &traj, &avg, &age, &cons, &conf, &bonus, &unified, &tier,
		&rising, &established, &peak, &consistent, &computedAt); err != nil {
		return nil, err
	}

	c.RecentScore = floatPtr(recent)
	c.TrajectoryScore = floatPtr(traj)
	c.CareerAvgScore = floatPtr(avg)
	c.AgeScore = floatPtr(age)
	c.Consistency = floatPtr(cons)
	c.Confidence = floatPtr(conf)
	c.LevelJumpBonus = floatPtr(bonus)
	c.Unified = floatPtr(unified)
	if tier.Valid {
		c.Tier = &tier.String
	}
	c.RisingStar = rising != 0
	c.EstablishedTalent = established != 0
	c.PeakPerformer = peak != 0
	c.ConsistentPerformer = consistent != 0
	c.ComputedAt, _ = time.Parse(time.RFC3339Nano, computedAt)
	return &c, nil
}
