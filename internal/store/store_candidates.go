package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"boxscout/internal/services"
)

const candidateColumns = `candidate_id, profile_id_1, profile_id_2,
    name_match, age_match, team_overlap, timeline_fit, candidate_score, confidence_level,
    validation_status, validator, notes, validated_at, created_at`

// UpsertCandidate stores a scored pair. The pair is normalized so the
// smaller profile id always comes first; re-scoring a pending pair updates
// its scores, while validated pairs are left untouched (audit trail).
func (s *Store) UpsertCandidate(ctx context.Context, c *Candidate) error {
	id1, id2 := c.ProfileID1, c.ProfileID2
	if id1 > id2 {
		id1, id2 = id2, id1
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO identity_candidates (
            profile_id_1, profile_id_2, name_match, age_match, team_overlap, timeline_fit,
            candidate_score, confidence_level, validation_status, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (profile_id_1, profile_id_2) DO UPDATE SET
            name_match = excluded.name_match,
            age_match = excluded.age_match,
            team_overlap = excluded.team_overlap,
            timeline_fit = excluded.timeline_fit,
            candidate_score = excluded.candidate_score,
            confidence_level = excluded.confidence_level
        WHERE identity_candidates.validation_status = 'pending'`,
		id1, id2, c.NameMatch, c.AgeMatch, c.TeamOverlap, c.TimelineFit,
		c.Score, c.Confidence, ValidationPending, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert candidate (%d,%d): %w", id1, id2, err)
	}
	return nil
}

func scanCandidate(row interface{ Scan(...any) error }) (*Candidate, error) {
	var c Candidate
	var validator, notes sql.NullString
	var validatedAt sql.NullString
	var createdAt string
	if err := row.Scan(&c.ID, &c.ProfileID1, &c.ProfileID2,
		&c.NameMatch, &c.AgeMatch, &c.TeamOverlap, &c.TimelineFit, &c.Score, &c.Confidence,
		&c.ValidationStatus, &validator, &notes, &validatedAt, &createdAt); err != nil {
		return nil, err
	}
	if validator.Valid {
		c.Validator = &validator.String
	}
	if notes.Valid {
		c.Notes = &notes.String
	}
	if validatedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, validatedAt.String); err == nil {
			c.ValidatedAt = &t
		}
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &c, nil
}

// GetCandidate fetches one candidate by id.
func (s *Store) GetCandidate(ctx context.Context, id int64) (*Candidate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM identity_candidates WHERE candidate_id = ?`, id)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get_candidate", fmt.Sprintf("candidate %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	return c, nil
}

// CandidateFilter narrows candidate listings.
type CandidateFilter struct {
	Status   string
	MinScore float64
	Limit    int
}

// ListCandidates returns candidates matching the filter, highest score
// first.
func (s *Store) ListCandidates(ctx context.Context, filter CandidateFilter) ([]*Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM identity_candidates WHERE candidate_score >= ?`
	args := []any{filter.MinScore}
	if filter.Status != "" {
		query += ` AND validation_status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY candidate_score DESC, candidate_id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return candidates, nil
}

// SetValidation records a human decision on a candidate. Candidates are
// never deleted; the status transition is the audit trail.
func (s *Store) SetValidation(ctx context.Context, candidateID int64, status, validator, notes string) error {
	switch status {
	case ValidationConfirmed, ValidationRejected, ValidationUnsure:
	default:
		return services.Wrap(services.ErrValidation, "identity", "validate",
			fmt.Sprintf("invalid validation status %q", status), nil)
	}

	res, err := s.db.ExecContext(ctx, `
        UPDATE identity_candidates
        SET validation_status = ?, validator = ?, notes = ?, validated_at = ?
        WHERE candidate_id = ?`,
		status, nullableString(validator), nullableString(notes),
		time.Now().UTC().Format(time.RFC3339Nano), candidateID)
	if err != nil {
		return fmt.Errorf("set validation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set validation rows: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "set_validation",
			fmt.Sprintf("candidate %d", candidateID), nil)
	}
	return nil
}

// CandidateStats summarizes the validation queue.
type CandidateStats struct {
	Total     int
	Pending   int
	Confirmed int
	Rejected  int
	Unsure    int
	ByTier    map[string]int
}

// CandidateSummary aggregates candidate counts by status and tier.
func (s *Store) CandidateSummary(ctx context.Context) (*CandidateStats, error) {
	stats := &CandidateStats{ByTier: map[string]int{}}

	rows, err := s.db.QueryContext(ctx,
		`SELECT validation_status, confidence_level, COUNT(1) FROM identity_candidates GROUP BY validation_status, confidence_level`)
	if err != nil {
		return nil, fmt.Errorf("candidate summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, tier string
		var count int
		if err := rows.Scan(&status, &tier, &count); err != nil {
			return nil, fmt.Errorf("scan candidate summary: %w", err)
		}
		stats.Total += count
		stats.ByTier[tier] += count
		switch status {
		case ValidationPending:
			stats.Pending += count
		case ValidationConfirmed:
			stats.Confirmed += count
		case ValidationRejected:
			stats.Rejected += count
		case ValidationUnsure:
			stats.Unsure += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate summary: %w", err)
	}
	return stats, nil
}
