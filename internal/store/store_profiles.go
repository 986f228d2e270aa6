package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"boxscout/internal/services"
)

// RebuildProfiles aggregates observations into per (name, team, season,
// competition) profiles. Existing profiles keep their identity assignment;
// aggregates are refreshed wholesale. levelFor resolves the competition
// level for a (competition, season) pair.
func (s *Store) RebuildProfiles(ctx context.Context, levelFor func(competition, season string) int) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT name_normalized,
               MIN(player_name),
               team_id, season, competition,
               MAX(COALESCE(birth_year, 0)),
               COUNT(1),
               SUM(minutes_played),
               SUM(points)
        FROM observations
        WHERE name_normalized != ''
        GROUP BY name_normalized, team_id, season, competition`)
	if err != nil {
		return 0, fmt.Errorf("aggregate observations: %w", err)
	}
	defer rows.Close()

	type aggregate struct {
		nameNormalized, nameRaw     string
		teamID, season, competition string
		birthYear                   int
		games                       int
		totalMinutes                float64
		totalPoints                 int
	}
	var aggs []aggregate
	for rows.Next() {
		var a aggregate
		if err := rows.Scan(&a.nameNormalized, &a.nameRaw, &a.teamID, &a.season, &a.competition,
			&a.birthYear, &a.games, &a.totalMinutes, &a.totalPoints); err != nil {
			return 0, fmt.Errorf("scan profile aggregate: %w", err)
		}
		aggs = append(aggs, a)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate profile aggregates: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	count := 0
	for _, a := range aggs {
		var birthYear any
		if a.birthYear > 0 {
			birthYear = a.birthYear
		}
		avgMinutes := 0.0
		avgPoints := 0.0
		if a.games > 0 {
			avgMinutes = a.totalMinutes / float64(a.games)
			avgPoints = float64(a.totalPoints) / float64(a.games)
		}
		level := levelFor(a.competition, a.season)

		_, err := s.db.ExecContext(ctx, `
            INSERT INTO profiles (
                name_raw, name_normalized, birth_year, team_id, season, competition, level,
                games_played, total_minutes, total_points, avg_minutes, avg_points,
                created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT (name_normalized, team_id, season, competition) DO UPDATE SET
                name_raw = excluded.name_raw,
                birth_year = COALESCE(excluded.birth_year, profiles.birth_year),
                level = excluded.level,
                games_played = excluded.games_played,
                total_minutes = excluded.total_minutes,
                total_points = excluded.total_points,
                avg_minutes = excluded.avg_minutes,
                avg_points = excluded.avg_points,
                updated_at = excluded.updated_at`,
			a.nameRaw, a.nameNormalized, birthYear, a.teamID, a.season, a.competition, level,
			a.games, a.totalMinutes, a.totalPoints, avgMinutes, avgPoints,
			now, now)
		if err != nil {
			return count, fmt.Errorf("upsert profile %s/%s/%s: %w", a.nameNormalized, a.teamID, a.season, err)
		}
		count++
	}
	return count, nil
}

const profileColumns = `profile_id, name_raw, name_normalized, birth_year, team_id, season, competition, level,
    identity_id, identity_locked, games_played, total_minutes, total_points, avg_minutes, avg_points,
    created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (*Profile, error) {
	var p Profile
	var birthYear sql.NullInt64
	var identityID sql.NullInt64
	var locked int
	var createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.NameRaw, &p.NameNormalized, &birthYear, &p.TeamID, &p.Season, &p.Competition, &p.Level,
		&identityID, &locked, &p.GamesPlayed, &p.TotalMinutes, &p.TotalPoints, &p.AvgMinutes, &p.AvgPoints,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if birthYear.Valid {
		y := int(birthYear.Int64)
		p.BirthYear = &y
	}
	if identityID.Valid {
		id := identityID.Int64
		p.IdentityID = &id
	}
	p.IdentityLocked = locked != 0
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &p, nil
}

// GetProfile fetches one profile by id.
func (s *Store) GetProfile(ctx context.Context, id int64) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE profile_id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get_profile", fmt.Sprintf("profile %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// ListProfiles returns all profiles ordered by id.
func (s *Store) ListProfiles(ctx context.Context) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY profile_id`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

// ProfilesByIdentity returns all profiles attached to an identity, ordered
// by season.
func (s *Store) ProfilesByIdentity(ctx context.Context, identityID int64) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE identity_id = ? ORDER BY season, profile_id`, identityID)
	if err != nil {
		return nil, fmt.Errorf("profiles by identity: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identity profiles: %w", err)
	}
	return profiles, nil
}

// AssignIdentity attaches a profile to an identity. A human assignment sets
// the lock; the automatic path must never overwrite a locked assignment and
// gets a conflict error if it tries.
func (s *Store) AssignIdentity(ctx context.Context, profileID, identityID int64, origin string) error {
	if origin == IdentityOriginAuto {
		res, err := s.db.ExecContext(ctx,
			`UPDATE profiles SET identity_id = ?, updated_at = ? WHERE profile_id = ? AND identity_locked = 0`,
			identityID, time.Now().UTC().Format(time.RFC3339Nano), profileID)
		if err != nil {
			return fmt.Errorf("assign identity: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("assign identity rows: %w", err)
		}
		if affected == 0 {
			return services.Wrap(services.ErrConflict, "identity", "assign",
				fmt.Sprintf("profile %d is locked by a human decision", profileID), nil)
		}
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET identity_id = ?, identity_locked = 1, updated_at = ? WHERE profile_id = ?`,
		identityID, time.Now().UTC().Format(time.RFC3339Nano), profileID)
	if err != nil {
		return fmt.Errorf("assign identity: %w", err)
	}
	return nil
}

// ClearIdentity detaches a profile from its identity (human action only).
func (s *Store) ClearIdentity(ctx context.Context, profileID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET identity_id = NULL, identity_locked = 0, updated_at = ? WHERE profile_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), profileID)
	if err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	return nil
}

// CreateIdentity inserts a consolidated identity and returns its id.
func (s *Store) CreateIdentity(ctx context.Context, canonicalName string, birthYear *int, origin string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO identities (canonical_name, birth_year, origin, created_at) VALUES (?, ?, ?, ?)`,
		canonicalName, nullableInt(birthYear), origin, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("create identity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("identity insert id: %w", err)
	}
	return id, nil
}

// GetIdentity fetches one identity by id.
func (s *Store) GetIdentity(ctx context.Context, id int64) (*Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT identity_id, canonical_name, birth_year, origin, created_at FROM identities WHERE identity_id = ?`, id)

	var ident Identity
	var birthYear sql.NullInt64
	var createdAt string
	err := row.Scan(&ident.ID, &ident.CanonicalName, &birthYear, &ident.Origin, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get_identity",
			fmt.Sprintf("identity %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	if birthYear.Valid {
		y := int(birthYear.Int64)
		ident.BirthYear = &y
	}
	ident.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &ident, nil
}

// ListIdentities returns all consolidated identities.
func (s *Store) ListIdentities(ctx context.Context) ([]*Identity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT identity_id, canonical_name, birth_year, origin, created_at FROM identities ORDER BY identity_id`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var identities []*Identity
	for rows.Next() {
		var ident Identity
		var birthYear sql.NullInt64
		var createdAt string
		if err := rows.Scan(&ident.ID, &ident.CanonicalName, &birthYear, &ident.Origin, &createdAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		if birthYear.Valid {
			y := int(birthYear.Int64)
			ident.BirthYear = &y
		}
		ident.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		identities = append(identities, &ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}
