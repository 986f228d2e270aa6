package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"boxscout/internal/boxscore"
	"boxscout/internal/names"
	"boxscout/internal/stats"
)

// SaveGame upserts one game header and its observations. Re-ingesting the
// same game replaces the stat lines; observations are keyed by
// (game_id, player_raw_id).
func (s *Store) SaveGame(ctx context.Context, doc *boxscore.GameDocument, observations []boxscore.Observation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save game tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = tx.ExecContext(ctx, `
        INSERT INTO games (game_id, game_date, competition, season, home_team, away_team, home_score, away_score, ingested_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (game_id) DO UPDATE SET
            game_date = excluded.game_date,
            competition = excluded.competition,
            season = excluded.season,
            home_team = excluded.home_team,
            away_team = excluded.away_team,
            home_score = excluded.home_score,
            away_score = excluded.away_score,
            ingested_at = excluded.ingested_at`,
		doc.GameID, doc.Date, doc.Competition, doc.Season,
		doc.Home.TeamID, doc.Away.TeamID, doc.Home.Score, doc.Away.Score, now)
	if err != nil {
		return fmt.Errorf("upsert game %s: %w", doc.GameID, err)
	}

	for i := range observations {
		o := &observations[i]
		adv := stats.Compute(o)
		if err := insertObservation(ctx, tx, o, adv); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save game: %w", err)
	}
	return nil
}

func insertObservation(ctx context.Context, tx *sql.Tx, o *boxscore.Observation, adv stats.Advanced) error {
	_, err := tx.ExecContext(ctx, `
        INSERT INTO observations (
            game_id, player_raw_id, player_name, name_normalized, dorsal, birth_year, age_at_game,
            team_id, opponent_id, competition, season, game_date, game_year,
            is_home, is_starter, team_won, minutes_played,
            points, field_goals_made, field_goals_attempted,
            two_points_made, two_points_attempted,
            three_points_made, three_points_attempted,
            free_throws_made, free_throws_attempted,
            offensive_rebounds, defensive_rebounds, total_rebounds,
            assists, turnovers, steals, blocks, blocks_received,
            personal_fouls, fouls_received, plus_minus, efficiency,
            team_points, team_fga, team_fta, team_turnovers, team_minutes,
            team_orb, team_drb, opp_orb, opp_drb,
            true_shooting_pct, effective_fg_pct, turnover_pct, free_throw_rate,
            assist_to_turnover, offensive_rating, player_efficiency, usage_rate,
            offensive_rebound_pct, defensive_rebound_pct, win_shares, win_shares_per_36
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (game_id, player_raw_id) DO UPDATE SET
            player_name = excluded.player_name,
            name_normalized = excluded.name_normalized,
            dorsal = excluded.dorsal,
            birth_year = excluded.birth_year,
            age_at_game = excluded.age_at_game,
            team_id = excluded.team_id,
            opponent_id = excluded.opponent_id,
            competition = excluded.competition,
            season = excluded.season,
            game_date = excluded.game_date,
            game_year = excluded.game_year,
            is_home = excluded.is_home,
            is_starter = excluded.is_starter,
            team_won = excluded.team_won,
            minutes_played = excluded.minutes_played,
            points = excluded.points,
            field_goals_made = excluded.field_goals_made,
            field_goals_attempted = excluded.field_goals_attempted,
            two_points_made = excluded.two_points_made,
            two_points_attempted = excluded.two_points_attempted,
            three_points_made = excluded.three_points_made,
            three_points_attempted = excluded.three_points_attempted,
            free_throws_made = excluded.free_throws_made,
            free_throws_attempted = excluded.free_throws_attempted,
            offensive_rebounds = excluded.offensive_rebounds,
            defensive_rebounds = excluded.defensive_rebounds,
            total_rebounds = excluded.total_rebounds,
            assists = excluded.assists,
            turnovers = excluded.turnovers,
            steals = excluded.steals,
            blocks = excluded.blocks,
            blocks_received = excluded.blocks_received,
            personal_fouls = excluded.personal_fouls,
            fouls_received = excluded.fouls_received,
            plus_minus = excluded.plus_minus,
            efficiency = excluded.efficiency,
            team_points = excluded.team_points,
            team_fga = excluded.team_fga,
            team_fta = excluded.team_fta,
            team_turnovers = excluded.team_turnovers,
            team_minutes = excluded.team_minutes,
            team_orb = excluded.team_orb,
            team_drb = excluded.team_drb,
            opp_orb = excluded.opp_orb,
            opp_drb = excluded.opp_drb,
            true_shooting_pct = excluded.true_shooting_pct,
            effective_fg_pct = excluded.effective_fg_pct,
            turnover_pct = excluded.turnover_pct,
            free_throw_rate = excluded.free_throw_rate,
            assist_to_turnover = excluded.assist_to_turnover,
            offensive_rating = excluded.offensive_rating,
            player_efficiency = excluded.player_efficiency,
            usage_rate = excluded.usage_rate,
            offensive_rebound_pct = excluded.offensive_rebound_pct,
            defensive_rebound_pct = excluded.defensive_rebound_pct,
            win_shares = excluded.win_shares,
            win_shares_per_36 = excluded.win_shares_per_36`,
		o.GameID, o.PlayerRawID, o.PlayerName, names.Normalize(o.PlayerName), o.Dorsal, nullableInt(o.BirthYear), nullableInt(o.AgeAtGame),
		o.TeamID, o.OpponentID, o.CompetitionID, o.Season, o.GameDate, nullableInt(o.GameYear),
		boolToInt(o.IsHome), boolToInt(o.IsStarter), boolToInt(o.TeamWon), o.MinutesPlayed,
		o.Points, o.FieldGoalsMade, o.FieldGoalsAttempted,
		o.TwoPointsMade, o.TwoPointsAttempted,
		o.ThreePointsMade, o.ThreePointsAttempted,
		o.FreeThrowsMade, o.FreeThrowsAttempted,
		o.OffensiveRebounds, o.DefensiveRebounds, o.TotalRebounds,
		o.Assists, o.Turnovers, o.Steals, o.Blocks, o.BlocksReceived,
		o.PersonalFouls, o.FoulsReceived, o.PlusMinus, o.Efficiency,
		o.Team.Points, o.Team.FieldGoalsAttempted, o.Team.FreeThrowsAttempted, o.Team.Turnovers, o.Team.Minutes,
		o.Team.OffensiveRebounds, o.Team.DefensiveRebounds, o.Opponent.OffensiveRebounds, o.Opponent.DefensiveRebounds,
		nullableFloat(adv.TrueShootingPct), nullableFloat(adv.EffectiveFGPct), nullableFloat(adv.TurnoverPct), nullableFloat(adv.FreeThrowRate),
		nullableFloat(adv.AssistToTurnover), nullableFloat(adv.OffensiveRating), nullableFloat(adv.PlayerEfficiency), nullableFloat(adv.UsageRate),
		nullableFloat(adv.OffensiveReboundPct), nullableFloat(adv.DefensiveReboundPct), nullableFloat(adv.WinShares), nullableFloat(adv.WinSharesPer36))
	if err != nil {
		return fmt.Errorf("insert observation %s/%s: %w", o.GameID, o.PlayerRawID, err)
	}
	return nil
}

// GameLine is one stored stat line used by metric computation.
type GameLine struct {
	GameID   string
	GameDate string
	GameYear *int

	MinutesPlayed float64
	Points        int
	TotalRebounds int
	Assists       int
	Steals        int
	Blocks        int

	TrueShootingPct  *float64
	OffensiveRating  *float64
	PlayerEfficiency *float64
	UsageRate        *float64

	TeamPoints  int
	TeamMinutes float64
}

// GameLinesForProfile returns stat lines by profile id, most recent game
// first. Observations are matched to profiles on the normalized name within
// the same (team, season, competition).
func (s *Store) GameLinesForProfile(ctx context.Context, profileID int64) ([]GameLine, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT o.game_id, o.game_date, o.game_year,
               o.minutes_played, o.points, o.total_rebounds, o.assists, o.steals, o.blocks,
               o.true_shooting_pct, o.offensive_rating, o.player_efficiency, o.usage_rate,
               o.team_points, o.team_minutes
        FROM observations o
        JOIN profiles p
          ON p.name_normalized = o.name_normalized
         AND p.team_id = o.team_id
         AND p.season = o.season
         AND p.competition = o.competition
        WHERE p.profile_id = ?
        ORDER BY o.game_date DESC, o.game_id DESC`,
		profileID)
	if err != nil {
		return nil, fmt.Errorf("query profile game lines: %w", err)
	}
	defer rows.Close()
	return scanGameLines(rows)
}

func scanGameLines(rows *sql.Rows) ([]GameLine, error) {
	var lines []GameLine
	for rows.Next() {
		var l GameLine
		var gameYear sql.NullInt64
		var ts, oer, per, usg sql.NullFloat64
		if err := rows.Scan(
			&l.GameID, &l.GameDate, &gameYear,
			&l.MinutesPlayed, &l.Points, &l.TotalRebounds, &l.Assists, &l.Steals, &l.Blocks,
			&ts, &oer, &per, &usg,
			&l.TeamPoints, &l.TeamMinutes,
		); err != nil {
			return nil, fmt.Errorf("scan game line: %w", err)
		}
		if gameYear.Valid {
			y := int(gameYear.Int64)
			l.GameYear = &y
		}
		l.TrueShootingPct = floatPtr(ts)
		l.OffensiveRating = floatPtr(oer)
		l.PlayerEfficiency = floatPtr(per)
		l.UsageRate = floatPtr(usg)
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate game lines: %w", err)
	}
	return lines, nil
}

// ContextSample holds one metric column value for context statistics.
type ContextSample struct {
	Value float64
}

// MetricValuesForContext returns the non-null values of one metric column
// across all observations in a (competition set, season) context, limited to
// rows at or above the minutes floor. The metric name is mapped to a column
// internally; unknown metrics are an error.
func (s *Store) MetricValuesForContext(ctx context.Context, competitions []string, season string, metric string, minMinutes float64) ([]float64, error) {
	column, ok := metricColumns[metric]
	if !ok {
		return nil, fmt.Errorf("unknown context metric %q", metric)
	}
	if len(competitions) == 0 {
		return nil, nil
	}

	placeholders := make([]byte, 0, len(competitions)*2)
	args := make([]any, 0, len(competitions)+2)
	for i, comp := range competitions {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, comp)
	}
	args = append(args, season, minMinutes)

	query := `SELECT ` + column + ` FROM observations
        WHERE competition IN (` + string(placeholders) + `)
          AND season = ? AND ` + column + ` IS NOT NULL AND minutes_played >= ?`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query context metric %s: %w", metric, err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan context metric: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate context metric: %w", err)
	}
	return values, nil
}

var metricColumns = map[string]string{
	"points":            "CAST(points AS REAL)",
	"offensive_rating":  "offensive_rating",
	"player_efficiency": "player_efficiency",
	"true_shooting_pct": "true_shooting_pct",
	"usage_rate":        "usage_rate",
}

// TeamSeasonTotals holds a team's aggregated output over one season, used
// to compute a player's share of team production.
type TeamSeasonTotals struct {
	Points             int
	Minutes            float64
	AvgTrueShootingPct *float64
}

// TeamSeasonTotalsFor aggregates a team's observations over one season.
func (s *Store) TeamSeasonTotalsFor(ctx context.Context, teamID, season, competition string) (*TeamSeasonTotals, error) {
	var (
		points  sql.NullInt64
		minutes sql.NullFloat64
		avgTS   sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT SUM(points), SUM(minutes_played), AVG(true_shooting_pct)
        FROM observations
        WHERE team_id = ? AND season = ? AND competition = ?`,
		teamID, season, competition).Scan(&points, &minutes, &avgTS)
	if err != nil {
		return nil, fmt.Errorf("query team season totals: %w", err)
	}
	return &TeamSeasonTotals{
		Points:             int(points.Int64),
		Minutes:            minutes.Float64,
		AvgTrueShootingPct: floatPtr(avgTS),
	}, nil
}

// TeamWinPercentages returns each team's win percentage over one
// (competition, season) from final scores. Drawn games count as half a win.
func (s *Store) TeamWinPercentages(ctx context.Context, competition, season string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT home_team, away_team, home_score, away_score
        FROM games
        WHERE competition = ? AND season = ?`,
		competition, season)
	if err != nil {
		return nil, fmt.Errorf("query team results: %w", err)
	}
	defer rows.Close()

	type record struct {
		wins  float64
		games int
	}
	records := make(map[string]*record)
	tally := func(team string, win float64) {
		r := records[team]
		if r == nil {
			r = &record{}
			records[team] = r
		}
		r.wins += win
		r.games++
	}

	for rows.Next() {
		var home, away string
		var homeScore, awayScore int
		if err := rows.Scan(&home, &away, &homeScore, &awayScore); err != nil {
			return nil, fmt.Errorf("scan team result: %w", err)
		}
		switch {
		case homeScore > awayScore:
			tally(home, 1)
			tally(away, 0)
		case awayScore > homeScore:
			tally(home, 0)
			tally(away, 1)
		default:
			tally(home, 0.5)
			tally(away, 0.5)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate team results: %w", err)
	}

	pcts := make(map[string]float64, len(records))
	for team, r := range records {
		pcts[team] = r.wins / float64(r.games)
	}
	return pcts, nil
}

// CountGames returns the number of stored games.
func (s *Store) CountGames(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM games`).Scan(&n)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return n, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
