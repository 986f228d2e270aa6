// Package league resolves competitions to a numeric level and strength
// weight. Level 1 is the strongest tier. A competition can change level
// between seasons (relegation, league reform), so lookups are keyed by
// (competition, season) with season-scoped overrides.
package league

import (
	"strconv"
	"strings"

	"boxscout/internal/config"
)

// Context is a resolved (competition, season) pair.
type Context struct {
	Competition string
	Season      string
	Level       int
	Weight      float64
}

// Resolver answers level lookups from configuration.
type Resolver struct {
	defaultLevel int
	assign       map[string]int
	overrides    []config.LevelOverride
}

// NewResolver builds a resolver from the levels configuration.
func NewResolver(cfg config.Levels) *Resolver {
	assign := make(map[string]int, len(cfg.Assign))
	for name, level := range cfg.Assign {
		assign[strings.ToUpper(strings.TrimSpace(name))] = level
	}
	return &Resolver{
		defaultLevel: cfg.DefaultLevel,
		assign:       assign,
		overrides:    cfg.Overrides,
	}
}

// Resolve returns the level context for a competition in a season. Unmapped
// competitions fall back to the configured default level, never an error;
// every observed pair must resolve.
func (r *Resolver) Resolve(competition, season string) Context {
	name := strings.ToUpper(strings.TrimSpace(competition))
	level, ok := r.assign[name]
	if !ok {
		level = r.defaultLevel
	}

	for _, ov := range r.overrides {
		if !strings.EqualFold(strings.TrimSpace(ov.Competition), name) {
			continue
		}
		if seasonAtOrAfter(season, ov.FromSeason) {
			level = ov.Level
		}
	}

	return Context{
		Competition: name,
		Season:      season,
		Level:       level,
		Weight:      Weight(level),
	}
}

// Weight maps a level to a score multiplier. The strongest tier counts
// fully; weaker tiers are discounted down to 0.80.
func Weight(level int) float64 {
	switch level {
	case 1:
		return 1.00
	case 2:
		return 0.90
	case 3:
		return 0.85
	default:
		return 0.80
	}
}

func seasonAtOrAfter(season, from string) bool {
	sy, err1 := SeasonStartYear(season)
	fy, err2 := SeasonStartYear(from)
	if err1 != nil || err2 != nil {
		return false
	}
	return sy >= fy
}

// SeasonStartYear parses the opening year of a season label. "2023/2024",
// "2023/24", "2023-24" and a bare "2023" are all accepted.
func SeasonStartYear(season string) (int, error) {
	season = strings.TrimSpace(season)
	head := season
	for _, sep := range []string{"/", "-"} {
		if idx := strings.Index(head, sep); idx >= 0 {
			head = head[:idx]
			break
		}
	}
	year, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0, err
	}
	return year, nil
}

// SeasonEndYear parses the closing year of a season label. Two-digit tails
// are expanded against the start year; a bare year closes on itself.
func SeasonEndYear(season string) (int, error) {
	start, err := SeasonStartYear(season)
	if err != nil {
		return 0, err
	}

	season = strings.TrimSpace(season)
	tail := ""
	for _, sep := range []string{"/", "-"} {
		if idx := strings.Index(season, sep); idx >= 0 {
			tail = strings.TrimSpace(season[idx+1:])
			break
		}
	}
	if tail == "" {
		return start, nil
	}

	year, err := strconv.Atoi(tail)
	if err != nil {
		return 0, err
	}
	if year < 100 {
		year += (start / 100) * 100
		if year < start {
			year += 100
		}
	}
	return year, nil
}
