package boxscore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"boxscout/internal/services"
)

type sourceFormat int

const (
	formatModern sourceFormat = iota
	formatLegacy
)

// detectFormat inspects a raw player row once. The legacy export always
// carries a "playername" key; the current feed never does.
func detectFormat(player map[string]any) sourceFormat {
	if _, ok := player["playername"]; ok {
		return formatLegacy
	}
	return formatModern
}

// ParseGame converts a raw game document into canonical observations. Rows
// that cannot be parsed are reported in skipped and do not abort the rest of
// the game; a document without a game id aborts entirely.
func ParseGame(doc *GameDocument) (observations []Observation, skipped []error, err error) {
	if doc == nil || strings.TrimSpace(doc.GameID) == "" {
		return nil, nil, services.Wrap(services.ErrSchemaMismatch, "ingest", "parse_game", "game document has no game id", nil)
	}

	gameYear := ParseGameYear(doc.Date)

	homeWon := doc.Home.Score > doc.Away.Score
	sides := []struct {
		team     *TeamDocument
		opponent *TeamDocument
		isHome   bool
		won      bool
	}{
		{&doc.Home, &doc.Away, true, homeWon},
		{&doc.Away, &doc.Home, false, !homeWon},
	}

	for _, side := range sides {
		for i, raw := range side.team.Players {
			obs, parseErr := parsePlayer(doc, side.team, side.opponent, side.isHome, side.won, gameYear, raw)
			if parseErr != nil {
				skipped = append(skipped, services.Wrap(
					services.ErrSchemaMismatch, "ingest", "parse_player",
					fmt.Sprintf("game %s team %s row %d", doc.GameID, side.team.TeamID, i), parseErr))
				continue
			}
			observations = append(observations, obs)
		}
	}

	fillTeamTotals(observations)
	return observations, skipped, nil
}

func parsePlayer(doc *GameDocument, team, opponent *TeamDocument, isHome, won bool, gameYear *int, raw map[string]any) (Observation, error) {
	format := detectFormat(raw)

	var name, dorsal string
	var starter bool
	if format == formatLegacy {
		name = strings.TrimSpace(asString(raw["playername"]))
		dorsal = asString(raw["shirtnumber"])
		starter = asBool(raw["is_starter"])
	} else {
		name = strings.TrimSpace(asString(raw["name"]))
		dorsal = asString(raw["no"])
		starter = asString(raw["inn"]) == "1"
	}
	if name == "" {
		return Observation{}, fmt.Errorf("player row has no name")
	}

	obs := Observation{
		GameID:        doc.GameID,
		PlayerRawID:   playerRawID(raw, team.TeamID, name),
		PlayerName:    name,
		Dorsal:        dorsal,
		TeamID:        team.TeamID,
		OpponentID:    opponent.TeamID,
		CompetitionID: doc.Competition,
		Season:        doc.Season,
		GameDate:      doc.Date,
		GameYear:      gameYear,
		IsHome:        isHome,
		IsStarter:     starter,
		TeamWon:       won,
		MinutesPlayed: ParseMinutes(raw),
	}

	if format == formatLegacy {
		obs.ThreePointsMade = asInt(raw["three_points_made"])
		obs.ThreePointsAttempted = asInt(raw["three_points_attempted"])
		obs.TwoPointsMade = asInt(raw["two_points_made"])
		obs.TwoPointsAttempted = asInt(raw["two_points_attempted"])
		obs.FieldGoalsMade = asInt(raw["field_goals_made"])
		obs.FieldGoalsAttempted = asInt(raw["field_goals_attempted"])
		obs.FreeThrowsMade = asInt(raw["free_throws_made"])
		obs.FreeThrowsAttempted = asInt(raw["free_throws_attempted"])
		obs.Points = asInt(raw["points"])
		obs.OffensiveRebounds = asInt(raw["offensive_rebounds"])
		obs.DefensiveRebounds = asInt(raw["defensive_rebounds"])
		obs.TotalRebounds = asInt(raw["total_rebounds"])
		obs.Assists = asInt(raw["assists"])
		obs.Turnovers = asInt(raw["turnovers"])
		obs.Steals = asInt(raw["steals"])
		obs.Blocks = asInt(raw["blocks"])
		obs.BlocksReceived = asInt(raw["blocks_received"])
		obs.PersonalFouls = asInt(raw["personal_fouls"])
		obs.FoulsReceived = asInt(raw["fouls_received"])
		obs.PlusMinus = asInt(raw["plus_minus"])
		obs.Efficiency = asFloat(raw["efficiency"])
	} else {
		obs.ThreePointsMade = asInt(raw["p3m"])
		obs.ThreePointsAttempted = asInt(raw["p3a"])
		obs.TwoPointsMade = asInt(raw["p2m"])
		obs.TwoPointsAttempted = asInt(raw["p2a"])
		obs.FieldGoalsMade = obs.TwoPointsMade + obs.ThreePointsMade
		obs.FieldGoalsAttempted = obs.TwoPointsAttempted + obs.ThreePointsAttempted
		obs.FreeThrowsMade = asInt(raw["p1m"])
		obs.FreeThrowsAttempted = asInt(raw["p1a"])
		obs.Points = asInt(raw["pts"])
		obs.OffensiveRebounds = asInt(raw["ro"])
		obs.DefensiveRebounds = asInt(raw["rd"])
		obs.TotalRebounds = asInt(raw["rt"])
		obs.Assists = asInt(raw["assist"])
		obs.Turnovers = asInt(raw["to"])
		obs.Steals = asInt(raw["st"])
		obs.Blocks = asInt(raw["bs"])
		obs.BlocksReceived = asInt(raw["mt"])
		obs.PersonalFouls = asInt(raw["pf"])
		obs.FoulsReceived = asInt(raw["rf"])
		obs.PlusMinus = asInt(raw["pllss"])
		obs.Efficiency = asFloat(raw["val"])
	}

	obs.BirthYear, obs.AgeAtGame = resolveBirthYear(raw, gameYear)
	return obs, nil
}

func playerRawID(raw map[string]any, teamID, name string) string {
	if id := asString(raw["playerid"]); id != "" {
		return id
	}
	if id := asString(raw["id"]); id != "" {
		return id
	}
	return teamID + ":" + strings.ToLower(name)
}

// fillTeamTotals aggregates per-team sums and writes them onto every
// observation, own side and opponent side.
func fillTeamTotals(observations []Observation) {
	totals := map[string]*TeamTotals{}
	for i := range observations {
		o := &observations[i]
		t := totals[o.TeamID]
		if t == nil {
			t = &TeamTotals{}
			totals[o.TeamID] = t
		}
		t.Points += o.Points
		t.FieldGoalsAttempted += o.FieldGoalsAttempted
		t.FreeThrowsAttempted += o.FreeThrowsAttempted
		t.Turnovers += o.Turnovers
		t.Minutes += o.MinutesPlayed
		t.OffensiveRebounds += o.OffensiveRebounds
		t.DefensiveRebounds += o.DefensiveRebounds
		t.TotalRebounds += o.TotalRebounds
	}
	for i := range observations {
		o := &observations[i]
		if t := totals[o.TeamID]; t != nil {
			o.Team = *t
		}
		if t := totals[o.OpponentID]; t != nil {
			o.Opponent = *t
		}
	}
}

// ParseMinutes reads playing time from a raw row. Accepted forms are a
// numeric value in seconds, an "MM:SS" string, and a bare digit string in
// seconds. Anything else is zero minutes.
func ParseMinutes(raw map[string]any) float64 {
	value, ok := raw["minFormatted"]
	if !ok {
		value = raw["min"]
	}

	switch v := value.(type) {
	case float64:
		return v / 60.0
	case int:
		return float64(v) / 60.0
	case int64:
		return float64(v) / 60.0
	case string:
		if strings.Contains(v, ":") {
			parts := strings.SplitN(v, ":", 2)
			minutes, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
			seconds, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err1 != nil || err2 != nil {
				return 0
			}
			return float64(minutes) + float64(seconds)/60.0
		}
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return float64(n) / 60.0
		}
	}
	return 0
}

// ParseGameYear extracts the year from a game date string. ISO timestamps,
// "YYYY-MM-DD" and the feed's "DD-MM-YYYY - HH:MM" form are all accepted.
func ParseGameYear(date string) *int {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, date); err == nil {
			y := t.Year()
			return &y
		}
	}

	datePart := date
	if idx := strings.Index(date, " - "); idx >= 0 {
		datePart = strings.TrimSpace(date[:idx])
	}
	parts := strings.Split(datePart, "-")
	if len(parts) == 3 {
		yearPart := parts[2]
		if len(parts[0]) == 4 {
			yearPart = parts[0]
		}
		if y, err := strconv.Atoi(yearPart); err == nil {
			return &y
		}
	}
	return nil
}

// resolveBirthYear validates the claimed birth year against the game year.
// Ages outside 12 to 50 are treated as data errors; a DD/MM/YYYY birth_date
// field is tried as a fallback before giving up.
func resolveBirthYear(raw map[string]any, gameYear *int) (birthYear, ageAtGame *int) {
	claimed := asInt(raw["birth_year"])
	if claimed == 0 {
		return nil, nil
	}

	if gameYear == nil {
		if claimed >= 1950 && claimed <= 2020 {
			return &claimed, nil
		}
		return nil, nil
	}

	if age := *gameYear - claimed; age >= 12 && age <= 50 {
		return &claimed, &age
	}

	if birthDate := asString(raw["birth_date"]); strings.Count(birthDate, "/") == 2 {
		parts := strings.Split(birthDate, "/")
		if y, err := strconv.Atoi(parts[2]); err == nil {
			if age := *gameYear - y; age >= 12 && age <= 50 {
				return &y, &age
			}
		}
	}
	return nil, nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	default:
		return ""
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return 0
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return 0
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "1" || strings.EqualFold(b, "true")
	case float64:
		return b != 0
	}
	return false
}
