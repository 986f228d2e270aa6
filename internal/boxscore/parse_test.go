package boxscore_test

import (
	"errors"
	"math"
	"testing"

	"boxscout/internal/boxscore"
	"boxscout/internal/services"
)

func modernRow(name string, pts int) map[string]any {
	return map[string]any{
		"playerid": "p-" + name,
		"name":     name,
		"no":       "7",
		"inn":      "1",
		"min":      "25:30",
		"pts":      float64(pts),
		"p2m":      float64(4),
		"p2a":      float64(8),
		"p3m":      float64(2),
		"p3a":      float64(5),
		"p1m":      float64(4),
		"p1a":      float64(5),
		"ro":       float64(1),
		"rd":       float64(4),
		"rt":       float64(5),
		"assist":   float64(3),
		"to":       float64(2),
		"st":       float64(1),
		"bs":       float64(0),
		"pf":       float64(3),
		"val":      float64(15),
	}
}

func sampleGame() *boxscore.GameDocument {
	return &boxscore.GameDocument{
		GameID:      "g1",
		Date:        "04-10-2025 - 19:00",
		Competition: "LEB ORO",
		Season:      "2025/2026",
		Home: boxscore.TeamDocument{
			TeamID: "101", Score: 80,
			Players: []map[string]any{modernRow("JUAN PEREZ", 18), modernRow("LUIS GARCIA", 10)},
		},
		Away: boxscore.TeamDocument{
			TeamID: "202", Score: 75,
			Players: []map[string]any{modernRow("JOHN SMITH", 12)},
		},
	}
}

func TestParseGameModernFormat(t *testing.T) {
	obs, skipped, err := boxscore.ParseGame(sampleGame())
	if err != nil {
		t.Fatalf("ParseGame: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("skipped %d rows, want 0", len(skipped))
	}
	if len(obs) != 3 {
		t.Fatalf("got %d observations, want 3", len(obs))
	}

	first := obs[0]
	if first.PlayerName != "JUAN PEREZ" || first.TeamID != "101" || first.OpponentID != "202" {
		t.Fatalf("unexpected identity fields: %+v", first)
	}
	if !first.IsHome || !first.TeamWon || !first.IsStarter {
		t.Fatalf("unexpected flags: %+v", first)
	}
	if first.FieldGoalsMade != 6 || first.FieldGoalsAttempted != 13 {
		t.Fatalf("field goals not summed from 2pt+3pt: %+v", first)
	}
	if math.Abs(first.MinutesPlayed-25.5) > 1e-9 {
		t.Fatalf("minutes = %v, want 25.5", first.MinutesPlayed)
	}
	if first.GameYear == nil || *first.GameYear != 2025 {
		t.Fatalf("game year = %v, want 2025", first.GameYear)
	}

	away := obs[2]
	if away.IsHome || away.TeamWon {
		t.Fatalf("away side flags wrong: %+v", away)
	}
}

func TestParseGameTeamTotals(t *testing.T) {
	obs, _, err := boxscore.ParseGame(sampleGame())
	if err != nil {
		t.Fatalf("ParseGame: %v", err)
	}
	home := obs[0]
	if home.Team.Points != 28 {
		t.Fatalf("home team points total = %d, want 28", home.Team.Points)
	}
	if home.Opponent.Points != 12 {
		t.Fatalf("opponent points total = %d, want 12", home.Opponent.Points)
	}
	if home.Team.FieldGoalsAttempted != 26 {
		t.Fatalf("team FGA total = %d, want 26", home.Team.FieldGoalsAttempted)
	}
}

func TestParseGameLegacyFormat(t *testing.T) {
	doc := sampleGame()
	doc.Home.Players = []map[string]any{{
		"playername":             "JUAN PEREZ",
		"shirtnumber":            "7",
		"is_starter":             true,
		"min":                    float64(1530),
		"points":                 float64(18),
		"field_goals_made":       float64(6),
		"field_goals_attempted":  float64(13),
		"two_points_made":        float64(4),
		"two_points_attempted":   float64(8),
		"three_points_made":      float64(2),
		"three_points_attempted": float64(5),
		"free_throws_made":       float64(4),
		"free_throws_attempted":  float64(5),
		"assists":                float64(3),
		"turnovers":              float64(2),
		"birth_year":             float64(2001),
	}}

	obs, skipped, err := boxscore.ParseGame(doc)
	if err != nil {
		t.Fatalf("ParseGame: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("skipped %d rows, want 0", len(skipped))
	}
	legacy := obs[0]
	if legacy.PlayerName != "JUAN PEREZ" || legacy.FieldGoalsAttempted != 13 {
		t.Fatalf("legacy row parsed wrong: %+v", legacy)
	}
	if math.Abs(legacy.MinutesPlayed-25.5) > 1e-9 {
		t.Fatalf("legacy seconds minutes = %v, want 25.5", legacy.MinutesPlayed)
	}
	if legacy.BirthYear == nil || *legacy.BirthYear != 2001 {
		t.Fatalf("birth year = %v, want 2001", legacy.BirthYear)
	}
	if legacy.AgeAtGame == nil || *legacy.AgeAtGame != 24 {
		t.Fatalf("age = %v, want 24", legacy.AgeAtGame)
	}
}

func TestParseGameSkipsNamelessRows(t *testing.T) {
	doc := sampleGame()
	doc.Home.Players = append(doc.Home.Players, map[string]any{"pts": float64(4)})

	obs, skipped, err := boxscore.ParseGame(doc)
	if err != nil {
		t.Fatalf("ParseGame: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("got %d observations, want 3", len(obs))
	}
	if len(skipped) != 1 {
		t.Fatalf("skipped %d rows, want 1", len(skipped))
	}
	if !errors.Is(skipped[0], services.ErrSchemaMismatch) {
		t.Fatalf("skip error not tagged as schema mismatch: %v", skipped[0])
	}
}

func TestParseGameRejectsMissingGameID(t *testing.T) {
	_, _, err := boxscore.ParseGame(&boxscore.GameDocument{})
	if !errors.Is(err, services.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestParseMinutesForms(t *testing.T) {
	cases := []struct {
		raw  map[string]any
		want float64
	}{
		{map[string]any{"minFormatted": "25:30"}, 25.5},
		{map[string]any{"min": float64(1530)}, 25.5},
		{map[string]any{"min": "1530"}, 25.5},
		{map[string]any{"min": "0:00"}, 0},
		{map[string]any{}, 0},
		{map[string]any{"min": "garbage"}, 0},
	}
	for _, tc := range cases {
		if got := boxscore.ParseMinutes(tc.raw); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("ParseMinutes(%v) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestParseGameYearForms(t *testing.T) {
	cases := map[string]int{
		"2025-10-04T19:00:00": 2025,
		"2025-10-04":          2025,
		"04-10-2025 - 19:00":  2025,
		"04-10-2025":          2025,
	}
	for date, want := range cases {
		got := boxscore.ParseGameYear(date)
		if got == nil || *got != want {
			t.Errorf("ParseGameYear(%q) = %v, want %d", date, got, want)
		}
	}
	if got := boxscore.ParseGameYear("not a date"); got != nil {
		t.Errorf("ParseGameYear(garbage) = %v, want nil", got)
	}
}
