package testsupport

import (
	"fmt"

	"boxscout/internal/boxscore"
)

// PlayerRow builds a modern-format player row for game fixtures.
func PlayerRow(name string, minutes string, points int, birthYear int) map[string]any {
	row := map[string]any{
		"playerid": "p-" + name,
		"name":     name,
		"no":       "0",
		"inn":      "1",
		"min":      minutes,
		"pts":      float64(points),
		"p2m":      float64(points / 3),
		"p2a":      float64(points/3 + 3),
		"p3m":      float64(1),
		"p3a":      float64(3),
		"p1m":      float64(points % 3),
		"p1a":      float64(points%3 + 1),
		"ro":       float64(1),
		"rd":       float64(3),
		"rt":       float64(4),
		"assist":   float64(2),
		"to":       float64(2),
		"st":       float64(1),
		"bs":       float64(0),
		"pf":       float64(2),
		"val":      float64(points),
	}
	if birthYear > 0 {
		row["birth_year"] = float64(birthYear)
	}
	return row
}

// GameFixture builds a two-team game document with the given rosters.
func GameFixture(gameID, date, competition, season string, home, away []map[string]any) *boxscore.GameDocument {
	return &boxscore.GameDocument{
		GameID:      gameID,
		Date:        date,
		Competition: competition,
		Season:      season,
		Home:        boxscore.TeamDocument{TeamID: "101", Score: 80, Players: home},
		Away:        boxscore.TeamDocument{TeamID: "202", Score: 72, Players: away},
	}
}

// SeasonGames builds n games for one player spread across consecutive days.
func SeasonGames(playerName, competition, season string, n int, pointsFor func(i int) int) []*boxscore.GameDocument {
	games := make([]*boxscore.GameDocument, 0, n)
	for i := 0; i < n; i++ {
		date := fmt.Sprintf("2024-01-%02dT18:00:00", i+1)
		home := []map[string]any{
			PlayerRow(playerName, "30:00", pointsFor(i), 2001),
			PlayerRow("TEAMMATE ONE", "28:00", 10, 1995),
		}
		away := []map[string]any{PlayerRow("RIVAL GUY", "30:00", 12, 1994)}
		games = append(games, GameFixture(fmt.Sprintf("g-%s-%d", playerName, i), date, competition, season, home, away))
	}
	return games
}
