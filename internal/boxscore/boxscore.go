// Package boxscore defines the canonical per-game observation record and
// parses raw game documents into it. Two upstream shapes exist: the legacy
// export with spelled-out English keys and the current feed with terse keys.
// The shape is detected once per record here; nothing downstream branches on
// it again.
package boxscore

// Observation is one player's stat line in one game. It is immutable once
// ingested and keyed by (GameID, PlayerRawID).
type Observation struct {
	GameID      string
	PlayerRawID string
	PlayerName  string
	Dorsal      string

	BirthYear *int
	AgeAtGame *int

	TeamID        string
	OpponentID    string
	CompetitionID string
	Season        string
	GameDate      string
	GameYear      *int

	IsHome    bool
	IsStarter bool
	TeamWon   bool

	MinutesPlayed float64

	Points               int
	FieldGoalsMade       int
	FieldGoalsAttempted  int
	TwoPointsMade        int
	TwoPointsAttempted   int
	ThreePointsMade      int
	ThreePointsAttempted int
	FreeThrowsMade       int
	FreeThrowsAttempted  int

	OffensiveRebounds int
	DefensiveRebounds int
	TotalRebounds     int
	Assists           int
	Turnovers         int
	Steals            int
	Blocks            int
	BlocksReceived    int
	PersonalFouls     int
	FoulsReceived     int
	PlusMinus         int
	Efficiency        float64

	Team     TeamTotals
	Opponent TeamTotals
}

// TeamTotals carries the same-game aggregates needed by possession-share
// metrics. Filled in by ParseGame after all player rows are parsed.
type TeamTotals struct {
	Points              int
	FieldGoalsAttempted int
	FreeThrowsAttempted int
	Turnovers           int
	Minutes             float64
	OffensiveRebounds   int
	DefensiveRebounds   int
	TotalRebounds       int
}

// GameDocument is the raw ingested shape of one game. Player rows stay
// untyped because the two source formats disagree on every key.
type GameDocument struct {
	GameID      string       `json:"game_id"`
	Date        string       `json:"date"`
	Competition string       `json:"competition"`
	Season      string       `json:"season"`
	Home        TeamDocument `json:"home"`
	Away        TeamDocument `json:"away"`
}

// TeamDocument is one side of a game document.
type TeamDocument struct {
	TeamID  string           `json:"team_id"`
	Name    string           `json:"name"`
	Score   int              `json:"score"`
	Players []map[string]any `json:"players"`
}
