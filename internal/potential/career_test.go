package potential_test

import (
	"context"
	"testing"

	"boxscout/internal/config"
	"boxscout/internal/identity"
	"boxscout/internal/potential"
	"boxscout/internal/testsupport"
)

func seasonAgg(season string, score float64, minutes float64, level int) potential.SeasonAggregate {
	return potential.SeasonAggregate{Season: season, Score: score, Minutes: minutes, Games: 10, BestLevel: level}
}

func TestCareerAverageIsMinutesWeighted(t *testing.T) {
	seasons := []potential.SeasonAggregate{
		seasonAgg("2024/2025", 0.8, 300, 2),
		seasonAgg("2023/2024", 0.4, 100, 2),
	}
	got := potential.CareerAverage(seasons)
	want := (0.8*300 + 0.4*100) / 400
	if !almostEq(got, want) {
		t.Fatalf("career average = %v, want %v", got, want)
	}

	if got := potential.CareerAverage(nil); got != 0.5 {
		t.Fatalf("empty career = %v, want neutral 0.5", got)
	}
}

func TestRecentPerformanceUsesNewestSeasons(t *testing.T) {
	seasons := []potential.SeasonAggregate{
		seasonAgg("2024/2025", 0.9, 200, 2),
		seasonAgg("2023/2024", 0.7, 200, 2),
		seasonAgg("2022/2023", 0.2, 200, 2),
	}
	got := potential.RecentPerformance(seasons, 0.5, 2)
	if !almostEq(got, 0.8) {
		t.Fatalf("recent = %v, want 0.8", got)
	}
	// No seasons: fall back to the career average.
	if got := potential.RecentPerformance(nil, 0.44, 2); got != 0.44 {
		t.Fatalf("fallback = %v, want 0.44", got)
	}
}

func TestTrajectoryDetectsExplosiveJump(t *testing.T) {
	rising := []potential.SeasonAggregate{
		seasonAgg("2024/2025", 0.80, 200, 2),
		seasonAgg("2023/2024", 0.70, 200, 2),
		seasonAgg("2022/2023", 0.40, 200, 2),
	}
	declining := []potential.SeasonAggregate{
		seasonAgg("2024/2025", 0.30, 200, 2),
		seasonAgg("2023/2024", 0.40, 200, 2),
		seasonAgg("2022/2023", 0.70, 200, 2),
	}
	up := potential.Trajectory(rising)
	down := potential.Trajectory(declining)
	if up <= down {
		t.Fatalf("rising %v should outscore declining %v", up, down)
	}
	if up < 0.7 {
		t.Fatalf("explosive jump = %v, want strong signal", up)
	}

	// Two seasons use the stepped comparison alone.
	pair := []potential.SeasonAggregate{
		seasonAgg("2024/2025", 0.75, 200, 2),
		seasonAgg("2023/2024", 0.50, 200, 2),
	}
	if got := potential.Trajectory(pair); got != 0.90 {
		t.Fatalf("two-season jump = %v, want 0.90", got)
	}

	if got := potential.Trajectory(nil); got != 0.50 {
		t.Fatalf("no history = %v, want 0.50", got)
	}
}

func TestAdjustTrajectoryCapsWeakRecent(t *testing.T) {
	if got := potential.AdjustTrajectory(0.9, 0.3); got != 0.40 {
		t.Fatalf("capped trajectory = %v, want 0.40", got)
	}
	if got := potential.AdjustTrajectory(0.9, 0.6); got != 0.9 {
		t.Fatalf("healthy recent = %v, want untouched 0.9", got)
	}
}

func TestLevelJumpBonus(t *testing.T) {
	twoTiers := []potential.SeasonAggregate{
		seasonAgg("2024/2025", 0.7, 200, 1),
		seasonAgg("2023/2024", 0.6, 200, 2),
		seasonAgg("2022/2023", 0.5, 200, 3),
	}
	if got := potential.LevelJumpBonus(twoTiers); got != 0.15 {
		t.Fatalf("two-tier jump = %v, want 0.15", got)
	}

	oneTier := []potential.SeasonAggregate{
		seasonAgg("2024/2025", 0.7, 200, 2),
		seasonAgg("2023/2024", 0.6, 200, 2),
		seasonAgg("2022/2023", 0.5, 200, 3),
	}
	if got := potential.LevelJumpBonus(oneTier); got != 0.08 {
		t.Fatalf("one-tier jump = %v, want 0.08", got)
	}

	flat := []potential.SeasonAggregate{
		seasonAgg("2024/2025", 0.7, 200, 2),
		seasonAgg("2023/2024", 0.6, 200, 2),
		seasonAgg("2022/2023", 0.5, 200, 2),
	}
	if got := potential.LevelJumpBonus(flat); got != 0.0 {
		t.Fatalf("no jump = %v, want 0.0", got)
	}

	if got := potential.LevelJumpBonus(twoTiers[:2]); got != 0.0 {
		t.Fatalf("short history = %v, want 0.0", got)
	}
}

func TestCareerConfidenceLadder(t *testing.T) {
	tests := []struct {
		seasons int
		games   int
		want    float64
	}{
		{5, 60, 1.0},
		{3, 35, 0.95},
		{2, 25, 0.90},
		{2, 12, 0.85},
		{1, 18, 0.75},
		{1, 3, 0.60},
	}
	for _, tt := range tests {
		if got := potential.CareerConfidence(tt.seasons, tt.games); got != tt.want {
			t.Fatalf("CareerConfidence(%d, %d) = %v, want %v", tt.seasons, tt.games, got, tt.want)
		}
	}
}

func TestInactivityPenalty(t *testing.T) {
	if got := potential.InactivityPenalty(0.8, "2025/2026", 2026); got != 0.8 {
		t.Fatalf("active player penalized: %v", got)
	}
	if got := potential.InactivityPenalty(0.8, "2024/2025", 2026); !almostEq(got, 0.8*0.85) {
		t.Fatalf("one idle year = %v, want %v", got, 0.8*0.85)
	}
	if got := potential.InactivityPenalty(0.8, "2023/2024", 2026); !almostEq(got, 0.8*0.65) {
		t.Fatalf("two idle years = %v, want %v", got, 0.8*0.65)
	}
	if got := potential.InactivityPenalty(0.8, "2020/2021", 2026); !almostEq(got, 0.8*0.40) {
		t.Fatalf("long inactive = %v, want %v", got, 0.8*0.40)
	}
	if got := potential.InactivityPenalty(0.8, "unknown", 2026); got != 0.8 {
		t.Fatalf("unparseable season penalized: %v", got)
	}
}

func TestCareerTierMonotone(t *testing.T) {
	cuts := config.Default().Potential.CareerTiers
	order := map[string]int{"low": 0, "medium": 1, "high": 2, "very_high": 3, "elite": 4}
	prev := -1
	for score := 0.0; score <= 1.0; score += 0.01 {
		tier := order[potential.CareerTier(cuts, score)]
		if tier < prev {
			t.Fatalf("tier dropped at score %v", score)
		}
		prev = tier
	}
}

func TestCareerTierHonorsConfiguredCutpoints(t *testing.T) {
	cuts := config.Default().Potential.CareerTiers
	if got := potential.CareerTier(cuts, 0.55); got != "high" {
		t.Fatalf("default cutpoints: got %q, want high", got)
	}
	cuts.High = 0.58
	if got := potential.CareerTier(cuts, 0.55); got != "medium" {
		t.Fatalf("raised cutpoint: got %q, want medium", got)
	}
}

func TestCareerScorerAcrossSeasons(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Potential.ReferenceYear = 2025
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	// Same player, same club, two full seasons.
	for _, season := range []string{"2023/2024", "2024/2025"} {
		for _, doc := range testsupport.SeasonGames("VEGA SOLER", "LEB ORO", season, 10, func(i int) int { return 14 }) {
			doc.GameID = doc.GameID + "-" + season
			testsupport.SaveGame(t, st, doc)
		}
	}

	runFullPipeline(t, cfg, st)

	m := identity.NewMatcher(st, cfg, nil, nil)
	if _, err := m.Run(ctx); err != nil {
		t.Fatalf("identity: %v", err)
	}

	scorer := potential.NewCareerScorer(st, cfg, nil)
	res, err := scorer.Run(ctx)
	if err != nil {
		t.Fatalf("career Run: %v", err)
	}
	if res.Scored == 0 {
		t.Fatal("no careers scored")
	}

	identities, err := st.ListIdentities(ctx)
	if err != nil {
		t.Fatalf("ListIdentities: %v", err)
	}
	for _, id := range identities {
		c, err := st.GetCareerPotential(ctx, id.ID)
		if err != nil {
			t.Fatalf("GetCareerPotential: %v", err)
		}
		if c.Unified == nil || *c.Unified < 0 || *c.Unified > 1 {
			t.Fatalf("unified = %v, want [0,1]", c.Unified)
		}
		if c.Tier == nil {
			t.Fatal("career tier missing")
		}
		if c.SeasonsCounted != 2 {
			t.Fatalf("seasons counted = %d, want 2", c.SeasonsCounted)
		}
		if c.TotalGames != 20 {
			t.Fatalf("total games = %d, want 20", c.TotalGames)
		}
	}
}
