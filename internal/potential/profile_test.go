package potential_test

import (
	"context"
	"math"
	"testing"

	"boxscout/internal/config"
	"boxscout/internal/metrics"
	"boxscout/internal/normalize"
	"boxscout/internal/potential"
	"boxscout/internal/store"
	"boxscout/internal/testsupport"
)

func intPtr(v int) *int { return &v }

func f64Ptr(v float64) *float64 { return &v }

func almostEq(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestAgeProjectionLadder(t *testing.T) {
	tests := []struct {
		age  *int
		want float64
	}{
		{intPtr(19), 1.0},
		{intPtr(21), 1.0},
		{intPtr(24), 0.8},
		{intPtr(27), 0.5},
		{intPtr(30), 0.3},
		{intPtr(35), 0.1},
		{nil, 0.5},
	}
	for _, tt := range tests {
		if got := potential.AgeProjection(tt.age); got != tt.want {
			t.Fatalf("AgeProjection(%v) = %v, want %v", tt.age, got, tt.want)
		}
	}
}

func TestPerformanceMapsZScoresAndLevel(t *testing.T) {
	// Average z of zero sits exactly in the middle.
	if got := potential.Performance(f64Ptr(0), f64Ptr(0), 2); !almostEq(got, 0.5) {
		t.Fatalf("neutral z = %v, want 0.5", got)
	}
	// Top level earns a bonus on the same line.
	mid := potential.Performance(f64Ptr(1), f64Ptr(1), 2)
	top := potential.Performance(f64Ptr(1), f64Ptr(1), 1)
	low := potential.Performance(f64Ptr(1), f64Ptr(1), 3)
	if !(top > mid && mid > low) {
		t.Fatalf("level ordering violated: top %v, mid %v, low %v", top, mid, low)
	}
	// Extreme z-scores clamp instead of escaping [0,1].
	if got := potential.Performance(f64Ptr(10), f64Ptr(10), 1); got != 1.0 {
		t.Fatalf("extreme z = %v, want 1.0", got)
	}
	if got := potential.Performance(nil, f64Ptr(1), 1); got != 0.5 {
		t.Fatalf("missing z = %v, want neutral 0.5", got)
	}
}

func TestConsistencyFromCV(t *testing.T) {
	if got := potential.Consistency(f64Ptr(0)); got != 1.0 {
		t.Fatalf("perfectly steady = %v, want 1.0", got)
	}
	if got := potential.Consistency(f64Ptr(0.4)); !almostEq(got, 0.5) {
		t.Fatalf("cv 0.4 = %v, want 0.5", got)
	}
	if got := potential.Consistency(f64Ptr(1.5)); got != 0.0 {
		t.Fatalf("wild cv = %v, want 0.0", got)
	}
	if got := potential.Consistency(nil); got != 0.5 {
		t.Fatalf("unknown cv = %v, want neutral", got)
	}
}

func TestAdvancedMetricsScore(t *testing.T) {
	// 65% true shooting saturates the base score.
	if got := potential.AdvancedMetrics(f64Ptr(0.65), nil); got != 1.0 {
		t.Fatalf("ts 0.65 = %v, want 1.0", got)
	}
	// Team adjustment is clamped to [0.8, 1.2].
	boosted := potential.AdvancedMetrics(f64Ptr(0.52), f64Ptr(2.0))
	base := potential.AdvancedMetrics(f64Ptr(0.52), f64Ptr(1.0))
	if !almostEq(boosted, base*1.2) {
		t.Fatalf("team adjustment not clamped: %v vs %v", boosted, base*1.2)
	}
	if got := potential.AdvancedMetrics(nil, f64Ptr(1.1)); got != 0.5 {
		t.Fatalf("missing ts = %v, want neutral", got)
	}
}

func TestMomentumScore(t *testing.T) {
	if got := potential.MomentumScore(f64Ptr(0), nil); !almostEq(got, 0.5) {
		t.Fatalf("flat momentum = %v, want 0.5", got)
	}
	if got := potential.MomentumScore(f64Ptr(5), nil); got != 1.0 {
		t.Fatalf("surging momentum = %v, want 1.0", got)
	}
	// Trend fallback when no momentum window exists.
	if got := potential.MomentumScore(nil, f64Ptr(2)); got != 1.0 {
		t.Fatalf("trend fallback = %v, want 1.0", got)
	}
	if got := potential.MomentumScore(nil, nil); got != 0.5 {
		t.Fatalf("no signal = %v, want neutral", got)
	}
}

func TestProductionScore(t *testing.T) {
	if got := potential.Production(f64Ptr(20), nil); got != 1.0 {
		t.Fatalf("20 per 36 = %v, want 1.0", got)
	}
	// Team share bonus is capped at 0.2.
	capped := potential.Production(f64Ptr(10), f64Ptr(0.5))
	want := 0.5 + 0.2
	if !almostEq(capped, want) {
		t.Fatalf("share bonus = %v, want %v", capped, want)
	}
	if got := potential.Production(nil, f64Ptr(0.2)); got != 0.5 {
		t.Fatalf("missing per-36 = %v, want neutral", got)
	}
}

func TestConfidenceMultiplier(t *testing.T) {
	full := potential.ConfidenceMultiplier(20, 400, 20)
	if full != 1.0 {
		t.Fatalf("large sample = %v, want 1.0", full)
	}
	thin := potential.ConfidenceMultiplier(2, 30, 15)
	// 0.40*0.2 + 0.30*0.3 + 0.30*1.0
	if !almostEq(thin, 0.47) {
		t.Fatalf("thin sample = %v, want 0.47", thin)
	}
	if thin >= full {
		t.Fatal("confidence should shrink with sample size")
	}
}

func TestProfileTierMonotone(t *testing.T) {
	cuts := config.Default().Potential.ProfileTiers
	order := map[string]int{"very_low": 0, "low": 1, "medium": 2, "high": 3, "very_high": 4, "elite": 5}
	prev := -1
	for score := 0.0; score <= 1.0; score += 0.01 {
		tier := order[potential.ProfileTier(cuts, score)]
		if tier < prev {
			t.Fatalf("tier dropped at score %v", score)
		}
		prev = tier
	}
}

func TestProfileTierHonorsConfiguredCutpoints(t *testing.T) {
	cuts := config.Default().Potential.ProfileTiers
	if got := potential.ProfileTier(cuts, 0.80); got != "very_high" {
		t.Fatalf("default cutpoints: got %q, want very_high", got)
	}
	cuts.VeryHigh = 0.82
	if got := potential.ProfileTier(cuts, 0.80); got != "high" {
		t.Fatalf("raised cutpoint: got %q, want high", got)
	}
}

func TestTemporalWeightFloor(t *testing.T) {
	if got := potential.TemporalWeight("2025/2026", 2026); !almostEq(got, 0.95) {
		t.Fatalf("one year back = %v, want 0.95", got)
	}
	if got := potential.TemporalWeight("2005/2006", 2026); got != 0.5 {
		t.Fatalf("ancient season = %v, want floor 0.5", got)
	}
	if got := potential.TemporalWeight("unknown", 2026); got != 1.0 {
		t.Fatalf("unparseable season = %v, want 1.0", got)
	}
}

func TestCheckEligibility(t *testing.T) {
	gate := config.Default().Potential.Eligibility

	ok, reasons := potential.CheckEligibility(gate, 10, 200, 20)
	if !ok || len(reasons) != 0 {
		t.Fatalf("solid sample rejected: %v", reasons)
	}

	ok, reasons = potential.CheckEligibility(gate, 2, 40, 20)
	if ok {
		t.Fatal("thin sample accepted")
	}
	if len(reasons) != 2 {
		t.Fatalf("got %d reasons, want 2: %v", len(reasons), reasons)
	}
}

func runFullPipeline(t *testing.T, cfg *config.Config, st *store.Store) {
	t.Helper()
	ctx := context.Background()
	if _, err := st.RebuildProfiles(ctx, func(string, string) int { return 2 }); err != nil {
		t.Fatalf("RebuildProfiles: %v", err)
	}
	cache := normalize.NewCache(cfg.Normalization.SmallSampleWarn, nil)
	if _, err := metrics.NewComputer(st, cfg, cache, nil).Run(ctx); err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if _, err := potential.NewProfileScorer(st, cfg, nil).Run(ctx); err != nil {
		t.Fatalf("profile potential: %v", err)
	}
}

func TestIneligibleProfileIsFlaggedNotZeroed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	// Two games: well under the eligibility gate.
	for _, doc := range testsupport.SeasonGames("NOA VIDAL", "LEB ORO", "2024/2025", 2, func(i int) int { return 14 }) {
		testsupport.SaveGame(t, st, doc)
	}
	runFullPipeline(t, cfg, st)

	profiles, err := st.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	var profile *store.Profile
	for _, p := range profiles {
		if p.NameNormalized == "NOA VIDAL" {
			profile = p
		}
	}
	if profile == nil {
		t.Fatal("profile missing")
	}

	pot, err := st.GetProfilePotential(ctx, profile.ID)
	if err != nil {
		t.Fatalf("GetProfilePotential: %v", err)
	}
	if pot.Eligible {
		t.Fatal("two-game profile should be ineligible")
	}
	if pot.IneligibleReason == nil {
		t.Fatal("ineligible profile should carry a reason")
	}
	// Flagged, not scored as zero: components and composite still exist.
	if pot.Composite == nil || *pot.Composite == 0 {
		t.Fatalf("composite = %v, want a non-zero informational score", pot.Composite)
	}
	if pot.AgeScore == nil || pot.PerformanceScore == nil {
		t.Fatal("component scores missing for ineligible profile")
	}
	if pot.YoungTalent {
		t.Fatal("ineligible profile cannot be flagged young talent")
	}
}

func TestEligibleProfileScoredAndTiered(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	// Ten games at thirty minutes clears every eligibility bar.
	for _, doc := range testsupport.SeasonGames("IRIA CANO", "LEB ORO", "2024/2025", 10, func(i int) int { return 15 }) {
		testsupport.SaveGame(t, st, doc)
	}
	runFullPipeline(t, cfg, st)

	profiles, err := st.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	for _, p := range profiles {
		if p.NameNormalized != "iria cano" {
			continue
		}
		pot, err := st.GetProfilePotential(ctx, p.ID)
		if err != nil {
			t.Fatalf("GetProfilePotential: %v", err)
		}
		if !pot.Eligible {
			t.Fatalf("ten-game starter ineligible: %v", pot.IneligibleReason)
		}
		if pot.Composite == nil || *pot.Composite < 0 || *pot.Composite > 1 {
			t.Fatalf("composite = %v, want [0,1]", pot.Composite)
		}
		if pot.Tier == nil || *pot.Tier == "" {
			t.Fatal("tier missing")
		}
		if pot.Confidence == nil || *pot.Confidence <= 0 {
			t.Fatalf("confidence = %v", pot.Confidence)
		}
		return
	}
	t.Fatal("profile missing")
}
