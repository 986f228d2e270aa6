package normalize_test

import (
	"math"
	"testing"

	"boxscout/internal/normalize"
)

func TestZScoresHaveZeroMeanUnitStd(t *testing.T) {
	values := []float64{4, 8, 15, 16, 23, 42, 7, 11, 19, 30}
	s := normalize.Summarize(values)
	if s.LowVariance {
		t.Fatal("sample should not be low variance")
	}

	var sum, sumSq float64
	for _, v := range values {
		z := s.Z(v)
		sum += z
		sumSq += z * z
	}
	n := float64(len(values))
	mean := sum / n
	std := math.Sqrt(sumSq/n - mean*mean)

	if math.Abs(mean) > 1e-9 {
		t.Fatalf("z-score mean = %v, want ~0", mean)
	}
	if math.Abs(std-1) > 1e-9 {
		t.Fatalf("z-score std = %v, want ~1", std)
	}
}

func TestLowVarianceContextYieldsZeroScores(t *testing.T) {
	s := normalize.Summarize([]float64{10, 10, 10})
	if !s.LowVariance {
		t.Fatal("constant sample should be flagged low variance")
	}
	for _, v := range []float64{10, 0, 99} {
		if z := s.Z(v); z != 0 {
			t.Fatalf("Z(%v) = %v in low-variance context, want 0", v, z)
		}
	}
}

func TestSummarizeEmptySample(t *testing.T) {
	s := normalize.Summarize(nil)
	if !s.LowVariance || s.SampleSize != 0 {
		t.Fatalf("empty sample summary = %+v", s)
	}
}

func TestPercentile(t *testing.T) {
	if p := normalize.Percentile(0); math.Abs(p-50) > 1e-9 {
		t.Fatalf("Percentile(0) = %v, want 50", p)
	}
	if p := normalize.Percentile(2); p < 97 || p > 98 {
		t.Fatalf("Percentile(2) = %v, want ~97.7", p)
	}
	if p := normalize.Percentile(-2); p > 3 {
		t.Fatalf("Percentile(-2) = %v, want ~2.3", p)
	}
}

func TestPerformanceTierLadder(t *testing.T) {
	cases := map[float64]string{
		99: "elite",
		95: "elite",
		85: "very_good",
		70: "above_average",
		45: "average",
		10: "below_average",
	}
	for pct, want := range cases {
		if got := normalize.PerformanceTier(pct); got != want {
			t.Errorf("PerformanceTier(%v) = %q, want %q", pct, got, want)
		}
	}
}

func TestCacheFallbackAndReset(t *testing.T) {
	cache := normalize.NewCache(30, nil)
	key := normalize.ContextKey{Level: 2, Season: "2023/2024"}

	cache.Put(key, "points", normalize.Summarize([]float64{8, 12, 16}))
	got := cache.Get(key, "points")
	if math.Abs(got.Mean-12) > 1e-9 {
		t.Fatalf("cached mean = %v, want 12", got.Mean)
	}

	// Unknown metric falls back to a unit distribution.
	fallback := cache.Get(key, "assists")
	if fallback.Mean != 0 || fallback.Std != 1 {
		t.Fatalf("fallback summary = %+v, want unit distribution", fallback)
	}

	cache.Reset()
	reset := cache.Get(key, "points")
	if reset.Std != 1 {
		t.Fatalf("after reset summary = %+v, want unit distribution", reset)
	}
}
