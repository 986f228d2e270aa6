package names_test

import (
	"math"
	"testing"

	"boxscout/internal/names"
)

func TestNormalizeStripsAccentsAndCase(t *testing.T) {
	cases := map[string]string{
		"Juan Pérez":         "JUAN PEREZ",
		"  García,   José  ": "GARCIA, JOSE",
		"j.m. Fernández":     "J.M. FERNANDEZ",
		"Núñez-Castellón":    "NUNEZ-CASTELLON",
		"O'Brien":            "OBRIEN",
		"":                   "",
	}
	for raw, want := range cases {
		if got := names.Normalize(raw); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"JUAN PÉREZ", "PÉREZ, JUAN", "J. PÉREZ", "MARÍA DE LA TORRE"}
	for _, raw := range inputs {
		once := names.Normalize(raw)
		if twice := names.Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q -> %q", raw, once, twice)
		}
	}
}

func TestParseShapes(t *testing.T) {
	cases := []struct {
		in   string
		want names.Parsed
	}{
		{"JUAN PEREZ", names.Parsed{Initial: "J", Given: "JUAN", Surname: "PEREZ"}},
		{"PEREZ, JUAN", names.Parsed{Initial: "J", Given: "JUAN", Surname: "PEREZ"}},
		{"J. PEREZ", names.Parsed{Initial: "J", Surname: "PEREZ"}},
		{"J.M. GARCIA LOPEZ", names.Parsed{Initial: "J", Surname: "GARCIA LOPEZ"}},
		{"PEREZ", names.Parsed{Surname: "PEREZ"}},
		{"MARIA DE LA TORRE", names.Parsed{Initial: "M", Given: "MARIA", Surname: "DE LA TORRE"}},
	}
	for _, tc := range cases {
		if got := names.Parse(tc.in); got != tc.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestSurnameTokensDropParticles(t *testing.T) {
	got := names.SurnameTokens("DE LA TORRE")
	if len(got) != 1 || got[0] != "TORRE" {
		t.Fatalf("SurnameTokens = %v, want [TORRE]", got)
	}
}

func TestSimilarityInitialVersusFullName(t *testing.T) {
	got := names.Similarity("JUAN PÉREZ", "J. PÉREZ")
	if math.Abs(got-0.80) > 1e-9 {
		t.Fatalf("Similarity = %v, want 0.80", got)
	}
}

func TestSimilaritySurnameFirstOrder(t *testing.T) {
	got := names.Similarity("PÉREZ, JUAN", "JUAN PÉREZ")
	if math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("Similarity = %v, want 1.0", got)
	}
}

func TestSimilarityIdentityAndSymmetry(t *testing.T) {
	inputs := []string{"JUAN PÉREZ", "J. PÉREZ", "PÉREZ, JUAN", "MARÍA DE LA TORRE", "GARCIA"}
	for _, a := range inputs {
		if got := names.Similarity(a, a); got != 1.0 {
			t.Errorf("Similarity(%q, %q) = %v, want 1.0", a, a, got)
		}
		for _, b := range inputs {
			ab := names.Similarity(a, b)
			ba := names.Similarity(b, a)
			if ab != ba {
				t.Errorf("Similarity not symmetric for %q/%q: %v vs %v", a, b, ab, ba)
			}
			if ab < 0 || ab > 1 {
				t.Errorf("Similarity(%q, %q) = %v out of [0,1]", a, b, ab)
			}
		}
	}
}

func TestSimilarityUnrelatedNames(t *testing.T) {
	if got := names.Similarity("GARCIA, LUIS", "SMITH, JOHN"); got != 0 {
		t.Fatalf("Similarity = %v, want 0", got)
	}
}

func TestFuzzyScore(t *testing.T) {
	if got := names.FuzzyScore("JUAN PÉREZ", "JUAN PÉREZ"); got != 1.0 {
		t.Fatalf("identical fuzzy = %v, want 1.0", got)
	}
	got := names.FuzzyScore("JUAN PÉREZ", "J. PÉREZ")
	if math.Abs(got-0.70) > 1e-9 {
		t.Fatalf("fuzzy = %v, want 0.70", got)
	}
	if got := names.FuzzyScore("", "PEREZ"); got != 0 {
		t.Fatalf("empty fuzzy = %v, want 0", got)
	}
}

func TestCacheLifecycle(t *testing.T) {
	cache := names.NewCache()
	if got := cache.Similarity("JUAN PÉREZ", "J. PÉREZ"); math.Abs(got-0.80) > 1e-9 {
		t.Fatalf("cached Similarity = %v, want 0.80", got)
	}
	if cache.Len() == 0 {
		t.Fatal("cache should hold entries after use")
	}
	cache.Reset()
	if cache.Len() != 0 {
		t.Fatalf("cache Len after Reset = %d, want 0", cache.Len())
	}
}
