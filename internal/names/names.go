// Package names normalizes player names and scores the similarity between
// two names. Sources spell the same player inconsistently (accents, initials,
// surname-first order), so all comparisons run on normalized forms.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// surnameParticles are connective tokens ignored when comparing surnames.
var surnameParticles = map[string]struct{}{
	"DE": {}, "DEL": {}, "LA": {}, "LOS": {}, "LAS": {},
	"DA": {}, "DOS": {}, "DAS": {},
	"VAN": {}, "VON": {}, "EL": {},
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize uppercases a name, strips diacritics, drops special characters
// except dots, commas and hyphens, and collapses whitespace. It is
// idempotent.
func Normalize(raw string) string {
	stripped, _, err := transform.String(stripMarks, raw)
	if err != nil {
		stripped = raw
	}
	upper := strings.ToUpper(strings.TrimSpace(stripped))

	var b strings.Builder
	b.Grow(len(upper))
	pendingSpace := false
	for _, r := range upper {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == ',' || r == '-':
			if pendingSpace && b.Len() > 0 {
				b.WriteRune(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}
	return b.String()
}

// Parsed is the structured form of a normalized name. Given holds the first
// given-name token when the source spelled it out; names written with bare
// initials ("J. PEREZ") carry only the Initial.
type Parsed struct {
	Initial string
	Given   string
	Surname string
}

// Parse splits a normalized name into components. Three shapes are
// recognized: "SURNAME, GIVEN", "J. SURNAME" (a run of leading initials),
// and "GIVEN SURNAME". A single token is treated as a surname.
func Parse(normalized string) Parsed {
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return Parsed{}
	}

	if idx := strings.Index(normalized, ","); idx >= 0 {
		surname := strings.TrimSpace(normalized[:idx])
		givenTokens := strings.Fields(normalized[idx+1:])
		given := ""
		if len(givenTokens) > 0 {
			given = givenTokens[0]
		}
		return Parsed{Initial: firstRune(given), Given: given, Surname: surname}
	}

	tokens := strings.Fields(normalized)

	if strings.Contains(normalized, ".") {
		initialsEnd := 0
		for _, tok := range tokens {
			if strings.Contains(tok, ".") {
				initialsEnd++
				continue
			}
			break
		}
		return Parsed{
			Initial: firstRune(tokens[0]),
			Surname: strings.Join(tokens[initialsEnd:], " "),
		}
	}

	if len(tokens) == 1 {
		return Parsed{Surname: tokens[0]}
	}

	given := tokens[0]
	return Parsed{
		Initial: firstRune(given),
		Given:   given,
		Surname: strings.Join(tokens[1:], " "),
	}
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

// SurnameTokens returns the surname split into comparable tokens with
// particles removed. "DE LA CRUZ" compares as {"CRUZ"}.
func SurnameTokens(surname string) []string {
	var out []string
	for _, tok := range strings.Fields(surname) {
		if _, ok := surnameParticles[tok]; ok {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Similarity scores two raw names in [0, 1]. Surname agreement carries 60%
// of the score; matching initials and given names top it up. Identical
// normalized spellings always score 1.
func Similarity(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)
	if na != "" && na == nb {
		return 1.0
	}
	return similarityParsed(Parse(na), Parse(nb))
}

func similarityParsed(pa, pb Parsed) float64 {
	score := 0.0

	if pa.Surname != "" && pb.Surname != "" {
		if pa.Surname == pb.Surname {
			score += 0.60
		} else {
			score += 0.60 * jaccard(SurnameTokens(pa.Surname), SurnameTokens(pb.Surname))
		}
	}

	if pa.Initial != "" && pa.Initial == pb.Initial {
		score += 0.20
	}

	if pa.Given != "" && pb.Given != "" {
		if pa.Given == pb.Given {
			score += 0.20
		} else if strings.Contains(pa.Given, pb.Given) || strings.Contains(pb.Given, pa.Given) {
			score += 0.10
		}
	} else if pa.Given == "" && pb.Given == "" && pa.Initial != "" && pa.Initial == pb.Initial {
		// Only initials on both sides and they agree.
		score += 0.10
	}

	if score > 1 {
		score = 1
	}
	return score
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := map[string]struct{}{}
	for _, t := range a {
		set[t] = struct{}{}
	}
	inter := 0
	union := len(set)
	seen := map[string]struct{}{}
	for _, t := range b {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := set[t]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// FuzzyScore is a Levenshtein similarity over the full normalized strings,
// used as a fallback when structured comparison has nothing to work with.
func FuzzyScore(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	ra := []rune(na)
	rb := []rune(nb)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(curr[j-1]+1, minInt(prev[j]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
