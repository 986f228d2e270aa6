// Package potential scores player upside at two horizons: a per-season
// profile score built from derived metrics, and a career score aggregated
// across every season linked to one consolidated identity.
package potential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"boxscout/internal/config"
	"boxscout/internal/league"
	"boxscout/internal/services"
	"boxscout/internal/store"
)

// Component score policy constants. These are empirically chosen scouting
// policy, not derived values; the composite weights live in configuration.
const (
	// A true shooting fraction at or above this marks an efficient scorer.
	excellentTrueShooting = 0.65
	// Points per 36 at or above this saturates the production score.
	excellentPointsPer36 = 20.0
	// Momentum indices are normalized over a ±5 point swing.
	momentumSpan = 5.0
	// CV at or above this reads as a wildly inconsistent scorer.
	inconsistentCV = 0.8
)

// ProfileScorer computes per-season potential for every profile.
type ProfileScorer struct {
	store  *store.Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewProfileScorer wires a profile scorer over the store.
func NewProfileScorer(st *store.Store, cfg *config.Config, logger *slog.Logger) *ProfileScorer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ProfileScorer{store: st, cfg: cfg, logger: logger}
}

// ProfileResult reports one profile scoring pass.
type ProfileResult struct {
	Profiles   int
	Eligible   int
	Ineligible int
}

// Run scores every profile. Profiles without metrics are still recorded as
// ineligible so downstream queries see the whole population.
func (s *ProfileScorer) Run(ctx context.Context) (*ProfileResult, error) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	res := &ProfileResult{Profiles: len(profiles)}
	for _, profile := range profiles {
		m, err := s.store.GetProfileMetrics(ctx, profile.ID)
		if err != nil {
			if !errors.Is(err, services.ErrNotFound) {
				return nil, err
			}
			m = nil
		}

		p := s.Score(profile, m)
		if p.Eligible {
			res.Eligible++
		} else {
			res.Ineligible++
		}
		if err := s.store.SaveProfilePotential(ctx, p); err != nil {
			return nil, err
		}
	}

	s.logger.Info("profile potential pass complete",
		"profiles", res.Profiles,
		"eligible", res.Eligible,
		"ineligible", res.Ineligible)
	return res, nil
}

// Score computes one profile's potential from its season metrics. A profile
// below the eligibility gate still gets component scores so a scout can see
// why it fell short; it is flagged, not zeroed.
func (s *ProfileScorer) Score(profile *store.Profile, m *store.ProfileMetrics) *store.ProfilePotential {
	p := &store.ProfilePotential{
		ProfileID:  profile.ID,
		ComputedAt: time.Now().UTC(),
	}

	eligible, reasons := CheckEligibility(s.cfg.Potential.Eligibility, profile.GamesPlayed, profile.TotalMinutes, profile.AvgMinutes)
	p.Eligible = eligible
	if len(reasons) > 0 {
		reason := strings.Join(reasons, "; ")
		p.IneligibleReason = &reason
	}

	age := AgeInSeason(profile.Season, profile.BirthYear)

	ageScore := AgeProjection(age)
	var perfScore, consScore, advScore, momScore, prodScore float64
	if m != nil {
		perfScore = Performance(m.ZOffensiveRating, m.ZPlayerEfficiency, profile.Level)
		consScore = Consistency(m.CoefficientOfVariation)
		advScore = AdvancedMetrics(m.AvgTrueShootingPct, m.EffVsTeam)
		momScore = MomentumScore(m.Momentum, m.TrendSlope)
		prodScore = Production(m.PointsPer36, m.PointsShare)
	} else {
		perfScore, consScore, advScore, momScore, prodScore = 0.5, 0.5, 0.5, 0.5, 0.5
	}

	p.AgeScore = &ageScore
	p.PerformanceScore = &perfScore
	p.ConsistencyScore = &consScore
	p.AdvancedScore = &advScore
	p.MomentumScore = &momScore
	p.ProductionScore = &prodScore

	w := s.cfg.Potential.ProfileWeights
	base := w.Age*ageScore +
		w.Performance*perfScore +
		w.Production*prodScore +
		w.Consistency*consScore +
		w.Advanced*advScore +
		w.Momentum*momScore
	base *= temporalAdjustment(TemporalWeight(profile.Season, s.referenceYear()))

	confidence := ConfidenceMultiplier(profile.GamesPlayed, profile.TotalMinutes, profile.AvgMinutes)
	composite := base * confidence
	tier := ProfileTier(s.cfg.Potential.ProfileTiers, composite)

	p.Composite = &composite
	p.Confidence = &confidence
	p.Tier = &tier

	p.YoungTalent = age != nil && *age < 23 && perfScore >= 0.6 && eligible
	p.ConsistentPlayer = consScore >= 0.7 && perfScore >= 0.6 && eligible

	return p
}

func (s *ProfileScorer) referenceYear() int {
	if s.cfg.Potential.ReferenceYear > 0 {
		return s.cfg.Potential.ReferenceYear
	}
	return time.Now().Year()
}

// CheckEligibility applies the minimum-sample gate and explains any miss.
func CheckEligibility(e config.Eligibility, games int, totalMinutes, avgMinutes float64) (bool, []string) {
	var reasons []string
	if games < e.MinGames {
		reasons = append(reasons, fmt.Sprintf("few games (%d<%d)", games, e.MinGames))
	}
	if totalMinutes < e.MinTotalMinutes {
		reasons = append(reasons, fmt.Sprintf("few total minutes (%.0f<%.0f)", totalMinutes, e.MinTotalMinutes))
	}
	if avgMinutes < e.MinAvgMinutes {
		reasons = append(reasons, fmt.Sprintf("marginal role (%.1f<%.1f min/game)", avgMinutes, e.MinAvgMinutes))
	}
	return len(reasons) == 0, reasons
}

// AgeInSeason derives a player's age during a season from the season's
// start year.
func AgeInSeason(season string, birthYear *int) *int {
	if birthYear == nil {
		return nil
	}
	start, err := league.SeasonStartYear(season)
	if err != nil {
		return nil
	}
	age := start - *birthYear
	return &age
}

// AgeProjection steps down with age: the younger the player, the more room
// to grow. Unknown age is neutral.
func AgeProjection(age *int) float64 {
	if age == nil {
		return 0.5
	}
	switch {
	case *age <= 21:
		return 1.0
	case *age <= 24:
		return 0.8
	case *age <= 27:
		return 0.5
	case *age <= 30:
		return 0.3
	default:
		return 0.1
	}
}

// Performance maps the average of the offensive-rating and efficiency
// z-scores from [-3,3] onto [0,1], then adjusts for competition level:
// producing at the top level is worth more than the same line a couple of
// tiers down.
func Performance(zOER, zPER *float64, level int) float64 {
	if zOER == nil || zPER == nil {
		return 0.5
	}
	base := ((*zOER+*zPER)/2 + 3) / 6
	base = clamp01(base)

	bonus := 0.0
	switch level {
	case 1:
		bonus = 0.10
	case 3:
		bonus = -0.05
	}
	return min1(base * (1.0 + bonus))
}

// Consistency rewards a low coefficient of variation in scoring.
func Consistency(cv *float64) float64 {
	if cv == nil || *cv < 0 {
		return 0.5
	}
	return clamp01(1.0 - *cv/inconsistentCV)
}

// AdvancedMetrics scores shooting efficiency, scaled by how the player
// shoots relative to their team.
func AdvancedMetrics(avgTS, effVsTeam *float64) float64 {
	if avgTS == nil {
		return 0.5
	}
	base := min1(*avgTS / excellentTrueShooting)
	if effVsTeam == nil {
		return base
	}
	adj := *effVsTeam
	if adj < 0.8 {
		adj = 0.8
	}
	if adj > 1.2 {
		adj = 1.2
	}
	return base * adj
}

// MomentumScore normalizes the momentum index over a ±5 point swing, falling
// back to the trend slope when no momentum window exists. Scores above 0.5
// mean the player is outplaying their season baseline.
func MomentumScore(momentum, trend *float64) float64 {
	if momentum != nil {
		return clamp01((*momentum + momentumSpan) / (2 * momentumSpan))
	}
	if trend != nil {
		return clamp01((*trend + 2) / 4)
	}
	return 0.5
}

// Production scores scoring volume per 36 minutes plus a bonus for carrying
// a large share of the team's points.
func Production(ptsPer36, ptsShare *float64) float64 {
	if ptsPer36 == nil {
		return 0.5
	}
	score := min1(*ptsPer36 / excellentPointsPer36)
	if ptsShare != nil {
		bonus := *ptsShare
		if bonus > 0.2 {
			bonus = 0.2
		}
		score = min1(score + bonus)
	}
	return score
}

// TemporalWeight decays old seasons toward a floor of 0.5, five percent per
// year behind the reference year.
func TemporalWeight(season string, referenceYear int) float64 {
	start, err := league.SeasonStartYear(season)
	if err != nil {
		return 1.0
	}
	yearsAgo := referenceYear - start
	w := 1.0 - 0.05*float64(yearsAgo)
	if w < 0.5 {
		return 0.5
	}
	if w > 1.0 {
		return 1.0
	}
	return w
}

func temporalAdjustment(weight float64) float64 {
	return 0.85 + 0.15*weight
}

// ConfidenceMultiplier discounts scores built on thin samples: few games,
// few minutes, or a marginal role each pull confidence down.
func ConfidenceMultiplier(games int, totalMinutes, avgMinutes float64) float64 {
	var gamesConf float64
	switch {
	case games >= 15:
		gamesConf = 1.0
	case games >= 10:
		gamesConf = 0.9
	case games >= 8:
		gamesConf = 0.7
	case games >= 5:
		gamesConf = 0.5
	default:
		gamesConf = 0.2
	}

	var minutesConf float64
	switch {
	case totalMinutes >= 200:
		minutesConf = 1.0
	case totalMinutes >= 120:
		minutesConf = 0.8
	case totalMinutes >= 80:
		minutesConf = 0.6
	default:
		minutesConf = 0.3
	}

	var roleConf float64
	switch {
	case avgMinutes >= 15:
		roleConf = 1.0
	case avgMinutes >= 10:
		roleConf = 0.8
	case avgMinutes >= 5:
		roleConf = 0.5
	default:
		roleConf = 0.3
	}

	return 0.40*gamesConf + 0.30*minutesConf + 0.30*roleConf
}

// ProfileTier buckets a composite score using the configured cutpoints.
func ProfileTier(cuts config.ProfileTiers, score float64) string {
	switch {
	case score >= cuts.Elite:
		return "elite"
	case score >= cuts.VeryHigh:
		return "very_high"
	case score >= cuts.High:
		return "high"
	case score >= cuts.Medium:
		return "medium"
	case score >= cuts.Low:
		return "low"
	default:
		return "very_low"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
