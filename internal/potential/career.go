package potential

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"boxscout/internal/config"
	"boxscout/internal/league"
	"boxscout/internal/services"
	"boxscout/internal/store"
)

// Team-strength smoothing: win percentages are z-scored per competition
// season, clamped to ±2, and squashed through tanh for at most ±6%.
const teamFactorAlpha = 0.06

// CareerScorer aggregates profile potential across the seasons of each
// consolidated identity into one unified career score.
type CareerScorer struct {
	store  *store.Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewCareerScorer wires a career scorer over the store.
func NewCareerScorer(st *store.Store, cfg *config.Config, logger *slog.Logger) *CareerScorer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CareerScorer{store: st, cfg: cfg, logger: logger}
}

// SeasonAggregate is one season of a career, possibly merging several
// profiles when the player appeared for more than one team.
type SeasonAggregate struct {
	Season    string
	Games     int
	Minutes   float64
	Score     float64
	BestLevel int
}

// CareerResult reports one career scoring pass.
type CareerResult struct {
	Identities int
	Scored     int
}

// Run scores every consolidated identity.
func (s *CareerScorer) Run(ctx context.Context) (*CareerResult, error) {
	identities, err := s.store.ListIdentities(ctx)
	if err != nil {
		return nil, err
	}

	factors := newTeamFactorCache(s.store)
	res := &CareerResult{Identities: len(identities)}

	for _, identity := range identities {
		profiles, err := s.store.ProfilesByIdentity(ctx, identity.ID)
		if err != nil {
			return nil, err
		}
		if len(profiles) == 0 {
			continue
		}

		seasons, err := s.aggregateSeasons(ctx, profiles, factors)
		if err != nil {
			return nil, err
		}

		c := s.scoreIdentity(identity, profiles, seasons)
		if err := s.store.SaveCareerPotential(ctx, c); err != nil {
			return nil, err
		}
		res.Scored++
	}

	s.logger.Info("career potential pass complete",
		"identities", res.Identities,
		"scored", res.Scored)
	return res, nil
}

// aggregateSeasons folds eligible profile scores into per-season aggregates,
// weighting by minutes and adjusting for competition level and team
// strength. Seasons come back newest first.
func (s *CareerScorer) aggregateSeasons(ctx context.Context, profiles []*store.Profile, factors *teamFactorCache) ([]SeasonAggregate, error) {
	type acc struct {
		games     int
		minutes   float64
		weighted  float64
		bestLevel int
	}
	bySeason := make(map[string]*acc)

	for _, profile := range profiles {
		pot, err := s.store.GetProfilePotential(ctx, profile.ID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !pot.Eligible || pot.Composite == nil || profile.TotalMinutes == 0 {
			continue
		}

		factor, err := factors.factor(ctx, profile.TeamID, profile.Competition, profile.Season)
		if err != nil {
			return nil, err
		}
		adjusted := *pot.Composite * (1.0 + 0.5*(factor-1.0)) * LevelMultiplier(profile.Level)

		a := bySeason[profile.Season]
		if a == nil {
			a = &acc{bestLevel: profile.Level}
			bySeason[profile.Season] = a
		}
		a.games += profile.GamesPlayed
		a.minutes += profile.TotalMinutes
		a.weighted += adjusted * profile.TotalMinutes
		if profile.Level < a.bestLevel {
			a.bestLevel = profile.Level
		}
	}

	seasons := make([]SeasonAggregate, 0, len(bySeason))
	for season, a := range bySeason {
		seasons = append(seasons, SeasonAggregate{
			Season:    season,
			Games:     a.games,
			Minutes:   a.minutes,
			Score:     a.weighted / a.minutes,
			BestLevel: a.bestLevel,
		})
	}
	sort.Slice(seasons, func(i, j int) bool { return seasons[i].Season > seasons[j].Season })
	return seasons, nil
}

func (s *CareerScorer) scoreIdentity(identity *store.Identity, profiles []*store.Profile, seasons []SeasonAggregate) *store.CareerPotential {
	c := &store.CareerPotential{
		IdentityID:     identity.ID,
		SeasonsCounted: len(seasons),
		ComputedAt:     time.Now().UTC(),
	}
	for _, season := range seasons {
		c.TotalGames += season.Games
	}

	careerAvg := CareerAverage(seasons)
	recent := RecentPerformance(seasons, careerAvg, s.cfg.Potential.RecentSeasons)
	trajectory := AdjustTrajectory(Trajectory(seasons), recent)
	consistency := CareerConsistency(seasons)
	confidence := CareerConfidence(len(seasons), c.TotalGames)
	jumpBonus := LevelJumpBonus(seasons)

	age := s.currentAge(identity, profiles, seasons)
	ageScore := AgeProjection(age)

	w := s.cfg.Potential.CareerWeights
	unified := w.Recent*recent +
		w.Trajectory*trajectory +
		w.CareerAvg*careerAvg +
		w.Age*ageScore +
		w.Consistency*consistency +
		w.Confidence*confidence
	unified = min1(unified + jumpBonus)

	if len(seasons) > 0 {
		unified = InactivityPenalty(unified, seasons[0].Season, s.referenceYear())
	}
	tier := CareerTier(s.cfg.Potential.CareerTiers, unified)

	c.RecentScore = &recent
	c.TrajectoryScore = &trajectory
	c.CareerAvgScore = &careerAvg
	c.AgeScore = &ageScore
	c.Consistency = &consistency
	c.Confidence = &confidence
	c.LevelJumpBonus = &jumpBonus
	c.Unified = &unified
	c.Tier = &tier

	c.RisingStar = len(seasons) >= 2 &&
		age != nil && *age <= 24 &&
		recent > careerAvg+0.02 &&
		trajectory >= 0.55 &&
		recent >= 0.45
	c.EstablishedTalent = len(seasons) >= 3 &&
		careerAvg >= 0.50 &&
		consistency >= 0.7 &&
		recent >= 0.45
	c.PeakPerformer = recent >= 0.55 &&
		(recent > careerAvg*1.05 || recent >= 0.65) &&
		age != nil && *age >= 22 && *age <= 29
	c.ConsistentPerformer = consistency >= 0.7 && recent >= 0.45

	return c
}

// currentAge resolves the player's age in their most recent season, taking
// the birth year from the identity or any profile that knows it.
func (s *CareerScorer) currentAge(identity *store.Identity, profiles []*store.Profile, seasons []SeasonAggregate) *int {
	birthYear := identity.BirthYear
	if birthYear == nil {
		for _, p := range profiles {
			if p.BirthYear != nil {
				birthYear = p.BirthYear
				break
			}
		}
	}

	season := ""
	if len(seasons) > 0 {
		season = seasons[0].Season
	} else if len(profiles) > 0 {
		season = profiles[len(profiles)-1].Season
	}
	return AgeInSeason(season, birthYear)
}

func (s *CareerScorer) referenceYear() int {
	if s.cfg.Potential.ReferenceYear > 0 {
		return s.cfg.Potential.ReferenceYear
	}
	return time.Now().Year()
}

// LevelMultiplier discounts production below the top competition level.
func LevelMultiplier(level int) float64 {
	switch level {
	case 1:
		return 1.00
	case 2:
		return 0.90
	case 3:
		return 0.85
	default:
		return 0.80
	}
}

// CareerAverage is the minutes-weighted mean season score.
func CareerAverage(seasons []SeasonAggregate) float64 {
	var weighted, minutes float64
	for _, s := range seasons {
		weighted += s.Score * s.Minutes
		minutes += s.Minutes
	}
	if minutes == 0 {
		return 0.5
	}
	return weighted / minutes
}

// RecentPerformance is the minutes-weighted mean over the newest numRecent
// seasons, falling back to the career average with no recent minutes.
func RecentPerformance(seasons []SeasonAggregate, careerAvg float64, numRecent int) float64 {
	if numRecent <= 0 {
		numRecent = 2
	}
	if numRecent > len(seasons) {
		numRecent = len(seasons)
	}
	var weighted, minutes float64
	for _, s := range seasons[:numRecent] {
		weighted += s.Score * s.Minutes
		minutes += s.Minutes
	}
	if minutes == 0 {
		return careerAvg
	}
	return weighted / minutes
}

// Trajectory blends a stepped recent-versus-past comparison with an OLS
// slope over chronological season scores. The stepped part dominates so an
// explosive jump registers even when the long-run slope is flat.
func Trajectory(seasons []SeasonAggregate) float64 {
	scores := make([]float64, len(seasons))
	for i, s := range seasons {
		scores[len(seasons)-1-i] = s.Score
	}

	switch {
	case len(scores) >= 3:
		recent := (scores[len(scores)-1] + scores[len(scores)-2]) / 2
		var olderSum float64
		for _, v := range scores[:len(scores)-2] {
			olderSum += v
		}
		improvement := recent - olderSum/float64(len(scores)-2)

		var stepped float64
		switch {
		case improvement > 0.10:
			stepped = 0.95
		case improvement > 0.05:
			stepped = 0.80
		case improvement > 0.02:
			stepped = 0.65
		case improvement > -0.02:
			stepped = 0.50
		default:
			stepped = 0.30
		}

		fromSlope := 0.5
		if slope := olsSlope(scores); !math.IsNaN(slope) {
			fromSlope = clamp01((slope/0.15)*0.5 + 0.5)
		}
		return 0.70*stepped + 0.30*fromSlope

	case len(scores) == 2:
		improvement := scores[1] - scores[0]
		switch {
		case improvement > 0.10:
			return 0.90
		case improvement > 0.05:
			return 0.75
		case improvement > 0.02:
			return 0.65
		case improvement > -0.02:
			return 0.50
		case improvement > -0.05:
			return 0.35
		default:
			return 0.20
		}

	default:
		return 0.50
	}
}

// AdjustTrajectory caps the trajectory when recent performance is poor: a
// rising line from a very low base is not yet a breakout.
func AdjustTrajectory(trajectory, recentPerformance float64) float64 {
	if recentPerformance < 0.40 && trajectory > 0.40 {
		return 0.40
	}
	return trajectory
}

// CareerConsistency rewards low variance in season scores.
func CareerConsistency(seasons []SeasonAggregate) float64 {
	if len(seasons) < 2 {
		return 0.5
	}
	var sum float64
	for _, s := range seasons {
		sum += s.Score
	}
	mean := sum / float64(len(seasons))
	var sumSq float64
	for _, s := range seasons {
		d := s.Score - mean
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(len(seasons)))
	return clamp01(1.0 - std/0.5)
}

// CareerConfidence grows with observed seasons and games.
func CareerConfidence(seasonsCount, totalGames int) float64 {
	switch {
	case seasonsCount >= 4 && totalGames >= 50:
		return 1.0
	case seasonsCount >= 3 && totalGames >= 30:
		return 0.95
	case seasonsCount >= 2 && totalGames >= 20:
		return 0.90
	case seasonsCount >= 2 && totalGames >= 10:
		return 0.85
	case seasonsCount >= 1 && totalGames >= 15:
		return 0.75
	default:
		return 0.60
	}
}

// LevelJumpBonus rewards moving up competition tiers: the best (lowest
// numbered) level of the two newest seasons against the best level before
// them.
func LevelJumpBonus(seasons []SeasonAggregate) float64 {
	if len(seasons) <= 2 {
		return 0.0
	}
	recentBest := seasons[0].BestLevel
	if seasons[1].BestLevel < recentBest {
		recentBest = seasons[1].BestLevel
	}
	pastBest := seasons[2].BestLevel
	for _, s := range seasons[3:] {
		if s.BestLevel < pastBest {
			pastBest = s.BestLevel
		}
	}

	jump := pastBest - recentBest
	switch {
	case jump >= 2:
		return 0.15
	case jump >= 1:
		return 0.08
	default:
		return 0.0
	}
}

// InactivityPenalty discounts players who have stopped appearing: one idle
// year could be an injury, three or more usually means retirement.
func InactivityPenalty(score float64, lastSeason string, referenceYear int) float64 {
	endYear, err := league.SeasonEndYear(lastSeason)
	if err != nil {
		return score
	}
	inactive := referenceYear - endYear
	switch {
	case inactive >= 3:
		return score * 0.40
	case inactive == 2:
		return score * 0.65
	case inactive == 1:
		return score * 0.85
	default:
		return score
	}
}

// CareerTier buckets a unified score using the configured cutpoints.
func CareerTier(cuts config.CareerTiers, score float64) string {
	switch {
	case score >= cuts.Elite:
		return "elite"
	case score >= cuts.VeryHigh:
		return "very_high"
	case score >= cuts.High:
		return "high"
	case score >= cuts.Medium:
		return "medium"
	default:
		return "low"
	}
}

func olsSlope(chronological []float64) float64 {
	n := len(chronological)
	if n < 2 {
		return math.NaN()
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range chronological {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return math.NaN()
	}
	return (fn*sumXY - sumX*sumY) / denom
}

// teamFactorCache memoizes team-strength factors per (competition, season).
type teamFactorCache struct {
	store   *store.Store
	byScope map[string]map[string]float64
}

func newTeamFactorCache(st *store.Store) *teamFactorCache {
	return &teamFactorCache{store: st, byScope: make(map[string]map[string]float64)}
}

func (c *teamFactorCache) factor(ctx context.Context, teamID, competition, season string) (float64, error) {
	scope := competition + "\x00" + season
	factors, ok := c.byScope[scope]
	if !ok {
		var err error
		factors, err = c.build(ctx, competition, season)
		if err != nil {
			return 0, err
		}
		c.byScope[scope] = factors
	}
	if f, ok := factors[teamID]; ok {
		return f, nil
	}
	return 1.0, nil
}

// build z-scores each team's win percentage within the competition season.
// Tiny leagues and zero-variance seasons give every team the neutral
// factor.
func (c *teamFactorCache) build(ctx context.Context, competition, season string) (map[string]float64, error) {
	pcts, err := c.store.TeamWinPercentages(ctx, competition, season)
	if err != nil {
		return nil, err
	}

	factors := make(map[string]float64, len(pcts))
	if len(pcts) < 3 {
		for team := range pcts {
			factors[team] = 1.0
		}
		return factors, nil
	}

	var sum float64
	for _, p := range pcts {
		sum += p
	}
	mean := sum / float64(len(pcts))
	var sumSq float64
	for _, p := range pcts {
		d := p - mean
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(len(pcts)))
	if std < 0.01 {
		for team := range pcts {
			factors[team] = 1.0
		}
		return factors, nil
	}

	for team, p := range pcts {
		z := (p - mean) / std
		if z > 2 {
			z = 2
		}
		if z < -2 {
			z = -2
		}
		factors[team] = 1.0 + teamFactorAlpha*math.Tanh(z)
	}
	return factors, nil
}
