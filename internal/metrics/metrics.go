// Package metrics derives per-profile season statistics from stored game
// lines: per-36 rates, rolling windows, trend and momentum, consistency
// indices, team-share ratios, and contextual z-scores.
package metrics

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"boxscout/internal/config"
	"boxscout/internal/normalize"
	"boxscout/internal/stats"
	"boxscout/internal/store"
)

const computeConcurrency = 4

// Computer recomputes ProfileMetrics rows wholesale for every profile.
type Computer struct {
	store  *store.Store
	cfg    *config.Config
	cache  *normalize.Cache
	logger *slog.Logger
}

// NewComputer wires a metrics computer over the store. The normalization
// cache is shared with the caller so a batch run can reset it between
// stages.
func NewComputer(st *store.Store, cfg *config.Config, cache *normalize.Cache, logger *slog.Logger) *Computer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Computer{store: st, cfg: cfg, cache: cache, logger: logger}
}

// Result reports how a metrics pass went.
type Result struct {
	Profiles int
	Computed int
	Failed   int
}

// Run recomputes metrics for all profiles. Failures on individual profiles
// are logged and counted, not propagated, so one bad profile cannot sink
// the batch.
func (c *Computer) Run(ctx context.Context) (*Result, error) {
	profiles, err := c.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.buildContexts(ctx, profiles); err != nil {
		return nil, err
	}

	var computed, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(computeConcurrency)
	for _, profile := range profiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := c.computeProfile(gctx, profile); err != nil {
				failed.Add(1)
				c.logger.Error("profile metrics failed",
					"profile_id", profile.ID,
					"name", profile.NameRaw,
					"error", err)
				return nil
			}
			computed.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Profiles: len(profiles),
		Computed: int(computed.Load()),
		Failed:   int(failed.Load()),
	}
	c.logger.Info("metrics pass complete",
		"profiles", res.Profiles,
		"computed", res.Computed,
		"failed", res.Failed)
	return res, nil
}

// contextMetrics are the metrics summarized per normalization context.
var contextMetrics = []string{"points", "offensive_rating", "player_efficiency"}

// buildContexts summarizes each metric's distribution per (level, season)
// context. All competitions assigned to the same level in a season share one
// context.
func (c *Computer) buildContexts(ctx context.Context, profiles []*store.Profile) error {
	competitions := make(map[normalize.ContextKey]map[string]bool)
	for _, p := range profiles {
		key := normalize.ContextKey{Level: p.Level, Season: p.Season}
		if competitions[key] == nil {
			competitions[key] = make(map[string]bool)
		}
		competitions[key][p.Competition] = true
	}

	for key, set := range competitions {
		comps := make([]string, 0, len(set))
		for comp := range set {
			comps = append(comps, comp)
		}
		for _, metric := range contextMetrics {
			values, err := c.store.MetricValuesForContext(ctx, comps, key.Season, metric, c.cfg.Normalization.MinMinutes)
			if err != nil {
				return err
			}
			c.cache.Put(key, metric, normalize.Summarize(values))
		}
	}
	return nil
}

func (c *Computer) computeProfile(ctx context.Context, profile *store.Profile) error {
	lines, err := c.store.GameLinesForProfile(ctx, profile.ID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}

	m := &store.ProfileMetrics{
		ProfileID:  profile.ID,
		Season:     profile.Season,
		ComputedAt: time.Now().UTC(),
	}

	var (
		totalMinutes  float64
		totalPoints   int
		totalRebounds int
		totalAssists  int
		totalSteals   int
		totalBlocks   int
	)
	points := make([]float64, len(lines))
	for i, l := range lines {
		totalMinutes += l.MinutesPlayed
		totalPoints += l.Points
		totalRebounds += l.TotalRebounds
		totalAssists += l.Assists
		totalSteals += l.Steals
		totalBlocks += l.Blocks
		points[i] = float64(l.Points)
	}

	if totalMinutes == 0 {
		c.logger.Debug("per-36 rates undefined, zero minutes played",
			"profile_id", profile.ID, "games", len(lines))
	}
	m.PointsPer36 = stats.Per36(float64(totalPoints), totalMinutes)
	m.ReboundsPer36 = stats.Per36(float64(totalRebounds), totalMinutes)
	m.AssistsPer36 = stats.Per36(float64(totalAssists), totalMinutes)
	m.StealsPer36 = stats.Per36(float64(totalSteals), totalMinutes)
	m.BlocksPer36 = stats.Per36(float64(totalBlocks), totalMinutes)

	m.AvgTrueShootingPct = meanPtr(lines, func(l store.GameLine) *float64 { return l.TrueShootingPct })
	m.AvgOffensiveRating = meanPtr(lines, func(l store.GameLine) *float64 { return l.OffensiveRating })
	m.AvgPlayerEfficiency = meanPtr(lines, func(l store.GameLine) *float64 { return l.PlayerEfficiency })
	m.AvgUsageRate = meanPtr(lines, func(l store.GameLine) *float64 { return l.UsageRate })

	// Lines arrive newest first, so the window prefix is the recent run.
	m.Rolling5Points = RollingAverage(points, c.cfg.Metrics.ShortWindow)
	m.Rolling10Points = RollingAverage(points, c.cfg.Metrics.LongWindow)

	chronological := reversed(points)
	m.TrendSlope = TrendSlope(chronological, c.cfg.Metrics.TrendMinGames)

	seasonAvg := mean(points)
	if m.Rolling5Points != nil {
		momentum := *m.Rolling5Points - seasonAvg
		m.Momentum = &momentum
	}

	m.CoefficientOfVariation = CoefficientOfVariation(points)
	if m.CoefficientOfVariation == nil {
		c.logger.Debug("variation undefined, zero scoring mean",
			"profile_id", profile.ID, "games", len(lines))
	}
	m.StabilityIndex = StabilityIndex(m.CoefficientOfVariation, len(points), c.cfg.Metrics.StabilityDamping)

	if err := c.teamShares(ctx, profile, m, totalPoints, totalMinutes); err != nil {
		return err
	}

	key := normalize.ContextKey{Level: profile.Level, Season: profile.Season}
	pointsSummary := c.cache.Get(key, "points")
	z := pointsSummary.Z(seasonAvg)
	m.ZPoints = &z
	m.LowVarianceCtx = pointsSummary.LowVariance
	if m.AvgOffensiveRating != nil {
		s := c.cache.Get(key, "offensive_rating")
		zOER := s.Z(*m.AvgOffensiveRating)
		pct := normalize.Percentile(zOER)
		tier := normalize.PerformanceTier(pct)
		m.ZOffensiveRating = &zOER
		m.PercentileOER = &pct
		m.PerformanceTier = &tier
		m.LowVarianceCtx = m.LowVarianceCtx || s.LowVariance
	}
	if m.AvgPlayerEfficiency != nil {
		s := c.cache.Get(key, "player_efficiency")
		zPER := s.Z(*m.AvgPlayerEfficiency)
		m.ZPlayerEfficiency = &zPER
		m.LowVarianceCtx = m.LowVarianceCtx || s.LowVariance
	}

	return c.store.SaveProfileMetrics(ctx, m)
}

func (c *Computer) teamShares(ctx context.Context, profile *store.Profile, m *store.ProfileMetrics, totalPoints int, totalMinutes float64) error {
	team, err := c.store.TeamSeasonTotalsFor(ctx, profile.TeamID, profile.Season, profile.Competition)
	if err != nil {
		return err
	}
	if team.Points > 0 && totalPoints > 0 {
		share := float64(totalPoints) / float64(team.Points)
		m.PointsShare = &share
	}
	if team.Minutes > 0 && totalMinutes > 0 {
		share := totalMinutes / team.Minutes
		m.MinutesShare = &share
	}
	if team.Points <= 0 || team.Minutes <= 0 {
		c.logger.Debug("team shares undefined, empty team totals",
			"profile_id", profile.ID, "team_id", profile.TeamID)
	}
	if team.AvgTrueShootingPct != nil && *team.AvgTrueShootingPct > 0 && m.AvgTrueShootingPct != nil {
		ratio := *m.AvgTrueShootingPct / *team.AvgTrueShootingPct
		m.EffVsTeam = &ratio
	}
	return nil
}

// RollingAverage averages the first window values, or all values when fewer
// than window are available. An empty series or non-positive window yields
// nil.
func RollingAverage(values []float64, window int) *float64 {
	if len(values) == 0 || window <= 0 {
		return nil
	}
	if window > len(values) {
		window = len(values)
	}
	avg := mean(values[:window])
	return &avg
}

// TrendSlope fits an ordinary least-squares line through the series indexed
// by chronological game number and returns its slope. Fewer than minGames
// points is not enough signal for a trend.
func TrendSlope(chronological []float64, minGames int) *float64 {
	n := len(chronological)
	if minGames < 2 {
		minGames = 2
	}
	if n < minGames {
		return nil
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
		return nil
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	return &slope
}

// CoefficientOfVariation is std/mean over the series, undefined when the
// mean is zero.
func CoefficientOfVariation(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	avg := mean(values)
	if avg == 0 {
		return nil
	}
	var sumSq float64
	for _, v := range values {
		d := v - avg
		sumSq += d * d
	}
	cv := math.Sqrt(sumSq/float64(len(values))) / avg
	return &cv
}

// StabilityIndex shrinks the coefficient of variation toward zero for small
// samples: games/(games+damping) grows toward 1 as games accumulate, so a
// noisy ten-game read weighs less than the same spread over forty games.
func StabilityIndex(cv *float64, games int, damping float64) *float64 {
	if cv == nil || games <= 0 {
		return nil
	}
	if damping < 0 {
		damping = 0
	}
	idx := *cv * (float64(games) / (float64(games) + damping))
	return &idx
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func meanPtr(lines []store.GameLine, pick func(store.GameLine) *float64) *float64 {
	var sum float64
	var n int
	for _, l := range lines {
		if v := pick(l); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

func reversed(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[len(values)-1-i] = v
	}
	return out
}
