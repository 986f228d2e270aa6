// Package normalize converts raw metric values into contextual z-scores so
// players from different leagues and eras can be compared. A context is one
// (competition level, season) pair; z-scores are never computed across
// contexts.
package normalize

import (
	"log/slog"
	"math"
	"sync"
)

// ContextKey identifies one normalization context.
type ContextKey struct {
	Level  int
	Season string
}

// Summary is the distribution of one metric inside one context.
type Summary struct {
	Mean        float64
	Std         float64
	SampleSize  int
	LowVariance bool
}

// Summarize computes mean and population standard deviation over the sample.
// A degenerate sample (all values equal, or fewer than two values) is flagged
// low-variance rather than rejected.
func Summarize(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{LowVariance: true}
	}

	var sum, sumSq float64
	for _, v := range values {
		sum += v
		sumSq += v * v
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	std := math.Sqrt(variance)

	return Summary{
		Mean:        mean,
		Std:         std,
		SampleSize:  n,
		LowVariance: std == 0,
	}
}

// Z returns the z-score of a value within this distribution. A low-variance
// context yields zero for every value instead of failing.
func (s Summary) Z(value float64) float64 {
	if s.LowVariance || s.Std == 0 {
		return 0
	}
	return (value - s.Mean) / s.Std
}

// Percentile maps a z-score to its normal-CDF percentile in [0, 100].
func Percentile(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2)) * 100
}

// PerformanceTier classifies a percentile into a coarse label.
func PerformanceTier(percentile float64) string {
	switch {
	case percentile >= 95:
		return "elite"
	case percentile >= 80:
		return "very_good"
	case percentile >= 60:
		return "above_average"
	case percentile >= 40:
		return "average"
	default:
		return "below_average"
	}
}

// Cache holds per-context metric summaries for one batch run. It is safe
// for concurrent use and is reset at batch start.
type Cache struct {
	mu              sync.RWMutex
	contexts        map[ContextKey]map[string]Summary
	smallSampleWarn int
	logger          *slog.Logger
}

// NewCache creates an empty context cache. Contexts whose sample size falls
// below smallSampleWarn are logged when stored.
func NewCache(smallSampleWarn int, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		contexts:        make(map[ContextKey]map[string]Summary),
		smallSampleWarn: smallSampleWarn,
		logger:          logger,
	}
}

// Put stores the summary for one metric in one context.
func (c *Cache) Put(key ContextKey, metric string, summary Summary) {
	if summary.SampleSize < c.smallSampleWarn {
		c.logger.Warn("small normalization sample",
			"level", key.Level,
			"season", key.Season,
			"metric", metric,
			"sample_size", summary.SampleSize)
	}
	if summary.LowVariance {
		c.logger.Warn("low-variance normalization context",
			"level", key.Level,
			"season", key.Season,
			"metric", metric)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	metrics := c.contexts[key]
	if metrics == nil {
		metrics = make(map[string]Summary)
		c.contexts[key] = metrics
	}
	metrics[metric] = summary
}

// Get returns the summary for a metric in a context. Missing entries fall
// back to a unit distribution so callers always get a usable summary.
func (c *Cache) Get(key ContextKey, metric string) Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if metrics, ok := c.contexts[key]; ok {
		if s, ok := metrics[metric]; ok {
			return s
		}
	}
	return Summary{Mean: 0, Std: 1}
}

// Reset discards all cached contexts.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.contexts = make(map[ContextKey]map[string]Summary)
	c.mu.Unlock()
}
