// Package health rolls a run's attempt results into per-platform health
// scores and turns them into prioritized recommendations.
package health

import (
	"math"
	"sort"
	"time"

	"github.com/linkscope/audit-cli/internal/model"
)

// Config holds the health score weights. They must sum to 1.0; the defaults
// are the long-standing tuning, not a calibrated ground truth.
type Config struct {
	WeightSuccessRate  float64 `yaml:"weight_success_rate" mapstructure:"weight_success_rate"`
	WeightAccuracy     float64 `yaml:"weight_accuracy" mapstructure:"weight_accuracy"`
	WeightCompleteness float64 `yaml:"weight_completeness" mapstructure:"weight_completeness"`
	WeightResponseTime float64 `yaml:"weight_response_time" mapstructure:"weight_response_time"`

	// ResponseTimeDivisorMS converts average response time into a 0-100
	// penalty scale: 100 − avgMS/divisor, floored at 0.
	ResponseTimeDivisorMS float64 `yaml:"response_time_divisor_ms" mapstructure:"response_time_divisor_ms"`
}

// DefaultConfig returns the standard health weights.
func DefaultConfig() Config {
	return Config{
		WeightSuccessRate:     0.4,
		WeightAccuracy:        0.3,
		WeightCompleteness:    0.2,
		WeightResponseTime:    0.1,
		ResponseTimeDivisorMS: 100,
	}
}

func (c Config) withDefaults() Config {
	if c.WeightSuccessRate+c.WeightAccuracy+c.WeightCompleteness+c.WeightResponseTime <= 0 {
		return DefaultConfig()
	}
	if c.ResponseTimeDivisorMS <= 0 {
		c.ResponseTimeDivisorMS = 100
	}
	return c
}

// Aggregator computes per-platform health from attempt results.
type Aggregator struct {
	cfg Config
	now func() time.Time
}

// NewAggregator creates an Aggregator.
func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg.withDefaults(), now: time.Now}
}

// WithNow sets a fixed clock for testing.
func (a *Aggregator) WithNow(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Aggregate groups one run's results by platform and computes each
// platform's health snapshot. Accuracy and completeness average over
// successful attempts only; response time averages over all attempts.
func (a *Aggregator) Aggregate(runID string, results []model.AttemptResult, partial bool) []model.PlatformHealth {
	byPlatform := make(map[model.Platform][]model.AttemptResult)
	for _, res := range results {
		byPlatform[res.Subject.Platform] = append(byPlatform[res.Subject.Platform], res)
	}

	platforms := make([]model.Platform, 0, len(byPlatform))
	for p := range byPlatform {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })

	now := a.now().UTC()
	out := make([]model.PlatformHealth, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, a.aggregatePlatform(runID, p, byPlatform[p], partial, now))
	}
	return out
}

func (a *Aggregator) aggregatePlatform(runID string, platform model.Platform, results []model.AttemptResult, partial bool, now time.Time) model.PlatformHealth {
	h := model.PlatformHealth{
		Platform:  platform,
		RunID:     runID,
		Attempts:  len(results),
		Partial:   partial,
		Timestamp: now,
	}

	var (
		successes     int
		accuracySum   float64
		completeSum   float64
		responseSumMS float64
	)
	histogram := make(map[model.ErrorType]int)

	for _, res := range results {
		responseSumMS += float64(res.ResponseTimeMS)
		if res.OverallSuccess {
			successes++
			accuracySum += float64(res.AccuracyScore)
			completeSum += float64(res.CompletenessScore)
			continue
		}
		if res.Error != nil {
			histogram[res.Error.Type]++
		}
	}

	if len(results) > 0 {
		h.SuccessRate = float64(successes) / float64(len(results)) * 100
		h.AvgResponseTimeMS = responseSumMS / float64(len(results))
	}
	if successes > 0 {
		h.AvgAccuracy = accuracySum / float64(successes)
		h.AvgCompleteness = completeSum / float64(successes)
	}
	if len(histogram) > 0 {
		h.ErrorHistogram = histogram
	}

	h.HealthScore = a.score(h)
	h.Status = tier(h.HealthScore)
	return h
}

// score applies the weighted formula:
// round(w1·successRate + w2·avgAccuracy + w3·avgCompleteness +
// w4·max(0, 100 − avgResponseTime/divisor)).
func (a *Aggregator) score(h model.PlatformHealth) int {
	speed := math.Max(0, 100-h.AvgResponseTimeMS/a.cfg.ResponseTimeDivisorMS)
	raw := a.cfg.WeightSuccessRate*h.SuccessRate +
		a.cfg.WeightAccuracy*h.AvgAccuracy +
		a.cfg.WeightCompleteness*h.AvgCompleteness +
		a.cfg.WeightResponseTime*speed
	return int(math.Round(raw))
}

func tier(score int) model.StatusTier {
	switch {
	case score >= 90:
		return model.StatusExcellent
	case score >= 75:
		return model.StatusHealthy
	case score >= 50:
		return model.StatusWarning
	default:
		return model.StatusCritical
	}
}
