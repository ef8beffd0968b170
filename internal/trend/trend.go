// Package trend compares current platform health against the persisted
// history, detecting degradation and improvement over a trailing window and
// emitting severity-tagged alerts.
package trend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/linkscope/audit-cli/internal/model"
	"github.com/linkscope/audit-cli/internal/store"
)

// Config holds the trend thresholds and history bounds.
type Config struct {
	// RetentionDays bounds the history series; rows older than this are
	// pruned after every run's writes. Default: 30.
	RetentionDays int `yaml:"retention_days" mapstructure:"retention_days"`

	// WindowDays is the trailing comparison window. Default: 7.
	WindowDays int `yaml:"window_days" mapstructure:"window_days"`

	// Degradation fires when success or accuracy drops by at least this many
	// points. Default: 10.
	DegradeDeltaPoints float64 `yaml:"degrade_delta_points" mapstructure:"degrade_delta_points"`

	// CriticalDeltaPoints escalates a success-rate drop to CRITICAL.
	// Default: 20.
	CriticalDeltaPoints float64 `yaml:"critical_delta_points" mapstructure:"critical_delta_points"`

	// DegradeResponseMS flags a response-time regression of at least this
	// many milliseconds. Default: 5000.
	DegradeResponseMS float64 `yaml:"degrade_response_ms" mapstructure:"degrade_response_ms"`

	// ImproveDeltaPoints marks improvement when success rises by at least
	// this many points. Default: 10.
	ImproveDeltaPoints float64 `yaml:"improve_delta_points" mapstructure:"improve_delta_points"`
}

// DefaultConfig returns the standard trend thresholds.
func DefaultConfig() Config {
	return Config{
		RetentionDays:       30,
		WindowDays:          7,
		DegradeDeltaPoints:  10,
		CriticalDeltaPoints: 20,
		DegradeResponseMS:   5000,
		ImproveDeltaPoints:  10,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RetentionDays <= 0 {
		c.RetentionDays = d.RetentionDays
	}
	if c.WindowDays <= 0 {
		c.WindowDays = d.WindowDays
	}
	if c.DegradeDeltaPoints <= 0 {
		c.DegradeDeltaPoints = d.DegradeDeltaPoints
	}
	if c.CriticalDeltaPoints <= 0 {
		c.CriticalDeltaPoints = d.CriticalDeltaPoints
	}
	if c.DegradeResponseMS <= 0 {
		c.DegradeResponseMS = d.DegradeResponseMS
	}
	if c.ImproveDeltaPoints <= 0 {
		c.ImproveDeltaPoints = d.ImproveDeltaPoints
	}
	return c
}

// Analyzer persists health snapshots and derives baseline comparisons.
type Analyzer struct {
	cfg Config
	st  store.Store
	now func() time.Time
}

// NewAnalyzer creates an Analyzer over the given store.
func NewAnalyzer(cfg Config, st store.Store) *Analyzer {
	return &Analyzer{cfg: cfg.withDefaults(), st: st, now: time.Now}
}

// WithNow sets a fixed clock for testing.
func (a *Analyzer) WithNow(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

// Record appends a run's health snapshots to the history, then prunes rows
// past the retention window. Appending and pruning happen once per run,
// after all attempts complete, by this single writer.
func (a *Analyzer) Record(ctx context.Context, healths []model.PlatformHealth) error {
	for _, h := range healths {
		if err := a.st.AppendHealth(ctx, h); err != nil {
			return eris.Wrapf(err, "trend: record %s", h.Platform)
		}
	}

	cutoff := a.now().UTC().AddDate(0, 0, -a.cfg.RetentionDays)
	pruned, err := a.st.PruneHealth(ctx, cutoff)
	if err != nil {
		return eris.Wrap(err, "trend: prune history")
	}
	if pruned > 0 {
		zap.L().Debug("trend: pruned history rows",
			zap.Int("rows", pruned),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}

// Compare diffs the latest snapshot against the earliest snapshot within the
// trailing window for one platform. With fewer than two snapshots there is
// no baseline and Compare returns nil.
func (a *Analyzer) Compare(ctx context.Context, platform model.Platform) (*model.BaselineComparison, error) {
	since := a.now().UTC().AddDate(0, 0, -a.cfg.WindowDays)
	series, err := a.st.ListHealth(ctx, platform, since)
	if err != nil {
		// Unreadable history is recovered, never fatal: start fresh.
		zap.L().Warn("trend: history unreadable, starting empty series",
			zap.String("platform", string(platform)),
			zap.Error(err),
		)
		return nil, nil
	}
	if len(series) < 2 {
		return nil, nil
	}

	baseline := series[0]
	latest := series[len(series)-1]
	return a.compare(baseline, latest), nil
}

func (a *Analyzer) compare(baseline, latest model.PlatformHealth) *model.BaselineComparison {
	cmp := &model.BaselineComparison{
		Platform:            latest.Platform,
		Baseline:            baseline.Timestamp,
		Latest:              latest.Timestamp,
		SuccessRateDelta:    latest.SuccessRate - baseline.SuccessRate,
		AccuracyDelta:       latest.AvgAccuracy - baseline.AvgAccuracy,
		ResponseTimeDeltaMS: latest.AvgResponseTimeMS - baseline.AvgResponseTimeMS,
	}

	cmp.DegradationDetected = cmp.SuccessRateDelta <= -a.cfg.DegradeDeltaPoints ||
		cmp.AccuracyDelta <= -a.cfg.DegradeDeltaPoints ||
		cmp.ResponseTimeDeltaMS >= a.cfg.DegradeResponseMS
	cmp.ImprovementDetected = cmp.SuccessRateDelta >= a.cfg.ImproveDeltaPoints

	cmp.Alerts = a.alerts(cmp, baseline, latest)
	return cmp
}

func (a *Analyzer) alerts(cmp *model.BaselineComparison, baseline, latest model.PlatformHealth) []model.Alert {
	now := a.now().UTC()
	var alerts []model.Alert
	add := func(t model.AlertType, sev model.Severity, msg string, details map[string]any) {
		alerts = append(alerts, model.Alert{
			Type:      t,
			Severity:  sev,
			Platform:  latest.Platform,
			Message:   msg,
			Details:   details,
			Timestamp: now,
		})
	}

	if cmp.SuccessRateDelta <= -a.cfg.DegradeDeltaPoints {
		sev := model.SeverityHigh
		if cmp.SuccessRateDelta <= -a.cfg.CriticalDeltaPoints {
			sev = model.SeverityCritical
		}
		add(model.AlertSuccessRateDrop, sev,
			fmt.Sprintf("%s success rate dropped %.1f points (%.1f%% -> %.1f%%)",
				latest.Platform, -cmp.SuccessRateDelta, baseline.SuccessRate, latest.SuccessRate),
			map[string]any{
				"baseline": baseline.SuccessRate,
				"latest":   latest.SuccessRate,
				"delta":    cmp.SuccessRateDelta,
			})
	}

	if cmp.AccuracyDelta <= -a.cfg.DegradeDeltaPoints {
		add(model.AlertAccuracyDrop, model.SeverityHigh,
			fmt.Sprintf("%s average accuracy dropped %.1f points (%.1f -> %.1f)",
				latest.Platform, -cmp.AccuracyDelta, baseline.AvgAccuracy, latest.AvgAccuracy),
			map[string]any{
				"baseline": baseline.AvgAccuracy,
				"latest":   latest.AvgAccuracy,
				"delta":    cmp.AccuracyDelta,
			})
	}

	if cmp.ResponseTimeDeltaMS >= a.cfg.DegradeResponseMS {
		add(model.AlertResponseTimeRegression, model.SeverityMedium,
			fmt.Sprintf("%s response time regressed %.0fms (%.0fms -> %.0fms)",
				latest.Platform, cmp.ResponseTimeDeltaMS, baseline.AvgResponseTimeMS, latest.AvgResponseTimeMS),
			map[string]any{
				"baseline_ms": baseline.AvgResponseTimeMS,
				"latest_ms":   latest.AvgResponseTimeMS,
			})
	}

	// Error types present now but absent in the baseline are early signals
	// of a new failure mode.
	newTypes := newErrorTypes(baseline.ErrorHistogram, latest.ErrorHistogram)
	for _, et := range newTypes {
		add(model.AlertNewErrorType, model.SeverityMedium,
			fmt.Sprintf("%s now failing with %s (%d occurrence(s)), absent in baseline",
				latest.Platform, et, latest.ErrorHistogram[et]),
			map[string]any{
				"error_type": string(et),
				"count":      latest.ErrorHistogram[et],
			})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
	})
	return alerts
}

// CompareAll runs Compare for every platform present in the history.
func (a *Analyzer) CompareAll(ctx context.Context) ([]model.BaselineComparison, error) {
	platforms, err := a.st.Platforms(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "trend: list platforms")
	}

	var out []model.BaselineComparison
	for _, p := range platforms {
		cmp, err := a.Compare(ctx, p)
		if err != nil {
			return nil, err
		}
		if cmp != nil {
			out = append(out, *cmp)
		}
	}
	return out, nil
}

// newErrorTypes returns the keys of latest absent from baseline, sorted for
// deterministic alert order.
func newErrorTypes(baseline, latest map[model.ErrorType]int) []model.ErrorType {
	var out []model.ErrorType
	for et := range latest {
		if _, ok := baseline[et]; !ok {
			out = append(out, et)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
