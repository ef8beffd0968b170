package model

import "time"

// StatusTier buckets a health score into an operator-facing status.
type StatusTier string

const (
	StatusExcellent StatusTier = "excellent"
	StatusHealthy   StatusTier = "healthy"
	StatusWarning   StatusTier = "warning"
	StatusCritical  StatusTier = "critical"
)

// PlatformHealth aggregates one run's attempt results for a single platform.
// Snapshots are appended to a bounded history series for trend analysis.
type PlatformHealth struct {
	Platform Platform `json:"platform"`
	RunID    string   `json:"run_id"`

	Attempts          int               `json:"attempts"`
	SuccessRate       float64           `json:"success_rate"`
	AvgAccuracy       float64           `json:"avg_accuracy"`
	AvgCompleteness   float64           `json:"avg_completeness"`
	AvgResponseTimeMS float64           `json:"avg_response_time_ms"`
	ErrorHistogram    map[ErrorType]int `json:"error_histogram,omitempty"`

	HealthScore int        `json:"health_score"`
	Status      StatusTier `json:"status"`

	// Partial marks an aggregate computed from an incomplete run (wall-clock
	// budget expired before every attempt finished).
	Partial   bool      `json:"partial,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertType identifies the kind of trend alert.
type AlertType string

const (
	AlertSuccessRateDrop        AlertType = "success_rate_drop"
	AlertAccuracyDrop           AlertType = "accuracy_drop"
	AlertResponseTimeRegression AlertType = "response_time_regression"
	AlertNewErrorType           AlertType = "new_error_type"
)

// Alert is a severity-tagged finding from the trend analyzer.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  Severity       `json:"severity"`
	Platform  Platform       `json:"platform"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// BaselineComparison holds the deltas between two PlatformHealth snapshots.
// It is derived on demand and never persisted.
type BaselineComparison struct {
	Platform Platform  `json:"platform"`
	Baseline time.Time `json:"baseline"`
	Latest   time.Time `json:"latest"`

	SuccessRateDelta    float64 `json:"success_rate_delta"`
	AccuracyDelta       float64 `json:"accuracy_delta"`
	ResponseTimeDeltaMS float64 `json:"response_time_delta_ms"`

	DegradationDetected bool    `json:"degradation_detected"`
	ImprovementDetected bool    `json:"improvement_detected"`
	Alerts              []Alert `json:"alerts,omitempty"`
}

// Recommendation is a prioritized action derived from aggregated health.
type Recommendation struct {
	Platform Platform `json:"platform"`
	Severity Severity `json:"severity"`
	Action   string   `json:"action"`
}
