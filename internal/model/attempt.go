package model

import "time"

// ErrorType is the fixed failure taxonomy for extraction attempts.
type ErrorType string

const (
	ErrorTimeout          ErrorType = "TIMEOUT"
	ErrorSelectorNotFound ErrorType = "SELECTOR_NOT_FOUND"
	ErrorRateLimited      ErrorType = "RATE_LIMITED"
	ErrorAuthRequired     ErrorType = "AUTH_REQUIRED"
	ErrorNotFound         ErrorType = "NOT_FOUND"
	ErrorNetwork          ErrorType = "NETWORK_ERROR"
	ErrorCaptchaRequired  ErrorType = "CAPTCHA_REQUIRED"
	ErrorUnknown          ErrorType = "UNKNOWN"
)

// ErrorDetails is a classified extraction failure. Failures are data, never
// exceptions: they travel inside AttemptResult rather than up the call stack.
type ErrorDetails struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

// ExtractionOutcome is the ephemeral result of a single call to the external
// extractor, before scoring and integrity validation.
type ExtractionOutcome struct {
	Success  bool
	Payload  ProfilePayload
	Error    *ErrorDetails
	Duration time.Duration
}

// AttemptResult is the persisted unit record for one (subject, platform)
// test, immutable once finalized by the runner.
type AttemptResult struct {
	ID      string  `json:"id"`
	RunID   string  `json:"run_id"`
	Subject Subject `json:"subject"`

	// Success reports whether the extractor itself returned data.
	// OverallSuccess additionally requires the integrity verdict to be valid:
	// a contaminated payload is a failure even when extraction "worked".
	Success        bool `json:"success"`
	OverallSuccess bool `json:"overall_success"`

	Payload ProfilePayload `json:"payload,omitempty"`
	Error   *ErrorDetails  `json:"error,omitempty"`

	AccuracyScore     int               `json:"accuracy_score"`
	CompletenessScore int               `json:"completeness_score"`
	Integrity         *IntegrityVerdict `json:"integrity,omitempty"`

	RetryCount     int       `json:"retry_count"`
	ResponseTimeMS int64     `json:"response_time_ms"`
	Timestamp      time.Time `json:"timestamp"`
}

// IntegrityValid reports whether the attempt's integrity verdict is valid.
// Attempts without a verdict (failed extractions) are trivially valid.
func (r *AttemptResult) IntegrityValid() bool {
	return r.Integrity == nil || r.Integrity.Valid
}
