package model

// Severity ranks integrity issues, alerts and recommendations.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Rank returns a sortable weight for the severity (lower sorts first).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// IssueKind identifies a class of data-integrity problem.
type IssueKind string

const (
	IssueWrongUserData   IssueKind = "WRONG_USER_DATA"
	IssuePatternMismatch IssueKind = "PATTERN_MISMATCH"
	IssueImpossibleValue IssueKind = "IMPOSSIBLE_VALUE"
	IssueStaleData       IssueKind = "STALE_DATA"
)

// IntegrityIssue is one finding from the integrity validator.
type IntegrityIssue struct {
	Kind     IssueKind `json:"kind"`
	Field    string    `json:"field"`
	Expected string    `json:"expected"`
	Actual   string    `json:"actual"`
	Severity Severity  `json:"severity"`
}

// IntegrityVerdict is the validator's judgment on whether an extracted
// payload truly belongs to the requested subject. It is derived by the
// validator, never constructed independently.
type IntegrityVerdict struct {
	Valid      bool             `json:"is_valid"`
	Confidence int              `json:"confidence"`
	Issues     []IntegrityIssue `json:"issues,omitempty"`
}

// HasCritical reports whether any issue is CRITICAL.
func (v *IntegrityVerdict) HasCritical() bool {
	for _, iss := range v.Issues {
		if iss.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
