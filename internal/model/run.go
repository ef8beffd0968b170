package model

import "time"

// RunStatus represents the state of an audit run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusPartial  RunStatus = "partial"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one execution of the test matrix.
type Run struct {
	ID         string     `json:"id"`
	Status     RunStatus  `json:"status"`
	Subjects   int        `json:"subjects"`
	Successes  int        `json:"successes"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ExpectedProfile is the per-subject expectation oracle: numeric ranges,
// keyword sets and expected link sets loaded read-only at run start.
type ExpectedProfile struct {
	FollowerMin   int64    `json:"follower_min,omitempty" yaml:"follower_min"`
	FollowerMax   int64    `json:"follower_max,omitempty" yaml:"follower_max"`
	BioKeywords   []string `json:"bio_keywords,omitempty" yaml:"bio_keywords"`
	Verified      *bool    `json:"verified,omitempty" yaml:"verified"`
	ExpectedLinks []string `json:"expected_links,omitempty" yaml:"expected_links"`
	LinkPatterns  []string `json:"link_patterns,omitempty" yaml:"link_patterns"`
}

// HasFollowerRange reports whether a usable follower range is configured.
func (p *ExpectedProfile) HasFollowerRange() bool {
	return p != nil && (p.FollowerMin > 0 || p.FollowerMax > 0)
}
