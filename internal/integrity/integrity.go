// Package integrity detects silently wrong extraction results: payloads that
// belong to a different subject, implausible values and stale cached data.
// Integrity findings are data, never errors; they lower confidence and flip
// the attempt's overall success, but never block scoring.
package integrity

import (
	"fmt"
	"strconv"

	"github.com/linkscope/audit-cli/internal/model"
	"github.com/linkscope/audit-cli/internal/textnorm"
)

// Config holds the integrity thresholds and confidence penalties. The
// penalty weights come from the original tuning without a documented
// calibration process, which is why they are configuration rather than
// constants.
type Config struct {
	PenaltyCritical int `yaml:"penalty_critical" mapstructure:"penalty_critical"`
	PenaltyHigh     int `yaml:"penalty_high" mapstructure:"penalty_high"`
	PenaltyMedium   int `yaml:"penalty_medium" mapstructure:"penalty_medium"`
	PenaltyLow      int `yaml:"penalty_low" mapstructure:"penalty_low"`

	// KeywordMismatchCritical is the mismatch fraction above which a nonzero
	// keyword overlap still indicates wrong-subject data.
	KeywordMismatchCritical float64 `yaml:"keyword_mismatch_critical" mapstructure:"keyword_mismatch_critical"`

	// FollowerLowFraction / FollowerHighFraction bound plausible follower
	// counts relative to the expected range.
	FollowerLowFraction  float64 `yaml:"follower_low_fraction" mapstructure:"follower_low_fraction"`
	FollowerHighFraction float64 `yaml:"follower_high_fraction" mapstructure:"follower_high_fraction"`
}

// DefaultConfig returns the standard integrity thresholds.
func DefaultConfig() Config {
	return Config{
		PenaltyCritical:         50,
		PenaltyHigh:             30,
		PenaltyMedium:           15,
		PenaltyLow:              5,
		KeywordMismatchCritical: 0.8,
		FollowerLowFraction:     0.5,
		FollowerHighFraction:    3.0,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PenaltyCritical <= 0 {
		c.PenaltyCritical = d.PenaltyCritical
	}
	if c.PenaltyHigh <= 0 {
		c.PenaltyHigh = d.PenaltyHigh
	}
	if c.PenaltyMedium <= 0 {
		c.PenaltyMedium = d.PenaltyMedium
	}
	if c.PenaltyLow <= 0 {
		c.PenaltyLow = d.PenaltyLow
	}
	if c.KeywordMismatchCritical <= 0 {
		c.KeywordMismatchCritical = d.KeywordMismatchCritical
	}
	if c.FollowerLowFraction <= 0 {
		c.FollowerLowFraction = d.FollowerLowFraction
	}
	if c.FollowerHighFraction <= 0 {
		c.FollowerHighFraction = d.FollowerHighFraction
	}
	return c
}

// Validator runs the integrity checks for one run. It owns the run-scoped
// fingerprint registry and is safe for concurrent use.
type Validator struct {
	cfg      Config
	registry *FingerprintRegistry
}

// NewValidator creates a Validator with a fresh fingerprint registry.
func NewValidator(cfg Config) *Validator {
	return &Validator{
		cfg:      cfg.withDefaults(),
		registry: NewFingerprintRegistry(),
	}
}

// Registry exposes the run-scoped fingerprint registry.
func (v *Validator) Registry() *FingerprintRegistry {
	return v.registry
}

// Validate runs the four independent integrity checks and derives the
// verdict: identity, content plausibility, numeric plausibility and
// cross-subject duplicate detection. Confidence starts at 100 and each issue
// subtracts its severity's penalty, floored at 0.
func (v *Validator) Validate(subject model.Subject, payload model.ProfilePayload, expected *model.ExpectedProfile) model.IntegrityVerdict {
	var issues []model.IntegrityIssue

	issues = append(issues, v.checkIdentity(subject, payload)...)
	issues = append(issues, v.checkContent(payload, expected)...)
	issues = append(issues, v.checkNumeric(payload, expected)...)
	issues = append(issues, v.checkDuplicate(subject, payload)...)

	penalty := 0
	for _, iss := range issues {
		penalty += v.penaltyFor(iss.Severity)
	}
	confidence := 100 - penalty
	if confidence < 0 {
		confidence = 0
	}

	return model.IntegrityVerdict{
		Valid:      len(issues) == 0,
		Confidence: confidence,
		Issues:     issues,
	}
}

func (v *Validator) penaltyFor(sev model.Severity) int {
	switch sev {
	case model.SeverityCritical:
		return v.cfg.PenaltyCritical
	case model.SeverityHigh:
		return v.cfg.PenaltyHigh
	case model.SeverityMedium:
		return v.cfg.PenaltyMedium
	default:
		return v.cfg.PenaltyLow
	}
}

// checkIdentity flags payloads that carry their own identity fields and
// disagree with the requested subject.
func (v *Validator) checkIdentity(subject model.Subject, payload model.ProfilePayload) []model.IntegrityIssue {
	var issues []model.IntegrityIssue

	if username, ok := payload.Username(); ok {
		if textnorm.Fold(username) != textnorm.Fold(subject.Username) {
			issues = append(issues, model.IntegrityIssue{
				Kind:     model.IssueWrongUserData,
				Field:    model.FieldUsername,
				Expected: subject.Username,
				Actual:   username,
				Severity: model.SeverityCritical,
			})
		}
	}
	if platform, ok := payload.Platform(); ok {
		if textnorm.Fold(platform) != textnorm.Fold(string(subject.Platform)) {
			issues = append(issues, model.IntegrityIssue{
				Kind:     model.IssueWrongUserData,
				Field:    model.FieldPlatform,
				Expected: string(subject.Platform),
				Actual:   platform,
				Severity: model.SeverityCritical,
			})
		}
	}
	return issues
}

// checkContent compares the expected keyword set against the payload text.
// Zero overlap is a pattern mismatch; a nonzero but overwhelmingly wrong
// overlap looks like another subject's profile entirely.
func (v *Validator) checkContent(payload model.ProfilePayload, expected *model.ExpectedProfile) []model.IntegrityIssue {
	if expected == nil || len(expected.BioKeywords) == 0 {
		return nil
	}
	bio, ok := payload.Bio()
	if !ok {
		return nil
	}

	folded := textnorm.Fold(bio)
	matched := 0
	for _, kw := range expected.BioKeywords {
		if kw != "" && containsFolded(folded, kw) {
			matched++
		}
	}
	overlap := float64(matched) / float64(len(expected.BioKeywords))

	if matched == 0 {
		return []model.IntegrityIssue{{
			Kind:     model.IssuePatternMismatch,
			Field:    model.FieldBio,
			Expected: fmt.Sprintf("any of %d keywords", len(expected.BioKeywords)),
			Actual:   "no keyword overlap",
			Severity: model.SeverityHigh,
		}}
	}
	if 1-overlap > v.cfg.KeywordMismatchCritical {
		return []model.IntegrityIssue{{
			Kind:     model.IssueWrongUserData,
			Field:    model.FieldBio,
			Expected: fmt.Sprintf("keyword overlap > %.0f%%", (1-v.cfg.KeywordMismatchCritical)*100),
			Actual:   fmt.Sprintf("overlap %.0f%%", overlap*100),
			Severity: model.SeverityCritical,
		}}
	}
	return nil
}

// checkNumeric flags follower counts far outside the expected range: below
// half the minimum or above triple the maximum is not measurement noise.
func (v *Validator) checkNumeric(payload model.ProfilePayload, expected *model.ExpectedProfile) []model.IntegrityIssue {
	if !expected.HasFollowerRange() {
		return nil
	}
	count, ok := payload.FollowerCount()
	if !ok {
		return nil
	}

	if expected.FollowerMin > 0 {
		floor := int64(float64(expected.FollowerMin) * v.cfg.FollowerLowFraction)
		if count < floor {
			return []model.IntegrityIssue{{
				Kind:     model.IssueImpossibleValue,
				Field:    model.FieldFollowerCount,
				Expected: ">= " + strconv.FormatInt(floor, 10),
				Actual:   strconv.FormatInt(count, 10),
				Severity: model.SeverityHigh,
			}}
		}
	}
	if expected.FollowerMax > 0 {
		ceil := int64(float64(expected.FollowerMax) * v.cfg.FollowerHighFraction)
		if count > ceil {
			return []model.IntegrityIssue{{
				Kind:     model.IssueImpossibleValue,
				Field:    model.FieldFollowerCount,
				Expected: "<= " + strconv.FormatInt(ceil, 10),
				Actual:   strconv.FormatInt(count, 10),
				Severity: model.SeverityMedium,
			}}
		}
	}
	return nil
}

// checkDuplicate consults the run-scoped fingerprint registry. This audit
// stays in place even with session isolation enforced upstream: it is the
// only check that catches a contaminated extractor returning one subject's
// cached data for another's request.
func (v *Validator) checkDuplicate(subject model.Subject, payload model.ProfilePayload) []model.IntegrityIssue {
	fp := Fingerprint(payload)
	first, dup := v.registry.Observe(subject, fp)
	if !dup {
		return nil
	}
	return []model.IntegrityIssue{{
		Kind:     model.IssueStaleData,
		Field:    "payload",
		Expected: "data unique to " + subject.Key(),
		Actual:   "identical to payload first seen for " + first.Key(),
		Severity: model.SeverityCritical,
	}}
}

func containsFolded(foldedHaystack, needle string) bool {
	return needle != "" && foldedHaystack != "" &&
		textnorm.ContainsFold(foldedHaystack, needle)
}
