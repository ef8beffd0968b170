// Package scoring computes accuracy and completeness of an extracted profile
// against the expectation oracle. Scores are 0-100 integers; a dimension is
// only checked when an expectation exists AND the payload can answer it, so
// absent expectations never fabricate a score.
package scoring

import (
	"math"
	"net/url"
	"strings"

	"github.com/linkscope/audit-cli/internal/model"
	"github.com/linkscope/audit-cli/internal/textnorm"
)

// Config holds the scoring thresholds. The defaults mirror long-standing
// tuning and were not validated against labeled ground truth; treat them as
// adjustable parameters.
type Config struct {
	// KeywordOverlapThreshold is the bio-keyword overlap fraction at or above
	// which the keyword dimension passes outright.
	KeywordOverlapThreshold float64 `yaml:"keyword_overlap_threshold" mapstructure:"keyword_overlap_threshold"`

	// FollowerPassCredit is the minimum partial credit at which the follower
	// dimension still counts as a pass.
	FollowerPassCredit float64 `yaml:"follower_pass_credit" mapstructure:"follower_pass_credit"`
}

// DefaultConfig returns the standard scoring thresholds.
func DefaultConfig() Config {
	return Config{
		KeywordOverlapThreshold: 0.8,
		FollowerPassCredit:      0.5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.KeywordOverlapThreshold <= 0 {
		c.KeywordOverlapThreshold = d.KeywordOverlapThreshold
	}
	if c.FollowerPassCredit <= 0 {
		c.FollowerPassCredit = d.FollowerPassCredit
	}
	return c
}

// AccuracyResult breaks down the accuracy computation.
type AccuracyResult struct {
	Checked int                `json:"checked"`
	Credit  float64            `json:"credit"`
	Score   int                `json:"score"`
	Detail  map[string]float64 `json:"detail,omitempty"`
}

// Accuracy scores the payload against the expected profile. Each dimension
// contributes credit in [0, 1]; the overall score is the credit fraction of
// checked dimensions, rounded to 0-100. No checked dimensions yields 0.
func Accuracy(cfg Config, payload model.ProfilePayload, expected *model.ExpectedProfile) AccuracyResult {
	cfg = cfg.withDefaults()
	res := AccuracyResult{Detail: make(map[string]float64)}
	if expected == nil {
		return res
	}

	if expected.HasFollowerRange() {
		if count, ok := payload.FollowerCount(); ok {
			credit := followerCredit(count, expected.FollowerMin, expected.FollowerMax)
			res.Checked++
			res.Credit += credit
			res.Detail["follower_count"] = credit
		}
	}

	if len(expected.BioKeywords) > 0 {
		if bio, ok := payload.Bio(); ok {
			overlap := keywordOverlap(bio, expected.BioKeywords)
			credit := 0.0
			if overlap >= cfg.KeywordOverlapThreshold {
				credit = 1.0
			}
			res.Checked++
			res.Credit += credit
			res.Detail["bio_keywords"] = credit
		}
	}

	if expected.Verified != nil {
		if verified, ok := payload.Verified(); ok {
			credit := 0.0
			if verified == *expected.Verified {
				credit = 1.0
			}
			res.Checked++
			res.Credit += credit
			res.Detail["verified"] = credit
		}
	}

	if len(expected.LinkPatterns) > 0 {
		if links := payload.Links(); len(links) > 0 {
			credit := linkPatternCredit(links, expected.LinkPatterns)
			res.Checked++
			res.Credit += credit
			res.Detail["link_patterns"] = credit
		}
	}

	if res.Checked == 0 {
		return res
	}
	res.Score = int(math.Round(res.Credit / float64(res.Checked) * 100))
	return res
}

// followerCredit gives full credit inside [min, max] and partial credit by
// relative variance outside it: a count 20% past the nearest bound earns 0.8.
func followerCredit(count, min, max int64) float64 {
	if max > 0 && count > max {
		return varianceCredit(count, max)
	}
	if min > 0 && count < min {
		return varianceCredit(count, min)
	}
	return 1.0
}

func varianceCredit(count, bound int64) float64 {
	variance := math.Abs(float64(count-bound)) / float64(bound)
	return math.Max(0, 1-variance)
}

// keywordOverlap returns the fraction of expected keywords found in the bio,
// compared case-folded and Unicode-normalized.
func keywordOverlap(bio string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	folded := textnorm.Fold(bio)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(folded, textnorm.Fold(kw)) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}

// linkPatternCredit is the fraction of expected patterns matched by at least
// one extracted link (substring match, case-insensitive).
func linkPatternCredit(links, patterns []string) float64 {
	if len(patterns) == 0 {
		return 0
	}
	matched := 0
	for _, pat := range patterns {
		lp := strings.ToLower(pat)
		for _, link := range links {
			if strings.Contains(strings.ToLower(link), lp) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(patterns))
}

// CompletenessResult breaks down the completeness computation.
type CompletenessResult struct {
	Expected      int      `json:"expected"`
	ExactMatches  int      `json:"exact_matches"`
	DomainMatches int      `json:"domain_matches"`
	Missing       []string `json:"missing,omitempty"`
	Score         int      `json:"score"`
}

// Completeness credits each expected link with an exact URL substring match
// first, then a same-registrable-domain match, else records it missing.
// With no expectations, any extracted links score 100 and none score 0.
func Completeness(actualLinks, expectedLinks []string) CompletenessResult {
	res := CompletenessResult{Expected: len(expectedLinks)}
	if len(expectedLinks) == 0 {
		if len(actualLinks) > 0 {
			res.Score = 100
		}
		return res
	}

	for _, want := range expectedLinks {
		if matchExact(actualLinks, want) {
			res.ExactMatches++
			continue
		}
		if matchDomain(actualLinks, want) {
			res.DomainMatches++
			continue
		}
		res.Missing = append(res.Missing, want)
	}

	res.Score = int(math.Round(float64(res.ExactMatches+res.DomainMatches) / float64(res.Expected) * 100))
	return res
}

func matchExact(links []string, want string) bool {
	lw := strings.ToLower(normalizeURL(want))
	for _, link := range links {
		if strings.Contains(strings.ToLower(normalizeURL(link)), lw) {
			return true
		}
	}
	return false
}

func matchDomain(links []string, want string) bool {
	wd := registrableDomain(want)
	if wd == "" {
		return false
	}
	for _, link := range links {
		if registrableDomain(link) == wd {
			return true
		}
	}
	return false
}

// normalizeURL strips scheme and trailing slash so substring matching is not
// defeated by http/https or formatting differences.
func normalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimSuffix(s, "/")
}

// registrableDomain extracts the last two host labels ("shop.example.com" ->
// "example.com"). Multi-label public suffixes are approximated by keeping a
// third label for common two-part TLDs.
func registrableDomain(raw string) string {
	s := raw
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return host
	}
	keep := 2
	if len(labels) >= 3 && twoPartTLDs[labels[len(labels)-2]+"."+labels[len(labels)-1]] {
		keep = 3
	}
	return strings.Join(labels[len(labels)-keep:], ".")
}

var twoPartTLDs = map[string]bool{
	"co.uk":  true,
	"com.au": true,
	"com.br": true,
	"co.jp":  true,
	"co.in":  true,
}
