package health

import (
	"fmt"
	"sort"

	"github.com/linkscope/audit-cli/internal/model"
)

// Recommend turns a platform's aggregated health into ordered, severity-
// ranked actions. It is a pure function of its input: the same snapshot
// always yields the same recommendations in the same order.
func Recommend(h model.PlatformHealth) []model.Recommendation {
	var recs []model.Recommendation
	add := func(sev model.Severity, action string) {
		recs = append(recs, model.Recommendation{
			Platform: h.Platform,
			Severity: sev,
			Action:   action,
		})
	}

	if h.SuccessRate < 50 {
		add(model.SeverityCritical, fmt.Sprintf(
			"success rate %.0f%% — extraction is failing for most subjects, fix immediately", h.SuccessRate))
	} else if h.SuccessRate < 75 {
		add(model.SeverityHigh, fmt.Sprintf(
			"success rate %.0f%% — investigate recurring failures", h.SuccessRate))
	}

	if n := h.ErrorHistogram[model.ErrorSelectorNotFound]; n > 0 {
		add(model.SeverityHigh, fmt.Sprintf(
			"%d selector-not-found failure(s) — platform markup likely changed, update extraction logic", n))
	}
	if n := h.ErrorHistogram[model.ErrorCaptchaRequired]; n > 0 {
		add(model.SeverityHigh, fmt.Sprintf(
			"%d captcha challenge(s) — extraction is being bot-detected, rotate sessions or slow pacing", n))
	}
	if n := h.ErrorHistogram[model.ErrorAuthRequired]; n > 0 {
		add(model.SeverityMedium, fmt.Sprintf(
			"%d auth-required failure(s) — refresh credentials or cookies", n))
	}
	if n := h.ErrorHistogram[model.ErrorRateLimited]; n > 0 {
		add(model.SeverityMedium, fmt.Sprintf(
			"%d rate-limit hit(s) — increase pacing interval", n))
	}

	if h.SuccessRate > 0 && h.AvgAccuracy < 80 {
		add(model.SeverityMedium, fmt.Sprintf(
			"average accuracy %.0f%% — extracted fields drift from expectations, review field mapping", h.AvgAccuracy))
	}
	if h.SuccessRate > 0 && h.AvgCompleteness < 80 {
		add(model.SeverityMedium, fmt.Sprintf(
			"average completeness %.0f%% — expected links are being missed", h.AvgCompleteness))
	}
	if h.AvgResponseTimeMS > 10000 {
		add(model.SeverityLow, fmt.Sprintf(
			"average response time %.0fms — consider tightening the attempt timeout", h.AvgResponseTimeMS))
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Severity.Rank() < recs[j].Severity.Rank()
	})
	return recs
}

// RecommendAll composes recommendations across platforms, ordered by
// severity then platform.
func RecommendAll(healths []model.PlatformHealth) []model.Recommendation {
	var recs []model.Recommendation
	for _, h := range healths {
		recs = append(recs, Recommend(h)...)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Severity.Rank() != recs[j].Severity.Rank() {
			return recs[i].Severity.Rank() < recs[j].Severity.Rank()
		}
		return recs[i].Platform < recs[j].Platform
	})
	return recs
}
