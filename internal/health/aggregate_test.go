package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkscope/audit-cli/internal/model"
)

var fixedNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func success(platform model.Platform, accuracy, completeness int, responseMS int64) model.AttemptResult {
	return model.AttemptResult{
		Subject:           model.Subject{Platform: platform, Username: "u"},
		Success:           true,
		OverallSuccess:    true,
		AccuracyScore:     accuracy,
		CompletenessScore: completeness,
		ResponseTimeMS:    responseMS,
	}
}

func failure(platform model.Platform, errType model.ErrorType, responseMS int64) model.AttemptResult {
	return model.AttemptResult{
		Subject:        model.Subject{Platform: platform, Username: "u"},
		Error:          &model.ErrorDetails{Type: errType},
		ResponseTimeMS: responseMS,
	}
}

func TestAggregate_ScoreFormula(t *testing.T) {
	a := NewAggregator(DefaultConfig()).WithNow(func() time.Time { return fixedNow })

	results := []model.AttemptResult{
		success(model.PlatformInstagram, 90, 80, 2000),
		failure(model.PlatformInstagram, model.ErrorTimeout, 4000),
	}

	healths := a.Aggregate("run-1", results, false)
	require.Len(t, healths, 1)
	h := healths[0]

	assert.Equal(t, model.PlatformInstagram, h.Platform)
	assert.Equal(t, "run-1", h.RunID)
	assert.Equal(t, 2, h.Attempts)
	assert.InDelta(t, 50.0, h.SuccessRate, 0.001)
	assert.InDelta(t, 90.0, h.AvgAccuracy, 0.001)
	assert.InDelta(t, 80.0, h.AvgCompleteness, 0.001)
	assert.InDelta(t, 3000.0, h.AvgResponseTimeMS, 0.001)

	// 0.4*50 + 0.3*90 + 0.2*80 + 0.1*max(0, 100-3000/100) = 70
	assert.Equal(t, 70, h.HealthScore)
	assert.Equal(t, model.StatusWarning, h.Status)
	assert.Equal(t, map[model.ErrorType]int{model.ErrorTimeout: 1}, h.ErrorHistogram)
	assert.Equal(t, fixedNow, h.Timestamp)
}

func TestAggregate_PerfectRun(t *testing.T) {
	a := NewAggregator(DefaultConfig())
	healths := a.Aggregate("run-1", []model.AttemptResult{
		success(model.PlatformYouTube, 100, 100, 0),
	}, false)

	require.Len(t, healths, 1)
	assert.Equal(t, 100, healths[0].HealthScore)
	assert.Equal(t, model.StatusExcellent, healths[0].Status)
	assert.Nil(t, healths[0].ErrorHistogram)
}

func TestAggregate_SlowResponseNeverGoesNegative(t *testing.T) {
	a := NewAggregator(DefaultConfig())
	healths := a.Aggregate("run-1", []model.AttemptResult{
		success(model.PlatformTikTok, 100, 100, 60_000),
	}, false)

	// Speed component floors at 0: 0.4*100 + 0.3*100 + 0.2*100 + 0.1*0 = 90.
	require.Len(t, healths, 1)
	assert.Equal(t, 90, healths[0].HealthScore)
}

func TestAggregate_IntegrityFailureCountsAgainstSuccessRate(t *testing.T) {
	a := NewAggregator(DefaultConfig())

	contaminated := success(model.PlatformTwitch, 100, 100, 1000)
	contaminated.OverallSuccess = false
	contaminated.Integrity = &model.IntegrityVerdict{Valid: false}

	healths := a.Aggregate("run-1", []model.AttemptResult{
		contaminated,
		success(model.PlatformTwitch, 100, 100, 1000),
	}, false)

	require.Len(t, healths, 1)
	assert.InDelta(t, 50.0, healths[0].SuccessRate, 0.001)
	// The contaminated attempt's scores do not inflate the averages.
	assert.InDelta(t, 100.0, healths[0].AvgAccuracy, 0.001)
}

func TestAggregate_GroupsByPlatformSorted(t *testing.T) {
	a := NewAggregator(DefaultConfig())
	healths := a.Aggregate("run-1", []model.AttemptResult{
		success(model.PlatformYouTube, 100, 100, 100),
		success(model.PlatformInstagram, 100, 100, 100),
		failure(model.PlatformTikTok, model.ErrorNotFound, 100),
	}, false)

	require.Len(t, healths, 3)
	assert.Equal(t, model.PlatformInstagram, healths[0].Platform)
	assert.Equal(t, model.PlatformTikTok, healths[1].Platform)
	assert.Equal(t, model.PlatformYouTube, healths[2].Platform)
}

func TestAggregate_PartialFlagPropagates(t *testing.T) {
	a := NewAggregator(DefaultConfig())
	healths := a.Aggregate("run-1", []model.AttemptResult{
		success(model.PlatformBeacons, 100, 100, 100),
	}, true)

	require.Len(t, healths, 1)
	assert.True(t, healths[0].Partial)
}

func TestAggregate_EmptyResults(t *testing.T) {
	a := NewAggregator(DefaultConfig())
	assert.Empty(t, a.Aggregate("run-1", nil, false))
}

func TestAggregate_AllFailed(t *testing.T) {
	a := NewAggregator(DefaultConfig())
	healths := a.Aggregate("run-1", []model.AttemptResult{
		failure(model.PlatformLinktree, model.ErrorCaptchaRequired, 500),
		failure(model.PlatformLinktree, model.ErrorCaptchaRequired, 700),
	}, false)

	require.Len(t, healths, 1)
	h := healths[0]
	assert.Zero(t, h.SuccessRate)
	assert.Zero(t, h.AvgAccuracy)
	assert.Equal(t, 2, h.ErrorHistogram[model.ErrorCaptchaRequired])
	assert.Equal(t, model.StatusCritical, h.Status)
}

func TestTierBoundaries(t *testing.T) {
	assert.Equal(t, model.StatusExcellent, tier(90))
	assert.Equal(t, model.StatusHealthy, tier(89))
	assert.Equal(t, model.StatusHealthy, tier(75))
	assert.Equal(t, model.StatusWarning, tier(74))
	assert.Equal(t, model.StatusWarning, tier(50))
	assert.Equal(t, model.StatusCritical, tier(49))
	assert.Equal(t, model.StatusCritical, tier(0))
}
