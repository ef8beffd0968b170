// Package runner drives extraction attempts through timeout, retry and
// backoff, turning every outcome — success, failure, panic — into an
// AttemptResult. Nothing escapes the runner's boundary: a misbehaving
// extractor degrades one attempt, never the matrix.
package runner

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/linkscope/audit-cli/internal/classify"
	"github.com/linkscope/audit-cli/internal/extractor"
	"github.com/linkscope/audit-cli/internal/integrity"
	"github.com/linkscope/audit-cli/internal/model"
	"github.com/linkscope/audit-cli/internal/profile"
	"github.com/linkscope/audit-cli/internal/scoring"
)

// Config controls attempt execution and retry behavior.
type Config struct {
	// MaxRetries is the number of retries after the first attempt, so total
	// attempts = 1 + MaxRetries. Default: 3.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`

	// AttemptTimeout races each extractor call. Default: 30s.
	AttemptTimeout time.Duration `yaml:"attempt_timeout" mapstructure:"attempt_timeout"`

	// InitialBackoff is the base delay before the first retry. Default: 1s.
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`

	// MaxBackoff caps the backoff duration. Default: 30s.
	MaxBackoff time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`

	// Multiplier scales the backoff after each attempt. Default: 2.0.
	Multiplier float64 `yaml:"multiplier" mapstructure:"multiplier"`

	// JitterFraction adds random jitter as a fraction of the computed delay.
	// Default: 0.25.
	JitterFraction float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`

	// PaceInterval is the polite delay between attempt starts. Default: 2s.
	PaceInterval time.Duration `yaml:"pace_interval" mapstructure:"pace_interval"`

	// Concurrency bounds the worker pool. Default: 1 (sequential).
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`

	// RunBudget is the maximum wall clock for one matrix run; on expiry the
	// aggregated health is marked partial. Zero disables the budget.
	RunBudget time.Duration `yaml:"run_budget" mapstructure:"run_budget"`
}

// DefaultConfig returns sensible runner defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		AttemptTimeout: 30 * time.Second,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
		PaceInterval:   2 * time.Second,
		Concurrency:    1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = d.AttemptTimeout
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.Multiplier <= 0 {
		c.Multiplier = d.Multiplier
	}
	if c.JitterFraction < 0 {
		c.JitterFraction = 0
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	return c
}

// Runner executes attempts for one run. The validator (and its fingerprint
// registry) is run-scoped, so a Runner must not be reused across runs.
type Runner struct {
	cfg        Config
	scoringCfg scoring.Config
	factory    extractor.Factory
	validator  *integrity.Validator
	profiles   *profile.Store
	runID      string
}

// New creates a Runner for a single run.
func New(cfg Config, scoringCfg scoring.Config, integrityCfg integrity.Config, factory extractor.Factory, profiles *profile.Store) *Runner {
	return &Runner{
		cfg:        cfg.withDefaults(),
		scoringCfg: scoringCfg,
		factory:    factory,
		validator:  integrity.NewValidator(integrityCfg),
		profiles:   profiles,
		runID:      uuid.New().String(),
	}
}

// RunID returns the run identifier attempts are recorded under.
func (r *Runner) RunID() string { return r.runID }

// RunAttempt drives one (subject, platform) test to a finalized
// AttemptResult. It never returns an error: failures are classified into the
// result, retryable ones after backoff up to MaxRetries.
func (r *Runner) RunAttempt(ctx context.Context, subject model.Subject) model.AttemptResult {
	expected := r.profiles.Get(subject)

	var (
		attempt int
		total   time.Duration
		lastErr model.ErrorDetails
	)
	for {
		outcome := r.tryOnce(ctx, subject)
		total += outcome.Duration

		if outcome.Success {
			return r.finalizeSuccess(subject, expected, outcome, attempt, total)
		}

		lastErr = *outcome.Error
		if !lastErr.Retryable || attempt >= r.cfg.MaxRetries || ctx.Err() != nil {
			break
		}

		delay := backoff(attempt, r.cfg)
		zap.L().Debug("runner: retrying attempt",
			zap.String("subject", subject.Key()),
			zap.String("error_type", string(lastErr.Type)),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
		if ctx.Err() != nil {
			break
		}
		attempt++
	}

	zap.L().Warn("runner: attempt failed",
		zap.String("subject", subject.Key()),
		zap.String("error_type", string(lastErr.Type)),
		zap.Int("retries", attempt),
	)

	return model.AttemptResult{
		ID:             uuid.New().String(),
		RunID:          r.runID,
		Subject:        subject,
		Success:        false,
		OverallSuccess: false,
		Error:          &lastErr,
		RetryCount:     attempt,
		ResponseTimeMS: total.Milliseconds(),
		Timestamp:      time.Now().UTC(),
	}
}

func (r *Runner) finalizeSuccess(subject model.Subject, expected *model.ExpectedProfile, outcome model.ExtractionOutcome, retries int, total time.Duration) model.AttemptResult {
	acc := scoring.Accuracy(r.scoringCfg, outcome.Payload, expected)

	var expectedLinks []string
	if expected != nil {
		expectedLinks = expected.ExpectedLinks
	}
	comp := scoring.Completeness(outcome.Payload.Links(), expectedLinks)

	verdict := r.validator.Validate(subject, outcome.Payload, expected)

	// A critical integrity failure is a silent correctness bug, not absence
	// of data: the extractor's own success flag does not survive it.
	overall := verdict.Valid

	if !verdict.Valid {
		zap.L().Warn("runner: integrity issues detected",
			zap.String("subject", subject.Key()),
			zap.Int("confidence", verdict.Confidence),
			zap.Int("issues", len(verdict.Issues)),
		)
	}

	return model.AttemptResult{
		ID:                uuid.New().String(),
		RunID:             r.runID,
		Subject:           subject,
		Success:           true,
		OverallSuccess:    overall,
		Payload:           outcome.Payload,
		AccuracyScore:     acc.Score,
		CompletenessScore: comp.Score,
		Integrity:         &verdict,
		RetryCount:        retries,
		ResponseTimeMS:    total.Milliseconds(),
		Timestamp:         time.Now().UTC(),
	}
}

// tryOnce makes a single extractor call raced against the attempt timeout.
// Panics from the extractor collaborator are caught and surface as UNKNOWN
// failures rather than aborting the matrix.
func (r *Runner) tryOnce(ctx context.Context, subject model.Subject) model.ExtractionOutcome {
	start := time.Now()
	payload, err := r.extract(ctx, subject)
	elapsed := time.Since(start)

	if err != nil {
		details := classify.Classify(err)
		return model.ExtractionOutcome{Error: &details, Duration: elapsed}
	}

	// Schema-check the opaque payload at the boundary before scoring.
	if verr := payload.Validate(); verr != nil {
		details := model.ErrorDetails{
			Type:    model.ErrorUnknown,
			Message: verr.Error(),
		}
		return model.ExtractionOutcome{Error: &details, Duration: elapsed}
	}

	return model.ExtractionOutcome{Success: true, Payload: payload, Duration: elapsed}
}

type extractResult struct {
	payload model.ProfilePayload
	err     error
}

func (r *Runner) extract(ctx context.Context, subject model.Subject) (model.ProfilePayload, error) {
	actx, cancel := context.WithTimeout(ctx, r.cfg.AttemptTimeout)
	defer cancel()

	session, err := r.factory.NewSession(actx, subject.Platform)
	if err != nil {
		return nil, eris.Wrap(err, "runner: acquire session")
	}

	done := make(chan extractResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- extractResult{err: eris.Errorf("runner: extractor panic: %v", rec)}
			}
		}()
		payload, err := session.Extract(actx, subject)
		done <- extractResult{payload: payload, err: err}
	}()

	select {
	case <-actx.Done():
		// Best-effort cancellation was signaled via the context; the session
		// owns its own resource teardown.
		_ = session.Close()
		return nil, actx.Err()
	case res := <-done:
		_ = session.Close()
		return res.payload, res.err
	}
}

// backoff computes base·multiplier^attempt with jitter, capped at MaxBackoff.
func backoff(attempt int, cfg Config) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}
	if cfg.JitterFraction > 0 {
		jitterRange := delay * cfg.JitterFraction
		delay += (rand.Float64()*2 - 1) * jitterRange
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
