package runner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/linkscope/audit-cli/internal/model"
)

// RunReport is the outcome of executing a test matrix.
type RunReport struct {
	RunID      string                `json:"run_id"`
	Results    []model.AttemptResult `json:"results"`
	Partial    bool                  `json:"partial"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
}

// Successes counts attempts with OverallSuccess.
func (r *RunReport) Successes() int {
	n := 0
	for i := range r.Results {
		if r.Results[i].OverallSuccess {
			n++
		}
	}
	return n
}

// RunMatrix executes all subjects through a bounded worker pool with polite
// inter-attempt pacing. Attempts share no state except the validator's
// fingerprint registry. When the run budget expires, finished results are
// kept and the report is marked partial; unstarted subjects are skipped.
func (r *Runner) RunMatrix(ctx context.Context, subjects []model.Subject) *RunReport {
	report := &RunReport{
		RunID:     r.runID,
		StartedAt: time.Now().UTC(),
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if r.cfg.RunBudget > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.RunBudget)
		defer cancel()
	}

	limiter := rate.NewLimiter(rate.Every(r.cfg.PaceInterval), 1)
	if r.cfg.PaceInterval <= 0 {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	zap.L().Info("runner: starting matrix",
		zap.String("run_id", r.runID),
		zap.Int("subjects", len(subjects)),
		zap.Int("concurrency", r.cfg.Concurrency),
	)

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(runCtx)
	g.SetLimit(r.cfg.Concurrency)

	for _, subject := range subjects {
		g.Go(func() error {
			if err := limiter.Wait(gCtx); err != nil {
				// Budget expired before this attempt started.
				mu.Lock()
				report.Partial = true
				mu.Unlock()
				return nil
			}

			result := r.RunAttempt(gCtx, subject)

			mu.Lock()
			report.Results = append(report.Results, result)
			if gCtx.Err() != nil {
				report.Partial = true
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	report.FinishedAt = time.Now().UTC()

	zap.L().Info("runner: matrix complete",
		zap.String("run_id", r.runID),
		zap.Int("results", len(report.Results)),
		zap.Int("successes", report.Successes()),
		zap.Bool("partial", report.Partial),
	)

	return report
}
