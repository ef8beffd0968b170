package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linkscope/audit-cli/internal/extractor"
	"github.com/linkscope/audit-cli/internal/health"
	"github.com/linkscope/audit-cli/internal/model"
	"github.com/linkscope/audit-cli/internal/profile"
	"github.com/linkscope/audit-cli/internal/runner"
	"github.com/linkscope/audit-cli/internal/trend"
)

var (
	runPlatform    string
	runUsername    string
	runQuick       bool
	runConcurrency int
	runOutput      string
)

// quickMatrixSize caps the quick matrix at one subject per platform.
const quickMatrixSize = 1

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the extraction test matrix and record platform health",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		profiles, err := profile.Load(cfg.Profiles.Path)
		if err != nil {
			return eris.Wrap(err, "load profiles")
		}

		factory, err := initExtractorFactory()
		if err != nil {
			return err
		}

		subjects := selectSubjects(profiles)
		if len(subjects) == 0 {
			return eris.New("no subjects match the selection")
		}

		runnerCfg := cfg.Runner
		if runConcurrency > 0 {
			runnerCfg.Concurrency = runConcurrency
		}

		r := runner.New(runnerCfg, cfg.Scoring, cfg.Integrity, factory, profiles)

		run := model.Run{
			ID:        r.RunID(),
			Status:    model.RunStatusRunning,
			Subjects:  len(subjects),
			StartedAt: time.Now().UTC(),
		}
		if err := st.CreateRun(ctx, run); err != nil {
			return eris.Wrap(err, "create run")
		}

		report := r.RunMatrix(ctx, subjects)

		if err := st.SaveAttempts(ctx, report.Results); err != nil {
			return eris.Wrap(err, "save attempts")
		}

		aggregator := health.NewAggregator(cfg.Health)
		healths := aggregator.Aggregate(report.RunID, report.Results, report.Partial)

		analyzer := trend.NewAnalyzer(cfg.Trend, st)
		if err := analyzer.Record(ctx, healths); err != nil {
			return eris.Wrap(err, "record health history")
		}

		status := model.RunStatusComplete
		if report.Partial {
			status = model.RunStatusPartial
		}
		if err := st.FinishRun(ctx, report.RunID, status, report.Successes(), report.FinishedAt); err != nil {
			return eris.Wrap(err, "finish run")
		}

		zap.L().Info("audit run complete",
			zap.String("run_id", report.RunID),
			zap.Int("subjects", len(subjects)),
			zap.Int("successes", report.Successes()),
			zap.Bool("partial", report.Partial),
		)

		out := struct {
			Run             *runner.RunReport      `json:"run"`
			Health          []model.PlatformHealth `json:"health"`
			Recommendations []model.Recommendation `json:"recommendations"`
		}{
			Run:             report,
			Health:          healths,
			Recommendations: health.RecommendAll(healths),
		}
		return writeJSON(runOutput, out)
	},
}

// selectSubjects applies the run selector flags to the profile store's full
// matrix: single pair, quick (one subject per platform), or full.
func selectSubjects(profiles *profile.Store) []model.Subject {
	if runUsername != "" || runPlatform != "" {
		return profiles.Filter(model.Platform(runPlatform), runUsername)
	}
	subjects := profiles.Subjects()
	if !runQuick {
		return subjects
	}

	seen := make(map[model.Platform]int)
	var out []model.Subject
	for _, s := range subjects {
		if seen[s.Platform] >= quickMatrixSize {
			continue
		}
		seen[s.Platform]++
		out = append(out, s)
	}
	return out
}

// initExtractorFactory wires the extractor boundary. With a fixture path
// configured, scripted payloads drive the engine; production deployments
// plug real per-platform extractors in via the same Factory interface.
func initExtractorFactory() (extractor.Factory, error) {
	if cfg.Fixtures.Path == "" {
		return nil, eris.New("no extractor configured: set fixtures.path or register a platform extractor")
	}
	factory, err := extractor.LoadFixtureFile(cfg.Fixtures.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load fixtures")
	}
	return factory, nil
}

func writeJSON(path string, v any) error {
	w := os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create output %s", path)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	runCmd.Flags().StringVar(&runPlatform, "platform", "", "limit to one platform")
	runCmd.Flags().StringVar(&runUsername, "username", "", "limit to one username")
	runCmd.Flags().BoolVar(&runQuick, "quick", false, "one subject per platform")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "worker pool size (default from config)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "write JSON report to file (default stdout)")
	rootCmd.AddCommand(runCmd)
}
