package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linkscope/audit-cli/internal/alert"
	"github.com/linkscope/audit-cli/internal/model"
	"github.com/linkscope/audit-cli/internal/trend"
)

var (
	trendsPlatform string
	trendsNotify   bool
	trendsOutput   string
)

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Compare latest health against the trailing baseline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		analyzer := trend.NewAnalyzer(cfg.Trend, st)

		var comparisons []model.BaselineComparison
		if trendsPlatform != "" {
			cmp, err := analyzer.Compare(ctx, model.Platform(trendsPlatform))
			if err != nil {
				return eris.Wrapf(err, "compare %s", trendsPlatform)
			}
			if cmp != nil {
				comparisons = append(comparisons, *cmp)
			}
		} else {
			comparisons, err = analyzer.CompareAll(ctx)
			if err != nil {
				return eris.Wrap(err, "compare all platforms")
			}
		}

		if trendsNotify {
			var alerts []model.Alert
			for _, cmp := range comparisons {
				alerts = append(alerts, cmp.Alerts...)
			}
			sent := alert.New(cfg.Alert).SendAlerts(ctx, alerts)
			zap.L().Info("trend alerts dispatched",
				zap.Int("total", len(alerts)),
				zap.Int("sent", sent),
			)
		}

		out := struct {
			Comparisons []model.BaselineComparison `json:"comparisons"`
		}{Comparisons: comparisons}
		return writeJSON(trendsOutput, out)
	},
}

func init() {
	trendsCmd.Flags().StringVar(&trendsPlatform, "platform", "", "limit to one platform")
	trendsCmd.Flags().BoolVar(&trendsNotify, "notify", false, "send alerts to the configured webhook")
	trendsCmd.Flags().StringVar(&trendsOutput, "output", "", "write JSON to file (default stdout)")
	rootCmd.AddCommand(trendsCmd)
}
