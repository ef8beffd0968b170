package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/linkscope/audit-cli/internal/health"
	"github.com/linkscope/audit-cli/internal/model"
)

var (
	healthPlatform string
	healthOutput   string
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the latest per-platform health and recommendations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		platforms, err := st.Platforms(ctx)
		if err != nil {
			return eris.Wrap(err, "list platforms")
		}
		if healthPlatform != "" {
			platforms = []model.Platform{model.Platform(healthPlatform)}
		}

		var healths []model.PlatformHealth
		for _, p := range platforms {
			h, err := st.LatestHealth(ctx, p)
			if err != nil {
				return eris.Wrapf(err, "latest health for %s", p)
			}
			if h != nil {
				healths = append(healths, *h)
			}
		}
		if len(healths) == 0 {
			return eris.New("no health history recorded yet, run `audit-cli run` first")
		}

		out := struct {
			Health          []model.PlatformHealth `json:"health"`
			Recommendations []model.Recommendation `json:"recommendations"`
		}{
			Health:          healths,
			Recommendations: health.RecommendAll(healths),
		}
		return writeJSON(healthOutput, out)
	},
}

func init() {
	healthCmd.Flags().StringVar(&healthPlatform, "platform", "", "limit to one platform")
	healthCmd.Flags().StringVar(&healthOutput, "output", "", "write JSON to file (default stdout)")
	rootCmd.AddCommand(healthCmd)
}
