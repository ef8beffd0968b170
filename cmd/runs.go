package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/linkscope/audit-cli/internal/model"
	"github.com/linkscope/audit-cli/internal/store"
)

var (
	runsStatus string
	runsLimit  int
	runsOutput string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded audit runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(runsStatus),
			Limit:  runsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list runs")
		}

		out := struct {
			Runs []model.Run `json:"runs"`
		}{Runs: runs}
		return writeJSON(runsOutput, out)
	},
}

var runsAttemptsCmd = &cobra.Command{
	Use:   "attempts <run-id>",
	Short: "List the attempt results of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		attempts, err := st.ListAttempts(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "list attempts for run %s", args[0])
		}

		out := struct {
			Attempts []model.AttemptResult `json:"attempts"`
		}{Attempts: attempts}
		return writeJSON(runsOutput, out)
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "filter by run status")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	runsCmd.PersistentFlags().StringVar(&runsOutput, "output", "", "write JSON to file (default stdout)")
	runsCmd.AddCommand(runsAttemptsCmd)
	rootCmd.AddCommand(runsCmd)
}
