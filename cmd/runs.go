package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/gauntlet/internal/cost"
	"github.com/sells-group/gauntlet/internal/model"
	"github.com/sells-group/gauntlet/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List test run history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)

		models, err := st.ListActiveModels(ctx)
		if err != nil {
			return eris.Wrap(err, "runs list models")
		}
		gatewayByModel := make(map[string]string, len(models))
		for _, m := range models {
			gatewayByModel[m.ID] = m.GatewayID
		}
		total := cost.NewCalculator(cost.DefaultRates()).Total(gatewayByModel, runs)
		if total > 0 {
			fmt.Printf("\nEstimated spend: $%.4f\n", total)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().String("status", "", "filter by run status (success, error)")
	runsCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsCmd.Flags().Bool("json", false, "emit JSON instead of a table")
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.TestRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCHALLENGE\tMODEL\tSTATUS\tCORRECT\tEXECUTED\tLATENCY")
	_, _ = fmt.Fprintln(w, "--\t---------\t-----\t------\t-------\t--------\t-------")

	for _, r := range runs {
		correct := ""
		if r.Status == model.RunStatusSuccess {
			correct = fmt.Sprintf("%t", r.IsCorrect)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%dms\n",
			truncateID(r.ID),
			truncateID(r.ChallengeID),
			truncateID(r.ModelID),
			r.Status,
			correct,
			r.ExecutedAt.Format("2006-01-02 15:04"),
			r.ExecutionMs,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
