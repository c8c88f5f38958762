package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/gauntlet/internal/leaderboard"
)

var leaderboardJSON bool

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show challenge kill rates and model pass rates",
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

		board, err := leaderboard.Build(ctx, st)
		if err != nil {
			return err
		}

		if leaderboardJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(board)
		}

		formatBoard(os.Stdout, board)
		return nil
	},
}

func init() {
	leaderboardCmd.Flags().BoolVar(&leaderboardJSON, "json", false, "emit JSON instead of tables")
	rootCmd.AddCommand(leaderboardCmd)
}

func formatBoard(out io.Writer, board *leaderboard.Board) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "CHALLENGE\tCATEGORY\tATTEMPTS\tKILLS\tKILL RATE")
	for _, c := range board.Challenges {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.0f%%\n",
			c.Slug, c.Category, c.Attempts, c.Kills, c.KillRate*100)
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "MODEL\tPROVIDER\tATTEMPTS\tPASSES\tPASS RATE")
	for _, m := range board.Models {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.0f%%\n",
			m.Gateway, m.Provider, m.Attempts, m.Passes, m.PassRate*100)
	}
	_ = w.Flush()
}
