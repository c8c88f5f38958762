package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gauntlet/internal/orchestrator"
)

var orchestrateErrored bool

var orchestrateCmd = &cobra.Command{
	Use:   "orchestrate",
	Short: "Run the full challenge battery against all active models",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("orchestrate"); err != nil {
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

		o := initOrchestrator(st)

		var batch *orchestrator.Batch
		if orchestrateErrored {
			batch, err = o.RunErrored(ctx)
		} else {
			batch, err = o.RunAll(ctx)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Scheduled %d runs, estimated %d minutes.\n", batch.Scheduled, batch.EstimatedMinutes)

		// The CLI process owns the workers, so it blocks until the
		// batch drains. The HTTP API is the fire-and-forget surface.
		summary, err := batch.Wait(ctx)
		if err != nil {
			return eris.Wrap(err, "orchestrate")
		}

		zap.L().Info("orchestrate complete",
			zap.Int("executed", summary.Executed),
			zap.Int("passed", summary.Passed),
			zap.Int("failed", summary.Failed),
			zap.Int("errored", summary.Errored),
		)
		fmt.Printf("Executed %d: %d passed, %d failed, %d errored.\n",
			summary.Executed, summary.Passed, summary.Failed, summary.Errored)
		return nil
	},
}

func init() {
	orchestrateCmd.Flags().BoolVar(&orchestrateErrored, "errored", false, "retry only pairs whose latest run errored")
	rootCmd.AddCommand(orchestrateCmd)
}
