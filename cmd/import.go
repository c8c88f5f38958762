package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gauntlet/internal/battery"
)

var importBatteryPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import challenges and models from a battery YAML file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}

		f, err := battery.Load(importBatteryPath)
		if err != nil {
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

		nc, nm, err := battery.Sync(ctx, st, f)
		if err != nil {
			return eris.Wrap(err, "import battery")
		}

		zap.L().Info("import complete",
			zap.Int("challenges", nc),
			zap.Int("models", nm),
			zap.String("file", importBatteryPath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importBatteryPath, "file", "", "path to battery YAML file (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
