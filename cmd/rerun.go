package main

import (
	"github.com/spf13/cobra"
)

// rerun is shorthand for orchestrate --errored.
var rerunCmd = &cobra.Command{
	Use:   "rerun",
	Short: "Retry pairs whose latest run errored",
	RunE: func(cmd *cobra.Command, args []string) error {
		orchestrateErrored = true
		return orchestrateCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(rerunCmd)
}
