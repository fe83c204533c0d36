package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/scrp/internal/pipeline"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Snapshot the listing page without touching the feeds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := pipeline.NewRunner(cfg)
		if err := runner.Fetch(cmd.Context()); err != nil {
			return err
		}

		fmt.Printf("Snapshot saved to %s\n", cfg.Paths.Snapshot)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
