package main

import (
	"github.com/spf13/cobra"

	"github.com/pders01/scrp/internal/pipeline"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Merge the stored snapshot into the rolling feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := pipeline.NewRunner(cfg)
		res, err := runner.Build()
		if err != nil {
			return err
		}

		printBuild(res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
