package main

import (
	"github.com/spf13/cobra"

	"github.com/pders01/scrp/internal/pipeline"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Cut daily delta feeds and advance the watermark",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := pipeline.NewRunner(cfg)
		res, err := runner.Digest()
		if err != nil {
			return err
		}

		printDigest(res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(digestCmd)
}
