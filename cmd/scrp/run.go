package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/scrp/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, rebuild the rolling feed and cut daily deltas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := pipeline.NewRunner(cfg)
		res, err := runner.Run(cmd.Context())
		if err != nil {
			return err
		}

		printBuild(res.Build)
		printDigest(res.Digest)
		return nil
	},
}

func printBuild(res pipeline.BuildResult) {
	fmt.Printf("Feed: %d extracted, %d new, %d evicted, %d total\n",
		res.Extracted, res.Inserted, res.Evicted, res.Total)
}

func printDigest(res pipeline.DigestResult) {
	if res.Placeholder {
		fmt.Printf("Digest: nothing new since %s, placeholder written\n",
			res.Cutoff.Format(time.RFC3339))
		return
	}
	fmt.Printf("Digest: %d new items in %d feeds\n", res.NewItems, res.Batches)
	for _, file := range res.Files {
		fmt.Printf("  %s\n", file)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
