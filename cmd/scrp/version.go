package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scrp %s\n", Version)
		fmt.Println("news feed builder for scraped sites")
		fmt.Println("github.com/pders01/scrp")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
