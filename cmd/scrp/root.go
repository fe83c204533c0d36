package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/scrp/internal/config"
	"github.com/pders01/scrp/internal/debuglog"
)

var (
	cfgFile  string
	logLevel string
	logFile  string
	cfg      *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scrp",
	Short: "Incremental news feed builder for scraped sites",
	Long: `scrp turns a scraped news listing page into RSS feeds.

It fetches the listing HTML through a FlareSolverr instance, merges the
articles it finds into a persistent rolling feed, and cuts daily delta
feeds with everything published since the previous run. Point a feed
reader at the rolling feed for history, or at the daily feeds for just
the new items.

Example usage:
  scrp run                     # Fetch, rebuild the feed, cut daily deltas
  scrp fetch                   # Only snapshot the listing page
  scrp build                   # Merge the snapshot into the rolling feed
  scrp digest                  # Cut daily deltas and advance the watermark
  scrp status                  # Show persisted pipeline state`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "init", "version", "help", "completion":
			return nil
		}
		return initConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/scrp/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error, off (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log destination file (overrides config; empty logs to stderr)")
}

// initConfig loads and validates configuration, then points the logger
// where the flags or the config say.
func initConfig() error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if logLevel != "" {
		loaded.Logging.Level = logLevel
	}
	if logFile != "" {
		loaded.Logging.File = config.ExpandPath(logFile)
	}

	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(loaded.Logging.Level), loaded.Logging.File); err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}

	cfg = loaded
	return nil
}
