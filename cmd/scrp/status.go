package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/pders01/scrp/internal/pipeline"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show persisted pipeline state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := pipeline.NewRunner(cfg)
		st, err := runner.Status()
		if err != nil {
			return err
		}

		fmt.Print(renderStatus(st))
		return nil
	},
}

var (
	statusLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4")).Width(11)
	statusValue = lipgloss.NewStyle().Foreground(lipgloss.Color("#EAEAEA"))
	statusMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
)

func renderStatus(st *pipeline.Status) string {
	var b strings.Builder
	row := func(name, val string) {
		b.WriteString(statusLabel.Render(name) + " " + val + "\n")
	}

	row("Site", statusValue.Render(fmt.Sprintf("%s (%s)", st.SiteName, st.SiteURL)))
	row("Feed", statusValue.Render(fmt.Sprintf("%d items in %s", st.FeedItems, st.FeedPath)))

	if st.NewestTitle != "" {
		row("Newest", statusValue.Render(fmt.Sprintf("%s (%s)",
			st.NewestTitle, st.NewestTime.Format(time.RFC3339))))
	}

	if st.HasSnapshot {
		row("Snapshot", statusValue.Render(fmt.Sprintf("%d bytes, fetched %s",
			st.SnapshotSize, st.SnapshotTime.Format(time.RFC3339))))
	} else {
		row("Snapshot", statusMuted.Render("none"))
	}

	if st.Mark != nil {
		row("Watermark", statusValue.Render(fmt.Sprintf("last seen %s, last run %s",
			st.Mark.LastSeen.Format(time.RFC3339), st.Mark.LastRun.Format(time.RFC3339))))
	} else {
		row("Watermark", statusMuted.Render("none (next digest looks back 24h)"))
	}

	if len(st.DailyFiles) > 0 {
		row("Daily", statusValue.Render(strings.Join(st.DailyFiles, ", ")))
	} else {
		row("Daily", statusMuted.Render("none"))
	}

	return b.String()
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
