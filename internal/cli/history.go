package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/preflight/internal/db"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		path, err := db.DefaultDBPath()
		if err != nil {
			return err
		}
		d, err := db.Open(path)
		if err != nil {
			return err
		}
		defer d.Close()
		if err := d.Migrate(); err != nil {
			return err
		}

		runs, err := d.RecentRuns(limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-5s %-22s %-13s %-10s %-4s %-6s %s\n",
			"ID", "STARTED", "STATUS", "FAILED", "DRY", "STEPS", "REPO")
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 80))
		for _, r := range runs {
			dry := ""
			if r.DryRun {
				dry = "yes"
			}
			fmt.Fprintf(w, "%-5d %-22s %-13s %-10s %-4s %-6d %s\n",
				r.ID, r.StartedAt, r.Status, r.FailedStep, dry, r.Steps, r.Repo)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of runs to show")
}
