package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/preflight/internal/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Manage the log of pending change descriptions",
	Long: `The journal accumulates short descriptions of work in progress. They feed
the generated commit message and are cleared after a successful commit.`,
}

var journalAddCmd = &cobra.Command{
	Use:   "add [text...]",
	Short: "Append a change description to the journal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openJournal()
		if err != nil {
			return err
		}
		if err := store.Append(strings.Join(args, " ")); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Recorded.")
		return nil
	},
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show journal entries in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openJournal()
		if err != nil {
			return err
		}
		entries, err := store.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Journal is empty.")
			return nil
		}
		w := cmd.OutOrStdout()
		for i, e := range entries {
			fmt.Fprintf(w, "%2d. %s  (%s)\n", i+1, e.Text, e.CreatedAt)
		}
		return nil
	},
}

var journalClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all journal entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openJournal()
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Journal cleared.")
		return nil
	},
}

func openJournal() (*journal.Store, error) {
	root, err := resolveRepoRoot()
	if err != nil {
		return nil, err
	}
	return journal.NewStore(root), nil
}

func init() {
	journalCmd.AddCommand(journalAddCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalClearCmd)
}
