package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "preflight",
	Short: "preflight — a commit gate with AI-assisted fixes",
	Long: `preflight runs your format, typecheck and test commands against the working
tree before anything is committed. Failing steps are retried with AI-proposed
patches; steps that stay broken escalate to an interactive decision.

Dry-run mode executes the same pipeline against a snapshot of the uncommitted
state and restores it byte-for-byte afterwards, leaving proposed patches and a
run summary under .preflight/runs/.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}
