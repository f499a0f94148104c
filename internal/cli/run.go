package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/preflight/internal/ai"
	"github.com/lucasnoah/preflight/internal/config"
	"github.com/lucasnoah/preflight/internal/db"
	"github.com/lucasnoah/preflight/internal/engine"
	"github.com/lucasnoah/preflight/internal/execx"
	"github.com/lucasnoah/preflight/internal/gitx"
	"github.com/lucasnoah/preflight/internal/ignore"
	"github.com/lucasnoah/preflight/internal/journal"
	"github.com/lucasnoah/preflight/internal/patch"
	"github.com/lucasnoah/preflight/internal/snapshot"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pre-flight pipeline and commit on success",
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		abortOnFailure, _ := cmd.Flags().GetBool("abort-on-failure")
		noPush, _ := cmd.Flags().GetBool("no-push")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if errs := config.Validate(cfg); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", e)
			}
			return fmt.Errorf("config has %d validation error(s)", len(errs))
		}

		maxFix := cfg.Preflight.MaxFixAttempts
		if cmd.Flags().Changed("max-fix-attempts") {
			maxFix, _ = cmd.Flags().GetInt("max-fix-attempts")
		}

		root, err := resolveRepoRoot()
		if err != nil {
			return err
		}
		repo := gitx.NewRepo(&gitx.ExecGit{}, root)

		filter, err := ignore.Load(root)
		if err != nil {
			return fmt.Errorf("load %s: %w", ignore.FileName, err)
		}

		store := journal.NewStore(root)
		client := buildAIClient(cmd, cfg)

		eng := engine.New(
			execx.ShellRunner{},
			repo,
			filter,
			patch.NewApplier(repo, filter),
			snapshot.NewManager(repo, root, []string{engine.ArtifactDirName}),
			root,
		)

		opts := engine.Options{
			MaxFixAttempts: maxFix,
			AbortOnFailure: abortOnFailure || cfg.Preflight.AbortOnFailure,
			DryRun:         dryRun,
			Hooks: engine.Hooks{
				Logger:  engine.WriterLogger{W: cmd.ErrOrStderr()},
				Resolve: promptResolver(cmd),
			},
		}
		if client != nil {
			opts.Hooks.Fixer = client
			opts.Hooks.CommitMessage = func(ctx context.Context, o *engine.Outcome) (string, error) {
				return generateCommitMessage(ctx, client, store, repo)
			}
		}

		started := time.Now()
		outcome, err := eng.Run(cmd.Context(), cfg.StepDefinitions(dryRun), opts)
		recordRun(root, outcome, dryRun, started, time.Now())
		if err != nil {
			cmd.SilenceUsage = true
			return err
		}

		w := cmd.OutOrStdout()
		switch outcome.Status {
		case engine.StatusSkipped:
			fmt.Fprintln(w, "No steps configured; nothing to run.")
			return nil
		case engine.StatusAborted:
			cmd.SilenceUsage = true
			return fmt.Errorf("pipeline aborted at %s step", outcome.FailedStep)
		}

		if dryRun {
			fmt.Fprintf(w, "Dry run %s. Repository restored; artifacts under %s/runs/.\n",
				outcome.Status, engine.ArtifactDirName)
			return nil
		}

		return commitAndPush(cmd, cfg, repo, store, client, outcome, noPush)
	},
}

// commitAndPush records the surviving staged changes. Push is skipped when
// auto-push is off, --no-push is set, or the outcome suppresses it.
func commitAndPush(cmd *cobra.Command, cfg *config.Config, repo *gitx.Repo, store *journal.Store, client *ai.Client, outcome *engine.Outcome, noPush bool) error {
	w := cmd.OutOrStdout()

	staged, err := repo.HasStagedChanges()
	if err != nil {
		return err
	}
	if !staged {
		fmt.Fprintln(w, "Pipeline passed; nothing staged to commit.")
		return nil
	}

	var msg string
	if client != nil {
		msg, _ = generateCommitMessage(cmd.Context(), client, store, repo)
	}
	if msg == "" {
		msg = fallbackCommitMessage(store)
	}
	if outcome.Annotation != "" {
		msg += "\n\n" + outcome.Annotation
	}

	if err := repo.Commit(msg); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if err := store.Clear(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	fmt.Fprintf(w, "Committed: %s\n", firstLine(msg))

	if !cfg.Preflight.AutoPush || noPush || outcome.SuppressAutoPush {
		return nil
	}
	if err := repo.Push(); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	fmt.Fprintln(w, "Pushed.")
	return nil
}

// promptResolver asks on the terminal what to do with a step that exhausted
// its fix attempts. Any read failure counts as abort.
func promptResolver(cmd *cobra.Command) engine.DecisionResolver {
	return func(ctx context.Context, ev engine.DecisionEvent) (engine.Decision, error) {
		w := cmd.ErrOrStderr()
		fmt.Fprintf(w, "\nThe %s step is still failing after %d attempt(s).\n", ev.Step, ev.Attempts)
		if ev.Stderr != "" {
			fmt.Fprintln(w, strings.TrimSpace(ev.Stderr))
		}
		fmt.Fprint(w, "[c]ommit anyway, [r]etry once, [a]bort? ")

		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil {
			return engine.DecisionAbort, nil
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "c", "commit":
			return engine.DecisionCommitAnyway, nil
		case "r", "retry":
			return engine.DecisionRetry, nil
		default:
			return engine.DecisionAbort, nil
		}
	}
}

// buildAIClient returns nil when AI assistance is disabled or unavailable;
// the pipeline then runs without fix attempts.
func buildAIClient(cmd *cobra.Command, cfg *config.Config) *ai.Client {
	if cfg.Preflight.AI.Disabled {
		return nil
	}
	client, err := ai.NewClient(cfg.Preflight.AI.APIKey, cfg.Preflight.AI.Model, cfg.Preflight.AI.MaxTokens)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: AI assistance disabled: %v\n", err)
		return nil
	}
	return client
}

func generateCommitMessage(ctx context.Context, client *ai.Client, store *journal.Store, repo *gitx.Repo) (string, error) {
	entries, err := store.Texts()
	if err != nil {
		return "", err
	}
	stat, _ := repo.DiffStat()
	return client.CommitMessage(ctx, entries, stat)
}

// fallbackCommitMessage uses the first journal entry as the subject when no
// generated message is available.
func fallbackCommitMessage(store *journal.Store) string {
	if texts, err := store.Texts(); err == nil && len(texts) > 0 {
		return texts[0]
	}
	return "chore: pre-flight commit"
}

// recordRun logs the run to the history database. Best-effort: history must
// never fail a pipeline run.
func recordRun(root string, o *engine.Outcome, dryRun bool, started, finished time.Time) {
	if o == nil {
		return
	}
	path, err := db.DefaultDBPath()
	if err != nil {
		return
	}
	d, err := db.Open(path)
	if err != nil {
		return
	}
	defer d.Close()
	if err := d.Migrate(); err != nil {
		return
	}
	_, _ = d.RecordRun(root, o, dryRun, started, finished)
}

// resolveRepoRoot locates the repository containing the current directory.
func resolveRepoRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return gitx.Toplevel(&gitx.ExecGit{}, cwd)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "Run against a snapshot and restore the tree afterwards")
	runCmd.Flags().Bool("abort-on-failure", false, "Abort on the first step that exhausts its fix attempts")
	runCmd.Flags().Int("max-fix-attempts", 0, "Override the configured AI fix attempt budget per step")
	runCmd.Flags().Bool("no-push", false, "Commit without pushing")
}
