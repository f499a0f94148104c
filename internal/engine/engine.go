// Package engine executes the pre-flight pipeline: ordered validation steps
// with bounded AI-assisted retry, decision escalation for steps that stay
// broken, and snapshot-guarded dry runs that leave the repository
// byte-for-byte untouched.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/lucasnoah/preflight/internal/execx"
	"github.com/lucasnoah/preflight/internal/ignore"
	"github.com/lucasnoah/preflight/internal/snapshot"
)

// Git is the staging surface the engine uses directly.
type Git interface {
	ChangedFiles() ([]string, error)
	StagePaths(paths []string) error
}

// PatchApplier applies a validated unified diff and returns the touched
// files.
type PatchApplier interface {
	Apply(diff string) ([]string, error)
}

// Snapshotter captures and restores uncommitted repository state for dry
// runs.
type Snapshotter interface {
	Capture(ctx context.Context) (*snapshot.Snapshot, error)
	Restore(ctx context.Context, snap *snapshot.Snapshot) error
	Discard(snap *snapshot.Snapshot)
}

// Engine drives one pipeline run at a time for a single repository. The
// working tree and index are mutated only through it; concurrent runs
// against the same repository must be serialized by the caller.
type Engine struct {
	cmd     execx.Runner
	git     Git
	filter  *ignore.Filter
	applier PatchApplier
	snaps   Snapshotter
	root    string
	now     func() time.Time
}

// New creates an Engine for the repository at root.
func New(cmd execx.Runner, git Git, filter *ignore.Filter, applier PatchApplier, snaps Snapshotter, root string) *Engine {
	return &Engine{
		cmd:     cmd,
		git:     git,
		filter:  filter,
		applier: applier,
		snaps:   snaps,
		root:    root,
		now:     time.Now,
	}
}

// Run executes the configured steps in order and returns the single
// caller-visible Outcome. Command failures, rejected patches and resolver
// verdicts all fold into the Outcome; only snapshot failures and
// infrastructure errors outside the retry loop return a non-nil error.
func (e *Engine) Run(ctx context.Context, steps []StepDefinition, opts Options) (outcome *Outcome, err error) {
	log := opts.Hooks.Logger
	if log == nil {
		log = NopLogger{}
	}
	if opts.MaxFixAttempts < 0 {
		opts.MaxFixAttempts = 0
	}

	var arts *RunArtifacts
	if opts.DryRun {
		if e.snaps == nil {
			return nil, fmt.Errorf("dry run requires a snapshot manager")
		}
		arts, err = NewRunArtifacts(e.root, e.now())
		if err != nil {
			return nil, err
		}
		snap, cerr := e.snaps.Capture(ctx)
		if cerr != nil {
			return nil, cerr
		}
		// Restore runs on every exit path, even when the run context was
		// cancelled mid-step. A failed restore overrides any other result.
		defer func() {
			if rerr := e.snaps.Restore(context.WithoutCancel(ctx), snap); rerr != nil {
				outcome = nil
				err = rerr
				return
			}
			e.snaps.Discard(snap)
		}()
	}

	outcome, err = e.runSteps(ctx, steps, opts, arts, log)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		if werr := arts.WriteSummary(outcome); werr != nil {
			return nil, werr
		}
		if werr := arts.WriteCommitMessage(e.commitMessageFor(ctx, outcome, opts)); werr != nil {
			return nil, werr
		}
	}

	log.Outcome(outcome)
	return outcome, nil
}

func (e *Engine) runSteps(ctx context.Context, steps []StepDefinition, opts Options, arts *RunArtifacts, log Logger) (*Outcome, error) {
	out := &Outcome{Status: StatusCompleted}
	ranAny := false
	for i := range steps {
		step := steps[i]
		if step.Command == "" {
			reason := step.SkipReason
			if reason == "" {
				reason = "no command configured"
			}
			log.StepSkipped(step.ID, reason)
			continue
		}
		ranAny = true
		terminal, err := e.runStep(ctx, step, opts, arts, log, out)
		if err != nil {
			return nil, err
		}
		if terminal {
			return out, nil
		}
	}
	if !ranAny {
		out.Status = StatusSkipped
	}
	return out, nil
}

// runStep drives one step to success, skip or a terminal outcome. It
// reports terminal=true when the whole pipeline must stop.
func (e *Engine) runStep(ctx context.Context, step StepDefinition, opts Options, arts *RunArtifacts, log Logger, out *Outcome) (terminal bool, err error) {
	attempt := 0
	res := e.exec(ctx, step, attempt, log, out)

	for !res.Success {
		if attempt < opts.MaxFixAttempts {
			if e.tryFix(ctx, step, res, attempt, opts, arts, log) {
				attempt++
				res = e.exec(ctx, step, attempt, log, out)
				continue
			}
			// No usable patch: stop retrying this step and escalate with
			// the remaining budget unspent.
		}

		if opts.AbortOnFailure {
			out.Status = StatusAborted
			out.FailedStep = step.ID
			return true, nil
		}

		ev := DecisionEvent{
			Step:             step.ID,
			Stderr:           res.Stderr,
			Attempts:         attempt + 1,
			Annotation:       fmt.Sprintf("pre-flight: %s step failed after %d attempt(s); committed anyway", step.ID, attempt+1),
			SuppressAutoPush: true,
		}
		d := resolveDecision(ctx, opts.Hooks.Resolve, ev)
		log.Decision(step.ID, d)

		switch d {
		case DecisionCommitAnyway:
			out.Status = StatusCommitAnyway
			out.FailedStep = step.ID
			out.Annotation = ev.Annotation
			out.SuppressAutoPush = true
			return true, nil
		case DecisionRetry:
			// One more run without AI assistance; still failing means abort.
			attempt++
			res = e.exec(ctx, step, attempt, log, out)
			if res.Success {
				break
			}
			out.Status = StatusAborted
			out.FailedStep = step.ID
			return true, nil
		default:
			out.Status = StatusAborted
			out.FailedStep = step.ID
			return true, nil
		}
	}

	// The format step stages its own reformatting; any step that needed a
	// retry stages the applied fixes. Dry runs never touch the index.
	if !opts.DryRun && (step.ID == StepFormat || res.Attempt > 0) {
		if serr := e.stageChanged(); serr != nil {
			return false, fmt.Errorf("stage changes after %s step: %w", step.ID, serr)
		}
	}
	return false, nil
}

func (e *Engine) exec(ctx context.Context, step StepDefinition, attempt int, log Logger, out *Outcome) *StepResult {
	log.StepStarted(step.ID, attempt)
	r := e.cmd.Run(ctx, e.root, step.Command)
	res := &StepResult{
		Step:    step.ID,
		Success: r.Success,
		Stdout:  r.Stdout,
		Stderr:  r.Stderr,
		Attempt: attempt,
	}
	out.Steps = append(out.Steps, *res)
	log.StepFinished(res)
	return res
}

// tryFix requests a patch for the failing step and applies it, or captures
// it as an artifact in dry-run mode. Reports whether the step should rerun.
func (e *Engine) tryFix(ctx context.Context, step StepDefinition, res *StepResult, attempt int, opts Options, arts *RunArtifacts, log Logger) bool {
	fixer := opts.Hooks.Fixer
	if fixer == nil {
		return false
	}

	errMsg := res.Stderr
	if errMsg == "" {
		errMsg = res.Stdout
	}
	p, err := fixer.RequestFix(ctx, FixRequest{Step: step.ID, ErrorMessage: errMsg})
	if err != nil {
		log.FixAttempt(step.ID, attempt+1, "fix request failed: "+err.Error())
		return false
	}
	if p == nil || p.Kind != PatchKindUnifiedDiff || p.Diff == "" {
		log.FixAttempt(step.ID, attempt+1, "no usable patch produced")
		return false
	}

	if opts.DryRun {
		path, err := arts.WritePatch(step.ID, p)
		if err != nil {
			log.FixAttempt(step.ID, attempt+1, "capture failed: "+err.Error())
			return false
		}
		log.FixAttempt(step.ID, attempt+1, "captured "+filepath.Base(path))
		return true
	}

	files, err := e.applier.Apply(p.Diff)
	if err != nil {
		log.FixAttempt(step.ID, attempt+1, "patch rejected: "+err.Error())
		return false
	}
	log.FixAttempt(step.ID, attempt+1, fmt.Sprintf("applied patch touching %d file(s)", len(files)))
	return true
}

// stageChanged stages every changed-and-not-ignored file.
func (e *Engine) stageChanged() error {
	files, err := e.git.ChangedFiles()
	if err != nil {
		return err
	}
	var keep []string
	for _, f := range files {
		if e.filter == nil || !e.filter.Ignored(f) {
			keep = append(keep, f)
		}
	}
	return e.git.StagePaths(keep)
}

func (e *Engine) commitMessageFor(ctx context.Context, o *Outcome, opts Options) string {
	if opts.Hooks.CommitMessage != nil {
		if msg, err := opts.Hooks.CommitMessage(ctx, o); err == nil && msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("chore: pre-flight run (%s)", o.Status)
}

func resolveDecision(ctx context.Context, resolve DecisionResolver, ev DecisionEvent) Decision {
	if resolve == nil {
		return DecisionAbort
	}
	d, err := resolve(ctx, ev)
	if err != nil {
		return DecisionAbort
	}
	switch d {
	case DecisionCommitAnyway, DecisionRetry, DecisionAbort:
		return d
	default:
		return DecisionAbort
	}
}
