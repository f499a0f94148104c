package engine

import "context"

// StepID names one validation phase.
type StepID string

const (
	StepFormat    StepID = "format"
	StepTypecheck StepID = "typecheck"
	StepTests     StepID = "tests"
)

// StepOrder is the fixed execution order; steps are never reordered.
var StepOrder = []StepID{StepFormat, StepTypecheck, StepTests}

// StepDefinition describes one configured step. An empty Command means the
// step is skipped with SkipReason logged.
type StepDefinition struct {
	ID         StepID
	Command    string
	SkipReason string
}

// StepResult is the immutable record of one command execution.
type StepResult struct {
	Step    StepID `json:"step"`
	Success bool   `json:"success"`
	Stdout  string `json:"stdout,omitempty"`
	Stderr  string `json:"stderr,omitempty"`
	Attempt int    `json:"attempt"`
}

// Status is the terminal state of a pipeline run.
type Status string

const (
	StatusCompleted    Status = "completed"
	StatusAborted      Status = "aborted"
	StatusCommitAnyway Status = "commit-anyway"
	StatusSkipped      Status = "skipped"
)

// Outcome is the single caller-visible result of a pipeline run.
type Outcome struct {
	Status           Status       `json:"status"`
	FailedStep       StepID       `json:"failed_step,omitempty"`
	Annotation       string       `json:"annotation,omitempty"`
	SuppressAutoPush bool         `json:"suppress_auto_push,omitempty"`
	Steps            []StepResult `json:"steps"`
}

// Decision is the resolver's verdict on a step that exhausted its retries.
type Decision string

const (
	DecisionCommitAnyway Decision = "commitAnyway"
	DecisionRetry        Decision = "retry"
	DecisionAbort        Decision = "abort"
)

// DecisionEvent carries the context a resolver needs to break a deadlocked
// step.
type DecisionEvent struct {
	Step             StepID
	Stderr           string
	Attempts         int
	Annotation       string
	SuppressAutoPush bool
}

// DecisionResolver breaks an exhausted-retries step into one of three
// terminal choices. A nil resolver, an error, or an unknown decision all
// resolve to abort.
type DecisionResolver func(ctx context.Context, ev DecisionEvent) (Decision, error)

// PatchKindUnifiedDiff tags the only patch payload the engine accepts.
const PatchKindUnifiedDiff = "unified-diff"

// PatchMeta is optional structured metadata attached to a proposed patch.
type PatchMeta struct {
	ProducedBy string `json:"produced_by,omitempty"`
	Step       string `json:"step,omitempty"`
	Note       string `json:"note,omitempty"`
}

// Patch is an AI-proposed change. Anything other than a well-formed
// unified diff counts as a failed fix attempt, never a fatal error.
type Patch struct {
	Kind string     `json:"kind"`
	Diff string     `json:"diff"`
	Meta *PatchMeta `json:"meta,omitempty"`
}

// FixRequest describes a failing step to the fix-generation collaborator.
type FixRequest struct {
	Step         StepID
	ErrorMessage string
	FilePath     string
	CodeSnippet  string
}

// Fixer is the external AI collaborator that proposes patches.
type Fixer interface {
	RequestFix(ctx context.Context, req FixRequest) (*Patch, error)
}

// Hooks are the injected collaborators for one pipeline run. The engine has
// no knowledge of how decisions are obtained or how patches are produced.
type Hooks struct {
	Logger  Logger
	Resolve DecisionResolver
	Fixer   Fixer

	// CommitMessage generates the commit message written to the dry-run
	// artifact directory. Optional; a fallback message is used when nil.
	CommitMessage func(ctx context.Context, o *Outcome) (string, error)
}

// Options configure one pipeline run.
type Options struct {
	MaxFixAttempts int
	AbortOnFailure bool
	DryRun         bool
	Hooks          Hooks
}
