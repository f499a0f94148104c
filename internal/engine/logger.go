package engine

import (
	"fmt"
	"io"
)

// Logger receives pipeline progress events. Implementations must not
// mutate the values they are handed.
type Logger interface {
	StepStarted(step StepID, attempt int)
	StepFinished(r *StepResult)
	StepSkipped(step StepID, reason string)
	FixAttempt(step StepID, attempt int, note string)
	Decision(step StepID, d Decision)
	Outcome(o *Outcome)
}

// WriterLogger prints human-readable progress lines to a writer.
type WriterLogger struct {
	W io.Writer
}

func (l WriterLogger) logf(format string, args ...interface{}) {
	fmt.Fprintf(l.W, "  → "+format+"\n", args...)
}

func (l WriterLogger) StepStarted(step StepID, attempt int) {
	if attempt == 0 {
		l.logf("running %s step", step)
	} else {
		l.logf("re-running %s step (attempt %d)", step, attempt)
	}
}

func (l WriterLogger) StepFinished(r *StepResult) {
	status := "PASS"
	if !r.Success {
		status = "FAIL"
	}
	l.logf("%s: %s (attempt %d)", r.Step, status, r.Attempt)
}

func (l WriterLogger) StepSkipped(step StepID, reason string) {
	l.logf("skipping %s step: %s", step, reason)
}

func (l WriterLogger) FixAttempt(step StepID, attempt int, note string) {
	l.logf("fix attempt %d for %s: %s", attempt, step, note)
}

func (l WriterLogger) Decision(step StepID, d Decision) {
	l.logf("decision for %s: %s", step, d)
}

func (l WriterLogger) Outcome(o *Outcome) {
	if o.FailedStep != "" {
		l.logf("pipeline %s (failed step: %s)", o.Status, o.FailedStep)
		return
	}
	l.logf("pipeline %s", o.Status)
}

// NopLogger discards all events.
type NopLogger struct{}

func (NopLogger) StepStarted(StepID, int)        {}
func (NopLogger) StepFinished(*StepResult)       {}
func (NopLogger) StepSkipped(StepID, string)     {}
func (NopLogger) FixAttempt(StepID, int, string) {}
func (NopLogger) Decision(StepID, Decision)      {}
func (NopLogger) Outcome(*Outcome)               {}
