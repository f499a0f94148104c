package config

import (
	"fmt"

	"github.com/lucasnoah/preflight/internal/engine"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a Config for structural and semantic errors. It returns a
// slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	p := cfg.Preflight

	if p.Steps.Format.Command == "" && p.Steps.Typecheck.Command == "" && p.Steps.Tests.Command == "" {
		errs = append(errs, ValidationError{
			Field:   "preflight.steps",
			Message: "at least one step command is required",
		})
	}
	if p.MaxFixAttempts < 0 {
		errs = append(errs, ValidationError{
			Field:   "preflight.max_fix_attempts",
			Message: "must not be negative",
		})
	}
	if p.AI.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "preflight.ai.max_tokens",
			Message: "must not be negative",
		})
	}

	for id, sc := range map[string]StepCommand{
		"format":    p.Steps.Format,
		"typecheck": p.Steps.Typecheck,
		"tests":     p.Steps.Tests,
	} {
		if sc.Command == "" && sc.DryRunCommand != "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("preflight.steps.%s.dry_run_command", id),
				Message: "set without a command",
			})
		}
	}

	return errs
}

// StepDefinitions builds the immutable per-run step list in fixed order.
// In dry-run mode, steps whose command would mutate the tree are replaced
// with their configured non-mutating variant, or skipped with a reason
// when no variant is derivable. Typecheck and tests are presumed
// read-only and keep their command.
func (cfg *Config) StepDefinitions(dryRun bool) []engine.StepDefinition {
	p := cfg.Preflight
	commands := map[engine.StepID]StepCommand{
		engine.StepFormat:    p.Steps.Format,
		engine.StepTypecheck: p.Steps.Typecheck,
		engine.StepTests:     p.Steps.Tests,
	}
	defs := make([]engine.StepDefinition, 0, len(engine.StepOrder))
	for _, id := range engine.StepOrder {
		defs = append(defs, stepDef(id, commands[id], dryRun, id == engine.StepFormat))
	}
	return defs
}

func stepDef(id engine.StepID, sc StepCommand, dryRun, mutating bool) engine.StepDefinition {
	def := engine.StepDefinition{ID: id, Command: sc.Command}
	if sc.Command == "" {
		def.SkipReason = "no command configured"
		return def
	}
	if !dryRun {
		return def
	}
	if sc.DryRunCommand != "" {
		def.Command = sc.DryRunCommand
		return def
	}
	if mutating {
		def.Command = ""
		def.SkipReason = sc.DryRunSkipReason
		if def.SkipReason == "" {
			def.SkipReason = "no non-mutating dry-run variant configured"
		}
	}
	return def
}
