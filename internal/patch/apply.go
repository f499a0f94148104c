package patch

import (
	"fmt"

	"github.com/lucasnoah/preflight/internal/ignore"
)

// Git is the apply surface the Applier consumes.
type Git interface {
	ApplyCheck(diff string) error
	Apply(diff string) error
	StagePaths(paths []string) error
}

// Applier applies validated unified diffs all-or-nothing: a check-only pass
// precedes the real apply, and only the touched files are restaged.
type Applier struct {
	git    Git
	filter *ignore.Filter
}

// NewApplier creates an Applier.
func NewApplier(git Git, filter *ignore.Filter) *Applier {
	return &Applier{git: git, filter: filter}
}

// Apply validates the diff, rejects it wholesale if any touched path is
// ignored, dry-checks it, applies it, and restages exactly the touched
// files. Returns the touched files on success.
func (a *Applier) Apply(diff string) ([]string, error) {
	files, err := Validate(diff)
	if err != nil {
		return nil, err
	}

	// Mixed ignored/non-ignored patches are rejected in their entirety:
	// partial application is never attempted.
	for _, f := range files {
		if a.filter != nil && a.filter.Ignored(f) {
			return nil, &ValidationError{Kind: FailureIgnoredPath, Detail: fmt.Sprintf("patch touches ignored path %q", f)}
		}
	}

	if err := a.git.ApplyCheck(diff); err != nil {
		return nil, fmt.Errorf("patch failed dry-run check: %w", err)
	}
	if err := a.git.Apply(diff); err != nil {
		return nil, fmt.Errorf("apply patch: %w", err)
	}
	if err := a.git.StagePaths(files); err != nil {
		return nil, fmt.Errorf("restage patched files: %w", err)
	}
	return files, nil
}
