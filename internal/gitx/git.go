// Package gitx provides the narrow git plumbing surface the pipeline
// consumes: staging, commit, push, diffs, untracked listing, status,
// reset, clean and patch application.
package gitx

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Runner provides git commands. Interface for testing.
type Runner interface {
	Run(dir string, args ...string) (string, error)
	RunInput(dir string, input string, args ...string) (string, error)
}

// ExecGit implements Runner using exec.Command.
type ExecGit struct{}

func (g *ExecGit) Run(dir string, args ...string) (string, error) {
	return g.RunInput(dir, "", args...)
}

func (g *ExecGit) RunInput(dir string, input string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("git %s: %s: %w",
			strings.Join(args, " "), strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}

// Toplevel resolves the repository root containing dir.
func Toplevel(git Runner, dir string) (string, error) {
	out, err := git.Run(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("resolve repo root: %w", err)
	}
	return strings.TrimSpace(out), nil
}
