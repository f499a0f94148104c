// Package execx runs external validation commands through a shell.
package execx

import (
	"context"
	"os/exec"
	"strings"
)

// Result holds the captured output of a single command execution.
type Result struct {
	Stdout  string `json:"stdout,omitempty"`
	Stderr  string `json:"stderr,omitempty"`
	Success bool   `json:"success"`
}

// Runner abstracts command execution for testability.
//
// A non-zero exit and a spawn failure (binary not found, fork error) are
// reported the same way: Success=false with the failure captured in Stderr.
// Callers never see a different-shaped result for infrastructure failures.
type Runner interface {
	Run(ctx context.Context, dir string, command string) *Result
}

// ShellRunner implements Runner by shelling out via sh -c.
type ShellRunner struct{}

func (ShellRunner) Run(ctx context.Context, dir string, command string) *Result {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	res := &Result{Stdout: stdoutBuf.String(), Stderr: stderrBuf.String()}
	if err == nil {
		res.Success = true
		return res
	}
	if _, ok := err.(*exec.ExitError); ok {
		return res
	}
	// Spawn failure: fold the error message into stderr so the caller's
	// failure path is identical to a non-zero exit.
	if res.Stderr != "" && !strings.HasSuffix(res.Stderr, "\n") {
		res.Stderr += "\n"
	}
	res.Stderr += err.Error()
	return res
}
