package execx

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestShellRunnerSuccess(t *testing.T) {
	r := ShellRunner{}.Run(context.Background(), t.TempDir(), "echo hello")
	if !r.Success {
		t.Fatalf("expected success, stderr=%q", r.Stderr)
	}
	if strings.TrimSpace(r.Stdout) != "hello" {
		t.Errorf("stdout = %q", r.Stdout)
	}
}

func TestShellRunnerNonZeroExit(t *testing.T) {
	r := ShellRunner{}.Run(context.Background(), t.TempDir(), "echo broken >&2; exit 3")
	if r.Success {
		t.Fatal("expected failure")
	}
	if strings.TrimSpace(r.Stderr) != "broken" {
		t.Errorf("stderr = %q", r.Stderr)
	}
}

func TestShellRunnerRunsInDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := ShellRunner{}.Run(context.Background(), dir, "ls")
	if !r.Success {
		t.Fatalf("expected success, stderr=%q", r.Stderr)
	}
	if !strings.Contains(r.Stdout, "marker.txt") {
		t.Errorf("ls output = %q, want marker.txt", r.Stdout)
	}
}

func TestShellRunnerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := ShellRunner{}.Run(ctx, t.TempDir(), "sleep 10")
	if r.Success {
		t.Fatal("expected failure for cancelled context")
	}
	if r.Stderr == "" {
		t.Errorf("expected the failure folded into stderr")
	}
}
