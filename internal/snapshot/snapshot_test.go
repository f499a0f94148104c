package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// mockGit records calls and serves canned state. Capture queries run
// concurrently, so recording is locked.
type mockGit struct {
	mu    sync.Mutex
	calls []string

	staged         string
	unstaged       string
	untrackedFiles []string
	untrackedDirs  []string

	resetErr error
	cleanErr error
	applyErr error
}

func (m *mockGit) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *mockGit) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockGit) DiffStaged() (string, error) {
	m.record("diff-staged")
	return m.staged, nil
}

func (m *mockGit) DiffUnstaged() (string, error) {
	m.record("diff-unstaged")
	return m.unstaged, nil
}

func (m *mockGit) UntrackedFiles() ([]string, error) {
	m.record("untracked-files")
	return m.untrackedFiles, nil
}

func (m *mockGit) UntrackedDirs() ([]string, error) {
	m.record("untracked-dirs")
	return m.untrackedDirs, nil
}

func (m *mockGit) ResetHard() error {
	m.record("reset")
	return m.resetErr
}

func (m *mockGit) Clean(keep []string) error {
	m.record(fmt.Sprintf("clean keep=%v", keep))
	return m.cleanErr
}

func (m *mockGit) Apply(diff string) error {
	m.record("apply")
	return m.applyErr
}

func (m *mockGit) ApplyIndex(diff string) error {
	m.record("apply-index")
	return m.applyErr
}

// restoreCalls returns the calls made after capture.
func restoreCalls(m *mockGit, captureCalls int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[captureCalls:]
}

func TestCaptureCopiesUntrackedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.txt"), "scratch")
	if err := os.Symlink("notes.txt", filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	git := &mockGit{
		staged:         "staged-diff",
		unstaged:       "unstaged-diff",
		untrackedFiles: []string{"notes.txt", "link.txt"},
	}
	m := NewManager(git, root, []string{".preflight"})

	snap, err := m.Capture(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	defer m.Discard(snap)

	if snap.Staged != "staged-diff" || snap.Unstaged != "unstaged-diff" {
		t.Errorf("diffs not captured: %+v", snap)
	}
	if snap.SideDir == "" {
		t.Fatal("expected a side dir for untracked files")
	}
	data, err := os.ReadFile(filepath.Join(snap.SideDir, "notes.txt"))
	if err != nil || string(data) != "scratch" {
		t.Errorf("side copy wrong: %q, %v", data, err)
	}
	target, err := os.Readlink(filepath.Join(snap.SideDir, "link.txt"))
	if err != nil || target != "notes.txt" {
		t.Errorf("symlink not preserved: %q, %v", target, err)
	}
}

func TestCaptureNoUntrackedMeansNoSideDir(t *testing.T) {
	root := t.TempDir()
	git := &mockGit{}
	m := NewManager(git, root, nil)

	snap, err := m.Capture(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if snap.SideDir != "" {
		t.Errorf("expected no side dir, got %q", snap.SideDir)
	}
}

func TestCaptureFindsEmptyDirs(t *testing.T) {
	root := t.TempDir()
	mustMkdirAll(t, filepath.Join(root, "a", "b"))
	mustMkdirAll(t, filepath.Join(root, ".git", "objects"))
	mustMkdirAll(t, filepath.Join(root, ".preflight", "runs"))
	writeFile(t, filepath.Join(root, "a", "keep.txt"), "x")

	git := &mockGit{}
	m := NewManager(git, root, []string{".preflight"})

	snap, err := m.Capture(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if len(snap.EmptyDirs) != 1 || snap.EmptyDirs[0] != "a/b" {
		t.Errorf("expected [a/b], got %v", snap.EmptyDirs)
	}
}

func TestRestoreOrderAndState(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.txt"), "scratch")

	git := &mockGit{
		staged:         "staged-diff",
		unstaged:       "unstaged-diff",
		untrackedFiles: []string{"notes.txt"},
		untrackedDirs:  []string{"build/out"},
	}
	m := NewManager(git, root, []string{".preflight"})

	snap, err := m.Capture(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	captureCalls := git.callCount()

	// Simulate the pipeline destroying the working tree.
	if err := os.Remove(filepath.Join(root, "notes.txt")); err != nil {
		t.Fatal(err)
	}

	if err := m.Restore(context.Background(), snap); err != nil {
		t.Fatalf("restore: %v", err)
	}

	want := []string{"reset", "clean keep=[.preflight]", "apply-index", "apply"}
	got := restoreCalls(git, captureCalls)
	if len(got) != len(want) {
		t.Fatalf("restore calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("restore call %d = %q, want %q", i, got[i], want[i])
		}
	}

	data, err := os.ReadFile(filepath.Join(root, "notes.txt"))
	if err != nil || string(data) != "scratch" {
		t.Errorf("untracked file not restored: %q, %v", data, err)
	}
	if fi, err := os.Stat(filepath.Join(root, "build", "out")); err != nil || !fi.IsDir() {
		t.Errorf("untracked dir not recreated: %v", err)
	}
}

func TestRestoreSkipsEmptyDiffs(t *testing.T) {
	root := t.TempDir()
	git := &mockGit{}
	m := NewManager(git, root, nil)

	snap, err := m.Capture(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	captureCalls := git.callCount()

	if err := m.Restore(context.Background(), snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	for _, c := range restoreCalls(git, captureCalls) {
		if c == "apply" || c == "apply-index" {
			t.Errorf("apply called for an empty diff")
		}
	}
}

func TestRestoreFailureIsTyped(t *testing.T) {
	root := t.TempDir()
	git := &mockGit{resetErr: fmt.Errorf("object store corrupt")}
	m := NewManager(git, root, nil)

	snap, err := m.Capture(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}

	err = m.Restore(context.Background(), snap)
	var rerr *RestoreError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RestoreError, got %v", err)
	}
	if rerr.Op != "reset" {
		t.Errorf("op = %q, want reset", rerr.Op)
	}
	if !errors.Is(err, git.resetErr) {
		t.Errorf("cause not wrapped: %v", err)
	}
}

func TestDiscardRemovesSideDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tmp.txt"), "x")
	git := &mockGit{untrackedFiles: []string{"tmp.txt"}}
	m := NewManager(git, root, nil)

	snap, err := m.Capture(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	m.Discard(snap)
	if _, err := os.Stat(snap.SideDir); !os.IsNotExist(err) {
		t.Errorf("side dir still present: %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mustMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
}
