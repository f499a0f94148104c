package gitx

import (
	"fmt"
	"strings"
	"testing"
)

// mockRunner returns scripted output keyed by the joined argument string.
type mockRunner struct {
	calls  []string
	inputs []string
	out    map[string]string
	errs   map[string]error
}

func (m *mockRunner) Run(dir string, args ...string) (string, error) {
	return m.RunInput(dir, "", args...)
}

func (m *mockRunner) RunInput(dir string, input string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	m.calls = append(m.calls, key)
	m.inputs = append(m.inputs, input)
	if err, ok := m.errs[key]; ok {
		return "", err
	}
	return m.out[key], nil
}

func TestStagePathsEmptyIsNoop(t *testing.T) {
	mock := &mockRunner{}
	r := NewRepo(mock, "/repo")
	if err := r.StagePaths(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.calls) != 0 {
		t.Errorf("git invoked for an empty path list")
	}
}

func TestStagePathsUsesSeparator(t *testing.T) {
	mock := &mockRunner{}
	r := NewRepo(mock, "/repo")
	if err := r.StagePaths([]string{"a.go", "b.go"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.calls) != 1 || mock.calls[0] != "add -- a.go b.go" {
		t.Errorf("calls = %v", mock.calls)
	}
}

func TestStageAllStagesEverything(t *testing.T) {
	mock := &mockRunner{}
	r := NewRepo(mock, "/repo")
	if err := r.StageAll(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.calls) != 1 || mock.calls[0] != "add -A" {
		t.Errorf("calls = %v", mock.calls)
	}
}

func TestHasStagedChanges(t *testing.T) {
	mock := &mockRunner{errs: map[string]error{
		"diff --cached --quiet": fmt.Errorf("git diff: : exit status 1"),
	}}
	r := NewRepo(mock, "/repo")
	staged, err := r.HasStagedChanges()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !staged {
		t.Errorf("expected staged changes")
	}

	mock = &mockRunner{}
	r = NewRepo(mock, "/repo")
	staged, err = r.HasStagedChanges()
	if err != nil || staged {
		t.Errorf("expected clean index, got staged=%v err=%v", staged, err)
	}
}

func TestChangedFilesParsesPorcelain(t *testing.T) {
	mock := &mockRunner{out: map[string]string{
		"status --porcelain": " M pkg/a.go\n?? new.txt\nR  old.go -> new.go\nA  \"weird name.go\"\n",
	}}
	r := NewRepo(mock, "/repo")

	files, err := r.ChangedFiles()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"pkg/a.go", "new.txt", "new.go", "weird name.go"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestUntrackedDirsFiltersTrailingSlash(t *testing.T) {
	mock := &mockRunner{out: map[string]string{
		"ls-files --others --exclude-standard --directory": "scratch/\nnotes.txt\nbuild/out/\n",
	}}
	r := NewRepo(mock, "/repo")

	dirs, err := r.UntrackedDirs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dirs) != 2 || dirs[0] != "scratch" || dirs[1] != "build/out" {
		t.Errorf("dirs = %v", dirs)
	}
}

func TestCleanPassesKeepPaths(t *testing.T) {
	mock := &mockRunner{}
	r := NewRepo(mock, "/repo")
	if err := r.Clean([]string{".preflight", "node_modules"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls[0] != "clean -fd -e .preflight -e node_modules" {
		t.Errorf("call = %q", mock.calls[0])
	}
}

func TestApplyVariantsFeedStdin(t *testing.T) {
	mock := &mockRunner{}
	r := NewRepo(mock, "/repo")
	diff := "--- a/x\n+++ b/x\n"

	if err := r.ApplyCheck(diff); err != nil {
		t.Fatal(err)
	}
	if err := r.Apply(diff); err != nil {
		t.Fatal(err)
	}
	if err := r.ApplyIndex(diff); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"apply --check --binary -",
		"apply --binary -",
		"apply --index --binary -",
	}
	for i, w := range want {
		if mock.calls[i] != w {
			t.Errorf("call %d = %q, want %q", i, mock.calls[i], w)
		}
		if mock.inputs[i] != diff {
			t.Errorf("call %d stdin = %q", i, mock.inputs[i])
		}
	}
}
