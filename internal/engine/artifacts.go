package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lucasnoah/preflight/internal/fsx"
)

// ArtifactDirName is the engine's own directory under the repository root.
// The snapshot clean phase preserves it.
const ArtifactDirName = ".preflight"

// CapturedPatch records one proposed patch written to the artifact
// directory during a dry run.
type CapturedPatch struct {
	File       string `json:"file"`
	Step       StepID `json:"step"`
	ProducedBy string `json:"produced_by,omitempty"`
	Note       string `json:"note,omitempty"`
}

// RunArtifacts writes the dry-run outputs for one pipeline run: one diff
// file per captured patch, a summary.json and a commit-message file. All
// write-only; the engine never reads them back.
type RunArtifacts struct {
	dir     string
	patches []CapturedPatch
}

// NewRunArtifacts creates the per-run directory, named by an ISO-8601
// timestamp with colons replaced.
func NewRunArtifacts(repoRoot string, now time.Time) (*RunArtifacts, error) {
	stamp := strings.ReplaceAll(now.UTC().Format(time.RFC3339), ":", "-")
	dir := filepath.Join(repoRoot, ArtifactDirName, "runs", stamp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir %s: %w", dir, err)
	}
	excludeArtifactDir(repoRoot)
	return &RunArtifacts{dir: dir}, nil
}

// excludeArtifactDir registers the artifact directory in the repository's
// local exclude file, so the first dry run does not add an untracked entry
// to the status a snapshot restore must reproduce. Best-effort.
func excludeArtifactDir(repoRoot string) {
	if fi, err := os.Stat(filepath.Join(repoRoot, ".git")); err != nil || !fi.IsDir() {
		return
	}
	path := filepath.Join(repoRoot, ".git", "info", "exclude")
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return
	}
	entry := ArtifactDirName + "/"
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == entry {
			return
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	_ = os.WriteFile(path, []byte(content+entry+"\n"), 0o644)
}

// Dir returns the per-run artifact directory.
func (a *RunArtifacts) Dir() string {
	return a.dir
}

// WritePatch stores a proposed patch as the next numbered diff file and
// records its metadata for the summary.
func (a *RunArtifacts) WritePatch(step StepID, p *Patch) (string, error) {
	name := fmt.Sprintf("patch-%02d.diff", len(a.patches)+1)
	path := filepath.Join(a.dir, name)
	if err := fsx.WriteAtomic(path, []byte(p.Diff)); err != nil {
		return "", fmt.Errorf("write patch artifact: %w", err)
	}
	cp := CapturedPatch{File: name, Step: step}
	if p.Meta != nil {
		cp.ProducedBy = p.Meta.ProducedBy
		cp.Note = p.Meta.Note
	}
	a.patches = append(a.patches, cp)
	return path, nil
}

type runSummary struct {
	Status           Status          `json:"status"`
	FailedStep       StepID          `json:"failed_step,omitempty"`
	Annotation       string          `json:"annotation,omitempty"`
	SuppressAutoPush bool            `json:"suppress_auto_push,omitempty"`
	Steps            []StepResult    `json:"steps"`
	Patches          []CapturedPatch `json:"patches,omitempty"`
}

// WriteSummary writes summary.json for the run.
func (a *RunArtifacts) WriteSummary(o *Outcome) error {
	s := runSummary{
		Status:           o.Status,
		FailedStep:       o.FailedStep,
		Annotation:       o.Annotation,
		SuppressAutoPush: o.SuppressAutoPush,
		Steps:            o.Steps,
		Patches:          a.patches,
	}
	return fsx.WriteJSON(filepath.Join(a.dir, "summary.json"), s)
}

// WriteCommitMessage writes the generated commit message file.
func (a *RunArtifacts) WriteCommitMessage(msg string) error {
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	return fsx.WriteAtomic(filepath.Join(a.dir, "commit-message.txt"), []byte(msg))
}
