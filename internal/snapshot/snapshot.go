// Package snapshot captures and restores the full uncommitted state of a
// repository: staged and unstaged diffs, untracked files (symlinks
// preserved), untracked directories and empty directories. Dry runs capture
// a snapshot up front and restore it on every exit path so the pipeline can
// run real commands with zero net effect on the tree.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Git is the plumbing surface the manager consumes.
type Git interface {
	DiffStaged() (string, error)
	DiffUnstaged() (string, error)
	UntrackedFiles() ([]string, error)
	UntrackedDirs() ([]string, error)
	ResetHard() error
	Clean(keep []string) error
	Apply(diff string) error
	ApplyIndex(diff string) error
}

// Snapshot is a complete, restorable description of a repository's
// uncommitted state at a point in time.
type Snapshot struct {
	Staged         string   `json:"-"`
	Unstaged       string   `json:"-"`
	UntrackedFiles []string `json:"untracked_files,omitempty"`
	UntrackedDirs  []string `json:"untracked_dirs,omitempty"`
	EmptyDirs      []string `json:"empty_dirs,omitempty"`
	SideDir        string   `json:"side_dir,omitempty"` // "" when no untracked files exist
}

// RestoreError marks a failed restore after a successful capture. It is
// fatal: the repository may be in a partial state and callers must surface
// it distinctly from a normal pipeline failure.
type RestoreError struct {
	Op  string
	Err error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("snapshot restore failed during %s: %v", e.Op, e.Err)
}

func (e *RestoreError) Unwrap() error { return e.Err }

// Manager captures and restores snapshots for one repository.
type Manager struct {
	git  Git
	root string
	keep []string // paths preserved by Clean, e.g. the artifact directory
}

// NewManager creates a Manager for the repository at root. The keep paths
// survive the clean phase of a restore.
func NewManager(git Git, root string, keep []string) *Manager {
	return &Manager{git: git, root: root, keep: keep}
}

// Capture records the repository's uncommitted state. The four read-only
// git queries have no ordering dependency and run concurrently; the
// empty-directory walk runs alongside them.
func (m *Manager) Capture(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Staged, err = m.git.DiffStaged()
		return err
	})
	g.Go(func() (err error) {
		snap.Unstaged, err = m.git.DiffUnstaged()
		return err
	})
	g.Go(func() (err error) {
		snap.UntrackedFiles, err = m.git.UntrackedFiles()
		return err
	})
	g.Go(func() (err error) {
		snap.UntrackedDirs, err = m.git.UntrackedDirs()
		return err
	})
	g.Go(func() (err error) {
		snap.EmptyDirs, err = m.findEmptyDirs()
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("capture snapshot: %w", err)
	}

	if len(snap.UntrackedFiles) > 0 {
		sideDir, err := os.MkdirTemp("", "preflight-snapshot-*")
		if err != nil {
			return nil, fmt.Errorf("create snapshot side dir: %w", err)
		}
		snap.SideDir = sideDir
		for _, rel := range snap.UntrackedFiles {
			if err := copyPreserving(filepath.Join(m.root, rel), filepath.Join(sideDir, rel)); err != nil {
				return nil, fmt.Errorf("copy untracked file %s: %w", rel, err)
			}
		}
	}

	return snap, nil
}

// Restore returns the repository to the captured state, in strict order:
// hard reset, clean (keeping the artifact paths), reapply the staged diff
// to index and tree, reapply the unstaged diff to the tree, copy untracked
// files back, then recreate untracked and empty directories shortest path
// first so parents exist before children. Restore is idempotent and depends
// on nothing but the snapshot itself.
func (m *Manager) Restore(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return &RestoreError{Op: "start", Err: err}
	}
	if err := m.git.ResetHard(); err != nil {
		return &RestoreError{Op: "reset", Err: err}
	}
	if err := m.git.Clean(m.keep); err != nil {
		return &RestoreError{Op: "clean", Err: err}
	}
	if snap.Staged != "" {
		if err := m.git.ApplyIndex(snap.Staged); err != nil {
			return &RestoreError{Op: "reapply staged diff", Err: err}
		}
	}
	if snap.Unstaged != "" {
		if err := m.git.Apply(snap.Unstaged); err != nil {
			return &RestoreError{Op: "reapply unstaged diff", Err: err}
		}
	}
	for _, rel := range snap.UntrackedFiles {
		if err := copyPreserving(filepath.Join(snap.SideDir, rel), filepath.Join(m.root, rel)); err != nil {
			return &RestoreError{Op: fmt.Sprintf("restore untracked file %s", rel), Err: err}
		}
	}

	dirs := append(append([]string{}, snap.UntrackedDirs...), snap.EmptyDirs...)
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) < len(dirs[j]) })
	for _, rel := range dirs {
		if err := os.MkdirAll(filepath.Join(m.root, rel), 0o755); err != nil {
			return &RestoreError{Op: fmt.Sprintf("recreate directory %s", rel), Err: err}
		}
	}
	return nil
}

// Discard removes the snapshot's side copies. Best-effort; call only after
// a successful restore.
func (m *Manager) Discard(snap *Snapshot) {
	if snap != nil && snap.SideDir != "" {
		os.RemoveAll(snap.SideDir)
	}
}

// findEmptyDirs walks the tree collecting directories with no entries,
// skipping .git and the kept artifact paths.
func (m *Manager) findEmptyDirs() ([]string, error) {
	skip := make(map[string]bool, len(m.keep)+1)
	skip[".git"] = true
	for _, k := range m.keep {
		skip[filepath.ToSlash(k)] = true
	}

	var empty []string
	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(m.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if skip[rel] || skip[topSegment(rel)] {
			return filepath.SkipDir
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			empty = append(empty, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan for empty directories: %w", err)
	}
	return empty, nil
}

func topSegment(rel string) string {
	for i := 0; i < len(rel); i++ {
		if rel[i] == '/' {
			return rel[:i]
		}
	}
	return rel
}

// copyPreserving copies src to dst, preserving symlink targets instead of
// following them. Parent directories are created as needed.
func copyPreserving(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		// Replace any stale entry; Symlink fails on an existing path.
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			return err
		}
		return os.Symlink(target, dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
