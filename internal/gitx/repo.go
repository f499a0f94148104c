package gitx

import (
	"strconv"
	"strings"
)

// Repo wraps a Runner with the typed operations the pipeline needs,
// all rooted at a single working tree.
type Repo struct {
	git  Runner
	root string
}

// NewRepo creates a Repo rooted at root.
func NewRepo(git Runner, root string) *Repo {
	return &Repo{git: git, root: root}
}

// Root returns the working tree root.
func (r *Repo) Root() string {
	return r.root
}

// StagePaths stages exactly the given paths.
func (r *Repo) StagePaths(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, paths...)
	_, err := r.git.Run(r.root, args...)
	return err
}

// StageAll stages every change in the working tree.
func (r *Repo) StageAll() error {
	_, err := r.git.Run(r.root, "add", "-A")
	return err
}

// Commit records the staged changes with the given message.
func (r *Repo) Commit(message string) error {
	_, err := r.git.Run(r.root, "commit", "-m", message)
	return err
}

// Push pushes the current branch to its upstream.
func (r *Repo) Push() error {
	_, err := r.git.Run(r.root, "push")
	return err
}

// HasStagedChanges reports whether anything is staged for commit.
func (r *Repo) HasStagedChanges() (bool, error) {
	// diff --quiet exits 1 when differences exist.
	_, err := r.git.Run(r.root, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}
	if strings.Contains(err.Error(), "exit status 1") {
		return true, nil
	}
	return false, err
}

// DiffStaged returns the staged diff, binary-safe.
func (r *Repo) DiffStaged() (string, error) {
	return r.git.Run(r.root, "diff", "--cached", "--binary")
}

// DiffUnstaged returns the unstaged diff, binary-safe.
func (r *Repo) DiffUnstaged() (string, error) {
	return r.git.Run(r.root, "diff", "--binary")
}

// DiffStat returns a --stat summary of the staged diff.
func (r *Repo) DiffStat() (string, error) {
	out, err := r.git.Run(r.root, "diff", "--cached", "--stat")
	return strings.TrimSpace(out), err
}

// UntrackedFiles lists untracked files, honouring the standard excludes.
func (r *Repo) UntrackedFiles() ([]string, error) {
	out, err := r.git.Run(r.root, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// UntrackedDirs lists directories whose only descendants are untracked.
func (r *Repo) UntrackedDirs() ([]string, error) {
	out, err := r.git.Run(r.root, "ls-files", "--others", "--exclude-standard", "--directory")
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, line := range splitLines(out) {
		if strings.HasSuffix(line, "/") {
			dirs = append(dirs, strings.TrimSuffix(line, "/"))
		}
	}
	return dirs, nil
}

// StatusPorcelain returns machine-readable status output.
func (r *Repo) StatusPorcelain() (string, error) {
	return r.git.Run(r.root, "status", "--porcelain")
}

// ChangedFiles lists every path with working-tree changes, including
// untracked files. Renames report the new path.
func (r *Repo) ChangedFiles() ([]string, error) {
	out, err := r.StatusPorcelain()
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range splitLines(out) {
		if len(line) < 4 {
			continue
		}
		path := line[3:]
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+4:]
		}
		files = append(files, unquotePath(path))
	}
	return files, nil
}

// ResetHard resets the index and working tree to HEAD.
func (r *Repo) ResetHard() error {
	_, err := r.git.Run(r.root, "reset", "--hard", "HEAD")
	return err
}

// Clean removes untracked files and directories, keeping the given paths.
func (r *Repo) Clean(keep []string) error {
	args := []string{"clean", "-fd"}
	for _, k := range keep {
		args = append(args, "-e", k)
	}
	_, err := r.git.Run(r.root, args...)
	return err
}

// ApplyCheck dry-validates a patch against the working tree without
// mutating anything.
func (r *Repo) ApplyCheck(diff string) error {
	_, err := r.git.RunInput(r.root, diff, "apply", "--check", "--binary", "-")
	return err
}

// Apply applies a patch to the working tree.
func (r *Repo) Apply(diff string) error {
	_, err := r.git.RunInput(r.root, diff, "apply", "--binary", "-")
	return err
}

// ApplyIndex applies a patch to the working tree and the index together.
func (r *Repo) ApplyIndex(diff string) error {
	_, err := r.git.RunInput(r.root, diff, "apply", "--index", "--binary", "-")
	return err
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// unquotePath strips the quoting git applies to paths with special characters.
func unquotePath(p string) string {
	if len(p) >= 2 && p[0] == '"' && p[len(p)-1] == '"' {
		if u, err := strconv.Unquote(p); err == nil {
			return u
		}
	}
	return p
}
