// Package patch validates and applies AI-proposed unified diffs. Diffs must
// use repository-relative a/ b/ paths; anything that could escape the repo
// root is rejected before the filesystem is touched.
package patch

import (
	"fmt"
	"strings"
)

// FailureKind classifies why a diff was rejected.
type FailureKind string

const (
	FailureEmpty         FailureKind = "empty"
	FailureMalformed     FailureKind = "malformed"
	FailurePathTraversal FailureKind = "path-traversal"
	FailureIgnoredPath   FailureKind = "ignored-path"
)

// ValidationError reports a rejected diff.
type ValidationError struct {
	Kind   FailureKind
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid patch (%s): %s", e.Kind, e.Detail)
}

// devNull is the "no file" sentinel for creations and deletions.
const devNull = "/dev/null"

// Validate checks a unified diff against the repository-relative path
// contract and returns the set of file paths it touches, in order of first
// appearance.
func Validate(diffText string) ([]string, error) {
	if strings.TrimSpace(diffText) == "" {
		return nil, &ValidationError{Kind: FailureEmpty, Detail: "diff is empty"}
	}

	var files []string
	seen := make(map[string]bool)
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	lines := strings.Split(diffText, "\n")
	pairs := 0
	for i := 0; i < len(lines); i++ {
		switch {
		case strings.HasPrefix(lines[i], "--- "):
			if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1], "+++ ") {
				return nil, &ValidationError{Kind: FailureMalformed, Detail: "--- header without matching +++ line"}
			}
			oldPath, err := headerPath(lines[i][4:], "a/")
			if err != nil {
				return nil, err
			}
			newPath, err := headerPath(lines[i+1][4:], "b/")
			if err != nil {
				return nil, err
			}
			if oldPath == "" && newPath == "" {
				return nil, &ValidationError{Kind: FailureMalformed, Detail: "header pair with /dev/null on both sides"}
			}
			add(oldPath)
			add(newPath)
			pairs++
			i++
		case strings.HasPrefix(lines[i], "+++ "):
			return nil, &ValidationError{Kind: FailureMalformed, Detail: "+++ header without preceding --- line"}
		}
	}

	if pairs == 0 {
		return nil, &ValidationError{Kind: FailureMalformed, Detail: "no ---/+++ header pair found"}
	}
	return files, nil
}

// headerPath extracts and validates one side of a ---/+++ header pair.
// Returns "" for the /dev/null sentinel.
func headerPath(raw, prefix string) (string, error) {
	if tab := strings.IndexByte(raw, '\t'); tab >= 0 {
		raw = raw[:tab]
	}
	raw = strings.TrimSpace(raw)
	if raw == devNull {
		return "", nil
	}
	if strings.HasPrefix(raw, "/") {
		return "", &ValidationError{Kind: FailurePathTraversal, Detail: fmt.Sprintf("absolute path %q", raw)}
	}
	if !strings.HasPrefix(raw, prefix) {
		return "", &ValidationError{Kind: FailureMalformed, Detail: fmt.Sprintf("path %q does not start with %q", raw, prefix)}
	}
	p := strings.TrimPrefix(raw, prefix)
	if p == "" {
		return "", &ValidationError{Kind: FailureMalformed, Detail: fmt.Sprintf("empty path after %q prefix", prefix)}
	}
	if strings.HasPrefix(p, "/") {
		return "", &ValidationError{Kind: FailurePathTraversal, Detail: fmt.Sprintf("absolute path %q", raw)}
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", &ValidationError{Kind: FailurePathTraversal, Detail: fmt.Sprintf("path %q escapes the repository root", raw)}
		}
	}
	return p, nil
}
