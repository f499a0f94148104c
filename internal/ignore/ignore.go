// Package ignore answers path-exclusion queries from a project-local
// .preflightignore file. Patterns keep the engine's staging and patch
// application away from generated or vendored paths.
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// FileName is the project-local ignore file, one glob per line.
const FileName = ".preflightignore"

type rule struct {
	g        glob.Glob
	anchored bool // pattern contained a slash: match the whole relative path
}

// Filter matches repository-relative paths against loaded glob patterns.
// The zero value ignores nothing.
type Filter struct {
	rules []rule
}

// Load reads FileName from repoRoot. A missing file means nothing is
// ignored and is not an error; any other read failure is.
func Load(repoRoot string) (*Filter, error) {
	f, err := os.Open(filepath.Join(repoRoot, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &Filter{}, nil
		}
		return nil, fmt.Errorf("open %s: %w", FileName, err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", FileName, err)
	}
	return New(patterns)
}

// New compiles a filter from the given patterns.
func New(patterns []string) (*Filter, error) {
	f := &Filter{}
	for _, pattern := range patterns {
		// A trailing slash names a directory; the bare name matches any
		// path segment below.
		pattern = strings.TrimSuffix(pattern, "/")
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		f.rules = append(f.rules, rule{g: g, anchored: strings.Contains(pattern, "/")})
	}
	return f, nil
}

// Ignored reports whether the repository-relative path matches any pattern.
// Patterns containing a slash match the full path; bare patterns match any
// individual path segment, mirroring gitignore semantics.
func (f *Filter) Ignored(path string) bool {
	norm := filepath.ToSlash(filepath.Clean(path))
	norm = strings.TrimPrefix(norm, "./")
	segments := strings.Split(norm, "/")
	for _, r := range f.rules {
		if r.anchored {
			if r.g.Match(norm) {
				return true
			}
			continue
		}
		for _, seg := range segments {
			if r.g.Match(seg) {
				return true
			}
		}
	}
	return false
}
