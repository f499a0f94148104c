package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFilterBareAndAnchoredPatterns(t *testing.T) {
	f, err := New([]string{"node_modules", "dist/", "build/**", "*.log"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	cases := []struct {
		path    string
		ignored bool
	}{
		{"node_modules", true},
		{"pkg/node_modules/left-pad/index.js", true},
		{"dist", true},
		{"src/dist/x.go", true},
		{"build/out/a.o", true},
		{"debug.log", true},
		{"logs/yesterday.log", true},
		{"src/main.go", false},
		{"builder/x.go", false},
		{"distance.go", false},
	}
	for _, tc := range cases {
		if got := f.Ignored(tc.path); got != tc.ignored {
			t.Errorf("Ignored(%q) = %v, want %v", tc.path, got, tc.ignored)
		}
	}
}

func TestFilterAnchoredMatchesFullPathOnly(t *testing.T) {
	f, err := New([]string{"vendor/**"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !f.Ignored("vendor/dep/dep.go") {
		t.Errorf("expected vendor/dep/dep.go ignored")
	}
	if f.Ignored("pkg/vendor/dep.go") {
		t.Errorf("anchored pattern matched a nested segment")
	}
}

func TestZeroFilterIgnoresNothing(t *testing.T) {
	var f Filter
	if f.Ignored("anything.go") {
		t.Errorf("zero filter ignored a path")
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	if _, err := New([]string{"[unclosed"}); err == nil {
		t.Fatal("expected error for malformed pattern")
	}
}

func TestLoadParsesFileSkippingComments(t *testing.T) {
	root := t.TempDir()
	content := "# generated output\nnode_modules\n\ndist/\n"
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !f.Ignored("node_modules/x.js") {
		t.Errorf("expected node_modules ignored")
	}
	if !f.Ignored("dist") {
		t.Errorf("expected dist ignored")
	}
	if f.Ignored("# generated output") {
		t.Errorf("comment line treated as a pattern")
	}
}

func TestLoadMissingFileIgnoresNothing(t *testing.T) {
	f, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.Ignored("main.go") {
		t.Errorf("missing ignore file ignored a path")
	}
}
