package ai

import "strings"

// ExtractDiff pulls a unified diff out of a model response. It prefers a
// fenced ```diff block, falls back to any fenced block that looks like a
// diff, then to the first ---/diff --git line through the end of the text.
// Returns "" when no diff is present.
func ExtractDiff(text string) string {
	if d := fencedBlock(text, "```diff"); d != "" {
		return d
	}
	if d := fencedBlock(text, "```"); looksLikeDiff(d) {
		return d
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "diff --git ") || strings.HasPrefix(line, "--- ") {
			return ensureTrailingNewline(strings.Join(lines[i:], "\n"))
		}
	}
	return ""
}

// fencedBlock returns the content of the first fence opened by marker.
func fencedBlock(text, marker string) string {
	start := strings.Index(text, marker)
	if start < 0 {
		return ""
	}
	rest := text[start+len(marker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		return ""
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return ""
	}
	return ensureTrailingNewline(rest[:end])
}

func looksLikeDiff(s string) bool {
	return strings.Contains(s, "--- ") && strings.Contains(s, "+++ ")
}

// ensureTrailingNewline keeps git apply happy with fenced diffs.
func ensureTrailingNewline(s string) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	return s + "\n"
}
