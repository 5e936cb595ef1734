package core

import (
	"regexp"
	"strings"
)

// targetPathPrefix marks the new-side path of a file in a unified diff.
const targetPathPrefix = "+++ b/"

// declarationPattern matches a function or class declaration once the diff
// marker has been removed. It is a language-agnostic heuristic.
var declarationPattern = regexp.MustCompile(`^\s*(async\s+)?(def|class|func|function)\s+\w`)

// IntrospectDiff derives the changed file paths and a best-effort list of
// changed declaration lines from a commit's diff text.
// Files come from "+++ b/<path>" lines in order, without dedup; deleted files
// (whose target is /dev/null) are not listed. Symbols are informational only.
func IntrospectDiff(diffText string) (files []string, symbols []string) {
	files = []string{}
	symbols = []string{}
	for line := range strings.SplitSeq(diffText, "\n") {
		if path, ok := strings.CutPrefix(line, targetPathPrefix); ok {
			files = append(files, strings.TrimSpace(path))
			continue
		}
		if strings.HasPrefix(line, "+++ ") || strings.HasPrefix(line, "--- ") {
			continue
		}
		if declarationPattern.MatchString(stripDiffMarker(line)) {
			symbols = append(symbols, strings.TrimSpace(line))
		}
	}
	return files, symbols
}

// stripDiffMarker removes one leading '+', '-' or ' ' context marker.
func stripDiffMarker(line string) string {
	if line == "" {
		return line
	}
	switch line[0] {
	case '+', '-', ' ':
		return line[1:]
	}
	return line
}
