package core

import (
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// ChangeStats counts lines added and removed between two versions of a file.
// A one-sided file counts entirely as added or removed. The numbers are
// report metadata and never enter a corpus record.
func ChangeStats(before, after string) (added, removed int) {
	a := splitNonEmpty(before)
	b := splitNonEmpty(after)
	m := difflib.NewMatcher(a, b)
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'r':
			removed += op.I2 - op.I1
			added += op.J2 - op.J1
		case 'd':
			removed += op.I2 - op.I1
		case 'i':
			added += op.J2 - op.J1
		}
	}
	return added, removed
}

// DocumentStats sums ChangeStats over every path of a before/after pair.
func DocumentStats(before, after map[string]string) (added, removed int) {
	seen := make(map[string]struct{}, len(before)+len(after))
	for _, files := range []map[string]string{before, after} {
		for path := range files {
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			a, r := ChangeStats(before[path], after[path])
			added += a
			removed += r
		}
	}
	return added, removed
}

// splitNonEmpty splits s into lines that keep their newline.
func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
