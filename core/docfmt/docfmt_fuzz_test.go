package docfmt

import (
	"strings"
	"testing"

	"github.com/huangsam/patchcorpus/schema"
)

// FuzzLengthFramingRoundTrip packs arbitrary content with length framing and
// checks the parser gives it back unchanged.
func FuzzLengthFramingRoundTrip(f *testing.F) {
	seeds := []struct {
		path, diff, before, after string
	}{
		{"lib/a.py", "+B\n-A\n", "A", "B"},
		{"x", "", "", ""},
		{"README.md", "### PATCH DIFF ###\n", "### OLD VERSION FILES ###\n", "----- FILE: y (NEW) -----\n"},
		{"dir/(OLD).txt", "\n\n", "\n", "\n\n\n"},
	}
	for _, seed := range seeds {
		f.Add(seed.path, seed.diff, seed.before, seed.after)
	}

	f.Fuzz(func(t *testing.T, path, diff, before, after string) {
		if path == "" || strings.Contains(path, "\n") {
			t.Skip()
		}
		summary := schema.ChangeSummary{ChangedFiles: []string{path}, FilesSaved: []schema.SavedFile{{File: path, Old: true, New: true}}}
		text := NewPackager(schema.LengthPrefixedFraming, "").Pack("GHSA-1", "abc1234", diff, summary, map[string]string{path: before}, map[string]string{path: after})

		doc, err := NewParser(schema.DuplicateReject).Parse(text)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if doc.DiffText != diff {
			t.Fatalf("diff mismatch: %q != %q", doc.DiffText, diff)
		}
		if doc.Before[path] != before || doc.After[path] != after {
			t.Fatalf("content mismatch for %q", path)
		}
	})
}

// hasMarkerLine reports whether any line of s could be read as a section
// label or a file header.
func hasMarkerLine(s string) bool {
	for line := range strings.SplitSeq(s, "\n") {
		if strings.HasPrefix(line, "### ") || strings.HasPrefix(line, schema.FileHeaderPrefix) {
			return true
		}
	}
	return false
}

// FuzzDelimitedRoundTrip packs content with delimited framing and checks the
// parser gives it back unchanged. Delimited framing cannot carry lines that
// look like labels or file headers, so those inputs are skipped.
func FuzzDelimitedRoundTrip(f *testing.F) {
	seeds := []struct {
		path, diff, before, after string
	}{
		{"lib/a.py", "+B\n-A\n", "A", "B"},
		{"x", "", "", ""},
		{"dir/(OLD).txt", "\n\n", "\n", "\n\n\n"},
		{"src/x (NEW)", "## not a label\n", "#### deeper\n", " ----- FILE: indented\n"},
		{"a.md", "a\n\n\n", "trailing\n\n", "no newline"},
	}
	for _, seed := range seeds {
		f.Add(seed.path, seed.diff, seed.before, seed.after)
	}

	f.Fuzz(func(t *testing.T, path, diff, before, after string) {
		if path == "" || strings.Contains(path, "\n") || strings.Contains(path, " "+schema.LengthMarkerPrefix) {
			t.Skip()
		}
		if hasMarkerLine(diff) || hasMarkerLine(before) || hasMarkerLine(after) {
			t.Skip()
		}
		summary := schema.ChangeSummary{ChangedFiles: []string{path}, FilesSaved: []schema.SavedFile{{File: path, Old: true, New: true}}}
		text := NewPackager(schema.DelimitedFraming, "").Pack("GHSA-1", "abc1234", diff, summary, map[string]string{path: before}, map[string]string{path: after})

		doc, err := NewParser(schema.DuplicateReject).Parse(text)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if len(doc.Sections) != len(schema.SectionLabels) {
			t.Fatalf("sections mismatch: %q", doc.Sections)
		}
		if doc.DiffText != diff {
			t.Fatalf("diff mismatch: %q != %q", doc.DiffText, diff)
		}
		if len(doc.Before) != 1 || len(doc.After) != 1 {
			t.Fatalf("expected one block per side, got %d and %d", len(doc.Before), len(doc.After))
		}
		if doc.Before[path] != before {
			t.Fatalf("before mismatch for %q: %q != %q", path, doc.Before[path], before)
		}
		if doc.After[path] != after {
			t.Fatalf("after mismatch for %q: %q != %q", path, doc.After[path], after)
		}
	})
}

// FuzzParse feeds arbitrary text to the parser, which must never panic.
func FuzzParse(f *testing.F) {
	f.Add(schema.DiffSectionLabel + "\nx\n\n")
	f.Add(schema.OldSectionLabel + " [len=3]\nabc")
	f.Add(schema.NewSectionLabel + "\n\n----- FILE: a (NEW) [len=99] -----\nz")
	f.Add("")

	f.Fuzz(func(_ *testing.T, text string) {
		_, _ = NewParser(schema.DuplicateAppend).Parse(text)
	})
}
