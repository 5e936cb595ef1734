// Package docfmt writes and reads packaged documents: the section-delimited
// text form of one advisory commit.
package docfmt

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/huangsam/patchcorpus/schema"
)

// Packager serializes one commit into a packaged document.
type Packager struct {
	Framing      schema.Framing
	PromptHeader string // optional preamble, ignored by the parser
}

// NewPackager creates a Packager. An empty framing selects delimited framing.
func NewPackager(framing schema.Framing, promptHeader string) *Packager {
	if framing == "" {
		framing = schema.DelimitedFraming
	}
	return &Packager{Framing: framing, PromptHeader: promptHeader}
}

// Pack produces the four sections in fixed order. It never fails: an empty
// file list still yields every label with an empty body.
func (p *Packager) Pack(advisoryID, commitID, diffText string, summary schema.ChangeSummary, before, after map[string]string) string {
	var b strings.Builder

	if p.PromptHeader != "" {
		b.WriteString(p.PromptHeader)
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "Advisory: %s\nCommit: %s\n\n", advisoryID, commitID)
	}

	p.writeSection(&b, schema.DiffSectionLabel, diffText, "\n\n")
	p.writeSection(&b, schema.SummarySectionLabel, encodeSummary(summary), "\n\n")

	order := blockOrder(summary.ChangedFiles, before, after)
	p.writeSection(&b, schema.OldSectionLabel, p.fileBlocks(order, before, schema.BeforeSide), "")
	p.writeSection(&b, schema.NewSectionLabel, p.fileBlocks(order, after, schema.AfterSide), "")

	return b.String()
}

// writeSection writes a label line followed by body. Delimited framing appends
// trailer after the body; length framing always appends a blank line.
func (p *Packager) writeSection(b *strings.Builder, label, body, trailer string) {
	b.WriteString(label)
	if p.Framing == schema.LengthPrefixedFraming {
		fmt.Fprintf(b, " %s%d]\n", schema.LengthMarkerPrefix, len(body))
		b.WriteString(body)
		b.WriteString("\n\n")
		return
	}
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString(trailer)
}

// fileBlocks renders every file of one side in the given order.
func (p *Packager) fileBlocks(order []string, files map[string]string, side schema.Side) string {
	var b strings.Builder
	for _, path := range order {
		content, ok := files[path]
		if !ok {
			continue
		}
		b.WriteString("\n")
		b.WriteString(schema.FileHeaderPrefix)
		b.WriteString(path)
		b.WriteString(" (" + side.Tag() + ")")
		if p.Framing == schema.LengthPrefixedFraming {
			fmt.Fprintf(&b, " %s%d]", schema.LengthMarkerPrefix, len(content))
		}
		b.WriteString(schema.FileHeaderSuffix)
		b.WriteString("\n")
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// blockOrder lists paths in changed-file order, then any remaining keys sorted.
// Each path appears once.
func blockOrder(changed []string, before, after map[string]string) []string {
	seen := make(map[string]struct{}, len(changed))
	order := make([]string, 0, len(changed))
	for _, path := range changed {
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		order = append(order, path)
	}

	var extra []string
	for _, files := range []map[string]string{before, after} {
		for path := range files {
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			extra = append(extra, path)
		}
	}
	slices.Sort(extra)
	return append(order, extra...)
}

// encodeSummary renders the summary as indented JSON with empty lists kept as [].
func encodeSummary(summary schema.ChangeSummary) string {
	if summary.ChangedFiles == nil {
		summary.ChangedFiles = []string{}
	}
	if summary.FilesSaved == nil {
		summary.FilesSaved = []schema.SavedFile{}
	}
	// ChangeSummary holds only strings, bools and slices of them
	data, _ := json.MarshalIndent(summary, "", "  ")
	return string(data)
}
