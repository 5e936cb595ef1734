package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/patchcorpus/core/docfmt"
	"github.com/huangsam/patchcorpus/internal/contract"
	"github.com/huangsam/patchcorpus/internal/staging"
	"github.com/huangsam/patchcorpus/schema"
)

// Assembler turns packaged documents into corpus records.
type Assembler struct {
	parser          *docfmt.Parser
	requireSections bool
	store           contract.CorpusStore // optional build tracking
	params          map[string]any
}

// NewAssembler creates an Assembler. store may be nil to disable build tracking.
func NewAssembler(parser *docfmt.Parser, requireSections bool, store contract.CorpusStore, params map[string]any) *Assembler {
	return &Assembler{parser: parser, requireSections: requireSections, store: store, params: params}
}

// Assemble parses every packaged document in area, ordered by advisory and
// then commit. A document that cannot be used is logged and skipped; it never
// aborts the build. Only listing the area or a cancelled context fails.
func (a *Assembler) Assemble(ctx context.Context, area *staging.Area) (schema.BuildReport, error) {
	report := schema.BuildReport{
		Records: []schema.CorpusRecord{},
		Entries: []schema.CorpusEntry{},
		Skipped: []schema.SkippedDocument{},
	}

	docs, err := area.ListDocuments()
	if err != nil {
		return report, err
	}

	buildID := a.beginBuild()

	for _, ref := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		var record schema.CorpusRecord
		var entry schema.CorpusEntry
		text, err := area.ReadDocument(ref)
		if err == nil {
			record, entry, err = a.AssembleDocument(ref.AdvisoryID, ref.CommitHash, text)
		}
		if err != nil {
			contract.LogWarn(fmt.Sprintf("skipping document %s/%s (%s)", ref.AdvisoryID, ref.CommitHash, ref.Path), err)
			report.Skipped = append(report.Skipped, schema.SkippedDocument{
				AdvisoryID: ref.AdvisoryID,
				CommitHash: ref.CommitHash,
				Path:       ref.Path,
				Reason:     err.Error(),
			})
			entry = schema.CorpusEntry{
				AdvisoryID: ref.AdvisoryID,
				CommitHash: ref.CommitHash,
				Status:     schema.EntrySkipped,
				Reason:     err.Error(),
			}
		} else {
			report.Records = append(report.Records, record)
		}
		report.Entries = append(report.Entries, entry)
		a.recordEntry(buildID, entry)
	}

	a.endBuild(buildID, len(report.Records), len(report.Skipped))
	return report, nil
}

// AssembleDocument parses one document and validates it into a record.
// The judgment fields of the record are always nil.
func (a *Assembler) AssembleDocument(advisoryID, commitHash, text string) (schema.CorpusRecord, schema.CorpusEntry, error) {
	doc, err := a.parser.Parse(text)
	if err != nil {
		return schema.CorpusRecord{}, schema.CorpusEntry{}, err
	}
	if a.requireSections {
		if err := checkSections(doc); err != nil {
			return schema.CorpusRecord{}, schema.CorpusEntry{}, err
		}
	}
	if err := CheckChangedFiles(doc); err != nil {
		return schema.CorpusRecord{}, schema.CorpusEntry{}, err
	}

	record := schema.CorpusRecord{
		AdvisoryID: advisoryID,
		CommitHash: commitHash,
		PatchDiff:  doc.DiffText,
		OldCode:    doc.Before,
		NewCode:    doc.After,
	}
	added, removed := DocumentStats(doc.Before, doc.After)
	entry := schema.CorpusEntry{
		AdvisoryID:   advisoryID,
		CommitHash:   commitHash,
		Status:       schema.EntryAssembled,
		OldFiles:     len(doc.Before),
		NewFiles:     len(doc.After),
		LinesAdded:   added,
		LinesRemoved: removed,
	}
	return record, entry, nil
}

// CheckChangedFiles verifies that every snapshot key is listed in the
// summary's changed files. An empty list cannot be checked and passes.
func CheckChangedFiles(doc *schema.Document) error {
	if len(doc.Summary.ChangedFiles) == 0 {
		return nil
	}
	changed := make(map[string]struct{}, len(doc.Summary.ChangedFiles))
	for _, f := range doc.Summary.ChangedFiles {
		changed[f] = struct{}{}
	}
	for _, files := range []map[string]string{doc.Before, doc.After} {
		for path := range files {
			if _, ok := changed[path]; !ok {
				return fmt.Errorf("%w: %q", ErrInvariantViolation, path)
			}
		}
	}
	return nil
}

// checkSections rejects documents that lack any of the four section labels.
func checkSections(doc *schema.Document) error {
	found := make(map[string]struct{}, len(doc.Sections))
	for _, s := range doc.Sections {
		found[s] = struct{}{}
	}
	for _, label := range schema.SectionLabels {
		if _, ok := found[label]; !ok {
			return fmt.Errorf("%w: missing section %s", docfmt.ErrMalformedDocument, label)
		}
	}
	return nil
}

func (a *Assembler) beginBuild() int64 {
	if a.store == nil {
		return 0
	}
	buildID, err := a.store.BeginBuild(time.Now(), a.params)
	if err != nil {
		contract.LogWarn("Build tracking initialization failed", err)
		return 0
	}
	return buildID
}

func (a *Assembler) recordEntry(buildID int64, entry schema.CorpusEntry) {
	if a.store == nil || buildID == 0 {
		return
	}
	if err := a.store.RecordEntry(buildID, entry); err != nil {
		contract.LogWarn(fmt.Sprintf("Build tracking failed for %s/%s", entry.AdvisoryID, entry.CommitHash), err)
	}
}

func (a *Assembler) endBuild(buildID int64, assembled, skipped int) {
	if a.store == nil || buildID == 0 {
		return
	}
	if err := a.store.EndBuild(buildID, time.Now(), assembled, skipped); err != nil {
		contract.LogWarn("Failed to finalize build tracking", err)
	}
}
