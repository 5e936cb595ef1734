package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/huangsam/patchcorpus/internal/contract"
	"github.com/huangsam/patchcorpus/internal/parquet"
	"github.com/huangsam/patchcorpus/schema"
)

// buildFixedWidth is the space taken by every build table column except Reason.
const buildFixedWidth = 75

// WriteBuildResults outputs the build report, dispatching based on the output format configured.
func WriteBuildResults(report schema.BuildReport, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBuildJSON(w, report, duration)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBuildCSV(w, report)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeBuildParquet(report, cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBuildTable(w, report, cfg, duration)
		}, "Wrote table")
	}
	return nil
}

// writeBuildTable generates and writes the human-readable table.
func writeBuildTable(w io.Writer, report schema.BuildReport, cfg *contract.Config, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"#", "Advisory", "Commit", "Status", "Old", "New", "+Lines", "-Lines", "Reason"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	reasonWidth := getMaxTableTextWidth(cfg, buildFixedWidth)
	data := make([][]string, 0, len(report.Entries))
	for i, e := range report.Entries {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			e.AdvisoryID,
			e.CommitHash,
			entryStatusLabel(e.Status),
			strconv.Itoa(e.OldFiles),
			strconv.Itoa(e.NewFiles),
			strconv.Itoa(e.LinesAdded),
			strconv.Itoa(e.LinesRemoved),
			truncateText(e.Reason, reasonWidth),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Assembled %d documents, skipped %d\n", len(report.Records), len(report.Skipped)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Build completed in %v. Corpus file: %s\n", duration, cfg.CorpusFile); err != nil {
		return err
	}
	return nil
}

// jsonEntry mirrors schema.CorpusEntry with stable JSON names.
type jsonEntry struct {
	AdvisoryID   string `json:"ghsa_id"`
	CommitHash   string `json:"commit_hash"`
	Status       string `json:"status"`
	OldFiles     int    `json:"old_files"`
	NewFiles     int    `json:"new_files"`
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
	Reason       string `json:"reason,omitempty"`
}

func writeBuildJSON(w io.Writer, report schema.BuildReport, duration time.Duration) error {
	entries := make([]jsonEntry, len(report.Entries))
	for i, e := range report.Entries {
		entries[i] = jsonEntry{
			AdvisoryID:   e.AdvisoryID,
			CommitHash:   e.CommitHash,
			Status:       string(e.Status),
			OldFiles:     e.OldFiles,
			NewFiles:     e.NewFiles,
			LinesAdded:   e.LinesAdded,
			LinesRemoved: e.LinesRemoved,
			Reason:       e.Reason,
		}
	}
	skipped := report.Skipped
	if skipped == nil {
		skipped = []schema.SkippedDocument{}
	}
	return writeJSON(w, struct {
		Assembled  int                      `json:"assembled"`
		DurationMs int64                    `json:"duration_ms"`
		Entries    []jsonEntry              `json:"entries"`
		Skipped    []schema.SkippedDocument `json:"skipped"`
	}{
		Assembled:  len(report.Records),
		DurationMs: duration.Milliseconds(),
		Entries:    entries,
		Skipped:    skipped,
	})
}

func writeBuildCSV(w io.Writer, report schema.BuildReport) error {
	header := []string{"ghsa_id", "commit_hash", "status", "old_files", "new_files", "lines_added", "lines_removed", "reason"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, e := range report.Entries {
			rec := []string{
				e.AdvisoryID,
				e.CommitHash,
				string(e.Status),
				strconv.Itoa(e.OldFiles),
				strconv.Itoa(e.NewFiles),
				strconv.Itoa(e.LinesAdded),
				strconv.Itoa(e.LinesRemoved),
				e.Reason,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeBuildParquet(report schema.BuildReport, outputFile string) error {
	if outputFile == "" {
		return errors.New("parquet output requires --output-file")
	}
	now := time.Now()
	rows := make([]parquet.CorpusEntry, len(report.Entries))
	for i, e := range report.Entries {
		row := parquet.CorpusEntry{
			AdvisoryID:   e.AdvisoryID,
			CommitHash:   e.CommitHash,
			Status:       string(e.Status),
			OldFiles:     int32(e.OldFiles),
			NewFiles:     int32(e.NewFiles),
			LinesAdded:   int32(e.LinesAdded),
			LinesRemoved: int32(e.LinesRemoved),
			RecordedAt:   now,
		}
		if e.Reason != "" {
			reason := e.Reason
			row.Reason = &reason
		}
		rows[i] = row
	}
	if err := parquet.WriteCorpusEntriesParquet(rows, outputFile); err != nil {
		return err
	}
	contract.LogProgress(true, "💾", "Wrote Parquet to %s", outputFile)
	return nil
}

// entryStatusLabel colors a corpus entry status for terminal output.
func entryStatusLabel(status schema.EntryStatus) string {
	if status == schema.EntryAssembled {
		return contract.SavedColor.Sprint(string(status))
	}
	return contract.SkippedColor.Sprint(string(status))
}

// truncateText shortens s to maxWidth runes, ending with "..." when cut.
func truncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}
