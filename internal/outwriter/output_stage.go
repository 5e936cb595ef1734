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
	"github.com/huangsam/patchcorpus/schema"
)

// stageFixedWidth is the space taken by every stage table column except Error.
const stageFixedWidth = 65

// stageRow is one flattened line of the stage report.
type stageRow struct {
	AdvisoryID string
	Commit     string
	Files      int
	Before     int
	After      int
	Status     string
	Err        string
}

// flattenOutcomes yields one row per commit, or one row for an advisory that
// produced no commit at all.
func flattenOutcomes(outcomes []schema.AdvisoryOutcome) []stageRow {
	var rows []stageRow
	for _, o := range outcomes {
		if len(o.Commits) == 0 {
			status := contract.SkippedValue
			if o.Err != "" {
				status = contract.FailedValue
			}
			rows = append(rows, stageRow{AdvisoryID: o.AdvisoryID, Commit: "-", Status: status, Err: o.Err})
			continue
		}
		for _, c := range o.Commits {
			status := contract.SavedValue
			if c.Err != "" {
				status = contract.FailedValue
			}
			rows = append(rows, stageRow{
				AdvisoryID: o.AdvisoryID,
				Commit:     c.Commit.Hash,
				Files:      c.Files,
				Before:     c.BeforeSaved,
				After:      c.AfterSaved,
				Status:     status,
				Err:        c.Err,
			})
		}
	}
	return rows
}

// WriteStageResults outputs the staging outcomes, dispatching based on the output format configured.
func WriteStageResults(outcomes []schema.AdvisoryOutcome, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if outcomes == nil {
			outcomes = []schema.AdvisoryOutcome{}
		}
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, outcomes)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeStageCSV(w, flattenOutcomes(outcomes))
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return errors.New("parquet output is only available for build reports")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeStageTable(w, flattenOutcomes(outcomes), cfg, duration)
		}, "Wrote table")
	}
	return nil
}

func writeStageTable(w io.Writer, rows []stageRow, cfg *contract.Config, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Advisory", "Commit", "Files", "Before", "After", "Status", "Error"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	errWidth := getMaxTableTextWidth(cfg, stageFixedWidth)
	data := make([][]string, 0, len(rows))
	failed := 0
	for _, r := range rows {
		if r.Status == contract.FailedValue {
			failed++
		}
		data = append(data, []string{
			r.AdvisoryID,
			r.Commit,
			strconv.Itoa(r.Files),
			strconv.Itoa(r.Before),
			strconv.Itoa(r.After),
			contract.GetColorLabel(r.Status),
			truncateText(r.Err, errWidth),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Staged %d rows (%d failed) in %v with %d workers. Cache backend: %s\n",
		len(rows), failed, duration, cfg.Workers, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}

func writeStageCSV(w io.Writer, rows []stageRow) error {
	header := []string{"ghsa_id", "commit_hash", "files", "before_saved", "after_saved", "status", "error"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range rows {
			rec := []string{
				r.AdvisoryID,
				r.Commit,
				strconv.Itoa(r.Files),
				strconv.Itoa(r.Before),
				strconv.Itoa(r.After),
				r.Status,
				r.Err,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
