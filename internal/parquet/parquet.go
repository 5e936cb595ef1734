// Package parquet provides data structures and functions for exporting corpus
// data to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/huangsam/patchcorpus/schema"
)

// BuildRun represents a single corpus build with metadata.
// This struct maps to the patchcorpus_build_runs database table.
type BuildRun struct {
	// BuildID is the unique identifier for this build
	BuildID int64 `parquet:"build_id,snappy"`

	// StartTime is when the build began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the build completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the build in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	TotalAssembled int32 `parquet:"total_assembled,snappy"`
	TotalSkipped   int32 `parquet:"total_skipped,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// CorpusEntry is the outcome of one packaged document within a build.
// This struct maps to the patchcorpus_entries database table.
type CorpusEntry struct {
	BuildID      int64     `parquet:"build_id,snappy"`
	AdvisoryID   string    `parquet:"ghsa_id,snappy"`
	CommitHash   string    `parquet:"commit_hash,snappy"`
	Status       string    `parquet:"status,snappy"`
	OldFiles     int32     `parquet:"old_files,snappy"`
	NewFiles     int32     `parquet:"new_files,snappy"`
	LinesAdded   int32     `parquet:"lines_added,snappy"`
	LinesRemoved int32     `parquet:"lines_removed,snappy"`
	Reason       *string   `parquet:"reason,optional,snappy"`
	RecordedAt   time.Time `parquet:"recorded_at,snappy"`
}

// CorpusRecord is one corpus training example. The file maps are stored as
// JSON objects keyed by path.
type CorpusRecord struct {
	AdvisoryID  string  `parquet:"ghsa_id,snappy"`
	CommitHash  string  `parquet:"commit_hash,snappy"`
	PatchDiff   string  `parquet:"patch_diff,zstd"`
	OldCodeJSON string  `parquet:"old_code,zstd"`
	NewCodeJSON string  `parquet:"new_code,zstd"`
	Portability *string `parquet:"portability,optional,snappy"`
	Reason      *string `parquet:"reason,optional,snappy"`
}

// WriteBuildRunsParquet writes build runs to a Parquet file.
func WriteBuildRunsParquet(data []BuildRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteCorpusEntriesParquet writes corpus entries to a Parquet file.
func WriteCorpusEntriesParquet(data []CorpusEntry, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteCorpusRecordsParquet writes corpus records to a Parquet file.
func WriteCorpusRecordsParquet(data []CorpusRecord, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet writes rows of T, whose schema is derived from its struct tags.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertBuildRunRecords converts store rows for Parquet export.
func ConvertBuildRunRecords(records []schema.BuildRunRecord) []BuildRun {
	result := make([]BuildRun, len(records))
	for i, record := range records {
		result[i] = BuildRun{
			BuildID:        record.BuildID,
			StartTime:      record.StartTime,
			EndTime:        record.EndTime,
			RunDurationMs:  record.RunDurationMs,
			TotalAssembled: record.TotalAssembled,
			TotalSkipped:   record.TotalSkipped,
			ConfigParams:   record.ConfigParams,
		}
	}
	return result
}

// ConvertCorpusEntryRecords converts store rows for Parquet export.
func ConvertCorpusEntryRecords(records []schema.CorpusEntryRecord) []CorpusEntry {
	result := make([]CorpusEntry, len(records))
	for i, record := range records {
		result[i] = CorpusEntry{
			BuildID:      record.BuildID,
			AdvisoryID:   record.AdvisoryID,
			CommitHash:   record.CommitHash,
			Status:       record.Status,
			OldFiles:     record.OldFiles,
			NewFiles:     record.NewFiles,
			LinesAdded:   record.LinesAdded,
			LinesRemoved: record.LinesRemoved,
			Reason:       record.Reason,
			RecordedAt:   record.RecordedAt,
		}
	}
	return result
}

// ConvertCorpusRecords converts corpus records for Parquet export.
func ConvertCorpusRecords(records []schema.CorpusRecord) ([]CorpusRecord, error) {
	result := make([]CorpusRecord, len(records))
	for i, record := range records {
		oldCode, err := encodeFiles(record.OldCode)
		if err != nil {
			return nil, err
		}
		newCode, err := encodeFiles(record.NewCode)
		if err != nil {
			return nil, err
		}
		result[i] = CorpusRecord{
			AdvisoryID:  record.AdvisoryID,
			CommitHash:  record.CommitHash,
			PatchDiff:   record.PatchDiff,
			OldCodeJSON: oldCode,
			NewCodeJSON: newCode,
			Portability: record.Portability,
			Reason:      record.Reason,
		}
	}
	return result, nil
}

func encodeFiles(files map[string]string) (string, error) {
	if files == nil {
		files = map[string]string{}
	}
	data, err := json.Marshal(files)
	if err != nil {
		return "", fmt.Errorf("failed to encode file map: %w", err)
	}
	return string(data), nil
}
