package parquet

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/patchcorpus/schema"
)

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func TestStructTags(t *testing.T) {
	tests := []struct {
		name    string
		model   any
		columns []string
	}{
		{"build runs", new(BuildRun), []string{"build_id", "start_time", "end_time", "run_duration_ms", "total_assembled", "total_skipped", "config_params"}},
		{"entries", new(CorpusEntry), []string{"build_id", "ghsa_id", "commit_hash", "status", "old_files", "new_files", "lines_added", "lines_removed", "reason", "recorded_at"}},
		{"records", new(CorpusRecord), []string{"ghsa_id", "commit_hash", "patch_diff", "old_code", "new_code", "portability", "reason"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parquet.SchemaOf(tt.model)
			for _, col := range tt.columns {
				_, ok := s.Lookup(col)
				assert.True(t, ok, "column %s should exist", col)
			}
		})
	}
}

func TestWriteBuildRunsParquet(t *testing.T) {
	now := time.Now()
	end := now.Add(time.Minute)
	dur := int32(60000)
	params := `{"framing":"delimited"}`
	data := []BuildRun{
		{BuildID: 1, StartTime: now, EndTime: &end, RunDurationMs: &dur, TotalAssembled: 10, TotalSkipped: 1, ConfigParams: &params},
		{BuildID: 2, StartTime: now},
	}
	path := filepath.Join(t.TempDir(), "runs.parquet")
	require.NoError(t, WriteBuildRunsParquet(data, path))

	got := readAll[BuildRun](t, path)
	require.Len(t, got, 2)
	assert.Equal(t, int32(10), got[0].TotalAssembled)
	require.NotNil(t, got[0].EndTime)
	assert.WithinDuration(t, end, *got[0].EndTime, time.Microsecond)
	assert.Equal(t, params, *got[0].ConfigParams)
	assert.Nil(t, got[1].EndTime)
	assert.Nil(t, got[1].RunDurationMs)
	assert.Nil(t, got[1].ConfigParams)
}

func TestWriteCorpusEntriesParquet(t *testing.T) {
	reason := "malformed"
	data := []CorpusEntry{
		{BuildID: 1, AdvisoryID: "GHSA-1", CommitHash: "abc1234", Status: "assembled", OldFiles: 1, NewFiles: 2, LinesAdded: 3, RecordedAt: time.Now()},
		{BuildID: 1, AdvisoryID: "GHSA-2", CommitHash: "bcd2345", Status: "skipped", Reason: &reason, RecordedAt: time.Now()},
	}
	path := filepath.Join(t.TempDir(), "entries.parquet")
	require.NoError(t, WriteCorpusEntriesParquet(data, path))

	got := readAll[CorpusEntry](t, path)
	require.Len(t, got, 2)
	assert.Equal(t, "GHSA-1", got[0].AdvisoryID)
	assert.Equal(t, int32(2), got[0].NewFiles)
	assert.Nil(t, got[0].Reason)
	require.NotNil(t, got[1].Reason)
	assert.Equal(t, "malformed", *got[1].Reason)
}

func TestCorpusRecordsRoundTrip(t *testing.T) {
	records := []schema.CorpusRecord{{
		AdvisoryID: "GHSA-1",
		CommitHash: "deadbee",
		PatchDiff:  "diff --git a/x b/x\n",
		OldCode:    map[string]string{"lib/a.py": "A"},
		NewCode:    map[string]string{"lib/a.py": "B", "new.py": "<N & M>"},
	}}
	rows, err := ConvertCorpusRecords(records)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "corpus.parquet")
	require.NoError(t, WriteCorpusRecordsParquet(rows, path))

	got := readAll[CorpusRecord](t, path)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Portability)
	assert.Nil(t, got[0].Reason)

	var newCode map[string]string
	require.NoError(t, json.Unmarshal([]byte(got[0].NewCodeJSON), &newCode))
	assert.Equal(t, records[0].NewCode, newCode)
}

func TestConvertNilFileMaps(t *testing.T) {
	rows, err := ConvertCorpusRecords([]schema.CorpusRecord{{AdvisoryID: "GHSA-1"}})
	require.NoError(t, err)
	assert.Equal(t, "{}", rows[0].OldCodeJSON)
	assert.Equal(t, "{}", rows[0].NewCodeJSON)
}

func TestConvertStoreRecords(t *testing.T) {
	end := time.Now()
	runs := ConvertBuildRunRecords([]schema.BuildRunRecord{{BuildID: 7, EndTime: &end, TotalAssembled: 3, TotalSkipped: 2}})
	require.Len(t, runs, 1)
	assert.Equal(t, int64(7), runs[0].BuildID)
	assert.Equal(t, int32(2), runs[0].TotalSkipped)

	entries := ConvertCorpusEntryRecords([]schema.CorpusEntryRecord{{BuildID: 7, AdvisoryID: "GHSA-1", Status: "skipped"}})
	require.Len(t, entries, 1)
	assert.Equal(t, "skipped", entries[0].Status)
}

func TestWriteEmptyAndInvalidPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteBuildRunsParquet([]BuildRun{}, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Error(t, WriteCorpusEntriesParquet(nil, "/nonexistent/directory/out.parquet"))
}
