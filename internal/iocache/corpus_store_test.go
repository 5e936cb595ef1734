package iocache

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/patchcorpus/schema"
)

func newMemoryCorpusStore(t *testing.T) *CorpusStoreImpl {
	t.Helper()
	store, err := NewCorpusStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store.(*CorpusStoreImpl)
}

func TestCorpusStoreNoneBackend(t *testing.T) {
	store, err := NewCorpusStore(schema.NoneBackend, "")
	require.NoError(t, err)

	id, err := store.BeginBuild(time.Now(), map[string]any{"workers": 1})
	require.NoError(t, err)
	assert.Equal(t, int64(0), id)
	assert.NoError(t, store.RecordEntry(id, schema.CorpusEntry{AdvisoryID: "GHSA-1"}))
	assert.NoError(t, store.EndBuild(id, time.Now(), 1, 0))

	runs, err := store.GetAllBuildRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestCorpusStoreBuildLifecycle(t *testing.T) {
	store := newMemoryCorpusStore(t)

	start := time.Now().Add(-2 * time.Second)
	buildID, err := store.BeginBuild(start, map[string]any{"framing": "delimited"})
	require.NoError(t, err)
	assert.Positive(t, buildID)

	require.NoError(t, store.RecordEntry(buildID, schema.CorpusEntry{
		AdvisoryID: "GHSA-1", CommitHash: "deadbee", Status: schema.EntryAssembled,
		OldFiles: 1, NewFiles: 1, LinesAdded: 3, LinesRemoved: 1,
	}))
	require.NoError(t, store.RecordEntry(buildID, schema.CorpusEntry{
		AdvisoryID: "GHSA-2", CommitHash: "abc1234", Status: schema.EntrySkipped,
		Reason: "malformed packaged document: no section labels found",
	}))
	require.NoError(t, store.EndBuild(buildID, time.Now(), 1, 1))

	runs, err := store.GetAllBuildRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, buildID, run.BuildID)
	assert.WithinDuration(t, start, run.StartTime, time.Millisecond)
	require.NotNil(t, run.EndTime)
	require.NotNil(t, run.RunDurationMs)
	assert.GreaterOrEqual(t, *run.RunDurationMs, int32(2000))
	assert.Equal(t, int32(1), run.TotalAssembled)
	assert.Equal(t, int32(1), run.TotalSkipped)
	require.NotNil(t, run.ConfigParams)
	assert.JSONEq(t, `{"framing":"delimited"}`, *run.ConfigParams)

	entries, err := store.GetAllEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "GHSA-1", entries[0].AdvisoryID)
	assert.Equal(t, "assembled", entries[0].Status)
	assert.Equal(t, int32(3), entries[0].LinesAdded)
	assert.Nil(t, entries[0].Reason)
	assert.Equal(t, "skipped", entries[1].Status)
	require.NotNil(t, entries[1].Reason)
	assert.Contains(t, *entries[1].Reason, "no section labels")
}

func TestCorpusStoreDuplicateEntryRejected(t *testing.T) {
	store := newMemoryCorpusStore(t)
	buildID, err := store.BeginBuild(time.Now(), nil)
	require.NoError(t, err)

	entry := schema.CorpusEntry{AdvisoryID: "GHSA-1", CommitHash: "deadbee", Status: schema.EntryAssembled}
	require.NoError(t, store.RecordEntry(buildID, entry))
	assert.Error(t, store.RecordEntry(buildID, entry))
}

func TestCorpusStoreStatusAndHistory(t *testing.T) {
	store := newMemoryCorpusStore(t)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 0, status.TotalRuns)
	assert.Equal(t, int64(0), status.TableSizes[buildRunsTable])

	for i := range 3 {
		id, err := store.BeginBuild(time.Now(), nil)
		require.NoError(t, err)
		require.NoError(t, store.EndBuild(id, time.Now(), i+1, i))
	}
	// An unfinished build stays in the history
	_, err = store.BeginBuild(time.Now(), nil)
	require.NoError(t, err)

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 4, status.TotalRuns)
	assert.Equal(t, int64(4), status.LastRunID)
	assert.Equal(t, 6, status.TotalAssembled)
	assert.Equal(t, 3, status.TotalSkipped)
	assert.Equal(t, int64(4), status.TableSizes[buildRunsTable])

	runs, err := store.GetAllBuildRuns()
	require.NoError(t, err)
	require.Len(t, runs, 4)
	assert.Equal(t, int64(4), runs[0].BuildID, "newest first")
	assert.Nil(t, runs[0].EndTime)

	var buf bytes.Buffer
	require.NoError(t, WriteBuildHistory(&buf, runs, 1))
	assert.Contains(t, buf.String(), "running")
	assert.NotContains(t, buf.String(), "ms", "only the unfinished build is shown")

	buf.Reset()
	require.NoError(t, WriteBuildHistory(&buf, runs, 0))
	assert.Contains(t, buf.String(), "ms")
}

func TestEndBuildUnknownID(t *testing.T) {
	store := newMemoryCorpusStore(t)
	assert.Error(t, store.EndBuild(42, time.Now(), 0, 0))
}

func TestMigrateCorpus(t *testing.T) {
	t.Run("none backend", func(t *testing.T) {
		err := MigrateCorpus(schema.NoneBackend, "", -1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "migrations are not supported for NoneBackend")
	})

	t.Run("sqlite up and down", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "corpus.db")

		require.NoError(t, MigrateCorpus(schema.SQLiteBackend, dbPath, -1))
		assert.FileExists(t, dbPath)
		require.NoError(t, MigrateCorpus(schema.SQLiteBackend, dbPath, -1))
		require.NoError(t, MigrateCorpus(schema.SQLiteBackend, dbPath, 1))
		require.NoError(t, MigrateCorpus(schema.SQLiteBackend, dbPath, 0))
		require.NoError(t, MigrateCorpus(schema.SQLiteBackend, dbPath, -1))

		// Migrated tables are usable by the store
		store, err := NewCorpusStore(schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		_, err = store.BeginBuild(time.Now(), nil)
		assert.NoError(t, err)
	})

	t.Run("sqlite in memory", func(t *testing.T) {
		assert.NoError(t, MigrateCorpus(schema.SQLiteBackend, ":memory:", -1))
	})
}

func TestExecuteCorpusExport(t *testing.T) {
	dir := t.TempDir()
	store, err := NewCorpusStore(schema.SQLiteBackend, filepath.Join(dir, "corpus.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	t.Run("requires output file", func(t *testing.T) {
		assert.Error(t, ExecuteCorpusExport(store, "", ""))
	})

	t.Run("no builds", func(t *testing.T) {
		err := ExecuteCorpusExport(store, filepath.Join(dir, "empty"), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no build data")
	})

	id, err := store.BeginBuild(time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, store.RecordEntry(id, schema.CorpusEntry{AdvisoryID: "GHSA-1", CommitHash: "deadbee", Status: schema.EntryAssembled}))
	require.NoError(t, store.EndBuild(id, time.Now(), 1, 0))

	corpusFile := filepath.Join(dir, "dataset.json")
	records := []schema.CorpusRecord{{
		AdvisoryID: "GHSA-1", CommitHash: "deadbee", PatchDiff: "diff",
		OldCode: map[string]string{"a.py": "A"}, NewCode: map[string]string{"a.py": "B"},
	}}
	data, err := json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(corpusFile, data, 0o644))

	out := filepath.Join(dir, "export")
	require.NoError(t, ExecuteCorpusExport(store, out, corpusFile))
	assert.FileExists(t, out+".build_runs.parquet")
	assert.FileExists(t, out+".entries.parquet")
	assert.FileExists(t, out+".records.parquet")

	t.Run("missing corpus file is skipped", func(t *testing.T) {
		out := filepath.Join(dir, "partial")
		require.NoError(t, ExecuteCorpusExport(store, out, filepath.Join(dir, "absent.json")))
		assert.NoFileExists(t, out+".records.parquet")
	})
}

func TestExecuteCorpusExportStoreError(t *testing.T) {
	store := &MockCorpusStore{}
	store.On("GetStatus").Return(schema.CorpusStatus{}, errors.New("boom"))

	err := ExecuteCorpusExport(store, filepath.Join(t.TempDir(), "x"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	store.AssertExpectations(t)
}
