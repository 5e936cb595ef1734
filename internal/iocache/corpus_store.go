package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/patchcorpus/internal/contract"
	"github.com/huangsam/patchcorpus/schema"
)

// Table names for corpus build tracking.
const (
	buildRunsTable     = "patchcorpus_build_runs"
	corpusEntriesTable = "patchcorpus_entries"
)

// corpusTables lists the tracking tables in creation order.
var corpusTables = []string{buildRunsTable, corpusEntriesTable}

// CorpusStoreImpl implements the CorpusStore interface.
type CorpusStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.CorpusStore = &CorpusStoreImpl{} // Compile-time check

// NewCorpusStore creates a new CorpusStore with the specified backend.
func NewCorpusStore(backend schema.DatabaseBackend, connStr string) (contract.CorpusStore, error) {
	if backend == schema.NoneBackend {
		return &CorpusStoreImpl{backend: backend}, nil
	}

	db, err := openDatabase(backend, connStr, GetCorpusDBFilePath())
	if err != nil {
		return nil, err
	}
	if err := createCorpusTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create corpus tables: %w", err)
	}
	return &CorpusStoreImpl{db: db, backend: backend}, nil
}

// createCorpusTables creates the build tracking tables.
func createCorpusTables(db *sql.DB, backend schema.DatabaseBackend) error {
	queries := map[string]string{
		buildRunsTable:     getCreateBuildRunsQuery(backend),
		corpusEntriesTable: getCreateEntriesQuery(backend),
	}
	for _, table := range corpusTables {
		if _, err := db.Exec(queries[table]); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// getCreateBuildRunsQuery returns the CREATE TABLE query for patchcorpus_build_runs.
func getCreateBuildRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(buildRunsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				build_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms INT,
				total_assembled INT NOT NULL DEFAULT 0,
				total_skipped INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				build_id BIGSERIAL PRIMARY KEY,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms INT,
				total_assembled INT NOT NULL DEFAULT 0,
				total_skipped INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				build_id INTEGER PRIMARY KEY AUTOINCREMENT,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				total_assembled INTEGER NOT NULL DEFAULT 0,
				total_skipped INTEGER NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)
	}
}

// getCreateEntriesQuery returns the CREATE TABLE query for patchcorpus_entries.
func getCreateEntriesQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(corpusEntriesTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				build_id BIGINT NOT NULL,
				ghsa_id VARCHAR(64) NOT NULL,
				commit_hash VARCHAR(40) NOT NULL,
				status VARCHAR(16) NOT NULL,
				old_files INT NOT NULL,
				new_files INT NOT NULL,
				lines_added INT NOT NULL,
				lines_removed INT NOT NULL,
				reason TEXT,
				recorded_at DATETIME(6) NOT NULL,
				PRIMARY KEY (build_id, ghsa_id, commit_hash)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				build_id BIGINT NOT NULL,
				ghsa_id TEXT NOT NULL,
				commit_hash TEXT NOT NULL,
				status TEXT NOT NULL,
				old_files INT NOT NULL,
				new_files INT NOT NULL,
				lines_added INT NOT NULL,
				lines_removed INT NOT NULL,
				reason TEXT,
				recorded_at TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (build_id, ghsa_id, commit_hash)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				build_id INTEGER NOT NULL,
				ghsa_id TEXT NOT NULL,
				commit_hash TEXT NOT NULL,
				status TEXT NOT NULL,
				old_files INTEGER NOT NULL,
				new_files INTEGER NOT NULL,
				lines_added INTEGER NOT NULL,
				lines_removed INTEGER NOT NULL,
				reason TEXT,
				recorded_at TEXT NOT NULL,
				PRIMARY KEY (build_id, ghsa_id, commit_hash)
			);
		`, quotedTableName)
	}
}

// BeginBuild creates a new build run and returns its unique ID.
func (cs *CorpusStoreImpl) BeginBuild(startTime time.Time, configParams map[string]any) (int64, error) {
	if cs.backend == schema.NoneBackend || cs.db == nil {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quotedTableName := quoteTableName(buildRunsTable, cs.backend)
	var buildID int64
	switch cs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES ($1, $2) RETURNING build_id`, quotedTableName)
		err = cs.db.QueryRow(query, startTime, string(configJSON)).Scan(&buildID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, quotedTableName)
		var result sql.Result
		result, err = cs.db.Exec(query, formatTime(startTime, cs.backend), string(configJSON))
		if err == nil {
			buildID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert build run: %w", err)
	}
	return buildID, nil
}

// EndBuild updates the build run with completion data.
func (cs *CorpusStoreImpl) EndBuild(buildID int64, endTime time.Time, totalAssembled int, totalSkipped int) error {
	if cs.backend == schema.NoneBackend || cs.db == nil {
		return nil
	}

	quotedTableName := quoteTableName(buildRunsTable, cs.backend)
	var raw any
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE build_id = %s`, quotedTableName, placeholder(cs.backend, 1))
	if err := cs.db.QueryRow(query, buildID).Scan(&raw); err != nil {
		return fmt.Errorf("failed to get start_time for build %d: %w", buildID, err)
	}
	startTime, err := scanTime(cs.backend, raw)
	if err != nil {
		return fmt.Errorf("failed to parse start_time: %w", err)
	}

	durationMs := endTime.Sub(startTime).Milliseconds()
	update := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, total_assembled = %s, total_skipped = %s WHERE build_id = %s`,
		quotedTableName,
		placeholder(cs.backend, 1), placeholder(cs.backend, 2), placeholder(cs.backend, 3),
		placeholder(cs.backend, 4), placeholder(cs.backend, 5))
	if _, err := cs.db.Exec(update, formatTime(endTime, cs.backend), durationMs, totalAssembled, totalSkipped, buildID); err != nil {
		return fmt.Errorf("failed to update build run: %w", err)
	}
	return nil
}

// RecordEntry stores the outcome of one packaged document.
func (cs *CorpusStoreImpl) RecordEntry(buildID int64, entry schema.CorpusEntry) error {
	if cs.backend == schema.NoneBackend || cs.db == nil {
		return nil
	}

	var reason *string
	if entry.Reason != "" {
		reason = &entry.Reason
	}

	args := make([]string, 10)
	for i := range args {
		args[i] = placeholder(cs.backend, i+1)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (build_id, ghsa_id, commit_hash, status, old_files, new_files,
		                lines_added, lines_removed, reason, recorded_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
	`, quoteTableName(corpusEntriesTable, cs.backend),
		args[0], args[1], args[2], args[3], args[4], args[5], args[6], args[7], args[8], args[9])

	_, err := cs.db.Exec(query,
		buildID, entry.AdvisoryID, entry.CommitHash, string(entry.Status),
		entry.OldFiles, entry.NewFiles, entry.LinesAdded, entry.LinesRemoved,
		reason, formatTime(time.Now(), cs.backend))
	if err != nil {
		return fmt.Errorf("failed to insert corpus entry: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (cs *CorpusStoreImpl) Close() error {
	if cs.db != nil {
		return cs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the corpus store.
func (cs *CorpusStoreImpl) GetStatus() (schema.CorpusStatus, error) {
	status := schema.CorpusStatus{
		Backend:    string(cs.backend),
		Connected:  cs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if cs.backend == schema.NoneBackend || cs.db == nil {
		return status, nil
	}

	runs := quoteTableName(buildRunsTable, cs.backend)
	if err := cs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runs)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		var lastRaw, oldestRaw any
		row := cs.db.QueryRow(fmt.Sprintf("SELECT build_id, start_time FROM %s ORDER BY build_id DESC LIMIT 1", runs))
		if err := row.Scan(&status.LastRunID, &lastRaw); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		row = cs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY build_id ASC LIMIT 1", runs))
		if err := row.Scan(&oldestRaw); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}

		var err error
		if status.LastRunTime, err = scanTime(cs.backend, lastRaw); err != nil {
			return status, fmt.Errorf("failed to parse last run time: %w", err)
		}
		if status.OldestRunTime, err = scanTime(cs.backend, oldestRaw); err != nil {
			return status, fmt.Errorf("failed to parse oldest run time: %w", err)
		}

		totals := fmt.Sprintf("SELECT COALESCE(SUM(total_assembled), 0), COALESCE(SUM(total_skipped), 0) FROM %s", runs)
		if err := cs.db.QueryRow(totals).Scan(&status.TotalAssembled, &status.TotalSkipped); err != nil {
			return status, fmt.Errorf("failed to get build totals: %w", err)
		}
	}

	for _, table := range corpusTables {
		var count int64
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, cs.backend))
		if err := cs.db.QueryRow(countQuery).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// GetAllBuildRuns retrieves every build run, newest first.
func (cs *CorpusStoreImpl) GetAllBuildRuns() ([]schema.BuildRunRecord, error) {
	if cs.backend == schema.NoneBackend || cs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT build_id, start_time, end_time, run_duration_ms, total_assembled, total_skipped, config_params
		FROM %s ORDER BY build_id DESC`, quoteTableName(buildRunsTable, cs.backend))
	rows, err := cs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query build runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.BuildRunRecord
	for rows.Next() {
		var record schema.BuildRunRecord
		var startRaw, endRaw any
		if err := rows.Scan(&record.BuildID, &startRaw, &endRaw, &record.RunDurationMs,
			&record.TotalAssembled, &record.TotalSkipped, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan build run: %w", err)
		}
		if record.StartTime, err = scanTime(cs.backend, startRaw); err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		if endRaw != nil {
			endTime, err := scanTime(cs.backend, endRaw)
			if err != nil {
				return nil, fmt.Errorf("failed to parse end_time: %w", err)
			}
			record.EndTime = &endTime
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating build runs: %w", err)
	}
	return results, nil
}

// GetAllEntries retrieves every recorded entry ordered by build, advisory and commit.
func (cs *CorpusStoreImpl) GetAllEntries() ([]schema.CorpusEntryRecord, error) {
	if cs.backend == schema.NoneBackend || cs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT build_id, ghsa_id, commit_hash, status, old_files, new_files,
		lines_added, lines_removed, reason, recorded_at
		FROM %s ORDER BY build_id, ghsa_id, commit_hash`, quoteTableName(corpusEntriesTable, cs.backend))
	rows, err := cs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query corpus entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.CorpusEntryRecord
	for rows.Next() {
		var record schema.CorpusEntryRecord
		var recordedRaw any
		if err := rows.Scan(&record.BuildID, &record.AdvisoryID, &record.CommitHash, &record.Status,
			&record.OldFiles, &record.NewFiles, &record.LinesAdded, &record.LinesRemoved,
			&record.Reason, &recordedRaw); err != nil {
			return nil, fmt.Errorf("failed to scan corpus entry: %w", err)
		}
		if record.RecordedAt, err = scanTime(cs.backend, recordedRaw); err != nil {
			return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating corpus entries: %w", err)
	}
	return results, nil
}
