package schema

import "time"

// CacheStatus represents the status of the cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// CorpusStatus represents the status of the corpus build store.
type CorpusStatus struct {
	Backend        string           `json:"backend"`
	Connected      bool             `json:"connected"`
	TotalRuns      int              `json:"total_runs"`
	LastRunID      int64            `json:"last_run_id"`
	LastRunTime    time.Time        `json:"last_run_time"`
	OldestRunTime  time.Time        `json:"oldest_run_time"`
	TotalAssembled int              `json:"total_assembled"`
	TotalSkipped   int              `json:"total_skipped"`
	TableSizes     map[string]int64 `json:"table_sizes"`
}
