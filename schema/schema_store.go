package schema

import "time"

// CorpusEntry is what the corpus store keeps for one packaged document.
type CorpusEntry struct {
	AdvisoryID   string
	CommitHash   string
	Status       EntryStatus
	OldFiles     int
	NewFiles     int
	LinesAdded   int
	LinesRemoved int
	Reason       string // skip reason, empty when assembled
}

// BuildRunRecord represents a row from the patchcorpus_build_runs table.
type BuildRunRecord struct {
	BuildID        int64
	StartTime      time.Time
	EndTime        *time.Time
	RunDurationMs  *int32
	TotalAssembled int32
	TotalSkipped   int32
	ConfigParams   *string
}

// CorpusEntryRecord represents a row from the patchcorpus_entries table.
type CorpusEntryRecord struct {
	BuildID      int64
	AdvisoryID   string
	CommitHash   string
	Status       string
	OldFiles     int32
	NewFiles     int32
	LinesAdded   int32
	LinesRemoved int32
	Reason       *string
	RecordedAt   time.Time
}
