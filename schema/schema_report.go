package schema

// SkippedDocument identifies a packaged document the assembler could not use.
type SkippedDocument struct {
	AdvisoryID string `json:"ghsa_id"`
	CommitHash string `json:"commit_hash"`
	Path       string `json:"path"`
	Reason     string `json:"reason"`
}

// BuildReport is the result of assembling a corpus.
type BuildReport struct {
	Records []CorpusRecord    `json:"records"`
	Entries []CorpusEntry     `json:"-"`
	Skipped []SkippedDocument `json:"skipped"`
}

// CommitOutcome is the staging result for one commit of one advisory.
type CommitOutcome struct {
	Commit      CommitRef `json:"commit"`
	Files       int       `json:"files"`
	BeforeSaved int       `json:"before_saved"`
	AfterSaved  int       `json:"after_saved"`
	Err         string    `json:"error,omitempty"`
}

// AdvisoryOutcome is the staging result for one advisory.
type AdvisoryOutcome struct {
	AdvisoryID string          `json:"ghsa_id"`
	Commits    []CommitOutcome `json:"commits"`
	Err        string          `json:"error,omitempty"`
}
