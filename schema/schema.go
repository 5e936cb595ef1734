// Package schema has the models, enums and document constants shared by all parts of patchcorpus.
package schema

// Advisory is the normalized form of one vulnerability advisory.
// It is immutable once loaded.
type Advisory struct {
	ID                   string   `json:"ghsa_id" yaml:"ghsa_id"`
	SourceCodeLocation   string   `json:"source_code_location" yaml:"source_code_location"`
	Ecosystem            string   `json:"ecosystem,omitempty" yaml:"ecosystem,omitempty"`
	VulnerableVersionOld string   `json:"vulnerable_version_old,omitempty" yaml:"vulnerable_version_old,omitempty"`
	PatchedVersionOld    string   `json:"patched_version_old,omitempty" yaml:"patched_version_old,omitempty"`
	VulnerableVersionNew string   `json:"vulnerable_version_new,omitempty" yaml:"vulnerable_version_new,omitempty"`
	PatchedVersionNew    string   `json:"patched_version_new,omitempty" yaml:"patched_version_new,omitempty"`
	References           []string `json:"references" yaml:"references"`
}

// FeedAdvisory is one record of the vendor advisory feed, shaped like the
// GitHub global advisory REST payload.
type FeedAdvisory struct {
	GHSAID             string              `json:"ghsa_id" yaml:"ghsa_id"`
	Summary            string              `json:"summary,omitempty" yaml:"summary,omitempty"`
	SourceCodeLocation string              `json:"source_code_location" yaml:"source_code_location"`
	References         []string            `json:"references" yaml:"references"`
	Vulnerabilities    []FeedVulnerability `json:"vulnerabilities" yaml:"vulnerabilities"`
}

// FeedVulnerability is one affected package range of a FeedAdvisory.
type FeedVulnerability struct {
	Package                FeedPackage `json:"package" yaml:"package"`
	VulnerableVersionRange string      `json:"vulnerable_version_range" yaml:"vulnerable_version_range"`
	FirstPatchedVersion    string      `json:"first_patched_version" yaml:"first_patched_version"`
}

// FeedPackage names the package a FeedVulnerability applies to.
type FeedPackage struct {
	Ecosystem string `json:"ecosystem" yaml:"ecosystem"`
	Name      string `json:"name" yaml:"name"`
}

// CommitRef is an advisory-scoped commit identifier (7-40 lowercase hex characters).
// Duplicates are allowed.
type CommitRef struct {
	AdvisoryID string `json:"advisory_id"`
	Hash       string `json:"commit_hash"`
}

// String returns the ref as "<advisory>/<commit>".
func (r CommitRef) String() string {
	return r.AdvisoryID + "/" + r.Hash
}

// ChangeSet is the diff-derived view of one commit.
type ChangeSet struct {
	Commit   CommitRef
	DiffText string
	Files    []string // ordered changed paths, target side
	Symbols  []string // best-effort declaration lines, never authoritative
}

// FileSnapshot is the content of one path at one side of a commit.
// Present is false when the file did not exist at that side.
type FileSnapshot struct {
	Path    string
	Side    Side
	Content string
	Present bool
}

// SavedFile records which sides of a changed file were found.
type SavedFile struct {
	File string `json:"file"`
	Old  bool   `json:"old"`
	New  bool   `json:"new"`
}

// Annotations holds optional metadata that is not part of the ground truth.
type Annotations struct {
	ChangedSymbols []string `json:"changed_symbols,omitempty"`
}

// ChangeSummary is the JSON summary embedded in every packaged document.
type ChangeSummary struct {
	ChangedFiles []string     `json:"changed_files"`
	FilesSaved   []SavedFile  `json:"files_saved"`
	Annotations  *Annotations `json:"annotations,omitempty"`
}

// Document is the parsed form of a packaged document.
type Document struct {
	DiffText string
	Summary  ChangeSummary
	Before   map[string]string
	After    map[string]string

	// Sections lists the labels found, in document order.
	Sections []string
}

// CorpusRecord is one training example of the final corpus artifact.
// Portability and Reason stay nil until an external judge fills them;
// nil means "not yet judged" while an empty string means "judged, no rationale".
type CorpusRecord struct {
	AdvisoryID  string            `json:"ghsa_id"`
	CommitHash  string            `json:"commit_hash"`
	PatchDiff   string            `json:"patch_diff"`
	OldCode     map[string]string `json:"old_code"`
	NewCode     map[string]string `json:"new_code"`
	Portability *string           `json:"portability"`
	Reason      *string           `json:"reason"`
}
