package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching.
	DatabaseBackend string

	// Side represents which revision of a file a snapshot was read from.
	Side string

	// DuplicatePolicy decides what the parser does when a snapshot section
	// names the same path twice.
	DuplicatePolicy string

	// Framing represents how sections and file blocks are delimited in a
	// packaged document.
	Framing string

	// EntryStatus represents the outcome of assembling one packaged document.
	EntryStatus string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Snapshot sides.
const (
	BeforeSide Side = "before" // immediately prior revision
	AfterSide  Side = "after"  // at the commit
)

// Duplicate path policies.
const (
	DuplicateOverwrite DuplicatePolicy = "overwrite" // default, last block wins
	DuplicateAppend    DuplicatePolicy = "append"
	DuplicateReject    DuplicatePolicy = "reject"
)

// Document framings.
const (
	DelimitedFraming      Framing = "delimited" // default
	LengthPrefixedFraming Framing = "length"
)

// Entry statuses recorded per packaged document.
const (
	EntryAssembled EntryStatus = "assembled"
	EntrySkipped   EntryStatus = "skipped"
)

// Portability verdicts supplied by an external judge. Nothing in this module
// produces them.
const (
	PortabilityYes   = "Yes"
	PortabilityMaybe = "Maybe"
	PortabilityNo    = "No"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidDuplicatePolicies lists all valid duplicate path policies.
var ValidDuplicatePolicies = map[DuplicatePolicy]struct{}{
	DuplicateOverwrite: {},
	DuplicateAppend:    {},
	DuplicateReject:    {},
}

// ValidFramings lists all valid document framings.
var ValidFramings = map[Framing]struct{}{
	DelimitedFraming:      {},
	LengthPrefixedFraming: {},
}

// Tag returns the label used for the side inside a packaged document.
func (s Side) Tag() string {
	if s == BeforeSide {
		return OldTag
	}
	return NewTag
}
