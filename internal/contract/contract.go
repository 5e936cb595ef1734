// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/patchcorpus/schema"
)

// GitClient defines the Git operations the corpus pipeline depends on.
// Every method except Clone is a pure read against an existing repository.
// This allows the core pipeline to be tested without needing a real git executable.
type GitClient interface {
	// --- Generic / Low-Level ---

	// Run executes a git command and returns its stdout.
	// Its use should be minimized in favor of the explicit methods below.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// --- Repository Setup ---

	// Clone clones url into dest. It is a no-op when dest already exists.
	Clone(ctx context.Context, url string, dest string) error

	// GetRepoRoot returns the absolute path to the root of the Git repository
	// containing the given context path.
	GetRepoRoot(ctx context.Context, contextPath string) (string, error)

	// --- Reference Resolution ---

	// ResolveCommit resolves rev to a full commit hash.
	// It fails when the repository is unusable or rev does not name a commit.
	ResolveCommit(ctx context.Context, repoPath string, rev string) (string, error)

	// --- Content ---

	// ShowCommit returns the full commit text (header, message and patch).
	ShowCommit(ctx context.Context, repoPath string, commit string) ([]byte, error)

	// ShowFile returns the content of path as of rev.
	ShowFile(ctx context.Context, repoPath string, rev string, path string) ([]byte, error)
}

// CacheManager defines the interface for managing stores.
// This allows the storage layer to be mocked for testing.
type CacheManager interface {
	GetObjectStore() CacheStore
	GetCorpusStore() CorpusStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// CorpusStore defines the interface for tracking corpus builds and their entries.
type CorpusStore interface {
	// BeginBuild creates a new build run and returns its unique ID
	BeginBuild(startTime time.Time, configParams map[string]any) (int64, error)

	// EndBuild updates the build run with completion data
	EndBuild(buildID int64, endTime time.Time, totalAssembled int, totalSkipped int) error

	// RecordEntry stores the outcome of one packaged document
	RecordEntry(buildID int64, entry schema.CorpusEntry) error

	// GetStatus returns status information about the corpus store
	GetStatus() (schema.CorpusStatus, error)

	// GetAllBuildRuns returns every recorded build run, newest first
	GetAllBuildRuns() ([]schema.BuildRunRecord, error)

	// GetAllEntries returns every recorded entry
	GetAllEntries() ([]schema.CorpusEntryRecord, error)

	// Close closes the underlying connection
	Close() error
}
