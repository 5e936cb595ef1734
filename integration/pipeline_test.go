//go:build basic

package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunBuildsCorpus drives the whole pipeline against a local repository.
func TestRunBuildsCorpus(t *testing.T) {
	repo, fix := fixtureRepo(t)
	work := t.TempDir()
	advisories := writeAdvisories(t, work, repo, fix)
	corpus := filepath.Join(work, "out", "dataset.json")

	out, err := runCommand(t, work, "run",
		"--advisories", advisories,
		"--staging-dir", filepath.Join(work, "staging"),
		"--corpus-file", corpus,
		"--workers", "2",
		"--corpus-backend", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, "Build completed in")
	assert.Contains(t, out, "Assembled 1 documents, skipped 0")

	assertFixRecord(t, readCorpus(t, corpus), fix)

	out, err = runCommand(t, work, "corpus", "status", "--corpus-backend", "sqlite")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = runCommand(t, work, "corpus", "history", "--corpus-backend", "sqlite", "--limit", "1")
	require.NoError(t, err)
}

// TestStagedStepsMatchRun runs stage, package and build one at a time.
func TestStagedStepsMatchRun(t *testing.T) {
	repo, fix := fixtureRepo(t)
	work := t.TempDir()
	advisories := writeAdvisories(t, work, repo, fix)
	staging := filepath.Join(work, "staging")

	out, err := runCommand(t, work, "stage", "--advisories", advisories, "--staging-dir", staging, "--cache-backend", "none")
	require.NoError(t, err)
	assert.Contains(t, out, "workers")

	// A second stage reuses the clone and the cache.
	_, err = runCommand(t, work, "stage", "--advisories", advisories, "--staging-dir", staging)
	require.NoError(t, err)

	_, err = runCommand(t, work, "package", "--staging-dir", staging, "--framing", "length", "--prompt-header")
	require.NoError(t, err)

	_, err = runCommand(t, work, "build", "--staging-dir", staging, "--require-sections")
	require.NoError(t, err)

	assertFixRecord(t, readCorpus(t, filepath.Join(staging, "dataset.json")), fix)
}

// TestInvalidFlagsFail checks that enum flags reject unknown values.
func TestInvalidFlagsFail(t *testing.T) {
	work := t.TempDir()
	_, err := runCommand(t, work, "build", "--framing", "xml")
	assert.Error(t, err)
	_, err = runCommand(t, work, "build", "--duplicate-policy", "ignore")
	assert.Error(t, err)
}

// TestAdvisoriesNormalize converts a raw feed file to the normalized shape.
func TestAdvisoriesNormalize(t *testing.T) {
	work := t.TempDir()
	feed := `[{"ghsa_id":"GHSA-aaaa-bbbb-cccc","source_code_location":"https://github.com/o/r",
"references":["https://github.com/o/r/commit/abcdef1"],
"vulnerabilities":[{"package":{"ecosystem":"npm","name":"r"},"vulnerable_version_range":"< 1.2.0","first_patched_version":"1.2.0"}]}]`
	require.NoError(t, os.WriteFile(filepath.Join(work, "feed.json"), []byte(feed), 0o644))

	_, err := runCommand(t, work, "advisories", "normalize", "feed.json", "--output-file", "normalized.json")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(work, "normalized.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"GHSA-aaaa-bbbb-cccc"`)
	assert.Contains(t, string(data), `"npm"`)
	assert.NotContains(t, string(data), "vulnerabilities")
}

// TestVersionCommand checks the version output.
func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "patchcorpus CLI")
}
