// Package staging models the on-disk layout shared by the pipeline stages.
//
// Layout under the root:
//
//	repos/<ghsa>/                      clone destination
//	stage/<ghsa>/<commit>/patch.diff   raw commit text
//	stage/<ghsa>/<commit>/summary.json changed files and saved sides
//	stage/<ghsa>/<commit>/symbols.json best-effort declaration lines
//	stage/<ghsa>/<commit>/old/<flat>   before snapshots
//	stage/<ghsa>/<commit>/new/<flat>   after snapshots
//	packages/<ghsa>/<commit>.txt       packaged documents
package staging

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/huangsam/patchcorpus/schema"
)

// Directory and file names of the layout.
const (
	reposDir    = "repos"
	stageDir    = "stage"
	packagesDir = "packages"
	oldDir      = "old"
	newDir      = "new"
	diffFile    = "patch.diff"
	summaryFile = "summary.json"
	symbolsFile = "symbols.json"
	documentExt = ".txt"
)

// Area is a staging directory. Every stage reads and writes through it so the
// writer and reader agree on paths.
type Area struct {
	root string
}

// StagedCommit is everything staged for one commit.
type StagedCommit struct {
	Ref      schema.CommitRef
	DiffText string
	Summary  schema.ChangeSummary
	Before   map[string]string
	After    map[string]string
}

// DocumentRef locates one packaged document.
type DocumentRef struct {
	AdvisoryID string
	CommitHash string
	Path       string
}

// New opens (and creates if needed) a staging area rooted at root.
func New(root string) (*Area, error) {
	if root == "" {
		return nil, errors.New("staging: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("staging: create root: %w", err)
	}
	return &Area{root: abs}, nil
}

// Root returns the absolute root directory.
func (a *Area) Root() string {
	return a.root
}

// RepoDir returns the clone destination for an advisory.
func (a *Area) RepoDir(advisoryID string) string {
	return filepath.Join(a.root, reposDir, advisoryID)
}

// CommitDir returns the staging directory of one commit.
func (a *Area) CommitDir(advisoryID, commit string) string {
	return filepath.Join(a.root, stageDir, advisoryID, commit)
}

// DocumentPath returns where the packaged document of one commit lives.
func (a *Area) DocumentPath(advisoryID, commit string) string {
	return filepath.Join(a.root, packagesDir, advisoryID, commit+documentExt)
}

// FlattenPath turns a repository path into a single file name. The escaping
// is reversible, so distinct paths never share a name.
func FlattenPath(path string) string {
	return url.PathEscape(path)
}

// UnflattenPath reverses FlattenPath.
func UnflattenPath(name string) (string, error) {
	return url.PathUnescape(name)
}

// checkName rejects identifiers that would escape their directory.
func checkName(kind, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("staging: invalid %s %q", kind, name)
	}
	return nil
}

// CheckAdvisoryID reports whether id can name the directories of an advisory.
func CheckAdvisoryID(id string) error {
	return checkName("advisory id", id)
}

func checkRef(ref schema.CommitRef) error {
	if err := checkName("advisory id", ref.AdvisoryID); err != nil {
		return err
	}
	return checkName("commit", ref.Hash)
}

// WriteChangeSet starts a fresh commit directory holding the diff and symbols.
// Anything staged earlier for the same commit is removed.
func (a *Area) WriteChangeSet(cs schema.ChangeSet) error {
	if err := checkRef(cs.Commit); err != nil {
		return err
	}
	dir := a.CommitDir(cs.Commit.AdvisoryID, cs.Commit.Hash)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("staging: reset %s: %w", dir, err)
	}
	for _, sub := range []string{oldDir, newDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("staging: create %s: %w", sub, err)
		}
	}
	if err := writeFileAtomic(filepath.Join(dir, diffFile), []byte(cs.DiffText)); err != nil {
		return err
	}
	symbols := cs.Symbols
	if symbols == nil {
		symbols = []string{}
	}
	return writeJSON(filepath.Join(dir, symbolsFile), symbols)
}

// WriteSnapshot stores one present snapshot. Absent snapshots write nothing.
func (a *Area) WriteSnapshot(ref schema.CommitRef, snap schema.FileSnapshot) error {
	if !snap.Present {
		return nil
	}
	if err := checkRef(ref); err != nil {
		return err
	}
	sub := newDir
	if snap.Side == schema.BeforeSide {
		sub = oldDir
	}
	path := filepath.Join(a.CommitDir(ref.AdvisoryID, ref.Hash), sub, FlattenPath(snap.Path))
	return writeFileAtomic(path, []byte(snap.Content))
}

// WriteSummary stores the summary of one commit.
func (a *Area) WriteSummary(ref schema.CommitRef, summary schema.ChangeSummary) error {
	if err := checkRef(ref); err != nil {
		return err
	}
	return writeJSON(filepath.Join(a.CommitDir(ref.AdvisoryID, ref.Hash), summaryFile), summary)
}

// ReadStagedCommit loads a staged commit. Files the summary marks as saved
// must exist.
func (a *Area) ReadStagedCommit(advisoryID, commit string) (*StagedCommit, error) {
	ref := schema.CommitRef{AdvisoryID: advisoryID, Hash: commit}
	if err := checkRef(ref); err != nil {
		return nil, err
	}
	dir := a.CommitDir(advisoryID, commit)

	diff, err := os.ReadFile(filepath.Join(dir, diffFile))
	if err != nil {
		return nil, fmt.Errorf("staging: read diff of %s: %w", ref, err)
	}
	data, err := os.ReadFile(filepath.Join(dir, summaryFile))
	if err != nil {
		return nil, fmt.Errorf("staging: read summary of %s: %w", ref, err)
	}
	var summary schema.ChangeSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("staging: decode summary of %s: %w", ref, err)
	}

	staged := &StagedCommit{
		Ref:      ref,
		DiffText: string(diff),
		Summary:  summary,
		Before:   map[string]string{},
		After:    map[string]string{},
	}
	for _, saved := range summary.FilesSaved {
		if saved.Old {
			content, err := os.ReadFile(filepath.Join(dir, oldDir, FlattenPath(saved.File)))
			if err != nil {
				return nil, fmt.Errorf("staging: read before snapshot %q of %s: %w", saved.File, ref, err)
			}
			staged.Before[saved.File] = string(content)
		}
		if saved.New {
			content, err := os.ReadFile(filepath.Join(dir, newDir, FlattenPath(saved.File)))
			if err != nil {
				return nil, fmt.Errorf("staging: read after snapshot %q of %s: %w", saved.File, ref, err)
			}
			staged.After[saved.File] = string(content)
		}
	}
	return staged, nil
}

// ListAdvisories returns the advisories with staged commits, sorted.
func (a *Area) ListAdvisories() ([]string, error) {
	return listDirs(filepath.Join(a.root, stageDir))
}

// ListCommits returns the staged commits of one advisory, sorted.
// Only commits with a summary count as staged.
func (a *Area) ListCommits(advisoryID string) ([]string, error) {
	if err := checkName("advisory id", advisoryID); err != nil {
		return nil, err
	}
	dirs, err := listDirs(filepath.Join(a.root, stageDir, advisoryID))
	if err != nil {
		return nil, err
	}
	commits := dirs[:0]
	for _, c := range dirs {
		if _, err := os.Stat(filepath.Join(a.CommitDir(advisoryID, c), summaryFile)); err == nil {
			commits = append(commits, c)
		}
	}
	return commits, nil
}

// WriteDocument stores a packaged document and returns its path.
func (a *Area) WriteDocument(ref schema.CommitRef, text string) (string, error) {
	if err := checkRef(ref); err != nil {
		return "", err
	}
	path := a.DocumentPath(ref.AdvisoryID, ref.Hash)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("staging: create package dir: %w", err)
	}
	return path, writeFileAtomic(path, []byte(text))
}

// ListDocuments returns every packaged document, ordered by advisory then commit.
func (a *Area) ListDocuments() ([]DocumentRef, error) {
	advisories, err := listDirs(filepath.Join(a.root, packagesDir))
	if err != nil {
		return nil, err
	}
	var refs []DocumentRef
	for _, adv := range advisories {
		dir := filepath.Join(a.root, packagesDir, adv)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("staging: list %s: %w", dir, err)
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, documentExt) {
				continue
			}
			refs = append(refs, DocumentRef{
				AdvisoryID: adv,
				CommitHash: strings.TrimSuffix(name, documentExt),
				Path:       filepath.Join(dir, name),
			})
		}
	}
	return refs, nil
}

// ReadDocument returns the text of a packaged document.
func (a *Area) ReadDocument(ref DocumentRef) (string, error) {
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		return "", fmt.Errorf("staging: read document %s/%s: %w", ref.AdvisoryID, ref.CommitHash, err)
	}
	return string(data), nil
}

// listDirs returns the sorted subdirectory names of dir. A missing dir is empty.
func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("staging: list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("staging: encode %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, data)
}

// writeFileAtomic writes through a temp file and renames it into place, so a
// reader never sees a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("staging: create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("staging: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("staging: close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("staging: rename %s: %w", path, err)
	}
	return nil
}
