package core

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/huangsam/patchcorpus/internal/contract"
	"github.com/huangsam/patchcorpus/schema"
)

// commitMemoSize bounds the number of resolved commits kept in memory.
const commitMemoSize = 1024

// resolvedCommit is a verified commit and its parent, if any.
type resolvedCommit struct {
	hash      string
	parent    string
	hasParent bool
}

// SnapshotExtractor reads changed files on either side of a commit.
// It only runs read-only git commands and never touches the working tree.
type SnapshotExtractor struct {
	client  contract.GitClient
	store   contract.CacheStore // optional persistent object cache
	commits *lru.Cache[string, resolvedCommit]
}

// NewSnapshotExtractor creates an extractor. store may be nil.
func NewSnapshotExtractor(client contract.GitClient, store contract.CacheStore) *SnapshotExtractor {
	commits, _ := lru.New[string, resolvedCommit](commitMemoSize) // size is a positive constant
	return &SnapshotExtractor{client: client, store: store, commits: commits}
}

// resolve verifies commit in repoPath and finds its parent.
// A commit that cannot be resolved is a repository error, not an absent file.
func (e *SnapshotExtractor) resolve(ctx context.Context, repoPath, commit string) (resolvedCommit, error) {
	memoKey := repoPath + "\x00" + commit
	if rc, ok := e.commits.Get(memoKey); ok {
		return rc, nil
	}

	hash, err := e.client.ResolveCommit(ctx, repoPath, commit)
	if err != nil {
		return resolvedCommit{}, fmt.Errorf("%w: commit %s in %s: %v", ErrRepositoryUnavailable, commit, repoPath, err)
	}
	rc := resolvedCommit{hash: hash}

	// A root commit has no parent, so every before-side file is absent
	if parent, err := e.client.ResolveCommit(ctx, repoPath, commit+"~1"); err == nil {
		rc.parent = parent
		rc.hasParent = true
	}

	e.commits.Add(memoKey, rc)
	return rc, nil
}

// Snapshot returns the content of path immediately before commit (BeforeSide)
// or at commit (AfterSide). A file missing at that side is returned with
// Present set to false and no error. Only an unusable repository, an
// unresolvable commit or a cancelled context is an error. Content and
// confirmed absence are cached; other read failures are not.
func (e *SnapshotExtractor) Snapshot(ctx context.Context, repoPath, commit, path string, side schema.Side) (schema.FileSnapshot, error) {
	snap := schema.FileSnapshot{Path: path, Side: side}

	rc, err := e.resolve(ctx, repoPath, commit)
	if err != nil {
		return snap, err
	}

	rev, objectHash := commit, rc.hash
	if side == schema.BeforeSide {
		if !rc.hasParent {
			return snap, nil
		}
		rev, objectHash = commit+"~1", rc.parent
	}

	key := generateCacheKey("blob", objectHash, path)
	if blob, ok := checkCacheHit(e.store, key); ok {
		snap.Present, snap.Content = blob.Present, blob.Content
		return snap, nil
	}

	out, err := e.client.ShowFile(ctx, repoPath, rev, path)
	switch {
	case err == nil:
		snap.Present = true
		snap.Content = string(out)
	case ctx.Err() != nil:
		return snap, ctx.Err()
	case errors.Is(err, contract.ErrFileNotFound):
	default:
		// Absent for this run only; a transient failure must not be cached
		contract.LogWarn(fmt.Sprintf("cannot read %s at %s", path, rev), err)
		return snap, nil
	}
	storeBlob(e.store, key, cachedBlob{Present: snap.Present, Content: snap.Content})
	return snap, nil
}

// SnapshotPair returns both sides of path for commit.
func (e *SnapshotExtractor) SnapshotPair(ctx context.Context, repoPath, commit, path string) (before, after schema.FileSnapshot, err error) {
	before, err = e.Snapshot(ctx, repoPath, commit, path, schema.BeforeSide)
	if err != nil {
		return before, after, err
	}
	after, err = e.Snapshot(ctx, repoPath, commit, path, schema.AfterSide)
	return before, after, err
}

// ChangeSet reads the full commit text of ref and introspects it.
func (e *SnapshotExtractor) ChangeSet(ctx context.Context, repoPath string, ref schema.CommitRef) (schema.ChangeSet, error) {
	cs := schema.ChangeSet{Commit: ref}

	rc, err := e.resolve(ctx, repoPath, ref.Hash)
	if err != nil {
		return cs, err
	}

	key := generateCacheKey("commit", rc.hash)
	blob, ok := checkCacheHit(e.store, key)
	if !ok {
		out, err := e.client.ShowCommit(ctx, repoPath, ref.Hash)
		if err != nil {
			return cs, fmt.Errorf("%w: show %s in %s: %v", ErrRepositoryUnavailable, ref.Hash, repoPath, err)
		}
		blob = cachedBlob{Present: true, Content: string(out)}
		storeBlob(e.store, key, blob)
	}

	cs.DiffText = blob.Content
	cs.Files, cs.Symbols = IntrospectDiff(cs.DiffText)
	return cs, nil
}
