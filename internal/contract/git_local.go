package contract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// LocalGitClient implements the GitClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct{}

var _ GitClient = &LocalGitClient{} // Compile-time check

// ErrFileNotFound means a path does not exist at the requested revision.
// Other ShowFile failures do not wrap it.
var ErrFileNotFound = errors.New("file not found at revision")

// missingPathMarkers are the git show messages for a path absent from a tree.
var missingPathMarkers = []string{"does not exist in", "exists on disk, but not in"}

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{}
}

// Run executes a git command inside repoPath and returns its stdout.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)
	return runGit(ctx, repoPath, fullArgs...)
}

// Clone implements the GitClient interface.
func (c *LocalGitClient) Clone(ctx context.Context, url string, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return nil
	}
	if url == "" {
		return errors.New("git clone failed: empty repository url")
	}
	_, err := runGit(ctx, dest, "clone", "--quiet", url, dest)
	return err
}

// GetRepoRoot implements the GitClient interface.
func (c *LocalGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	out, err := c.Run(ctx, contextPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ResolveCommit implements the GitClient interface.
func (c *LocalGitClient) ResolveCommit(ctx context.Context, repoPath string, rev string) (string, error) {
	out, err := c.Run(ctx, repoPath, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("cannot resolve %q: %w", rev, err)
	}
	hash := strings.TrimSpace(string(out))
	if hash == "" {
		return "", fmt.Errorf("cannot resolve %q: not a commit", rev)
	}
	return hash, nil
}

// ShowCommit implements the GitClient interface.
func (c *LocalGitClient) ShowCommit(ctx context.Context, repoPath string, commit string) ([]byte, error) {
	return c.Run(ctx, repoPath, "show", "--no-color", "--no-ext-diff", commit)
}

// ShowFile implements the GitClient interface. A path missing from rev
// yields an error wrapping ErrFileNotFound.
func (c *LocalGitClient) ShowFile(ctx context.Context, repoPath string, rev string, path string) ([]byte, error) {
	out, err := c.Run(ctx, repoPath, "show", rev+":"+path)
	if err != nil && ctx.Err() == nil {
		for _, marker := range missingPathMarkers {
			if strings.Contains(err.Error(), marker) {
				return nil, fmt.Errorf("%w: %v", ErrFileNotFound, err)
			}
		}
	}
	return out, err
}

func runGit(ctx context.Context, where string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return nil, fmt.Errorf("git command failed in %q: %s", where, stderr)
	} else if err != nil {
		return nil, fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
	}
	return out, nil
}
