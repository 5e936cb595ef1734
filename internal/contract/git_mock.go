package contract

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockGitClient is a testify mock for the GitClient interface.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Run implements the GitClient interface.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	mockArgs := []any{ctx, repoPath}
	for _, arg := range args {
		mockArgs = append(mockArgs, arg)
	}
	ret := m.Called(mockArgs...)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// Clone implements the GitClient interface.
func (m *MockGitClient) Clone(ctx context.Context, url string, dest string) error {
	ret := m.Called(ctx, url, dest)
	return ret.Error(0)
}

// GetRepoRoot implements the GitClient interface.
func (m *MockGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	ret := m.Called(ctx, contextPath)
	return ret.String(0), ret.Error(1)
}

// ResolveCommit implements the GitClient interface.
func (m *MockGitClient) ResolveCommit(ctx context.Context, repoPath string, rev string) (string, error) {
	ret := m.Called(ctx, repoPath, rev)
	return ret.String(0), ret.Error(1)
}

// ShowCommit implements the GitClient interface.
func (m *MockGitClient) ShowCommit(ctx context.Context, repoPath string, commit string) ([]byte, error) {
	ret := m.Called(ctx, repoPath, commit)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// ShowFile implements the GitClient interface.
func (m *MockGitClient) ShowFile(ctx context.Context, repoPath string, rev string, path string) ([]byte, error) {
	ret := m.Called(ctx, repoPath, rev, path)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}
