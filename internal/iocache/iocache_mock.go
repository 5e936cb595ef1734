package iocache

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/huangsam/patchcorpus/internal/contract"
	"github.com/huangsam/patchcorpus/schema"
)

// MockCacheManager is a mock implementation of CacheManager for testing.
type MockCacheManager struct {
	mock.Mock
}

var _ contract.CacheManager = &MockCacheManager{} // Compile-time check

// GetObjectStore implements the CacheManager interface.
func (m *MockCacheManager) GetObjectStore() contract.CacheStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.CacheStore)
	return store
}

// GetCorpusStore implements the CacheManager interface.
func (m *MockCacheManager) GetCorpusStore() contract.CorpusStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.CorpusStore)
	return store
}

// MockCacheStore is a mock implementation of CacheStore for testing.
type MockCacheStore struct {
	mock.Mock
}

var _ contract.CacheStore = &MockCacheStore{} // Compile-time check

// Get implements the CacheStore interface.
func (m *MockCacheStore) Get(key string) ([]byte, int, int64, error) {
	args := m.Called(key)
	data, _ := args.Get(0).([]byte)
	return data, args.Int(1), args.Get(2).(int64), args.Error(3)
}

// Set implements the CacheStore interface.
func (m *MockCacheStore) Set(key string, data []byte, version int, ts int64) error {
	args := m.Called(key, data, version, ts)
	return args.Error(0)
}

// Close implements the CacheStore interface.
func (m *MockCacheStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// GetStatus implements the CacheStore interface.
func (m *MockCacheStore) GetStatus() (schema.CacheStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// MockCorpusStore is a mock implementation of CorpusStore for testing.
type MockCorpusStore struct {
	mock.Mock
}

var _ contract.CorpusStore = &MockCorpusStore{} // Compile-time check

// BeginBuild implements the CorpusStore interface.
func (m *MockCorpusStore) BeginBuild(startTime time.Time, configParams map[string]any) (int64, error) {
	args := m.Called(startTime, configParams)
	return args.Get(0).(int64), args.Error(1)
}

// EndBuild implements the CorpusStore interface.
func (m *MockCorpusStore) EndBuild(buildID int64, endTime time.Time, totalAssembled int, totalSkipped int) error {
	args := m.Called(buildID, endTime, totalAssembled, totalSkipped)
	return args.Error(0)
}

// RecordEntry implements the CorpusStore interface.
func (m *MockCorpusStore) RecordEntry(buildID int64, entry schema.CorpusEntry) error {
	args := m.Called(buildID, entry)
	return args.Error(0)
}

// GetStatus implements the CorpusStore interface.
func (m *MockCorpusStore) GetStatus() (schema.CorpusStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.CorpusStatus), args.Error(1)
}

// GetAllBuildRuns implements the CorpusStore interface.
func (m *MockCorpusStore) GetAllBuildRuns() ([]schema.BuildRunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.BuildRunRecord)
	return runs, args.Error(1)
}

// GetAllEntries implements the CorpusStore interface.
func (m *MockCorpusStore) GetAllEntries() ([]schema.CorpusEntryRecord, error) {
	args := m.Called()
	entries, _ := args.Get(0).([]schema.CorpusEntryRecord)
	return entries, args.Error(1)
}

// Close implements the CorpusStore interface.
func (m *MockCorpusStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
