// Package iocache persists git objects and corpus build history.
package iocache

import (
	"sync"

	"github.com/huangsam/patchcorpus/internal/contract"
)

// CacheStoreManager manages the object cache and the corpus store.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	objects      contract.CacheStore
	corpus       contract.CorpusStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetObjectStore returns the git object CacheStore.
func (mgr *CacheStoreManager) GetObjectStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.objects
}

// GetCorpusStore returns the CorpusStore.
func (mgr *CacheStoreManager) GetCorpusStore() contract.CorpusStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.corpus
}
