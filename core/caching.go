package core

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/patchcorpus/internal/contract"
)

// currentCacheVersion defines the version of the cached payload schema
const currentCacheVersion = 1

// cachedBlob is a git show result as stored in the object cache.
// Absent files are cached too.
type cachedBlob struct {
	Present bool   `json:"present"`
	Content string `json:"content"`
}

// generateCacheKey joins parts into a stable sha256 key.
func generateCacheKey(parts ...string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(strings.Join(parts, "\x00"))))
}

// checkCacheHit attempts to retrieve and validate a cached blob.
// Git objects are immutable, so only the version is checked.
func checkCacheHit(store contract.CacheStore, key string) (cachedBlob, bool) {
	var blob cachedBlob
	if store == nil {
		return blob, false
	}
	data, version, _, err := store.Get(key)
	if err != nil || version != currentCacheVersion {
		return blob, false // Cache miss
	}
	if err := json.Unmarshal(data, &blob); err != nil {
		return blob, false
	}
	return blob, true
}

// storeBlob writes a blob to the cache. Failures only cost a future miss.
func storeBlob(store contract.CacheStore, key string, blob cachedBlob) {
	if store == nil {
		return
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return
	}
	if err := store.Set(key, data, currentCacheVersion, time.Now().Unix()); err != nil {
		contract.LogWarn("Failed to write object cache", err)
	}
}
