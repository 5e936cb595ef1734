package iocache

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/patchcorpus/internal/contract"
	"github.com/huangsam/patchcorpus/schema"
)

// objectTable is the name of the table for the git object cache.
const objectTable = "patchcorpus_object_cache"

// Global Manager instance for main logic.
var (
	Manager   = &CacheStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// GetDBFilePath returns the path to the SQLite DB file for cache storage.
func GetDBFilePath() string {
	return contract.GetCacheDBFilePath()
}

// GetCorpusDBFilePath returns the path to the SQLite DB file for corpus build tracking.
func GetCorpusDBFilePath() string {
	return contract.GetCorpusDBFilePath()
}

// InitStores initializes the global manager with separate object cache and corpus stores.
// Either backend can be empty to leave that store uninitialized.
func InitStores(cacheBackend schema.DatabaseBackend, cacheConnStr string, corpusBackend schema.DatabaseBackend, corpusConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		var err error

		var objectStore contract.CacheStore
		if cacheBackend != "" {
			objectStore, err = NewCacheStore(objectTable, cacheBackend, cacheConnStr)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize object caching: %w", err)
				return
			}
		}

		var corpusStore contract.CorpusStore
		if corpusBackend != "" {
			corpusStore, err = NewCorpusStore(corpusBackend, corpusConnStr)
			if err != nil {
				if objectStore != nil {
					_ = objectStore.Close()
				}
				initErr = fmt.Errorf("failed to initialize corpus store: %w", err)
				return
			}
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.objects = objectStore
		Manager.corpus = corpusStore
	})

	return initErr
}

// CloseCaching should be called on application shutdown.
func CloseCaching() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.objects != nil {
			_ = Manager.objects.Close()
		}
		if Manager.corpus != nil {
			_ = Manager.corpus.Close()
		}
	})
}

// ClearCache clears the object cache for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the table.
// For NoneBackend, it does nothing.
func ClearCache(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearTables(backend, dbFilePath, connStr, objectTable)
}

// ClearCorpus clears the build tracking data for the specified backend.
func ClearCorpus(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearTables(backend, dbFilePath, connStr, corpusTables...)
}

func clearTables(backend schema.DatabaseBackend, dbFilePath, connStr string, tables ...string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		for _, table := range tables {
			if err := clearSQLTable(backend, connStr, table); err != nil {
				return err
			}
		}
		return nil

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported backend for clearing: %s", backend)
	}
}

// clearSQLTable connects to the SQL database and drops the table if it exists.
func clearSQLTable(backend schema.DatabaseBackend, connStr, tableName string) error {
	driver, err := driverName(backend)
	if err != nil {
		return err
	}
	db, err := sql.Open(driver, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", backend, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", backend, err)
	}

	query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(tableName, backend))
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", tableName, err)
	}
	return nil
}
