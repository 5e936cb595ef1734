package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/patchcorpus/internal/contract"
	"github.com/huangsam/patchcorpus/internal/iocache"
	"github.com/huangsam/patchcorpus/schema"
)

// cacheSetup loads minimal configuration needed for cache operations.
// This is used by commands that need cache access without full shared setup.
// The store is only opened when open is set, so clearing never creates it.
func cacheSetup(open bool) error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	// Get cache-related config values
	backend := schema.DatabaseBackend(viper.GetString("cache-backend"))
	connStr := viper.GetString("cache-db-connect")

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	if open {
		// Initialize caching with the loaded config (no build tracking for cache commands)
		if err := iocache.InitStores(backend, connStr, "", ""); err != nil {
			return fmt.Errorf("failed to initialize cache: %w", err)
		}
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr

	return nil
}

// sqlitePath returns connStr, or fallback when it is empty.
func sqlitePath(connStr, fallback string) string {
	if connStr != "" {
		return connStr
	}
	return fallback
}

// cacheCmd focused on cache management.
//
// Note: Cache subcommands use minimal initialization (cacheSetup) instead of
// the full sharedSetup used by pipeline commands.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the git object cache (improves performance)",
	Long: `Manage the cache of git show results that speeds up repeated staging.

Commit texts and file versions are immutable, so a cached entry never goes
stale. Files missing on one side of a commit are cached as absent.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status - Show cache statistics and connection info
  clear  - Remove all cached data

Examples:
  # Check cache status
  patchcorpus cache status

  # Clear the cache
  patchcorpus cache clear`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached git objects",
	Long: `Delete all cached git objects from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table

Examples:
  # Clear SQLite cache (default)
  patchcorpus cache clear

  # Clear MySQL cache (set connection string via env variable)
  PATCHCORPUS_CACHE_BACKEND=mysql PATCHCORPUS_CACHE_DB_CONNECT="..." patchcorpus cache clear`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return cacheSetup(false)
	},
	Run: func(_ *cobra.Command, _ []string) {
		dbPath := sqlitePath(cfg.CacheDBConnect, contract.GetCacheDBFilePath())
		if err := iocache.ClearCache(cfg.CacheBackend, dbPath, cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show detailed information about the git object cache.

Displays:
- Backend type and connection status
- Total number of cached entries
- Last and oldest cache entry timestamps
- Cache database size

Examples:
  # Check cache status
  patchcorpus cache status`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return cacheSetup(true)
	},
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.Manager.GetObjectStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		iocache.PrintCacheStatus(status)
	},
}
