package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/patchcorpus/internal/contract"
	"github.com/huangsam/patchcorpus/internal/iocache"
	"github.com/huangsam/patchcorpus/schema"
)

// corpusSetup loads minimal configuration needed for build tracking operations.
// The store is only opened when open is set; migrate and clear work on the
// database directly.
func corpusSetup(open bool) error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	// Get corpus-related config values
	backendStr := viper.GetString("corpus-backend")
	connStr := viper.GetString("corpus-db-connect")

	// Handle empty backend as NoneBackend
	var backend schema.DatabaseBackend
	if backendStr == "" {
		backend = schema.NoneBackend
	} else {
		backend = schema.DatabaseBackend(backendStr)
	}

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	if open {
		// Initialize stores with the loaded config (no object cache for corpus commands)
		if err := iocache.InitStores(schema.NoneBackend, "", backend, connStr); err != nil {
			return fmt.Errorf("failed to initialize corpus store: %w", err)
		}
	} else if backend == schema.SQLiteBackend {
		connStr = sqlitePath(connStr, contract.GetCorpusDBFilePath())
	}

	cfg.CorpusBackend = backend
	cfg.CorpusDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")

	// The corpus file is resolved the same way as for build
	cfg.CorpusFile = viper.GetString("corpus-file")
	if cfg.CorpusFile == "" {
		cfg.CorpusFile = filepath.Join(viper.GetString("staging-dir"), contract.DefaultCorpusFile)
	}
	return nil
}

func corpusOpenSetup(_ *cobra.Command, _ []string) error {
	return corpusSetup(true)
}

func corpusDirectSetup(_ *cobra.Command, _ []string) error {
	return corpusSetup(false)
}

// corpusCmd focused on build tracking data.
//
// Note: Corpus subcommands use minimal initialization (corpusSetup) instead of
// the full sharedSetup used by pipeline commands.
var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage corpus build history",
	Long: `Inspect and maintain the build history recorded when --corpus-backend is set.

Each build records:
- Run metadata (timestamps, configuration, duration)
- One entry per packaged document, assembled or skipped with a reason

Subcommands:
  status  - Show build tracking statistics
  history - List recent builds
  export  - Export builds, entries and corpus records to Parquet
  migrate - Run database schema migrations
  clear   - Remove all build tracking data`,
}

// corpusClearCmd removes all build tracking data.
var corpusClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all build tracking data",
	Long: `Delete all recorded builds and entries from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the build and entry tables

Examples:
  patchcorpus corpus clear --corpus-backend sqlite`,
	PreRunE: corpusDirectSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearCorpus(cfg.CorpusBackend, cfg.CorpusDBConnect, cfg.CorpusDBConnect); err != nil {
			contract.LogFatal("Failed to clear build tracking data", err)
		}
		fmt.Println("Build tracking data cleared successfully.")
	},
}

// corpusStatusCmd shows build tracking status.
var corpusStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display build tracking statistics",
	Long: `Show totals across all recorded builds.

Displays:
- Backend type and connection status
- Number of builds and the most recent build id
- Documents assembled and skipped across all builds
- Row counts per table

Examples:
  patchcorpus corpus status --corpus-backend sqlite`,
	PreRunE: corpusOpenSetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.Manager.GetCorpusStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get build tracking status", err)
		}
		iocache.PrintCorpusStatus(status)
	},
}

// corpusHistoryCmd lists recent builds.
var corpusHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent corpus builds",
	Long: `Print a table of recorded builds, newest first.

Examples:
  patchcorpus corpus history --limit 5`,
	PreRunE: corpusOpenSetup,
	Run: func(_ *cobra.Command, _ []string) {
		runs, err := iocache.Manager.GetCorpusStore().GetAllBuildRuns()
		if err != nil {
			contract.LogFatal("Failed to read build history", err)
		}
		if err := iocache.WriteBuildHistory(os.Stdout, runs, viper.GetInt("limit")); err != nil {
			contract.LogFatal("Failed to print build history", err)
		}
	},
}

// corpusExportCmd exports build tracking data to Parquet files.
var corpusExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export build history and corpus records to Parquet",
	Long: `Export stored build data to Parquet format for analytics tools.

Writes next to --output-file:
- <output-file>.build_runs.parquet - one row per build
- <output-file>.entries.parquet    - one row per document outcome
- <output-file>.records.parquet    - the corpus records, when the corpus file exists

Requires: --output-file parameter

Examples:
  # Export all data
  patchcorpus corpus export --output-file corpus-data

  # Query with DuckDB
  duckdb -c "SELECT status, count(*) FROM read_parquet('corpus-data.entries.parquet') GROUP BY 1"`,
	PreRunE: corpusOpenSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteCorpusExport(iocache.Manager.GetCorpusStore(), cfg.OutputFile, cfg.CorpusFile); err != nil {
			contract.LogFatal("Failed to export build data", err)
		}
	},
}

// corpusMigrateCmd runs database migrations for the corpus store.
var corpusMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the build tracking store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  patchcorpus corpus migrate --corpus-backend sqlite

  # Migrate to specific version
  patchcorpus corpus migrate --corpus-backend sqlite --target-version 1

  # Rollback to initial state
  patchcorpus corpus migrate --corpus-backend sqlite --target-version 0`,
	PreRunE: corpusDirectSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateCorpus(cfg.CorpusBackend, cfg.CorpusDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
