// Package cmd defines the command-line interface for patchcorpus.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/patchcorpus/internal/contract"
	"github.com/huangsam/patchcorpus/schema"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(packageCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(advisoriesCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(corpusCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the advisories subcommands to the parent advisories command
	advisoriesCmd.AddCommand(advisoriesFetchCmd)
	advisoriesCmd.AddCommand(advisoriesNormalizeCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the corpus subcommands to the parent corpus command
	corpusCmd.AddCommand(corpusClearCmd)
	corpusCmd.AddCommand(corpusStatusCmd)
	corpusCmd.AddCommand(corpusHistoryCmd)
	corpusCmd.AddCommand(corpusExportCmd)
	corpusCmd.AddCommand(corpusMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	pf := rootCmd.PersistentFlags()
	pf.StringP("advisories", "a", contract.DefaultAdvisoryInput, "Advisory file (JSON or YAML, feed or normalized shape)")
	pf.String("staging-dir", contract.DefaultStagingDir, "Directory for clones, staged snapshots and packaged documents")
	pf.String("corpus-file", "", "Corpus output path (default <staging-dir>/dataset.json)")
	pf.Int("workers", contract.DefaultWorkers, "Number of advisories staged concurrently")
	pf.Var(newEnumFlag(string(schema.TextOut), "text", "csv", "json", "parquet"), "output", "Report format: text or csv or json or parquet")
	pf.String("output-file", "", "Optional path to write the report to")
	pf.Var(newEnumFlag(string(schema.DuplicateOverwrite), "overwrite", "append", "reject"), "duplicate-policy", "Repeated file blocks: overwrite or append or reject")
	pf.Var(newEnumFlag(string(schema.DelimitedFraming), "delimited", "length"), "framing", "Document framing: delimited or length")
	pf.Bool("prompt-header", false, "Prepend the reviewer prompt header to packaged documents")
	pf.Bool("require-sections", true, "Skip documents that lack any of the four section labels (--require-sections=false keeps them)")
	pf.Int("width", 0, "Terminal width override (0 = auto-detect)")
	pf.String("cache-backend", string(schema.SQLiteBackend), "Object cache backend: sqlite or mysql or postgresql or none")
	pf.String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	pf.String("corpus-backend", "", "Build tracking backend: sqlite or mysql or postgresql or none")
	pf.String("corpus-db-connect", "", "Database connection string for build tracking (a SQLite file must differ from the cache file)")
	pf.String("s3-endpoint", "", "S3-compatible endpoint for publishing (host:port)")
	pf.String("s3-bucket", "", "Bucket to publish the corpus to; publishing is off when empty")
	pf.String("s3-access-key", "", "Access key for publishing")
	pf.String("s3-secret-key", "", "Secret key for publishing (prefer PATCHCORPUS_S3_SECRET_KEY)")
	pf.String("s3-region", "", "Bucket region (default us-east-1)")
	pf.Bool("s3-secure", true, "Use TLS for the object storage endpoint")
	pf.String("s3-prefix", contract.DefaultS3Prefix, "Object key prefix for published files")
	pf.String("github-token", "", "GitHub token for advisory fetching (prefer GITHUB_TOKEN)")
	pf.String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	pf.String("emoji", "no", "Prefix progress lines with emojis (yes/no/true/false/1/0)")
	pf.String("config", "", "Path to config file")
	if err := viper.BindPFlags(pf); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of advisoriesFetchCmd to Viper
	advisoriesFetchCmd.Flags().StringSlice("ids", nil, "GHSA identifiers to fetch (comma-separated)")
	if err := viper.BindPFlags(advisoriesFetchCmd.Flags()); err != nil {
		contract.LogFatal("Error binding advisories fetch flags", err)
	}

	// Bind all flags of corpusHistoryCmd to Viper
	corpusHistoryCmd.Flags().Int("limit", 20, "Number of most recent builds to show (0 = all)")
	if err := viper.BindPFlags(corpusHistoryCmd.Flags()); err != nil {
		contract.LogFatal("Error binding corpus history flags", err)
	}

	// Bind all flags of corpusMigrateCmd to Viper
	corpusMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(corpusMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding corpus migrate flags", err)
	}
}
