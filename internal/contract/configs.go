package contract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/huangsam/patchcorpus/schema"
)

// Default values for configuration.
const (
	DefaultStagingDir    = "patchcorpus-data"
	DefaultCorpusFile    = "dataset.json"
	DefaultWorkers       = 1
	MaxWorkers           = 64
	DefaultS3Prefix      = "patchcorpus"
	DefaultAdvisoryInput = "advisories.json"
)

// S3Config holds the optional object storage target for publishing.
type S3Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string // Please use env var as this is plaintext
	Region    string
	Secure    bool
	Prefix    string
}

// Enabled reports whether publishing was requested.
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// Config holds the runtime configuration for the pipeline.
// This struct remains the "final, validated" config.
type Config struct {
	AdvisoriesPath string
	StagingDir     string
	CorpusFile     string
	Workers        int
	Output         schema.OutputMode
	OutputFile     string

	DuplicatePolicy schema.DuplicatePolicy
	Framing         schema.Framing
	PromptHeader    bool
	RequireSections bool

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	CorpusBackend   schema.DatabaseBackend
	CorpusDBConnect string // Please use env var as this is plaintext

	S3 S3Config

	GitHubToken string

	UseEmojis bool // Enable emojis in progress lines
	UseColors bool // Enable colored labels in table output
	Width     int  // Table width override, 0 means auto-detect
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Advisories      string `mapstructure:"advisories"`
	StagingDir      string `mapstructure:"staging-dir"`
	CorpusFile      string `mapstructure:"corpus-file"`
	Workers         int    `mapstructure:"workers"`
	Output          string `mapstructure:"output"`
	OutputFile      string `mapstructure:"output-file"`
	DuplicatePolicy string `mapstructure:"duplicate-policy"`
	Framing         string `mapstructure:"framing"`
	PromptHeader    bool   `mapstructure:"prompt-header"`
	RequireSections bool   `mapstructure:"require-sections"`
	CacheBackend    string `mapstructure:"cache-backend"`
	CacheDBConnect  string `mapstructure:"cache-db-connect"`
	CorpusBackend   string `mapstructure:"corpus-backend"`
	CorpusDBConnect string `mapstructure:"corpus-db-connect"`
	Emoji           string `mapstructure:"emoji"`
	Color           string `mapstructure:"color"`
	Width           int    `mapstructure:"width"`

	// --- Publishing ---
	S3Endpoint  string `mapstructure:"s3-endpoint"`
	S3Bucket    string `mapstructure:"s3-bucket"`
	S3AccessKey string `mapstructure:"s3-access-key"`
	S3SecretKey string `mapstructure:"s3-secret-key"`
	S3Region    string `mapstructure:"s3-region"`
	S3Secure    bool   `mapstructure:"s3-secure"`
	S3Prefix    string `mapstructure:"s3-prefix"`

	// --- Advisory fetching ---
	GitHubToken string `mapstructure:"github-token"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Params returns the settings worth recording alongside a corpus build.
func (c *Config) Params() map[string]any {
	return map[string]any{
		"staging_dir":      c.StagingDir,
		"corpus_file":      c.CorpusFile,
		"workers":          c.Workers,
		"duplicate_policy": string(c.DuplicatePolicy),
		"framing":          string(c.Framing),
		"require_sections": c.RequireSections,
	}
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateDocumentOptions(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := validateS3Config(cfg, input); err != nil {
		return err
	}
	return resolvePaths(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the plain fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.AdvisoriesPath = input.Advisories
	cfg.OutputFile = input.OutputFile
	cfg.GitHubToken = input.GitHubToken

	emojis, err := ParseBoolString(input.Emoji)
	if err != nil {
		return fmt.Errorf("invalid --emoji value: %w", err)
	}
	cfg.UseEmojis = emojis

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Width < 0 {
		return fmt.Errorf("width cannot be negative (received %d)", input.Width)
	}
	cfg.Width = input.Width

	if input.Workers <= 0 || input.Workers > MaxWorkers {
		return fmt.Errorf("workers must be greater than 0 and cannot exceed %d (received %d)", MaxWorkers, input.Workers)
	}
	cfg.Workers = input.Workers

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}
	return nil
}

// validateDocumentOptions checks the packaging and parsing knobs.
func validateDocumentOptions(cfg *Config, input *ConfigRawInput) error {
	cfg.DuplicatePolicy = schema.DuplicatePolicy(strings.ToLower(input.DuplicatePolicy))
	if cfg.DuplicatePolicy == "" {
		cfg.DuplicatePolicy = schema.DuplicateOverwrite
	}
	if _, ok := schema.ValidDuplicatePolicies[cfg.DuplicatePolicy]; !ok {
		return fmt.Errorf("invalid duplicate policy '%s'. must be overwrite, append, reject", input.DuplicatePolicy)
	}

	cfg.Framing = schema.Framing(strings.ToLower(input.Framing))
	if cfg.Framing == "" {
		cfg.Framing = schema.DelimitedFraming
	}
	if _, ok := schema.ValidFramings[cfg.Framing]; !ok {
		return fmt.Errorf("invalid framing '%s'. must be delimited, length", input.Framing)
	}

	cfg.PromptHeader = input.PromptHeader
	cfg.RequireSections = input.RequireSections
	return nil
}

// validateBackendConfigs validates cache and corpus backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- Corpus Backend Validation ---
	cfg.CorpusBackend = schema.DatabaseBackend(strings.ToLower(input.CorpusBackend))
	if cfg.CorpusBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.CorpusBackend]; !ok {
		return fmt.Errorf("invalid corpus backend '%s'. must be sqlite, mysql, postgresql, none", input.CorpusBackend)
	}
	cfg.CorpusDBConnect = input.CorpusDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CorpusBackend, cfg.CorpusDBConnect); err != nil {
		return err
	}

	// Cache and corpus must not share one SQLite file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.CorpusBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		corpusDBPath := cfg.CorpusDBConnect
		if corpusDBPath == "" {
			corpusDBPath = GetCorpusDBFilePath()
		}
		if cacheDBPath == corpusDBPath {
			return fmt.Errorf("cache and corpus storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// validateS3Config copies the publishing target and checks it is complete.
func validateS3Config(cfg *Config, input *ConfigRawInput) error {
	cfg.S3 = S3Config{
		Endpoint:  input.S3Endpoint,
		Bucket:    input.S3Bucket,
		AccessKey: input.S3AccessKey,
		SecretKey: input.S3SecretKey,
		Region:    input.S3Region,
		Secure:    input.S3Secure,
		Prefix:    strings.Trim(input.S3Prefix, "/"),
	}
	if !cfg.S3.Enabled() {
		return nil
	}
	if cfg.S3.Endpoint == "" {
		return fmt.Errorf("s3-endpoint is required when s3-bucket is set")
	}
	if cfg.S3.AccessKey == "" || cfg.S3.SecretKey == "" {
		return fmt.Errorf("s3-access-key and s3-secret-key are required when s3-bucket is set")
	}
	if cfg.S3.Prefix == "" {
		cfg.S3.Prefix = DefaultS3Prefix
	}
	return nil
}

// resolvePaths makes the staging directory absolute and derives the corpus file.
func resolvePaths(cfg *Config, input *ConfigRawInput) error {
	staging := input.StagingDir
	if staging == "" {
		staging = DefaultStagingDir
	}
	abs, err := filepath.Abs(staging)
	if err != nil {
		return fmt.Errorf("failed to resolve staging directory %q: %w", staging, err)
	}
	cfg.StagingDir = abs

	cfg.CorpusFile = input.CorpusFile
	if cfg.CorpusFile == "" {
		cfg.CorpusFile = filepath.Join(cfg.StagingDir, DefaultCorpusFile)
	}
	return nil
}
