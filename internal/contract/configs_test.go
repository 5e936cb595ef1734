package contract

import (
	"path/filepath"
	"testing"

	"github.com/huangsam/patchcorpus/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput returns the raw input the CLI produces with default flags.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		StagingDir:      "data",
		Workers:         DefaultWorkers,
		Output:          "text",
		DuplicatePolicy: "overwrite",
		Framing:         "delimited",
		RequireSections: true,
		CacheBackend:    "sqlite",
		Emoji:           "no",
		Color:           "yes",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
	}{
		{name: "valid defaults", mutate: func(*ConfigRawInput) {}},
		{name: "zero workers", mutate: func(in *ConfigRawInput) { in.Workers = 0 }, expectError: true},
		{name: "too many workers", mutate: func(in *ConfigRawInput) { in.Workers = MaxWorkers + 1 }, expectError: true},
		{name: "invalid output", mutate: func(in *ConfigRawInput) { in.Output = "xml" }, expectError: true},
		{name: "parquet without file", mutate: func(in *ConfigRawInput) { in.Output = "parquet" }, expectError: true},
		{name: "parquet with file", mutate: func(in *ConfigRawInput) { in.Output = "parquet"; in.OutputFile = "out.parquet" }},
		{name: "invalid duplicate policy", mutate: func(in *ConfigRawInput) { in.DuplicatePolicy = "merge" }, expectError: true},
		{name: "empty duplicate policy defaults", mutate: func(in *ConfigRawInput) { in.DuplicatePolicy = "" }},
		{name: "invalid framing", mutate: func(in *ConfigRawInput) { in.Framing = "mime" }, expectError: true},
		{name: "invalid emoji", mutate: func(in *ConfigRawInput) { in.Emoji = "maybe" }, expectError: true},
		{name: "invalid cache backend", mutate: func(in *ConfigRawInput) { in.CacheBackend = "redis" }, expectError: true},
		{name: "mysql without dsn", mutate: func(in *ConfigRawInput) { in.CacheBackend = "mysql" }, expectError: true},
		{
			name: "same sqlite file for cache and corpus",
			mutate: func(in *ConfigRawInput) {
				in.CorpusBackend = "sqlite"
				in.CacheDBConnect = "/tmp/same.db"
				in.CorpusDBConnect = "/tmp/same.db"
			},
			expectError: true,
		},
		{name: "s3 bucket without endpoint", mutate: func(in *ConfigRawInput) { in.S3Bucket = "corpus" }, expectError: true},
		{
			name: "complete s3 target",
			mutate: func(in *ConfigRawInput) {
				in.S3Bucket = "corpus"
				in.S3Endpoint = "localhost:9000"
				in.S3AccessKey = "minio"
				in.S3SecretKey = "minio123"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessAndValidateDerivedFields(t *testing.T) {
	input := validInput()
	input.DuplicatePolicy = ""
	input.Framing = "LENGTH"
	input.S3Bucket = "corpus"
	input.S3Endpoint = "localhost:9000"
	input.S3AccessKey = "minio"
	input.S3SecretKey = "minio123"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.True(t, filepath.IsAbs(cfg.StagingDir))
	assert.Equal(t, filepath.Join(cfg.StagingDir, DefaultCorpusFile), cfg.CorpusFile)
	assert.Equal(t, schema.DuplicateOverwrite, cfg.DuplicatePolicy)
	assert.Equal(t, schema.LengthPrefixedFraming, cfg.Framing)
	assert.Equal(t, DefaultS3Prefix, cfg.S3.Prefix)
	assert.True(t, cfg.UseColors)
	assert.False(t, cfg.UseEmojis)
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		connStr string
		wantErr bool
	}{
		{"sqlite empty", schema.SQLiteBackend, "", false},
		{"none", schema.NoneBackend, "", false},
		{"mysql valid", schema.MySQLBackend, "user:pass@tcp(localhost:3306)/corpus", false},
		{"mysql missing tcp", schema.MySQLBackend, "user:pass@localhost/corpus", true},
		{"postgres valid", schema.PostgreSQLBackend, "host=localhost dbname=corpus", false},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.connStr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{Workers: 2, StagingDir: "/tmp/a"}
	clone := cfg.Clone()
	clone.Workers = 8
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "/tmp/a", clone.StagingDir)
}
