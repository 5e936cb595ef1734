package publish

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/patchcorpus/internal/contract"
)

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "patchcorpus/dataset.json", CorpusKey("patchcorpus"))
	assert.Equal(t, "dataset.json", CorpusKey(""))
	assert.Equal(t, "a/b/dataset.json", CorpusKey("/a/b/"))
	assert.Equal(t, "patchcorpus/packages/GHSA-1/deadbee.txt", DocumentKey("patchcorpus", "GHSA-1", "deadbee"))
	assert.Equal(t, "packages/GHSA-1/deadbee.txt", DocumentKey("", "GHSA-1", "deadbee"))
}

func TestNewValidatesConfig(t *testing.T) {
	valid := contract.S3Config{
		Endpoint:  "localhost:9000",
		Bucket:    "corpus",
		AccessKey: "minio",
		SecretKey: "minio123",
		Prefix:    "patchcorpus",
	}

	pub, err := New(valid)
	require.NoError(t, err)
	assert.Equal(t, defaultRegion, pub.region)
	assert.Equal(t, "corpus", pub.bucket)

	tests := []struct {
		name   string
		modify func(c *contract.S3Config)
	}{
		{"missing endpoint", func(c *contract.S3Config) { c.Endpoint = "" }},
		{"missing keys", func(c *contract.S3Config) { c.SecretKey = "" }},
		{"missing bucket", func(c *contract.S3Config) { c.Bucket = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.modify(&cfg)
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}
}
