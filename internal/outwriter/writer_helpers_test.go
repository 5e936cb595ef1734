package outwriter

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/patchcorpus/schema"
)

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name     string
		data     any
		expected string
	}{
		{
			name:     "unjudged record fields",
			data:     schema.CorpusRecord{AdvisoryID: "GHSA-1", CommitHash: "deadbee", OldCode: map[string]string{}, NewCode: map[string]string{"lib/a.py": "B"}},
			expected: "{\n  \"ghsa_id\": \"GHSA-1\",\n  \"commit_hash\": \"deadbee\",\n  \"patch_diff\": \"\",\n  \"old_code\": {},\n  \"new_code\": {\n    \"lib/a.py\": \"B\"\n  },\n  \"portability\": null,\n  \"reason\": null\n}\n",
		},
		{
			name:     "changed file list",
			data:     []string{"lib/a.py", "src/util.js"},
			expected: "[\n  \"lib/a.py\",\n  \"src/util.js\"\n]\n",
		},
		{
			name:     "empty corpus",
			data:     []schema.CorpusRecord{},
			expected: "[]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeJSON(&buf, tt.data))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestWriteJSONError(t *testing.T) {
	var buf bytes.Buffer
	err := writeJSON(&buf, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON")
}

func TestWriteJSONKeepsCodeReadable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]string{"src/cmp.js": "if (a < b && c > d) {}"}))
	assert.Contains(t, buf.String(), "if (a < b && c > d) {}")
}

func TestWriteCSVWithHeader(t *testing.T) {
	header := []string{"ghsa_id", "commit_hash", "status", "reason"}
	tests := []struct {
		name     string
		rows     [][]string
		expected string
	}{
		{
			name:     "header only",
			expected: "ghsa_id,commit_hash,status,reason\n",
		},
		{
			name: "assembled and skipped",
			rows: [][]string{
				{"GHSA-1", "deadbee", "assembled", ""},
				{"GHSA-2", "c0ffee1", "skipped", "missing section"},
			},
			expected: "ghsa_id,commit_hash,status,reason\nGHSA-1,deadbee,assembled,\nGHSA-2,c0ffee1,skipped,missing section\n",
		},
		{
			name:     "reason with comma is quoted",
			rows:     [][]string{{"GHSA-3", "abcdef1", "skipped", "bad header, no tag"}},
			expected: "ghsa_id,commit_hash,status,reason\nGHSA-3,abcdef1,skipped,\"bad header, no tag\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeCSVWithHeader(&buf, header, func(w *csv.Writer) error {
				return w.WriteAll(tt.rows)
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestWriteCSVWithHeaderRowError(t *testing.T) {
	var buf bytes.Buffer
	err := writeCSVWithHeader(&buf, []string{"ghsa_id"}, func(_ *csv.Writer) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestWriteWithFile(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		called := false
		err := writeWithFile("", func(_ io.Writer) error {
			called = true
			return nil
		}, "Wrote report")
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "build.csv")
		err := writeWithFile(path, func(w io.Writer) error {
			_, err := io.WriteString(w, "ghsa_id\nGHSA-1\n")
			return err
		}, "Wrote report")
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "ghsa_id\nGHSA-1\n", string(data))
	})

	t.Run("writer error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "build.csv")
		err := writeWithFile(path, func(_ io.Writer) error { return assert.AnError }, "Wrote report")
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("unwritable path", func(t *testing.T) {
		err := writeWithFile(filepath.Join(t.TempDir(), "missing", "build.csv"), func(_ io.Writer) error { return nil }, "Wrote report")
		assert.Error(t, err)
	})
}
