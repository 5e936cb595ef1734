// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/huangsam/patchcorpus/schema"
)

// WriteCorpus writes the corpus artifact: a JSON array of records with
// 2-space indentation. An empty path writes to stdout.
func WriteCorpus(path string, records []schema.CorpusRecord) error {
	if records == nil {
		records = []schema.CorpusRecord{}
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create corpus directory: %w", err)
		}
	}
	return writeWithFile(path, func(w io.Writer) error {
		return writeJSON(w, records)
	}, fmt.Sprintf("Wrote %d corpus records", len(records)))
}
