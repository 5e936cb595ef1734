package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Status label constants used in progress lines and reports.
const (
	SavedValue   = "saved"   // snapshot or document written
	AbsentValue  = "absent"  // file missing on one side
	SkippedValue = "skipped" // document skipped by the assembler
	FailedValue  = "failed"  // repository or commit unavailable
)

// Color variables for console output.
var (
	SavedColor   = color.New(color.FgGreen)           // SavedColor marks normal progress.
	AbsentColor  = color.New(color.FgCyan)            // AbsentColor marks an expected one-sided file.
	SkippedColor = color.New(color.FgYellow)          // SkippedColor marks recoverable problems.
	FailedColor  = color.New(color.FgRed, color.Bold) // FailedColor marks aborted work.
)

// GetColorLabel returns a colored status label for console output.
func GetColorLabel(status string) string {
	switch status {
	case SavedValue:
		return SavedColor.Sprint(status)
	case AbsentValue:
		return AbsentColor.Sprint(status)
	case SkippedValue:
		return SkippedColor.Sprint(status)
	case FailedValue:
		return FailedColor.Sprint(status)
	default:
		return status
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// LogProgress prints one progress line to stderr, prefixed with emoji when enabled.
func LogProgress(useEmojis bool, emoji string, format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if useEmojis && emoji != "" {
		line = emoji + " " + line
	}
	_, _ = fmt.Fprintln(os.Stderr, line)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the git object cache.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".patchcorpus_cache.db"
	}
	return filepath.Join(homeDir, ".patchcorpus_cache.db")
}

// GetCorpusDBFilePath returns the path to the SQLite DB file for corpus build tracking.
func GetCorpusDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".patchcorpus_corpus.db"
	}
	return filepath.Join(homeDir, ".patchcorpus_corpus.db")
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to leave room for the "..." prefix.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
