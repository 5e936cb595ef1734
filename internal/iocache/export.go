package iocache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/patchcorpus/internal/contract"
	"github.com/huangsam/patchcorpus/internal/parquet"
	"github.com/huangsam/patchcorpus/schema"
)

// ExecuteCorpusExport exports build history from store to Parquet files
// named after outputFile. When corpusFile exists its records are exported too.
func ExecuteCorpusExport(store contract.CorpusStore, outputFile, corpusFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("corpus store is not initialized")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get corpus status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no build data found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total builds: %d\n", status.TotalRuns)
	fmt.Printf("Total entries: %d\n", status.TableSizes[corpusEntriesTable])

	runs, err := store.GetAllBuildRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve build runs: %w", err)
	}
	entries, err := store.GetAllEntries()
	if err != nil {
		return fmt.Errorf("failed to retrieve corpus entries: %w", err)
	}

	runsFile := outputFile + ".build_runs.parquet"
	parquetRuns := parquet.ConvertBuildRunRecords(runs)
	if err := parquet.WriteBuildRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write build runs: %w", err)
	}
	fmt.Printf("Exported %d build runs to: %s\n", len(parquetRuns), runsFile)

	entriesFile := outputFile + ".entries.parquet"
	parquetEntries := parquet.ConvertCorpusEntryRecords(entries)
	if err := parquet.WriteCorpusEntriesParquet(parquetEntries, entriesFile); err != nil {
		return fmt.Errorf("failed to write corpus entries: %w", err)
	}
	fmt.Printf("Exported %d entries to: %s\n", len(parquetEntries), entriesFile)

	if corpusFile != "" {
		n, err := exportCorpusRecords(corpusFile, outputFile+".records.parquet")
		if err != nil {
			return err
		}
		if n >= 0 {
			fmt.Printf("Exported %d corpus records to: %s\n", n, outputFile+".records.parquet")
		}
	}

	fmt.Println("\nExport complete! The Parquet files can be used with:")
	fmt.Println("  - Pandas (via pyarrow)")
	fmt.Println("  - Hugging Face datasets")
	fmt.Println("  - DuckDB")
	fmt.Println("  - Any other Parquet-compatible tool")
	return nil
}

// exportCorpusRecords converts the corpus JSON file to Parquet. It returns
// -1 without error when the corpus file does not exist yet.
func exportCorpusRecords(corpusFile, outputPath string) (int, error) {
	data, err := os.ReadFile(corpusFile)
	if os.IsNotExist(err) {
		return -1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read corpus file: %w", err)
	}

	var records []schema.CorpusRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("failed to decode corpus file %s: %w", corpusFile, err)
	}
	rows, err := parquet.ConvertCorpusRecords(records)
	if err != nil {
		return 0, err
	}
	if err := parquet.WriteCorpusRecordsParquet(rows, outputPath); err != nil {
		return 0, fmt.Errorf("failed to write corpus records: %w", err)
	}
	return len(rows), nil
}
