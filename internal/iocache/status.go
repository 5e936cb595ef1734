package iocache

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/huangsam/patchcorpus/schema"
)

const timeLayout = "2006-01-02 15:04:05"

// PrintCacheStatus prints cache status information.
func PrintCacheStatus(status schema.CacheStatus) {
	fmt.Printf("Cache Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Total Entries: %d\n", status.TotalEntries)
	if status.TotalEntries > 0 {
		fmt.Printf("Last Entry: %s\n", status.LastEntryTime.Format(timeLayout))
		fmt.Printf("Oldest Entry: %s\n", status.OldestEntryTime.Format(timeLayout))
	}
	fmt.Printf("Table Size: %d bytes\n", status.TableSizeBytes)
}

// PrintCorpusStatus prints corpus store status information.
func PrintCorpusStatus(status schema.CorpusStatus) {
	fmt.Printf("Corpus Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Total Builds: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		fmt.Printf("Last Build ID: %d\n", status.LastRunID)
		fmt.Printf("Last Build: %s\n", status.LastRunTime.Format(timeLayout))
		fmt.Printf("Oldest Build: %s\n", status.OldestRunTime.Format(timeLayout))
		fmt.Printf("Total Assembled: %d\n", status.TotalAssembled)
		fmt.Printf("Total Skipped: %d\n", status.TotalSkipped)
	}
	fmt.Println("Table Sizes:")
	for _, table := range slices.Sorted(maps.Keys(status.TableSizes)) {
		fmt.Printf("  %s: %d rows\n", table, status.TableSizes[table])
	}
}

// WriteBuildHistory renders up to limit build runs as a table. A limit of
// zero or less shows every run.
func WriteBuildHistory(w io.Writer, runs []schema.BuildRunRecord, limit int) error {
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Build", "Started", "Duration", "Assembled", "Skipped"})
	data := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := "running"
		if run.RunDurationMs != nil {
			duration = strconv.Itoa(int(*run.RunDurationMs)) + "ms"
		}
		data = append(data, []string{
			strconv.FormatInt(run.BuildID, 10),
			run.StartTime.Local().Format(timeLayout),
			duration,
			strconv.Itoa(int(run.TotalAssembled)),
			strconv.Itoa(int(run.TotalSkipped)),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
