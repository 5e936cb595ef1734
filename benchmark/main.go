// Package main provides a performance benchmarking tool for the patchcorpus CLI.
// It measures stage and run times for a set of advisory files, running each
// command multiple times, treating the first successful run as cold and
// averaging the rest as warm, and writes CSV output for performance analysis.
//
// Prerequisites:
// - patchcorpus binary installed and available in PATH
// - Advisory files named <dataset>.json in the specified base directory
//
// Usage: go run benchmark/main.go [advisory-base-dir]
//
//	advisory-base-dir: Directory containing advisory files
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Dataset     string
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	AdvisoryBase string
	StagingBase  string
	Timeout      time.Duration
	Workers      int
	NoCacheRuns  int
	CacheRuns    int
	Datasets     []string
	Commands     []string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [advisory-base-dir]\n", os.Args[0])
		os.Exit(1)
	}

	stagingBase, err := os.MkdirTemp("", "patchcorpus-bench-")
	if err != nil {
		fmt.Printf("Failed to create staging base: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.RemoveAll(stagingBase) }()

	config := BenchmarkConfig{
		AdvisoryBase: os.Args[1],
		StagingBase:  stagingBase,
		Timeout:      10 * time.Minute,
		Workers:      8,
		NoCacheRuns:  3,
		CacheRuns:    4,
		Datasets:     []string{"pypi-small", "npm-medium", "maven-large"},
		Commands:     []string{"stage", "run"},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	// Clear the object cache so the first cached run is really cold
	fmt.Printf("Clearing cache...\n")
	clearCmd := exec.Command("patchcorpus", "cache", "clear")
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	} else {
		fmt.Printf("Cache cleared successfully\n")
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(config, results)
}

// checkPrerequisites verifies that the binary and advisory files exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("patchcorpus"); err != nil {
		return fmt.Errorf("patchcorpus binary not found in PATH")
	}
	for _, dataset := range config.Datasets {
		path := advisoryFile(config, dataset)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("advisory file for %s not found at %s", dataset, path)
		}
	}
	return nil
}

func advisoryFile(config BenchmarkConfig, dataset string) string {
	return filepath.Join(config.AdvisoryBase, dataset+".json")
}

// runBenchmarks executes all benchmark tests across configured datasets
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d datasets, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.Datasets), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, dataset := range config.Datasets {
		fmt.Printf("Benchmarking %s\n", dataset)
		// Clones are reused across runs of one dataset, so only git object reads vary
		stagingDir := filepath.Join(config.StagingBase, dataset)
		for _, command := range config.Commands {
			results = append(results, runBenchmarkSuite(config, dataset, stagingDir, command))
		}
	}

	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, dataset, stagingDir, command string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", command, dataset)

	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, dataset, stagingDir, command, cacheBackend, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: No-cache runs
	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")

	// Phase 2: Cache runs
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Dataset:     dataset,
		Command:     command,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a patchcorpus command multiple times with the given cache backend and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, dataset, stagingDir, command, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{
		command,
		"--advisories", advisoryFile(config, dataset),
		"--staging-dir", stagingDir,
		"--workers", fmt.Sprint(config.Workers),
		"--cache-backend", cacheBackend,
	}

	var times []float64
	for range numRuns {
		start := time.Now()

		cmd := exec.Command("patchcorpus", args...)

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output, command) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
			<-done
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte, command string) bool {
	outputStr := string(output)
	if command == "stage" {
		return strings.Contains(outputStr, "Staged") && strings.Contains(outputStr, "workers")
	}
	return strings.Contains(outputStr, "Build completed in")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("patchcorpus_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"dataset", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Dataset, result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(config BenchmarkConfig, results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, command := range config.Commands {
		fmt.Printf("%s:\n", command)
		for _, result := range results {
			if result.Command == command {
				fmt.Printf("  %-12s: No-cache: %s, Cold: %s, Warm: %s\n", result.Dataset, result.NoCacheTime, result.ColdTime, result.WarmTime)
			}
		}
	}
	fmt.Printf("Benchmark script completed successfully\n")
}
