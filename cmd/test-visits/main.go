package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/fieldray/kanvass/internal/testvisits"
)

// Default configuration constants.
const (
	defaultNumVisits   = 10000
	defaultNumReps     = 25
	defaultNumDays     = 14
	defaultBatchSize   = 200
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numVisits  = flag.Int("visits", defaultNumVisits, "Number of visits to generate and submit")
		numReps    = flag.Int("reps", defaultNumReps, "Number of distinct representatives")
		numDays    = flag.Int("days", defaultNumDays, "Number of distinct scheduled days")
		batchSize  = flag.Int("batch", defaultBatchSize, "Visits per ingest request")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated visits (default: generated_visits_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testvisits.ShowHelp()
		return
	}

	// Setup logging
	if err := testvisits.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &testvisits.Config{
		BaseURL:    *baseURL,
		NumVisits:  *numVisits,
		NumReps:    *numReps,
		NumDays:    *numDays,
		BatchSize:  *batchSize,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	// Run the test
	if err := testvisits.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
