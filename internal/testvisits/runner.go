package testvisits

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fieldray/kanvass/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete visit coverage test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting kanvass coverage test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("visits", config.NumVisits),
		logger.Int("reps", config.NumReps),
		logger.Int("days", config.NumDays),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate visits
	visits, err := generateVisits(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("visit generation failed: %w", err)
	}

	// Step 3: Submit visits in concurrent batches
	if err := submitVisits(ctx, config, visits, stats); err != nil {
		return fmt.Errorf("visit submission failed: %w", err)
	}

	// Step 4: Wait for aggregate recomputation to settle
	logger.Get().Info(ctx, "waiting for coverage recomputation")
	time.Sleep(ProcessingDelay)

	// Step 5: Verify derived coverage per representative
	repIDs := make([]string, config.NumReps)
	for i := range repIDs {
		repIDs[i] = "rep-" + strconv.Itoa(i+1)
	}
	if err := verifyCoverage(ctx, config, repIDs, stats); err != nil {
		return fmt.Errorf("coverage verification failed: %w", err)
	}

	// Step 6: Verify markers
	if err := verifyMarkers(ctx, config, repIDs, stats); err != nil {
		return fmt.Errorf("marker verification failed: %w", err)
	}

	// Step 7: Save visits to file
	if err := saveVisitsToFile(ctx, config, visits); err != nil {
		logger.Get().Warn(ctx, "failed to save visits to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveVisitsToFile saves the generated visits to a JSON file.
func saveVisitsToFile(ctx context.Context, config *Config, visits []Visit) error {
	if len(visits) == 0 {
		return fmt.Errorf("no visits to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_visits_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(visits); err != nil {
		return fmt.Errorf("failed to write visits: %w", err)
	}

	logger.Get().Info(ctx, "visits saved to file", logger.String("filename", filename))
	return nil
}
