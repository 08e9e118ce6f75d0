package testvisits

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
)

// rateTolerance absorbs float formatting noise in completion rates.
const rateTolerance = 1e-9

// verifyCoverage fetches every rep's coverage concurrently and checks
// the bucket invariants the engine promises.
func verifyCoverage(ctx context.Context, config *Config, repIDs []string, stats *Stats) error {
	log.Println("🔍 Verifying coverage...")

	client := newHTTPClient(config.Timeout)

	var mu sync.Mutex
	buckets := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)
	for _, repID := range repIDs {
		g.Go(func() error {
			cov, err := fetchCoverage(gctx, client, config.BaseURL, repID)
			if err != nil {
				return fmt.Errorf("rep %s: %w", repID, err)
			}
			if err := verifyRepCoverage(cov); err != nil {
				return fmt.Errorf("rep %s: %w", repID, err)
			}
			mu.Lock()
			buckets += len(cov.Days)
			mu.Unlock()
			if config.Verbose {
				log.Printf("   %s: %d days, %d visits, rate %.3f",
					repID, cov.Summary.Days, cov.Summary.TotalVisits, cov.Summary.CompletionRate)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stats.RepsVerified = len(repIDs)
	stats.BucketsVerified = buckets
	log.Printf("✅ Coverage verified: %d reps, %d day buckets", len(repIDs), buckets)
	return nil
}

// verifyRepCoverage checks one coverage response for internal consistency.
func verifyRepCoverage(cov Coverage) error {
	seenDays := make(map[string]bool, len(cov.Days))
	totalVisits := 0
	completedTotal := 0

	for i, day := range cov.Days {
		dayKey := day.Date[:10]
		if seenDays[dayKey] {
			return fmt.Errorf("duplicate day bucket %s", dayKey)
		}
		seenDays[dayKey] = true

		if i > 0 && cov.Days[i-1].Date < day.Date {
			return fmt.Errorf("buckets not ordered most recent first at %s", dayKey)
		}

		if day.TotalCount != len(day.AllVisits) {
			return fmt.Errorf("day %s: total_count %d != %d visits", dayKey, day.TotalCount, len(day.AllVisits))
		}

		completed := 0
		for _, v := range day.AllVisits {
			if v.Status == "completed" {
				completed++
			}
		}
		if day.CompletedCount != completed {
			return fmt.Errorf("day %s: completed_count %d != %d completed statuses", dayKey, day.CompletedCount, completed)
		}

		wantRate := 0.0
		if day.TotalCount > 0 {
			wantRate = float64(day.CompletedCount) / float64(day.TotalCount)
		}
		if math.Abs(day.CompletionRate-wantRate) > rateTolerance {
			return fmt.Errorf("day %s: completion_rate %.6f != %.6f", dayKey, day.CompletionRate, wantRate)
		}

		totalVisits += day.TotalCount
		completedTotal += day.CompletedCount
	}

	if cov.Summary.Days != len(cov.Days) {
		return fmt.Errorf("summary days %d != %d buckets", cov.Summary.Days, len(cov.Days))
	}
	if cov.Summary.TotalVisits != totalVisits {
		return fmt.Errorf("summary total %d != %d bucket sum", cov.Summary.TotalVisits, totalVisits)
	}
	if cov.Summary.CompletedTotal != completedTotal {
		return fmt.Errorf("summary completed %d != %d bucket sum", cov.Summary.CompletedTotal, completedTotal)
	}
	return nil
}

// verifyMarkers fetches markers per rep and sanity-checks them against
// the coverage guarantee: every marker is a completed, geotagged visit.
func verifyMarkers(ctx context.Context, config *Config, repIDs []string, stats *Stats) error {
	log.Println("🗺  Verifying markers...")

	client := newHTTPClient(config.Timeout)

	var mu sync.Mutex
	total := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)
	for _, repID := range repIDs {
		g.Go(func() error {
			markers, err := fetchMarkers(gctx, client, config.BaseURL, repID)
			if err != nil {
				return fmt.Errorf("rep %s: %w", repID, err)
			}
			for _, m := range markers {
				if m.Lat == 0 && m.Lng == 0 {
					return fmt.Errorf("rep %s: marker %d has zero coordinates", repID, m.ID)
				}
				if m.Label == "" {
					return fmt.Errorf("rep %s: marker %d has empty label", repID, m.ID)
				}
			}
			mu.Lock()
			total += len(markers)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stats.MarkersRetrieved = total
	log.Printf("✅ Markers verified: %d markers across %d reps", total, len(repIDs))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, visitsPerSecond float64

	if stats.VisitsGenerated > 0 {
		acceptRate = float64(stats.VisitsAccepted) / float64(stats.VisitsGenerated) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		visitsPerSecond = float64(stats.VisitsAccepted) / stats.Duration.Seconds()
	}

	log.Printf(`📊 Final statistics:
   Visits generated: %d
   Batches submitted: %d (failed: %d)
   Visits accepted: %d (%.1f%%)
   Date warnings: %d
   Reps verified: %d
   Day buckets verified: %d
   Markers retrieved: %d
   Duration: %s (%.0f visits/s)
`, stats.VisitsGenerated, stats.BatchesSubmitted, stats.BatchesFailed,
		stats.VisitsAccepted, acceptRate, stats.DateWarnings,
		stats.RepsVerified, stats.BucketsVerified, stats.MarkersRetrieved,
		stats.Duration, visitsPerSecond)
}
