package testvisits

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/fieldray/kanvass/pkg/logger"
	"github.com/google/uuid"
)

// Constants for random number generation.
const (
	randomFloatDivisor  = 1000000
	dateEncodingDivisor = 3
	statusShapeDivisor  = 6
)

// Date encoding cases. All three must collapse onto the same canonical
// day once ingested.
const (
	caseBareDate      = 0
	caseISODatetime   = 1
	caseSpaceDatetime = 2
)

// Status shape cases.
const (
	casePendingName    = 0
	caseInProgressName = 1
	caseCompletedName  = 2
	caseCompletedCode2 = 3
	caseCompletedCode3 = 4
	casePendingCode    = 5
)

// Visit geography bounds (roughly metropolitan Santiago).
const (
	baseLatitude   = -33.45
	baseLongitude  = -70.66
	coordJitter    = 0.25
	onSiteMaxHours = 4
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// randomInt returns a random int in [0, n) using crypto/rand.
func randomInt(n int64) int64 {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

// generateVisits creates the specified number of visits spread across
// the configured reps and days.
func generateVisits(ctx context.Context, config *Config, stats *Stats) ([]Visit, error) {
	logger.Get().Info(ctx, "generating visits",
		logger.Int("numVisits", config.NumVisits),
		logger.Int("reps", config.NumReps),
		logger.Int("days", config.NumDays))

	// Pre-allocate rep and client identities so visits share them.
	repIDs := make([]string, config.NumReps)
	repNames := make([]string, config.NumReps)
	for i := range repIDs {
		repIDs[i] = "rep-" + strconv.Itoa(i+1)
		repNames[i] = "Rep " + strconv.Itoa(i+1)
	}

	// Anchor days backwards from today so coverage ordering is exercised.
	today := time.Now().UTC().Truncate(24 * time.Hour)
	days := make([]time.Time, config.NumDays)
	for i := range days {
		days[i] = today.AddDate(0, 0, -i)
	}

	type visitResult struct {
		index int
		visit Visit
		err   error
	}

	resultChan := make(chan visitResult, config.NumVisits)

	workerCount := minInt(config.Workers, config.NumVisits)
	visitsPerWorker := config.NumVisits / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * visitsPerWorker
		end := start + visitsPerWorker
		if worker == workerCount-1 {
			end = config.NumVisits // Last worker gets remaining visits
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- visitResult{index: i, err: ctx.Err()}
					return
				default:
					repIdx := int(randomInt(int64(config.NumReps)))
					day := days[randomInt(int64(config.NumDays))]
					visit := generateSingleVisit(int64(i+1), repIDs[repIdx], repNames[repIdx], day)
					resultChan <- visitResult{index: i, visit: visit, err: nil}
				}
			}
		}(start, end)
	}

	visits := make([]Visit, config.NumVisits)
	for i := 0; i < config.NumVisits; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during visit generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate visit %d: %w", result.index, result.err)
			}
			visits[result.index] = result.visit
		}
	}

	stats.VisitsGenerated = len(visits)
	logger.Get().Info(ctx, "generated visits successfully", logger.Int("count", len(visits)))

	return visits, nil
}

// generateSingleVisit creates one visit on the given day with a random
// date encoding and status shape.
func generateSingleVisit(id int64, repID, repName string, day time.Time) Visit {
	hour := 8 + randomInt(10)
	minute := randomInt(60)

	v := Visit{
		ID:            id,
		RepID:         repID,
		RepName:       repName,
		ClientID:      uuid.New().String(),
		ClientName:    "Client " + strconv.FormatInt(id, 10),
		RouteName:     "Route " + repID,
		ScheduledDate: encodeDate(day, hour, minute),
		ScheduledTime: fmt.Sprintf("%02d:%02d", hour, minute),
		Status:        encodeStatus(randomInt(statusShapeDivisor)),
	}

	// Completed visits usually carry check-in/out and coordinates.
	if isCompletedShape(v.Status) && randomInt(4) != 0 {
		checkIn := day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
		onSite := time.Duration(1+randomInt(onSiteMaxHours*60)) * time.Minute
		checkOut := checkIn.Add(onSite)

		in := checkIn.Format(time.RFC3339)
		out := checkOut.Format(time.RFC3339)
		lat := baseLatitude + (getRandomFloat()-0.5)*coordJitter
		lng := baseLongitude + (getRandomFloat()-0.5)*coordJitter

		v.CheckInTime = &in
		v.CheckoutTime = &out
		v.Latitude = &lat
		v.Longitude = &lng
	}

	return v
}

// encodeDate renders the same day in one of the three wire encodings the
// normalizer must collapse.
func encodeDate(day time.Time, hour, minute int64) string {
	switch randomInt(dateEncodingDivisor) {
	case caseBareDate:
		return day.Format("2006-01-02")
	case caseISODatetime:
		return fmt.Sprintf("%sT%02d:%02d:00Z", day.Format("2006-01-02"), hour, minute)
	case caseSpaceDatetime:
		return fmt.Sprintf("%s %02d:%02d:00", day.Format("2006-01-02"), hour, minute)
	default:
		return day.Format("2006-01-02")
	}
}

// encodeStatus picks a status representation: names and legacy numeric
// codes, with both completed codes represented.
func encodeStatus(shape int64) any {
	switch shape {
	case casePendingName:
		return "pending"
	case caseInProgressName:
		return "in_progress"
	case caseCompletedName:
		return "completed"
	case caseCompletedCode2:
		return 2
	case caseCompletedCode3:
		return 3
	case casePendingCode:
		return 0
	default:
		return "pending"
	}
}

// isCompletedShape reports whether a wire status resolves to completed.
func isCompletedShape(status any) bool {
	switch s := status.(type) {
	case string:
		return s == "completed"
	case int:
		return s == 2 || s == 3
	default:
		return false
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
