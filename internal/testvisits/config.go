package testvisits

import "time"

// Config holds configuration for the visit coverage test
type Config struct {
	BaseURL    string        // Base URL of the service
	NumVisits  int           // Number of visits to generate
	NumReps    int           // Number of distinct representatives
	NumDays    int           // Number of distinct scheduled days
	Workers    int           // Number of concurrent workers
	BatchSize  int           // Visits per ingest request
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for visits
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// Visit represents a raw visit record on the wire. Status is any so the
// generator can send both status names and legacy numeric codes.
type Visit struct {
	ID            int64    `json:"id"`
	RepID         string   `json:"rep_id"`
	RepName       string   `json:"rep_name,omitempty"`
	ClientID      string   `json:"client_id,omitempty"`
	ClientName    string   `json:"client_name,omitempty"`
	RouteName     string   `json:"route_name,omitempty"`
	ScheduledDate string   `json:"scheduled_date"`
	ScheduledTime string   `json:"scheduled_time,omitempty"`
	Status        any      `json:"status"`
	CheckInTime   *string  `json:"check_in_time,omitempty"`
	CheckoutTime  *string  `json:"checkout_time,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
}

// IngestAck represents the response from batch ingestion
type IngestAck struct {
	Applied        int      `json:"applied"`
	DecodeWarnings []string `json:"decode_warnings"`
	DateWarnings   []string `json:"date_warnings"`
}

// DayBucket represents one day of a coverage response
type DayBucket struct {
	Date           string          `json:"date"`
	AllVisits      []coverageVisit `json:"all_visits"`
	CompletedCount int             `json:"completed_count"`
	TotalCount     int             `json:"total_count"`
	CompletionRate float64         `json:"completion_rate"`
}

// coverageVisit is the slice of the record the verifier needs
type coverageVisit struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// Summary represents the rep-level reduction of a coverage response
type Summary struct {
	Days           int     `json:"days"`
	TotalVisits    int     `json:"total_visits"`
	CompletedTotal int     `json:"completed_visits"`
	CompletionRate float64 `json:"completion_rate"`
}

// Coverage represents the full coverage response for one representative
type Coverage struct {
	RepID    string      `json:"rep_id"`
	Days     []DayBucket `json:"days"`
	Summary  Summary     `json:"summary"`
	Warnings []string    `json:"warnings"`
}

// Marker represents a map marker response entry
type Marker struct {
	ID            int64   `json:"id"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	Label         string  `json:"label"`
	ElapsedOnSite string  `json:"elapsed_on_site"`
}

// Stats holds test statistics
type Stats struct {
	VisitsGenerated  int
	BatchesSubmitted int
	BatchesFailed    int
	VisitsAccepted   int
	DateWarnings     int
	RepsVerified     int
	BucketsVerified  int
	MarkersRetrieved int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
