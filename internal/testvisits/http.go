package testvisits

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// wrappedBatch mirrors the collaborator's envelope shape.
type wrappedBatch struct {
	Data []Visit `json:"data"`
}

// submitVisits ingests visits in batches concurrently. Every other batch
// is sent wrapped under "data" so both payload shapes stay exercised.
func submitVisits(ctx context.Context, config *Config, visits []Visit, stats *Stats) error {
	batches := make([][]Visit, 0, len(visits)/config.BatchSize+1)
	for start := 0; start < len(visits); start += config.BatchSize {
		end := start + config.BatchSize
		if end > len(visits) {
			end = len(visits)
		}
		batches = append(batches, visits[start:end])
	}

	log.Printf("📤 Submitting %d visits in %d batches with %d workers...",
		len(visits), len(batches), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/visits"

	var (
		accepted     int64
		failed       int64
		submitted    int64
		dateWarnings int64
	)

	type indexedBatch struct {
		index int
		batch []Visit
	}

	batchChan := make(chan indexedBatch, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for ib := range batchChan {
				select {
				case <-ctx.Done():
					return
				default:
					ack, err := submitSingleBatch(ctx, client, url, ib.batch, ib.index%2 == 1)
					atomic.AddInt64(&submitted, 1)
					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Batch %d failed: %v", ib.index, err)
						}
						continue
					}
					atomic.AddInt64(&accepted, int64(ack.Applied))
					atomic.AddInt64(&dateWarnings, int64(len(ack.DateWarnings)))
				}
			}
		}()
	}

	go func() {
		defer close(batchChan)
		for i, batch := range batches {
			select {
			case <-ctx.Done():
				return
			case batchChan <- indexedBatch{index: i, batch: batch}:
			}
		}
	}()

	wg.Wait()

	stats.BatchesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.BatchesFailed = int(atomic.LoadInt64(&failed))
	stats.VisitsAccepted = int(atomic.LoadInt64(&accepted))
	stats.DateWarnings = int(atomic.LoadInt64(&dateWarnings))

	log.Printf(`✅ Visit submission completed:
   Batches: %d (failed: %d)
   Visits accepted: %d
   Date warnings: %d
`, stats.BatchesSubmitted, stats.BatchesFailed, stats.VisitsAccepted, stats.DateWarnings)

	return nil
}

// submitSingleBatch posts one batch, optionally wrapped, and decodes the ack.
func submitSingleBatch(ctx context.Context, client *HTTPClient, url string, batch []Visit, wrap bool) (IngestAck, error) {
	var payload interface{} = batch
	if wrap {
		payload = wrappedBatch{Data: batch}
	}

	resp, err := client.Post(ctx, url, payload)
	if err != nil {
		return IngestAck{}, fmt.Errorf("post batch: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return IngestAck{}, fmt.Errorf("read ack: %w", err)
	}
	if resp.StatusCode != StatusAccepted {
		return IngestAck{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var ack IngestAck
	if err := json.Unmarshal(body, &ack); err != nil {
		return IngestAck{}, fmt.Errorf("decode ack: %w", err)
	}
	return ack, nil
}

// fetchCoverage retrieves the derived coverage for one representative.
func fetchCoverage(ctx context.Context, client *HTTPClient, baseURL, repID string) (Coverage, error) {
	resp, err := client.Get(ctx, baseURL+"/reps/"+repID+"/coverage")
	if err != nil {
		return Coverage{}, fmt.Errorf("get coverage: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return Coverage{}, fmt.Errorf("read coverage: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return Coverage{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var cov Coverage
	if err := json.Unmarshal(body, &cov); err != nil {
		return Coverage{}, fmt.Errorf("decode coverage: %w", err)
	}
	return cov, nil
}

// fetchMarkers retrieves the map markers for one representative.
func fetchMarkers(ctx context.Context, client *HTTPClient, baseURL, repID string) ([]Marker, error) {
	resp, err := client.Get(ctx, baseURL+"/reps/"+repID+"/markers")
	if err != nil {
		return nil, fmt.Errorf("get markers: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read markers: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var markers []Marker
	if err := json.Unmarshal(body, &markers); err != nil {
		return nil, fmt.Errorf("decode markers: %w", err)
	}
	return markers, nil
}
