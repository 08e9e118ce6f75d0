// Package remote holds the HTTP clients for the engine's external
// collaborators: the visit-record source and the status mutation
// endpoint. Payload unwrapping lives here so the engine's internal
// functions always receive plain, already-decoded collections.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/fieldray/kanvass/internal/domain/model"
	"github.com/fieldray/kanvass/pkg/logger"
	"github.com/fieldray/kanvass/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultTimeout       = 10 * time.Second
	defaultRateRPS       = 20
	defaultRateBurst     = 10
	defaultMaxConcurrent = 4
	maxResponseBytes     = 16 << 20
)

// Client talks to the visit-record source and the status mutation
// endpoint. It performs no aggregation and no retries; apply-once
// semantics are the mutation endpoint's contract.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	limiter       *rate.Limiter
	maxConcurrent int
	logger        logger.Logger
}

// NewClient creates a collaborator client with configuration options.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		limiter:       rate.NewLimiter(rate.Limit(defaultRateRPS), defaultRateBurst),
		maxConcurrent: defaultMaxConcurrent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("remote")
	}
	return c
}

// FetchRepBatch fetches one representative's raw journey-plan batch and
// decodes it. Per-record decode problems are surfaced as warnings, not
// failures; the batch continues without the offending records.
func (c *Client) FetchRepBatch(ctx context.Context, repID string) ([]model.VisitRecord, []DecodeWarning, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("rate limit wait: %w", err)
	}

	url := fmt.Sprintf("%s/reps/%s/journey-plans", c.baseURL, repID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build source request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordSourceFetchError()
		return nil, nil, &SourceError{RepID: repID, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordSourceFetchError()
		return nil, nil, &SourceError{RepID: repID, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.RecordSourceFetchError()
		return nil, nil, &SourceError{RepID: repID, Err: err}
	}

	records, warnings, err := UnwrapRecords(body)
	if err != nil {
		metrics.RecordSourceFetchError()
		return nil, nil, &SourceError{RepID: repID, Err: err}
	}
	metrics.RecordSourceFetch()
	return records, warnings, nil
}

// FetchBatches fetches several representatives' batches concurrently,
// bounded by the client's concurrency limit and shared rate limiter.
// One failing rep fails the whole refresh; per-record problems do not.
func (c *Client) FetchBatches(ctx context.Context, repIDs []string) (map[string][]model.VisitRecord, []DecodeWarning, error) {
	var mu sync.Mutex
	batches := make(map[string][]model.VisitRecord, len(repIDs))
	var warnings []DecodeWarning

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)
	for _, repID := range repIDs {
		g.Go(func() error {
			records, w, err := c.FetchRepBatch(gctx, repID)
			if err != nil {
				return err
			}
			mu.Lock()
			batches[repID] = records
			warnings = append(warnings, w...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("fetch batches: %w", err)
	}
	return batches, warnings, nil
}

// mutationRequest mirrors the status endpoint's wire shape.
type mutationRequest struct {
	VisitID   int64  `json:"visitId"`
	NewStatus string `json:"newStatus"`
}

// MutateStatus asks the status endpoint to move a visit to next. Any
// non-2xx response, transport error or timeout is a failure; the caller
// owns the revert.
func (c *Client) MutateStatus(ctx context.Context, visitID int64, next model.Status) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(mutationRequest{VisitID: visitID, NewStatus: next.String()})
	if err != nil {
		return fmt.Errorf("encode mutation request: %w", err)
	}

	url := fmt.Sprintf("%s/journey-plans/%d/status", c.baseURL, visitID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build mutation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &MutationError{VisitID: visitID, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &MutationError{VisitID: visitID, StatusCode: resp.StatusCode}
	}
	return nil
}
