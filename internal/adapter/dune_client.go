package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	scanerrors "github.com/memecoin-scanner/internal/errors"
	"github.com/memecoin-scanner/internal/logging"
	"github.com/memecoin-scanner/internal/types"
)

const (
	duneProvider = "dune"

	// DefaultDuneBaseURL is the Dune API root
	DefaultDuneBaseURL = "https://api.dune.com/api/v1"
	// DefaultMaxRetries is the number of status polls before giving up
	DefaultMaxRetries = 50
	// DefaultPollInterval is the pause between two status polls
	DefaultPollInterval = 5 * time.Second
)

// Row is a single result row of a query execution
type Row map[string]interface{}

// SleepFunc pauses between polls. It must return early with an error when ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// DuneClientConfig holds configuration for the Dune client
type DuneClientConfig struct {
	APIKey       string
	BaseURL      string
	MaxRetries   int
	PollInterval time.Duration
	Timeout      time.Duration
	HTTPClient   *http.Client

	// Sleep overrides the pause between polls, mainly for tests
	Sleep SleepFunc
	// OnPoll is called with every state observed while polling
	OnPoll func(state types.ExecutionState)
}

// DuneClient executes parameterized queries on Dune and waits for their results
type DuneClient struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	maxRetries   int
	pollInterval time.Duration
	sleep        SleepFunc
	onPoll       func(state types.ExecutionState)
}

// NewDuneClient creates a new Dune API client
func NewDuneClient(cfg *DuneClientConfig) (*DuneClient, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	if cfg.MaxRetries < 0 {
		return nil, errors.New("max retries cannot be negative")
	}
	if cfg.PollInterval < 0 {
		return nil, errors.New("poll interval cannot be negative")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultDuneBaseURL
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}

	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = DefaultPollInterval
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &DuneClient{
		apiKey:       cfg.APIKey,
		baseURL:      baseURL,
		httpClient:   httpClient,
		maxRetries:   maxRetries,
		pollInterval: pollInterval,
		sleep:        sleep,
		onPoll:       cfg.OnPoll,
	}, nil
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// duneExecuteRequest is the body of an execute call
type duneExecuteRequest struct {
	QueryParameters map[string]interface{} `json:"query_parameters"`
}

// duneExecuteResponse represents the execute API response
type duneExecuteResponse struct {
	ExecutionID string `json:"execution_id"`
	State       string `json:"state"`
}

// duneStatusResponse represents the execution status API response
type duneStatusResponse struct {
	ExecutionID string `json:"execution_id"`
	State       string `json:"state"`
}

// duneResultsResponse represents the execution results API response
type duneResultsResponse struct {
	ExecutionID string       `json:"execution_id"`
	State       string       `json:"state"`
	Result      *duneResults `json:"result"`
}

type duneResults struct {
	Rows []Row `json:"rows"`
}

// Submit starts an execution of queryID with the given parameters.
// Failures are returned immediately as SubmissionError; submission is never retried.
func (c *DuneClient) Submit(ctx context.Context, queryID string, params map[string]interface{}) (string, error) {
	if params == nil {
		params = map[string]interface{}{}
	}

	body, err := json.Marshal(duneExecuteRequest{QueryParameters: params})
	if err != nil {
		return "", scanerrors.NewSubmissionError(queryID, err)
	}

	var resp duneExecuteResponse
	path := fmt.Sprintf("/query/%s/execute", url.PathEscape(queryID))
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", scanerrors.NewSubmissionError(queryID, err)
	}

	if resp.ExecutionID == "" {
		return "", scanerrors.NewSubmissionError(queryID,
			scanerrors.NewDecodeError(duneProvider, errors.New("execute response has no execution_id")))
	}

	return resp.ExecutionID, nil
}

// Status returns the current state of an execution.
// A response without a state is reported as StateUnknown.
func (c *DuneClient) Status(ctx context.Context, executionID string) (types.ExecutionState, error) {
	var resp duneStatusResponse
	path := fmt.Sprintf("/execution/%s/status", url.PathEscape(executionID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}

	if resp.State == "" {
		return types.StateUnknown, nil
	}
	return types.ExecutionState(resp.State), nil
}

// Results fetches the result rows of a completed execution
func (c *DuneClient) Results(ctx context.Context, executionID string) ([]Row, error) {
	var resp duneResultsResponse
	path := fmt.Sprintf("/execution/%s/results", url.PathEscape(executionID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, scanerrors.NewFetchError(executionID, err)
	}

	if resp.Result == nil {
		return nil, nil
	}
	return resp.Result.Rows, nil
}

// ExecuteAndWait submits queryID, polls until the execution reaches a terminal state
// and returns its rows.
//
// Polling stops immediately on failed or cancelled. Any other state, including ones
// this client does not recognize, counts as still running and is polled again after
// the poll interval. After maxRetries non-terminal polls it fails with QueryTimeout.
func (c *DuneClient) ExecuteAndWait(ctx context.Context, queryID string, params map[string]interface{}) ([]Row, error) {
	logger := logging.FromContext(ctx).WithField("query_id", queryID)

	executionID, err := c.Submit(ctx, queryID, params)
	if err != nil {
		return nil, err
	}
	logger = logger.WithField("execution_id", executionID)
	logger.Debug("Query execution submitted")

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		state, err := c.Status(ctx, executionID)
		if err != nil {
			return nil, fmt.Errorf("poll %d of execution %s: %w", attempt, executionID, err)
		}
		if c.onPoll != nil {
			c.onPoll(state)
		}

		switch state {
		case types.StateCompleted:
			logger.WithField("polls", attempt).Debug("Query execution completed")
			return c.Results(ctx, executionID)
		case types.StateFailed:
			return nil, scanerrors.NewQueryFailedError(executionID)
		case types.StateCancelled:
			return nil, scanerrors.NewQueryCancelledError(executionID)
		}

		logger.WithFields(map[string]interface{}{
			"state":   state,
			"attempt": attempt,
		}).Debug("Query execution still running")

		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return nil, err
		}
	}

	return nil, scanerrors.NewQueryTimeoutError(executionID, c.maxRetries)
}

// do sends an authenticated request and decodes the JSON response into out
func (c *DuneClient) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return scanerrors.NewTransportError(duneProvider, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Dune-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return scanerrors.NewTransportError(duneProvider, 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return scanerrors.NewTransportError(duneProvider, resp.StatusCode, fmt.Errorf("failed to read body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return scanerrors.NewTransportError(duneProvider, resp.StatusCode,
			fmt.Errorf("body=%s", truncate(string(respBody), 200)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return scanerrors.NewDecodeError(duneProvider, err)
	}

	return nil
}
