// Package client talks to the analysis API from Go programs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/seo-optimizer/insights/analyzer"
	"github.com/seo-optimizer/insights/remediation"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Message)
}

// Client calls the analysis API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a Client for the API rooted at baseURL (e.g.
// "http://localhost:8082"). The HTTP client has no overall timeout; callers
// bound requests with their context.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Analyze requests an analysis of website and waits for it.
func (c *Client) Analyze(ctx context.Context, website string) (*analyzer.AnalysisResult, error) {
	var out struct {
		Result *analyzer.AnalysisResult `json:"result"`
	}
	if err := c.post(ctx, "/api/analyze", map[string]string{"website": website}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	if out.Result == nil {
		return nil, errors.New("api response has no result")
	}
	return out.Result, nil
}

// Status polls the state of an analysis. not_found and expired are
// returned as reports, not errors.
func (c *Client) Status(ctx context.Context, website string) (analyzer.StatusReport, error) {
	var report analyzer.StatusReport
	err := c.post(ctx, "/api/analyze/status", map[string]string{"url": website}, &report, http.StatusOK, http.StatusNotFound)
	return report, err
}

// Solution asks the default remediation provider about an issue.
func (c *Client) Solution(ctx context.Context, req remediation.Request) (remediation.Result, error) {
	var out struct {
		Content string `json:"content"`
		Success bool   `json:"success"`
	}
	if err := c.post(ctx, "/api/ai-solution", req, &out, http.StatusOK); err != nil {
		return remediation.Result{}, err
	}
	return remediation.Result{Success: out.Success, Text: out.Content}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any, accept ...int) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	for _, code := range accept {
		if resp.StatusCode == code {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		}
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var errBody struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &errBody) == nil {
		apiErr.Message = errBody.Error
	}
	return apiErr
}

// Waiter combines a blocking analysis request with status polling.
type Waiter struct {
	client         *Client
	poller         *Poller
	requestTimeout time.Duration
}

// NewWaiter returns a Waiter that gives the analyze request requestTimeout
// before falling back to polling.
func NewWaiter(c *Client, p *Poller, requestTimeout time.Duration) *Waiter {
	return &Waiter{client: c, poller: p, requestTimeout: requestTimeout}
}

// Analyze returns the analysis of website. If the analyze request does not
// answer within the request timeout, the status endpoint is polled; the
// server keeps working after the client stops waiting.
func (w *Waiter) Analyze(ctx context.Context, website string) (Outcome, error) {
	reqCtx, cancel := context.WithTimeout(ctx, w.requestTimeout)
	result, err := w.client.Analyze(reqCtx, website)
	cancel()

	if err == nil {
		return Outcome{State: StateComplete, Result: result}, nil
	}
	if ctx.Err() != nil {
		return Outcome{}, ctx.Err()
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		return Outcome{State: StateFailed}, err
	}
	return w.poller.Wait(ctx, website, nil)
}
