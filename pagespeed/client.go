package pagespeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	psi "google.golang.org/api/pagespeedonline/v5"

	"github.com/seo-optimizer/insights/errs"
)

const failedMessage = "Failed to analyze website"

var errNoLighthouseResult = errors.New("response has no lighthouseResult")

// Request enum values for the categories in AllCategories.
var requestCategories = []string{"PERFORMANCE", "ACCESSIBILITY", "BEST_PRACTICES", "SEO"}

// Client calls the PageSpeed Insights runPagespeed endpoint.
type Client struct {
	service  *psi.Service
	apiKey   string
	strategy string
	logger   *slog.Logger
}

// NewClient returns a Client. An empty endpoint uses the public API and an
// empty apiKey is allowed; requests will then fail at call time with the
// provider's error. Later opts override the defaults.
//
// No overall request timeout is applied: PageSpeed runs routinely take close
// to a minute and callers control cancellation through the context.
func NewClient(ctx context.Context, endpoint, apiKey, strategy string, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	base := []option.ClientOption{option.WithHTTPClient(defaultHTTPClient())}
	if endpoint != "" {
		base = append(base, option.WithEndpoint(endpoint))
	}

	service, err := psi.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create pagespeed service: %w", err)
	}
	return &Client{
		service:  service,
		apiKey:   apiKey,
		strategy: strings.ToUpper(strategy),
		logger:   logger,
	}, nil
}

func defaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// Run requests a fresh Lighthouse run for targetURL across all categories.
func (c *Client) Run(ctx context.Context, targetURL string) (*LighthouseResult, error) {
	call := c.service.Pagespeedapi.Runpagespeed(targetURL).
		Category(requestCategories...).
		Strategy(c.strategy).
		Context(ctx)

	var callOpts []googleapi.CallOption
	if c.apiKey != "" {
		callOpts = append(callOpts, googleapi.QueryParameter("key", c.apiKey))
	}

	start := time.Now()
	resp, err := call.Do(callOpts...)
	if err != nil {
		return nil, c.upstreamError(targetURL, err)
	}

	c.logger.Debug("pagespeed response",
		"url", targetURL,
		"status", resp.HTTPStatusCode,
		"duration", time.Since(start).String(),
	)

	if resp.LighthouseResult == nil {
		return nil, &errs.AppError{
			Kind:    errs.UpstreamFailure,
			Message: failedMessage,
			Cause:   errNoLighthouseResult,
		}
	}

	lr, err := convert(resp.LighthouseResult)
	if err != nil {
		return nil, &errs.AppError{Kind: errs.UpstreamFailure, Message: failedMessage, Cause: err}
	}
	return lr, nil
}

func (c *Client) upstreamError(targetURL string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &errs.AppError{Kind: errs.Timeout, Message: "Analysis timed out. Please try again.", Cause: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		c.logger.Debug("pagespeed error response", "url", targetURL, "status", apiErr.Code, "message", apiErr.Message)
		return &errs.AppError{
			Kind:           errs.UpstreamFailure,
			UpstreamStatus: apiErr.Code,
			Message:        failedMessage,
			Cause:          fmt.Errorf("pagespeed returned %d: %s", apiErr.Code, apiErr.Message),
		}
	}
	return &errs.AppError{Kind: errs.UpstreamFailure, Message: failedMessage, Cause: err}
}

// convert re-reads the generated API type through its JSON form, which keeps
// nullable scores and mixed-type warnings intact.
func convert(in *psi.LighthouseResultV5) (*LighthouseResult, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode lighthouse result: %w", err)
	}
	var out LighthouseResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode lighthouse result: %w", err)
	}
	return &out, nil
}
