package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// APIKeyHeader carries the ZAP API key.
const APIKeyHeader = "X-ZAP-API-Key" //nolint:gosec // header name, not a credential

// ErrZAP is returned when the ZAP API answers with an error.
var ErrZAP = errors.New("zap api error")

// ZAPAlert is an alert as returned by /JSON/core/view/alerts/.
type ZAPAlert struct {
	AlertRef    string            `json:"alertRef"`
	PluginID    string            `json:"pluginId"`
	Alert       string            `json:"alert"`
	Name        string            `json:"name"`
	Risk        string            `json:"risk"`
	Confidence  string            `json:"confidence"`
	Description string            `json:"description"`
	Evidence    string            `json:"evidence"`
	Solution    string            `json:"solution"`
	Reference   string            `json:"reference"`
	Attack      string            `json:"attack"`
	URL         string            `json:"url"`
	CWEID       string            `json:"cweid"`
	WASCID      string            `json:"wascid"`
	Tags        map[string]string `json:"tags"`
}

// Client talks to the ZAP JSON API.
type Client struct {
	base   *url.URL
	apiKey string
	http   *retryablehttp.Client
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetryMax sets how many times a transient API error is retried.
func WithRetryMax(n int) ClientOption {
	return func(c *Client) {
		c.http.RetryMax = n
	}
}

// WithRetryWait sets the bounds of the wait between retries.
func WithRetryWait(minWait, maxWait time.Duration) ClientOption {
	return func(c *Client) {
		c.http.RetryWaitMin = minWait
		c.http.RetryWaitMax = maxWait
	}
}

// WithClientLogger sets the logger, which also receives retry events.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger == nil {
			return
		}
		c.logger = logger
		c.http.Logger = logger
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http.HTTPClient = hc
	}
}

// NewClient creates a ZAP API client for the daemon at address.
func NewClient(address, apiKey string, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(address, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid zap address %q", address)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil

	c := &Client{
		base:   base,
		apiKey: apiKey,
		http:   rc,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// StartSpider starts a recursive spider scan and returns its id.
func (c *Client) StartSpider(ctx context.Context, target string) (string, error) {
	var out struct {
		Scan string `json:"scan"`
	}
	err := c.get(ctx, "/JSON/spider/action/scan/", url.Values{
		"url":     {target},
		"recurse": {"true"},
	}, &out)
	return out.Scan, err
}

// SpiderStatus returns the progress (0..100) of a spider scan.
func (c *Client) SpiderStatus(ctx context.Context, scanID string) (int, error) {
	return c.status(ctx, "/JSON/spider/view/status/", scanID)
}

// StartActiveScan starts a recursive active scan and returns its id.
func (c *Client) StartActiveScan(ctx context.Context, target string) (string, error) {
	var out struct {
		Scan string `json:"scan"`
	}
	err := c.get(ctx, "/JSON/ascan/action/scan/", url.Values{
		"url":     {target},
		"recurse": {"true"},
	}, &out)
	return out.Scan, err
}

// ActiveScanStatus returns the progress (0..100) of an active scan.
func (c *Client) ActiveScanStatus(ctx context.Context, scanID string) (int, error) {
	return c.status(ctx, "/JSON/ascan/view/status/", scanID)
}

// Alerts returns every alert raised for URLs under baseURL.
func (c *Client) Alerts(ctx context.Context, baseURL string) ([]ZAPAlert, error) {
	var out struct {
		Alerts []ZAPAlert `json:"alerts"`
	}
	if err := c.get(ctx, "/JSON/core/view/alerts/", url.Values{"baseurl": {baseURL}}, &out); err != nil {
		return nil, err
	}
	return out.Alerts, nil
}

func (c *Client) status(ctx context.Context, path, scanID string) (int, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, path, url.Values{"scanId": {scanID}}, &out); err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(out.Status)
	if err != nil {
		return 0, fmt.Errorf("%w: unexpected status %q", ErrZAP, out.Status)
	}
	return n, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build zap request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrZAP, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("%w: failed to read %s response: %w", ErrZAP, path, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
			return fmt.Errorf("%w: %s: %s (%s)", ErrZAP, path, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("%w: %s: unexpected status %d", ErrZAP, path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: invalid %s response: %w", ErrZAP, path, err)
	}
	c.logger.Debug("zap api call", "path", path)
	return nil
}
