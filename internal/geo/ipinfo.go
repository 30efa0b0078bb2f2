package geo

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
	"golang.org/x/time/rate"

	"github.com/prototypedave/hybridTool/internal/model"
)

var (
	// ErrNoLocation is returned when ipinfo has no location for an address.
	ErrNoLocation = errors.New("no location for address")

	// ErrLookup is returned when the ipinfo API cannot be queried.
	ErrLookup = errors.New("ipinfo lookup failed")
)

// Locator resolves one public IP address.
type Locator interface {
	Locate(ctx context.Context, ip string) (model.Coordinates, error)
}

// IPInfoClient queries ipinfo.io, throttled by a token bucket.
type IPInfoClient struct {
	base    *url.URL
	token   string
	http    *retryablehttp.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures an IPInfoClient.
type Option func(*IPInfoClient)

// WithRate limits lookups to perSecond requests per second.
func WithRate(perSecond float64) Option {
	return func(c *IPInfoClient) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *IPInfoClient) {
		if logger == nil {
			return
		}
		c.logger = logger
		c.http.Logger = logger
	}
}

// WithRetry sets the retry budget for transient API errors.
func WithRetry(maxRetries int, minWait, maxWait time.Duration) Option {
	return func(c *IPInfoClient) {
		c.http.RetryMax = maxRetries
		c.http.RetryWaitMin = minWait
		c.http.RetryWaitMax = maxWait
	}
}

// NewIPInfoClient creates a client for the API at baseURL.
// token may be empty; anonymous lookups are rate limited by ipinfo.
func NewIPInfoClient(baseURL, token string, opts ...Option) (*IPInfoClient, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid ipinfo url %q", baseURL)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil

	c := &IPInfoClient{
		base:    base,
		token:   token,
		http:    rc,
		limiter: rate.NewLimiter(rate.Limit(2), 1),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type ipinfoResponse struct {
	IP    string `json:"ip"`
	Loc   string `json:"loc"`
	Bogon bool   `json:"bogon"`
}

// Locate returns the coordinates of ip.
func (c *IPInfoClient) Locate(ctx context.Context, ip string) (model.Coordinates, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: %w", ErrLookup, err)
	}

	u := c.base.JoinPath(ip, "json")
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: %s: %w", ErrLookup, ip, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return model.Coordinates{}, fmt.Errorf("%w: %s: status %d", ErrLookup, ip, resp.StatusCode)
	}

	var body ipinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: %s: %w", ErrLookup, ip, err)
	}
	if body.Bogon || body.Loc == "" {
		return model.Coordinates{}, fmt.Errorf("%w: %s", ErrNoLocation, ip)
	}

	coords, err := ParseLoc(body.Loc)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: %s: %w", ErrLookup, ip, err)
	}
	c.logger.Debug("located address", "ip", ip, "loc", body.Loc)
	return coords, nil
}

// ParseLoc parses ipinfo's "lat,lng" location string.
func ParseLoc(loc string) (model.Coordinates, error) {
	latStr, lngStr, ok := strings.Cut(loc, ",")
	if !ok {
		return model.Coordinates{}, fmt.Errorf("malformed location %q", loc)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("malformed latitude %q", latStr)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("malformed longitude %q", lngStr)
	}
	return model.Coordinates{Latitude: &lat, Longitude: &lng}, nil
}
