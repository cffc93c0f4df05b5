// Package geoip performs the best-effort geolocation lookup of a visitor
// address against an ipapi.co compatible service.
//
// A lookup never fails from the caller's point of view: every problem
// (timeout, HTTP error, open breaker, spent budget) yields an Unavailable
// Result carrying the reason.
package geoip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	customerrors "github.com/axellelanca/visittracker/internal/errors"
	"github.com/axellelanca/visittracker/internal/models"
)

const (
	defaultBaseURL = "https://ipapi.co"
	maxBodyBytes   = 64 << 10
	userAgent      = "visittracker/1.0"
)

// Status tells whether a lookup produced data.
type Status int

const (
	Unavailable Status = iota
	Available
)

// Result is the outcome of one lookup. Country, City and Org are only
// meaningful when Status is Available; Reason is only set when it is not.
type Result struct {
	Status  Status
	Country string
	City    string
	Org     string
	Reason  error
}

// OK reports whether the lookup produced data.
func (r Result) OK() bool {
	return r.Status == Available
}

// Outcome returns a short label for metrics.
func (r Result) Outcome() string {
	switch {
	case r.OK():
		return "success"
	case errors.Is(r.Reason, customerrors.ErrLookupSkipped):
		return "skipped"
	case errors.Is(r.Reason, customerrors.ErrLookupRateLimited):
		return "rate_limited"
	case errors.Is(r.Reason, gobreaker.ErrOpenState), errors.Is(r.Reason, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	default:
		return "failure"
	}
}

// Unknown returns an Unavailable result for reason.
func Unknown(reason error) Result {
	return Result{Status: Unavailable, Reason: reason}
}

// Config holds the client settings.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int // 0 disables the outbound limiter
	BreakerFailures   int
	BreakerOpen       time.Duration
}

// apiResponse is the subset of the ipapi.co JSON document we read.
type apiResponse struct {
	CountryName string `json:"country_name"`
	City        string `json:"city"`
	Region      string `json:"region"`
	Org         string `json:"org"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

// Client queries the lookup service behind a circuit breaker and an
// outbound rate limiter.
type Client struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[*apiResponse]
}

// NewClient creates a lookup client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}

	c := &Client{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		cb:      newBreaker("geoip", cfg.BreakerFailures, cfg.BreakerOpen),
	}
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.RequestsPerMinute / 6
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), burst)
	}
	return c
}

// BaseURL returns the lookup service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Lookup resolves ip. It never blocks longer than the configured timeout
// and never waits for limiter tokens.
func (c *Client) Lookup(ctx context.Context, ip string) Result {
	if ip == "" {
		return Unknown(customerrors.ErrLookupSkipped)
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return Unknown(customerrors.ErrLookupRateLimited)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.cb.Execute(func() (*apiResponse, error) {
		return c.fetch(ctx, ip)
	})
	recordBreakerResult(c.cb.Name(), err)
	if err != nil {
		return Unknown(err)
	}

	if resp.Error {
		reason := resp.Reason
		if reason == "" {
			reason = "service reported an error"
		}
		return Unknown(customerrors.LookupError{IP: ip, Reason: reason})
	}

	return fromResponse(resp)
}

func (c *Client) fetch(ctx context.Context, ip string) (*apiResponse, error) {
	endpoint := fmt.Sprintf("%s/%s/json/", c.baseURL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, customerrors.LookupError{IP: ip, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, customerrors.LookupError{IP: ip, Reason: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var out apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return nil, customerrors.LookupError{IP: ip, Reason: "failed to decode response: " + err.Error()}
	}
	return &out, nil
}

func fromResponse(resp *apiResponse) Result {
	res := Result{
		Status:  Available,
		Country: orUnknown(resp.CountryName),
		City:    models.Unknown,
		Org:     orUnknown(resp.Org),
	}
	if resp.City != "" || resp.Region != "" {
		res.City = strings.TrimSpace(resp.City + ", " + resp.Region)
	}
	return res
}

func orUnknown(s string) string {
	if s == "" {
		return models.Unknown
	}
	return s
}
