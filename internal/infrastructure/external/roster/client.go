package roster

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
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
	"github.com/campus-pulse/engagement-hub/pkg/circuitbreaker"
	"github.com/campus-pulse/engagement-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the roster API client.
type ClientConfig struct {
	// BaseURL is the roster API base URL
	BaseURL string

	// APIKey is the bearer token for authentication
	APIKey string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// RateLimiterConfig for API rate limiting
	RateLimiterConfig RateLimiterConfig

	// RetryConfig for retry behavior
	RetryConfig retry.Config

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		Timeout:           10 * time.Second,
		RateLimiterConfig: DefaultRateLimiterConfig(),
		RetryConfig:       retry.DefaultConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the campus roster API client. It implements
// attendance.Roster over HTTP with rate limiting, retries, and a
// circuit breaker.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	logger      *slog.Logger
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
	retrier     *retry.Retrier
}

// NewClient creates a new roster API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	logger := config.Logger
	breaker := circuitbreaker.RosterAPIBreaker(func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state change",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	})

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:      logger,
		rateLimiter: NewRateLimiter(config.RateLimiterConfig),
		breaker:     breaker,
		retrier:     retry.New(config.RetryConfig),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// KnowsStudent reports whether the student exists on the roster.
func (c *Client) KnowsStudent(ctx context.Context, studentID shared.StudentID) (bool, error) {
	path := "/api/v1/students/" + url.PathEscape(string(studentID))
	return c.exists(ctx, path)
}

// KnowsSubject reports whether the subject exists on the roster.
func (c *Client) KnowsSubject(ctx context.Context, subjectID shared.SubjectID) (bool, error) {
	path := "/api/v1/subjects/" + url.PathEscape(string(subjectID))
	return c.exists(ctx, path)
}

// exists probes a resource. 200 means it exists, 404 means it does not;
// anything else is a roster failure.
func (c *Client) exists(ctx context.Context, path string) (bool, error) {
	var found bool

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			if err := c.rateLimiter.Allow(ctx); err != nil {
				var rateLimitErr *RateLimitError
				if errors.As(err, &rateLimitErr) {
					return retry.Retryable(shared.ErrRosterAPIRateLimited)
				}
				return err
			}

			status, err := c.probe(ctx, path)
			if err != nil {
				return retry.Retryable(err)
			}

			switch {
			case status == http.StatusOK:
				found = true
				return nil
			case status == http.StatusNotFound:
				found = false
				return nil
			case status == http.StatusTooManyRequests:
				return retry.Retryable(shared.ErrRosterAPIRateLimited)
			case status >= 500:
				return retry.Retryable(shared.ErrRosterAPIUnavailable)
			default:
				return retry.Permanent(fmt.Errorf("%w: unexpected status %d", shared.ErrRosterAPIBadResponse, status))
			}
		})
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// probe performs a single GET and returns the status code.
func (c *Client) probe(ctx context.Context, path string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	if c.config.Debug {
		c.logger.Debug("roster api request", "path", path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := c.config.RateLimiterConfig.RetryAfter
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		c.rateLimiter.RecordRateLimitHit(retryAfter)
	}

	return resp.StatusCode, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks if the roster API is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return resp.StatusCode == http.StatusOK
	}
	return resp.StatusCode == http.StatusOK && body.Status != "down"
}

// HealthCheck returns an error when the roster API is unreachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsHealthy(ctx) {
		return shared.ErrRosterAPIUnavailable
	}
	return nil
}

// ClientStatus is a point-in-time view of the client's internals.
type ClientStatus struct {
	RateLimiter  RateLimiterStatus
	BreakerState string
}

// Status returns the current status of the client.
func (c *Client) Status() ClientStatus {
	return ClientStatus{
		RateLimiter:  c.rateLimiter.Status(),
		BreakerState: c.breaker.State().String(),
	}
}

// Reset resets the rate limiter and circuit breaker.
func (c *Client) Reset() {
	c.rateLimiter.Reset()
	c.breaker.Reset()
}
