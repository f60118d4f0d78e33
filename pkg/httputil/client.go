package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/jkwon/meridian/pkg/logger"
)

// Client is an HTTP client wrapper with request pacing, bounded retry and
// logging. All outbound provider traffic goes through this client so that
// external services see serialized, rate-limited requests.
type Client struct {
	httpClient  *http.Client
	logger      *logger.Logger
	limiter     *rate.Limiter
	retryConfig RetryConfig
}

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Enabled      bool
}

// New creates a new HTTP client paced at requestsPerSec.
func New(log *logger.Logger, requestsPerSec float64, timeout time.Duration) *Client {
	if requestsPerSec <= 0 {
		requestsPerSec = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		retryConfig: RetryConfig{
			MaxRetries:   3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     10 * time.Second,
			Enabled:      true,
		},
	}
}

// WithRetry configures retry behavior.
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retryConfig.MaxRetries = maxRetries
	c.retryConfig.InitialDelay = initialDelay
	c.retryConfig.Enabled = true
	return c
}

// DisableRetry disables automatic retry.
func (c *Client) DisableRetry() *Client {
	c.retryConfig.Enabled = false
	return c
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}

	return c.do(req)
}

// PostJSON performs a POST request with JSON body.
func (c *Client) PostJSON(ctx context.Context, url string, data interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create POST request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// GetJSON performs a GET request and decodes the JSON response into dest.
func (c *Client) GetJSON(ctx context.Context, url string, dest interface{}) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// do executes the request with pacing and retry.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	startTime := time.Now()

	c.logger.WithFields(map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	}).Debug("HTTP request started")

	var resp *http.Response
	var err error
	if c.retryConfig.Enabled {
		resp, err = c.doWithRetry(req)
	} else {
		resp, err = c.httpClient.Do(req)
	}

	duration := time.Since(startTime)

	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"method":      req.Method,
			"url":         req.URL.String(),
			"duration_ms": duration.Milliseconds(),
			"error":       err.Error(),
		}).Warn("HTTP request failed")
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"method":      req.Method,
		"url":         req.URL.String(),
		"status":      resp.StatusCode,
		"duration_ms": duration.Milliseconds(),
	}).Debug("HTTP request completed")

	return resp, nil
}

// doWithRetry retries transient failures with exponential backoff. Only GET
// requests and 5xx/429 responses are retried.
func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	delay := c.retryConfig.InitialDelay

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(delay):
			}

			delay *= 2
			if delay > c.retryConfig.MaxDelay {
				delay = c.retryConfig.MaxDelay
			}

			c.logger.WithFields(map[string]interface{}{
				"url":     req.URL.String(),
				"attempt": attempt,
			}).Debug("Retrying HTTP request")
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if req.Method != http.MethodGet {
				return nil, err
			}
			continue
		}

		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		resp.Body.Close()
		if req.Method != http.MethodGet {
			return resp, nil
		}
	}

	if err != nil {
		return nil, fmt.Errorf("request failed after %d retries: %w", c.retryConfig.MaxRetries, err)
	}
	return resp, nil
}
