package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/vaultsandbox/outbound-go/internal/apierrors"
	"github.com/vaultsandbox/outbound-go/internal/log"
)

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// DefaultRetryOn lists the status codes retried by Do.
var DefaultRetryOn = []int{408, 429, 500, 502, 503, 504}

// Config holds the struct-based client configuration.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	RetryOn    []int
}

// Client is the HTTP client of the mail API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	retryOn    map[int]bool
}

// NewClient creates a client from an explicit configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, apierrors.ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		return nil, apierrors.ErrMissingBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = DefaultRetryDelay
	}
	retryOn := cfg.RetryOn
	if len(retryOn) == 0 {
		retryOn = DefaultRetryOn
	}

	c := &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		retryOn:    make(map[int]bool, len(retryOn)),
	}
	for _, code := range retryOn {
		c.retryOn[code] = true
	}
	return c, nil
}

// Option configures the API client.
type Option func(*Config)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithRetries sets the number of retries of idempotent requests. Zero
// disables retries.
func WithRetries(retries int) Option {
	return func(c *Config) {
		if retries == 0 {
			retries = -1
		}
		c.MaxRetries = retries
	}
}

// WithRetryDelay sets the base delay between retries.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Config) {
		c.RetryDelay = d
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// New creates a client using functional options.
func New(apiKey string, opts ...Option) (*Client, error) {
	cfg := Config{APIKey: apiKey}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewClient(cfg)
}

func (c *Client) isRetryable(statusCode int) bool {
	return c.retryOn[statusCode]
}

func (c *Client) retryConfig() *RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxRetries = c.maxRetries
	cfg.BaseDelay = c.retryDelay
	cfg.RetryableOn = c.isRetryable
	return cfg
}

// Do performs an idempotent request, retrying network failures and
// retryable status codes.
func (c *Client) Do(ctx context.Context, method, path string, body, result interface{}) error {
	return c.do(ctx, method, path, body, result, c.retryConfig())
}

// DoOnce performs a request exactly once. It is used for requests whose
// payload must never be resubmitted.
func (c *Client) DoOnce(ctx context.Context, method, path string, body, result interface{}) error {
	cfg := c.retryConfig()
	cfg.MaxRetries = 0
	return c.do(ctx, method, path, body, result, cfg)
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}, retry *RetryConfig) error {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	b := retry.NewBackOff()
	for attempt := 0; ; attempt++ {
		resp, err := c.send(ctx, method, path, data)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			next := b.NextBackOff()
			if next == backoff.Stop {
				return &apierrors.NetworkError{Err: err}
			}
			log.Debug(ctx).Err(err).Int("retry", attempt+1).Str("path", path).Msg("retrying request")
			if werr := Wait(ctx, next); werr != nil {
				return werr
			}
			continue
		}

		if retry.ShouldRetry(attempt, resp.StatusCode) {
			next := b.NextBackOff()
			if next != backoff.Stop {
				drain(resp)
				log.Debug(ctx).Int("status", resp.StatusCode).Int("retry", attempt+1).Str("path", path).Msg("retrying request")
				if werr := Wait(ctx, next); werr != nil {
					return werr
				}
				continue
			}
		}

		return handleResponse(resp, result)
	}
}

func (c *Client) send(ctx context.Context, method, path string, data []byte) (*http.Response, error) {
	var bodyReader io.Reader
	if data != nil {
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

func handleResponse(resp *http.Response, result interface{}) error {
	defer drain(resp)

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error     string `json:"Error"`
		Code      int    `json:"Code"`
		RequestID string `json:"RequestID"`
	}

	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &apierrors.APIError{
			StatusCode: resp.StatusCode,
			Message:    errResp.Error,
			RequestID:  errResp.RequestID,
		}
	}

	return &apierrors.APIError{
		StatusCode: resp.StatusCode,
		Message:    string(bytes.TrimSpace(body)),
	}
}
