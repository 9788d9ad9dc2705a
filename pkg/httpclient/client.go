package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/trust-risk/pkg/resilience"
)

// Client is a small JSON-over-HTTP client used for vendor calls.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig *resilience.RetryConfig
	breaker     *resilience.CircuitBreaker
}

// Option configures a Client.
type Option func(*Client)

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a client for baseURL. The optional timeout defaults to 30s.
func NewClient(baseURL string, timeout ...time.Duration) *Client {
	t := 30 * time.Second
	if len(timeout) > 0 && timeout[0] > 0 {
		t = timeout[0]
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: t},
	}
}

// WithRetry enables retries using cfg.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Client) {
		c.retryConfig = &cfg
	}
}

// WithDefaultRetry enables retries for 5xx, 429 and transport errors.
func WithDefaultRetry() Option {
	return func(c *Client) {
		cfg := resilience.DefaultRetryConfig()
		cfg.RetryableChecker = isHTTPRetryable
		c.retryConfig = &cfg
	}
}

// WithBreaker routes every attempt through breaker.
func WithBreaker(breaker *resilience.CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = breaker
	}
}

// Apply applies opts to the client and returns it.
func (c *Client) Apply(opts ...Option) *Client {
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET request and returns the response body.
func (c *Client) Get(ctx context.Context, path string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil, headers)
}

// Post performs a POST request with body encoded as JSON.
func (c *Client) Post(ctx context.Context, path string, body interface{}, headers map[string]string) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}
	return c.do(ctx, http.MethodPost, path, payload, headers)
}

// PostWithIdempotency performs a POST with an Idempotency-Key header,
// generating one when key is empty.
func (c *Client) PostWithIdempotency(ctx context.Context, path string, body interface{}, headers map[string]string, key string) ([]byte, error) {
	if key == "" {
		key = uuid.New().String()
	}
	merged := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		merged[k] = v
	}
	merged["Idempotency-Key"] = key
	return c.Post(ctx, path, body, merged)
}

// GetJSON performs a GET and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, headers map[string]string, out interface{}) error {
	body, err := c.Get(ctx, path, headers)
	if err != nil {
		return err
	}
	return decode(body, out)
}

// PostJSON performs a POST and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, in interface{}, headers map[string]string, out interface{}) error {
	body, err := c.Post(ctx, path, in, headers)
	if err != nil {
		return err
	}
	return decode(body, out)
}

func decode(body []byte, out interface{}) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, headers map[string]string) ([]byte, error) {
	op := func(ctx context.Context) (interface{}, error) {
		return c.send(ctx, method, path, payload, headers)
	}

	var (
		result interface{}
		err    error
	)
	switch {
	case c.retryConfig != nil && c.breaker != nil:
		result, err = resilience.RetryWithBreaker(ctx, *c.retryConfig, c.breaker, op)
	case c.retryConfig != nil:
		result, err = resilience.Retry(ctx, *c.retryConfig, op)
	case c.breaker != nil:
		result, err = c.breaker.Execute(ctx, op)
	default:
		result, err = op(ctx)
	}
	if err != nil {
		return nil, err
	}
	body, _ := result.([]byte)
	return body, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// isHTTPRetryable retries 5xx, 429 and transport failures.
func isHTTPRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return resilience.IsRetryableHTTPStatus(httpErr.StatusCode)
	}
	return err != nil
}
