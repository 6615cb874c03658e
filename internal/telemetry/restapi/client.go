// Package restapi is the HTTP transport shared by the telemetry service
// clients: bearer authentication, JSON bodies, error decoding and retries
// for throttled or failed requests.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joacominatel/telequery/internal/auth"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 3
	baseDelay         = 1 * time.Second
	userAgent         = "telequery"
)

// Client performs authenticated JSON requests against one service endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     auth.TokenProvider
	maxRetries int
	baseDelay  time.Duration
	headers    http.Header
}

// New creates a client for baseURL. tokens may be nil for unauthenticated
// endpoints such as local test servers.
func New(baseURL string, tokens auth.TokenProvider) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		maxRetries: defaultMaxRetries,
		baseDelay:  baseDelay,
		headers:    http.Header{},
	}
}

// WithHTTPClient sets a custom HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithMaxRetries sets the number of retries for throttled or failed requests.
func (c *Client) WithMaxRetries(n int) *Client {
	c.maxRetries = n
	return c
}

// WithBaseDelay sets the first backoff delay; later delays double.
func (c *Client) WithBaseDelay(d time.Duration) *Client {
	c.baseDelay = d
	return c
}

// WithHeader adds a header sent with every request.
func (c *Client) WithHeader(key, value string) *Client {
	c.headers.Set(key, value)
	return c
}

// BaseURL returns the endpoint the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post performs a POST request with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Do performs a request, retrying on 429 and 5xx responses.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	reqURL := c.baseURL + path

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay(attempt, lastErr)
			slog.Debug("retrying request",
				"method", method,
				"path", path,
				"attempt", attempt,
				"status", statusCode(lastErr),
				"delay", delay.String())

			select {
			case <-ctx.Done():
				return wrapContext(method, reqURL, ctx.Err())
			case <-time.After(delay):
			}
		}

		err := c.doOnce(ctx, method, reqURL, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && isRetryable(apiErr.StatusCode) {
			continue
		}
		return wrapContext(method, reqURL, err)
	}

	return wrapContext(method, reqURL, lastErr)
}

func (c *Client) doOnce(ctx context.Context, method, reqURL string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("get token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("x-ms-client-request-id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
		apiErr.Code = errResp.Error.Code
		apiErr.Message = errResp.Error.Innermost()
	}
	return apiErr
}

func (c *Client) retryDelay(attempt int, lastErr error) time.Duration {
	var apiErr *APIError
	if errors.As(lastErr, &apiErr) && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}

	delay := c.baseDelay * time.Duration(1<<(attempt-1))
	if quarter := int64(delay / 4); quarter > 0 {
		delay += time.Duration(rand.Int63n(quarter))
	}
	return delay
}
