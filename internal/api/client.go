// Package api is the HTTP client for the marketplace messaging endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultTimeout = 15 * time.Second

// maxBody caps how much of a response is read.
const maxBody = 4 << 20

// Client talks to the marketplace API on behalf of one signed-in user.
type Client struct {
	baseURL        string
	token          string
	httpClient     *http.Client
	logger         *zap.Logger
	idempotencyKey func() string
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithIdempotencyKeys replaces the uuid generator used for write requests.
func WithIdempotencyKeys(gen func() string) Option {
	return func(c *Client) { c.idempotencyKey = gen }
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{Timeout: DefaultTimeout},
		logger:         zap.NewNop(),
		idempotencyKey: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.token = token
}

type response struct {
	status int
	body   []byte
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, query url.Values) (*response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Idempotency-Key", c.idempotencyKey())
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &response{status: resp.StatusCode, body: data}, nil
}

// call performs one request and unwraps the Result envelope.
func call[T any](ctx context.Context, c *Client, op, method, path string, body any, query url.Values) (T, error) {
	var zero T

	resp, err := c.doRequest(ctx, method, path, body, query)
	if err != nil {
		return zero, &Error{Op: op, Message: err.Error(), Err: err}
	}

	var res Result[T]
	decodeErr := json.Unmarshal(resp.body, &res)

	if resp.status < 200 || resp.status > 299 {
		msg := http.StatusText(resp.status)
		if decodeErr == nil && res.errorMessage() != "" {
			msg = res.errorMessage()
		}
		return zero, &Error{Op: op, StatusCode: resp.status, Message: msg}
	}
	if decodeErr != nil {
		return zero, &Error{Op: op, Message: "decode response: " + decodeErr.Error(), Err: decodeErr}
	}
	if !res.Success {
		msg := res.errorMessage()
		if msg == "" {
			msg = "request was not successful"
		}
		return zero, &Error{Op: op, Message: msg}
	}
	return res.Data, nil
}

// IsStatus reports whether err is an API error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
