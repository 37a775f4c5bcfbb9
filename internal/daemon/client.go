package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/protocol"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed reads
	DefaultMaxRetries = 2

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 200 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 2 * time.Second
)

// Client talks to a daemon over its HTTP API.
//
// Reads are retried with backoff on retryable errors. Writes are sent once:
// a failed write is reported to the caller and never replayed.
type Client struct {
	// BaseURL is the base URL of the daemon (e.g., "http://127.0.0.1:7878")
	BaseURL string

	// Username and Password enable HTTP Basic Auth when Username is set
	Username string
	Password string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed reads
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool
}

// NewClient creates a client for the daemon at host:port.
func NewClient(host string, port int) *Client {
	return NewClientWithURL(fmt.Sprintf("http://%s:%d", host, port))
}

// NewClientWithURL creates a client with a full base URL.
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:               baseURL,
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetAuth sets HTTP Basic Auth credentials. An empty username disables auth.
func (c *Client) SetAuth(username, password string) {
	c.Username = username
	c.Password = password
}

// SetRetry configures retry behavior for reads
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Ping checks that the daemon is reachable and healthy.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, protocol.PathHealth, nil, nil)
}

// Boards lists the daemon's boards.
func (c *Client) Boards(ctx context.Context) ([]Board, error) {
	var body protocol.BoardsBody
	err := c.withRetry(ctx, func() error {
		return c.do(ctx, http.MethodGet, protocol.PathBoards, nil, &body)
	})
	if err != nil {
		return nil, err
	}
	return body.Boards, nil
}

// Color reads the color of board.
func (c *Client) Color(ctx context.Context, board int) (color.RGB, error) {
	var body protocol.ColorBody
	err := c.withRetry(ctx, func() error {
		return c.do(ctx, http.MethodGet, protocol.ColorPath(board), nil, &body)
	})
	if err != nil {
		return color.RGB{}, withBoard(err, board)
	}
	return body.Color, nil
}

// SetColor writes the color of board. It is never retried.
func (c *Client) SetColor(ctx context.Context, board int, rgb color.RGB) error {
	err := c.do(ctx, http.MethodPut, protocol.ColorPath(board), &protocol.ColorBody{Board: board, Color: rgb}, nil)
	return withBoard(err, board)
}

// withRetry runs attempt until it succeeds, fails with a non-retryable
// error, runs out of retries or ctx is done.
func (c *Client) withRetry(ctx context.Context, attempt func() error) error {
	var lastErr error
	currentDelay := c.RetryDelay

	for i := 0; i <= c.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		err := attempt()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
	}

	return lastErr
}

// do performs one request. in, when non-nil, is sent as JSON; out, when
// non-nil, receives the decoded JSON reply.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return NewProtocolError("failed to encode request", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return NewNetworkError(fmt.Sprintf("failed to create %s request", method), err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		devErr := NewNetworkError(fmt.Sprintf("%s %s failed", method, path), err)
		devErr.Address = req.URL.Host
		return devErr
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, protocol.MaxMessageSize))
	if err != nil {
		return NewNetworkError("failed to read response body", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return NewAuthError("authentication failed (check credentials)")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return NewProtocolError("failed to parse JSON response", err)
	}
	return nil
}

// statusError maps a non-2xx reply to a DeviceError, using the daemon's
// error code when the body carries one.
func statusError(status int, body []byte) error {
	var errBody protocol.ErrorBody
	if json.Unmarshal(body, &errBody) == nil && errBody.Error != "" {
		if errBody.Code == protocol.CodeUnknownBoard || errBody.Code == protocol.CodeBadRequest {
			devErr := remoteError(0, errBody.Code, errBody.Error)
			devErr.StatusCode = status
			return devErr
		}
		return NewHTTPError(status, fmt.Sprintf("status %d: %s", status, errBody.Error))
	}
	return NewHTTPError(status, fmt.Sprintf("unexpected status code: %d", status))
}

// withBoard records board on unknown-board errors.
func withBoard(err error, board int) error {
	if devErr, ok := asDeviceError(err); ok && devErr.Type == ErrTypeBoard {
		devErr.Board = board
	}
	return err
}
