// Package api is the HTTP client for the StudentTracker REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studenttracker/client/internal/session"
)

const (
	// DefaultBaseURL is the API root of a locally running backend
	DefaultBaseURL = "http://localhost:5000/api"

	// DefaultTimeout bounds a single HTTP round trip
	DefaultTimeout = 30 * time.Second
)

// RequestEvent describes one finished round trip, for request hooks
type RequestEvent struct {
	Method    string
	Endpoint  string
	RequestID string
	Status    int // 0 when the request never got a response
	Duration  time.Duration
	Err       error
}

// Client is a StudentTracker API client bound to one session
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Session
	logger     *slog.Logger
	hook       func(RequestEvent)
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger used for request logging
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRequestHook registers fn to be called after every round trip
func WithRequestHook(fn func(RequestEvent)) Option {
	return func(c *Client) {
		c.hook = fn
	}
}

// NewClient creates a client for the API rooted at baseURL (e.g. http://host:5000/api)
func NewClient(baseURL string, sess *session.Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		session: sess,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session this client authenticates with
func (c *Client) Session() *session.Session {
	return c.session
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request performs one authenticated call and returns the decoded envelope.
//
// A 401 clears the session and returns an error matching ErrSessionExpired.
// A transport failure or an undecodable body returns an error matching ErrNetwork.
// Any other status returns the envelope as-is; callers check Success (or Err).
func (c *Client) Request(ctx context.Context, method, endpoint string, body any) (*Envelope, error) {
	return c.do(ctx, method, endpoint, body, c.session.AccessToken())
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, token string) (*Envelope, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	ev := RequestEvent{Method: method, Endpoint: endpoint, RequestID: requestID}
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		ev.Duration = time.Since(start)
		ev.Err = err
		c.emit(ev)
		c.logger.Error("request failed", "method", method, "endpoint", endpoint, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	ev.Status = resp.StatusCode
	respBody, err := io.ReadAll(resp.Body)
	ev.Duration = time.Since(start)
	if err != nil {
		ev.Err = err
		c.emit(ev)
		c.logger.Error("read response failed", "method", method, "endpoint", endpoint, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%w: read response: %w", ErrNetwork, err)
	}

	c.logger.Debug("request",
		"method", method,
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration_ms", ev.Duration.Milliseconds(),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		// Session goes first, before anything else can observe it
		if err := c.session.ClearAuth(); err != nil {
			c.logger.Error("clear session after 401", "error", err)
		}
		uerr := &UnauthorizedError{}
		var env Envelope
		if json.Unmarshal(respBody, &env) == nil {
			uerr.Message = env.Message
		}
		ev.Err = uerr
		c.emit(ev)
		c.logger.Warn("session expired", "endpoint", endpoint, "request_id", requestID)
		return nil, uerr
	}

	var env Envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		ev.Err = err
		c.emit(ev)
		c.logger.Error("decode response failed", "endpoint", endpoint, "status", resp.StatusCode, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%w: decode response (HTTP %d): %w", ErrNetwork, resp.StatusCode, err)
	}
	if env.StatusCode == 0 {
		env.StatusCode = resp.StatusCode
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("api error", "endpoint", endpoint, "status", resp.StatusCode, "message", env.Message, "request_id", requestID)
	}
	c.emit(ev)
	return &env, nil
}

// call runs Request, turns an unsuccessful envelope into *Error and decodes data into out
func (c *Client) call(ctx context.Context, method, endpoint string, body, out any) (*Envelope, error) {
	env, err := c.Request(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if err := env.Err(); err != nil {
		return env, err
	}
	if out != nil {
		if err := env.Decode(out); err != nil {
			return env, fmt.Errorf("%s %s: %w", method, endpoint, err)
		}
	}
	return env, nil
}

func (c *Client) emit(ev RequestEvent) {
	if c.hook != nil {
		c.hook(ev)
	}
}

// IsSessionExpired is shorthand for errors.Is(err, ErrSessionExpired)
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}
