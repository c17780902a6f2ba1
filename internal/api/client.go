// Package api is the client for the billing backend's REST surface.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"billdesk/internal/log"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrNotAuthenticated is returned before any network I/O when no usable
	// session token is stored, and wrapped by 401 responses.
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = fmt.Errorf("%w: session expired", ErrNotAuthenticated)
	ErrNotFound         = errors.New("not found")
)

// TokenStore persists the session token between runs.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Error is a failed backend call. Message is the server's own explanation,
// when the error body carried one.
type Error struct {
	Op       string
	Status   int
	Message  string
	Fallback string
	Err      error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.UserMessage())
}

// UserMessage is the single string shown to users for this failure.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Fallback
}

func (e *Error) Unwrap() error {
	switch {
	case e.Err != nil:
		return e.Err
	case e.Status == http.StatusUnauthorized:
		return ErrNotAuthenticated
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Tokens     TokenStore
	HTTPClient *http.Client
	Logger     *log.Logger
	// Now is used for token expiry checks; defaults to time.Now.
	Now func() time.Time
}

// Client calls the backend. It is safe for concurrent use.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenStore
	logger *log.Logger
	now    func() time.Time
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", opts.BaseURL)
	}
	if opts.Tokens == nil {
		return nil, errors.New("token store is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = newHTTPClientWithPooling(opts.Timeout)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default(log.ComponentAPI)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{base: base, http: hc, tokens: opts.Tokens, logger: logger, now: now}, nil
}

// newHTTPClientWithPooling creates an HTTP client with connection pooling,
// proper timeouts, and keep-alive settings
func newHTTPClientWithPooling(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// call describes one backend request.
type call struct {
	op       string
	method   string
	path     string
	query    url.Values
	body     any
	fallback string
	// public calls skip the session token.
	public bool
	accept string
}

// bearer returns the stored token, refusing missing or expired ones. Opaque
// (non-JWT) tokens are passed through unchecked.
func (c *Client) bearer(ctx context.Context) (string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("read session token: %w", err)
	}
	if token == "" {
		return "", ErrNotAuthenticated
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return token, nil
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err == nil && exp != nil && !exp.After(c.now()) {
		return "", ErrSessionExpired
	}
	return token, nil
}

// Authenticated reports whether a usable session token is stored.
func (c *Client) Authenticated(ctx context.Context) bool {
	_, err := c.bearer(ctx)
	return err == nil
}

func (c *Client) do(ctx context.Context, cl call, out any) error {
	raw, err := c.raw(ctx, cl)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: cl.op, Fallback: cl.fallback, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) raw(ctx context.Context, cl call) ([]byte, error) {
	var token string
	if !cl.public {
		t, err := c.bearer(ctx)
		if err != nil {
			return nil, err
		}
		token = t
	}

	// cl.path is already escaped segment by segment.
	target := c.base.String() + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", cl.op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", cl.op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if cl.accept != "" {
		req.Header.Set("Accept", cl.accept)
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Backend request failed",
			log.FieldOperation, cl.op,
			log.FieldRequestID, requestID,
			log.FieldError, err.Error())
		return nil, &Error{Op: cl.op, Fallback: cl.fallback, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: cl.op, Status: resp.StatusCode, Fallback: cl.fallback, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.DebugContext(ctx, "Backend request completed",
		log.FieldOperation, cl.op,
		log.FieldRequestID, requestID,
		log.FieldMethod, cl.method,
		log.FieldPath, cl.path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Op:       cl.op,
			Status:   resp.StatusCode,
			Message:  errorMessage(payload),
			Fallback: cl.fallback,
		}
	}
	return payload, nil
}

// errorMessage pulls the conventional "message" field out of an error body.
func errorMessage(payload []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Message)
}
