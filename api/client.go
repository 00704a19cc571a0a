package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	contentTypeJSON = "application/json"
	requestIDHeader = "X-Request-ID"
)

// TokenSource is the read side of the session's token store.
type TokenSource interface {
	AccessToken() (string, error)
}

// Client issues JSON requests against the backend, attaching the held
// access token. It never retries and never refreshes tokens on its own.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     zerolog.Logger
	newID      func() string
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRequestIDFunc replaces the X-Request-ID generator (primarily for testing).
func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) {
		c.newID = fn
	}
}

func New(baseURL string, tokens TokenSource, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[api.New] baseURL is required")
	}
	if tokens == nil {
		return nil, errors.New("[api.New] token source is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: http.DefaultClient,
		logger:     log.Logger,
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type requestConfig struct {
	anonymous bool
}

// RequestOption tweaks a single call.
type RequestOption func(*requestConfig)

// WithoutAuth sends the request without an Authorization header even when
// a token is held.
func WithoutAuth() RequestOption {
	return func(rc *requestConfig) {
		rc.anonymous = true
	}
}

// Request sends method path with body encoded as JSON (when not nil) and
// decodes a 2xx JSON response into out (when not nil). Non-2xx responses
// fail with *HTTPError and transport failures with *NetworkError.
func (c *Client) Request(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	var rc requestConfig
	for _, opt := range opts {
		opt(&rc)
	}
	if !strings.HasPrefix(path, "/") {
		return errors.Errorf("[Client.Request] path %q must start with /", path)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "[Client.Request] encode %s %s", method, path)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrapf(err, "[Client.Request] build %s %s", method, path)
	}
	requestID := c.newID()
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set(requestIDHeader, requestID)

	if !rc.anonymous {
		access, err := c.tokens.AccessToken()
		if err != nil {
			return errors.Wrap(err, "[Client.Request] read access token")
		}
		if access != "" {
			(&oauth2.Token{AccessToken: access, TokenType: "Bearer"}).SetAuthHeader(req)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("request failed")
		return &NetworkError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Method: method, Path: path, Err: errors.Wrap(err, "read body")}
	}

	event := c.logger.Debug()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		event = c.logger.Warn()
	}
	event.Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("duration", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return &HTTPError{Status: resp.StatusCode, Method: method, Path: path, Body: data}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &NetworkError{Method: method, Path: path, Err: errors.Wrap(err, "decode response")}
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Request(ctx, http.MethodGet, path, nil, out, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Request(ctx, http.MethodPost, path, body, out, opts...)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Request(ctx, http.MethodPatch, path, body, out, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) error {
	return c.Request(ctx, http.MethodDelete, path, nil, nil, opts...)
}
