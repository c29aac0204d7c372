// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway provides the HTTP client used to reach the agents and
// details (inventory) REST APIs.
//
// Each Client is bound to one facility name and one base URL. Responses are
// decoded once into an envelope.Envelope; failures are normalized into a
// RequestError (server answered with a non-success status) or a
// TransportError (no answer). Requests are never retried.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/invtui/internal/envelope"
)

// Configuration constants.
const (
	// FacilityAgents names the agents API in error messages.
	FacilityAgents = "API Agents"

	// FacilityDetails names the details (inventory) API in error messages.
	FacilityDetails = "API Details"

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// DefaultUserAgent is sent on every request unless overridden.
	DefaultUserAgent = "invtui"
)

var (
	jarOnce   sync.Once
	sharedJar http.CookieJar
)

// SharedCookieJar returns the process-wide cookie jar so that session
// cookies set by either API are sent back on every later request.
func SharedCookieJar() http.CookieJar {
	jarOnce.Do(func() {
		jar, err := cookiejar.New(nil)
		if err == nil {
			sharedJar = jar
		}
	})
	return sharedJar
}

// =============================================================================
// CLIENT
// =============================================================================

// Client issues JSON requests against one base URL.
type Client struct {
	facility   string
	baseURL    string
	httpClient *http.Client
	headers    http.Header
	token      string
	log        logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets a whole-request timeout. The dashboard never sets one;
// it exists for one-shot CLI commands.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return WithHeader("User-Agent", ua)
}

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a client for facility rooted at baseURL. Trailing slashes are
// removed from baseURL.
func New(facility, baseURL string, opts ...Option) *Client {
	c := &Client{
		facility: facility,
		baseURL:  strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Jar: SharedCookieJar(),
		},
		headers: http.Header{},
		log:     logrus.StandardLogger(),
	}
	c.headers.Set("User-Agent", DefaultUserAgent)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Facility returns the facility name used in error messages.
func (c *Client) Facility() string {
	return c.facility
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Configured reports whether a base URL has been set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// =============================================================================
// REQUESTS
// =============================================================================

// Request describes one call relative to the client's base URL.
type Request struct {
	Method string
	Path   string
	Body   any
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string) (*envelope.Envelope, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*envelope.Envelope, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Do performs req and returns the decoded body.
func (c *Client) Do(ctx context.Context, req Request) (*envelope.Envelope, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%s: %w", c.facility, ErrNotConfigured)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.url(req.Path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vals := range c.headers {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	reqID := uuid.NewString()
	log := c.log.WithFields(logrus.Fields{
		"facility":   c.facility,
		"method":     method,
		"path":       req.Path,
		"request_id": reqID,
	})
	start := time.Now()
	log.Debug("request started")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.WithError(err).Warn("request failed without response")
		return nil, &TransportError{Facility: c.facility, Err: err}
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	log = log.WithFields(logrus.Fields{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("request rejected")
		return nil, newRequestError(c.facility, resp.StatusCode, resp.Status, data)
	}
	if err != nil {
		log.WithError(err).Warn("reading response failed")
		return nil, &TransportError{Facility: c.facility, Err: err}
	}
	log.Debug("request completed")

	return envelope.Decode(data), nil
}

func (c *Client) url(path string) string {
	if path == "" {
		return c.baseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}
