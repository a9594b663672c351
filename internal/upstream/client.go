// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upstream

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

// Configuration constants for the answering service.
const (
	// DefaultEndpoint is the public answering service.
	DefaultEndpoint = "https://mock-askperplexity.piyushhhxyz.deno.net"

	// MaxResponseSize caps a non-streamed body (10MB).
	MaxResponseSize = 10 * 1024 * 1024

	// maxErrorBody caps the body captured into a StatusError.
	maxErrorBody = 4 * 1024

	eventStreamType = "text/event-stream"
)

var (
	// ErrNotConfigured indicates no endpoint is set.
	ErrNotConfigured = errors.New("upstream endpoint not configured")

	// ErrIdleTimeout indicates the stream delivered no bytes for the idle window.
	ErrIdleTimeout = errors.New("upstream stream idle timeout")
)

// sharedStreamingClient has no timeout; streams are controlled via context.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// =============================================================================
// ERRORS
// =============================================================================

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	text := http.StatusText(e.Status)
	if e.Body != "" {
		return fmt.Sprintf("upstream returned %d %s: %s", e.Status, text, e.Body)
	}
	return fmt.Sprintf("upstream returned %d %s", e.Status, text)
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one answering endpoint.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	idleTimeout time.Duration
	userAgent   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (tests use httptest clients).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithIdleTimeout aborts a stream that delivers no bytes for d. Zero disables.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Client) { c.idleTimeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: sharedStreamingClient,
		userAgent:  "askr",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// SetIdleTimeout changes the idle watchdog for later requests.
func (c *Client) SetIdleTimeout(d time.Duration) {
	c.idleTimeout = d
}

// Response is an accepted answer body.
type Response struct {
	// Body must be closed by the caller.
	Body io.ReadCloser

	// Streaming is true for an event stream; otherwise Body is a plain blob.
	Streaming bool

	ContentType string
	Status      int
}

// askRequest is the wire body.
type askRequest struct {
	Question string `json:"question"`
}

// Ask posts question and returns the response body. The question is sent
// exactly as given. A non-2xx status returns a *StatusError.
func (c *Client) Ask(ctx context.Context, question string) (*Response, error) {
	if c.endpoint == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		cancel(nil)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", eventStreamType)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel(nil)
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer cancel(nil)
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	contentType := resp.Header.Get("Content-Type")
	out := &Response{
		ContentType: contentType,
		Status:      resp.StatusCode,
		Streaming:   isEventStream(contentType),
	}
	if out.Streaming && c.idleTimeout > 0 {
		out.Body = newWatchdog(reqCtx, resp.Body, c.idleTimeout, cancel)
	} else {
		out.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	}
	return out, nil
}

// ReadBlob reads a non-streamed body whole, bounded by MaxResponseSize.
func ReadBlob(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxResponseSize))
	if err != nil {
		return string(data), fmt.Errorf("read response: %w", err)
	}
	return string(data), nil
}

// isEventStream reports whether the response should be decoded as SSE. A
// missing Content-Type is treated as a stream.
func isEventStream(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == eventStreamType
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelCauseFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel(nil)
	return err
}
