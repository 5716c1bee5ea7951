package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultTimeout  = 30 * time.Second
	maxResponseSize = 4 << 20
)

// Client performs tenant scoped JSON calls against the admin API
type Client struct {
	router     *Router
	httpClient *http.Client
}

type ClientOption func(*clientOptions)

type clientOptions struct {
	timeout    time.Duration
	transport  []TransportOption
	httpClient *http.Client
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

func WithTransportOptions(options ...TransportOption) ClientOption {
	return func(o *clientOptions) {
		o.transport = append(o.transport, options...)
	}
}

// WithHTTPClient uses client as is; its transport is expected to decorate requests
func WithHTTPClient(client *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

func NewClient(router *Router, tokens TokenSource, options ...ClientOption) (*Client, error) {
	if router == nil {
		return nil, fmt.Errorf("[api NewClient] router is required")
	}
	opts := clientOptions{timeout: DefaultTimeout}
	for _, opt := range options {
		opt(&opts)
	}

	httpClient := opts.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   opts.timeout,
			Transport: NewTransport(router, tokens, opts.transport...),
		}
	}
	return &Client{router: router, httpClient: httpClient}, nil
}

// HTTPClient exposes the decorated client, e.g. for the token endpoint
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

func (c *Client) Router() *Router {
	return c.router
}

// Do sends body as JSON and decodes a 2xx response into out. Failures are returned as
// *Error without retry.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint, err := c.router.URL(ctx, path)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("[Client Do] failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("[Client Do] failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NetworkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return NetworkError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("[Client Do] failed to decode %s response: %w", path, err)
	}
	return nil
}

func escapeSegment(s string) string {
	return url.PathEscape(s)
}
