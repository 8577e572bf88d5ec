// Package api is the HTTP client for the GranaBox REST backend.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"granabox/internal/core"
	applog "granabox/internal/log"
)

const (
	DefaultBaseURL = "http://127.0.0.1:5000"
	DefaultTimeout = 10 * time.Second

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 512
)

// Config holds client configuration.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Location   *time.Location
	HTTPClient *http.Client
	Logger     *applog.Logger
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	loc        *time.Location
	logger     *applog.Logger
	now        func() time.Time
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: backend returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Status, e.Body)
}

// Unwrap lets errors.Is(err, core.ErrNotFound) match 404 responses.
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return core.ErrNotFound
	}
	return nil
}

// New creates a client. An empty BaseURL uses DefaultBaseURL.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimRight(cfg.BaseURL, "/")
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: unsupported scheme", raw)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	logger := cfg.Logger
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentAPI)
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		loc:        loc,
		logger:     logger.WithComponent(applog.ComponentAPI),
		now:        time.Now,
	}, nil
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Location is the time zone sent with date queries.
func (c *Client) Location() *time.Location {
	return c.loc
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	form   url.Values
	header http.Header
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends the request and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, r request, out any) error {
	start := time.Now()

	var body io.Reader
	if r.form != nil {
		body = strings.NewReader(r.form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path, r.query), body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Backend request failed",
			applog.FieldOperation, r.op,
			applog.FieldErrorType, applog.ErrorTypeNetwork,
			applog.FieldError, err)
		return fmt.Errorf("%s: %w", r.op, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "Backend request completed",
		applog.FieldOperation, r.op,
		applog.FieldMethod, r.method,
		applog.FieldPath, r.path,
		applog.FieldStatusCode, resp.StatusCode,
		applog.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: r.op, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%s: decode response: %w", r.op, err)
	}
	return nil
}

// Ping checks that the backend answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, request{op: "ping", method: http.MethodGet, path: "/items/years"}, nil)
}
