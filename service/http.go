package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pddlkit/sdk/planerr"
)

// RequestOptions controls one HTTP round-trip issued by JSONClient.
type RequestOptions struct {
	// Timeout bounds the round-trip. Zero means no per-request bound
	// beyond the caller's context.
	Timeout time.Duration

	// Headers are added to the request verbatim.
	Headers map[string]string

	// Authenticated marks the request as carrying credentials, which
	// remaps 400/401 responses to actionable authentication errors.
	Authenticated bool

	// FriendlyName names the service in error messages.
	FriendlyName string
}

// JSONClient is the HTTP capability the reconcilers run on: JSON POST and
// GET with auth-aware status classification and content-type enforcement.
// Safe for concurrent use.
type JSONClient struct {
	client *http.Client
	logger *slog.Logger
}

// NewJSONClient creates a JSON client on the given http.Client.
// A nil client uses http.DefaultClient; per-request deadlines come from
// RequestOptions, not from http.Client.Timeout.
func NewJSONClient(client *http.Client, logger *slog.Logger) *JSONClient {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONClient{client: client, logger: logger}
}

// PostJSON marshals body, POSTs it to url, and returns the raw decoded JSON
// response body.
func (c *JSONClient) PostJSON(ctx context.Context, url string, body any, opts RequestOptions) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, planerr.New(opts.FriendlyName, "post", planerr.ErrCodeTransport,
			"failed to encode request body").WithCause(err)
	}
	return c.do(ctx, http.MethodPost, url, payload, opts)
}

// GetJSON issues a GET against url and returns the raw JSON response body.
func (c *JSONClient) GetJSON(ctx context.Context, url string, opts RequestOptions) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, url, nil, opts)
}

func (c *JSONClient) do(ctx context.Context, method, url string, payload []byte, opts RequestOptions) (json.RawMessage, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, planerr.New(opts.FriendlyName, "request", planerr.ErrCodeTransport,
			fmt.Sprintf("failed to create %s request", method)).WithCause(err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, planerr.New(opts.FriendlyName, "request", planerr.ErrCodeTransport,
			fmt.Sprintf("%s %s failed", method, url)).WithCause(err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close resource", "resource", "HTTP response", "error", err)
		}
	}()

	c.logger.Debug("planning service round-trip",
		"method", method, "url", url,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	if err := c.classifyStatus(resp.StatusCode, opts); err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return nil, planerr.New(opts.FriendlyName, "request", planerr.ErrCodeTransport,
			fmt.Sprintf("expected application/json response, got %q", contentType))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, planerr.New(opts.FriendlyName, "request", planerr.ErrCodeTransport,
			"failed to read response body").WithCause(err)
	}

	return json.RawMessage(data), nil
}

// classifyStatus maps HTTP status codes to the error taxonomy: anything above
// 202 is a hard failure, with 400/401 under an authenticated configuration
// remapped to actionable authentication errors.
func (c *JSONClient) classifyStatus(status int, opts RequestOptions) error {
	if status <= 202 {
		return nil
	}

	if opts.Authenticated {
		switch status {
		case http.StatusBadRequest:
			return planerr.New(opts.FriendlyName, "request", planerr.ErrCodeAuthFailed,
				"Authentication failed. Please check your authentication token.")
		case http.StatusUnauthorized:
			return planerr.New(opts.FriendlyName, "request", planerr.ErrCodeInvalidToken,
				"Invalid token. Please configure a valid authentication token.")
		}
	}

	return planerr.New(opts.FriendlyName, "request", planerr.ErrCodeTransport,
		fmt.Sprintf("service returned status %d", status))
}
