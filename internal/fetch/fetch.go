// Package fetch is the HTTP layer shared by the CI and review clients.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"
	"github.com/gregjones/httpcache"
)

var (
	// ErrConnection covers transport failures, timeouts and server errors.
	ErrConnection = errors.New("connection error")
	// ErrNotFound is returned when the requested job or change does not exist.
	ErrNotFound = errors.New("not found")
	// ErrParse is returned for response bodies that cannot be decoded.
	ErrParse = errors.New("parse error")
	// ErrStatus is an unexpected non-2xx status such as 401 or 403. It does
	// not heal on its own, so callers must not skip it.
	ErrStatus = errors.New("unexpected status")
)

const DefaultTimeout = 30 * time.Second

type Options struct {
	Timeout  time.Duration
	User     string
	Password string
	// HTTPClient replaces the default caching client.
	HTTPClient *http.Client
}

type Client struct {
	http     *http.Client
	timeout  time.Duration
	user     string
	password string
	logger   *slog.Logger
}

func NewClient(opts Options, logger *slog.Logger) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = httpcache.NewMemoryCacheTransport().Client()
	}
	to := opts.Timeout
	if to <= 0 {
		to = DefaultTimeout
	}
	return &Client{
		http:     hc,
		timeout:  to,
		user:     opts.User,
		password: opts.Password,
		logger:   logger,
	}
}

// HasAuth reports whether basic auth credentials are configured.
func (c *Client) HasAuth() bool {
	return c.user != ""
}

// Get performs a bounded GET and returns the body of a 2xx response.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	c.logger.Debug("http get", "url", url)

	t := timeout.New[[]byte](timeout.Config{DefaultTimeout: c.timeout})
	body, err := t.Execute(ctx, c.timeout, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, url)
	})
	if err == nil {
		return body, nil
	}

	switch {
	case errors.Is(err, ErrConnection), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrParse), errors.Is(err, ErrStatus):
		return nil, err
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		// deadline from the timeout guard, or an unclassified transport error
		return nil, fmt.Errorf("%w: GET %s: %v", ErrConnection, url, err)
	}
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: GET %s: %v", ErrConnection, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrConnection, url, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: GET %s", ErrNotFound, url)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrConnection, url, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w %d: GET %s", ErrStatus, resp.StatusCode, url)
	}

	return body, nil
}

// Decode unmarshals a JSON body, tagging failures with ErrParse.
func Decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}
