// Package upstream implements the Microsoft Graph and Azure Resource Manager
// REST calls used for PIM role discovery and activation.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"quickpim/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRPS     = 10
	defaultBurst   = 20
	defaultMaxPage = 20

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 8 << 20
)

// Options configures an upstream client. Zero values take defaults.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxPages          int
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// client carries the transport shared by the Graph and ARM clients: bearer
// auth, an outbound token bucket, JSON encoding and error mapping.
type client struct {
	base       *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	maxPages   int
	logger     *slog.Logger
}

func newClient(baseURL string, opts Options) (*client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Limit(opts.RequestsPerSecond)
	burst := opts.Burst
	switch {
	case opts.RequestsPerSecond < 0:
		limit = rate.Inf
	case opts.RequestsPerSecond == 0:
		limit = defaultRPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPage
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &client{
		base:       base,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		maxPages:   maxPages,
		logger:     logger,
	}, nil
}

// url joins path and an already-encoded query onto the base URL.
func (c *client) url(path, rawQuery string) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	u.RawQuery = rawQuery
	return u.String()
}

// do sends one request and decodes a 2xx JSON body into out (when non-nil).
// Non-2xx responses become *domain.UpstreamError.
func (c *client) do(ctx context.Context, method, token, rawURL string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := domain.RequestIDFromContext(ctx); id != "" {
		req.Header.Set("client-request-id", id)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("upstream call",
		"method", method,
		"host", req.URL.Host,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return domain.ErrUpstream(resp.StatusCode, "MalformedResponse", fmt.Sprintf("decode response: %v", err))
	}
	return nil
}

// errorBody is the error envelope shared by Graph and ARM.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// errorFromResponse maps a non-2xx response to an UpstreamError, preferring
// the service-reported message.
func errorFromResponse(status int, data []byte) *domain.UpstreamError {
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil && eb.Error.Message != "" {
		return domain.ErrUpstream(status, eb.Error.Code, eb.Error.Message)
	}
	return domain.ErrUpstream(status, eb.Error.Code, "Unknown error")
}

// page is one page of a Graph (@odata.nextLink) or ARM (nextLink) list.
type page[T any] struct {
	Value         []T    `json:"value"`
	ODataNextLink string `json:"@odata.nextLink"`
	NextLink      string `json:"nextLink"`
}

// listAll follows next links until exhausted or maxPages is reached. Links to
// a different host are refused so the token never leaves the configured API.
func listAll[T any](ctx context.Context, c *client, token, firstURL string) ([]T, error) {
	var all []T
	next := firstURL
	for i := 0; next != ""; i++ {
		if i >= c.maxPages {
			c.logger.Warn("pagination limit reached", "pages", c.maxPages, "host", c.base.Host)
			break
		}
		if err := c.checkSameHost(next); err != nil {
			return nil, err
		}
		var p page[T]
		if err := c.do(ctx, http.MethodGet, token, next, nil, &p); err != nil {
			return nil, err
		}
		all = append(all, p.Value...)
		next = p.ODataNextLink
		if next == "" {
			next = p.NextLink
		}
	}
	if all == nil {
		all = []T{}
	}
	return all, nil
}

func (c *client) checkSameHost(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse next link: %w", err)
	}
	if !strings.EqualFold(u.Host, c.base.Host) {
		return domain.ErrUpstream(0, "UnexpectedNextLink", fmt.Sprintf("refusing to follow link to host %q", u.Host))
	}
	return nil
}

// queryEscape encodes a query value with %20 for spaces, which OData filters
// require.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
