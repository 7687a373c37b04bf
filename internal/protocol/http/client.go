// Package http is the outbound HTTP capability used by the request pipeline.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sort"
	"time"

	"github.com/mblydenburgh/postie/internal/core"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// Request is a fully resolved outgoing request.
type Request struct {
	Method  string
	URL     string
	Headers []core.Header
	Body    []byte
}

// Response is what came back. Headers are flattened and sorted by key.
type Response struct {
	StatusCode int
	Status     string
	Headers    []core.Header
	Body       []byte
}

// ContentType returns the Content-Type header, or "".
func (r *Response) ContentType() string {
	for _, h := range r.Headers {
		if http.CanonicalHeaderKey(h.Key) == "Content-Type" {
			return h.Value
		}
	}
	return ""
}

// Client sends requests over net/http.
type Client struct {
	httpClient *http.Client
	config     Config
	limiter    *rate.Limiter
	userAgent  string
}

// Config holds HTTP client configuration.
type Config struct {
	Timeout        time.Duration
	FollowRedirect bool
}

// Option is a function that configures the Client.
type Option func(*Client)

// NewClient creates a new HTTP client with the given options. Cookies set by
// servers are kept in an in-memory jar for the life of the client.
func NewClient(opts ...Option) *Client {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		config: Config{
			Timeout:        30 * time.Second,
			FollowRedirect: true,
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.config.Timeout = timeout
		c.httpClient.Timeout = timeout
	}
}

// WithTransport sets a custom HTTP transport.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = transport
	}
}

// WithNoRedirects disables automatic redirect following.
func WithNoRedirects() Option {
	return func(c *Client) {
		c.config.FollowRedirect = false
		c.httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero or less disables it.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = nil
			return
		}
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithUserAgent sets the User-Agent sent when the request has none.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithoutCookies disables the cookie jar.
func WithoutCookies() Option {
	return func(c *Client) {
		c.httpClient.Jar = nil
	}
}

// HTTPClient exposes the configured *http.Client for token calls.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.config
}

// Send executes an HTTP request and returns the response.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	httpReq, err := c.toHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    flattenHeaders(httpResp.Header),
		Body:       bodyBytes,
	}, nil
}

// toHTTPRequest converts a Request to an http.Request.
func (c *Client) toHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	// Set, not Add: the header list is already deduplicated.
	for _, h := range req.Headers {
		httpReq.Header.Set(h.Key, h.Value)
	}
	if c.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	return httpReq, nil
}

func flattenHeaders(header http.Header) []core.Header {
	keys := make([]string, 0, len(header))
	for key := range header {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	headers := make([]core.Header, 0, len(header))
	for _, key := range keys {
		for _, value := range header[key] {
			headers = append(headers, core.Header{Key: key, Value: value})
		}
	}
	return headers
}
