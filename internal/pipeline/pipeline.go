// Package pipeline executes user requests and records them in history.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/mblydenburgh/postie/internal/interpolate"
	httpclient "github.com/mblydenburgh/postie/internal/protocol/http"
	"github.com/mblydenburgh/postie/internal/storage"
)

// Sender is the outbound HTTP capability.
type Sender interface {
	Send(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

// Result is the outcome of one executed request.
type Result struct {
	StatusCode int
	Status     string
	Headers    []core.Header
	Body       string
	Data       core.ResponseData
	Elapsed    time.Duration
	Execution  storage.Execution
}

// Pipeline substitutes, dispatches, classifies and records requests.
type Pipeline struct {
	sender     Sender
	store      storage.Store
	clock      core.Clock
	ids        core.IDGenerator
	logger     core.Logger
	httpClient *http.Client
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock used for send timestamps and latency.
func WithClock(clock core.Clock) Option {
	return func(p *Pipeline) {
		p.clock = clock
	}
}

// WithIDGenerator sets the generator used for new tab IDs.
func WithIDGenerator(ids core.IDGenerator) Option {
	return func(p *Pipeline) {
		p.ids = ids
	}
}

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithHTTPClient sets the client used for OAuth2 token calls.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Pipeline) {
		p.httpClient = client
	}
}

// New creates a Pipeline sending through sender and recording into store.
func New(sender Sender, store storage.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		sender: sender,
		store:  store,
		clock:  core.RealClock{},
		ids:    core.UUIDGenerator{},
		logger: core.NopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute runs one HTTP request. On success the request, the response and a
// history row linking them are appended and the originating tab is upserted,
// all in one transaction. A dispatch failure persists nothing and returns an
// error wrapping core.ErrNetwork.
func (p *Pipeline) Execute(ctx context.Context, req core.HTTPRequest) (*Result, error) {
	headers := BuildHeaders(req.Headers, req.Auth)

	url := interpolate.Substitute(req.Environment, req.URL)
	if missing := interpolate.Placeholders(url); len(missing) > 0 {
		p.logger.Warn("unresolved variables in url", "url", url, "variables", missing)
	}

	var (
		body     []byte
		bodyText *string
	)
	if req.Body != nil {
		encoded, err := req.Body.Encode()
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = []byte(encoded)
		bodyText = &encoded
		if _, ok := core.HeaderValue(headers, "Content-Type"); !ok {
			headers = append(headers, core.Header{Key: "Content-Type", Value: req.Body.ContentType()})
		}
	}

	p.logger.Debug("sending request", "method", req.Method, "url", url)
	sentAt := p.clock.Now()
	resp, err := p.sender.Send(ctx, httpclient.Request{
		Method:  req.Method.String(),
		URL:     url,
		Headers: headers,
		Body:    body,
	})
	elapsed := p.clock.Now().Sub(sentAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", core.ErrNetwork, req.Method, url, err)
	}

	contentType := resp.ContentType()
	data := core.Classify(contentType, resp.Body)
	if data.Kind == core.ResponseUnknown {
		p.logger.Warn("response not classified", "content_type", contentType, "error", core.ErrUnsupportedResponse)
	}

	tabID := req.TabID
	if tabID == "" {
		tabID = p.ids.New()
	}
	respBody := string(resp.Body)
	reqBody := ""
	if bodyText != nil {
		reqBody = *bodyText
	}

	exec, err := p.store.RecordExecution(ctx, storage.Execution{
		Request: core.DBRequest{
			Method:  req.Method.String(),
			URL:     req.URL,
			Name:    req.Name,
			Headers: headers,
			Body:    bodyText,
		},
		Response: core.DBResponse{
			StatusCode: resp.StatusCode,
			Name:       req.Name,
			Headers:    resp.Headers,
			Body:       &respBody,
		},
		History: core.RequestHistoryItem{
			SentAt:       sentAt,
			ResponseTime: elapsed.Milliseconds(),
		},
		Tab: core.Tab{
			ID:         tabID,
			Method:     req.Method,
			URL:        req.URL,
			ReqBody:    reqBody,
			ReqHeaders: headers,
			ResStatus:  resp.Status,
			ResBody:    respBody,
			ResHeaders: resp.Headers,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record execution: %w", err)
	}

	p.logger.Info("request completed",
		"method", req.Method, "url", url, "status", resp.StatusCode, "elapsed_ms", elapsed.Milliseconds())

	return &Result{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    resp.Headers,
		Body:       respBody,
		Data:       data,
		Elapsed:    elapsed,
		Execution:  exec,
	}, nil
}

// BuildHeaders merges the explicit headers with the header derived from the
// auth mode. Keys compare case-sensitively and the auth header wins.
func BuildHeaders(explicit []core.Header, auth core.RequestAuth) []core.Header {
	var derived []core.Header
	if h, ok := auth.Header(); ok {
		derived = append(derived, h)
	}
	headers := core.MergeHeaders(explicit, derived)
	if headers == nil {
		headers = []core.Header{}
	}
	return headers
}
