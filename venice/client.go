package venice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/petal-labs/venice-go/core"
)

// DefaultAPIKeyEnvVar is the environment variable NewFromEnv reads.
const DefaultAPIKeyEnvVar = "VENICE_API_KEY"

// ErrAPIKeyNotFound is returned by NewFromEnv when the environment variable
// is not set.
var ErrAPIKeyNotFound = errors.New("venice: VENICE_API_KEY environment variable not set")

// Client is the Venice API client. It is safe for concurrent use; all
// mutable state shared across calls lives in the admission limiter.
type Client struct {
	cfg     Config
	chain   *core.Chain
	limiter *core.Limiter
	log     *core.LevelLogger
}

// New creates a client with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	cfg := Config{
		APIKey:            core.NewSecret(apiKey),
		BaseURL:           DefaultBaseURL,
		Timeout:           DefaultTimeout,
		MaxConcurrent:     DefaultMaxConcurrent,
		RequestsPerMinute: DefaultRequestsPerMinute,
		HTTPClient:        http.DefaultClient,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Retry == nil {
		cfg.Retry = core.DefaultRetryPolicy()
	}
	if cfg.Observer == nil {
		cfg.Observer = core.NoopObserver{}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	return &Client{
		cfg:     cfg,
		chain:   core.NewChain(cfg.Middleware...),
		limiter: core.NewLimiter(cfg.MaxConcurrent, cfg.RequestsPerMinute),
		log:     core.NewLevelLogger(cfg.Logger, cfg.LogLevel),
	}
}

// NewFromEnv creates a client using the VENICE_API_KEY environment variable.
func NewFromEnv(opts ...Option) (*Client, error) {
	apiKey := os.Getenv(DefaultAPIKeyEnvVar)
	if apiKey == "" {
		return nil, ErrAPIKeyNotFound
	}
	return New(apiKey, opts...), nil
}

// apiRequest describes one call. Endpoint methods build a fresh descriptor
// per invocation; it is immutable once built.
type apiRequest struct {
	method string
	path   string
	query  url.Values
	body   any
	header http.Header
	stream bool
}

// do executes a buffered request through the full pipeline: admission,
// retries, middleware, transport. On success the decoded JSON body is
// unmarshaled into out when out is non-nil.
func (c *Client) do(ctx context.Context, req *apiRequest, out any) error {
	release, err := c.limiter.Acquire(ctx)
	if err != nil {
		return c.canceled(err)
	}
	defer release()

	var rc *core.RequestContext
	var resp *core.ResponseContext

	err = c.retryLoop(ctx, func(attemptCtx context.Context) error {
		rc = c.requestContext(req)
		var attemptErr error
		resp, attemptErr = c.once(attemptCtx, rc)
		return attemptErr
	})
	if err != nil {
		c.chain.RunError(&core.ErrorContext{Request: rc, Err: err})
		return err
	}

	if out != nil {
		if uerr := json.Unmarshal(resp.Body, out); uerr != nil {
			derr := &core.Error{
				Kind:    core.KindUnknown,
				Status:  resp.Status,
				Message: "failed to decode response body",
				Err:     uerr,
			}
			c.chain.RunError(&core.ErrorContext{Request: rc, Err: derr})
			return derr
		}
	}
	return nil
}

// retryLoop runs attempt until it succeeds, the retry policy gives up, or
// the caller cancels. Cancellation always wins over a retryable failure.
func (c *Client) retryLoop(ctx context.Context, attempt func(context.Context) error) error {
	var lastErr error
	attempts := 0
	for n := 0; ; n++ {
		attempts = n + 1
		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return c.canceled(cerr)
		}

		delay, ok := c.cfg.Retry.NextDelay(n, lastErr)
		if !ok {
			break
		}
		c.log.Debugf("retrying in %s after attempt %d: %v", delay, attempts, lastErr)

		select {
		case <-ctx.Done():
			return c.canceled(ctx.Err())
		case <-time.After(delay):
		}
	}

	var apiErr *core.Error
	if errors.As(lastErr, &apiErr) {
		apiErr.Attempts = attempts
	}
	return lastErr
}

// once performs one attempt: request middleware, lifecycle events, and the
// network call, then response middleware.
func (c *Client) once(ctx context.Context, rc *core.RequestContext) (*core.ResponseContext, error) {
	if err := c.chain.RunRequest(rc); err != nil {
		return nil, err
	}

	start := time.Now()
	c.cfg.Observer.OnRequest(core.RequestEvent{
		ID:     rc.ID,
		Method: rc.Method,
		Path:   rc.Path,
		Start:  start,
	})

	resp, err := c.transport(ctx, rc, start)
	if err == nil {
		err = c.chain.RunResponse(resp)
	}

	ev := core.ResponseEvent{
		ID:     rc.ID,
		Method: rc.Method,
		Path:   rc.Path,
		Start:  start,
		End:    time.Now(),
		Err:    err,
	}
	if resp != nil {
		ev.Status = resp.Status
	}
	c.cfg.Observer.OnResponse(ev)

	if err != nil {
		return nil, err
	}
	return resp, nil
}

// transport issues exactly one buffered HTTP call for the descriptor.
func (c *Client) transport(ctx context.Context, rc *core.RequestContext, start time.Time) (*core.ResponseContext, error) {
	attemptCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	httpReq, err := c.buildHTTPRequest(attemptCtx, rc, false)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, c.classifyTransportError(ctx, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.classifyTransportError(ctx, err)
	}

	if httpResp.StatusCode >= 400 {
		return nil, normalizeError(httpResp.StatusCode, body, httpResp.Header)
	}

	return &core.ResponseContext{
		Request: rc,
		Status:  httpResp.StatusCode,
		Header:  httpResp.Header,
		Body:    body,
		Elapsed: time.Since(start),
	}, nil
}

// requestContext materializes a fresh mutable middleware context from the
// immutable descriptor. Each attempt gets its own copy so header rewrites
// never accumulate across retries.
func (c *Client) requestContext(req *apiRequest) *core.RequestContext {
	rc := &core.RequestContext{
		Method: req.method,
		Path:   req.path,
		Header: make(http.Header),
		Body:   req.body,
	}
	if len(req.query) > 0 {
		rc.Query = make(url.Values, len(req.query))
		for k, vv := range req.query {
			rc.Query[k] = append([]string(nil), vv...)
		}
	}
	for k, vv := range c.cfg.Headers {
		for _, v := range vv {
			rc.Header.Add(k, v)
		}
	}
	for k, vv := range req.header {
		for _, v := range vv {
			rc.Header.Add(k, v)
		}
	}
	return rc
}

// buildHTTPRequest assembles the wire request from the (possibly
// middleware-mutated) request context.
func (c *Client) buildHTTPRequest(ctx context.Context, rc *core.RequestContext, stream bool) (*http.Request, error) {
	u := strings.TrimSuffix(c.cfg.BaseURL, "/") + rc.Path
	if len(rc.Query) > 0 {
		u += "?" + rc.Query.Encode()
	}

	var bodyReader io.Reader
	if rc.Body != nil {
		payload, err := json.Marshal(rc.Body)
		if err != nil {
			return nil, &core.Error{Kind: core.KindValidation, Message: "failed to encode request body", Err: err}
		}
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, rc.Method, u, bodyReader)
	if err != nil {
		return nil, &core.Error{Kind: core.KindValidation, Message: "failed to build request", Err: err}
	}

	for k, vv := range rc.Header {
		for _, v := range vv {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey.Expose())
	if rc.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
		httpReq.Header.Set("Cache-Control", "no-cache")
	} else if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	return httpReq, nil
}

// classifyTransportError maps a network-level failure to an error kind.
// Caller cancellation is distinguished from a per-attempt timeout: the
// former is terminal, the latter retryable.
func (c *Client) classifyTransportError(callerCtx context.Context, err error) *core.Error {
	if callerCtx.Err() != nil || errors.Is(err, context.Canceled) {
		return &core.Error{Kind: core.KindCanceled, Message: "request canceled", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &core.Error{
			Kind:    core.KindTransient,
			Message: fmt.Sprintf("attempt timed out after %s", c.cfg.Timeout),
			Err:     err,
		}
	}
	return &core.Error{Kind: core.KindTransient, Message: "network error", Err: err}
}

func (c *Client) canceled(err error) *core.Error {
	return &core.Error{Kind: core.KindCanceled, Message: "request canceled", Err: err}
}
