package core

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// RequestContext is the mutable view of a request threaded through the
// middleware chain before dispatch. Stages may rewrite any field; the
// transport uses whatever the last stage left behind.
type RequestContext struct {
	ID     string // Client-assigned request identifier, empty unless a stage sets one
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any // Marshaled to JSON by the transport when non-nil
}

// ResponseContext is the mutable view of a completed response threaded
// through the middleware chain after a successful network call.
type ResponseContext struct {
	Request *RequestContext
	Status  int
	Header  http.Header
	Body    []byte
	Elapsed time.Duration
}

// ErrorContext carries a propagating error past the error observers.
// Observers must treat it as read-only.
type ErrorContext struct {
	Request *RequestContext
	Err     error
}

// Middleware is one stage of the chain. Any subset of the hooks may be set;
// nil hooks are skipped.
//
// OnRequest runs before the network call and may mutate the context or
// reject the request by returning an error, which short-circuits directly
// to the error observers. OnResponse runs after a successful call, in the
// same registration order. OnError observes every propagating error; it
// cannot suppress or replace it.
type Middleware struct {
	OnRequest  func(*RequestContext) error
	OnResponse func(*ResponseContext) error
	OnError    func(*ErrorContext)
}

// Chain is an ordered middleware pipeline. Stages run in strict
// registration order in both directions; composition order is the caller's
// responsibility.
type Chain struct {
	stages []Middleware
}

// NewChain creates a chain with the given initial stages.
func NewChain(stages ...Middleware) *Chain {
	c := &Chain{}
	for _, s := range stages {
		c.Use(s)
	}
	return c
}

// Use appends a stage and returns the chain for fluent composition.
func (c *Chain) Use(m Middleware) *Chain {
	c.stages = append(c.stages, m)
	return c
}

// RunRequest folds the request hooks over ctx in registration order. The
// first error stops the fold and is returned.
func (c *Chain) RunRequest(ctx *RequestContext) error {
	for _, s := range c.stages {
		if s.OnRequest == nil {
			continue
		}
		if err := s.OnRequest(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RunResponse folds the response hooks over ctx in registration order. The
// first error stops the fold and is returned.
func (c *Chain) RunResponse(ctx *ResponseContext) error {
	for _, s := range c.stages {
		if s.OnResponse == nil {
			continue
		}
		if err := s.OnResponse(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RunError notifies every error observer in registration order. Observers
// only observe; the error keeps propagating regardless.
func (c *Chain) RunError(ctx *ErrorContext) {
	for _, s := range c.stages {
		if s.OnError != nil {
			s.OnError(ctx)
		}
	}
}

// RequestID returns middleware that assigns a fresh UUID to each request
// and sends it in the given header. The ID is also recorded on the context
// so observers and error output can correlate attempts.
func RequestID(header string) Middleware {
	if header == "" {
		header = "X-Request-Id"
	}
	return Middleware{
		OnRequest: func(ctx *RequestContext) error {
			id := uuid.NewString()
			ctx.ID = id
			if ctx.Header == nil {
				ctx.Header = make(http.Header)
			}
			ctx.Header.Set(header, id)
			return nil
		},
	}
}

// Logging returns middleware that writes one line per request, response,
// and error through the given leveled logger. Bodies are never logged.
func Logging(logger *LevelLogger) Middleware {
	return Middleware{
		OnRequest: func(ctx *RequestContext) error {
			logger.Debugf("request %s %s", ctx.Method, ctx.Path)
			return nil
		},
		OnResponse: func(ctx *ResponseContext) error {
			logger.Infof("response %s %s status=%d elapsed=%s",
				ctx.Request.Method, ctx.Request.Path, ctx.Status, ctx.Elapsed)
			return nil
		},
		OnError: func(ctx *ErrorContext) {
			logger.Errorf("error %s %s: %v", ctx.Request.Method, ctx.Request.Path, ctx.Err)
		},
	}
}
