package core

import "time"

// Observer receives request lifecycle notifications. Implementations can
// forward them to logging, metrics, or tracing backends.
//
// Events are notifications only; they carry no control semantics and the
// pipeline never consumes them internally.
//
// Event payloads intentionally exclude credentials, request bodies, and
// response bodies. Only operational metadata is exposed, so observer output
// can be logged or shipped to monitoring systems without leaking secrets or
// prompt content. Keep it that way when extending these types.
type Observer interface {
	// OnRequest is called once per attempt, before dispatch.
	OnRequest(e RequestEvent)

	// OnResponse is called once per attempt, after completion or failure.
	OnResponse(e ResponseEvent)
}

// RequestEvent describes a request about to be dispatched.
type RequestEvent struct {
	ID     string    // Client-assigned request identifier, if middleware set one
	Method string    // HTTP method
	Path   string    // Request path relative to the base URL
	Stream bool      // Whether a streaming response was requested
	Start  time.Time // When dispatch began
}

// ResponseEvent describes a completed attempt.
type ResponseEvent struct {
	ID     string    // Client-assigned request identifier, if any
	Method string    // HTTP method
	Path   string    // Request path relative to the base URL
	Status int       // HTTP status, 0 if no response was received
	Start  time.Time // When dispatch began
	End    time.Time // When the attempt completed
	Err    error     // Classification of the failure, nil on success
}

// Duration returns the elapsed time for the attempt.
func (e ResponseEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// NoopObserver discards all events. It is the default when no observer is
// configured.
type NoopObserver struct{}

// OnRequest does nothing.
func (NoopObserver) OnRequest(RequestEvent) {}

// OnResponse does nothing.
func (NoopObserver) OnResponse(ResponseEvent) {}

var _ Observer = NoopObserver{}

// ObserverFuncs adapts plain functions to the Observer interface. Nil
// functions are skipped.
type ObserverFuncs struct {
	Request  func(RequestEvent)
	Response func(ResponseEvent)
}

// OnRequest calls the Request function if set.
func (o ObserverFuncs) OnRequest(e RequestEvent) {
	if o.Request != nil {
		o.Request(e)
	}
}

// OnResponse calls the Response function if set.
func (o ObserverFuncs) OnResponse(e ResponseEvent) {
	if o.Response != nil {
		o.Response(e)
	}
}

var _ Observer = ObserverFuncs{}
