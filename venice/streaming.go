package venice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/petal-labs/venice-go/core"
)

// doneSentinel terminates an SSE stream. It is a literal token, not JSON,
// and must never reach the JSON parser.
const doneSentinel = "[DONE]"

// maxStreamErrorBody bounds how much of an error response body is read
// during stream setup.
const maxStreamErrorBody = 1 << 20

// eventStream is the raw streaming transport: one long-lived HTTP response
// decoded into JSON frames on demand. It is single-pass and forward-only;
// once drained or aborted it cannot be replayed.
type eventStream struct {
	ctx     context.Context
	cancel  context.CancelFunc
	body    io.ReadCloser
	dec     *core.FrameDecoder
	release func()
	chain   *core.Chain
	rc      *core.RequestContext

	err  error
	done bool
}

// stream opens a streaming request through the pipeline. The retry policy
// covers setup only: an error status received before any frame. Once frames
// flow, failures are terminal.
func (c *Client) stream(ctx context.Context, req *apiRequest) (*eventStream, error) {
	release, err := c.limiter.Acquire(ctx)
	if err != nil {
		return nil, c.canceled(err)
	}

	var rc *core.RequestContext
	var httpResp *http.Response
	var streamCtx context.Context
	var cancel context.CancelFunc

	err = c.retryLoop(ctx, func(context.Context) error {
		// A fresh stream context per attempt: a setup timeout cancels the
		// previous one, which must not poison the retry.
		if cancel != nil {
			cancel()
		}
		streamCtx, cancel = context.WithCancel(ctx)

		rc = c.requestContext(req)
		var attemptErr error
		httpResp, attemptErr = c.openOnce(ctx, streamCtx, cancel, rc)
		return attemptErr
	})
	if err != nil {
		if cancel != nil {
			cancel()
		}
		release()
		c.chain.RunError(&core.ErrorContext{Request: rc, Err: err})
		return nil, err
	}

	return &eventStream{
		ctx:     streamCtx,
		cancel:  cancel,
		body:    httpResp.Body,
		dec:     core.NewFrameDecoder(httpResp.Body),
		release: release,
		chain:   c.chain,
		rc:      rc,
	}, nil
}

// openOnce performs one stream-setup attempt. The configured timeout bounds
// setup; it is disarmed the moment response headers arrive so it never
// limits the stream's lifetime.
func (c *Client) openOnce(callerCtx, streamCtx context.Context, cancel context.CancelFunc, rc *core.RequestContext) (*http.Response, error) {
	if err := c.chain.RunRequest(rc); err != nil {
		return nil, err
	}

	start := time.Now()
	c.cfg.Observer.OnRequest(core.RequestEvent{
		ID:     rc.ID,
		Method: rc.Method,
		Path:   rc.Path,
		Stream: true,
		Start:  start,
	})

	httpReq, err := c.buildHTTPRequest(streamCtx, rc, true)
	if err != nil {
		return nil, err
	}

	if c.cfg.Timeout > 0 {
		setupTimer := time.AfterFunc(c.cfg.Timeout, cancel)
		defer setupTimer.Stop()
	}

	httpResp, err := c.cfg.HTTPClient.Do(httpReq)

	ev := core.ResponseEvent{
		ID:     rc.ID,
		Method: rc.Method,
		Path:   rc.Path,
		Start:  start,
		End:    time.Now(),
	}

	if err != nil {
		cerr := c.classifyTransportError(callerCtx, err)
		if callerCtx.Err() == nil && streamCtx.Err() != nil {
			// The setup timer fired, not the caller.
			cerr = &core.Error{
				Kind:    core.KindTransient,
				Message: fmt.Sprintf("stream setup timed out after %s", c.cfg.Timeout),
				Err:     err,
			}
		}
		ev.Err = cerr
		c.cfg.Observer.OnResponse(ev)
		return nil, cerr
	}

	ev.Status = httpResp.StatusCode

	if httpResp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxStreamErrorBody))
		httpResp.Body.Close()
		nerr := normalizeError(httpResp.StatusCode, body, httpResp.Header)
		ev.Err = nerr
		c.cfg.Observer.OnResponse(ev)
		return nil, nerr
	}

	// Response middleware sees status, headers, and setup timing; the body
	// is not buffered for streams.
	respCtx := &core.ResponseContext{
		Request: rc,
		Status:  httpResp.StatusCode,
		Header:  httpResp.Header,
		Elapsed: time.Since(start),
	}
	if err := c.chain.RunResponse(respCtx); err != nil {
		httpResp.Body.Close()
		ev.Err = err
		c.cfg.Observer.OnResponse(ev)
		return nil, err
	}

	c.cfg.Observer.OnResponse(ev)
	return httpResp, nil
}

// Recv returns the next JSON frame payload. It returns io.EOF when the
// server ends the stream, either by closing it or by sending the
// termination sentinel. Any other error is terminal: the connection is
// closed and every subsequent call returns the same error.
func (s *eventStream) Recv() (json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.done {
		return nil, io.EOF
	}
	if cerr := s.ctx.Err(); cerr != nil {
		return nil, s.fail(&core.Error{Kind: core.KindCanceled, Message: "stream canceled", Err: cerr})
	}

	frame, err := s.dec.Next()
	if err != nil {
		if err == io.EOF {
			s.finish()
			return nil, io.EOF
		}
		if cerr := s.ctx.Err(); cerr != nil {
			return nil, s.fail(&core.Error{Kind: core.KindCanceled, Message: "stream canceled", Err: cerr})
		}
		return nil, s.fail(&core.Error{Kind: core.KindTransient, Message: "stream read failed", Err: err})
	}

	if frame.Data == doneSentinel {
		s.finish()
		return nil, io.EOF
	}

	// A payload that is neither JSON nor the sentinel means dropped or
	// corrupted content; skipping it silently would hide that from the
	// caller.
	if !json.Valid([]byte(frame.Data)) {
		return nil, s.fail(&core.Error{
			Kind:    core.KindStreamProtocol,
			Message: fmt.Sprintf("frame %d is neither JSON nor the termination sentinel", frame.Seq),
		})
	}

	return json.RawMessage(frame.Data), nil
}

// Close aborts the stream: the connection is closed promptly, the admission
// slot is released, and no further frames are emitted. Closing a finished
// stream is a no-op.
func (s *eventStream) Close() error {
	if s.done || s.err != nil {
		return nil
	}
	s.done = true
	s.cancel()
	err := s.body.Close()
	s.release()
	return err
}

func (s *eventStream) finish() {
	s.done = true
	s.cancel()
	s.body.Close()
	s.release()
}

func (s *eventStream) fail(ferr *core.Error) error {
	s.err = ferr
	s.cancel()
	s.body.Close()
	s.release()
	s.chain.RunError(&core.ErrorContext{Request: s.rc, Err: ferr})
	return ferr
}
