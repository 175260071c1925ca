package venice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/petal-labs/venice-go/core"
)

// sseHandler writes the given SSE lines and returns. Each element is one
// complete frame payload; the [DONE] sentinel must be included explicitly.
func sseHandler(t *testing.T, payloads ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("Accept = %q, want text/event-stream", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, p := range payloads {
			fmt.Fprintf(w, "data: %s\n\n", p)
			flusher.Flush()
		}
	}
}

func chunkJSON(id, content, finishReason string) string {
	if finishReason != "" {
		return fmt.Sprintf(`{"id":%q,"model":"llama-3.3-70b","choices":[{"index":0,"delta":{},"finish_reason":%q}]}`, id, finishReason)
	}
	return fmt.Sprintf(`{"id":%q,"model":"llama-3.3-70b","choices":[{"index":0,"delta":{"content":%q}}]}`, id, content)
}

func streamRequest() *ChatRequest {
	return &ChatRequest{
		Model:    "llama-3.3-70b",
		Messages: []ChatMessage{{Role: RoleUser, Content: "Hello"}},
	}
}

func TestStreamChatCompletion(t *testing.T) {
	server := httptest.NewServer(sseHandler(t,
		chunkJSON("c1", "Hel", ""),
		chunkJSON("c1", "lo", ""),
		chunkJSON("c1", "", "stop"),
		"[DONE]",
	))
	defer server.Close()

	client := New("test-key", WithBaseURL(server.URL))

	stream, err := client.StreamChatCompletion(context.Background(), streamRequest())
	if err != nil {
		t.Fatalf("StreamChatCompletion() error = %v", err)
	}
	defer stream.Close()

	var content string
	var finish string
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		for _, choice := range chunk.Choices {
			content += choice.Delta.Content
			if choice.FinishReason != "" {
				finish = choice.FinishReason
			}
		}
	}

	if content != "Hello" {
		t.Errorf("content = %q, want %q", content, "Hello")
	}
	if finish != "stop" {
		t.Errorf("finish reason = %q, want %q", finish, "stop")
	}

	// The sentinel ended the stream; further reads stay at EOF.
	if _, err := stream.Recv(); err != io.EOF {
		t.Errorf("Recv() after end error = %v, want io.EOF", err)
	}
}

func TestStreamSentinelNotSurfaced(t *testing.T) {
	server := httptest.NewServer(sseHandler(t, "[DONE]"))
	defer server.Close()

	client := New("test-key", WithBaseURL(server.URL))

	stream, err := client.StreamChatCompletion(context.Background(), streamRequest())
	if err != nil {
		t.Fatalf("StreamChatCompletion() error = %v", err)
	}
	defer stream.Close()

	if _, err := stream.Recv(); err != io.EOF {
		t.Errorf("Recv() error = %v, want io.EOF with no frames", err)
	}
}

func TestStreamMalformedFrameTerminal(t *testing.T) {
	server := httptest.NewServer(sseHandler(t,
		chunkJSON("c1", "ok", ""),
		"this is not json",
		chunkJSON("c1", "never seen", ""),
	))
	defer server.Close()

	client := New("test-key", WithBaseURL(server.URL))

	stream, err := client.StreamChatCompletion(context.Background(), streamRequest())
	if err != nil {
		t.Fatalf("StreamChatCompletion() error = %v", err)
	}
	defer stream.Close()

	if _, err := stream.Recv(); err != nil {
		t.Fatalf("first Recv() error = %v", err)
	}

	_, err = stream.Recv()
	if err == nil {
		t.Fatal("Recv() error = nil, want stream protocol error")
	}
	if got := core.KindOf(err); got != core.KindStreamProtocol {
		t.Errorf("KindOf() = %v, want KindStreamProtocol", got)
	}

	// The failure is sticky; no later frame leaks out.
	if _, err2 := stream.Recv(); err2 != err {
		t.Errorf("subsequent Recv() error = %v, want the original failure", err2)
	}
}

func TestStreamWrongShapeFrameTerminal(t *testing.T) {
	// Valid JSON that is not a chunk object.
	server := httptest.NewServer(sseHandler(t, `[1,2,3]`))
	defer server.Close()

	client := New("test-key", WithBaseURL(server.URL))

	stream, err := client.StreamChatCompletion(context.Background(), streamRequest())
	if err != nil {
		t.Fatalf("StreamChatCompletion() error = %v", err)
	}
	defer stream.Close()

	_, err = stream.Recv()
	if got := core.KindOf(err); got != core.KindStreamProtocol {
		t.Errorf("KindOf() = %v, want KindStreamProtocol", got)
	}
}

func TestStreamCancellation(t *testing.T) {
	firstFrame := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprintf(w, "data: %s\n\n", chunkJSON("c1", "first", ""))
		flusher.Flush()
		close(firstFrame)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := New("test-key", WithBaseURL(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := client.StreamChatCompletion(ctx, streamRequest())
	if err != nil {
		t.Fatalf("StreamChatCompletion() error = %v", err)
	}
	defer stream.Close()

	if _, err := stream.Recv(); err != nil {
		t.Fatalf("Recv() error = %v", err)
	}

	<-firstFrame
	cancel()

	_, err = stream.Recv()
	if err == nil {
		t.Fatal("Recv() after cancel error = nil, want cancellation")
	}
	if got := core.KindOf(err); got != core.KindCanceled {
		t.Errorf("KindOf() = %v, want KindCanceled", got)
	}
}

func TestStreamSetupError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid api key"}`)
	}))
	defer server.Close()

	client := New("bad-key", WithBaseURL(server.URL))

	_, err := client.StreamChatCompletion(context.Background(), streamRequest())
	if err == nil {
		t.Fatal("StreamChatCompletion() error = nil, want setup failure")
	}
	if got := core.KindOf(err); got != core.KindAuthentication {
		t.Errorf("KindOf() = %v, want KindAuthentication", got)
	}
}

func TestStreamSetupRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		sseHandler(t, chunkJSON("c1", "hi", ""), "[DONE]")(w, r)
	}))
	defer server.Close()

	client := New("test-key",
		WithBaseURL(server.URL),
		WithRetryPolicy(fastRetry(2)),
	)

	stream, err := client.StreamChatCompletion(context.Background(), streamRequest())
	if err != nil {
		t.Fatalf("StreamChatCompletion() error = %v", err)
	}
	defer stream.Close()

	chunk, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content != "hi" {
		t.Errorf("chunk = %+v", chunk)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server calls = %d, want 2", got)
	}
}

func TestStreamCloseReleasesSlot(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			fmt.Fprint(w, modelsBody("m"))
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(block)

	client := New("test-key",
		WithBaseURL(server.URL),
		WithMaxConcurrent(1),
	)

	stream, err := client.StreamChatCompletion(context.Background(), streamRequest())
	if err != nil {
		t.Fatalf("StreamChatCompletion() error = %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	// The released slot must admit the next request.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.ListModels(ctx, nil); err != nil {
		t.Fatalf("ListModels() after Close() error = %v", err)
	}
}

func TestStreamCloseIdempotent(t *testing.T) {
	server := httptest.NewServer(sseHandler(t, "[DONE]"))
	defer server.Close()

	client := New("test-key", WithBaseURL(server.URL))

	stream, err := client.StreamChatCompletion(context.Background(), streamRequest())
	if err != nil {
		t.Fatalf("StreamChatCompletion() error = %v", err)
	}

	if err := stream.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := stream.Recv(); err != io.EOF {
		t.Errorf("Recv() after Close() error = %v, want io.EOF", err)
	}
}

func TestStreamDrain(t *testing.T) {
	server := httptest.NewServer(sseHandler(t,
		chunkJSON("c9", "The ", ""),
		chunkJSON("c9", "answer", ""),
		chunkJSON("c9", "", "stop"),
		`{"id":"c9","choices":[],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`,
		"[DONE]",
	))
	defer server.Close()

	client := New("test-key", WithBaseURL(server.URL))

	stream, err := client.StreamChatCompletion(context.Background(), streamRequest())
	if err != nil {
		t.Fatalf("StreamChatCompletion() error = %v", err)
	}
	defer stream.Close()

	resp, err := stream.Drain()
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if resp.ID != "c9" {
		t.Errorf("ID = %q, want c9", resp.ID)
	}
	if got := resp.Text(); got != "The answer" {
		t.Errorf("Text() = %q, want %q", got, "The answer")
	}
	if resp.Choices[0].FinishReason != "stop" {
		t.Errorf("FinishReason = %q, want stop", resp.Choices[0].FinishReason)
	}
	if resp.Usage.TotalTokens != 7 {
		t.Errorf("TotalTokens = %d, want 7", resp.Usage.TotalTokens)
	}
}

func TestStreamLifecycleEvents(t *testing.T) {
	server := httptest.NewServer(sseHandler(t, "[DONE]"))
	defer server.Close()

	var reqEvents []core.RequestEvent
	client := New("test-key",
		WithBaseURL(server.URL),
		WithObserver(core.ObserverFuncs{
			Request: func(e core.RequestEvent) { reqEvents = append(reqEvents, e) },
		}),
	)

	stream, err := client.StreamChatCompletion(context.Background(), streamRequest())
	if err != nil {
		t.Fatalf("StreamChatCompletion() error = %v", err)
	}
	defer stream.Close()

	if len(reqEvents) != 1 {
		t.Fatalf("request events = %d, want 1", len(reqEvents))
	}
	if !reqEvents[0].Stream {
		t.Error("request event Stream = false, want true")
	}
}

func TestStreamValidation(t *testing.T) {
	client := New("test-key")

	_, err := client.StreamChatCompletion(context.Background(), &ChatRequest{})
	if err == nil {
		t.Fatal("error = nil, want validation error")
	}
	var apiErr *core.Error
	if !errors.As(err, &apiErr) || apiErr.Kind != core.KindValidation {
		t.Errorf("error = %v, want validation", err)
	}
}
