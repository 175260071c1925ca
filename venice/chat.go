package venice

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/petal-labs/venice-go/core"
)

const chatCompletionsPath = "/chat/completions"

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// VeniceParameters are Venice-specific request extensions.
type VeniceParameters struct {
	// Character selects a public character by slug to respond as.
	Character string `json:"character_slug,omitempty"`

	// IncludeVeniceSystemPrompt controls whether the default Venice system
	// prompt is prepended. Defaults to true service-side.
	IncludeVeniceSystemPrompt *bool `json:"include_venice_system_prompt,omitempty"`

	// EnableWebSearch is "auto", "on", or "off".
	EnableWebSearch string `json:"enable_web_search,omitempty"`
}

// ChatRequest is a chat completion request.
type ChatRequest struct {
	Model               string            `json:"model"`
	Messages            []ChatMessage     `json:"messages"`
	Temperature         *float64          `json:"temperature,omitempty"`
	TopP                *float64          `json:"top_p,omitempty"`
	MaxCompletionTokens *int              `json:"max_completion_tokens,omitempty"`
	Stop                []string          `json:"stop,omitempty"`
	FrequencyPenalty    *float64          `json:"frequency_penalty,omitempty"`
	PresencePenalty     *float64          `json:"presence_penalty,omitempty"`
	VeniceParameters    *VeniceParameters `json:"venice_parameters,omitempty"`

	// Stream is set by the client; use StreamChatCompletion instead of
	// setting it directly.
	Stream bool `json:"stream,omitempty"`
}

// ChatChoice is one completion alternative.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatResponse is a buffered chat completion.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

// Text returns the first choice's content, or "" when there is none.
func (r *ChatResponse) Text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// ChunkDelta is the incremental content of one streamed choice.
type ChunkDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ChunkChoice is one choice within a streamed chunk.
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason string     `json:"finish_reason,omitempty"`
}

// ChatCompletionChunk is one decoded frame of a streamed chat completion.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"`
}

// validateChatRequest checks request shape before dispatch.
func validateChatRequest(req *ChatRequest) error {
	if req == nil {
		return core.NewValidationError("request is required")
	}
	var fields []string
	if req.Model == "" {
		fields = append(fields, "model")
	}
	if len(req.Messages) == 0 {
		fields = append(fields, "messages")
	} else {
		for _, m := range req.Messages {
			if m.Content == "" {
				fields = append(fields, "messages.content")
				break
			}
		}
	}
	if len(fields) > 0 {
		return core.NewValidationError("missing required chat parameters", fields...)
	}
	return nil
}

// CreateChatCompletion sends a buffered chat completion request.
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := validateChatRequest(req); err != nil {
		return nil, err
	}

	body := *req
	body.Stream = false

	var resp ChatResponse
	if err := c.do(ctx, &apiRequest{
		method: http.MethodPost,
		path:   chatCompletionsPath,
		body:   &body,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StreamChatCompletion sends a chat completion request and returns the
// response as a stream of chunks. The caller must Close the stream.
func (c *Client) StreamChatCompletion(ctx context.Context, req *ChatRequest) (*ChatStream, error) {
	if err := validateChatRequest(req); err != nil {
		return nil, err
	}

	body := *req
	body.Stream = true

	es, err := c.stream(ctx, &apiRequest{
		method: http.MethodPost,
		path:   chatCompletionsPath,
		body:   &body,
		stream: true,
	})
	if err != nil {
		return nil, err
	}
	return &ChatStream{es: es}, nil
}

// ChatStream is a single-pass, forward-only sequence of chat completion
// chunks. It cannot be replayed once drained or closed.
type ChatStream struct {
	es *eventStream
}

// Recv returns the next chunk, blocking until one arrives. It returns
// io.EOF when the stream ends cleanly.
func (s *ChatStream) Recv() (*ChatCompletionChunk, error) {
	raw, err := s.es.Recv()
	if err != nil {
		return nil, err
	}
	var chunk ChatCompletionChunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, s.es.fail(&core.Error{
			Kind:    core.KindStreamProtocol,
			Message: "frame is not a chat completion chunk",
			Err:     err,
		})
	}
	return &chunk, nil
}

// Close aborts the stream. Closing a finished stream is a no-op.
func (s *ChatStream) Close() error {
	return s.es.Close()
}

// Drain consumes the remainder of the stream and assembles the buffered
// response from the accumulated deltas.
func (s *ChatStream) Drain() (*ChatResponse, error) {
	var content strings.Builder
	resp := &ChatResponse{}

	for {
		chunk, err := s.Recv()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if chunk.ID != "" {
			resp.ID = chunk.ID
		}
		if chunk.Model != "" {
			resp.Model = chunk.Model
		}
		if chunk.Created != 0 {
			resp.Created = chunk.Created
		}
		if chunk.Usage != nil {
			resp.Usage = *chunk.Usage
		}
		for _, choice := range chunk.Choices {
			if choice.Index != 0 {
				continue
			}
			content.WriteString(choice.Delta.Content)
			if choice.FinishReason != "" && len(resp.Choices) == 0 {
				resp.Choices = append(resp.Choices, ChatChoice{FinishReason: choice.FinishReason})
			}
		}
	}

	if len(resp.Choices) == 0 {
		resp.Choices = append(resp.Choices, ChatChoice{})
	}
	resp.Choices[0].Message = ChatMessage{Role: RoleAssistant, Content: content.String()}
	return resp, nil
}
