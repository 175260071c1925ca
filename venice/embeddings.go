package venice

import (
	"context"
	"net/http"

	"github.com/petal-labs/venice-go/core"
)

const embeddingsPath = "/embeddings"

// EmbeddingRequest is an embedding generation request.
type EmbeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
	Dimensions     *int     `json:"dimensions,omitempty"`
}

// Embedding is one embedded input.
type Embedding struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingResponse carries the embeddings in input order.
type EmbeddingResponse struct {
	Object string      `json:"object"`
	Model  string      `json:"model"`
	Data   []Embedding `json:"data"`
	Usage  Usage       `json:"usage"`
}

// CreateEmbeddings generates embeddings for the given inputs.
func (c *Client) CreateEmbeddings(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	if req == nil {
		return nil, core.NewValidationError("request is required")
	}
	var fields []string
	if req.Model == "" {
		fields = append(fields, "model")
	}
	if len(req.Input) == 0 {
		fields = append(fields, "input")
	}
	if len(fields) > 0 {
		return nil, core.NewValidationError("missing required embedding parameters", fields...)
	}

	var resp EmbeddingResponse
	if err := c.do(ctx, &apiRequest{
		method: http.MethodPost,
		path:   embeddingsPath,
		body:   req,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
