package venice

import (
	"context"
	"net/http"
	"net/url"
)

const modelsPath = "/models"

// ModelSpec describes model capabilities as reported by the service.
type ModelSpec struct {
	AvailableContextTokens int      `json:"availableContextTokens,omitempty"`
	Traits                 []string `json:"traits,omitempty"`
	ModelSource            string   `json:"modelSource,omitempty"`
}

// Model is one entry of the model catalog.
type Model struct {
	ID      string    `json:"id"`
	Object  string    `json:"object"`
	Created int64     `json:"created"`
	OwnedBy string    `json:"owned_by"`
	Type    string    `json:"type"`
	Spec    ModelSpec `json:"model_spec"`
}

// ModelListParams filters the model catalog. The zero value lists
// everything.
type ModelListParams struct {
	// Type filters by model type: "text", "image", "embedding", or "all".
	Type string
}

// ListModels returns the model catalog, optionally filtered.
func (c *Client) ListModels(ctx context.Context, params *ModelListParams) ([]Model, error) {
	var query url.Values
	if params != nil && params.Type != "" {
		query = url.Values{"type": {params.Type}}
	}

	var envelope listEnvelope[Model]
	if err := c.do(ctx, &apiRequest{
		method: http.MethodGet,
		path:   modelsPath,
		query:  query,
	}, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}
