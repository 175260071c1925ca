package venice

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/petal-labs/venice-go/core"
)

const (
	apiKeysPath      = "/api_keys"
	apiKeyLimitsPath = "/api_keys/rate_limits"
)

// APIKey describes one provisioned key. The key material itself is only
// returned once, by CreateAPIKey.
type APIKey struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	KeyType     string     `json:"apiKeyType"`
	Last6Chars  string     `json:"last6Chars"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
}

// CreateAPIKeyRequest provisions a new key.
type CreateAPIKeyRequest struct {
	Description string     `json:"description"`
	KeyType     string     `json:"apiKeyType"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// CreateAPIKeyResponse carries the newly provisioned key. Key is the full
// secret value; it is shown exactly once.
type CreateAPIKeyResponse struct {
	APIKey
	Key core.Secret `json:"-"`
}

// createAPIKeyWire is the wire shape of the create response; the raw key
// is captured into a Secret and never kept as a plain string on the
// exported type.
type createAPIKeyWire struct {
	APIKey
	Key string `json:"apiKey"`
}

// RateLimit is one enforced limit for a model.
type RateLimit struct {
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
}

// ModelRateLimits groups the limits enforced for one model.
type ModelRateLimits struct {
	ModelID    string      `json:"apiModelId"`
	RateLimits []RateLimit `json:"rateLimits"`
}

// RateLimitInfo reports the caller's tier, balances, and per-model limits.
type RateLimitInfo struct {
	AccessPermitted bool               `json:"accessPermitted"`
	APITier         string             `json:"apiTier"`
	Balances        map[string]float64 `json:"balances"`
	RateLimits      []ModelRateLimits  `json:"rateLimits"`
}

// ListAPIKeys returns all keys on the account.
func (c *Client) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	var envelope listEnvelope[APIKey]
	if err := c.do(ctx, &apiRequest{
		method: http.MethodGet,
		path:   apiKeysPath,
	}, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// CreateAPIKey provisions a new key. The returned Key is the only time the
// full key material is available.
func (c *Client) CreateAPIKey(ctx context.Context, req *CreateAPIKeyRequest) (*CreateAPIKeyResponse, error) {
	if req == nil {
		return nil, core.NewValidationError("request is required")
	}
	if req.Description == "" {
		return nil, core.NewValidationError("missing required key parameters", "description")
	}

	var envelope struct {
		Data createAPIKeyWire `json:"data"`
	}
	if err := c.do(ctx, &apiRequest{
		method: http.MethodPost,
		path:   apiKeysPath,
		body:   req,
	}, &envelope); err != nil {
		return nil, err
	}

	return &CreateAPIKeyResponse{
		APIKey: envelope.Data.APIKey,
		Key:    core.NewSecret(envelope.Data.Key),
	}, nil
}

// DeleteAPIKey revokes a key by ID.
func (c *Client) DeleteAPIKey(ctx context.Context, id string) error {
	if id == "" {
		return core.NewValidationError("missing required key parameters", "id")
	}
	return c.do(ctx, &apiRequest{
		method: http.MethodDelete,
		path:   apiKeysPath,
		query:  url.Values{"id": {id}},
	}, nil)
}

// GetRateLimits returns the rate limits and balances for the current key.
func (c *Client) GetRateLimits(ctx context.Context) (*RateLimitInfo, error) {
	var envelope struct {
		Data RateLimitInfo `json:"data"`
	}
	if err := c.do(ctx, &apiRequest{
		method: http.MethodGet,
		path:   apiKeyLimitsPath,
	}, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}
