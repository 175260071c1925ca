package venice

import (
	"context"
	"net/http"

	"github.com/petal-labs/venice-go/core"
)

const (
	imageGeneratePath = "/image/generate"
	imageStylesPath   = "/image/styles"
)

// ImageGenerateRequest is an image generation request.
type ImageGenerateRequest struct {
	Model          string   `json:"model"`
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negative_prompt,omitempty"`
	Width          int      `json:"width,omitempty"`
	Height         int      `json:"height,omitempty"`
	Steps          int      `json:"steps,omitempty"`
	Seed           int64    `json:"seed,omitempty"`
	CfgScale       *float64 `json:"cfg_scale,omitempty"`
	StylePreset    string   `json:"style_preset,omitempty"`
	Format         string   `json:"format,omitempty"`
	HideWatermark  bool     `json:"hide_watermark,omitempty"`
	SafeMode       *bool    `json:"safe_mode,omitempty"`
}

// ImageTiming reports server-side generation timing in milliseconds.
type ImageTiming struct {
	InferenceDuration          float64 `json:"inferenceDuration"`
	InferencePreprocessingTime float64 `json:"inferencePreprocessingTime"`
	InferenceQueueTime         float64 `json:"inferenceQueueTime"`
	Total                      float64 `json:"total"`
}

// ImageGenerateResponse carries the generated images as base64 payloads.
type ImageGenerateResponse struct {
	ID      string      `json:"id"`
	Images  []string    `json:"images"`
	Timing  ImageTiming `json:"timing"`
	Request any         `json:"request,omitempty"`
}

// GenerateImage generates images from a text prompt.
func (c *Client) GenerateImage(ctx context.Context, req *ImageGenerateRequest) (*ImageGenerateResponse, error) {
	if req == nil {
		return nil, core.NewValidationError("request is required")
	}
	var fields []string
	if req.Model == "" {
		fields = append(fields, "model")
	}
	if req.Prompt == "" {
		fields = append(fields, "prompt")
	}
	if len(fields) > 0 {
		return nil, core.NewValidationError("missing required image parameters", fields...)
	}

	var resp ImageGenerateResponse
	if err := c.do(ctx, &apiRequest{
		method: http.MethodPost,
		path:   imageGeneratePath,
		body:   req,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListImageStyles returns the style presets accepted by GenerateImage.
func (c *Client) ListImageStyles(ctx context.Context) ([]string, error) {
	var envelope listEnvelope[string]
	if err := c.do(ctx, &apiRequest{
		method: http.MethodGet,
		path:   imageStylesPath,
	}, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}
