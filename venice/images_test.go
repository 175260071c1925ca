package venice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/petal-labs/venice-go/core"
)

func TestGenerateImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/image/generate" {
			t.Errorf("Path = %q, want /image/generate", r.URL.Path)
		}
		var req ImageGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "flux-dev" || req.Prompt != "a lighthouse at dusk" {
			t.Errorf("request = %+v", req)
		}
		if req.Width != 1024 || req.StylePreset != "Photographic" {
			t.Errorf("request = %+v", req)
		}
		fmt.Fprint(w, `{"id":"img-1","images":["aGVsbG8="],"timing":{"total":812.5}}`)
	}))
	defer server.Close()

	client := New("test-key", WithBaseURL(server.URL))

	resp, err := client.GenerateImage(context.Background(), &ImageGenerateRequest{
		Model:       "flux-dev",
		Prompt:      "a lighthouse at dusk",
		Width:       1024,
		Height:      1024,
		StylePreset: "Photographic",
	})
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if len(resp.Images) != 1 || resp.Images[0] != "aGVsbG8=" {
		t.Errorf("Images = %v", resp.Images)
	}
	if resp.Timing.Total != 812.5 {
		t.Errorf("Timing.Total = %v, want 812.5", resp.Timing.Total)
	}
}

func TestGenerateImageValidation(t *testing.T) {
	client := New("test-key")

	_, err := client.GenerateImage(context.Background(), &ImageGenerateRequest{})
	var apiErr *core.Error
	if !errors.As(err, &apiErr) || apiErr.Kind != core.KindValidation {
		t.Fatalf("error = %v, want validation", err)
	}
	if len(apiErr.Fields) != 2 {
		t.Errorf("Fields = %v, want [model prompt]", apiErr.Fields)
	}

	if _, err := client.GenerateImage(context.Background(), nil); err == nil {
		t.Error("GenerateImage(nil) error = nil, want validation error")
	}
}

func TestListImageStyles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/image/styles" {
			t.Errorf("Path = %q, want /image/styles", r.URL.Path)
		}
		fmt.Fprint(w, `{"object":"list","data":["3D Model","Photographic","Anime"]}`)
	}))
	defer server.Close()

	client := New("test-key", WithBaseURL(server.URL))

	styles, err := client.ListImageStyles(context.Background())
	if err != nil {
		t.Fatalf("ListImageStyles() error = %v", err)
	}
	if len(styles) != 3 || styles[1] != "Photographic" {
		t.Errorf("styles = %v", styles)
	}
}
