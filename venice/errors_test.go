package venice

import (
	"net/http"
	"testing"
	"time"

	"github.com/petal-labs/venice-go/core"
)

func TestNormalizeErrorStringBody(t *testing.T) {
	header := http.Header{}
	header.Set("x-request-id", "req-9")

	err := normalizeError(400, []byte(`{"error":"temperature must be a number"}`), header)

	if err.Kind != core.KindValidation {
		t.Errorf("Kind = %v, want KindValidation", err.Kind)
	}
	if err.Message != "temperature must be a number" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.RequestID != "req-9" {
		t.Errorf("RequestID = %q, want req-9", err.RequestID)
	}
}

func TestNormalizeErrorObjectBody(t *testing.T) {
	body := []byte(`{"error":{"code":"model_not_found","message":"no such model"}}`)
	err := normalizeError(404, body, http.Header{})

	if err.Kind != core.KindNotFound {
		t.Errorf("Kind = %v, want KindNotFound", err.Kind)
	}
	if err.Code != "model_not_found" {
		t.Errorf("Code = %q", err.Code)
	}
	if err.Message != "no such model" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNormalizeErrorUnparseableBody(t *testing.T) {
	err := normalizeError(502, []byte("<html>bad gateway</html>"), http.Header{})

	if err.Kind != core.KindTransient {
		t.Errorf("Kind = %v, want KindTransient", err.Kind)
	}
	// Falls back to the standard status text.
	if err.Message != http.StatusText(502) {
		t.Errorf("Message = %q, want %q", err.Message, http.StatusText(502))
	}
}

func TestNormalizeErrorRequestIDFallback(t *testing.T) {
	header := http.Header{}
	header.Set("cf-ray", "ray-77")

	err := normalizeError(500, nil, header)
	if err.RequestID != "ray-77" {
		t.Errorf("RequestID = %q, want ray-77", err.RequestID)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "15")

	err := normalizeError(429, nil, header)
	if err.Kind != core.KindRateLimited {
		t.Errorf("Kind = %v, want KindRateLimited", err.Kind)
	}
	if err.RetryAfter != 15*time.Second {
		t.Errorf("RetryAfter = %v, want 15s", err.RetryAfter)
	}
}

func TestRetryAfterHTTPDate(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", time.Now().Add(30*time.Second).UTC().Format(http.TimeFormat))

	err := normalizeError(429, nil, header)
	if err.RetryAfter <= 0 || err.RetryAfter > 31*time.Second {
		t.Errorf("RetryAfter = %v, want roughly 30s", err.RetryAfter)
	}
}

func TestRetryAfterGarbage(t *testing.T) {
	for _, v := range []string{"", "soon", "-5"} {
		header := http.Header{}
		if v != "" {
			header.Set("Retry-After", v)
		}
		if got := retryAfterFrom(header); got != 0 {
			t.Errorf("retryAfterFrom(%q) = %v, want 0", v, got)
		}
	}
}

func TestRetryAfterOnlyForRateLimits(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "15")

	err := normalizeError(503, nil, header)
	if err.RetryAfter != 0 {
		t.Errorf("RetryAfter = %v on a non-429, want 0", err.RetryAfter)
	}
}
