package venice

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetBillingUsage(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/billing/usage" {
			t.Errorf("Path = %q, want /billing/usage", r.URL.Path)
		}
		q := r.URL.Query()
		if got := q.Get("currency"); got != "USD" {
			t.Errorf("currency = %q, want USD", got)
		}
		if got := q.Get("startDate"); got != start.Format(time.RFC3339) {
			t.Errorf("startDate = %q", got)
		}
		if got := q.Get("endDate"); got != end.Format(time.RFC3339) {
			t.Errorf("endDate = %q", got)
		}
		if got := q.Get("page"); got != "2" {
			t.Errorf("page = %q, want 2", got)
		}
		if got := q.Get("limit"); got != "50" {
			t.Errorf("limit = %q, want 50", got)
		}
		fmt.Fprint(w, `{
			"data":[{
				"timestamp":"2026-08-15T10:00:00Z",
				"sku":"llama-3.3-70b-llm-output-mtoken",
				"currency":"USD","units":0.25,"pricePerUnitUsd":2.8,"amount":0.7
			}],
			"pagination":{"page":2,"limit":50,"total":51,"totalPages":2}
		}`)
	}))
	defer server.Close()

	client := New("test-key", WithBaseURL(server.URL))

	resp, err := client.GetBillingUsage(context.Background(), &BillingUsageParams{
		Currency:  "USD",
		StartDate: &start,
		EndDate:   &end,
		Page:      2,
		Limit:     50,
	})
	if err != nil {
		t.Fatalf("GetBillingUsage() error = %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("Data = %+v", resp.Data)
	}
	if resp.Data[0].Amount != 0.7 || resp.Data[0].Currency != "USD" {
		t.Errorf("entry = %+v", resp.Data[0])
	}
	if resp.Pagination.TotalPages != 2 {
		t.Errorf("Pagination = %+v", resp.Pagination)
	}
}

func TestGetBillingUsageDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("query = %q, want none", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"data":[],"pagination":{"page":1,"limit":200,"total":0,"totalPages":0}}`)
	}))
	defer server.Close()

	client := New("test-key", WithBaseURL(server.URL))

	resp, err := client.GetBillingUsage(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetBillingUsage() error = %v", err)
	}
	if len(resp.Data) != 0 {
		t.Errorf("Data = %+v, want empty", resp.Data)
	}
}
