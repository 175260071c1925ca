package venice

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const billingUsagePath = "/billing/usage"

// BillingUsageParams filters and pages the usage ledger. The zero value
// returns the first page with service defaults.
type BillingUsageParams struct {
	// Currency filters entries: "USD", "VCU", or "DIEM".
	Currency string

	// StartDate and EndDate bound the reporting interval.
	StartDate *time.Time
	EndDate   *time.Time

	// Page is 1-based; Limit is entries per page.
	Page  int
	Limit int
}

// BillingUsageEntry is one ledger line of token-economics usage.
type BillingUsageEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	SKU          string    `json:"sku"`
	Currency     string    `json:"currency"`
	Units        float64   `json:"units"`
	PricePerUnit float64   `json:"pricePerUnitUsd"`
	Amount       float64   `json:"amount"`
	Notes        string    `json:"notes,omitempty"`
}

// BillingPagination describes the page window of a usage response.
type BillingPagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// BillingUsageResponse is one page of the usage ledger.
type BillingUsageResponse struct {
	Data       []BillingUsageEntry `json:"data"`
	Pagination BillingPagination   `json:"pagination"`
}

// GetBillingUsage returns a page of the account's usage ledger.
func (c *Client) GetBillingUsage(ctx context.Context, params *BillingUsageParams) (*BillingUsageResponse, error) {
	query := url.Values{}
	if params != nil {
		if params.Currency != "" {
			query.Set("currency", params.Currency)
		}
		if params.StartDate != nil {
			query.Set("startDate", params.StartDate.Format(time.RFC3339))
		}
		if params.EndDate != nil {
			query.Set("endDate", params.EndDate.Format(time.RFC3339))
		}
		if params.Page > 0 {
			query.Set("page", strconv.Itoa(params.Page))
		}
		if params.Limit > 0 {
			query.Set("limit", strconv.Itoa(params.Limit))
		}
	}
	if len(query) == 0 {
		query = nil
	}

	var resp BillingUsageResponse
	if err := c.do(ctx, &apiRequest{
		method: http.MethodGet,
		path:   billingUsagePath,
		query:  query,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
