// Package mandi reads daily commodity prices published on data.gov.in (Agmarknet).
package mandi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	// ResourceID identifies the "current daily price of various commodities" dataset.
	ResourceID     = "9ef84268-d588-465a-a308-a864a43d0070"
	defaultBaseURL = "https://api.data.gov.in/resource/"

	DefaultMarket    = "Delhi"
	DefaultCommodity = "Mustard"
)

var (
	ErrMissingAPIKey = errors.New("mandi: api key is not configured")
	ErrNoRecord      = errors.New("mandi: no price record found")
)

// Record is one market arrival. Prices are rupees per quintal as published.
type Record struct {
	State       string `json:"state"`
	District    string `json:"district"`
	Market      string `json:"market"`
	Commodity   string `json:"commodity"`
	Variety     string `json:"variety"`
	Grade       string `json:"grade"`
	ArrivalDate string `json:"arrival_date"`
	MinPrice    string `json:"min_price"`
	MaxPrice    string `json:"max_price"`
	ModalPrice  string `json:"modal_price"`
}

// Client queries the data.gov.in resource API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient builds a client. baseURL may be empty to use the public endpoint.
func NewClient(apiKey, baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{apiKey: apiKey, baseURL: baseURL, http: httpClient}
}

// LatestPrice returns the first record for commodity at market.
func (c *Client) LatestPrice(ctx context.Context, market, commodity string) (*Record, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	q := url.Values{}
	q.Set("api-key", c.apiKey)
	q.Set("format", "json")
	q.Set("filters[market]", market)
	q.Set("filters[commodity]", commodity)
	q.Set("limit", "1")

	endpoint := c.baseURL + ResourceID + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mandi fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mandi fetch failed: status %d", resp.StatusCode)
	}

	var payload struct {
		Records []Record `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode mandi records: %w", err)
	}
	if len(payload.Records) == 0 {
		return nil, ErrNoRecord
	}
	return &payload.Records[0], nil
}
