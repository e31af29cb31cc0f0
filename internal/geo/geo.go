// Package geo resolves coordinates to a city and state for mandi and chat context.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.bigdatacloud.net/data/reverse-geocode-client"

// Place is a resolved farm location.
type Place struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	City  string  `json:"city"`
	State string  `json:"state"`
}

// Client reverse-geocodes through BigDataCloud's keyless endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a client. baseURL may be empty to use the public endpoint.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: baseURL, http: httpClient, logger: logger.Named("geo")}
}

// Reverse never fails: a lookup error degrades to a Delhi/India placeholder.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) Place {
	place, err := c.lookup(ctx, lat, lon)
	if err != nil {
		c.logger.Warn("reverse geocode failed, using fallback place", zap.Error(err),
			zap.Float64("lat", lat), zap.Float64("lon", lon))
		return Place{Lat: lat, Lon: lon, City: "Delhi", State: "India"}
	}
	return place
}

func (c *Client) lookup(ctx context.Context, lat, lon float64) (Place, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("localityLanguage", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Place{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Place{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("reverse geocode: status %d", resp.StatusCode)
	}

	var payload struct {
		City                 string `json:"city"`
		PrincipalSubdivision string `json:"principalSubdivision"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Place{}, fmt.Errorf("decode reverse geocode: %w", err)
	}

	place := Place{Lat: lat, Lon: lon, City: payload.City, State: payload.PrincipalSubdivision}
	if place.City == "" {
		place.City = "New Delhi"
	}
	if place.State == "" {
		place.State = "Delhi"
	}
	return place, nil
}
