// Package weather summarises the OpenWeather five-day forecast for a farm location.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5/forecast"

// ErrMissingAPIKey is returned when no OpenWeather key is configured.
var ErrMissingAPIKey = errors.New("weather: api key is not configured")

// Day is one forecast entry, taken at midday.
type Day struct {
	Date      string `json:"date"`
	Temp      string `json:"temp"`
	Condition string `json:"condition"`
	Icon      string `json:"icon"`
}

// Summary is the current reading plus the midday forecast for the coming days.
type Summary struct {
	CurrentTemp      string `json:"current_temp"`
	CurrentCondition string `json:"current_condition"`
	CurrentIcon      string `json:"current_icon"`
	FiveDay          []Day  `json:"five_day_forecast"`
}

type forecastResponse struct {
	List []struct {
		Dt   int64  `json:"dt"`
		Text string `json:"dt_txt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Main string `json:"main"`
			Icon string `json:"icon"`
		} `json:"weather"`
	} `json:"list"`
}

// Client calls the OpenWeather forecast endpoint.
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

// Forecast fetches and summarises the forecast at lat/lon in metric units.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (*Summary, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("units", "metric")
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather fetch failed: status %d", resp.StatusCode)
	}

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}
	return summarize(payload)
}

func summarize(payload forecastResponse) (*Summary, error) {
	if len(payload.List) == 0 {
		return nil, errors.New("weather: forecast is empty")
	}

	current := payload.List[0]
	s := &Summary{CurrentTemp: celsius(current.Main.Temp)}
	if len(current.Weather) > 0 {
		s.CurrentCondition = current.Weather[0].Main
		s.CurrentIcon = current.Weather[0].Icon
	}

	for _, item := range payload.List {
		if !strings.Contains(item.Text, "12:00:00") {
			continue
		}
		day := Day{
			Date: time.Unix(item.Dt, 0).UTC().Format("Mon"),
			Temp: celsius(item.Main.Temp),
		}
		if len(item.Weather) > 0 {
			day.Condition = item.Weather[0].Main
			day.Icon = item.Weather[0].Icon
		}
		s.FiveDay = append(s.FiveDay, day)
	}
	return s, nil
}

// celsius rounds half away from zero like the dashboard always has.
func celsius(temp float64) string {
	return fmt.Sprintf("%d°C", int(math.Floor(temp+0.5)))
}
