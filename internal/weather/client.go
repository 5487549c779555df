// Package weather provides the OpenWeather collaborator client and the
// periodic polling task that feeds the alerting engine.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5"

// Client fetches current conditions and the short-range forecast.
type Client struct {
	apiKey     string
	lat, lon   float64
	baseURL    string
	httpClient *http.Client
	clock      clockwork.Clock
}

// NewClient creates an OpenWeather client for a fixed site location.
func NewClient(apiKey string, lat, lon float64, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		lat:     lat,
		lon:     lon,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		clock: clockwork.NewRealClock(),
	}
}

// SetBaseURL overrides the API endpoint, used in tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// SetClock overrides the sample-timestamp clock, used in tests.
func (c *Client) SetClock(clock clockwork.Clock) {
	c.clock = clock
}

// Observation is the raw current-conditions response subset we consume.
type Observation struct {
	Wind struct {
		Speed float64 `json:"speed"` // m/s
	} `json:"wind"`
	Main struct {
		Temp float64 `json:"temp"` // Celsius with units=metric
	} `json:"main"`
	Weather []struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"weather"`
}

// ForecastSlot is one 3-hour forecast window.
type ForecastSlot struct {
	Pop float64 `json:"pop"` // probability of precipitation, 0..1
}

// Current fetches current conditions.
func (c *Client) Current(ctx context.Context) (*Observation, error) {
	var obs Observation
	if err := c.get(ctx, "/weather", &obs); err != nil {
		return nil, err
	}
	return &obs, nil
}

// Forecast fetches the 3-hourly forecast list.
func (c *Client) Forecast(ctx context.Context) ([]ForecastSlot, error) {
	var resp struct {
		List []ForecastSlot `json:"list"`
	}
	if err := c.get(ctx, "/forecast", &resp); err != nil {
		return nil, err
	}
	return resp.List, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	params := url.Values{
		"lat":   {fmt.Sprintf("%.4f", c.lat)},
		"lon":   {fmt.Sprintf("%.4f", c.lon)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	fullURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("weather API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
