package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fakhrymubarak/farm-weather/internal/model"
)

// DefaultOpenWeatherURL is the OpenWeatherMap current-weather endpoint.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// Failure kinds of a provider call. The service collapses all of them to "no data".
var (
	ErrAPIKeyMissing    = errors.New("API key missing")
	ErrTransport        = errors.New("transport failure")
	ErrUnexpectedStatus = errors.New("non-success status")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrCircuitOpen      = errors.New("provider circuit open")

	// ErrCanceled means the caller gave up before the provider answered. It says
	// nothing about the provider's health.
	ErrCanceled = errors.New("lookup canceled by caller")
)

// WeatherRepository fetches current conditions for a city from the weather provider.
type WeatherRepository interface {
	Fetch(ctx context.Context, city, apiKey string) (*model.WeatherResult, error)
}

// weatherRepository implements WeatherRepository against OpenWeatherMap
type weatherRepository struct {
	apiURL     string
	httpClient *http.Client
}

// NewWeatherRepository creates a provider client. An empty apiURL selects the public
// OpenWeatherMap endpoint; a nil httpClient gets a 10s timeout.
func NewWeatherRepository(apiURL string, httpClient *http.Client) WeatherRepository {
	if apiURL == "" {
		apiURL = DefaultOpenWeatherURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &weatherRepository{
		apiURL:     apiURL,
		httpClient: httpClient,
	}
}

// Fetch issues exactly one GET to the provider unless apiKey is empty.
func (r *weatherRepository) Fetch(ctx context.Context, city, apiKey string) (*model.WeatherResult, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	u, err := url.Parse(r.apiURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	q := u.Query()
	q.Set("q", city)
	q.Set("appid", apiKey)
	q.Set("units", "metric")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var data model.OpenWeatherMapResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return toResult(city, &data)
}

// toResult requires the main block and at least one condition entry; everything else
// is read defensively.
func toResult(city string, data *model.OpenWeatherMapResponse) (*model.WeatherResult, error) {
	if data.Main == nil {
		return nil, fmt.Errorf("%w: missing main block", ErrMalformedPayload)
	}
	if len(data.Weather) == 0 {
		return nil, fmt.Errorf("%w: missing weather conditions", ErrMalformedPayload)
	}

	weather := &model.WeatherResult{
		Temperature: data.Main.Temp,
		Humidity:    data.Main.Humidity,
		City:        city,
	}
	if d := data.Weather[0].Description; d != nil {
		weather.Description = *d
	}
	if data.Name != nil && *data.Name != "" {
		weather.City = *data.Name
	}
	if data.Sys != nil {
		weather.Country = data.Sys.Country
	}
	return weather, nil
}
