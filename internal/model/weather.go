package model

// WeatherQuery is a single lookup request. It is never persisted.
type WeatherQuery struct {
	City   string
	APIKey string
}

// WeatherResult is the normalized outcome of a successful lookup.
// Temperature (°C) and Humidity (%) are nil when the provider omitted them.
type WeatherResult struct {
	Temperature *float64 `json:"temperature_celsius"`
	Humidity    *float64 `json:"humidity_percent"`
	Description string   `json:"condition"`
	City        string   `json:"city"`
	Country     string   `json:"country,omitempty"`
}

// WeatherReport is what the weather endpoint renders for a successful lookup.
type WeatherReport struct {
	Weather         *WeatherResult `json:"weather"`
	Summary         string         `json:"summary"`
	SeedRecommended string         `json:"seed_recommendation"`
}
