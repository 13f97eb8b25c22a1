package model

// OpenWeatherMapResponse is the subset of the current-weather payload the lookup reads.
// Pointers distinguish missing fields from zero values.
type OpenWeatherMapResponse struct {
	Name *string `json:"name"`
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string  `json:"main"`
		Description *string `json:"description"`
	} `json:"weather"`
	Sys *struct {
		Country string `json:"country"`
	} `json:"sys"`
}
