package advisor

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fakhrymubarak/farm-weather/internal/model"
)

// Seed suggestions, in priority order.
const (
	SeedHighTemperature = "Millets or Sorghum"
	SeedHighHumidity    = "Rice or Sugarcane"
	SeedDefault         = "Wheat or Soybean"
)

// SeedRecommendation picks a crop suggestion from current readings. The temperature
// rule is checked first; an absent reading never satisfies its rule.
func SeedRecommendation(temperature, humidity *float64) string {
	if temperature != nil && *temperature > 30 {
		return SeedHighTemperature
	}
	if humidity != nil && *humidity > 70 {
		return SeedHighHumidity
	}
	return SeedDefault
}

// Summary renders the one-line weather report, e.g.
// "Pune, IN: 31.2°C, 45% humidity, Clear Sky".
func Summary(w *model.WeatherResult) string {
	var b strings.Builder
	b.WriteString(w.City)
	if w.Country != "" {
		b.WriteString(", ")
		b.WriteString(w.Country)
	}
	b.WriteString(": ")
	b.WriteString(formatReading(w.Temperature))
	b.WriteString("°C, ")
	b.WriteString(formatReading(w.Humidity))
	b.WriteString("% humidity, ")
	// Casers carry state, so one is built per call.
	b.WriteString(cases.Title(language.Und).String(w.Description))
	return b.String()
}

func formatReading(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Report bundles a lookup result with its derived advice.
func Report(w *model.WeatherResult) model.WeatherReport {
	return model.WeatherReport{
		Weather:         w,
		Summary:         Summary(w),
		SeedRecommended: SeedRecommendation(w.Temperature, w.Humidity),
	}
}
