package advisor

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidInput = errors.New("invalid field input")

// Crops offered by the advisor. Any other name gets the generic advice.
var Crops = []string{"Wheat", "Rice", "Tomato", "Soybean", "Sugarcane", "Millets"}

// Severity of an advice line.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
)

// FieldInput carries the soil, weather and crop readings entered for a field.
type FieldInput struct {
	PH          float64   `json:"ph"`
	Moisture    float64   `json:"moisture_percent"`
	Temperature float64   `json:"temperature_celsius"`
	Crop        string    `json:"crop"`
	PlantDate   time.Time `json:"plant_date"`
}

type Advice struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

type PlannerWeek struct {
	Week       int    `json:"week"`
	Label      string `json:"label"`
	Pest       string `json:"pest"`
	Fertilizer string `json:"fertilizer"`
}

// FieldAdvice is the full static advice for one field.
type FieldAdvice struct {
	Soil        []Advice      `json:"soil"`
	Fertilizer  string        `json:"fertilizer"`
	Watering    Advice        `json:"watering"`
	Supplements string        `json:"supplements"`
	WeeksSince  int           `json:"weeks_since_planting"`
	Planner     []PlannerWeek `json:"planner"`
}

// Validate checks the readings against the ranges the input form allows. NaN is never
// inside a range.
func (in FieldInput) Validate() error {
	switch {
	case !inRange(in.PH, 3.5, 9.0):
		return fmt.Errorf("%w: ph %.1f outside 3.5-9.0", ErrInvalidInput, in.PH)
	case !inRange(in.Moisture, 0, 100):
		return fmt.Errorf("%w: moisture %.0f outside 0-100", ErrInvalidInput, in.Moisture)
	case !inRange(in.Temperature, 0, 50):
		return fmt.Errorf("%w: temperature %.1f outside 0-50", ErrInvalidInput, in.Temperature)
	case in.Crop == "":
		return fmt.Errorf("%w: crop is required", ErrInvalidInput)
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// Advise applies the fixed rule tables to in. today anchors the planner.
func Advise(in FieldInput, today time.Time) FieldAdvice {
	weeks := WeeksSincePlanting(in.PlantDate, today)
	return FieldAdvice{
		Soil:        SoilAdvice(in.PH, in.Moisture, in.Temperature),
		Fertilizer:  FertilizerGuide(in.PH),
		Watering:    WateringSchedule(in.Moisture, in.Temperature),
		Supplements: PlantingSupplements(in.Crop),
		WeeksSince:  weeks,
		Planner:     Planner(in.Crop, weeks),
	}
}

func SoilAdvice(ph, moisture, temperature float64) []Advice {
	var out []Advice
	switch {
	case ph < 6:
		out = append(out, Advice{LevelWarning, "Soil acidic: consider treating with lime."})
	case ph > 8:
		out = append(out, Advice{LevelWarning, "Soil alkaline: sulfate-based fertilizers recommended."})
	default:
		out = append(out, Advice{LevelSuccess, "pH is balanced."})
	}

	if moisture < 30 {
		out = append(out, Advice{LevelInfo, "Moisture low: irrigation recommended."})
	} else {
		out = append(out, Advice{LevelSuccess, "Moisture adequate."})
	}

	if temperature > 35 {
		out = append(out, Advice{LevelWarning, "High temp: monitor crop water needs."})
	}
	return out
}

func FertilizerGuide(ph float64) string {
	switch {
	case ph < 6:
		return "Apply lime-based amendment (e.g., agricultural lime / calcium carbonate)."
	case ph > 8:
		return "Use sulfate fertilizers (e.g., ammonium sulfate, potassium sulfate)."
	default:
		return "Balanced NPK (e.g., 10-10-10) is suitable."
	}
}

// WateringSchedule checks moisture before temperature.
func WateringSchedule(moisture, temperature float64) Advice {
	switch {
	case moisture < 40:
		return Advice{LevelInfo, "Suggest watering every 2-3 days based on crop and soil type."}
	case temperature > 32:
		return Advice{LevelInfo, "High temp: water lightly daily, preferably early morning."}
	default:
		return Advice{LevelSuccess, "Current moisture and temperature support a 3-4 day watering cycle."}
	}
}

var supplements = map[string]string{
	"Wheat":     "Apply DAP + organic compost at seed level.",
	"Rice":      "Use urea + phosphorus-based fertilizer.",
	"Tomato":    "Add potassium nitrate and bio-fertilizers before planting.",
	"Sugarcane": "Apply farmyard manure + NPK with emphasis on nitrogen.",
	"Soybean":   "Use phosphorus-rich fertilizer and rhizobium inoculant where available.",
	"Millets":   "Light N application with organic compost; avoid over-fertilization.",
}

func PlantingSupplements(crop string) string {
	if s, ok := supplements[crop]; ok {
		return s
	}
	return "Use a standard NPK blend with organic compost."
}

type cropPlan struct{ pest, fertilizer string }

var plans = map[string]cropPlan{
	"Rice": {
		"Leaf folder / Stem borer: monitor leaf whorls and tillers.",
		"Top dress with urea in weeks 2-3; maintain standing water depth.",
	},
	"Wheat": {
		"Aphids / Armyworm: inspect earheads and flag leaves.",
		"Apply nitrogen in split doses (e.g., week 2).",
	},
	"Tomato": {
		"Fruit borer / Whiteflies: consider traps and regular scouting.",
		"Potash foliar spray recommended; maintain calcium levels.",
	},
	"Sugarcane": {
		"Early shoot borer: monitor for dead hearts.",
		"Nitrogen top dressing; ensure adequate potassium.",
	},
	"Soybean": {
		"Leaf-eating caterpillars: check defoliation levels.",
		"Phosphorus maintenance; avoid excess nitrogen.",
	},
	"Millets": {
		"Shoot fly / Stem borer: monitor seedlings and whorls.",
		"Light N in splits; keep soil moisture even.",
	},
}

var genericPlan = cropPlan{
	"General leaf feeders: watch leaves closely.",
	"Rotate NPK every 2 weeks.",
}

// Planner returns the next four weeks, numbered from the current week since planting.
func Planner(crop string, weeksSince int) []PlannerWeek {
	plan, ok := plans[crop]
	if !ok {
		plan = genericPlan
	}
	out := make([]PlannerWeek, 0, 4)
	for i := 1; i <= 4; i++ {
		week := weeksSince + i
		out = append(out, PlannerWeek{
			Week:       week,
			Label:      fmt.Sprintf("Week %d", week),
			Pest:       plan.pest,
			Fertilizer: plan.fertilizer,
		})
	}
	return out
}

// WeeksSincePlanting counts whole calendar weeks; a future date yields 0.
func WeeksSincePlanting(plantDate, today time.Time) int {
	if plantDate.IsZero() {
		return 0
	}
	days := int(civilDate(today).Sub(civilDate(plantDate)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days / 7
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
