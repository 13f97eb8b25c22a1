package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fakhrymubarak/farm-weather/internal/advisor"
	"github.com/fakhrymubarak/farm-weather/internal/model"
	"github.com/fakhrymubarak/farm-weather/internal/service"
)

// Messages rendered for the three weather states.
const (
	MsgEnterCity      = "Enter a valid city to detect weather."
	MsgWeatherFailed  = "Could not fetch weather for that location."
	HintMissingAPIKey = "No OpenWeatherMap key found. Add it to the secrets file under " +
		"[api_keys] openweather=\"...\" or set the OPENWEATHERMAP_KEY env var."
)

// Weather states.
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
	StatusPrompt      = "prompt"
)

// WeatherBlock is the caller-facing weather section.
type WeatherBlock struct {
	Status  string               `json:"status"`
	Message string               `json:"message"`
	Hint    string               `json:"hint,omitempty"`
	Report  *model.WeatherReport `json:"report,omitempty"`
}

// AdviceResponse is the payload of the advice endpoint.
type AdviceResponse struct {
	Field   advisor.FieldAdvice `json:"field"`
	Weather WeatherBlock        `json:"weather"`
}

type WeatherHandler struct {
	WeatherService service.WeatherServiceInterface
	APIKey         string
	Logger         *zap.SugaredLogger

	now func() time.Time
}

// NewWeatherHandler binds the service to the credential resolved at startup.
func NewWeatherHandler(svc service.WeatherServiceInterface, apiKey string, logger *zap.SugaredLogger) *WeatherHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &WeatherHandler{
		WeatherService: svc,
		APIKey:         apiKey,
		Logger:         logger,
		now:            time.Now,
	}
}

func (h *WeatherHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Errorw("could not encode json", "error", err)
	}
}

func (h *WeatherHandler) writeError(w http.ResponseWriter, statusCode int, errMsg, hint string) {
	h.writeJSONResponse(w, statusCode, model.Response{
		Error:   &errMsg,
		Hint:    hint,
		Message: "Error",
	})
}

func (h *WeatherHandler) allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}
	w.Header().Set("Allow", http.MethodGet)
	h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	return false
}

// resolveWeather maps a city to one of the three weather states.
func (h *WeatherHandler) resolveWeather(r *http.Request, city string) WeatherBlock {
	city = strings.TrimSpace(city)
	if city == "" {
		return WeatherBlock{Status: StatusPrompt, Message: MsgEnterCity}
	}

	weather := h.WeatherService.Lookup(r.Context(), city, h.APIKey)
	if weather == nil {
		block := WeatherBlock{Status: StatusUnavailable, Message: MsgWeatherFailed}
		if h.APIKey == "" {
			block.Hint = HintMissingAPIKey
		}
		return block
	}

	report := advisor.Report(weather)
	return WeatherBlock{Status: StatusOK, Message: report.Summary, Report: &report}
}

// HandleWeather serves GET /weather?city=.
func (h *WeatherHandler) HandleWeather(w http.ResponseWriter, r *http.Request) {
	if !h.allowGet(w, r) {
		return
	}

	block := h.resolveWeather(r, r.URL.Query().Get("city"))
	switch block.Status {
	case StatusPrompt:
		h.writeError(w, http.StatusBadRequest, block.Message, "")
	case StatusUnavailable:
		h.writeError(w, http.StatusBadGateway, block.Message, block.Hint)
	default:
		h.writeJSONResponse(w, http.StatusOK, model.Response{
			Data:    block.Report,
			Message: "Success",
		})
	}
}

// HandleAdvice serves GET /advice with the field readings as query parameters.
// The weather section is included for every request; without a city it is a prompt.
func (h *WeatherHandler) HandleAdvice(w http.ResponseWriter, r *http.Request) {
	if !h.allowGet(w, r) {
		return
	}

	in, err := h.parseFieldInput(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, model.Response{
		Data: AdviceResponse{
			Field:   advisor.Advise(in, h.now()),
			Weather: h.resolveWeather(r, r.URL.Query().Get("city")),
		},
		Message: "Success",
	})
}

// parseFieldInput reads ph, moisture, temperature, crop and planted (YYYY-MM-DD).
// Missing readings take the form defaults: pH 6.5, moisture 30, 25°C, Wheat, today.
func (h *WeatherHandler) parseFieldInput(r *http.Request) (advisor.FieldInput, error) {
	q := r.URL.Query()
	in := advisor.FieldInput{
		PH:          6.5,
		Moisture:    30,
		Temperature: 25,
		Crop:        "Wheat",
		PlantDate:   h.now(),
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"ph", &in.PH},
		{"moisture", &in.Moisture},
		{"temperature", &in.Temperature},
	}
	for _, f := range floats {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return in, errors.New("invalid '" + f.name + "' query parameter")
		}
		*f.dst = v
	}

	if crop := strings.TrimSpace(q.Get("crop")); crop != "" {
		in.Crop = crop
	}
	if planted := q.Get("planted"); planted != "" {
		d, err := time.Parse(time.DateOnly, planted)
		if err != nil {
			return in, errors.New("invalid 'planted' query parameter, expected YYYY-MM-DD")
		}
		in.PlantDate = d
	}

	if err := in.Validate(); err != nil {
		return in, err
	}
	return in, nil
}
