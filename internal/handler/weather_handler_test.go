package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakhrymubarak/farm-weather/internal/advisor"
	"github.com/fakhrymubarak/farm-weather/internal/model"
	"github.com/fakhrymubarak/farm-weather/internal/service"
)

// Mock service for testing
type mockWeatherService struct {
	calls    int
	lastCity string
	mockData *model.WeatherResult
}

func (m *mockWeatherService) Lookup(ctx context.Context, city, apiKey string) *model.WeatherResult {
	m.calls++
	m.lastCity = city
	if apiKey == "" {
		return nil
	}
	return m.mockData
}

// Ensure mockWeatherService implements WeatherServiceInterface
var _ service.WeatherServiceInterface = (*mockWeatherService)(nil)

func ptr(v float64) *float64 { return &v }

var pune = &model.WeatherResult{
	City: "Pune", Country: "IN", Description: "clear sky",
	Temperature: ptr(31.2), Humidity: ptr(45),
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   *string         `json:"error"`
	Hint    string          `json:"hint"`
	Message string          `json:"message"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return env
}

func TestHandleWeather(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		apiKey         string
		mockData       *model.WeatherResult
		expectedStatus int
		expectedError  string
		expectedHint   bool
	}{
		{
			name:           "Missing city prompts",
			query:          "",
			apiKey:         "testkey",
			expectedStatus: http.StatusBadRequest,
			expectedError:  MsgEnterCity,
		},
		{
			name:           "Blank city prompts",
			query:          "?city=%20%20",
			apiKey:         "testkey",
			expectedStatus: http.StatusBadRequest,
			expectedError:  MsgEnterCity,
		},
		{
			name:           "Lookup failure",
			query:          "?city=Atlantis",
			apiKey:         "testkey",
			mockData:       nil,
			expectedStatus: http.StatusBadGateway,
			expectedError:  MsgWeatherFailed,
		},
		{
			name:           "Missing key adds a hint",
			query:          "?city=Pune",
			apiKey:         "",
			mockData:       pune,
			expectedStatus: http.StatusBadGateway,
			expectedError:  MsgWeatherFailed,
			expectedHint:   true,
		},
		{
			name:           "Successful weather request",
			query:          "?city=Pune",
			apiKey:         "testkey",
			mockData:       pune,
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockWeatherService{mockData: tt.mockData}
			h := NewWeatherHandler(svc, tt.apiKey, nil)

			req := httptest.NewRequest(http.MethodGet, "/weather"+tt.query, nil)
			rr := httptest.NewRecorder()
			h.HandleWeather(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			env := decode(t, rr)

			if tt.expectedError != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.expectedError, *env.Error)
				assert.Equal(t, tt.expectedHint, env.Hint != "")
				return
			}

			var report model.WeatherReport
			require.NoError(t, json.Unmarshal(env.Data, &report))
			assert.Equal(t, "Pune, IN: 31.2°C, 45% humidity, Clear Sky", report.Summary)
			assert.Equal(t, advisor.SeedHighTemperature, report.SeedRecommended)
			assert.Equal(t, "Pune", report.Weather.City)
		})
	}
}

func TestHandleWeather_PromptSkipsLookup(t *testing.T) {
	svc := &mockWeatherService{mockData: pune}
	h := NewWeatherHandler(svc, "testkey", nil)

	h.HandleWeather(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/weather", nil))
	assert.Equal(t, 0, svc.calls)
}

func TestHandleWeather_TrimsCity(t *testing.T) {
	svc := &mockWeatherService{mockData: pune}
	h := NewWeatherHandler(svc, "testkey", nil)

	h.HandleWeather(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/weather?city=%20Pune%20", nil))
	assert.Equal(t, "Pune", svc.lastCity)
}

func TestHandleWeather_MethodNotAllowed(t *testing.T) {
	h := NewWeatherHandler(&mockWeatherService{}, "testkey", nil)

	rr := httptest.NewRecorder()
	h.HandleWeather(rr, httptest.NewRequest(http.MethodPost, "/weather?city=Pune", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, http.MethodGet, rr.Header().Get("Allow"))
}

func TestHandleAdvice(t *testing.T) {
	svc := &mockWeatherService{mockData: pune}
	h := NewWeatherHandler(svc, "testkey", nil)
	h.now = func() time.Time { return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC) }

	req := httptest.NewRequest(http.MethodGet,
		"/advice?ph=5.5&moisture=20&temperature=36&crop=Rice&planted=2025-06-01&city=Pune", nil)
	rr := httptest.NewRecorder()
	h.HandleAdvice(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	env := decode(t, rr)
	var resp AdviceResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))

	assert.Equal(t, 2, resp.Field.WeeksSince)
	assert.Equal(t, "Week 3", resp.Field.Planner[0].Label)
	assert.Len(t, resp.Field.Soil, 3)
	assert.Contains(t, resp.Field.Supplements, "urea")
	assert.Equal(t, StatusOK, resp.Weather.Status)
	require.NotNil(t, resp.Weather.Report)
	assert.Equal(t, advisor.SeedHighTemperature, resp.Weather.Report.SeedRecommended)
}

func TestHandleAdvice_DefaultsAndPrompt(t *testing.T) {
	svc := &mockWeatherService{}
	h := NewWeatherHandler(svc, "testkey", nil)

	rr := httptest.NewRecorder()
	h.HandleAdvice(rr, httptest.NewRequest(http.MethodGet, "/advice", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp AdviceResponse
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &resp))
	assert.Equal(t, StatusPrompt, resp.Weather.Status)
	assert.Equal(t, MsgEnterCity, resp.Weather.Message)
	assert.Equal(t, 0, resp.Field.WeeksSince)
	assert.Equal(t, 0, svc.calls)
}

func TestHandleAdvice_InvalidInput(t *testing.T) {
	h := NewWeatherHandler(&mockWeatherService{}, "testkey", nil)

	for _, query := range []string{"ph=abc", "ph=12", "ph=NaN", "moisture=-5", "temperature=NaN", "planted=15-06-2025"} {
		t.Run(query, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.HandleAdvice(rr, httptest.NewRequest(http.MethodGet, "/advice?"+query, nil))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}
