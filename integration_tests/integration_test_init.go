package integrationtest

import (
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
)

const testAPIKey = "test_api_key"

// mockOWM stands in for OpenWeatherMap and counts the calls it receives.
type mockOWM struct {
	*httptest.Server
	calls int32
}

func (m *mockOWM) Calls() int {
	return int(atomic.LoadInt32(&m.calls))
}

func newMockOWM() *mockOWM {
	m := &mockOWM{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.calls, 1)
		q := r.URL.Query().Get("q")
		if r.URL.Query().Get("appid") != testAPIKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
			return
		}
		switch q {
		case "Pune":
			w.Header().Set("Content-Type", "application/json")
			data, err := os.ReadFile("testdata/openweathermap_pune.json")
			if err != nil {
				_, _ = w.Write([]byte(`{"name":"Pune","main":{"temp":31.2,"humidity":45},"weather":[{"description":"clear sky"}],"sys":{"country":"IN"}}`))
				return
			}
			_, _ = w.Write(data)
		case "Nowhere":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"Nowhere","main":{"temp":12.0}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
		}
	}))
	return m
}
