package integrationtest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/fakhrymubarak/farm-weather/internal/advisor"
	"github.com/fakhrymubarak/farm-weather/internal/app"
	"github.com/fakhrymubarak/farm-weather/internal/config"
	"github.com/fakhrymubarak/farm-weather/internal/handler"
	"github.com/fakhrymubarak/farm-weather/internal/middleware"
	"github.com/fakhrymubarak/farm-weather/internal/model"
	"github.com/fakhrymubarak/farm-weather/internal/redis"
)

type WeatherAPITestSuite struct {
	suite.Suite
	httpServer *httptest.Server
	miniRedis  *miniredis.Miniredis
	owm        *mockOWM
	settings   config.Settings
}

func (suite *WeatherAPITestSuite) SetupSuite() {
	suite.miniRedis = miniredis.NewMiniRedis()
	require.NoError(suite.T(), suite.miniRedis.Start())
	suite.owm = newMockOWM()

	suite.T().Setenv("REDIS_ADDR", suite.miniRedis.Addr())
	suite.T().Setenv("OPENWEATHERMAP_KEY", testAPIKey)
	config.ReloadConfigForTest()
	redis.ResetClientForTest()

	suite.settings = config.Load()
	suite.settings.APIURL = suite.owm.URL
	suite.settings.CacheBackend = "redis"
	suite.settings.GlobalRate, suite.settings.GlobalBurst = 1000, 1000
	suite.settings.ParamRate, suite.settings.ParamBurst = 1000, 1000
}

func (suite *WeatherAPITestSuite) SetupTest() {
	suite.miniRedis.FlushAll()
	middleware.ResetVisitors()
	a := app.New(context.Background(), suite.settings, zap.NewNop().Sugar())
	suite.httpServer = httptest.NewServer(a.Routes())
}

func (suite *WeatherAPITestSuite) TearDownTest() {
	suite.httpServer.Close()
}

func (suite *WeatherAPITestSuite) TearDownSuite() {
	if suite.owm != nil {
		suite.owm.Close()
	}
	if suite.miniRedis != nil {
		suite.miniRedis.Close()
	}
	redis.ResetClientForTest()
}

func TestWeatherAPITestSuite(t *testing.T) {
	suite.Run(t, new(WeatherAPITestSuite))
}

func (suite *WeatherAPITestSuite) get(path string) (*http.Response, []byte) {
	resp, err := suite.httpServer.Client().Get(suite.httpServer.URL + path)
	require.NoError(suite.T(), err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(suite.T(), err)
	return resp, body
}

func decodeData(t *testing.T, body []byte, out interface{}) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &env))
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func (suite *WeatherAPITestSuite) TestWeatherEndpoint() {
	tests := []struct {
		name       string
		path       string
		wantStatus int
		validate   func(t *testing.T, body []byte)
	}{
		{
			name:       "Failed - Missing city parameter",
			path:       "/weather",
			wantStatus: http.StatusBadRequest,
			validate: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), handler.MsgEnterCity)
			},
		},
		{
			name:       "Failed - Unknown city",
			path:       "/weather?city=Atlantis",
			wantStatus: http.StatusBadGateway,
			validate: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), handler.MsgWeatherFailed)
			},
		},
		{
			name:       "Failed - Payload without conditions",
			path:       "/weather?city=Nowhere",
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "Success - Valid city",
			path:       "/weather?city=Pune",
			wantStatus: http.StatusOK,
			validate: func(t *testing.T, body []byte) {
				var report model.WeatherReport
				decodeData(t, body, &report)
				assert.Equal(t, "Pune, IN: 31.2°C, 45% humidity, Clear Sky", report.Summary)
				assert.Equal(t, advisor.SeedHighTemperature, report.SeedRecommended)
				require.NotNil(t, report.Weather.Temperature)
				assert.InDelta(t, 31.2, *report.Weather.Temperature, 0.001)
			},
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			resp, body := suite.get(tt.path)
			assert.Equal(suite.T(), tt.wantStatus, resp.StatusCode)
			if tt.validate != nil {
				tt.validate(suite.T(), body)
			}
		})
	}
}

func (suite *WeatherAPITestSuite) TestRepeatedLookupIsServedFromRedis() {
	before := suite.owm.Calls()

	for i := 0; i < 3; i++ {
		resp, _ := suite.get("/weather?city=Pune")
		assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	}

	assert.Equal(suite.T(), before+1, suite.owm.Calls())
	keys := suite.miniRedis.Keys()
	require.Len(suite.T(), keys, 1)
	assert.NotContains(suite.T(), keys[0], testAPIKey)
}

func (suite *WeatherAPITestSuite) TestCacheExpiresAfterWindow() {
	before := suite.owm.Calls()
	suite.get("/weather?city=Pune")

	suite.miniRedis.FastForward(suite.settings.CacheWindow + time.Second)
	suite.get("/weather?city=Pune")

	assert.Equal(suite.T(), before+2, suite.owm.Calls())
}

func (suite *WeatherAPITestSuite) TestFailedLookupIsCached() {
	before := suite.owm.Calls()

	for i := 0; i < 2; i++ {
		resp, _ := suite.get("/weather?city=Atlantis")
		assert.Equal(suite.T(), http.StatusBadGateway, resp.StatusCode)
	}
	assert.Equal(suite.T(), before+1, suite.owm.Calls())
}

func (suite *WeatherAPITestSuite) TestAdviceEndpoint() {
	resp, body := suite.get("/advice?ph=5.5&moisture=20&temperature=30&crop=Rice&city=Pune")
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	var advice handler.AdviceResponse
	decodeData(suite.T(), body, &advice)
	assert.Equal(suite.T(), handler.StatusOK, advice.Weather.Status)
	require.NotNil(suite.T(), advice.Weather.Report)
	assert.Equal(suite.T(), "Pune", advice.Weather.Report.Weather.City)
	assert.NotEmpty(suite.T(), advice.Field.Soil)
}

func (suite *WeatherAPITestSuite) TestHealthReportsRedis() {
	resp, body := suite.get("/health")
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(suite.T(), string(body), `"cache":"redis"`)
	assert.Contains(suite.T(), string(body), `"api_key_configured":true`)
}
