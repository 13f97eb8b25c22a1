package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fakhrymubarak/farm-weather/internal/cache"
	"github.com/fakhrymubarak/farm-weather/internal/config"
	"github.com/fakhrymubarak/farm-weather/internal/handler"
	"github.com/fakhrymubarak/farm-weather/internal/metrics"
	"github.com/fakhrymubarak/farm-weather/internal/middleware"
	"github.com/fakhrymubarak/farm-weather/internal/redis"
	"github.com/fakhrymubarak/farm-weather/internal/repository"
	"github.com/fakhrymubarak/farm-weather/internal/service"
)

// App wires configuration, the lookup service and the HTTP surface.
type App struct {
	settings config.Settings
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics

	Service *service.WeatherService
	Handler *handler.WeatherHandler

	cacheBackend string
	memCache     *cache.MemoryCache
	breaker      *repository.BreakerRepository
	cron         *cron.Cron
}

// New builds the application. A redis backend that cannot be reached falls back to the
// in-memory cache.
func New(ctx context.Context, s config.Settings, logger *zap.SugaredLogger) *App {
	a := &App{
		settings: s,
		logger:   logger,
		metrics:  metrics.New("farm_weather"),
	}

	var repo repository.WeatherRepository = repository.NewWeatherRepository(
		s.APIURL, &http.Client{Timeout: s.APITimeout})
	if s.Breaker.Enabled {
		a.breaker = repository.NewBreakerRepository("openweathermap", repository.BreakerConfig{
			Interval:    s.Breaker.Interval,
			Timeout:     s.Breaker.Timeout,
			MaxFailures: s.Breaker.MaxFailures,
		}, repo)
		repo = a.breaker
	}

	a.Service = service.NewWeatherService(repo, service.Options{
		Cache:         a.buildCache(ctx),
		Metrics:       a.metrics,
		Logger:        logger,
		CacheFailures: s.CacheFailures,
	})
	a.Handler = handler.NewWeatherHandler(a.Service, s.APIKey, logger)

	middleware.Configure(middleware.Limits{
		GlobalRate:  s.GlobalRate,
		GlobalBurst: s.GlobalBurst,
		ParamRate:   s.ParamRate,
		ParamBurst:  s.ParamBurst,
	})

	if s.APIKey == "" {
		logger.Warnw("No OpenWeatherMap key configured; weather lookups will be unavailable")
	}
	return a
}

func (a *App) buildCache(ctx context.Context) cache.Cache {
	if a.settings.CacheBackend == "redis" {
		err := redis.Ping(ctx)
		if err == nil {
			a.cacheBackend = "redis"
			a.logger.Infow("Using redis cache", "addr", a.settings.RedisAddr, "window", a.settings.CacheWindow)
			return cache.NewRedisCache(redis.GetClient(), a.settings.CacheWindow, a.logger)
		}
		a.logger.Warnw("Redis unavailable, falling back to memory cache", "addr", a.settings.RedisAddr, "error", err)
	}
	a.cacheBackend = "memory"
	a.memCache = cache.NewMemoryCache(a.settings.CacheWindow)
	return a.memCache
}

// Routes returns the HTTP handler with rate limiting on the lookup endpoints.
func (a *App) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/weather", middleware.RateLimitMiddleware(http.HandlerFunc(a.Handler.HandleWeather)))
	mux.Handle("/advice", middleware.RateLimitMiddleware(http.HandlerFunc(a.Handler.HandleAdvice)))
	mux.HandleFunc("/health", a.handleHealth)
	mux.Handle("/metrics", a.metrics.Handler())
	return a.metrics.Middleware(mux, "/weather", "/advice", "/health", "/metrics")
}

type health struct {
	Status           string `json:"status"`
	Cache            string `json:"cache"`
	APIKeyConfigured bool   `json:"api_key_configured"`
	Breaker          string `json:"breaker,omitempty"`
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := health{
		Status:           "ok",
		Cache:            a.cacheBackend,
		APIKeyConfigured: a.settings.APIKey != "",
	}
	if a.breaker != nil {
		h.Breaker = a.breaker.State()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(h)
}

// StartJanitor schedules the sweep of expired cache slots and idle rate-limit visitors.
func (a *App) StartJanitor() error {
	a.cron = cron.New()
	_, err := a.cron.AddFunc(a.settings.PruneSchedule, a.sweep)
	if err != nil {
		return err
	}
	a.cron.Start()
	return nil
}

func (a *App) sweep() {
	pruned := 0
	if a.memCache != nil {
		pruned = a.memCache.Prune()
	}
	visitors := middleware.CleanupVisitors(a.settings.VisitorMaxIdle)
	if pruned > 0 || visitors > 0 {
		a.logger.Debugw("Sweep complete", "cache_slots", pruned, "visitors", visitors)
	}
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.settings.Port,
		Handler:           a.Routes(),
		ReadHeaderTimeout: a.settings.ReadHeaderTimeout,
		ReadTimeout:       a.settings.ReadTimeout,
		WriteTimeout:      a.settings.WriteTimeout,
		IdleTimeout:       a.settings.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Infow("Farm weather server running", "port", a.settings.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	a.logger.Infow("Shutdown signal received")
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
