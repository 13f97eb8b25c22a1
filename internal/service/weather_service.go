package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fakhrymubarak/farm-weather/internal/cache"
	"github.com/fakhrymubarak/farm-weather/internal/metrics"
	"github.com/fakhrymubarak/farm-weather/internal/model"
	"github.com/fakhrymubarak/farm-weather/internal/repository"
)

// WeatherServiceInterface is the lookup contract handlers depend on.
// A nil result means "no data" whatever the cause.
type WeatherServiceInterface interface {
	Lookup(ctx context.Context, city, apiKey string) *model.WeatherResult
}

// WeatherService serves lookups from the cache and falls back to the provider.
type WeatherService struct {
	WeatherRepo   repository.WeatherRepository
	Cache         cache.Cache
	Metrics       *metrics.Metrics
	Logger        *zap.SugaredLogger
	CacheFailures bool

	now func() time.Time
}

// Options configures a WeatherService. Nil Cache disables caching; nil Metrics and
// Logger are replaced with no-ops.
type Options struct {
	Cache         cache.Cache
	Metrics       *metrics.Metrics
	Logger        *zap.SugaredLogger
	CacheFailures bool
	Now           func() time.Time
}

func NewWeatherService(repo repository.WeatherRepository, opts Options) *WeatherService {
	s := &WeatherService{
		WeatherRepo:   repo,
		Cache:         opts.Cache,
		Metrics:       opts.Metrics,
		Logger:        opts.Logger,
		CacheFailures: opts.CacheFailures,
		now:           opts.Now,
	}
	if s.Logger == nil {
		s.Logger = zap.NewNop().Sugar()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Lookup returns current weather for city, or nil when none is available.
// It never returns an error: missing credential, transport failure, non-success status
// and malformed payload all collapse to nil.
func (s *WeatherService) Lookup(ctx context.Context, city, apiKey string) *model.WeatherResult {
	if apiKey == "" {
		s.observeLookup(metrics.OutcomeNoKey)
		return nil
	}

	key := cache.Key(city, apiKey)
	if s.Cache != nil {
		if entry, ok := s.Cache.Get(ctx, key); ok {
			s.observeLookup(metrics.OutcomeHit)
			return entry.Result
		}
	}

	start := s.now()
	weather, err := s.WeatherRepo.Fetch(ctx, city, apiKey)
	if s.Metrics != nil {
		s.Metrics.ObserveFetch(s.now().Sub(start), errorKind(err))
	}
	if err != nil {
		s.Logger.Warnw("weather lookup failed", "city", city, "kind", errorKind(err), "error", err)
		s.observeLookup(metrics.OutcomeFailure)
		weather = nil
	} else {
		s.observeLookup(metrics.OutcomeMiss)
	}

	// A lookup the caller abandoned is not an answer about the city.
	if errors.Is(err, repository.ErrCanceled) || ctx.Err() != nil {
		return weather
	}
	if s.Cache != nil && (weather != nil || s.CacheFailures) {
		s.Cache.Set(ctx, key, cache.Entry{Result: weather, FetchedAt: s.now()})
	}
	return weather
}

func (s *WeatherService) observeLookup(outcome string) {
	if s.Metrics != nil {
		s.Metrics.ObserveLookup(outcome)
	}
}

// errorKind names the failure kind for logs and metrics.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, repository.ErrAPIKeyMissing):
		return "missing_credential"
	case errors.Is(err, repository.ErrTransport):
		return "transport"
	case errors.Is(err, repository.ErrUnexpectedStatus):
		return "status"
	case errors.Is(err, repository.ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, repository.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, repository.ErrCanceled):
		return "canceled"
	default:
		return "unknown"
	}
}
