package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fakhrymubarak/farm-weather/internal/model"
)

// BreakerConfig controls when the breaker trips and how long it stays open.
type BreakerConfig struct {
	Interval    time.Duration
	Timeout     time.Duration
	MaxFailures uint32
}

// BreakerRepository short-circuits provider calls after repeated failures.
// It never retries; an open breaker fails fast with ErrCircuitOpen.
type BreakerRepository struct {
	cb      *gobreaker.CircuitBreaker
	wrapped WeatherRepository
}

// NewBreakerRepository wraps wrapped with a breaker that opens after cfg.MaxFailures
// consecutive provider failures.
func NewBreakerRepository(name string, cfg BreakerConfig, wrapped WeatherRepository) *BreakerRepository {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// A missing key is a configuration state and a canceled call is the caller's
		// doing; neither is a provider fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrAPIKeyMissing) || errors.Is(err, ErrCanceled)
		},
	}
	return &BreakerRepository{
		cb:      gobreaker.NewCircuitBreaker(settings),
		wrapped: wrapped,
	}
}

// Fetch calls the wrapped repository through the breaker. An open breaker returns
// ErrCircuitOpen without a network call; an already canceled ctx never reaches the breaker.
func (b *BreakerRepository) Fetch(ctx context.Context, city, apiKey string) (*model.WeatherResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.wrapped.Fetch(ctx, city, apiKey)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}
	weather, ok := result.(*model.WeatherResult)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected result type %T", ErrMalformedPayload, result)
	}
	return weather, nil
}

// State reports the breaker state for health output.
func (b *BreakerRepository) State() string {
	return b.cb.State().String()
}
