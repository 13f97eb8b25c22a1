package config

import "time"

// Settings is the resolved runtime configuration, read once at startup.
type Settings struct {
	Port              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration

	APIURL     string
	APITimeout time.Duration
	APIKey     string

	CacheBackend  string
	CacheWindow   time.Duration
	CacheFailures bool
	PruneSchedule string
	RedisAddr     string

	Breaker BreakerConfig

	GlobalRate     float64
	GlobalBurst    int
	ParamRate      float64
	ParamBurst     int
	VisitorMaxIdle time.Duration

	LogFile string
}

// Load resolves every setting, including the provider credential.
func Load() Settings {
	s := Settings{
		Port:              GetServerPort(),
		ReadHeaderTimeout: GetServerTimeout("read_header_timeout"),
		ReadTimeout:       GetServerTimeout("read_timeout"),
		WriteTimeout:      GetServerTimeout("write_timeout"),
		IdleTimeout:       GetServerTimeout("idle_timeout"),
		APIURL:            GetOpenWeatherApiUrl(),
		APITimeout:        GetOpenWeatherTimeout(),
		APIKey:            GetOpenWeatherMapAPIKey(),
		CacheBackend:      GetCacheBackend(),
		CacheWindow:       GetCacheExpiration(),
		CacheFailures:     GetCacheFailures(),
		PruneSchedule:     GetCachePruneSchedule(),
		RedisAddr:         GetRedisAddr(),
		Breaker:           GetBreakerConfig(),
		VisitorMaxIdle:    GetRateLimiterCleanupTimeout(),
		LogFile:           GetLogFile(),
	}
	s.GlobalRate, s.GlobalBurst = GetGlobalRateLimiterConfig()
	s.ParamRate, s.ParamBurst = GetParamRateLimiterConfig()
	return s
}
