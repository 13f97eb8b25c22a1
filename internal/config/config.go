package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var once sync.Once
var logger *zap.SugaredLogger
var loggerMu sync.Mutex

// isTestRun returns true if the current process is a Go test binary.
func isTestRun() bool {
	return flag.Lookup("test.v") != nil || filepath.Ext(os.Args[0]) == ".test"
}

func initConfig() {
	once.Do(func() {
		root, err := getProjectRoot()
		if err != nil {
			GetLogger().Errorw("Error finding project root", "error", err)
		}
		setDefaults()
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
		viper.AddConfigPath(root)
		if err = viper.ReadInConfig(); err != nil {
			GetLogger().Errorw("Error reading config file", "error", err)
		}

		if isTestRun() {
			viper.SetConfigName("config_test")
			if err = viper.MergeInConfig(); err != nil {
				GetLogger().Errorw("Error merging test config file", "error", err)
			}
		}
	})
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_header_timeout", "15s")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "20s")
	viper.SetDefault("server.idle_timeout", "30s")
	viper.SetDefault("openweathermap.api_url", "https://api.openweathermap.org/data/2.5/weather")
	viper.SetDefault("openweathermap.timeout", "10s")
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.expiration", "10m")
	viper.SetDefault("cache.cache_failures", true)
	viper.SetDefault("cache.prune_schedule", "@every 1m")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("breaker.enabled", true)
	viper.SetDefault("breaker.interval", "60s")
	viper.SetDefault("breaker.timeout", "30s")
	viper.SetDefault("breaker.max_failures", 5)
	viper.SetDefault("secrets.file", ".secrets.toml")
}

func getProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// getDuration parses a duration key, falling back to def when unset or invalid.
func getDuration(key string, def time.Duration) time.Duration {
	initConfig()
	durStr := viper.GetString(key)
	if durStr == "" {
		return def
	}
	dur, err := time.ParseDuration(durStr)
	if err != nil {
		GetLogger().Warnw("Invalid duration in config, using default", "key", key, "value", durStr, "default", def)
		return def
	}
	return dur
}

func GetOpenWeatherApiUrl() string {
	initConfig()
	return viper.GetString("openweathermap.api_url")
}

// GetOpenWeatherTimeout bounds a single outbound provider call.
func GetOpenWeatherTimeout() time.Duration {
	return getDuration("openweathermap.timeout", 10*time.Second)
}

// GetOpenWeatherMapAPIKey resolves the provider credential from the secrets file first,
// then from the environment. An empty string means no key is configured.
func GetOpenWeatherMapAPIKey() string {
	initConfig()
	return ResolveAPIKey(resolvePath(viper.GetString("secrets.file")))
}

// ResolveAPIKey reads [api_keys] openweather from the TOML file at secretsFile and falls
// back to OPENWEATHERMAP_KEY, then OPENWEATHERMAP_API_KEY (after loading .env).
func ResolveAPIKey(secretsFile string) string {
	if secretsFile != "" {
		if _, err := os.Stat(secretsFile); err == nil {
			v := viper.New()
			v.SetConfigFile(secretsFile)
			v.SetConfigType("toml")
			if err := v.ReadInConfig(); err != nil {
				GetLogger().Warnw("Error reading secrets file", "file", secretsFile, "error", err)
			} else if key := strings.TrimSpace(v.GetString("api_keys.openweather")); key != "" {
				return key
			}
		}
	}

	_ = godotenv.Load()
	if key := os.Getenv("OPENWEATHERMAP_KEY"); key != "" {
		return key
	}
	return os.Getenv("OPENWEATHERMAP_API_KEY")
}

func resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	root, err := getProjectRoot()
	if err != nil {
		return p
	}
	return filepath.Join(root, p)
}

func GetRedisAddr() string {
	initConfig()
	return viper.GetString("redis.addr")
}

func GetServerPort() string {
	initConfig()
	return viper.GetString("server.port")
}

// GetCacheBackend returns "memory" or "redis".
func GetCacheBackend() string {
	initConfig()
	return strings.ToLower(viper.GetString("cache.backend"))
}

// GetCacheExpiration returns the cache window. Defaults to 10m.
func GetCacheExpiration() time.Duration {
	return getDuration("cache.expiration", 10*time.Minute)
}

func GetCacheFailures() bool {
	initConfig()
	return viper.GetBool("cache.cache_failures")
}

func GetCachePruneSchedule() string {
	initConfig()
	return viper.GetString("cache.prune_schedule")
}

func GetServerTimeout(key string) time.Duration {
	return getDuration("server."+key, 15*time.Second)
}

// BreakerConfig holds the circuit breaker settings for the provider client.
type BreakerConfig struct {
	Enabled     bool
	Interval    time.Duration
	Timeout     time.Duration
	MaxFailures uint32
}

func GetBreakerConfig() BreakerConfig {
	initConfig()
	maxFailures := viper.GetUint32("breaker.max_failures")
	if maxFailures == 0 {
		maxFailures = 5
	}
	return BreakerConfig{
		Enabled:     viper.GetBool("breaker.enabled"),
		Interval:    getDuration("breaker.interval", time.Minute),
		Timeout:     getDuration("breaker.timeout", 30*time.Second),
		MaxFailures: maxFailures,
	}
}

// GetLogFile returns the rotating log file path; empty disables file logging.
func GetLogFile() string {
	initConfig()
	return viper.GetString("log.file")
}

// ReloadConfigForTest resets the config singleton and reloads Viper config. Use only in tests.
func ReloadConfigForTest() {
	once = sync.Once{}
	initConfig()
}

func GetLogger() *zap.SugaredLogger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		logger = l.Sugar()
	}
	return logger
}

// SetupLogger rebuilds the shared logger. When filePath is set, entries are also written
// as JSON to a size-rotated file.
func SetupLogger(filePath string) *zap.SugaredLogger {
	consoleCfg := zap.NewDevelopmentEncoderConfig()
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stdout), zapcore.DebugLevel),
	}
	if filePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotator),
			zapcore.InfoLevel,
		))
	}
	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar()

	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
	return l
}

// GetRateLimiterCleanupTimeout returns the rate limiter cleanup timeout as a time.Duration.
// Defaults to 3m if not set or invalid.
func GetRateLimiterCleanupTimeout() time.Duration {
	return getDuration("rate_limiter.cleanup_timeout", 3*time.Minute)
}

// GetGlobalRateLimiterConfig returns the per-minute rate and burst for the global rate limiter.
func GetGlobalRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.global.rate")
	if rate == 0 {
		rate = 10
	}
	burst = viper.GetInt("rate_limiter.global.burst")
	if burst == 0 {
		burst = 10
	}
	return
}

// GetParamRateLimiterConfig returns the per-minute rate and burst for the per-city rate limiter.
func GetParamRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.param.rate")
	if rate == 0 {
		rate = 2
	}
	burst = viper.GetInt("rate_limiter.param.burst")
	if burst == 0 {
		burst = 2
	}
	return
}
