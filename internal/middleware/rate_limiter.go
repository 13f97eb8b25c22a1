package middleware

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/fakhrymubarak/farm-weather/internal/model"
)

// paramKey is the query parameter key used for per-param rate limiting (default: "city").
var paramKey = "city"

// SetParamKey sets the query parameter key for per-param rate limiting. Used primarily for testing.
func SetParamKey(key string) {
	paramKey = key
}

// Limits are expressed per minute.
type Limits struct {
	GlobalRate  float64
	GlobalBurst int
	ParamRate   float64
	ParamBurst  int
}

var limits = Limits{GlobalRate: 10, GlobalBurst: 10, ParamRate: 2, ParamBurst: 2}

// Configure replaces the limits applied to visitors created afterwards.
func Configure(l Limits) {
	muGlobal.Lock()
	muParam.Lock()
	limits = l
	muParam.Unlock()
	muGlobal.Unlock()
}

// the visitor holds the rate limiter and last seen time for a specific IP address.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	// globalVisitors maps IP addresses to their visitor for global rate limiting.
	globalVisitors = make(map[string]*visitor) // key: ip
	// paramVisitors maps IP addresses and parameter values to their visitor for per-param rate limiting.
	paramVisitors = make(map[string]map[string]*visitor) // key: ip -> paramValue -> visitor
	muGlobal      sync.Mutex
	muParam       sync.Mutex
)

func perMinute(n float64) rate.Limit {
	return rate.Limit(n / 60.0)
}

// getGlobalLimiter returns the rate limiter for the given IP address, creating one if it does not exist,
// along with the per-minute rate in force.
func getGlobalLimiter(ip string) (*rate.Limiter, float64) {
	muGlobal.Lock()
	defer muGlobal.Unlock()
	v, exists := globalVisitors[ip]
	if !exists {
		limiter := rate.NewLimiter(perMinute(limits.GlobalRate), limits.GlobalBurst)
		globalVisitors[ip] = &visitor{limiter, time.Now()}
		return limiter, limits.GlobalRate
	}
	v.lastSeen = time.Now()
	return v.limiter, limits.GlobalRate
}

// getParamLimiter returns the rate limiter for the given IP address and parameter value, creating one if it does not exist,
// along with the per-minute rate in force.
func getParamLimiter(ip, param string) (*rate.Limiter, float64) {
	muParam.Lock()
	defer muParam.Unlock()
	if _, ok := paramVisitors[ip]; !ok {
		paramVisitors[ip] = make(map[string]*visitor)
	}
	v, exists := paramVisitors[ip][param]
	if !exists {
		limiter := rate.NewLimiter(perMinute(limits.ParamRate), limits.ParamBurst)
		paramVisitors[ip][param] = &visitor{limiter, time.Now()}
		return limiter, limits.ParamRate
	}
	v.lastSeen = time.Now()
	return v.limiter, limits.ParamRate
}

// CleanupVisitors removes visitors idle for longer than maxIdle and returns how many were dropped.
func CleanupVisitors(maxIdle time.Duration) int {
	removed := 0

	muGlobal.Lock()
	for ip, v := range globalVisitors {
		if time.Since(v.lastSeen) > maxIdle {
			delete(globalVisitors, ip)
			removed++
		}
	}
	muGlobal.Unlock()

	muParam.Lock()
	for ip, paramMap := range paramVisitors {
		for param, v := range paramMap {
			if time.Since(v.lastSeen) > maxIdle {
				delete(paramMap, param)
				removed++
			}
		}
		if len(paramMap) == 0 {
			delete(paramVisitors, ip)
		}
	}
	muParam.Unlock()

	return removed
}

// ResetVisitors clears all visitor states for both global and per-param limiters. Used primarily for testing.
func ResetVisitors() {
	muGlobal.Lock()
	for k := range globalVisitors {
		delete(globalVisitors, k)
	}
	muGlobal.Unlock()
	muParam.Lock()
	for k := range paramVisitors {
		delete(paramVisitors, k)
	}
	muParam.Unlock()
}

// getIP extracts the client's IP address from the HTTP request, considering X-Forwarded-For headers.
func getIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr // fallback
	}
	return ip
}

// getParam extracts the normalized value of the configured query parameter.
func getParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get(paramKey))
}

func tooManyRequests(w http.ResponseWriter, errMsg, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(model.Response{
		Error:   &errMsg,
		Message: message,
	})
}

// RateLimitMiddleware returns an HTTP middleware that enforces global and per-parameter rate limiting.
// Requests without the parameter only face the global limit.
// If the rate limit is exceeded, it responds with a 429 status and a JSON error message.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getIP(r)
		globalLimiter, globalRate := getGlobalLimiter(ip)
		if !globalLimiter.Allow() {
			tooManyRequests(w,
				fmt.Sprintf("Rate limit exceeded: max %g requests per minute per user/IP", globalRate),
				"Too Many Requests (global limit)")
			return
		}
		if param := getParam(r); param != "" {
			paramLimiter, paramRate := getParamLimiter(ip, param)
			if !paramLimiter.Allow() {
				tooManyRequests(w,
					fmt.Sprintf("Rate limit exceeded: max %g requests per minute per %s per user/IP", paramRate, paramKey),
					"Too Many Requests (per-param limit)")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
