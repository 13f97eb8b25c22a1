package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup outcomes.
const (
	OutcomeHit     = "hit"
	OutcomeMiss    = "miss"
	OutcomeFailure = "failure"
	OutcomeNoKey   = "no_key"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	registry *prometheus.Registry

	LookupsTotal     *prometheus.CounterVec
	FetchErrorsTotal *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	HTTPRequests     *prometheus.CounterVec
}

// New constructs and registers all metrics on a dedicated registry.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookups_total",
				Help:      "Weather lookups by outcome",
			},
			[]string{"outcome"},
		),
		FetchErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_errors_total",
				Help:      "Failed provider calls by failure kind",
			},
			[]string{"kind"},
		),
		FetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Latency of provider calls",
				Buckets:   prometheus.DefBuckets,
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by path and status class",
			},
			[]string{"path", "status_class"},
		),
	}
	reg.MustRegister(
		m.LookupsTotal,
		m.FetchErrorsTotal,
		m.FetchDuration,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveLookup(outcome string) {
	m.LookupsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveFetch(d time.Duration, errKind string) {
	m.FetchDuration.Observe(d.Seconds())
	if errKind != "" {
		m.FetchErrorsTotal.WithLabelValues(errKind).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// OtherPath labels requests to paths the service does not route.
const OtherPath = "other"

// Middleware counts requests by path and status class. Paths outside routes are
// counted under OtherPath so unknown URLs cannot grow the label set.
func (m *Metrics) Middleware(next http.Handler, routes ...string) http.Handler {
	known := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		known[r] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		path := r.URL.Path
		if _, ok := known[path]; !ok {
			path = OtherPath
		}
		m.HTTPRequests.WithLabelValues(path, fmt.Sprintf("%dxx", rec.status/100)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
