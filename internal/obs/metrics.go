package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	authResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasklane_auth_resolutions_total",
			Help: "Identity resolutions performed by the authentication middleware.",
		},
		[]string{"source", "outcome"},
	)

	authLogins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasklane_auth_logins_total",
			Help: "Login attempts by auth mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tasklane_sessions_active",
		Help: "Server-side sessions currently held by the in-memory store.",
	})

	readyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tasklane_ready",
		Help: "1 when the API reports ready, 0 otherwise.",
	})
)

// Init registers the metrics in the default registry. Safe to call repeatedly.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight,
			httpRequestsTotal,
			httpRequestDuration,
			authResolutions,
			authLogins,
			sessionsActive,
			readyGauge,
		)
	})
}

// Handler exposes the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveResolution counts one pass of identity resolution.
func ObserveResolution(source, outcome string) {
	if source == "" {
		source = "none"
	}
	authResolutions.WithLabelValues(source, outcome).Inc()
}

// ObserveLogin counts one login attempt.
func ObserveLogin(mode, outcome string) {
	authLogins.WithLabelValues(mode, outcome).Inc()
}

// SetActiveSessions records the number of live sessions.
func SetActiveSessions(n int) {
	sessionsActive.Set(float64(n))
}

// SetReady flips the readiness gauge.
func SetReady(ready bool) {
	if ready {
		readyGauge.Set(1)
		return
	}
	readyGauge.Set(0)
}

// Instrument measures request rate, latency and in-flight requests.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

// CanonicalPath collapses identifiers in known routes so label cardinality
// stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "accounts" && !isAccountAction(parts[1]):
		return "/accounts/:id"
	case len(parts) == 2 && parts[0] == "todos" && !isTodoAction(parts[1]):
		return "/todos/:id"
	case len(parts) == 3 && parts[0] == "todos" && parts[1] == "account":
		return "/todos/account/:id"
	}
	return path
}

func isAccountAction(seg string) bool {
	switch seg {
	case "login", "logout", "register", "me":
		return true
	}
	return false
}

func isTodoAction(seg string) bool {
	return seg == "my" || seg == "events"
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
