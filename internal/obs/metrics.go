package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP-level metrics shared by every handler.
var (
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

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the service considers itself ready to serve.",
	})
)

// Domain metrics for the OTP and invitation lifecycle.
var (
	otpIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_issued_total",
			Help: "OTP codes issued, by purpose.",
		},
		[]string{"purpose"},
	)

	otpConsumeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_consume_total",
			Help: "OTP verification attempts, by purpose and result.",
		},
		[]string{"purpose", "result"},
	)

	invitationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invitations_total",
			Help: "Invitation lifecycle events.",
		},
		[]string{"event"},
	)

	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Login attempts, by method and result.",
		},
		[]string{"method", "result"},
	)
)

// Init registers all metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration, ready,
		otpIssuedTotal, otpConsumeTotal, invitationsTotal, loginsTotal,
	)
}

// SetReady flips the readiness gauge.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
	} else {
		ready.Set(0)
	}
}

// ObserveOTPIssued records a code issuance.
func ObserveOTPIssued(purpose string) {
	otpIssuedTotal.WithLabelValues(purpose).Inc()
}

// ObserveOTPConsume records a verification attempt outcome ("ok" or "rejected").
func ObserveOTPConsume(purpose, result string) {
	otpConsumeTotal.WithLabelValues(purpose, result).Inc()
}

// ObserveInvitation records an invitation lifecycle event
// (created, otp_verified, accepted, cancelled, rejected, expired).
func ObserveInvitation(event string) {
	invitationsTotal.WithLabelValues(event).Inc()
}

// ObserveLogin records a login attempt ("password" or "otp"; "ok", "rejected" or "pending_approval").
func ObserveLogin(method, result string) {
	loginsTotal.WithLabelValues(method, result).Inc()
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CanonicalPath collapses per-record path segments so metric label
// cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for _, prefix := range [][]string{
		{"api", "societies"},
		{"api", "invitations"},
		{"api", "members"},
	} {
		if len(segments) >= len(prefix)+1 && hasPrefix(segments, prefix) {
			id := segments[len(prefix)]
			if id != "" && !isAction(id) {
				segments[len(prefix)] = ":id"
			}
		}
	}
	return "/" + strings.Join(segments, "/")
}

func hasPrefix(segments, prefix []string) bool {
	for i, p := range prefix {
		if segments[i] != p {
			return false
		}
	}
	return true
}

func isAction(segment string) bool {
	switch segment {
	case "pending", "verify-otp", "complete":
		return true
	}
	return false
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code written by downstream handlers.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
