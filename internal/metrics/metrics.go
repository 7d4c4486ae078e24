package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/leave-management/internal/core/events"
	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leave_management"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	leaveRequestEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leave_requests",
			Name:      "events_total",
			Help:      "Leave request lifecycle events by type.",
		},
		[]string{"event"},
	)

	balanceSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leave_requests",
			Name:      "approvals_without_balance_total",
			Help:      "Approvals that found no matching balance row to deduct from.",
		},
	)

	loginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		},
		[]string{"result"},
	)

	rolloverRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rollover",
			Name:      "runs_total",
			Help:      "Yearly balance rollover runs by outcome.",
		},
		[]string{"success"},
	)

	rolloverCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rollover",
			Name:      "balances_created_total",
			Help:      "Balances created by the yearly rollover.",
		},
	)

	rolloverDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rollover",
			Name:      "run_duration_seconds",
			Help:      "Duration of rollover runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		leaveRequestEvents,
		balanceSkipped,
		loginAttempts,
		rolloverRuns,
		rolloverCreated,
		rolloverDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next with request count, latency and in-flight
// metrics, labelled by the matched chi route pattern.
func InstrumentHandler(skipPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == skipPath {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			httpInFlight.Inc()
			defer httpInFlight.Dec()

			next.ServeHTTP(rec, r)

			route := routePattern(r)
			method := strings.ToUpper(r.Method)
			httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
			httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func RecordLeaveEvent(eventType string) {
	leaveRequestEvents.WithLabelValues(eventType).Inc()
}

// SubscribeLeaveEvents counts every leave request lifecycle event published
// on bus.
func SubscribeLeaveEvents(bus *events.EventBus) {
	bus.SubscribeAll(events.LeaveRequestEventTypes, func(_ context.Context, e events.Event) error {
		RecordLeaveEvent(e.EventType())
		return nil
	})
}

func RecordBalanceSkipped() {
	balanceSkipped.Inc()
}

func RecordLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

func RecordRollover(success bool, created int, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	rolloverRuns.WithLabelValues(strconv.FormatBool(success)).Inc()
	rolloverCreated.Add(float64(created))
	rolloverDuration.Observe(duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
