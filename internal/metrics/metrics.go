package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/marketboard/ad-scheduler/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Sweep metrics

	SweepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "adscheduler",
		Name:      "sweep_duration_seconds",
		Help:      "Time taken for one sweep of a periodic task.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"task"})

	SweepTicksSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adscheduler",
		Name:      "sweep_ticks_skipped_total",
		Help:      "Ticks skipped because the previous sweep was still in flight.",
	}, []string{"task"})

	SweepErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adscheduler",
		Name:      "sweep_errors_total",
		Help:      "System-level errors that ended a sweep early.",
	}, []string{"task"})

	CleanupDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adscheduler",
		Name:      "cleanup_deleted_total",
		Help:      "Terminal schedules removed by the cleanup sweep.",
	})

	// Execution metrics

	ExecutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adscheduler",
		Name:      "executions_total",
		Help:      "Schedule executions finished, by outcome.",
	}, []string{"outcome"})

	ExecutionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "adscheduler",
		Name:      "execution_duration_seconds",
		Help:      "Duration of one campaign execution.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"outcome"})

	SchedulesInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "adscheduler",
		Name:      "schedules_in_flight",
		Help:      "Schedules currently being executed.",
	})

	// Clock lifecycle

	ClockStartTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "adscheduler",
		Name:      "clock_start_time_seconds",
		Help:      "Unix timestamp when the trigger clock was last started.",
	})

	ClockStopsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adscheduler",
		Name:      "clock_stops_total",
		Help:      "Number of times the trigger clock has been stopped.",
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "adscheduler",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adscheduler",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		SweepDuration,
		SweepTicksSkipped,
		SweepErrorsTotal,
		CleanupDeletedTotal,
		ExecutionsTotal,
		ExecutionDuration,
		SchedulesInFlight,
		ClockStartTime,
		ClockStopsTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		result := checker.Readiness(r.Context())
		status := http.StatusOK
		if result.Status != "up" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, result)
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
