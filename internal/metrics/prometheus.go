package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total HTTP requests served
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "endpoint", "status"},
	)

	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "endpoint"},
	)

	// CollaboratorCalls tracks outbound calls by collaborator and outcome
	CollaboratorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collaborator_calls_total",
			Help: "Total number of outbound collaborator calls",
		},
		[]string{"collaborator", "outcome"},
	)

	// CollaboratorDuration tracks outbound call latency
	CollaboratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collaborator_call_duration_seconds",
			Help:    "Outbound collaborator call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collaborator"},
	)

	// CircuitBreakerState tracks circuit breaker state (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"service", "circuit_name"},
	)

	// CircuitBreakerFailures tracks circuit breaker failures
	CircuitBreakerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of circuit breaker failures",
		},
		[]string{"service", "circuit_name"},
	)

	// BulkheadActiveRequests tracks active requests in bulkhead
	BulkheadActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bulkhead_active_requests",
			Help: "Number of active requests in bulkhead",
		},
		[]string{"service", "bulkhead_name"},
	)

	// BulkheadRejectedRequests tracks rejected requests by bulkhead
	BulkheadRejectedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkhead_rejected_requests_total",
			Help: "Total number of rejected requests by bulkhead",
		},
		[]string{"service", "bulkhead_name"},
	)

	// CoalescedUpdates counts updates folded into an already scheduled run
	CoalescedUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coalescer_updates_total",
			Help: "Updates accumulated by debounce coalescers",
		},
		[]string{"coalescer", "kind"},
	)

	// PricingRecomputes tracks price summary recomputations by outcome
	PricingRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_recomputes_total",
			Help: "Price summary recomputations by outcome (applied, failed, stale, invalid)",
		},
		[]string{"outcome"},
	)

	// EditSessions tracks open edit sessions
	EditSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "edit_sessions_open",
			Help: "Number of open order edit sessions",
		},
	)

	// OrderSaves tracks order section saves by section and outcome
	OrderSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_saves_total",
			Help: "Order edit saves by section and outcome",
		},
		[]string{"section", "outcome"},
	)

	// LedgerMutations tracks item ledger operations by kind and outcome
	LedgerMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_mutations_total",
			Help: "Item ledger mutations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// RequestRejections tracks request bodies that failed validation
	RequestRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "request_rejections_total",
			Help: "Requests rejected before reaching a session, by route",
		},
		[]string{"route"},
	)

	// CacheLookups tracks cache hits and misses
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by cache name and result",
		},
		[]string{"cache", "result"},
	)

	// ChaosFailureRate tracks chaos engineering failure simulations
	ChaosFailureRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chaos_failure_enabled",
			Help: "Whether chaos failure mode is enabled (1=enabled, 0=disabled)",
		},
		[]string{"service"},
	)

	// ChaosSlowMode tracks slow response simulation
	ChaosSlowMode = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chaos_slow_mode_enabled",
			Help: "Whether chaos slow mode is enabled (1=enabled, 0=disabled)",
		},
		[]string{"service"},
	)
)

// PrometheusMiddleware creates a Gin middleware for automatic metrics collection
func PrometheusMiddleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		RequestsTotal.WithLabelValues(
			serviceName,
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()

		RequestDuration.WithLabelValues(
			serviceName,
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

// ObserveCall records an outbound collaborator call
func ObserveCall(collaborator string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	CollaboratorCalls.WithLabelValues(collaborator, outcome).Inc()
	CollaboratorDuration.WithLabelValues(collaborator).Observe(time.Since(start).Seconds())
}
