package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	ratingSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_submissions_total",
			Help: "Total number of rating submissions by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	ratingTransactionAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rating_transaction_attempts",
			Help:    "Number of times a rating transaction body ran before it settled",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 10},
		},
	)

	commentOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comment_operations_total",
			Help: "Total number of comment operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	snapshotCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restaurant_cache_lookups_total",
			Help: "Restaurant snapshot cache lookups by result",
		},
		[]string{"result"},
	)

	storeBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "document_store_breaker_state",
			Help: "Current state of the document store circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

func RecordRatingSubmission(strategy string, err error) {
	ratingSubmissionsTotal.WithLabelValues(strategy, outcome(err)).Inc()
}

func ObserveTransactionAttempts(attempts int) {
	if attempts < 1 {
		return
	}
	ratingTransactionAttempts.Observe(float64(attempts))
}

func RecordCommentOperation(operation string, err error) {
	commentOperationsTotal.WithLabelValues(operation, outcome(err)).Inc()
}

func RecordCacheLookup(hit bool) {
	if hit {
		snapshotCacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	snapshotCacheLookupsTotal.WithLabelValues("miss").Inc()
}

// SetBreakerState maps gobreaker states onto the gauge values.
func SetBreakerState(name string, state gobreaker.State) {
	value := -1.0
	switch state {
	case gobreaker.StateClosed:
		value = 0
	case gobreaker.StateHalfOpen:
		value = 1
	case gobreaker.StateOpen:
		value = 2
	}
	storeBreakerState.WithLabelValues(name).Set(value)
}

func ObserveHTTPRequest(method, path string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, path, code).Inc()
	httpRequestDuration.WithLabelValues(method, path, code).Observe(elapsed.Seconds())
}
