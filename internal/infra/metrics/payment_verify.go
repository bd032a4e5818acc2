package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		paymentVerifyRequests,
		paymentVerifyDuration,
		stalePaymentsSwept,
	)
}

var (
	// result: success|failed|pending
	// reason: verified|already_processed|missing_params|not_found|authority_mismatch|not_ok_status|
	// gateway_error|gateway_unreachable|lock_busy|internal
	paymentVerifyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verify_requests_total",
			Help: "Count of /wallet/verify callbacks by result and reason.",
		},
		[]string{"result", "reason"},
	)

	paymentVerifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_verify_duration_seconds",
			Help:    "Duration of payment verification in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)

	stalePaymentsSwept = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_stale_swept_total",
			Help: "Pending payments resolved by the reconciler, by outcome.",
		},
		[]string{"outcome"}, // verified|failed|skipped
	)
)

func ObserveVerify(result, reason string, d time.Duration) {
	paymentVerifyRequests.WithLabelValues(norm(result), norm(reason)).Inc()
	paymentVerifyDuration.WithLabelValues(norm(result)).Observe(d.Seconds())
}

func IncStaleSwept(outcome string) {
	stalePaymentsSwept.WithLabelValues(norm(outcome)).Inc()
}
