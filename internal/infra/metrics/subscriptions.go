package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionsPurchasedTotal,
		subscriptionRejectionsTotal,
		tokensPurchasedTotal,
	)
}

var (
	subscriptionsPurchasedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_purchased_total",
			Help: "Subscriptions activated from wallet balance, by plan.",
		},
		[]string{"plan"},
	)

	subscriptionRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_purchase_rejections_total",
			Help: "Rejected subscription purchases by reason.",
		},
		[]string{"reason"}, // invalid_plan|active_subscription|insufficient_balance
	)

	tokensPurchasedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "store_tokens_purchased_total",
			Help: "Total tokens credited to stores.",
		},
	)
)

func IncSubscriptionPurchased(plan string) {
	subscriptionsPurchasedTotal.WithLabelValues(norm(plan)).Inc()
}

func IncSubscriptionRejected(reason string) {
	subscriptionRejectionsTotal.WithLabelValues(norm(reason)).Inc()
}

func AddTokensPurchased(n int64) {
	tokensPurchasedTotal.Add(float64(n))
}
