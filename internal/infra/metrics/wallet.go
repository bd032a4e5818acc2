package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		walletOpsTotal,
		walletDebitedTotal,
		ledgerMismatches,
		ledgerEventsTotal,
	)
}

var (
	walletOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_operations_total",
			Help: "Wallet operations by kind (charge/debit/credit) and result.",
		},
		[]string{"kind", "result"},
	)

	walletDebitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_debited_amount_total",
			Help: "Total amount debited from wallets, by purpose.",
		},
		[]string{"purpose"}, // subscription|tokens|other
	)

	ledgerMismatches = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wallet_ledger_mismatches",
			Help: "Wallets whose balance differs from the sum of completed transactions at the last audit.",
		},
	)

	ledgerEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_ledger_events_total",
			Help: "Ledger events handed to the publisher, by delivery status.",
		},
		[]string{"status"}, // sent|error|dropped
	)
)

func IncWalletOp(kind, result string) {
	walletOpsTotal.WithLabelValues(norm(kind), norm(result)).Inc()
}

func AddWalletDebited(purpose string, amount int64) {
	walletDebitedTotal.WithLabelValues(norm(purpose)).Add(float64(amount))
}

func SetLedgerMismatches(n int) {
	ledgerMismatches.Set(float64(n))
}

func IncLedgerEvent(status string) {
	ledgerEventsTotal.WithLabelValues(norm(status)).Inc()
}
