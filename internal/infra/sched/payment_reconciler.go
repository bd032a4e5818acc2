package sched

import (
	"context"
	"time"

	"store-billing/internal/usecase"

	"github.com/rs/zerolog"
)

const sweepBatch = 200

// StaleSweeper resolves pending payments whose callback never arrived.
type StaleSweeper interface {
	SweepStale(ctx context.Context, olderThan time.Time, limit int) (usecase.SweepReport, error)
}

// PaymentReconciler periodically sweeps stale pending payments. Payments that
// reached the gateway are re-verified; the rest are closed as failed.
type PaymentReconciler struct {
	uc         StaleSweeper
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to retry
	log        *zerolog.Logger
}

func NewPaymentReconciler(uc StaleSweeper, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	return &PaymentReconciler{uc: uc, interval: interval, staleAfter: staleAfter, log: logger}
}

// Start blocks until ctx is done. A non-positive interval disables the sweeper.
func (w *PaymentReconciler) Start(ctx context.Context) {
	if w.interval <= 0 {
		w.log.Info().Msg("payment reconciler disabled")
		return
	}
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	rep, err := w.uc.SweepStale(ctx, cutoff, sweepBatch)
	if err != nil {
		w.log.Error().Err(err).Msg("payment-reconciler: sweep failed")
		return
	}
	if rep.Verified+rep.Failed+rep.Skipped > 0 {
		w.log.Info().
			Int("verified", rep.Verified).
			Int("failed", rep.Failed).
			Int("skipped", rep.Skipped).
			Msg("payment-reconciler: swept stale payments")
	}
}
