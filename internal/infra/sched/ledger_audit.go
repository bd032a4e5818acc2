package sched

import (
	"context"
	"time"

	"store-billing/internal/domain/ports/repository"
	"store-billing/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// MismatchFinder reports wallets whose balance disagrees with their ledger.
type MismatchFinder interface {
	FindLedgerMismatches(ctx context.Context, tx repository.Tx, limit int) ([]repository.LedgerMismatch, error)
}

// LedgerAudit exports the number of drifting wallets as a gauge.
type LedgerAudit struct {
	finder   MismatchFinder
	interval time.Duration
	log      *zerolog.Logger
}

func NewLedgerAudit(finder MismatchFinder, interval time.Duration, logger *zerolog.Logger) *LedgerAudit {
	if interval <= 0 {
		interval = time.Hour
	}
	return &LedgerAudit{finder: finder, interval: interval, log: logger}
}

func (a *LedgerAudit) Start(ctx context.Context) {
	t := time.NewTicker(a.interval)
	defer t.Stop()
	for {
		a.check(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (a *LedgerAudit) check(ctx context.Context) int {
	ms, err := a.finder.FindLedgerMismatches(ctx, repository.NoTX, 1000)
	if err != nil {
		if ctx.Err() == nil {
			a.log.Error().Err(err).Msg("ledger-audit: query failed")
		}
		return -1
	}
	metrics.SetLedgerMismatches(len(ms))
	for _, m := range ms {
		a.log.Error().
			Str("wallet_id", m.WalletID).
			Int64("balance", m.Balance).
			Int64("ledger_balance", m.LedgerBalance).
			Msg("ledger-audit: wallet drift")
	}
	return len(ms)
}
