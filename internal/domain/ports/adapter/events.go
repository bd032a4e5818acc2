package adapter

import (
	"context"

	"store-billing/internal/domain/model"
)

// LedgerPublisher emits ledger events after commit. Implementations must not block
// the caller on broker latency.
type LedgerPublisher interface {
	Publish(ctx context.Context, ev model.LedgerEvent)
}
