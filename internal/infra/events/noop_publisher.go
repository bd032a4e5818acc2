package events

import (
	"context"

	"github.com/rs/zerolog"

	"store-billing/internal/domain/model"
	"store-billing/internal/domain/ports/adapter"
)

var _ adapter.LedgerPublisher = (*NoopPublisher)(nil)

// NoopPublisher logs events at debug level. Used when no brokers are configured.
type NoopPublisher struct {
	log zerolog.Logger
}

func NewNoopPublisher(log zerolog.Logger) *NoopPublisher {
	return &NoopPublisher{log: log}
}

func (p *NoopPublisher) Publish(_ context.Context, ev model.LedgerEvent) {
	p.log.Debug().
		Str("event", string(ev.Type)).
		Str("user_id", ev.UserID).
		Int64("amount", ev.Amount).
		Int64("balance", ev.Balance).
		Msg("ledger event")
}
