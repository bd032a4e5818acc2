package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"store-billing/internal/config"
	"store-billing/internal/domain/model"
	"store-billing/internal/domain/ports/adapter"
	"store-billing/internal/infra/metrics"
	"store-billing/internal/infra/worker"
)

var _ adapter.LedgerPublisher = (*KafkaPublisher)(nil)

const writeTimeout = 10 * time.Second

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},    // same user -> same partition
		RequiredAcks: kafka.RequireOne, // leader ack
		MaxAttempts:  10,
	}
}

// KafkaPublisher hands events to a worker pool so the request path never waits
// on the broker. Delivery is best effort; the database is the source of truth.
type KafkaPublisher struct {
	w    MessageWriter
	pool *worker.Pool
	log  zerolog.Logger
}

func NewKafkaPublisher(w MessageWriter, pool *worker.Pool, log zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{w: w, pool: pool, log: log.With().Str("component", "ledger_publisher").Logger()}
}

func (p *KafkaPublisher) Publish(_ context.Context, ev model.LedgerEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	err := p.pool.Submit(func(ctx context.Context) error {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		if err := p.write(wctx, ev); err != nil {
			metrics.IncLedgerEvent("error")
			return err
		}
		metrics.IncLedgerEvent("sent")
		return nil
	})
	if err != nil {
		metrics.IncLedgerEvent("dropped")
		p.log.Warn().Err(err).Str("event", string(ev.Type)).Str("user_id", ev.UserID).Msg("ledger event dropped")
	}
}

func (p *KafkaPublisher) write(ctx context.Context, ev model.LedgerEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal ledger event: %w", err)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.UserID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}); err != nil {
		return fmt.Errorf("write ledger event: %w", err)
	}
	return nil
}

// Close stops the pool first so queued events are flushed, then closes the writer.
func (p *KafkaPublisher) Close() error {
	p.pool.Stop()
	return p.w.Close()
}
