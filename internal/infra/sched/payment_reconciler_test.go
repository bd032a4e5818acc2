//go:build !integration

package sched

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"store-billing/internal/infra/logging"
	"store-billing/internal/usecase"
)

type fakeSweeper struct {
	mu      sync.Mutex
	calls   int
	cutoffs []time.Time
	limit   int
	err     error
}

func (f *fakeSweeper) SweepStale(ctx context.Context, olderThan time.Time, limit int) (usecase.SweepReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.cutoffs = append(f.cutoffs, olderThan)
	f.limit = limit
	return usecase.SweepReport{Verified: 1}, f.err
}

func (f *fakeSweeper) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPaymentReconciler_TickUsesStaleCutoff(t *testing.T) {
	f := &fakeSweeper{}
	r := NewPaymentReconciler(f, time.Minute, 30*time.Minute, logging.Nop())

	before := time.Now().Add(-30 * time.Minute)
	r.tick(context.Background())
	after := time.Now().Add(-30 * time.Minute)

	if f.calls != 1 || f.limit != sweepBatch {
		t.Fatalf("expected one sweep with batch %d, got calls=%d limit=%d", sweepBatch, f.calls, f.limit)
	}
	if c := f.cutoffs[0]; c.Before(before) || c.After(after) {
		t.Fatalf("cutoff %v outside [%v, %v]", c, before, after)
	}
}

func TestPaymentReconciler_ErrorsAreSwallowed(t *testing.T) {
	f := &fakeSweeper{err: errors.New("db down")}
	r := NewPaymentReconciler(f, time.Minute, 0, logging.Nop())
	r.tick(context.Background())
	if r.staleAfter != 30*time.Minute {
		t.Fatalf("expected default stale window, got %v", r.staleAfter)
	}
}

func TestPaymentReconciler_StartRunsUntilCancelled(t *testing.T) {
	f := &fakeSweeper{}
	r := NewPaymentReconciler(f, 10*time.Millisecond, time.Minute, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.Calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	if f.Calls() < 2 {
		t.Fatalf("expected repeated sweeps, got %d", f.Calls())
	}
}

func TestPaymentReconciler_DisabledReturnsImmediately(t *testing.T) {
	f := &fakeSweeper{}
	r := NewPaymentReconciler(f, 0, time.Minute, logging.Nop())
	r.Start(context.Background())
	if f.Calls() != 0 {
		t.Fatal("disabled reconciler must not sweep")
	}
}
