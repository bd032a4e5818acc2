//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"

	"store-billing/internal/domain"
	"store-billing/internal/domain/model"
	"store-billing/internal/domain/ports/repository"
)

func TestSubscriptionRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewSubscriptionRepo(testPool)
	cleanup(t)

	now := time.Now()
	plan, _ := model.LookupPlan(string(model.Plan1Month))
	old, _ := model.NewSubscription("user-1", "store-1", plan, nil, now.AddDate(0, -2, 0))
	cur, _ := model.NewSubscription("user-1", "store-1", plan, nil, now)
	for _, s := range []*model.Subscription{old, cur} {
		if err := repo.Save(ctx, nil, s); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	got, err := repo.FindLatestActiveByUser(ctx, nil, "user-1", now)
	if err != nil || got.ID != cur.ID {
		t.Fatalf("expected current subscription, got %+v (%v)", got, err)
	}
	if _, err := repo.FindLatestActiveByStore(ctx, nil, "user-1", "store-2", now); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other store, got %v", err)
	}
	all, _ := repo.ListByUser(ctx, nil, "user-1")
	if len(all) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", len(all))
	}
}

func TestSubscriptionRepo_LockUserInsideTx(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewSubscriptionRepo(testPool)
	tm := NewTxManager(testPool)

	if err := repo.LockUser(ctx, nil, "user-1"); err != nil {
		t.Fatalf("outside a transaction the lock is a no-op, got %v", err)
	}
	err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return repo.LockUser(ctx, tx, "user-1")
	})
	if err != nil {
		t.Fatalf("LockUser in tx failed: %v", err)
	}
}

func TestStoreTokenRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewStoreTokenRepo(testPool)
	cleanup(t)

	if n, err := repo.AddTokens(ctx, nil, "store-1", "user-1", 100000); err != nil || n != 100000 {
		t.Fatalf("first AddTokens: %d %v", n, err)
	}
	if n, err := repo.AddTokens(ctx, nil, "store-1", "user-1", 300000); err != nil || n != 400000 {
		t.Fatalf("second AddTokens: %d %v", n, err)
	}
	st, err := repo.FindByStoreID(ctx, nil, "store-1")
	if err != nil || st.Tokens != 400000 {
		t.Fatalf("FindByStoreID: %+v %v", st, err)
	}
}
