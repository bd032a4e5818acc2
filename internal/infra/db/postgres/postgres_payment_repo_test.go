//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"store-billing/internal/domain"
	"store-billing/internal/domain/model"
)

func TestPaymentRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewPaymentRepo(testPool, nil)

	t.Run("pending transition happens once", func(t *testing.T) {
		cleanup(t)
		p, _ := model.NewPayment("user-1", 20000, "charge", &model.PaymentMetadata{Mobile: "09120000000"})
		if err := repo.Save(ctx, nil, p); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if ok, err := repo.SetAuthority(ctx, nil, p.ID, "A1"); !ok || err != nil {
			t.Fatalf("SetAuthority failed: %v %v", ok, err)
		}
		if ok, _ := repo.SetAuthority(ctx, nil, p.ID, "A2"); ok {
			t.Fatal("authority must be set only once")
		}

		v := &model.PaymentVerification{RefID: "201", CardPan: "5022", VerifiedAt: time.Now()}
		ok, err := repo.UpdateStatusIfPending(ctx, nil, p.ID, model.PaymentStatusVerified, v)
		if !ok || err != nil {
			t.Fatalf("first transition failed: %v %v", ok, err)
		}
		ok, _ = repo.UpdateStatusIfPending(ctx, nil, p.ID, model.PaymentStatusFailed, nil)
		if ok {
			t.Fatal("second transition must not apply")
		}

		got, err := repo.FindByID(ctx, nil, p.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got.Status != model.PaymentStatusVerified || got.RefID == nil || *got.RefID != "201" || got.Authority != "A1" {
			t.Fatalf("unexpected payment: %+v", got)
		}
		if got.Metadata == nil || got.Metadata.Mobile != "09120000000" {
			t.Fatalf("metadata not round-tripped: %+v", got.Metadata)
		}
	})

	t.Run("missing payment is not found", func(t *testing.T) {
		cleanup(t)
		_, err := repo.FindByID(ctx, nil, "00000000-0000-0000-0000-000000000000")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
