package repository

import (
	"context"
	"time"

	"store-billing/internal/domain/model"
)

// SubscriptionRepository is the port for store subscriptions. Every "active"
// lookup also filters on end_date > now.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindLatestActiveByUser(ctx context.Context, tx Tx, userID string, now time.Time) (*model.Subscription, error)
	FindLatestActiveByStore(ctx context.Context, tx Tx, userID, storeID string, now time.Time) (*model.Subscription, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Subscription, error)
	// LockUser serialises purchases of one user until tx ends. No-op without a tx.
	LockUser(ctx context.Context, tx Tx, userID string) error
}
