package repository

import (
	"context"
	"time"

	"store-billing/internal/domain/model"
)

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	// SetAuthority stores the gateway authority only if none is set yet.
	SetAuthority(ctx context.Context, tx Tx, id, authority string) (bool, error)
	// UpdateStatusIfPending performs the single pending -> terminal transition.
	// v is applied only for verified payments. False means the payment was not pending.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, status model.PaymentStatus, v *model.PaymentVerification) (bool, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
}
