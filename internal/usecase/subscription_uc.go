package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"store-billing/internal/domain"
	"store-billing/internal/domain/model"
	"store-billing/internal/domain/ports/adapter"
	"store-billing/internal/domain/ports/repository"
	"store-billing/internal/infra/metrics"
)

var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	// Purchase pays for plan from the wallet and activates it for storeID.
	Purchase(ctx context.Context, userID, storeID, planID string) (*PurchaseResult, error)
	Status(ctx context.Context, userID, storeID string) (*SubscriptionStatus, error)
	List(ctx context.Context, userID string) ([]*model.Subscription, error)
	Plans() []model.Plan
}

type PurchaseResult struct {
	Subscription *model.Subscription
	Payment      *model.Payment
	Balance      int64
}

type SubscriptionStatus struct {
	HasActive     bool
	Subscription  *model.Subscription
	DaysRemaining int
}

type subscriptionUC struct {
	ledger
	subs      repository.SubscriptionRepository
	tm        repository.TransactionManager
	publisher adapter.LedgerPublisher
	log       *zerolog.Logger
}

func NewSubscriptionUseCase(
	subs repository.SubscriptionRepository,
	wallets repository.WalletRepository,
	entries repository.WalletTransactionRepository,
	payments repository.PaymentRepository,
	tm repository.TransactionManager,
	publisher adapter.LedgerPublisher,
	logger *zerolog.Logger,
) *subscriptionUC {
	return &subscriptionUC{
		ledger:    ledger{wallets: wallets, entries: entries, payments: payments},
		subs:      subs,
		tm:        tm,
		publisher: publisher,
		log:       logger,
	}
}

func (uc *subscriptionUC) Plans() []model.Plan { return model.Plans() }

// Purchase rules:
//   - only catalog plans are purchasable
//   - an active subscription with more than RenewalWindowDays left blocks the purchase
//   - the new period starts now, even when renewing early
//
// The eligibility check, debit and insert share one transaction under a per-user lock.
func (uc *subscriptionUC) Purchase(ctx context.Context, userID, storeID, planID string) (*PurchaseResult, error) {
	if userID == "" || storeID == "" {
		return nil, domain.ErrInvalidArgument
	}
	plan, err := model.LookupPlan(planID)
	if err != nil {
		metrics.IncSubscriptionRejected("invalid_plan")
		return nil, err
	}

	var res PurchaseResult
	var debit *DebitResult
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.subs.LockUser(ctx, tx, userID); err != nil {
			return err
		}
		now := time.Now()
		latest, err := uc.subs.FindLatestActiveByUser(ctx, tx, userID, now)
		switch {
		case err == nil:
			if days := latest.DaysRemaining(now); days > model.RenewalWindowDays {
				return &domain.ActiveSubscriptionError{DaysRemaining: days}
			}
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		desc := fmt.Sprintf("خرید %s", plan.Name)
		debit, err = uc.debit(ctx, tx, userID, plan.Amount, desc, model.TransactionTypeDebit)
		if err != nil {
			return err
		}

		sub, err := model.NewSubscription(userID, storeID, plan, &debit.Payment.ID, now)
		if err != nil {
			return err
		}
		if err := uc.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		res = PurchaseResult{Subscription: sub, Payment: debit.Payment, Balance: debit.Balance}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrActiveSubscriptionExists):
			metrics.IncSubscriptionRejected("active_subscription")
		case errors.Is(err, domain.ErrInsufficientBalance):
			metrics.IncSubscriptionRejected("insufficient_balance")
		default:
			uc.log.Error().Err(err).Str("user_id", userID).Str("store_id", storeID).Str("plan", planID).Msg("subscription purchase failed")
		}
		return nil, err
	}

	metrics.IncSubscriptionPurchased(planID)
	metrics.AddWalletDebited("subscription", plan.Amount)
	uc.log.Info().Str("user_id", userID).Str("store_id", storeID).Str("plan", planID).
		Time("end_date", res.Subscription.EndDate).Msg("subscription activated")

	uc.publisher.Publish(ctx, debitedEvent(debit))
	uc.publisher.Publish(ctx, model.LedgerEvent{
		Type:      model.EventSubscriptionActivated,
		UserID:    userID,
		WalletID:  debit.Wallet.ID,
		PaymentID: debit.Payment.ID,
		StoreID:   storeID,
		Amount:    plan.Amount,
		Balance:   debit.Balance,
		At:        res.Subscription.CreatedAt,
	})
	return &res, nil
}

func (uc *subscriptionUC) Status(ctx context.Context, userID, storeID string) (*SubscriptionStatus, error) {
	if userID == "" || storeID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	sub, err := uc.subs.FindLatestActiveByStore(ctx, repository.NoTX, userID, storeID, now)
	if errors.Is(err, domain.ErrNotFound) {
		return &SubscriptionStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &SubscriptionStatus{
		HasActive:     true,
		Subscription:  sub,
		DaysRemaining: sub.DaysRemaining(now),
	}, nil
}

func (uc *subscriptionUC) List(ctx context.Context, userID string) ([]*model.Subscription, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return uc.subs.ListByUser(ctx, repository.NoTX, userID)
}
