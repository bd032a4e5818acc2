package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"store-billing/internal/domain"
	"store-billing/internal/domain/model"
	"store-billing/internal/domain/ports/adapter"
	"store-billing/internal/domain/ports/repository"
	"store-billing/internal/infra/metrics"
)

const (
	defaultTxListLimit = 10
	maxTxListLimit     = 100

	chargeDescription = "شارژ کیف پول"
)

var _ WalletUseCase = (*walletUC)(nil)

type WalletUseCase interface {
	GetOrCreateWallet(ctx context.Context, userID string) (*model.Wallet, error)
	// InitiateCharge records a pending top-up and opens it on the gateway.
	InitiateCharge(ctx context.Context, userID string, amount int64, meta *model.PaymentMetadata) (*ChargeResult, error)
	// Debit atomically spends balance; ErrInsufficientBalance leaves everything untouched.
	Debit(ctx context.Context, userID string, amount int64, description string, typ model.TransactionType) (*DebitResult, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]*model.WalletTransaction, error)
}

// ChargeLimits bounds a single top-up.
type ChargeLimits struct {
	Min int64
	Max int64
}

// CallbackURLFunc builds the gateway return URL for a payment id.
type CallbackURLFunc func(paymentID string) string

type ChargeResult struct {
	Payment     *model.Payment
	Transaction *model.WalletTransaction
	PaymentURL  string
}

type walletUC struct {
	ledger
	tm          repository.TransactionManager
	gateway     adapter.PaymentGateway
	publisher   adapter.LedgerPublisher
	limits      ChargeLimits
	callbackURL CallbackURLFunc
	log         *zerolog.Logger
}

func NewWalletUseCase(
	wallets repository.WalletRepository,
	entries repository.WalletTransactionRepository,
	payments repository.PaymentRepository,
	tm repository.TransactionManager,
	gateway adapter.PaymentGateway,
	publisher adapter.LedgerPublisher,
	limits ChargeLimits,
	callbackURL CallbackURLFunc,
	logger *zerolog.Logger,
) *walletUC {
	return &walletUC{
		ledger:      ledger{wallets: wallets, entries: entries, payments: payments},
		tm:          tm,
		gateway:     gateway,
		publisher:   publisher,
		limits:      limits,
		callbackURL: callbackURL,
		log:         logger,
	}
}

func (u *walletUC) Limits() ChargeLimits { return u.limits }

func (u *walletUC) GetOrCreateWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.wallets.GetOrCreate(ctx, repository.NoTX, userID)
}

func (u *walletUC) InitiateCharge(ctx context.Context, userID string, amount int64, meta *model.PaymentMetadata) (*ChargeResult, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if amount < u.limits.Min || amount > u.limits.Max {
		metrics.IncWalletOp("charge", "invalid_amount")
		return nil, domain.ErrInvalidAmount
	}

	p, err := model.NewPayment(userID, amount, chargeDescription, meta)
	if err != nil {
		return nil, err
	}
	var entry *model.WalletTransaction
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		w, err := u.wallets.GetOrCreate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := u.payments.Save(ctx, tx, p); err != nil {
			return err
		}
		entry, err = model.NewWalletTransaction(w, &p.ID, model.TransactionTypeCharge, amount, chargeDescription, model.TransactionStatusPending)
		if err != nil {
			return err
		}
		return u.entries.Save(ctx, tx, entry)
	})
	if err != nil {
		metrics.IncWalletOp("charge", "error")
		return nil, fmt.Errorf("record charge: %w", err)
	}

	var gm *adapter.PaymentMeta
	if !meta.IsZero() {
		gm = &adapter.PaymentMeta{Mobile: meta.Mobile, Email: meta.Email}
	}
	res, err := u.gateway.RequestPayment(ctx, amount, chargeDescription, u.callbackURL(p.ID), gm)
	if err != nil {
		// records stay pending; the stale sweeper closes them
		ev := u.log.Error().Err(err).Str("payment_id", p.ID).Str("user_id", userID).Int64("amount", amount)
		var ge *domain.GatewayError
		if errors.As(err, &ge) {
			ev = ev.Int("gateway_code", ge.Code).Str("gateway_message", u.gateway.StatusMessage(ge.Code))
		}
		ev.Msg("charge not started")
		metrics.IncWalletOp("charge", "gateway_error")
		return nil, fmt.Errorf("charge not started: %w", err)
	}

	ok, err := u.payments.SetAuthority(ctx, repository.NoTX, p.ID, res.Authority)
	if err != nil {
		return nil, fmt.Errorf("store authority: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("store authority: %w", domain.ErrAlreadyExists)
	}
	p.Authority = res.Authority

	metrics.IncPayment("initiated")
	metrics.IncWalletOp("charge", "ok")
	u.log.Info().Str("payment_id", p.ID).Str("user_id", userID).Int64("amount", amount).Msg("charge initiated")

	return &ChargeResult{
		Payment:     p,
		Transaction: entry,
		PaymentURL:  u.gateway.PaymentURL(res.Authority),
	}, nil
}

func (u *walletUC) Debit(ctx context.Context, userID string, amount int64, description string, typ model.TransactionType) (*DebitResult, error) {
	if userID == "" || !typ.Valid() || typ == model.TransactionTypeCharge {
		return nil, domain.ErrInvalidArgument
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var res *DebitResult
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		res, err = u.debit(ctx, tx, userID, amount, description, typ)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			metrics.IncWalletOp("debit", "insufficient")
		} else {
			metrics.IncWalletOp("debit", "error")
		}
		return nil, err
	}

	metrics.IncWalletOp("debit", "ok")
	metrics.AddWalletDebited("other", amount)
	u.publisher.Publish(ctx, debitedEvent(res))
	return res, nil
}

func (u *walletUC) ListTransactions(ctx context.Context, userID string, limit int) ([]*model.WalletTransaction, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if limit <= 0 {
		limit = defaultTxListLimit
	}
	if limit > maxTxListLimit {
		limit = maxTxListLimit
	}
	return u.entries.ListByUser(ctx, repository.NoTX, userID, limit)
}

func debitedEvent(r *DebitResult) model.LedgerEvent {
	return model.LedgerEvent{
		Type:          model.EventWalletDebited,
		UserID:        r.Wallet.UserID,
		WalletID:      r.Wallet.ID,
		PaymentID:     r.Payment.ID,
		TransactionID: r.Transaction.ID,
		Amount:        r.Transaction.Amount,
		Balance:       r.Balance,
		At:            r.Transaction.CreatedAt,
	}
}
