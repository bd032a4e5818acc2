package usecase

import (
	"context"
	"time"

	"store-billing/internal/domain/model"
	"store-billing/internal/domain/ports/repository"
)

// ledger groups the repositories that together move money. Every method
// expects to run inside the caller's transaction.
type ledger struct {
	wallets  repository.WalletRepository
	entries  repository.WalletTransactionRepository
	payments repository.PaymentRepository
}

// DebitResult is the outcome of a committed wallet debit.
type DebitResult struct {
	Wallet      *model.Wallet
	Payment     *model.Payment
	Transaction *model.WalletTransaction
	Balance     int64
}

// debit subtracts amount with a conditional update, then records a verified
// Payment and a completed ledger entry. On ErrInsufficientBalance nothing is written.
func (l *ledger) debit(ctx context.Context, tx repository.Tx, userID string, amount int64, description string, typ model.TransactionType) (*DebitResult, error) {
	w, err := l.wallets.GetOrCreate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	bal, err := l.wallets.DebitIfSufficient(ctx, tx, userID, amount)
	if err != nil {
		return nil, err
	}

	p, err := model.NewPayment(userID, amount, description, nil)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	p.Status = model.PaymentStatusVerified
	p.PaidAt = &now
	p.VerifiedAt = &now
	if err := l.payments.Save(ctx, tx, p); err != nil {
		return nil, err
	}

	entry, err := model.NewWalletTransaction(w, &p.ID, typ, amount, description, model.TransactionStatusCompleted)
	if err != nil {
		return nil, err
	}
	if err := l.entries.Save(ctx, tx, entry); err != nil {
		return nil, err
	}

	w.Balance = bal
	return &DebitResult{Wallet: w, Payment: p, Transaction: entry, Balance: bal}, nil
}
