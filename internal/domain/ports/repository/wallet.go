package repository

import (
	"context"

	"store-billing/internal/domain/model"
)

// LedgerMismatch is a wallet whose stored balance disagrees with its completed ledger entries.
type LedgerMismatch struct {
	WalletID      string
	UserID        string
	Balance       int64
	LedgerBalance int64
}

type WalletRepository interface {
	// GetOrCreate returns the user's wallet, inserting an empty one if absent.
	GetOrCreate(ctx context.Context, tx Tx, userID string) (*model.Wallet, error)
	FindByUserID(ctx context.Context, tx Tx, userID string) (*model.Wallet, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.Wallet, error)
	// DebitIfSufficient atomically subtracts amount when balance >= amount and
	// returns the new balance. It returns domain.ErrInsufficientBalance and
	// changes nothing otherwise.
	DebitIfSufficient(ctx context.Context, tx Tx, userID string, amount int64) (int64, error)
	// Credit adds amount to the wallet and returns the new balance.
	Credit(ctx context.Context, tx Tx, walletID string, amount int64) (int64, error)
	FindLedgerMismatches(ctx context.Context, tx Tx, limit int) ([]LedgerMismatch, error)
}

type WalletTransactionRepository interface {
	Save(ctx context.Context, tx Tx, t *model.WalletTransaction) error
	FindByPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.WalletTransaction, error)
	// UpdateStatusIfPending moves a pending entry to a terminal status; false means it was not pending.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, status model.TransactionStatus) (bool, error)
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.WalletTransaction, error)
}

type StoreTokenRepository interface {
	// AddTokens increments the store's AI token balance and returns the new total.
	AddTokens(ctx context.Context, tx Tx, storeID, userID string, tokens int64) (int64, error)
	FindByStoreID(ctx context.Context, tx Tx, storeID string) (*model.StoreTokens, error)
}
