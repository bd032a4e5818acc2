package model

import (
	"time"

	"store-billing/internal/domain"

	"github.com/google/uuid"
)

// CurrencyIRT is the only currency wallets are denominated in (Iranian Toman).
const CurrencyIRT = "IRT"

// Wallet holds one user's spendable balance in the smallest unit of Currency.
// Balance is mutated only by the wallet and verification use cases.
type Wallet struct {
	ID        string
	UserID    string
	Balance   int64
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewWallet(userID string) (*Wallet, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Balance:   0,
		Currency:  CurrencyIRT,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (w *Wallet) IsZero() bool { return w == nil || w.ID == "" }
