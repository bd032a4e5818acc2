package model

import (
	"crypto/rand"
	"time"

	"store-billing/internal/domain"

	"github.com/oklog/ulid/v2"
)

type TransactionType string

const (
	TransactionTypeCharge  TransactionType = "charge"  // gateway top-up (+)
	TransactionTypeDebit   TransactionType = "debit"   // subscription purchase (-)
	TransactionTypePayment TransactionType = "payment" // token / service purchase (-)
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeCharge, TransactionTypeDebit, TransactionTypePayment:
		return true
	}
	return false
}

// WalletTransaction is an append-only ledger entry. Amount is always positive;
// the direction comes from Type.
type WalletTransaction struct {
	ID          string // ULID, sorts by creation time
	WalletID    string
	UserID      string
	PaymentID   *string
	Type        TransactionType
	Amount      int64
	Description string
	Status      TransactionStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewWalletTransaction(w *Wallet, paymentID *string, typ TransactionType, amount int64, description string, status TransactionStatus) (*WalletTransaction, error) {
	if w.IsZero() || !typ.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	now := time.Now()
	return &WalletTransaction{
		ID:          NewLedgerID(now),
		WalletID:    w.ID,
		UserID:      w.UserID,
		PaymentID:   paymentID,
		Type:        typ,
		Amount:      amount,
		Description: description,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SignedAmount returns the balance delta this entry represents once completed.
func (t *WalletTransaction) SignedAmount() int64 {
	if t.Type == TransactionTypeCharge {
		return t.Amount
	}
	return -t.Amount
}

// NewLedgerID returns a monotonic-enough ULID for the given time.
func NewLedgerID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), rand.Reader).String()
}

// LedgerBalance folds completed entries into the balance they imply.
func LedgerBalance(txs []*WalletTransaction) int64 {
	var sum int64
	for _, t := range txs {
		if t.Status == TransactionStatusCompleted {
			sum += t.SignedAmount()
		}
	}
	return sum
}
